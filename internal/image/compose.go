package imagepkg

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/youruser/idcards/internal/fields"
	"github.com/youruser/idcards/internal/layout"
	"github.com/youruser/idcards/internal/records"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

var ErrNoContentPlaced = errors.New("no content placed")

// Note records a text label that was skipped or drawn with fallback text.
type Note struct {
	Label      string
	Resolution fields.Resolution
}

// Card is one finished card. Placed lists what was drawn in drawing order.
type Card struct {
	Image  *image.NRGBA
	Placed []layout.Target
	Notes  []Note
}

// Compositor renders cards from a shared template and layout. It holds no
// mutable state and may be used from several goroutines.
type Compositor struct {
	template *Template
	layout   *layout.Layout
	font     *FontSource
}

func NewCompositor(t *Template, l *layout.Layout, f *FontSource) *Compositor {
	return &Compositor{template: t, layout: l, font: f}
}

// Composite layers the logo, photo, QR code and text over a copy of the
// template. Either sprite may be nil. When nothing from the record could be
// placed (the logo and fixed text do not count) the returned card has no
// image, keeps its notes and the error is ErrNoContentPlaced.
func (c *Compositor) Composite(rec records.Record, photo, qr *Sprite) (*Card, error) {
	canvas := imaging.Clone(c.template.Image)
	card := &Card{}
	content := 0

	if pt, ok := c.layout.Coordinates.Lookup(layout.TargetLogo); ok && c.template.Logo != nil {
		logo := c.template.Logo
		canvas = pasteSprite(canvas, logo, centered(pt, logo.Size()))
		card.Placed = append(card.Placed, layout.TargetFor(layout.LabelLogo))
	}

	if pt, ok := c.layout.Coordinates.Lookup(layout.TargetPhoto); ok && photo != nil {
		pos := centered(pt, photo.Size())
		canvas = pasteSprite(canvas, photo, pos)
		card.Placed = append(card.Placed, layout.TargetFor(layout.LabelPhoto))
		content++
	}

	if pt, ok := c.layout.Coordinates.Lookup(layout.TargetQR); ok && qr != nil {
		canvas = imaging.Paste(canvas, qr.Image, centered(pt, qr.Size()))
		card.Placed = append(card.Placed, layout.TargetFor(layout.LabelQR))
		content++
	}

	n, err := c.drawText(canvas, rec, card)
	if err != nil {
		return nil, err
	}
	content += n

	if content == 0 {
		return card, ErrNoContentPlaced
	}
	card.Image = canvas
	return card, nil
}

// drawText draws every present label and returns how many came from the
// record.
func (c *Compositor) drawText(canvas *image.NRGBA, rec records.Record, card *Card) (int, error) {
	fromRecord := 0
	faces := map[float64]font.Face{}
	defer func() {
		for _, f := range faces {
			f.Close()
		}
	}()

	for _, p := range c.layout.TextPlacements() {
		spec, ok := c.layout.Field(p.Target.Label)
		if !ok {
			continue
		}
		res := fields.Resolve(rec, spec)
		if res.Kind != fields.Resolved {
			card.Notes = append(card.Notes, Note{Label: spec.Label, Resolution: res})
		}
		if !res.Present() {
			continue
		}

		size := c.layout.Font.Size
		if spec.FontSize > 0 {
			size = spec.FontSize
		}
		face, ok := faces[size]
		if !ok {
			var err error
			face, err = c.font.Face(size)
			if err != nil {
				return fromRecord, fmt.Errorf("font face %s at %.1f: %w", c.font.Name, size, err)
			}
			faces[size] = face
		}
		col := c.layout.Font.Color
		if spec.Color != nil {
			col = *spec.Color
		}

		d := font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(col.NRGBA),
			Face: face,
			// the coordinate is the top-left of the text box
			Dot: fixed.Point26_6{X: fixed.I(p.At.X), Y: fixed.I(p.At.Y) + face.Metrics().Ascent},
		}
		d.DrawString(res.Text)
		card.Placed = append(card.Placed, p.Target)
		if res.Column != "" {
			fromRecord++
		}
	}
	return fromRecord, nil
}

// pasteSprite uses the sprite's alpha as the paste mask when it has one.
func pasteSprite(canvas *image.NRGBA, s *Sprite, pos image.Point) *image.NRGBA {
	if s.Masked || !s.Image.Opaque() {
		return imaging.Overlay(canvas, s.Image, pos, 1.0)
	}
	return imaging.Paste(canvas, s.Image, pos)
}

func centered(pt layout.Point, size image.Point) image.Point {
	return image.Pt(pt.X-size.X/2, pt.Y-size.Y/2)
}
