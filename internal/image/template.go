package imagepkg

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/youruser/idcards/internal/layout"
)

var ErrTemplateUnreadable = errors.New("template unreadable")

// Template is the decoded card background plus an optional logo drawn on
// every card. Neither is modified while cards are composited.
type Template struct {
	Image *image.NRGBA
	Logo  *Sprite
}

// LoadTemplate decodes the background. A non-zero declared size must match
// the decoded pixels.
func LoadTemplate(data []byte, declared layout.Size) (*Template, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrTemplateUnreadable)
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateUnreadable, err)
	}
	t := &Template{Image: imaging.Clone(img)}
	if declared != (layout.Size{}) && declared != t.Size() {
		got := t.Size()
		return nil, fmt.Errorf("%w: declared %dx%d but image is %dx%d",
			ErrTemplateUnreadable, declared.W, declared.H, got.W, got.H)
	}
	return t, nil
}

func (t *Template) Size() layout.Size {
	b := t.Image.Bounds()
	return layout.Size{W: b.Dx(), H: b.Dy()}
}
