package imagepkg

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/youruser/idcards/internal/layout"
)

var ErrAssetUnreadable = errors.New("asset unreadable")

// Sprite is a photo, logo or QR code resized for pasting. Masked sprites
// carry transparency that must be respected when pasted.
type Sprite struct {
	Image  *image.NRGBA
	Masked bool
}

func (s *Sprite) Size() image.Point {
	return s.Image.Bounds().Size()
}

func decodeAsset(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrAssetUnreadable)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAssetUnreadable, err)
	}
	return img, nil
}

// ProcessPhoto stretches the photo to the style's size and applies its frame.
func ProcessPhoto(data []byte, style layout.PhotoStyle) (*Sprite, error) {
	src, err := decodeAsset(data)
	if err != nil {
		return nil, err
	}
	w, h := style.Size.W, style.Size.H

	switch {
	case style.Frame == layout.FrameCircle:
		return circleSprite(imaging.Resize(src, w, h, imaging.Lanczos), style), nil
	case style.BorderWidth > 0:
		return borderedSprite(src, style), nil
	}
	return alphaSprite(imaging.Resize(src, w, h, imaging.Lanczos)), nil
}

// alphaSprite marks img as masked when any pixel is not fully opaque.
func alphaSprite(img *image.NRGBA) *Sprite {
	return &Sprite{Image: img, Masked: !img.Opaque()}
}

// circleSprite clips the photo to the ellipse filling its box and strokes the
// border just inside the edge.
func circleSprite(photo *image.NRGBA, style layout.PhotoStyle) *Sprite {
	w, h := float64(style.Size.W), float64(style.Size.H)

	dc := gg.NewContext(style.Size.W, style.Size.H)
	dc.DrawEllipse(w/2, h/2, w/2, h/2)
	dc.Clip()
	dc.DrawImage(photo, 0, 0)
	dc.ResetClip()

	if style.BorderWidth > 0 {
		b := float64(style.BorderWidth)
		dc.DrawEllipse(w/2, h/2, w/2-b/2, h/2-b/2)
		dc.SetColor(style.BorderColor.NRGBA)
		dc.SetLineWidth(b)
		dc.Stroke()
	}
	return &Sprite{Image: imaging.Clone(dc.Image()), Masked: true}
}

func borderedSprite(src image.Image, style layout.PhotoStyle) *Sprite {
	w, h, b := style.Size.W, style.Size.H, style.BorderWidth

	// the border is the canvas showing around the inset photo
	dc := gg.NewContext(w, h)
	dc.SetColor(style.BorderColor.NRGBA)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()
	dc.DrawImage(imaging.Resize(src, w-2*b, h-2*b, imaging.Lanczos), b, b)

	return alphaSprite(imaging.Clone(dc.Image()))
}

// ProcessQR only resizes; QR codes are never masked or framed.
func ProcessQR(data []byte, size layout.Size) (*Sprite, error) {
	src, err := decodeAsset(data)
	if err != nil {
		return nil, err
	}
	return &Sprite{Image: imaging.Resize(src, size.W, size.H, imaging.Lanczos)}, nil
}

// ProcessLogo scales the logo uniformly to fit within size, keeping its
// transparency.
func ProcessLogo(data []byte, size layout.Size) (*Sprite, error) {
	src, err := decodeAsset(data)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), size.W, size.H)
	return alphaSprite(imaging.Resize(src, w, h, imaging.Lanczos)), nil
}
