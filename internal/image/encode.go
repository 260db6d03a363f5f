package imagepkg

import (
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/signintech/gopdf"
)

type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpg"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "", "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	}
	return "", fmt.Errorf("unsupported image format %q", s)
}

func (f Format) Ext() string { return "." + string(f) }

func Encode(w io.Writer, img image.Image, f Format) error {
	if f == FormatJPEG {
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(95))
	}
	return imaging.Encode(w, img, imaging.PNG)
}

// pageRect converts pixel dimensions to PDF points at dpi.
func pageRect(img image.Image, dpi float64) gopdf.Rect {
	b := img.Bounds()
	return gopdf.Rect{W: float64(b.Dx()) * 72 / dpi, H: float64(b.Dy()) * 72 / dpi}
}

// WritePDF writes one PDF page per image, each page sized to its image.
func WritePDF(w io.Writer, imgs []image.Image, dpi float64) error {
	if len(imgs) == 0 {
		return fmt.Errorf("no pages to write")
	}
	if dpi <= 0 {
		dpi = 300
	}
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{Unit: gopdf.UnitPT, PageSize: pageRect(imgs[0], dpi)})
	for i, img := range imgs {
		r := pageRect(img, dpi)
		pdf.AddPageWithOption(gopdf.PageOption{PageSize: &r})
		if err := pdf.ImageFrom(img, 0, 0, &r); err != nil {
			return fmt.Errorf("pdf page %d: %w", i+1, err)
		}
	}
	if _, err := pdf.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
