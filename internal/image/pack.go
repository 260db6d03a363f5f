package imagepkg

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/youruser/idcards/internal/layout"
)

// FitSize scales w x h uniformly so it fits within maxW x maxH.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	fw := int(math.Round(float64(w) * scale))
	fh := int(math.Round(float64(h) * scale))
	return max(min(fw, maxW), 1), max(min(fh, maxH), 1)
}

// Pack lays cards out row by row on white pages, cols x rows per page. The
// last page keeps its unused slots blank.
func Pack(cards []image.Image, page layout.PageStyle) []*image.NRGBA {
	per := page.PerPage()
	if per <= 0 {
		return nil
	}
	slotW, slotH := page.Width/page.Cols, page.Height/page.Rows
	maxW, maxH := slotW-2*page.Padding, slotH-2*page.Padding

	var pages []*image.NRGBA
	for start := 0; start < len(cards); start += per {
		end := min(start+per, len(cards))
		sheet := imaging.New(page.Width, page.Height, color.White)
		for i, card := range cards[start:end] {
			col, row := i%page.Cols, i/page.Cols
			b := card.Bounds()
			w, h := FitSize(b.Dx(), b.Dy(), maxW, maxH)
			if w == 0 {
				continue
			}
			scaled := imaging.Resize(card, w, h, imaging.Lanczos)
			pos := image.Pt(col*slotW+(slotW-w)/2, row*slotH+(slotH-h)/2)
			sheet = imaging.Overlay(sheet, scaled, pos, 1.0)
		}
		pages = append(pages, sheet)
	}
	return pages
}
