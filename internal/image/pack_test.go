package imagepkg

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/youruser/idcards/internal/layout"
)

func TestFitSize(t *testing.T) {
	tests := []struct {
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{300, 400, 600, 500, 375, 500},
		{400, 100, 200, 200, 200, 50},
		{100, 100, 100, 100, 100, 100},
		{1011, 638, 661, 1200, 661, 417},
	}
	for _, tt := range tests {
		w, h := FitSize(tt.w, tt.h, tt.maxW, tt.maxH)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("FitSize(%d,%d,%d,%d) = %dx%d, want %dx%d", tt.w, tt.h, tt.maxW, tt.maxH, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestPackPagination(t *testing.T) {
	page := layout.PageStyle{Width: 500, Height: 200, Cols: 5, Rows: 2, Padding: 5}
	slotW, slotH := 100, 100

	for _, n := range []int{1, 9, 10, 11, 23} {
		cards := make([]image.Image, n)
		for i := range cards {
			cards[i] = imaging.New(60, 40, red)
		}
		pages := Pack(cards, page)

		wantPages := (n + 9) / 10
		if len(pages) != wantPages {
			t.Fatalf("n=%d: %d pages, want %d", n, len(pages), wantPages)
		}
		lastFilled := n % 10
		if lastFilled == 0 {
			lastFilled = 10
		}
		last := pages[len(pages)-1]
		if b := last.Bounds(); b.Dx() != 500 || b.Dy() != 200 {
			t.Errorf("page size = %v", b)
		}
		for slot := 0; slot < 10; slot++ {
			cx := (slot%5)*slotW + slotW/2
			cy := (slot/5)*slotH + slotH/2
			filled := !near(last.At(cx, cy), white)
			if filled != (slot < lastFilled) {
				t.Errorf("n=%d slot %d filled=%v", n, slot, filled)
			}
		}
	}
}

func TestPackPreservesAspectRatio(t *testing.T) {
	// one 620x520 slot leaves a 600x500 drawable box
	page := layout.PageStyle{Width: 620, Height: 520, Cols: 1, Rows: 1, Padding: 10}
	pages := Pack([]image.Image{imaging.New(300, 400, red)}, page)
	if len(pages) != 1 {
		t.Fatalf("%d pages", len(pages))
	}
	p := pages[0]

	// 375x500 centered: x in [122, 497), y in [10, 510)
	inside := []image.Point{{124, 12}, {494, 507}, {310, 260}}
	outside := []image.Point{{119, 260}, {500, 260}, {310, 7}, {310, 513}}
	for _, pt := range inside {
		if !near(p.At(pt.X, pt.Y), red) {
			t.Errorf("%v = %v, want card", pt, p.At(pt.X, pt.Y))
		}
	}
	for _, pt := range outside {
		if !near(p.At(pt.X, pt.Y), white) {
			t.Errorf("%v = %v, want white", pt, p.At(pt.X, pt.Y))
		}
	}
}

func TestPackRespectsCardAlpha(t *testing.T) {
	page := layout.PageStyle{Width: 100, Height: 100, Cols: 1, Rows: 1}
	pages := Pack([]image.Image{imaging.New(100, 100, color.NRGBA{})}, page)
	if !near(pages[0].At(50, 50), white) {
		t.Errorf("transparent card should leave page white, got %v", pages[0].At(50, 50))
	}
}

func TestPackEmpty(t *testing.T) {
	if pages := Pack(nil, layout.Default().Page); len(pages) != 0 {
		t.Errorf("got %d pages for no cards", len(pages))
	}
}
