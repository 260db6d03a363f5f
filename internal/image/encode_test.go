package imagepkg

import (
	"bytes"
	"image"
	"testing"

	"github.com/disintegration/imaging"
)

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatPNG, "PNG": FormatPNG, ".jpg": FormatJPEG, "jpeg": FormatJPEG} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Error("expected error for gif")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	src := imaging.New(31, 17, red)
	for _, f := range []Format{FormatPNG, FormatJPEG} {
		var buf bytes.Buffer
		if err := Encode(&buf, src, f); err != nil {
			t.Fatalf("Encode %s: %v", f, err)
		}
		img, err := imaging.Decode(&buf)
		if err != nil {
			t.Fatalf("decode %s: %v", f, err)
		}
		if img.Bounds().Size() != image.Pt(31, 17) {
			t.Errorf("%s size = %v", f, img.Bounds().Size())
		}
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	pages := []image.Image{imaging.New(350, 248, red), imaging.New(100, 60, blue)}
	if err := WritePDF(&buf, pages, 300); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("output does not start with a PDF header: %q", buf.Bytes()[:min(buf.Len(), 16)])
	}
	if err := WritePDF(&buf, nil, 300); err == nil {
		t.Error("expected error for no pages")
	}
}

func TestFontFaces(t *testing.T) {
	f, err := DefaultFont()
	if err != nil {
		t.Fatalf("DefaultFont: %v", err)
	}
	small, err := f.Face(12)
	if err != nil {
		t.Fatal(err)
	}
	defer small.Close()
	big, err := f.Face(48)
	if err != nil {
		t.Fatal(err)
	}
	defer big.Close()
	if big.Metrics().Ascent <= small.Metrics().Ascent {
		t.Error("larger size should have a taller ascent")
	}
	if _, err := ParseFont([]byte("nope"), "bad"); err == nil {
		t.Error("expected parse error")
	}
}
