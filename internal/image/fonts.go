package imagepkg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/youruser/idcards/internal/layout"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontSource holds parsed font data. Faces are not safe for concurrent use,
// so each caller asks for its own.
type FontSource struct {
	Name string
	font *opentype.Font
}

func DefaultFont() (*FontSource, error) {
	return ParseFont(goregular.TTF, "Go Regular")
}

func LoadFont(path string) (*FontSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	return ParseFont(data, filepath.Base(path))
}

func ParseFont(data []byte, name string) (*FontSource, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}
	return &FontSource{Name: name, font: f}, nil
}

// Face returns a new face at size pixels (72 DPI, so points equal pixels).
func (f *FontSource) Face(size float64) (font.Face, error) {
	return opentype.NewFace(f.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// ResolveFont picks the first of override, the layout's font path and the
// built-in face.
func ResolveFont(l *layout.Layout, override string) (*FontSource, error) {
	path := override
	if path == "" && l != nil {
		path = l.Font.Path
	}
	if path == "" {
		return DefaultFont()
	}
	return LoadFont(path)
}
