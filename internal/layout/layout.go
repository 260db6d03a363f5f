// Package layout holds the read-only configuration of a generation run: where
// each element goes on the template, how photos and QR codes are framed, which
// record columns feed each text label and how the output pages are gridded.
package layout

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	LabelPhoto    = "Photo"
	LabelQR       = "QR Code"
	LabelLogo     = "Logo"
	LabelValidity = "Validity"
)

type FrameStyle string

const (
	FrameCircle FrameStyle = "circle"
	FrameSquare FrameStyle = "square"
)

// Point is a position in template pixel space.
type Point struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

type Size struct {
	W int `yaml:"w" json:"w"`
	H int `yaml:"h" json:"h"`
}

type TargetKind int

const (
	TargetPhoto TargetKind = iota
	TargetQR
	TargetLogo
	TargetText
)

// Target identifies what is drawn at a coordinate.
type Target struct {
	Kind  TargetKind
	Label string
}

func (t Target) String() string {
	switch t.Kind {
	case TargetPhoto:
		return LabelPhoto
	case TargetQR:
		return LabelQR
	case TargetLogo:
		return LabelLogo
	}
	return t.Label
}

// TargetFor maps a coordinate label onto its target.
func TargetFor(label string) Target {
	switch label {
	case LabelPhoto:
		return Target{Kind: TargetPhoto, Label: label}
	case LabelQR:
		return Target{Kind: TargetQR, Label: label}
	case LabelLogo:
		return Target{Kind: TargetLogo, Label: label}
	}
	return Target{Kind: TargetText, Label: label}
}

type Placement struct {
	Target Target
	At     Point
}

// Coordinates keeps placements in the order they were declared.
type Coordinates []Placement

func (c Coordinates) Lookup(kind TargetKind) (Point, bool) {
	for _, p := range c {
		if p.Target.Kind == kind {
			return p.At, true
		}
	}
	return Point{}, false
}

// Set replaces the point of an existing label or appends a new placement.
func (c *Coordinates) Set(label string, at Point) {
	t := TargetFor(label)
	for i := range *c {
		if (*c)[i].Target == t {
			(*c)[i].At = at
			return
		}
	}
	*c = append(*c, Placement{Target: t, At: at})
}

// FieldSpec maps a text label to record columns. Text is printed when no
// column has a value, so a spec with only Text is a fixed header or footer.
type FieldSpec struct {
	Label    string   `yaml:"label"`
	Columns  []string `yaml:"columns,omitempty"`
	Text     string   `yaml:"text,omitempty"`
	FontSize float64  `yaml:"size,omitempty"`
	Color    *Color   `yaml:"color,omitempty"`
}

type PhotoStyle struct {
	Size        Size       `yaml:"size"`
	Frame       FrameStyle `yaml:"frame"`
	BorderWidth int        `yaml:"border_width"`
	BorderColor Color      `yaml:"border_color"`
}

type QRStyle struct {
	Size     Size     `yaml:"size"`
	Generate bool     `yaml:"generate"`
	Payload  []string `yaml:"payload"`
}

// LogoStyle is a fixed image drawn on every card, scaled to fit Size.
type LogoStyle struct {
	Path string `yaml:"path,omitempty"`
	Size Size   `yaml:"size"`
}

type FontStyle struct {
	Path  string  `yaml:"path,omitempty"`
	Size  float64 `yaml:"size"`
	Color Color   `yaml:"color"`
}

// PageStyle describes the sheets cards are packed onto.
type PageStyle struct {
	Width   int     `yaml:"width"`
	Height  int     `yaml:"height"`
	Cols    int     `yaml:"cols"`
	Rows    int     `yaml:"rows"`
	Padding int     `yaml:"padding"`
	DPI     float64 `yaml:"dpi"`
}

func (p PageStyle) PerPage() int { return p.Cols * p.Rows }

type Layout struct {
	// TemplateSize is the declared background size; zero means "whatever the
	// template decodes to".
	TemplateSize Size        `yaml:"template_size,omitempty"`
	Photo        PhotoStyle  `yaml:"photo"`
	QR           QRStyle     `yaml:"qr"`
	Logo         LogoStyle   `yaml:"logo"`
	Font         FontStyle   `yaml:"font"`
	Identifier   []string    `yaml:"identifier"`
	Coordinates  Coordinates `yaml:"coordinates"`
	Fields       []FieldSpec `yaml:"fields"`
	Page         PageStyle   `yaml:"page"`
}

// DefaultFields returns the stock label to column aliases.
func DefaultFields() []FieldSpec {
	return []FieldSpec{
		{Label: "Name", Columns: []string{"Name", "Full Name", "name"}},
		{Label: "Class", Columns: []string{"Class", "Grade"}},
		{Label: "Contact", Columns: []string{"Contact", "PhoneNumber", "Phone"}},
		{Label: "Address", Columns: []string{"Address"}},
		{Label: "Guardian", Columns: []string{"Guardian"}},
		{Label: LabelValidity, Columns: []string{"Validity", "Valid Till"}},
		{Label: "Roll No.", Columns: []string{"Roll No.", "RollNo", "Roll Number"}},
	}
}

func Default() Layout {
	return Layout{
		Photo: PhotoStyle{
			Size:        Size{W: 230, H: 230},
			Frame:       FrameCircle,
			BorderColor: Black,
		},
		QR: QRStyle{
			Size:    Size{W: 120, H: 120},
			Payload: []string{"Name", "Class"},
		},
		Logo: LogoStyle{
			Size: Size{W: 200, H: 80},
		},
		Font: FontStyle{
			Size:  20,
			Color: Black,
		},
		Identifier: []string{"ext_id", "id"},
		Fields:     DefaultFields(),
		Page: PageStyle{
			Width:   3508,
			Height:  2480,
			Cols:    5,
			Rows:    2,
			Padding: 20,
			DPI:     300,
		},
	}
}

// Parse decodes a YAML (or JSON) layout over the defaults and validates it.
func Parse(data []byte) (*Layout, error) {
	l := Default()
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	return Parse(data)
}

func (l *Layout) Marshal() ([]byte, error) {
	return yaml.Marshal(l)
}

// Field returns the FieldSpec for a text label.
func (l *Layout) Field(label string) (FieldSpec, bool) {
	for _, f := range l.Fields {
		if f.Label == label {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// TextPlacements returns text placements ordered top to bottom; equal rows
// keep declaration order.
func (l *Layout) TextPlacements() []Placement {
	var out []Placement
	for _, p := range l.Coordinates {
		if p.Target.Kind == TargetText {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Y < out[j].At.Y })
	return out
}

func (l *Layout) Validate() error {
	var errs []error
	if l.Photo.Size.W <= 0 || l.Photo.Size.H <= 0 {
		errs = append(errs, fmt.Errorf("photo size must be positive, got %dx%d", l.Photo.Size.W, l.Photo.Size.H))
	}
	if l.QR.Size.W <= 0 || l.QR.Size.H <= 0 {
		errs = append(errs, fmt.Errorf("qr size must be positive, got %dx%d", l.QR.Size.W, l.QR.Size.H))
	}
	if l.Logo.Size.W <= 0 || l.Logo.Size.H <= 0 {
		errs = append(errs, fmt.Errorf("logo size must be positive, got %dx%d", l.Logo.Size.W, l.Logo.Size.H))
	}
	switch l.Photo.Frame {
	case FrameCircle, FrameSquare:
	default:
		errs = append(errs, fmt.Errorf("unknown photo frame %q", l.Photo.Frame))
	}
	if l.Photo.BorderWidth < 0 {
		errs = append(errs, errors.New("photo border width must not be negative"))
	}
	if 2*l.Photo.BorderWidth >= min(l.Photo.Size.W, l.Photo.Size.H) && l.Photo.BorderWidth > 0 {
		errs = append(errs, fmt.Errorf("photo border width %d leaves no room for the photo", l.Photo.BorderWidth))
	}
	if l.Font.Size <= 0 {
		errs = append(errs, errors.New("font size must be positive"))
	}
	if len(l.Identifier) == 0 {
		errs = append(errs, errors.New("at least one identifier alias is required"))
	}
	if l.Page.Width <= 0 || l.Page.Height <= 0 || l.Page.Cols <= 0 || l.Page.Rows <= 0 {
		errs = append(errs, errors.New("page size and grid must be positive"))
	}
	if l.Page.Padding < 0 || 2*l.Page.Padding >= min(l.Page.Width/max(l.Page.Cols, 1), l.Page.Height/max(l.Page.Rows, 1)) {
		errs = append(errs, fmt.Errorf("page padding %d does not fit the grid slots", l.Page.Padding))
	}
	if l.Page.DPI <= 0 {
		errs = append(errs, errors.New("page dpi must be positive"))
	}

	seen := map[string]bool{}
	for _, f := range l.Fields {
		if strings.TrimSpace(f.Label) == "" {
			errs = append(errs, errors.New("field with empty label"))
			continue
		}
		if f.Label == LabelPhoto || f.Label == LabelQR || f.Label == LabelLogo {
			errs = append(errs, fmt.Errorf("field label %q is reserved", f.Label))
		}
		if seen[f.Label] {
			errs = append(errs, fmt.Errorf("duplicate field %q", f.Label))
		}
		seen[f.Label] = true
		if len(f.Columns) == 0 && f.Text == "" {
			errs = append(errs, fmt.Errorf("field %q has neither columns nor text", f.Label))
		}
		if f.FontSize < 0 {
			errs = append(errs, fmt.Errorf("field %q has a negative font size", f.Label))
		}
	}
	for _, p := range l.Coordinates {
		if p.Target.Kind == TargetText && !seen[p.Target.Label] {
			errs = append(errs, fmt.Errorf("coordinate for unknown label %q", p.Target.Label))
		}
	}
	return errors.Join(errs...)
}
