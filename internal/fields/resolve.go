// Package fields turns a record's columns into the text drawn for a label.
package fields

import (
	"fmt"
	"strings"
	"time"

	"github.com/youruser/idcards/internal/layout"
	"github.com/youruser/idcards/internal/records"
)

type Kind int

const (
	Unresolved Kind = iota
	Resolved
	// Fallback carries usable text that could not be formatted as requested.
	Fallback
)

func (k Kind) String() string {
	switch k {
	case Resolved:
		return "resolved"
	case Fallback:
		return "fallback"
	}
	return "unresolved"
}

type Resolution struct {
	Kind Kind
	Text string
	// Column is empty when Text came from the spec rather than the record.
	Column string
	Reason string
}

func (r Resolution) Present() bool { return r.Kind != Unresolved }

// dateLayouts are tried in order when formatting validity dates.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
	"2006/01/02",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"02-Jan-2006",
	"2-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
}

// Resolve picks the first candidate column with a value, then the spec's fixed
// text. Validity labels are reformatted as YYYY-MM-DD when the value reads as
// a date.
func Resolve(rec records.Record, spec layout.FieldSpec) Resolution {
	for _, col := range spec.Columns {
		v, ok := rec[col]
		if !ok || records.Missing(v) {
			continue
		}
		if strings.EqualFold(spec.Label, layout.LabelValidity) {
			return resolveDate(col, v)
		}
		text, _ := records.Text(v)
		return Resolution{Kind: Resolved, Text: text, Column: col}
	}
	if spec.Text != "" {
		return Resolution{Kind: Resolved, Text: spec.Text}
	}
	return Resolution{
		Kind:   Unresolved,
		Reason: fmt.Sprintf("no value in columns %s", strings.Join(quoted(spec.Columns), ", ")),
	}
}

func resolveDate(col string, v any) Resolution {
	d, err := FormatDate(v)
	if err == nil {
		return Resolution{Kind: Resolved, Text: d, Column: col}
	}
	text, _ := records.Text(v)
	return Resolution{Kind: Fallback, Text: text, Column: col, Reason: err.Error()}
}

// FormatDate renders a date value as YYYY-MM-DD.
func FormatDate(v any) (string, error) {
	switch x := v.(type) {
	case time.Time:
		return x.Format(time.DateOnly), nil
	case string:
		s := strings.TrimSpace(x)
		for _, l := range dateLayouts {
			if t, err := time.Parse(l, s); err == nil {
				return t.Format(time.DateOnly), nil
			}
		}
		return "", fmt.Errorf("%q is not a recognised date", s)
	}
	return "", fmt.Errorf("%v (%T) is not a date", v, v)
}

func quoted(xs []string) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = fmt.Sprintf("%q", x)
	}
	return out
}
