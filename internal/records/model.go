package records

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Record is one spreadsheet row keyed by column name.
type Record map[string]any

// Identifier finds the first key matching one of aliases (case-insensitive)
// whose value is usable. Aliases are tried in order.
func (r Record) Identifier(aliases []string) (key, value string, ok bool) {
	for _, alias := range aliases {
		for _, k := range slices.Sorted(maps.Keys(r)) {
			if !strings.EqualFold(k, alias) {
				continue
			}
			if s, present := Text(r[k]); present {
				return k, strings.TrimSpace(s), true
			}
		}
	}
	return "", "", false
}

// Missing reports whether v carries no value: nil, NaN or blank text.
func Missing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case json.Number:
		return strings.TrimSpace(x.String()) == ""
	case time.Time:
		return x.IsZero()
	}
	return false
}

// Text renders v as it should appear on a card. Strings are kept verbatim;
// integral numbers lose any fractional suffix so 12.0 prints as 12.
func Text(v any) (string, bool) {
	if Missing(v) {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return formatFloat(x), true
	case float32:
		return formatFloat(float64(x)), true
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		if f, err := x.Float64(); err == nil {
			return formatFloat(f), true
		}
		return x.String(), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return x.Format(time.DateOnly), true
	case fmt.Stringer:
		return x.String(), true
	}
	return fmt.Sprint(v), true
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
