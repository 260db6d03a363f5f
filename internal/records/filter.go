package records

import "strings"

type SelectOptions struct {
	// IDs keeps only records whose identifier is listed (case-insensitive).
	IDs []string
	// FreeWords keeps records where every word appears in some value.
	FreeWords string
	Aliases   []string
}

func containsAny(hay []string, needles []string) bool {
	for _, n := range needles {
		for _, h := range hay {
			if strings.EqualFold(h, n) {
				return true
			}
		}
	}
	return false
}

// Select narrows recs to the ones matching opt, preserving order. An empty
// option set returns recs unchanged.
func Select(recs []Record, opt SelectOptions) []Record {
	if len(opt.IDs) == 0 && strings.TrimSpace(opt.FreeWords) == "" {
		return recs
	}
	var out []Record
	for _, r := range recs {
		if len(opt.IDs) > 0 {
			_, id, ok := r.Identifier(opt.Aliases)
			if !ok || !containsAny([]string{id}, opt.IDs) {
				continue
			}
		}
		if opt.FreeWords != "" {
			var values []string
			for _, v := range r {
				if s, ok := Text(v); ok {
					values = append(values, strings.ToLower(s))
				}
			}
			joined := strings.Join(values, "\x00")
			ok := true
			for _, k := range strings.Fields(opt.FreeWords) {
				if !strings.Contains(joined, strings.ToLower(k)) {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}
