package batch

import (
	"fmt"
	"strings"
)

// Summary renders the result as a plain-text report.
func (r *Result) Summary() string {
	lines := []string{
		"Generation summary",
		fmt.Sprintf("  records:    %d", r.Total),
		fmt.Sprintf("  successful: %d", r.Successes),
		fmt.Sprintf("  failed:     %d", r.Failures),
	}
	if len(r.Pages) > 0 {
		lines = append(lines, fmt.Sprintf("  pages:      %d", len(r.Pages)))
	}
	if r.Interrupted {
		lines = append(lines, fmt.Sprintf("  interrupted after %d of %d records", r.Successes+r.Failures, r.Total))
	}
	var failed, omitted []string
	for _, d := range r.Diagnostics {
		if d.Code.Fatal() {
			failed = append(failed, "  "+d.String())
		} else {
			omitted = append(omitted, "  "+d.String())
		}
	}
	if len(failed) > 0 {
		lines = append(lines, "", "Failed records")
		lines = append(lines, failed...)
	}
	if len(omitted) > 0 {
		lines = append(lines, "", "Omissions")
		lines = append(lines, omitted...)
	}
	return strings.Join(lines, "\n")
}

// Report is the JSON form of a result, without images.
type Report struct {
	Total       int          `json:"total"`
	Successes   int          `json:"successes"`
	Failures    int          `json:"failures"`
	Pages       int          `json:"pages"`
	Interrupted bool         `json:"interrupted"`
	Cards       []string     `json:"cards"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

func (r *Result) Report() Report {
	rep := Report{
		Total:       r.Total,
		Successes:   r.Successes,
		Failures:    r.Failures,
		Pages:       len(r.Pages),
		Interrupted: r.Interrupted,
		Cards:       []string{},
		Diagnostics: r.Diagnostics,
	}
	for _, c := range r.Cards {
		rep.Cards = append(rep.Cards, c.ID)
	}
	if rep.Diagnostics == nil {
		rep.Diagnostics = []Diagnostic{}
	}
	return rep
}
