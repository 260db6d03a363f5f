package batch

import "fmt"

type Code string

const (
	CodeMissingIdentifier Code = "missing_identifier"
	CodeAssetMissing      Code = "asset_missing"
	CodeAssetUnreadable   Code = "asset_unreadable"
	CodeFieldUnresolved   Code = "field_unresolved"
	CodeDateParseFailure  Code = "date_parse_failure"
	CodeNoContentPlaced   Code = "no_content_placed"
	CodeCompositeFailed   Code = "composite_failed"
)

// Fatal reports whether the code cost the record its card.
func (c Code) Fatal() bool {
	switch c {
	case CodeMissingIdentifier, CodeNoContentPlaced, CodeCompositeFailed:
		return true
	}
	return false
}

// Diagnostic explains a skipped record or an omitted element. Row is the
// 1-based position of the record in the input.
type Diagnostic struct {
	Row     int    `json:"row"`
	ID      string `json:"id,omitempty"`
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	who := fmt.Sprintf("row %d", d.Row)
	if d.ID != "" {
		who += " (" + d.ID + ")"
	}
	return fmt.Sprintf("%s [%s] %s", who, d.Code, d.Message)
}
