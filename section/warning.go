package section

import (
	"fmt"
	"strings"
)

// WarningCode identifies a recoverable condition met while parsing.
type WarningCode string

const (
	// NestedText is a BT inside an open text object.
	NestedText WarningCode = "nested-text"
	// UnmatchedEndText is an ET outside a text object.
	UnmatchedEndText WarningCode = "unmatched-end-text"
	// StackUnderflow is a Q with no open q.
	StackUnderflow WarningCode = "stack-underflow"
	// UnmatchedMarked is an EMC with no open BMC/BDC.
	UnmatchedMarked WarningCode = "unmatched-marked"
	// InterleavedScope is q/Q and BMC/EMC closing out of order.
	InterleavedScope WarningCode = "interleaved-scope"
	// UnbalancedAtEnd is a text object or scope still open at end of stream.
	UnbalancedAtEnd WarningCode = "unbalanced-at-end"
	// MalformedOperands is a known operator with unusable operands.
	MalformedOperands WarningCode = "malformed-operands"
	// DrawOutsideText is a text-showing operator outside BT/ET.
	DrawOutsideText WarningCode = "draw-outside-text"
	// UnresolvedResource is a Do whose name has no resource identifier.
	UnresolvedResource WarningCode = "unresolved-resource"
	// PageUnavailable is a page the document model could not supply.
	PageUnavailable WarningCode = "page-unavailable"
	// UnparsedContent is stream data that could not be tokenized. It is
	// kept as one raw instruction at the end of the page.
	UnparsedContent WarningCode = "unparsed-content"
	// LabelFailed is an image Object section that could not be labeled.
	LabelFailed WarningCode = "label-failed"
)

// Warning is a recoverable problem. Parsing never stops on one; the
// affected instructions are kept in the nearest section.
type Warning struct {
	Page    int
	Index   int // instruction index within the page, -1 if not tied to one
	Code    WarningCode
	Message string
}

// String formats the warning on one line.
func (w Warning) String() string {
	if w.Index < 0 {
		return fmt.Sprintf("page %d: %s: %s", w.Page, w.Code, w.Message)
	}
	return fmt.Sprintf("page %d, instruction %d: %s: %s", w.Page, w.Index, w.Code, w.Message)
}

// FormatWarnings renders warnings one per line.
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, w := range warnings {
		sb.WriteString(w.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
