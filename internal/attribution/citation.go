package attribution

import (
	"fmt"
	"strings"
)

// renderCitationText formats a reference for one source in the requested
// style. Every style includes the source name and, when known, the page
// reference; the differences are limited to punctuation conventions.
func renderCitationText(sourceFile string, page *int, style CitationStyle) string {
	var b strings.Builder

	switch style {
	case StyleMLA:
		b.WriteString(sourceFile)
		if page != nil {
			fmt.Fprintf(&b, ", p. %d", *page)
		}
		b.WriteString(".")
	case StyleChicago:
		b.WriteString(sourceFile)
		if page != nil {
			fmt.Fprintf(&b, ", %d", *page)
		}
		b.WriteString(".")
	case StyleIEEE:
		b.WriteString("[")
		b.WriteString(sourceFile)
		b.WriteString("]")
		if page != nil {
			fmt.Fprintf(&b, ", p. %d", *page)
		}
	default: // APA
		b.WriteString(sourceFile)
		b.WriteString(" (n.d.)")
		if page != nil {
			fmt.Fprintf(&b, ", p. %d", *page)
		}
		b.WriteString(".")
	}

	return b.String()
}
