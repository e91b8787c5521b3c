package splitter

import (
	"regexp"

	"github.com/Lllllllleong/posplitter/internal/models"
)

var (
	pagePattern = regexp.MustCompile(`Page\s*:\s*(\d+)\s*of\s*(\d+)`)
	poPattern   = regexp.MustCompile(`Purchase Order No\.:\s*(\d+)`)
)

// PageMarker is a "Page X of Y" occurrence. Current and Total keep the
// digits exactly as printed.
type PageMarker struct {
	Current string
	Total   string
}

// Closing reports whether the marker ends a sub-document. The comparison is
// textual: "7 of 07" does not close.
func (m PageMarker) Closing() bool {
	return m.Current == m.Total
}

// FindPageMarker returns the first "Page X of Y" marker in text.
func FindPageMarker(text string) (PageMarker, bool) {
	match := pagePattern.FindStringSubmatch(text)
	if match == nil {
		return PageMarker{}, false
	}
	return PageMarker{Current: match[1], Total: match[2]}, true
}

// IsClosingPage reports whether text carries a closing "Page N of N" marker.
// Only the first marker on the page counts.
func IsClosingPage(text string) bool {
	m, ok := FindPageMarker(text)
	return ok && m.Closing()
}

// FindPurchaseOrder returns the digits of the first "Purchase Order No.:"
// occurrence in text, leading zeros preserved.
func FindPurchaseOrder(text string) (string, bool) {
	match := poPattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// FirstPurchaseOrder searches pages in order and returns the first
// purchase order number found on any of them.
func FirstPurchaseOrder(pages []models.Page) (string, bool) {
	for _, p := range pages {
		if po, ok := FindPurchaseOrder(p.Text); ok {
			return po, true
		}
	}
	return "", false
}
