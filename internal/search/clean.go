package search

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// plainText reduces an HTML snippet to its visible text with whitespace
// collapsed. Brave highlights matches with <strong> and escapes entities.
func plainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
