package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Generate creates a URL-friendly slug from name. Accented Latin letters are
// folded to ASCII; every other run of non-alphanumerics becomes one hyphen.
//
//	"Banarasi Silk Sarée" -> "banarasi-silk-saree"
//	"  Hello   World! "   -> "hello-world"
func Generate(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		name,
	)
	if err != nil {
		folded = name
	}
	s := strings.ToLower(strings.TrimSpace(folded))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
