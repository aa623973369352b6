package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Letters that do not decompose into a base letter plus a combining mark.
var foldReplacer = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "ø", "o", "œ", "oe", "ł", "l", "đ", "d", "ı", "i", "&", " and ",
)

// Generate creates a URL-friendly slug from the given name. Accented Latin
// letters are folded to ASCII.
//
// Examples:
//   - "JAWS Screen Reader" → "jaws-screen-reader"
//   - "Lecteur d'écran" → "lecteur-d-ecran"
//   - "Text & Speech" → "text-and-speech"
func Generate(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = foldReplacer.Replace(slug)
	slug = stripMarks(slug)

	// Runs of anything else collapse into a single hyphen.
	slug = slugRegexp.ReplaceAllString(slug, "-")

	return strings.Trim(slug, "-")
}

// WithSuffix appends suffix to the slug of name. An empty slug yields the
// suffix alone.
func WithSuffix(name, suffix string) string {
	base := Generate(name)
	switch {
	case base == "":
		return suffix
	case suffix == "":
		return base
	default:
		return base + "-" + suffix
	}
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
