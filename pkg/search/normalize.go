package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/michaekong/memocloud/pkg/memoire"
)

// Fold lower-cases s and strips diacritics: "Étude" -> "etude".
// Fold is idempotent.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	// Lower-case first: some upper-case letters lower into base + combining mark.
	t := transform.Chain(
		runes.Map(unicode.ToLower),
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
	)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}

// Tokens folds a query and splits it on whitespace.
func Tokens(query string) []string {
	return strings.Fields(Fold(query))
}

// SearchText builds the folded search string of a record: title, summary,
// year, language, page count, domain tags, author and supervisor identity.
func SearchText(m *memoire.Memoire) string {
	parts := make([]string, 0, 12+len(m.Domains)+3*len(m.Supervisors))
	add := func(values ...string) {
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				parts = append(parts, v)
			}
		}
	}

	add(m.Title, m.Summary, m.Year.String(), m.Language, m.Pages.String())
	add(m.Domains...)
	if m.Author != nil {
		add(m.Author.LastName, m.Author.FirstName, m.Author.Email, m.Author.LinkedIn)
	}
	for _, s := range m.Supervisors {
		add(s.LastName, s.Email, s.LinkedIn)
	}

	return Fold(strings.Join(parts, " "))
}

// IsHome reports whether a record belongs to the home institution: true when
// the record lists no institution, or when any entry contains home.
func IsHome(institutions []string, home string) bool {
	if len(institutions) == 0 {
		return true
	}
	needle := Fold(home)
	for _, inst := range institutions {
		if strings.Contains(Fold(inst), needle) {
			return true
		}
	}
	return false
}

// Normalize attaches the search string and the home flag to a record.
func Normalize(m memoire.Memoire, home string) Document {
	return Document{
		Memoire:    m,
		SearchText: SearchText(&m),
		Home:       IsHome(m.Institutions, home),
	}
}
