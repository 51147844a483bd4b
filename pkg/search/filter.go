package search

import (
	"strings"
	"unicode/utf8"
)

// Institution selects home or other records.
type Institution string

const (
	// InstitutionAny disables the institution filter.
	InstitutionAny Institution = ""

	// InstitutionHome keeps records of the home institution.
	InstitutionHome Institution = "home"

	// InstitutionOther keeps records of other institutions.
	InstitutionOther Institution = "other"
)

// ParseInstitution maps user input to an Institution. Besides "home" and
// "other", the input may name the home institution through homeAliases
// (typically its configured name and university slug), compared with Fold.
// Unknown values disable the filter.
func ParseInstitution(s string, homeAliases ...string) Institution {
	v := Fold(strings.TrimSpace(s))
	switch v {
	case "":
		return InstitutionAny
	case "home", "local":
		return InstitutionHome
	case "other", "autre":
		return InstitutionOther
	}
	for _, alias := range homeAliases {
		if a := Fold(strings.TrimSpace(alias)); a != "" && a == v {
			return InstitutionHome
		}
	}
	return InstitutionAny
}

// Thresholds of the quick toggles.
const (
	MinSummaryLength  = 50
	PopularDownloads  = 10
	CommentedComments = 5
)

// DefaultSort is the server ordering used when none is given.
const DefaultSort = "-created_at"

// Filters is the filter state of a listing view.
type Filters struct {
	Query       string      `json:"q,omitempty"`
	Year        string      `json:"year,omitempty"`
	Domain      string      `json:"domain,omitempty"`
	Sort        string      `json:"sort,omitempty"`
	MinRating   float64     `json:"rating,omitempty"`
	Institution Institution `json:"institution,omitempty"`
	HasSummary  bool        `json:"has_summary,omitempty"`
	Popular     bool        `json:"popular,omitempty"`
	Commented   bool        `json:"commented,omitempty"`
}

// DefaultFilters returns the initial filter state.
func DefaultFilters() Filters {
	return Filters{Sort: DefaultSort}
}

// Reset restores the default state.
func (f *Filters) Reset() {
	*f = DefaultFilters()
}

type predicate func(d *Document) bool

// predicates returns the active predicates of f. Order does not matter.
func (f Filters) predicates() []predicate {
	var preds []predicate

	if tokens := Tokens(f.Query); len(tokens) > 0 {
		preds = append(preds, func(d *Document) bool {
			for _, tok := range tokens {
				if !strings.Contains(d.SearchText, tok) {
					return false
				}
			}
			return true
		})
	}
	if f.Year != "" {
		year := strings.TrimSpace(f.Year)
		preds = append(preds, func(d *Document) bool {
			return d.Year.String() == year
		})
	}
	if f.Domain != "" {
		preds = append(preds, func(d *Document) bool {
			return d.HasDomain(f.Domain)
		})
	}
	if f.MinRating > 0 {
		preds = append(preds, func(d *Document) bool {
			return d.Rating() >= f.MinRating
		})
	}
	switch f.Institution {
	case InstitutionHome:
		preds = append(preds, func(d *Document) bool { return d.Home })
	case InstitutionOther:
		preds = append(preds, func(d *Document) bool { return !d.Home })
	}
	if f.HasSummary {
		preds = append(preds, func(d *Document) bool {
			return utf8.RuneCountInString(d.Summary) > MinSummaryLength
		})
	}
	if f.Popular {
		preds = append(preds, func(d *Document) bool {
			return d.Downloads >= PopularDownloads
		})
	}
	if f.Commented {
		preds = append(preds, func(d *Document) bool {
			return d.CommentCount >= CommentedComments
		})
	}

	return preds
}

// Apply returns the documents matching every active filter, in input order.
// With no active filter the input slice itself is returned.
func Apply(docs []Document, f Filters) []Document {
	preds := f.predicates()
	if len(preds) == 0 {
		return docs
	}

	out := make([]Document, 0, len(docs))
next:
	for i := range docs {
		for _, p := range preds {
			if !p(&docs[i]) {
				continue next
			}
		}
		out = append(out, docs[i])
	}
	return out
}
