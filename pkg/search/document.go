// Package search holds the client-side search core: the session corpus,
// the filter chain, and the pagination window over its result.
package search

import (
	"github.com/michaekong/memocloud/pkg/memoire"
)

// PageSize is the number of records per pagination window.
const PageSize = 12

// Document is a record with its precomputed search data.
type Document struct {
	memoire.Memoire

	// SearchText is the folded concatenation of the searchable fields.
	SearchText string `json:"-"`

	// Home marks records of the home institution.
	Home bool `json:"home_institution"`
}
