package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/michaekong/memocloud/pkg/search"
)

// ParseQuery maps gateway query parameters onto filters and a page number.
// Missing parameters keep their defaults; page defaults to 1. homeAliases
// are extra names accepted for institution=home.
func ParseQuery(q url.Values, homeAliases ...string) (search.Filters, int, error) {
	f := search.DefaultFilters()
	f.Query = q.Get("q")
	f.Year = strings.TrimSpace(q.Get("year"))
	f.Domain = q.Get("domain")
	f.Institution = search.ParseInstitution(q.Get("institution"), homeAliases...)

	if v := q.Get("rating"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil || r < 0 || r > 5 {
			return f, 0, fmt.Errorf("invalid rating %q", v)
		}
		f.MinRating = r
	}

	var err error
	if f.HasSummary, err = parseFlag(q, "summary"); err != nil {
		return f, 0, err
	}
	if f.Popular, err = parseFlag(q, "popular"); err != nil {
		return f, 0, err
	}
	if f.Commented, err = parseFlag(q, "commented"); err != nil {
		return f, 0, err
	}

	page := 1
	if v := q.Get("page"); v != "" {
		page, err = strconv.Atoi(v)
		if err != nil || page < 1 {
			return f, 0, fmt.Errorf("invalid page %q", v)
		}
	}
	return f, page, nil
}

func parseFlag(q url.Values, key string) (bool, error) {
	v := q.Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, v)
	}
	return b, nil
}
