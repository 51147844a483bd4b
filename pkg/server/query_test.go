package server

import (
	"net/url"
	"testing"

	"github.com/michaekong/memocloud/pkg/search"
)

func TestParseQuery(t *testing.T) {
	q, _ := url.ParseQuery("q=pont&year=2021&domain=Génie+civil&rating=3.5&institution=home&summary=1&popular=true&commented=false&page=3")

	f, page, err := ParseQuery(q)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := search.DefaultFilters()
	want.Query = "pont"
	want.Year = "2021"
	want.Domain = "Génie civil"
	want.MinRating = 3.5
	want.Institution = search.InstitutionHome
	want.HasSummary = true
	want.Popular = true

	if f != want {
		t.Errorf("ParseQuery() = %+v, want %+v", f, want)
	}
	if page != 3 {
		t.Errorf("Expected page 3, got %d", page)
	}
}

func TestParseQuery_Defaults(t *testing.T) {
	f, page, err := ParseQuery(url.Values{})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f != search.DefaultFilters() {
		t.Errorf("Expected default filters, got %+v", f)
	}
	if page != 1 {
		t.Errorf("Expected page 1, got %d", page)
	}
}

func TestParseQuery_InstitutionAliases(t *testing.T) {
	q := url.Values{"institution": {"enstp"}}

	f, _, err := ParseQuery(q)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.Institution != search.InstitutionAny {
		t.Errorf("Expected unconfigured name to be ignored, got %q", f.Institution)
	}

	f, _, err = ParseQuery(q, "ENSTP", "ecole-des-travaux")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.Institution != search.InstitutionHome {
		t.Errorf("Expected configured name to select home, got %q", f.Institution)
	}
}
