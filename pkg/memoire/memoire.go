// Package memoire defines the wire types returned by the thesis repository API.
//
// The API is loose about numeric fields: a year may arrive as 2021 or "2021",
// a rating as 4.5 or "4.50", counters may be null, created_at may be a bare
// date. Decoding never fails on those shapes; absent values become zero
// values and accessors supply the defaults callers expect.
package memoire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// FlexString decodes a JSON string, number, or null into a string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode string: %w", err)
		}
		*f = FlexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// Booleans, objects: keep the raw text rather than failing the record.
		*f = FlexString(data)
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the underlying string.
func (f FlexString) String() string {
	return string(f)
}

// Int returns the value as an integer, or 0 when it is not numeric.
func (f FlexString) Int() int {
	n, ok := parseNumber([]byte(f))
	if !ok {
		return 0
	}
	return int(n)
}

// FlexInt decodes a JSON number, numeric string, or null into an int.
// Anything else decodes to 0.
type FlexInt int

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	n, _ := parseNumber(data)
	*f = FlexInt(n)
	return nil
}

// FlexFloat decodes a JSON number, numeric string ("4.50"), or null into a
// float64. Anything else decodes to 0.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	n, _ := parseNumber(data)
	*f = FlexFloat(n)
	return nil
}

// FlexTime decodes an RFC 3339 timestamp, a timestamp without zone, or a
// bare date. Null and unparseable values leave it unset.
type FlexTime struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexTime) UnmarshalJSON(data []byte) error {
	*f = FlexTime{}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*f = FlexTime{Time: t, Valid: true}
			return nil
		}
	}
	return nil
}

// Ptr returns the time, or nil when unset.
func (f FlexTime) Ptr() *time.Time {
	if !f.Valid {
		return nil
	}
	t := f.Time
	return &t
}

// parseNumber reads a JSON number or a string holding one. Quoted values
// may use a decimal comma. ok is false for null, empty and non-numeric input.
func parseNumber(data []byte) (float64, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false
	}
	text := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return 0, false
		}
		text = strings.Replace(strings.TrimSpace(text), ",", ".", 1)
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Person is an author or supervisor.
type Person struct {
	ID        int    `json:"id,omitempty"`
	LastName  string `json:"nom"`
	FirstName string `json:"prenom,omitempty"`
	Email     string `json:"email,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Photo     string `json:"photo_profil,omitempty"`
	FullName  string `json:"full_name,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler. A bare id or string in place
// of the object leaves the person empty.
func (p *Person) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*p = Person{}
		return nil
	}
	type plain Person
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		*p = Person{}
		return nil
	}
	*p = Person(v)
	return nil
}

// DisplayName returns the best available name for the person.
func (p *Person) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.LastName != "" {
		return p.LastName
	}
	return p.FullName
}

// Memoire is one thesis record as returned by the listing endpoint.
type Memoire struct {
	ID            int        `json:"id"`
	Title         string     `json:"titre"`
	Summary       string     `json:"resume"`
	Year          FlexString `json:"annee"`
	Language      string     `json:"langue"`
	Pages         FlexString `json:"nombre_pages"`
	FileSize      FlexString `json:"taille_fichier"`
	Domains       []string   `json:"domaines_list"`
	Institutions  []string   `json:"universites_list"`
	Author        *Person    `json:"auteur"`
	Supervisors   []Person   `json:"encadreurs"`
	Downloads     int        `json:"nb_telechargements"`
	Likes         int        `json:"nb_likes"`
	CommentCount  int        `json:"nb_commentaires"`
	Views         int        `json:"nb_vues"`
	AverageRating *float64   `json:"note_moyenne"`
	Liked         bool       `json:"is_liked"`
	Confidential  bool       `json:"confidentiel"`
	CreatedAt     *time.Time `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
	Image         string     `json:"images"`
	PDF           string     `json:"pdf_url"`
}

// UnmarshalJSON implements json.Unmarshaler. Counters, the rating and the
// timestamps are read leniently: a string where a number belongs, or a date
// without a time, is coerced rather than failing the record.
func (m *Memoire) UnmarshalJSON(data []byte) error {
	type plain Memoire
	aux := struct {
		*plain
		ID            FlexInt         `json:"id"`
		Downloads     FlexInt         `json:"nb_telechargements"`
		Likes         FlexInt         `json:"nb_likes"`
		CommentCount  FlexInt         `json:"nb_commentaires"`
		Views         FlexInt         `json:"nb_vues"`
		AverageRating json.RawMessage `json:"note_moyenne"`
		CreatedAt     FlexTime        `json:"created_at"`
		UpdatedAt     FlexTime        `json:"updated_at"`
	}{plain: (*plain)(m)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}

	m.ID = int(aux.ID)
	m.Downloads = int(aux.Downloads)
	m.Likes = int(aux.Likes)
	m.CommentCount = int(aux.CommentCount)
	m.Views = int(aux.Views)
	m.AverageRating = nil
	if r, ok := parseNumber(aux.AverageRating); ok {
		m.AverageRating = &r
	}
	m.CreatedAt = aux.CreatedAt.Ptr()
	m.UpdatedAt = aux.UpdatedAt.Ptr()
	return nil
}

// Rating returns the average rating, 0 when the record has none.
func (m *Memoire) Rating() float64 {
	if m.AverageRating == nil {
		return 0
	}
	return *m.AverageRating
}

// AuthorName returns the author's display name or "Inconnu".
func (m *Memoire) AuthorName() string {
	if name := m.Author.DisplayName(); name != "" {
		return name
	}
	return UnknownAuthor
}

// UnknownAuthor is shown when a record has no usable author.
const UnknownAuthor = "Inconnu"

// HasDomain reports whether the record is tagged with domain.
func (m *Memoire) HasDomain(domain string) bool {
	for _, d := range m.Domains {
		if d == domain {
			return true
		}
	}
	return false
}

// Page is one page of the listing endpoint.
type Page struct {
	Results []Memoire
	Next    string
	// Skipped counts records that could not be decoded at all.
	Skipped int
}

// HasNext reports whether the server advertised a further page.
func (p Page) HasNext() bool {
	return p.Next != ""
}

// DecodePage decodes either a paginated envelope {results, next} or a bare array.
// A bare array never has a next page. Records are decoded one by one; one
// that is not a JSON object is counted in Skipped instead of failing the page.
func DecodePage(data []byte) (Page, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return Page{}, fmt.Errorf("decode listing array: %w", err)
		}
		page := Page{}
		page.Results, page.Skipped = decodeRecords(raw)
		return page, nil
	}

	var envelope struct {
		Results []json.RawMessage `json:"results"`
		Next    *string           `json:"next"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Page{}, fmt.Errorf("decode listing page: %w", err)
	}

	page := Page{}
	page.Results, page.Skipped = decodeRecords(envelope.Results)
	if envelope.Next != nil {
		page.Next = *envelope.Next
	}
	return page, nil
}

func decodeRecords(raw []json.RawMessage) ([]Memoire, int) {
	items := make([]Memoire, 0, len(raw))
	skipped := 0
	for _, r := range raw {
		if len(bytes.TrimSpace(r)) == 0 || bytes.Equal(bytes.TrimSpace(r), []byte("null")) {
			skipped++
			continue
		}
		var m Memoire
		if err := json.Unmarshal(r, &m); err != nil {
			skipped++
			continue
		}
		items = append(items, m)
	}
	return items, skipped
}

// Stats are the aggregate counters of the hero display.
type Stats struct {
	TotalMemoires  int     `json:"total_memoires"`
	TotalDownloads int     `json:"total_telechargements"`
	TotalLikes     int     `json:"total_likes"`
	AverageRating  float64 `json:"note_moyenne"`
}

// University is the short form embedded in a domain.
type University struct {
	ID      int    `json:"id,omitempty"`
	Name    string `json:"nom,omitempty"`
	Slug    string `json:"slug"`
	Acronym string `json:"acronyme,omitempty"`
}

// Domain is a research domain tag.
type Domain struct {
	ID           int          `json:"id,omitempty"`
	Name         string       `json:"nom"`
	Slug         string       `json:"slug"`
	Universities []University `json:"universites"`
}

// LinkedTo reports whether the domain is attached to the given university slug.
func (d Domain) LinkedTo(slug string) bool {
	for _, u := range d.Universities {
		if u.Slug == slug {
			return true
		}
	}
	return false
}

// CommentAuthor is the user attached to a comment.
type CommentAuthor struct {
	ID    int    `json:"id"`
	Name  string `json:"nom"`
	Photo string `json:"photo_profil"`
}

// Comment is one entry of a record's discussion.
type Comment struct {
	Content string         `json:"contenu"`
	Date    string         `json:"date"`
	User    *CommentAuthor `json:"utilisateur"`
}

// AuthorName returns the commenter's name or "Anonyme".
func (c Comment) AuthorName() string {
	if c.User == nil || c.User.Name == "" {
		return "Anonyme"
	}
	return c.User.Name
}

// Profile is the authenticated user as returned by /auth/me/.
type Profile struct {
	ID       int    `json:"id"`
	Name     string `json:"nom"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Interaction is an entry of the user's downloads or likes lists.
type Interaction struct {
	MemoireID    int    `json:"memoire,omitempty"`
	MemoireTitle string `json:"memoire_titre"`
	Date         string `json:"date,omitempty"`
}

// Tokens is the JWT pair returned by /auth/login/.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// Registration is the sign-up form sent to /auth/register/.
type Registration struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8"`
	Username  string `json:"username,omitempty" validate:"omitempty,max=150"`
	LastName  string `json:"nom,omitempty"`
	FirstName string `json:"prenom,omitempty"`
}
