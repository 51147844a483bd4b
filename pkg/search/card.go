package search

import (
	"strings"
	"unicode/utf8"
)

// Card is the presentation model of a record: everything a listing shows,
// with defaults applied and media paths resolved.
type Card struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Year        string   `json:"year"`
	Excerpt     string   `json:"excerpt"`
	Rating      float64  `json:"rating"`
	Badge       string   `json:"badge"`
	Downloads   int      `json:"downloads"`
	Likes       int      `json:"likes"`
	Comments    int      `json:"comments"`
	Liked       bool     `json:"liked"`
	Domains     []string `json:"domains,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	PDFURL      string   `json:"pdf_url,omitempty"`
	AuthorPhoto string   `json:"author_photo,omitempty"`
}

// Rating badges.
const (
	BadgeGold     = "gold"
	BadgeBlue     = "blue"
	BadgeStandard = "standard"
)

// NoSummary is shown in place of a missing summary.
const NoSummary = "Aucun résumé disponible."

// excerptLength bounds the card summary, in runes.
const excerptLength = 180

// NewCard maps a record to its card. mediaBase resolves relative asset paths.
func NewCard(d Document, mediaBase string) Card {
	rating := d.Rating()

	badge := BadgeStandard
	switch {
	case rating >= 4.5:
		badge = BadgeGold
	case rating >= 3.5:
		badge = BadgeBlue
	}

	excerpt := strings.TrimSpace(d.Summary)
	if excerpt == "" {
		excerpt = NoSummary
	} else if utf8.RuneCountInString(excerpt) > excerptLength {
		excerpt = string([]rune(excerpt)[:excerptLength]) + "..."
	}

	c := Card{
		ID:        d.ID,
		Title:     d.Title,
		Author:    d.AuthorName(),
		Year:      d.Year.String(),
		Excerpt:   excerpt,
		Rating:    rating,
		Badge:     badge,
		Downloads: d.Downloads,
		Likes:     d.Likes,
		Comments:  d.CommentCount,
		Liked:     d.Liked,
		Domains:   d.Domains,
		ImageURL:  MediaURL(mediaBase, d.Image),
		PDFURL:    MediaURL(mediaBase, d.PDF),
	}
	if d.Author != nil {
		c.AuthorPhoto = MediaURL(mediaBase, d.Author.Photo)
	}
	return c
}

// MediaURL resolves an asset path: absolute URLs pass through, relative
// paths are joined to base, empty paths stay empty.
func MediaURL(base, path string) string {
	switch {
	case path == "":
		return ""
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path
	default:
		return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	}
}
