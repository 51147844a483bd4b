// Package analytics computes the dashboard aggregates over a built corpus.
//
// Every figure is derived from the records already in memory; nothing here
// performs I/O. Rankings are stable: ties keep corpus order.
package analytics

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/michaekong/memocloud/pkg/memoire"
	"github.com/michaekong/memocloud/pkg/search"
)

// TopN is the length of every ranking.
const TopN = 10

// RadarDomains is how many domains the per-domain performance covers.
const RadarDomains = 6

// OtherDomain labels likes on records with no known domain.
const OtherDomain = "Autre"

// Totals are the headline counters.
type Totals struct {
	Records   int `json:"records"`
	Downloads int `json:"downloads"`
	Likes     int `json:"likes"`
	Comments  int `json:"comments"`
	Views     int `json:"views"`

	// AverageRating is the mean of the ratings that are present, 0 when none are.
	AverageRating float64 `json:"average_rating"`

	// ConversionRate is downloads per hundred views. When no views are
	// recorded, views are estimated as five per download.
	ConversionRate float64 `json:"conversion_rate"`
}

// Ranked is one entry of a top-N ranking.
type Ranked struct {
	ID    int     `json:"id"`
	Title string  `json:"title"`
	Value float64 `json:"value"`
}

// Count is a labelled counter.
type Count struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// DomainPerformance aggregates engagement over the records of one domain.
type DomainPerformance struct {
	Domain    string `json:"domain"`
	Likes     int    `json:"likes"`
	Downloads int    `json:"downloads"`
}

// Summary is the full dashboard.
type Summary struct {
	Totals            Totals              `json:"totals"`
	TopDownloads      []Ranked            `json:"top_downloads"`
	TopLikes          []Ranked            `json:"top_likes"`
	TopComments       []Ranked            `json:"top_comments"`
	TopViral          []Ranked            `json:"top_viral"`
	LikesByRating     []Count             `json:"likes_by_rating"`
	RatingStars       [5]int              `json:"rating_stars"`
	TopAuthors        []Count             `json:"top_authors"`
	Weekday           [7]int              `json:"weekday"`
	Domains           []Count             `json:"domains"`
	LikesByDomain     []Count             `json:"likes_by_domain"`
	DomainPerformance []DomainPerformance `json:"domain_performance"`
}

// Summarize computes the dashboard for docs. domains supplies the labels
// and ordering of the per-domain figures.
func Summarize(docs []search.Document, domains []memoire.Domain) Summary {
	s := Summary{
		Totals:        totals(docs),
		TopDownloads:  rank(docs, func(d *search.Document) float64 { return float64(d.Downloads) }),
		TopLikes:      rank(docs, func(d *search.Document) float64 { return float64(d.Likes) }),
		TopComments:   rank(docs, func(d *search.Document) float64 { return float64(d.CommentCount) }),
		TopViral:      rank(docs, ViralScore),
		LikesByRating: likesByRating(docs),
		TopAuthors:    topAuthors(docs),
	}

	for i := range docs {
		if n := int(math.Round(docs[i].Rating())); n >= 1 && n <= 5 {
			s.RatingStars[n-1]++
		}
		// Records without a creation date are left out of the weekday view.
		if docs[i].CreatedAt != nil {
			s.Weekday[docs[i].CreatedAt.Weekday()]++
		}
	}

	s.Domains, s.LikesByDomain, s.DomainPerformance = byDomain(docs, domains)
	return s
}

// ViralScore weighs engagement: likes + 2×comments + downloads/2.
func ViralScore(d *search.Document) float64 {
	return float64(d.Likes) + float64(d.CommentCount)*2 + float64(d.Downloads)*0.5
}

// WeekdayLabel returns the short French label used for weekday buckets.
func WeekdayLabel(day time.Weekday) string {
	return [...]string{"Dim", "Lun", "Mar", "Mer", "Jeu", "Ven", "Sam"}[day]
}

func totals(docs []search.Document) Totals {
	var t Totals
	var ratingSum float64
	var rated int

	for i := range docs {
		d := &docs[i]
		t.Records++
		t.Downloads += d.Downloads
		t.Likes += d.Likes
		t.Comments += d.CommentCount
		t.Views += d.Views
		if d.AverageRating != nil {
			ratingSum += *d.AverageRating
			rated++
		}
	}

	if rated > 0 {
		t.AverageRating = ratingSum / float64(rated)
	}

	views := t.Views
	if views == 0 {
		views = t.Downloads * 5
	}
	if views > 0 {
		t.ConversionRate = float64(t.Downloads) / float64(views) * 100
	}
	return t
}

func rank(docs []search.Document, score func(*search.Document) float64) []Ranked {
	out := make([]Ranked, 0, len(docs))
	for i := range docs {
		out = append(out, Ranked{ID: docs[i].ID, Title: docs[i].Title, Value: score(&docs[i])})
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		return cmp.Compare(b.Value, a.Value)
	})
	if len(out) > TopN {
		out = out[:TopN]
	}
	return out
}

func likesByRating(docs []search.Document) []Count {
	buckets := []Count{{Label: "0-1"}, {Label: "1-2"}, {Label: "2-3"}, {Label: "3-4"}, {Label: "4-5"}}
	for i := range docs {
		band := int(docs[i].Rating())
		if band > 4 {
			band = 4
		}
		if band < 0 {
			band = 0
		}
		buckets[band].Value += docs[i].Likes
	}
	return buckets
}

func topAuthors(docs []search.Document) []Count {
	index := make(map[string]int)
	var counts []Count
	for i := range docs {
		name := authorName(&docs[i])
		pos, ok := index[name]
		if !ok {
			pos = len(counts)
			index[name] = pos
			counts = append(counts, Count{Label: name})
		}
		counts[pos].Value++
	}

	slices.SortStableFunc(counts, func(a, b Count) int {
		return cmp.Compare(b.Value, a.Value)
	})
	if len(counts) > TopN {
		counts = counts[:TopN]
	}
	return counts
}

func authorName(d *search.Document) string {
	if d.Author != nil {
		if d.Author.LastName != "" {
			return d.Author.LastName
		}
		if d.Author.FullName != "" {
			return d.Author.FullName
		}
	}
	return memoire.UnknownAuthor
}

// tagged reports whether the record carries the domain, by slug or by name.
func tagged(d *search.Document, domain memoire.Domain) bool {
	for _, tag := range d.Domains {
		if tag == domain.Slug || tag == domain.Name {
			return true
		}
	}
	return false
}

func byDomain(docs []search.Document, domains []memoire.Domain) (counts, likes []Count, perf []DomainPerformance) {
	counts = []Count{}
	likes = []Count{}
	perf = []DomainPerformance{}

	likeTotals := make([]int, len(domains))
	other := 0

	for i := range docs {
		d := &docs[i]
		if d.Likes == 0 {
			continue
		}
		if len(d.Domains) == 0 {
			other += d.Likes
			continue
		}
		for _, tag := range d.Domains {
			known := false
			for j, dom := range domains {
				if tag == dom.Slug || tag == dom.Name {
					likeTotals[j] += d.Likes
					known = true
					break
				}
			}
			if !known {
				other += d.Likes
			}
		}
	}

	for j, dom := range domains {
		var n, l, dl int
		for i := range docs {
			if tagged(&docs[i], dom) {
				n++
				l += docs[i].Likes
				dl += docs[i].Downloads
			}
		}
		if n > 0 {
			counts = append(counts, Count{Label: dom.Name, Value: n})
		}
		if likeTotals[j] > 0 {
			likes = append(likes, Count{Label: dom.Name, Value: likeTotals[j]})
		}
		if j < RadarDomains {
			perf = append(perf, DomainPerformance{Domain: dom.Name, Likes: l, Downloads: dl})
		}
	}
	if other > 0 {
		likes = append(likes, Count{Label: OtherDomain, Value: other})
	}
	return counts, likes, perf
}
