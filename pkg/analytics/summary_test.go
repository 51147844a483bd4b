package analytics

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michaekong/memocloud/pkg/memoire"
	"github.com/michaekong/memocloud/pkg/search"
)

func rating(r float64) *float64 { return &r }

func doc(id int, mutate func(*memoire.Memoire)) search.Document {
	m := memoire.Memoire{ID: id, Title: "Mémoire " + strconv.Itoa(id)}
	if mutate != nil {
		mutate(&m)
	}
	return search.Document{Memoire: m}
}

var (
	civil = memoire.Domain{Name: "Génie civil", Slug: "genie-civil"}
	info  = memoire.Domain{Name: "Informatique", Slug: "informatique"}
	droit = memoire.Domain{Name: "Droit", Slug: "droit"}
)

func fixture() []search.Document {
	monday := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	return []search.Document{
		doc(1, func(m *memoire.Memoire) {
			m.Downloads, m.Likes, m.CommentCount, m.Views = 40, 3, 1, 200
			m.AverageRating = rating(4.6)
			m.Domains = []string{"genie-civil"}
			m.Author = &memoire.Person{LastName: "Kong"}
			m.CreatedAt = &monday
		}),
		doc(2, func(m *memoire.Memoire) {
			m.Downloads, m.Likes, m.CommentCount, m.Views = 10, 8, 6, 100
			m.AverageRating = rating(2.4)
			m.Domains = []string{"Informatique"}
			m.Author = &memoire.Person{FullName: "Awa Diallo"}
			m.CreatedAt = &monday
		}),
		doc(3, func(m *memoire.Memoire) {
			m.Likes = 2
			m.Author = &memoire.Person{LastName: "Kong"}
		}),
		doc(4, func(m *memoire.Memoire) {
			m.Likes = 1
			m.Domains = []string{"chimie"}
		}),
	}
}

func TestSummarize_Totals(t *testing.T) {
	s := Summarize(fixture(), nil)

	assert.Equal(t, 4, s.Totals.Records)
	assert.Equal(t, 50, s.Totals.Downloads)
	assert.Equal(t, 14, s.Totals.Likes)
	assert.Equal(t, 7, s.Totals.Comments)
	assert.Equal(t, 300, s.Totals.Views)
	assert.InDelta(t, 3.5, s.Totals.AverageRating, 1e-9)
	assert.InDelta(t, 50.0/300*100, s.Totals.ConversionRate, 1e-9)
}

func TestSummarize_ConversionWithoutViews(t *testing.T) {
	docs := []search.Document{doc(1, func(m *memoire.Memoire) { m.Downloads = 4 })}
	s := Summarize(docs, nil)
	assert.InDelta(t, 20.0, s.Totals.ConversionRate, 1e-9)

	empty := Summarize(nil, nil)
	assert.Zero(t, empty.Totals.ConversionRate)
	assert.Zero(t, empty.Totals.AverageRating)
}

func TestSummarize_Rankings(t *testing.T) {
	s := Summarize(fixture(), nil)

	require.Len(t, s.TopDownloads, 4)
	assert.Equal(t, 1, s.TopDownloads[0].ID)
	assert.Equal(t, 2, s.TopDownloads[1].ID)
	// Ties keep corpus order.
	assert.Equal(t, 3, s.TopDownloads[2].ID)
	assert.Equal(t, 4, s.TopDownloads[3].ID)

	assert.Equal(t, 2, s.TopLikes[0].ID)
	assert.Equal(t, 2, s.TopComments[0].ID)

	// doc 1: 3 + 2 + 20 = 25, doc 2: 8 + 12 + 5 = 25.
	assert.Equal(t, 1, s.TopViral[0].ID)
	assert.InDelta(t, 25.0, s.TopViral[0].Value, 1e-9)
}

func TestSummarize_RankingsCapped(t *testing.T) {
	docs := make([]search.Document, 0, 25)
	for i := 1; i <= 25; i++ {
		docs = append(docs, doc(i, func(m *memoire.Memoire) { m.Downloads = i }))
	}
	s := Summarize(docs, nil)

	require.Len(t, s.TopDownloads, TopN)
	assert.Equal(t, 25, s.TopDownloads[0].ID)
	assert.Equal(t, 16, s.TopDownloads[TopN-1].ID)
}

func TestSummarize_RatingViews(t *testing.T) {
	s := Summarize(fixture(), nil)

	assert.Equal(t, [5]int{0, 1, 0, 0, 1}, s.RatingStars)
	assert.Equal(t, []Count{
		{Label: "0-1", Value: 3},
		{Label: "1-2", Value: 0},
		{Label: "2-3", Value: 8},
		{Label: "3-4", Value: 0},
		{Label: "4-5", Value: 3},
	}, s.LikesByRating)
}

func TestSummarize_Authors(t *testing.T) {
	s := Summarize(fixture(), nil)

	assert.Equal(t, []Count{
		{Label: "Kong", Value: 2},
		{Label: "Awa Diallo", Value: 1},
		{Label: memoire.UnknownAuthor, Value: 1},
	}, s.TopAuthors)
}

func TestSummarize_Weekday(t *testing.T) {
	s := Summarize(fixture(), nil)

	assert.Equal(t, 2, s.Weekday[time.Monday])
	total := 0
	for _, n := range s.Weekday {
		total += n
	}
	assert.Equal(t, 2, total)
	assert.Equal(t, "Lun", WeekdayLabel(time.Monday))
}

func TestSummarize_Domains(t *testing.T) {
	s := Summarize(fixture(), []memoire.Domain{civil, info, droit})

	assert.Equal(t, []Count{
		{Label: "Génie civil", Value: 1},
		{Label: "Informatique", Value: 1},
	}, s.Domains)

	assert.Equal(t, []Count{
		{Label: "Génie civil", Value: 3},
		{Label: "Informatique", Value: 8},
		{Label: OtherDomain, Value: 3},
	}, s.LikesByDomain)

	require.Len(t, s.DomainPerformance, 3)
	assert.Equal(t, DomainPerformance{Domain: "Génie civil", Likes: 3, Downloads: 40}, s.DomainPerformance[0])
	assert.Equal(t, DomainPerformance{Domain: "Droit"}, s.DomainPerformance[2])
}

func TestSummarize_NoDomains(t *testing.T) {
	s := Summarize(fixture(), nil)
	assert.Empty(t, s.Domains)
	assert.Empty(t, s.DomainPerformance)
	assert.Equal(t, []Count{{Label: OtherDomain, Value: 14}}, s.LikesByDomain)
}
