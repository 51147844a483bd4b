package memoire

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexString_Unmarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want FlexString
	}{
		{name: "number", raw: `2021`, want: "2021"},
		{name: "string", raw: `"2021"`, want: "2021"},
		{name: "null", raw: `null`, want: ""},
		{name: "bool kept raw", raw: `true`, want: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got struct {
				V FlexString `json:"v"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"v":`+tt.raw+`}`), &got))
			assert.Equal(t, tt.want, got.V)
		})
	}
}

func TestFlexNumbers(t *testing.T) {
	tests := []struct {
		raw       string
		wantInt   FlexInt
		wantFloat FlexFloat
	}{
		{raw: `12`, wantInt: 12, wantFloat: 12},
		{raw: `"12"`, wantInt: 12, wantFloat: 12},
		{raw: `"4.50"`, wantInt: 4, wantFloat: 4.5},
		{raw: `"3,5"`, wantInt: 3, wantFloat: 3.5},
		{raw: `" 7 "`, wantInt: 7, wantFloat: 7},
		{raw: `null`},
		{raw: `""`},
		{raw: `"NaN"`},
		{raw: `true`},
		{raw: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var got struct {
				I FlexInt   `json:"i"`
				F FlexFloat `json:"f"`
			}
			require.NoError(t, json.Unmarshal([]byte(`{"i":`+tt.raw+`,"f":`+tt.raw+`}`), &got))
			assert.Equal(t, tt.wantInt, got.I)
			assert.Equal(t, tt.wantFloat, got.F)
		})
	}
}

func TestMemoire_Defaults(t *testing.T) {
	var m Memoire
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 7,
		"titre": "Pont",
		"annee": 2021,
		"nombre_pages": "120",
		"note_moyenne": null,
		"auteur": null,
		"domaines_list": null
	}`), &m))

	assert.Equal(t, 7, m.ID)
	assert.Equal(t, FlexString("2021"), m.Year)
	assert.Equal(t, 120, m.Pages.Int())
	assert.Zero(t, m.Rating())
	assert.Equal(t, UnknownAuthor, m.AuthorName())
	assert.False(t, m.HasDomain("Génie civil"))
}

func TestDecodePage(t *testing.T) {
	t.Run("envelope with next", func(t *testing.T) {
		page, err := DecodePage([]byte(`{"results":[{"id":1},{"id":2}],"next":"https://api/x?page=2"}`))
		require.NoError(t, err)
		assert.Len(t, page.Results, 2)
		assert.True(t, page.HasNext())
	})

	t.Run("envelope with null next", func(t *testing.T) {
		page, err := DecodePage([]byte(`{"results":[{"id":1}],"next":null}`))
		require.NoError(t, err)
		assert.False(t, page.HasNext())
	})

	t.Run("bare array", func(t *testing.T) {
		page, err := DecodePage([]byte(` [{"id":3}]`))
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.Equal(t, 3, page.Results[0].ID)
		assert.False(t, page.HasNext())
	})

	t.Run("decimal rating as string", func(t *testing.T) {
		page, err := DecodePage([]byte(`{"results":[{"id":1,"note_moyenne":"4.50"},{"id":2}],"next":"x"}`))
		require.NoError(t, err)
		require.Len(t, page.Results, 2)
		assert.InDelta(t, 4.5, page.Results[0].Rating(), 1e-9)
		require.NotNil(t, page.Results[0].AverageRating)
		assert.Nil(t, page.Results[1].AverageRating)
		assert.True(t, page.HasNext())
	})

	t.Run("counters as strings", func(t *testing.T) {
		page, err := DecodePage([]byte(`{"results":[{"id":"3","nb_telechargements":"12","nb_likes":"4","nb_commentaires":null,"nb_vues":"n/a"}],"next":null}`))
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		m := page.Results[0]
		assert.Equal(t, 3, m.ID)
		assert.Equal(t, 12, m.Downloads)
		assert.Equal(t, 4, m.Likes)
		assert.Zero(t, m.CommentCount)
		assert.Zero(t, m.Views)
	})

	t.Run("date-only created_at", func(t *testing.T) {
		page, err := DecodePage([]byte(`[{"id":1,"created_at":"2024-01-15","updated_at":"2024-01-16T08:30:00"}]`))
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		require.NotNil(t, page.Results[0].CreatedAt)
		assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), *page.Results[0].CreatedAt)
		require.NotNil(t, page.Results[0].UpdatedAt)
		assert.Equal(t, 8, page.Results[0].UpdatedAt.Hour())
	})

	t.Run("unparseable created_at", func(t *testing.T) {
		page, err := DecodePage([]byte(`[{"id":1,"created_at":"hier"},{"id":2,"created_at":12}]`))
		require.NoError(t, err)
		require.Len(t, page.Results, 2)
		assert.Nil(t, page.Results[0].CreatedAt)
		assert.Nil(t, page.Results[1].CreatedAt)
	})

	t.Run("author as bare id", func(t *testing.T) {
		page, err := DecodePage([]byte(`[{"id":1,"auteur":17,"encadreurs":["Dr X",{"nom":"Awa"}]}]`))
		require.NoError(t, err)
		require.Len(t, page.Results, 1)
		assert.Equal(t, UnknownAuthor, page.Results[0].AuthorName())
		require.Len(t, page.Results[0].Supervisors, 2)
		assert.Equal(t, "Awa", page.Results[0].Supervisors[1].DisplayName())
	})

	t.Run("one broken record keeps the rest", func(t *testing.T) {
		page, err := DecodePage([]byte(`{"results":[{"id":1},"oops",null,{"id":2,"titre":{"fr":"x"}},{"id":3}],"next":"x"}`))
		require.NoError(t, err)
		require.Len(t, page.Results, 2)
		assert.Equal(t, 1, page.Results[0].ID)
		assert.Equal(t, 3, page.Results[1].ID)
		assert.Equal(t, 3, page.Skipped)
		assert.True(t, page.HasNext())
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := DecodePage([]byte(`<html>`))
		assert.Error(t, err)
	})
}

func TestDomain_LinkedTo(t *testing.T) {
	d := Domain{Name: "Génie civil", Universities: []University{{Slug: "ecole-des-travaux"}}}
	assert.True(t, d.LinkedTo("ecole-des-travaux"))
	assert.False(t, d.LinkedTo("autre"))
}

func TestComment_AuthorName(t *testing.T) {
	assert.Equal(t, "Anonyme", Comment{}.AuthorName())
	assert.Equal(t, "Awa", Comment{User: &CommentAuthor{Name: "Awa"}}.AuthorName())
}
