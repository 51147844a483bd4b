package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michaekong/memocloud/pkg/search"
)

type searchOptions struct {
	year        string
	domain      string
	rating      float64
	institution string
	summary     bool
	popular     bool
	commented   bool
	pages       int
	all         bool
	json        bool
}

func (o searchOptions) filters(query string, homeAliases ...string) search.Filters {
	f := search.DefaultFilters()
	f.Query = query
	f.Year = o.year
	f.Domain = o.domain
	f.MinRating = o.rating
	f.Institution = search.ParseInstitution(o.institution, homeAliases...)
	f.HasSummary = o.summary
	f.Popular = o.popular
	f.Commented = o.commented
	return f
}

func newSearchCmd(c *cli) *cobra.Command {
	var o searchOptions

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search theses",
		Long: `Searches the full listing. Every word of the query must appear in the
title, summary, year, language, domains, author or supervisors.
Results come in windows of 12; use --pages or --all to see more.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.rating < 0 || o.rating > 5 {
				return fmt.Errorf("--rating must be between 0 and 5")
			}
			a := c.app
			apiCfg := a.Config().API
			res := a.Search(cmd.Context(), o.filters(strings.Join(args, " "), apiCfg.HomeInstitution, apiCfg.University))
			shown := res.Items

			for i := 1; o.all || i < o.pages; i++ {
				more, ok := a.LoadMore()
				if !ok {
					break
				}
				shown = append(shown, more.Items...)
				res = more
			}

			media := a.Config().API.MediaURL
			cards := make([]search.Card, 0, len(shown))
			for _, d := range shown {
				cards = append(cards, search.NewCard(d, media))
			}

			if o.json {
				return writeJSON(c.out(cmd), map[string]any{
					"items":      cards,
					"page":       res.Page,
					"total":      res.Total,
					"has_more":   res.HasMore,
					"incomplete": res.Incomplete,
				})
			}
			printCards(c.out(cmd), cards, res)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.year, "year", "y", "", "publication year")
	f.StringVarP(&o.domain, "domain", "d", "", "research domain")
	f.Float64VarP(&o.rating, "rating", "r", 0, "minimum average rating (0 disables)")
	f.StringVar(&o.institution, "institution", "", "home, other, or the home institution's name")
	f.BoolVar(&o.summary, "has-summary", false, "only theses with a real summary")
	f.BoolVar(&o.popular, "popular", false, "only theses with at least 10 downloads")
	f.BoolVar(&o.commented, "commented", false, "only theses with at least 5 comments")
	f.IntVarP(&o.pages, "pages", "p", 1, "number of 12-record windows to show")
	f.BoolVar(&o.all, "all", false, "show every matching thesis")
	f.BoolVar(&o.json, "json", false, "output results as JSON")
	f.String("sort", "", "server ordering applied when the listing is fetched (e.g. -created_at, titre)")
	bind(c.v, cmd, map[string]string{"corpus.ordering": "sort"})

	return cmd
}

func printCards(w io.Writer, cards []search.Card, res search.Result) {
	if len(cards) == 0 {
		fmt.Fprintln(w, "No theses found.")
	}
	for _, card := range cards {
		printCard(w, card)
	}

	fmt.Fprintf(w, "%d of %d shown", len(cards), res.Total)
	if res.HasMore {
		fmt.Fprint(w, " (more available: --pages N or --all)")
	}
	fmt.Fprintln(w)
	if res.Incomplete {
		fmt.Fprintln(w, "Warning: the listing could not be fetched completely; results may be incomplete.")
	}
}

func printCard(w io.Writer, card search.Card) {
	fmt.Fprintf(w, "[%d] %s", card.ID, card.Title)
	if card.Year != "" {
		fmt.Fprintf(w, " (%s)", card.Year)
	}
	if card.Rating > 0 {
		fmt.Fprintf(w, "  %.1f/5", card.Rating)
	}
	if card.Badge != search.BadgeStandard {
		fmt.Fprintf(w, "  [%s]", card.Badge)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "     %s | %d downloads | %d likes | %d comments\n",
		card.Author, card.Downloads, card.Likes, card.Comments)
	if len(card.Domains) > 0 {
		fmt.Fprintf(w, "     %s\n", strings.Join(card.Domains, ", "))
	}
	fmt.Fprintf(w, "     %s\n\n", card.Excerpt)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
