package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/michaekong/memocloud/pkg/analytics"
)

func newStatsCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show repository counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := c.app.API().Stats(cmd.Context())
			if err != nil {
				log.Warn().Err(err).Msg("Showing default counters")
			}
			if asJSON {
				return writeJSON(c.out(cmd), stats)
			}
			w := c.out(cmd)
			fmt.Fprintf(w, "Theses:     %d\n", stats.TotalMemoires)
			fmt.Fprintf(w, "Downloads:  %d\n", stats.TotalDownloads)
			fmt.Fprintf(w, "Likes:      %d\n", stats.TotalLikes)
			fmt.Fprintf(w, "Avg rating: %.1f\n", stats.AverageRating)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newYearsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "years",
		Short: "List publication years offered by the year filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			years, _ := c.app.API().Years(cmd.Context())
			fmt.Fprintln(c.out(cmd), strings.Join(years, "\n"))
			return nil
		},
	}
}

func newDomainsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List research domains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			domains, err := c.app.API().Domains(cmd.Context())
			if err != nil {
				log.Warn().Err(err).Msg("Domains unavailable")
			}
			w := c.out(cmd)
			if len(domains) == 0 {
				fmt.Fprintln(w, "No domains.")
			}
			for _, d := range domains {
				fmt.Fprintf(w, "%-30s %s\n", d.Slug, d.Name)
			}
			return nil
		},
	}
}

func newAnalyticsCmd(c *cli) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Summarize downloads, likes, comments and ratings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := c.app.Analytics(cmd.Context())
			if asJSON {
				if jsonErr := writeJSON(c.out(cmd), summary); jsonErr != nil {
					return jsonErr
				}
			} else {
				printSummary(c.out(cmd), summary)
			}
			if err != nil {
				fmt.Fprintln(c.out(cmd), "Warning: the listing could not be fetched completely; figures may be incomplete.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printSummary(w io.Writer, s analytics.Summary) {
	t := s.Totals
	fmt.Fprintf(w, "Theses %d | downloads %d | likes %d | comments %d | avg rating %.2f | conversion %.1f%%\n\n",
		t.Records, t.Downloads, t.Likes, t.Comments, t.AverageRating, t.ConversionRate)

	ranking := func(title string, items []analytics.Ranked) {
		fmt.Fprintln(w, title)
		for i, r := range items {
			fmt.Fprintf(w, "  %2d. %-50s %g\n", i+1, truncate(r.Title, 50), r.Value)
		}
		fmt.Fprintln(w)
	}
	ranking("Most downloaded", s.TopDownloads)
	ranking("Most liked", s.TopLikes)
	ranking("Most commented", s.TopComments)
	ranking("Viral score", s.TopViral)

	fmt.Fprintln(w, "Top authors")
	for _, a := range s.TopAuthors {
		fmt.Fprintf(w, "  %-40s %d\n", a.Label, a.Value)
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, "Ratings  ")
	for i, n := range s.RatingStars {
		fmt.Fprintf(w, " %d*: %d", i+1, n)
	}
	fmt.Fprintln(w)

	fmt.Fprint(w, "Weekdays ")
	for day, n := range s.Weekday {
		fmt.Fprintf(w, " %s: %d", analytics.WeekdayLabel(time.Weekday(day)), n)
	}
	fmt.Fprintln(w)

	if len(s.Domains) > 0 {
		fmt.Fprintln(w, "\nDomains")
		for _, d := range s.Domains {
			fmt.Fprintf(w, "  %-40s %d\n", d.Label, d.Value)
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
