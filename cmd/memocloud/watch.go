package main

import (
	"bufio"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/michaekong/memocloud/pkg/search"
)

func newWatchCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Interactive search: each input line replaces the query",
		Long: `Reads queries line by line from standard input. Lines typed in quick
succession are coalesced; only the last one of a burst is searched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := c.out(cmd)
			media := c.app.Config().API.MediaURL

			var mu sync.Mutex
			c.app.SetOnResult(func(res search.Result) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(w, "-- %q: %d result(s)\n", c.app.Filters().Query, res.Total)
				for _, d := range res.Items {
					printCard(w, search.NewCard(d, media))
				}
				if res.Incomplete {
					fmt.Fprintln(w, "Warning: the listing could not be fetched completely; results may be incomplete.")
				}
			})

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			lines := make(chan string)
			go func() {
				defer close(lines)
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					select {
					case lines <- scanner.Text():
					case <-ctx.Done():
						return
					}
				}
			}()

			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-lines:
					if !ok {
						// End of input: run whatever is still pending.
						c.app.FlushQuery()
						return nil
					}
					c.app.QueryInput(line)
				}
			}
		},
	}
}
