package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/michaekong/memocloud/pkg/server"
)

func newServeCmd(c *cli) *cobra.Command {
	var warm bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the read-only HTTP gateway",
		Long: `Serves client-side search over JSON together with /health, /ready and
/metrics. The listing is fetched once and shared by every request.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			if warm {
				go func() {
					if err := c.app.BuildCorpus(); err != nil {
						log.Warn().Err(err).Msg("Corpus warm-up incomplete")
					}
				}()
			}

			return server.New(c.app).Run(ctx, c.app.Config().Server.Addr)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().BoolVar(&warm, "warm", true, "fetch the listing at startup")
	bind(c.v, cmd, map[string]string{"server.addr": "addr"})
	return cmd
}
