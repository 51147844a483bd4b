package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/michaekong/memocloud/pkg/api"
	"github.com/michaekong/memocloud/pkg/app"
	"github.com/michaekong/memocloud/pkg/config"
	"github.com/michaekong/memocloud/pkg/logging"
)

// cli carries the state shared by every command of one invocation.
type cli struct {
	v       *viper.Viper
	cfgPath string
	app     *app.App
}

func (c *cli) out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}

// setup loads configuration, configures logging and builds the App.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Read(c.v, c.cfgPath)
	if err != nil {
		return err
	}

	logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: cmd.ErrOrStderr(),
	})

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	c.app = a

	// A failed profile load already logged the user out; commands go on anonymously.
	_ = a.Bootstrap(cmd.Context())
	return nil
}

func (c *cli) teardown() {
	if c.app != nil {
		c.app.Close()
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:   "memocloud",
		Short: "Search and browse the thesis repository",
		Long: `memocloud fetches the whole thesis listing once per run, then searches,
filters and pages through it locally. Accents and case are ignored.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			c.teardown()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&c.cfgPath, "config", "c", "", "config file (default ./memocloud.{yaml,toml,json})")
	pf.String("base-url", "", "API base URL")
	pf.String("university", "", "university slug")
	pf.String("redis", "", "Redis address for the shared response cache")
	pf.String("session-dir", "", "directory holding session.toml (default ~/.memocloud)")
	pf.String("log-level", "", "log level (debug, info, warn, error, disabled)")
	pf.Bool("pretty", false, "human-readable logs")

	bind(c.v, root, map[string]string{
		"api.base_url":   "base-url",
		"api.university": "university",
		"redis.addr":     "redis",
		"session.dir":    "session-dir",
		"log.level":      "log-level",
		"log.pretty":     "pretty",
	})

	root.AddCommand(
		newSearchCmd(c),
		newStatsCmd(c),
		newYearsCmd(c),
		newDomainsCmd(c),
		newAnalyticsCmd(c),
		newCommentsCmd(c),
		newCommentCmd(c),
		newLikeCmd(c),
		newRateCmd(c),
		newDownloadCmd(c),
		newLoginCmd(c),
		newLogoutCmd(c),
		newRegisterCmd(c),
		newPasswdCmd(c),
		newResetPasswordCmd(c),
		newWhoamiCmd(c),
		newServeCmd(c),
		newWatchCmd(c),
		newCacheCmd(c),
	)
	return root
}

// bind maps config keys onto persistent or local flags of cmd.
func bind(v *viper.Viper, cmd *cobra.Command, keys map[string]string) {
	for key, name := range keys {
		flag := cmd.PersistentFlags().Lookup(name)
		if flag == nil {
			flag = cmd.Flags().Lookup(name)
		}
		if flag != nil {
			_ = v.BindPFlag(key, flag)
		}
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// explain turns well-known errors into short user-facing messages.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, api.ErrAuthRequired):
		return fmt.Errorf("this action needs an account: run 'memocloud login --email <address>' or 'memocloud login <token>' first")
	default:
		return err
	}
}
