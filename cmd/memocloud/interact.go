package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/michaekong/memocloud/pkg/search"
)

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid thesis id %q", s)
	}
	return id, nil
}

func newCommentsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "comments <id>",
		Short: "Show the discussion of a thesis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			comments, err := c.app.API().Comments(cmd.Context(), id)
			if err != nil {
				return explain(err)
			}
			w := c.out(cmd)
			if len(comments) == 0 {
				fmt.Fprintln(w, "No comments yet.")
			}
			for _, cm := range comments {
				fmt.Fprintf(w, "%s", cm.AuthorName())
				if cm.Date != "" {
					fmt.Fprintf(w, " (%s)", cm.Date)
				}
				fmt.Fprintf(w, ":\n  %s\n", cm.Content)
			}
			return nil
		},
	}
}

func newCommentCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <id> <text...>",
		Short: "Comment on a thesis",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.app.API().PostComment(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
				return explain(err)
			}
			fmt.Fprintln(c.out(cmd), "Comment posted.")
			return nil
		},
	}
}

func newLikeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "like <id>",
		Short: "Like or unlike a thesis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.app.API().ToggleLike(cmd.Context(), id); err != nil {
				return explain(err)
			}
			fmt.Fprintln(c.out(cmd), "Like toggled.")
			return nil
		},
	}
}

func newRateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <id> <1-5>",
		Short: "Rate a thesis",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			note, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid rating %q", args[1])
			}
			if err := c.app.API().Rate(cmd.Context(), id, note); err != nil {
				return explain(err)
			}
			fmt.Fprintf(c.out(cmd), "Rated %d/5.\n", note)
			return nil
		},
	}
}

func newDownloadCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "download <id>",
		Short: "Register a download and print the PDF link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := c.app.API().RegisterDownload(cmd.Context(), id); err != nil {
				return explain(err)
			}

			w := c.out(cmd)
			fmt.Fprintln(w, "Download registered.")

			// The link comes from the listing; a partial corpus may still hold it.
			_ = c.app.Corpus().EnsureBuilt(cmd.Context())
			for _, d := range c.app.Corpus().Documents() {
				if d.ID == id && d.PDF != "" {
					fmt.Fprintln(w, search.MediaURL(c.app.Config().API.MediaURL, d.PDF))
					break
				}
			}
			return nil
		},
	}
}
