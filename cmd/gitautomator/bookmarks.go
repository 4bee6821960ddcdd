package main

import (
	"fmt"

	"github.com/saint0x/gitautomator/pkg/bookmarks"
	"github.com/saint0x/gitautomator/pkg/github"
	"github.com/spf13/cobra"
)

func (a *app) bookmarkStore() (*bookmarks.FileStore, error) {
	return bookmarks.NewFileStore(a.logger, a.cfg.Bookmarks.File)
}

func newBookmarksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "Manage bookmarked repositories",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List bookmarked repositories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.bookmarkStore()
			if err != nil {
				return err
			}
			set, err := store.Load()
			if err != nil {
				return err
			}
			for _, id := range set.List() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <owner/repo>",
		Short: "Bookmark a repository, or remove its bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, name, err := github.ParseRepo(args[0])
			if err != nil {
				return err
			}
			id := owner + "/" + name

			store, err := a.bookmarkStore()
			if err != nil {
				return err
			}
			if _, err := store.Load(); err != nil {
				return err
			}
			on := store.Toggle(id)
			if err := store.Save(); err != nil {
				return err
			}

			if on {
				fmt.Fprintf(cmd.OutOrStdout(), "Bookmarked %s\n", id)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed bookmark %s\n", id)
			}
			return nil
		},
	})

	return cmd
}
