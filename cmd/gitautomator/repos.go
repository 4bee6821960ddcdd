package main

import (
	"fmt"

	"github.com/saint0x/gitautomator/pkg/bookmarks"
	"github.com/saint0x/gitautomator/pkg/github"
	"github.com/spf13/cobra"
)

func newReposCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repos",
		Short: "List your repositories, bookmarked ones first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateToken(); err != nil {
				return err
			}
			gh, err := a.githubClient()
			if err != nil {
				return err
			}
			repos, err := gh.ListRepositories(cmd.Context(), a.cfg.GitHub.Token)
			if err != nil {
				return err
			}

			store, err := a.bookmarkStore()
			if err != nil {
				return err
			}
			set, err := store.Load()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, r := range bookmarks.Sort(repos, set) {
				mark := " "
				if set.Has(r.FullName) {
					mark = "*"
				}
				visibility := ""
				if r.Private {
					visibility = " (private)"
				}
				fmt.Fprintf(out, "%s %s%s\n", mark, r.FullName, visibility)
			}
			return nil
		},
	}
}

func newFilesCmd(a *app) *cobra.Command {
	var repo, branch string
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List the files of a branch that can be modified",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateToken(); err != nil {
				return err
			}
			gh, err := a.githubClient()
			if err != nil {
				return err
			}
			entries, err := gh.GetTree(cmd.Context(), a.cfg.GitHub.Token, repo, branch)
			if err != nil {
				return err
			}
			for _, e := range github.FilterSelectable(entries, a.cfg.GitHub.IgnorePaths) {
				fmt.Fprintln(cmd.OutOrStdout(), e.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", "", "repository as owner/name")
	cmd.Flags().StringVar(&branch, "branch", "", "branch to list")
	_ = cmd.MarkFlagRequired("repo")
	_ = cmd.MarkFlagRequired("branch")
	return cmd
}
