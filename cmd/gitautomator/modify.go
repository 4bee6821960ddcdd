package main

import (
	"errors"
	"fmt"

	"github.com/saint0x/gitautomator/pkg/pipeline"
	"github.com/spf13/cobra"
)

func newModifyCmd(a *app) *cobra.Command {
	var req pipeline.Request
	cmd := &cobra.Command{
		Use:   "modify",
		Short: "Modify one file with AI and commit the result",
		Example: `  gitautomator modify --repo acme/widgets --branch main --file README.md \
    --request "capitalize the greeting"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateToken(); err != nil {
				return err
			}
			if a.cfg.OpenAI.APIKey == "" {
				return errors.New("OPENAI_API_KEY not configured")
			}
			req.Token = a.cfg.GitHub.Token

			gh, err := a.githubClient()
			if err != nil {
				return err
			}
			p, err := a.pipeline(gh)
			if err != nil {
				return err
			}

			res := p.Run(cmd.Context(), req)
			if !res.Success {
				return errors.New(res.Message)
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Repo, "repo", "", "repository as owner/name")
	cmd.Flags().StringVar(&req.Branch, "branch", "", "branch to commit to")
	cmd.Flags().StringVar(&req.File, "file", "", "path of the file to modify")
	cmd.Flags().StringVar(&req.Instruction, "request", "", "the change, in plain words")
	return cmd
}
