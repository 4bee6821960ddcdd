package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check if the server is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = fmt.Sprintf("http://localhost:%s/health", a.cfg.Port)
			}
			if err := handleCheck(url); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Server is running!")
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "health endpoint to probe")
	return cmd
}

func handleCheck(url string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("server is not running: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned non-OK status: %d", resp.StatusCode)
	}
	return nil
}
