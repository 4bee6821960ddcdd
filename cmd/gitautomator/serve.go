package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/saint0x/gitautomator/pkg/auth"
	"github.com/saint0x/gitautomator/pkg/bookmarks"
	"github.com/saint0x/gitautomator/pkg/server"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var probe bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), probe)
		},
	}
	cmd.Flags().BoolVar(&probe, "probe", false, "check the OpenAI key with a test request before serving")
	return cmd
}

func (a *app) serve(parent context.Context, probe bool) error {
	logger := a.logger
	logger.Step("Starting gitautomator server...")
	logger.Info("Debug mode: %v", a.cfg.Debug)

	logger.Step("Validating environment...")
	if err := a.cfg.Validate(logger); err != nil {
		return fmt.Errorf("environment validation failed: %w", err)
	}
	if probe {
		if err := a.cfg.Probe(parent, logger); err != nil {
			return err
		}
	}
	logger.Success("Environment validated")

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	shuttingDown := make(chan struct{}, 1)
	go func() {
		for sig := range sigCh {
			select {
			case <-shuttingDown:
				// Second signal, force exit
				logger.Error("Force stopping...")
				os.Exit(1)
			default:
				logger.Info("Received signal: %v", sig)
				logger.Info("Press Ctrl+C again to force stop")
				shuttingDown <- struct{}{}
				cancel()
			}
		}
	}()

	ghClient, err := a.githubClient()
	if err != nil {
		return err
	}
	p, err := a.pipeline(ghClient)
	if err != nil {
		return err
	}
	authn, err := auth.New(auth.Config{
		ClientID:     a.cfg.GitHub.ClientID,
		ClientSecret: a.cfg.GitHub.ClientSecret,
		RedirectURL:  a.cfg.CallbackURL(),
		Secure:       a.cfg.Production,
	})
	if err != nil {
		return err
	}

	var provider bookmarks.Provider = bookmarks.NewMemoryProvider()
	if dir := a.cfg.Bookmarks.Dir; dir != "" {
		provider, err = bookmarks.NewDirProvider(logger, dir)
		if err != nil {
			return err
		}
	}

	srv, err := server.New(logger, ghClient, p, server.Options{
		Addr:        a.cfg.Addr(),
		Auth:        authn,
		Bookmarks:   provider,
		IgnorePaths: a.cfg.GitHub.IgnorePaths,
		Secure:      a.cfg.Production,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
