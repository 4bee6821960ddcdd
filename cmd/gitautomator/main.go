package main

import (
	"context"
	"fmt"
	"os"

	"github.com/saint0x/gitautomator/pkg/config"
	"github.com/saint0x/gitautomator/pkg/log"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once flags are parsed
type app struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *log.Logger
}

func main() {
	root := newRootCmd(&app{})
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "gitautomator",
		Short:         "Describe a change to a file in plain words and commit it to GitHub",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(newServeCmd(a))
	root.AddCommand(newModifyCmd(a))
	root.AddCommand(newReposCmd(a))
	root.AddCommand(newFilesCmd(a))
	root.AddCommand(newBookmarksCmd(a))
	root.AddCommand(newCheckCmd(a))

	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Debug = true
	}
	a.cfg = cfg
	if a.logger == nil {
		a.logger = log.New(cfg.Debug)
	}
	return nil
}
