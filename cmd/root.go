package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aedi/aedi/config"
	"github.com/aedi/aedi/utils"
)

// Version is stamped at build time with -ldflags "-X github.com/aedi/aedi/cmd.Version=...".
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command for the aedi binary.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "aedi",
		Short:         "Aedi social network API server",
		Long:          "Aedi serves the social network REST API: accounts, follows, posts with edits and continuations, likes and notifications.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML or JSON config file (default: config/config.yaml|yml|json)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// setup loads configuration and initialises the global logger.
func setup(opts *RootOptions) (config.AppConfig, error) {
	path := opts.ConfigPath
	if path == "" {
		for _, p := range config.DefaultPath {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	c, err := config.LoadFrom(path)
	if err != nil {
		return config.AppConfig{}, err
	}
	config.Set(c)
	if err := utils.InitLogger(c); err != nil {
		return config.AppConfig{}, err
	}
	return c, nil
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		utils.Sugar.Errorw("command failed", "error", err)
		fmt.Fprintln(os.Stderr, "aedi:", err)
		return 1
	}
	return 0
}
