package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aedi/aedi/config"
	"github.com/aedi/aedi/routes"
	"github.com/aedi/aedi/utils"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Port    string
	Migrate bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server and block until SIGINT or SIGTERM.

Example:
  aedi serve
  aedi serve --port 8080 --migrate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Port, "port", "p", "", "listen port (overrides APP_PORT)")
	cmd.Flags().BoolVar(&opts.Migrate, "migrate", false, "run schema migrations before serving")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	c, err := setup(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Port != "" {
		c.AppPort = opts.Port
	}
	if opts.Migrate {
		c.AutoMigrate = true
	}
	config.Set(c)

	db, err := config.OpenDatabase(c)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if c.AutoMigrate {
		if err := config.Migrate(db); err != nil {
			return err
		}
	}

	r := routes.SetupRouter(db)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	utils.Sugar.Infof("Starting server on port %s (graceful)", c.AppPort)
	return utils.GraceServer(ctx, ":"+c.AppPort, r)
}
