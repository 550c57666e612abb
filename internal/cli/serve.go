package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/skylayer/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API for stateless separation and spacing and for
stored projects.

The store and cache backends come from the config file or the
SKYLAYER_STORE and SKYLAYER_CACHE environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			opts, err := cfg.Engine.Options()
			if err != nil {
				return err
			}

			st, err := cfg.Store.Open(ctx)
			if err != nil {
				return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
			}
			defer st.Close()

			runner, err := c.newRunner(ctx, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			srv := server.New(runner, st, server.Config{
				Addr:           cfg.Server.Addr,
				CORSOrigins:    cfg.Server.CORSOrigins,
				MaxUploadBytes: cfg.Server.MaxUploadBytes,
				Options:        opts,
			}, c.Logger)

			c.Logger.Info("serving",
				"addr", cfg.Server.Addr,
				"store", cfg.Store.Backend,
				"cache", cfg.Cache.Backend)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}
