package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ralt/relserve/internal/server"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the release server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}

			b, err := newBackend(cfg)
			if err != nil {
				return err
			}

			var opts []server.Option
			sig, err := newSigner(cfg)
			if err != nil {
				return err
			}
			if sig != nil {
				opts = append(opts, server.WithSigner(sig))
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logrus.Infof("Serving %s releases on %s", cfg.Backend, cfg.Listen)
			return server.New(*cfg, b, opts...).Run(ctx)
		},
	}
}
