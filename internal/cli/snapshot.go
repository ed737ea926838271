package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ralt/relserve/internal/backend/index"
	"github.com/ralt/relserve/internal/utils"
)

// NewSnapshotCmd creates the snapshot command
func NewSnapshotCmd() *cobra.Command {
	var (
		output string
		format string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Write the configured backend's releases as a release index",
		Long: `Snapshot fetches every release from the configured backend and
writes it as an index file that the index backend can serve. The format
follows the output name: .json for JSON, anything else for YAML, with an
optional .gz or .xz suffix for compression.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			b, err := newBackend(cfg)
			if err != nil {
				return err
			}

			c, err := b.FetchReleases(cmd.Context())
			if err != nil {
				return err
			}

			name := output
			if output == "-" {
				name = "index." + format
			}
			data, err := index.Encode(name, index.Snapshot(c, b.Locate))
			if err != nil {
				return err
			}

			if output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := utils.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			logrus.Infof("Wrote %d releases to %s", c.Len(), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, - for stdout")
	cmd.Flags().StringVar(&format, "format", "yaml", "Format when writing to stdout: yaml or json")

	return cmd
}
