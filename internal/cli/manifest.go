package cli

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ralt/relserve/internal/manifest"
	"github.com/ralt/relserve/internal/models"
	"github.com/ralt/relserve/internal/utils"
)

// NewManifestCmd creates the manifest command
func NewManifestCmd() *cobra.Command {
	var (
		baseURL string
		output  string
		sign    bool
	)

	cmd := &cobra.Command{
		Use:   "manifest <RELEASES file | directory>",
		Short: "Generate or rewrite a Squirrel.Windows RELEASES file",
		Long: `Manifest prepares the RELEASES file of a Windows release.

Given a directory it hashes every .nupkg package in it and generates a new
manifest, ordered by package version. Given an existing RELEASES file it rewrites the package
filenames. In both cases --base-url turns filenames into download links
served by relserve ("<base-url>/dl/<filename>").`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := manifestEntries(args[0])
			if err != nil {
				return err
			}
			if baseURL != "" {
				entries = manifest.Rewrite(entries, downloadLink(baseURL))
			}
			data := manifest.Generate(entries)

			if output == "-" {
				if sign {
					return models.NewError(models.ErrInvalidConfig, "sign", "--sign needs an output file")
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}

			if err := utils.WriteFile(output, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			logrus.Infof("Wrote %d entries to %s", len(entries), output)

			if !sign {
				return nil
			}
			return signManifest(cmd, output, data)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "Public URL of the relserve instance")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, - for stdout")
	cmd.Flags().BoolVar(&sign, "sign", false, "Write a detached signature next to the output (needs --gpg-key)")

	return cmd
}

// manifestEntries reads a RELEASES file, or builds entries for the packages
// of a directory
func manifestEntries(path string) ([]manifest.Entry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return manifest.Parse(data)
	}

	matches, err := filepath.Glob(filepath.Join(path, "*.nupkg"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, models.NewError(models.ErrNotFound, path, "no .nupkg packages found")
	}
	slices.Sort(matches)

	entries := make([]manifest.Entry, 0, len(matches))
	for _, m := range matches {
		d, err := utils.DigestFile(m)
		if err != nil {
			return nil, fmt.Errorf("failed to hash %s: %w", m, err)
		}
		e := manifest.Entry{
			SHA1:     d.ManifestSHA1(),
			Filename: filepath.Base(m),
			Size:     d.Size,
		}
		if e.Version() == "" {
			logrus.Warnf("%s is not named <id>-<version>-full.nupkg, clients may ignore it", e.Filename)
		}
		logrus.Debugf("Hashed %s: %s", e.Filename, d.SHA1)
		entries = append(entries, e)
	}
	manifest.Sort(entries)
	return entries, nil
}

// downloadLink points bare filenames at the /dl route, absolute URLs are
// kept as they are
func downloadLink(baseURL string) func(string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	return func(filename string) string {
		if strings.Contains(filename, "://") {
			return filename
		}
		return baseURL + "/dl/" + url.PathEscape(filename)
	}
}

func signManifest(cmd *cobra.Command, output string, data []byte) error {
	cfg, err := readConfig(cmd.Flags())
	if err != nil {
		return err
	}
	sig, err := newSigner(cfg)
	if err != nil {
		return err
	}
	if sig == nil {
		return models.NewError(models.ErrInvalidConfig, "sign", "--sign needs --gpg-key")
	}

	signature, err := sig.SignDetached(data)
	if err != nil {
		return fmt.Errorf("failed to sign %s: %w", output, err)
	}
	if err := utils.WriteFile(output+".asc", signature, 0644); err != nil {
		return fmt.Errorf("failed to write signature: %w", err)
	}
	logrus.Infof("Signed %s", output)
	return nil
}
