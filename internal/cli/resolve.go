package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ralt/relserve/internal/backend"
	"github.com/ralt/relserve/internal/cache"
	"github.com/ralt/relserve/internal/models"
	"github.com/ralt/relserve/internal/platform"
	"github.com/ralt/relserve/internal/release"
	"github.com/ralt/relserve/internal/resolver"
)

type resolveOptions struct {
	channel  string
	version  string
	pkg      string
	filetype string
	current  string
}

// NewResolveCmd creates the resolve command
func NewResolveCmd() *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve <os> <arch> | resolve <platform>",
		Short: "Show which asset a download or update request resolves to",
		Long: `Resolve runs a request against the configured backend without
starting the server. With two arguments it resolves by operating system
and architecture, with one by legacy platform tag (osx_64, windows_32...).

With --current it performs an update check from that version instead.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			b, err := newBackend(cfg)
			if err != nil {
				return err
			}

			// Fetched once for the lifetime of the command
			res := resolver.New(cache.New(b.FetchReleases, 0), b, cfg.PreferUniversal)
			return runResolve(cmd, res, b, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.channel, "channel", "", "Channel to resolve on (default stable)")
	cmd.Flags().StringVar(&opts.version, "version", "", "Version range (default latest)")
	cmd.Flags().StringVar(&opts.pkg, "pkg", "", "Package format: deb or rpm")
	cmd.Flags().StringVar(&opts.filetype, "filetype", "", "Asset extension override, e.g. zip")
	cmd.Flags().StringVar(&opts.current, "current", "", "Version the client runs, turns the lookup into an update check")

	return cmd
}

func runResolve(cmd *cobra.Command, res *resolver.Resolver, b backend.Backend, args []string, opts *resolveOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	ext, err := platform.ParseExtension(opts.filetype)
	if err != nil {
		return err
	}
	link := func(_ *release.Release, a *release.Asset) string {
		return locationString(b.Locate(a))
	}

	if len(args) == 1 {
		if opts.current != "" {
			info, err := res.ResolveLegacyUpdate(ctx, resolver.LegacyUpdateQuery{
				Platform:  args[0],
				Version:   opts.current,
				Channel:   opts.channel,
				Extension: ext,
			}, link)
			if err != nil {
				return err
			}
			return printUpdate(out, opts.current, info)
		}

		match, err := res.ResolveLegacyDownload(ctx, resolver.LegacyDownloadQuery{
			Platform:  args[0],
			Channel:   opts.channel,
			Version:   opts.version,
			Extension: ext,
		})
		if err != nil {
			return err
		}
		return printMatch(out, b, args[0], match)
	}

	targetOS, err := platform.ParseOperatingSystem(args[0])
	if err != nil {
		return err
	}
	archs, err := platform.ParseArchitectures(args[1])
	if err != nil {
		return err
	}
	pkg, err := platform.ParsePackageFormat(opts.pkg)
	if err != nil {
		return err
	}

	if opts.current != "" {
		info, err := res.ResolveUpdate(ctx, resolver.UpdateQuery{
			OS:            targetOS,
			Architectures: archs,
			Package:       pkg,
			Version:       opts.current,
			Channel:       opts.channel,
		}, link)
		if err != nil {
			return err
		}
		return printUpdate(out, opts.current, info)
	}

	match, err := res.ResolveDownload(ctx, resolver.DownloadQuery{
		Channel:       orStable(opts.channel),
		OS:            targetOS,
		Architectures: archs,
		Package:       pkg,
		Version:       opts.version,
		Extension:     ext,
	})
	if err != nil {
		return err
	}
	return printMatch(out, b, args[0]+" "+args[1], match)
}

func orStable(channel string) string {
	if channel == "" {
		return release.StableChannel
	}
	return channel
}

func locationString(loc backend.Location) string {
	if loc.URL != "" {
		return loc.URL
	}
	return loc.Path
}

func printMatch(w io.Writer, b backend.Backend, request string, match *resolver.Match) error {
	if match == nil {
		return models.NewError(models.ErrNotFound, request, "no matching release")
	}

	fmt.Fprintf(w, "Release:   %s (%s)\n", match.Release.Version, match.Release.Channel)
	fmt.Fprintf(w, "Published: %s\n", match.Release.PublishedAt.Format("2006-01-02"))
	fmt.Fprintf(w, "Asset:     %s\n", match.Asset.Filename)
	fmt.Fprintf(w, "Platform:  %s\n", match.Asset.PlatformTag)
	fmt.Fprintf(w, "Size:      %d\n", match.Asset.Size)
	if loc := locationString(b.Locate(match.Asset)); loc != "" {
		fmt.Fprintf(w, "Location:  %s\n", loc)
	}
	return nil
}

func printUpdate(w io.Writer, current string, info *resolver.UpdateInfo) error {
	if info == nil {
		fmt.Fprintf(w, "%s is up to date\n", current)
		return nil
	}

	fmt.Fprintf(w, "Update:   %s -> %s\n", current, info.Version)
	fmt.Fprintf(w, "Asset:    %s\n", info.Asset.Filename)
	if info.URL != "" {
		fmt.Fprintf(w, "Location: %s\n", info.URL)
	}
	if info.Notes != "" {
		fmt.Fprintf(w, "\n%s\n", info.Notes)
	}
	return nil
}
