package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aureatesting/geppetto/pkg/ioctx"
	"github.com/aureatesting/geppetto/pkg/pptp"
)

func targetCmd() *cobra.Command {
	var (
		noCache  bool
		cacheDir string
	)

	cmd := &cobra.Command{
		Use:   "target [flags] <puppet-lib-dir>",
		Short: "Load target platform metadata from a Puppet distribution",
		Long: `Load the functions and resource types of a Puppet distribution and print
them as JSON. The argument is the distribution's lib/puppet directory.
Results are cached until a Ruby file below the directory changes.`,
		Example: `  ppfmt target /opt/puppet/2.7.1/lib/puppet`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := ioctx.LoggerFromContext(ctx)

			loader := &pptp.Loader{
				Services: pptp.ScanService{},
				Logger:   logger,
			}
			switch {
			case noCache:
			case cacheDir != "":
				loader.Cache = &pptp.Cache{Dir: cacheDir}
			default:
				loader.Cache = pptp.DefaultCache()
			}

			target, err := loader.LoadDistroTarget(ctx, args[0])
			if err != nil {
				return fmt.Errorf("loading target: %w", err)
			}
			logger.Info("loaded target", "name", target.Name,
				"functions", len(target.Functions), "types", len(target.Types))

			return printJSON(ioctx.StdoutFromContext(ctx), target)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Do not read or write the target cache")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory for cached targets (default: XDG cache)")

	return cmd
}
