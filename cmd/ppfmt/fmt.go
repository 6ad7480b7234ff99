package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aureatesting/geppetto/pkg/ioctx"
	"github.com/aureatesting/geppetto/pkg/layout"
	"github.com/aureatesting/geppetto/pkg/ppfmt"
)

type fmtOptions struct {
	write    bool
	list     bool
	check    bool
	width    int
	indent   string
	preserve bool
}

func fmtCmd() *cobra.Command {
	var opts fmtOptions

	cmd := &cobra.Command{
		Use:   "fmt [flags] [path...]",
		Short: "Format Puppet manifests",
		Long: `Format Puppet manifests according to the canonical style.

By default, fmt prints the formatted source to stdout. With no paths it
formats standard input. Directories are searched for .pp files.
Use -w to write the result back to the source file.
Use -l to list files that would be changed.
Use --check to fail when any file would be changed.

Settings are read from the nearest ppfmt.toml, or the file named by
$PPFMT_CONFIG; flags override them.`,
		Example: `  # Format a manifest and print to stdout
  ppfmt fmt site.pp

  # Format every manifest of a module in place
  ppfmt fmt -w ./modules/apache

  # Fail in CI when manifests are not formatted
  ppfmt fmt --check ./manifests`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.write, "write", "w", false, "Write result to source file instead of stdout")
	cmd.Flags().BoolVarP(&opts.list, "list", "l", false, "List files that would be formatted")
	cmd.Flags().BoolVar(&opts.check, "check", false, "Exit with an error if any file would be formatted")
	cmd.Flags().IntVar(&opts.width, "width", 0, "Maximum line width")
	cmd.Flags().StringVar(&opts.indent, "indent", "", "Indentation string")
	cmd.Flags().BoolVar(&opts.preserve, "preserve", false, "Keep existing whitespace, only aligning and indenting")

	return cmd
}

// loadConfig finds the configuration for dir and applies flag overrides.
func loadConfig(cmd *cobra.Command, dir string, opts fmtOptions) (ppfmt.Config, error) {
	path, config, err := ppfmt.FindConfig(dir)
	if err != nil {
		return ppfmt.Config{}, err
	}
	logger := ioctx.LoggerFromContext(cmd.Context())
	if path != "" {
		logger.Debug("using configuration", "path", path)
	}

	flags := cmd.Flags()
	if flags.Changed("width") {
		config.MaxWidth = opts.width
	}
	if flags.Changed("indent") {
		config.Indent = opts.indent
	}
	if flags.Changed("preserve") {
		config.PreserveWhitespace = opts.preserve
	}
	return config, nil
}

func runFmt(cmd *cobra.Command, paths []string, opts fmtOptions) error {
	ctx := cmd.Context()
	stdout := ioctx.StdoutFromContext(ctx)
	stderr := ioctx.StderrFromContext(ctx)
	logger := ioctx.LoggerFromContext(ctx)

	if len(paths) == 0 {
		return fmtStdin(cmd, opts)
	}

	files, err := ppfmt.Expand(paths)
	if err != nil {
		return err
	}
	config, err := loadConfig(cmd, configDir(paths[0]), opts)
	if err != nil {
		return err
	}

	results, err := ppfmt.FormatFiles(ctx, files, ppfmt.Options{Config: config, Logger: logger})
	if err != nil {
		return err
	}

	unformatted := 0
	for _, res := range results {
		reportIssues(ctx, res)
		if res.Changed {
			unformatted++
		}

		switch {
		case opts.write:
			if res.Changed {
				if err := os.WriteFile(res.Name, []byte(res.Formatted), 0644); err != nil {
					return err
				}
				if opts.list {
					fmt.Fprintln(stdout, res.Name)
				}
			}
		case opts.list:
			if res.Changed {
				fmt.Fprintln(stdout, res.Name)
			}
		case opts.check:
			if res.Changed {
				fmt.Fprintln(stderr, pathStyle.Render(res.Name)+" "+warningStyle.Render("needs formatting"))
			}
		default:
			fmt.Fprint(stdout, res.Formatted)
		}
	}

	if opts.check && !opts.write && unformatted > 0 {
		return fmt.Errorf("%d of %d files need formatting", unformatted, len(results))
	}
	return nil
}

func fmtStdin(cmd *cobra.Command, opts fmtOptions) error {
	ctx := cmd.Context()
	src, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return err
	}
	config, err := loadConfig(cmd, ".", opts)
	if err != nil {
		return err
	}
	res, err := ppfmt.Source("<stdin>", string(src), ppfmt.Options{
		Config: config,
		Logger: ioctx.LoggerFromContext(ctx),
	})
	if err != nil {
		return err
	}
	reportIssues(ctx, res)
	if opts.check && res.Changed {
		return fmt.Errorf("<stdin> needs formatting")
	}
	_, err = fmt.Fprint(ioctx.StdoutFromContext(ctx), res.Formatted)
	return err
}

func reportIssues(ctx context.Context, res *ppfmt.Result) {
	logger := ioctx.LoggerFromContext(ctx)
	for _, issue := range res.Issues {
		switch issue.Severity {
		case layout.Error, layout.Warning:
			logger.Warn(issue.Message, "file", res.Name, "offset", issue.Span.Offset)
		default:
			logger.Debug(issue.Message, "file", res.Name, "offset", issue.Span.Offset)
		}
	}
}

func configDir(path string) string {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}
