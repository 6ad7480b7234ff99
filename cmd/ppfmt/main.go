package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/fang"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/aureatesting/geppetto/pkg/ioctx"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx := context.Background()
	ctx = ioctx.StdoutToContext(ctx, os.Stdout)
	ctx = ioctx.StderrToContext(ctx, os.Stderr)
	if err := fang.Execute(ctx, newRootCmd(),
		fang.WithVersion(version),
		fang.WithCommit(commit),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, errorStyle.Render(err.Error()))
		}),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:   "ppfmt",
		Short: "Format and inspect Puppet manifests",
		Long: `ppfmt formats Puppet manifests according to a canonical style.

It can also serve formatting to editors over the Language Server Protocol,
dump the document tree the formatter works on, load target platform
metadata from a Puppet distribution and query the Puppet Forge.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if debug {
				level = charmlog.DebugLevel
			}
			logger := slog.New(newLogger(ioctx.StderrFromContext(cmd.Context()), level))
			cmd.SetContext(ioctx.LoggerToContext(cmd.Context(), logger))
		},
	}

	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	root.AddCommand(fmtCmd())
	root.AddCommand(lspCmd())
	root.AddCommand(domCmd())
	root.AddCommand(targetCmd())
	root.AddCommand(forgeCmd())

	return root
}

// newLogger creates a charm logger writing to w; it serves as the slog
// handler for every command but lsp.
func newLogger(w io.Writer, level charmlog.Level) *charmlog.Logger {
	return charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Level:           level,
	})
}
