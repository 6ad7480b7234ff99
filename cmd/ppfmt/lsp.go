package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/spf13/cobra"

	"github.com/aureatesting/geppetto/pkg/lsp"
	"github.com/aureatesting/geppetto/pkg/ppfmt"
)

func lspCmd() *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Run the formatting language server on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var logDest io.Writer
			if logFile != "" {
				f, err := os.Create(logFile)
				if err != nil {
					return fmt.Errorf("open lsp log: %w", err)
				}
				defer f.Close() //nolint:errcheck
				logDest = f
			} else {
				logDest = os.Stderr
			}

			debug, _ := cmd.Flags().GetBool("debug")
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(logDest, &slog.HandlerOptions{
				Level: level,
			}))

			_, config, err := ppfmt.FindConfig(".")
			if err != nil {
				logger.WarnContext(ctx, "ignoring configuration", "error", err)
				config = ppfmt.DefaultConfig()
			}

			logger.InfoContext(ctx, "starting LSP server")

			handler := lsp.NewHandler(config, logger)
			srv := jrpc2.NewServer(handler.Methods(), &jrpc2.ServerOptions{
				AllowPush: true,
				Logger:    func(text string) { logger.Debug(text) },
			})
			handler.SetServer(srv)

			srv.Start(channel.LSP(stdrwc{}, stdrwc{}))

			logger.InfoContext(ctx, "LSP server closed", "error", srv.Wait())
			return nil
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "Path to LSP log file (stderr if not specified)")

	return cmd
}

type stdrwc struct{}

func (stdrwc) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (stdrwc) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (stdrwc) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}
