package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aureatesting/geppetto/pkg/forge"
	"github.com/aureatesting/geppetto/pkg/ioctx"
)

func forgeCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "forge",
		Short: "Query the Puppet Forge",
	}
	cmd.PersistentFlags().StringVar(&baseURL, "url", forge.DefaultBaseURL, "Forge API base URL")

	client := func(cmd *cobra.Command) *forge.Client {
		c := forge.NewClient(baseURL)
		c.Logger = ioctx.LoggerFromContext(cmd.Context())
		return c
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "owner <name>",
		Short: "Print an owner as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := client(cmd).Owner(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(ioctx.StdoutFromContext(cmd.Context()), o)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "module <owner-name>",
		Short:   "Print module metadata as JSON",
		Example: `  ppfmt forge module puppetlabs-stdlib`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := client(cmd).Module(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(ioctx.StdoutFromContext(cmd.Context()), m)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "modules <owner>",
		Short: "List the modules of an owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mods, err := client(cmd).ListModules(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := ioctx.StdoutFromContext(cmd.Context())
			for _, m := range mods {
				fmt.Fprintln(w, m.Slug)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "releases <owner-name>",
		Short: "List the releases of a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rels, err := client(cmd).ListReleases(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := ioctx.StdoutFromContext(cmd.Context())
			for _, r := range rels {
				fmt.Fprintf(w, "%s\t%s\n", keyStyle.Render(r.Version), r.Slug)
			}
			return nil
		},
	})

	var output string
	download := &cobra.Command{
		Use:     "download <file>",
		Short:   "Download a release file",
		Example: `  ppfmt forge download puppetlabs-stdlib-4.1.0.tar.gz`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = args[0]
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			n, err := client(cmd).DownloadFile(cmd.Context(), args[0], f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(output)
				return err
			}
			ioctx.LoggerFromContext(cmd.Context()).Info("downloaded", "file", output, "bytes", n)
			return nil
		},
	}
	download.Flags().StringVarP(&output, "output", "o", "", "Output path (default: the file name)")
	cmd.AddCommand(download)

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
