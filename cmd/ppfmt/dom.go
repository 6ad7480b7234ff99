package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"github.com/aureatesting/geppetto/pkg/dom"
	"github.com/aureatesting/geppetto/pkg/ioctx"
	"github.com/aureatesting/geppetto/pkg/ppfmt"
)

func domCmd() *cobra.Command {
	var styles bool

	cmd := &cobra.Command{
		Use:   "dom [flags] file.pp",
		Short: "Print the document tree of a manifest",
		Long: `Print the document tree the formatter lays out: one node per line with its
construct, role or whitespace text. With --styles each node is annotated
with the style the default sheet gives it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tree, err := ppfmt.Tree(args[0], string(src))
			if err != nil {
				return err
			}

			var annotate func(dom.ID) string
			if styles {
				sets := ppfmt.DefaultSheet().ResolveAll(tree)
				annotate = func(id dom.ID) string {
					if sets[id].IsEmpty() {
						return ""
					}
					dump := pretty.Sprint(sets[id].Directives())
					return dimStyle.Render(strings.Join(strings.Fields(dump), " "))
				}
			}

			var sb strings.Builder
			tree.Dump(&sb, annotate)
			_, err = fmt.Fprint(ioctx.StdoutFromContext(cmd.Context()), sb.String())
			return err
		},
	}

	cmd.Flags().BoolVar(&styles, "styles", false, "Annotate nodes with their resolved styles")

	return cmd
}
