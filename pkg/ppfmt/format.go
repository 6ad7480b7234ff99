// Package ppfmt formats Puppet manifests: source is parsed, turned into a
// DOM, styled by the default sheet and laid out by the construct layouts.
package ppfmt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aureatesting/geppetto/pkg/dom"
	"github.com/aureatesting/geppetto/pkg/layout"
	"github.com/aureatesting/geppetto/pkg/pp"
)

// Options controls a single formatting run.
type Options struct {
	Config

	// Region restricts formatting to a byte range of the source.
	Region *layout.Region
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewContext builds the layout context for the given configuration.
func NewContext(config Config) *layout.Context {
	config = config.withDefaults()
	return &layout.Context{
		Sheet:              DefaultSheet(),
		Layouts:            DefaultLayouts(config.ClusterDispersion),
		Indent:             config.Indent,
		TabWidth:           config.TabWidth,
		MaxWidth:           config.MaxWidth,
		LineSeparator:      config.LineSeparator,
		PreserveWhitespace: config.PreserveWhitespace,
	}
}

// Result is the outcome of formatting one document.
type Result struct {
	Name      string
	Formatted string
	Changed   bool
	Issues    layout.Issues
}

// Source parses and formats a whole manifest.
func Source(name, src string, opts Options) (*Result, error) {
	f, err := pp.Parse(name, src)
	if err != nil {
		return nil, err
	}
	return format(f, opts)
}

// Fragment parses src as a single construct of the given kind and formats
// it, for example a bare definition argument list.
func Fragment(kind pp.Kind, src string, opts Options) (*Result, error) {
	f, err := pp.ParseFragment(kind, src)
	if err != nil {
		return nil, err
	}
	return format(f, opts)
}

func format(f *pp.File, opts Options) (*Result, error) {
	tree, err := pp.BuildDOM(f, dom.BuildOptions{ImplyWhitespace: true})
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", f.Name, err)
	}
	res := &Result{Name: f.Name}
	ctx := NewContext(opts.Config)
	ctx.Region = opts.Region
	ctx.Issues = &res.Issues
	ctx.Logger = opts.Logger
	out, err := layout.Format(tree, ctx)
	if err != nil {
		return nil, fmt.Errorf("formatting %s: %w", f.Name, err)
	}
	res.Formatted = out
	res.Changed = out != f.Source
	return res, nil
}

// Tree parses a manifest and builds its DOM without laying it out.
func Tree(name, src string) (*dom.Tree, error) {
	f, err := pp.Parse(name, src)
	if err != nil {
		return nil, err
	}
	return pp.BuildDOM(f, dom.BuildOptions{ImplyWhitespace: true})
}

// FormatFile reads and formats a manifest file.
func FormatFile(path string, opts Options) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Source(path, string(src), opts)
}

// FormatFiles formats files concurrently. Results are returned in the order
// of paths; the first error cancels the remaining work.
func FormatFiles(ctx context.Context, paths []string, opts Options) ([]*Result, error) {
	results := make([]*Result, len(paths))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(8)
	for i, path := range paths {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := FormatFile(path, opts)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Expand replaces every directory in paths with the manifests found below
// it, sorted. Plain files are kept as given.
func Expand(paths []string) ([]string, error) {
	var out []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, path)
			continue
		}
		var found []string
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() && p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if !d.IsDir() && strings.HasSuffix(p, ".pp") {
				found = append(found, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}
