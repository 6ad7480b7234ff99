package pptp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Loader builds targets from Puppet distributions on disk.
type Loader struct {
	// Services extracts metadata from Ruby files. Nil means no services
	// are available.
	Services RubyServices
	// Cache stores loaded targets. May be nil.
	Cache *Cache
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Loader) services() RubyServices {
	if l.Services != nil {
		return l.Services
	}
	return MockService{}
}

// LoadDistroTarget loads the functions and types of the Puppet distribution
// whose lib/puppet directory is dir. Functions come from parser/functions,
// types from type, and every subdirectory of type may add properties to
// types declared there.
//
// The version is taken from the path segment following the first segment
// named "puppet". When no Ruby services are available the target is
// returned empty and marked Degraded; all other failures are returned.
func (l *Loader) LoadDistroTarget(ctx context.Context, dir string) (*Target, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, abs)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	if l.Cache != nil {
		cached, err := l.Cache.Load(abs)
		if err == nil {
			l.logger().DebugContext(ctx, "target cache hit", "dir", abs)
			return cached, nil
		}
		l.logger().DebugContext(ctx, "target cache miss", "dir", abs, "reason", err)
	}

	version := distroVersion(abs)
	t := &Target{
		Name:        strings.TrimSpace("puppet " + version),
		Version:     version,
		Description: "Puppet Distribution",
		Dir:         abs,
		Functions:   []Function{},
		Types:       []Type{},
	}
	svc := l.services()

	if err := l.loadFunctions(ctx, svc, t, filepath.Join(abs, "parser", "functions")); err != nil {
		return nil, err
	}
	typesDir := filepath.Join(abs, "type")
	if err := l.loadTypes(ctx, svc, t, typesDir); err != nil {
		return nil, err
	}
	subdirs, err := os.ReadDir(typesDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for _, sub := range subdirs {
		if !sub.IsDir() {
			continue
		}
		if err := l.loadProperties(ctx, svc, t, filepath.Join(typesDir, sub.Name())); err != nil {
			return nil, err
		}
	}

	if l.Cache != nil && !t.Degraded {
		if err := l.Cache.Save(t); err != nil {
			l.logger().WarnContext(ctx, "failed to cache target", "dir", abs, "error", err)
		}
	}
	return t, nil
}

// degrade applies the unavailable-services policy: the failure is logged
// once, the target is marked, and loading continues with an empty result.
func (l *Loader) degrade(ctx context.Context, t *Target, err error) error {
	if !errors.Is(err, ErrServiceUnavailable) {
		return err
	}
	if !t.Degraded {
		l.logger().WarnContext(ctx, "ruby services unavailable, loading target without metadata", "dir", t.Dir)
	}
	t.Degraded = true
	return nil
}

func (l *Loader) loadFunctions(ctx context.Context, svc RubyServices, t *Target, dir string) error {
	files, err := rubyFiles(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		infos, err := svc.FunctionInfo(f)
		if err != nil {
			if err := l.degrade(ctx, t, err); err != nil {
				return err
			}
			continue
		}
		for _, info := range infos {
			t.Functions = append(t.Functions, Function{
				Name:          info.Name,
				RValue:        info.RValue,
				Documentation: info.Documentation,
			})
		}
	}
	return nil
}

func (l *Loader) loadTypes(ctx context.Context, svc RubyServices, t *Target, dir string) error {
	files, err := rubyFiles(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		infos, err := svc.TypeInfo(f)
		if err != nil {
			if err := l.degrade(ctx, t, err); err != nil {
				return err
			}
			continue
		}
		for _, info := range infos {
			t.Types = append(t.Types, Type{
				Name:          info.Name,
				Documentation: info.Documentation,
				Parameters:    info.Parameters,
				Properties:    info.Properties,
			})
		}
	}
	return nil
}

func (l *Loader) loadProperties(ctx context.Context, svc RubyServices, t *Target, dir string) error {
	files, err := rubyFiles(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		infos, err := svc.TypeProperties(f)
		if err != nil {
			if err := l.degrade(ctx, t, err); err != nil {
				return err
			}
			continue
		}
		for _, info := range infos {
			typ := t.Type(info.Name)
			if typ == nil {
				l.logger().DebugContext(ctx, "properties for unknown type", "type", info.Name, "file", f)
				continue
			}
			typ.Properties = append(typ.Properties, info.Properties...)
			typ.Parameters = append(typ.Parameters, info.Parameters...)
		}
	}
	return nil
}

// rubyFiles lists the .rb files directly in dir. A missing directory has
// none.
func rubyFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".rb") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func distroVersion(dir string) string {
	segments := strings.Split(filepath.ToSlash(dir), "/")
	for i, s := range segments {
		if s == "puppet" && i+1 < len(segments) {
			return segments[i+1]
		}
	}
	return ""
}
