// Package lsp is a language server that formats Puppet manifests.
package lsp

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"sync"
	"unicode"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"

	"github.com/aureatesting/geppetto/pkg/ppfmt"
)

// Handler holds the open documents of one client session.
type Handler struct {
	mu       sync.Mutex
	files    map[DocumentURI]*File
	rootPath string
	shutdown bool

	// config is used for documents outside any ppfmt.toml project.
	config ppfmt.Config
	logger *slog.Logger
	srv    *jrpc2.Server
}

// File is an open document.
type File struct {
	LanguageID string
	Text       string
	Version    int
}

// NewHandler creates a handler formatting with config wherever no project
// configuration is found. A nil logger means slog.Default().
func NewHandler(config ppfmt.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		files:  make(map[DocumentURI]*File),
		config: config,
		logger: logger,
	}
}

// SetServer gives the handler the server to push notifications through.
func (h *Handler) SetServer(srv *jrpc2.Server) {
	h.mu.Lock()
	h.srv = srv
	h.mu.Unlock()
}

// Methods returns the method table to serve.
func (h *Handler) Methods() handler.Map {
	return handler.Map{
		"initialize":                   h.handleInitialize,
		"initialized":                  h.handleInitialized,
		"shutdown":                     h.handleShutdown,
		"exit":                         h.handleExit,
		"textDocument/didOpen":         h.live(h.handleTextDocumentDidOpen),
		"textDocument/didChange":       h.live(h.handleTextDocumentDidChange),
		"textDocument/didSave":         h.live(h.handleTextDocumentDidSave),
		"textDocument/didClose":        h.live(h.handleTextDocumentDidClose),
		"textDocument/formatting":      h.live(h.handleTextDocumentFormatting),
		"textDocument/rangeFormatting": h.live(h.handleTextDocumentRangeFormatting),
	}
}

// live rejects requests that arrive after shutdown.
func (h *Handler) live(fn jrpc2.Handler) jrpc2.Handler {
	return func(ctx context.Context, req *jrpc2.Request) (any, error) {
		h.mu.Lock()
		down := h.shutdown
		h.mu.Unlock()
		if down {
			return nil, jrpc2.Errorf(jrpc2.InvalidRequest, "server is shutting down")
		}
		h.logger.DebugContext(ctx, "handle", "method", req.Method())
		return fn(ctx, req)
	}
}

func isWindowsDrivePath(path string) bool {
	if len(path) < 4 {
		return false
	}
	return unicode.IsLetter(rune(path[0])) && path[1] == ':'
}

func isWindowsDriveURI(uri string) bool {
	if len(uri) < 4 {
		return false
	}
	return uri[0] == '/' && unicode.IsLetter(rune(uri[1])) && uri[2] == ':'
}

func fromURI(uri DocumentURI) (string, error) {
	u, err := url.ParseRequestURI(string(uri))
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("only file URIs are supported, got %v", u.Scheme)
	}
	if isWindowsDriveURI(u.Path) {
		u.Path = u.Path[1:]
	}
	return u.Path, nil
}

func toURI(path string) DocumentURI {
	if isWindowsDrivePath(path) {
		path = "/" + path
	}
	return DocumentURI((&url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(path),
	}).String())
}

func (h *Handler) logMessage(ctx context.Context, typ MessageType, message string) {
	h.mu.Lock()
	srv := h.srv
	h.mu.Unlock()
	if srv == nil {
		return
	}
	if err := srv.Notify(ctx, "window/logMessage", &LogMessageParams{
		Type:    typ,
		Message: message,
	}); err != nil {
		h.logger.DebugContext(ctx, "log message not delivered", "error", err)
	}
}

func (h *Handler) openFile(uri DocumentURI, languageID string, version int, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files[uri] = &File{
		LanguageID: languageID,
		Version:    version,
		Text:       text,
	}
}

func (h *Handler) updateFile(uri DocumentURI, text string, version int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.files[uri]
	if !ok {
		return fmt.Errorf("document not found: %v", uri)
	}
	f.Text = text
	f.Version = version
	return nil
}

func (h *Handler) closeFile(uri DocumentURI) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.files, uri)
}

// text returns a snapshot of an open document.
func (h *Handler) text(uri DocumentURI) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.files[uri]
	if !ok {
		return "", false
	}
	return f.Text, true
}
