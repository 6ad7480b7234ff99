package lsp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aureatesting/geppetto/pkg/ppfmt"
)

type session struct {
	t   *testing.T
	cli *jrpc2.Client
	dir string

	mu       sync.Mutex
	messages []LogMessageParams
}

func newSession(t *testing.T) *session {
	t.Helper()
	t.Setenv(ppfmt.ConfigEnv, "")
	s := &session{t: t, dir: t.TempDir()}
	require.NoError(t, os.Mkdir(filepath.Join(s.dir, ".git"), 0755))
	h := NewHandler(ppfmt.DefaultConfig(), nil)
	loc := server.NewLocal(h.Methods(), &server.LocalOptions{
		Server: &jrpc2.ServerOptions{AllowPush: true},
		Client: &jrpc2.ClientOptions{
			OnNotify: func(req *jrpc2.Request) {
				var msg LogMessageParams
				if req.Method() == "window/logMessage" && req.UnmarshalParams(&msg) == nil {
					s.mu.Lock()
					s.messages = append(s.messages, msg)
					s.mu.Unlock()
				}
			},
		},
	})
	h.SetServer(loc.Server)
	t.Cleanup(func() { loc.Close() })
	s.cli = loc.Client

	var res InitializeResult
	require.NoError(t, s.cli.CallResult(context.Background(), "initialize", InitializeParams{RootURI: toURI(s.dir)}, &res))
	assert.Equal(t, TDSKFull, res.Capabilities.TextDocumentSync)
	assert.True(t, res.Capabilities.DocumentFormattingProvider)
	assert.True(t, res.Capabilities.DocumentRangeFormattingProvider)
	require.NoError(t, s.cli.Notify(context.Background(), "initialized", struct{}{}))
	return s
}

func writeConfig(dir, content string) error {
	return os.WriteFile(filepath.Join(dir, ppfmt.ConfigFileName), []byte(content), 0644)
}

func (s *session) open(name, text string) DocumentURI {
	s.t.Helper()
	uri := toURI(filepath.Join(s.dir, name))
	require.NoError(s.t, s.cli.Notify(context.Background(), "textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{URI: uri, LanguageID: "puppet", Version: 1, Text: text},
	}))
	return uri
}

func (s *session) format(uri DocumentURI) []TextEdit {
	s.t.Helper()
	var edits []TextEdit
	require.NoError(s.t, s.cli.CallResult(context.Background(), "textDocument/formatting", DocumentFormattingParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Options:      FormattingOptions{TabSize: 2, InsertSpaces: true},
	}, &edits))
	return edits
}

func TestFormatting(t *testing.T) {
	s := newSession(t)
	uri := s.open("a.pp", "$x=[1,2 ,3]\n$y=1")

	edits := s.format(uri)
	require.Len(t, edits, 1)
	assert.Equal(t, Range{End: Position{Line: 1, Character: 4}}, edits[0].Range)
	assert.Equal(t, "$x = [1, 2, 3]\n$y = 1\n", edits[0].NewText)
}

func TestFormattingUnchanged(t *testing.T) {
	s := newSession(t)
	uri := s.open("a.pp", "$x = 1\n")
	assert.Empty(t, s.format(uri))
}

func TestFormattingFollowsChanges(t *testing.T) {
	s := newSession(t)
	uri := s.open("a.pp", "$x = 1\n")
	require.NoError(t, s.cli.Notify(context.Background(), "textDocument/didChange", DidChangeTextDocumentParams{
		TextDocument:   VersionedTextDocumentIdentifier{TextDocumentIdentifier{URI: uri}, 2},
		ContentChanges: []TextDocumentContentChangeEvent{{Text: "$x=2\n"}},
	}))

	edits := s.format(uri)
	require.Len(t, edits, 1)
	assert.Equal(t, "$x = 2\n", edits[0].NewText)
}

func TestFormattingParseError(t *testing.T) {
	s := newSession(t)
	uri := s.open("a.pp", "class {")
	assert.Empty(t, s.format(uri))

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.messages) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, MTWarning, s.messages[0].Type)
}

func TestRangeFormatting(t *testing.T) {
	s := newSession(t)
	uri := s.open("a.pp", "$a=1\n$b=2\n")

	var edits []TextEdit
	require.NoError(t, s.cli.CallResult(context.Background(), "textDocument/rangeFormatting", DocumentRangeFormattingParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Range:        Range{End: Position{Line: 0, Character: 4}},
	}, &edits))
	require.Len(t, edits, 1)
	assert.Equal(t, "$a = 1\n$b=2\n", edits[0].NewText)
	assert.Equal(t, Position{Line: 2}, edits[0].Range.End)
}

func TestProjectConfigWins(t *testing.T) {
	s := newSession(t)
	require.NoError(t, writeConfig(s.dir, "indent = \"    \"\n"))
	uri := s.open("a.pp", "class foo {\n$x = 1\n}\n")

	edits := s.format(uri)
	require.Len(t, edits, 1)
	assert.Equal(t, "class foo {\n    $x = 1\n}\n", edits[0].NewText)
}

func TestEditorOptionsOutsideProject(t *testing.T) {
	s := newSession(t)
	uri := s.open("a.pp", "class foo {\n$x = 1\n}\n")

	var edits []TextEdit
	require.NoError(t, s.cli.CallResult(context.Background(), "textDocument/formatting", DocumentFormattingParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
		Options:      FormattingOptions{TabSize: 4, InsertSpaces: false},
	}, &edits))
	require.Len(t, edits, 1)
	assert.Equal(t, "class foo {\n\t$x = 1\n}\n", edits[0].NewText)
}

func TestClosedDocument(t *testing.T) {
	s := newSession(t)
	uri := s.open("a.pp", "$x=1\n")
	require.NoError(t, s.cli.Notify(context.Background(), "textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	}))

	_, err := s.cli.Call(context.Background(), "textDocument/formatting", DocumentFormattingParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})
	var rpcErr *jrpc2.Error
	require.True(t, errors.As(err, &rpcErr), "%v", err)
	assert.Equal(t, jrpc2.InvalidParams, rpcErr.Code)
}

func TestShutdown(t *testing.T) {
	s := newSession(t)
	uri := s.open("a.pp", "$x=1\n")
	_, err := s.cli.Call(context.Background(), "shutdown", nil)
	require.NoError(t, err)

	_, err = s.cli.Call(context.Background(), "textDocument/formatting", DocumentFormattingParams{
		TextDocument: TextDocumentIdentifier{URI: uri},
	})
	var rpcErr *jrpc2.Error
	require.True(t, errors.As(err, &rpcErr), "%v", err)
	assert.Equal(t, jrpc2.InvalidRequest, rpcErr.Code)
}

func TestPositions(t *testing.T) {
	text := "ab\n€𝄞x\n"
	assert.Equal(t, 0, offsetOf(text, Position{}))
	assert.Equal(t, 2, offsetOf(text, Position{Character: 9}))
	assert.Equal(t, 3, offsetOf(text, Position{Line: 1}))
	assert.Equal(t, 6, offsetOf(text, Position{Line: 1, Character: 1}))
	assert.Equal(t, 10, offsetOf(text, Position{Line: 1, Character: 3}))
	assert.Equal(t, len(text), offsetOf(text, Position{Line: 5}))

	assert.Equal(t, Position{Line: 2}, endPosition(text))
	assert.Equal(t, Position{Line: 1, Character: 4}, endPosition("ab\n€𝄞x"))
}

func TestURIs(t *testing.T) {
	path, err := fromURI(toURI("/tmp/a b.pp"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/a b.pp", path)

	_, err = fromURI("https://example.com/a.pp")
	require.Error(t, err)
}
