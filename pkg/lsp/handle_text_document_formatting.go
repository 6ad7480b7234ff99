package lsp

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/creachadair/jrpc2"

	"github.com/aureatesting/geppetto/pkg/layout"
	"github.com/aureatesting/geppetto/pkg/pp"
	"github.com/aureatesting/geppetto/pkg/ppfmt"
)

func (h *Handler) handleTextDocumentFormatting(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params DocumentFormattingParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	return h.format(ctx, params.TextDocument.URI, params.Options, nil)
}

func (h *Handler) handleTextDocumentRangeFormatting(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params DocumentRangeFormattingParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	return h.format(ctx, params.TextDocument.URI, params.Options, &params.Range)
}

// format returns a single edit replacing the whole document, or none when
// the document is already formatted or does not parse.
func (h *Handler) format(ctx context.Context, uri DocumentURI, opts FormattingOptions, rng *Range) ([]TextEdit, error) {
	text, ok := h.text(uri)
	if !ok {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "document not found: %v", uri)
	}

	fmtOpts := ppfmt.Options{
		Config: h.configFor(ctx, uri, opts),
		Logger: h.logger,
	}
	if rng != nil {
		start := offsetOf(text, rng.Start)
		end := offsetOf(text, rng.End)
		if end < start {
			start, end = end, start
		}
		fmtOpts.Region = &layout.Region{Offset: start, Length: end - start}
	}

	res, err := ppfmt.Source(string(uri), text, fmtOpts)
	if err != nil {
		h.logger.WarnContext(ctx, "formatting failed", "uri", uri, "error", err)
		var serr *pp.SyntaxError
		if errors.As(err, &serr) {
			h.logMessage(ctx, MTWarning, err.Error())
		}
		return []TextEdit{}, nil
	}
	if !res.Changed {
		return []TextEdit{}, nil
	}
	for _, issue := range res.Issues {
		h.logger.DebugContext(ctx, "layout issue", "uri", uri, "issue", issue)
	}

	return []TextEdit{
		{
			Range: Range{
				Start: Position{Line: 0, Character: 0},
				End:   endPosition(text),
			},
			NewText: res.Formatted,
		},
	}, nil
}

// configFor returns the configuration of the project containing the
// document. Outside a project the editor's indentation options apply.
func (h *Handler) configFor(ctx context.Context, uri DocumentURI, opts FormattingOptions) ppfmt.Config {
	if path, err := fromURI(uri); err == nil {
		found, config, err := ppfmt.FindConfig(filepath.Dir(path))
		switch {
		case err != nil:
			h.logger.WarnContext(ctx, "ignoring project configuration", "uri", uri, "error", err)
		case found != "":
			return config
		}
	}

	config := h.config
	if opts.TabSize > 0 {
		config.TabWidth = opts.TabSize
		if opts.InsertSpaces {
			config.Indent = strings.Repeat(" ", opts.TabSize)
		} else {
			config.Indent = "\t"
		}
	}
	return config
}

// endPosition is the position just past the last character of text.
func endPosition(text string) Position {
	line := strings.Count(text, "\n")
	last := text[strings.LastIndex(text, "\n")+1:]
	return Position{Line: line, Character: utf16Len(last)}
}

// offsetOf converts a position to a byte offset into text, clamping
// positions past the end of a line or of the text.
func offsetOf(text string, pos Position) int {
	off := 0
	for range pos.Line {
		i := strings.IndexByte(text[off:], '\n')
		if i < 0 {
			return len(text)
		}
		off += i + 1
	}
	units := 0
	for off < len(text) && text[off] != '\n' && units < pos.Character {
		r, size := utf8.DecodeRuneInString(text[off:])
		units += utf16.RuneLen(r)
		off += size
	}
	return off
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
