package lsp

import (
	"context"

	"github.com/creachadair/jrpc2"
)

func (h *Handler) handleTextDocumentDidSave(ctx context.Context, req *jrpc2.Request) (any, error) {
	if !req.HasParams() {
		return nil, jrpc2.Errorf(jrpc2.InvalidParams, "missing parameters")
	}

	var params DidSaveTextDocumentParams
	if err := req.UnmarshalParams(&params); err != nil {
		return nil, err
	}

	if params.Text == nil {
		return nil, nil
	}
	h.mu.Lock()
	f, ok := h.files[params.TextDocument.URI]
	if ok {
		f.Text = *params.Text
	}
	h.mu.Unlock()
	return nil, nil
}
