package ioctx

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, io.Discard, StdoutFromContext(ctx))
	assert.Equal(t, io.Discard, StderrFromContext(ctx))
	assert.Same(t, slog.Default(), LoggerFromContext(ctx))
}

func TestRoundTrip(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&errOut, nil))

	ctx := StdoutToContext(context.Background(), &out)
	ctx = StderrToContext(ctx, &errOut)
	ctx = LoggerToContext(ctx, logger)

	assert.Same(t, &out, StdoutFromContext(ctx))
	assert.Same(t, &errOut, StderrFromContext(ctx))
	assert.Same(t, logger, LoggerFromContext(ctx))
}
