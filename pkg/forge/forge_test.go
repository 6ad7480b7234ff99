package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeForge serves a tiny Forge with one owner, two modules and a release.
type fakeForge struct {
	mu         sync.Mutex
	failures   int // remaining requests answered with 503
	requestIDs []string
}

func (f *fakeForge) router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.requestIDs = append(f.requestIDs, r.Header.Get(RequestIDHeader))
			fail := f.failures > 0
			if fail {
				f.failures--
			}
			f.mu.Unlock()
			if fail {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/v3/users/{name}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "name") != "puppetlabs" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, Owner{Slug: "puppetlabs", Username: "puppetlabs", ModuleCount: 2})
	})
	r.Get("/v3/modules/{slug}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "slug") != "puppetlabs-stdlib" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, Module{
			Slug:  "puppetlabs-stdlib",
			Name:  "stdlib",
			Owner: OwnerRef{Slug: "puppetlabs", Username: "puppetlabs"},
			CurrentRelease: &Release{
				Slug:    "puppetlabs-stdlib-4.1.0",
				Version: "4.1.0",
				FileURI: "/v3/files/puppetlabs-stdlib-4.1.0.tar.gz",
			},
		})
	})
	r.Get("/v3/modules", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("owner") != "puppetlabs" {
			writeJSON(w, page[Module]{Results: []Module{}})
			return
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		names := []string{"stdlib", "concat"}
		p := page[Module]{
			Pagination: Pagination{Limit: 1, Offset: offset, Total: len(names)},
			Results:    []Module{{Slug: "puppetlabs-" + names[offset], Name: names[offset]}},
		}
		if offset+1 < len(names) {
			p.Pagination.Next = fmt.Sprintf("/v3/modules?limit=1&offset=%d&owner=puppetlabs", offset+1)
		}
		writeJSON(w, p)
	})
	r.Get("/v3/releases", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, page[Release]{Results: []Release{
			{Slug: r.URL.Query().Get("module") + "-4.1.0", Version: "4.1.0"},
		}})
	})
	r.Get("/v3/releases/{slug}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "slug") != "puppetlabs-stdlib-4.1.0" {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, Release{Slug: "puppetlabs-stdlib-4.1.0", Version: "4.1.0", FileSize: 7})
	})
	r.Get("/v3/files/{name}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "name") != "puppetlabs-stdlib-4.1.0.tar.gz" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("tarball"))
	})
	r.Get("/v3/teapot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, f *fakeForge) *Client {
	t.Helper()
	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL)
	c.Backoff = time.Millisecond
	return c
}

func TestOwner(t *testing.T) {
	c := newTestClient(t, &fakeForge{})
	o, err := c.Owner(context.Background(), "puppetlabs")
	require.NoError(t, err)
	assert.Equal(t, "puppetlabs", o.Username)
	assert.Equal(t, 2, o.ModuleCount)

	_, err = c.Owner(context.Background(), "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestModule(t *testing.T) {
	c := newTestClient(t, &fakeForge{})
	for _, slug := range []string{"puppetlabs-stdlib", "puppetlabs/stdlib"} {
		m, err := c.Module(context.Background(), slug)
		require.NoError(t, err, slug)
		assert.Equal(t, "stdlib", m.Name)
		assert.Equal(t, "puppetlabs", m.Owner.Username)
		require.NotNil(t, m.CurrentRelease)
		assert.Equal(t, "4.1.0", m.CurrentRelease.Version)
	}

	_, err := c.Module(context.Background(), "puppetlabs-nosuch")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRelease(t *testing.T) {
	c := newTestClient(t, &fakeForge{})
	r, err := c.Release(context.Background(), "puppetlabs-stdlib-4.1.0")
	require.NoError(t, err)
	assert.Equal(t, "4.1.0", r.Version)
	assert.Equal(t, int64(7), r.FileSize)
}

func TestListModulesFollowsPages(t *testing.T) {
	f := &fakeForge{}
	c := newTestClient(t, f)
	mods, err := c.ListModules(context.Background(), "puppetlabs")
	require.NoError(t, err)
	var names []string
	for _, m := range mods {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"stdlib", "concat"}, names)
	assert.Len(t, f.requestIDs, 2)

	mods, err = c.ListModules(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, mods)
}

func TestListReleases(t *testing.T) {
	c := newTestClient(t, &fakeForge{})
	rels, err := c.ListReleases(context.Background(), "puppetlabs/stdlib")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "puppetlabs-stdlib-4.1.0", rels[0].Slug)
}

func TestDownloadFile(t *testing.T) {
	c := newTestClient(t, &fakeForge{})
	var buf bytes.Buffer
	n, err := c.DownloadFile(context.Background(), "puppetlabs-stdlib-4.1.0.tar.gz", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "tarball", buf.String())

	_, err = c.DownloadFile(context.Background(), "missing.tar.gz", &buf)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRetriesServerErrors(t *testing.T) {
	f := &fakeForge{failures: 2}
	c := newTestClient(t, f)
	var logs bytes.Buffer
	c.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	o, err := c.Owner(context.Background(), "puppetlabs")
	require.NoError(t, err)
	assert.Equal(t, "puppetlabs", o.Username)

	require.Len(t, f.requestIDs, 3)
	seen := map[string]bool{}
	for _, id := range f.requestIDs {
		_, err := uuid.Parse(id)
		require.NoError(t, err, id)
		seen[id] = true
	}
	assert.Len(t, seen, 3, "every attempt has its own request ID")

	// The failed attempts are logged with their request IDs.
	assert.Equal(t, 2, strings.Count(logs.String(), "retrying forge request"))
	assert.Contains(t, logs.String(), "request_id="+f.requestIDs[0])
	assert.Contains(t, logs.String(), "request_id="+f.requestIDs[1])
	assert.NotContains(t, logs.String(), f.requestIDs[2])
}

func TestRetriesExhausted(t *testing.T) {
	f := &fakeForge{failures: 5}
	c := newTestClient(t, f)
	_, err := c.Owner(context.Background(), "puppetlabs")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "%v", err)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Len(t, f.requestIDs, 3)
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	f := &fakeForge{}
	c := newTestClient(t, f)
	err := c.get(context.Background(), "/v3/teapot", new(any))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "%v", err)
	assert.Equal(t, http.StatusTeapot, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.RequestID)
	assert.Len(t, f.requestIDs, 1)
}

func TestRetryHonorsCancellation(t *testing.T) {
	f := &fakeForge{failures: 5}
	c := newTestClient(t, f)
	c.Backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		for {
			f.mu.Lock()
			n := len(f.requestIDs)
			f.mu.Unlock()
			if n > 0 {
				cancel()
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
	_, err := c.Owner(ctx, "puppetlabs")
	require.ErrorIs(t, err, context.Canceled)
}

func TestTransient(t *testing.T) {
	assert.True(t, transient(fmt.Errorf("%w: connection refused", ErrNetwork)))
	assert.True(t, transient(&APIError{StatusCode: http.StatusBadGateway}))
	assert.False(t, transient(&APIError{StatusCode: http.StatusTeapot}))
	assert.False(t, transient(fmt.Errorf("%w: /v3/users/x", ErrNotFound)))
	assert.False(t, transient(context.Canceled))
}

func TestBackoffWait(t *testing.T) {
	b := backoff{attempts: 3, delay: 5 * time.Millisecond}
	start := time.Now()
	require.NoError(t, b.wait(context.Background(), 1))
	require.NoError(t, b.wait(context.Background(), 2))
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond, "the second wait is twice the first")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b.delay = time.Hour
	require.ErrorIs(t, b.wait(ctx, 1), context.Canceled)
}

func TestRetryPolicyDefaults(t *testing.T) {
	assert.Equal(t, backoff{attempts: 3, delay: time.Second}, (&Client{}).retryPolicy())
	assert.Equal(t, backoff{attempts: 5, delay: time.Millisecond}, (&Client{Attempts: 5, Backoff: time.Millisecond}).retryPolicy())
}
