package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperifyio/filmstats/internal/cache"
)

func TestGet_Success(t *testing.T) {
	var ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	c := &Client{UserAgent: "filmstats-test", Timeout: 2 * time.Second}
	body, ct, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", ct)
	assert.Equal(t, "<html><body>ok</body></html>", string(body))
	assert.Equal(t, "filmstats-test", ua)
}

func TestGet_NoRetryOn5xx(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := &Client{Timeout: 2 * time.Second}
	_, _, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status: 502")
	assert.Equal(t, 1, calls)
}

func TestGet_Conditional304_UsesCache(t *testing.T) {
	var calls int
	etag := `"abc123"`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		if calls > 1 {
			fmt.Fprintln(w, "unexpected")
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("ETag", etag)
		_, _ = w.Write([]byte("first"))
	}))
	defer srv.Close()

	c := &Client{Timeout: 2 * time.Second, Cache: &cache.PageCache{Dir: t.TempDir()}}

	b1, _, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "first", string(b1))

	b2, ct, err := c.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "first", string(b2))
	assert.Equal(t, "text/html", ct)
	assert.Equal(t, 2, calls)
}

func TestGet_RejectsNonHTTP(t *testing.T) {
	c := &Client{}
	_, _, err := c.Get(context.Background(), "file:///etc/hosts")
	assert.Error(t, err)
}

func TestGet_ContentTypeGating(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	c := &Client{Timeout: 2 * time.Second}
	_, _, err := c.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")
}

func TestGet_RedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/loop", http.StatusFound)
	}))
	defer srv.Close()

	c := &Client{Timeout: 2 * time.Second, RedirectMaxHops: 1}
	_, _, err := c.Get(context.Background(), srv.URL)
	assert.Error(t, err)
}
