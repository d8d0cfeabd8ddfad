package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/filmstats/internal/cache"
)

// DefaultUserAgent identifies the job to the source site.
const DefaultUserAgent = "filmstats/1.0 (+https://github.com/hyperifyio/filmstats)"

// Client issues single-attempt GETs for HTML documents with a redirect cap,
// content-type gating, and optional conditional revalidation against a
// page cache. Failures are returned as-is; nothing is retried.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Timeout bounds each request. Zero leaves the HTTP client's timeout.
	Timeout time.Duration
	// Cache is optional on-disk storage for fetched bodies and validators.
	Cache *cache.PageCache
	// If true, skip conditional headers but still save the latest response.
	BypassCache bool
	// RedirectMaxHops caps redirect following. Zero means default (5).
	RedirectMaxHops int

	once sync.Once
	rc   *resty.Client
}

func (c *Client) resty() *resty.Client {
	c.once.Do(func() {
		base := &http.Client{}
		if c.HTTPClient != nil {
			// Copy so the redirect policy does not leak into the caller's client.
			cp := *c.HTTPClient
			base = &cp
		}
		rc := resty.NewWithClient(base)
		if c.Timeout > 0 {
			rc.SetTimeout(c.Timeout)
		}
		ua := c.UserAgent
		if ua == "" {
			ua = DefaultUserAgent
		}
		rc.SetHeader("User-Agent", ua)
		max := c.RedirectMaxHops
		if max <= 0 {
			max = 5
		}
		rc.SetRedirectPolicy(resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
			if len(via) >= max {
				return errors.New("too many redirects")
			}
			if !isHTTPScheme(req.URL) {
				return errors.New("redirect to unsupported scheme")
			}
			return nil
		}))
		c.rc = rc
	})
	return c.rc
}

// Get fetches rawURL and returns its body and content type.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse url: %w", err)
	}
	if !isHTTPScheme(u) {
		return nil, "", fmt.Errorf("unsupported URL scheme: %q", rawURL)
	}

	req := c.resty().R().SetContext(ctx)
	if c.Cache != nil && !c.BypassCache {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			if meta.ETag != "" {
				req.SetHeader("If-None-Match", meta.ETag)
			}
			if meta.LastModified != "" {
				req.SetHeader("If-Modified-Since", meta.LastModified)
			}
		}
	}

	resp, err := req.Get(rawURL)
	if err != nil {
		return nil, "", err
	}
	status := resp.StatusCode()
	ct := resp.Header().Get("Content-Type")

	if status == http.StatusNotModified && c.Cache != nil {
		body, err := c.Cache.LoadBody(ctx, rawURL)
		if err != nil {
			return nil, "", fmt.Errorf("not modified but cache unreadable: %w", err)
		}
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && ct == "" {
			ct = meta.ContentType
		}
		log.Debug().Str("url", rawURL).Msg("served from cache")
		return body, ct, nil
	}
	if status < 200 || status > 299 {
		return nil, "", fmt.Errorf("unexpected status: %d", status)
	}
	if !isAllowedHTMLContentType(ct) {
		return nil, "", fmt.Errorf("unsupported content type: %s", ct)
	}
	body := resp.Body()
	if c.Cache != nil {
		entry := cache.Entry{
			URL:          rawURL,
			ContentType:  ct,
			ETag:         resp.Header().Get("ETag"),
			LastModified: resp.Header().Get("Last-Modified"),
		}
		if err := c.Cache.Save(ctx, entry, body); err != nil {
			log.Warn().Err(err).Str("url", rawURL).Msg("cache save failed")
		}
	}
	return body, ct, nil
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	// allow text/html variants and application/xhtml+xml
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
