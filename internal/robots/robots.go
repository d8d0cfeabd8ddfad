// Package robots evaluates a site's robots.txt before the source page is
// fetched.
package robots

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// Rules are the parsed groups of one robots.txt.
type Rules struct {
	Groups []Group
}

// Group is one run of User-agent lines and the directives that follow them.
type Group struct {
	Agents   []string
	Allow    []string
	Disallow []string
}

// Parse reads robots.txt text. Unknown directives are ignored.
func Parse(text string) Rules {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var groups []Group
	current := Group{}
	flush := func() {
		if len(current.Agents) == 0 && len(current.Allow) == 0 && len(current.Disallow) == 0 {
			return
		}
		groups = append(groups, current)
		current = Group{}
	}
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		switch key {
		case "user-agent", "useragent":
			if len(current.Allow) > 0 || len(current.Disallow) > 0 {
				flush()
			}
			current.Agents = append(current.Agents, strings.ToLower(val))
		case "allow":
			current.Allow = append(current.Allow, val)
		case "disallow":
			current.Disallow = append(current.Disallow, val)
		}
	}
	flush()
	return Rules{Groups: groups}
}

// Allowed reports whether path (optionally with a query) may be fetched by
// userAgent. The most specific matching group applies; within it the longest
// matching pattern wins and Allow wins ties. No match means allowed.
func (r Rules) Allowed(userAgent, path string) bool {
	g, ok := r.group(userAgent)
	if !ok {
		return true
	}
	best, allow := -1, true
	consider := func(patterns []string, isAllow bool) {
		for _, p := range patterns {
			if p == "" || !matches(p, path) {
				continue
			}
			score := specificity(p)
			if score > best || (score == best && isAllow && !allow) {
				best, allow = score, isAllow
			}
		}
	}
	consider(g.Disallow, false)
	consider(g.Allow, true)
	return best == -1 || allow
}

// group picks the longest agent token contained in userAgent; "*" matches
// anything but loses to every named match. Ties keep the first group.
func (r Rules) group(userAgent string) (Group, bool) {
	ua := strings.ToLower(userAgent)
	idx, best := -1, -1
	for i, g := range r.Groups {
		for _, a := range g.Agents {
			score := -1
			switch {
			case a == "*":
				score = 0
			case a != "" && strings.Contains(ua, a):
				score = len(a)
			}
			if score > best {
				idx, best = i, score
			}
		}
	}
	if idx < 0 {
		return Group{}, false
	}
	return r.Groups[idx], true
}

// matches applies a robots pattern anchored at the start of path, with '*'
// matching any run and a trailing '$' anchoring the end.
func matches(pattern, path string) bool {
	p, anchored := strings.CutSuffix(pattern, "$")
	parts := strings.Split(p, "*")
	for i := range parts {
		parts[i] = regexp.QuoteMeta(parts[i])
	}
	expr := "^" + strings.Join(parts, ".*")
	if anchored {
		expr += "$"
	}
	return regexp.MustCompile(expr).MatchString(path)
}

func specificity(pattern string) int {
	return len(strings.ReplaceAll(strings.TrimSuffix(pattern, "$"), "*", ""))
}

// Checker fetches robots.txt for a page's host and evaluates the page path.
type Checker struct {
	HTTPClient *http.Client
	UserAgent  string
}

// Check returns nil when pageURL may be fetched, ErrDisallowed when it may
// not, or the error that prevented reading robots.txt. A missing robots.txt
// (404 or 410) allows everything.
func (c Checker) Check(ctx context.Context, pageURL string) error {
	u, err := url.Parse(pageURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()

	hc := c.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	resp, err := resty.NewWithClient(hc).R().
		SetContext(ctx).
		SetHeader("User-Agent", c.UserAgent).
		Get(robotsURL)
	if err != nil {
		return fmt.Errorf("fetch robots.txt: %w", err)
	}
	switch code := resp.StatusCode(); {
	case code == http.StatusNotFound || code == http.StatusGone:
		log.Debug().Str("url", robotsURL).Int("status", code).Msg("no robots.txt")
		return nil
	case code < 200 || code > 299:
		return fmt.Errorf("fetch robots.txt: unexpected status: %d", code)
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	if !Parse(resp.String()).Allowed(c.UserAgent, path) {
		return fmt.Errorf("%s: %w", pageURL, ErrDisallowed)
	}
	return nil
}
