// Package imagelookup finds a picture for a phone by name. Lookups are
// best-effort: every failure degrades to a placeholder image.
package imagelookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/phoneadvisor/internal/catalog"
)

// Placeholder is returned whenever no image can be found.
const Placeholder = "https://placehold.co/200x200/000000/FFFFFF?text=No+Image"

// DefaultEndpoint is the DuckDuckGo root. A lookup loads the search page
// there for a vqd token, then reads the first hit from its i.js image
// results.
const DefaultEndpoint = "https://duckduckgo.com/"

const (
	maxPageBytes = 2 << 20
	userAgent    = "Mozilla/5.0 (compatible; phoneadvisor/1.0)"
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	Endpoint string
	// Timeout bounds a single lookup. Default 5s.
	Timeout time.Duration
	// TTL is how long a found image is cached. Default 1h.
	TTL time.Duration
	// CleanupInterval is how often expired entries are purged. Default
	// 10m; negative disables the background purge.
	CleanupInterval time.Duration
	// Concurrency bounds LookupAll. Default 4.
	Concurrency int
	// Disabled makes every lookup return Placeholder without network access.
	Disabled   bool
	HTTPClient *http.Client
}

// Client looks up phone images over HTTP and caches the hits.
type Client struct {
	endpoint    string
	timeout     time.Duration
	concurrency int
	disabled    bool
	httpClient  *http.Client
	cache       *cache.Cache
	logger      *slog.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.CleanupInterval == 0 {
		opts.CleanupInterval = 10 * time.Minute
	}
	if opts.CleanupInterval < 0 {
		opts.CleanupInterval = 0
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	return &Client{
		endpoint:    opts.Endpoint,
		timeout:     opts.Timeout,
		concurrency: opts.Concurrency,
		disabled:    opts.Disabled,
		httpClient:  opts.HTTPClient,
		cache:       cache.New(opts.TTL, opts.CleanupInterval),
		logger:      slog.Default(),
	}
}

// Lookup returns an image URL for the phone called name, or Placeholder.
// It never fails; errors are logged at debug level.
func (c *Client) Lookup(ctx context.Context, name string) string {
	name = strings.TrimSpace(name)
	if c.disabled || name == "" {
		return Placeholder
	}
	key := strings.ToLower(name)
	if v, ok := c.cache.Get(key); ok {
		return v.(string)
	}

	img, err := c.fetch(ctx, name)
	if err != nil {
		c.logger.Debug("image lookup failed", "name", name, "error", err)
		return Placeholder
	}
	c.cache.Set(key, img, cache.DefaultExpiration)
	return img
}

// ForRow prefers the image the catalog carries for row and falls back to a
// lookup by name.
func (c *Client) ForRow(ctx context.Context, row catalog.Row) string {
	if u := strings.TrimSpace(row.ImageURL); u != "" {
		return u
	}
	return c.Lookup(ctx, row.Name())
}

// LookupAll resolves images for rows concurrently. The result is index
// aligned with rows.
func (c *Client) LookupAll(ctx context.Context, rows []catalog.Row) []string {
	out := make([]string, len(rows))
	if len(rows) == 0 {
		return out
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, row := range rows {
		g.Go(func() error {
			out[i] = c.ForRow(gCtx, row)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (c *Client) fetch(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	base, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}
	query := name + " phone gsmarena"

	pageURL := base.ResolveReference(&url.URL{Path: "./"})
	pq := url.Values{}
	pq.Set("q", query)
	pq.Set("iax", "images")
	pq.Set("ia", "images")
	pageURL.RawQuery = pq.Encode()

	body, err := c.get(ctx, pageURL, "")
	if err != nil {
		return "", fmt.Errorf("loading search page: %w", err)
	}
	token, err := searchToken(io.LimitReader(body, maxPageBytes))
	body.Close()
	if err != nil {
		return "", err
	}

	resultsURL := base.ResolveReference(&url.URL{Path: "i.js"})
	rq := url.Values{}
	rq.Set("l", "us-en")
	rq.Set("o", "json")
	rq.Set("q", query)
	rq.Set("vqd", token)
	rq.Set("f", ",,,,,")
	rq.Set("p", "1")
	resultsURL.RawQuery = rq.Encode()

	body, err = c.get(ctx, resultsURL, pageURL.String())
	if err != nil {
		return "", fmt.Errorf("loading image results: %w", err)
	}
	defer body.Close()

	var results imageResults
	if err := json.NewDecoder(io.LimitReader(body, maxPageBytes)).Decode(&results); err != nil {
		return "", fmt.Errorf("decoding image results: %w", err)
	}
	for _, r := range results.Results {
		if u := absoluteURL(r.Image, resultsURL); u != "" {
			return u, nil
		}
	}
	for _, r := range results.Results {
		if u := absoluteURL(r.Thumbnail, resultsURL); u != "" {
			return u, nil
		}
	}
	return "", fmt.Errorf("no image in results")
}

type imageResults struct {
	Results []struct {
		Image     string `json:"image"`
		Thumbnail string `json:"thumbnail"`
	} `json:"results"`
}

func (c *Client) get(ctx context.Context, u *url.URL, referer string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

var vqdPattern = regexp.MustCompile(`vqd\s*[=:]\s*["']?([0-9][0-9-]*)`)

// searchToken pulls the vqd token the image results endpoint requires out
// of the search page, either from a hidden input or from inline script.
func searchToken(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing search page: %w", err)
	}

	var token string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if token != "" {
			return
		}
		switch {
		case n.Type == html.ElementNode && n.Data == "input" && getAttr(n, "name") == "vqd":
			token = strings.TrimSpace(getAttr(n, "value"))
		case n.Type == html.TextNode && n.Parent != nil && n.Parent.Data == "script":
			if m := vqdPattern.FindStringSubmatch(n.Data); m != nil {
				token = m[1]
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	if token == "" {
		return "", fmt.Errorf("no search token on page")
	}
	return token, nil
}

func absoluteURL(raw string, base *url.URL) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme == "http" || abs.Scheme == "https" {
		return abs.String()
	}
	return ""
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
