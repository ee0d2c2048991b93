package templates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const maxTemplateResponseBytes = 10 * 1024 * 1024

// NewHTTPClient creates an HTTP client with safe defaults for catalog
// fetching: bounded redirects pinned to the original host.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) == 0 {
				return nil
			}
			if req.URL.Host != via[0].URL.Host {
				return errors.New("redirect to different host blocked")
			}
			if len(via) >= 5 {
				return errors.New("too many redirects")
			}
			return nil
		},
	}
}

// CatalogEntry is one downloadable template discovered in a remote catalog
// index page.
type CatalogEntry struct {
	Name string
	URL  string
}

// templateExtensions marks which linked files count as templates.
var templateExtensions = map[string]struct{}{
	".latex": {}, ".tex": {}, ".docx": {}, ".html": {}, ".html5": {},
}

// ParseCatalog extracts template download links from a catalog index page.
// Any anchor pointing at a file with a known template extension counts.
func ParseCatalog(baseURL string, r io.Reader) ([]CatalogEntry, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse catalog URL: %w", err)
	}

	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse catalog page: %w", err)
	}

	seen := make(map[string]struct{})
	var entries []CatalogEntry
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if href := attrValue(n, "href"); href != "" {
				if entry, ok := catalogEntry(base, href); ok {
					if _, dup := seen[entry.URL]; !dup {
						seen[entry.URL] = struct{}{}
						entries = append(entries, entry)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func catalogEntry(base *url.URL, href string) (CatalogEntry, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return CatalogEntry{}, false
	}
	resolved := base.ResolveReference(ref)
	name := path.Base(resolved.Path)
	if _, ok := templateExtensions[strings.ToLower(path.Ext(name))]; !ok {
		return CatalogEntry{}, false
	}
	return CatalogEntry{Name: name, URL: resolved.String()}, true
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// FetchCatalog retrieves and parses a remote catalog index.
func FetchCatalog(ctx context.Context, catalogURL string, client *http.Client) ([]CatalogEntry, error) {
	if client == nil {
		client = NewHTTPClient()
	}
	if err := validateURL(catalogURL); err != nil {
		return nil, err
	}
	body, err := fetch(ctx, catalogURL, client)
	if err != nil {
		return nil, err
	}
	return ParseCatalog(catalogURL, strings.NewReader(string(body)))
}

// Download fetches one template into the templates directory.
func Download(ctx context.Context, entry CatalogEntry, dir string, client *http.Client) (string, error) {
	if client == nil {
		client = NewHTTPClient()
	}
	if err := validateURL(entry.URL); err != nil {
		return "", err
	}
	body, err := fetch(ctx, entry.URL, client)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create templates directory: %w", err)
	}
	dst := filepath.Join(dir, entry.Name)
	if err := os.WriteFile(dst, body, 0o644); err != nil {
		return "", fmt.Errorf("write template: %w", err)
	}
	return dst, nil
}

func fetch(ctx context.Context, pageURL string, client *http.Client) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", pageURL, resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, maxTemplateResponseBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) > maxTemplateResponseBytes {
		return nil, errors.New("response too large")
	}
	return data, nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s", parsed.Scheme)
	}
	return nil
}
