package discovery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// DefaultUserAgent is sent with every page request.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// maxBodySize caps how much of a response is read.
const maxBodySize = 10 << 20

// PageSource loads a page and parses it.
type PageSource interface {
	Fetch(ctx context.Context, pageURL string) (*goquery.Document, error)
}

// Proxy holds proxy URLs per target scheme. Empty fields mean direct.
type Proxy struct {
	HTTP  string
	HTTPS string
}

// For returns the proxy URL to use for target, or "" for none.
func (p Proxy) For(target *url.URL) string {
	if target.Scheme == "https" {
		return p.HTTPS
	}
	return p.HTTP
}

// HTTPSource fetches pages over plain HTTP.
type HTTPSource struct {
	client    *http.Client
	userAgent string
	retry     RetryConfig
}

// NewHTTPSource creates an HTTP page source. Each request goes through the
// proxy matching its URL scheme.
func NewHTTPSource(timeout time.Duration, proxy Proxy, userAgent string, retry RetryConfig) *HTTPSource {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(req *http.Request) (*url.URL, error) {
		p := proxy.For(req.URL)
		if p == "" {
			return nil, nil
		}
		return url.Parse(p)
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &HTTPSource{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		userAgent: userAgent,
		retry:     retry,
	}
}

// Client returns the underlying HTTP client.
func (s *HTTPSource) Client() *http.Client {
	return s.client
}

// UserAgent returns the User-Agent sent with requests.
func (s *HTTPSource) UserAgent() string {
	return s.userAgent
}

// Fetch implements PageSource, retrying transient failures.
func (s *HTTPSource) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	var doc *goquery.Document
	err := WithRetry(ctx, s.retry, func() error {
		var err error
		doc, err = s.fetchOnce(ctx, pageURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, URL: pageURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	return parseHTML(body, resp.Header.Get("Content-Type"), resp.Request.URL)
}

// parseHTML decodes body to UTF-8 using the declared or sniffed charset and
// parses it.
func parseHTML(body []byte, contentType string, pageURL *url.URL) (*goquery.Document, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		reader = bytes.NewReader(body)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Url = pageURL
	return doc, nil
}

func parseSiteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid website URL: %w", err)
	}
	return u, nil
}
