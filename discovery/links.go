package discovery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxLinks is the most candidate links taken from one list page.
const MaxLinks = 20

// FindLinks returns the article URLs on a list page. Selectors are tried in
// order and the first that matches any element is used. Links are resolved
// against baseURL, deduplicated, capped at MaxLinks, and never include
// baseURL itself.
func FindLinks(doc *goquery.Document, baseURL string, selectors []string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	var matched *goquery.Selection
	for _, sel := range selectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			matched = found
			break
		}
	}
	if matched == nil {
		return nil
	}

	var hrefs []string
	matched.Each(func(_ int, s *goquery.Selection) {
		a := s
		if goquery.NodeName(s) != "a" {
			a = s.Find("a[href]").First()
		}
		href, _ := a.Attr("href")
		if usableHref(href) {
			hrefs = append(hrefs, href)
		}
	})
	if len(hrefs) > MaxLinks {
		hrefs = hrefs[:MaxLinks]
	}

	return resolveLinks(base, hrefs)
}

func usableHref(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" {
		return false
	}
	lower := strings.ToLower(href)
	return !strings.HasPrefix(lower, "#") &&
		!strings.HasPrefix(lower, "javascript:") &&
		!strings.HasPrefix(lower, "mailto:")
}

func resolveLinks(base *url.URL, hrefs []string) []string {
	self := normalizeURL(base)
	seen := map[string]bool{self: true}

	links := []string{}
	for _, href := range hrefs {
		abs, key, ok := resolveLink(base, href)
		if !ok || seen[key] {
			continue
		}
		seen[key] = true
		links = append(links, abs)
	}
	return links
}

// resolveLink resolves href against base, returning the absolute URL and
// its comparison key. Only http and https links are usable.
func resolveLink(base *url.URL, href string) (string, string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", "", false
	}
	abs.Fragment = ""
	return abs.String(), normalizeURL(abs), true
}

// normalizeURL is the comparison key for a URL: no fragment, no trailing
// slash.
func normalizeURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	return strings.TrimSuffix(c.String(), "/")
}
