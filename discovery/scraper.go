package discovery

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/pevans/newsscraper/scraper"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// maxTitleLength bounds stored titles.
const maxTitleLength = 500

// ScrapedArticle holds extracted article data from a web page before
// it is stored.
type ScrapedArticle struct {
	Title string
	// Content is plain text with one line per paragraph.
	Content         string
	ContentMarkdown string
	URL             string
	Author          string
	Category        string
	ImageURL        string
	PublishedAt     *time.Time
}

// match is the first element a selector list found, with its normalised
// text.
type match struct {
	sel  *goquery.Selection
	text string
}

// firstMatch returns the first element, over selectors in order, whose
// normalised text is non-empty.
func firstMatch(doc *goquery.Document, selectors string) *match {
	for _, sel := range scraper.SplitSelectors(selectors) {
		found := doc.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if text := normalizeSpace(found.Text()); text != "" {
			return &match{sel: found, text: text}
		}
	}
	return nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// blockSelector names the elements that start a new paragraph of text.
const blockSelector = "p, div, li, h1, h2, h3, h4, h5, h6, blockquote, pre, tr, br"

// blockText returns the text of sel with one line per paragraph.
func blockText(sel *goquery.Selection) string {
	clone := sel.Clone()
	clone.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AfterNodes(&html.Node{Type: html.TextNode, Data: "\n"})
	})
	return normalizeLines(clone.Text())
}

// normalizeLines normalises spacing within each line and drops blank lines.
func normalizeLines(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = normalizeSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// ExtractArticle extracts article data from a page using the website's
// selectors. Fields the selectors miss fall back to page metadata, then to
// readability, and the category to fallbackCategory.
func ExtractArticle(doc *goquery.Document, sel scraper.Selectors, articleURL, fallbackCategory string) *ScrapedArticle {
	sel = sel.WithDefaults()
	article := &ScrapedArticle{URL: articleURL}

	if m := firstMatch(doc, sel.Title); m != nil {
		article.Title = m.text
	} else if og := metaContent(doc, `meta[property="og:title"]`); og != "" {
		article.Title = normalizeSpace(og)
	}

	if m := firstMatch(doc, sel.Content); m != nil {
		article.Content = blockText(m.sel)
		article.ContentMarkdown = toMarkdown(m.sel)
	}

	article.PublishedAt = extractDate(doc, sel.Date)

	if m := firstMatch(doc, sel.Category); m != nil {
		article.Category = m.text
	}
	if article.Category == "" {
		article.Category = fallbackCategory
	}

	if sel.Author != "" {
		if m := firstMatch(doc, sel.Author); m != nil {
			article.Author = cleanAuthor(m.text)
		}
	}
	if article.Author == "" {
		article.Author = cleanAuthor(metaContent(doc, `meta[name="author"]`))
	}

	article.ImageURL = resolveImage(articleURL, metaContent(doc, `meta[property="og:image"]`))

	if article.Content == "" || article.Title == "" {
		applyReadability(doc, article)
	}

	if len([]rune(article.Title)) > maxTitleLength {
		article.Title = string([]rune(article.Title)[:maxTitleLength])
	}

	return article
}

// extractDate prefers a matched element's datetime attribute over its text.
func extractDate(doc *goquery.Document, selectors string) *time.Time {
	for _, s := range scraper.SplitSelectors(selectors) {
		found := doc.Find(s).First()
		if found.Length() == 0 {
			continue
		}
		if dt, ok := found.Attr("datetime"); ok {
			if t := ParseDate(dt); t != nil {
				return t
			}
		}
		if t := ParseDate(found.Text()); t != nil {
			return t
		}
	}

	if published := metaContent(doc, `meta[property="article:published_time"]`); published != "" {
		return ParseDate(published)
	}
	return nil
}

func cleanAuthor(author string) string {
	author = normalizeSpace(author)
	if len(author) > 3 && strings.EqualFold(author[:3], "by ") {
		author = strings.TrimSpace(author[3:])
	}
	return author
}

func resolveImage(pageURL, src string) string {
	if src == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func newMarkdownConverter() *md.Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	converter.Remove("script", "style", "noscript", "iframe", "form")
	return converter
}

func toMarkdown(sel *goquery.Selection) string {
	return strings.TrimSpace(newMarkdownConverter().Convert(sel))
}

// applyReadability fills in missing title, content, author and image using
// readability's main-content detection.
func applyReadability(doc *goquery.Document, article *ScrapedArticle) {
	html, err := doc.Html()
	if err != nil {
		return
	}
	pageURL, err := url.Parse(article.URL)
	if err != nil {
		return
	}

	parsed, err := readability.FromReader(strings.NewReader(html), pageURL)
	if err != nil {
		log.Debug().Err(err).Str("url", article.URL).Msg("Readability extraction failed")
		return
	}

	if article.Title == "" {
		article.Title = normalizeSpace(parsed.Title)
	}
	if article.Content == "" {
		article.Content = normalizeLines(parsed.TextContent)
		if parsed.Content != "" {
			if markdown, err := newMarkdownConverter().ConvertString(parsed.Content); err == nil {
				article.ContentMarkdown = strings.TrimSpace(markdown)
			}
		}
	}
	if article.Author == "" {
		article.Author = cleanAuthor(parsed.Byline)
	}
	if article.ImageURL == "" {
		article.ImageURL = resolveImage(article.URL, parsed.Image)
	}
}

// ValidateScrapedArticle checks an extracted article before it is stored.
// A published date before 1990 or in the future is dropped rather than
// rejected.
func ValidateScrapedArticle(article *ScrapedArticle) error {
	u, err := url.Parse(article.URL)
	if err != nil {
		return fmt.Errorf("invalid article URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("article URL must use http or https scheme")
	}

	if article.PublishedAt != nil {
		minDate := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
		// Allow a day of slack for sites that publish in a later timezone
		maxDate := time.Now().Add(24 * time.Hour)
		if article.PublishedAt.Before(minDate) || article.PublishedAt.After(maxDate) {
			article.PublishedAt = nil
		}
	}

	if article.Title == "" && article.Content == "" {
		return fmt.Errorf("no title or content found")
	}

	return nil
}
