// Package discovery scrapes registered websites: it fetches each site's
// list page, finds article links, extracts and classifies the articles, and
// stores the new ones.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/newsscraper/articles"
	"github.com/pevans/newsscraper/scrapelog"
	"github.com/pevans/newsscraper/sentiment"
	"github.com/pevans/newsscraper/websites"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrWebsiteNotFound is returned by Scrape for an unknown website.
var ErrWebsiteNotFound = websites.ErrWebsiteNotFound

// DefaultMaxArticles is how many article pages one run fetches at most.
const DefaultMaxArticles = 10

// WebsiteStore is the website lookup the engine needs.
type WebsiteStore interface {
	Get(id uuid.UUID) (*websites.Website, error)
	List(filter websites.Filter) ([]websites.Website, error)
}

// ArticleStore is the article persistence the engine needs.
type ArticleStore interface {
	URLExists(url string) (bool, error)
	Insert(a *articles.Article) (bool, error)
}

// LogStore records scrape runs.
type LogStore interface {
	Start(websiteID uuid.UUID, websiteName string) (*scrapelog.Log, error)
	Finish(l *scrapelog.Log, outcome scrapelog.Outcome) error
}

// Options tunes the engine.
type Options struct {
	Timeout time.Duration
	// MaxRetries is how many times a failed fetch is retried.
	MaxRetries       int
	Delay            time.Duration
	MaxArticles      int
	RenderTimeout    time.Duration
	RenderSettle     time.Duration
	UserAgent        string
	Proxy            Proxy
	ChromePath       string
	SentimentEnabled bool
	// RetryBackoff overrides the initial retry backoff when positive.
	RetryBackoff time.Duration
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:          30 * time.Second,
		MaxRetries:       3,
		Delay:            time.Second,
		MaxArticles:      DefaultMaxArticles,
		RenderTimeout:    30 * time.Second,
		RenderSettle:     2 * time.Second,
		UserAgent:        DefaultUserAgent,
		SentimentEnabled: true,
	}
}

// Result reports one website's scrape.
type Result struct {
	WebsiteID       uuid.UUID     `json:"website_id"`
	WebsiteName     string        `json:"website_name"`
	Success         bool          `json:"success"`
	ArticlesScraped int           `json:"articles_scraped"`
	Duplicates      int           `json:"duplicates"`
	Failed          int           `json:"failed"`
	Errors          []string      `json:"errors"`
	Duration        time.Duration `json:"duration"`
}

// Summary reports a ScrapeAll run.
type Summary struct {
	WebsitesScraped int       `json:"websites_scraped"`
	TotalArticles   int       `json:"total_articles"`
	Errors          []string  `json:"errors"`
	Results         []*Result `json:"results"`
}

// browser is a page source that holds resources until closed.
type browser interface {
	PageSource
	Close() error
}

// Engine scrapes websites into the article store.
type Engine struct {
	websites  WebsiteStore
	articles  ArticleStore
	logs      LogStore
	analyzers *sentiment.Registry
	opts      Options
	limiter   *DomainLimiter

	// openBrowser starts a rendering page source for a website.
	openBrowser func(ctx context.Context, w *websites.Website) (browser, error)
	// progress, when set, is called after each website in ScrapeAll.
	progress func(*Result)
}

// NewEngine creates a scraping engine. analyzers may be nil, in which case
// keyword sentiment is used for every site.
func NewEngine(ws WebsiteStore, as ArticleStore, ls LogStore, analyzers *sentiment.Registry, opts Options) *Engine {
	if opts.MaxArticles <= 0 {
		opts.MaxArticles = DefaultMaxArticles
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if analyzers == nil {
		analyzers = sentiment.NewRegistry()
	}

	e := &Engine{
		websites:  ws,
		articles:  as,
		logs:      ls,
		analyzers: analyzers,
		opts:      opts,
		limiter:   NewDomainLimiter(opts.Delay),
	}
	e.openBrowser = e.openChrome
	return e
}

// OnProgress registers fn to be called after each website in ScrapeAll.
func (e *Engine) OnProgress(fn func(*Result)) {
	e.progress = fn
}

func (e *Engine) retryConfig() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = max(e.opts.MaxRetries, 0) + 1
	if e.opts.RetryBackoff > 0 {
		cfg.InitialBackoff = e.opts.RetryBackoff
	}
	return cfg
}

// proxyFor returns the website's proxy, or the global one when the site has
// none configured.
func (e *Engine) proxyFor(w *websites.Website) Proxy {
	if w.ProxyEnabled && (w.ProxyHTTP != "" || w.ProxyHTTPS != "") {
		return Proxy{HTTP: w.ProxyHTTP, HTTPS: w.ProxyHTTPS}
	}
	return e.opts.Proxy
}

func (e *Engine) openChrome(ctx context.Context, w *websites.Website) (browser, error) {
	u, err := parseSiteURL(w.URL)
	if err != nil {
		return nil, err
	}
	return NewChromeSource(ctx, ChromeOptions{
		ExecPath:  e.opts.ChromePath,
		Proxy:     e.proxyFor(w).For(u),
		UserAgent: e.opts.UserAgent,
		Timeout:   e.opts.RenderTimeout,
		Settle:    e.opts.RenderSettle,
	})
}

// Scrape scrapes one website by ID.
func (e *Engine) Scrape(ctx context.Context, id uuid.UUID) (*Result, error) {
	w, err := e.websites.Get(id)
	if err != nil {
		return nil, err
	}
	return e.ScrapeWebsite(ctx, w), nil
}

// ScrapeAll scrapes every active website in turn.
func (e *Engine) ScrapeAll(ctx context.Context) *Summary {
	summary := &Summary{Errors: []string{}, Results: []*Result{}}

	active := true
	sites, err := e.websites.List(websites.Filter{Active: &active})
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("failed to list websites: %v", err))
		return summary
	}

	for i := range sites {
		if ctx.Err() != nil {
			summary.Errors = append(summary.Errors, ctx.Err().Error())
			break
		}

		res := e.ScrapeWebsite(ctx, &sites[i])
		summary.Results = append(summary.Results, res)
		summary.WebsitesScraped++
		summary.TotalArticles += res.ArticlesScraped
		for _, msg := range res.Errors {
			summary.Errors = append(summary.Errors, sites[i].Name+": "+msg)
		}
		if e.progress != nil {
			e.progress(res)
		}
	}

	log.Info().
		Int("websites", summary.WebsitesScraped).
		Int("articles", summary.TotalArticles).
		Int("errors", len(summary.Errors)).
		Msg("Scrape of all websites finished")

	return summary
}

// ScrapeWebsite runs the full pipeline for one website. Failures are
// reported in the result, never returned.
func (e *Engine) ScrapeWebsite(ctx context.Context, w *websites.Website) *Result {
	start := time.Now()
	res := &Result{WebsiteID: w.ID, WebsiteName: w.Name, Errors: []string{}}
	logger := log.With().Str("website", w.Name).Str("url", w.URL).Logger()

	entry, err := e.logs.Start(w.ID, w.Name)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to write scrape log")
	}

	logger.Info().Bool("render_js", w.RenderJS).Msg("Scrape started")

	if err := e.scrape(ctx, w, res, logger); err != nil {
		res.Errors = append([]string{err.Error()}, res.Errors...)
		logger.Error().Err(err).Msg("Scrape failed")
	} else {
		res.Success = true
	}
	res.Duration = time.Since(start)

	if entry != nil {
		err := e.logs.Finish(entry, scrapelog.Outcome{
			Success:         res.Success,
			ArticlesScraped: res.ArticlesScraped,
			Errors:          res.Errors,
		})
		if err != nil {
			logger.Error().Err(err).Msg("Failed to finish scrape log")
		}
	}

	logger.Info().
		Bool("success", res.Success).
		Int("articles", res.ArticlesScraped).
		Int("duplicates", res.Duplicates).
		Int("failed", res.Failed).
		Dur("duration", res.Duration).
		Msg("Scrape finished")

	return res
}

func (e *Engine) scrape(ctx context.Context, w *websites.Website, res *Result, logger zerolog.Logger) error {
	httpSrc := NewHTTPSource(e.opts.Timeout, e.proxyFor(w), e.opts.UserAgent, e.retryConfig())

	var src PageSource = httpSrc
	if w.RenderJS {
		b, err := e.openBrowser(ctx, w)
		if err != nil {
			logger.Error().Err(err).Msg("JavaScript rendering unavailable, falling back to HTTP")
		} else {
			defer b.Close()
			src = b
		}
	}

	if err := e.limiter.Wait(ctx, w.URL); err != nil {
		return err
	}
	doc, err := src.Fetch(ctx, w.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch website: %w", err)
	}

	sel := w.Selectors.WithDefaults()
	links := FindLinks(doc, w.URL, sel.LinkSelectors())
	entries := map[string]FeedEntry{}
	if len(links) == 0 {
		for _, entry := range FeedEntries(ctx, httpSrc, doc, w.URL) {
			links = append(links, entry.Link)
			entries[entry.Link] = entry
		}
		if len(links) > 0 {
			logger.Debug().Int("links", len(links)).Msg("Using links from declared feed")
		}
	}
	if len(links) == 0 {
		logger.Warn().Msg("No article links found")
		return nil
	}
	if len(links) > e.opts.MaxArticles {
		links = links[:e.opts.MaxArticles]
	}

	analyzer := e.analyzers.For(w.SentimentMethod)

	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return err
		}

		exists, err := e.articles.URLExists(link)
		if err != nil {
			return fmt.Errorf("failed to check for existing article: %w", err)
		}
		if exists {
			res.Duplicates++
			continue
		}

		if err := e.limiter.Wait(ctx, link); err != nil {
			return err
		}

		article, err := e.scrapeArticle(ctx, src, w, link, entries[link], analyzer)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", link, err))
			logger.Warn().Err(err).Str("article", link).Msg("Failed to scrape article")
			continue
		}

		inserted, err := e.articles.Insert(article)
		if err != nil {
			return fmt.Errorf("failed to store article: %w", err)
		}
		if inserted {
			res.ArticlesScraped++
		} else {
			res.Duplicates++
		}
	}

	return nil
}

// scrapeArticle fetches and extracts one article. entry is the zero
// FeedEntry unless the link came from a feed.
func (e *Engine) scrapeArticle(ctx context.Context, src PageSource, w *websites.Website, link string, entry FeedEntry, analyzer sentiment.Analyzer) (*articles.Article, error) {
	doc, err := src.Fetch(ctx, link)
	if err != nil {
		return nil, err
	}

	scraped := ExtractArticle(doc, w.Selectors, link, w.Category)
	scraped.ApplyFeedEntry(entry)
	if err := ValidateScrapedArticle(scraped); err != nil {
		return nil, err
	}

	a := &articles.Article{
		WebsiteID:       w.ID,
		WebsiteName:     w.Name,
		Title:           scraped.Title,
		URL:             link,
		Content:         scraped.Content,
		ContentMarkdown: scraped.ContentMarkdown,
		Summary:         articles.Summarize(scraped.Content),
		Author:          scraped.Author,
		PublishedAt:     scraped.PublishedAt,
		Category:        scraped.Category,
		ImageURL:        scraped.ImageURL,
		ScrapedAt:       time.Now(),
	}

	if e.opts.SentimentEnabled {
		text := scraped.Content
		if text == "" {
			text = scraped.Title
		}
		s := analyzer.Analyze(ctx, text)
		a.Sentiment = s.Label
		a.SentimentScore = s.Score
	}

	return a, nil
}
