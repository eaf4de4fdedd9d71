// Package articles stores scraped articles and answers the browse, search
// and dashboard queries made against them.
package articles

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pevans/newsscraper/dbutil"
)

var ErrArticleNotFound = errors.New("article not found")

// Sentiment labels.
const (
	Positive = "positive"
	Neutral  = "neutral"
	Negative = "negative"
)

const (
	NoTitle        = "(No title)"
	SummaryLength  = 200
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Article is one scraped news article.
type Article struct {
	ID              uuid.UUID  `json:"id"`
	WebsiteID       uuid.UUID  `json:"website_id"`
	WebsiteName     string     `json:"website_name"`
	Title           string     `json:"title"`
	URL             string     `json:"url"`
	Content         string     `json:"content,omitempty"`
	ContentMarkdown string     `json:"content_markdown,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	Author          string     `json:"author,omitempty"`
	PublishedAt     *time.Time `json:"published_date,omitempty"`
	Category        string     `json:"category,omitempty"`
	ImageURL        string     `json:"image_url,omitempty"`
	Sentiment       string     `json:"sentiment,omitempty"`
	SentimentScore  float64    `json:"sentiment_score"`
	IsRead          bool       `json:"is_read"`
	IsBookmarked    bool       `json:"is_bookmarked"`
	ScrapedAt       time.Time  `json:"scraped_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Summarize returns the first SummaryLength characters of content on one
// line, with an ellipsis when content was cut.
func Summarize(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(content) <= SummaryLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:SummaryLength]) + "..."
}

// Filter selects articles for List. Zero values mean "no constraint".
type Filter struct {
	WebsiteID  *uuid.UUID
	Category   string
	Sentiment  string
	Search     string
	Bookmarked *bool
	Since      *time.Time
	Until      *time.Time
	Page       int
	PerPage    int
}

func (f Filter) normalized() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
	return f
}

// Page is one page of List results.
type Page struct {
	Items   []Article `json:"items"`
	Total   int       `json:"total"`
	Page    int       `json:"page"`
	PerPage int       `json:"per_page"`
	Pages   int       `json:"pages"`
}

// HasPrev reports whether there is a page before this one.
func (p *Page) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether there is a page after this one.
func (p *Page) HasNext() bool { return p.Page < p.Pages }

// CategoryCount is the number of articles in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Stats summarises the stored articles.
type Stats struct {
	Total      int            `json:"total"`
	Bookmarked int            `json:"bookmarked"`
	Unread     int            `json:"unread"`
	Sentiment  map[string]int `json:"sentiment"`
}

// Store manages articles using SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id TEXT PRIMARY KEY,
	website_id TEXT NOT NULL,
	website_name TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL,
	url TEXT NOT NULL UNIQUE,
	content TEXT,
	content_markdown TEXT,
	summary TEXT,
	author TEXT,
	published_date TEXT,
	category TEXT,
	image_url TEXT,
	sentiment TEXT,
	sentiment_score REAL NOT NULL DEFAULT 0,
	is_read INTEGER NOT NULL DEFAULT 0,
	is_bookmarked INTEGER NOT NULL DEFAULT 0,
	scraped_at TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_articles_website ON articles(website_id);
CREATE INDEX IF NOT EXISTS idx_articles_scraped ON articles(scraped_at);
`

const selectColumns = `
	SELECT id, website_id, website_name, title, url, content, content_markdown,
	       summary, author, published_date, category, image_url, sentiment,
	       sentiment_score, is_read, is_bookmarked, scraped_at, created_at,
	       updated_at
	FROM articles
`

// NewStore creates a new article store with the given database path.
func NewStore(dbPath string) (*Store, error) {
	db, err := dbutil.Open(dbPath, schema)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores a. An article whose URL is already stored is left untouched
// and Insert reports false. ID, timestamps, title and summary are filled in
// when empty.
func (s *Store) Insert(a *Article) (bool, error) {
	if strings.TrimSpace(a.URL) == "" {
		return false, errors.New("article url is required")
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		a.Title = NoTitle
	}
	if a.Summary == "" && a.Content != "" {
		a.Summary = Summarize(a.Content)
	}

	now := time.Now()
	if a.ScrapedAt.IsZero() {
		a.ScrapedAt = now
	}
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `
		INSERT INTO articles (
			id, website_id, website_name, title, url, content, content_markdown,
			summary, author, published_date, category, image_url, sentiment,
			sentiment_score, is_read, is_bookmarked, scraped_at, created_at,
			updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING
	`

	result, err := s.db.Exec(query,
		a.ID.String(),
		a.WebsiteID.String(),
		a.WebsiteName,
		a.Title,
		a.URL,
		nullString(a.Content),
		nullString(a.ContentMarkdown),
		nullString(a.Summary),
		nullString(a.Author),
		dbutil.FormatTime(a.PublishedAt),
		nullString(a.Category),
		nullString(a.ImageURL),
		nullString(a.Sentiment),
		a.SentimentScore,
		dbutil.BoolInt(a.IsRead),
		dbutil.BoolInt(a.IsBookmarked),
		dbutil.FormatTime(&a.ScrapedAt),
		dbutil.FormatTime(&a.CreatedAt),
		dbutil.FormatTime(&a.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// URLExists reports whether an article with url is already stored.
func (s *Store) URLExists(url string) (bool, error) {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM articles WHERE url = ? LIMIT 1", url).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check article url: %w", err)
	}
	return true, nil
}

// Get retrieves an article by ID.
func (s *Store) Get(id uuid.UUID) (*Article, error) {
	row := s.db.QueryRow(selectColumns+" WHERE id = ?", id.String())

	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query article: %w", err)
	}
	return a, nil
}

// MarkRead flags an article as read.
func (s *Store) MarkRead(id uuid.UUID) error {
	return s.exec("mark article read",
		"UPDATE articles SET is_read = 1, updated_at = ? WHERE id = ?",
		dbutil.FormatTime(ptrNow()), id.String())
}

// ToggleBookmark flips the bookmark flag and returns the new value.
func (s *Store) ToggleBookmark(id uuid.UUID) (bool, error) {
	err := s.exec("toggle bookmark",
		"UPDATE articles SET is_bookmarked = 1 - is_bookmarked, updated_at = ? WHERE id = ?",
		dbutil.FormatTime(ptrNow()), id.String())
	if err != nil {
		return false, err
	}

	var bookmarked int
	if err := s.db.QueryRow("SELECT is_bookmarked FROM articles WHERE id = ?", id.String()).Scan(&bookmarked); err != nil {
		return false, fmt.Errorf("failed to read bookmark: %w", err)
	}
	return bookmarked != 0, nil
}

func (s *Store) exec(what, query string, args ...any) error {
	result, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrArticleNotFound
	}
	return nil
}

func whereClause(filter Filter) (string, []any) {
	var whereClauses []string
	var args []any

	if filter.WebsiteID != nil {
		whereClauses = append(whereClauses, "website_id = ?")
		args = append(args, filter.WebsiteID.String())
	}
	if filter.Category != "" {
		whereClauses = append(whereClauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.Sentiment != "" {
		whereClauses = append(whereClauses, "sentiment = ?")
		args = append(args, filter.Sentiment)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		term := dbutil.Fold(search)
		whereClauses = append(whereClauses,
			"(instr(fold(title), ?) > 0 OR instr(fold(IFNULL(content, '')), ?) > 0 OR instr(fold(IFNULL(summary, '')), ?) > 0)")
		args = append(args, term, term, term)
	}
	if filter.Bookmarked != nil {
		whereClauses = append(whereClauses, "is_bookmarked = ?")
		args = append(args, dbutil.BoolInt(*filter.Bookmarked))
	}
	if filter.Since != nil {
		whereClauses = append(whereClauses, "scraped_at >= ?")
		args = append(args, dbutil.FormatTime(filter.Since))
	}
	if filter.Until != nil {
		whereClauses = append(whereClauses, "scraped_at < ?")
		args = append(args, dbutil.FormatTime(filter.Until))
	}

	if len(whereClauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(whereClauses, " AND "), args
}

// List returns one page of articles matching filter, newest first.
func (s *Store) List(filter Filter) (*Page, error) {
	filter = filter.normalized()
	where, args := whereClause(filter)

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM articles"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}

	query := selectColumns + where +
		fmt.Sprintf(" ORDER BY scraped_at DESC, created_at DESC LIMIT %d OFFSET %d",
			filter.PerPage, (filter.Page-1)*filter.PerPage)

	items, err := s.query(query, args...)
	if err != nil {
		return nil, err
	}

	pages := (total + filter.PerPage - 1) / filter.PerPage
	return &Page{
		Items:   items,
		Total:   total,
		Page:    filter.Page,
		PerPage: filter.PerPage,
		Pages:   pages,
	}, nil
}

// All returns up to limit articles matching filter, newest first. Paging
// fields of filter are ignored. A non-positive limit means no limit.
func (s *Store) All(filter Filter, limit int) ([]Article, error) {
	where, args := whereClause(filter)
	query := selectColumns + where + " ORDER BY scraped_at DESC, created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return s.query(query, args...)
}

// Recent returns the n most recently scraped articles.
func (s *Store) Recent(n int) ([]Article, error) {
	return s.All(Filter{}, n)
}

func (s *Store) query(query string, args ...any) ([]Article, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	articles := []Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

// Categories returns the distinct non-empty categories, sorted.
func (s *Store) Categories() ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT category FROM articles
		WHERE category IS NOT NULL AND category != ''
		ORDER BY category
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CategoryCounts returns the number of articles per category, largest first.
func (s *Store) CategoryCounts() ([]CategoryCount, error) {
	rows, err := s.db.Query(`
		SELECT category, COUNT(*) AS n FROM articles
		WHERE category IS NOT NULL AND category != ''
		GROUP BY category
		ORDER BY n DESC, category ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query category counts: %w", err)
	}
	defer rows.Close()

	counts := []CategoryCount{}
	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts = append(counts, cc)
	}
	return counts, rows.Err()
}

// Stats returns totals and the sentiment distribution.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{
		Sentiment: map[string]int{Positive: 0, Neutral: 0, Negative: 0},
	}

	err := s.db.QueryRow(`
		SELECT COUNT(*),
		       IFNULL(SUM(is_bookmarked), 0),
		       IFNULL(SUM(CASE WHEN is_read = 0 THEN 1 ELSE 0 END), 0)
		FROM articles
	`).Scan(&stats.Total, &stats.Bookmarked, &stats.Unread)
	if err != nil {
		return nil, fmt.Errorf("failed to query article stats: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT sentiment, COUNT(*) FROM articles
		WHERE sentiment IS NOT NULL AND sentiment != ''
		GROUP BY sentiment
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sentiment stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("failed to scan sentiment stats: %w", err)
		}
		stats.Sentiment[label] = n
	}
	return stats, rows.Err()
}

// DeleteByWebsite removes every article scraped from a website and returns
// how many were removed.
func (s *Store) DeleteByWebsite(websiteID uuid.UUID) (int64, error) {
	result, err := s.db.Exec("DELETE FROM articles WHERE website_id = ?", websiteID.String())
	if err != nil {
		return 0, fmt.Errorf("failed to delete articles: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*Article, error) {
	var (
		idStr, websiteIDStr                          string
		content, markdown, summary, author, category sql.NullString
		imageURL, sentiment, publishedAt             sql.NullString
		scrapedAt, createdAt, updatedAt              string
		isRead, isBookmarked                         int
		a                                            Article
	)

	err := row.Scan(
		&idStr, &websiteIDStr, &a.WebsiteName, &a.Title, &a.URL,
		&content, &markdown, &summary, &author, &publishedAt, &category,
		&imageURL, &sentiment, &a.SentimentScore, &isRead, &isBookmarked,
		&scrapedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if a.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("failed to parse article ID: %w", err)
	}
	if a.WebsiteID, err = uuid.Parse(websiteIDStr); err != nil {
		return nil, fmt.Errorf("failed to parse website ID: %w", err)
	}

	a.Content = content.String
	a.ContentMarkdown = markdown.String
	a.Summary = summary.String
	a.Author = author.String
	a.Category = category.String
	a.ImageURL = imageURL.String
	a.Sentiment = sentiment.String
	a.PublishedAt = dbutil.ParseNullTime(publishedAt)
	a.IsRead = isRead != 0
	a.IsBookmarked = isBookmarked != 0
	a.ScrapedAt = dbutil.ParseTime(scrapedAt)
	a.CreatedAt = dbutil.ParseTime(createdAt)
	a.UpdatedAt = dbutil.ParseTime(updatedAt)

	return &a, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func ptrNow() *time.Time {
	now := time.Now()
	return &now
}
