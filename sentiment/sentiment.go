// Package sentiment classifies article text as positive, neutral or negative.
package sentiment

import (
	"context"
	"strings"
)

const (
	Positive = "positive"
	Neutral  = "neutral"
	Negative = "negative"
)

// threshold is the score magnitude above which text stops being neutral.
const threshold = 0.2

// Result is a sentiment label with a score in [-1, 1].
type Result struct {
	Label string  `json:"sentiment"`
	Score float64 `json:"score"`
}

// Analyzer classifies text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) Result
}

var positiveWords = []string{
	"good", "great", "excellent", "amazing", "wonderful", "fantastic",
	"positive", "success", "win", "best", "love", "happy", "joy",
	"breakthrough", "achievement", "improve", "growth", "increase",
}

var negativeWords = []string{
	"bad", "terrible", "awful", "horrible", "poor", "worst", "hate",
	"negative", "fail", "failure", "loss", "decrease", "decline", "crisis",
	"problem", "issue", "concern", "risk", "danger",
}

// Keyword scores text by counting which words of two fixed lists occur in
// it. Each word counts at most once, matched as a substring.
type Keyword struct{}

// Analyze implements Analyzer.
func (Keyword) Analyze(_ context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Label: Neutral}
	}

	lower := strings.ToLower(text)
	pos := countPresent(lower, positiveWords)
	neg := countPresent(lower, negativeWords)

	total := pos + neg
	if total == 0 {
		return Result{Label: Neutral}
	}

	score := float64(pos-neg) / float64(total)
	return Result{Label: Label(score), Score: score}
}

func countPresent(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

// Label maps a score to its sentiment label.
func Label(score float64) string {
	switch {
	case score > threshold:
		return Positive
	case score < -threshold:
		return Negative
	default:
		return Neutral
	}
}

// Registry picks an analyzer by a website's sentiment method.
type Registry struct {
	analyzers map[string]Analyzer
	fallback  Analyzer
}

// NewRegistry returns a registry whose fallback is the keyword analyzer.
func NewRegistry() *Registry {
	return &Registry{
		analyzers: map[string]Analyzer{"keyword": Keyword{}},
		fallback:  Keyword{},
	}
}

// Register adds or replaces the analyzer for method.
func (r *Registry) Register(method string, a Analyzer) {
	r.analyzers[method] = a
}

// For returns the analyzer for method, or the keyword analyzer when the
// method is unknown.
func (r *Registry) For(method string) Analyzer {
	if a, ok := r.analyzers[method]; ok {
		return a
	}
	return r.fallback
}
