package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenAIModel = "gpt-3.5-turbo"

	// maxPromptChars bounds how much article text is sent per request.
	maxPromptChars = 4000
	openAITimeout  = 30 * time.Second
)

const systemPrompt = `You classify the sentiment of news articles.
Respond with JSON only, in this form:
{"sentiment": "positive" | "neutral" | "negative", "score": <number between -1.0 and 1.0>}`

// ChatCompleter is the part of the OpenAI client the analyzer needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI asks a chat model for the sentiment and falls back to keyword
// scoring whenever the request or its answer is unusable.
type OpenAI struct {
	client   ChatCompleter
	model    string
	fallback Analyzer
}

// NewOpenAI creates an analyzer backed by the OpenAI API.
func NewOpenAI(apiKey, model string) *OpenAI {
	return NewOpenAIWithClient(openai.NewClient(apiKey), model)
}

// NewOpenAIWithClient creates an analyzer using client.
func NewOpenAIWithClient(client ChatCompleter, model string) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{client: client, model: model, fallback: Keyword{}}
}

// Analyze implements Analyzer.
func (o *OpenAI) Analyze(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Label: Neutral}
	}

	res, err := o.classify(ctx, text)
	if err != nil {
		log.Warn().Err(err).Msg("OpenAI sentiment failed, using keyword analysis")
		return o.fallback.Analyze(ctx, text)
	}
	return res
}

func (o *OpenAI) classify(ctx context.Context, text string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, openAITimeout)
	defer cancel()

	if runes := []rune(text); len(runes) > maxPromptChars {
		text = string(runes[:maxPromptChars])
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return Result{}, err
	}
	if len(resp.Choices) == 0 {
		return Result{}, errors.New("no choices in response")
	}

	var parsed struct {
		Sentiment string  `json:"sentiment"`
		Score     float64 `json:"score"`
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return Result{}, fmt.Errorf("failed to parse response: %w", err)
	}

	score := max(-1, min(1, parsed.Score))
	label := strings.ToLower(strings.TrimSpace(parsed.Sentiment))
	switch label {
	case Positive, Neutral, Negative:
	default:
		label = Label(score)
	}

	return Result{Label: label, Score: score}, nil
}
