package intelligence

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Estimator assigns an importance score to new memory content.
//
// It supports two evaluation modes:
//   - Rule-based: keyword matching and punctuation/metadata heuristics
//     (fast, no external calls)
//   - LLM-based: asks a chat model for a score and falls back to rules on
//     any failure
//
// Example usage:
//
//	est := intelligence.NewEstimator(nil, "")
//	score := est.Estimate(ctx, "Remember: exam is on March 15th", nil)
//	// score is between 0.0 and 1.0
type Estimator struct {
	// client is the chat client for LLM-based evaluation.
	// If nil, evaluation is always rule-based.
	client *openai.Client

	// model is the chat model name used for LLM-based evaluation.
	model string
}

// NewEstimator creates an importance estimator. Passing a nil client
// yields a purely rule-based estimator.
func NewEstimator(client *openai.Client, model string) *Estimator {
	if model == "" {
		model = openai.GPT4
	}
	return &Estimator{
		client: client,
		model:  model,
	}
}

// Estimate evaluates the importance of content, always returning a value
// in [0.0, 1.0]. LLM evaluation is used when available; any LLM failure
// falls back to the rule-based heuristic.
func (e *Estimator) Estimate(ctx context.Context, content string, metadata map[string]string) float64 {
	if e.client != nil {
		if score, err := e.estimateWithLLM(ctx, content); err == nil {
			return ClampImportance(score)
		}
	}
	return e.estimateWithRules(content, metadata)
}

func (e *Estimator) estimateWithLLM(ctx context.Context, content string) (float64, error) {
	req := openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: "You rate how important a short note is to remember, " +
					"on a scale from 0.0 to 1.0. " +
					`Reply with JSON: {"importance": <number>}`,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: content,
			},
		},
	}

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return 0, err
	}
	if len(resp.Choices) == 0 {
		return 0, errNoChoices
	}

	return parseImportanceResponse(resp.Choices[0].Message.Content), nil
}

// estimateWithRules scores content with keyword and structure heuristics.
func (e *Estimator) estimateWithRules(content string, metadata map[string]string) float64 {
	score := 0.3
	contentLower := strings.ToLower(content)

	// Length factor
	if len(content) > 100 {
		score += 0.1
	} else if len(content) > 50 {
		score += 0.05
	}

	importantKeywords := []string{
		"important", "critical", "urgent", "remember", "deadline",
		"exam", "assignment", "due", "grade", "preference",
		"always", "never", "must",
	}
	for _, keyword := range importantKeywords {
		if strings.Contains(contentLower, keyword) {
			score += 0.1
		}
	}

	if strings.Contains(content, "!") {
		score += 0.05
	}

	if priority, ok := metadata["priority"]; ok {
		switch priority {
		case "high":
			score += 0.2
		case "medium":
			score += 0.1
		}
	}

	return math.Min(score, 1.0)
}

// parseImportanceResponse extracts a score from an LLM reply, defaulting
// to medium importance when the reply is not parseable.
func parseImportanceResponse(response string) float64 {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		var result struct {
			Importance float64 `json:"importance"`
		}
		if err := json.Unmarshal([]byte(response[start:end+1]), &result); err == nil {
			return ClampImportance(result.Importance)
		}
	}
	return 0.5
}

var errNoChoices = errors.New("no choices returned from chat API")
