// Package completion asks a chat-completion API for a short supportive reply
// to a journal entry.
package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/patric-chuzhbe/moodjournal/internal/models"
)

const chatCompletionsPath = "/chat/completions"

const promptTemplate = `You are a therapist. I am your patient. I am going to give you a journal entry and an emotion that I am feeling.

You are supposed to respond with:
1. Acknowledging and validating my emotion in a non-judgmental way.
2. Helping me feel understood by reflecting on what I might be experiencing.
3. Asking thoughtful, open-ended questions to help me explore my feelings and thoughts further.
4. Providing a calming, reassuring perspective if appropriate, or normalizing my experience.
5. Suggesting simple, actionable steps or self-care strategies I can try to cope with or address the emotion.
6. Ending your response with an encouraging note to remind me of my strengths and capabilities.

DO NOT ANSWER WITH ANY QUESTION! RESPOND IN 2-3 SENTENCES ONLY!

Your responses should always prioritize empathy, validation, and gentle guidance, making sure I feel heard and supported.

Emotion: %s
Journal entry: %s
`

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client calls the completion API once per request, without retries.
type Client struct {
	http        *resty.Client
	model       string
	temperature float64
}

// New builds a Client. A zero timeout leaves the call bounded only by the caller's context.
func New(baseURL, apiKey, model string, temperature float64, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		httpClient.SetAuthToken(apiKey)
	}
	if timeout > 0 {
		httpClient.SetTimeout(timeout)
	}

	return &Client{
		http:        httpClient,
		model:       model,
		temperature: temperature,
	}
}

// BuildPrompt embeds emotion and content verbatim into the instruction text.
func BuildPrompt(emotion, content string) string {
	return fmt.Sprintf(promptTemplate, emotion, content)
}

// Complete returns the first choice's message content. Every failure wraps models.ErrCompletionFailed.
func (c *Client) Complete(ctx context.Context, emotion, content string) (string, error) {
	result := &chatResponse{}
	failure := &apiError{}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:       c.model,
			Messages:    []message{{Role: "user", Content: BuildPrompt(emotion, content)}},
			Temperature: c.temperature,
		}).
		SetResult(result).
		SetError(failure).
		Post(chatCompletionsPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrCompletionFailed, err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("%w: status %d: %s", models.ErrCompletionFailed, resp.StatusCode(), failure.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", models.ErrCompletionFailed)
	}

	answer := result.Choices[0].Message.Content
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("%w: empty completion", models.ErrCompletionFailed)
	}

	return answer, nil
}
