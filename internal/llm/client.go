package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

// Client is a client for an OpenAI-compatible chat completions API.
// It is constructed once at process start and is safe for concurrent use.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a new completion client.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		client:  http.DefaultClient,
		breaker: newBreaker("llm-completions"),
	}
}

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the request payload for chat completions.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ChatChoiceMessage represents the message in a chat choice.
type ChatChoiceMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatChoice represents a single choice in the chat response.
type ChatChoice struct {
	Index        int               `json:"index"`
	Message      ChatChoiceMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// ChatResponse represents the response from the chat completions API.
type ChatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Choices []ChatChoice `json:"choices"`
}

// CompleteParams holds optional parameters for a completion request.
type CompleteParams struct {
	// Temperature controls output randomness. Zero keeps answers deterministic.
	Temperature float64
	// MaxTokens caps the generated length. Zero means no limit.
	MaxTokens int
}

// Complete sends an instruction plus input text to the completions API and
// returns the generated text. The instruction is passed as the system
// message, the input as the user message.
func (c *Client) Complete(ctx context.Context, instruction, input string, params CompleteParams) (string, error) {
	url := fmt.Sprintf("%s/v1/chat/completions", c.BaseURL)

	messages := make([]ChatMessage, 0, 2)
	if instruction != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: instruction})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: input})

	payload := ChatRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
	}

	raw, err := postJSON(ctx, c.client, c.breaker, url, c.APIKey, payload)
	if err != nil {
		return "", err
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(raw, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	return chatResp.Choices[0].Message.Content, nil
}
