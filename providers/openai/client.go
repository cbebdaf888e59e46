package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNoChoices signalisiert eine erfolgreiche Antwort ohne Completion.
var ErrNoChoices = errors.New("completion response contained no choices")

// UpstreamError ist eine Nicht-2xx-Antwort des Completion-Endpoints.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("completion endpoint returned %d: %s", e.Status, e.Message)
}

// Message ist ein Eintrag im Chat-Verlauf.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client spricht einen OpenAI-kompatiblen /chat/completions Endpoint an.
// Base-URL und Key kommen pro Aufruf vom Nutzer.
type Client struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Logger      *zap.Logger
	HTTP        *http.Client
}

// NewClient erstellt einen Client mit festem Modell und Sampling-Parametern.
func NewClient(model string, temperature float64, maxTokens int, logger *zap.Logger) *Client {
	return &Client{
		Model:       model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Logger:      logger,
		HTTP:        &http.Client{Timeout: 60 * time.Second},
	}
}

// Complete sendet messages an {baseURL}/chat/completions und gibt den Text der ersten Choice zurück.
func (c *Client) Complete(ctx context.Context, baseURL, apiKey string, messages []Message) (string, error) {
	b, err := json.Marshal(chatRequest{
		Model:       c.Model,
		Messages:    messages,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	endpoint := strings.TrimRight(baseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}
	c.Logger.Debug("Completion call finished",
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error.Message != "" {
			msg = eb.Error.Message
		}
		return "", &UpstreamError{Status: resp.StatusCode, Message: msg}
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parse completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrNoChoices
	}
	return parsed.Choices[0].Message.Content, nil
}
