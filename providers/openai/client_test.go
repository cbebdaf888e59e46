package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCompleteSendsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		assert.Equal(t, 0.7, req.Temperature)
		assert.Equal(t, 1000, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)

		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "Hello"}}]}`))
	}))
	defer srv.Close()

	c := NewClient("gpt-test", 0.7, 1000, zap.NewNop())
	out, err := c.Complete(context.Background(), srv.URL+"/v1/", "sk-test", []Message{
		{Role: "system", Content: "ctx"},
		{Role: "user", Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello", out)
}

func TestCompleteUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided"}}`))
	}))
	defer srv.Close()

	c := NewClient("gpt-test", 0.7, 1000, zap.NewNop())
	_, err := c.Complete(context.Background(), srv.URL, "bad", nil)

	var upErr *UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusUnauthorized, upErr.Status)
	assert.Equal(t, "Incorrect API key provided", upErr.Message)
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewClient("gpt-test", 0.7, 1000, zap.NewNop())
	_, err := c.Complete(context.Background(), srv.URL, "k", nil)
	assert.ErrorIs(t, err, ErrNoChoices)
}
