package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiAssistantUnavailableWithoutKey(t *testing.T) {
	a := NewGeminiAssistant("http://unused", "", "m", time.Second)
	_, err := a.SendUserMessage(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrAssistantUnavailable)
}

func TestGeminiAssistantSendsPrompt(t *testing.T) {
	var gotPath, gotKey string
	var gotReq geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  Turn off the stopcock.  "}]}}]}`))
	}))
	defer srv.Close()

	a := NewGeminiAssistant(srv.URL+"/", "k-123", "gemini-test", time.Second)
	reply, err := a.SendUserMessage(context.Background(), "my pipe burst")
	require.NoError(t, err)

	assert.Equal(t, "Turn off the stopcock.", reply)
	assert.Equal(t, "/gemini-test:generateContent", gotPath)
	assert.Equal(t, "k-123", gotKey)
	require.Len(t, gotReq.Contents, 1)
	require.Len(t, gotReq.Contents[0].Parts, 1)
	assert.Contains(t, gotReq.Contents[0].Parts[0].Text, `"my pipe burst"`)
}

func TestGeminiAssistantEmptyCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	reply, err := NewGeminiAssistant(srv.URL, "k", "m", time.Second).SendUserMessage(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, assistantFallback, reply)
}

func TestGeminiAssistantErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	_, err := NewGeminiAssistant(srv.URL, "k", "m", time.Second).SendUserMessage(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "API key not valid")
}
