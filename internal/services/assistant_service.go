package services

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
)

var ErrAssistantUnavailable = errors.New("assistant is not configured")

// Assistant answers a visitor's free-text question.
type Assistant interface {
	SendUserMessage(ctx context.Context, text string) (string, error)
}

const assistantPrompt = `You are a helpful plumbing assistant for Rob West Plumbing. The user has described this issue: %q. Provide a brief, friendly assessment and suggest next steps. Keep it under 200 words.`

const assistantFallback = "Sorry, I couldn't process that. Please call us for help."

// GeminiAssistant forwards messages to the Gemini generateContent API.
type GeminiAssistant struct {
	apiURL string
	apiKey string
	model  string
	client *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewGeminiAssistant(apiURL, apiKey, model string, timeout time.Duration) *GeminiAssistant {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiAssistant{
		apiURL: strings.TrimRight(apiURL, "/"),
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

func (a *GeminiAssistant) IsAvailable() bool {
	return a.apiKey != ""
}

func (a *GeminiAssistant) SendUserMessage(ctx context.Context, text string) (string, error) {
	if !a.IsAvailable() {
		return "", ErrAssistantUnavailable
	}

	reqBody, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: fmt.Sprintf(assistantPrompt, text)}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent", a.apiURL, a.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call Gemini API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var out geminiResponse
	if err := json.Unmarshal(body, &out); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("failed to parse Gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("Gemini API returned status %d: %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("Gemini API returned status %d", resp.StatusCode)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return assistantFallback, nil
	}
	reply := strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text)
	if reply == "" {
		return assistantFallback, nil
	}
	return reply, nil
}
