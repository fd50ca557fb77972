package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"likesync/internal/domain"
)

type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Gemini summarizes transcripts with the generateContent endpoint.
type Gemini struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *slog.Logger
}

func NewGemini(cfg GeminiConfig, logger *slog.Logger) *Gemini {
	return &Gemini{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		logger:  logger.With("component", "gemini"),
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *Gemini) Summarize(ctx context.Context, transcript *domain.Transcript) (string, error) {
	reqBody := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: buildPrompt(transcript)}}},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?%s",
		g.baseURL, url.PathEscape(g.model), url.Values{"key": {g.apiKey}}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: http request: %w", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var apiResp generateResponse
	decodeErr := json.Unmarshal(body, &apiResp)

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if decodeErr == nil && apiResp.Error != nil {
			msg = apiResp.Error.Message
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return "", fmt.Errorf("%w: generative api (status %d): %s", domain.ErrRateLimited, resp.StatusCode, msg)
		case resp.StatusCode >= 500:
			return "", fmt.Errorf("%w: generative api (status %d): %s", domain.ErrRemoteUnavailable, resp.StatusCode, msg)
		default:
			return "", fmt.Errorf("generative api error (status %d): %s", resp.StatusCode, msg)
		}
	}

	if decodeErr != nil {
		return "", fmt.Errorf("%w: unmarshal response: %w", domain.ErrMalformedResponse, decodeErr)
	}

	var sb strings.Builder
	for _, candidate := range apiResp.Candidates {
		for _, p := range candidate.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrMalformedResponse)
	}

	g.logger.Debug("generated summary", "model", g.model, "length", len(text))
	return text, nil
}

func buildPrompt(t *domain.Transcript) string {
	var sb strings.Builder

	sb.WriteString("Summarize the following video transcript in a few short paragraphs.\n\n")
	if t.Title != "" {
		sb.WriteString("Title: ")
		sb.WriteString(t.Title)
		sb.WriteString("\n")
	}
	if t.Channel != "" {
		sb.WriteString("Channel: ")
		sb.WriteString(t.Channel)
		sb.WriteString("\n")
	}
	sb.WriteString("\nTranscript:\n")
	sb.WriteString(t.Text)

	return sb.String()
}
