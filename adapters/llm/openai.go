package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ideaforge/domain/core"
	"ideaforge/ports"
)

// OpenAIPort binds the OpenAI chat completions API to the ModelPort
// contract. Doubao speaks the same wire format, so it reuses this type
// with a different endpoint.
type OpenAIPort struct {
	cfg      Config
	provider string
	client   *http.Client
}

func newOpenAIPort(cfg Config) *OpenAIPort {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &OpenAIPort{
		cfg:      cfg,
		provider: ProviderOpenAI,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *OpenAIPort) Provider() string { return p.provider }

func (p *OpenAIPort) Invoke(ctx context.Context, req ports.ModelRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	// Chat Completions request (kept minimal: one system + one user message)
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	type reqBody struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature,omitempty"`
		MaxTokens   int     `json:"max_tokens,omitempty"`
	}

	system := req.System
	if system == "" {
		system = "You are a careful assistant. Output exactly what the user asks for."
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = p.cfg.Temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.cfg.MaxTokens
	}

	body := reqBody{
		Model: p.cfg.Model,
		Messages: []msg{
			{Role: "system", Content: system},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", classifyTransportErr(p.provider, err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", core.NewTransientNetworkError(p.provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classifyStatus(p.provider, resp.StatusCode, respRaw)
	}

	type choice struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	type respBody struct {
		Choices []choice `json:"choices"`
	}
	var decoded respBody
	if err := json.Unmarshal(respRaw, &decoded); err != nil {
		return "", core.NewMalformedResponseError(p.provider, "unparseable response envelope")
	}
	if len(decoded.Choices) == 0 {
		return "", core.NewMalformedResponseError(p.provider, "response missing choices")
	}
	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", core.NewMalformedResponseError(p.provider, "empty completion content")
	}
	return content, nil
}

var _ ports.ModelPort = (*OpenAIPort)(nil)

// doubaoDefaultBaseURL is the ByteDance Ark endpoint, which exposes an
// OpenAI-compatible chat completions surface.
const doubaoDefaultBaseURL = "https://ark.cn-beijing.volces.com/api/v3"

func newDoubaoPort(cfg Config) *OpenAIPort {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = doubaoDefaultBaseURL
	}
	return &OpenAIPort{
		cfg:      cfg,
		provider: ProviderDoubao,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}
