package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// LLMClient calls a Gemini-style generateContent endpoint.
type LLMClient struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *http.Client
}

type llmRequest struct {
	Contents []llmContent `json:"contents"`
}

type llmContent struct {
	Parts []llmPart `json:"parts"`
}

type llmPart struct {
	Text string `json:"text"`
}

type llmResponse struct {
	Candidates []struct {
		Content struct {
			Parts []llmPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *LLMClient) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("llm: api key not configured")
	}

	body, err := json.Marshal(llmRequest{Contents: []llmContent{{Parts: []llmPart{{Text: prompt}}}}})
	if err != nil {
		return "", err
	}

	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", baseURL, c.Model, c.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	var out llmResponse
	_ = json.Unmarshal(b, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("llm: %s", out.Error.Message)
		}
		return "", fmt.Errorf("llm: status %d", resp.StatusCode)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("llm: empty response")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
