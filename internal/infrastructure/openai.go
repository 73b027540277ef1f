package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"project_chatflow/internal/interfaces"
)

const openAIAPIBase = "https://api.openai.com/v1"

// OpenAIClient calls the chat completions endpoint.
type OpenAIClient struct {
	baseURL string
	http    *http.Client
}

func NewOpenAIClient() *OpenAIClient {
	return &OpenAIClient{
		baseURL: openAIAPIBase,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewOpenAIClientWithBase is used by tests to point at a stub server.
func NewOpenAIClientWithBase(baseURL string) *OpenAIClient {
	return &OpenAIClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (o *OpenAIClient) Generate(ctx context.Context, req interfaces.AIRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	messages := make([]map[string]string, 0, len(req.History)+1)
	messages = append(messages, map[string]string{"role": "system", "content": req.SystemPrompt})
	for _, turn := range req.History {
		messages = append(messages, map[string]string{"role": turn.Role, "content": turn.Content})
	}

	body := map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"temperature": req.Temperature,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai returned status %d", resp.StatusCode)
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
