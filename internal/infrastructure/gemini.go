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

const geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient is the default AI provider, calling the generateContent
// endpoint directly.
type GeminiClient struct {
	baseURL string
	http    *http.Client
}

func NewGeminiClient() *GeminiClient {
	return &GeminiClient{
		baseURL: geminiAPIBase,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewGeminiClientWithBase is used by tests to point at a stub server.
func NewGeminiClientWithBase(baseURL string) *GeminiClient {
	return &GeminiClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

func (g *GeminiClient) Generate(ctx context.Context, req interfaces.AIRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}

	contents := make([]geminiContent, 0, len(req.History))
	for _, turn := range req.History {
		role := "user"
		if turn.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: turn.Content}},
		})
	}

	body := map[string]interface{}{
		"system_instruction": geminiContent{Parts: []geminiPart{{Text: req.SystemPrompt}}},
		"contents":           contents,
		"generationConfig": map[string]interface{}{
			"temperature": req.Temperature,
		},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, model, req.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini returned status %d", resp.StatusCode)
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []geminiPart `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode gemini response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
