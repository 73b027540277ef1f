package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"project_chatflow/internal/entities"
	"project_chatflow/internal/interfaces"
)

const graphAPIBase = "https://graph.facebook.com/v18.0"

// WhatsAppClient sends through the WhatsApp Cloud API. Credentials are
// per-tenant: the access token plus the phone number id acting as sender.
type WhatsAppClient struct {
	baseURL string
	http    *http.Client
}

func NewWhatsAppClient() *WhatsAppClient {
	return &WhatsAppClient{
		baseURL: graphAPIBase,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewWhatsAppClientWithBase is used by tests to point at a stub server.
func NewWhatsAppClientWithBase(baseURL string) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (w *WhatsAppClient) SendText(ctx context.Context, creds interfaces.ChannelCredentials, to, text string) (string, error) {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text": map[string]string{
			"body": text,
		},
	}
	return w.post(ctx, creds, payload)
}

func (w *WhatsAppClient) SendTemplate(ctx context.Context, creds interfaces.ChannelCredentials, to string, tpl interfaces.TemplateSend) (string, error) {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]interface{}{
			"name":     tpl.Name,
			"language": map[string]string{"code": tpl.Language},
			"components": []map[string]interface{}{
				{
					"type":       "body",
					"parameters": templateParameters(tpl.Params),
				},
			},
		},
	}
	return w.post(ctx, creds, payload)
}

func (w *WhatsAppClient) SendMedia(ctx context.Context, creds interfaces.ChannelCredentials, to string, media entities.MediaDescriptor) (string, error) {
	kind := "image"
	content := map[string]string{"link": media.MediaRef}
	if media.Caption != "" {
		content["caption"] = media.Caption
	}
	if media.Filename != "" {
		kind = "document"
		content["filename"] = media.Filename
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              kind,
		kind:                content,
	}
	return w.post(ctx, creds, payload)
}

// templateParameters converts body params into positional Cloud API
// parameters, ordered by key so {{1}}, {{2}}, ... line up.
func templateParameters(params map[string]string) []map[string]string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]map[string]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, map[string]string{"type": "text", "text": params[k]})
	}
	return out
}

func (w *WhatsAppClient) post(ctx context.Context, creds interfaces.ChannelCredentials, payload map[string]interface{}) (string, error) {
	url := fmt.Sprintf("%s/%s/messages", w.baseURL, creds.SenderID)
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
		Error *struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("decode whatsapp response: %w", err)
	}

	if resp.StatusCode >= 300 || body.Error != nil {
		se := &SendError{StatusCode: resp.StatusCode}
		if body.Error != nil {
			se.Code = body.Error.Code
			se.Message = body.Error.Message
		}
		return "", se
	}
	if len(body.Messages) == 0 {
		return "", &SendError{StatusCode: resp.StatusCode, Message: "no message id in response"}
	}
	return body.Messages[0].ID, nil
}
