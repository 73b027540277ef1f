package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"project_chatflow/internal/entities"
	"project_chatflow/internal/interfaces"
)

// MetaDMClient sends Messenger and Instagram direct messages through the
// Graph Send API. The two channels share the request shape and differ only
// in the page/IG access token carried by the credentials.
type MetaDMClient struct {
	baseURL string
	http    *http.Client
}

func NewMetaDMClient() *MetaDMClient {
	return &MetaDMClient{
		baseURL: graphAPIBase,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// NewMetaDMClientWithBase is used by tests to point at a stub server.
func NewMetaDMClientWithBase(baseURL string) *MetaDMClient {
	return &MetaDMClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (m *MetaDMClient) SendText(ctx context.Context, creds interfaces.ChannelCredentials, to, text string) (string, error) {
	payload := map[string]interface{}{
		"recipient": map[string]string{"id": to},
		"message":   map[string]string{"text": text},
	}
	return m.post(ctx, creds, payload)
}

// SendTemplate sends the pre-rendered template body. Messenger and Instagram
// have no native template objects; sends outside the standard window use a
// message tag instead.
func (m *MetaDMClient) SendTemplate(ctx context.Context, creds interfaces.ChannelCredentials, to string, tpl interfaces.TemplateSend) (string, error) {
	payload := map[string]interface{}{
		"recipient":      map[string]string{"id": to},
		"message":        map[string]string{"text": tpl.Body},
		"messaging_type": "MESSAGE_TAG",
		"tag":            "CONFIRMED_EVENT_UPDATE",
	}
	return m.post(ctx, creds, payload)
}

func (m *MetaDMClient) SendMedia(ctx context.Context, creds interfaces.ChannelCredentials, to string, media entities.MediaDescriptor) (string, error) {
	payload := map[string]interface{}{
		"recipient": map[string]string{"id": to},
		"message": map[string]interface{}{
			"attachment": map[string]interface{}{
				"type": "image",
				"payload": map[string]interface{}{
					"url":         media.MediaRef,
					"is_reusable": true,
				},
			},
		},
	}
	return m.post(ctx, creds, payload)
}

func (m *MetaDMClient) post(ctx context.Context, creds interfaces.ChannelCredentials, payload map[string]interface{}) (string, error) {
	url := fmt.Sprintf("%s/me/messages?access_token=%s", m.baseURL, creds.Token)
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		MessageID string `json:"message_id"`
		Error     *struct {
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("decode send api response: %w", err)
	}

	if resp.StatusCode >= 300 || body.Error != nil {
		se := &SendError{StatusCode: resp.StatusCode}
		if body.Error != nil {
			se.Code = body.Error.Code
			se.Message = body.Error.Message
		}
		return "", se
	}
	return body.MessageID, nil
}
