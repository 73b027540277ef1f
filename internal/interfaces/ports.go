package interfaces

import (
	"context"
	"time"

	"project_chatflow/internal/entities"
)

// ChatTurn is one message of the conversation history handed to an AI
// provider.
type ChatTurn struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// AIRequest carries everything a provider needs for one generation. The
// credentials/model come from the tenant's AI config, not from the client.
type AIRequest struct {
	History      []ChatTurn
	SystemPrompt string
	APIKey       string
	Model        string
	Temperature  float64
}

// AIClient generates a reply from conversation history and a system prompt.
type AIClient interface {
	Generate(ctx context.Context, req AIRequest) (string, error)
}

// ChannelCredentials are the tenant-scoped sender credentials for one
// channel. SenderID is the provider-side sender (e.g. the WhatsApp phone
// number id); empty for channels that derive it from the token.
type ChannelCredentials struct {
	Token    string
	SenderID string
}

// TemplateSend names a pre-approved template and its body parameters.
// Body carries the rendered text for channels without native templates.
type TemplateSend struct {
	Name     string
	Language string
	Params   map[string]string
	Body     string
}

// ChannelClient talks to one provider endpoint. Every method returns the
// provider-assigned message id, or an error carrying the provider's status
// and code so callers can classify retryability.
type ChannelClient interface {
	SendText(ctx context.Context, creds ChannelCredentials, to, text string) (string, error)
	SendTemplate(ctx context.Context, creds ChannelCredentials, to string, tpl TemplateSend) (string, error)
	SendMedia(ctx context.Context, creds ChannelCredentials, to string, media entities.MediaDescriptor) (string, error)
}

// Queue is the durable queue both consumer loops block on. Dequeue returns
// (nil, nil) when the timeout elapses with nothing available.
type Queue interface {
	Enqueue(ctx context.Context, queue string, payload any) error
	Dequeue(ctx context.Context, queue string, timeout time.Duration) ([]byte, error)
}

// Publisher fans persisted messages out to live chat subscribers.
// Best-effort: a publish failure never fails the write it follows.
type Publisher interface {
	PublishEvent(ctx context.Context, tenantID int, event any) error
}
