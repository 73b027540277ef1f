package entities

import (
	"encoding/json"
	"time"
)

// InboundEnvelope is the queue contract for raw channel events: one
// JSON-encoded envelope per queue entry, produced by the webhook receiver.
type InboundEnvelope struct {
	ID         string          `json:"id"`
	Channel    string          `json:"channel"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Payload    json.RawMessage `json:"payload"`
}

// CanonicalEvent is the normalized shape of one inbound message.
// RoutingKey is the provider-side receiver id used to resolve the tenant
// (the WhatsApp phone number id); empty for channels without one.
type CanonicalEvent struct {
	Channel          string
	RoutingKey       string
	ExternalID       string
	SenderIdentifier string
	MessageType      string
	TextBody         string
	Media            *MediaDescriptor
	Hints            ProfileHints
	RawPayload       []byte
}

// TemplateStatusEvent is a provider callback about a template review or
// quality change. Handled outside the message pipeline. RoutingKey is the
// WhatsApp Business Account id owning the template.
type TemplateStatusEvent struct {
	RoutingKey   string
	TemplateName string
	Language     string
	Status       string
	Quality      string
}

// Marketing job types.
const (
	JobCampaignSend   = "CAMPAIGN_SEND"
	JobSendEventBadge = "SEND_EVENT_BADGE"
)

// MarketingJob is the queue contract for the campaign dispatcher. It carries
// everything needed to send without further lookups except identifiers.
type MarketingJob struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	// CAMPAIGN_SEND
	TenantID     int               `json:"tenantId"`
	CampaignID   int               `json:"campaignId,omitempty"`
	ItemID       int               `json:"itemId,omitempty"`
	ContactID    int               `json:"contactId"`
	Channel      string            `json:"channel"`
	TemplateName string            `json:"templateName,omitempty"`
	Language     string            `json:"language,omitempty"`
	Params       map[string]string `json:"params,omitempty"`

	// SEND_EVENT_BADGE
	BadgeURL string `json:"badgeUrl,omitempty"`
	Caption  string `json:"caption,omitempty"`
}
