package entities

import "time"

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message types as classified by the normalizer.
const (
	TypeText     = "text"
	TypeImage    = "image"
	TypeAudio    = "audio"
	TypeVideo    = "video"
	TypeDocument = "document"
	TypeTemplate = "template"
)

// Delivery statuses. Inbound rows are "received"; outbound rows start at
// "sent" and are advanced by delivery receipts owned by another subsystem.
const (
	StatusReceived = "received"
	StatusSent     = "sent"
	StatusFailed   = "failed"
)

// MediaDescriptor is the serialized form of non-text content.
type MediaDescriptor struct {
	MediaRef string `json:"media_ref"`
	Caption  string `json:"caption,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// Message is one inbound or outbound message inside a conversation.
// Immutable after creation except for delivery-status transitions.
type Message struct {
	ID             int              `json:"id"`
	ConversationID int              `json:"conversation_id"`
	Direction      string           `json:"direction"`
	Type           string           `json:"type"`
	Body           string           `json:"body"`
	Media          *MediaDescriptor `json:"media,omitempty"`
	ExternalID     string           `json:"external_id"`
	Status         string           `json:"status"`
	RawPayload     []byte           `json:"-"`
	CreatedAt      time.Time        `json:"created_at"`
}
