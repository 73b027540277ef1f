package entities

import "time"

// Supported channels. WhatsApp identifies contacts by phone number, the
// others by a per-channel opaque id.
const (
	ChannelWhatsApp  = "whatsapp"
	ChannelMessenger = "messenger"
	ChannelInstagram = "instagram"
	ChannelTelegram  = "telegram"
)

// Identifiers carries every channel identifier observed for one person.
// Empty fields mean "not seen on that channel yet".
type Identifiers struct {
	Phone       string `json:"phone,omitempty"`
	MessengerID string `json:"messenger_id,omitempty"`
	InstagramID string `json:"instagram_id,omitempty"`
	TelegramID  string `json:"telegram_id,omitempty"`
}

// ForChannel returns the identifier used on the given channel.
func (i Identifiers) ForChannel(channel string) string {
	switch channel {
	case ChannelWhatsApp:
		return i.Phone
	case ChannelMessenger:
		return i.MessengerID
	case ChannelInstagram:
		return i.InstagramID
	case ChannelTelegram:
		return i.TelegramID
	}
	return ""
}

// Empty reports whether no identifier is set.
func (i Identifiers) Empty() bool {
	return i.Phone == "" && i.MessengerID == "" && i.InstagramID == "" && i.TelegramID == ""
}

// ProfileHints are optional profile fields observed on an inbound event.
// They are merged non-destructively; CRM-owned fields (tags, notes) are
// never touched by this service.
type ProfileHints struct {
	Name   string
	Locale string
}

// Contact is one person for one tenant. At most one contact exists per
// (tenant, identifier); new identifiers are merged onto the existing row.
type Contact struct {
	ID              int         `json:"id"`
	TenantID        int         `json:"tenant_id"`
	Identifiers     Identifiers `json:"identifiers"`
	Name            string      `json:"name"`
	Locale          string      `json:"locale"`
	Tags            []string    `json:"tags"`
	LastInteraction time.Time   `json:"last_interaction"`
	CreatedAt       time.Time   `json:"created_at"`
}
