package entities

import "time"

const (
	ConversationOpen   = "open"
	ConversationClosed = "closed"
)

// SessionWindow is how long after the customer's last inbound message
// free-form replies stay permitted. Outside the window only pre-approved
// template messages may be sent.
const SessionWindow = 24 * time.Hour

// Conversation is one thread between a contact and a tenant on one channel.
// At most one open conversation exists per (tenant, contact, channel).
type Conversation struct {
	ID                    int       `json:"id"`
	TenantID              int       `json:"tenant_id"`
	ContactID             int       `json:"contact_id"`
	Channel               string    `json:"channel"`
	Status                string    `json:"status"`
	LastCustomerMessageAt time.Time `json:"last_customer_message_at"`
	CreatedAt             time.Time `json:"created_at"`
}

// WindowOpen reports whether a free-form text send is still permitted.
func (c Conversation) WindowOpen(now time.Time) bool {
	return now.Sub(c.LastCustomerMessageAt) < SessionWindow
}
