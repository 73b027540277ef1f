package entities

import "time"

// Campaign statuses. DRAFT campaigns are assembled by the dashboard;
// this service only moves PROCESSING campaigns to a terminal status.
const (
	CampaignDraft      = "DRAFT"
	CampaignProcessing = "PROCESSING"
	CampaignCompleted  = "COMPLETED"
	CampaignFailed     = "FAILED"
)

// CampaignItem statuses. DELIVERED/READ arrive out-of-band from delivery
// receipts and are not written by this service.
const (
	ItemPending = "PENDING"
	ItemQueued  = "QUEUED"
	ItemSent    = "SENT"
	ItemFailed  = "FAILED"
)

// Campaign aggregates one bulk send. Counters and status are recomputed
// transactionally as items reach a terminal state.
type Campaign struct {
	ID           int       `json:"id"`
	TenantID     int       `json:"tenant_id"`
	Name         string    `json:"name"`
	Channel      string    `json:"channel"`
	TemplateName string    `json:"template_name"`
	Language     string    `json:"language"`
	Status       string    `json:"status"`
	TotalSent    int       `json:"total_sent"`
	TotalFailed  int       `json:"total_failed"`
	CreatedAt    time.Time `json:"created_at"`
}

// CampaignItem is the per-recipient unit of work. Exactly one outbound
// message is linked once the item is SENT.
type CampaignItem struct {
	ID         int               `json:"id"`
	CampaignID int               `json:"campaign_id"`
	ContactID  int               `json:"contact_id"`
	Status     string            `json:"status"`
	Params     map[string]string `json:"params,omitempty"` // template body parameters
	MessageID  *int              `json:"message_id,omitempty"`
	LastError  string            `json:"last_error,omitempty"`
	RetryCount int               `json:"retry_count"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// Terminal reports whether the item has reached a final send outcome.
func (i CampaignItem) Terminal() bool {
	return i.Status == ItemSent || i.Status == ItemFailed
}
