package entities

// AutomationRule maps an inbound keyword to a canned reply. Tenant-scoped,
// read-only to this service; managed by the dashboard.
type AutomationRule struct {
	ID       int    `json:"id"`
	TenantID int    `json:"tenant_id"`
	Keyword  string `json:"keyword"`
	Reply    string `json:"reply"`
	IsActive bool   `json:"is_active"`
}

// AI reply styles. Unrecognized values fall back to PROFESSIONAL.
const (
	StyleProfessional = "PROFESSIONAL"
	StyleFriendly     = "FRIENDLY"
	StyleEmpathetic   = "EMPATHETIC"
	StyleFunny        = "FUNNY"
)

// AI providers. Unrecognized values fall back to Gemini.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// AIConfig holds a tenant's AI reply settings. Read-only to this service.
type AIConfig struct {
	TenantID     int     `json:"tenant_id"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	APIKey       string  `json:"-"`
	Style        string  `json:"style"`
	UseEmoji     bool    `json:"use_emoji"`
	Instructions string  `json:"instructions"`
	HistoryLimit int     `json:"history_limit"`
	Temperature  float64 `json:"temperature"`
	IsActive     bool    `json:"is_active"`
}

// KnowledgeDoc is one document of the tenant's retrieval corpus.
type KnowledgeDoc struct {
	ID       int    `json:"id"`
	TenantID int    `json:"tenant_id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	IsActive bool   `json:"is_active"`
}

// Template statuses as reported by provider template-status callbacks.
const (
	TemplateApproved = "APPROVED"
	TemplateRejected = "REJECTED"
	TemplatePaused   = "PAUSED"
)

// MessageTemplate is the metadata of a pre-approved template message.
// Status and quality are mutated directly by template-status callbacks.
type MessageTemplate struct {
	ID       int    `json:"id"`
	TenantID int    `json:"tenant_id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Body     string `json:"body"`
	Status   string `json:"status"`
	Quality  string `json:"quality"`
}
