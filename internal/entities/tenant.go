package entities

// Tenant is the isolation boundary. Every other row is scoped by TenantID.
// Rows are created by provisioning; this service only reads them.
type Tenant struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	WAPhoneNumberID string `json:"wa_phone_number_id"`     // WhatsApp Cloud API sender id
	WABAID          string `json:"wa_business_account_id"` // routing key on template-status callbacks
	WAAccessToken   string `json:"-"`
	PageAccessToken string `json:"-"` // Messenger page token
	IGAccessToken   string `json:"-"` // Instagram messaging token
	TelegramToken   string `json:"-"` // Tenant's Telegram bot token
	IsActive        bool   `json:"is_active"`
}

// ChannelToken returns the credential used to send on the given channel.
func (t Tenant) ChannelToken(channel string) string {
	switch channel {
	case ChannelWhatsApp:
		return t.WAAccessToken
	case ChannelMessenger:
		return t.PageAccessToken
	case ChannelInstagram:
		return t.IGAccessToken
	case ChannelTelegram:
		return t.TelegramToken
	}
	return ""
}
