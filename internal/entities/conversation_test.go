package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConversationWindowOpen(t *testing.T) {
	now := time.Now()
	conv := Conversation{LastCustomerMessageAt: now.Add(-23 * time.Hour)}
	assert.True(t, conv.WindowOpen(now))

	conv.LastCustomerMessageAt = now.Add(-25 * time.Hour)
	assert.False(t, conv.WindowOpen(now))

	// Exactly at the boundary the window is closed.
	conv.LastCustomerMessageAt = now.Add(-SessionWindow)
	assert.False(t, conv.WindowOpen(now))
}

func TestIdentifiersForChannel(t *testing.T) {
	ids := Identifiers{Phone: "628111", MessengerID: "psid-1", InstagramID: "igsid-1", TelegramID: "5551"}
	assert.Equal(t, "628111", ids.ForChannel(ChannelWhatsApp))
	assert.Equal(t, "psid-1", ids.ForChannel(ChannelMessenger))
	assert.Equal(t, "igsid-1", ids.ForChannel(ChannelInstagram))
	assert.Equal(t, "5551", ids.ForChannel(ChannelTelegram))
	assert.Equal(t, "", ids.ForChannel("sms"))
	assert.False(t, ids.Empty())
	assert.True(t, Identifiers{}.Empty())
}

func TestCampaignItemTerminal(t *testing.T) {
	assert.False(t, CampaignItem{Status: ItemPending}.Terminal())
	assert.False(t, CampaignItem{Status: ItemQueued}.Terminal())
	assert.True(t, CampaignItem{Status: ItemSent}.Terminal())
	assert.True(t, CampaignItem{Status: ItemFailed}.Terminal())
}
