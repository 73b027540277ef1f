package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project_chatflow/internal/entities"
	"project_chatflow/internal/infrastructure"
)

func envelope(channel, payload string) entities.InboundEnvelope {
	return entities.InboundEnvelope{
		ID:      "evt-1",
		Channel: channel,
		Payload: []byte(payload),
	}
}

func newTestNormalizer() *Normalizer {
	return NewNormalizer(infrastructure.NewNopLogger())
}

func TestNormalizeWhatsAppText(t *testing.T) {
	payload := `{
		"entry": [{"changes": [{"field": "messages", "value": {
			"metadata": {"phone_number_id": "1029384756"},
			"contacts": [{"wa_id": "628123456789", "profile": {"name": "Budi"}}],
			"messages": [{"from": "628123456789", "id": "wamid.abc", "type": "text", "text": {"body": "halo, masih buka?"}}]
		}}]}]
	}`

	res := newTestNormalizer().Normalize(envelope(entities.ChannelWhatsApp, payload))

	require.Equal(t, EventMessage, res.Class)
	require.NotNil(t, res.Event)
	assert.Equal(t, entities.ChannelWhatsApp, res.Event.Channel)
	assert.Equal(t, "1029384756", res.Event.RoutingKey)
	assert.Equal(t, "628123456789", res.Event.SenderIdentifier)
	assert.Equal(t, "wamid.abc", res.Event.ExternalID)
	assert.Equal(t, entities.TypeText, res.Event.MessageType)
	assert.Equal(t, "halo, masih buka?", res.Event.TextBody)
	assert.Equal(t, "Budi", res.Event.Hints.Name)
}

func TestNormalizeWhatsAppImage(t *testing.T) {
	payload := `{
		"entry": [{"changes": [{"field": "messages", "value": {
			"messages": [{"from": "628123456789", "id": "wamid.img", "type": "image",
				"image": {"id": "media-77", "caption": "struk transfer", "mime_type": "image/jpeg"}}]
		}}]}]
	}`

	res := newTestNormalizer().Normalize(envelope(entities.ChannelWhatsApp, payload))

	require.Equal(t, EventMessage, res.Class)
	assert.Equal(t, entities.TypeImage, res.Event.MessageType)
	require.NotNil(t, res.Event.Media)
	assert.Equal(t, "media-77", res.Event.Media.MediaRef)
	assert.Equal(t, "struk transfer", res.Event.Media.Caption)
}

func TestNormalizeWhatsAppMediaWithoutObjectIgnored(t *testing.T) {
	// A declared media type with no media object must degrade to ignored,
	// never crash the consumer loop.
	for _, kind := range []string{"image", "audio", "video", "document"} {
		t.Run(kind, func(t *testing.T) {
			payload := `{
				"entry": [{"changes": [{"field": "messages", "value": {
					"messages": [{"from": "628123456789", "id": "wamid.x", "type": "` + kind + `"}]
				}}]}]
			}`

			res := newTestNormalizer().Normalize(envelope(entities.ChannelWhatsApp, payload))
			assert.Equal(t, EventIgnored, res.Class)
			assert.Contains(t, res.Reason, "without media object")
		})
	}
}

func TestNormalizeWhatsAppTemplateStatus(t *testing.T) {
	payload := `{
		"entry": [{"id": "waba-777", "changes": [{"field": "message_template_status_update", "value": {
			"message_template_name": "order_update",
			"message_template_language": "id",
			"event": "APPROVED",
			"quality_score": "GREEN"
		}}]}]
	}`

	res := newTestNormalizer().Normalize(envelope(entities.ChannelWhatsApp, payload))

	require.Equal(t, EventTemplateStatus, res.Class)
	require.NotNil(t, res.TemplateStatus)
	assert.Equal(t, "waba-777", res.TemplateStatus.RoutingKey)
	assert.Equal(t, "order_update", res.TemplateStatus.TemplateName)
	assert.Equal(t, "id", res.TemplateStatus.Language)
	assert.Equal(t, "APPROVED", res.TemplateStatus.Status)
	assert.Equal(t, "GREEN", res.TemplateStatus.Quality)
}

func TestNormalizeWhatsAppDeliveryStatusIgnored(t *testing.T) {
	payload := `{
		"entry": [{"changes": [{"field": "messages", "value": {
			"statuses": [{"id": "wamid.abc", "status": "delivered"}]
		}}]}]
	}`

	res := newTestNormalizer().Normalize(envelope(entities.ChannelWhatsApp, payload))
	assert.Equal(t, EventIgnored, res.Class)
}

func TestNormalizeWhatsAppUnsupportedTypeIgnored(t *testing.T) {
	payload := `{
		"entry": [{"changes": [{"field": "messages", "value": {
			"messages": [{"from": "628123456789", "id": "wamid.loc", "type": "location"}]
		}}]}]
	}`

	res := newTestNormalizer().Normalize(envelope(entities.ChannelWhatsApp, payload))
	assert.Equal(t, EventIgnored, res.Class)
}

func TestNormalizeMessengerText(t *testing.T) {
	payload := `{
		"entry": [{"messaging": [{
			"sender": {"id": "24681357"},
			"message": {"mid": "m_001", "text": "is this still available?"}
		}]}]
	}`

	res := newTestNormalizer().Normalize(envelope(entities.ChannelMessenger, payload))

	require.Equal(t, EventMessage, res.Class)
	assert.Equal(t, entities.ChannelMessenger, res.Event.Channel)
	assert.Equal(t, "24681357", res.Event.SenderIdentifier)
	assert.Equal(t, "m_001", res.Event.ExternalID)
	assert.Equal(t, "is this still available?", res.Event.TextBody)
	assert.Empty(t, res.Event.RoutingKey)
}

func TestNormalizeInstagramAttachment(t *testing.T) {
	payload := `{
		"entry": [{"messaging": [{
			"sender": {"id": "ig-99"},
			"message": {"mid": "m_002", "attachments": [{"type": "image", "payload": {"url": "https://cdn.example/p.jpg"}}]}
		}]}]
	}`

	res := newTestNormalizer().Normalize(envelope(entities.ChannelInstagram, payload))

	require.Equal(t, EventMessage, res.Class)
	assert.Equal(t, entities.ChannelInstagram, res.Event.Channel)
	assert.Equal(t, entities.TypeImage, res.Event.MessageType)
	require.NotNil(t, res.Event.Media)
	assert.Equal(t, "https://cdn.example/p.jpg", res.Event.Media.MediaRef)
}

func TestNormalizeMessengerPostbackIgnored(t *testing.T) {
	payload := `{"entry": [{"messaging": [{"sender": {"id": "24681357"}, "postback": {"payload": "GET_STARTED"}}]}]}`

	res := newTestNormalizer().Normalize(envelope(entities.ChannelMessenger, payload))
	assert.Equal(t, EventIgnored, res.Class)
}

func TestNormalizeTelegramText(t *testing.T) {
	payload := `{
		"update_id": 1001,
		"message": {
			"message_id": 42,
			"from": {"id": 5551, "first_name": "Sari", "language_code": "id"},
			"chat": {"id": 5551, "type": "private"},
			"text": "harga paketnya berapa?"
		}
	}`

	res := newTestNormalizer().Normalize(envelope(entities.ChannelTelegram, payload))

	require.Equal(t, EventMessage, res.Class)
	assert.Equal(t, entities.ChannelTelegram, res.Event.Channel)
	assert.Equal(t, "5551", res.Event.SenderIdentifier)
	assert.Equal(t, "42", res.Event.ExternalID)
	assert.Equal(t, "harga paketnya berapa?", res.Event.TextBody)
	assert.Equal(t, "Sari", res.Event.Hints.Name)
	assert.Equal(t, "id", res.Event.Hints.Locale)
}

func TestNormalizeTelegramGroupIgnored(t *testing.T) {
	payload := `{
		"update_id": 1002,
		"message": {
			"message_id": 43,
			"chat": {"id": -100200, "type": "supergroup"},
			"text": "hi all"
		}
	}`

	res := newTestNormalizer().Normalize(envelope(entities.ChannelTelegram, payload))
	assert.Equal(t, EventIgnored, res.Class)
}

func TestNormalizeTelegramPhotoPicksLargest(t *testing.T) {
	payload := `{
		"update_id": 1003,
		"message": {
			"message_id": 44,
			"chat": {"id": 5551, "type": "private"},
			"photo": [{"file_id": "small"}, {"file_id": "large"}],
			"caption": "bukti bayar"
		}
	}`

	res := newTestNormalizer().Normalize(envelope(entities.ChannelTelegram, payload))

	require.Equal(t, EventMessage, res.Class)
	assert.Equal(t, entities.TypeImage, res.Event.MessageType)
	assert.Equal(t, "large", res.Event.Media.MediaRef)
	assert.Equal(t, "bukti bayar", res.Event.Media.Caption)
}

func TestNormalizeUnknownChannelIgnored(t *testing.T) {
	res := newTestNormalizer().Normalize(envelope("sms", `{}`))
	assert.Equal(t, EventIgnored, res.Class)
}

func TestNormalizeMalformedPayloadIgnored(t *testing.T) {
	res := newTestNormalizer().Normalize(envelope(entities.ChannelWhatsApp, `{not json`))
	assert.Equal(t, EventIgnored, res.Class)
	assert.NotEmpty(t, res.Reason)
}
