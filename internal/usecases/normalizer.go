package usecases

import (
	"encoding/json"
	"strconv"

	"project_chatflow/internal/entities"
	"project_chatflow/internal/infrastructure"
)

// Classification of a raw channel event.
type Classification int

const (
	// EventIgnored: unsupported, non-message, or malformed. Terminal.
	EventIgnored Classification = iota
	// EventMessage: a customer message to run through the pipeline.
	EventMessage
	// EventTemplateStatus: a template review/quality callback, applied
	// directly to template metadata outside the pipeline.
	EventTemplateStatus
)

// NormalizeResult is the outcome of classifying one raw payload.
type NormalizeResult struct {
	Class          Classification
	Event          *entities.CanonicalEvent
	TemplateStatus *entities.TemplateStatusEvent
	Reason         string // why the event was ignored
}

// Normalizer turns raw channel payloads into canonical events. It never
// fails hard: a parse failure degrades to EventIgnored so one malformed
// webhook body cannot stall the pipeline.
type Normalizer struct {
	log *infrastructure.Logger
}

func NewNormalizer(log *infrastructure.Logger) *Normalizer {
	return &Normalizer{log: log.With("component", "normalizer")}
}

func ignored(reason string) NormalizeResult {
	return NormalizeResult{Class: EventIgnored, Reason: reason}
}

// Normalize classifies the envelope according to its channel tag.
func (n *Normalizer) Normalize(env entities.InboundEnvelope) NormalizeResult {
	var res NormalizeResult
	switch env.Channel {
	case entities.ChannelWhatsApp:
		res = n.normalizeWhatsApp(env.Payload)
	case entities.ChannelMessenger, entities.ChannelInstagram:
		res = n.normalizeMetaDM(env.Channel, env.Payload)
	case entities.ChannelTelegram:
		res = n.normalizeTelegram(env.Payload)
	default:
		res = ignored("unknown channel " + env.Channel)
	}
	if res.Class == EventIgnored {
		n.log.Debug("event ignored", "envelope_id", env.ID, "channel", env.Channel, "reason", res.Reason)
	}
	return res
}

// whatsappPayload mirrors the Cloud API webhook body, down to the fields we
// read.
type whatsappPayload struct {
	Entry []struct {
		ID      string `json:"id"` // WhatsApp Business Account id
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Contacts []struct {
					WAID    string `json:"wa_id"`
					Profile struct {
						Name string `json:"name"`
					} `json:"profile"`
				} `json:"contacts"`
				Messages []struct {
					From string `json:"from"`
					ID   string `json:"id"`
					Type string `json:"type"`
					Text struct {
						Body string `json:"body"`
					} `json:"text"`
					Image    *waMedia `json:"image"`
					Audio    *waMedia `json:"audio"`
					Video    *waMedia `json:"video"`
					Document *waMedia `json:"document"`
				} `json:"messages"`
				Statuses []json.RawMessage `json:"statuses"`

				// template-status callbacks
				MessageTemplateName     string `json:"message_template_name"`
				MessageTemplateLanguage string `json:"message_template_language"`
				Event                   string `json:"event"`
				Quality                 string `json:"quality_score"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type waMedia struct {
	ID       string `json:"id"`
	Link     string `json:"link"`
	Caption  string `json:"caption"`
	MimeType string `json:"mime_type"`
	Filename string `json:"filename"`
}

func (m *waMedia) descriptor() *entities.MediaDescriptor {
	ref := m.Link
	if ref == "" {
		ref = m.ID
	}
	return &entities.MediaDescriptor{
		MediaRef: ref,
		Caption:  m.Caption,
		MimeType: m.MimeType,
		Filename: m.Filename,
	}
}

func (n *Normalizer) normalizeWhatsApp(raw []byte) NormalizeResult {
	var payload whatsappPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ignored("malformed whatsapp payload: " + err.Error())
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field == "message_template_status_update" {
				status := change.Value.Event
				if status == "" {
					return ignored("template status callback without event")
				}
				return NormalizeResult{
					Class: EventTemplateStatus,
					TemplateStatus: &entities.TemplateStatusEvent{
						RoutingKey:   entry.ID,
						TemplateName: change.Value.MessageTemplateName,
						Language:     change.Value.MessageTemplateLanguage,
						Status:       status,
						Quality:      change.Value.Quality,
					},
				}
			}
			if change.Field != "messages" {
				continue
			}
			if len(change.Value.Statuses) > 0 && len(change.Value.Messages) == 0 {
				// Delivery receipts are owned by another subsystem.
				return ignored("delivery status callback")
			}
			for _, msg := range change.Value.Messages {
				ev := &entities.CanonicalEvent{
					Channel:          entities.ChannelWhatsApp,
					RoutingKey:       change.Value.Metadata.PhoneNumberID,
					ExternalID:       msg.ID,
					SenderIdentifier: msg.From,
					RawPayload:       raw,
				}
				for _, c := range change.Value.Contacts {
					if c.WAID == msg.From {
						ev.Hints.Name = c.Profile.Name
					}
				}
				// A declared media type without its media object is a
				// degenerate payload, not a reason to fail the loop.
				var media *waMedia
				switch msg.Type {
				case "text":
					ev.MessageType = entities.TypeText
					ev.TextBody = msg.Text.Body
				case "image":
					ev.MessageType = entities.TypeImage
					media = msg.Image
				case "audio":
					ev.MessageType = entities.TypeAudio
					media = msg.Audio
				case "video":
					ev.MessageType = entities.TypeVideo
					media = msg.Video
				case "document":
					ev.MessageType = entities.TypeDocument
					media = msg.Document
				default:
					return ignored("unsupported whatsapp message type " + msg.Type)
				}
				if msg.Type != "text" {
					if media == nil {
						return ignored("whatsapp " + msg.Type + " message without media object")
					}
					ev.Media = media.descriptor()
				}
				if ev.SenderIdentifier == "" || ev.ExternalID == "" {
					return ignored("whatsapp message without sender or id")
				}
				return NormalizeResult{Class: EventMessage, Event: ev}
			}
		}
	}
	return ignored("no message in whatsapp payload")
}

// metaDMPayload covers both Messenger ("page") and Instagram webhook
// bodies; they share the messaging entry shape.
type metaDMPayload struct {
	Entry []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Message *struct {
				MID         string `json:"mid"`
				Text        string `json:"text"`
				Attachments []struct {
					Type    string `json:"type"`
					Payload struct {
						URL string `json:"url"`
					} `json:"payload"`
				} `json:"attachments"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

func (n *Normalizer) normalizeMetaDM(channel string, raw []byte) NormalizeResult {
	var payload metaDMPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ignored("malformed " + channel + " payload: " + err.Error())
	}

	for _, entry := range payload.Entry {
		for _, m := range entry.Messaging {
			if m.Message == nil {
				// Postbacks, read receipts, reactions: not messages.
				continue
			}
			ev := &entities.CanonicalEvent{
				Channel:          channel,
				ExternalID:       m.Message.MID,
				SenderIdentifier: m.Sender.ID,
				RawPayload:       raw,
			}
			switch {
			case m.Message.Text != "":
				ev.MessageType = entities.TypeText
				ev.TextBody = m.Message.Text
			case len(m.Message.Attachments) > 0:
				att := m.Message.Attachments[0]
				ev.MessageType = attachmentType(att.Type)
				ev.Media = &entities.MediaDescriptor{MediaRef: att.Payload.URL}
			default:
				continue
			}
			if ev.SenderIdentifier == "" || ev.ExternalID == "" {
				return ignored(channel + " message without sender or id")
			}
			return NormalizeResult{Class: EventMessage, Event: ev}
		}
	}
	return ignored("no message in " + channel + " payload")
}

func attachmentType(t string) string {
	switch t {
	case "image":
		return entities.TypeImage
	case "audio":
		return entities.TypeAudio
	case "video":
		return entities.TypeVideo
	case "file":
		return entities.TypeDocument
	}
	return entities.TypeDocument
}

type telegramPayload struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		MessageID int64 `json:"message_id"`
		From      struct {
			ID           int64  `json:"id"`
			FirstName    string `json:"first_name"`
			LanguageCode string `json:"language_code"`
		} `json:"from"`
		Chat struct {
			ID   int64  `json:"id"`
			Type string `json:"type"`
		} `json:"chat"`
		Text  string `json:"text"`
		Photo []struct {
			FileID string `json:"file_id"`
		} `json:"photo"`
		Caption string `json:"caption"`
	} `json:"message"`
}

func (n *Normalizer) normalizeTelegram(raw []byte) NormalizeResult {
	var payload telegramPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ignored("malformed telegram payload: " + err.Error())
	}
	if payload.Message == nil {
		return ignored("telegram update without message")
	}
	if payload.Message.Chat.Type != "" && payload.Message.Chat.Type != "private" {
		return ignored("telegram group message")
	}

	ev := &entities.CanonicalEvent{
		Channel:          entities.ChannelTelegram,
		ExternalID:       strconv.FormatInt(payload.Message.MessageID, 10),
		SenderIdentifier: strconv.FormatInt(payload.Message.Chat.ID, 10),
		RawPayload:       raw,
		Hints: entities.ProfileHints{
			Name:   payload.Message.From.FirstName,
			Locale: payload.Message.From.LanguageCode,
		},
	}
	switch {
	case payload.Message.Text != "":
		ev.MessageType = entities.TypeText
		ev.TextBody = payload.Message.Text
	case len(payload.Message.Photo) > 0:
		ev.MessageType = entities.TypeImage
		ev.Media = &entities.MediaDescriptor{
			MediaRef: payload.Message.Photo[len(payload.Message.Photo)-1].FileID,
			Caption:  payload.Message.Caption,
		}
	default:
		return ignored("unsupported telegram message kind")
	}
	return NormalizeResult{Class: EventMessage, Event: ev}
}
