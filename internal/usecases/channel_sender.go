package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"project_chatflow/internal/entities"
	"project_chatflow/internal/infrastructure"
	"project_chatflow/internal/interfaces"
)

// ErrSessionWindowClosed means a free-form text send was attempted more
// than 24 hours after the customer's last message; only a pre-approved
// template may be sent.
var ErrSessionWindowClosed = errors.New("session window closed: only template messages permitted")

// ChannelSender dispatches outbound messages to the provider endpoint
// matching the channel. Providers form a small closed set of variants;
// adding a channel means registering a new client, not reflection.
type ChannelSender struct {
	log     *infrastructure.Logger
	clients map[string]interfaces.ChannelClient
}

func NewChannelSender(log *infrastructure.Logger, whatsapp, metaDM, telegram interfaces.ChannelClient) *ChannelSender {
	return &ChannelSender{
		log: log.With("component", "channel_sender"),
		clients: map[string]interfaces.ChannelClient{
			entities.ChannelWhatsApp:  whatsapp,
			entities.ChannelMessenger: metaDM,
			entities.ChannelInstagram: metaDM,
			entities.ChannelTelegram:  telegram,
		},
	}
}

func (s *ChannelSender) client(channel string) (interfaces.ChannelClient, error) {
	c, ok := s.clients[channel]
	if !ok || c == nil {
		return nil, fmt.Errorf("no client for channel %s", channel)
	}
	return c, nil
}

func (s *ChannelSender) credentials(tenant *entities.Tenant, channel string) (interfaces.ChannelCredentials, error) {
	token := tenant.ChannelToken(channel)
	if token == "" {
		return interfaces.ChannelCredentials{}, fmt.Errorf("tenant %d has no credentials for channel %s", tenant.ID, channel)
	}
	creds := interfaces.ChannelCredentials{Token: token}
	if channel == entities.ChannelWhatsApp {
		creds.SenderID = tenant.WAPhoneNumberID
	}
	return creds, nil
}

// SendText sends a free-form text message. The conversation's session
// window must be open; outside it only SendTemplate is permitted.
func (s *ChannelSender) SendText(ctx context.Context, tenant *entities.Tenant, conv *entities.Conversation, to, text string) (string, error) {
	if !conv.WindowOpen(time.Now()) {
		return "", ErrSessionWindowClosed
	}
	client, err := s.client(conv.Channel)
	if err != nil {
		return "", err
	}
	creds, err := s.credentials(tenant, conv.Channel)
	if err != nil {
		return "", err
	}
	return client.SendText(ctx, creds, to, text)
}

// SendTemplate sends a pre-approved template message. Permitted regardless
// of the session window.
func (s *ChannelSender) SendTemplate(ctx context.Context, tenant *entities.Tenant, channel, to string, tpl interfaces.TemplateSend) (string, error) {
	client, err := s.client(channel)
	if err != nil {
		return "", err
	}
	creds, err := s.credentials(tenant, channel)
	if err != nil {
		return "", err
	}
	return client.SendTemplate(ctx, creds, to, tpl)
}

// SendMedia sends a media message (campaign badges and the like).
func (s *ChannelSender) SendMedia(ctx context.Context, tenant *entities.Tenant, channel, to string, media entities.MediaDescriptor) (string, error) {
	client, err := s.client(channel)
	if err != nil {
		return "", err
	}
	creds, err := s.credentials(tenant, channel)
	if err != nil {
		return "", err
	}
	return client.SendMedia(ctx, creds, to, media)
}

// TrySendText is the inbound reply path: a failed send is logged and
// reported as "nothing sent" (empty id), never as a pipeline error.
func (s *ChannelSender) TrySendText(ctx context.Context, tenant *entities.Tenant, conv *entities.Conversation, to, text string) string {
	id, err := s.SendText(ctx, tenant, conv, to, text)
	if err != nil {
		s.log.Warn("outbound send failed", "tenant", tenant.ID, "channel", conv.Channel, "error", err)
		return ""
	}
	return id
}
