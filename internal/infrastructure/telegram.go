package infrastructure

import (
	"context"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"project_chatflow/internal/entities"
	"project_chatflow/internal/interfaces"
)

// TelegramClient sends through tenant-owned Telegram bots. Bot handles are
// cached per token because tgbotapi validates the token on construction.
type TelegramClient struct {
	mu   sync.Mutex
	bots map[string]*tgbotapi.BotAPI
}

func NewTelegramClient() *TelegramClient {
	return &TelegramClient{bots: make(map[string]*tgbotapi.BotAPI)}
}

func (t *TelegramClient) bot(token string) (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if bot, ok := t.bots[token]; ok {
		return bot, nil
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	t.bots[token] = bot
	return bot, nil
}

func (t *TelegramClient) SendText(ctx context.Context, creds interfaces.ChannelCredentials, to, text string) (string, error) {
	bot, err := t.bot(creds.Token)
	if err != nil {
		return "", err
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return "", err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	sent, err := bot.Send(msg)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(sent.MessageID), nil
}

// SendTemplate sends the rendered body; Telegram has no template objects and
// no session-window restriction.
func (t *TelegramClient) SendTemplate(ctx context.Context, creds interfaces.ChannelCredentials, to string, tpl interfaces.TemplateSend) (string, error) {
	return t.SendText(ctx, creds, to, tpl.Body)
}

func (t *TelegramClient) SendMedia(ctx context.Context, creds interfaces.ChannelCredentials, to string, media entities.MediaDescriptor) (string, error) {
	bot, err := t.bot(creds.Token)
	if err != nil {
		return "", err
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return "", err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(media.MediaRef))
	photo.Caption = media.Caption
	sent, err := bot.Send(photo)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(sent.MessageID), nil
}
