package telegram

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"HNWatcher/internal/domain"
	"HNWatcher/internal/ports"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier mirrors recorded items and cycle failures into a Telegram chat.
type Notifier struct {
	api    sender
	chatID int64
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier authenticates the bot and binds it to chatID. An empty endpoint uses the public Bot API.
func NewNotifier(botToken, chatID, endpoint string, client *http.Client) (*Notifier, error) {
	if botToken == "" || chatID == "" {
		return nil, fmt.Errorf("telegram notifier misconfigured")
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse chat id: %w", err)
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if client == nil {
		client = &http.Client{}
	}

	api, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("connect bot: %w", err)
	}
	return &Notifier{api: api, chatID: id}, nil
}

// NotifyRecord posts an HTML message for the record.
func (n *Notifier) NotifyRecord(_ context.Context, rec domain.Record) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatRecord(rec))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send record %s: %w", rec.ID, err)
	}
	return nil
}

// NotifyError posts a plain-text failure notice.
func (n *Notifier) NotifyError(_ context.Context, cause error) error {
	msg := tgbotapi.NewMessage(n.chatID, "Error: "+cause.Error())
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send error notice: %w", err)
	}
	return nil
}

// FormatRecord renders rec as Telegram HTML.
func FormatRecord(rec domain.Record) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(rec.Title))
	b.WriteString("</b>\n")
	b.WriteString(fmt.Sprintf("Score: %d | ID: %s\n", rec.Score, rec.ID))
	b.WriteString(fmt.Sprintf("<a href=\"%s\">Link</a>", html.EscapeString(rec.URL)))
	return b.String()
}
