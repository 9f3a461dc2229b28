package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"signal_kz/internal/errs"
	"signal_kz/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// Telegram implements Sender and Acknowledger on the Telegram Bot API
type Telegram struct {
	bot *tgbotapi.BotAPI
	log *logrus.Entry
}

// NewTelegram connects to the Bot API with token
func NewTelegram(token string, log *logrus.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	return &Telegram{bot: bot, log: log.WithField("transport", "telegram")}, nil
}

// Username is the bot's own @handle
func (t *Telegram) Username() string {
	return t.bot.Self.UserName
}

// Send delivers msg as a text or photo message. A caption over the
// messenger limit is sent as a bare photo followed by the text.
func (t *Telegram) Send(ctx context.Context, recipientID int64, msg Message) error {
	for _, c := range compose(recipientID, msg) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: recipient %d: %v", errs.ErrDelivery, recipientID, err)
		}
		if _, err := t.bot.Send(c); err != nil {
			return fmt.Errorf("%w: recipient %d: %v", errs.ErrDelivery, recipientID, err)
		}
	}
	return nil
}

func compose(chatID int64, msg Message) []tgbotapi.Chattable {
	markup := replyMarkup(msg)
	text := Clip(msg.Text, TextLimit)

	if msg.PhotoRef != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(msg.PhotoRef))
		if utf8.RuneCountInString(msg.Text) <= CaptionLimit {
			photo.Caption = msg.Text
			if markup != nil {
				photo.ReplyMarkup = markup
			}
			return []tgbotapi.Chattable{photo}
		}
		follow := tgbotapi.NewMessage(chatID, text)
		if markup != nil {
			follow.ReplyMarkup = markup
		}
		return []tgbotapi.Chattable{photo, follow}
	}

	plain := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		plain.ReplyMarkup = markup
	}
	return []tgbotapi.Chattable{plain}
}

// Ack answers a callback query so the client stops its spinner
func (t *Telegram) Ack(ctx context.Context, callbackID string) error {
	if _, err := t.bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("%w: callback %s: %v", errs.ErrDelivery, callbackID, err)
	}
	return nil
}

func replyMarkup(msg Message) interface{} {
	switch {
	case len(msg.Buttons) > 0:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(msg.Buttons))
		for _, row := range msg.Buttons {
			var buttons []tgbotapi.InlineKeyboardButton
			for _, b := range row {
				if b.URL != "" {
					buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
				} else {
					buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
				}
			}
			rows = append(rows, buttons)
		}
		return tgbotapi.NewInlineKeyboardMarkup(rows...)
	case msg.RequestLocation != "":
		kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonLocation(msg.RequestLocation)))
		kb.OneTimeKeyboard = true
		kb.ResizeKeyboard = true
		return kb
	case msg.RemoveKeyboard:
		return tgbotapi.NewRemoveKeyboard(true)
	}
	return nil
}

// Poll receives updates by long polling and feeds them to d until ctx is
// cancelled.
func (t *Telegram) Poll(ctx context.Context, d *Dispatcher) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)

	t.log.WithField("bot", t.Username()).Info("Polling for updates")
	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if in, ok := FromUpdate(update); ok {
				d.Handle(ctx, in)
			}
		}
	}
}

// SetWebhook registers url with Telegram
func (t *Telegram) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := t.bot.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}

// DeleteWebhook switches the bot back to long polling
func (t *Telegram) DeleteWebhook() error {
	if _, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return nil
}

// ParseWebhook decodes the update carried by a webhook request
func (t *Telegram) ParseWebhook(r *http.Request) (Inbound, bool, error) {
	update, err := t.bot.HandleUpdate(r)
	if err != nil {
		return Inbound{}, false, err
	}
	in, ok := FromUpdate(*update)
	return in, ok, nil
}

// FromUpdate normalises a Telegram update. It returns false for update
// kinds the bot does not handle.
func FromUpdate(u tgbotapi.Update) (Inbound, bool) {
	if cq := u.CallbackQuery; cq != nil && cq.From != nil {
		in := Inbound{
			UserID:       cq.From.ID,
			ChatID:       cq.From.ID,
			Profile:      profileOf(cq.From),
			CallbackID:   cq.ID,
			CallbackData: cq.Data,
		}
		if cq.Message != nil && cq.Message.Chat != nil {
			in.ChatID = cq.Message.Chat.ID
		}
		return in, true
	}

	m := u.Message
	if m == nil || m.From == nil {
		return Inbound{}, false
	}
	in := Inbound{
		UserID:  m.From.ID,
		ChatID:  m.From.ID,
		Profile: profileOf(m.From),
	}
	if m.Chat != nil {
		in.ChatID = m.Chat.ID
	}

	switch {
	case m.IsCommand():
		in.Command = m.Command()
		in.Args = strings.Fields(m.CommandArguments())
	case m.Location != nil:
		in.Location = &model.Location{Latitude: m.Location.Latitude, Longitude: m.Location.Longitude}
	case len(m.Photo) > 0:
		// the last size is the largest
		in.PhotoRef = m.Photo[len(m.Photo)-1].FileID
	default:
		in.Text = m.Text
	}
	return in, true
}

func profileOf(u *tgbotapi.User) model.Profile {
	return model.Profile{Username: u.UserName, FirstName: u.FirstName, LastName: u.LastName}
}
