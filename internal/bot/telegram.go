package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bowerhall/studybuddy/internal/document"
	"github.com/bowerhall/studybuddy/internal/logger"
)

const telegramMaxMessage = 4096

type telegram struct {
	api  *tgbotapi.BotAPI
	chat *Chat
}

func newTelegram(token string, chat *Chat) (Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	logger.Info("telegram authorized", "bot", api.Self.UserName)
	return &telegram{api: api, chat: chat}, nil
}

func (t *telegram) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.api.GetUpdatesChan(u)
	defer t.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			switch {
			case update.CallbackQuery != nil:
				go t.handleCallback(update.CallbackQuery)
			case update.Message != nil:
				go t.handleMessage(ctx, update.Message)
			}
		}
	}
}

func sessionForChat(chatID int64) string {
	return fmt.Sprintf("telegram:%d", chatID)
}

func (t *telegram) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	sessionID := sessionForChat(msg.Chat.ID)
	log := logger.With("session", sessionID)

	t.api.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping))

	var out Outgoing
	switch {
	case msg.Document != nil:
		log.Info("document received", "name", msg.Document.FileName, "size", msg.Document.FileSize)
		out = t.handleDocument(ctx, sessionID, msg.Document)
	case msg.Text != "":
		log.Info("message received", "text", truncate(msg.Text, 50))
		out = t.chat.HandleText(ctx, sessionID, msg.Text)
	default:
		return
	}

	t.reply(msg, out)
}

func (t *telegram) handleDocument(ctx context.Context, sessionID string, doc *tgbotapi.Document) Outgoing {
	if !isPDF(doc.FileName, doc.MimeType) {
		return plain("📚 Please send a PDF file.")
	}
	if doc.FileSize > document.MaxUploadSize {
		return plain("❌ That PDF is too large (20 MB max).")
	}

	url, err := t.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		logger.Error("telegram file lookup failed", "error", err)
		return plain("❌ Error reading PDF: could not download the file.")
	}

	data, err := download(ctx, url)
	if err != nil {
		logger.Error("telegram download failed", "error", err)
		return plain("❌ Error reading PDF: could not download the file.")
	}

	return t.chat.HandleUpload(ctx, sessionID, doc.FileName, data)
}

func (t *telegram) reply(msg *tgbotapi.Message, out Outgoing) {
	chunks := splitMessage(out.Text, telegramMaxMessage)

	for i, chunk := range chunks {
		reply := tgbotapi.NewMessage(msg.Chat.ID, chunk)
		if i == 0 {
			reply.ReplyToMessageID = msg.MessageID
		}
		if i == len(chunks)-1 && out.FeedbackIndex >= 0 {
			reply.ReplyMarkup = feedbackKeyboard(out.FeedbackIndex)
		}

		if _, err := t.api.Send(reply); err != nil {
			logger.Error("send failed", "error", err)
			return
		}
	}
	logger.Info("reply sent", "chars", len(out.Text))
}

func feedbackKeyboard(index int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👍", feedbackPayload(index, true)),
			tgbotapi.NewInlineKeyboardButtonData("👎", feedbackPayload(index, false)),
		),
	)
}

func (t *telegram) handleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}

	text := t.chat.HandleFeedback(sessionForChat(cb.Message.Chat.ID), cb.Data)

	// answered as a toast, visible only to whoever pressed
	if _, err := t.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		logger.Error("callback answer failed", "error", err)
	}
}

func (t *telegram) Send(chatID string, message string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat id %q: %w", chatID, err)
	}

	for _, chunk := range splitMessage(message, telegramMaxMessage) {
		if _, err := t.api.Send(tgbotapi.NewMessage(id, chunk)); err != nil {
			logger.Error("proactive send failed", "error", err, "chatID", chatID)
			return err
		}
	}
	logger.Info("proactive message sent", "chatID", chatID, "chars", len(message))
	return nil
}
