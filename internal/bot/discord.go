package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/bowerhall/studybuddy/internal/document"
	"github.com/bowerhall/studybuddy/internal/logger"
)

const discordMaxMessage = 2000

type discord struct {
	session *discordgo.Session
	chat    *Chat
	ctx     context.Context
}

func newDiscord(token string, chat *Chat) (Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	d := &discord{
		session: session,
		chat:    chat,
		ctx:     context.Background(),
	}

	session.AddHandler(d.handleMessage)
	session.AddHandler(d.handleInteraction)

	return d, nil
}

func (d *discord) Start(ctx context.Context) error {
	d.ctx = ctx

	if err := d.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	logger.Info("discord connected")

	<-ctx.Done()
	return d.session.Close()
}

func sessionForChannel(channelID string) string {
	return "discord:" + channelID
}

func (d *discord) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	sessionID := sessionForChannel(m.ChannelID)
	log := logger.With("session", sessionID)

	s.ChannelTyping(m.ChannelID)

	var out Outgoing
	switch {
	case len(m.Attachments) > 0:
		att := m.Attachments[0]
		log.Info("attachment received", "name", att.Filename, "size", att.Size)
		out = d.handleAttachment(sessionID, att)
	case m.Content != "":
		log.Info("message received", "from", m.Author.Username, "text", truncate(m.Content, 50))
		out = d.chat.HandleText(d.ctx, sessionID, m.Content)
	default:
		return
	}

	d.reply(m, out)
}

func (d *discord) handleAttachment(sessionID string, att *discordgo.MessageAttachment) Outgoing {
	if !isPDF(att.Filename, att.ContentType) {
		return plain("📚 Please send a PDF file.")
	}
	if att.Size > document.MaxUploadSize {
		return plain("❌ That PDF is too large (20 MB max).")
	}

	data, err := download(d.ctx, att.URL)
	if err != nil {
		logger.Error("discord download failed", "error", err)
		return plain("❌ Error reading PDF: could not download the file.")
	}

	return d.chat.HandleUpload(d.ctx, sessionID, att.Filename, data)
}

func (d *discord) reply(m *discordgo.MessageCreate, out Outgoing) {
	chunks := splitMessage(out.Text, discordMaxMessage)

	for i, chunk := range chunks {
		send := &discordgo.MessageSend{Content: chunk}
		if i == 0 {
			send.Reference = m.Reference()
		}
		if i == len(chunks)-1 && out.FeedbackIndex >= 0 {
			send.Components = feedbackButtons(out.FeedbackIndex)
		}

		if _, err := d.session.ChannelMessageSendComplex(m.ChannelID, send); err != nil {
			logger.Error("discord reply failed", "error", err)
			return
		}
	}
	logger.Info("reply sent", "chars", len(out.Text))
}

func feedbackButtons(index int) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "👍", Style: discordgo.SecondaryButton, CustomID: feedbackPayload(index, true)},
				discordgo.Button{Label: "👎", Style: discordgo.SecondaryButton, CustomID: feedbackPayload(index, false)},
			},
		},
	}
}

func (d *discord) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		return
	}

	text := d.chat.HandleFeedback(sessionForChannel(i.ChannelID), i.MessageComponentData().CustomID)

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		logger.Error("discord interaction reply failed", "error", err)
	}
}

func (d *discord) Send(chatID string, message string) error {
	for _, chunk := range splitMessage(message, discordMaxMessage) {
		if _, err := d.session.ChannelMessageSend(chatID, chunk); err != nil {
			logger.Error("discord send failed", "error", err, "channelID", chatID)
			return err
		}
	}
	logger.Info("discord message sent", "channelID", chatID, "chars", len(message))
	return nil
}
