package notify

import (
	"context"
	"fmt"

	api "github.com/OvyFlash/telegram-bot-api"
)

type sender interface {
	Send(c api.Chattable) (api.Message, error)
}

// Announcer pushes game announcements into chats. Messages go out in
// markdown since the verdict and casino strings carry emphasis.
type Announcer struct {
	bot sender
}

func NewAnnouncer(bot sender) *Announcer {
	return &Announcer{bot: bot}
}

func (a *Announcer) Announce(_ context.Context, chatID int64, text string) error {
	msg := api.NewMessage(chatID, text)
	msg.ParseMode = "markdown"
	if _, err := a.bot.Send(msg); err != nil {
		return fmt.Errorf("send to %d: %w", chatID, err)
	}
	return nil
}

// Reply answers a specific message in the chat.
func (a *Announcer) Reply(_ context.Context, chatID int64, messageID int, text string) error {
	msg := api.NewMessage(chatID, text)
	msg.ParseMode = "markdown"
	msg.ReplyParameters = api.ReplyParameters{MessageID: messageID}
	if _, err := a.bot.Send(msg); err != nil {
		return fmt.Errorf("reply in %d: %w", chatID, err)
	}
	return nil
}
