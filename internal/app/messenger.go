package app

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/goblinlaunch/goblinbot/core/telegram/keyboard"
	"github.com/goblinlaunch/goblinbot/internal/wizard"
)

// Messenger adapts the bot handle to the wizard's output interface. Sends
// are synchronous because the wizard needs the resulting message ids to
// later delete messages that carried secrets.
type Messenger struct {
	mu  sync.RWMutex
	bot *tele.Bot
}

// NewMessenger creates a messenger without a bot; SetBot is called once the
// runtime is up.
func NewMessenger() *Messenger {
	return &Messenger{}
}

// SetBot installs the live bot handle.
func (m *Messenger) SetBot(bot *tele.Bot) {
	m.mu.Lock()
	m.bot = bot
	m.mu.Unlock()
}

func (m *Messenger) current() (*tele.Bot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.bot == nil {
		return nil, fmt.Errorf("messenger: bot not started")
	}
	return m.bot, nil
}

// Send delivers text to a chat and returns the new message id.
func (m *Messenger) Send(ctx context.Context, chatID int64, text string, opts *wizard.SendOptions) (int, error) {
	bot, err := m.current()
	if err != nil {
		return 0, err
	}

	var sendOpts []any
	if opts != nil {
		so := &tele.SendOptions{DisableWebPagePreview: true}
		if opts.HTML {
			so.ParseMode = tele.ModeHTML
		}
		if len(opts.Keyboard) > 0 {
			so.ReplyMarkup = toMarkup(opts.Keyboard)
		}
		sendOpts = append(sendOpts, so)
	}

	msg, err := bot.Send(tele.ChatID(chatID), text, sendOpts...)
	if err != nil {
		return 0, fmt.Errorf("send to chat %d: %w", chatID, err)
	}
	return msg.ID, nil
}

// Delete removes a message the bot sent earlier.
func (m *Messenger) Delete(ctx context.Context, chatID int64, messageID int) error {
	bot, err := m.current()
	if err != nil {
		return err
	}
	ref := tele.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	}
	if err := bot.Delete(ref); err != nil {
		return fmt.Errorf("delete message %d in chat %d: %w", messageID, chatID, err)
	}
	return nil
}

func toMarkup(rows [][]wizard.Button) *tele.ReplyMarkup {
	kb := make([][]keyboard.InlineBtn, len(rows))
	for i, row := range rows {
		r := make([]keyboard.InlineBtn, len(row))
		for j, b := range row {
			r[j] = keyboard.InlineBtn{
				Text:      b.Text,
				Unique:    b.Data,
				URL:       b.URL,
				WebAppURL: b.WebApp,
			}
		}
		kb[i] = r
	}
	return keyboard.InlineButtonsRows(kb...)
}
