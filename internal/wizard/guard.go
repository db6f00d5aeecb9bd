package wizard

import (
	"context"
	"log/slog"

	"github.com/goblinlaunch/goblinbot/core/logger"
)

const (
	msgGroupRedirect = "🚀 Token creation involves wallet details, so it happens in a private chat. Tap the button below to continue."
	msgGroupNotice   = "🔒 You have a token creation in progress. Check your private chat with me to continue."
	msgSecurityDM    = "🔒 For your security, let's continue here in our private chat. Never share wallet details in a group."
)

// guardSharedChat handles any wizard-bound message that arrives in a group
// while the sender has an active session. The group gets a short notice and
// the conversation continues in the private chat where it started.
func (m *Machine) guardSharedChat(ctx context.Context, in Inbound) error {
	snap, ok := m.cache.Snapshot(in.UserID)
	if !ok {
		return ErrNotHandled
	}

	logger.Info(ctx, "wizard", "guard.shared_chat",
		slog.Int64("user_id", in.UserID),
		slog.Int64("chat_id", in.ChatID),
		slog.String("step", string(snap.Step)),
	)

	if _, err := m.send.Send(ctx, in.ChatID, msgGroupNotice, nil); err != nil {
		return err
	}
	if _, err := m.send.Send(ctx, snap.ChatID, msgSecurityDM, nil); err != nil {
		return err
	}
	return m.promptStep(ctx, snap.ChatID, in.UserID, snap.Step)
}
