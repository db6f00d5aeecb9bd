package app

import (
	"encoding/json"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	tg "github.com/goblinlaunch/goblinbot/core/telegram"
	"github.com/goblinlaunch/goblinbot/core/telegram/helpers"
	"github.com/goblinlaunch/goblinbot/internal/wizard"
)

// wizardAdapter bridges telebot updates to the wizard machine. When the
// machine declines an update it falls back to the command registry so
// passthrough commands keep working mid-session.
type wizardAdapter struct {
	machine *wizard.Machine
	reg     *tg.Registry
}

func newWizardAdapter(m *wizard.Machine, reg *tg.Registry) *wizardAdapter {
	return &wizardAdapter{machine: m, reg: reg}
}

func inboundFrom(c tele.Context) wizard.Inbound {
	in := wizard.Inbound{}
	if sender := c.Sender(); sender != nil {
		in.UserID = sender.ID
		in.Username = sender.Username
		in.FirstName = sender.FirstName
		in.LastName = sender.LastName
	}
	if chat := c.Chat(); chat != nil {
		in.ChatID = chat.ID
		in.Shared = chat.Type == tele.ChatGroup || chat.Type == tele.ChatSuperGroup
	}
	return in
}

func (a *wizardAdapter) InProgress(userID int64) bool {
	return a.machine.InProgress(userID)
}

func (a *wizardAdapter) HandleText(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	err := a.machine.HandleText(ctx, inboundFrom(c), c.Text())
	if errors.Is(err, wizard.ErrNotHandled) {
		return a.fallthroughCommand(c)
	}
	return err
}

func (a *wizardAdapter) HandlePhoto(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	msg := c.Message()
	if msg == nil {
		return nil
	}

	var (
		fileID string
		mime   string
		size   int64
	)
	switch {
	case msg.Photo != nil:
		fileID = msg.Photo.FileID
		size = msg.Photo.FileSize
	case msg.Document != nil:
		fileID = msg.Document.FileID
		mime = msg.Document.MIME
		size = msg.Document.FileSize
	default:
		return nil
	}

	err := a.machine.HandlePhoto(ctx, inboundFrom(c), fileID, mime, size)
	if errors.Is(err, wizard.ErrNotHandled) {
		return nil
	}
	return err
}

func (a *wizardAdapter) HandleWebApp(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	msg := c.Message()
	if msg == nil || msg.WebAppData == nil {
		return nil
	}

	var payload struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal([]byte(msg.WebAppData.Data), &payload); err != nil {
		// Raw-address payloads come from older web-app builds.
		payload.Address = msg.WebAppData.Data
	}

	err := a.machine.HandleWebApp(ctx, inboundFrom(c), payload.Address)
	if errors.Is(err, wizard.ErrNotHandled) {
		return nil
	}
	return err
}

func (a *wizardAdapter) fallthroughCommand(c tele.Context) error {
	if a.reg == nil {
		return nil
	}
	fields := strings.Fields(c.Text())
	if len(fields) == 0 {
		return nil
	}
	name := fields[0]
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	if _, cmd, ok := a.reg.LookupCommand(name); ok && cmd.Handler != nil {
		return cmd.Handler(c)
	}
	return nil
}
