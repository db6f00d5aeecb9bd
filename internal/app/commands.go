package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/goblinlaunch/goblinbot/core/telegram/commands"
	"github.com/goblinlaunch/goblinbot/core/telegram/format"
	"github.com/goblinlaunch/goblinbot/core/telegram/helpers"
	"github.com/goblinlaunch/goblinbot/internal/wizard"
)

const helpText = `🤖 <b>Goblin Launch</b>

/createtoken — create and deploy a new token
/listtokens — your deployed tokens
/tokenstats — your deployment stats
/cancel — abort the current token creation
/help — this message`

const welcomeText = `👋 Welcome to <b>Goblin Launch</b>!

I deploy tokens on Base straight from Telegram. Send /createtoken to get started, or /help to see everything I can do.`

func (a *App) registerCommands() {
	a.registry.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Start the bot",
		Hidden:      true,
	})
	a.registry.RegisterCommand("/createtoken", commands.Command{
		Handler:     a.handleCreateToken,
		Description: "Create and deploy a new token",
	})
	a.registry.RegisterCommand("/cancel", commands.Command{
		Handler:     a.handleCancel,
		Description: "Cancel the current token creation",
	})
	a.registry.RegisterCommand("/listtokens", commands.Command{
		Handler:     a.handleListTokens,
		Description: "List your deployed tokens",
	})
	a.registry.RegisterCommand("/tokenstats", commands.Command{
		Handler:     a.handleTokenStats,
		Description: "Show your deployment stats",
	})
	a.registry.RegisterCommand("/help", commands.Command{
		Handler:     a.handleHelp,
		Description: "Show available commands",
	})
	a.registry.RegisterCommand("/stats", commands.Command{
		Handler:     a.handleGlobalStats,
		Description: "Global deployment stats",
		AdminOnly:   true,
		Hidden:      true,
	})
}

func (a *App) handleStart(c tele.Context) error {
	msg := c.Message()
	if msg != nil && strings.Contains(msg.Payload, "group_deploy") {
		ctx := helpers.BuildContext(c)
		return a.machine.StartFromDeepLink(ctx, inboundFrom(c))
	}
	return helpers.SendHTML(c, welcomeText)
}

func (a *App) handleCreateToken(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	return a.machine.Start(ctx, inboundFrom(c))
}

func (a *App) handleCancel(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	err := a.machine.Cancel(ctx, c.Sender().ID)
	if errors.Is(err, wizard.ErrNotHandled) {
		return helpers.SendText(c, "Nothing to cancel — you have no token creation in progress.")
	}
	return err
}

func (a *App) handleListTokens(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	list, err := a.tokens.ListByUser(ctx, c.Sender().ID, 10)
	if err != nil {
		return helpers.SendText(c, "⚠️ Could not load your tokens right now. Please try again later.")
	}
	if len(list) == 0 {
		return helpers.SendText(c, "You haven't deployed any tokens yet. Send /createtoken to launch your first one!")
	}

	var b strings.Builder
	b.WriteString("🪙 <b>Your tokens</b>\n")
	for i, t := range list {
		fmt.Fprintf(&b, "\n%d. <b>%s</b> (%s)\n   <code>%s</code>\n   %s",
			i+1, format.EscapeHTML(t.TokenName), t.TokenSymbol, t.ContractAddress,
			t.CreatedAt.Format("2006-01-02"),
		)
	}
	return helpers.SendHTML(c, b.String())
}

func (a *App) handleTokenStats(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	st, err := a.tokens.StatsByUser(ctx, c.Sender().ID)
	if err != nil {
		return helpers.SendText(c, "⚠️ Could not load your stats right now. Please try again later.")
	}
	if st.TotalTokens == 0 {
		return helpers.SendText(c, "No deployments yet. Send /createtoken to launch your first token!")
	}

	var b strings.Builder
	b.WriteString("📊 <b>Your deployment stats</b>\n\n")
	fmt.Fprintf(&b, "Tokens deployed: <b>%d</b>\n", st.TotalTokens)
	if st.TotalBuyInEth.Valid {
		fmt.Fprintf(&b, "Total buy-in: <b>%.4f ETH</b>\n", st.TotalBuyInEth.Float64)
	}
	if st.FirstDeploy.Valid {
		fmt.Fprintf(&b, "First deploy: %s\n", st.FirstDeploy.Time.Format("2006-01-02"))
	}
	if st.LastDeploy.Valid {
		fmt.Fprintf(&b, "Latest deploy: %s", st.LastDeploy.Time.Format("2006-01-02"))
	}
	return helpers.SendHTML(c, b.String())
}

func (a *App) handleGlobalStats(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	st, err := a.tokens.StatsGlobal(ctx)
	if err != nil {
		return helpers.SendText(c, "⚠️ Could not load global stats right now.")
	}

	var b strings.Builder
	b.WriteString("🌐 <b>Global deployment stats</b>\n\n")
	fmt.Fprintf(&b, "Tokens deployed: <b>%d</b>\n", st.TotalTokens)
	fmt.Fprintf(&b, "Creators: <b>%d</b>\n", st.TotalCreators)
	if st.TotalBuyInEth.Valid {
		fmt.Fprintf(&b, "Total buy-in: <b>%.4f ETH</b>\n", st.TotalBuyInEth.Float64)
	}
	if st.LastDeploy.Valid {
		fmt.Fprintf(&b, "Latest deploy: %s", st.LastDeploy.Time.Format("2006-01-02 15:04"))
	}
	return helpers.SendHTML(c, b.String())
}

func (a *App) handleHelp(c tele.Context) error {
	return helpers.SendHTML(c, helpText)
}

// registerCallbacks binds the wizard's inline-keyboard callbacks.
func (a *App) registerCallbacks() {
	type cb struct {
		key string
		fn  func(tele.Context) error
	}
	wrap := func(fn func(c tele.Context) error) tele.HandlerFunc {
		return func(c tele.Context) error { return fn(c) }
	}
	machineCb := func(fn func(ctx context.Context, userID int64) error) func(tele.Context) error {
		return func(c tele.Context) error {
			ctx := helpers.BuildContext(c)
			err := fn(ctx, c.Sender().ID)
			if errors.Is(err, wizard.ErrNotHandled) {
				return nil
			}
			return err
		}
	}

	for _, entry := range []cb{
		{wizard.CallbackGenerateWallet, machineCb(a.machine.ChooseGenerateWallet)},
		{wizard.CallbackConnectWallet, machineCb(a.machine.ChooseConnectWallet)},
		{wizard.CallbackOwnWallet, machineCb(a.machine.ChooseOwnWallet)},
		{wizard.CallbackDetailsSaved, machineCb(a.machine.DetailsSaved)},
		{wizard.CallbackCheckBalance, machineCb(a.machine.CheckBalance)},
		{wizard.CallbackSignDeploy, machineCb(a.machine.SignDeploy)},
		{wizard.CallbackCancelDeployment, machineCb(a.machine.Cancel)},
	} {
		_ = a.registry.RegisterCallback(entry.key, wrap(entry.fn))
	}
}
