package wizard

import "fmt"

// Callback uniques for wizard inline keyboards. The app layer registers a
// handler per unique and dispatches into the machine.
const (
	CallbackGenerateWallet   = "wizard_generate_wallet"
	CallbackConnectWallet    = "wizard_connect_wallet"
	CallbackOwnWallet        = "wizard_own_wallet"
	CallbackDetailsSaved     = "wizard_details_saved"
	CallbackCheckBalance     = "wizard_check_balance"
	CallbackSignDeploy       = "wizard_sign_deploy"
	CallbackCancelDeployment = "wizard_cancel_deployment"
)

const msgWalletChoice = "💳 How would you like to fund the deployment?"

// walletChoiceButtons offers the funding options. The connect option is a
// plain callback; the web-app link is only sent after the user picks it,
// since a button carrying both would open the web app without ever firing
// the callback that moves the session forward.
func walletChoiceButtons(webAppURL string) [][]Button {
	rows := [][]Button{
		{{Text: "🔐 Generate wallet for me", Data: CallbackGenerateWallet}},
	}
	if webAppURL != "" {
		rows = append(rows, []Button{{Text: "🔗 Connect my wallet", Data: CallbackConnectWallet}})
	}
	rows = append(rows, []Button{{Text: "✏️ Use my own address", Data: CallbackOwnWallet}})
	return rows
}

func previewButtons() [][]Button {
	return [][]Button{{
		{Text: "✍️ Sign & Deploy", Data: CallbackSignDeploy},
		{Text: "❌ Cancel", Data: CallbackCancelDeployment},
	}}
}

func walletDetailsButtons() [][]Button {
	return [][]Button{{
		{Text: "✅ I've Saved My Wallet Details", Data: CallbackDetailsSaved},
	}}
}

func fundingButtons() [][]Button {
	return [][]Button{{
		{Text: "🔄 Check Balance", Data: CallbackCheckBalance},
		{Text: "❌ Cancel", Data: CallbackCancelDeployment},
	}}
}

func connectWalletButtons(webAppURL string, userID int64) [][]Button {
	return [][]Button{{
		{
			Text:   "🔗 Open Wallet Connect",
			WebApp: fmt.Sprintf("%s?user=%d", webAppURL, userID),
		},
	}, {
		{Text: "❌ Cancel", Data: CallbackCancelDeployment},
	}}
}

// deepLinkButtons is shown in a group chat in place of running the wizard
// there. The deep link reopens the bot in a private chat.
func deepLinkButtons(botUsername string) [][]Button {
	return [][]Button{{
		{Text: "🚀 Create Token in DM", URL: fmt.Sprintf("https://t.me/%s?start=group_deploy", botUsername)},
	}}
}
