package wizard

import (
	"fmt"
	"strings"

	"github.com/goblinlaunch/goblinbot/core/telegram/format"
)

// Prompt and notice texts for the wizard. Kept in one place so no handler
// branches on step strings on its own.
const (
	msgStart       = "🚀 Let's create your token! I'll guide you through the process step by step."
	msgAskName     = "📝 What's the token name?"
	msgAskSymbol   = "💎 What's the ticker? (A-Z only, 2-10 characters)"
	msgAskImage    = "🖼️ Upload an image or type skip to continue without one. (JPG, PNG, GIF only)"
	msgAskDesc     = "✍️ Enter a short description or type skip to continue without one (500 characters max)."
	msgAskWallet   = "💳 Send the wallet address you want to use, or pick an option below."
	msgCancelled   = "❌ Token deployment cancelled. Use /createtoken to start over."
	msgDeploying   = "⏳ Token deployment in progress... This may take a few minutes."
	msgDeployFail  = "❌ Token deployment failed. Please try again with /createtoken."
	msgWentWrong   = "❌ Something went wrong. Please send /cancel and start over."
	msgMidSession  = "⚠️ You're in the middle of creating a token. Please complete the current step or use /cancel to start over."
	msgImageSaved  = "✅ Image uploaded successfully!"
	msgImageSkip   = "✅ Image skipped."
	msgDescSaved   = "✅ Description saved!"
	msgDescSkip    = "✅ Description skipped."
	msgResume      = "Please continue from your last step. If you want to start over, send /cancel."
	msgWalletReset = "Your previous wallet step could not be restored after a restart. Pick a wallet option again below."
	msgLinkTimeout = "⏰ Wallet connection timed out. Pick a wallet option again below or send /cancel."

	msgConnectWallet    = "🔗 Open the wallet connect page below and approve the connection. I'll pick it up automatically."
	msgBadLinkedAddress = "❌ The connected wallet returned an invalid address. Please try connecting again."
	msgImageUploadFail  = "❌ Image upload failed. Please try again or type skip."
	msgBalanceCheckFail = "⚠️ Could not check the balance right now. Please try again in a moment."
)

func askBuyIn(lim Limits) string {
	return fmt.Sprintf("💰 Enter creator buy-in amount in ETH or type skip (Range: %v - %v ETH)", lim.MinBuyInEth, lim.MaxBuyInEth)
}

// NetworkContext derives user-facing chain labels from the configured chain.
type NetworkContext struct {
	ModeBadge string
	EthLabel  string
	ScanHost  string
}

func networkContext(chainID int64) NetworkContext {
	switch chainID {
	case 8453:
		return NetworkContext{
			ModeBadge: "🟢 MAINNET MODE",
			EthLabel:  "ETH on Base mainnet",
			ScanHost:  "basescan.org",
		}
	case 84532:
		return NetworkContext{
			ModeBadge: "🧪 TESTNET MODE",
			EthLabel:  "testnet ETH on Base Sepolia",
			ScanHost:  "sepolia.basescan.org",
		}
	default:
		return NetworkContext{
			ModeBadge: "🧪 TESTNET MODE",
			EthLabel:  "testnet ETH on current network",
			ScanHost:  "basescan.org",
		}
	}
}

// prompt returns the message to send when the session lands on a step.
// Steps with composite prompts (wallet choice, preview) are rendered by
// their dedicated helpers and return empty here.
func (m *Machine) prompt(step Step) string {
	switch step {
	case StepName:
		return msgAskName
	case StepSymbol:
		return msgAskSymbol
	case StepImage:
		return msgAskImage
	case StepDescription:
		return msgAskDesc
	case StepBuyIn:
		return askBuyIn(m.cfg.Limits)
	case StepWalletAddress:
		return msgAskWallet
	case StepWalletGenerated, StepWaitingWalletLink, StepWalletChoice, StepPreview:
		return msgResume
	}
	return msgResume
}

func renderPreview(f Fields) string {
	desc := "—"
	if f.Description.Valid {
		desc = format.EscapeHTML(f.Description.Value)
	}
	image := "None"
	if f.Image.Valid {
		image = "Provided"
	}
	buyIn := "None"
	if f.BuyInEth.Valid {
		buyIn = fmt.Sprintf("%v ETH", f.BuyInEth.Value)
	}
	wallet := "🔗 <b>Wallet:</b> Will be generated"
	if f.WalletAddress != "" {
		wallet = fmt.Sprintf("🔗 <b>Wallet:</b> <code>%s</code>", f.WalletAddress)
	}

	var b strings.Builder
	b.WriteString("👀 <b>Token Preview</b>\n\n")
	fmt.Fprintf(&b, "📝 <b>Name:</b> %s\n", format.EscapeHTML(f.TokenName))
	fmt.Fprintf(&b, "💎 <b>Ticker:</b> %s\n", f.TokenSymbol)
	fmt.Fprintf(&b, "📄 <b>Description:</b> %s\n", desc)
	fmt.Fprintf(&b, "🖼️ <b>Image:</b> %s\n", image)
	b.WriteString("💰 <b>Fees:</b> 1% total (0.2% Clanker + 0.3% Team + 0.5% Creator)\n")
	fmt.Fprintf(&b, "💳 <b>Buy-in:</b> %s\n", buyIn)
	b.WriteString(wallet)
	b.WriteString("\n\nReady to deploy your token?")
	return b.String()
}

func renderWalletPrompt(net NetworkContext, address string, requiredEth float64) string {
	var b strings.Builder
	b.WriteString("💳 I've generated a smart wallet for you. Send ETH to this address to deploy your token:\n\n")
	b.WriteString(net.ModeBadge + "\n\n")
	fmt.Fprintf(&b, "<b>Address:</b> <code>%s</code>\n\n", address)
	fmt.Fprintf(&b, "💰 <b>Required:</b> %.6f %s\n", requiredEth, net.EthLabel)
	b.WriteString("⏳ <b>Status:</b> Waiting for funds...")
	return b.String()
}

func renderWalletDetails(net NetworkContext, w Wallet, requiredEth float64) string {
	var b strings.Builder
	b.WriteString("🔑 <b>Here's Your New Wallet!</b>\n\n")
	b.WriteString(net.ModeBadge + "\n\n")
	fmt.Fprintf(&b, "<b>Address:</b> <code>%s</code>\n", w.Address)
	fmt.Fprintf(&b, "<b>Private Key:</b> <code>%s</code>\n\n", w.PrivateKey)
	b.WriteString("⚠️ <b>SAVE THESE DETAILS!</b>\n")
	b.WriteString("• Import into MetaMask using the private key\n")
	b.WriteString("• You own this wallet and any remaining funds\n\n")
	fmt.Fprintf(&b, "💰 <b>Required:</b> %.6f %s (for gas fees + buy-in)\n", requiredEth, net.EthLabel)
	b.WriteString("⏳ <b>Status:</b> Waiting for funds...")
	return b.String()
}

func renderSuccess(net NetworkContext, res DeployResult) string {
	var b strings.Builder
	b.WriteString("🎉 <b>Token Deployed Successfully!</b>\n\n")
	fmt.Fprintf(&b, "<b>Transaction:</b> <code>%s</code>\n", res.TxHash)
	fmt.Fprintf(&b, "<b>Contract:</b> <code>%s</code>\n\n", res.ContractAddress)
	b.WriteString("💰 <b>Remaining ETH:</b> You can withdraw any remaining ETH from your wallet using the private key you saved earlier.")
	return b.String()
}

func renderGroupAnnouncement(f Fields, res DeployResult, botUsername string) string {
	tagged := "@" + format.EscapeHTML(f.Username)
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 <b>%s successfully deployed %s (%s)!</b>\n\n", tagged, format.EscapeHTML(f.TokenName), f.TokenSymbol)
	fmt.Fprintf(&b, "📄 <b>Contract:</b> <code>%s</code>\n\n", res.ContractAddress)
	fmt.Fprintf(&b, "🔥 Want to deploy your own token? Type /createtoken or mention @%s to get started!", botUsername)
	return b.String()
}

func successButtons(net NetworkContext, chainID int64, contract string) [][]Button {
	rows := [][]Button{{
		{Text: "🔍 View Contract", URL: fmt.Sprintf("https://%s/address/%s", net.ScanHost, contract)},
	}}
	if chainID == 84532 {
		rows[0] = append(rows[0], Button{Text: "🪙 View Token", URL: fmt.Sprintf("https://%s/token/%s", net.ScanHost, contract)})
	} else {
		rows[0] = append(rows[0], Button{Text: "📊 View on DexScreener", URL: "https://dexscreener.com/base/" + contract})
	}
	rows = append(rows, []Button{
		{Text: "📊 View on Clanker.World", URL: "https://clanker.world/clanker/" + contract},
	})
	return rows
}
