package wizard

// Step identifies the wizard's position in the token-creation flow.
type Step string

const (
	// StepName collects the token name.
	StepName Step = "name"
	// StepSymbol collects the ticker.
	StepSymbol Step = "symbol"
	// StepImage collects an optional token image.
	StepImage Step = "image"
	// StepDescription collects an optional description.
	StepDescription Step = "description"
	// StepBuyIn collects an optional creator buy-in amount.
	StepBuyIn Step = "buyin"
	// StepWalletChoice lets the user pick how to fund the deployment.
	StepWalletChoice Step = "wallet_choice"
	// StepWalletGenerated waits for funds on a bot-generated wallet.
	StepWalletGenerated Step = "wallet_generated"
	// StepWaitingWalletLink waits for an external wallet-connect callback.
	StepWaitingWalletLink Step = "waiting_for_wallet_connection"
	// StepWalletAddress collects a user-owned wallet address.
	StepWalletAddress Step = "wallet_address"
	// StepPreview shows the final preview awaiting confirmation.
	StepPreview Step = "preview"
	// StepDeploying marks a deployment in flight; guards double triggers.
	StepDeploying Step = "deploying"
	// StepDone marks a completed deployment.
	StepDone Step = "done"
	// StepCancelled marks a user-cancelled session.
	StepCancelled Step = "cancelled"
	// StepFailed marks a terminally failed session.
	StepFailed Step = "failed"
)

// forward holds the linear part of the flow. Wallet branches and the
// deployment transition are driven explicitly by the machine.
var forward = map[Step]Step{
	StepName:        StepSymbol,
	StepSymbol:      StepImage,
	StepImage:       StepDescription,
	StepDescription: StepBuyIn,
	StepBuyIn:       StepWalletChoice,
}

// Next returns the following step in the linear flow.
func (s Step) Next() (Step, bool) {
	n, ok := forward[s]
	return n, ok
}

// Known reports whether s is one of the enumerated steps.
func (s Step) Known() bool {
	switch s {
	case StepName, StepSymbol, StepImage, StepDescription, StepBuyIn,
		StepWalletChoice, StepWalletGenerated, StepWaitingWalletLink,
		StepWalletAddress, StepPreview, StepDeploying, StepDone,
		StepCancelled, StepFailed:
		return true
	}
	return false
}

// Terminal reports whether s ends the session.
func (s Step) Terminal() bool {
	return s == StepDone || s == StepCancelled || s == StepFailed
}

// TextInput reports whether s expects free text from the user.
func (s Step) TextInput() bool {
	switch s {
	case StepName, StepSymbol, StepImage, StepDescription, StepBuyIn, StepWalletAddress:
		return true
	}
	return false
}
