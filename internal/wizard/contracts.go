package wizard

import "context"

// DraftStore is the durable side of a session. Implementations must be
// idempotent upserts keyed by user id and must never receive secrets.
type DraftStore interface {
	Upsert(ctx context.Context, userID int64, step Step, f Fields) error
	Get(ctx context.Context, userID int64) (Step, Fields, bool, error)
	Delete(ctx context.Context, userID int64) error
}

// DeployRequest carries everything the deployment collaborator needs.
type DeployRequest struct {
	TokenName     string
	TokenSymbol   string
	ImageURL      *string
	Description   *string
	BuyInEth      *float64
	WalletAddress string
	// PrivateKey is set only for bot-generated custodial wallets.
	PrivateKey string
	TelegramID int64
	Username   string
}

// DeployResult reports a successful deployment.
type DeployResult struct {
	ContractAddress string
	TxHash          string
}

// Deployer performs the actual token deployment. The call is opaque and
// potentially slow; the wizard performs no retries.
type Deployer interface {
	Deploy(ctx context.Context, req DeployRequest) (DeployResult, error)
}

// BalanceOracle reports the ETH balance of an address.
type BalanceOracle interface {
	BalanceEth(ctx context.Context, address string) (float64, error)
}

// LinkStatus is the payload of a completed external wallet connection.
type LinkStatus struct {
	Address  string
	Provider string
}

// LinkOracle polls the wallet-connect backend. The status is one-time-use:
// a found result is consumed on read.
type LinkOracle interface {
	Poll(ctx context.Context, userID int64) (LinkStatus, bool, error)
}

// Upload is the stored form of an accepted token image.
type Upload struct {
	URL string // ipfs://CID
	CID string
}

// Uploader moves a Telegram photo into content-addressed storage.
type Uploader interface {
	UploadTelegramPhoto(ctx context.Context, fileID string) (Upload, error)
}

// Wallet is a freshly generated custodial keypair.
type Wallet struct {
	Address    string
	PrivateKey string
}

// WalletSource generates custodial wallets.
type WalletSource interface {
	Generate() (Wallet, error)
}

// DeployedToken is the record persisted after a successful deployment.
type DeployedToken struct {
	TelegramID      int64
	Username        string
	TokenName       string
	TokenSymbol     string
	ContractAddress string
	WalletAddress   string
	TxHash          string
	ImageURL        *string
	Description     *string
	BuyInEth        *float64
}

// TokenStore persists deployed token records.
type TokenStore interface {
	SaveDeployed(ctx context.Context, rec DeployedToken) error
}

// SendOptions mirrors the subset of Telegram send options the wizard uses.
type SendOptions struct {
	HTML     bool
	Keyboard [][]Button
}

// Button is one inline keyboard button. Exactly one of Data, URL, or
// WebApp is set.
type Button struct {
	Text   string
	Data   string // callback unique
	URL    string
	WebApp string
}

// Messenger is the wizard's only way to produce user-visible output. It is
// best-effort: delivery failures are logged by implementations, not
// propagated as flow errors.
type Messenger interface {
	Send(ctx context.Context, chatID int64, text string, opts *SendOptions) (int, error)
	Delete(ctx context.Context, chatID int64, messageID int) error
}
