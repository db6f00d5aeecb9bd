package wizard

import "time"

// Answer records a field the user has already passed. A skip answer is
// Answered with Valid=false, which is distinct from a field the wizard has
// not reached yet (zero Answer).
type Answer[T any] struct {
	Answered bool
	Valid    bool
	Value    T
}

// Of wraps a concrete answer value.
func Of[T any](v T) Answer[T] {
	return Answer[T]{Answered: true, Valid: true, Value: v}
}

// Skipped marks an explicitly skipped answer.
func Skipped[T any]() Answer[T] {
	return Answer[T]{Answered: true}
}

// Ptr returns the value as a pointer, nil when skipped or unanswered.
func (a Answer[T]) Ptr() *T {
	if !a.Answered || !a.Valid {
		return nil
	}
	v := a.Value
	return &v
}

// ImageRef bundles the stored representations of an uploaded token image.
type ImageRef struct {
	URL    string // ipfs://CID, passed to the deployer
	FileID string // Telegram file id, kept for re-download
	CID    string // raw CID, used for gateway preview links
}

// Fields accumulates validated wizard answers plus session provenance.
type Fields struct {
	TokenName   string
	TokenSymbol string
	Image       Answer[ImageRef]
	Description Answer[string]
	BuyInEth    Answer[float64]

	// WalletAddress is set once a wallet is generated, supplied, or linked.
	WalletAddress string

	// Provenance of the conversation that started the wizard.
	Username  string
	FirstName string
	LastName  string
	FromGroup bool
	GroupID   int64
}

// Secrets holds material that must never reach the durable store.
type Secrets struct {
	PrivateKey string
	// Message ids of DM messages that contain the private key, deleted once
	// the user confirms they saved the details.
	WalletMessageID  int
	DetailsMessageID int
}

// Session is the in-memory record of one user's wizard progress. The cache
// owns all mutation; handlers and watchers go through Cache methods.
type Session struct {
	UserID int64
	ChatID int64 // private chat used for prompts
	Step   Step

	Fields  Fields
	Secrets Secrets

	watcher   *Watcher
	UpdatedAt time.Time
}
