package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/goblinlaunch/goblinbot/core/logger"
)

// ErrNotHandled tells the caller the wizard declined the update and it
// should be offered to the normal command handlers instead.
var ErrNotHandled = errors.New("wizard: update not handled")

// Commands the wizard lets through to their regular handlers even while a
// session is active. Everything else gets a mid-session nudge.
var passthroughCommands = map[string]struct{}{
	"/listtokens": {},
	"/tokenstats": {},
	"/help":       {},
}

// Config carries the machine's tunables, resolved once at startup.
type Config struct {
	Limits        Limits
	ChainID       int64
	GasReserveEth float64
	BotUsername   string
	WebAppURL     string
	GatewayURL    string

	BalancePollInterval time.Duration
	LinkPollInterval    time.Duration
	LinkPollTimeout     time.Duration
}

// Deps bundles the machine's collaborators.
type Deps struct {
	Store    DraftStore
	Deployer Deployer
	Balances BalanceOracle
	Links    LinkOracle
	Uploader Uploader
	Wallets  WalletSource
	Tokens   TokenStore
	Send     Messenger
}

// Machine drives the token-creation wizard. All session state lives in the
// cache; the draft store is a write-through copy of the non-secret fields.
type Machine struct {
	cfg   Config
	cache *Cache

	store    DraftStore
	deployer Deployer
	balances BalanceOracle
	links    LinkOracle
	uploader Uploader
	wallets  WalletSource
	tokens   TokenStore
	send     Messenger

	// pendingGroups remembers which group a user came from when they follow
	// the deep link into a private chat.
	pendingMu     sync.Mutex
	pendingGroups map[int64]int64
}

// NewMachine constructs a wizard machine.
func NewMachine(cfg Config, cache *Cache, deps Deps) *Machine {
	return &Machine{
		cfg:           cfg,
		cache:         cache,
		store:         deps.Store,
		deployer:      deps.Deployer,
		balances:      deps.Balances,
		links:         deps.Links,
		uploader:      deps.Uploader,
		wallets:       deps.Wallets,
		tokens:        deps.Tokens,
		send:          deps.Send,
		pendingGroups: make(map[int64]int64),
	}
}

// Inbound carries the parts of a Telegram update the wizard cares about.
type Inbound struct {
	UserID int64
	ChatID int64
	// Shared is true for group and supergroup chats.
	Shared bool

	Username  string
	FirstName string
	LastName  string
}

// InProgress reports whether the user has a live, non-terminal session.
func (m *Machine) InProgress(userID int64) bool {
	step, ok := m.cache.Step(userID)
	return ok && !step.Terminal()
}

// Start begins a new wizard session. Invoked from a group chat it does not
// start anything; it records the group and points the user at a private
// chat instead, because the flow later handles private key material.
func (m *Machine) Start(ctx context.Context, in Inbound) error {
	if in.Shared {
		return m.redirectToPrivate(ctx, in)
	}
	return m.begin(ctx, in, false)
}

// StartFromDeepLink begins a session for a user arriving via the
// ?start=group_deploy deep link. The originating group, if known, receives
// an announcement after a successful deployment.
func (m *Machine) StartFromDeepLink(ctx context.Context, in Inbound) error {
	return m.begin(ctx, in, true)
}

func (m *Machine) redirectToPrivate(ctx context.Context, in Inbound) error {
	m.pendingMu.Lock()
	m.pendingGroups[in.UserID] = in.ChatID
	m.pendingMu.Unlock()

	_, err := m.send.Send(ctx, in.ChatID, msgGroupRedirect, &SendOptions{
		HTML:     true,
		Keyboard: deepLinkButtons(m.cfg.BotUsername),
	})
	return err
}

func (m *Machine) begin(ctx context.Context, in Inbound, fromGroup bool) error {
	var groupID int64
	if fromGroup {
		m.pendingMu.Lock()
		groupID = m.pendingGroups[in.UserID]
		delete(m.pendingGroups, in.UserID)
		m.pendingMu.Unlock()
		if groupID == 0 {
			fromGroup = false
		}
	}

	s := &Session{
		UserID: in.UserID,
		ChatID: in.ChatID,
		Step:   StepName,
		Fields: Fields{
			Username:  in.Username,
			FirstName: in.FirstName,
			LastName:  in.LastName,
			FromGroup: fromGroup,
			GroupID:   groupID,
		},
	}

	// Restarting always wins over whatever was in flight.
	prev := m.cache.Put(s)
	prev.Cancel()

	logger.Info(ctx, "wizard", "session.start",
		slog.Int64("user_id", in.UserID),
		slog.Bool("from_group", fromGroup),
	)

	m.persist(ctx, in.UserID, StepName, s.Fields)
	_, err := m.send.Send(ctx, in.ChatID, msgStart+"\n\n"+msgAskName, nil)
	return err
}

// TryResume rebuilds a session from the draft store after a restart. It
// reports false when the user has no resumable draft. Wallet steps whose
// secrets died with the old process are reset to the wallet choice.
func (m *Machine) TryResume(ctx context.Context, in Inbound) (bool, error) {
	if in.Shared || m.cache.Has(in.UserID) {
		return false, nil
	}
	step, fields, found, err := m.store.Get(ctx, in.UserID)
	if err != nil {
		return false, fmt.Errorf("load draft: %w", err)
	}
	if !found || step.Terminal() || !step.Known() {
		return false, nil
	}

	reset := false
	switch step {
	case StepWalletGenerated, StepWaitingWalletLink, StepDeploying:
		step = StepWalletChoice
		fields.WalletAddress = ""
		reset = true
	}

	s := &Session{UserID: in.UserID, ChatID: in.ChatID, Step: step, Fields: fields}
	prev := m.cache.Put(s)
	prev.Cancel()

	logger.Info(ctx, "wizard", "session.resume",
		slog.Int64("user_id", in.UserID),
		slog.String("step", string(step)),
		slog.Bool("wallet_reset", reset),
	)

	if reset {
		m.persist(ctx, in.UserID, step, fields)
		_, err = m.send.Send(ctx, in.ChatID, msgWalletReset, &SendOptions{
			HTML:     true,
			Keyboard: walletChoiceButtons(m.cfg.WebAppURL),
		})
		return true, err
	}

	_, err = m.send.Send(ctx, in.ChatID, msgResume, nil)
	if err != nil {
		return true, err
	}
	return true, m.promptStep(ctx, s.ChatID, in.UserID, step)
}

// HandleText processes free-text input for an active session.
func (m *Machine) HandleText(ctx context.Context, in Inbound, text string) error {
	if in.Shared {
		return m.guardSharedChat(ctx, in)
	}

	snap, ok := m.cache.Snapshot(in.UserID)
	if !ok {
		return ErrNotHandled
	}

	if strings.HasPrefix(text, "/") {
		return m.handleCommand(ctx, in, snap, text)
	}

	step := snap.Step
	if !step.TextInput() {
		// Waiting on a button press or a background event; remind the user
		// where they are instead of dropping the message.
		return m.promptStep(ctx, snap.ChatID, in.UserID, step)
	}

	if step == StepName && strings.Contains(text, "\n") {
		if handled, err := m.tryBundle(ctx, in, snap, text); handled || err != nil {
			return err
		}
	}

	val, reason, err := Validate(step, text, m.cfg.Limits)
	if err != nil {
		logger.Error(ctx, "wizard", "input.bad_step",
			slog.Int64("user_id", in.UserID),
			slog.String("step", string(step)),
			slog.String("err", err.Error()),
		)
		_, _ = m.send.Send(ctx, snap.ChatID, msgWentWrong, nil)
		return err
	}
	if reason != "" {
		_, err := m.send.Send(ctx, snap.ChatID, reason, nil)
		return err
	}

	return m.advance(ctx, in.UserID, snap.ChatID, step, val)
}

func (m *Machine) handleCommand(ctx context.Context, in Inbound, snap Session, text string) error {
	cmd := strings.ToLower(strings.Fields(text)[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	// Registered commands normally hit their own endpoints before OnText,
	// so these branches only fire for callers that drive the machine
	// directly (webhook-less embeddings, tests) or a bot registered
	// without the command surface.
	switch cmd {
	case "/cancel":
		return m.Cancel(ctx, in.UserID)
	case "/createtoken":
		return m.begin(ctx, in, false)
	case "/start":
		if strings.Contains(text, "group_deploy") {
			return m.StartFromDeepLink(ctx, in)
		}
		return m.begin(ctx, in, false)
	}
	if _, ok := passthroughCommands[cmd]; ok {
		return ErrNotHandled
	}
	_, err := m.send.Send(ctx, snap.ChatID, msgMidSession, nil)
	return err
}

// advance merges a validated value into the session, moves to the next
// step, write-throughs the draft, and sends the next prompt.
func (m *Machine) advance(ctx context.Context, userID, chatID int64, from Step, val Value) error {
	next, ok := from.Next()
	if !ok {
		// wallet_address is the only text step outside the linear flow.
		if from != StepWalletAddress {
			return fmt.Errorf("wizard: no transition from %q", from)
		}
		next = StepPreview
	}

	moved := false
	var fields Fields
	m.cache.Update(userID, func(s *Session) {
		if s.Step != from {
			return
		}
		applyValue(&s.Fields, from, val)
		s.Step = next
		fields = s.Fields
		moved = true
	})
	if !moved {
		// A watcher or callback got there first; the newer state already
		// prompted the user.
		logger.Debug(ctx, "wizard", "input.stale",
			slog.Int64("user_id", userID),
			slog.String("step", string(from)),
		)
		return nil
	}

	m.persist(ctx, userID, next, fields)

	if note := confirmValue(from, val); note != "" {
		if _, err := m.send.Send(ctx, chatID, note, nil); err != nil {
			return err
		}
	}
	return m.promptStep(ctx, chatID, userID, next)
}

func applyValue(f *Fields, step Step, val Value) {
	switch step {
	case StepName:
		f.TokenName = val.Text
	case StepSymbol:
		f.TokenSymbol = val.Text
	case StepImage:
		if val.Skip {
			f.Image = Skipped[ImageRef]()
		}
	case StepDescription:
		if val.Skip {
			f.Description = Skipped[string]()
		} else {
			f.Description = Of(val.Text)
		}
	case StepBuyIn:
		if val.Skip {
			f.BuyInEth = Skipped[float64]()
		} else {
			f.BuyInEth = Of(val.Amount)
		}
	case StepWalletAddress:
		f.WalletAddress = val.Text
	}
}

func confirmValue(step Step, val Value) string {
	switch step {
	case StepImage:
		if val.Skip {
			return msgImageSkip
		}
	case StepDescription:
		if val.Skip {
			return msgDescSkip
		}
		return msgDescSaved
	}
	return ""
}

// promptStep sends whatever the given step expects next, including the
// composite prompts with inline keyboards.
func (m *Machine) promptStep(ctx context.Context, chatID, userID int64, step Step) error {
	switch step {
	case StepWalletChoice:
		_, err := m.send.Send(ctx, chatID, msgWalletChoice, &SendOptions{
			HTML:     true,
			Keyboard: walletChoiceButtons(m.cfg.WebAppURL),
		})
		return err
	case StepPreview:
		snap, ok := m.cache.Snapshot(userID)
		if !ok {
			return nil
		}
		_, err := m.send.Send(ctx, chatID, renderPreview(snap.Fields), &SendOptions{
			HTML:     true,
			Keyboard: previewButtons(),
		})
		return err
	case StepWalletGenerated:
		snap, ok := m.cache.Snapshot(userID)
		if !ok {
			return nil
		}
		net := networkContext(m.cfg.ChainID)
		_, err := m.send.Send(ctx, chatID,
			renderWalletPrompt(net, snap.Fields.WalletAddress, m.requiredEth(snap.Fields)),
			&SendOptions{HTML: true, Keyboard: fundingButtons()},
		)
		return err
	case StepDeploying:
		_, err := m.send.Send(ctx, chatID, msgDeploying, nil)
		return err
	}
	_, err := m.send.Send(ctx, chatID, m.prompt(step), nil)
	return err
}

// HandlePhoto processes an inbound attachment. Only the image step accepts
// one; everywhere else the user is reminded of the current step.
func (m *Machine) HandlePhoto(ctx context.Context, in Inbound, fileID, mime string, size int64) error {
	if in.Shared {
		return m.guardSharedChat(ctx, in)
	}
	snap, ok := m.cache.Snapshot(in.UserID)
	if !ok {
		return ErrNotHandled
	}
	if snap.Step != StepImage {
		_, err := m.send.Send(ctx, snap.ChatID, msgMidSession, nil)
		return err
	}

	if reason := ValidateImage(mime, size); reason != "" {
		_, err := m.send.Send(ctx, snap.ChatID, reason, nil)
		return err
	}

	up, err := m.uploader.UploadTelegramPhoto(ctx, fileID)
	if err != nil {
		logger.Error(ctx, "wizard", "image.upload_failed",
			slog.Int64("user_id", in.UserID),
			slog.String("err", err.Error()),
		)
		_, serr := m.send.Send(ctx, snap.ChatID, msgImageUploadFail, nil)
		if serr != nil {
			return serr
		}
		return nil
	}

	ref := ImageRef{URL: up.URL, FileID: fileID, CID: up.CID}

	moved := false
	var fields Fields
	m.cache.Update(in.UserID, func(s *Session) {
		if s.Step != StepImage {
			return
		}
		s.Fields.Image = Of(ref)
		s.Step = StepDescription
		fields = s.Fields
		moved = true
	})
	if !moved {
		return nil
	}
	m.persist(ctx, in.UserID, StepDescription, fields)

	note := msgImageSaved
	if m.cfg.GatewayURL != "" && ref.CID != "" {
		note = fmt.Sprintf("%s\n%s/%s", msgImageSaved, strings.TrimRight(m.cfg.GatewayURL, "/"), ref.CID)
	}
	if _, err := m.send.Send(ctx, snap.ChatID, note, nil); err != nil {
		return err
	}
	return m.promptStep(ctx, snap.ChatID, in.UserID, StepDescription)
}

// HandleWebApp processes wallet-connect data sent back by the web app.
func (m *Machine) HandleWebApp(ctx context.Context, in Inbound, address string) error {
	if !ValidateAddress(address) {
		snap, ok := m.cache.Snapshot(in.UserID)
		if !ok {
			return ErrNotHandled
		}
		_, err := m.send.Send(ctx, snap.ChatID, msgBadLinkedAddress, nil)
		return err
	}
	m.completeWalletLink(ctx, in.UserID, LinkStatus{Address: strings.TrimSpace(address), Provider: "webapp"})
	return nil
}

// ChooseGenerateWallet handles the "generate a wallet for me" button.
func (m *Machine) ChooseGenerateWallet(ctx context.Context, userID int64) error {
	if !m.cache.CompareAndSwapStep(userID, StepWalletChoice, StepWalletGenerated) {
		return nil
	}
	w, err := m.wallets.Generate()
	if err != nil {
		m.cache.CompareAndSwapStep(userID, StepWalletGenerated, StepWalletChoice)
		logger.Error(ctx, "wizard", "wallet.generate_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		if snap, ok := m.cache.Snapshot(userID); ok {
			_, _ = m.send.Send(ctx, snap.ChatID, msgWentWrong, nil)
		}
		return err
	}

	var fields Fields
	var chatID int64
	stored := m.cache.Update(userID, func(s *Session) {
		s.Fields.WalletAddress = w.Address
		s.Secrets.PrivateKey = w.PrivateKey
		fields = s.Fields
		chatID = s.ChatID
	})
	if !stored {
		return nil
	}

	// Only the address reaches the durable store.
	m.persist(ctx, userID, StepWalletGenerated, fields)

	net := networkContext(m.cfg.ChainID)
	required := m.requiredEth(fields)
	msgID, err := m.send.Send(ctx, chatID, renderWalletDetails(net, w, required), &SendOptions{
		HTML:     true,
		Keyboard: walletDetailsButtons(),
	})
	if err != nil {
		return err
	}
	m.cache.Update(userID, func(s *Session) {
		s.Secrets.DetailsMessageID = msgID
	})

	m.startBalanceWatcher(userID, w.Address, required)
	return nil
}

// ChooseOwnWallet handles the "use my own address" button.
func (m *Machine) ChooseOwnWallet(ctx context.Context, userID int64) error {
	if !m.cache.CompareAndSwapStep(userID, StepWalletChoice, StepWalletAddress) {
		return nil
	}
	snap, ok := m.cache.Snapshot(userID)
	if !ok {
		return nil
	}
	m.persist(ctx, userID, StepWalletAddress, snap.Fields)
	_, err := m.send.Send(ctx, snap.ChatID, msgAskWallet, nil)
	return err
}

// ChooseConnectWallet handles the "connect my wallet" button and starts the
// link watcher.
func (m *Machine) ChooseConnectWallet(ctx context.Context, userID int64) error {
	if !m.cache.CompareAndSwapStep(userID, StepWalletChoice, StepWaitingWalletLink) {
		return nil
	}
	snap, ok := m.cache.Snapshot(userID)
	if !ok {
		return nil
	}
	m.persist(ctx, userID, StepWaitingWalletLink, snap.Fields)
	_, err := m.send.Send(ctx, snap.ChatID, msgConnectWallet, &SendOptions{
		HTML:     true,
		Keyboard: connectWalletButtons(m.cfg.WebAppURL, userID),
	})
	if err != nil {
		return err
	}
	m.startLinkWatcher(userID)
	return nil
}

// DetailsSaved deletes the message that carried the private key once the
// user confirms they stored it.
func (m *Machine) DetailsSaved(ctx context.Context, userID int64) error {
	var chatID int64
	var msgID int
	ok := m.cache.Update(userID, func(s *Session) {
		chatID = s.ChatID
		msgID = s.Secrets.DetailsMessageID
		s.Secrets.DetailsMessageID = 0
	})
	if !ok || msgID == 0 {
		return nil
	}
	if err := m.send.Delete(ctx, chatID, msgID); err != nil {
		logger.Warn(ctx, "wizard", "secret_message.delete_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
	return m.promptStep(ctx, chatID, userID, StepWalletGenerated)
}

// CheckBalance handles the manual balance refresh button.
func (m *Machine) CheckBalance(ctx context.Context, userID int64) error {
	snap, ok := m.cache.Snapshot(userID)
	if !ok || snap.Step != StepWalletGenerated {
		return nil
	}
	balance, err := m.balances.BalanceEth(ctx, snap.Fields.WalletAddress)
	if err != nil {
		_, serr := m.send.Send(ctx, snap.ChatID, msgBalanceCheckFail, nil)
		if serr != nil {
			return serr
		}
		return nil
	}
	required := m.requiredEth(snap.Fields)
	if balance >= required {
		if m.cache.CompareAndSwapStep(userID, StepWalletGenerated, StepDeploying) {
			m.deploy(ctx, userID)
		}
		return nil
	}
	_, err = m.send.Send(ctx, snap.ChatID,
		fmt.Sprintf("💰 Current balance: %.6f ETH. Still need %.6f ETH.", balance, required-balance),
		&SendOptions{Keyboard: fundingButtons()},
	)
	return err
}

// SignDeploy handles the preview confirmation button. The compare-and-swap
// into deploying guarantees at most one deployment per session.
func (m *Machine) SignDeploy(ctx context.Context, userID int64) error {
	if !m.cache.CompareAndSwapStep(userID, StepPreview, StepDeploying) {
		return nil
	}
	m.deploy(ctx, userID)
	return nil
}

// Cancel tears down the session from any non-terminal state: the watcher is
// stopped before anything else so it cannot fire afterwards, secrets are
// wiped, and the draft is removed.
func (m *Machine) Cancel(ctx context.Context, userID int64) error {
	s, w := m.cache.Remove(userID)
	if s == nil {
		return ErrNotHandled
	}
	w.Cancel()

	if s.Secrets.DetailsMessageID != 0 {
		_ = m.send.Delete(ctx, s.ChatID, s.Secrets.DetailsMessageID)
	}
	s.Secrets = Secrets{}

	if err := m.store.Delete(ctx, userID); err != nil {
		logger.Error(ctx, "drafts", "draft.delete_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}

	logger.Info(ctx, "wizard", "session.cancel",
		slog.Int64("user_id", userID),
		slog.String("step", string(s.Step)),
	)

	_, err := m.send.Send(ctx, s.ChatID, msgCancelled, nil)
	return err
}

// completeWalletLink moves a waiting session to preview once connection
// data arrives, from the watcher or directly from the web app.
func (m *Machine) completeWalletLink(ctx context.Context, userID int64, status LinkStatus) {
	if !ValidateAddress(status.Address) {
		logger.Warn(ctx, "wizard", "link.bad_address",
			slog.Int64("user_id", userID),
			slog.String("provider", status.Provider),
		)
		return
	}
	if !m.cache.CompareAndSwapStep(userID, StepWaitingWalletLink, StepPreview) {
		return
	}

	var fields Fields
	var chatID int64
	m.cache.Update(userID, func(s *Session) {
		s.Fields.WalletAddress = status.Address
		fields = s.Fields
		chatID = s.ChatID
	})
	m.persist(ctx, userID, StepPreview, fields)

	_, _ = m.send.Send(ctx, chatID, fmt.Sprintf("✅ Wallet connected: <code>%s</code>", status.Address), &SendOptions{HTML: true})
	_, _ = m.send.Send(ctx, chatID, renderPreview(fields), &SendOptions{
		HTML:     true,
		Keyboard: previewButtons(),
	})
}

// deploy runs the deployment for a session already moved to the deploying
// step. Callers must have won the compare-and-swap into StepDeploying.
func (m *Machine) deploy(ctx context.Context, userID int64) {
	snap, ok := m.cache.Snapshot(userID)
	if !ok {
		return
	}
	f := snap.Fields

	m.persist(ctx, userID, StepDeploying, f)
	_, _ = m.send.Send(ctx, snap.ChatID, msgDeploying, nil)

	req := DeployRequest{
		TokenName:     f.TokenName,
		TokenSymbol:   f.TokenSymbol,
		Description:   f.Description.Ptr(),
		BuyInEth:      f.BuyInEth.Ptr(),
		WalletAddress: f.WalletAddress,
		PrivateKey:    snap.Secrets.PrivateKey,
		TelegramID:    userID,
		Username:      f.Username,
	}
	if img := f.Image.Ptr(); img != nil {
		url := img.URL
		req.ImageURL = &url
	}

	res, err := m.deployer.Deploy(ctx, req)
	if err != nil {
		logger.Error(ctx, "deploy", "deploy.failed",
			slog.Int64("user_id", userID),
			slog.String("symbol", f.TokenSymbol),
			slog.String("err", err.Error()),
		)
		m.finish(ctx, userID, StepFailed)
		_, _ = m.send.Send(ctx, snap.ChatID, msgDeployFail, nil)
		return
	}

	logger.Info(ctx, "deploy", "deploy.success",
		slog.Int64("user_id", userID),
		slog.String("symbol", f.TokenSymbol),
		slog.String("contract", res.ContractAddress),
		slog.String("tx", res.TxHash),
	)

	rec := DeployedToken{
		TelegramID:      userID,
		Username:        f.Username,
		TokenName:       f.TokenName,
		TokenSymbol:     f.TokenSymbol,
		ContractAddress: res.ContractAddress,
		WalletAddress:   f.WalletAddress,
		TxHash:          res.TxHash,
		Description:     f.Description.Ptr(),
		BuyInEth:        f.BuyInEth.Ptr(),
	}
	if img := f.Image.Ptr(); img != nil {
		url := img.URL
		rec.ImageURL = &url
	}
	if err := m.tokens.SaveDeployed(ctx, rec); err != nil {
		logger.Error(ctx, "tokens", "token.save_failed",
			slog.Int64("user_id", userID),
			slog.String("contract", res.ContractAddress),
			slog.String("err", err.Error()),
		)
	}

	m.finish(ctx, userID, StepDone)

	net := networkContext(m.cfg.ChainID)
	_, _ = m.send.Send(ctx, snap.ChatID, renderSuccess(net, res), &SendOptions{
		HTML:     true,
		Keyboard: successButtons(net, m.cfg.ChainID, res.ContractAddress),
	})

	if f.FromGroup && f.GroupID != 0 {
		_, err := m.send.Send(ctx, f.GroupID, renderGroupAnnouncement(f, res, m.cfg.BotUsername), &SendOptions{HTML: true})
		if err != nil {
			logger.Warn(ctx, "wizard", "group_announce.failed",
				slog.Int64("group_id", f.GroupID),
				slog.String("err", err.Error()),
			)
		}
	}
}

// finish removes the session, cancels its watcher, wipes secrets, and
// drops the draft.
func (m *Machine) finish(ctx context.Context, userID int64, terminal Step) {
	s, w := m.cache.Remove(userID)
	if s == nil {
		return
	}
	w.Cancel()
	if s.Secrets.DetailsMessageID != 0 {
		_ = m.send.Delete(ctx, s.ChatID, s.Secrets.DetailsMessageID)
	}
	s.Secrets = Secrets{}
	if err := m.store.Delete(ctx, userID); err != nil {
		logger.Error(ctx, "drafts", "draft.delete_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
	logger.Info(ctx, "wizard", "session.finish",
		slog.Int64("user_id", userID),
		slog.String("result", string(terminal)),
	)
}

// persist write-throughs the non-secret session state. Failures are logged
// and do not interrupt the flow; the cache stays authoritative.
func (m *Machine) persist(ctx context.Context, userID int64, step Step, f Fields) {
	if err := m.store.Upsert(ctx, userID, step, f); err != nil {
		logger.Error(ctx, "drafts", "draft.upsert_failed",
			slog.Int64("user_id", userID),
			slog.String("step", string(step)),
			slog.String("err", err.Error()),
		)
	}
}

func (m *Machine) requiredEth(f Fields) float64 {
	required := m.cfg.GasReserveEth
	if f.BuyInEth.Valid {
		required += f.BuyInEth.Value
	}
	return required
}
