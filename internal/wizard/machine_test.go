package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type memStore struct {
	mu     sync.Mutex
	steps  map[int64]Step
	fields map[int64]Fields
}

func newMemStore() *memStore {
	return &memStore{steps: make(map[int64]Step), fields: make(map[int64]Fields)}
}

func (s *memStore) Upsert(_ context.Context, userID int64, step Step, f Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps[userID] = step
	s.fields[userID] = f
	return nil
}

func (s *memStore) Get(_ context.Context, userID int64) (Step, Fields, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := s.steps[userID]
	if !ok {
		return "", Fields{}, false, nil
	}
	return step, s.fields[userID], true, nil
}

func (s *memStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.steps, userID)
	delete(s.fields, userID)
	return nil
}

func (s *memStore) step(userID int64) (Step, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	step, ok := s.steps[userID]
	return step, ok
}

type fakeDeployer struct {
	mu    sync.Mutex
	calls int
	last  DeployRequest
	res   DeployResult
	err   error
}

func (d *fakeDeployer) Deploy(_ context.Context, req DeployRequest) (DeployResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.last = req
	return d.res, d.err
}

func (d *fakeDeployer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeBalances struct {
	mu  sync.Mutex
	eth float64
	err error
}

func (b *fakeBalances) BalanceEth(context.Context, string) (float64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.eth, b.err
}

func (b *fakeBalances) set(eth float64) {
	b.mu.Lock()
	b.eth = eth
	b.mu.Unlock()
}

type fakeLinks struct {
	mu     sync.Mutex
	status LinkStatus
	found  bool
	polls  int
}

func (l *fakeLinks) Poll(context.Context, int64) (LinkStatus, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.polls++
	if !l.found {
		return LinkStatus{}, false, nil
	}
	l.found = false
	return l.status, true, nil
}

func (l *fakeLinks) pollCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.polls
}

func (l *fakeLinks) complete(status LinkStatus) {
	l.mu.Lock()
	l.status = status
	l.found = true
	l.mu.Unlock()
}

type fakeUploader struct {
	up  Upload
	err error
}

func (u *fakeUploader) UploadTelegramPhoto(context.Context, string) (Upload, error) {
	return u.up, u.err
}

type fakeWallets struct {
	w   Wallet
	err error
}

func (f *fakeWallets) Generate() (Wallet, error) { return f.w, f.err }

type fakeTokens struct {
	mu    sync.Mutex
	saved []DeployedToken
}

func (f *fakeTokens) SaveDeployed(_ context.Context, rec DeployedToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeTokens) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

type sentMsg struct {
	chatID int64
	text   string
	opts   *SendOptions
}

type fakeMessenger struct {
	mu      sync.Mutex
	msgs    []sentMsg
	deleted []int
	nextID  int
}

func (f *fakeMessenger) Send(_ context.Context, chatID int64, text string, opts *SendOptions) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.msgs = append(f.msgs, sentMsg{chatID: chatID, text: text, opts: opts})
	return f.nextID, nil
}

func (f *fakeMessenger) Delete(_ context.Context, _ int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) lastText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		return ""
	}
	return f.msgs[len(f.msgs)-1].text
}

func (f *fakeMessenger) contains(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs {
		if strings.Contains(m.text, substr) {
			return true
		}
	}
	return false
}

func (f *fakeMessenger) lastKeyboard() [][]Button {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.msgs) - 1; i >= 0; i-- {
		if f.msgs[i].opts != nil && len(f.msgs[i].opts.Keyboard) > 0 {
			return f.msgs[i].opts.Keyboard
		}
	}
	return nil
}

func (f *fakeMessenger) sentTo(chatID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.msgs {
		if m.chatID == chatID {
			n++
		}
	}
	return n
}

type testEnv struct {
	machine  *Machine
	cache    *Cache
	store    *memStore
	deployer *fakeDeployer
	balances *fakeBalances
	links    *fakeLinks
	tokens   *fakeTokens
	send     *fakeMessenger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		cache:    NewCache(),
		store:    newMemStore(),
		deployer: &fakeDeployer{res: DeployResult{ContractAddress: "0x00000000000000000000000000000000000c0de5", TxHash: "0xtx"}},
		balances: &fakeBalances{},
		links:    &fakeLinks{},
		tokens:   &fakeTokens{},
		send:     &fakeMessenger{},
	}
	env.machine = NewMachine(
		Config{
			Limits:              Limits{MinBuyInEth: 0.01, MaxBuyInEth: 1},
			ChainID:             84532,
			GasReserveEth:       0.002,
			BotUsername:         "goblinbot",
			WebAppURL:           "https://connect.example.com",
			BalancePollInterval: 5 * time.Millisecond,
			LinkPollInterval:    5 * time.Millisecond,
			LinkPollTimeout:     time.Second,
		},
		env.cache,
		Deps{
			Store:    env.store,
			Deployer: env.deployer,
			Balances: env.balances,
			Links:    env.links,
			Uploader: &fakeUploader{up: Upload{URL: "ipfs://bafytest", CID: "bafytest"}},
			Wallets:  &fakeWallets{w: Wallet{Address: "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", PrivateKey: "0x01"}},
			Tokens:   env.tokens,
			Send:     env.send,
		},
	)
	return env
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

const (
	testUser int64 = 100
	testChat int64 = 100
)

func dm() Inbound {
	return Inbound{UserID: testUser, ChatID: testChat, Username: "goblin"}
}

func (e *testEnv) text(t *testing.T, input string) {
	t.Helper()
	if err := e.machine.HandleText(context.Background(), dm(), input); err != nil {
		t.Fatalf("HandleText(%q): %v", input, err)
	}
}

func (e *testEnv) start(t *testing.T) {
	t.Helper()
	if err := e.machine.Start(context.Background(), dm()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func (e *testEnv) mustStep(t *testing.T, want Step) {
	t.Helper()
	got, ok := e.cache.Step(testUser)
	if !ok {
		t.Fatalf("no session, want step %q", want)
	}
	if got != want {
		t.Fatalf("step = %q, want %q", got, want)
	}
}

func TestWizardHappyPathOwnWallet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.start(t)
	env.mustStep(t, StepName)

	env.text(t, "Goblin Coin")
	env.mustStep(t, StepSymbol)
	env.text(t, "gob")
	env.mustStep(t, StepImage)
	env.text(t, "skip")
	env.mustStep(t, StepDescription)
	env.text(t, "A coin for goblins")
	env.mustStep(t, StepBuyIn)
	env.text(t, "0.5")
	env.mustStep(t, StepWalletChoice)

	if !env.send.contains(msgWalletChoice) {
		t.Fatal("wallet choice prompt not sent")
	}

	if err := env.machine.ChooseOwnWallet(ctx, testUser); err != nil {
		t.Fatalf("ChooseOwnWallet: %v", err)
	}
	env.mustStep(t, StepWalletAddress)

	env.text(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	env.mustStep(t, StepPreview)
	if !env.send.contains("Goblin Coin") || !env.send.contains("GOB") {
		t.Fatal("preview should show name and ticker")
	}

	// Cache and store must agree on the step throughout.
	if step, ok := env.store.step(testUser); !ok || step != StepPreview {
		t.Fatalf("store step = %q, want preview", step)
	}

	if err := env.machine.SignDeploy(ctx, testUser); err != nil {
		t.Fatalf("SignDeploy: %v", err)
	}
	if env.deployer.count() != 1 {
		t.Fatalf("deployer calls = %d, want 1", env.deployer.count())
	}
	if env.tokens.count() != 1 {
		t.Fatalf("saved tokens = %d, want 1", env.tokens.count())
	}
	if env.cache.Has(testUser) {
		t.Fatal("session should be gone after deployment")
	}
	if _, ok := env.store.step(testUser); ok {
		t.Fatal("draft should be deleted after deployment")
	}
	if !env.send.contains("Token Deployed Successfully") {
		t.Fatal("success message not sent")
	}

	// A second press on a stale button must not deploy again.
	if err := env.machine.SignDeploy(ctx, testUser); err != nil {
		t.Fatalf("stale SignDeploy: %v", err)
	}
	if env.deployer.count() != 1 {
		t.Fatalf("stale button redeployed: calls = %d", env.deployer.count())
	}

	req := env.deployer.last
	if req.TokenName != "Goblin Coin" || req.TokenSymbol != "GOB" {
		t.Fatalf("deploy request mismatch: %+v", req)
	}
	if req.BuyInEth == nil || *req.BuyInEth != 0.5 {
		t.Fatal("buy-in not forwarded to deployer")
	}
	if req.ImageURL != nil {
		t.Fatal("skipped image should be nil in deploy request")
	}
}

func TestWizardRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)

	env.text(t, "ab")
	env.mustStep(t, StepName)
	if !strings.Contains(env.send.lastText(), "3-50 characters") {
		t.Fatalf("expected name rejection, got %q", env.send.lastText())
	}

	env.text(t, "Goblin Coin")
	env.text(t, "toolongticker")
	env.mustStep(t, StepSymbol)

	env.text(t, "GOB")
	env.mustStep(t, StepImage)
}

func TestWizardCommandsMidSession(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)
	env.text(t, "Goblin Coin")

	err := env.machine.HandleText(context.Background(), dm(), "/listtokens")
	if !errors.Is(err, ErrNotHandled) {
		t.Fatalf("passthrough command should return ErrNotHandled, got %v", err)
	}
	env.mustStep(t, StepSymbol)

	env.text(t, "/settings")
	if env.send.lastText() != msgMidSession {
		t.Fatalf("unknown command should nudge, got %q", env.send.lastText())
	}
	env.mustStep(t, StepSymbol)

	env.text(t, "/cancel")
	if env.cache.Has(testUser) {
		t.Fatal("cancel should remove the session")
	}
	if env.send.lastText() != msgCancelled {
		t.Fatalf("expected cancel confirmation, got %q", env.send.lastText())
	}
	if _, ok := env.store.step(testUser); ok {
		t.Fatal("cancel should delete the draft")
	}
}

func TestWizardRestartOverwritesSession(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)
	env.text(t, "First Try")
	env.mustStep(t, StepSymbol)

	env.start(t)
	env.mustStep(t, StepName)

	snap, _ := env.cache.Snapshot(testUser)
	if snap.Fields.TokenName != "" {
		t.Fatalf("restart kept old fields: %+v", snap.Fields)
	}
}

func TestWizardPhotoAtImageStep(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)
	env.text(t, "Goblin Coin")
	env.text(t, "GOB")
	env.mustStep(t, StepImage)

	err := env.machine.HandlePhoto(context.Background(), dm(), "file-1", "image/png", 2048)
	if err != nil {
		t.Fatalf("HandlePhoto: %v", err)
	}
	env.mustStep(t, StepDescription)

	snap, _ := env.cache.Snapshot(testUser)
	if !snap.Fields.Image.Valid || snap.Fields.Image.Value.URL != "ipfs://bafytest" {
		t.Fatalf("image not recorded: %+v", snap.Fields.Image)
	}
}

func TestWizardPhotoRejectedByMIME(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)
	env.text(t, "Goblin Coin")
	env.text(t, "GOB")

	err := env.machine.HandlePhoto(context.Background(), dm(), "file-1", "application/pdf", 2048)
	if err != nil {
		t.Fatalf("HandlePhoto: %v", err)
	}
	env.mustStep(t, StepImage)
	if !strings.Contains(env.send.lastText(), "JPG, PNG, and GIF") {
		t.Fatalf("expected mime rejection, got %q", env.send.lastText())
	}
}

func TestWizardBundleFastPath(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)

	env.text(t, "Goblin Coin\nGOB\nA coin for goblins\n0.05")
	env.mustStep(t, StepImage)

	snap, _ := env.cache.Snapshot(testUser)
	f := snap.Fields
	if f.TokenName != "Goblin Coin" || f.TokenSymbol != "GOB" {
		t.Fatalf("bundle fields: %+v", f)
	}
	if !f.Description.Valid || f.Description.Value != "A coin for goblins" {
		t.Fatalf("bundle description: %+v", f.Description)
	}
	if !f.BuyInEth.Valid || f.BuyInEth.Value != 0.05 {
		t.Fatalf("bundle buy-in: %+v", f.BuyInEth)
	}
}

func TestWizardBundleFallsBackToName(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)

	// Second line is not a valid ticker, so the whole text is treated as a
	// plain name answer, which the sanitizer flattens and rejects or
	// accepts on its own merits.
	env.text(t, "Goblin Coin\nnot a ticker at all")
	env.mustStep(t, StepSymbol)

	snap, _ := env.cache.Snapshot(testUser)
	if snap.Fields.TokenName != "Goblin Coinnot a ticker at all" {
		t.Fatalf("fallback name = %q", snap.Fields.TokenName)
	}
}

func TestWizardGroupGuard(t *testing.T) {
	env := newTestEnv(t)
	env.start(t)
	env.text(t, "Goblin Coin")

	group := Inbound{UserID: testUser, ChatID: -500, Shared: true}
	if err := env.machine.HandleText(context.Background(), group, "GOB"); err != nil {
		t.Fatalf("group HandleText: %v", err)
	}

	env.mustStep(t, StepSymbol)
	snap, _ := env.cache.Snapshot(testUser)
	if snap.Fields.TokenSymbol != "" {
		t.Fatal("group input must not be consumed as an answer")
	}
	if env.send.sentTo(-500) != 1 {
		t.Fatal("group should get exactly one notice")
	}
	if !env.send.contains(msgSecurityDM) {
		t.Fatal("security notice should go to the private chat")
	}
}

func TestWizardGroupStartRedirects(t *testing.T) {
	env := newTestEnv(t)
	group := Inbound{UserID: testUser, ChatID: -500, Shared: true, Username: "goblin"}

	if err := env.machine.Start(context.Background(), group); err != nil {
		t.Fatalf("group Start: %v", err)
	}
	if env.cache.Has(testUser) {
		t.Fatal("group start must not create a session")
	}
	if !env.send.contains("t.me/goblinbot?start=group_deploy") {
		t.Fatal("group should get a deep-link button")
	}

	if err := env.machine.StartFromDeepLink(context.Background(), dm()); err != nil {
		t.Fatalf("StartFromDeepLink: %v", err)
	}
	snap, _ := env.cache.Snapshot(testUser)
	if !snap.Fields.FromGroup || snap.Fields.GroupID != -500 {
		t.Fatalf("deep link should carry group provenance: %+v", snap.Fields)
	}
}

func TestWizardGroupAnnouncementAfterDeploy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group := Inbound{UserID: testUser, ChatID: -500, Shared: true, Username: "goblin"}
	if err := env.machine.Start(ctx, group); err != nil {
		t.Fatal(err)
	}
	if err := env.machine.StartFromDeepLink(ctx, dm()); err != nil {
		t.Fatal(err)
	}

	env.text(t, "Goblin Coin")
	env.text(t, "GOB")
	env.text(t, "skip")
	env.text(t, "skip")
	env.text(t, "skip")
	if err := env.machine.ChooseOwnWallet(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	env.text(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	if err := env.machine.SignDeploy(ctx, testUser); err != nil {
		t.Fatal(err)
	}

	if env.send.sentTo(-500) < 2 {
		t.Fatal("group should receive a deployment announcement")
	}
	if !env.send.contains("@goblin successfully deployed Goblin Coin (GOB)") {
		t.Fatal("announcement should credit the creator")
	}
}

func TestWizardDeployFailure(t *testing.T) {
	env := newTestEnv(t)
	env.deployer.err = errors.New("rpc exploded")
	ctx := context.Background()

	env.start(t)
	env.text(t, "Goblin Coin")
	env.text(t, "GOB")
	env.text(t, "skip")
	env.text(t, "skip")
	env.text(t, "skip")
	if err := env.machine.ChooseOwnWallet(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	env.text(t, "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	if err := env.machine.SignDeploy(ctx, testUser); err != nil {
		t.Fatal(err)
	}

	if env.tokens.count() != 0 {
		t.Fatal("failed deploy must not save a token")
	}
	if env.cache.Has(testUser) {
		t.Fatal("failed deploy should clear the session")
	}
	if env.send.lastText() != msgDeployFail {
		t.Fatalf("expected failure notice, got %q", env.send.lastText())
	}
}

func TestWizardGeneratedWalletFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.start(t)
	env.text(t, "Goblin Coin")
	env.text(t, "GOB")
	env.text(t, "skip")
	env.text(t, "skip")
	env.text(t, "0.1")
	env.mustStep(t, StepWalletChoice)

	if err := env.machine.ChooseGenerateWallet(ctx, testUser); err != nil {
		t.Fatalf("ChooseGenerateWallet: %v", err)
	}
	env.mustStep(t, StepWalletGenerated)
	if !env.send.contains("Private Key") {
		t.Fatal("wallet details should be shown once")
	}

	snap, _ := env.cache.Snapshot(testUser)
	if snap.Secrets.PrivateKey == "" {
		t.Fatal("private key should be held in memory")
	}
	_, storedFields, _, _ := env.store.Get(ctx, testUser)
	if storedFields.WalletAddress == "" {
		t.Fatal("address should be persisted")
	}

	// Confirming details deletes the message that carried the key.
	if err := env.machine.DetailsSaved(ctx, testUser); err != nil {
		t.Fatalf("DetailsSaved: %v", err)
	}
	env.send.mu.Lock()
	deleted := len(env.send.deleted)
	env.send.mu.Unlock()
	if deleted != 1 {
		t.Fatalf("secret message deletions = %d, want 1", deleted)
	}

	// Funding the wallet triggers deployment from the watcher.
	env.balances.set(0.2)
	waitFor(t, "watcher deployment", func() bool { return env.deployer.count() == 1 })
	waitFor(t, "session teardown", func() bool { return !env.cache.Has(testUser) })

	if env.deployer.last.PrivateKey == "" {
		t.Fatal("custodial deploy should carry the private key")
	}
	if env.tokens.count() != 1 {
		t.Fatal("deployment should be recorded")
	}
}

func TestWizardLinkedWalletFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.start(t)
	env.text(t, "Goblin Coin")
	env.text(t, "GOB")
	env.text(t, "skip")
	env.text(t, "skip")
	env.text(t, "skip")

	if err := env.machine.ChooseConnectWallet(ctx, testUser); err != nil {
		t.Fatalf("ChooseConnectWallet: %v", err)
	}
	env.mustStep(t, StepWaitingWalletLink)

	env.links.complete(LinkStatus{Address: "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", Provider: "test"})
	waitFor(t, "link pickup", func() bool {
		step, ok := env.cache.Step(testUser)
		return ok && step == StepPreview
	})

	snap, _ := env.cache.Snapshot(testUser)
	if snap.Fields.WalletAddress != "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf" {
		t.Fatalf("linked address not recorded: %q", snap.Fields.WalletAddress)
	}
	if !env.send.contains("Wallet connected") {
		t.Fatal("connection confirmation not sent")
	}
}

func TestWizardResumeFromDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_ = env.store.Upsert(ctx, testUser, StepDescription, Fields{
		TokenName:   "Goblin Coin",
		TokenSymbol: "GOB",
		Image:       Skipped[ImageRef](),
	})

	resumed, err := env.machine.TryResume(ctx, dm())
	if err != nil || !resumed {
		t.Fatalf("TryResume = %v, %v", resumed, err)
	}
	env.mustStep(t, StepDescription)
	if !env.send.contains(msgResume) {
		t.Fatal("resume notice not sent")
	}
}

func TestWizardResumeResetsWalletSteps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_ = env.store.Upsert(ctx, testUser, StepWalletGenerated, Fields{
		TokenName:     "Goblin Coin",
		TokenSymbol:   "GOB",
		WalletAddress: "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
	})

	resumed, err := env.machine.TryResume(ctx, dm())
	if err != nil || !resumed {
		t.Fatalf("TryResume = %v, %v", resumed, err)
	}
	env.mustStep(t, StepWalletChoice)

	snap, _ := env.cache.Snapshot(testUser)
	if snap.Fields.WalletAddress != "" {
		t.Fatal("orphaned custodial address must be discarded on resume")
	}
	if !env.send.contains(msgWalletReset) {
		t.Fatal("wallet reset notice not sent")
	}
}

func TestWizardInProgress(t *testing.T) {
	env := newTestEnv(t)
	if env.machine.InProgress(testUser) {
		t.Fatal("no session yet")
	}
	env.start(t)
	if !env.machine.InProgress(testUser) {
		t.Fatal("session should be in progress")
	}
}

// The wallet-choice keyboard must carry the connect option as a plain
// callback button. A button that also opens a web app never delivers its
// callback, so the session would sit in wallet_choice forever and wallet
// data arriving later would be dropped by the step check.
func TestConnectWalletFiresFromRenderedMarkup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.toWalletChoice(t)

	var connect *Button
	for _, row := range env.send.lastKeyboard() {
		for i := range row {
			if row[i].Data == CallbackConnectWallet {
				connect = &row[i]
			}
		}
	}
	if connect == nil {
		t.Fatal("wallet-choice keyboard has no connect callback button")
	}
	if connect.WebApp != "" {
		t.Fatalf("connect button mixes callback with web app %q", connect.WebApp)
	}

	// Tap the button the way the app layer dispatches it.
	if err := env.machine.ChooseConnectWallet(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	env.mustStep(t, StepWaitingWalletLink)

	// The follow-up keyboard is where the web-app link lives.
	var webApp *Button
	for _, row := range env.send.lastKeyboard() {
		for i := range row {
			if row[i].WebApp != "" {
				webApp = &row[i]
			}
		}
	}
	if webApp == nil {
		t.Fatal("connect prompt has no web-app button")
	}
	if webApp.Data != "" {
		t.Fatalf("web-app button also carries callback %q", webApp.Data)
	}

	// The link can now actually complete.
	env.links.complete(LinkStatus{Address: "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf", Provider: "webapp"})
	waitFor(t, "link completion", func() bool {
		step, ok := env.cache.Step(testUser)
		return ok && step == StepPreview
	})
}
