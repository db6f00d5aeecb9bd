package wizard

import (
	"context"
	"testing"
	"time"
)

func (e *testEnv) toWalletChoice(t *testing.T) {
	t.Helper()
	e.start(t)
	e.text(t, "Goblin Coin")
	e.text(t, "GOB")
	e.text(t, "skip")
	e.text(t, "skip")
	e.text(t, "skip")
	e.mustStep(t, StepWalletChoice)
}

func TestWatcherStopsAfterCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.toWalletChoice(t)
	if err := env.machine.ChooseConnectWallet(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "first poll", func() bool { return env.links.pollCount() > 0 })

	// Cancel is synchronous: once it returns, the watcher is gone.
	if err := env.machine.Cancel(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	polls := env.links.pollCount()
	time.Sleep(50 * time.Millisecond)
	if got := env.links.pollCount(); got != polls {
		t.Fatalf("watcher polled after cancel: %d -> %d", polls, got)
	}

	// A connection completing after cancel must not revive anything.
	env.links.complete(LinkStatus{Address: "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"})
	time.Sleep(20 * time.Millisecond)
	if env.cache.Has(testUser) {
		t.Fatal("cancelled session came back")
	}
}

func TestWatcherCancelBeforeRestart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.toWalletChoice(t)
	if err := env.machine.ChooseGenerateWallet(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	env.mustStep(t, StepWalletGenerated)

	// Restart while the balance watcher is alive. The old watcher must be
	// cancelled before the new session is visible, so a later funding event
	// cannot complete a session the user already abandoned.
	env.start(t)
	env.mustStep(t, StepName)

	env.balances.set(10)
	time.Sleep(50 * time.Millisecond)
	if env.deployer.count() != 0 {
		t.Fatal("old watcher deployed against the new session")
	}
	env.mustStep(t, StepName)
}

func TestWatcherBalanceBackoffOnStaleStep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.toWalletChoice(t)
	if err := env.machine.ChooseGenerateWallet(ctx, testUser); err != nil {
		t.Fatal(err)
	}

	// The manual check wins the race; the watcher's next tick must observe
	// the step change and back off instead of deploying twice.
	env.balances.set(10)
	if err := env.machine.CheckBalance(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	if env.deployer.count() != 1 {
		t.Fatalf("deploys = %d, want 1", env.deployer.count())
	}
	time.Sleep(50 * time.Millisecond)
	if env.deployer.count() != 1 {
		t.Fatalf("watcher double-deployed: %d", env.deployer.count())
	}
}

func TestLinkWatcherTimeout(t *testing.T) {
	env := newTestEnv(t)
	env.machine.cfg.LinkPollTimeout = 30 * time.Millisecond
	ctx := context.Background()

	env.toWalletChoice(t)
	if err := env.machine.ChooseConnectWallet(ctx, testUser); err != nil {
		t.Fatal(err)
	}
	env.mustStep(t, StepWaitingWalletLink)

	waitFor(t, "timeout reset", func() bool {
		step, ok := env.cache.Step(testUser)
		return ok && step == StepWalletChoice
	})
	if !env.send.contains(msgLinkTimeout) {
		t.Fatal("timeout notice not sent")
	}
}

func TestCacheCompareAndSwapStep(t *testing.T) {
	c := NewCache()
	c.Put(&Session{UserID: 1, Step: StepPreview})

	if !c.CompareAndSwapStep(1, StepPreview, StepDeploying) {
		t.Fatal("first swap should win")
	}
	if c.CompareAndSwapStep(1, StepPreview, StepDeploying) {
		t.Fatal("second swap should observe the move and fail")
	}
	if c.CompareAndSwapStep(2, StepPreview, StepDeploying) {
		t.Fatal("swap on a missing session should fail")
	}
}

func TestCacheRemoveReturnsWatcher(t *testing.T) {
	c := NewCache()
	c.Put(&Session{UserID: 1, Step: StepName})

	w := &Watcher{cancel: func() {}, done: make(chan struct{})}
	close(w.done)
	if prev, ok := c.SwapWatcher(1, w); prev != nil || !ok {
		t.Fatal("fresh session should have no watcher")
	}

	s, got := c.Remove(1)
	if s == nil || got != w {
		t.Fatal("remove should hand back the session and its watcher")
	}
	if c.Has(1) {
		t.Fatal("session should be gone")
	}
}
