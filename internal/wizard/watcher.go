package wizard

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/goblinlaunch/goblinbot/core/logger"
)

// Watcher is a cancellable background poller that can advance a session
// without new user input. At most one watcher is active per session; the
// machine cancels any existing watcher before starting a new one.
type Watcher struct {
	ID   uuid.UUID
	Kind string

	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops the watcher and waits for its loop to exit, so a cancelled
// watcher can never fire again after Cancel returns.
func (w *Watcher) Cancel() {
	if w == nil {
		return
	}
	w.cancel()
	<-w.done
}

// watcherConfig describes one polling loop.
type watcherConfig struct {
	kind     string
	interval time.Duration
	// timeout bounds the watcher's life; zero means no bound.
	timeout time.Duration
	// tick polls once and reports whether the watcher is finished.
	tick func(ctx context.Context) bool
	// onTimeout runs once if the timeout elapses before tick finishes.
	onTimeout func(ctx context.Context)
}

// startWatcher installs a new watcher for the session, cancelling any
// previous one first. Returns false when the session is gone.
func (m *Machine) startWatcher(userID int64, cfg watcherConfig) bool {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		ID:     uuid.New(),
		Kind:   cfg.kind,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	prev, ok := m.cache.SwapWatcher(userID, w)
	if !ok {
		cancel()
		close(w.done)
		return false
	}
	prev.Cancel()

	logger.Debug(ctx, "wizard.watcher", "watcher.start",
		slog.String("kind", cfg.kind),
		slog.String("watcher_id", w.ID.String()),
		slog.Int64("user_id", userID),
		slog.Duration("interval", cfg.interval),
	)

	go m.runWatcher(ctx, userID, w, cfg)
	return true
}

func (m *Machine) runWatcher(ctx context.Context, userID int64, w *Watcher, cfg watcherConfig) {
	defer close(w.done)
	defer m.releaseWatcher(userID, w)

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if cfg.timeout > 0 {
		timer := time.NewTimer(cfg.timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "wizard.watcher", "watcher.cancelled",
				slog.String("kind", cfg.kind),
				slog.String("watcher_id", w.ID.String()),
				slog.Int64("user_id", userID),
			)
			return
		case <-deadline:
			logger.Info(ctx, "wizard.watcher", "watcher.timeout",
				slog.String("kind", cfg.kind),
				slog.String("watcher_id", w.ID.String()),
				slog.Int64("user_id", userID),
			)
			if cfg.onTimeout != nil {
				cfg.onTimeout(ctx)
			}
			return
		case <-ticker.C:
			if cfg.tick(ctx) {
				logger.Debug(ctx, "wizard.watcher", "watcher.finished",
					slog.String("kind", cfg.kind),
					slog.String("watcher_id", w.ID.String()),
					slog.Int64("user_id", userID),
				)
				return
			}
		}
	}
}

// releaseWatcher clears the session's watcher slot if it still holds w.
// A newer watcher installed in the meantime is left untouched.
func (m *Machine) releaseWatcher(userID int64, w *Watcher) {
	m.cache.Update(userID, func(s *Session) {
		if s.watcher != nil && s.watcher.ID == w.ID {
			s.watcher = nil
		}
	})
}

// startBalanceWatcher polls the balance oracle until the generated wallet
// holds the buy-in plus gas reserve, then hands the session to deployment.
func (m *Machine) startBalanceWatcher(userID int64, address string, requiredEth float64) {
	m.startWatcher(userID, watcherConfig{
		kind:     "balance",
		interval: m.cfg.BalancePollInterval,
		tick: func(ctx context.Context) bool {
			balance, err := m.balances.BalanceEth(ctx, address)
			if err != nil {
				logger.Warn(ctx, "wizard.watcher", "balance.poll_failed",
					slog.Int64("user_id", userID),
					slog.String("err", err.Error()),
				)
				return false
			}
			if balance < requiredEth {
				return false
			}
			// Re-check the session is still waiting before acting; a
			// competing path (cancel, manual wallet) may have moved it.
			if !m.cache.CompareAndSwapStep(userID, StepWalletGenerated, StepDeploying) {
				logger.Debug(ctx, "wizard.watcher", "balance.stale",
					slog.Int64("user_id", userID),
				)
				return true
			}
			// Detach before deploying: finish cancels the session's watcher
			// synchronously, which from this goroutine would deadlock.
			m.cache.SwapWatcher(userID, nil)
			m.deploy(ctx, userID)
			return true
		},
	})
}

// startLinkWatcher polls the wallet-link oracle until connection data
// appears, then advances the session to preview. It gives up after the
// configured timeout.
func (m *Machine) startLinkWatcher(userID int64) {
	m.startWatcher(userID, watcherConfig{
		kind:     "wallet_link",
		interval: m.cfg.LinkPollInterval,
		timeout:  m.cfg.LinkPollTimeout,
		tick: func(ctx context.Context) bool {
			status, found, err := m.links.Poll(ctx, userID)
			if err != nil {
				logger.Warn(ctx, "wizard.watcher", "link.poll_failed",
					slog.Int64("user_id", userID),
					slog.String("err", err.Error()),
				)
				return false
			}
			if !found {
				return false
			}
			m.completeWalletLink(ctx, userID, status)
			return true
		},
		onTimeout: func(ctx context.Context) {
			if !m.cache.CompareAndSwapStep(userID, StepWaitingWalletLink, StepWalletChoice) {
				return
			}
			snap, ok := m.cache.Snapshot(userID)
			if !ok {
				return
			}
			m.persist(ctx, userID, StepWalletChoice, snap.Fields)
			_, _ = m.send.Send(ctx, snap.ChatID, msgLinkTimeout, &SendOptions{
				HTML:     true,
				Keyboard: walletChoiceButtons(m.cfg.WebAppURL),
			})
		},
	})
}
