package walletlink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goblinlaunch/goblinbot/core/logger"
	"github.com/goblinlaunch/goblinbot/internal/wizard"
)

// Client polls the wallet-connect backend for completed connections. The
// backend stores one pending connection per Telegram user; reading a
// completed one consumes it so a later session cannot observe stale data.
type Client struct {
	statusURL string
	client    *http.Client
}

// NewClient points the poller at the wallet-connect status endpoint.
func NewClient(statusURL string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{statusURL: statusURL, client: client}
}

type statusPayload struct {
	Address  string `json:"address"`
	Provider string `json:"provider"`
}

// Poll checks whether the user completed a wallet connection. Not-found is
// the normal case while the user is still in the connect flow.
func (c *Client) Poll(ctx context.Context, userID int64) (wizard.LinkStatus, bool, error) {
	url := fmt.Sprintf("%s/%d", c.statusURL, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return wizard.LinkStatus{}, false, fmt.Errorf("build link status request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return wizard.LinkStatus{}, false, fmt.Errorf("poll link status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return wizard.LinkStatus{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return wizard.LinkStatus{}, false, fmt.Errorf("poll link status: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return wizard.LinkStatus{}, false, fmt.Errorf("read link status: %w", err)
	}
	var payload statusPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return wizard.LinkStatus{}, false, fmt.Errorf("decode link status: %w", err)
	}
	if payload.Address == "" {
		return wizard.LinkStatus{}, false, nil
	}

	c.consume(ctx, url, userID)

	return wizard.LinkStatus{Address: payload.Address, Provider: payload.Provider}, true, nil
}

// consume deletes the server-side record. Failure is logged, not returned;
// the wizard's compare-and-swap already makes duplicate delivery harmless.
func (c *Client) consume(ctx context.Context, url string, userID int64) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return
	}
	resp, err := c.client.Do(req)
	if err != nil {
		logger.Warn(ctx, "wizard.watcher", "link.consume_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return
	}
	_ = resp.Body.Close()
}
