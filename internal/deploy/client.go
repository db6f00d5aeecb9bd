package deploy

import (
	"bytes"
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

// Client talks to the deployment service that signs and broadcasts the
// token-creation transaction. Deployments are slow; the client's timeout is
// deliberately generous and it never retries, since a timed-out deployment
// may still land on chain.
type Client struct {
	baseURL string
	chainID int64
	client  *http.Client
}

// NewClient points the deployer at the deployment service.
func NewClient(baseURL string, chainID int64, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Minute}
	}
	return &Client{baseURL: baseURL, chainID: chainID, client: client}
}

type deployPayload struct {
	ChainID     int64    `json:"chain_id"`
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	ImageURL    *string  `json:"image_url,omitempty"`
	Description *string  `json:"description,omitempty"`
	BuyInEth    *float64 `json:"buy_in_eth,omitempty"`
	Wallet      string   `json:"wallet"`
	PrivateKey  string   `json:"private_key,omitempty"`
	RequestorID int64    `json:"requestor_id"`
	Requestor   string   `json:"requestor,omitempty"`
}

type deployReply struct {
	ContractAddress string `json:"contract_address"`
	TxHash          string `json:"tx_hash"`
	Error           string `json:"error"`
}

// Deploy runs one deployment to completion.
func (c *Client) Deploy(ctx context.Context, req wizard.DeployRequest) (wizard.DeployResult, error) {
	payload, err := json.Marshal(deployPayload{
		ChainID:     c.chainID,
		Name:        req.TokenName,
		Symbol:      req.TokenSymbol,
		ImageURL:    req.ImageURL,
		Description: req.Description,
		BuyInEth:    req.BuyInEth,
		Wallet:      req.WalletAddress,
		PrivateKey:  req.PrivateKey,
		RequestorID: req.TelegramID,
		Requestor:   req.Username,
	})
	if err != nil {
		return wizard.DeployResult{}, fmt.Errorf("marshal deploy request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/deploy", bytes.NewReader(payload))
	if err != nil {
		return wizard.DeployResult{}, fmt.Errorf("build deploy request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return wizard.DeployResult{}, fmt.Errorf("deploy %s: %w", req.TokenSymbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return wizard.DeployResult{}, fmt.Errorf("read deploy response: %w", err)
	}

	var reply deployReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return wizard.DeployResult{}, fmt.Errorf("decode deploy response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || reply.Error != "" {
		msg := reply.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return wizard.DeployResult{}, fmt.Errorf("deploy %s: %s", req.TokenSymbol, msg)
	}
	if reply.ContractAddress == "" || reply.TxHash == "" {
		return wizard.DeployResult{}, fmt.Errorf("deploy %s: incomplete response", req.TokenSymbol)
	}

	logger.Info(ctx, "deploy", "deploy.rpc_done",
		slog.String("symbol", req.TokenSymbol),
		slog.String("contract", reply.ContractAddress),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return wizard.DeployResult{
		ContractAddress: reply.ContractAddress,
		TxHash:          reply.TxHash,
	}, nil
}
