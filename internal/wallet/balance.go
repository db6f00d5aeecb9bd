package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/goblinlaunch/goblinbot/core/logger"
)

// weiPerEth is 10^18 as a float for display-precision conversion.
var weiPerEth = new(big.Float).SetFloat64(1e18)

// RPCOracle reads ETH balances over standard JSON-RPC.
type RPCOracle struct {
	url    string
	client *http.Client
}

// NewRPCOracle points the oracle at an RPC endpoint.
func NewRPCOracle(rpcURL string, client *http.Client) *RPCOracle {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &RPCOracle{url: rpcURL, client: client}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// BalanceEth returns the address balance in ETH. Precision loss from the
// wei-to-float conversion is far below the wizard's funding thresholds.
func (o *RPCOracle) BalanceEth(ctx context.Context, address string) (float64, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "eth_getBalance",
		Params:  []any{address, "latest"},
		ID:      1,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal balance request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build balance request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rpc eth_getBalance: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read balance response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rpc eth_getBalance: status %d", resp.StatusCode)
	}

	var out rpcResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("decode balance response: %w", err)
	}
	if out.Error != nil {
		return 0, fmt.Errorf("rpc eth_getBalance: %s (code %d)", out.Error.Message, out.Error.Code)
	}

	eth, err := hexWeiToEth(out.Result)
	if err != nil {
		return 0, err
	}

	logger.Debug(ctx, "wizard.watcher", "balance.read",
		slog.String("address", address),
		slog.Float64("eth", eth),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return eth, nil
}

func hexWeiToEth(hexWei string) (float64, error) {
	wei, ok := new(big.Int).SetString(hexWei, 0)
	if !ok {
		return 0, fmt.Errorf("bad balance value %q", hexWei)
	}
	eth, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEth).Float64()
	return eth, nil
}
