package deploy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goblinlaunch/goblinbot/internal/wizard"
)

func TestDeploySuccess(t *testing.T) {
	var got deployPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deploy" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(deployReply{
			ContractAddress: "0x00000000000000000000000000000000000c0de5",
			TxHash:          "0xdeadbeef",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 84532, srv.Client())
	buyIn := 0.5
	res, err := c.Deploy(context.Background(), wizard.DeployRequest{
		TokenName:     "Goblin Coin",
		TokenSymbol:   "GOB",
		BuyInEth:      &buyIn,
		WalletAddress: "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf",
		TelegramID:    100,
		Username:      "goblin",
	})
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if res.ContractAddress != "0x00000000000000000000000000000000000c0de5" || res.TxHash != "0xdeadbeef" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if got.ChainID != 84532 || got.Symbol != "GOB" || got.Wallet == "" {
		t.Fatalf("request payload mismatch: %+v", got)
	}
	if got.BuyInEth == nil || *got.BuyInEth != 0.5 {
		t.Fatal("buy-in not forwarded")
	}
	if got.PrivateKey != "" {
		t.Fatal("non-custodial deploy must not carry a private key")
	}
}

func TestDeployServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(deployReply{Error: "chain congested"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 84532, srv.Client())
	_, err := c.Deploy(context.Background(), wizard.DeployRequest{TokenSymbol: "GOB"})
	if err == nil {
		t.Fatal("expected error from failing service")
	}
}

func TestDeployIncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(deployReply{ContractAddress: "0xabc"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 84532, srv.Client())
	_, err := c.Deploy(context.Background(), wizard.DeployRequest{TokenSymbol: "GOB"})
	if err == nil {
		t.Fatal("missing tx hash should be an error")
	}
}
