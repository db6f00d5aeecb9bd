package walletlink

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

func TestPollConsumesStatus(t *testing.T) {
	var mu sync.Mutex
	store := map[string]string{
		"/status/100": `{"address":"0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf","provider":"metamask"}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		body, ok := store[r.URL.Path]
		switch {
		case !ok:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodDelete:
			delete(store, r.URL.Path)
			w.WriteHeader(http.StatusOK)
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/status", srv.Client())
	ctx := context.Background()

	status, found, err := c.Poll(ctx, 100)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if !found {
		t.Fatal("expected a completed connection")
	}
	if status.Address != "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf" || status.Provider != "metamask" {
		t.Fatalf("unexpected status: %+v", status)
	}

	// The record is consumed; the next poll sees nothing.
	_, found, err = c.Poll(ctx, 100)
	if err != nil {
		t.Fatalf("second Poll: %v", err)
	}
	if found {
		t.Fatal("consumed status should not be delivered twice")
	}
}

func TestPollPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/status", srv.Client())
	_, found, err := c.Poll(context.Background(), 7)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if found {
		t.Fatal("pending connection should report not found")
	}
}

func TestPollEmptyAddressIgnored(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"address": ""})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/status", srv.Client())
	_, found, err := c.Poll(context.Background(), 7)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if found {
		t.Fatal("empty address must not count as connected")
	}
}
