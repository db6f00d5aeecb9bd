package wallet

import (
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func TestAddressDerivation(t *testing.T) {
	// Known vectors: scalar -> Ethereum address.
	cases := []struct {
		scalar byte
		want   string
	}{
		{1, "0x7e5f4552091a69125d5dfcb7b8c2659029395bdf"},
		{2, "0x2b5ad5c4795c026514f8317c7a215e218dccd6cf"},
	}
	for _, tc := range cases {
		var key [32]byte
		key[31] = tc.scalar
		priv := secp256k1.PrivKeyFromBytes(key[:])
		got := AddressFromPubKey(priv.PubKey())
		if !strings.EqualFold(got, tc.want) {
			t.Errorf("scalar %d: address = %s, want %s", tc.scalar, got, tc.want)
		}
	}
}

func TestGenerate(t *testing.T) {
	g := NewGenerator()
	w1, err := g.Generate()
	if err != nil {
		t.Fatal(err)
	}
	w2, err := g.Generate()
	if err != nil {
		t.Fatal(err)
	}

	if w1.Address == w2.Address {
		t.Fatal("generated wallets must be unique")
	}
	for _, w := range []struct{ addr, key string }{
		{w1.Address, w1.PrivateKey},
		{w2.Address, w2.PrivateKey},
	} {
		if len(w.addr) != 42 || !strings.HasPrefix(w.addr, "0x") {
			t.Errorf("malformed address %q", w.addr)
		}
		if len(w.key) != 66 || !strings.HasPrefix(w.key, "0x") {
			t.Errorf("malformed private key")
		}
	}
}

func TestHexWeiToEth(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"0x0", 0},
		{"0xde0b6b3a7640000", 1},   // 10^18 wei
		{"0x6f05b59d3b20000", 0.5}, // 5*10^17 wei
		{"0x2386f26fc10000", 0.01}, // 10^16 wei
	}
	for _, tc := range cases {
		got, err := hexWeiToEth(tc.in)
		if err != nil {
			t.Fatalf("hexWeiToEth(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("hexWeiToEth(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := hexWeiToEth("nonsense"); err == nil {
		t.Fatal("garbage input should error")
	}
}
