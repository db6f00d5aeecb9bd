package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/sha3"

	"github.com/goblinlaunch/goblinbot/internal/wizard"
)

// Generator creates custodial secp256k1 wallets for users who want the bot
// to handle funding. The private key lives only in process memory.
type Generator struct{}

// NewGenerator constructs a wallet generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns a fresh keypair with its Ethereum address.
func (g *Generator) Generate() (wizard.Wallet, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return wizard.Wallet{}, fmt.Errorf("generate key: %w", err)
	}
	return wizard.Wallet{
		Address:    AddressFromPubKey(priv.PubKey()),
		PrivateKey: "0x" + hex.EncodeToString(priv.Serialize()),
	}, nil
}

// AddressFromPubKey derives the 0x-prefixed address: keccak256 of the
// uncompressed public key without its 0x04 prefix, last 20 bytes.
func AddressFromPubKey(pub *secp256k1.PublicKey) string {
	uncompressed := pub.SerializeUncompressed()

	h := sha3.NewLegacyKeccak256()
	h.Write(uncompressed[1:])
	digest := h.Sum(nil)

	return "0x" + hex.EncodeToString(digest[12:])
}
