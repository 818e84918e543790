package auth

import (
	"crypto/sha256"
	"fmt"
	"io"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"golang.org/x/crypto/hkdf"
)

const (
	// custodyInfo is the HKDF info string for custody key derivation.
	custodyInfo = "matchfund-custody"

	// minSeedLen is the shortest accepted custody seed.
	minSeedLen = 16
)

// DeriveCustodyKey derives the custody key of a deployed service:
//
//	key = HKDF-SHA256(seed, salt=label, info="matchfund-custody")
//
// Different labels ("collection", "vesting") yield independent accounts from
// one operator seed.
func DeriveCustodyKey(seed []byte, label string) (*ec.PrivateKey, error) {
	if len(seed) < minSeedLen {
		return nil, ErrInvalidSeed
	}
	r := hkdf.New(sha256.New, seed, []byte(label), []byte(custodyInfo))
	keyBytes := make([]byte, 32)
	if _, err := io.ReadFull(r, keyBytes); err != nil {
		return nil, fmt.Errorf("auth: derive custody key: %w", err)
	}
	priv, _ := ec.PrivateKeyFromBytes(keyBytes)
	return priv, nil
}

// CustodyPrincipal returns the address principal of the custody key for label.
func CustodyPrincipal(seed []byte, label string, mainnet bool) (Principal, error) {
	priv, err := DeriveCustodyKey(seed, label)
	if err != nil {
		return "", err
	}
	return AddressFromPublicKey(priv.PubKey(), mainnet)
}
