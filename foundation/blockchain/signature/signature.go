// Package signature provides helper functions for handling the blockchain
// signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// =============================================================================

// GenerateKey produces a new secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// Address returns the string form of the public key that is used to
// identify a wallet on the ledger. It is the compressed public key in
// 0x prefixed hex.
func Address(publicKey ecdsa.PublicKey) string {
	return hexutil.Encode(crypto.CompressPubkey(&publicKey))
}

// NewID returns a globally unique identifier. The ids are time ordered
// so sorting them gives creation order.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Hash returns a unique string for the value. Structs marshal their fields
// in declaration order and maps marshal with sorted keys, so the same value
// produces the same hash on every node.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	return HashBytes(data)
}

// HashBytes returns the hex encoded sha256 hash of the data.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Sign uses the specified private key to sign the digest produced by Hash.
// The signature is returned in the [R|S|V] format as 0x prefixed hex.
func Sign(privateKey *ecdsa.PrivateKey, digest string) (string, error) {
	data, err := decodeDigest(digest)
	if err != nil {
		return "", err
	}

	sig, err := crypto.Sign(data, privateKey)
	if err != nil {
		return "", fmt.Errorf("signing digest: %w", err)
	}

	return hexutil.Encode(sig), nil
}

// VerifySignature checks the signature was produced for the digest by the
// private key behind the specified address. Any malformed input results in
// false and this function never panics.
func VerifySignature(address string, sig string, digest string) (valid bool) {
	defer func() {
		if r := recover(); r != nil {
			valid = false
		}
	}()

	publicKey, err := hexutil.Decode(address)
	if err != nil {
		return false
	}

	// Make sure the address is a point on the curve before going further.
	if _, err := crypto.DecompressPubkey(publicKey); err != nil {
		return false
	}

	sigBytes, err := hexutil.Decode(sig)
	if err != nil || len(sigBytes) != crypto.SignatureLength {
		return false
	}

	data, err := decodeDigest(digest)
	if err != nil {
		return false
	}

	// VerifySignature wants the 64 byte [R|S] form without the recovery id.
	return crypto.VerifySignature(publicKey, data, sigBytes[:crypto.RecoveryIDOffset])
}

// =============================================================================

// decodeDigest converts the hex digest into the 32 bytes the curve signs.
func decodeDigest(digest string) ([]byte, error) {
	data, err := hex.DecodeString(digest)
	if err != nil {
		return nil, fmt.Errorf("decoding digest: %w", err)
	}

	if len(data) != sha256.Size {
		return nil, errors.New("digest must be 32 bytes")
	}

	return data, nil
}
