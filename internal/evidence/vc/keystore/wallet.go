package keystore

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/sha3"
)

var ErrInvalidWalletKey = errors.New("invalid wallet private key")

// Wallet is the service's secp256k1 signing identity.
type Wallet struct {
	key *btcec.PrivateKey
}

// NewWallet parses a hex encoded private key, with or without 0x prefix.
func NewWallet(hexKey string) (*Wallet, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil || len(raw) != btcec.PrivKeyBytesLen {
		return nil, ErrInvalidWalletKey
	}
	key, _ := btcec.PrivKeyFromBytes(raw)
	return &Wallet{key: key}, nil
}

// PrivateKey exposes the signing key to the JWT signer. It is nil for a
// wallet without a usable key.
func (w *Wallet) PrivateKey() *btcec.PrivateKey {
	if w == nil {
		return nil
	}
	return w.key
}

// PublicKeyHex is the 0x-prefixed uncompressed public key.
func (w *Wallet) PublicKeyHex() string {
	if w.PrivateKey() == nil {
		return "0x"
	}
	return "0x" + hex.EncodeToString(w.key.PubKey().SerializeUncompressed())
}

// DID is the ethr DID anchored on the public key.
func (w *Wallet) DID() string {
	return "did:ethr:" + w.PublicKeyHex()
}

// Address is the EIP-55 checksummed Ethereum address of the key.
func (w *Wallet) Address() string {
	if w.PrivateKey() == nil {
		return ""
	}
	return Address(w.key.PubKey())
}

// Address derives the EIP-55 checksummed address of pub.
func Address(pub *btcec.PublicKey) string {
	digest := keccak256(pub.SerializeUncompressed()[1:])
	return checksumAddress(hex.EncodeToString(digest[12:]))
}

func checksumAddress(lowerHex string) string {
	hash := hex.EncodeToString(keccak256([]byte(lowerHex)))
	out := make([]byte, len(lowerHex))
	for i := range lowerHex {
		c := lowerHex[i]
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return "0x" + string(out)
}

// MessageDigest is the EIP-191 personal message hash of msg.
func MessageDigest(msg []byte) []byte {
	prefix := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(msg))
	return keccak256([]byte(prefix), msg)
}

// SignMessage produces an EIP-191 personal signature over msg as 0x-prefixed
// r||s||v hex, with v in {27, 28}.
func (w *Wallet) SignMessage(msg []byte) (string, error) {
	if w.PrivateKey() == nil {
		return "", errors.New("sign message: wallet has no key")
	}
	compact := ecdsa.SignCompact(w.key, MessageDigest(msg), false)
	// compact is [27+recid] || R || S
	sig := make([]byte, 0, 65)
	sig = append(sig, compact[1:]...)
	sig = append(sig, compact[0])
	return "0x" + hex.EncodeToString(sig), nil
}

// RecoverMessageSigner returns the address that produced sig over msg.
func RecoverMessageSigner(msg []byte, sig string) (string, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil || len(raw) != 65 {
		return "", errors.New("malformed signature")
	}
	compact := make([]byte, 0, 65)
	compact = append(compact, raw[64])
	compact = append(compact, raw[:64]...)
	pub, _, err := ecdsa.RecoverCompact(compact, MessageDigest(msg))
	if err != nil {
		return "", fmt.Errorf("recover signer: %w", err)
	}
	return Address(pub), nil
}

func keccak256(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}
