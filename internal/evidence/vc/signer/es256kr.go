package signer

import (
	"crypto/sha256"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/golang-jwt/jwt/v5"
)

// SigningMethodES256KR is ECDSA over secp256k1 with SHA-256, where the
// signature is r||s||v and v is the public key recovery id.
var SigningMethodES256KR = &signingMethodES256KR{}

type signingMethodES256KR struct{}

func init() {
	jwt.RegisterSigningMethod(SigningMethodES256KR.Alg(), func() jwt.SigningMethod {
		return SigningMethodES256KR
	})
}

func (m *signingMethodES256KR) Alg() string {
	return "ES256K-R"
}

// Sign expects a *btcec.PrivateKey.
func (m *signingMethodES256KR) Sign(signingString string, key any) ([]byte, error) {
	priv, ok := key.(*btcec.PrivateKey)
	if !ok || priv == nil {
		return nil, jwt.ErrInvalidKeyType
	}
	digest := sha256.Sum256([]byte(signingString))
	compact := ecdsa.SignCompact(priv, digest[:], false)
	// compact is [27+recid] || R || S
	sig := make([]byte, 0, 65)
	sig = append(sig, compact[1:]...)
	sig = append(sig, compact[0]-27)
	return sig, nil
}

// Verify expects a *btcec.PublicKey and checks the recovered key matches it.
func (m *signingMethodES256KR) Verify(signingString string, sig []byte, key any) error {
	pub, ok := key.(*btcec.PublicKey)
	if !ok || pub == nil {
		return jwt.ErrInvalidKeyType
	}
	if len(sig) != 65 || sig[64] > 3 {
		return jwt.ErrSignatureInvalid
	}
	compact := make([]byte, 0, 65)
	compact = append(compact, sig[64]+27)
	compact = append(compact, sig[:64]...)

	digest := sha256.Sum256([]byte(signingString))
	recovered, _, err := ecdsa.RecoverCompact(compact, digest[:])
	if err != nil {
		return errors.Join(jwt.ErrSignatureInvalid, err)
	}
	if !recovered.IsEqual(pub) {
		return jwt.ErrSignatureInvalid
	}
	return nil
}
