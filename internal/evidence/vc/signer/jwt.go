package signer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/golang-jwt/jwt/v5"

	"idproxy/pkg/requestcontext"
)

// Identity is the DID-anchored key JWT credentials are signed with.
type Identity interface {
	PrivateKey() *btcec.PrivateKey
	DID() string
}

// VCClaims is the JWT payload carrying a credential envelope.
type VCClaims struct {
	VC Envelope `json:"vc"`
	jwt.RegisteredClaims
}

// JWTSigner issues credentials as ES256K-R JWTs.
type JWTSigner struct {
	identity Identity
	logger   *slog.Logger
}

func NewJWTSigner(identity Identity, logger *slog.Logger) *JWTSigner {
	if logger == nil {
		logger = slog.Default()
	}
	return &JWTSigner{identity: identity, logger: logger}
}

// Sign never fails: errors are logged and yield a HashZero credential.
func (s *JWTSigner) Sign(ctx context.Context, claimType ClaimType, subject Subject) JWTCredential {
	token, err := s.sign(ctx, claimType, subject)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create JWT credential",
			"claim_type", claimType,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return JWTCredential{ClaimType: claimType, Token: HashZero}
	}
	return JWTCredential{ClaimType: claimType, Token: token}
}

func (s *JWTSigner) sign(ctx context.Context, claimType ClaimType, subject Subject) (string, error) {
	if s.identity == nil || s.identity.PrivateKey() == nil {
		return "", errors.New("wallet key not configured")
	}
	now := requestcontext.Now(ctx)
	did := s.identity.DID()

	claims := VCClaims{
		VC: newEnvelope(claimType, did, subject, now),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   did,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(SigningMethodES256KR, claims).SignedString(s.identity.PrivateKey())
}
