package signer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ProtonMail/go-crypto/openpgp"

	"idproxy/pkg/requestcontext"
)

// KeySource loads the decrypted signing key.
type KeySource interface {
	Load(ctx context.Context) (*openpgp.Entity, error)
}

// PGPSigner issues credentials with an armored detached OpenPGP signature
// over the JSON encoded envelope.
type PGPSigner struct {
	keys   KeySource
	issuer string
	logger *slog.Logger
}

// NewPGPSigner creates a signer whose credentials name issuer (the service
// domain URL).
func NewPGPSigner(keys KeySource, issuer string, logger *slog.Logger) *PGPSigner {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGPSigner{keys: keys, issuer: issuer, logger: logger}
}

// Sign never fails: errors are logged and the credential is returned with an
// empty signature value.
func (s *PGPSigner) Sign(ctx context.Context, claimType ClaimType, subject Subject) PGPCredential {
	env := newEnvelope(claimType, s.issuer, subject, requestcontext.Now(ctx))

	signature, err := s.sign(ctx, env)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to create PGP credential",
			"claim_type", claimType,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}

	return PGPCredential{
		Envelope: env,
		Proof: GPGProof{
			Type:               ProofTypeGPG,
			Created:            requestcontext.Now(ctx).UTC().Format(timestampLayout),
			ProofPurpose:       ProofPurposeAssertion,
			VerificationMethod: "",
			SignatureValue:     signature,
		},
	}
}

func (s *PGPSigner) sign(ctx context.Context, env Envelope) (string, error) {
	if s.keys == nil {
		return "", fmt.Errorf("pgp key source not configured")
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode credential: %w", err)
	}
	entity, err := s.keys.Load(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := openpgp.ArmoredDetachSignText(&buf, entity, bytes.NewReader(payload), nil); err != nil {
		return "", fmt.Errorf("detach sign: %w", err)
	}
	return buf.String(), nil
}
