package signer

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// CredentialSigner issues the JWT form of a credential.
type CredentialSigner interface {
	Sign(ctx context.Context, claimType ClaimType, subject Subject) JWTCredential
}

// DetachedSigner issues the detached-signature form of a credential.
type DetachedSigner interface {
	Sign(ctx context.Context, claimType ClaimType, subject Subject) PGPCredential
}

// Observer is notified of degraded signings.
type Observer interface {
	IncrementSigningDegraded(scheme string)
}

// Engine issues every claim type under both signing schemes.
type Engine struct {
	jwt      CredentialSigner
	pgp      DetachedSigner
	observer Observer
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithObserver records degraded signings.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

func NewEngine(jwtSigner CredentialSigner, pgpSigner DetachedSigner, opts ...EngineOption) *Engine {
	e := &Engine{jwt: jwtSigner, pgp: pgpSigner}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SignAll runs all signings concurrently and returns one pair per claim type,
// Name then Birth. A degraded signing affects only its own credential.
func (e *Engine) SignAll(ctx context.Context, subject Subject) []ClaimPair {
	pairs := make([]ClaimPair, len(ClaimTypes))

	var g errgroup.Group
	for i, claimType := range ClaimTypes {
		pairs[i].ClaimType = claimType
		g.Go(func() error {
			pairs[i].JWT = e.jwt.Sign(ctx, claimType, subject)
			return nil
		})
		g.Go(func() error {
			pairs[i].PGP = e.pgp.Sign(ctx, claimType, subject)
			return nil
		})
	}
	_ = g.Wait() // signers never return errors

	if e.observer != nil {
		for _, p := range pairs {
			if p.JWT.Failed() {
				e.observer.IncrementSigningDegraded("jwt")
			}
			if !p.PGP.Signed() {
				e.observer.IncrementSigningDegraded("pgp")
			}
		}
	}
	return pairs
}
