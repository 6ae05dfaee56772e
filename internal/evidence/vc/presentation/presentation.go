package presentation

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"idproxy/internal/evidence/vc/keystore"
	"idproxy/internal/evidence/vc/signer"
	"idproxy/pkg/requestcontext"
)

// ResultCompleted is returned for every assembled response.
const ResultCompleted = "Completed"

const (
	presentationType   = "VerifiablePresentation"
	proofType          = "EcdsaSecp256k1Signature2019"
	proofPurposeAuth   = "authentication"
	unknownClaimLabel  = "Unknown"
	timestampLayout    = "2006-01-02T15:04:05.000Z07:00"
	verificationMethod = "did:idem:"
)

var presentationContext = []string{
	"https://www.w3.org/2018/credentials/v1",
	"https://schema.org",
}

// Proof binds the presentation to the service wallet.
type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	ProofPurpose       string `json:"proofPurpose"`
	VerificationMethod string `json:"verificationMethod"`
	Domain             string `json:"domain"`
}

// Presentation is the verifiable presentation returned to the caller.
type Presentation struct {
	Context              []string               `json:"@context"`
	Type                 string                 `json:"type"`
	Proof                Proof                  `json:"proof"`
	VerifiableCredential []signer.PGPCredential `json:"verifiableCredential"`
}

// ClaimJWT labels one JWT credential with its claim type.
type ClaimJWT struct {
	ClaimType string `json:"claimType"`
	JWT       string `json:"jwt"`
}

// Response is the payload returned for a completed verification.
type Response struct {
	Result             string       `json:"result"`
	ThirdPartyVerified bool         `json:"thirdPartyVerified"`
	Signature          string       `json:"signature"`
	Message            Presentation `json:"message"`
	HashedPayload      string       `json:"hashedPayload"`
	JWTs               []ClaimJWT   `json:"JWTs"`
}

// MessageSigner signs the presentation hash.
type MessageSigner interface {
	SignMessage(msg []byte) (string, error)
}

// Config controls the presentation proof and optional hash signing.
type Config struct {
	WalletAddress string
	DomainURL     string
	SignHash      bool
}

// Assembler builds the caller-facing response from issued credentials.
type Assembler struct {
	cfg    Config
	signer MessageSigner
	logger *slog.Logger
}

func NewAssembler(cfg Config, signer MessageSigner, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{cfg: cfg, signer: signer, logger: logger}
}

// HashMessage returns the EIP-191 personal message hash of msg as 0x hex.
func HashMessage(msg string) string {
	return "0x" + hex.EncodeToString(keystore.MessageDigest([]byte(msg)))
}

// Assemble never fails. Any error while building the payload yields the
// fallback response.
func (a *Assembler) Assemble(ctx context.Context, pairs []signer.ClaimPair) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.ErrorContext(ctx, "panic while assembling presentation",
				"panic", r,
				"request_id", requestcontext.RequestID(ctx),
			)
			resp = a.Fallback(ctx)
		}
	}()

	resp, err := a.assemble(ctx, pairs)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to assemble presentation",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return a.Fallback(ctx)
	}
	return resp
}

func (a *Assembler) assemble(ctx context.Context, pairs []signer.ClaimPair) (Response, error) {
	credentials := []signer.PGPCredential{}
	if len(pairs) > 0 {
		credentials = append(credentials, pairs[0].PGP)
	} else {
		a.logger.WarnContext(ctx, "no PGP credentials to embed in presentation")
	}

	message := a.presentation(ctx, credentials)
	encoded, err := json.Marshal(message)
	if err != nil {
		return Response{}, fmt.Errorf("encode presentation: %w", err)
	}
	hashed := HashMessage(string(encoded))

	return Response{
		Result:             ResultCompleted,
		ThirdPartyVerified: false,
		Signature:          a.signHash(ctx, hashed),
		Message:            message,
		HashedPayload:      hashed,
		JWTs:               labelJWTs(pairs),
	}, nil
}

func (a *Assembler) signHash(ctx context.Context, hashed string) string {
	if !a.cfg.SignHash {
		return signer.HashZero
	}
	if a.signer == nil {
		a.logger.ErrorContext(ctx, "hash signing enabled without a wallet")
		return ""
	}
	sig, err := a.signer.SignMessage([]byte(hashed))
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to sign presentation hash", "error", err)
		return ""
	}
	return sig
}

func labelJWTs(pairs []signer.ClaimPair) []ClaimJWT {
	out := make([]ClaimJWT, 0, len(pairs))
	for _, p := range pairs {
		label := p.PGP.ClaimLabel()
		if label == "" {
			label = unknownClaimLabel
		}
		out = append(out, ClaimJWT{ClaimType: label, JWT: p.JWT.Token})
	}
	return out
}

func (a *Assembler) presentation(ctx context.Context, credentials []signer.PGPCredential) Presentation {
	return Presentation{
		Context: presentationContext,
		Type:    presentationType,
		Proof: Proof{
			Type:               proofType,
			Created:            requestcontext.Now(ctx).UTC().Format(timestampLayout),
			ProofPurpose:       proofPurposeAuth,
			VerificationMethod: verificationMethod + a.cfg.WalletAddress,
			Domain:             a.cfg.DomainURL,
		},
		VerifiableCredential: credentials,
	}
}

// Fallback is the safe response used when assembly fails: no embedded
// credential, no hash, no signature and no JWTs.
func (a *Assembler) Fallback(ctx context.Context) Response {
	return Response{
		Result:             ResultCompleted,
		ThirdPartyVerified: false,
		Signature:          "",
		Message:            a.presentation(ctx, []signer.PGPCredential{}),
		HashedPayload:      "",
		JWTs:               []ClaimJWT{},
	}
}
