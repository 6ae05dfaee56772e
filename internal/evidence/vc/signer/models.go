package signer

import (
	"strings"
	"time"
)

// ClaimType names one issued credential.
type ClaimType string

const (
	NameCredential  ClaimType = "NameCredential"
	BirthCredential ClaimType = "BirthCredential"
)

// ClaimTypes lists the credentials issued per verification, in order.
var ClaimTypes = []ClaimType{NameCredential, BirthCredential}

// HashZero marks a JWT credential that could not be signed.
var HashZero = "0x" + strings.Repeat("0", 64)

const (
	credentialsContext   = "https://www.w3.org/2018/credentials/v1"
	verifiableCredential = "VerifiableCredential"
	credentialValidity   = 365 * 24 * time.Hour

	ProofTypeGPG          = "GpgSignature2020"
	ProofPurposeAssertion = "assertionMethod"
	timestampLayout       = "2006-01-02T15:04:05.000Z07:00"
)

// NameClaim is the subject of a NameCredential.
type NameClaim struct {
	GivenName   string `json:"givenName"`
	MiddleNames string `json:"middleNames,omitempty"`
	Surname     string `json:"surname"`
}

// BirthClaim is the subject of a BirthCredential.
type BirthClaim struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Subject carries the verified attributes credentials are issued over.
type Subject struct {
	Name NameClaim
	DOB  BirthClaim
}

func (s Subject) claim(t ClaimType) any {
	if t == BirthCredential {
		return s.DOB
	}
	return s.Name
}

// Envelope is an unsigned verifiable credential.
type Envelope struct {
	Context           []string `json:"@context"`
	Type              []string `json:"type"`
	Issuer            string   `json:"issuer"`
	IssuanceDate      string   `json:"issuanceDate"`
	ExpirationDate    string   `json:"expirationDate"`
	CredentialSubject any      `json:"credentialSubject"`
}

// GPGProof is the detached signature proof block.
type GPGProof struct {
	Type               string `json:"type"`
	Created            string `json:"created"`
	ProofPurpose       string `json:"proofPurpose"`
	VerificationMethod string `json:"verificationMethod"`
	SignatureValue     string `json:"signatureValue"`
}

// PGPCredential is an envelope with a detached OpenPGP signature. A failed
// signing leaves SignatureValue empty.
type PGPCredential struct {
	Envelope
	Proof GPGProof `json:"proof"`
}

// Signed reports whether the credential carries a signature.
func (c PGPCredential) Signed() bool {
	return c.Proof.SignatureValue != ""
}

// ClaimLabel is the credential's claim type tag, or "" when absent.
func (c PGPCredential) ClaimLabel() string {
	if len(c.Type) < 2 {
		return ""
	}
	return c.Type[1]
}

// JWTCredential is a compact JWT over an envelope, or HashZero on failure.
type JWTCredential struct {
	ClaimType ClaimType
	Token     string
}

// Failed reports whether signing produced the sentinel instead of a token.
func (c JWTCredential) Failed() bool {
	return c.Token == HashZero
}

// ClaimPair binds the two credentials issued for one claim type.
type ClaimPair struct {
	ClaimType ClaimType
	JWT       JWTCredential
	PGP       PGPCredential
}

func newEnvelope(t ClaimType, issuer string, subject Subject, now time.Time) Envelope {
	now = now.UTC()
	return Envelope{
		Context:           []string{credentialsContext},
		Type:              []string{verifiableCredential, string(t)},
		Issuer:            issuer,
		IssuanceDate:      now.Format(timestampLayout),
		ExpirationDate:    now.Add(credentialValidity).Format(timestampLayout),
		CredentialSubject: subject.claim(t),
	}
}
