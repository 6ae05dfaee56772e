package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"idproxy/internal/evidence/greenid"
)

// Subject is the person being verified. It is never mutated once built.
type Subject struct {
	Name             greenid.Name              `json:"name"`
	DOB              *greenid.DOB              `json:"dob"`
	Address          greenid.Address           `json:"address"`
	Licence          *greenid.Licence          `json:"licence,omitempty"`
	Medicare         *greenid.Medicare         `json:"medicare,omitempty"`
	Passport         *greenid.Passport         `json:"passport,omitempty"`
	BirthCertificate *greenid.BirthCertificate `json:"birthCertificate,omitempty"`
}

// Fingerprint is a stable hash of every verified attribute, used as the
// cache key so identical submissions reuse a prior result.
func (s Subject) Fingerprint() string {
	// Subject contains only strings, ints and pointers to such structs.
	raw, _ := json.Marshal(s)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Status is the verification state reported to callers.
type Status string

const (
	StatusPending    Status = "pending"
	StatusVerified   Status = "verified"
	StatusInProgress Status = "in_progress"
	StatusFailed     Status = "failed"
)

// StatusFromVendor maps the vendor's overall status.
func StatusFromVendor(s greenid.OverallStatus) Status {
	switch s {
	case greenid.StatusVerified:
		return StatusVerified
	case greenid.StatusInProgress:
		return StatusInProgress
	case greenid.StatusPending:
		return StatusPending
	default:
		return StatusFailed
	}
}

// Issuable reports whether credentials may be issued for this status.
func (s Status) Issuable() bool {
	return s == StatusVerified || s == StatusInProgress
}

// Outcome is how a verify request ended.
type Outcome string

const (
	OutcomeIssued    Outcome = "issued"
	OutcomeCached    Outcome = "cached"
	OutcomeFailed    Outcome = "failed"
	OutcomeRejected  Outcome = "rejected"
	OutcomeVendorErr Outcome = "vendor_error"
)

// Record is one row of the verification request log.
type Record struct {
	ID             uuid.UUID `json:"id"`
	RequestID      string    `json:"request_id,omitempty"`
	Partner        string    `json:"partner,omitempty"`
	VerificationID string    `json:"verification_id,omitempty"`
	Status         Status    `json:"status,omitempty"`
	Sources        []string  `json:"sources"`
	CacheHit       bool      `json:"cache_hit"`
	Outcome        Outcome   `json:"outcome"`
	CreatedAt      time.Time `json:"created_at"`
}

// DocumentResult is the outcome of submitting an additional document.
type DocumentResult struct {
	VerificationID string `json:"verification_id"`
	SourceID       string `json:"source_id"`
	State          string `json:"state"`
	Status         Status `json:"status"`
}

// SourceView is one data source of a verification.
type SourceView struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Available bool   `json:"available"`
}
