package audit

import "time"

// Event is emitted from the verification flow to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	RequestID      string    `json:"request_id,omitempty"`
	Partner        string    `json:"partner,omitempty"`
	Action         string    `json:"action"`
	VerificationID string    `json:"verification_id,omitempty"`
	Status         string    `json:"status,omitempty"`
	Decision       string    `json:"decision"`
	Reason         string    `json:"reason,omitempty"`
	ClientIP       string    `json:"client_ip,omitempty"`
	Device         string    `json:"device,omitempty"`
}

// Actions.
const (
	ActionVerify         = "identity_verification"
	ActionSubmitDocument = "document_submitted"
	ActionCacheReset     = "cache_reset"
)

// Decisions.
const (
	DecisionIssued   = "issued"
	DecisionCached   = "cached"
	DecisionFailed   = "failed"
	DecisionRejected = "rejected"
	DecisionError    = "error"

	DecisionAvailable   = "available"
	DecisionUnavailable = "unavailable"
)
