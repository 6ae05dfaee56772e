package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the cache façade and the
// vendor client return these (optionally wrapped) so services can translate
// them into domain errors.
//
//   - ErrNotFound: record does not exist in store or cache
//   - ErrUnavailable: backing service temporarily unavailable
//   - ErrNotReady: process-wide handle not yet established
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
	ErrNotReady    = errors.New("not ready")
)
