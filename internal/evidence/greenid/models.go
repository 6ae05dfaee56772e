package greenid

import "fmt"

// Name is the vendor's person name shape.
type Name struct {
	GivenName   string `xml:"givenName"`
	MiddleNames string `xml:"middleNames,omitempty"`
	Surname     string `xml:"surname"`
}

// DOB is a calendar date of birth.
type DOB struct {
	Day   int `xml:"day"`
	Month int `xml:"month"`
	Year  int `xml:"year"`
}

// String renders the d/m/y form the vendor's form fields expect (no padding).
func (d DOB) String() string {
	return fmt.Sprintf("%d/%d/%d", d.Day, d.Month, d.Year)
}

// Address is the current residential address.
type Address struct {
	FlatNumber   string `xml:"flatNumber,omitempty"`
	StreetNumber string `xml:"streetNumber,omitempty"`
	StreetName   string `xml:"streetName,omitempty"`
	StreetType   string `xml:"streetType,omitempty"`
	Suburb       string `xml:"suburb,omitempty"`
	TownCity     string `xml:"townCity,omitempty"`
	State        string `xml:"state,omitempty"`
	Postcode     string `xml:"postcode,omitempty"`
	Country      string `xml:"country,omitempty"`
}

// Field is one named form input submitted to a data source.
type Field struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

// OverallStatus is the vendor's verification status string.
type OverallStatus string

const (
	StatusVerified   OverallStatus = "VERIFIED"
	StatusInProgress OverallStatus = "IN_PROGRESS"
	StatusPending    OverallStatus = "PENDING"
	StatusLockedOut  OverallStatus = "LOCKED_OUT"
)

// CheckState is the outcome of one data source check.
type CheckState string

const CheckVerified CheckState = "VERIFIED"

// RegisterRequest registers a new verification for a person.
type RegisterRequest struct {
	RuleID  string
	Name    Name
	Address Address
	DOB     DOB
}

// RegisterResult is the vendor's answer to registerVerification.
type RegisterResult struct {
	VerificationID string
	OverallStatus  OverallStatus
}

// SetFieldsRequest submits form fields for one data source.
type SetFieldsRequest struct {
	VerificationID string
	SourceID       string
	Fields         []Field
}

// SetFieldsResult reports the source check state.
type SetFieldsResult struct {
	State         CheckState
	OverallStatus OverallStatus
}

// VerificationResult is the polled overall outcome.
type VerificationResult struct {
	VerificationID string
	OverallStatus  OverallStatus
}

// Source describes one data source available to a verification.
type Source struct {
	Name      string `xml:"name"`
	State     string `xml:"state"`
	Available bool   `xml:"available"`
}

// Session tracks one verification against the vendor for the life of a request.
type Session struct {
	VerificationID string
	Status         OverallStatus
	Attempts       []FieldAttempt
}

// FieldAttempt records one setFields submission.
type FieldAttempt struct {
	SourceID string
	State    CheckState
}

// Record appends a submission outcome.
func (s *Session) Record(sourceID string, state CheckState) {
	s.Attempts = append(s.Attempts, FieldAttempt{SourceID: sourceID, State: state})
}

// Sources lists the source ids submitted so far, in order.
func (s *Session) Sources() []string {
	out := make([]string, 0, len(s.Attempts))
	for _, a := range s.Attempts {
		out = append(out, a.SourceID)
	}
	return out
}
