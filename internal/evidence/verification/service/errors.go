package service

import (
	"fmt"

	dErrors "idproxy/pkg/domain-errors"
)

// InvalidSubjectError reports a subject without the attributes every
// verification needs. It is raised before any vendor call.
type InvalidSubjectError struct {
	Field string
}

func (e *InvalidSubjectError) Error() string {
	return fmt.Sprintf("invalid subject: %s is required", e.Field)
}

// MissingDocumentError reports a required identity document absent from the
// subject. It is raised after registration, so VerificationID is set.
type MissingDocumentError struct {
	Document       string
	VerificationID string
}

func (e *MissingDocumentError) Error() string {
	return fmt.Sprintf("missing document: %s", e.Document)
}

// ErrContactSupport is returned when the vendor did not verify the subject.
var ErrContactSupport = dErrors.New(dErrors.CodeVerificationFailed, "Error, please contact support")

func invalidSubject(field string) error {
	err := &InvalidSubjectError{Field: field}
	return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
}

func missingDocument(document, verificationID string) error {
	err := &MissingDocumentError{Document: document, VerificationID: verificationID}
	return dErrors.Wrap(err, dErrors.CodeBadRequest, err.Error())
}

func vendorFailure(err error) error {
	return dErrors.Wrap(err, dErrors.CodeInternal, "vendor verification failed")
}
