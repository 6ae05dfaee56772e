package models

import (
	"fmt"
	"strings"

	"idproxy/internal/evidence/greenid"
	dErrors "idproxy/pkg/domain-errors"
)

// FullName is the caller's name as supplied.
type FullName struct {
	GivenName   string `json:"givenName"`
	MiddleNames string `json:"middleNames,omitempty"`
	Surname     string `json:"surname"`
}

// DateOfBirth is a calendar date.
type DateOfBirth struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Address is the current residential address. State also selects the
// licence data source.
type Address struct {
	FlatNumber   string `json:"flatNumber,omitempty"`
	StreetNumber string `json:"streetNumber,omitempty"`
	StreetName   string `json:"streetName,omitempty"`
	StreetType   string `json:"streetType,omitempty"`
	Suburb       string `json:"suburb,omitempty"`
	TownCity     string `json:"townCity,omitempty"`
	State        string `json:"state"`
	Postcode     string `json:"postcode,omitempty"`
	Country      string `json:"country,omitempty"`
}

type DriversLicence struct {
	LicenceNumber string `json:"licenceNumber"`
	CardNumber    string `json:"cardNumber,omitempty"`
}

type MedicareCard struct {
	Colour                    string `json:"colour"`
	Number                    string `json:"number"`
	IndividualReferenceNumber string `json:"individualReferenceNumber"`
	NameOnCard                string `json:"nameOnCard"`
	NameLine2                 string `json:"nameLine2,omitempty"`
	NameLine3                 string `json:"nameLine3,omitempty"`
	NameLine4                 string `json:"nameLine4,omitempty"`
	Expiry                    string `json:"expiry"`
}

type Passport struct {
	Number string `json:"number"`
}

type BirthCertificate struct {
	RegistrationNumber     string `json:"registrationNumber"`
	RegistrationState      string `json:"registrationState"`
	RegistrationYear       string `json:"registrationYear,omitempty"`
	RegistrationDate       string `json:"registrationDate,omitempty"`
	CertificateNumber      string `json:"certificateNumber,omitempty"`
	CertificatePrintedDate string `json:"certificatePrintedDate,omitempty"`
}

// VerifyRequest is the body of POST /v1/verify.
type VerifyRequest struct {
	FullName         FullName          `json:"fullName"`
	DOB              *DateOfBirth      `json:"dob"`
	Address          Address           `json:"address"`
	DriversLicence   *DriversLicence   `json:"driversLicence"`
	MedicareCard     *MedicareCard     `json:"medicareCard"`
	Passport         *Passport         `json:"passport,omitempty"`
	BirthCertificate *BirthCertificate `json:"birthCertificate,omitempty"`
}

// Normalize trims whitespace and upper-cases state codes.
func (r *VerifyRequest) Normalize() {
	r.FullName.GivenName = strings.TrimSpace(r.FullName.GivenName)
	r.FullName.MiddleNames = strings.TrimSpace(r.FullName.MiddleNames)
	r.FullName.Surname = strings.TrimSpace(r.FullName.Surname)
	r.Address.State = strings.ToUpper(strings.TrimSpace(r.Address.State))
	r.Address.Postcode = strings.TrimSpace(r.Address.Postcode)

	if r.DriversLicence != nil {
		r.DriversLicence.LicenceNumber = strings.TrimSpace(r.DriversLicence.LicenceNumber)
		r.DriversLicence.CardNumber = strings.TrimSpace(r.DriversLicence.CardNumber)
	}
	if r.MedicareCard != nil {
		r.MedicareCard.Number = strings.ReplaceAll(strings.TrimSpace(r.MedicareCard.Number), " ", "")
		r.MedicareCard.NameOnCard = strings.TrimSpace(r.MedicareCard.NameOnCard)
	}
	if r.Passport != nil {
		r.Passport.Number = strings.ToUpper(strings.TrimSpace(r.Passport.Number))
	}
	if r.BirthCertificate != nil {
		r.BirthCertificate.RegistrationState = strings.ToUpper(strings.TrimSpace(r.BirthCertificate.RegistrationState))
	}
}

// Validate checks field shapes. Presence of name, date of birth and documents
// is enforced by the verification service so it can order those checks
// around vendor registration.
func (r *VerifyRequest) Validate() error {
	if r.DOB != nil {
		if err := r.DOB.validate(); err != nil {
			return err
		}
	}
	if r.DriversLicence != nil && r.Address.State == "" {
		return dErrors.New(dErrors.CodeValidation, "address.state is required to check a drivers licence")
	}
	return nil
}

func (d DateOfBirth) validate() error {
	switch {
	case d.Day < 1 || d.Day > 31:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("dob.day %d out of range", d.Day))
	case d.Month < 1 || d.Month > 12:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("dob.month %d out of range", d.Month))
	case d.Year < 1900 || d.Year > 9999:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("dob.year %d out of range", d.Year))
	}
	return nil
}

// ToSubject converts the request into the verification subject.
func (r *VerifyRequest) ToSubject() Subject {
	s := Subject{
		Name: greenid.Name{
			GivenName:   r.FullName.GivenName,
			MiddleNames: r.FullName.MiddleNames,
			Surname:     r.FullName.Surname,
		},
		Address: greenid.Address{
			FlatNumber:   r.Address.FlatNumber,
			StreetNumber: r.Address.StreetNumber,
			StreetName:   r.Address.StreetName,
			StreetType:   r.Address.StreetType,
			Suburb:       r.Address.Suburb,
			TownCity:     r.Address.TownCity,
			State:        r.Address.State,
			Postcode:     r.Address.Postcode,
			Country:      r.Address.Country,
		},
	}
	if r.DOB != nil {
		s.DOB = &greenid.DOB{Day: r.DOB.Day, Month: r.DOB.Month, Year: r.DOB.Year}
	}
	if l := r.DriversLicence; l != nil {
		s.Licence = &greenid.Licence{Number: l.LicenceNumber, State: r.Address.State, CardNumber: l.CardNumber}
	}
	if m := r.MedicareCard; m != nil {
		s.Medicare = &greenid.Medicare{
			Colour:                    m.Colour,
			Number:                    m.Number,
			IndividualReferenceNumber: m.IndividualReferenceNumber,
			NameOnCard:                m.NameOnCard,
			NameLine2:                 m.NameLine2,
			NameLine3:                 m.NameLine3,
			NameLine4:                 m.NameLine4,
			Expiry:                    m.Expiry,
		}
	}
	if p := r.Passport; p != nil {
		s.Passport = &greenid.Passport{Number: p.Number}
	}
	if b := r.BirthCertificate; b != nil {
		bc := greenid.BirthCertificate(*b)
		s.BirthCertificate = &bc
	}
	return s
}

// DocumentRequest is the body of POST /v1/verifications/{verificationID}/documents.
// Exactly one document must be present. State selects the licence data source.
type DocumentRequest struct {
	FullName         FullName          `json:"fullName"`
	DOB              DateOfBirth       `json:"dob"`
	State            string            `json:"state,omitempty"`
	DriversLicence   *DriversLicence   `json:"driversLicence,omitempty"`
	MedicareCard     *MedicareCard     `json:"medicareCard,omitempty"`
	Passport         *Passport         `json:"passport,omitempty"`
	BirthCertificate *BirthCertificate `json:"birthCertificate,omitempty"`
}

func (r *DocumentRequest) Normalize() {
	r.FullName.GivenName = strings.TrimSpace(r.FullName.GivenName)
	r.FullName.MiddleNames = strings.TrimSpace(r.FullName.MiddleNames)
	r.FullName.Surname = strings.TrimSpace(r.FullName.Surname)
	r.State = strings.ToUpper(strings.TrimSpace(r.State))
	if r.DriversLicence != nil {
		r.DriversLicence.LicenceNumber = strings.TrimSpace(r.DriversLicence.LicenceNumber)
		r.DriversLicence.CardNumber = strings.TrimSpace(r.DriversLicence.CardNumber)
	}
	if r.MedicareCard != nil {
		r.MedicareCard.Number = strings.ReplaceAll(strings.TrimSpace(r.MedicareCard.Number), " ", "")
		r.MedicareCard.NameOnCard = strings.TrimSpace(r.MedicareCard.NameOnCard)
	}
	if r.Passport != nil {
		r.Passport.Number = strings.ToUpper(strings.TrimSpace(r.Passport.Number))
	}
	if r.BirthCertificate != nil {
		r.BirthCertificate.RegistrationState = strings.ToUpper(strings.TrimSpace(r.BirthCertificate.RegistrationState))
	}
}

func (r *DocumentRequest) Validate() error {
	if r.FullName.GivenName == "" || r.FullName.Surname == "" {
		return dErrors.New(dErrors.CodeValidation, "fullName.givenName and fullName.surname are required")
	}
	if err := r.DOB.validate(); err != nil {
		return err
	}
	if r.documentCount() != 1 {
		return dErrors.New(dErrors.CodeValidation,
			"exactly one of driversLicence, medicareCard, passport or birthCertificate is required")
	}
	switch {
	case r.DriversLicence != nil:
		if r.DriversLicence.LicenceNumber == "" || r.State == "" {
			return dErrors.New(dErrors.CodeValidation, "driversLicence.licenceNumber and state are required")
		}
	case r.MedicareCard != nil:
		if r.MedicareCard.Number == "" || r.MedicareCard.NameOnCard == "" {
			return dErrors.New(dErrors.CodeValidation, "medicareCard.number and nameOnCard are required")
		}
	case r.Passport != nil:
		if r.Passport.Number == "" {
			return dErrors.New(dErrors.CodeValidation, "passport.number is required")
		}
	default:
		if r.BirthCertificate.RegistrationNumber == "" || r.BirthCertificate.RegistrationState == "" {
			return dErrors.New(dErrors.CodeValidation, "birthCertificate.registrationNumber and registrationState are required")
		}
	}
	return nil
}

func (r *DocumentRequest) documentCount() int {
	n := 0
	for _, present := range []bool{r.DriversLicence != nil, r.MedicareCard != nil, r.Passport != nil, r.BirthCertificate != nil} {
		if present {
			n++
		}
	}
	return n
}

// Fields maps the document to its data source and form inputs.
func (r *DocumentRequest) Fields() (sourceID string, fields []greenid.Field) {
	name := greenid.Name{GivenName: r.FullName.GivenName, MiddleNames: r.FullName.MiddleNames, Surname: r.FullName.Surname}
	dob := greenid.DOB{Day: r.DOB.Day, Month: r.DOB.Month, Year: r.DOB.Year}
	switch {
	case r.DriversLicence != nil:
		l := greenid.Licence{Number: r.DriversLicence.LicenceNumber, State: r.State, CardNumber: r.DriversLicence.CardNumber}
		return l.SourceID(), greenid.LicenceFields(name, dob, l)
	case r.MedicareCard != nil:
		m := r.MedicareCard
		return greenid.MedicareSourceID, greenid.MedicareFields(dob, greenid.Medicare{
			Colour:                    m.Colour,
			Number:                    m.Number,
			IndividualReferenceNumber: m.IndividualReferenceNumber,
			NameOnCard:                m.NameOnCard,
			NameLine2:                 m.NameLine2,
			NameLine3:                 m.NameLine3,
			NameLine4:                 m.NameLine4,
			Expiry:                    m.Expiry,
		})
	case r.Passport != nil:
		return greenid.PassportSourceID, greenid.PassportFields(name, dob, greenid.Passport{Number: r.Passport.Number})
	}
	return greenid.BirthCertificateSourceID, greenid.BirthCertificateFields(name, dob, greenid.BirthCertificate(*r.BirthCertificate))
}
