package greenid

import "strings"

// Data source ids.
const (
	MedicareSourceID         = "medicaredvs"
	PassportSourceID         = "passportdvs"
	BirthCertificateSourceID = "birthcertificatedvs"
)

const termsAccepted = "on"

// Licence is a state-issued driver's licence.
type Licence struct {
	Number     string
	State      string
	CardNumber string
}

// SourceID returns the per-state licence source, e.g. "nswregodvs".
func (l Licence) SourceID() string {
	return strings.ToLower(l.State) + "regodvs"
}

// Medicare is a Medicare card.
type Medicare struct {
	Colour                    string
	Number                    string
	IndividualReferenceNumber string
	NameOnCard                string
	NameLine2                 string
	NameLine3                 string
	NameLine4                 string
	Expiry                    string
}

// Passport is an Australian passport.
type Passport struct {
	Number string
}

// BirthCertificate is a state birth registration.
type BirthCertificate struct {
	RegistrationNumber     string
	RegistrationState      string
	RegistrationYear       string
	RegistrationDate       string
	CertificateNumber      string
	CertificatePrintedDate string
}

// LicenceFields maps a licence to the vendor's form inputs.
func LicenceFields(name Name, dob DOB, l Licence) []Field {
	prefix := "greenid_" + l.SourceID() + "_"
	fields := []Field{
		{Name: prefix + "number", Value: l.Number},
		{Name: prefix + "givenname", Value: name.GivenName},
	}
	if name.MiddleNames != "" {
		fields = append(fields, Field{Name: prefix + "middlename", Value: name.MiddleNames})
	}
	fields = append(fields,
		Field{Name: prefix + "surname", Value: name.Surname},
		Field{Name: prefix + "dob", Value: dob.String()},
		Field{Name: prefix + "tandc", Value: termsAccepted},
		Field{Name: prefix + "cardnumber", Value: l.CardNumber},
	)
	return fields
}

// MedicareFields maps a Medicare card to the vendor's form inputs. Only the
// name on card is upper-cased; further name lines are sent as given.
func MedicareFields(dob DOB, m Medicare) []Field {
	const prefix = "greenid_" + MedicareSourceID + "_"
	fields := []Field{
		{Name: prefix + "cardColour", Value: m.Colour},
		{Name: prefix + "number", Value: m.Number},
		{Name: prefix + "individualReferenceNumber", Value: m.IndividualReferenceNumber},
		{Name: prefix + "nameOnCard", Value: strings.ToUpper(m.NameOnCard)},
	}
	for i, line := range []string{m.NameLine2, m.NameLine3, m.NameLine4} {
		if line == "" {
			continue
		}
		fields = append(fields, Field{
			Name:  prefix + "nameLine" + string(rune('2'+i)),
			Value: line,
		})
	}
	fields = append(fields,
		Field{Name: prefix + "dob", Value: dob.String()},
		Field{Name: prefix + "expiry", Value: m.Expiry},
		Field{Name: prefix + "tandc", Value: termsAccepted},
	)
	return fields
}

// PassportFields maps a passport to the vendor's form inputs.
func PassportFields(name Name, dob DOB, p Passport) []Field {
	const prefix = "greenid_" + PassportSourceID + "_"
	fields := []Field{
		{Name: prefix + "number", Value: p.Number},
		{Name: prefix + "givenname", Value: name.GivenName},
	}
	if name.MiddleNames != "" {
		fields = append(fields, Field{Name: prefix + "middlename", Value: name.MiddleNames})
	}
	return append(fields,
		Field{Name: prefix + "surname", Value: name.Surname},
		Field{Name: prefix + "dob", Value: dob.String()},
		Field{Name: prefix + "tandc", Value: termsAccepted},
	)
}

// BirthCertificateFields maps a birth registration to the vendor's form inputs.
func BirthCertificateFields(name Name, dob DOB, b BirthCertificate) []Field {
	const prefix = "greenid_" + BirthCertificateSourceID + "_"
	fields := []Field{
		{Name: prefix + "registration_number", Value: b.RegistrationNumber},
		{Name: prefix + "registration_state", Value: b.RegistrationState},
	}
	optional := []Field{
		{Name: prefix + "registration_year", Value: b.RegistrationYear},
		{Name: prefix + "registration_date", Value: b.RegistrationDate},
		{Name: prefix + "certificate_number", Value: b.CertificateNumber},
		{Name: prefix + "certificate_printed_date", Value: b.CertificatePrintedDate},
	}
	for _, f := range optional {
		if f.Value != "" {
			fields = append(fields, f)
		}
	}
	fields = append(fields, Field{Name: prefix + "givenname", Value: name.GivenName})
	if name.MiddleNames != "" {
		fields = append(fields, Field{Name: prefix + "middlename", Value: name.MiddleNames})
	}
	return append(fields,
		Field{Name: prefix + "surname", Value: name.Surname},
		Field{Name: prefix + "dob", Value: dob.String()},
		Field{Name: prefix + "tandc", Value: termsAccepted},
	)
}
