package greenid

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

const (
	soapEnvNS     = "http://schemas.xmlsoap.org/soap/envelope/"
	dynamicFormNS = "http://dynamicform.services.registrations.edentiti.com/"
)

// requestEnvelope wraps an operation element. The operation's XMLName carries
// the "dyn:" prefix so child elements stay unqualified, as the service expects.
type requestEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	EnvNS   string   `xml:"xmlns:soapenv,attr"`
	DynNS   string   `xml:"xmlns:dyn,attr"`
	Header  struct{} `xml:"soapenv:Header"`
	Body    struct {
		Operation any
	} `xml:"soapenv:Body"`
}

type responseEnvelope struct {
	Body struct {
		Fault *soapFault `xml:"Fault"`
		Inner []byte     `xml:",innerxml"`
	} `xml:"Body"`
}

type soapFault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
	Detail struct {
		Inner string `xml:",innerxml"`
	} `xml:"detail"`
}

func encodeEnvelope(operation any) ([]byte, error) {
	env := requestEnvelope{EnvNS: soapEnvNS, DynNS: dynamicFormNS}
	env.Body.Operation = operation

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("encode soap envelope: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeEnvelope returns the fault, if any, or decodes the body content into out.
func decodeEnvelope(data []byte, out any) (*soapFault, error) {
	var env responseEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode soap envelope: %w", err)
	}
	if env.Body.Fault != nil {
		return env.Body.Fault, nil
	}
	if out == nil {
		return nil, nil
	}
	if err := xml.Unmarshal(env.Body.Inner, out); err != nil {
		return nil, fmt.Errorf("decode soap body: %w", err)
	}
	return nil, nil
}

// Operation payloads.

type credentials struct {
	AccountID string `xml:"accountId"`
	Password  string `xml:"password"`
}

type registerVerificationOp struct {
	XMLName xml.Name `xml:"dyn:registerVerification"`
	credentials
	RuleID                    string  `xml:"ruleId"`
	Name                      Name    `xml:"name"`
	CurrentResidentialAddress Address `xml:"currentResidentialAddress"`
	DOB                       DOB     `xml:"dob"`
}

type setFieldsOp struct {
	XMLName xml.Name `xml:"dyn:setFields"`
	credentials
	VerificationID string `xml:"verificationId"`
	SourceID       string `xml:"sourceId"`
	InputFields    struct {
		Input []Field `xml:"input"`
	} `xml:"inputFields"`
}

type getSourcesOp struct {
	XMLName xml.Name `xml:"dyn:getSources"`
	credentials
	VerificationID string `xml:"verificationId"`
}

type verificationResultXML struct {
	VerificationID            string        `xml:"verificationId"`
	OverallVerificationStatus OverallStatus `xml:"overallVerificationStatus"`
}

type registerVerificationResponse struct {
	Return struct {
		VerificationResult verificationResultXML `xml:"verificationResult"`
	} `xml:"return"`
}

type setFieldsResponse struct {
	Return struct {
		CheckResult struct {
			State CheckState `xml:"state"`
		} `xml:"checkResult"`
		VerificationResult verificationResultXML `xml:"verificationResult"`
	} `xml:"return"`
}

type getSourcesResponse struct {
	Return struct {
		SourceList         []Source              `xml:"sourceList"`
		VerificationResult verificationResultXML `xml:"verificationResult"`
	} `xml:"return"`
}
