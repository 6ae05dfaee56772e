package greenid

import "fmt"

// VendorRPCError is returned when a vendor operation fails: a SOAP fault, an
// unexpected HTTP status, a transport failure or an unreadable response.
// Raw holds the response body when one was received.
type VendorRPCError struct {
	Operation  string
	FaultCode  string
	Message    string
	StatusCode int
	Raw        string
	Err        error
}

func (e *VendorRPCError) Error() string {
	switch {
	case e.FaultCode != "":
		return fmt.Sprintf("greenid %s: fault %s: %s", e.Operation, e.FaultCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("greenid %s: %s: %v", e.Operation, e.Message, e.Err)
	default:
		return fmt.Sprintf("greenid %s: %s", e.Operation, e.Message)
	}
}

func (e *VendorRPCError) Unwrap() error {
	return e.Err
}

// IsFault reports whether the vendor itself rejected the call.
func (e *VendorRPCError) IsFault() bool {
	return e.FaultCode != ""
}
