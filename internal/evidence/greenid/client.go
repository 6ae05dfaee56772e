package greenid

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the typed, blocking view of the vendor's SOAP service.
type Client interface {
	RegisterVerification(ctx context.Context, req RegisterRequest) (*RegisterResult, error)
	SetFields(ctx context.Context, req SetFieldsRequest) (*SetFieldsResult, error)
	// GetVerificationResult reads the overall status through the getSources
	// operation, which the vendor also uses to report verification state.
	GetVerificationResult(ctx context.Context, verificationID string) (*VerificationResult, error)
	GetSources(ctx context.Context, verificationID string) ([]Source, error)
}

// Credentials authenticate every vendor call.
type Credentials struct {
	AccountID string
	Password  string
}

// SOAPClient implements Client over HTTP.
type SOAPClient struct {
	serviceURL string
	creds      Credentials
	http       *http.Client
}

const maxResponseBytes = 1 << 20

// NewSOAPClient builds a client for the service at serviceURL.
func NewSOAPClient(serviceURL string, creds Credentials, httpClient *http.Client) *SOAPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &SOAPClient{serviceURL: serviceURL, creds: creds, http: httpClient}
}

// NewDialer returns a Dialer that fetches the WSDL to prove the endpoint is
// reachable before handing out a client.
func NewDialer(creds Credentials, httpClient *http.Client) Dialer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return func(ctx context.Context, endpoint string) (Client, error) {
		wsdlURL, serviceURL, err := endpointURLs(endpoint)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, wsdlURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build wsdl request: %w", err)
		}
		resp, err := httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch wsdl: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("read wsdl: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch wsdl: unexpected status %d", resp.StatusCode)
		}
		if !bytes.Contains(body, []byte("definitions")) {
			return nil, fmt.Errorf("fetch wsdl: response is not a WSDL document")
		}

		return NewSOAPClient(serviceURL, creds, httpClient), nil
	}
}

// endpointURLs derives the WSDL and service URLs from a configured endpoint,
// which may or may not carry the ?WSDL query.
func endpointURLs(endpoint string) (wsdlURL, serviceURL string, err error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("invalid greenid endpoint %q", endpoint)
	}
	u.RawQuery = ""
	serviceURL = u.String()
	return serviceURL + "?wsdl", serviceURL, nil
}

func (c *SOAPClient) RegisterVerification(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	op := registerVerificationOp{
		credentials:               c.credentials(),
		RuleID:                    req.RuleID,
		Name:                      req.Name,
		CurrentResidentialAddress: req.Address,
		DOB:                       req.DOB,
	}
	var resp registerVerificationResponse
	if err := c.call(ctx, "registerVerification", op, &resp); err != nil {
		return nil, err
	}
	result := resp.Return.VerificationResult
	if result.VerificationID == "" {
		return nil, &VendorRPCError{Operation: "registerVerification", Message: "response has no verificationId"}
	}
	return &RegisterResult{
		VerificationID: result.VerificationID,
		OverallStatus:  result.OverallVerificationStatus,
	}, nil
}

func (c *SOAPClient) SetFields(ctx context.Context, req SetFieldsRequest) (*SetFieldsResult, error) {
	op := setFieldsOp{
		credentials:    c.credentials(),
		VerificationID: req.VerificationID,
		SourceID:       req.SourceID,
	}
	op.InputFields.Input = req.Fields

	var resp setFieldsResponse
	if err := c.call(ctx, "setFields", op, &resp); err != nil {
		return nil, err
	}
	return &SetFieldsResult{
		State:         resp.Return.CheckResult.State,
		OverallStatus: resp.Return.VerificationResult.OverallVerificationStatus,
	}, nil
}

func (c *SOAPClient) GetVerificationResult(ctx context.Context, verificationID string) (*VerificationResult, error) {
	resp, err := c.getSources(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	return &VerificationResult{
		VerificationID: verificationID,
		OverallStatus:  resp.Return.VerificationResult.OverallVerificationStatus,
	}, nil
}

func (c *SOAPClient) GetSources(ctx context.Context, verificationID string) ([]Source, error) {
	resp, err := c.getSources(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	if resp.Return.SourceList == nil {
		return []Source{}, nil
	}
	return resp.Return.SourceList, nil
}

func (c *SOAPClient) getSources(ctx context.Context, verificationID string) (*getSourcesResponse, error) {
	op := getSourcesOp{credentials: c.credentials(), VerificationID: verificationID}
	var resp getSourcesResponse
	if err := c.call(ctx, "getSources", op, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *SOAPClient) credentials() credentials {
	return credentials{AccountID: c.creds.AccountID, Password: c.creds.Password}
}

// call posts one SOAP operation and decodes the response into out. Every
// failure comes back as *VendorRPCError.
func (c *SOAPClient) call(ctx context.Context, operation string, payload, out any) error {
	body, err := encodeEnvelope(payload)
	if err != nil {
		return &VendorRPCError{Operation: operation, Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.serviceURL, bytes.NewReader(body))
	if err != nil {
		return &VendorRPCError{Operation: operation, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `""`)

	resp, err := c.http.Do(req)
	if err != nil {
		return &VendorRPCError{Operation: operation, Message: "transport failure", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &VendorRPCError{Operation: operation, Message: "read response", StatusCode: resp.StatusCode, Err: err}
	}

	fault, err := decodeEnvelope(raw, out)
	if fault != nil {
		return &VendorRPCError{
			Operation:  operation,
			FaultCode:  strings.TrimSpace(fault.Code),
			Message:    strings.TrimSpace(fault.String),
			StatusCode: resp.StatusCode,
			Raw:        string(raw),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &VendorRPCError{
			Operation:  operation,
			Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Raw:        string(raw),
		}
	}
	if err != nil {
		return &VendorRPCError{Operation: operation, Message: "decode response", StatusCode: resp.StatusCode, Raw: string(raw), Err: err}
	}
	return nil
}

var _ Client = (*SOAPClient)(nil)
