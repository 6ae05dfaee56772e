package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"idproxy/internal/evidence/greenid"
	"idproxy/internal/evidence/vc/presentation"
	"idproxy/internal/evidence/verification/handler/mocks"
	"idproxy/internal/evidence/verification/models"
	"idproxy/internal/evidence/verification/service"
	dErrors "idproxy/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type VerificationHandlerSuite struct {
	suite.Suite
	router *chi.Mux
	svc    *mocks.MockService
}

func TestVerificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(VerificationHandlerSuite))
}

func (s *VerificationHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.svc = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *VerificationHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *VerificationHandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func verifyBody() map[string]any {
	return map[string]any{
		"fullName":       map[string]any{"givenName": " Jane ", "surname": "Citizen"},
		"dob":            map[string]any{"day": 2, "month": 3, "year": 1990},
		"address":        map[string]any{"state": "nsw", "postcode": "2000"},
		"driversLicence": map[string]any{"licenceNumber": "12345678"},
		"medicareCard":   map[string]any{"colour": "Green", "number": "2123 45670 1", "individualReferenceNumber": "1", "nameOnCard": "Jane Citizen", "expiry": "2030-01"},
	}
}

func (s *VerificationHandlerSuite) TestVerifySuccess() {
	s.svc.EXPECT().Verify(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, subject models.Subject) (*presentation.Response, error) {
			s.Equal("Jane", subject.Name.GivenName)
			s.Equal("NSW", subject.Address.State)
			s.Equal(&greenid.DOB{Day: 2, Month: 3, Year: 1990}, subject.DOB)
			s.Require().NotNil(subject.Licence)
			s.Equal("nswregodvs", subject.Licence.SourceID())
			return &presentation.Response{
				Result:        presentation.ResultCompleted,
				HashedPayload: "0xabc",
				JWTs:          []presentation.ClaimJWT{{ClaimType: "NameCredential", JWT: "a.b.c"}},
			}, nil
		})

	w := s.do(http.MethodPost, "/v1/verify", verifyBody())

	s.Equal(http.StatusOK, w.Code)
	resp := s.decode(w)
	s.Equal("Completed", resp["result"])
	s.Equal(false, resp["thirdPartyVerified"])
	s.Equal("0xabc", resp["hashedPayload"])
	s.Len(resp["JWTs"], 1)
}

func (s *VerificationHandlerSuite) TestVerifyErrors() {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"contact support", service.ErrContactSupport, http.StatusUnprocessableEntity, "verification_failed"},
		{"invalid subject", dErrors.Wrap(&service.InvalidSubjectError{Field: "dob"}, dErrors.CodeValidation, "invalid subject: dob is required"), http.StatusBadRequest, "validation_error"},
		{"vendor failure", dErrors.Wrap(&greenid.VendorRPCError{Operation: "setFields", Message: "down"}, dErrors.CodeInternal, "vendor verification failed"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.svc.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil, tc.err)

			w := s.do(http.MethodPost, "/v1/verify", verifyBody())

			s.Equal(tc.status, w.Code)
			s.Equal(tc.code, s.decode(w)["error"])
		})
	}
}

func (s *VerificationHandlerSuite) TestVerifyContactSupportMessage() {
	s.svc.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil, service.ErrContactSupport)

	w := s.do(http.MethodPost, "/v1/verify", verifyBody())

	s.Equal("Error, please contact support", s.decode(w)["error_description"])
}

func (s *VerificationHandlerSuite) TestVerifyRejectsMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/v1/verify", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("bad_request", s.decode(w)["error"])
}

func (s *VerificationHandlerSuite) TestVerifyRejectsBadDate() {
	body := verifyBody()
	body["dob"] = map[string]any{"day": 40, "month": 3, "year": 1990}

	w := s.do(http.MethodPost, "/v1/verify", body)

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("validation_error", s.decode(w)["error"])
}

func (s *VerificationHandlerSuite) TestGetRecord() {
	id := uuid.New()
	s.svc.EXPECT().FindRecord(gomock.Any(), id).Return(&models.Record{ID: id, Outcome: models.OutcomeIssued}, nil)

	w := s.do(http.MethodGet, "/v1/verify/"+id.String(), nil)

	s.Equal(http.StatusOK, w.Code)
	s.Equal(id.String(), s.decode(w)["id"])

	w = s.do(http.MethodGet, "/v1/verify/not-a-uuid", nil)
	s.Equal(http.StatusBadRequest, w.Code)

	missing := uuid.New()
	s.svc.EXPECT().FindRecord(gomock.Any(), missing).Return(nil, dErrors.New(dErrors.CodeNotFound, "verification record not found"))
	w = s.do(http.MethodGet, "/v1/verify/"+missing.String(), nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *VerificationHandlerSuite) TestSubmitDocument() {
	person := func(doc map[string]any) map[string]any {
		body := map[string]any{
			"fullName": map[string]any{"givenName": "Jane", "surname": "Citizen"},
			"dob":      map[string]any{"day": 1, "month": 1, "year": 1980},
		}
		for k, v := range doc {
			body[k] = v
		}
		return body
	}

	tests := []struct {
		name   string
		body   map[string]any
		source string
	}{
		{
			name: "drivers licence",
			body: person(map[string]any{
				"state":          "qld",
				"driversLicence": map[string]any{"licenceNumber": "12345678"},
			}),
			source: "qldregodvs",
		},
		{
			name: "medicare card",
			body: person(map[string]any{
				"medicareCard": map[string]any{
					"colour": "Green", "number": "2123456701", "individualReferenceNumber": "1",
					"nameOnCard": "Jane Citizen", "expiry": "2030-01",
				},
			}),
			source: greenid.MedicareSourceID,
		},
		{
			name:   "passport",
			body:   person(map[string]any{"passport": map[string]any{"number": "n1234567"}}),
			source: greenid.PassportSourceID,
		},
		{
			name: "birth certificate",
			body: person(map[string]any{
				"birthCertificate": map[string]any{"registrationNumber": "R-1", "registrationState": "nsw"},
			}),
			source: greenid.BirthCertificateSourceID,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			s.svc.EXPECT().SubmitDocument(gomock.Any(), "v-1", gomock.Any()).
				DoAndReturn(func(_ context.Context, id string, req models.DocumentRequest) (*models.DocumentResult, error) {
					source, _ := req.Fields()
					return &models.DocumentResult{VerificationID: id, SourceID: source, State: "VERIFIED", Status: models.StatusVerified}, nil
				})

			w := s.do(http.MethodPost, "/v1/verifications/v-1/documents", tc.body)

			s.Equal(http.StatusOK, w.Code)
			s.Equal(tc.source, s.decode(w)["source_id"])
		})
	}
}

func (s *VerificationHandlerSuite) TestSubmitDocumentRequiresOneDocument() {
	w := s.do(http.MethodPost, "/v1/verifications/v-1/documents", map[string]any{
		"fullName": map[string]any{"givenName": "Jane", "surname": "Citizen"},
		"dob":      map[string]any{"day": 1, "month": 1, "year": 1980},
	})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *VerificationHandlerSuite) TestSources() {
	s.svc.EXPECT().Sources(gomock.Any(), "v-1").Return([]models.SourceView{{Name: "medicaredvs", State: "EMPTY", Available: true}}, nil)

	w := s.do(http.MethodGet, "/v1/verifications/v-1/sources", nil)

	s.Equal(http.StatusOK, w.Code)
	resp := s.decode(w)
	s.Equal("v-1", resp["verification_id"])
	s.Len(resp["sources"], 1)
}

func (s *VerificationHandlerSuite) TestCacheReset() {
	s.svc.EXPECT().ResetCache(gomock.Any()).Return(false)

	w := s.do(http.MethodPost, "/v1/admin/cache/reset", nil)

	s.Equal(http.StatusOK, w.Code)
	s.Equal(false, s.decode(w)["available"])
}
