package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"idproxy/internal/audit"
	"idproxy/internal/evidence/greenid"
	"idproxy/internal/evidence/vc/presentation"
	"idproxy/internal/evidence/vc/signer"
	"idproxy/internal/evidence/verification/models"
	"idproxy/internal/evidence/verification/service/mocks"
	"idproxy/internal/evidence/verification/store"
	dErrors "idproxy/pkg/domain-errors"
	"idproxy/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	vendor     *mocks.MockVendor
	signer     *mocks.MockSigner
	assembler  *mocks.MockAssembler
	cache      *mocks.MockCache
	store      *store.InMemoryStore
	auditStore *audit.InMemoryStore
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.vendor = mocks.NewMockVendor(ctrl)
	s.signer = mocks.NewMockSigner(ctrl)
	s.assembler = mocks.NewMockAssembler(ctrl)
	s.cache = mocks.NewMockCache(ctrl)
	s.store = store.NewInMemoryStore()
	s.auditStore = audit.NewInMemoryStore()
	s.ctx = requestcontext.WithRequestID(context.Background(), "req-1")
}

func (s *ServiceSuite) newService(cfg Config, opts ...Option) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{
		WithLogger(logger),
		WithAuditor(audit.NewPublisher(s.auditStore, audit.WithLogger(logger))),
	}, opts...)
	svc, err := New(s.vendor, s.signer, s.assembler, s.store, cfg, opts...)
	s.Require().NoError(err)
	return svc
}

func validSubject() models.Subject {
	return models.Subject{
		Name:     greenid.Name{GivenName: "Jane", MiddleNames: "Anne", Surname: "Citizen"},
		DOB:      &greenid.DOB{Day: 2, Month: 3, Year: 1990},
		Address:  greenid.Address{State: "NSW", Postcode: "2000", Country: "AU"},
		Licence:  &greenid.Licence{Number: "12345678", State: "NSW"},
		Medicare: &greenid.Medicare{Colour: "Green", Number: "2123456701", IndividualReferenceNumber: "1", NameOnCard: "Jane A Citizen", Expiry: "2030-01"},
	}
}

func issuedResponse() presentation.Response {
	return presentation.Response{
		Result:        presentation.ResultCompleted,
		Signature:     signer.HashZero,
		HashedPayload: "0xabc",
		JWTs:          []presentation.ClaimJWT{{ClaimType: "NameCredential", JWT: "a.b.c"}},
	}
}

func (s *ServiceSuite) expectRegister(status greenid.OverallStatus) {
	s.vendor.EXPECT().RegisterVerification(gomock.Any(), greenid.RegisterRequest{
		RuleID:  defaultRuleID,
		Name:    validSubject().Name,
		Address: validSubject().Address,
		DOB:     *validSubject().DOB,
	}).Return(&greenid.RegisterResult{VerificationID: "v-1", OverallStatus: status}, nil)
}

func (s *ServiceSuite) expectIssue() {
	pairs := []signer.ClaimPair{{ClaimType: signer.NameCredential}, {ClaimType: signer.BirthCredential}}
	s.signer.EXPECT().SignAll(gomock.Any(), signer.Subject{
		Name: signer.NameClaim{GivenName: "Jane", MiddleNames: "Anne", Surname: "Citizen"},
		DOB:  signer.BirthClaim{Day: 2, Month: 3, Year: 1990},
	}).Return(pairs)
	s.assembler.EXPECT().Assemble(gomock.Any(), pairs).Return(issuedResponse())
}

func (s *ServiceSuite) onlyRecord() *models.Record {
	s.Require().Equal(1, s.store.Len())
	var found *models.Record
	for _, r := range s.store.All() {
		found = r
	}
	return found
}

func (s *ServiceSuite) auditEvents() []audit.Event {
	events, err := s.auditStore.ListAll(s.ctx)
	s.Require().NoError(err)
	return events
}

func (s *ServiceSuite) TestInvalidSubjectRejectedBeforeAnyCall() {
	svc := s.newService(Config{})
	cases := map[string]func(*models.Subject){
		"missing given name": func(sub *models.Subject) { sub.Name.GivenName = "" },
		"missing surname":    func(sub *models.Subject) { sub.Name.Surname = "" },
		"missing dob":        func(sub *models.Subject) { sub.DOB = nil },
	}
	for name, mutate := range cases {
		s.Run(name, func() {
			subject := validSubject()
			mutate(&subject)

			resp, err := svc.Verify(s.ctx, subject)

			s.Nil(resp)
			var invalid *InvalidSubjectError
			s.Require().ErrorAs(err, &invalid)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
	events := s.auditEvents()
	s.Require().Len(events, 3)
	s.Equal(audit.DecisionRejected, events[0].Decision)
}

func (s *ServiceSuite) TestMissingDocumentAfterRegistration() {
	svc := s.newService(Config{})

	s.Run("licence", func() {
		s.expectRegister(greenid.StatusPending)
		subject := validSubject()
		subject.Licence = nil

		_, err := svc.Verify(s.ctx, subject)

		var missing *MissingDocumentError
		s.Require().ErrorAs(err, &missing)
		s.Equal("driversLicence", missing.Document)
		s.Equal("v-1", missing.VerificationID)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("medicare", func() {
		s.expectRegister(greenid.StatusPending)
		subject := validSubject()
		subject.Medicare = nil

		_, err := svc.Verify(s.ctx, subject)

		var missing *MissingDocumentError
		s.Require().ErrorAs(err, &missing)
		s.Equal("medicareCard", missing.Document)
	})
}

func (s *ServiceSuite) TestVerifiedLicenceSkipsMedicare() {
	svc := s.newService(Config{})
	gomock.InOrder(
		s.vendor.EXPECT().RegisterVerification(gomock.Any(), gomock.Any()).
			Return(&greenid.RegisterResult{VerificationID: "v-1", OverallStatus: greenid.StatusInProgress}, nil),
		s.vendor.EXPECT().SetFields(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req greenid.SetFieldsRequest) (*greenid.SetFieldsResult, error) {
				s.Equal("v-1", req.VerificationID)
				s.Equal("nswregodvs", req.SourceID)
				return &greenid.SetFieldsResult{State: greenid.CheckVerified}, nil
			}),
		s.vendor.EXPECT().GetVerificationResult(gomock.Any(), "v-1").
			Return(&greenid.VerificationResult{VerificationID: "v-1", OverallStatus: greenid.StatusVerified}, nil),
	)
	s.expectIssue()

	resp, err := svc.Verify(s.ctx, validSubject())

	s.Require().NoError(err)
	s.Equal(presentation.ResultCompleted, resp.Result)
	s.False(resp.ThirdPartyVerified)

	record := s.onlyRecord()
	s.Equal("v-1", record.VerificationID)
	s.Equal([]string{"nswregodvs"}, record.Sources)
	s.Equal(models.StatusVerified, record.Status)
	s.Equal(models.OutcomeIssued, record.Outcome)
	s.Equal("req-1", record.RequestID)
}

func (s *ServiceSuite) TestUnverifiedLicenceSubmitsMedicare() {
	svc := s.newService(Config{})
	gomock.InOrder(
		s.vendor.EXPECT().RegisterVerification(gomock.Any(), gomock.Any()).
			Return(&greenid.RegisterResult{VerificationID: "v-1"}, nil),
		s.vendor.EXPECT().SetFields(gomock.Any(), gomock.Any()).
			Return(&greenid.SetFieldsResult{State: "FAILED"}, nil),
		s.vendor.EXPECT().SetFields(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, req greenid.SetFieldsRequest) (*greenid.SetFieldsResult, error) {
				s.Equal(greenid.MedicareSourceID, req.SourceID)
				s.Equal(greenid.MedicareFields(*validSubject().DOB, *validSubject().Medicare), req.Fields)
				return &greenid.SetFieldsResult{State: greenid.CheckVerified}, nil
			}),
		s.vendor.EXPECT().GetVerificationResult(gomock.Any(), "v-1").
			Return(&greenid.VerificationResult{OverallStatus: greenid.StatusVerified}, nil),
	)
	s.expectIssue()

	_, err := svc.Verify(s.ctx, validSubject())

	s.Require().NoError(err)
	s.Equal([]string{"nswregodvs", "medicaredvs"}, s.onlyRecord().Sources)
}

func (s *ServiceSuite) pollReturns(status greenid.OverallStatus) {
	s.expectRegister(greenid.StatusPending)
	s.vendor.EXPECT().SetFields(gomock.Any(), gomock.Any()).
		Return(&greenid.SetFieldsResult{State: greenid.CheckVerified}, nil)
	s.vendor.EXPECT().GetVerificationResult(gomock.Any(), "v-1").
		Return(&greenid.VerificationResult{VerificationID: "v-1", OverallStatus: status}, nil)
}

func (s *ServiceSuite) TestInProgressIssues() {
	svc := s.newService(Config{})
	s.pollReturns(greenid.StatusInProgress)
	s.expectIssue()

	resp, err := svc.Verify(s.ctx, validSubject())

	s.Require().NoError(err)
	s.NotNil(resp)
	s.Equal(models.StatusInProgress, s.onlyRecord().Status)
}

func (s *ServiceSuite) TestUnsuccessfulStatusFails() {
	for _, status := range []greenid.OverallStatus{greenid.StatusPending, greenid.StatusLockedOut, "FAILED"} {
		s.Run(string(status), func() {
			svc := s.newService(Config{})
			s.pollReturns(status)

			resp, err := svc.Verify(s.ctx, validSubject())

			s.Nil(resp)
			s.ErrorIs(err, ErrContactSupport)
			s.Equal("Error, please contact support", err.Error())
			s.True(dErrors.HasCode(err, dErrors.CodeVerificationFailed))
		})
	}
}

func (s *ServiceSuite) TestTestModeIssuesRegardlessOfStatus() {
	svc := s.newService(Config{TestMode: true})
	s.pollReturns(greenid.StatusLockedOut)
	s.expectIssue()

	resp, err := svc.Verify(s.ctx, validSubject())

	s.Require().NoError(err)
	s.Equal(presentation.ResultCompleted, resp.Result)
	record := s.onlyRecord()
	s.Equal(models.StatusFailed, record.Status)
	s.Equal(models.OutcomeIssued, record.Outcome)
}

func (s *ServiceSuite) TestVendorErrorsPropagate() {
	fault := &greenid.VendorRPCError{Operation: "registerVerification", FaultCode: "S:Server", Message: "bad account"}

	s.Run("register", func() {
		svc := s.newService(Config{})
		s.vendor.EXPECT().RegisterVerification(gomock.Any(), gomock.Any()).Return(nil, fault)

		_, err := svc.Verify(s.ctx, validSubject())

		var rpcErr *greenid.VendorRPCError
		s.Require().ErrorAs(err, &rpcErr)
		s.Equal("bad account", rpcErr.Message)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("set fields", func() {
		svc := s.newService(Config{})
		s.expectRegister(greenid.StatusPending)
		s.vendor.EXPECT().SetFields(gomock.Any(), gomock.Any()).Return(nil, fault)

		_, err := svc.Verify(s.ctx, validSubject())

		s.Require().ErrorAs(err, new(*greenid.VendorRPCError))
	})

	s.Run("poll", func() {
		svc := s.newService(Config{})
		s.expectRegister(greenid.StatusPending)
		s.vendor.EXPECT().SetFields(gomock.Any(), gomock.Any()).
			Return(&greenid.SetFieldsResult{State: greenid.CheckVerified}, nil)
		s.vendor.EXPECT().GetVerificationResult(gomock.Any(), "v-1").Return(nil, fault)

		_, err := svc.Verify(s.ctx, validSubject())

		s.Require().ErrorAs(err, new(*greenid.VendorRPCError))
	})
}

func (s *ServiceSuite) TestCacheHitSkipsVendor() {
	svc := s.newService(Config{}, WithCache(s.cache))
	cached := issuedResponse()
	key := cacheKeyPrefix + validSubject().Fingerprint()

	s.cache.EXPECT().Get(gomock.Any(), key, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, dest any) bool {
			*dest.(*presentation.Response) = cached
			return true
		})

	resp, err := svc.Verify(s.ctx, validSubject())

	s.Require().NoError(err)
	s.Equal(cached, *resp)
	record := s.onlyRecord()
	s.True(record.CacheHit)
	s.Equal(models.OutcomeCached, record.Outcome)
	s.Equal(audit.DecisionCached, s.auditEvents()[0].Decision)
}

func (s *ServiceSuite) TestCacheMissStoresIssuedResponse() {
	svc := s.newService(Config{CacheTTL: time.Minute}, WithCache(s.cache))
	key := cacheKeyPrefix + validSubject().Fingerprint()

	s.cache.EXPECT().Get(gomock.Any(), key, gomock.Any()).Return(false)
	s.pollReturns(greenid.StatusVerified)
	s.expectIssue()
	s.cache.EXPECT().Set(gomock.Any(), key, issuedResponse(), time.Minute)

	_, err := svc.Verify(s.ctx, validSubject())
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestFailedVerificationIsNotCached() {
	svc := s.newService(Config{}, WithCache(s.cache))
	s.cache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(false)
	s.pollReturns(greenid.StatusPending)

	_, err := svc.Verify(s.ctx, validSubject())
	s.ErrorIs(err, ErrContactSupport)
}

func (s *ServiceSuite) TestSubmitDocument() {
	svc := s.newService(Config{})
	req := models.DocumentRequest{
		FullName: models.FullName{GivenName: "Jane", Surname: "Citizen"},
		DOB:      models.DateOfBirth{Day: 1, Month: 1, Year: 1980},
		Passport: &models.Passport{Number: "N1234567"},
	}
	s.vendor.EXPECT().SetFields(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, got greenid.SetFieldsRequest) (*greenid.SetFieldsResult, error) {
			s.Equal("v-5", got.VerificationID)
			s.Equal(greenid.PassportSourceID, got.SourceID)
			return &greenid.SetFieldsResult{State: greenid.CheckVerified, OverallStatus: greenid.StatusVerified}, nil
		})

	res, err := svc.SubmitDocument(s.ctx, "v-5", req)

	s.Require().NoError(err)
	s.Equal(&models.DocumentResult{
		VerificationID: "v-5",
		SourceID:       greenid.PassportSourceID,
		State:          "VERIFIED",
		Status:         models.StatusVerified,
	}, res)
	s.Equal(audit.ActionSubmitDocument, s.auditEvents()[0].Action)
}

func (s *ServiceSuite) TestSources() {
	svc := s.newService(Config{})
	s.vendor.EXPECT().GetSources(gomock.Any(), "v-1").Return([]greenid.Source{
		{Name: "nswregodvs", State: "VERIFIED", Available: true},
	}, nil)

	views, err := svc.Sources(s.ctx, "v-1")
	s.Require().NoError(err)
	s.Equal([]models.SourceView{{Name: "nswregodvs", State: "VERIFIED", Available: true}}, views)

	s.vendor.EXPECT().GetSources(gomock.Any(), "v-2").Return(nil, errors.New("boom"))
	_, err = svc.Sources(s.ctx, "v-2")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestFindRecord() {
	svc := s.newService(Config{})
	record := &models.Record{ID: uuid.New(), Outcome: models.OutcomeIssued}
	s.Require().NoError(s.store.Save(s.ctx, record))

	got, err := svc.FindRecord(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Equal(record.ID, got.ID)

	_, err = svc.FindRecord(s.ctx, uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestResetCache() {
	svc := s.newService(Config{}, WithCache(s.cache))
	s.cache.EXPECT().Reset(gomock.Any()).Return(true)

	s.True(svc.ResetCache(s.ctx))
	s.Equal(audit.DecisionAvailable, s.auditEvents()[0].Decision)

	s.False(s.newService(Config{}).ResetCache(s.ctx))
}

func TestNewRequiresCollaborators(t *testing.T) {
	ctrl := gomock.NewController(t)
	_, err := New(nil, mocks.NewMockSigner(ctrl), mocks.NewMockAssembler(ctrl), store.NewInMemoryStore(), Config{})
	require.Error(t, err)

	svc, err := New(mocks.NewMockVendor(ctrl), mocks.NewMockSigner(ctrl), mocks.NewMockAssembler(ctrl), store.NewInMemoryStore(), Config{})
	require.NoError(t, err)
	assert.Equal(t, defaultRuleID, svc.cfg.RuleID)
	assert.Equal(t, defaultCacheTTL, svc.cfg.CacheTTL)
}
