package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"idproxy/internal/audit"
	"idproxy/internal/evidence/greenid"
	"idproxy/internal/evidence/vc/presentation"
	"idproxy/internal/evidence/vc/signer"
	"idproxy/internal/evidence/verification/metrics"
	"idproxy/internal/evidence/verification/models"
	"idproxy/internal/evidence/verification/tracer"
	dErrors "idproxy/pkg/domain-errors"
	"idproxy/pkg/platform/sentinel"
	"idproxy/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// Vendor is the document verification backend.
type Vendor interface {
	RegisterVerification(ctx context.Context, req greenid.RegisterRequest) (*greenid.RegisterResult, error)
	SetFields(ctx context.Context, req greenid.SetFieldsRequest) (*greenid.SetFieldsResult, error)
	GetVerificationResult(ctx context.Context, verificationID string) (*greenid.VerificationResult, error)
	GetSources(ctx context.Context, verificationID string) ([]greenid.Source, error)
}

// Signer issues the credential pairs for a verified subject.
type Signer interface {
	SignAll(ctx context.Context, subject signer.Subject) []signer.ClaimPair
}

// Assembler binds credential pairs into the caller response.
type Assembler interface {
	Assemble(ctx context.Context, pairs []signer.ClaimPair) presentation.Response
}

// Store persists the verification request log.
type Store interface {
	Save(ctx context.Context, record *models.Record) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Record, error)
}

// AuditPublisher records verification outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Cache is the best-effort response cache.
type Cache interface {
	Get(ctx context.Context, key string, dest any) bool
	Set(ctx context.Context, key string, value any, ttl time.Duration)
	Reset(ctx context.Context) bool
}

const (
	defaultRuleID   = "default"
	defaultCacheTTL = 5 * time.Minute
	cacheKeyPrefix  = "verify:"
)

// Config holds service behaviour switches.
type Config struct {
	// TestMode issues credentials whatever the polled status.
	TestMode bool
	RuleID   string
	CacheTTL time.Duration
}

// Service runs verification sessions against the vendor and issues
// credentials for verified subjects.
type Service struct {
	vendor    Vendor
	signer    Signer
	assembler Assembler
	store     Store
	cfg       Config

	cache   Cache
	auditor AuditPublisher
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	logger  *slog.Logger
}

// Option configures the Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithCache enables response caching keyed by the subject fingerprint.
func WithCache(c Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func New(vendor Vendor, credentials Signer, assembler Assembler, store Store, cfg Config, opts ...Option) (*Service, error) {
	if vendor == nil {
		return nil, errors.New("vendor is required")
	}
	if credentials == nil {
		return nil, errors.New("signer is required")
	}
	if assembler == nil {
		return nil, errors.New("assembler is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}
	if cfg.RuleID == "" {
		cfg.RuleID = defaultRuleID
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	s := &Service{
		vendor:    vendor,
		signer:    credentials,
		assembler: assembler,
		store:     store,
		cfg:       cfg,
		tracer:    tracer.NewNoop(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Verify checks the subject's documents with the vendor and, when the vendor
// verifies them (or test mode is on), returns the signed credential payload.
func (s *Service) Verify(ctx context.Context, subject models.Subject) (resp *presentation.Response, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify, tracer.Bool(tracer.AttrTestMode, s.cfg.TestMode))

	record := &models.Record{
		ID:        uuid.New(),
		RequestID: requestcontext.RequestID(ctx),
		Partner:   requestcontext.Partner(ctx),
		Sources:   []string{},
		CreatedAt: requestcontext.Now(ctx),
	}
	defer func() {
		s.finish(ctx, record, err)
		s.metrics.ObserveVerifyLatency(time.Since(start))
		span.SetAttributes(
			tracer.String(tracer.AttrVerificationID, record.VerificationID),
			tracer.String(tracer.AttrStatus, string(record.Status)),
			tracer.Bool(tracer.AttrCacheHit, record.CacheHit),
		)
		span.End(err)
	}()

	if err := validateSubject(subject); err != nil {
		record.Outcome = models.OutcomeRejected
		return nil, err
	}

	key := cacheKeyPrefix + subject.Fingerprint()
	if s.cache != nil {
		var cached presentation.Response
		if s.cache.Get(ctx, key, &cached) {
			record.CacheHit = true
			record.Outcome = models.OutcomeCached
			return &cached, nil
		}
	}

	session, err := s.runSession(ctx, subject)
	if session != nil {
		record.VerificationID = session.VerificationID
		record.Sources = session.Sources()
		record.Status = models.StatusFromVendor(session.Status)
	}
	if err != nil {
		var missing *MissingDocumentError
		if errors.As(err, &missing) {
			record.Outcome = models.OutcomeRejected
		} else {
			record.Outcome = models.OutcomeVendorErr
		}
		return nil, err
	}

	if !record.Status.Issuable() && !s.cfg.TestMode {
		s.logger.InfoContext(ctx, "verification not successful",
			"verification_id", session.VerificationID,
			"status", session.Status,
		)
		record.Outcome = models.OutcomeFailed
		return nil, ErrContactSupport
	}

	response := s.issue(ctx, subject, session.VerificationID)
	record.Outcome = models.OutcomeIssued

	if s.cache != nil {
		s.cache.Set(ctx, key, response, s.cfg.CacheTTL)
	}
	return &response, nil
}

func validateSubject(subject models.Subject) error {
	switch {
	case subject.Name.GivenName == "":
		return invalidSubject("fullName.givenName")
	case subject.Name.Surname == "":
		return invalidSubject("fullName.surname")
	case subject.DOB == nil:
		return invalidSubject("dob")
	}
	return nil
}

// runSession registers the subject, submits the licence and, unless the
// licence alone verified, the Medicare card, then polls the overall result.
// The returned session is non-nil once registration succeeded.
func (s *Service) runSession(ctx context.Context, subject models.Subject) (*greenid.Session, error) {
	registered, err := s.register(ctx, subject)
	if err != nil {
		return nil, err
	}
	session := &greenid.Session{
		VerificationID: registered.VerificationID,
		Status:         registered.OverallStatus,
	}

	if subject.Licence == nil {
		return session, missingDocument("driversLicence", session.VerificationID)
	}
	if subject.Medicare == nil {
		return session, missingDocument("medicareCard", session.VerificationID)
	}

	licence := *subject.Licence
	state, err := s.setFields(ctx, session, licence.SourceID(),
		greenid.LicenceFields(subject.Name, *subject.DOB, licence))
	if err != nil {
		return session, err
	}

	if state != greenid.CheckVerified {
		if _, err := s.setFields(ctx, session, greenid.MedicareSourceID,
			greenid.MedicareFields(*subject.DOB, *subject.Medicare)); err != nil {
			return session, err
		}
	} else {
		s.logger.DebugContext(ctx, "licence verified, skipping medicare",
			"verification_id", session.VerificationID)
	}

	result, err := s.pollResult(ctx, session.VerificationID)
	if err != nil {
		return session, err
	}
	session.Status = result.OverallStatus
	return session, nil
}

func (s *Service) register(ctx context.Context, subject models.Subject) (*greenid.RegisterResult, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanRegister)
	start := time.Now()

	res, err := s.vendor.RegisterVerification(ctx, greenid.RegisterRequest{
		RuleID:  s.cfg.RuleID,
		Name:    subject.Name,
		Address: subject.Address,
		DOB:     *subject.DOB,
	})
	s.metrics.ObserveVendorCall("registerVerification", time.Since(start), err)
	if err != nil {
		span.End(err)
		s.logger.ErrorContext(ctx, "failed to register verification", "error", err)
		return nil, vendorFailure(err)
	}
	span.SetAttributes(tracer.String(tracer.AttrVerificationID, res.VerificationID))
	span.End(nil)

	s.logger.InfoContext(ctx, "verification registered",
		"verification_id", res.VerificationID,
		"status", res.OverallStatus,
	)
	return res, nil
}

func (s *Service) setFields(ctx context.Context, session *greenid.Session, sourceID string, fields []greenid.Field) (greenid.CheckState, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSetFields,
		tracer.String(tracer.AttrVerificationID, session.VerificationID),
		tracer.String(tracer.AttrSourceID, sourceID),
	)
	start := time.Now()

	res, err := s.vendor.SetFields(ctx, greenid.SetFieldsRequest{
		VerificationID: session.VerificationID,
		SourceID:       sourceID,
		Fields:         fields,
	})
	s.metrics.ObserveVendorCall("setFields", time.Since(start), err)
	if err != nil {
		span.End(err)
		s.logger.ErrorContext(ctx, "failed to set fields",
			"verification_id", session.VerificationID,
			"source_id", sourceID,
			"error", err,
		)
		return "", vendorFailure(err)
	}
	span.SetAttributes(tracer.String(tracer.AttrCheckState, string(res.State)))
	span.End(nil)

	session.Record(sourceID, res.State)
	if res.OverallStatus != "" {
		session.Status = res.OverallStatus
	}
	s.logger.InfoContext(ctx, "fields submitted",
		"verification_id", session.VerificationID,
		"source_id", sourceID,
		"state", res.State,
	)
	return res.State, nil
}

func (s *Service) pollResult(ctx context.Context, verificationID string) (*greenid.VerificationResult, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanPollResult, tracer.String(tracer.AttrVerificationID, verificationID))
	start := time.Now()

	res, err := s.vendor.GetVerificationResult(ctx, verificationID)
	s.metrics.ObserveVendorCall("getVerificationResult", time.Since(start), err)
	if err != nil {
		span.End(err)
		s.logger.ErrorContext(ctx, "failed to get verification result",
			"verification_id", verificationID,
			"error", err,
		)
		return nil, vendorFailure(err)
	}
	span.SetAttributes(tracer.String(tracer.AttrStatus, string(res.OverallStatus)))
	span.End(nil)
	return res, nil
}

func (s *Service) issue(ctx context.Context, subject models.Subject, verificationID string) presentation.Response {
	ctx, span := s.tracer.Start(ctx, tracer.SpanIssueCredential, tracer.String(tracer.AttrVerificationID, verificationID))
	defer span.End(nil)

	pairs := s.signer.SignAll(ctx, signer.Subject{
		Name: signer.NameClaim{
			GivenName:   subject.Name.GivenName,
			MiddleNames: subject.Name.MiddleNames,
			Surname:     subject.Name.Surname,
		},
		DOB: signer.BirthClaim{
			Day:   subject.DOB.Day,
			Month: subject.DOB.Month,
			Year:  subject.DOB.Year,
		},
	})
	resp := s.assembler.Assemble(ctx, pairs)
	s.logger.InfoContext(ctx, "credentials issued",
		"verification_id", verificationID,
		"credentials", len(pairs),
	)
	return resp
}

// finish persists the request log row and emits the audit event. Neither
// failure affects the caller.
func (s *Service) finish(ctx context.Context, record *models.Record, err error) {
	s.metrics.IncrementOutcome(string(record.Outcome))

	if saveErr := s.store.Save(ctx, record); saveErr != nil {
		s.logger.ErrorContext(ctx, "failed to save verification record",
			"record_id", record.ID,
			"error", saveErr,
		)
	}

	if s.auditor == nil {
		return
	}
	event := audit.Event{
		Timestamp:      record.CreatedAt,
		RequestID:      record.RequestID,
		Partner:        record.Partner,
		Action:         audit.ActionVerify,
		VerificationID: record.VerificationID,
		Status:         string(record.Status),
		Decision:       decisionFor(record.Outcome),
	}
	if err != nil {
		event.Reason = err.Error()
	}
	s.auditor.Emit(ctx, event)
}

func decisionFor(outcome models.Outcome) string {
	switch outcome {
	case models.OutcomeIssued:
		return audit.DecisionIssued
	case models.OutcomeCached:
		return audit.DecisionCached
	case models.OutcomeFailed:
		return audit.DecisionFailed
	case models.OutcomeRejected:
		return audit.DecisionRejected
	default:
		return audit.DecisionError
	}
}

// SubmitDocument submits an additional document to an existing verification.
func (s *Service) SubmitDocument(ctx context.Context, verificationID string, req models.DocumentRequest) (*models.DocumentResult, error) {
	if verificationID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "verification id is required")
	}
	sourceID, fields := req.Fields()
	session := &greenid.Session{VerificationID: verificationID}

	state, err := s.setFields(ctx, session, sourceID, fields)
	if err != nil {
		s.emit(ctx, audit.ActionSubmitDocument, verificationID, "", audit.DecisionError, err.Error())
		return nil, err
	}

	result := &models.DocumentResult{
		VerificationID: verificationID,
		SourceID:       sourceID,
		State:          string(state),
		Status:         models.StatusFromVendor(session.Status),
	}
	s.emit(ctx, audit.ActionSubmitDocument, verificationID, string(result.Status), string(state), "")
	return result, nil
}

// Sources lists the data sources of a verification and their check states.
func (s *Service) Sources(ctx context.Context, verificationID string) ([]models.SourceView, error) {
	if verificationID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "verification id is required")
	}
	start := time.Now()
	sources, err := s.vendor.GetSources(ctx, verificationID)
	s.metrics.ObserveVendorCall("getSources", time.Since(start), err)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to get sources", "verification_id", verificationID, "error", err)
		return nil, vendorFailure(err)
	}

	views := make([]models.SourceView, 0, len(sources))
	for _, src := range sources {
		views = append(views, models.SourceView{Name: src.Name, State: src.State, Available: src.Available})
	}
	return views, nil
}

// FindRecord returns a stored request log row.
func (s *Service) FindRecord(ctx context.Context, id uuid.UUID) (*models.Record, error) {
	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "verification record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification record")
	}
	return record, nil
}

// ResetCache re-probes the cache backend and reports whether it is available.
func (s *Service) ResetCache(ctx context.Context) bool {
	if s.cache == nil {
		return false
	}
	available := s.cache.Reset(ctx)
	decision := audit.DecisionUnavailable
	if available {
		decision = audit.DecisionAvailable
	}
	s.emit(ctx, audit.ActionCacheReset, "", "", decision, "")
	s.logger.InfoContext(ctx, "cache reset", "available", available)
	return available
}

func (s *Service) emit(ctx context.Context, action, verificationID, status, decision, reason string) {
	if s.auditor == nil {
		return
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:         action,
		VerificationID: verificationID,
		Status:         status,
		Decision:       decision,
		Reason:         reason,
	})
}
