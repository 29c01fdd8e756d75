package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"license-console-service/internal/clients"
	"license-console-service/internal/middleware"
	"license-console-service/internal/models"
)

// AttemptRecorder persists the audit record of a commit attempt
type AttemptRecorder interface {
	Record(ctx context.Context, attempt *models.ImportAttempt) error
}

// ImportEventPublisher announces finished imports to downstream services
type ImportEventPublisher interface {
	PublishImportCompleted(ctx context.Context, attempt *models.ImportAttempt) error
	PublishImportFailed(ctx context.Context, attempt *models.ImportAttempt) error
}

// CompletionFunc is invoked exactly once per successful commit
type CompletionFunc func(attempt *models.ImportAttempt)

// WizardConfig is the operator context a session is constructed with.
// Role and club arrive from the auth front and are injected here rather
// than read from any ambient state, so session behavior is a function of
// its inputs plus the import API's responses.
type WizardConfig struct {
	TenantID     string
	OperatorID   string
	OperatorRole string
}

// callKind distinguishes the three network calls for in-flight tracking
type callKind int

const (
	callHeaders callKind = iota
	callPreview
	callCommit
)

// WizardSession is one operator's import attempt. It is the sole owner of
// wizard state; handlers only see derived WizardView snapshots.
//
// Concurrent requests against one session are serialized by mu. Network
// calls run unlocked; every outbound call carries a monotonically
// increasing request id per call kind and its result is applied only if
// that id is still the latest issued, so a superseded call's late
// resolution can never overwrite newer state.
type WizardSession struct {
	ID uuid.UUID

	cfg WizardConfig

	mu         sync.Mutex
	state      models.WizardState
	subject    models.ImportSubjectType
	clubID     string
	dateFormat models.DateFormat

	fileName string
	file     []byte

	headers []string
	mapping models.ColumnMapping
	rows    []models.PreviewRow
	ledger  *models.RowActionLedger

	reqIDs     [3]uint64
	lastActive time.Time
}

func newWizardSession(cfg WizardConfig, subject models.ImportSubjectType, clubID string, dateFormat models.DateFormat) *WizardSession {
	return &WizardSession{
		ID:         uuid.New(),
		cfg:        cfg,
		state:      models.WizardStateIdle,
		subject:    subject,
		clubID:     clubID,
		dateFormat: dateFormat,
		mapping:    models.ColumnMapping{},
		ledger:     models.NewRowActionLedger(),
		lastActive: time.Now(),
	}
}

// WizardService owns all live wizard sessions and orchestrates their
// calls against the import API.
type WizardService struct {
	importAPI  clients.ImportAPI
	recorder   AttemptRecorder
	events     ImportEventPublisher
	onComplete CompletionFunc
	logger     *logrus.Entry

	mu       sync.RWMutex
	sessions map[uuid.UUID]*WizardSession
}

// NewWizardService creates the wizard service. recorder, events and
// onComplete may be nil; the pipeline works without audit, events or a
// completion callback and only skips the corresponding side effect.
func NewWizardService(importAPI clients.ImportAPI, recorder AttemptRecorder, events ImportEventPublisher, onComplete CompletionFunc, logger *logrus.Logger) *WizardService {
	if logger == nil {
		logger = logrus.New()
	}
	return &WizardService{
		importAPI:  importAPI,
		recorder:   recorder,
		events:     events,
		onComplete: onComplete,
		logger:     logger.WithField("component", "wizard"),
		sessions:   make(map[uuid.UUID]*WizardSession),
	}
}

// Start creates a new wizard session for an operator. A target club is
// only validated at discovery/preview/commit time, so member sessions may
// start without one.
func (s *WizardService) Start(cfg WizardConfig, req *models.StartWizardRequest) (*models.WizardView, error) {
	if !req.SubjectType.IsValid() {
		return nil, middleware.NewBadRequestError("unknown import subject type", map[string]interface{}{"subjectType": req.SubjectType})
	}
	dateFormat := req.DateFormat
	if dateFormat == "" {
		dateFormat = models.DefaultDateFormat
	}
	if !dateFormat.IsValid() {
		return nil, middleware.NewBadRequestError("unsupported date format", map[string]interface{}{"dateFormat": req.DateFormat})
	}

	session := newWizardSession(cfg, req.SubjectType, req.ClubID, dateFormat)

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"session": session.ID,
		"subject": req.SubjectType,
		"tenant":  cfg.TenantID,
	}).Info("wizard session started")

	return session.view(), nil
}

// Get returns a session view, scoped to the owning operator
func (s *WizardService) Get(cfg WizardConfig, id uuid.UUID) (*models.WizardView, error) {
	session, err := s.session(cfg, id)
	if err != nil {
		return nil, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	session.lastActive = time.Now()
	return session.viewLocked(), nil
}

// Discard removes a session
func (s *WizardService) Discard(cfg WizardConfig, id uuid.UUID) error {
	if _, err := s.session(cfg, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// SetTarget changes subject type, scope or date format. Changing subject
// or scope invalidates everything derived from the previous target;
// headers, mapping, preview rows and ledger are cleared and the session
// returns to idle. The uploaded file is kept so the operator can
// re-trigger discovery against the new target.
func (s *WizardService) SetTarget(cfg WizardConfig, id uuid.UUID, req *models.WizardTargetRequest) (*models.WizardView, error) {
	session, err := s.session(cfg, id)
	if err != nil {
		return nil, err
	}
	if !req.SubjectType.IsValid() {
		return nil, middleware.NewBadRequestError("unknown import subject type", map[string]interface{}{"subjectType": req.SubjectType})
	}
	dateFormat := req.DateFormat
	if dateFormat == "" {
		dateFormat = models.DefaultDateFormat
	}
	if !dateFormat.IsValid() {
		return nil, middleware.NewBadRequestError("unsupported date format", map[string]interface{}{"dateFormat": req.DateFormat})
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.lastActive = time.Now()

	if session.state == models.WizardStateCommitting {
		return nil, middleware.NewConflictError(middleware.ErrCodeWizardConflict, "commit in progress")
	}

	targetChanged := req.SubjectType != session.subject || req.ClubID != session.clubID

	session.subject = req.SubjectType
	session.clubID = req.ClubID

	if targetChanged {
		// Invalidate every in-flight call and all derived state.
		for kind := range session.reqIDs {
			session.reqIDs[kind]++
		}
		session.headers = nil
		session.mapping = models.ColumnMapping{}
		session.rows = nil
		session.ledger = models.NewRowActionLedger()
		session.state = models.WizardStateIdle
	} else if dateFormat != session.dateFormat && session.state == models.WizardStatePreviewReady {
		// Rows were parsed with the old format; force a fresh preview.
		session.reqIDs[callPreview]++
		session.rows = nil
		session.ledger = models.NewRowActionLedger()
		session.state = models.WizardStateMappingReady
	}
	session.dateFormat = dateFormat

	return session.viewLocked(), nil
}

// DiscoverHeaders registers a newly selected file and asks the import API
// for its header row. On success the mapping is replaced with a freshly
// auto-derived one and any prior preview state is dropped; on failure the
// session returns to idle with the file retained for a manual retry.
func (s *WizardService) DiscoverHeaders(ctx context.Context, cfg WizardConfig, id uuid.UUID, fileName string, file []byte) (*models.WizardView, error) {
	session, err := s.session(cfg, id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	session.lastActive = time.Now()

	if len(file) == 0 {
		session.mu.Unlock()
		return nil, middleware.NewPreconditionError(middleware.ErrCodeFileRequired, "please upload a CSV file")
	}
	if session.state == models.WizardStateHeaderPending {
		session.mu.Unlock()
		return nil, middleware.NewConflictError(middleware.ErrCodeWizardConflict, "header discovery already in progress")
	}
	if session.state == models.WizardStateCommitting {
		session.mu.Unlock()
		return nil, middleware.NewConflictError(middleware.ErrCodeWizardConflict, "commit in progress")
	}
	if session.subject.RequiresScope() && session.clubID == "" {
		session.mu.Unlock()
		return nil, middleware.NewPreconditionError(middleware.ErrCodeScopeRequired, "club selection required")
	}

	// A new file starts a new import attempt: derived state is gone the
	// moment the file changes, not only once discovery succeeds.
	session.fileName = fileName
	session.file = file
	session.headers = nil
	session.mapping = models.ColumnMapping{}
	session.rows = nil
	session.ledger = models.NewRowActionLedger()
	session.state = models.WizardStateHeaderPending

	session.reqIDs[callHeaders]++
	session.reqIDs[callPreview]++
	reqID := session.reqIDs[callHeaders]
	req := &clients.PreviewRequest{
		TenantID:    session.cfg.TenantID,
		SubjectType: session.subject,
		FileName:    fileName,
		File:        file,
		ClubID:      session.clubID,
		DateFormat:  session.dateFormat,
	}
	session.mu.Unlock()

	result, callErr := s.importAPI.Preview(ctx, req)

	session.mu.Lock()
	defer session.mu.Unlock()

	if reqID != session.reqIDs[callHeaders] {
		// Superseded while in flight; a later request owns the state now.
		return session.viewLocked(), nil
	}

	if callErr != nil {
		session.state = models.WizardStateIdle
		s.logger.WithError(callErr).WithField("session", session.ID).Warn("header discovery failed")
		return nil, middleware.NewExternalServiceError("import-service", callErr)
	}

	session.headers = result.Headers
	session.mapping = DeriveMapping(models.FieldSpecsFor(session.subject), result.Headers)
	session.state = models.WizardStateMappingReady

	return session.viewLocked(), nil
}

// UpdateMapping applies operator mapping overrides. Editing the mapping
// after a preview drops the rows and ledger back to the mapping step,
// since they no longer describe what would be committed.
func (s *WizardService) UpdateMapping(cfg WizardConfig, id uuid.UUID, req *models.MappingUpdateRequest) (*models.WizardView, error) {
	session, err := s.session(cfg, id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.lastActive = time.Now()

	switch session.state {
	case models.WizardStateMappingReady:
	case models.WizardStatePreviewReady:
		session.reqIDs[callPreview]++
		session.rows = nil
		session.ledger = models.NewRowActionLedger()
		session.state = models.WizardStateMappingReady
	default:
		return nil, middleware.NewPreconditionError(middleware.ErrCodeWizardState, "no headers discovered yet")
	}

	session.mapping = ApplyMappingOverrides(session.mapping, models.FieldSpecsFor(session.subject), req.Entries)

	return session.viewLocked(), nil
}

// Preview requests the validated row preview. Requires a complete mapping
// and, for member imports, a target club. On success the row-action
// ledger is replaced with a create entry per returned row; on failure the
// session keeps whatever it had before the call.
func (s *WizardService) Preview(ctx context.Context, cfg WizardConfig, id uuid.UUID) (*models.WizardView, error) {
	session, err := s.session(cfg, id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	session.lastActive = time.Now()

	if session.state != models.WizardStateMappingReady && session.state != models.WizardStatePreviewReady {
		switch session.state {
		case models.WizardStatePreviewPending:
			session.mu.Unlock()
			return nil, middleware.NewConflictError(middleware.ErrCodeWizardConflict, "preview already in progress")
		default:
			session.mu.Unlock()
			return nil, middleware.NewPreconditionError(middleware.ErrCodeWizardState, "no headers discovered yet")
		}
	}
	if len(session.file) == 0 {
		session.mu.Unlock()
		return nil, middleware.NewPreconditionError(middleware.ErrCodeFileRequired, "please upload a CSV file")
	}
	if session.subject.RequiresScope() && session.clubID == "" {
		session.mu.Unlock()
		return nil, middleware.NewPreconditionError(middleware.ErrCodeScopeRequired, "club selection required")
	}
	fields := models.FieldSpecsFor(session.subject)
	if !IsMappingComplete(session.mapping, fields) {
		session.mu.Unlock()
		return nil, middleware.NewPreconditionError(middleware.ErrCodeMappingIncomplete, "all required fields must be mapped to a column")
	}

	priorState := session.state
	session.state = models.WizardStatePreviewPending
	session.reqIDs[callPreview]++
	reqID := session.reqIDs[callPreview]
	req := &clients.PreviewRequest{
		TenantID:    session.cfg.TenantID,
		SubjectType: session.subject,
		FileName:    session.fileName,
		File:        session.file,
		Mapping:     session.mapping,
		ClubID:      session.clubID,
		DateFormat:  session.dateFormat,
	}
	session.mu.Unlock()

	result, callErr := s.importAPI.Preview(ctx, req)

	session.mu.Lock()
	defer session.mu.Unlock()

	if reqID != session.reqIDs[callPreview] {
		return session.viewLocked(), nil
	}

	if callErr != nil {
		session.state = priorState
		s.logger.WithError(callErr).WithField("session", session.ID).Warn("preview failed")
		return nil, middleware.NewExternalServiceError("import-service", callErr)
	}

	session.rows = result.Rows
	session.ledger.Reset(result.Rows)
	session.state = models.WizardStatePreviewReady

	return session.viewLocked(), nil
}

// SetRowAction overwrites one previewed row's commit decision. Rows with
// validation errors or a duplicate flag take create/skip like any other;
// the flags are advisory and the operator always decides.
func (s *WizardService) SetRowAction(cfg WizardConfig, id uuid.UUID, index models.RowKey, action models.RowAction) (*models.WizardView, error) {
	session, err := s.session(cfg, id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.lastActive = time.Now()

	if session.state != models.WizardStatePreviewReady {
		return nil, middleware.NewPreconditionError(middleware.ErrCodeWizardState, "no preview loaded")
	}
	if !action.IsValid() {
		return nil, middleware.NewBadRequestError("unknown row action", map[string]interface{}{"action": action})
	}
	if !session.ledger.Set(index, action) {
		return nil, middleware.NewNotFoundError(middleware.ErrCodeRowNotFound, "preview row")
	}

	return session.viewLocked(), nil
}

// Commit sends the file, mapping and the ledger as it stands right now to
// the import API. Success resets the session to idle and fires the
// completion callback exactly once; failure keeps all state so the
// operator can adjust and retry without re-uploading.
func (s *WizardService) Commit(ctx context.Context, cfg WizardConfig, id uuid.UUID) (*models.WizardView, error) {
	session, err := s.session(cfg, id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	session.lastActive = time.Now()

	if session.state == models.WizardStateCommitting {
		session.mu.Unlock()
		return nil, middleware.NewConflictError(middleware.ErrCodeWizardConflict, "commit already in progress")
	}
	if session.state != models.WizardStatePreviewReady {
		session.mu.Unlock()
		return nil, middleware.NewPreconditionError(middleware.ErrCodeWizardState, "no preview loaded")
	}
	if len(session.file) == 0 {
		session.mu.Unlock()
		return nil, middleware.NewPreconditionError(middleware.ErrCodeFileRequired, "please upload a CSV file")
	}
	fields := models.FieldSpecsFor(session.subject)
	if !IsMappingComplete(session.mapping, fields) {
		session.mu.Unlock()
		return nil, middleware.NewPreconditionError(middleware.ErrCodeMappingIncomplete, "all required fields must be mapped to a column")
	}

	session.state = models.WizardStateCommitting
	session.reqIDs[callCommit]++
	reqID := session.reqIDs[callCommit]
	actions := session.ledger.Entries()
	attempt := &models.ImportAttempt{
		TenantID:    session.cfg.TenantID,
		OperatorID:  session.cfg.OperatorID,
		SubjectType: session.subject,
		FileName:    session.fileName,
		RowCount:    len(actions),
	}
	if session.clubID != "" {
		clubID := session.clubID
		attempt.ClubID = &clubID
	}
	for _, entry := range actions {
		if entry.Action == models.RowActionCreate {
			attempt.CreateCount++
		} else {
			attempt.SkipCount++
		}
	}
	req := &clients.ConfirmRequest{
		TenantID:    session.cfg.TenantID,
		SubjectType: session.subject,
		FileName:    session.fileName,
		File:        session.file,
		Mapping:     session.mapping,
		Actions:     actions,
		ClubID:      session.clubID,
		DateFormat:  session.dateFormat,
	}
	session.mu.Unlock()

	callErr := s.importAPI.Confirm(ctx, req)

	session.mu.Lock()
	defer session.mu.Unlock()

	if reqID != session.reqIDs[callCommit] {
		return session.viewLocked(), nil
	}

	if callErr != nil {
		session.state = models.WizardStatePreviewReady
		attempt.Outcome = models.ImportOutcomeFailed
		message := callErr.Error()
		attempt.Message = &message
		s.recordAttempt(ctx, attempt)
		s.logger.WithError(callErr).WithField("session", session.ID).Warn("commit failed")
		return nil, middleware.NewExternalServiceError("import-service", callErr)
	}

	attempt.Outcome = models.ImportOutcomeCommitted
	s.recordAttempt(ctx, attempt)
	if s.onComplete != nil {
		s.onComplete(attempt)
	}

	s.logger.WithFields(logrus.Fields{
		"session": session.ID,
		"subject": session.subject,
		"rows":    attempt.RowCount,
		"creates": attempt.CreateCount,
		"skips":   attempt.SkipCount,
	}).Info("import committed")

	// Full reset back to a fresh attempt.
	session.fileName = ""
	session.file = nil
	session.headers = nil
	session.mapping = models.ColumnMapping{}
	session.rows = nil
	session.ledger = models.NewRowActionLedger()
	session.state = models.WizardStateIdle

	return session.viewLocked(), nil
}

// ReapIdle discards sessions untouched for longer than maxIdle and
// returns how many were removed
func (s *WizardService) ReapIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	reaped := 0
	for id, session := range s.sessions {
		session.mu.Lock()
		idle := session.lastActive.Before(cutoff)
		session.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			reaped++
		}
	}
	return reaped
}

// SessionCount returns the number of live sessions
func (s *WizardService) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *WizardService) recordAttempt(ctx context.Context, attempt *models.ImportAttempt) {
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, attempt); err != nil {
			s.logger.WithError(err).Warn("failed to record import attempt")
		}
	}
	if s.events == nil {
		return
	}
	var err error
	if attempt.Outcome == models.ImportOutcomeCommitted {
		err = s.events.PublishImportCompleted(ctx, attempt)
	} else {
		err = s.events.PublishImportFailed(ctx, attempt)
	}
	if err != nil {
		s.logger.WithError(err).Warn("failed to publish import event")
	}
}

func (s *WizardService) session(cfg WizardConfig, id uuid.UUID) (*WizardSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, middleware.NewNotFoundError(middleware.ErrCodeWizardNotFound, "wizard session")
	}
	if session.cfg.TenantID != cfg.TenantID || session.cfg.OperatorID != cfg.OperatorID {
		return nil, middleware.NewForbiddenError("wizard session belongs to another operator")
	}
	return session, nil
}

func (session *WizardSession) view() *models.WizardView {
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.viewLocked()
}

func (session *WizardSession) viewLocked() *models.WizardView {
	headers := make([]string, len(session.headers))
	copy(headers, session.headers)

	mapping := make(models.ColumnMapping, len(session.mapping))
	for key, header := range session.mapping {
		mapping[key] = header
	}

	rows := make([]models.PreviewRow, len(session.rows))
	copy(rows, session.rows)

	fields := models.FieldSpecsFor(session.subject)

	return &models.WizardView{
		ID:              session.ID.String(),
		SubjectType:     session.subject,
		ClubID:          session.clubID,
		DateFormat:      session.dateFormat,
		State:           session.state,
		FileName:        session.fileName,
		Fields:          fields,
		Headers:         headers,
		Mapping:         mapping,
		MappingComplete: IsMappingComplete(session.mapping, fields),
		Rows:            rows,
		Actions:         session.ledger.Entries(),
	}
}
