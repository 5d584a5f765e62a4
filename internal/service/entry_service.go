package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/marks-api/internal/models"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
	"github.com/noah-isme/marks-api/pkg/grading"
	"github.com/noah-isme/marks-api/pkg/jobs"
)

// ReconcileJobType names queued reconciliation jobs.
const ReconcileJobType = "entry.reconcile"

type entryMarkStore interface {
	List(ctx context.Context, filter models.MarkFilter) ([]models.StudentMark, error)
	Save(ctx context.Context, req SaveMarkRequest) (*models.StudentMark, error)
}

type entryFormatReader interface {
	Get(ctx context.Context, id string) (*models.QuestionFormat, error)
}

type jobEnqueuer interface {
	TryEnqueue(job jobs.Job) error
}

// StartEntryRequest opens a guided entry session.
type StartEntryRequest struct {
	Kind     string   `json:"kind" validate:"required,oneof=multi single"`
	FormatID string   `json:"format_id" validate:"required_if=Kind multi"`
	Category string   `json:"category" validate:"omitempty,oneof=quiz midterm final assignment presentation attendance"`
	MaxMark  *float64 `json:"max_mark" validate:"omitempty,gt=0"`
}

// EntryInputRequest carries one confirmed input.
type EntryInputRequest struct {
	Value string `json:"value"`
}

// EntryServiceConfig tunes session lifetime and reconciliation.
type EntryServiceConfig struct {
	SessionTTL    time.Duration
	AutoReconcile bool
}

// EntryService hosts guided entry sessions.
type EntryService struct {
	marks     entryMarkStore
	formats   entryFormatReader
	scheme    grading.Scheme
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       EntryServiceConfig

	mu       sync.RWMutex
	sessions map[string]*entryState
	queue    jobEnqueuer
	now      func() time.Time
}

type entryState struct {
	session  *EntrySession
	formatID string
	maxMark  *float64
}

// NewEntryService constructs EntryService.
func NewEntryService(marks entryMarkStore, formats entryFormatReader, scheme grading.Scheme, metrics *MetricsService, cfg EntryServiceConfig, validate *validator.Validate, logger *zap.Logger) *EntryService {
	if scheme == nil {
		scheme = grading.DefaultScheme()
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 2 * time.Hour
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntryService{
		marks:     marks,
		formats:   formats,
		scheme:    scheme,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		sessions:  make(map[string]*entryState),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetQueue attaches the reconcile queue. Without one, failed saves wait for a manual reconcile.
func (s *EntryService) SetQueue(q jobEnqueuer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = q
}

// Start opens a session and hydrates the students already recorded for its scope.
func (s *EntryService) Start(ctx context.Context, req StartEntryRequest) (*models.EntrySnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid entry session payload")
	}

	cfg := EntrySessionConfig{Kind: models.EntryKind(req.Kind), Category: models.Category(req.Category)}
	state := &entryState{maxMark: req.MaxMark}
	var filter models.MarkFilter

	switch cfg.Kind {
	case models.EntryKindMulti:
		format, err := s.formats.Get(ctx, req.FormatID)
		if err != nil {
			return nil, err
		}
		if format.Category != nil {
			if cfg.Category != "" && cfg.Category != *format.Category {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("format belongs to category %s", *format.Category))
			}
			cfg.Category = *format.Category
		}
		if cfg.Category == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "category required for a format without category")
		}
		cfg.Format = format
		state.formatID = format.ID
		filter = models.MarkFilter{FormatID: format.ID}
	case models.EntryKindSingle:
		if cfg.Category == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "category required for single entry")
		}
		cfg.MaxMark = s.scheme.MaxMark(cfg.Category)
		if req.MaxMark != nil {
			cfg.MaxMark = *req.MaxMark
		}
		filter = models.MarkFilter{Category: cfg.Category, WithoutFormat: true}
	}

	session, err := NewEntrySession(cfg)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	existing, err := s.marks.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	session.Hydrate(existing)
	state.session = session

	s.mu.Lock()
	s.sessions[session.ID()] = state
	s.mu.Unlock()

	s.logger.Info("entry session started",
		zap.String("session_id", session.ID()),
		zap.String("kind", string(cfg.Kind)),
		zap.String("category", string(cfg.Category)),
		zap.Int("existing", len(existing)))
	snap := session.Snapshot()
	return &snap, nil
}

// Snapshot returns the current state of a session.
func (s *EntryService) Snapshot(id string) (*models.EntrySnapshot, error) {
	state, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	snap := state.session.Snapshot()
	return &snap, nil
}

// Input applies one confirmed value to a session.
func (s *EntryService) Input(ctx context.Context, id string, req EntryInputRequest) (*models.EntryOutcome, error) {
	state, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	out := state.session.Confirm(ctx, req.Value, s.saver(state))
	if out.Result != nil {
		s.metrics.RecordEntryFinalized(out.Result.Saved)
		if !out.Result.Saved {
			s.logger.Warn("entry result not saved",
				zap.String("session_id", id),
				zap.String("student_id", out.Result.StudentID),
				zap.String("error", out.Result.LastError))
			s.scheduleReconcile(id)
		}
	}
	return &out, nil
}

// Cancel abandons the student in progress.
func (s *EntryService) Cancel(id string) (*models.EntrySnapshot, error) {
	state, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	state.session.Cancel()
	snap := state.session.Snapshot()
	return &snap, nil
}

// Reconcile retries every unsaved result of a session.
func (s *EntryService) Reconcile(ctx context.Context, id string) (*models.ReconcileReport, error) {
	state, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	report := state.session.Reconcile(ctx, s.saver(state))
	s.metrics.RecordReconciled(report.Saved)
	if report.Attempted > 0 {
		s.logger.Info("entry session reconciled",
			zap.String("session_id", id),
			zap.Int("attempted", report.Attempted),
			zap.Int("saved", report.Saved),
			zap.Int("remaining", report.Remaining))
	}
	return &report, nil
}

// Close removes a session. Sessions holding unsaved results are kept unless force is set.
func (s *EntryService) Close(id string, force bool) error {
	state, err := s.lookup(id)
	if err != nil {
		return err
	}
	if n := state.session.Unsaved(); n > 0 && !force {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("session has %d unsaved results", n))
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// HandleReconcileJob is the queue handler for automatic reconciliation.
// It fails while results remain so the queue retries with its delay.
func (s *EntryService) HandleReconcileJob(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("reconcile job %s: unexpected payload %T", job.ID, job.Payload)
	}
	report, err := s.Reconcile(ctx, id)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if report.Remaining > 0 {
		return fmt.Errorf("session %s: %d results still unsaved", id, report.Remaining)
	}
	return nil
}

// Sweep drops sessions idle past the TTL. Sessions with unsaved results are kept.
func (s *EntryService) Sweep() int {
	cutoff := s.now().Add(-s.cfg.SessionTTL)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, state := range s.sessions {
		if state.session.IdleSince().After(cutoff) {
			continue
		}
		if n := state.session.Unsaved(); n > 0 {
			s.logger.Warn("idle entry session kept with unsaved results", zap.String("session_id", id), zap.Int("unsaved", n))
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx ends.
func (s *EntryService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("swept idle entry sessions", zap.Int("removed", n))
			}
		}
	}
}

func (s *EntryService) lookup(id string) (*entryState, error) {
	s.mu.RLock()
	state, ok := s.sessions[strings.TrimSpace(id)]
	s.mu.RUnlock()
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "entry session not found")
	}
	return state, nil
}

func (s *EntryService) saver(state *entryState) EntrySaveFunc {
	category := state.session.category
	return func(ctx context.Context, result models.EntryResult) (string, error) {
		req := SaveMarkRequest{
			ID:        result.ClientID,
			StudentID: result.StudentID,
			Category:  string(category),
			FormatID:  state.formatID,
			Marks:     result.Marks,
		}
		if state.formatID == "" {
			req.MaxMark = state.maxMark
		}
		record, err := s.marks.Save(ctx, req)
		if err != nil {
			return "", err
		}
		return record.ID, nil
	}
}

func (s *EntryService) scheduleReconcile(id string) {
	s.mu.RLock()
	queue := s.queue
	s.mu.RUnlock()
	if !s.cfg.AutoReconcile || queue == nil {
		return
	}
	if err := queue.TryEnqueue(jobs.Job{ID: id, Type: ReconcileJobType, Payload: id}); err != nil {
		s.logger.Warn("reconcile job not queued", zap.String("session_id", id), zap.Error(err))
	}
}
