package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/marks-api/internal/models"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
	"github.com/noah-isme/marks-api/pkg/events"
	"github.com/noah-isme/marks-api/pkg/grading"
)

const summaryCachePrefix = "summary:student:"

type markLister interface {
	List(ctx context.Context, filter models.MarkFilter) ([]models.StudentMark, error)
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// SummaryService computes per-student grade summaries.
type SummaryService struct {
	marks  markLister
	cache  summaryCache
	scheme grading.Scheme
	ttl    time.Duration
	logger *zap.Logger
}

// NewSummaryService constructs SummaryService. cache may be nil.
func NewSummaryService(marks markLister, cache summaryCache, scheme grading.Scheme, ttl time.Duration, logger *zap.Logger) *SummaryService {
	if scheme == nil {
		scheme = grading.DefaultScheme()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummaryService{marks: marks, cache: cache, scheme: scheme, ttl: ttl, logger: logger}
}

// Scheme exposes the active category weights.
func (s *SummaryService) Scheme() grading.Scheme {
	return s.scheme
}

// Summary aggregates every record of the student. A student without records is NotFound.
func (s *SummaryService) Summary(ctx context.Context, studentID string) (*models.StudentGradeSummary, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}

	key := summaryCacheKey(studentID)
	if s.cache != nil {
		var cached models.StudentGradeSummary
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	records, err := s.marks.List(ctx, models.MarkFilter{StudentID: studentID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student marks")
	}
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student has no grade history")
	}

	summary := grading.Rounded(grading.Summarize(studentID, records, s.scheme))
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, summary, s.ttl)
	}
	return summary, nil
}

// InvalidateStudent drops the cached summary for the student.
func (s *SummaryService) InvalidateStudent(ctx context.Context, studentID string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx, summaryCachePattern(strings.TrimSpace(studentID)))
}

// HandleMarkEvent invalidates the summary of the student named in a mark event.
func (s *SummaryService) HandleMarkEvent(ctx context.Context, event events.MarkEvent) error {
	if err := s.InvalidateStudent(ctx, event.StudentID); err != nil {
		return err
	}
	s.logger.Debug("summary invalidated", zap.String("student_id", event.StudentID), zap.String("event", string(event.Type)))
	return nil
}

func summaryCacheKey(studentID string) string {
	return summaryCachePrefix + studentID
}

// summaryCachePattern escapes glob characters; invalidation goes through SCAN MATCH.
func summaryCachePattern(studentID string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)
	return summaryCachePrefix + replacer.Replace(studentID)
}
