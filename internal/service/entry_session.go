package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/marks-api/internal/models"
)

const (
	finalizeSentinel = "0"
	backSentinel     = "-1"

	noticeStudentRequired  = "Student ID required"
	noticeDuplicateStudent = "Duplicate Student ID!"
	noticeInvalidQuestion  = "Invalid question label"
	noticeNoMarks          = "No marks entered"
	noticeSaveFailed       = "Saved locally; sync pending"
)

var labelSuffix = regexp.MustCompile(`^[^0-9]*([0-9].*)$`)

// EntrySaveFunc persists a finalized result and returns the stored record ID.
type EntrySaveFunc func(ctx context.Context, result models.EntryResult) (string, error)

// EntrySessionConfig fixes what a session captures.
type EntrySessionConfig struct {
	ID       string
	Kind     models.EntryKind
	Category models.Category
	Format   *models.QuestionFormat
	MaxMark  float64
}

// EntrySession turns a stream of confirmed inputs into one result per student.
// Invalid input never errors; it is reported through EntryOutcome.Notice.
type EntrySession struct {
	mu sync.Mutex

	id       string
	kind     models.EntryKind
	category models.Category
	format   *models.QuestionFormat
	maxMark  float64

	step      models.EntryStep
	studentID string
	question  *models.Question
	pending   []models.EntryPair
	results   []models.EntryResult
	existing  map[string]struct{}

	lastActive time.Time
	now        func() time.Time
}

// NewEntrySession validates cfg and returns a session waiting for a student ID.
func NewEntrySession(cfg EntrySessionConfig) (*EntrySession, error) {
	if !cfg.Category.Valid() {
		return nil, fmt.Errorf("unknown category %q", cfg.Category)
	}
	switch cfg.Kind {
	case models.EntryKindMulti:
		if cfg.Format == nil || len(cfg.Format.Questions) == 0 {
			return nil, fmt.Errorf("multi entry requires a format with questions")
		}
	case models.EntryKindSingle:
		if cfg.MaxMark <= 0 {
			return nil, fmt.Errorf("single entry requires a positive maximum mark")
		}
	default:
		return nil, fmt.Errorf("unknown entry kind %q", cfg.Kind)
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	s := &EntrySession{
		id:       cfg.ID,
		kind:     cfg.Kind,
		category: cfg.Category,
		format:   cfg.Format,
		maxMark:  cfg.MaxMark,
		step:     models.EntryStepStudent,
		existing: make(map[string]struct{}),
		now:      func() time.Time { return time.Now().UTC() },
	}
	s.lastActive = s.now()
	return s, nil
}

// ID returns the session identifier.
func (s *EntrySession) ID() string { return s.id }

// Hydrate marks students that already have a stored record as duplicates.
func (s *EntrySession) Hydrate(records []models.StudentMark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if id := strings.TrimSpace(r.StudentID); id != "" {
			s.existing[id] = struct{}{}
		}
	}
}

// Confirm applies one Enter press with the given input in the current step.
func (s *EntrySession) Confirm(ctx context.Context, input string, save EntrySaveFunc) models.EntryOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.now()

	switch s.step {
	case models.EntryStepStudent:
		return s.confirmStudent(input)
	case models.EntryStepQuestion:
		return s.confirmQuestion(ctx, input, save)
	case models.EntryStepMark:
		return s.confirmMark(ctx, input, save)
	}
	return s.reject(fmt.Sprintf("unknown step %q", s.step))
}

// Cancel drops the in-progress student. Finalized results are kept.
func (s *EntrySession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.now()
	s.reset()
}

// Reconcile retries every unsaved result in order, continuing past failures.
func (s *EntrySession) Reconcile(ctx context.Context, save EntrySaveFunc) models.ReconcileReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.now()

	var report models.ReconcileReport
	for i := range s.results {
		if s.results[i].Saved {
			continue
		}
		report.Attempted++
		if s.persist(ctx, &s.results[i], save) {
			report.Saved++
		} else {
			report.Remaining++
		}
	}
	return report
}

// Unsaved counts results still waiting to be persisted.
func (s *EntrySession) Unsaved() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsaved()
}

// IdleSince reports the time of the last interaction.
func (s *EntrySession) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot returns a copy of the session state.
func (s *EntrySession) Snapshot() models.EntrySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.EntrySnapshot{
		ID:            s.id,
		Kind:          s.kind,
		Category:      s.category,
		Step:          s.step,
		StudentID:     s.studentID,
		Pending:       append([]models.EntryPair{}, s.pending...),
		Results:       make([]models.EntryResult, len(s.results)),
		Unsaved:       s.unsaved(),
		ExistingCount: len(s.existing),
	}
	if s.format != nil {
		snap.FormatID = s.format.ID
	}
	if s.kind == models.EntryKindSingle {
		snap.MaxMark = s.maxMark
	}
	if s.question != nil {
		snap.CurrentQuestion = s.question.Label
	}
	for i, r := range s.results {
		r.Marks = append([]float64{}, r.Marks...)
		snap.Results[i] = r
	}
	return snap
}

func (s *EntrySession) confirmStudent(input string) models.EntryOutcome {
	id := strings.TrimSpace(input)
	if id == "" {
		return s.reject(noticeStudentRequired)
	}
	if s.isDuplicate(id) {
		return s.reject(noticeDuplicateStudent)
	}
	s.studentID = id
	s.pending = nil
	s.question = nil
	if s.kind == models.EntryKindSingle {
		s.step = models.EntryStepMark
	} else {
		s.step = models.EntryStepQuestion
	}
	return s.accept()
}

func (s *EntrySession) confirmQuestion(ctx context.Context, input string, save EntrySaveFunc) models.EntryOutcome {
	label := strings.TrimSpace(input)
	if label == finalizeSentinel {
		if len(s.pending) == 0 {
			return s.reject(noticeNoMarks)
		}
		return s.finalize(ctx, s.orderedMarks(), save)
	}
	q := s.matchQuestion(label)
	if q == nil {
		return s.reject(noticeInvalidQuestion)
	}
	s.question = q
	s.step = models.EntryStepMark
	return s.accept()
}

func (s *EntrySession) confirmMark(ctx context.Context, input string, save EntrySaveFunc) models.EntryOutcome {
	raw := strings.TrimSpace(input)
	if raw == backSentinel {
		s.question = nil
		if s.kind == models.EntryKindSingle {
			s.reset()
		} else {
			s.step = models.EntryStepQuestion
		}
		return s.accept()
	}

	limit := s.maxMark
	if s.question != nil {
		// Marks for a repeated label accumulate, so only the remainder is available.
		limit = s.question.MaxMark - s.enteredFor(s.question.Label)
	}
	mark, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(mark) || math.IsInf(mark, 0) || mark < 0 || mark > limit {
		return s.reject(rangeMessage(limit))
	}

	if s.kind == models.EntryKindSingle {
		return s.finalize(ctx, []float64{mark}, save)
	}
	s.pending = append(s.pending, models.EntryPair{QuestionLabel: s.question.Label, Mark: mark})
	s.question = nil
	s.step = models.EntryStepQuestion
	return s.accept()
}

// finalize records the result and resets before saving so a repeated Enter cannot finalize twice.
func (s *EntrySession) finalize(ctx context.Context, marks []float64, save EntrySaveFunc) models.EntryOutcome {
	s.results = append(s.results, models.EntryResult{
		ClientID:    uuid.NewString(),
		StudentID:   s.studentID,
		Marks:       marks,
		Total:       models.SumMarks(marks),
		FinalizedAt: s.now(),
	})
	idx := len(s.results) - 1
	s.reset()

	out := s.accept()
	if !s.persist(ctx, &s.results[idx], save) {
		out.Notice = noticeSaveFailed
	}
	result := s.results[idx]
	result.Marks = append([]float64{}, result.Marks...)
	out.Result = &result
	return out
}

func (s *EntrySession) persist(ctx context.Context, result *models.EntryResult, save EntrySaveFunc) bool {
	if save == nil {
		result.LastError = "no store configured"
		return false
	}
	recordID, err := save(ctx, *result)
	if err != nil {
		result.LastError = err.Error()
		return false
	}
	savedAt := s.now()
	result.Saved = true
	result.RecordID = recordID
	result.LastError = ""
	result.SavedAt = &savedAt
	return true
}

func (s *EntrySession) enteredFor(label string) float64 {
	var sum float64
	for _, p := range s.pending {
		if p.QuestionLabel == label {
			sum += p.Mark
		}
	}
	return sum
}

func (s *EntrySession) orderedMarks() []float64 {
	marks := make([]float64, len(s.format.Questions))
	for _, p := range s.pending {
		for i, q := range s.format.Questions {
			if q.Label == p.QuestionLabel {
				marks[i] += p.Mark
				break
			}
		}
	}
	return marks
}

func (s *EntrySession) matchQuestion(label string) *models.Question {
	if label == "" {
		return nil
	}
	for i := range s.format.Questions {
		if strings.EqualFold(s.format.Questions[i].Label, label) {
			return &s.format.Questions[i]
		}
	}
	want := normalizeLabel(label)
	if want == "" {
		return nil
	}
	for i := range s.format.Questions {
		if normalizeLabel(s.format.Questions[i].Label) == want {
			return &s.format.Questions[i]
		}
	}
	return nil
}

// normalizeLabel drops any prefix before the first digit: "Q1" and "q 1" both become "1".
func normalizeLabel(label string) string {
	m := labelSuffix.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(m[1], " ", ""))
}

func (s *EntrySession) isDuplicate(studentID string) bool {
	if _, ok := s.existing[studentID]; ok {
		return true
	}
	for _, r := range s.results {
		if r.StudentID == studentID {
			return true
		}
	}
	return false
}

func (s *EntrySession) unsaved() int {
	n := 0
	for _, r := range s.results {
		if !r.Saved {
			n++
		}
	}
	return n
}

func (s *EntrySession) reset() {
	s.step = models.EntryStepStudent
	s.studentID = ""
	s.question = nil
	s.pending = nil
}

func (s *EntrySession) accept() models.EntryOutcome {
	return models.EntryOutcome{Accepted: true, Step: s.step, Focus: focusFor(s.step)}
}

func (s *EntrySession) reject(notice string) models.EntryOutcome {
	return models.EntryOutcome{Accepted: false, Step: s.step, Focus: focusFor(s.step), Notice: notice}
}

func focusFor(step models.EntryStep) models.EntryFocus {
	switch step {
	case models.EntryStepQuestion:
		return models.FocusQuestionInput
	case models.EntryStepMark:
		return models.FocusMarkInput
	}
	return models.FocusStudentInput
}
