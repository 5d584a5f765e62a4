package models

import "time"

// EntryStep is the current position of a guided entry session.
type EntryStep string

const (
	EntryStepStudent  EntryStep = "student"
	EntryStepQuestion EntryStep = "question"
	EntryStepMark     EntryStep = "mark"
)

// EntryKind selects between per-question and single-mark capture.
type EntryKind string

const (
	EntryKindMulti  EntryKind = "multi"
	EntryKindSingle EntryKind = "single"
)

// EntryFocus names the input that should receive focus after a transition.
type EntryFocus string

const (
	FocusStudentInput  EntryFocus = "student_input"
	FocusQuestionInput EntryFocus = "question_input"
	FocusMarkInput     EntryFocus = "mark_input"
)

// EntryPair is one accepted (question, mark) pair awaiting finalize.
type EntryPair struct {
	QuestionLabel string  `json:"question_label"`
	Mark          float64 `json:"mark"`
}

// EntryResult is a finalized student entry, saved or awaiting reconciliation.
type EntryResult struct {
	ClientID    string     `json:"client_id"`
	StudentID   string     `json:"student_id"`
	Marks       []float64  `json:"marks"`
	Total       float64    `json:"total"`
	Saved       bool       `json:"saved"`
	RecordID    string     `json:"record_id,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	FinalizedAt time.Time  `json:"finalized_at"`
	SavedAt     *time.Time `json:"saved_at,omitempty"`
}

// EntryOutcome reports what a single confirmation did.
type EntryOutcome struct {
	Accepted bool         `json:"accepted"`
	Step     EntryStep    `json:"step"`
	Focus    EntryFocus   `json:"focus"`
	Notice   string       `json:"notice,omitempty"`
	Result   *EntryResult `json:"result,omitempty"`
}

// EntrySnapshot is a read-only view of a session.
type EntrySnapshot struct {
	ID              string        `json:"id"`
	Kind            EntryKind     `json:"kind"`
	Category        Category      `json:"category"`
	FormatID        string        `json:"format_id,omitempty"`
	MaxMark         float64       `json:"max_mark,omitempty"`
	Step            EntryStep     `json:"step"`
	StudentID       string        `json:"student_id,omitempty"`
	CurrentQuestion string        `json:"current_question,omitempty"`
	Pending         []EntryPair   `json:"pending"`
	Results         []EntryResult `json:"results"`
	Unsaved         int           `json:"unsaved"`
	ExistingCount   int           `json:"existing_count"`
}

// ReconcileReport summarises a reconciliation pass.
type ReconcileReport struct {
	Attempted int `json:"attempted"`
	Saved     int `json:"saved"`
	Remaining int `json:"remaining"`
}
