package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/marks-api/internal/models"
	appErrors "github.com/noah-isme/marks-api/pkg/errors"
	"github.com/noah-isme/marks-api/pkg/jobs"
)

type flakyMarkRepo struct {
	*memMarkRepo
	mu    sync.Mutex
	fails int
}

func (f *flakyMarkRepo) Create(ctx context.Context, mark *models.StudentMark) (bool, error) {
	f.mu.Lock()
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return false, errors.New("store unavailable")
	}
	f.mu.Unlock()
	return f.memMarkRepo.Create(ctx, mark)
}

type recordingQueue struct {
	jobs []jobs.Job
}

func (q *recordingQueue) TryEnqueue(job jobs.Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func newEntryFixture(t *testing.T, fails int, auto bool) (*EntryService, *flakyMarkRepo, *recordingQueue) {
	t.Helper()
	repo := &flakyMarkRepo{memMarkRepo: newMemMarkRepo(), fails: fails}
	formats := midtermFormatRepo()
	marks := NewMarkService(repo, formats, nil, nil, nil, nil, nil, nil)
	svc := NewEntryService(marks, NewFormatService(formats, nil, nil), nil, nil, EntryServiceConfig{SessionTTL: time.Hour, AutoReconcile: auto}, nil, nil)
	queue := &recordingQueue{}
	svc.SetQueue(queue)
	return svc, repo, queue
}

func input(t *testing.T, svc *EntryService, id string, values ...string) *models.EntryOutcome {
	t.Helper()
	var out *models.EntryOutcome
	for _, v := range values {
		var err error
		out, err = svc.Input(context.Background(), id, EntryInputRequest{Value: v})
		require.NoError(t, err)
	}
	return out
}

func TestEntryServiceMultiSessionSavesRecord(t *testing.T) {
	svc, repo, _ := newEntryFixture(t, 0, false)
	snap, err := svc.Start(context.Background(), StartEntryRequest{Kind: "multi", FormatID: testFormatID})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryMidterm, snap.Category)
	assert.Equal(t, models.EntryStepStudent, snap.Step)

	out := input(t, svc, snap.ID, "S1", "1", "3", "2", "4", "3", "5", "0")
	require.NotNil(t, out.Result)
	assert.True(t, out.Result.Saved)

	stored, err := repo.FindByID(context.Background(), out.Result.RecordID)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4, 5}, []float64(stored.Marks))
	assert.Equal(t, 12.0, stored.Total)
	assert.Equal(t, out.Result.ClientID, stored.ID)
	require.NotNil(t, stored.FormatID)
	assert.Equal(t, testFormatID, *stored.FormatID)
}

func TestEntryServiceHydratesExistingStudents(t *testing.T) {
	svc, repo, _ := newEntryFixture(t, 0, false)
	formatID := testFormatID
	_, _ = repo.memMarkRepo.Create(context.Background(), &models.StudentMark{StudentID: "S1", Category: models.CategoryMidterm, FormatID: &formatID, Marks: []float64{1, 1, 1}})

	snap, err := svc.Start(context.Background(), StartEntryRequest{Kind: "multi", FormatID: testFormatID})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ExistingCount)

	out := input(t, svc, snap.ID, "S1")
	assert.False(t, out.Accepted)
	assert.Equal(t, "Duplicate Student ID!", out.Notice)
}

func TestEntryServiceSingleSessionUsesSchemeMax(t *testing.T) {
	svc, repo, _ := newEntryFixture(t, 0, false)
	snap, err := svc.Start(context.Background(), StartEntryRequest{Kind: "single", Category: "quiz"})
	require.NoError(t, err)
	assert.Equal(t, 15.0, snap.MaxMark)

	out := input(t, svc, snap.ID, "S1", "16")
	assert.Equal(t, "Mark should be between 0 and 15", out.Notice)
	out = input(t, svc, snap.ID, "14")
	require.True(t, out.Result.Saved)

	records, err := repo.List(context.Background(), models.MarkFilter{Category: models.CategoryQuiz})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].FormatID)
}

func TestEntryServiceStartValidation(t *testing.T) {
	svc, _, _ := newEntryFixture(t, 0, false)
	_, err := svc.Start(context.Background(), StartEntryRequest{Kind: "single"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	_, err = svc.Start(context.Background(), StartEntryRequest{Kind: "multi"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	_, err = svc.Start(context.Background(), StartEntryRequest{Kind: "multi", FormatID: testFormatID, Category: "final"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	_, err = svc.Start(context.Background(), StartEntryRequest{Kind: "multi", FormatID: "missing"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestEntryServiceFailedSaveQueuesReconcile(t *testing.T) {
	svc, repo, queue := newEntryFixture(t, 1, true)
	snap, err := svc.Start(context.Background(), StartEntryRequest{Kind: "multi", FormatID: testFormatID})
	require.NoError(t, err)

	out := input(t, svc, snap.ID, "S1", "1", "3", "0")
	require.NotNil(t, out.Result)
	assert.False(t, out.Result.Saved)
	assert.Equal(t, models.EntryStepStudent, out.Step)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, ReconcileJobType, queue.jobs[0].Type)

	require.NoError(t, svc.HandleReconcileJob(context.Background(), queue.jobs[0]))
	after, err := svc.Snapshot(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.Unsaved)
	assert.Len(t, repo.records, 1)
}

func TestEntryServiceReconcileJobFailsWhileUnsaved(t *testing.T) {
	svc, _, queue := newEntryFixture(t, 5, true)
	snap, err := svc.Start(context.Background(), StartEntryRequest{Kind: "single", Category: "assignment"})
	require.NoError(t, err)
	input(t, svc, snap.ID, "S1", "4")

	require.Len(t, queue.jobs, 1)
	assert.Error(t, svc.HandleReconcileJob(context.Background(), queue.jobs[0]))

	report, err := svc.Reconcile(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileReport{Attempted: 1, Saved: 0, Remaining: 1}, *report)
}

func TestEntryServiceCloseAndSweep(t *testing.T) {
	svc, _, _ := newEntryFixture(t, 1, false)
	unsaved, err := svc.Start(context.Background(), StartEntryRequest{Kind: "single", Category: "quiz"})
	require.NoError(t, err)
	input(t, svc, unsaved.ID, "S1", "3")

	idle, err := svc.Start(context.Background(), StartEntryRequest{Kind: "single", Category: "quiz"})
	require.NoError(t, err)

	err = svc.Close(unsaved.ID, false)
	assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))

	svc.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	assert.Equal(t, 1, svc.Sweep())

	_, err = svc.Snapshot(idle.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	_, err = svc.Snapshot(unsaved.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Close(unsaved.ID, true))
	_, err = svc.Input(context.Background(), unsaved.ID, EntryInputRequest{Value: "S2"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestEntryServiceCancel(t *testing.T) {
	svc, _, _ := newEntryFixture(t, 0, false)
	snap, err := svc.Start(context.Background(), StartEntryRequest{Kind: "multi", FormatID: testFormatID})
	require.NoError(t, err)
	input(t, svc, snap.ID, "S1", "2")

	after, err := svc.Cancel(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EntryStepStudent, after.Step)
	assert.Empty(t, after.StudentID)
}
