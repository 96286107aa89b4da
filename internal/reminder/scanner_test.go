package reminder

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"learning-planner-backend/internal/model"
	"learning-planner-backend/internal/notification"
	"learning-planner-backend/internal/store"
)

type fakeTaskStore struct {
	mu      sync.Mutex
	tasks   map[string]*model.Task
	findErr error
	markErr error
	marks   int

	// findBarrier, when set, holds every FindDueUnnotified call after it has read the due
	// tasks until the group is released.
	findBarrier *sync.WaitGroup
}

func newFakeTaskStore(tasks ...model.Task) *fakeTaskStore {
	s := &fakeTaskStore{tasks: make(map[string]*model.Task)}
	for i := range tasks {
		task := tasks[i]
		s.tasks[task.ID] = &task
	}
	return s
}

func (s *fakeTaskStore) FindDueUnnotified(_ context.Context, now time.Time) ([]model.Task, error) {
	due, err := s.findDue(now)
	if s.findBarrier != nil {
		s.findBarrier.Done()
		s.findBarrier.Wait()
	}
	return due, err
}

func (s *fakeTaskStore) findDue(now time.Time) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	var due []model.Task
	for _, task := range s.tasks {
		if task.ReminderAt != nil && !task.ReminderAt.After(now) && !task.ReminderSent {
			due = append(due, *task)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func (s *fakeTaskStore) MarkReminderSent(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return false, s.markErr
	}
	task, ok := s.tasks[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if task.ReminderSent {
		return false, nil
	}
	task.ReminderSent = true
	s.marks++
	return true, nil
}

func (s *fakeTaskStore) Create(context.Context, *model.Task) error {
	return errors.New("not implemented")
}

func (s *fakeTaskStore) Get(context.Context, string, string) (*model.Task, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeTaskStore) Reschedule(context.Context, string, string, store.Schedule) (*model.Task, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeTaskStore) sent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id].ReminderSent
}

type dispatchCall struct {
	userID string
	msg    notification.Message
}

type fakeDispatcher struct {
	mu      sync.Mutex
	calls   []dispatchCall
	errs    map[string]error // by user
	hold    chan struct{}    // when set, Dispatch signals entered and waits for release
	entered chan struct{}
}

func (d *fakeDispatcher) Dispatch(_ context.Context, userID string, msg notification.Message) (notification.Report, error) {
	d.mu.Lock()
	d.calls = append(d.calls, dispatchCall{userID: userID, msg: msg})
	err := d.errs[userID]
	d.mu.Unlock()

	if d.hold != nil {
		d.entered <- struct{}{}
		<-d.hold
	}
	return notification.Report{UserID: userID}, err
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

var now = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func dueTask(id, owner string) model.Task {
	at := now.Add(-time.Minute)
	return model.Task{
		ID:         id,
		OwnerID:    owner,
		Title:      "Essay",
		DueAt:      now.Add(2 * time.Hour),
		ReminderAt: &at,
		Status:     model.StatusPending,
		Priority:   model.PriorityMedium,
	}
}

func TestScanAndNotify_MarksDispatchedTasks(t *testing.T) {
	future := now.Add(time.Hour)
	notYet := dueTask("not-yet", "u1")
	notYet.ReminderAt = &future
	already := dueTask("already", "u1")
	already.ReminderSent = true
	noReminder := dueTask("none", "u1")
	noReminder.ReminderAt = nil

	tasks := newFakeTaskStore(dueTask("a", "u1"), dueTask("b", "u2"), notYet, already, noReminder)
	dispatcher := &fakeDispatcher{}
	scanner := NewScanner(tasks, dispatcher, Options{}, zaptest.NewLogger(t))

	result, err := scanner.ScanAndNotify(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Due: 2, Notified: 2}, result)
	assert.True(t, tasks.sent("a"))
	assert.True(t, tasks.sent("b"))
	assert.False(t, tasks.sent("not-yet"))
	assert.Equal(t, 2, dispatcher.count())

	// nothing left for the next cycle
	result, err = scanner.ScanAndNotify(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{}, result)
	assert.Equal(t, 2, dispatcher.count())
}

func TestScanAndNotify_DispatchFailureLeavesTaskDue(t *testing.T) {
	tasks := newFakeTaskStore(dueTask("a", "broken"), dueTask("b", "u2"))
	dispatcher := &fakeDispatcher{errs: map[string]error{"broken": errors.New("connection reset")}}
	scanner := NewScanner(tasks, dispatcher, Options{}, zaptest.NewLogger(t))

	result, err := scanner.ScanAndNotify(context.Background(), now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task a")
	assert.Equal(t, ScanResult{Due: 2, Notified: 1, Failed: 1}, result)
	assert.False(t, tasks.sent("a"))
	assert.True(t, tasks.sent("b"))
}

func TestScanAndNotify_MarkFailureRedispatchesNextCycle(t *testing.T) {
	markErr := &store.StorageError{Op: "mark reminder sent", Err: errors.New("deadlock detected")}
	tasks := newFakeTaskStore(dueTask("a", "u1"))
	tasks.markErr = markErr
	dispatcher := &fakeDispatcher{}
	scanner := NewScanner(tasks, dispatcher, Options{}, zaptest.NewLogger(t))

	result, err := scanner.ScanAndNotify(context.Background(), now)
	require.ErrorIs(t, err, markErr)
	assert.Equal(t, ScanResult{Due: 1, Failed: 1}, result)
	assert.False(t, tasks.sent("a"))

	tasks.markErr = nil
	result, err = scanner.ScanAndNotify(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Due: 1, Notified: 1}, result)
	assert.Equal(t, 2, dispatcher.count())
}

func TestScanAndNotify_QueryFailure(t *testing.T) {
	tasks := newFakeTaskStore(dueTask("a", "u1"))
	tasks.findErr = &store.StorageError{Op: "find due reminders", Err: errors.New("connection refused")}
	dispatcher := &fakeDispatcher{}
	scanner := NewScanner(tasks, dispatcher, Options{}, zaptest.NewLogger(t))

	_, err := scanner.ScanAndNotify(context.Background(), now)

	var storageErr *store.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Zero(t, dispatcher.count())
}

func TestScanAndNotify_OverlappingCyclesShareClaims(t *testing.T) {
	tasks := newFakeTaskStore(dueTask("a", "u1"))
	dispatcher := &fakeDispatcher{hold: make(chan struct{}), entered: make(chan struct{})}
	scanner := NewScanner(tasks, dispatcher, Options{}, zaptest.NewLogger(t))

	type outcome struct {
		result ScanResult
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		result, err := scanner.ScanAndNotify(context.Background(), now)
		first <- outcome{result, err}
	}()
	<-dispatcher.entered

	// the first cycle is mid-dispatch and has not marked the task yet
	result, err := scanner.ScanAndNotify(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, ScanResult{Due: 1, Skipped: 1}, result)

	close(dispatcher.hold)
	got := <-first
	require.NoError(t, got.err)
	assert.Equal(t, ScanResult{Due: 1, Notified: 1}, got.result)
	assert.Equal(t, 1, dispatcher.count())
	assert.True(t, tasks.sent("a"))
}

func TestScanAndNotify_SeparateScannersMayBothDispatch(t *testing.T) {
	tasks := newFakeTaskStore(dueTask("a", "u1"))
	var barrier sync.WaitGroup
	barrier.Add(2)
	tasks.findBarrier = &barrier
	dispatcher := &fakeDispatcher{}

	var wg sync.WaitGroup
	results := make([]ScanResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		scanner := NewScanner(tasks, dispatcher, Options{}, zaptest.NewLogger(t))
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = scanner.ScanAndNotify(context.Background(), now)
		}(i)
	}
	wg.Wait()

	for i := range errs {
		require.NoError(t, errs[i])
		assert.Equal(t, 1, results[i].Notified)
	}
	// both saw the task before either marked it; storage accepts only one mark
	assert.Equal(t, 2, dispatcher.count())
	assert.Equal(t, 1, tasks.marks)
	assert.True(t, tasks.sent("a"))
}

func TestScanAndNotify_CancelledContext(t *testing.T) {
	tasks := newFakeTaskStore(dueTask("a", "u1"))
	dispatcher := &fakeDispatcher{}
	scanner := NewScanner(tasks, dispatcher, Options{}, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := scanner.ScanAndNotify(ctx, now)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, dispatcher.count())
	assert.False(t, tasks.sent("a"))
}

func TestMessage(t *testing.T) {
	kyiv := time.FixedZone("EET", 2*60*60)
	scanner := NewScanner(newFakeTaskStore(), &fakeDispatcher{}, Options{Title: "Study planner", Location: kyiv}, zaptest.NewLogger(t))

	task := dueTask("a", "u1")
	task.Title = "Linear algebra"
	task.DueAt = time.Date(2024, 3, 9, 22, 30, 0, 0, time.UTC)

	msg := scanner.Message(task)
	assert.Equal(t, "Study planner", msg.Title)
	assert.Equal(t, "Task 'Linear algebra' is due by 10.03.2024 00:30", msg.Body)
	assert.Equal(t, webpush.UrgencyNormal, msg.Urgency)
}

func TestMessage_DefaultTitle(t *testing.T) {
	scanner := NewScanner(newFakeTaskStore(), &fakeDispatcher{}, Options{}, zaptest.NewLogger(t))

	msg := scanner.Message(dueTask("a", "u1"))
	assert.Equal(t, "Task reminder", msg.Title)
	assert.Equal(t, "Task 'Essay' is due by 01.01.2024 14:00", msg.Body)
}

func TestUrgency(t *testing.T) {
	tests := []struct {
		priority model.Priority
		want     webpush.Urgency
	}{
		{model.PriorityLow, webpush.UrgencyLow},
		{model.PriorityMedium, webpush.UrgencyNormal},
		{model.PriorityHigh, webpush.UrgencyHigh},
	}
	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			assert.Equal(t, tt.want, urgency(tt.priority))
		})
	}
}
