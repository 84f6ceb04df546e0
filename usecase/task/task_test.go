package task

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/repository"
)

type memTasks struct {
	mu      sync.Mutex
	tasks   map[string]domain.Task
	nextID  int
	listErr error
	dueErr  error
}

func newMemTasks() *memTasks {
	return &memTasks{tasks: map[string]domain.Task{}}
}

func (m *memTasks) GetByID(_ context.Context, userID, id string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return nil, domain.ErrTaskNotFound
	}
	return &task, nil
}

func (m *memTasks) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []domain.Task
	for _, task := range m.tasks {
		if filter.UserID == "" || task.UserID == filter.UserID {
			out = append(out, task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memTasks) ListDueWithin(_ context.Context, userID string, now time.Time, windowDays int) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dueErr != nil {
		return nil, m.dueErr
	}
	from, to := repository.DueRange(now, windowDays)
	var out []domain.Task
	for _, task := range m.tasks {
		if task.UserID != userID || task.IsCompleted() || !task.HasDueDate() {
			continue
		}
		if !task.DueDate.Before(from) && task.DueDate.Before(to) {
			out = append(out, task)
		}
	}
	return out, nil
}

func (m *memTasks) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if task.ID == "" {
		task.ID = "task-" + strconv.Itoa(m.nextID)
	}
	task.Priority = task.Priority.OrDefault()
	m.tasks[task.ID] = *task
	return task, nil
}

func (m *memTasks) Update(_ context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return domain.ErrTaskNotFound
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *memTasks) Delete(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.tasks[id]
	if !ok || existing.UserID != userID {
		return domain.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

func (m *memTasks) Ping(context.Context) error { return nil }

type recorder struct {
	mu        sync.Mutex
	triggered []string
	cancelled []string
	err       error
}

func (r *recorder) Trigger(_ context.Context, userID string, task domain.Task, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggered = append(r.triggered, domain.NotificationID(userID, task.ID))
	return r.err
}

func (r *recorder) Cancel(_ context.Context, userID, taskID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = append(r.cancelled, domain.NotificationID(userID, taskID))
	return true, r.err
}

var now = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func at(days int) *time.Time {
	t := now.AddDate(0, 0, days)
	return &t
}

func seed(repo *memTasks, tasks ...domain.Task) {
	for _, task := range tasks {
		repo.tasks[task.ID] = task
	}
}

func TestListTasksRefreshesDueReminders(t *testing.T) {
	repo := newMemTasks()
	seed(repo,
		domain.Task{ID: "soon", UserID: "u1", DueDate: at(1)},
		domain.Task{ID: "later", UserID: "u1", DueDate: at(7)},
		domain.Task{ID: "done", UserID: "u1", Status: domain.TaskStatusCompleted, DueDate: at(0)},
		domain.Task{ID: "undated", UserID: "u1"},
		domain.Task{ID: "other", UserID: "u2", DueDate: at(0)},
	)
	rec := &recorder{}
	uc := New(repo, rec, rec, 2, nil)

	tasks, err := uc.ListTasks(context.Background(), repository.TaskFilter{UserID: "u1"}, now)
	require.NoError(t, err)
	assert.Len(t, tasks, 4)
	assert.Equal(t, []string{"u1:soon"}, rec.triggered)
}

func TestListTasksIgnoresReminderFailures(t *testing.T) {
	repo := newMemTasks()
	seed(repo, domain.Task{ID: "soon", UserID: "u1", DueDate: at(0)})
	rec := &recorder{err: errors.New("redis down")}
	uc := New(repo, rec, rec, 2, nil)

	tasks, err := uc.ListTasks(context.Background(), repository.TaskFilter{UserID: "u1"}, now)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	repo.dueErr = errors.New("query failed")
	_, err = uc.ListTasks(context.Background(), repository.TaskFilter{UserID: "u1"}, now)
	assert.NoError(t, err)
}

func TestListTasksPropagatesStoreFailure(t *testing.T) {
	repo := newMemTasks()
	repo.listErr = domain.Unavailable("task store", errors.New("timeout"))
	rec := &recorder{}
	uc := New(repo, rec, rec, 2, nil)

	_, err := uc.ListTasks(context.Background(), repository.TaskFilter{UserID: "u1"}, now)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeUnavailable))
	assert.Empty(t, rec.triggered)
}

func TestCreateTaskTriggersScheduling(t *testing.T) {
	repo := newMemTasks()
	rec := &recorder{}
	uc := New(repo, rec, rec, 2, nil)

	created, err := uc.CreateTask(context.Background(), &domain.Task{UserID: "u1", Title: "Buy milk", DueDate: at(0)}, now)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, created.Status)
	assert.Equal(t, domain.PriorityMedium, created.Priority)
	assert.Equal(t, []string{"u1:" + created.ID}, rec.triggered)

	_, err = uc.CreateTask(context.Background(), &domain.Task{Title: "anonymous"}, now)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestUpdateTaskCompletionCancelsReminder(t *testing.T) {
	repo := newMemTasks()
	seed(repo, domain.Task{ID: "t1", UserID: "u1", DueDate: at(1)})
	rec := &recorder{}
	uc := New(repo, rec, rec, 2, nil)

	_, err := uc.UpdateTask(context.Background(), &domain.Task{ID: "t1", UserID: "u1", Title: "renamed", DueDate: at(1)}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1:t1"}, rec.triggered)
	assert.Empty(t, rec.cancelled)

	_, err = uc.UpdateTask(context.Background(), &domain.Task{ID: "t1", UserID: "u1", Status: domain.TaskStatusCompleted}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1:t1"}, rec.cancelled)
}

func TestCompleteTask(t *testing.T) {
	repo := newMemTasks()
	seed(repo, domain.Task{ID: "t1", UserID: "u1", Status: domain.TaskStatusPending})
	rec := &recorder{}
	uc := New(repo, rec, rec, 2, nil)

	task, err := uc.CompleteTask(context.Background(), "u1", "t1")
	require.NoError(t, err)
	assert.True(t, task.IsCompleted())
	assert.Equal(t, []string{"u1:t1"}, rec.cancelled)

	_, err = uc.CompleteTask(context.Background(), "u2", "t1")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestDeleteTaskCancelsReminder(t *testing.T) {
	repo := newMemTasks()
	seed(repo, domain.Task{ID: "t1", UserID: "u1"})
	rec := &recorder{err: errors.New("redis down")}
	uc := New(repo, rec, rec, 2, nil)

	require.NoError(t, uc.DeleteTask(context.Background(), "u1", "t1"), "reminder cleanup failure is logged only")
	assert.Equal(t, []string{"u1:t1"}, rec.cancelled)

	err := uc.DeleteTask(context.Background(), "u1", "t1")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.Len(t, rec.cancelled, 1)
}

func TestUseCaseWithoutReminders(t *testing.T) {
	repo := newMemTasks()
	seed(repo, domain.Task{ID: "t1", UserID: "u1", DueDate: at(0)})
	uc := New(repo, nil, nil, 2, nil)

	_, err := uc.ListTasks(context.Background(), repository.TaskFilter{UserID: "u1"}, now)
	require.NoError(t, err)
	require.NoError(t, uc.DeleteTask(context.Background(), "u1", "t1"))
}
