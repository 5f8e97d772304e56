package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/daykeep/daykeep-api/internal/domain"
	"github.com/daykeep/daykeep-api/internal/store"
)

// CompletedRetention is how long completed tasks remain visible and synced.
// Tasks completed longer ago are dropped from the completed view and pruned
// during pull-time reconciliation.
const CompletedRetention = 30 * 24 * time.Hour

// AddTaskParams carries the user-supplied fields for a new task.
type AddTaskParams struct {
	Title      string
	Notes      string
	DueDate    time.Time
	Recurrence domain.RecurrenceType
}

// UpdateTaskParams carries a partial update; nil fields are left unchanged.
// Setting Recurrence to the empty string clears the recurrence.
type UpdateTaskParams struct {
	Title      *string
	Notes      *string
	DueDate    *time.Time
	Recurrence *domain.RecurrenceType
	Tags       *[]string
}

// TaskService provides the task operations the delivery layer calls into.
// All mutations go through the task store and fire the registered change
// listener so the reconciliation engine can schedule a debounced push.
type TaskService interface {
	// AddTask constructs a task with a fresh ID and appends it to the
	// store. An empty title is rejected with domain.ErrTaskTitleEmpty and
	// leaves the store untouched.
	AddTask(ctx context.Context, params AddTaskParams) (*domain.Task, error)

	// UpdateTask merges the given fields into the task matching id.
	// Returns store.ErrTaskNotFound, with no store change, if absent.
	UpdateTask(ctx context.Context, id uuid.UUID, params UpdateTaskParams) (*domain.Task, error)

	// DeleteTask removes the task matching id. Returns
	// store.ErrTaskNotFound, with no store change, if absent.
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// CompleteTask marks the task done. If the task is recurring, the
	// follow-up occurrence is inserted within the same store update; the
	// returned next task is nil otherwise.
	CompleteTask(ctx context.Context, id uuid.UUID) (completed *domain.Task, next *domain.Task, err error)

	// UncompleteTask clears the task's completion state. It does not
	// retract any recurring follow-up already created.
	UncompleteTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListTasks returns every task in store order.
	ListTasks(ctx context.Context) ([]domain.Task, error)

	// TodayTasks returns incomplete tasks due today or earlier; overdue
	// tasks roll into today.
	TodayTasks(ctx context.Context) ([]domain.Task, error)

	// UpcomingTasks returns incomplete tasks due after today, sorted
	// ascending by due date.
	UpcomingTasks(ctx context.Context) ([]domain.Task, error)

	// CompletedTasks returns tasks completed within the retention window,
	// sorted descending by completion time.
	CompletedTasks(ctx context.Context) ([]domain.Task, error)

	// SetChangeListener registers the callback fired after every
	// successful mutation. At most one listener is held; the
	// reconciliation engine registers itself here at startup.
	SetChangeListener(fn func())
}

// taskServiceImpl implements the TaskService interface.
type taskServiceImpl struct {
	store   store.TaskStore
	logger  *slog.Logger
	now     func() time.Time
	changed func()
}

// NewTaskService creates a TaskService backed by the given store.
func NewTaskService(taskStore store.TaskStore, logger *slog.Logger) TaskService {
	return &taskServiceImpl{
		store:  taskStore,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *taskServiceImpl) SetChangeListener(fn func()) {
	s.changed = fn
}

func (s *taskServiceImpl) notifyChange() {
	if s.changed != nil {
		s.changed()
	}
}

func (s *taskServiceImpl) AddTask(ctx context.Context, params AddTaskParams) (*domain.Task, error) {
	// Title validation normally happens in the delivery layer, but the
	// core guards anyway.
	task, err := domain.NewTask(params.Title, params.Notes, params.DueDate, params.Recurrence)
	if err != nil {
		return nil, err
	}

	err = s.store.Transform(ctx, func(tasks []domain.Task) ([]domain.Task, error) {
		return append(tasks, *task), nil
	})
	if err != nil {
		return nil, NewTaskServiceError("add", "storing new task", err)
	}

	s.logger.Debug("task added", "task_id", task.ID, "due_date", task.DueDate)
	s.notifyChange()
	return task, nil
}

func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	id uuid.UUID,
	params UpdateTaskParams,
) (*domain.Task, error) {
	var updated *domain.Task

	err := s.store.Transform(ctx, func(tasks []domain.Task) ([]domain.Task, error) {
		i := indexByID(tasks, id)
		if i < 0 {
			return nil, store.ErrTaskNotFound
		}

		task := &tasks[i]
		if params.Title != nil {
			if *params.Title == "" {
				return nil, domain.ErrTaskTitleEmpty
			}
			task.Title = *params.Title
		}
		if params.Notes != nil {
			task.Notes = *params.Notes
		}
		if params.DueDate != nil {
			task.DueDate = *params.DueDate
		}
		if params.Recurrence != nil {
			task.RecurrenceType = *params.Recurrence
			task.IsRecurring = *params.Recurrence != ""
		}
		if params.Tags != nil {
			task.Tags = append([]string{}, (*params.Tags)...)
		}

		if err := task.Validate(); err != nil {
			return nil, err
		}

		t := task.Clone()
		updated = &t
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("task updated", "task_id", id)
	s.notifyChange()
	return updated, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, id uuid.UUID) error {
	err := s.store.Transform(ctx, func(tasks []domain.Task) ([]domain.Task, error) {
		i := indexByID(tasks, id)
		if i < 0 {
			return nil, store.ErrTaskNotFound
		}
		return append(tasks[:i], tasks[i+1:]...), nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("task deleted", "task_id", id)
	s.notifyChange()
	return nil
}

func (s *taskServiceImpl) CompleteTask(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Task, *domain.Task, error) {
	var completed, next *domain.Task
	now := s.now()

	err := s.store.Transform(ctx, func(tasks []domain.Task) ([]domain.Task, error) {
		i := indexByID(tasks, id)
		if i < 0 {
			return nil, store.ErrTaskNotFound
		}

		task := &tasks[i]

		// The follow-up's due date is derived from the pre-completion
		// due date, so build it before mutating the task.
		if task.IsRecurring && task.RecurrenceType.Valid() && !task.Completed {
			occurrence, err := task.NextOccurrence(now)
			if err != nil {
				return nil, err
			}
			next = occurrence
		}

		task.Complete(now)
		c := task.Clone()
		completed = &c

		if next != nil {
			tasks = append(tasks, *next)
		}
		return tasks, nil
	})
	if err != nil {
		return nil, nil, err
	}

	if next != nil {
		s.logger.Debug("recurring task completed, follow-up created",
			"task_id", id,
			"next_task_id", next.ID,
			"next_due_date", next.DueDate)
	} else {
		s.logger.Debug("task completed", "task_id", id)
	}
	s.notifyChange()
	return completed, next, nil
}

func (s *taskServiceImpl) UncompleteTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var updated *domain.Task

	err := s.store.Transform(ctx, func(tasks []domain.Task) ([]domain.Task, error) {
		i := indexByID(tasks, id)
		if i < 0 {
			return nil, store.ErrTaskNotFound
		}

		tasks[i].Uncomplete()
		t := tasks[i].Clone()
		updated = &t
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("task uncompleted", "task_id", id)
	s.notifyChange()
	return updated, nil
}

func (s *taskServiceImpl) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return s.store.List(ctx)
}

func (s *taskServiceImpl) TodayTasks(ctx context.Context) ([]domain.Task, error) {
	tasks, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := startOfNextDay(s.now())
	out := make([]domain.Task, 0)
	for _, t := range tasks {
		if !t.Completed && t.DueDate.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *taskServiceImpl) UpcomingTasks(ctx context.Context) ([]domain.Task, error) {
	tasks, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := startOfNextDay(s.now())
	out := make([]domain.Task, 0)
	for _, t := range tasks {
		if !t.Completed && !t.DueDate.Before(cutoff) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out, nil
}

func (s *taskServiceImpl) CompletedTasks(ctx context.Context) ([]domain.Task, error) {
	tasks, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	oldest := s.now().Add(-CompletedRetention)
	out := make([]domain.Task, 0)
	for _, t := range tasks {
		if t.Completed && t.CompletedAt != nil && t.CompletedAt.After(oldest) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletedAt.After(*out[j].CompletedAt)
	})
	return out, nil
}

// startOfNextDay returns midnight UTC of the day after t; a due date before
// it is due today or overdue.
func startOfNextDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func indexByID(tasks []domain.Task, id uuid.UUID) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
