package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskTitleEmpty is returned when a task's title is empty.
	ErrTaskTitleEmpty = errors.New("task title cannot be empty")

	// ErrTaskCompletedAtMissing is returned when a completed task has no
	// completion timestamp.
	ErrTaskCompletedAtMissing = errors.New("completed task must have a completion timestamp")

	// ErrTaskCompletedAtSet is returned when an incomplete task carries a
	// completion timestamp.
	ErrTaskCompletedAtSet = errors.New("incomplete task cannot have a completion timestamp")

	// ErrTaskRecurrenceMissing is returned when a recurring task has no
	// recurrence type.
	ErrTaskRecurrenceMissing = errors.New("recurring task must have a recurrence type")

	// ErrTaskRecurrenceSet is returned when a non-recurring task carries a
	// recurrence type.
	ErrTaskRecurrenceSet = errors.New("non-recurring task cannot have a recurrence type")
)

// Task represents a single to-do item with a due date and completion state.
// Tasks are the sole entity of the system; they are held as a flat ordered
// list in the task store and mirrored as a JSON array both locally and in
// the remote document.
type Task struct {
	ID             uuid.UUID      `json:"id"`
	Title          string         `json:"title"`
	Notes          string         `json:"notes"`
	DueDate        time.Time      `json:"due_date"`
	Completed      bool           `json:"completed"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	IsRecurring    bool           `json:"is_recurring"`
	RecurrenceType RecurrenceType `json:"recurrence_type,omitempty"`
	Tags           []string       `json:"tags"`
}

// NewTask creates a new Task with the given title, notes, due date, and
// optional recurrence type. It generates a new UUID for the task ID and sets
// the creation timestamp. A non-empty recurrence type marks the task as
// recurring. Returns an error if validation fails.
func NewTask(title, notes string, dueDate time.Time, recurrence RecurrenceType) (*Task, error) {
	task := &Task{
		ID:             uuid.New(),
		Title:          title,
		Notes:          notes,
		DueDate:        dueDate,
		Completed:      false,
		CompletedAt:    nil,
		CreatedAt:      time.Now().UTC(),
		IsRecurring:    recurrence != "",
		RecurrenceType: recurrence,
		Tags:           []string{},
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data and satisfies the entity
// invariants: CompletedAt is set exactly when Completed is true, and
// RecurrenceType is set exactly when IsRecurring is true.
// Returns an error if any invariant is violated.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.Title == "" {
		return ErrTaskTitleEmpty
	}

	if t.Completed && t.CompletedAt == nil {
		return ErrTaskCompletedAtMissing
	}

	if !t.Completed && t.CompletedAt != nil {
		return ErrTaskCompletedAtSet
	}

	if t.IsRecurring {
		if !t.RecurrenceType.Valid() {
			return ErrTaskRecurrenceMissing
		}
	} else if t.RecurrenceType != "" {
		return ErrTaskRecurrenceSet
	}

	return nil
}

// Complete marks the task as done at the given time.
func (t *Task) Complete(at time.Time) {
	at = at.UTC()
	t.Completed = true
	t.CompletedAt = &at
}

// Uncomplete clears the task's completion state. It does not retract any
// recurring sibling that completing the task may have created.
func (t *Task) Uncomplete() {
	t.Completed = false
	t.CompletedAt = nil
}

// NextOccurrence builds the follow-up task spawned when a recurring task is
// completed: same title, notes, recurrence, and tags, a fresh ID, and a due
// date advanced from the receiver's pre-completion due date by one recurrence
// interval. Returns an error if the receiver is not recurring.
func (t *Task) NextOccurrence(now time.Time) (*Task, error) {
	if !t.IsRecurring || !t.RecurrenceType.Valid() {
		return nil, ErrTaskRecurrenceMissing
	}

	next := &Task{
		ID:             uuid.New(),
		Title:          t.Title,
		Notes:          t.Notes,
		DueDate:        NextDueDate(t.DueDate, t.RecurrenceType),
		Completed:      false,
		CompletedAt:    nil,
		CreatedAt:      now.UTC(),
		IsRecurring:    true,
		RecurrenceType: t.RecurrenceType,
		Tags:           append([]string{}, t.Tags...),
	}

	return next, nil
}

// Clone returns a deep copy of the task. Tags are copied so that mutating
// the clone never aliases the original.
func (t *Task) Clone() Task {
	c := *t
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	c.Tags = append([]string{}, t.Tags...)
	return c
}
