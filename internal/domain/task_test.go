package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewTask(t *testing.T) {
	t.Parallel() // Enable parallel execution

	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	task, err := NewTask("Water the plants", "the ones on the balcony", due, "")

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if task.Title != "Water the plants" {
		t.Errorf("Expected title %q, got %q", "Water the plants", task.Title)
	}

	if task.Notes != "the ones on the balcony" {
		t.Errorf("Expected notes %q, got %q", "the ones on the balcony", task.Notes)
	}

	if !task.DueDate.Equal(due) {
		t.Errorf("Expected due date %v, got %v", due, task.DueDate)
	}

	if task.Completed {
		t.Error("Expected new task to be incomplete")
	}

	if task.CompletedAt != nil {
		t.Error("Expected new task to have nil CompletedAt")
	}

	if task.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}

	if task.IsRecurring {
		t.Error("Expected task without recurrence to be non-recurring")
	}

	if task.Tags == nil || len(task.Tags) != 0 {
		t.Errorf("Expected empty tag list, got %v", task.Tags)
	}
}

func TestNewTaskRecurring(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	task, err := NewTask("Take out the trash", "", due, RecurrenceWeekly)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !task.IsRecurring {
		t.Error("Expected task with recurrence to be recurring")
	}

	if task.RecurrenceType != RecurrenceWeekly {
		t.Errorf("Expected recurrence type %q, got %q", RecurrenceWeekly, task.RecurrenceType)
	}
}

func TestNewTaskEmptyTitle(t *testing.T) {
	t.Parallel()

	_, err := NewTask("", "", time.Now(), "")
	if err != ErrTaskTitleEmpty {
		t.Errorf("Expected error %v, got %v", ErrTaskTitleEmpty, err)
	}
}

func TestNewTaskInvalidRecurrence(t *testing.T) {
	t.Parallel()

	_, err := NewTask("Stretch", "", time.Now(), RecurrenceType("fortnightly"))
	if err != ErrTaskRecurrenceMissing {
		t.Errorf("Expected error %v, got %v", ErrTaskRecurrenceMissing, err)
	}
}

func TestTaskValidate(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	validTask := Task{
		ID:        uuid.New(),
		Title:     "Read a chapter",
		DueDate:   now,
		CreatedAt: now,
	}

	if err := validTask.Validate(); err != nil {
		t.Errorf("Expected valid task to pass validation, got %v", err)
	}

	// Completed without a timestamp violates the completion invariant.
	completed := validTask
	completed.Completed = true
	if err := completed.Validate(); err != ErrTaskCompletedAtMissing {
		t.Errorf("Expected error %v, got %v", ErrTaskCompletedAtMissing, err)
	}

	// A timestamp without the completed flag is equally invalid.
	stamped := validTask
	stamped.CompletedAt = &now
	if err := stamped.Validate(); err != ErrTaskCompletedAtSet {
		t.Errorf("Expected error %v, got %v", ErrTaskCompletedAtSet, err)
	}

	// A recurrence type on a non-recurring task is rejected.
	tagged := validTask
	tagged.RecurrenceType = RecurrenceDaily
	if err := tagged.Validate(); err != ErrTaskRecurrenceSet {
		t.Errorf("Expected error %v, got %v", ErrTaskRecurrenceSet, err)
	}
}

func TestTaskCompleteUncomplete(t *testing.T) {
	t.Parallel()

	task, err := NewTask("File expenses", "", time.Now(), "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	at := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	task.Complete(at)

	if !task.Completed {
		t.Error("Expected task to be completed")
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(at) {
		t.Errorf("Expected CompletedAt %v, got %v", at, task.CompletedAt)
	}
	if err := task.Validate(); err != nil {
		t.Errorf("Expected completed task to remain valid, got %v", err)
	}

	task.Uncomplete()

	if task.Completed {
		t.Error("Expected task to be incomplete after Uncomplete")
	}
	if task.CompletedAt != nil {
		t.Error("Expected CompletedAt to be cleared after Uncomplete")
	}
}

func TestTaskNextOccurrence(t *testing.T) {
	t.Parallel()

	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	task, err := NewTask("Weekly review", "agenda in notes", due, RecurrenceWeekly)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	task.Tags = []string{"work"}

	now := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	next, err := task.NextOccurrence(now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if next.ID == task.ID {
		t.Error("Expected next occurrence to have a fresh ID")
	}
	if next.Title != task.Title || next.Notes != task.Notes {
		t.Error("Expected next occurrence to keep title and notes")
	}
	wantDue := time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)
	if !next.DueDate.Equal(wantDue) {
		t.Errorf("Expected due date %v, got %v", wantDue, next.DueDate)
	}
	if next.Completed || next.CompletedAt != nil {
		t.Error("Expected next occurrence to be incomplete")
	}
	if !next.CreatedAt.Equal(now) {
		t.Errorf("Expected CreatedAt %v, got %v", now, next.CreatedAt)
	}
	if next.RecurrenceType != RecurrenceWeekly {
		t.Errorf("Expected recurrence type %q, got %q", RecurrenceWeekly, next.RecurrenceType)
	}

	// Mutating the copy's tags must not touch the original.
	next.Tags[0] = "home"
	if task.Tags[0] != "work" {
		t.Error("Expected original tags to be unchanged")
	}
}

func TestTaskNextOccurrenceNonRecurring(t *testing.T) {
	t.Parallel()

	task, err := NewTask("One-off errand", "", time.Now(), "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := task.NextOccurrence(time.Now()); err != ErrTaskRecurrenceMissing {
		t.Errorf("Expected error %v, got %v", ErrTaskRecurrenceMissing, err)
	}
}

func TestTaskClone(t *testing.T) {
	t.Parallel()

	task, err := NewTask("Backup photos", "", time.Now(), "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	task.Tags = []string{"chores"}
	task.Complete(time.Now())

	clone := task.Clone()
	clone.Uncomplete()
	clone.Tags[0] = "other"

	if !task.Completed || task.CompletedAt == nil {
		t.Error("Expected original completion state to survive clone mutation")
	}
	if task.Tags[0] != "chores" {
		t.Error("Expected original tags to survive clone mutation")
	}
}
