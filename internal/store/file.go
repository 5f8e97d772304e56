package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/daykeep/daykeep-api/internal/domain"
)

// FileTaskStore is a TaskStore backed by a single JSON blob on disk. The
// task list lives in memory; every successful mutation rewrites the blob so
// that a restart picks up where the previous run left off. Writes go through
// a temp file and rename so a crash mid-write never leaves a truncated blob.
type FileTaskStore struct {
	path  string
	mu    sync.RWMutex
	tasks []domain.Task
}

// NewFileTaskStore opens the task blob at path, creating parent directories
// as needed. A missing blob is the brand-new-install case and yields an
// empty list, not an error. Returns ErrMalformedData if the blob exists but
// is not a JSON task array.
func NewFileTaskStore(path string) (*FileTaskStore, error) {
	s := &FileTaskStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrStorageFailed, path, err)
	}

	var tasks []domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedData, err)
	}
	s.tasks = tasks

	return s, nil
}

// List returns a snapshot of the current task list in store order.
func (s *FileTaskStore) List(ctx context.Context) ([]domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.tasks), nil
}

// Replace swaps the entire task list for the given one and persists it.
func (s *FileTaskStore) Replace(ctx context.Context, tasks []domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := cloneTasks(tasks)
	if err := s.persist(replaced); err != nil {
		return err
	}
	s.tasks = replaced
	return nil
}

// Transform applies fn to a copy of the task list under the write lock and
// commits fn's result. The list is unchanged if fn or persistence fails.
func (s *FileTaskStore) Transform(
	ctx context.Context,
	fn func(tasks []domain.Task) ([]domain.Task, error),
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(cloneTasks(s.tasks))
	if err != nil {
		return err
	}

	if err := s.persist(next); err != nil {
		return err
	}
	s.tasks = next
	return nil
}

// persist writes the given list to the blob file atomically. Callers must
// hold the write lock.
func (s *FileTaskStore) persist(tasks []domain.Task) error {
	if tasks == nil {
		tasks = []domain.Task{}
	}

	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding tasks: %v", ErrStorageFailed, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrStorageFailed, dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tasks-*.json")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", ErrStorageFailed, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: writing temp file: %v", ErrStorageFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: closing temp file: %v", ErrStorageFailed, err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: replacing %s: %v", ErrStorageFailed, s.path, err)
	}

	return nil
}

func cloneTasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for i := range tasks {
		out = append(out, tasks[i].Clone())
	}
	return out
}
