// Package sync implements the merge/reconciliation engine that keeps the
// local task store and the remote document in agreement. The remote is a
// coarse whole-document overwrite target with no server-side merge, so the
// engine serializes pulls and pushes through a small explicit state
// machine, and debounces network traffic so rapid edits coalesce into one
// push.
package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/daykeep/daykeep-api/internal/domain"
	"github.com/daykeep/daykeep-api/internal/redact"
	"github.com/daykeep/daykeep-api/internal/service"
	"github.com/daykeep/daykeep-api/internal/store"
)

// State identifies what the engine is doing right now.
type State string

// Engine states. Legal transitions:
//
//	Idle -> Pulling            (mount, focus regain, explicit pull)
//	Idle -> Pushing            (push debounce fired, explicit push)
//	Pulling -> PullingThenPush (push requested while a pull is in flight;
//	                            the push waits once for the pull to finish)
//	Pulling -> Idle
//	PullingThenPush -> Pushing -> Idle
//	Pushing -> Idle
//
// While Pushing, a pull trigger is dropped: applying a pull mid-push could
// clobber the snapshot the push is sending. While Pulling, another pull
// trigger is dropped: a pull in progress is not restarted.
const (
	StateIdle            State = "idle"
	StatePulling         State = "pulling"
	StatePushing         State = "pushing"
	StatePullingThenPush State = "pulling_then_push"
)

// ErrBusy is returned by PullNow when a pull or push is already in flight
// and the requested pull was dropped. Background triggers swallow it; the
// explicit "load now" action surfaces it so the caller can retry instead of
// mistaking a dropped pull for a successful load.
var ErrBusy = errors.New("sync engine busy")

// RemoteClient is the slice of the remote sync client the engine drives.
type RemoteClient interface {
	Pull(ctx context.Context, creds store.Credentials) ([]domain.Task, error)
	Push(ctx context.Context, tasks []domain.Task, creds store.Credentials) error
}

// Config holds the engine's timing knobs.
type Config struct {
	// PushDebounce delays local-change-driven pushes so rapid successive
	// edits coalesce into one push.
	PushDebounce time.Duration

	// PullDelay delays focus-regain pulls to let any in-flight local push
	// finish first.
	PullDelay time.Duration

	// GraceWindow is how long after local creation a task is protected
	// from being discarded by a stale remote pull.
	GraceWindow time.Duration

	// Retention is how long completed tasks are kept before pull-time
	// pruning.
	Retention time.Duration
}

// DefaultConfig returns a Config with the standard timings.
func DefaultConfig() Config {
	return Config{
		PushDebounce: 1 * time.Second,
		PullDelay:    2 * time.Second,
		GraceWindow:  5 * time.Second,
		Retention:    service.CompletedRetention,
	}
}

// Status is a point-in-time description of the engine for the delivery
// layer.
type Status struct {
	State        State      `json:"state"`
	Ready        bool       `json:"ready"`
	Configured   bool       `json:"configured"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// Engine coordinates the task store, the remote client, and the credential
// store. All state fields are guarded by mu; network requests run outside
// the lock and their results are checked against current state before being
// applied. Safe for concurrent use.
type Engine struct {
	taskStore store.TaskStore
	credStore store.CredentialStore
	remote    RemoteClient
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time

	mu           stdsync.Mutex
	state        State
	ready        bool
	lastSynced   []byte             // serialized baseline for change detection
	baselineIDs  map[uuid.UUID]bool // IDs in the baseline, for deletion honoring
	lastSyncedAt *time.Time
	lastErr      error
	pushTimer    *time.Timer
	pullTimer    *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     stdsync.WaitGroup
}

// NewEngine creates a reconciliation engine. Zero durations in cfg are
// replaced with the defaults.
func NewEngine(
	taskStore store.TaskStore,
	credStore store.CredentialStore,
	remote RemoteClient,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	def := DefaultConfig()
	if cfg.PushDebounce == 0 {
		cfg.PushDebounce = def.PushDebounce
	}
	if cfg.PullDelay == 0 {
		cfg.PullDelay = def.PullDelay
	}
	if cfg.GraceWindow == 0 {
		cfg.GraceWindow = def.GraceWindow
	}
	if cfg.Retention == 0 {
		cfg.Retention = def.Retention
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		taskStore:   taskStore,
		credStore:   credStore,
		remote:      remote,
		cfg:         cfg,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		state:       StateIdle,
		baselineIDs: map[uuid.UUID]bool{},
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start runs the mount reconciliation. If sync is not configured the store
// is marked ready and no remote interaction happens; local mutations then
// operate purely on the local store. If configured, the remote list is
// pulled, pruned, and merged into the local store. The store is marked
// ready regardless of pull success: a failed pull falls back to whatever
// local state exists, and the error is logged, not returned.
func (e *Engine) Start(ctx context.Context) {
	creds := e.credentials(ctx)
	if !creds.Configured() {
		e.mu.Lock()
		e.ready = true
		e.mu.Unlock()
		e.logger.Info("sync not configured, operating on local store only")
		return
	}

	if err := e.pull(ctx); err != nil {
		e.logger.Warn("mount pull failed, falling back to local state", "error", redact.Error(err))
	}

	e.mu.Lock()
	e.ready = true
	e.mu.Unlock()
}

// Stop cancels pending debounce timers and waits for in-flight work.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.pushTimer != nil {
		e.pushTimer.Stop()
	}
	if e.pullTimer != nil {
		e.pullTimer.Stop()
	}
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
}

// NotifyChange schedules a debounced push. Each call resets the timer, so a
// burst of edits results in a single push after the debounce elapses.
func (e *Engine) NotifyChange() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pushTimer != nil {
		e.pushTimer.Stop()
	}
	e.pushTimer = time.AfterFunc(e.cfg.PushDebounce, func() {
		e.wg.Add(1)
		defer e.wg.Done()
		if err := e.push(e.ctx); err != nil {
			e.logger.Warn("debounced push failed, will retry on next change", "error", redact.Error(err))
		}
	})
}

// NotifyActive schedules a delayed refresh pull. The delivery layer calls
// this when the application regains focus; the delay lets an in-flight
// local push finish first.
func (e *Engine) NotifyActive() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pullTimer != nil {
		e.pullTimer.Stop()
	}
	e.pullTimer = time.AfterFunc(e.cfg.PullDelay, func() {
		e.wg.Add(1)
		defer e.wg.Done()
		if err := e.pull(e.ctx); err != nil && !errors.Is(err, ErrBusy) {
			e.logger.Warn("refresh pull failed", "error", redact.Error(err))
		}
	})
}

// PullNow runs a pull immediately and surfaces the error. Used by the
// explicit "load now" action. Returns ErrBusy when the pull was dropped
// because a pull or push is already in flight.
func (e *Engine) PullNow(ctx context.Context) error {
	return e.pull(ctx)
}

// PushNow runs a push immediately and surfaces the error. Used by the
// explicit "push now" action.
func (e *Engine) PushNow(ctx context.Context) error {
	return e.push(ctx)
}

// Status reports the engine's current state.
func (e *Engine) Status(ctx context.Context) Status {
	configured := e.credentials(ctx).Configured()

	e.mu.Lock()
	defer e.mu.Unlock()

	s := Status{
		State:        e.state,
		Ready:        e.ready,
		Configured:   configured,
		LastSyncedAt: e.lastSyncedAt,
	}
	if e.lastErr != nil {
		s.LastError = e.lastErr.Error()
	}
	return s
}

// pull fetches the remote list, prunes it, and reconciles it into the task
// store atomically. Returns ErrBusy without touching the store when another
// pull is already in flight or a push is in flight; returns nil when sync
// is not configured.
func (e *Engine) pull(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case StatePulling, StatePullingThenPush:
		// A pull in progress is not restarted.
		e.mu.Unlock()
		return ErrBusy
	case StatePushing:
		// A pull must not overwrite the store while a push is reading it;
		// yield the current store unchanged.
		e.mu.Unlock()
		return ErrBusy
	}
	e.state = StatePulling
	e.mu.Unlock()

	err := e.doPull(ctx)

	e.mu.Lock()
	queuedPush := e.state == StatePullingThenPush
	e.state = StateIdle
	e.lastErr = err
	e.mu.Unlock()

	if queuedPush {
		// A local change arrived mid-pull; run the push it asked for.
		if pushErr := e.push(ctx); pushErr != nil {
			e.logger.Warn("push after pull failed", "error", redact.Error(pushErr))
		}
	}

	return err
}

// doPull runs the network and merge work of a pull. Callers own the state
// transitions.
func (e *Engine) doPull(ctx context.Context) error {
	creds := e.credentials(ctx)
	if !creds.Configured() {
		return nil
	}

	remoteTasks, err := e.remote.Pull(ctx, creds)
	if err != nil {
		return fmt.Errorf("pulling remote tasks: %w", err)
	}

	now := e.now()
	pruned := PruneCompleted(remoteTasks, now, e.cfg.Retention)

	e.mu.Lock()
	baseline := e.baselineIDs
	e.mu.Unlock()

	var merged []domain.Task
	var unsynced bool
	err = e.taskStore.Transform(ctx, func(local []domain.Task) ([]domain.Task, error) {
		merged, unsynced = Merge(pruned, local, baseline, now, e.cfg.GraceWindow)
		return merged, nil
	})
	if err != nil {
		return fmt.Errorf("applying merged tasks: %w", err)
	}

	if unsynced {
		// The merge preserved local state the remote lacks. Leaving the
		// baseline at its prior value keeps those changes recognized as
		// outstanding, so the next push cycle sends them.
		e.logger.Debug("pull merged with unsynced local changes, baseline unchanged",
			"task_count", len(merged))
		return nil
	}

	data, err := snapshot(merged)
	if err != nil {
		return fmt.Errorf("serializing merged tasks: %w", err)
	}

	syncedAt := now
	e.mu.Lock()
	e.lastSynced = data
	e.baselineIDs = taskIDs(merged)
	e.lastSyncedAt = &syncedAt
	e.mu.Unlock()

	e.logger.Debug("pull reconciled", "task_count", len(merged))
	return nil
}

// push sends the current task list to the remote when it differs from the
// last synced baseline. If a pull is in flight the push queues behind it
// (once); if a push is already in flight the call is dropped and the stale
// baseline causes a retry on the next change event.
func (e *Engine) push(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case StatePulling:
		// Wait once for the pull to finish; it triggers the push.
		e.state = StatePullingThenPush
		e.mu.Unlock()
		return nil
	case StatePullingThenPush, StatePushing:
		e.mu.Unlock()
		return nil
	}
	e.state = StatePushing
	e.mu.Unlock()

	err := e.doPush(ctx)

	e.mu.Lock()
	e.state = StateIdle
	e.lastErr = err
	e.mu.Unlock()

	return err
}

// doPush runs the change detection and network work of a push. Callers own
// the state transitions.
func (e *Engine) doPush(ctx context.Context) error {
	creds := e.credentials(ctx)
	if !creds.Configured() {
		return nil
	}

	// The push reads one snapshot at fire time; later mutations schedule
	// their own push and are never observed torn.
	tasks, err := e.taskStore.List(ctx)
	if err != nil {
		return fmt.Errorf("reading tasks for push: %w", err)
	}

	data, err := snapshot(tasks)
	if err != nil {
		return fmt.Errorf("serializing tasks for push: %w", err)
	}

	e.mu.Lock()
	clean := bytes.Equal(data, e.lastSynced)
	e.mu.Unlock()
	if clean {
		return nil
	}

	if err := e.remote.Push(ctx, tasks, creds); err != nil {
		// The baseline stays stale so the next local change retries.
		return fmt.Errorf("pushing tasks: %w", err)
	}

	syncedAt := e.now()
	e.mu.Lock()
	e.lastSynced = data
	e.baselineIDs = taskIDs(tasks)
	e.lastSyncedAt = &syncedAt
	e.mu.Unlock()

	e.logger.Debug("pushed task list", "task_count", len(tasks))
	return nil
}

// credentials loads the current sync credentials; absence means sync is not
// configured, which is not an error.
func (e *Engine) credentials(ctx context.Context) store.Credentials {
	creds, err := e.credStore.Load(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrCredentialsNotFound) {
			e.logger.Warn("failed to load sync credentials", "error", err)
		}
		return store.Credentials{}
	}
	return creds
}
