package sync

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daykeep/daykeep-api/internal/domain"
	"github.com/daykeep/daykeep-api/internal/store"
)

// fakeRemote is an in-memory RemoteClient that can block and fail on demand.
type fakeRemote struct {
	mu        stdsync.Mutex
	tasks     []domain.Task
	pullCount int
	pushCount int
	pullErr   error
	pushErr   error
	pullGate  chan struct{} // when non-nil, Pull blocks until closed
	pushGate  chan struct{} // when non-nil, Push blocks until closed
}

func (f *fakeRemote) Pull(ctx context.Context, creds store.Credentials) ([]domain.Task, error) {
	f.mu.Lock()
	f.pullCount++
	gate := f.pullGate
	err := f.pullErr
	tasks := append([]domain.Task{}, f.tasks...)
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (f *fakeRemote) Push(ctx context.Context, tasks []domain.Task, creds store.Credentials) error {
	f.mu.Lock()
	f.pushCount++
	gate := f.pushGate
	err := f.pushErr
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.tasks = append([]domain.Task{}, tasks...)
	f.mu.Unlock()
	return nil
}

func (f *fakeRemote) pulls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pullCount
}

func (f *fakeRemote) pushes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pushCount
}

func (f *fakeRemote) stored() []domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Task{}, f.tasks...)
}

type engineFixture struct {
	engine    *Engine
	taskStore *store.FileTaskStore
	credStore *store.FileCredentialStore
	remote    *fakeRemote
}

func newEngineFixture(t *testing.T, cfg Config, configured bool) *engineFixture {
	t.Helper()

	dir := t.TempDir()
	taskStore, err := store.NewFileTaskStore(filepath.Join(dir, "tasks.json"))
	require.NoError(t, err)
	credStore := store.NewFileCredentialStore(filepath.Join(dir, "sync.json"))

	if configured {
		creds := store.Credentials{GistID: "abc123", Token: "ghp_test"}
		require.NoError(t, credStore.Save(context.Background(), creds))
	}

	remote := &fakeRemote{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(taskStore, credStore, remote, cfg, logger)
	t.Cleanup(engine.Stop)

	return &engineFixture{engine: engine, taskStore: taskStore, credStore: credStore, remote: remote}
}

func fixedTask(t *testing.T, title string, createdAt time.Time) domain.Task {
	t.Helper()
	task, err := domain.NewTask(title, "", createdAt, "")
	require.NoError(t, err)
	task.CreatedAt = createdAt
	return *task
}

func TestStartUnconfiguredSkipsRemote(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t, Config{}, false)
	fx.engine.Start(context.Background())

	status := fx.engine.Status(context.Background())
	assert.True(t, status.Ready, "the store is ready without remote interaction")
	assert.False(t, status.Configured)
	assert.Equal(t, 0, fx.remote.pulls())
}

func TestStartPullsAndReconciles(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t, Config{}, true)
	ctx := context.Background()

	now := time.Now().UTC()
	remoteTask := fixedTask(t, "From the other device", now.Add(-time.Hour))
	fx.remote.mu.Lock()
	fx.remote.tasks = []domain.Task{remoteTask}
	fx.remote.mu.Unlock()

	localTask := fixedTask(t, "Local only, never synced", now.Add(-30*time.Minute))
	require.NoError(t, fx.taskStore.Replace(ctx, []domain.Task{localTask}))

	fx.engine.Start(ctx)

	status := fx.engine.Status(ctx)
	assert.True(t, status.Ready)
	assert.Equal(t, StateIdle, status.State)

	tasks, err := fx.taskStore.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2, "remote task and unsynced local task both survive the mount merge")
}

func TestStartPullFailureFallsBackToLocal(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t, Config{}, true)
	ctx := context.Background()

	local := fixedTask(t, "Keep me", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, fx.taskStore.Replace(ctx, []domain.Task{local}))

	fx.remote.mu.Lock()
	fx.remote.pullErr = context.DeadlineExceeded
	fx.remote.mu.Unlock()

	fx.engine.Start(ctx)

	status := fx.engine.Status(ctx)
	assert.True(t, status.Ready, "a failed mount pull still marks the store ready")
	assert.NotEmpty(t, status.LastError)

	tasks, err := fx.taskStore.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, local.ID, tasks[0].ID)
}

func TestMountPullDoesNotAdvanceBaselineOverUnsyncedTasks(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t, Config{}, true)
	ctx := context.Background()

	local := fixedTask(t, "Unsynced local", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, fx.taskStore.Replace(ctx, []domain.Task{local}))

	fx.engine.Start(ctx)

	// The local-only task was preserved, so the baseline must still see it
	// as outstanding and the next push must send it.
	require.NoError(t, fx.engine.PushNow(ctx))
	assert.Equal(t, 1, fx.remote.pushes())
	require.Len(t, fx.remote.stored(), 1)
	assert.Equal(t, local.ID, fx.remote.stored()[0].ID)
}

func TestPushNowSkipsWhenClean(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t, Config{}, true)
	ctx := context.Background()

	task := fixedTask(t, "Sync me", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, fx.taskStore.Replace(ctx, []domain.Task{task}))

	require.NoError(t, fx.engine.PushNow(ctx))
	assert.Equal(t, 1, fx.remote.pushes())

	// Nothing changed since the last push; no network traffic.
	require.NoError(t, fx.engine.PushNow(ctx))
	assert.Equal(t, 1, fx.remote.pushes())
}

func TestPushFailureLeavesBaselineStale(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t, Config{}, true)
	ctx := context.Background()

	task := fixedTask(t, "Sync me", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, fx.taskStore.Replace(ctx, []domain.Task{task}))

	fx.remote.mu.Lock()
	fx.remote.pushErr = context.DeadlineExceeded
	fx.remote.mu.Unlock()

	require.Error(t, fx.engine.PushNow(ctx))

	// Clearing the failure and pushing again retries the same changes.
	fx.remote.mu.Lock()
	fx.remote.pushErr = nil
	fx.remote.mu.Unlock()

	require.NoError(t, fx.engine.PushNow(ctx))
	require.Len(t, fx.remote.stored(), 1)
}

func TestNotifyChangeCoalescesPushes(t *testing.T) {
	t.Parallel()

	cfg := Config{PushDebounce: 40 * time.Millisecond}
	fx := newEngineFixture(t, cfg, true)
	ctx := context.Background()

	task := fixedTask(t, "Edited rapidly", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, fx.taskStore.Replace(ctx, []domain.Task{task}))

	// A burst of edits resets the debounce each time.
	fx.engine.NotifyChange()
	fx.engine.NotifyChange()
	fx.engine.NotifyChange()

	require.Eventually(t, func() bool {
		return fx.remote.pushes() == 1
	}, 2*time.Second, 10*time.Millisecond, "a burst of changes coalesces into one push")

	// And no second push sneaks in afterwards.
	time.Sleep(3 * cfg.PushDebounce)
	assert.Equal(t, 1, fx.remote.pushes())
}

func TestPullDroppedWhilePushing(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t, Config{}, true)
	ctx := context.Background()

	task := fixedTask(t, "Being pushed", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, fx.taskStore.Replace(ctx, []domain.Task{task}))

	gate := make(chan struct{})
	fx.remote.mu.Lock()
	fx.remote.pushGate = gate
	// Remote holds a conflicting list the dropped pull must not apply.
	fx.remote.tasks = []domain.Task{fixedTask(t, "Remote intruder", time.Now().UTC().Add(-2*time.Hour))}
	fx.remote.mu.Unlock()

	pushDone := make(chan error, 1)
	go func() { pushDone <- fx.engine.PushNow(ctx) }()

	require.Eventually(t, func() bool {
		return fx.engine.Status(ctx).State == StatePushing
	}, 2*time.Second, 5*time.Millisecond)

	// A pull during an in-flight push yields the store unchanged and
	// reports the drop instead of a successful load.
	assert.ErrorIs(t, fx.engine.PullNow(ctx), ErrBusy)
	assert.Equal(t, 0, fx.remote.pulls())

	close(gate)
	require.NoError(t, <-pushDone)

	tasks, err := fx.taskStore.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)
}

func TestPushQueuesBehindInFlightPull(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t, Config{}, true)
	ctx := context.Background()

	task := fixedTask(t, "Created during pull", time.Now().UTC())
	require.NoError(t, fx.taskStore.Replace(ctx, []domain.Task{task}))

	gate := make(chan struct{})
	fx.remote.mu.Lock()
	fx.remote.pullGate = gate
	fx.remote.mu.Unlock()

	pullDone := make(chan error, 1)
	go func() { pullDone <- fx.engine.PullNow(ctx) }()

	require.Eventually(t, func() bool {
		return fx.engine.Status(ctx).State == StatePulling
	}, 2*time.Second, 5*time.Millisecond)

	// The push waits once for the pull to finish instead of racing it.
	require.NoError(t, fx.engine.PushNow(ctx))
	assert.Equal(t, StatePullingThenPush, fx.engine.Status(ctx).State)
	assert.Equal(t, 0, fx.remote.pushes())

	close(gate)
	require.NoError(t, <-pullDone)

	require.Eventually(t, func() bool {
		return fx.remote.pushes() == 1
	}, 2*time.Second, 5*time.Millisecond, "the queued push runs after the pull completes")

	require.Len(t, fx.remote.stored(), 1)
	assert.Equal(t, task.ID, fx.remote.stored()[0].ID)
}

func TestConcurrentPullNotRestarted(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t, Config{}, true)
	ctx := context.Background()

	gate := make(chan struct{})
	fx.remote.mu.Lock()
	fx.remote.pullGate = gate
	fx.remote.mu.Unlock()

	pullDone := make(chan error, 1)
	go func() { pullDone <- fx.engine.PullNow(ctx) }()

	require.Eventually(t, func() bool {
		return fx.engine.Status(ctx).State == StatePulling
	}, 2*time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, fx.engine.PullNow(ctx), ErrBusy, "a second pull trigger is dropped, not restarted")
	assert.Equal(t, 1, fx.remote.pulls())

	close(gate)
	require.NoError(t, <-pullDone)
}

func TestPullPrunesStaleCompletedTasks(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t, Config{}, true)
	ctx := context.Background()

	now := time.Now().UTC()
	stale := fixedTask(t, "Finished ages ago", now.AddDate(0, 0, -60))
	stale.Complete(now.AddDate(0, 0, -31))
	fresh := fixedTask(t, "Finished recently", now.AddDate(0, 0, -10))
	fresh.Complete(now.AddDate(0, 0, -2))

	fx.remote.mu.Lock()
	fx.remote.tasks = []domain.Task{stale, fresh}
	fx.remote.mu.Unlock()

	require.NoError(t, fx.engine.PullNow(ctx))

	tasks, err := fx.taskStore.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, fresh.ID, tasks[0].ID)
}

func TestRemoteDeletionHonoredAcrossPulls(t *testing.T) {
	t.Parallel()

	fx := newEngineFixture(t, Config{}, true)
	ctx := context.Background()

	now := time.Now().UTC()
	doomed := fixedTask(t, "Deleted on the other device", now.Add(-time.Hour))
	kept := fixedTask(t, "Still alive", now.Add(-time.Hour))

	fx.remote.mu.Lock()
	fx.remote.tasks = []domain.Task{doomed, kept}
	fx.remote.mu.Unlock()

	// First pull syncs both tasks and records them in the baseline.
	require.NoError(t, fx.engine.PullNow(ctx))
	tasks, err := fx.taskStore.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	// Other device deletes one; the next pull drops it locally too.
	fx.remote.mu.Lock()
	fx.remote.tasks = []domain.Task{kept}
	fx.remote.mu.Unlock()

	require.NoError(t, fx.engine.PullNow(ctx))
	tasks, err = fx.taskStore.List(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, kept.ID, tasks[0].ID)
}
