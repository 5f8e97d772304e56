package sync

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/daykeep/daykeep-api/internal/domain"
)

// PruneCompleted drops completed tasks whose completion timestamp is older
// than the retention window. Incomplete tasks and recently completed tasks
// pass through in order.
func PruneCompleted(tasks []domain.Task, now time.Time, retention time.Duration) []domain.Task {
	oldest := now.Add(-retention)
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Completed && t.CompletedAt != nil && !t.CompletedAt.After(oldest) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Merge reconciles a freshly pulled remote list with the current local list.
// The remote list is the source of truth; the result starts from it (callers
// prune it first) and local tasks are folded in:
//
//   - A local task whose ID the remote list also carries replaces the remote
//     copy only when its CreatedAt is strictly newer. This disambiguates
//     creation races, not edit races: CreatedAt never changes on edit, so
//     concurrent edits of the same task on two devices are not distinguished
//     by recency and one side's edit can be dropped. Known limitation.
//   - A local task absent from the remote list is appended when it was never
//     synced (its ID is not in the baseline), or when it was created within
//     the grace window. The grace window protects a task added in the
//     instant before a reload from being discarded by a stale remote
//     snapshot.
//   - A local task absent from the remote list that was synced before and is
//     past the grace window was deleted on another device; it is dropped.
//
// baseline holds the IDs of the last synced snapshot. unsyncedLocal reports
// whether the result carries local state the remote does not have yet (an
// appended local-only task or a replaced newer copy); when it does, the
// caller must not advance its baseline, so the next push cycle still sees
// the outstanding changes.
func Merge(
	remote, local []domain.Task,
	baseline map[uuid.UUID]bool,
	now time.Time,
	grace time.Duration,
) (merged []domain.Task, unsyncedLocal bool) {
	merged = make([]domain.Task, len(remote))
	index := make(map[uuid.UUID]int, len(remote))
	for i, t := range remote {
		merged[i] = t.Clone()
		index[t.ID] = i
	}

	for _, l := range local {
		if i, ok := index[l.ID]; ok {
			if l.CreatedAt.After(merged[i].CreatedAt) {
				merged[i] = l.Clone()
				unsyncedLocal = true
			}
			continue
		}

		neverSynced := !baseline[l.ID]
		inGrace := now.Sub(l.CreatedAt) <= grace
		if neverSynced || inGrace {
			merged = append(merged, l.Clone())
			unsyncedLocal = true
		}
		// Otherwise the task was deleted remotely; honor the deletion.
	}

	return merged, unsyncedLocal
}

// snapshot renders a task list in the canonical form used for change
// detection against the last synced baseline.
func snapshot(tasks []domain.Task) ([]byte, error) {
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return json.Marshal(tasks)
}

// taskIDs collects the IDs of a task list into a set.
func taskIDs(tasks []domain.Task) map[uuid.UUID]bool {
	ids := make(map[uuid.UUID]bool, len(tasks))
	for _, t := range tasks {
		ids[t.ID] = true
	}
	return ids
}
