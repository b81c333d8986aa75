package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nikhilsoni22/teen-theory-backend/logging"
	"github.com/nikhilsoni22/teen-theory-backend/models"
	"github.com/nikhilsoni22/teen-theory-backend/store"
)

// SyncService keeps the denormalized project summaries embedded in
// user documents consistent with the authoritative project. Every
// mirror write is a whole-list overwrite, so mutations for one user
// are serialized behind a per-user lock; a missing or malformed
// reference is logged and skipped, never failing the project mutation
// that triggered the fan-out.
type SyncService struct {
	users store.UserStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSyncService(users store.UserStore) *SyncService {
	return &SyncService{
		users: users,
		locks: make(map[string]*sync.Mutex),
	}
}

// SyncReport counts per-user fan-out outcomes so drift is observable
// instead of silently swallowed.
type SyncReport struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (r SyncReport) merge(other SyncReport) SyncReport {
	r.Applied += other.Applied
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	return r
}

type mirrorSide int

const (
	sideStudent mirrorSide = iota // current_projects
	sideMentor                    // assigned_projects
)

func (s *SyncService) userLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// mutateMirror runs one serialized read-modify-write cycle against a
// user's mirror list. The mutate callback reports whether it changed
// the list; unchanged lists are not written back.
func (s *SyncService) mutateMirror(ctx context.Context, id string, side mirrorSide, mutate func([]models.ProjectSummary) ([]models.ProjectSummary, bool)) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("%w: empty assignment reference", ErrNotFound)
	}

	lock := s.userLock(id)
	lock.Lock()
	defer lock.Unlock()

	user, err := s.users.FindByStoreID(ctx, id)
	if err != nil {
		return false, mapStoreErr(err)
	}

	list := user.CurrentProjects
	if side == sideMentor {
		list = user.AssignedProjects
	}

	updated, changed := mutate(list)
	if !changed {
		return false, nil
	}

	if side == sideMentor {
		err = s.users.SetAssignedProjects(ctx, user.StoreID, updated)
	} else {
		err = s.users.SetCurrentProjects(ctx, user.StoreID, updated)
	}
	if err != nil {
		return false, mapStoreErr(err)
	}
	return true, nil
}

func (s *SyncService) fanOut(ctx context.Context, trigger string, project *models.Project, mutate func([]models.ProjectSummary) ([]models.ProjectSummary, bool)) SyncReport {
	var report SyncReport
	sides := []struct {
		refs models.AssignmentList
		side mirrorSide
	}{
		{project.AssignedStudent, sideStudent},
		{project.AssignedMentor, sideMentor},
	}
	for _, group := range sides {
		for _, ref := range group.refs {
			changed, err := s.mutateMirror(ctx, ref.ID, group.side, mutate)
			switch {
			case err == nil && changed:
				report.Applied++
			case err == nil:
				report.Skipped++
			case errors.Is(err, ErrNotFound):
				report.Skipped++
				logging.Logger.WithFields(map[string]interface{}{
					"trigger":    trigger,
					"project_id": project.ID,
					"user_id":    ref.ID,
				}).Warnf("Skipping unresolvable assignment reference: %v", err)
			default:
				report.Failed++
				logging.Logger.WithFields(map[string]interface{}{
					"trigger":    trigger,
					"project_id": project.ID,
					"user_id":    ref.ID,
				}).Errorf("Mirror update failed: %v", err)
			}
		}
	}

	if report.Failed > 0 {
		logging.Logger.WithFields(map[string]interface{}{
			"trigger":    trigger,
			"project_id": project.ID,
			"applied":    report.Applied,
			"skipped":    report.Skipped,
			"failed":     report.Failed,
		}).Warnf("%v", ErrPartialApply)
	}
	return report
}

// FanOutCreate appends the new project's summary to every assigned
// user's mirror list. Re-running it for the same project updates the
// existing entry instead of duplicating it.
func (s *SyncService) FanOutCreate(ctx context.Context, project *models.Project) SyncReport {
	summary := project.Summary(time.Now().UTC())
	return s.fanOut(ctx, "create", project, func(list []models.ProjectSummary) ([]models.ProjectSummary, bool) {
		for i := range list {
			if list[i].ProjectID == project.ID {
				assignedAt := list[i].AssignedDate
				list[i] = summary
				list[i].AssignedDate = assignedAt
				return list, true
			}
		}
		return append(list, summary), true
	})
}

// FanOutStatus sets the mirrored status for this project on every
// assigned user. Summaries not present are left untouched; there is no
// insertion on miss.
func (s *SyncService) FanOutStatus(ctx context.Context, project *models.Project, newStatus string) SyncReport {
	return s.fanOut(ctx, "status", project, func(list []models.ProjectSummary) ([]models.ProjectSummary, bool) {
		changed := false
		for i := range list {
			if list[i].ProjectID == project.ID {
				list[i].Status = newStatus
				changed = true
			}
		}
		return list, changed
	})
}

// FanOutDelete removes every mirror entry for this project from every
// assigned user.
func (s *SyncService) FanOutDelete(ctx context.Context, project *models.Project) SyncReport {
	return s.fanOut(ctx, "delete", project, func(list []models.ProjectSummary) ([]models.ProjectSummary, bool) {
		filtered := list[:0]
		for _, entry := range list {
			if entry.ProjectID != project.ID {
				filtered = append(filtered, entry)
			}
		}
		return filtered, len(filtered) != len(list)
	})
}

// Reconcile rebuilds every user's mirror entries for one project from
// the authoritative document: assigned users end up with exactly one
// up-to-date summary, everyone else with none. The project document is
// the source of truth; mirrors are treated as rebuildable caches.
func (s *SyncService) Reconcile(ctx context.Context, project *models.Project) (SyncReport, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return SyncReport{}, mapStoreErr(err)
	}

	students := make(map[string]bool, len(project.AssignedStudent))
	for _, ref := range project.AssignedStudent {
		if ref.ID != "" {
			students[ref.ID] = true
		}
	}
	mentors := make(map[string]bool, len(project.AssignedMentor))
	for _, ref := range project.AssignedMentor {
		if ref.ID != "" {
			mentors[ref.ID] = true
		}
	}

	var report SyncReport
	for _, user := range users {
		id := user.StoreID.Hex()
		for side, member := range map[mirrorSide]bool{
			sideStudent: students[id],
			sideMentor:  mentors[id],
		} {
			changed, err := s.mutateMirror(ctx, id, side, func(list []models.ProjectSummary) ([]models.ProjectSummary, bool) {
				return reconcileList(list, project, member)
			})
			switch {
			case err == nil && changed:
				report.Applied++
			case err == nil:
				report.Skipped++
			default:
				report.Failed++
				logging.Logger.WithFields(map[string]interface{}{
					"trigger":    "reconcile",
					"project_id": project.ID,
					"user_id":    id,
				}).Errorf("Mirror reconcile failed: %v", err)
			}
		}
	}
	return report, nil
}

// reconcileList enforces the exactly-one-summary-if-assigned invariant
// on a single mirror list, preserving the original assignment date
// when an entry already exists.
func reconcileList(list []models.ProjectSummary, project *models.Project, member bool) ([]models.ProjectSummary, bool) {
	changed := false
	kept := make([]models.ProjectSummary, 0, len(list))
	var existing *models.ProjectSummary
	for _, entry := range list {
		if entry.ProjectID == project.ID {
			if existing == nil {
				e := entry
				existing = &e
			} else {
				changed = true // duplicate dropped
			}
			continue
		}
		kept = append(kept, entry)
	}

	if !member {
		if existing != nil {
			changed = true
		}
		return kept, changed
	}

	summary := project.Summary(time.Now().UTC())
	if existing != nil {
		summary.AssignedDate = existing.AssignedDate
		if existing.Title != summary.Title || existing.Status != summary.Status {
			changed = true
		}
	} else {
		changed = true
	}
	return append(kept, summary), changed
}
