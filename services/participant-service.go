package services

import (
	"context"
	"errors"

	"github.com/nikhilsoni22/teen-theory-backend/logging"
	"github.com/nikhilsoni22/teen-theory-backend/models"
	"github.com/nikhilsoni22/teen-theory-backend/store"
)

// ParticipantService expands the raw references held by a project
// (assignment lists, creator email) into live profile snapshots for
// presentation. Dangling references are dropped from the output, never
// surfaced as errors.
type ParticipantService struct {
	projects store.ProjectStore
	users    store.UserStore
}

func NewParticipantService(projects store.ProjectStore, users store.UserStore) *ParticipantService {
	return &ParticipantService{projects: projects, users: users}
}

// Participants groups the resolved members of a project. The creator
// acts as the counsellor.
type Participants struct {
	Students   []models.UserSnapshot `json:"students"`
	Mentors    []models.UserSnapshot `json:"mentors"`
	Counsellor *models.UserSnapshot  `json:"counsellor"`
}

// Resolve loads the project and expands all of its participants.
func (s *ParticipantService) Resolve(ctx context.Context, projectID int) (*models.Project, *Participants, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, nil, mapStoreErr(err)
	}

	participants := &Participants{
		Students: s.ResolveRefs(ctx, project.AssignedStudent),
		Mentors:  s.ResolveRefs(ctx, project.AssignedMentor),
	}

	if project.CreatedByEmail != "" {
		counsellor, err := s.users.FindByEmail(ctx, project.CreatedByEmail)
		if err == nil {
			snapshot := counsellor.Snapshot()
			participants.Counsellor = &snapshot
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, nil, mapStoreErr(err)
		}
	}

	return project, participants, nil
}

// ResolveRefs expands assignment references into snapshots, skipping
// whatever cannot be resolved. The same expansion serves chat
// participant lists and meeting attendee lists.
func (s *ParticipantService) ResolveRefs(ctx context.Context, refs models.AssignmentList) []models.UserSnapshot {
	snapshots := []models.UserSnapshot{}
	for _, ref := range refs {
		if ref.ID == "" {
			continue
		}
		user, err := s.users.FindByStoreID(ctx, ref.ID)
		if err != nil {
			logging.Logger.Debugf("Dropping unresolvable participant reference %q: %v", ref.ID, err)
			continue
		}
		snapshots = append(snapshots, user.Snapshot())
	}
	return snapshots
}
