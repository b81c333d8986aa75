package services

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/nikhilsoni22/teen-theory-backend/logging"
	"github.com/nikhilsoni22/teen-theory-backend/models"
	"github.com/nikhilsoni22/teen-theory-backend/store"
	"github.com/nikhilsoni22/teen-theory-backend/utils"
)

// ProjectService owns the authoritative project mutations. Every write
// that affects assignment summaries hands off to the SyncService for
// mirror fan-out; fan-out failures never roll back the primary write.
type ProjectService struct {
	projects store.ProjectStore
	users    store.UserStore
	sync     *SyncService
}

func NewProjectService(projects store.ProjectStore, users store.UserStore, sync *SyncService) *ProjectService {
	return &ProjectService{projects: projects, users: users, sync: sync}
}

// CreateProjectInput carries the raw multipart form values. Assignment
// and milestone fields arrive in heterogeneous shapes and are
// canonicalized here, before anything is persisted.
type CreateProjectInput struct {
	Title              string
	ProjectType        string
	ProjectDescription string
	Status             string

	AssignedStudent   string // bare id, JSON record, or JSON array
	AssignedMentor    string
	ProjectCounsellor string
	Milestones        string // bare label, JSON record, or JSON array

	DeliverablesTitle string
	DeliverablesType  []string // repeated field, JSON array string, CSV, or scalar

	DueDate                string
	LinkedMilestones       string
	MetadataAndReq         string
	PageLimit              string
	AdditionalInstructions string

	AllowMultipleSubmissions bool
	MentorApproval           bool
	CounsellorApproval       bool

	ResourcesType        string
	ResourcesTitle       string
	ResourcesDescription string

	StudentVisibility bool
	MentorVisibility  bool

	SessionType   string
	Purpose       string
	PreferredTime string
	Duration      string

	Attachment *multipart.FileHeader
}

// Create allocates the next project id, canonicalizes the incoming
// fields, persists the project, and fans the new assignment out to
// every listed student and mentor.
func (s *ProjectService) Create(ctx context.Context, creator *models.User, in CreateProjectInput) (*models.Project, error) {
	if in.Title == "" || in.ProjectType == "" || in.ProjectDescription == "" {
		return nil, fmt.Errorf("%w: title, project_type and project_description are required", ErrInvalidInput)
	}

	status := in.Status
	if status == "" {
		status = models.StatusPending
	}

	id, err := s.projects.NextID(ctx)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	attachedPath := ""
	if in.Attachment != nil {
		attachedPath, err = utils.SaveUpload("project_files", fmt.Sprintf("project_%d", id), in.Attachment)
		if err != nil {
			return nil, fmt.Errorf("failed to store project attachment: %v", err)
		}
	}

	project := &models.Project{
		ID:                 id,
		Title:              in.Title,
		ProjectType:        in.ProjectType,
		ProjectDescription: in.ProjectDescription,
		Status:             status,
		CreatedByEmail:     creator.Email,

		AssignedStudent:   models.ParseAssignments(strings.TrimSpace(in.AssignedStudent)),
		AssignedMentor:    models.ParseAssignments(strings.TrimSpace(in.AssignedMentor)),
		ProjectCounsellor: in.ProjectCounsellor,

		Milestones: models.NormalizeMilestones(id, models.ParseMilestones(strings.TrimSpace(in.Milestones))),

		DeliverablesTitle: in.DeliverablesTitle,
		DeliverablesType:  normalizeMultiValue(in.DeliverablesType),

		DueDate:                in.DueDate,
		LinkedMilestones:       in.LinkedMilestones,
		MetadataAndReq:         in.MetadataAndReq,
		PageLimit:              in.PageLimit,
		AdditionalInstructions: in.AdditionalInstructions,

		AllowMultipleSubmissions: in.AllowMultipleSubmissions,
		MentorApproval:           in.MentorApproval,
		CounsellorApproval:       in.CounsellorApproval,

		ResourcesType:        in.ResourcesType,
		ResourcesTitle:       in.ResourcesTitle,
		ResourcesDescription: in.ResourcesDescription,

		AttachedFiles: attachedPath,

		StudentVisibility: in.StudentVisibility,
		MentorVisibility:  in.MentorVisibility,

		SessionType:   in.SessionType,
		Purpose:       in.Purpose,
		PreferredTime: in.PreferredTime,
		Duration:      in.Duration,

		CreatedAt: time.Now().UTC(),
	}

	if err := s.projects.Insert(ctx, project); err != nil {
		return nil, mapStoreErr(err)
	}

	report := s.sync.FanOutCreate(ctx, project)
	logging.Logger.WithFields(map[string]interface{}{
		"project_id": project.ID,
		"applied":    report.Applied,
		"skipped":    report.Skipped,
		"failed":     report.Failed,
	}).Infof("Project %d created by %s", project.ID, creator.Email)

	return project, nil
}

// StatusUpdate is the caller-visible result of a project status change.
type StatusUpdate struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// UpdateStatus sets the project status and propagates it to the mirror
// summary of every currently assigned student and mentor.
func (s *ProjectService) UpdateStatus(ctx context.Context, projectID int, newStatus string) (*StatusUpdate, error) {
	if projectID == 0 || newStatus == "" {
		return nil, fmt.Errorf("%w: project_id and status are required", ErrInvalidInput)
	}

	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	now := time.Now().UTC()
	if err := s.projects.SetStatus(ctx, projectID, newStatus, now); err != nil {
		return nil, mapStoreErr(err)
	}
	project.Status = newStatus
	project.UpdatedAt = &now

	report := s.sync.FanOutStatus(ctx, project, newStatus)
	logging.Logger.WithFields(map[string]interface{}{
		"project_id": project.ID,
		"status":     newStatus,
		"applied":    report.Applied,
		"skipped":    report.Skipped,
		"failed":     report.Failed,
	}).Infof("Project %d status updated", project.ID)

	return &StatusUpdate{ID: project.ID, Title: project.Title, Status: newStatus, UpdatedAt: &now}, nil
}

// MilestoneStatusInput selects what to update inside the milestone
// tree. MilestoneID wins over MilestoneName; with neither set, every
// milestone is updated. TaskTitle narrows the update to a single task.
type MilestoneStatusInput struct {
	ProjectID     int
	Status        string
	MilestoneID   string
	MilestoneName string
	TaskTitle     string
	Attachment    *multipart.FileHeader
}

// UpdateMilestoneStatus applies a status change to part of a project's
// milestone tree and returns the updated milestones. An attachment is
// appended to every record the call touched, never replacing earlier
// attachments. A selector or task that matches nothing reports
// ErrNotFound without persisting any change.
func (s *ProjectService) UpdateMilestoneStatus(ctx context.Context, in MilestoneStatusInput) ([]models.Milestone, error) {
	if in.ProjectID == 0 || in.Status == "" {
		return nil, fmt.Errorf("%w: project_id and status are required", ErrInvalidInput)
	}

	project, err := s.projects.FindByID(ctx, in.ProjectID)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	attachmentPath := ""
	if in.Attachment != nil {
		attachmentPath, err = utils.SaveUpload("milestone_attachments", fmt.Sprintf("proj_%d_ms", project.ID), in.Attachment)
		if err != nil {
			return nil, fmt.Errorf("failed to store milestone attachment: %v", err)
		}
	}

	now := time.Now().UTC()
	apply := func(m *models.Milestone) bool {
		if in.TaskTitle != "" {
			for i := range m.Tasks {
				if m.Tasks[i].Title == in.TaskTitle {
					m.Tasks[i].Status = in.Status
					if attachmentPath != "" {
						m.Tasks[i].Attachments = append(m.Tasks[i].Attachments, attachmentPath)
					}
					return true
				}
			}
			return false
		}

		m.Status = in.Status
		m.UpdatedAt = &now
		if attachmentPath != "" {
			m.Attachments = append(m.Attachments, attachmentPath)
		}
		for i := range m.Tasks {
			m.Tasks[i].Status = in.Status
			if attachmentPath != "" {
				m.Tasks[i].Attachments = append(m.Tasks[i].Attachments, attachmentPath)
			}
		}
		return true
	}

	milestones := project.Milestones
	modified := false
	switch {
	case in.MilestoneID != "":
		for i := range milestones {
			if milestones[i].ID == in.MilestoneID {
				modified = apply(&milestones[i])
				break
			}
		}
	case in.MilestoneName != "":
		for i := range milestones {
			if milestones[i].Name == in.MilestoneName {
				modified = apply(&milestones[i])
				break
			}
		}
	default:
		for i := range milestones {
			if apply(&milestones[i]) {
				modified = true
			}
		}
	}

	if !modified {
		return nil, fmt.Errorf("%w: no matching milestone or task to update", ErrNotFound)
	}

	if err := s.projects.SetMilestones(ctx, project.ID, milestones, now); err != nil {
		return nil, mapStoreErr(err)
	}
	return milestones, nil
}

// Delete removes a project. Only the creator, an admin, or a
// counsellor may delete; every assigned user's mirror entry and the
// locally stored attachment are cleaned up along the way.
func (s *ProjectService) Delete(ctx context.Context, requester *models.User, projectID int) error {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return mapStoreErr(err)
	}

	if requester.Email != project.CreatedByEmail && !requester.IsPrivileged() {
		return fmt.Errorf("%w: not authorized to delete this project", ErrForbidden)
	}

	report := s.sync.FanOutDelete(ctx, project)

	if project.AttachedFiles != "" {
		if err := utils.RemoveStoredFile(project.AttachedFiles); err != nil {
			logging.Logger.Warnf("Failed to remove stored file %s for project %d: %v", project.AttachedFiles, project.ID, err)
		}
	}

	if err := s.projects.Delete(ctx, projectID); err != nil {
		return mapStoreErr(err)
	}

	logging.Logger.WithFields(map[string]interface{}{
		"project_id": project.ID,
		"applied":    report.Applied,
		"skipped":    report.Skipped,
		"failed":     report.Failed,
	}).Infof("Project %d deleted by %s", project.ID, requester.Email)
	return nil
}

// Reconcile rebuilds the mirror entries for one project from its
// authoritative document.
func (s *ProjectService) Reconcile(ctx context.Context, requester *models.User, projectID int) (SyncReport, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return SyncReport{}, mapStoreErr(err)
	}
	if requester.Email != project.CreatedByEmail && !requester.IsPrivileged() {
		return SyncReport{}, ErrForbidden
	}
	return s.sync.Reconcile(ctx, project)
}

// GetByID returns one project with presentation defaults applied.
func (s *ProjectService) GetByID(ctx context.Context, projectID int) (*models.Project, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	applyReadDefaults(project)
	return project, nil
}

// GetAll returns every project.
func (s *ProjectService) GetAll(ctx context.Context) ([]models.Project, error) {
	projects, err := s.projects.FindAll(ctx)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	for i := range projects {
		applyReadDefaults(&projects[i])
	}
	return projects, nil
}

// GetByCreator returns the projects created by the given email.
func (s *ProjectService) GetByCreator(ctx context.Context, email string) ([]models.Project, error) {
	projects, err := s.projects.FindByCreator(ctx, email)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	for i := range projects {
		applyReadDefaults(&projects[i])
	}
	return projects, nil
}

// GetByMentorEmail returns projects where an assigned mentor record
// carries the given email.
func (s *ProjectService) GetByMentorEmail(ctx context.Context, email string) ([]models.Project, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	projects, err := s.projects.FindByMentorEmail(ctx, email)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	for i := range projects {
		applyReadDefaults(&projects[i])
	}
	return projects, nil
}

// ProjectNotification is a project assignment surfaced to a student,
// with a snapshot of the counsellor who created it.
type ProjectNotification struct {
	ProjectID      int                  `json:"project_id"`
	Title          string               `json:"title"`
	Status         string               `json:"status"`
	CreatedAt      time.Time            `json:"created_at"`
	AssignedBy     string               `json:"assigned_by"`
	AssignedByUser *models.UserSnapshot `json:"assigned_by_user,omitempty"`
}

// NotificationsForStudent lists the projects where the caller appears
// in the assignment list, matched by store id or email.
func (s *ProjectService) NotificationsForStudent(ctx context.Context, user *models.User) ([]ProjectNotification, error) {
	projects, err := s.projects.FindAll(ctx)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	userID := user.StoreID.Hex()
	notifications := []ProjectNotification{}
	for i := range projects {
		project := &projects[i]
		if !assignmentMatches(project.AssignedStudent, userID, user.Email) {
			continue
		}

		notification := ProjectNotification{
			ProjectID:  project.ID,
			Title:      project.Title,
			Status:     project.Status,
			CreatedAt:  project.CreatedAt,
			AssignedBy: project.CreatedByEmail,
		}
		if notification.Status == "" {
			notification.Status = models.StatusPending
		}
		if creator, err := s.users.FindByEmail(ctx, project.CreatedByEmail); err == nil {
			snapshot := creator.Snapshot()
			notification.AssignedByUser = &snapshot
		}
		notifications = append(notifications, notification)
	}
	return notifications, nil
}

func assignmentMatches(refs models.AssignmentList, userID, email string) bool {
	for _, ref := range refs {
		if userID != "" && ref.ID == userID {
			return true
		}
		if email != "" && strings.EqualFold(ref.Email, email) {
			return true
		}
		// Bare references decode with the value in ID; it may actually
		// hold an email.
		if email != "" && ref.Email == "" && strings.EqualFold(ref.ID, email) {
			return true
		}
	}
	return false
}

// applyReadDefaults fills missing statuses on stored documents that
// predate canonicalization. Ids are never generated on the read path.
func applyReadDefaults(project *models.Project) {
	if project.Status == "" {
		project.Status = models.StatusPending
	}
	for i := range project.Milestones {
		m := &project.Milestones[i]
		if m.Status == "" {
			m.Status = models.StatusPending
		}
		if m.Tasks == nil {
			m.Tasks = []models.Task{}
		}
		for j := range m.Tasks {
			if m.Tasks[j].Status == "" {
				m.Tasks[j].Status = models.StatusPending
			}
		}
	}
}

// normalizeMultiValue flattens the loosely-typed multi-value form
// field into trimmed, non-empty strings. Accepted shapes, in priority
// order: repeated form values, a JSON array string, a comma-separated
// string, a single scalar.
func normalizeMultiValue(values []string) []string {
	trim := func(in []string) []string {
		var out []string
		for _, v := range in {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		return out
	}

	switch len(values) {
	case 0:
		return nil
	case 1:
		raw := values[0]
		var parsed []string
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			return trim(parsed)
		}
		if strings.Contains(raw, ",") {
			return trim(strings.Split(raw, ","))
		}
		return trim([]string{raw})
	default:
		return trim(values)
	}
}
