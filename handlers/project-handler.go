package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/nikhilsoni22/teen-theory-backend/models"
	"github.com/nikhilsoni22/teen-theory-backend/services"
)

const maxUploadBytes = 32 << 20

type ProjectHandler struct {
	Projects     *services.ProjectService
	Participants *services.ParticipantService
	Users        *services.UserService
}

func NewProjectHandler(projects *services.ProjectService, participants *services.ParticipantService, users *services.UserService) *ProjectHandler {
	return &ProjectHandler{Projects: projects, Participants: participants, Users: users}
}

func (h *ProjectHandler) authenticate(r *http.Request) (*models.User, error) {
	return h.Users.ResolveToken(r.Context(), bearerToken(r))
}

// CreateProject accepts the multipart project form, persists the
// project, and mirrors the assignment onto every listed user.
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, services.ErrInvalidInput)
		return
	}

	in := services.CreateProjectInput{
		Title:              r.FormValue("title"),
		ProjectType:        r.FormValue("project_type"),
		ProjectDescription: r.FormValue("project_description"),
		Status:             r.FormValue("status"),

		AssignedStudent:   r.FormValue("assigned_student"),
		AssignedMentor:    r.FormValue("assigned_mentor"),
		ProjectCounsellor: r.FormValue("project_counsellor"),
		Milestones:        r.FormValue("milestones"),

		DeliverablesTitle: r.FormValue("deliverables_title"),
		DeliverablesType:  r.Form["deliverables_type"],

		DueDate:                r.FormValue("due_date"),
		LinkedMilestones:       r.FormValue("linked_milestones"),
		MetadataAndReq:         r.FormValue("metadata_and_req"),
		PageLimit:              r.FormValue("page_limit"),
		AdditionalInstructions: r.FormValue("additional_instructions"),

		AllowMultipleSubmissions: parseBool(r.FormValue("allow_multiple_submissions"), false),
		MentorApproval:           parseBool(r.FormValue("mentor_approval"), false),
		CounsellorApproval:       parseBool(r.FormValue("counsellor_approval"), false),

		ResourcesType:        r.FormValue("resources_type"),
		ResourcesTitle:       r.FormValue("resources_title"),
		ResourcesDescription: r.FormValue("resources_description"),

		StudentVisibility: parseBool(r.FormValue("student_visibility"), true),
		MentorVisibility:  parseBool(r.FormValue("mentor_visibility"), true),

		SessionType:   r.FormValue("session_type"),
		Purpose:       r.FormValue("purpose"),
		PreferredTime: r.FormValue("preferred_time"),
		Duration:      r.FormValue("duration"),
	}
	if _, header, ferr := r.FormFile("attached_files"); ferr == nil {
		in.Attachment = header
	}

	project, err := h.Projects.Create(r.Context(), user, in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.APIResponse{
		Success: true,
		Message: "Project created successfully",
		Data:    project,
	})
}

// UpdateProjectStatus changes a project's status and propagates the
// change into every mirrored summary.
func (h *ProjectHandler) UpdateProjectStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authenticate(r); err != nil {
		writeError(w, err)
		return
	}

	var body struct {
		ProjectID json.RawMessage `json:"project_id"`
		Status    string          `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, services.ErrInvalidInput)
		return
	}
	// Clients send project_id as either a number or a quoted string.
	projectID, _ := strconv.Atoi(strings.Trim(string(body.ProjectID), `" `))

	update, err := h.Projects.UpdateStatus(r.Context(), projectID, body.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Project status updated successfully",
		Data:    update,
	})
}

// UpdateMilestoneStatus updates one milestone, one task inside a
// milestone, or every milestone of a project, depending on which
// selectors the form carries.
func (h *ProjectHandler) UpdateMilestoneStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authenticate(r); err != nil {
		writeError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, services.ErrInvalidInput)
		return
	}

	projectID, _ := strconv.Atoi(strings.TrimSpace(r.FormValue("project_id")))
	in := services.MilestoneStatusInput{
		ProjectID:     projectID,
		Status:        r.FormValue("status"),
		MilestoneID:   r.FormValue("milestone_id"),
		MilestoneName: r.FormValue("milestone_name"),
		TaskTitle:     r.FormValue("task_title"),
	}
	if _, header, ferr := r.FormFile("attachment"); ferr == nil {
		in.Attachment = header
	}

	milestones, err := h.Projects.UpdateMilestoneStatus(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Milestone status updated successfully",
		Data:    map[string]any{"milestones": milestones},
	})
}

// DeleteProject removes a project, its stored attachment, and every
// mirrored summary of it. Only the creator or a privileged role may
// delete.
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	projectID, err := strconv.Atoi(mux.Vars(r)["projectId"])
	if err != nil {
		writeError(w, services.ErrNotFound)
		return
	}

	if err := h.Projects.Delete(r.Context(), user, projectID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Project deleted successfully",
	})
}

// AllProjects lists every project.
func (h *ProjectHandler) AllProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Projects.GetAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Projects retrieved successfully",
		Data:    projects,
	})
}

// MyProjects lists the projects created by the caller.
func (h *ProjectHandler) MyProjects(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	projects, err := h.Projects.GetByCreator(r.Context(), user.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Projects retrieved successfully",
		Data:    projects,
	})
}

// ByMentor lists the projects a mentor is assigned to.
func (h *ProjectHandler) ByMentor(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Projects.GetByMentorEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Projects retrieved successfully",
		Data:    projects,
	})
}

// ChatParticipants resolves the live accounts behind a project's
// assignment lists.
func (h *ProjectHandler) ChatParticipants(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	projectID, err := strconv.Atoi(mux.Vars(r)["projectId"])
	if err != nil {
		writeError(w, services.ErrNotFound)
		return
	}

	project, participants, err := h.Participants.Resolve(r.Context(), projectID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Participants retrieved successfully",
		Data: map[string]any{
			"project_id":         project.ID,
			"project_title":      project.Title,
			"requested_by_email": user.Email,
			"participants":       participants,
		},
	})
}

// NotificationsByStudent lists the projects the calling student is
// assigned to, newest first.
func (h *ProjectHandler) NotificationsByStudent(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	notifications, err := h.Projects.NotificationsForStudent(r.Context(), user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Notifications retrieved successfully",
		Data:    notifications,
	})
}

// Reconcile rebuilds the mirrored summaries for one project.
func (h *ProjectHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	projectID, err := strconv.Atoi(mux.Vars(r)["projectId"])
	if err != nil {
		writeError(w, services.ErrNotFound)
		return
	}

	report, err := h.Projects.Reconcile(r.Context(), user, projectID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Project mirrors reconciled",
		Data:    report,
	})
}

func parseBool(raw string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return v
}
