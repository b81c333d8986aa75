package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/nikhilsoni22/teen-theory-backend/models"
	"github.com/nikhilsoni22/teen-theory-backend/store"
)

type testEnv struct {
	projects *store.MemoryProjectStore
	users    *store.MemoryUserStore
	service  *ProjectService
}

func newTestEnv() *testEnv {
	projects := store.NewMemoryProjectStore()
	users := store.NewMemoryUserStore()
	sync := NewSyncService(users)
	return &testEnv{
		projects: projects,
		users:    users,
		service:  NewProjectService(projects, users, sync),
	}
}

func TestCreateRequiresCoreFields(t *testing.T) {
	env := newTestEnv()
	counsellor := seedUser(t, env.users, "counsellor@example.com", models.RoleCounsellor)

	_, err := env.service.Create(context.Background(), counsellor, CreateProjectInput{Title: "Only a title"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Create() error = %v, want ErrInvalidInput", err)
	}
}

func TestCreateCanonicalizesAndFansOut(t *testing.T) {
	env := newTestEnv()
	counsellor := seedUser(t, env.users, "counsellor@example.com", models.RoleCounsellor)
	student := seedUser(t, env.users, "mia@example.com", models.RoleStudent)
	mentor := seedUser(t, env.users, "dev@example.com", models.RoleMentor)

	project, err := env.service.Create(context.Background(), counsellor, CreateProjectInput{
		Title:              "Research Paper",
		ProjectType:        "research",
		ProjectDescription: "A paper on reef ecology",
		AssignedStudent:    student.StoreID.Hex(),
		AssignedMentor:     `[{"id": "` + mentor.StoreID.Hex() + `", "email": "dev@example.com"}]`,
		Milestones:         `["Research", {"name": "Draft", "tasks": ["Outline"]}]`,
		DeliverablesType:   []string{`["essay", "presentation"]`},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if project.ID == 0 {
		t.Fatal("expected an allocated project id")
	}
	if project.Status != models.StatusPending {
		t.Fatalf("status = %q, want default %q", project.Status, models.StatusPending)
	}
	if project.CreatedByEmail != "counsellor@example.com" {
		t.Fatalf("created_by_email = %q", project.CreatedByEmail)
	}
	if len(project.Milestones) != 2 {
		t.Fatalf("milestones = %+v, want 2", project.Milestones)
	}
	for _, m := range project.Milestones {
		if m.ID == "" || m.Status != models.StatusPending {
			t.Fatalf("milestone not canonicalized: %+v", m)
		}
	}
	if len(project.Milestones[1].Tasks) != 1 || project.Milestones[1].Tasks[0].Status != models.StatusPending {
		t.Fatalf("task not canonicalized: %+v", project.Milestones[1].Tasks)
	}
	if !reflect.DeepEqual(project.DeliverablesType, []string{"essay", "presentation"}) {
		t.Fatalf("deliverables_type = %v", project.DeliverablesType)
	}

	stored, err := env.projects.FindByID(context.Background(), project.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if stored.Title != "Research Paper" {
		t.Fatalf("stored title = %q", stored.Title)
	}

	if got := mustFindUser(t, env.users, student.StoreID); len(got.CurrentProjects) != 1 {
		t.Fatalf("student mirror = %+v, want one entry", got.CurrentProjects)
	}
	if got := mustFindUser(t, env.users, mentor.StoreID); len(got.AssignedProjects) != 1 {
		t.Fatalf("mentor mirror = %+v, want one entry", got.AssignedProjects)
	}
}

func TestUpdateStatusPropagatesToMirrors(t *testing.T) {
	env := newTestEnv()
	counsellor := seedUser(t, env.users, "counsellor@example.com", models.RoleCounsellor)
	student := seedUser(t, env.users, "mia@example.com", models.RoleStudent)

	project, err := env.service.Create(context.Background(), counsellor, CreateProjectInput{
		Title:              "Research Paper",
		ProjectType:        "research",
		ProjectDescription: "desc",
		AssignedStudent:    student.StoreID.Hex(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	update, err := env.service.UpdateStatus(context.Background(), project.ID, "completed")
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if update.Status != "completed" || update.UpdatedAt == nil {
		t.Fatalf("update = %+v", update)
	}

	stored, _ := env.projects.FindByID(context.Background(), project.ID)
	if stored.Status != "completed" {
		t.Fatalf("stored status = %q", stored.Status)
	}
	got := mustFindUser(t, env.users, student.StoreID)
	if got.CurrentProjects[0].Status != "completed" {
		t.Fatalf("mirror status = %q, want completed", got.CurrentProjects[0].Status)
	}
}

func TestUpdateStatusUnknownProject(t *testing.T) {
	env := newTestEnv()
	if _, err := env.service.UpdateStatus(context.Background(), 404, "completed"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateStatus() error = %v, want ErrNotFound", err)
	}
}

func seedProjectWithMilestones(t *testing.T, env *testEnv, creator *models.User) *models.Project {
	t.Helper()
	project, err := env.service.Create(context.Background(), creator, CreateProjectInput{
		Title:              "Research Paper",
		ProjectType:        "research",
		ProjectDescription: "desc",
		Milestones:         `[{"name": "Research", "tasks": ["Collect sources", "Read papers"]}, {"name": "Draft", "tasks": ["Outline"]}]`,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return project
}

func TestUpdateMilestoneStatusCascadesToTasks(t *testing.T) {
	env := newTestEnv()
	counsellor := seedUser(t, env.users, "counsellor@example.com", models.RoleCounsellor)
	project := seedProjectWithMilestones(t, env, counsellor)

	milestones, err := env.service.UpdateMilestoneStatus(context.Background(), MilestoneStatusInput{
		ProjectID:   project.ID,
		Status:      "completed",
		MilestoneID: project.Milestones[0].ID,
	})
	if err != nil {
		t.Fatalf("UpdateMilestoneStatus() error = %v", err)
	}

	if milestones[0].Status != "completed" || milestones[0].UpdatedAt == nil {
		t.Fatalf("target milestone = %+v", milestones[0])
	}
	for _, task := range milestones[0].Tasks {
		if task.Status != "completed" {
			t.Fatalf("cascade missed task %+v", task)
		}
	}
	if milestones[1].Status != models.StatusPending {
		t.Fatalf("sibling milestone was touched: %+v", milestones[1])
	}
}

func TestUpdateMilestoneStatusByNameFirstMatchOnly(t *testing.T) {
	env := newTestEnv()
	counsellor := seedUser(t, env.users, "counsellor@example.com", models.RoleCounsellor)
	project := seedProjectWithMilestones(t, env, counsellor)

	milestones, err := env.service.UpdateMilestoneStatus(context.Background(), MilestoneStatusInput{
		ProjectID:     project.ID,
		Status:        "in_progress",
		MilestoneName: "Draft",
	})
	if err != nil {
		t.Fatalf("UpdateMilestoneStatus() error = %v", err)
	}
	if milestones[1].Status != "in_progress" {
		t.Fatalf("named milestone = %+v", milestones[1])
	}
	if milestones[0].Status != models.StatusPending {
		t.Fatalf("unrelated milestone was touched: %+v", milestones[0])
	}
}

func TestUpdateMilestoneStatusAllWhenNoSelector(t *testing.T) {
	env := newTestEnv()
	counsellor := seedUser(t, env.users, "counsellor@example.com", models.RoleCounsellor)
	project := seedProjectWithMilestones(t, env, counsellor)

	milestones, err := env.service.UpdateMilestoneStatus(context.Background(), MilestoneStatusInput{
		ProjectID: project.ID,
		Status:    "completed",
	})
	if err != nil {
		t.Fatalf("UpdateMilestoneStatus() error = %v", err)
	}
	for _, m := range milestones {
		if m.Status != "completed" {
			t.Fatalf("milestone missed by broadcast update: %+v", m)
		}
	}
}

func TestUpdateMilestoneStatusTaskOnly(t *testing.T) {
	env := newTestEnv()
	counsellor := seedUser(t, env.users, "counsellor@example.com", models.RoleCounsellor)
	project := seedProjectWithMilestones(t, env, counsellor)

	milestones, err := env.service.UpdateMilestoneStatus(context.Background(), MilestoneStatusInput{
		ProjectID:     project.ID,
		Status:        "completed",
		MilestoneName: "Research",
		TaskTitle:     "Collect sources",
	})
	if err != nil {
		t.Fatalf("UpdateMilestoneStatus() error = %v", err)
	}

	research := milestones[0]
	if research.Status != models.StatusPending {
		t.Fatalf("milestone status changed by task update: %+v", research)
	}
	if research.Tasks[0].Status != "completed" {
		t.Fatalf("target task = %+v", research.Tasks[0])
	}
	if research.Tasks[1].Status != models.StatusPending {
		t.Fatalf("sibling task was touched: %+v", research.Tasks[1])
	}
}

func TestUpdateMilestoneStatusNoMatchPersistsNothing(t *testing.T) {
	env := newTestEnv()
	counsellor := seedUser(t, env.users, "counsellor@example.com", models.RoleCounsellor)
	project := seedProjectWithMilestones(t, env, counsellor)

	_, err := env.service.UpdateMilestoneStatus(context.Background(), MilestoneStatusInput{
		ProjectID:     project.ID,
		Status:        "completed",
		MilestoneName: "Research",
		TaskTitle:     "No such task",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdateMilestoneStatus() error = %v, want ErrNotFound", err)
	}

	stored, _ := env.projects.FindByID(context.Background(), project.ID)
	for _, m := range stored.Milestones {
		if m.Status != models.StatusPending {
			t.Fatalf("failed update mutated stored milestone: %+v", m)
		}
	}
}

func TestDeleteAuthorization(t *testing.T) {
	env := newTestEnv()
	counsellor := seedUser(t, env.users, "counsellor@example.com", models.RoleCounsellor)
	student := seedUser(t, env.users, "mia@example.com", models.RoleStudent)

	project, err := env.service.Create(context.Background(), counsellor, CreateProjectInput{
		Title:              "Research Paper",
		ProjectType:        "research",
		ProjectDescription: "desc",
		AssignedStudent:    student.StoreID.Hex(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := env.service.Delete(context.Background(), student, project.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Delete() by non-creator error = %v, want ErrForbidden", err)
	}
	if _, err := env.projects.FindByID(context.Background(), project.ID); err != nil {
		t.Fatalf("forbidden delete removed the project: %v", err)
	}

	if err := env.service.Delete(context.Background(), counsellor, project.ID); err != nil {
		t.Fatalf("Delete() by creator error = %v", err)
	}
	if _, err := env.projects.FindByID(context.Background(), project.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("project still present after delete: %v", err)
	}
	if got := mustFindUser(t, env.users, student.StoreID); len(got.CurrentProjects) != 0 {
		t.Fatalf("mirror entry survived delete: %+v", got.CurrentProjects)
	}
}

func TestReconcileAuthorization(t *testing.T) {
	env := newTestEnv()
	counsellor := seedUser(t, env.users, "counsellor@example.com", models.RoleCounsellor)
	student := seedUser(t, env.users, "mia@example.com", models.RoleStudent)
	other := seedUser(t, env.users, "other@example.com", models.RoleStudent)

	project, err := env.service.Create(context.Background(), counsellor, CreateProjectInput{
		Title:              "Research Paper",
		ProjectType:        "research",
		ProjectDescription: "desc",
		AssignedStudent:    student.StoreID.Hex(),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := env.service.Reconcile(context.Background(), other, project.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Reconcile() by unrelated user error = %v, want ErrForbidden", err)
	}
	if _, err := env.service.Reconcile(context.Background(), counsellor, project.ID); err != nil {
		t.Fatalf("Reconcile() by creator error = %v", err)
	}
}

func TestNotificationsForStudent(t *testing.T) {
	env := newTestEnv()
	counsellor := seedUser(t, env.users, "counsellor@example.com", models.RoleCounsellor)
	student := seedUser(t, env.users, "mia@example.com", models.RoleStudent)
	other := seedUser(t, env.users, "zoe@example.com", models.RoleStudent)

	// One assignment by store id, one legacy assignment by bare email,
	// one project for someone else.
	for _, in := range []CreateProjectInput{
		{Title: "By ID", ProjectType: "research", ProjectDescription: "d", AssignedStudent: student.StoreID.Hex()},
		{Title: "By Email", ProjectType: "research", ProjectDescription: "d", AssignedStudent: "mia@example.com"},
		{Title: "Not Mine", ProjectType: "research", ProjectDescription: "d", AssignedStudent: other.StoreID.Hex()},
	} {
		if _, err := env.service.Create(context.Background(), counsellor, in); err != nil {
			t.Fatalf("Create(%s) error = %v", in.Title, err)
		}
	}

	notifications, err := env.service.NotificationsForStudent(context.Background(), student)
	if err != nil {
		t.Fatalf("NotificationsForStudent() error = %v", err)
	}
	if len(notifications) != 2 {
		t.Fatalf("got %d notifications, want 2: %+v", len(notifications), notifications)
	}
	for _, n := range notifications {
		if n.AssignedBy != "counsellor@example.com" {
			t.Fatalf("assigned_by = %q", n.AssignedBy)
		}
		if n.AssignedByUser == nil || n.AssignedByUser.Email != "counsellor@example.com" {
			t.Fatalf("assigned_by_user = %+v", n.AssignedByUser)
		}
		if n.Status != models.StatusPending {
			t.Fatalf("status = %q", n.Status)
		}
	}
}

func TestGetByMentorEmailRequiresEmail(t *testing.T) {
	env := newTestEnv()
	if _, err := env.service.GetByMentorEmail(context.Background(), ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("GetByMentorEmail(\"\") error = %v, want ErrInvalidInput", err)
	}
}

func TestNormalizeMultiValue(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want []string
	}{
		{"empty", nil, nil},
		{"json array", []string{`["essay", "presentation"]`}, []string{"essay", "presentation"}},
		{"comma separated", []string{"essay, presentation"}, []string{"essay", "presentation"}},
		{"scalar", []string{"essay"}, []string{"essay"}},
		{"repeated values", []string{"essay", " presentation ", ""}, []string{"essay", "presentation"}},
		{"blank scalar", []string{"   "}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := normalizeMultiValue(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("normalizeMultiValue(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestApplyReadDefaultsFillsStatusesNotIDs(t *testing.T) {
	project := &models.Project{
		ID: 1,
		Milestones: []models.Milestone{
			{Name: "Legacy"},
			{ID: "1-1-abcdef", Name: "Canonical", Status: "completed", Tasks: []models.Task{{Title: "Done", Status: "completed"}}},
		},
	}
	applyReadDefaults(project)

	if project.Status != models.StatusPending {
		t.Fatalf("project status = %q", project.Status)
	}
	legacy := project.Milestones[0]
	if legacy.ID != "" {
		t.Fatalf("read path generated an id: %q", legacy.ID)
	}
	if legacy.Status != models.StatusPending || legacy.Tasks == nil {
		t.Fatalf("legacy milestone not defaulted: %+v", legacy)
	}
	if project.Milestones[1].Status != "completed" {
		t.Fatalf("canonical milestone was touched: %+v", project.Milestones[1])
	}
}

func TestCreateStoresTrimmedAssignments(t *testing.T) {
	env := newTestEnv()
	counsellor := seedUser(t, env.users, "counsellor@example.com", models.RoleCounsellor)

	project, err := env.service.Create(context.Background(), counsellor, CreateProjectInput{
		Title:              "Research Paper",
		ProjectType:        "research",
		ProjectDescription: "desc",
		AssignedStudent:    "  abc123  ",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(project.AssignedStudent) != 1 || strings.TrimSpace(project.AssignedStudent[0].ID) != project.AssignedStudent[0].ID {
		t.Fatalf("assignment not trimmed: %+v", project.AssignedStudent)
	}
}
