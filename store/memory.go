package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nikhilsoni22/teen-theory-backend/models"
)

// MemoryProjectStore is an in-process ProjectStore used by the tests
// and for running the service without a database.
type MemoryProjectStore struct {
	mu       sync.Mutex
	seq      int
	projects map[int]models.Project
}

func NewMemoryProjectStore() *MemoryProjectStore {
	return &MemoryProjectStore{projects: make(map[int]models.Project)}
}

func (s *MemoryProjectStore) NextID(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

func (s *MemoryProjectStore) Insert(ctx context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if project.StoreID.IsZero() {
		project.StoreID = primitive.NewObjectID()
	}
	s.projects[project.ID] = cloneProject(*project)
	return nil
}

func (s *MemoryProjectStore) FindByID(ctx context.Context, id int) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := cloneProject(project)
	return &clone, nil
}

func (s *MemoryProjectStore) FindAll(ctx context.Context) ([]models.Project, error) {
	return s.filter(func(models.Project) bool { return true }), nil
}

func (s *MemoryProjectStore) FindByCreator(ctx context.Context, email string) ([]models.Project, error) {
	return s.filter(func(p models.Project) bool { return p.CreatedByEmail == email }), nil
}

func (s *MemoryProjectStore) FindByMentorEmail(ctx context.Context, email string) ([]models.Project, error) {
	return s.filter(func(p models.Project) bool {
		for _, ref := range p.AssignedMentor {
			if ref.Email == email {
				return true
			}
		}
		return false
	}), nil
}

func (s *MemoryProjectStore) filter(keep func(models.Project) bool) []models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Project
	for _, p := range s.projects {
		if keep(p) {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryProjectStore) SetStatus(ctx context.Context, id int, status string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return ErrNotFound
	}
	project.Status = status
	project.UpdatedAt = &updatedAt
	s.projects[id] = project
	return nil
}

func (s *MemoryProjectStore) SetMilestones(ctx context.Context, id int, milestones []models.Milestone, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	project, ok := s.projects[id]
	if !ok {
		return ErrNotFound
	}
	project.Milestones = cloneMilestones(milestones)
	project.UpdatedAt = &updatedAt
	s.projects[id] = project
	return nil
}

func (s *MemoryProjectStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return ErrNotFound
	}
	delete(s.projects, id)
	return nil
}

// MemoryUserStore is the in-process UserStore counterpart.
type MemoryUserStore struct {
	mu    sync.Mutex
	seq   int
	users map[string]models.User // keyed by ObjectID hex
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]models.User)}
}

func (s *MemoryUserStore) NextID(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

func (s *MemoryUserStore) Insert(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.StoreID.IsZero() {
		user.StoreID = primitive.NewObjectID()
	}
	s.users[user.StoreID.Hex()] = cloneUser(*user)
	return nil
}

func (s *MemoryUserStore) FindByToken(ctx context.Context, token string) (*models.User, error) {
	return s.findOne(func(u models.User) bool { return token != "" && u.Token == token })
}

func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(func(u models.User) bool { return u.Email == email })
}

func (s *MemoryUserStore) FindByStoreID(ctx context.Context, id string) (*models.User, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, fmt.Errorf("%w: malformed user id %q", ErrNotFound, id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := cloneUser(user)
	return &clone, nil
}

func (s *MemoryUserStore) findOne(match func(models.User) bool) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			clone := cloneUser(u)
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryUserStore) FindAll(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.User
	for _, u := range s.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryUserStore) SetToken(ctx context.Context, storeID primitive.ObjectID, token string) error {
	return s.set(storeID, func(u *models.User) { u.Token = token })
}

func (s *MemoryUserStore) SetCurrentProjects(ctx context.Context, storeID primitive.ObjectID, list []models.ProjectSummary) error {
	return s.set(storeID, func(u *models.User) { u.CurrentProjects = cloneSummaries(list) })
}

func (s *MemoryUserStore) SetAssignedProjects(ctx context.Context, storeID primitive.ObjectID, list []models.ProjectSummary) error {
	return s.set(storeID, func(u *models.User) { u.AssignedProjects = cloneSummaries(list) })
}

func (s *MemoryUserStore) set(storeID primitive.ObjectID, mutate func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[storeID.Hex()]
	if !ok {
		return ErrNotFound
	}
	mutate(&user)
	s.users[storeID.Hex()] = user
	return nil
}

func cloneProject(p models.Project) models.Project {
	p.AssignedStudent = append(models.AssignmentList(nil), p.AssignedStudent...)
	p.AssignedMentor = append(models.AssignmentList(nil), p.AssignedMentor...)
	p.Milestones = cloneMilestones(p.Milestones)
	p.DeliverablesType = append([]string(nil), p.DeliverablesType...)
	return p
}

func cloneMilestones(milestones []models.Milestone) []models.Milestone {
	if milestones == nil {
		return nil
	}
	out := make([]models.Milestone, len(milestones))
	for i, m := range milestones {
		m.Tasks = append([]models.Task(nil), m.Tasks...)
		for j, t := range m.Tasks {
			t.Attachments = append([]string(nil), t.Attachments...)
			m.Tasks[j] = t
		}
		m.Attachments = append([]string(nil), m.Attachments...)
		out[i] = m
	}
	return out
}

func cloneUser(u models.User) models.User {
	u.CurrentProjects = cloneSummaries(u.CurrentProjects)
	u.AssignedProjects = cloneSummaries(u.AssignedProjects)
	return u
}

func cloneSummaries(list []models.ProjectSummary) []models.ProjectSummary {
	if list == nil {
		return nil
	}
	out := make([]models.ProjectSummary, len(list))
	copy(out, list)
	return out
}
