// Package store owns persistence for the project and user documents.
// Services depend on the interfaces here; the Mongo implementation is
// wired in main and the in-memory one backs the tests.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nikhilsoni22/teen-theory-backend/models"
)

var (
	// ErrNotFound reports that no document matched the lookup.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable reports that the document store could not be
	// reached; callers surface this verbatim, never retry silently.
	ErrUnavailable = errors.New("document store unavailable")
)

// ProjectStore is the authoritative project document store.
type ProjectStore interface {
	// NextID allocates the next application-level project id. The
	// allocation is serialized at the store so concurrent creates can
	// never observe the same value.
	NextID(ctx context.Context) (int, error)
	Insert(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id int) (*models.Project, error)
	FindAll(ctx context.Context) ([]models.Project, error)
	FindByCreator(ctx context.Context, email string) ([]models.Project, error)
	FindByMentorEmail(ctx context.Context, email string) ([]models.Project, error)
	SetStatus(ctx context.Context, id int, status string, updatedAt time.Time) error
	SetMilestones(ctx context.Context, id int, milestones []models.Milestone, updatedAt time.Time) error
	Delete(ctx context.Context, id int) error
}

// UserStore is the user document store. The mirror lists are written
// only through the whole-list setters; there is no per-entry update.
type UserStore interface {
	NextID(ctx context.Context) (int, error)
	Insert(ctx context.Context, user *models.User) error
	FindByToken(ctx context.Context, token string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByStoreID resolves the ObjectID hex string used by project
	// assignment lists. A malformed id reports ErrNotFound.
	FindByStoreID(ctx context.Context, id string) (*models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
	SetToken(ctx context.Context, storeID primitive.ObjectID, token string) error
	SetCurrentProjects(ctx context.Context, storeID primitive.ObjectID, list []models.ProjectSummary) error
	SetAssignedProjects(ctx context.Context, storeID primitive.ObjectID, list []models.ProjectSummary) error
}
