package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/nikhilsoni22/teen-theory-backend/logging"
	"github.com/nikhilsoni22/teen-theory-backend/models"
	"github.com/nikhilsoni22/teen-theory-backend/store"
	"github.com/nikhilsoni22/teen-theory-backend/utils"
)

// UserService handles account registration, login, and bearer-token
// identity resolution. Tokens are opaque strings stored on the user
// document; every authenticated endpoint resolves them here.
type UserService struct {
	users store.UserStore
}

func NewUserService(users store.UserStore) *UserService {
	return &UserService{users: users}
}

// RegisterInput carries a new account's fields.
type RegisterInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"user_role"`
	School   string `json:"school,omitempty"`
	Location string `json:"location,omitempty"`
}

// Register creates a user with a fresh internal id and a hashed
// password. The mirror lists start empty and are only ever written by
// the synchronizer.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Email == "" || in.Password == "" || in.Role == "" {
		return nil, fmt.Errorf("%w: email, password and user_role are required", ErrInvalidInput)
	}

	if _, err := s.users.FindByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: user with this email already exists", ErrInvalidInput)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, mapStoreErr(err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	id, err := s.users.NextID(ctx)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	user := &models.User{
		ID:               id,
		FullName:         in.FullName,
		Email:            in.Email,
		Password:         string(hashed),
		Role:             in.Role,
		School:           in.School,
		Location:         in.Location,
		CurrentProjects:  []models.ProjectSummary{},
		AssignedProjects: []models.ProjectSummary{},
		CreatedAt:        time.Now().UTC(),
		IsActive:         true,
	}

	if err := s.users.Insert(ctx, user); err != nil {
		return nil, mapStoreErr(err)
	}

	logging.Logger.Infof("User %d registered with role %s", user.ID, user.Role)
	return user, nil
}

// Login verifies the credentials and issues a fresh opaque token.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: unknown email or wrong password", ErrInvalidCredentials)
		}
		return nil, "", mapStoreErr(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", fmt.Errorf("%w: unknown email or wrong password", ErrInvalidCredentials)
	}

	token := utils.NewAuthToken()
	if err := s.users.SetToken(ctx, user.StoreID, token); err != nil {
		return nil, "", mapStoreErr(err)
	}
	user.Token = token
	return user, token, nil
}

// ResolveToken maps an opaque bearer token to its user.
func (s *UserService) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.users.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, mapStoreErr(err)
	}
	return user, nil
}
