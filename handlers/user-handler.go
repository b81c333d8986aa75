package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/nikhilsoni22/teen-theory-backend/models"
	"github.com/nikhilsoni22/teen-theory-backend/services"
)

type UserHandler struct {
	Users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

// Register creates a new account.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in services.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, services.ErrInvalidInput)
		return
	}

	user, err := h.Users.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.APIResponse{
		Success: true,
		Message: "User registered successfully",
		Data:    user,
	})
}

// Login verifies credentials and returns a fresh bearer token.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, services.ErrInvalidInput)
		return
	}

	user, token, err := h.Users.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Login successful",
		Data: map[string]any{
			"token": token,
			"user":  user.Snapshot(),
		},
	})
}

// Me returns the authenticated caller's account.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.ResolveToken(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.APIResponse{
		Success: true,
		Message: "Profile retrieved successfully",
		Data:    user,
	})
}
