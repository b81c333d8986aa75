package models

// APIResponse is the envelope every endpoint returns: a success flag,
// a human-readable message, and either a data payload or null.
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}
