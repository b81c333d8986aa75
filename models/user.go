package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles. Stored as open strings; these are the values the
// platform issues itself.
const (
	RoleStudent    = "Student"
	RoleMentor     = "Mentor"
	RoleCounsellor = "Counsellor"
	RoleAdmin      = "Admin"
)

// User is a platform account. Two identifiers exist: the store id
// (ObjectID, referenced by project assignment lists) and the integer id
// used by user-facing APIs. The mirror lists are owned by the
// synchronizer and never written through the profile update path.
type User struct {
	StoreID  primitive.ObjectID `bson:"_id,omitempty" json:"store_id,omitempty"`
	ID       int                `bson:"id" json:"id"`
	FullName string             `bson:"full_name" json:"full_name"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"hashed_password" json:"-"`
	Role     string             `bson:"user_role" json:"user_role"`
	Token    string             `bson:"token,omitempty" json:"-"`

	ProfilePhoto string `bson:"profile_photo,omitempty" json:"profile_photo,omitempty"`
	PhoneNumber  string `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	Location     string `bson:"location,omitempty" json:"location,omitempty"`
	School       string `bson:"school,omitempty" json:"school,omitempty"`

	CurrentProjects  []ProjectSummary `bson:"current_projects" json:"current_projects"`
	AssignedProjects []ProjectSummary `bson:"assigned_projects" json:"assigned_projects"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	IsActive  bool      `bson:"is_active" json:"is_active"`
}

// UserSnapshot is the resolved profile shape returned wherever a raw
// user reference is expanded for presentation (project participants,
// notification senders).
type UserSnapshot struct {
	StoreID      string `json:"_id"`
	ID           int    `json:"id"`
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	ProfilePhoto string `json:"profile_photo,omitempty"`
	Role         string `json:"user_role"`
}

// Snapshot builds the presentation snapshot of a user.
func (u *User) Snapshot() UserSnapshot {
	return UserSnapshot{
		StoreID:      u.StoreID.Hex(),
		ID:           u.ID,
		FullName:     u.FullName,
		Email:        u.Email,
		ProfilePhoto: u.ProfilePhoto,
		Role:         u.Role,
	}
}

// IsPrivileged reports whether the user's role allows administrative
// actions such as deleting projects they did not create. Role values
// are compared case-insensitively since older documents stored them
// lowercased.
func (u *User) IsPrivileged() bool {
	return strings.EqualFold(u.Role, RoleAdmin) || strings.EqualFold(u.Role, RoleCounsellor)
}
