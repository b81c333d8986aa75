package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project is the authoritative document for a mentorship project,
// including its assignment lists and milestone tree. The integer id is
// the application-level identifier; assignment lists reference users by
// their store id.
type Project struct {
	StoreID            primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	ID                 int                `bson:"id" json:"id"`
	Title              string             `bson:"title" json:"title"`
	ProjectType        string             `bson:"project_type" json:"project_type"`
	ProjectDescription string             `bson:"project_description" json:"project_description"`
	Status             string             `bson:"status" json:"status"`
	CreatedByEmail     string             `bson:"created_by_email" json:"created_by_email"`

	AssignedStudent   AssignmentList `bson:"assigned_student" json:"assigned_student"`
	AssignedMentor    AssignmentList `bson:"assigned_mentor" json:"assigned_mentor"`
	ProjectCounsellor string         `bson:"project_counsellor,omitempty" json:"project_counsellor,omitempty"`

	Milestones []Milestone `bson:"milestones" json:"milestones"`

	DeliverablesTitle       string   `bson:"deliverables_title,omitempty" json:"deliverables_title,omitempty"`
	DeliverablesType        []string `bson:"deliverables_type,omitempty" json:"deliverables_type,omitempty"`
	DueDate                 string   `bson:"due_date,omitempty" json:"due_date,omitempty"`
	LinkedMilestones        string   `bson:"linked_milestones,omitempty" json:"linked_milestones,omitempty"`
	MetadataAndReq          string   `bson:"metadata_and_req,omitempty" json:"metadata_and_req,omitempty"`
	PageLimit               string   `bson:"page_limit,omitempty" json:"page_limit,omitempty"`
	AdditionalInstructions  string   `bson:"additional_instructions,omitempty" json:"additional_instructions,omitempty"`

	AllowMultipleSubmissions bool `bson:"allow_multiple_submissions" json:"allow_multiple_submissions"`
	MentorApproval           bool `bson:"mentor_approval" json:"mentor_approval"`
	CounsellorApproval       bool `bson:"counsellor_approval" json:"counsellor_approval"`

	ResourcesType        string `bson:"resources_type,omitempty" json:"resources_type,omitempty"`
	ResourcesTitle       string `bson:"resources_title,omitempty" json:"resources_title,omitempty"`
	ResourcesDescription string `bson:"resources_description,omitempty" json:"resources_description,omitempty"`

	AttachedFiles string `bson:"attached_files,omitempty" json:"attached_files,omitempty"`

	StudentVisibility bool `bson:"student_visibility" json:"student_visibility"`
	MentorVisibility  bool `bson:"mentor_visibility" json:"mentor_visibility"`

	SessionType   string `bson:"session_type,omitempty" json:"session_type,omitempty"`
	Purpose       string `bson:"purpose,omitempty" json:"purpose,omitempty"`
	PreferredTime string `bson:"preferred_time,omitempty" json:"preferred_time,omitempty"`
	Duration      string `bson:"duration,omitempty" json:"duration,omitempty"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Summary builds the mirror entry for this project as of now.
func (p *Project) Summary(assignedAt time.Time) ProjectSummary {
	return ProjectSummary{
		ProjectID:    p.ID,
		Title:        p.Title,
		Status:       p.Status,
		AssignedDate: assignedAt,
	}
}
