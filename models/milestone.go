package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/nikhilsoni22/teen-theory-backend/utils"
)

// StatusPending is the default status for projects, milestones and tasks.
const StatusPending = "pending"

// Task is a unit of work inside a milestone. Tasks carry no identifier
// beyond their title.
type Task struct {
	Title       string   `bson:"title" json:"title"`
	Status      string   `bson:"status" json:"status"`
	Attachments []string `bson:"attachments,omitempty" json:"attachments,omitempty"`
}

// Milestone is a named step of a project with its own task list.
type Milestone struct {
	ID          string     `bson:"id" json:"id"`
	Name        string     `bson:"name" json:"name"`
	Status      string     `bson:"status" json:"status"`
	Tasks       []Task     `bson:"tasks" json:"tasks"`
	Attachments []string   `bson:"attachments,omitempty" json:"attachments,omitempty"`
	UpdatedAt   *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Clients send milestones and tasks either as bare strings or as
// structured records. Decoding accepts both and converts bare values
// into the structured form immediately, so nothing past the boundary
// has to branch on shape.

func (t *Task) UnmarshalJSON(data []byte) error {
	var title string
	if err := json.Unmarshal(data, &title); err == nil {
		*t = Task{Title: title}
		return nil
	}
	type taskAlias Task
	var a taskAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = Task(a)
	return nil
}

func (t *Task) UnmarshalBSONValue(bt bsontype.Type, data []byte) error {
	switch bt {
	case bsontype.Null:
		*t = Task{}
		return nil
	case bsontype.String:
		title, _, ok := bsoncore.ReadString(data)
		if !ok {
			return fmt.Errorf("invalid bson string for task")
		}
		*t = Task{Title: title}
		return nil
	case bsontype.EmbeddedDocument:
		type taskAlias Task
		var a taskAlias
		if err := bson.Unmarshal(data, &a); err != nil {
			return err
		}
		*t = Task(a)
		return nil
	default:
		return fmt.Errorf("cannot decode %v into a task", bt)
	}
}

func (m *Milestone) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*m = Milestone{Name: name}
		return nil
	}
	type milestoneAlias Milestone
	var a milestoneAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*m = Milestone(a)
	return nil
}

func (m *Milestone) UnmarshalBSONValue(bt bsontype.Type, data []byte) error {
	switch bt {
	case bsontype.Null:
		*m = Milestone{}
		return nil
	case bsontype.String:
		name, _, ok := bsoncore.ReadString(data)
		if !ok {
			return fmt.Errorf("invalid bson string for milestone")
		}
		*m = Milestone{Name: name}
		return nil
	case bsontype.EmbeddedDocument:
		type milestoneAlias Milestone
		var a milestoneAlias
		if err := bson.Unmarshal(data, &a); err != nil {
			return err
		}
		*m = Milestone(a)
		return nil
	default:
		return fmt.Errorf("cannot decode %v into a milestone", bt)
	}
}

// NormalizeMilestone fills in the canonical fields of a milestone: a
// project-locally unique id (generated only when absent), a default
// status, and a non-nil task list with defaulted task statuses.
// Re-normalizing an already canonical milestone returns it unchanged.
func NormalizeMilestone(projectID, index int, m Milestone) Milestone {
	if m.ID == "" {
		m.ID = fmt.Sprintf("%d-%d-%s", projectID, index, utils.TokenHex(6))
	}
	if m.Status == "" {
		m.Status = StatusPending
	}
	if m.Tasks == nil {
		m.Tasks = []Task{}
	}
	for i := range m.Tasks {
		if m.Tasks[i].Status == "" {
			m.Tasks[i].Status = StatusPending
		}
	}
	return m
}

// NormalizeMilestones canonicalizes every milestone in the list.
func NormalizeMilestones(projectID int, milestones []Milestone) []Milestone {
	out := make([]Milestone, len(milestones))
	for i, m := range milestones {
		out[i] = NormalizeMilestone(projectID, i, m)
	}
	return out
}

// ParseMilestones decodes the raw milestones form value. The value is
// either a JSON array (of strings or records) or a plain label, which
// becomes a single unnamed-status milestone.
func ParseMilestones(raw string) []Milestone {
	if raw == "" {
		return nil
	}
	var list []Milestone
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list
	}
	var single Milestone
	if err := json.Unmarshal([]byte(raw), &single); err == nil {
		return []Milestone{single}
	}
	return []Milestone{{Name: raw}}
}
