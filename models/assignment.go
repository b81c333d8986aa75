package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"
)

// AssignmentRef points at a user from a project's assignment list.
// The id is the referenced user's store id (ObjectID hex). Historic
// documents hold bare id strings instead of full records.
type AssignmentRef struct {
	ID       string `bson:"id,omitempty" json:"id,omitempty"`
	Email    string `bson:"email,omitempty" json:"email,omitempty"`
	FullName string `bson:"full_name,omitempty" json:"full_name,omitempty"`
}

func (r *AssignmentRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*r = AssignmentRef{ID: id}
		return nil
	}
	type refAlias AssignmentRef
	var a refAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = AssignmentRef(a)
	return nil
}

func (r *AssignmentRef) UnmarshalBSONValue(bt bsontype.Type, data []byte) error {
	switch bt {
	case bsontype.Null:
		*r = AssignmentRef{}
		return nil
	case bsontype.String:
		id, _, ok := bsoncore.ReadString(data)
		if !ok {
			return fmt.Errorf("invalid bson string for assignment reference")
		}
		*r = AssignmentRef{ID: id}
		return nil
	case bsontype.EmbeddedDocument:
		type refAlias AssignmentRef
		var a refAlias
		if err := bson.Unmarshal(data, &a); err != nil {
			return err
		}
		*r = AssignmentRef(a)
		return nil
	default:
		return fmt.Errorf("cannot decode %v into an assignment reference", bt)
	}
}

// AssignmentList tolerates a single record where a list is expected,
// normalizing it to a one-element list.
type AssignmentList []AssignmentRef

func (l *AssignmentList) UnmarshalJSON(data []byte) error {
	var refs []AssignmentRef
	if err := json.Unmarshal(data, &refs); err == nil {
		*l = refs
		return nil
	}
	var single AssignmentRef
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = AssignmentList{single}
	return nil
}

func (l *AssignmentList) UnmarshalBSONValue(bt bsontype.Type, data []byte) error {
	switch bt {
	case bsontype.Null:
		*l = nil
		return nil
	case bsontype.Array:
		var refs []AssignmentRef
		if err := bson.UnmarshalValue(bt, data, &refs); err != nil {
			return err
		}
		*l = refs
		return nil
	default:
		var single AssignmentRef
		if err := single.UnmarshalBSONValue(bt, data); err != nil {
			return err
		}
		*l = AssignmentList{single}
		return nil
	}
}

// ParseAssignments decodes a raw assignment form value: a JSON array,
// a JSON record, or a bare identifier.
func ParseAssignments(raw string) AssignmentList {
	if raw == "" {
		return nil
	}
	var list AssignmentList
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list
	}
	return AssignmentList{{ID: raw}}
}

// ProjectSummary is the denormalized project snapshot mirrored into a
// user's current_projects / assigned_projects lists. It is a
// point-in-time copy, corrected only by explicit status updates and
// deletes.
type ProjectSummary struct {
	ProjectID    int       `bson:"project_id" json:"project_id"`
	Title        string    `bson:"title" json:"title"`
	Status       string    `bson:"status" json:"status"`
	AssignedDate time.Time `bson:"assigned_date" json:"assigned_date"`
}
