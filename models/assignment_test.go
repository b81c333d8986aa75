package models

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestParseAssignments(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want AssignmentList
	}{
		{"empty", "", nil},
		{"bare id", "665f1a2b3c4d5e6f70818283", AssignmentList{{ID: "665f1a2b3c4d5e6f70818283"}}},
		{"json record", `{"id": "abc", "email": "mia@example.com"}`, AssignmentList{{ID: "abc", Email: "mia@example.com"}}},
		{"json array of ids", `["abc", "def"]`, AssignmentList{{ID: "abc"}, {ID: "def"}}},
		{"mixed array", `["abc", {"id": "def", "full_name": "Dev Patel"}]`, AssignmentList{{ID: "abc"}, {ID: "def", FullName: "Dev Patel"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseAssignments(tc.raw)
			if len(got) != len(tc.want) {
				t.Fatalf("ParseAssignments(%q) = %d refs, want %d", tc.raw, len(got), len(tc.want))
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("ref %d = %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestAssignmentListJSONToleratesSingleRecord(t *testing.T) {
	var list AssignmentList
	if err := json.Unmarshal([]byte(`{"id": "abc"}`), &list); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != "abc" {
		t.Fatalf("expected single-ref list, got %+v", list)
	}
}

func TestAssignmentListBSONShapes(t *testing.T) {
	type doc struct {
		Refs AssignmentList `bson:"refs"`
	}

	cases := []struct {
		name string
		in   bson.M
		want AssignmentList
	}{
		{"bare string", bson.M{"refs": "abc"}, AssignmentList{{ID: "abc"}}},
		{"single record", bson.M{"refs": bson.M{"id": "abc", "email": "mia@example.com"}}, AssignmentList{{ID: "abc", Email: "mia@example.com"}}},
		{"array of strings", bson.M{"refs": bson.A{"abc", "def"}}, AssignmentList{{ID: "abc"}, {ID: "def"}}},
		{"null", bson.M{"refs": nil}, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := bson.Marshal(tc.in)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			var out doc
			if err := bson.Unmarshal(raw, &out); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if len(out.Refs) != len(tc.want) {
				t.Fatalf("decoded %d refs, want %d", len(out.Refs), len(tc.want))
			}
			for i := range out.Refs {
				if out.Refs[i] != tc.want[i] {
					t.Fatalf("ref %d = %+v, want %+v", i, out.Refs[i], tc.want[i])
				}
			}
		})
	}
}

func TestMilestoneBSONToleratesLegacyShapes(t *testing.T) {
	type doc struct {
		Milestones []Milestone `bson:"milestones"`
	}
	raw, err := bson.Marshal(bson.M{"milestones": bson.A{
		"Research",
		bson.M{"id": "1-1-abcdef", "name": "Draft", "status": "completed", "tasks": bson.A{"Outline"}},
	}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out doc
	if err := bson.Unmarshal(raw, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(out.Milestones) != 2 {
		t.Fatalf("decoded %d milestones, want 2", len(out.Milestones))
	}
	if out.Milestones[0].Name != "Research" {
		t.Fatalf("legacy string milestone = %+v", out.Milestones[0])
	}
	if out.Milestones[1].Status != "completed" {
		t.Fatalf("record milestone status = %q, want completed", out.Milestones[1].Status)
	}
	if len(out.Milestones[1].Tasks) != 1 || out.Milestones[1].Tasks[0].Title != "Outline" {
		t.Fatalf("legacy string task = %+v", out.Milestones[1].Tasks)
	}
}
