package store

import (
	"reflect"
	"testing"

	"github.com/kgtext/backend/pkg/common"
)

func node(id, typ string, props map[string]any) NodeRow {
	return NodeRow{ID: id, Type: typ, Properties: props}
}

func TestReconstruct_DeduplicatesJoinRows(t *testing.T) {
	alice := node("Alice", "Person", map[string]any{"graph_id": "g1", "id": "Alice", "type": "Person", "age": int64(30)})
	acme := node("Acme", "Org", map[string]any{"graph_id": "g1", "id": "Acme"})
	edge := &EdgeRow{Type: "WORKS_AT", Properties: map[string]any{"graph_id": "g1", "since": int64(2020), "role": "cto"}}
	sameEdgeOtherOrder := &EdgeRow{Type: "WORKS_AT", Properties: map[string]any{"role": "cto", "since": int64(2020), "graph_id": "g1"}}

	rows := []Row{
		{Node: alice, Edge: edge, Target: &acme},
		{Node: alice, Edge: sameEdgeOtherOrder, Target: &acme},
		{Node: acme},
	}

	entities, relations := Reconstruct(rows)

	wantEntities := []common.Entity{
		{ID: "Alice", Type: "Person", Properties: map[string]any{"age": int64(30)}},
		{ID: "Acme", Type: "Org", Properties: map[string]any{}},
	}
	if !reflect.DeepEqual(entities, wantEntities) {
		t.Fatalf("entities = %+v, want %+v", entities, wantEntities)
	}
	if len(relations) != 1 {
		t.Fatalf("expected 1 relationship, got %d: %+v", len(relations), relations)
	}
	want := common.Relationship{
		SourceID:   "Alice",
		TargetID:   "Acme",
		Type:       "WORKS_AT",
		Properties: map[string]any{"since": int64(2020), "role": "cto"},
	}
	if !reflect.DeepEqual(relations[0], want) {
		t.Fatalf("relationship = %+v, want %+v", relations[0], want)
	}
}

func TestReconstruct_DistinctPropertiesAreDistinctRelationships(t *testing.T) {
	a := node("A", "X", nil)
	b := node("B", "X", nil)
	rows := []Row{
		{Node: a, Edge: &EdgeRow{Type: "LINKS", Properties: map[string]any{"w": int64(1)}}, Target: &b},
		{Node: a, Edge: &EdgeRow{Type: "LINKS", Properties: map[string]any{"w": int64(2)}}, Target: &b},
		{Node: a, Edge: &EdgeRow{Type: "LINKS", Properties: map[string]any{"w": "1"}}, Target: &b},
	}
	_, relations := Reconstruct(rows)
	if len(relations) != 3 {
		t.Fatalf("expected 3 relationships, got %d", len(relations))
	}
}

func TestReconstruct_FirstOccurrenceWins(t *testing.T) {
	rows := []Row{
		{Node: node("A", "X", map[string]any{"v": "first"})},
		{Node: node("A", "X", map[string]any{"v": "second"})},
	}
	entities, _ := Reconstruct(rows)
	if len(entities) != 1 || entities[0].Properties["v"] != "first" {
		t.Fatalf("expected first occurrence, got %+v", entities)
	}
}

func TestReconstruct_EmptyRows(t *testing.T) {
	entities, relations := Reconstruct(nil)
	if entities == nil || relations == nil {
		t.Fatalf("expected non-nil empty slices")
	}
	if len(entities) != 0 || len(relations) != 0 {
		t.Fatalf("expected empty result, got %v %v", entities, relations)
	}
}

func TestEntityType(t *testing.T) {
	tests := []struct {
		name string
		row  NodeRow
		want string
	}{
		{"explicit type wins", NodeRow{Type: "Person", Labels: []string{GenericLabel, "Org"}}, "Person"},
		{"label fallback", NodeRow{Labels: []string{GenericLabel, "Org"}}, "Org"},
		{"multi label is deterministic", NodeRow{Labels: []string{"Zeta", GenericLabel, "Alpha"}}, "Alpha"},
		{"only generic label", NodeRow{Labels: []string{GenericLabel}}, common.DefaultEntityType},
		{"nothing", NodeRow{}, common.DefaultEntityType},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := EntityType(tc.row); got != tc.want {
				t.Fatalf("EntityType() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRelationshipKey_OrderIndependent(t *testing.T) {
	a := common.Relationship{SourceID: "A", TargetID: "B", Type: "T", Properties: map[string]any{"x": 1, "y": "z"}}
	b := common.Relationship{SourceID: "A", TargetID: "B", Type: "T", Properties: map[string]any{"y": "z", "x": 1}}
	if RelationshipKey(a) != RelationshipKey(b) {
		t.Fatalf("keys differ for equal relationships")
	}
	c := common.Relationship{SourceID: "B", TargetID: "A", Type: "T", Properties: map[string]any{"x": 1, "y": "z"}}
	if RelationshipKey(a) == RelationshipKey(c) {
		t.Fatalf("direction must be part of the key")
	}
}

func TestRelationshipKey_StringValuesCannotCollide(t *testing.T) {
	a := common.Relationship{SourceID: "A", TargetID: "B", Type: "T", Properties: map[string]any{"a": `x|"b"=string:y`}}
	b := common.Relationship{SourceID: "A", TargetID: "B", Type: "T", Properties: map[string]any{"a": "x", "b": "y"}}
	if RelationshipKey(a) == RelationshipKey(b) {
		t.Fatalf("distinct properties produced the same key %s", RelationshipKey(a))
	}

	n := common.Relationship{SourceID: "A", TargetID: "B", Type: "T", Properties: map[string]any{"a": 1}}
	s := common.Relationship{SourceID: "A", TargetID: "B", Type: "T", Properties: map[string]any{"a": "1"}}
	if RelationshipKey(n) == RelationshipKey(s) {
		t.Fatalf("int and string values must not share a key")
	}
}
