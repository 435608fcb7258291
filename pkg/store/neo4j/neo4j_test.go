package neo4j

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kgtext/backend/pkg/common"
	"github.com/kgtext/backend/pkg/store"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Person", "`Person`"},
		{"WORKS AT", "`WORKS AT`"},
		{"a`b", "`a``b`"},
		{"x`]->(y) DETACH DELETE y //", "`x``]->(y) DETACH DELETE y //`"},
	}
	for _, tc := range tests {
		if got := quoteIdentifier(tc.in); got != tc.want {
			t.Fatalf("quoteIdentifier(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBuildStatements_Order(t *testing.T) {
	entities := []common.Entity{
		{ID: "Alice", Type: "Person", Properties: map[string]any{"age": 30}},
		{ID: "Acme", Type: "Org"},
		{ID: "Bob", Type: "Person"},
	}
	relations := []common.Relationship{
		{SourceID: "Alice", TargetID: "Acme", Type: "WORKS_AT"},
		{SourceID: "Alice", TargetID: "Bob", Type: ""},
	}

	stmts := buildStatements("g1", "demo", entities, relations)
	if len(stmts) != 5 {
		t.Fatalf("expected 5 statements, got %d", len(stmts))
	}
	if stmts[0].query != upsertMetadataQuery || stmts[0].params["name"] != "demo" {
		t.Fatalf("first statement must upsert metadata: %+v", stmts[0])
	}
	if !strings.Contains(stmts[1].query, "SET n:`Person`") || len(stmts[1].params["rows"].([]map[string]any)) != 2 {
		t.Fatalf("second statement must merge both Person entities: %+v", stmts[1])
	}
	if !strings.Contains(stmts[2].query, "SET n:`Org`") {
		t.Fatalf("third statement must merge Org: %s", stmts[2].query)
	}
	if !strings.Contains(stmts[3].query, "[r:`WORKS_AT`") {
		t.Fatalf("fourth statement must merge WORKS_AT: %s", stmts[3].query)
	}
	if !strings.Contains(stmts[4].query, "[r:`"+common.DefaultRelationshipType+"`") {
		t.Fatalf("empty relationship type must default: %s", stmts[4].query)
	}
	for _, stmt := range stmts {
		if stmt.params["graph_id"] != "g1" {
			t.Fatalf("statement not scoped by graph id: %+v", stmt)
		}
	}

	props := stmts[1].params["rows"].([]map[string]any)[0]["properties"].(map[string]any)
	if props["age"] != int64(30) {
		t.Fatalf("integers must be widened to int64, got %T", props["age"])
	}
}

func TestBuildStatements_ReservedPropertiesKeepGraphScope(t *testing.T) {
	entities := []common.Entity{
		{ID: "Alice", Type: "Person", Properties: map[string]any{"graph_id": "g2", "id": "Mallory", "role": "dev"}},
		{ID: "Acme", Type: "Org"},
	}
	relations := []common.Relationship{
		{SourceID: "Alice", TargetID: "Acme", Type: "WORKS_AT", Properties: map[string]any{"graph_id": "g2"}},
	}

	stmts := buildStatements("g1", "demo", entities, relations)

	row := stmts[1].params["rows"].([]map[string]any)[0]
	if row["id"] != "Alice" || !reflect.DeepEqual(row["properties"], map[string]any{"role": "dev"}) {
		t.Fatalf("entity row leaks reserved keys: %v", row)
	}
	rel := stmts[3].params["rows"].([]map[string]any)[0]
	if !reflect.DeepEqual(rel["properties"], map[string]any{}) {
		t.Fatalf("relationship row leaks reserved keys: %v", rel)
	}
	for _, stmt := range stmts[1:] {
		if stmt.params["graph_id"] != "g1" {
			t.Fatalf("statement not scoped to g1: %+v", stmt.params)
		}
	}

	// The scope is assigned after the property merge so it always wins.
	entityQuery := stmts[1].query
	if strings.Index(entityQuery, "n.graph_id = $graph_id") < strings.Index(entityQuery, "n += row.properties") ||
		!strings.Contains(entityQuery, "n.id = row.id") {
		t.Fatalf("entity query does not pin its scope: %s", entityQuery)
	}
	if !strings.Contains(stmts[3].query, "r += row.properties, r.graph_id = $graph_id") {
		t.Fatalf("relationship query does not pin its scope: %s", stmts[3].query)
	}
}

func TestClassifyWriteError(t *testing.T) {
	cause := errors.New("connection reset")
	if err := classifyWriteError(0, cause); !errors.Is(err, common.ErrStoreConnection) {
		t.Fatalf("expected store connection error, got %v", err)
	}
	err := classifyWriteError(2, cause)
	var e *common.Error
	if !errors.As(err, &e) || !errors.Is(err, common.ErrPartialWrite) || e.Applied != 2 {
		t.Fatalf("expected partial write error with 2 applied, got %v", err)
	}
}

func TestRowFromValues(t *testing.T) {
	alice := neo4j.Node{
		Labels: []string{store.GenericLabel, "Person"},
		Props:  map[string]any{"graph_id": "g1", "id": "Alice", "type": "Person", "age": int64(30)},
	}
	acme := neo4j.Node{
		Labels: []string{store.GenericLabel, "Org"},
		Props:  map[string]any{"graph_id": "g1", "id": "Acme"},
	}
	rel := neo4j.Relationship{Type: "WORKS_AT", Props: map[string]any{"graph_id": "g1"}}

	row, ok := rowFromValues(alice, rel, acme)
	if !ok || row.Edge == nil || row.Target == nil {
		t.Fatalf("expected full row, got %+v", row)
	}

	lonely, ok := rowFromValues(acme, nil, nil)
	if !ok || lonely.Edge != nil || lonely.Target != nil {
		t.Fatalf("expected node-only row, got %+v", lonely)
	}

	if _, ok := rowFromValues(nil, nil, nil); ok {
		t.Fatalf("expected missing node to be rejected")
	}

	entities, relations := store.Reconstruct([]store.Row{row, lonely})
	wantEntities := []common.Entity{
		{ID: "Alice", Type: "Person", Properties: map[string]any{"age": int64(30)}},
		{ID: "Acme", Type: "Org", Properties: map[string]any{}},
	}
	if !reflect.DeepEqual(entities, wantEntities) {
		t.Fatalf("entities = %+v, want %+v", entities, wantEntities)
	}
	if len(relations) != 1 || relations[0].Type != "WORKS_AT" || len(relations[0].Properties) != 0 {
		t.Fatalf("relations = %+v", relations)
	}
}
