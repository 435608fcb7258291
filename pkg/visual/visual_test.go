package visual

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/kgtext/backend/pkg/common"
)

func assertEdgesReferenceNodes(t *testing.T, g RenderableGraph) {
	t.Helper()
	nodes := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes[n.ID] = true
	}
	for _, e := range g.Edges {
		if !nodes[e.From] || !nodes[e.To] {
			t.Fatalf("edge %+v references a missing node", e)
		}
	}
}

func TestBuild_ConnectedPair(t *testing.T) {
	entities := []common.Entity{
		{ID: "Alice", Type: "Person"},
		{ID: "Acme", Type: "Org"},
	}
	relations := []common.Relationship{{SourceID: "Alice", TargetID: "Acme", Type: "WORKS_AT"}}

	g := Build(entities, relations)

	wantNodes := []Node{
		{ID: "Alice", Label: "Alice", Title: "Person", Group: "Person"},
		{ID: "Acme", Label: "Acme", Title: "Org", Group: "Org"},
	}
	if !reflect.DeepEqual(g.Nodes, wantNodes) {
		t.Fatalf("nodes = %+v, want %+v", g.Nodes, wantNodes)
	}
	wantEdges := []Edge{{From: "Alice", To: "Acme", Label: "works_at"}}
	if !reflect.DeepEqual(g.Edges, wantEdges) {
		t.Fatalf("edges = %+v, want %+v", g.Edges, wantEdges)
	}
	if g.Options != DefaultOptions() {
		t.Fatalf("options must be the fixed layout configuration")
	}
}

func TestBuild_IsolatedEntityExcluded(t *testing.T) {
	g := Build([]common.Entity{{ID: "X"}}, nil)
	if len(g.Nodes) != 0 || len(g.Edges) != 0 {
		t.Fatalf("expected empty graph, got %+v", g)
	}
	if g.Nodes == nil || g.Edges == nil {
		t.Fatalf("empty graph must still carry non-nil lists")
	}
}

func TestBuild_DanglingRelationshipDropped(t *testing.T) {
	entities := []common.Entity{
		{ID: "Alice", Type: "Person"},
		{ID: "Bob", Type: "Person"},
		{ID: "Acme", Type: "Org"},
	}
	relations := []common.Relationship{
		{SourceID: "Alice", TargetID: "Acme", Type: "WORKS_AT"},
		{SourceID: "Bob", TargetID: "Ghost", Type: "KNOWS"},
	}

	g := Build(entities, relations)

	if len(g.Edges) != 1 || g.Stats.DroppedEdges != 1 {
		t.Fatalf("expected 1 edge and 1 dropped, got %+v", g)
	}
	for _, n := range g.Nodes {
		if n.ID == "Bob" || n.ID == "Ghost" {
			t.Fatalf("node %q has no valid edge and must be excluded", n.ID)
		}
	}
	assertEdgesReferenceNodes(t, g)
}

func TestBuild_SkipsInvalidItems(t *testing.T) {
	bad := string([]byte{0xff, 0xfe})
	entities := []common.Entity{
		{ID: "A", Type: "X"},
		{ID: "B", Type: bad},
		{ID: "C", Type: "X"},
		{ID: "D", Type: "X"},
	}
	relations := []common.Relationship{
		{SourceID: "A", TargetID: "B", Type: "LINKS"},
		{SourceID: "A", TargetID: "C", Type: "LINKS"},
		{SourceID: "C", TargetID: "D", Type: bad},
	}

	g := Build(entities, relations)

	if g.Stats.SkippedNodes != 1 || g.Stats.SkippedEdges != 2 {
		t.Fatalf("stats = %+v", g.Stats)
	}
	if len(g.Edges) != 1 || g.Edges[0].To != "C" {
		t.Fatalf("edges = %+v", g.Edges)
	}
	assertEdgesReferenceNodes(t, g)
}

func TestBuild_DeterministicOrder(t *testing.T) {
	entities := []common.Entity{{ID: "C"}, {ID: "B"}, {ID: "A"}}
	relations := []common.Relationship{
		{SourceID: "B", TargetID: "A", Type: "T"},
		{SourceID: "C", TargetID: "B", Type: "T"},
	}
	first := Build(entities, relations)
	second := Build(entities, relations)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("build is not deterministic")
	}
	var ids []string
	for _, n := range first.Nodes {
		ids = append(ids, n.ID)
	}
	if strings.Join(ids, ",") != "B,A,C" {
		t.Fatalf("node order = %v", ids)
	}
	if first.Nodes[0].Group != common.DefaultEntityType {
		t.Fatalf("empty type must default, got %q", first.Nodes[0].Group)
	}
}

func TestRenderableGraph_JSON(t *testing.T) {
	g := Build(
		[]common.Entity{{ID: "A", Type: "X"}, {ID: "B", Type: "Y"}},
		[]common.Relationship{{SourceID: "A", TargetID: "B", Type: "KNOWS"}},
	)
	data, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	for _, want := range []string{`"from":"A"`, `"solver":"forceAtlas2Based"`, `"gravitationalConstant":-100`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("json %s missing %s", data, want)
		}
	}
}
