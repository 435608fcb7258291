package neo4j

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kgtext/backend/pkg/store"
)

func recordString(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

// rowFromRecord converts one (n, r, m) record of the reconstruction query.
func rowFromRecord(record *neo4j.Record) (store.Row, bool) {
	n, _ := record.Get("n")
	r, _ := record.Get("r")
	m, _ := record.Get("m")
	return rowFromValues(n, r, m)
}

// rowFromValues builds a store.Row from driver values. r and m are nil when
// the optional match found nothing.
func rowFromValues(n, r, m any) (store.Row, bool) {
	source, ok := n.(neo4j.Node)
	if !ok {
		return store.Row{}, false
	}
	row := store.Row{Node: nodeRow(source)}

	rel, relOK := r.(neo4j.Relationship)
	target, targetOK := m.(neo4j.Node)
	if relOK && targetOK {
		t := nodeRow(target)
		row.Edge = &store.EdgeRow{Type: rel.Type, Properties: rel.Props}
		row.Target = &t
	}
	return row, true
}

func nodeRow(n neo4j.Node) store.NodeRow {
	id, _ := n.Props["id"].(string)
	typ, _ := n.Props["type"].(string)
	return store.NodeRow{
		ID:         id,
		Type:       typ,
		Labels:     n.Labels,
		Properties: n.Props,
	}
}
