package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kgtext/backend/pkg/common"
)

// NodeRow is an entity as read back from a backend.
type NodeRow struct {
	ID         string
	Type       string
	Labels     []string
	Properties map[string]any
}

// EdgeRow is a relationship as read back from a backend. Its endpoints are
// the nodes of the Row it belongs to.
type EdgeRow struct {
	Type       string
	Properties map[string]any
}

// Row is one result of the reconstruction join: a node of the graph and,
// optionally, one of its outgoing relationships together with the target
// node. Edge and Target are either both set or both nil.
type Row struct {
	Node   NodeRow
	Edge   *EdgeRow
	Target *NodeRow
}

// reservedKeys are bookkeeping written next to the user properties. They
// are stripped from user properties on write and on read.
var reservedKeys = map[string]struct{}{
	"graph_id": {},
	"id":       {},
	"type":     {},
}

// EntityType resolves the domain type of a stored node. The explicit type
// field wins; otherwise the labels minus the generic partition label are
// sorted and the first is used so multi-label nodes resolve the same way on
// every read.
func EntityType(n NodeRow) string {
	if t := strings.TrimSpace(n.Type); t != "" {
		return t
	}
	labels := make([]string, 0, len(n.Labels))
	for _, l := range n.Labels {
		if l != GenericLabel && l != "" {
			labels = append(labels, l)
		}
	}
	if len(labels) == 0 {
		return common.DefaultEntityType
	}
	sort.Strings(labels)
	return labels[0]
}

// UserProperties returns props without the bookkeeping keys.
func UserProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		if _, ok := reservedKeys[k]; ok {
			continue
		}
		out[k] = v
	}
	return out
}

// RelationshipKey identifies a relationship by all of its fields. Property
// order does not matter and values are written in Go syntax, so string
// values are quoted and cannot imitate another key.
func RelationshipKey(r common.Relationship) string {
	keys := make([]string, 0, len(r.Properties))
	for k := range r.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%q|%q|%q", r.SourceID, r.TargetID, r.Type)
	for _, k := range keys {
		v := r.Properties[k]
		fmt.Fprintf(&b, "|%q=%T:%#v", k, v, v)
	}
	return b.String()
}

// Reconstruct turns join rows into deduplicated entity and relationship
// sets. Entities keep their first occurrence; relationships are unique by
// RelationshipKey. The result slices are never nil.
func Reconstruct(rows []Row) ([]common.Entity, []common.Relationship) {
	entities := make([]common.Entity, 0)
	relations := make([]common.Relationship, 0)

	seenNodes := make(map[string]struct{})
	addNode := func(n NodeRow) {
		if n.ID == "" {
			return
		}
		if _, ok := seenNodes[n.ID]; ok {
			return
		}
		seenNodes[n.ID] = struct{}{}
		entities = append(entities, common.Entity{
			ID:         n.ID,
			Type:       EntityType(n),
			Properties: UserProperties(n.Properties),
		})
	}

	seenRels := make(map[string]struct{})
	for _, row := range rows {
		addNode(row.Node)
		if row.Target == nil {
			continue
		}
		addNode(*row.Target)
		if row.Edge == nil || row.Node.ID == "" || row.Target.ID == "" {
			continue
		}

		rel := common.Relationship{
			SourceID:   row.Node.ID,
			TargetID:   row.Target.ID,
			Type:       RelationshipTypeOrDefault(row.Edge.Type),
			Properties: UserProperties(row.Edge.Properties),
		}
		key := RelationshipKey(rel)
		if _, ok := seenRels[key]; ok {
			continue
		}
		seenRels[key] = struct{}{}
		relations = append(relations, rel)
	}

	return entities, relations
}
