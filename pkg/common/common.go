package common

// Entity represents a node in a knowledge graph. The ID is the natural key
// and is only unique inside the graph it belongs to; Type doubles as the
// storage label and the visualization group.
type Entity struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Relationship represents a directed, typed edge between two entities of the
// same graph. Endpoints are referenced by entity id and are not guaranteed to
// exist; dangling relationships are dropped when the graph is visualized.
type Relationship struct {
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties,omitempty"`
}

// GraphMeta is the catalog record stored once per graph.
type GraphMeta struct {
	GraphID string `json:"graph_id"`
	Name    string `json:"name"`
}

const (
	// DefaultEntityType is used when an entity arrives without a type.
	DefaultEntityType = "Entity"
	// DefaultRelationshipType is used when a relationship arrives without a type.
	DefaultRelationshipType = "RELATED_TO"
)
