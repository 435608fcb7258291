package neo4j

import (
	"strings"

	"github.com/kgtext/backend/pkg/store"
)

const (
	constraintStatement = `CREATE CONSTRAINT graph_metadata_id IF NOT EXISTS FOR (g:GraphMetadata) REQUIRE g.id IS UNIQUE`
	indexStatement       = `CREATE INDEX graph_resource_scope IF NOT EXISTS FOR (n:GraphResource) ON (n.graph_id, n.id)`

	upsertMetadataQuery = `
MERGE (g:GraphMetadata {id: $graph_id})
SET g.name = coalesce(g.name, $name)
`

	catalogQuery = `
MATCH (g:GraphMetadata)
RETURN g.id AS graph_id, g.name AS name
ORDER BY name, graph_id
`

	reconstructQuery = `
MATCH (n:GraphResource {graph_id: $graph_id})
OPTIONAL MATCH (n)-[r {graph_id: $graph_id}]->(m:GraphResource {graph_id: $graph_id})
RETURN n, r, m
`
)

// quoteIdentifier backtick-quotes a label or relationship type so arbitrary
// extracted types cannot break out of the statement.
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func upsertEntitiesQuery(entityType string) string {
	return `
UNWIND $rows AS row
MERGE (n:` + store.GenericLabel + ` {graph_id: $graph_id, id: row.id})
SET n:` + quoteIdentifier(entityType) + `, n += row.properties, n.graph_id = $graph_id, n.id = row.id, n.type = row.type
`
}

func upsertRelationshipsQuery(relationshipType string) string {
	return `
UNWIND $rows AS row
MATCH (a:` + store.GenericLabel + ` {graph_id: $graph_id, id: row.source})
MATCH (b:` + store.GenericLabel + ` {graph_id: $graph_id, id: row.target})
MERGE (a)-[r:` + quoteIdentifier(relationshipType) + ` {graph_id: $graph_id}]->(b)
SET r += row.properties, r.graph_id = $graph_id
`
}
