package store

import (
	"sort"
	"strings"

	"github.com/kgtext/backend/pkg/common"
)

func ChunkRange(total, chunkSize int, fn func(start, end int) error) error {
	if total <= 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = total
	}
	for start := 0; start < total; start += chunkSize {
		end := min(start+chunkSize, total)
		if err := fn(start, end); err != nil {
			return err
		}
	}
	return nil
}

// EntityTypeOrDefault trims t and substitutes the default entity type when
// nothing is left.
func EntityTypeOrDefault(t string) string {
	if t = strings.TrimSpace(t); t == "" {
		return common.DefaultEntityType
	}
	return t
}

// RelationshipTypeOrDefault trims t and substitutes the default relationship
// type when nothing is left.
func RelationshipTypeOrDefault(t string) string {
	if t = strings.TrimSpace(t); t == "" {
		return common.DefaultRelationshipType
	}
	return t
}

// CoalesceEntities prepares an extraction batch for writing: properties are
// sanitized and stripped of the reserved keys (graph_id, id, type), empty
// types defaulted, entities without id dropped and repeated
// ids merged into the first occurrence. Later properties overwrite earlier
// ones and the last type wins, the same outcome sequential merges would have.
func CoalesceEntities(entities []common.Entity) []common.Entity {
	out := make([]common.Entity, 0, len(entities))
	index := make(map[string]int, len(entities))
	for _, e := range entities {
		if e.ID == "" {
			continue
		}
		props := UserProperties(common.Sanitize(e.Properties))
		if i, ok := index[e.ID]; ok {
			for k, v := range props {
				out[i].Properties[k] = v
			}
			out[i].Type = EntityTypeOrDefault(e.Type)
			continue
		}
		index[e.ID] = len(out)
		out = append(out, common.Entity{
			ID:         e.ID,
			Type:       EntityTypeOrDefault(e.Type),
			Properties: props,
		})
	}
	return out
}

type relationshipKey struct {
	source, target, typ string
}

// CoalesceRelationships is the relationship counterpart of CoalesceEntities,
// keyed by (source, target, type).
func CoalesceRelationships(relations []common.Relationship) []common.Relationship {
	out := make([]common.Relationship, 0, len(relations))
	index := make(map[relationshipKey]int, len(relations))
	for _, r := range relations {
		if r.SourceID == "" || r.TargetID == "" {
			continue
		}
		key := relationshipKey{r.SourceID, r.TargetID, RelationshipTypeOrDefault(r.Type)}
		props := UserProperties(common.Sanitize(r.Properties))
		if i, ok := index[key]; ok {
			for k, v := range props {
				out[i].Properties[k] = v
			}
			continue
		}
		index[key] = len(out)
		out = append(out, common.Relationship{
			SourceID:   r.SourceID,
			TargetID:   r.TargetID,
			Type:       key.typ,
			Properties: props,
		})
	}
	return out
}

// GroupEntitiesByType splits a batch into per-type groups, ordered by the
// first appearance of each type.
func GroupEntitiesByType(entities []common.Entity) [][]common.Entity {
	var groups [][]common.Entity
	index := make(map[string]int)
	for _, e := range entities {
		i, ok := index[e.Type]
		if !ok {
			i = len(groups)
			index[e.Type] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], e)
	}
	return groups
}

// GroupRelationshipsByType splits a batch into per-type groups, ordered by
// the first appearance of each type.
func GroupRelationshipsByType(relations []common.Relationship) [][]common.Relationship {
	var groups [][]common.Relationship
	index := make(map[string]int)
	for _, r := range relations {
		i, ok := index[r.Type]
		if !ok {
			i = len(groups)
			index[r.Type] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups
}

// SortCatalog orders catalog records by name, then graph id.
func SortCatalog(metas []common.GraphMeta) {
	sort.SliceStable(metas, func(i, j int) bool {
		if metas[i].Name != metas[j].Name {
			return metas[i].Name < metas[j].Name
		}
		return metas[i].GraphID < metas[j].GraphID
	})
}
