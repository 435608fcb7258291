package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/kgtext/backend/internal/util"
	"github.com/kgtext/backend/pkg/ai"
	"github.com/kgtext/backend/pkg/common"
	"github.com/kgtext/backend/pkg/logger"
)

// DefaultEntityTypes are suggested to the model when none are configured.
var DefaultEntityTypes = []string{"Person", "Organization", "Location", "Event", "Concept", "Product", "Date", "CreativeWork"}

// Extractor turns natural-language text into entities and relationships.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]common.Entity, []common.Relationship, error)
}

type extractEntity struct {
	ID          string `json:"id" jsonschema_description:"Canonical name of the entity as written in the text"`
	Type        string `json:"type" jsonschema_description:"Entity type, preferably one of the provided types"`
	Description string `json:"description" jsonschema_description:"Short description of the entity based on the text"`
}

type extractRelationship struct {
	Source      string `json:"source" jsonschema_description:"id of the source entity"`
	Target      string `json:"target" jsonschema_description:"id of the target entity"`
	Type        string `json:"type" jsonschema_description:"Relationship type in UPPER_SNAKE_CASE"`
	Description string `json:"description" jsonschema_description:"How the source entity relates to the target entity"`
}

type extractResponse struct {
	Entities      []extractEntity       `json:"entities" jsonschema_description:"Entities identified in the text"`
	Relationships []extractRelationship `json:"relationships" jsonschema_description:"Relationships identified in the text"`
}

// AIExtractor extracts a graph with a language model. Long input is split
// into units that are extracted concurrently and merged.
type AIExtractor struct {
	client           ai.GraphAIClient
	entityTypes      []string
	maxRetries       int
	parallelRequests int
	maxUnitTokens    int
	countTokens      TokenCounter
}

// NewAIExtractorParams configures NewAIExtractor. Zero values fall back to
// DefaultEntityTypes, 3 retries, 4 parallel requests and 2000 tokens per
// unit. CountTokens defaults to ai.CountTokens.
type NewAIExtractorParams struct {
	Client           ai.GraphAIClient
	EntityTypes      []string
	MaxRetries       int
	ParallelRequests int
	MaxUnitTokens    int
	CountTokens      TokenCounter
}

func NewAIExtractor(params NewAIExtractorParams) *AIExtractor {
	e := &AIExtractor{
		client:           params.Client,
		entityTypes:      params.EntityTypes,
		maxRetries:       params.MaxRetries,
		parallelRequests: params.ParallelRequests,
		maxUnitTokens:    params.MaxUnitTokens,
		countTokens:      params.CountTokens,
	}
	if len(e.entityTypes) == 0 {
		e.entityTypes = DefaultEntityTypes
	}
	if e.maxRetries <= 0 {
		e.maxRetries = 3
	}
	if e.parallelRequests <= 0 {
		e.parallelRequests = 4
	}
	if e.maxUnitTokens <= 0 {
		e.maxUnitTokens = 2000
	}
	if e.countTokens == nil {
		e.countTokens = ai.CountTokens
	}
	return e
}

func (e *AIExtractor) Extract(ctx context.Context, text string) ([]common.Entity, []common.Relationship, error) {
	units, err := transformIntoUnits(text, e.maxUnitTokens, e.countTokens)
	if err != nil {
		return nil, nil, common.NewExtractionError("extract", fmt.Errorf("failed to split input text: %w", err))
	}

	results := make([]*extractResponse, len(units))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelRequests)
	for i, unit := range units {
		g.Go(func() error {
			res, err := util.RetryWithContext(gCtx, e.maxRetries, func(ctx context.Context) (*extractResponse, error) {
				return e.extractUnit(ctx, unit)
			})
			if err != nil {
				return fmt.Errorf("unit %s: %w", unit.id, err)
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("[Extract] Extraction failed", "units", len(units), "err", err)
		return nil, nil, common.NewExtractionError("extract", err)
	}

	entities, relations := mergeExtractions(results)
	logger.Debug("[Extract] Extracted graph", "units", len(units), "entities", len(entities), "relationships", len(relations))
	return entities, relations, nil
}

func (e *AIExtractor) extractUnit(ctx context.Context, unit processUnit) (*extractResponse, error) {
	prompt := fmt.Sprintf(ai.ExtractPromptText, strings.Join(e.entityTypes, ", "), unit.text)

	var res extractResponse
	err := e.client.GenerateCompletionWithFormat(
		ctx,
		"extract_knowledge_graph",
		"Extract entities and relationships from a provided text.",
		prompt,
		&res,
		ai.WithSystemPrompts(ai.ExtractSystemPrompt),
	)
	if err != nil {
		logger.Warn("[Extract] Unit extraction failed", "unit", unit.id, "err", err)
		return nil, err
	}
	return &res, nil
}

// mergeExtractions normalizes and merges per-unit results in unit order.
// Entities merge by id and relationships by (source, target, type); the
// first type wins and distinct descriptions are joined.
func mergeExtractions(results []*extractResponse) ([]common.Entity, []common.Relationship) {
	entities := make([]common.Entity, 0)
	entityIndex := make(map[string]int)
	relations := make([]common.Relationship, 0)
	relIndex := make(map[[3]string]int)

	for _, res := range results {
		if res == nil {
			continue
		}
		for _, raw := range res.Entities {
			id := strings.TrimSpace(raw.ID)
			if id == "" {
				continue
			}
			desc := strings.TrimSpace(raw.Description)
			if i, ok := entityIndex[id]; ok {
				entities[i].Properties = mergeDescription(entities[i].Properties, desc)
				continue
			}
			entityIndex[id] = len(entities)
			entities = append(entities, common.Entity{
				ID:         id,
				Type:       normalizeEntityType(raw.Type),
				Properties: mergeDescription(map[string]any{}, desc),
			})
		}

		for _, raw := range res.Relationships {
			source := strings.TrimSpace(raw.Source)
			target := strings.TrimSpace(raw.Target)
			if source == "" || target == "" {
				continue
			}
			typ := normalizeRelationshipType(raw.Type)
			desc := strings.TrimSpace(raw.Description)
			key := [3]string{source, target, typ}
			if i, ok := relIndex[key]; ok {
				relations[i].Properties = mergeDescription(relations[i].Properties, desc)
				continue
			}
			relIndex[key] = len(relations)
			relations = append(relations, common.Relationship{
				SourceID:   source,
				TargetID:   target,
				Type:       typ,
				Properties: mergeDescription(map[string]any{}, desc),
			})
		}
	}

	return entities, relations
}

func mergeDescription(props map[string]any, desc string) map[string]any {
	if desc == "" {
		return props
	}
	existing, _ := props["description"].(string)
	switch {
	case existing == "":
		props["description"] = desc
	case !strings.Contains(existing, desc):
		props["description"] = existing + " " + desc
	}
	return props
}

func normalizeEntityType(t string) string {
	t = strings.TrimSpace(t)
	if t == "" {
		return common.DefaultEntityType
	}
	return t
}

// normalizeRelationshipType upper-snake-cases t, so "works at" and
// "worksAt" both become WORKS_AT.
func normalizeRelationshipType(t string) string {
	var b strings.Builder
	prevUnderscore := true
	prevLower := false
	for _, r := range strings.TrimSpace(t) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && prevLower && !prevUnderscore {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToUpper(r))
			prevUnderscore = false
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		default:
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
			prevLower = false
		}
	}
	out := strings.TrimSuffix(b.String(), "_")
	if out == "" {
		return common.DefaultRelationshipType
	}
	return out
}
