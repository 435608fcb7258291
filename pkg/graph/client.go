package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator"
	"github.com/google/uuid"

	"github.com/kgtext/backend/pkg/ai"
	"github.com/kgtext/backend/pkg/common"
	"github.com/kgtext/backend/pkg/logger"
	"github.com/kgtext/backend/pkg/store"
	"github.com/kgtext/backend/pkg/visual"
)

// SourceArchive keeps the text a graph was generated from.
type SourceArchive interface {
	PutSource(ctx context.Context, graphID string, text string) error
	// GetSource returns a common.ErrNotFound error when nothing is archived
	// under graphID.
	GetSource(ctx context.Context, graphID string) (string, error)
}

// GraphClient runs the generate and reload flows on top of an extractor and
// a graph store. Both flows return the same RenderableGraph shape.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	extractor      Extractor
	store          store.GraphStore
	archive        SourceArchive
	maxInputTokens int
	countTokens    TokenCounter
	validate       *validator.Validate
}

// NewGraphClientParams defines the collaborators of a GraphClient.
//
// Archive is optional. MaxInputTokens limits the size of generate input,
// zero means unlimited. CountTokens defaults to ai.CountTokens.
type NewGraphClientParams struct {
	Extractor      Extractor
	Store          store.GraphStore
	Archive        SourceArchive
	MaxInputTokens int
	CountTokens    TokenCounter
}

func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	if params.Extractor == nil {
		return nil, fmt.Errorf("graph client requires an extractor")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("graph client requires a store")
	}

	g := &GraphClient{
		extractor:      params.Extractor,
		store:          params.Store,
		archive:        params.Archive,
		maxInputTokens: params.MaxInputTokens,
		countTokens:    params.CountTokens,
		validate:       validator.New(),
	}
	if g.countTokens == nil {
		g.countTokens = ai.CountTokens
	}
	return g, nil
}

type GenerateRequest struct {
	Name string `json:"name" form:"name" validate:"required"`
	Text string `json:"text" form:"text" validate:"required"`
}

type GenerateResult struct {
	GraphID string                 `json:"graph_id"`
	Name    string                 `json:"name"`
	Graph   visual.RenderableGraph `json:"graph"`
}

// Generate extracts a graph from req.Text, stores it under a fresh graph id
// and renders the extracted batch. Nothing is stored when validation or
// extraction fails.
func (g *GraphClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := g.validateRequest(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)

	entities, relations, err := g.extractor.Extract(ctx, req.Text)
	if err != nil {
		return nil, err
	}

	graphID := uuid.NewString()
	if err := g.store.SaveGraph(ctx, graphID, name, entities, relations); err != nil {
		logger.Error("[Graph] Failed to save graph", "graph_id", graphID, "err", err)
		return nil, err
	}
	logger.Info("[Graph] Generated graph", "graph_id", graphID, "name", name, "entities", len(entities), "relationships", len(relations))

	if g.archive != nil {
		if err := g.archive.PutSource(ctx, graphID, req.Text); err != nil {
			logger.Warn("[Graph] Failed to archive source text", "graph_id", graphID, "err", err)
		}
	}

	return &GenerateResult{
		GraphID: graphID,
		Name:    name,
		Graph:   visual.Build(entities, relations),
	}, nil
}

func (g *GraphClient) validateRequest(req GenerateRequest) error {
	if err := g.validate.Struct(req); err != nil {
		return common.NewValidationError("generate", "name and text are required")
	}
	if strings.TrimSpace(req.Name) == "" {
		return common.NewValidationError("generate", "name must not be blank")
	}
	if strings.TrimSpace(req.Text) == "" {
		return common.NewValidationError("generate", "text must not be blank")
	}
	if g.maxInputTokens <= 0 || len(req.Text) <= g.maxInputTokens {
		return nil
	}

	tokens, err := g.countTokens(req.Text)
	if err != nil {
		return fmt.Errorf("failed to count input tokens: %w", err)
	}
	if tokens > g.maxInputTokens {
		return common.NewValidationError(
			"generate",
			fmt.Sprintf("text has %d tokens, the limit is %d", tokens, g.maxInputTokens),
		)
	}
	return nil
}

// ListHistory returns the catalog of stored graphs ordered by name.
func (g *GraphClient) ListHistory(ctx context.Context) ([]common.GraphMeta, error) {
	return g.store.ListGraphs(ctx)
}

// Load reconstructs a stored graph and renders it. An unknown graph id
// renders as an empty graph.
func (g *GraphClient) Load(ctx context.Context, graphID string) (visual.RenderableGraph, error) {
	graphID = strings.TrimSpace(graphID)
	if graphID == "" {
		return visual.RenderableGraph{}, common.NewValidationError("load", "graph id is required")
	}

	entities, relations, err := g.store.LoadGraph(ctx, graphID)
	if err != nil {
		logger.Error("[Graph] Failed to load graph", "graph_id", graphID, "err", err)
		return visual.RenderableGraph{}, err
	}
	logger.Debug("[Graph] Loaded graph", "graph_id", graphID, "entities", len(entities), "relationships", len(relations))

	return visual.Build(entities, relations), nil
}

// Source returns the text a graph was generated from.
func (g *GraphClient) Source(ctx context.Context, graphID string) (string, error) {
	graphID = strings.TrimSpace(graphID)
	if graphID == "" {
		return "", common.NewValidationError("source", "graph id is required")
	}
	if g.archive == nil {
		return "", common.NewNotFoundError("source", "source archive is disabled")
	}
	return g.archive.GetSource(ctx, graphID)
}
