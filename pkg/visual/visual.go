package visual

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kgtext/backend/pkg/common"
	"github.com/kgtext/backend/pkg/logger"
)

type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Title string `json:"title"`
	Group string `json:"group"`
}

type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

type ForceAtlas2Based struct {
	GravitationalConstant float64 `json:"gravitationalConstant"`
	CentralGravity        float64 `json:"centralGravity"`
	SpringLength          float64 `json:"springLength"`
	SpringConstant        float64 `json:"springConstant"`
}

type Physics struct {
	ForceAtlas2Based ForceAtlas2Based `json:"forceAtlas2Based"`
	MinVelocity      float64          `json:"minVelocity"`
	Solver           string           `json:"solver"`
}

// Options is the layout configuration handed to the renderer untouched.
type Options struct {
	Physics Physics `json:"physics"`
}

func DefaultOptions() Options {
	return Options{
		Physics: Physics{
			ForceAtlas2Based: ForceAtlas2Based{
				GravitationalConstant: -100,
				CentralGravity:        0.01,
				SpringLength:          200,
				SpringConstant:        0.08,
			},
			MinVelocity: 0.75,
			Solver:      "forceAtlas2Based",
		},
	}
}

// Stats counts what the builder left out.
type Stats struct {
	DroppedEdges int `json:"dropped_edges"`
	SkippedNodes int `json:"skipped_nodes"`
	SkippedEdges int `json:"skipped_edges"`
}

// RenderableGraph is the node, edge and layout bundle for the renderer.
// Every edge references a node in Nodes.
type RenderableGraph struct {
	Nodes   []Node  `json:"nodes"`
	Edges   []Edge  `json:"edges"`
	Options Options `json:"options"`
	Stats   Stats   `json:"stats"`
}

var (
	errEmptyID     = errors.New("empty id")
	errInvalidUTF8 = errors.New("invalid utf-8")
)

func checkText(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s: %w", field, errEmptyID)
	}
	if !utf8.ValidString(value) {
		return fmt.Errorf("%s: %w", field, errInvalidUTF8)
	}
	return nil
}

// NewNode renders an entity. The id doubles as the display label and the
// type as tooltip and group.
func NewNode(e common.Entity) (Node, error) {
	if err := checkText("node id", e.ID); err != nil {
		return Node{}, err
	}
	typ := e.Type
	if typ == "" {
		typ = common.DefaultEntityType
	}
	if err := checkText("node type", typ); err != nil {
		return Node{}, err
	}
	return Node{ID: e.ID, Label: e.ID, Title: typ, Group: typ}, nil
}

// NewEdge renders a relationship with its lower-cased type as label.
func NewEdge(r common.Relationship) (Edge, error) {
	typ := r.Type
	if typ == "" {
		typ = common.DefaultRelationshipType
	}
	if err := checkText("edge type", typ); err != nil {
		return Edge{}, err
	}
	return Edge{From: r.SourceID, To: r.TargetID, Label: strings.ToLower(typ)}, nil
}

// Build turns entities and relationships into a RenderableGraph. Only
// entities touched by a relationship whose endpoints both exist are
// rendered. Items that cannot be rendered are skipped and counted.
func Build(entities []common.Entity, relations []common.Relationship) RenderableGraph {
	out := RenderableGraph{
		Nodes:   make([]Node, 0),
		Edges:   make([]Edge, 0),
		Options: DefaultOptions(),
	}

	lookup := make(map[string]common.Entity, len(entities))
	for _, e := range entities {
		if _, ok := lookup[e.ID]; !ok {
			lookup[e.ID] = e
		}
	}

	valid := make([]common.Relationship, 0, len(relations))
	for _, r := range relations {
		_, okSource := lookup[r.SourceID]
		_, okTarget := lookup[r.TargetID]
		if !okSource || !okTarget {
			out.Stats.DroppedEdges++
			continue
		}
		valid = append(valid, r)
	}

	emitted := make(map[string]bool)
	skipped := make(map[string]bool)
	addNode := func(id string) bool {
		if emitted[id] {
			return true
		}
		if skipped[id] {
			return false
		}
		node, err := NewNode(lookup[id])
		if err != nil {
			skipped[id] = true
			out.Stats.SkippedNodes++
			logger.Debug("[Visual] Skipping node", "id", id, "err", err)
			return false
		}
		emitted[id] = true
		out.Nodes = append(out.Nodes, node)
		return true
	}

	for _, r := range valid {
		sourceOK := addNode(r.SourceID)
		targetOK := addNode(r.TargetID)
		if !sourceOK || !targetOK {
			out.Stats.SkippedEdges++
			continue
		}
		edge, err := NewEdge(r)
		if err != nil {
			out.Stats.SkippedEdges++
			logger.Debug("[Visual] Skipping edge", "from", r.SourceID, "to", r.TargetID, "err", err)
			continue
		}
		out.Edges = append(out.Edges, edge)
	}

	if out.Stats != (Stats{}) {
		logger.Debug("[Visual] Built graph with omissions",
			"nodes", len(out.Nodes),
			"edges", len(out.Edges),
			"dropped_edges", out.Stats.DroppedEdges,
			"skipped_nodes", out.Stats.SkippedNodes,
			"skipped_edges", out.Stats.SkippedEdges,
		)
	}
	return out
}
