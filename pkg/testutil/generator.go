// Package testutil provides fixture generators for selection trees and
// tabular input. All generators produce deterministic output for reproducible
// tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/scalefilter/pkg/model"
)

// Leaf builds a leaf spec whose label equals its id.
func Leaf(id string) *model.NodeSpec {
	return &model.NodeSpec{ID: id, Label: id}
}

// Group builds a branch spec. With no children it is an unfetched group.
func Group(id string, children ...*model.NodeSpec) *model.NodeSpec {
	if children == nil {
		children = []*model.NodeSpec{}
	}
	return &model.NodeSpec{ID: id, Label: id, Nodes: children}
}

// Paged marks a group as holding total leaves at the server.
func Paged(spec *model.NodeSpec, total int) *model.NodeSpec {
	spec.NumberOfItemsAtServer = &total
	return spec
}

// Scenario returns the two-group fixture
//
//	GroupA[Item1, Item2], GroupB[Item3]
func Scenario() []*model.NodeSpec {
	return []*model.NodeSpec{
		Group("GroupA", Leaf("Item1"), Leaf("Item2")),
		Group("GroupB", Leaf("Item3")),
	}
}

// GeneratorConfig controls tree generation.
type GeneratorConfig struct {
	Seed     int64  // Random seed for determinism (0 = 42)
	IDPrefix string // Prefix for node IDs (default: "N")
	Depth    int    // Levels of groups above the leaves (default: 2)
	MaxWidth int    // Maximum children per group (default: 4)
}

// Generator creates random but reproducible fixtures.
type Generator struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	next int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "N"
	}
	if cfg.Depth <= 0 {
		cfg.Depth = 2
	}
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = 4
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

func (g *Generator) id() string {
	g.next++
	return fmt.Sprintf("%s%d", g.cfg.IDPrefix, g.next)
}

// Forest returns top-level specs of a random tree. Every group has at least
// one child, so leaves sit exactly Depth levels below the root.
func (g *Generator) Forest() []*model.NodeSpec {
	return g.level(g.cfg.Depth)
}

func (g *Generator) level(depth int) []*model.NodeSpec {
	n := 1 + g.rng.Intn(g.cfg.MaxWidth)
	out := make([]*model.NodeSpec, 0, n)
	for range n {
		if depth == 0 {
			out = append(out, Leaf(g.id()))
			continue
		}
		id := g.id()
		out = append(out, Group(id, g.level(depth-1)...))
	}
	return out
}

// Rows flattens specs into (groupId, groupLabel, id, label, value) rows, one
// per leaf under a top-level group.
func Rows(specs []*model.NodeSpec) []model.Row {
	var rows []model.Row
	for i, group := range specs {
		var walk func(n *model.NodeSpec)
		walk = func(n *model.NodeSpec) {
			if n.IsLeaf() {
				rows = append(rows, model.Row{group.ID, group.Label, n.ID, n.Label, i})
				return
			}
			for _, c := range n.Nodes {
				walk(c)
			}
		}
		walk(group)
	}
	return rows
}

// IDs returns the ids of specs and their descendants in pre-order.
func IDs(specs []*model.NodeSpec) []string {
	var out []string
	var walk func(n *model.NodeSpec)
	walk = func(n *model.NodeSpec) {
		out = append(out, n.ID)
		for _, c := range n.Nodes {
			walk(c)
		}
	}
	for _, s := range specs {
		walk(s)
	}
	return out
}

// ToJSONL serializes rows as JSON lines.
func ToJSONL(rows []model.Row) string {
	var sb strings.Builder
	for _, r := range rows {
		data, _ := json.Marshal(r)
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}
