package loader

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/scalefilter/pkg/model"
)

// ErrCycle is returned when parentId references form a loop.
var ErrCycle = errors.New("parent references form a cycle")

// hierarchy resolves the level mappings for rows of the given width. A
// parentId column outside the row is dropped, falling back to grouping.
func (l *Loader) hierarchy(width int) []model.LevelIndexes {
	levels := make([]model.LevelIndexes, len(l.opts.Indexes))
	for i, level := range l.opts.Indexes {
		levels[i] = level.Without()
	}
	if levels[0].HasParent() {
		if _, ok := levels[0].Index(model.FieldParentID, width); !ok {
			levels[0] = levels[0].Without(model.FieldParentID, model.FieldParentLabel)
		}
	}
	if l.opts.ValueAsID {
		for _, level := range levels {
			if idx, ok := level[model.FieldLabel]; ok {
				level[model.FieldID] = idx
			}
		}
	}
	return levels
}

// nestedGroupBy groups rows by the id column of the first level, in order of
// first appearance, and recurses into the remaining levels. Nodes of the last
// level are leaves.
func (l *Loader) nestedGroupBy(rows []model.Row, levels []model.LevelIndexes) []*model.NodeSpec {
	level := levels[0]
	var order []string
	groups := make(map[string][]model.Row)
	for _, row := range rows {
		key := ""
		if idx, ok := level.Index(model.FieldID, len(row)); ok {
			key = idString(row[idx])
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	specs := make([]*model.NodeSpec, 0, len(order))
	for _, key := range order {
		grouped := groups[key]
		spec := l.fields(grouped[0], level.Without(model.FieldID, model.FieldParentID, model.FieldParentLabel))
		spec.ID = key
		if _, ok := level[model.FieldLabel]; !ok {
			spec.Label = key
		}
		if len(levels) > 1 {
			spec.Nodes = l.nestedGroupBy(grouped, levels[1:])
		}
		specs = append(specs, spec)
	}
	return specs
}

// unflatten builds a tree from rows that name their parent. Rows sharing a
// parent become the children of a group with that id; a group whose id is
// also a row elsewhere is moved under that row, keeping the row's label.
// Rows without a parent are top-level nodes.
func (l *Loader) unflatten(rows []model.Row, level model.LevelIndexes) ([]*model.NodeSpec, error) {
	item := level.Without(model.FieldParentID, model.FieldParentLabel)

	var order []string
	byParent := make(map[string][]model.Row)
	for _, row := range rows {
		key := ""
		if idx, ok := level.Index(model.FieldParentID, len(row)); ok {
			key = idString(row[idx])
		}
		if _, seen := byParent[key]; !seen {
			order = append(order, key)
		}
		byParent[key] = append(byParent[key], row)
	}

	groups := make(map[string]*model.NodeSpec, len(order))
	var top []*model.NodeSpec
	for _, key := range order {
		grouped := byParent[key]
		items := make([]*model.NodeSpec, 0, len(grouped))
		for _, row := range grouped {
			spec := l.fields(row, item)
			if key != "" && spec.ID == key {
				l.warn(fmt.Sprintf("skipping node %q: it names itself as parent", key))
				continue
			}
			items = append(items, spec)
		}
		if key == "" {
			top = append(top, items...)
			continue
		}
		label := l.parentLabel(grouped, level)
		group := &model.NodeSpec{ID: key, Label: label, Nodes: items}
		if label == "" {
			group.Label = key
		}
		if l.opts.ValueAsID && label != "" {
			group.ID = label
		}
		groups[key] = group
	}

	if err := checkCycles(groups); err != nil {
		return nil, err
	}

	// Move each group under the row carrying its id.
	placed := make(map[string]bool)
	adopt := func(nodes []*model.NodeSpec) {
		for _, node := range nodes {
			group, ok := groups[node.ID]
			if !ok || node.ID == "" || placed[node.ID] {
				continue
			}
			placed[node.ID] = true
			node.ID = group.ID
			node.Nodes = group.Nodes
		}
	}
	adopt(top)
	for _, key := range order {
		if group, ok := groups[key]; ok {
			adopt(group.Nodes)
		}
	}

	var out []*model.NodeSpec
	for _, key := range order {
		if key == "" {
			out = append(out, top...)
			continue
		}
		if !placed[key] {
			out = append(out, groups[key])
		}
	}
	return out, nil
}

// parentLabel returns the first non-empty parentLabel among rows.
func (l *Loader) parentLabel(rows []model.Row, level model.LevelIndexes) string {
	for _, row := range rows {
		idx, ok := level.Index(model.FieldParentLabel, len(row))
		if !ok {
			return ""
		}
		if s, ok := row[idx].(string); ok && s != "" {
			return text(l.normalize(model.FieldLabel, s))
		}
	}
	return ""
}

// checkCycles rejects parent references that loop back on themselves, which
// would otherwise nest a group inside its own descendants.
func checkCycles(groups map[string]*model.NodeSpec) error {
	g := simple.NewDirectedGraph()
	ids := make(map[string]int64, len(groups))
	names := make(map[int64]string, len(groups))
	for key := range groups {
		n := g.NewNode()
		g.AddNode(n)
		ids[key] = n.ID()
		names[n.ID()] = key
	}
	for key, group := range groups {
		for _, child := range group.Nodes {
			v, ok := ids[child.ID]
			if !ok || child.ID == key {
				continue
			}
			g.SetEdge(g.NewEdge(g.Node(ids[key]), g.Node(v)))
		}
	}
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		loop := make([]string, 0, len(scc))
		for _, n := range scc {
			loop = append(loop, names[n.ID()])
		}
		slices.Sort(loop)
		return fmt.Errorf("%w: %s", ErrCycle, strings.Join(loop, ", "))
	}
	return nil
}

// fields maps the columns of level onto a spec, applying normalizers.
func (l *Loader) fields(row model.Row, level model.LevelIndexes) *model.NodeSpec {
	spec := &model.NodeSpec{}
	for field := range level {
		idx, ok := level.Index(field, len(row))
		if !ok {
			continue
		}
		v := l.normalize(field, row[idx])
		switch field {
		case model.FieldID:
			spec.ID = idString(v)
		case model.FieldLabel:
			spec.Label = text(v)
		case model.FieldValue:
			spec.Value = v
		case model.FieldIsSelected:
			if s, ok := v.(model.SelectionState); ok && s.IsValid() {
				spec.Selection = s
			}
		}
	}
	return spec
}

func (l *Loader) normalize(field model.Field, v any) any {
	if fn := l.normalizers[field]; fn != nil {
		return fn(v)
	}
	return v
}
