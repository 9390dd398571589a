package selection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vanderheijden86/scalefilter/pkg/model"
	"github.com/vanderheijden86/scalefilter/pkg/tree"
)

// ErrUnknownSorter is returned for a sort key with an unregistered name.
var ErrUnknownSorter = errors.New("unknown sorter")

// SortKey names a registered sorter. Order is "asc", "desc" or empty for the
// sorter's default. Property applies to sortByProperty.
type SortKey struct {
	Name     string      `yaml:"name" json:"name"`
	Order    string      `yaml:"order,omitempty" json:"order,omitempty"`
	Property model.Field `yaml:"property,omitempty" json:"property,omitempty"`
}

type sorter struct {
	cmp        func(key SortKey) tree.Compare[Item]
	descending bool
	// resort marks sorters that depend on selection state
	resort bool
}

var sorters = map[string]sorter{
	"insertionOrder": {cmp: func(SortKey) tree.Compare[Item] {
		return func(a, b *Item) int { return a.seq - b.seq }
	}},
	"sortByLabel": {cmp: func(SortKey) tree.Compare[Item] {
		return func(a, b *Item) int {
			return strings.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label))
		}
	}},
	"sortByValue": {descending: true, cmp: func(SortKey) tree.Compare[Item] {
		return func(a, b *Item) int { return compareNumbers(a.Value, b.Value) }
	}},
	"sortByProperty": {cmp: func(key SortKey) tree.Compare[Item] {
		field := key.Property
		if field == "" {
			field = model.FieldLabel
		}
		return func(a, b *Item) int {
			return strings.Compare(fmt.Sprint(a.Field(field)), fmt.Sprint(b.Field(field)))
		}
	}},
	"selectedOnTop": {resort: true, cmp: func(SortKey) tree.Compare[Item] {
		return func(a, b *Item) int { return selectionRank(a.Selection) - selectionRank(b.Selection) }
	}},
}

// SorterNames lists the registered sorters.
func SorterNames() []string {
	return []string{"insertionOrder", "sortByLabel", "sortByValue", "sortByProperty", "selectedOnTop"}
}

func selectionRank(s model.SelectionState) int {
	switch s {
	case model.All:
		return 0
	case model.Include, model.Exclude:
		return 1
	}
	return 2
}

func compareNumbers(a, b any) int {
	fa, fb := toFloat(a), toFloat(b)
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err == nil {
			return f
		}
	}
	return 0
}

// BuildComparator resolves group and item sort keys. The second result is
// true when a key depends on selection state and siblings must be re-sorted
// after selection changes.
func BuildComparator(group, item []SortKey) (tree.Comparator[Item], bool, error) {
	var c tree.Comparator[Item]
	resort := false
	build := func(keys []SortKey) ([]tree.Compare[Item], error) {
		var out []tree.Compare[Item]
		for _, key := range keys {
			s, ok := sorters[key.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownSorter, key.Name)
			}
			descending := s.descending
			switch strings.ToLower(key.Order) {
			case "asc", "ascending":
				descending = false
			case "desc", "descending":
				descending = true
			case "":
			default:
				return nil, fmt.Errorf("sorter %q: invalid order %q", key.Name, key.Order)
			}
			cmp := s.cmp(key)
			if descending {
				asc := cmp
				cmp = func(a, b *Item) int { return asc(b, a) }
			}
			resort = resort || s.resort
			out = append(out, cmp)
		}
		return out, nil
	}
	var err error
	if c.Group, err = build(group); err != nil {
		return c, false, err
	}
	if c.Item, err = build(item); err != nil {
		return c, false, err
	}
	return c, resort, nil
}
