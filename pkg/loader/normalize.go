package loader

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"

	"github.com/vanderheijden86/scalefilter/pkg/model"
)

// Normalizer converts a raw column value before it is stored on a node.
type Normalizer func(v any) any

// DefaultNormalizers returns the built-in normalizers: labels and values are
// HTML-escaped and isSelected is parsed into a SelectionState.
func DefaultNormalizers() map[model.Field]Normalizer {
	return map[model.Field]Normalizer{
		model.FieldLabel:      Sanitize,
		model.FieldValue:      Sanitize,
		model.FieldIsSelected: ParseSelected,
	}
}

// Sanitize HTML-escapes strings and passes other values through.
func Sanitize(v any) any {
	if s, ok := v.(string); ok {
		return html.EscapeString(s)
	}
	return v
}

// ParseSelected maps an isSelected cell to a state. true and "true" select,
// null and "null" leave the state to inheritance, anything else deselects.
func ParseSelected(v any) any {
	switch x := v.(type) {
	case nil:
		return model.SelectionState("")
	case string:
		switch strings.ToLower(x) {
		case "true":
			return model.All
		case "null":
			return model.SelectionState("")
		}
		return model.None
	case bool:
		if x {
			return model.All
		}
		return model.None
	case float64:
		if x != 0 {
			return model.All
		}
		return model.None
	case int:
		if x != 0 {
			return model.All
		}
		return model.None
	case int64:
		if x != 0 {
			return model.All
		}
		return model.None
	}
	return model.None
}

// idString renders an id cell as a string. JSON numbers that hold integers
// print without a fraction.
func idString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func text(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return idString(v)
}
