// Package filter builds boolean filter expressions from a selection tree.
//
// An expression is a tree of four operators: isIn(property, values), and,
// or and not. isIn(p, v) matches rows whose value for property p is in v;
// property p is the id of a group and the values are ids of its children.
package filter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

// Op names an expression operator.
type Op string

const (
	OpIsIn Op = "isIn"
	OpAnd  Op = "and"
	OpOr   Op = "or"
	OpNot  Op = "not"
)

const typePrefix = "pentaho/type/filter/"

// Expr is a filter expression node. A nil *Expr means "no constraint".
type Expr struct {
	Op       Op
	Property string
	Values   []string
	Operands []*Expr
}

// IsIn matches rows whose property value is one of values. An empty value
// list matches nothing.
func IsIn(property string, values ...string) *Expr {
	if values == nil {
		values = []string{}
	}
	return &Expr{Op: OpIsIn, Property: property, Values: values}
}

// And is the conjunction of operands.
func And(operands ...*Expr) *Expr {
	return &Expr{Op: OpAnd, Operands: operands}
}

// Or is the disjunction of operands.
func Or(operands ...*Expr) *Expr {
	return &Expr{Op: OpOr, Operands: operands}
}

// Not negates e, pushing the negation through and/or and cancelling a double
// negation. Only isIn is wrapped in a literal not. Not(nil) is nil.
func Not(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	switch e.Op {
	case OpNot:
		return e.Operands[0]
	case OpAnd, OpOr:
		negated := make([]*Expr, len(e.Operands))
		for i, o := range e.Operands {
			negated[i] = Not(o)
		}
		if e.Op == OpAnd {
			return Or(negated...)
		}
		return And(negated...)
	}
	return &Expr{Op: OpNot, Operands: []*Expr{e}}
}

// SimplifyIsIn merges isIn operands sharing a property into one isIn holding
// the union of their values. Other operands keep their order and come first.
func SimplifyIsIn(operands []*Expr) []*Expr {
	var out []*Expr
	var merged []*Expr
	byProperty := make(map[string]*Expr)
	for _, o := range operands {
		if o == nil {
			continue
		}
		if o.Op != OpIsIn {
			out = append(out, o)
			continue
		}
		m, ok := byProperty[o.Property]
		if !ok {
			m = IsIn(o.Property)
			byProperty[o.Property] = m
			merged = append(merged, m)
		}
		for _, v := range o.Values {
			if !slices.Contains(m.Values, v) {
				m.Values = append(m.Values, v)
			}
		}
	}
	return append(out, merged...)
}

// Eval reports whether a row matches e. The row maps each group id on the
// row's path to the id of the child the path continues through; an isIn on
// a property the row does not carry is false. A nil expression matches.
func (e *Expr) Eval(row map[string]string) bool {
	if e == nil {
		return true
	}
	switch e.Op {
	case OpIsIn:
		v, ok := row[e.Property]
		return ok && slices.Contains(e.Values, v)
	case OpAnd:
		for _, o := range e.Operands {
			if !o.Eval(row) {
				return false
			}
		}
		return true
	case OpOr:
		for _, o := range e.Operands {
			if o.Eval(row) {
				return true
			}
		}
		return false
	case OpNot:
		return !e.Operands[0].Eval(row)
	}
	return false
}

// String renders e compactly, e.g. not(isIn(GroupA, [Item1])).
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Op {
	case OpIsIn:
		return fmt.Sprintf("isIn(%s, [%s])", e.Property, strings.Join(e.Values, ", "))
	default:
		parts := make([]string, len(e.Operands))
		for i, o := range e.Operands {
			parts[i] = o.String()
		}
		return fmt.Sprintf("%s(%s)", e.Op, strings.Join(parts, ", "))
	}
}

type jsonValue struct {
	Type string `json:"_"`
	V    string `json:"v"`
}

type jsonExpr struct {
	Type     string      `json:"_"`
	Property *string     `json:"property,omitempty"`
	Values   []jsonValue `json:"values,omitempty"`
	Operands []*Expr     `json:"operands,omitempty"`
	Operand  *Expr       `json:"operand,omitempty"`
}

// MarshalJSON writes the pentaho filter form:
//
//	{"_":"pentaho/type/filter/isIn","property":"GroupA","values":[{"_":"string","v":"Item1"}]}
//
// The root's empty property is written as null.
func (e *Expr) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}
	out := jsonExpr{Type: typePrefix + string(e.Op)}
	switch e.Op {
	case OpIsIn:
		if e.Property != "" {
			p := e.Property
			out.Property = &p
		}
		values := make([]jsonValue, len(e.Values))
		for i, v := range e.Values {
			values[i] = jsonValue{Type: "string", V: v}
		}
		// values must stay present when empty
		data, err := json.Marshal(struct {
			Type     string      `json:"_"`
			Property *string     `json:"property"`
			Values   []jsonValue `json:"values"`
		}{out.Type, out.Property, values})
		if err != nil {
			return nil, fmt.Errorf("marshaling isIn: %w", err)
		}
		return data, nil
	case OpNot:
		out.Operand = e.Operands[0]
	default:
		out.Operands = e.Operands
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (e *Expr) UnmarshalJSON(data []byte) error {
	var in struct {
		Type     string      `json:"_"`
		Property *string     `json:"property"`
		Values   []jsonValue `json:"values"`
		Operands []*Expr     `json:"operands"`
		Operand  *Expr       `json:"operand"`
	}
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	op := Op(strings.TrimPrefix(in.Type, typePrefix))
	*e = Expr{Op: op}
	switch op {
	case OpIsIn:
		if in.Property != nil {
			e.Property = *in.Property
		}
		e.Values = make([]string, len(in.Values))
		for i, v := range in.Values {
			e.Values[i] = v.V
		}
	case OpAnd, OpOr:
		e.Operands = in.Operands
	case OpNot:
		if in.Operand == nil {
			return fmt.Errorf("filter: not without operand")
		}
		e.Operands = []*Expr{in.Operand}
	default:
		return fmt.Errorf("filter: unknown operator %q", in.Type)
	}
	return nil
}
