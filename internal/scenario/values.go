package scenario

import (
	"fmt"
	"math"
	"strconv"

	"github.com/vango-dev/atomstore/pkg/reactive"
)

// ValueType is the type of a scenario cell.
type ValueType string

const (
	Int    ValueType = "int"
	Float  ValueType = "float"
	String ValueType = "string"
	Bool   ValueType = "bool"
)

// Valid reports whether t is one of the supported types.
func (t ValueType) Valid() bool {
	switch t {
	case Int, Float, String, Bool:
		return true
	}
	return false
}

// Numeric reports whether t is int or float.
func (t ValueType) Numeric() bool {
	return t == Int || t == Float
}

// Zero returns the zero value of t.
func (t ValueType) Zero() any {
	switch t {
	case Int:
		return 0
	case Float:
		return 0.0
	case String:
		return ""
	case Bool:
		return false
	}
	return nil
}

// Coerce converts a decoded YAML or JSON value to t. Integers widen to
// float; floats narrow to int only when they are whole. nil is the zero
// value.
func (t ValueType) Coerce(v any) (any, error) {
	if v == nil {
		return t.Zero(), nil
	}
	switch t {
	case Int:
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case uint64:
			if n <= math.MaxInt {
				return int(n), nil
			}
		case float64:
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				return int(n), nil
			}
		}
	case Float:
		switch n := v.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case uint64:
			return float64(n), nil
		}
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%s is not a valid %s", formatValue(v), t)
}

// createAtom registers an atom holding v, which must already be of type t.
func (t ValueType) createAtom(s *reactive.Store, id string, v any, undo bool) error {
	switch t {
	case Int:
		return newAtom(s, id, v.(int), undo)
	case Float:
		return newAtom(s, id, v.(float64), undo)
	case String:
		return newAtom(s, id, v.(string), undo)
	case Bool:
		return newAtom(s, id, v.(bool), undo)
	}
	return fmt.Errorf("unknown cell type %q", t)
}

func newAtom[T any](s *reactive.Store, id string, v T, undo bool) error {
	init := func() T { return v }
	if undo {
		_, err := reactive.NewUndoAtom(s, id, init)
		return err
	}
	_, err := reactive.NewAtom(s, id, init)
	return err
}

// createComputed registers a computed whose build reads inputs and applies eval.
func (t ValueType) createComputed(s *reactive.Store, id string, inputs []string, eval evalFunc) error {
	switch t {
	case Int:
		return newComputed[int](s, id, inputs, eval)
	case Float:
		return newComputed[float64](s, id, inputs, eval)
	case String:
		return newComputed[string](s, id, inputs, eval)
	case Bool:
		return newComputed[bool](s, id, inputs, eval)
	}
	return fmt.Errorf("unknown cell type %q", t)
}

func newComputed[T any](s *reactive.Store, id string, inputs []string, eval evalFunc) error {
	_, err := reactive.NewComputed(s, id, func(rc *reactive.Rebuild) (T, error) {
		var zero T
		args := make([]any, len(inputs))
		for i, in := range inputs {
			v, err := reactive.TrackAny(rc, in)
			if err != nil {
				return zero, err
			}
			args[i] = v
		}
		v, err := eval(args)
		if err != nil {
			return zero, err
		}
		return v.(T), nil
	})
	return err
}

// equalValues compares two values of the same scenario type. Floats match
// within a relative tolerance.
func equalValues(a, b any) bool {
	fa, aok := a.(float64)
	fb, bok := b.(float64)
	if aok && bok {
		if fa == fb {
			return true
		}
		return math.Abs(fa-fb) <= 1e-9*math.Max(math.Abs(fa), math.Abs(fb))
	}
	return a == b
}

// formatValue renders a value for reports: strings quoted, floats in
// shortest form.
func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return strconv.Quote(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case nil:
		return "<nil>"
	}
	return fmt.Sprint(v)
}

// toFloat widens a numeric scenario value.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return math.NaN()
}
