package scenario

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
)

// evalFunc computes a computed's value from its inputs, in input order.
// Arguments have already been type checked at compile time.
type evalFunc func(args []any) (any, error)

// opCompiler checks input types and parameters and returns the result type
// and the evaluation function.
type opCompiler func(in []ValueType, params map[string]any) (ValueType, evalFunc, error)

var ops = map[string]opCompiler{
	"sum":     numericFold("sum", func(a, b int) int { return a + b }, func(a, b float64) float64 { return a + b }),
	"product": numericFold("product", func(a, b int) int { return a * b }, func(a, b float64) float64 { return a * b }),
	"min":     numericFold("min", func(a, b int) int { return min(a, b) }, math.Min),
	"max":     numericFold("max", func(a, b int) int { return max(a, b) }, math.Max),
	"scale":   compileScale,
	"div":     compileDiv,
	"negate":  compileNegate,
	"not":     compileNot,
	"len":     compileLen,
	"concat":  compileConcat,
	"format":  compileFormat,
}

// OpNames returns the supported operations, sorted.
func OpNames() []string {
	names := make([]string, 0, len(ops))
	for name := range ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// decodeParams decodes op parameters into out, rejecting unknown keys.
func decodeParams(params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(params)
}

func noParams(params map[string]any) error {
	return decodeParams(params, &struct{}{})
}

func wantInputs(op string, in []ValueType, n int) error {
	if len(in) != n {
		return fmt.Errorf("%s takes %d input(s), got %d", op, n, len(in))
	}
	return nil
}

func wantType(op string, i int, got ValueType, ok bool, want string) error {
	if !ok {
		return fmt.Errorf("%s: input %d is %s, want %s", op, i+1, got, want)
	}
	return nil
}

func numericFold(op string, intOp func(a, b int) int, floatOp func(a, b float64) float64) opCompiler {
	return func(in []ValueType, params map[string]any) (ValueType, evalFunc, error) {
		if len(in) == 0 {
			return "", nil, fmt.Errorf("%s needs at least one input", op)
		}
		if err := noParams(params); err != nil {
			return "", nil, err
		}
		allInt := true
		for i, t := range in {
			if err := wantType(op, i, t, t.Numeric(), "int or float"); err != nil {
				return "", nil, err
			}
			allInt = allInt && t == Int
		}

		if allInt {
			return Int, func(args []any) (any, error) {
				acc := args[0].(int)
				for _, a := range args[1:] {
					acc = intOp(acc, a.(int))
				}
				return acc, nil
			}, nil
		}
		return Float, func(args []any) (any, error) {
			acc := toFloat(args[0])
			for _, a := range args[1:] {
				acc = floatOp(acc, toFloat(a))
			}
			return acc, nil
		}, nil
	}
}

type scaleParams struct {
	Factor *float64 `mapstructure:"factor"`
}

// compileScale multiplies one numeric input by a constant factor. An int
// input scaled by a whole factor stays int.
func compileScale(in []ValueType, params map[string]any) (ValueType, evalFunc, error) {
	if err := wantInputs("scale", in, 1); err != nil {
		return "", nil, err
	}
	if err := wantType("scale", 0, in[0], in[0].Numeric(), "int or float"); err != nil {
		return "", nil, err
	}
	var p scaleParams
	if err := decodeParams(params, &p); err != nil {
		return "", nil, err
	}
	if p.Factor == nil {
		return "", nil, fmt.Errorf("scale requires params.factor")
	}
	f := *p.Factor

	if in[0] == Int && f == math.Trunc(f) {
		n := int(f)
		return Int, func(args []any) (any, error) {
			return args[0].(int) * n, nil
		}, nil
	}
	return Float, func(args []any) (any, error) {
		return toFloat(args[0]) * f, nil
	}, nil
}

// compileDiv divides the first input by the second. Division by zero is a
// build error.
func compileDiv(in []ValueType, params map[string]any) (ValueType, evalFunc, error) {
	if err := wantInputs("div", in, 2); err != nil {
		return "", nil, err
	}
	for i, t := range in {
		if err := wantType("div", i, t, t.Numeric(), "int or float"); err != nil {
			return "", nil, err
		}
	}
	if err := noParams(params); err != nil {
		return "", nil, err
	}
	return Float, func(args []any) (any, error) {
		d := toFloat(args[1])
		if d == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return toFloat(args[0]) / d, nil
	}, nil
}

func compileNegate(in []ValueType, params map[string]any) (ValueType, evalFunc, error) {
	if err := wantInputs("negate", in, 1); err != nil {
		return "", nil, err
	}
	if err := wantType("negate", 0, in[0], in[0].Numeric(), "int or float"); err != nil {
		return "", nil, err
	}
	if err := noParams(params); err != nil {
		return "", nil, err
	}
	if in[0] == Int {
		return Int, func(args []any) (any, error) { return -args[0].(int), nil }, nil
	}
	return Float, func(args []any) (any, error) { return -args[0].(float64), nil }, nil
}

func compileNot(in []ValueType, params map[string]any) (ValueType, evalFunc, error) {
	if err := wantInputs("not", in, 1); err != nil {
		return "", nil, err
	}
	if err := wantType("not", 0, in[0], in[0] == Bool, "bool"); err != nil {
		return "", nil, err
	}
	if err := noParams(params); err != nil {
		return "", nil, err
	}
	return Bool, func(args []any) (any, error) { return !args[0].(bool), nil }, nil
}

// compileLen counts the runes of a string input.
func compileLen(in []ValueType, params map[string]any) (ValueType, evalFunc, error) {
	if err := wantInputs("len", in, 1); err != nil {
		return "", nil, err
	}
	if err := wantType("len", 0, in[0], in[0] == String, "string"); err != nil {
		return "", nil, err
	}
	if err := noParams(params); err != nil {
		return "", nil, err
	}
	return Int, func(args []any) (any, error) {
		return utf8.RuneCountInString(args[0].(string)), nil
	}, nil
}

type concatParams struct {
	Sep string `mapstructure:"sep"`
}

// compileConcat joins the inputs' text forms. Strings are not quoted.
func compileConcat(in []ValueType, params map[string]any) (ValueType, evalFunc, error) {
	if len(in) == 0 {
		return "", nil, fmt.Errorf("concat needs at least one input")
	}
	var p concatParams
	if err := decodeParams(params, &p); err != nil {
		return "", nil, err
	}
	return String, func(args []any) (any, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			if s, ok := a.(string); ok {
				parts[i] = s
			} else {
				parts[i] = formatValue(a)
			}
		}
		return strings.Join(parts, p.Sep), nil
	}, nil
}

type formatParams struct {
	Template string `mapstructure:"template"`
}

// compileFormat renders the inputs through a fmt template.
func compileFormat(in []ValueType, params map[string]any) (ValueType, evalFunc, error) {
	var p formatParams
	if err := decodeParams(params, &p); err != nil {
		return "", nil, err
	}
	if p.Template == "" {
		return "", nil, fmt.Errorf("format requires params.template")
	}
	return String, func(args []any) (any, error) {
		return fmt.Sprintf(p.Template, args...), nil
	}, nil
}
