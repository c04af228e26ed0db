package builtin

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/effective-security/toolagent/tools"
	"github.com/expr-lang/expr"
)

// mathEnv exposes the math functions and constants to the expressions,
// abs, ceil, floor, round, min and max are expr builtins.
var mathEnv = map[string]any{
	"sqrt":  math.Sqrt,
	"pow":   math.Pow,
	"exp":   math.Exp,
	"log":   math.Log,
	"log2":  math.Log2,
	"log10": math.Log10,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"asin":  math.Asin,
	"acos":  math.Acos,
	"atan":  math.Atan,
	"hypot": math.Hypot,
	"pi":    math.Pi,
	"e":     math.E,
	"tau":   2 * math.Pi,
}

// Calculator returns the calculate tool
func Calculator() *tools.Descriptor {
	return &tools.Descriptor{
		Name:        ToolCalculate,
		Description: "Perform mathematical calculations safely.",
		Params: []tools.Param{
			{
				Name:        "expression",
				Type:        schema.TypeString,
				Required:    true,
				Description: `A mathematical expression as a string (e.g., "15 * 23", "sqrt(16)")`,
			},
		},
		Func: func(_ context.Context, args tools.Args) (string, error) {
			expression := args.String(0)
			res, err := Evaluate(expression)
			if err != nil {
				return "", errors.Newf("Error calculating %s: %s", expression, err.Error())
			}
			return fmt.Sprintf("The result of %s is %s", expression, res), nil
		},
	}
}

// Evaluate evaluates the arithmetic expression and returns the formatted number
func Evaluate(expression string) (string, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return "", errors.New("empty expression")
	}

	out, err := expr.Eval(expression, mathEnv)
	if err != nil {
		return "", errors.WithStack(err)
	}

	switch v := out.(type) {
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return "", errors.New("division by zero or undefined result")
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", errors.Newf("expression does not evaluate to a number: %T", out)
}
