// Package rate implements the propensity model: the rate-expression AST and
// its evaluator (the "rate expression" and "propensity model" components),
// plus the LMA fast path used for mass-action reactions.
package rate

import (
	"math"
	"sort"
)

// Node is one node of a parsed rate expression. Trees of Node are built by
// package parser and evaluated here.
type Node interface {
	eval(counts []int64, speciesIndex map[string]int, params map[string]float64) (float64, error)
	collectIdents(set map[string]struct{})
}

// Number is a literal real value, including +Inf and NaN.
type Number struct {
	Value float64
}

func (n *Number) eval([]int64, map[string]int, map[string]float64) (float64, error) {
	return n.Value, nil
}

func (n *Number) collectIdents(map[string]struct{}) {}

// Ident is a bare name: resolved first against parameters, then against
// species counts. Quoted marks identifiers written with the backtick-quote
// syntax (see parser.Parse), which forces name resolution even when Name is
// spelled "inf" or "nan".
type Ident struct {
	Name   string
	Quoted bool
}

func (id *Ident) eval(counts []int64, speciesIndex map[string]int, params map[string]float64) (float64, error) {
	if v, ok := params[id.Name]; ok {
		if _, isSpecies := speciesIndex[id.Name]; isSpecies {
			return 0, &AmbiguousNameError{Name: id.Name}
		}
		return v, nil
	}
	if idx, ok := speciesIndex[id.Name]; ok {
		return float64(counts[idx]), nil
	}
	return 0, &UndefinedSymbolError{Name: id.Name}
}

func (id *Ident) collectIdents(set map[string]struct{}) {
	set[id.Name] = struct{}{}
}

// Unary is the unary-minus operator.
type Unary struct {
	X Node
}

func (u *Unary) eval(counts []int64, speciesIndex map[string]int, params map[string]float64) (float64, error) {
	x, err := u.X.eval(counts, speciesIndex, params)
	if err != nil {
		return 0, err
	}
	return -x, nil
}

func (u *Unary) collectIdents(set map[string]struct{}) { u.X.collectIdents(set) }

// BinaryOp identifies a binary arithmetic operator.
type BinaryOp byte

// Supported binary operators, from loosest to tightest precedence.
const (
	OpAdd BinaryOp = '+'
	OpSub BinaryOp = '-'
	OpMul BinaryOp = '*'
	OpDiv BinaryOp = '/'
	OpPow BinaryOp = '^'
)

// Binary is a binary arithmetic operation.
type Binary struct {
	Op   BinaryOp
	X, Y Node
}

func (b *Binary) eval(counts []int64, speciesIndex map[string]int, params map[string]float64) (float64, error) {
	x, err := b.X.eval(counts, speciesIndex, params)
	if err != nil {
		return 0, err
	}
	y, err := b.Y.eval(counts, speciesIndex, params)
	if err != nil {
		return 0, err
	}
	switch b.Op {
	case OpAdd:
		return x + y, nil
	case OpSub:
		return x - y, nil
	case OpMul:
		return x * y, nil
	case OpDiv:
		if y == 0 {
			return 0, &DivisionByZeroError{}
		}
		return x / y, nil
	case OpPow:
		return math.Pow(x, y), nil
	default:
		return 0, &DomainError{Reason: "unknown operator"}
	}
}

func (b *Binary) collectIdents(set map[string]struct{}) {
	b.X.collectIdents(set)
	b.Y.collectIdents(set)
}

// Functions is the closed whitelist of function names callable from a rate
// expression, per spec §4.1.
var Functions = map[string]func(args []float64) (float64, error){
	"exp":   func(a []float64) (float64, error) { return math.Exp(a[0]), nil },
	"log":   logFn,
	"ln":    logFn,
	"sqrt":  sqrtFn,
	"pow":   func(a []float64) (float64, error) { return math.Pow(a[0], a[1]), nil },
	"min":   func(a []float64) (float64, error) { return math.Min(a[0], a[1]), nil },
	"max":   func(a []float64) (float64, error) { return math.Max(a[0], a[1]), nil },
	"floor": func(a []float64) (float64, error) { return math.Floor(a[0]), nil },
	"ceil":  func(a []float64) (float64, error) { return math.Ceil(a[0]), nil },
	"abs":   func(a []float64) (float64, error) { return math.Abs(a[0]), nil },
	"sin":   func(a []float64) (float64, error) { return math.Sin(a[0]), nil },
	"cos":   func(a []float64) (float64, error) { return math.Cos(a[0]), nil },
	"tan":   func(a []float64) (float64, error) { return math.Tan(a[0]), nil },
}

// FunctionArity gives the required argument count for each whitelisted
// function, checked by the parser at parse time.
var FunctionArity = map[string]int{
	"exp": 1, "log": 1, "ln": 1, "sqrt": 1, "pow": 2, "min": 2, "max": 2,
	"floor": 1, "ceil": 1, "abs": 1, "sin": 1, "cos": 1, "tan": 1,
}

func logFn(a []float64) (float64, error) {
	if a[0] <= 0 {
		return 0, &DomainError{Reason: "log of a non-positive number"}
	}
	return math.Log(a[0]), nil
}

func sqrtFn(a []float64) (float64, error) {
	if a[0] < 0 {
		return 0, &DomainError{Reason: "sqrt of a negative number"}
	}
	return math.Sqrt(a[0]), nil
}

// Call is a function application from the whitelist in Functions.
type Call struct {
	Func string
	Args []Node
}

func (c *Call) eval(counts []int64, speciesIndex map[string]int, params map[string]float64) (float64, error) {
	fn, ok := Functions[c.Func]
	if !ok {
		return 0, &UndefinedSymbolError{Name: c.Func + "(...)"}
	}
	args := make([]float64, len(c.Args))
	for i, a := range c.Args {
		v, err := a.eval(counts, speciesIndex, params)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	return fn(args)
}

func (c *Call) collectIdents(set map[string]struct{}) {
	for _, a := range c.Args {
		a.collectIdents(set)
	}
}

// Idents returns every distinct identifier name referenced anywhere in n,
// sorted for deterministic iteration. It does not distinguish parameters
// from species: a caller that registers species on first mention (spec
// §3 Lifecycle) uses this to discover names before any speciesIndex/params
// classification exists yet.
func Idents(n Node) []string {
	set := make(map[string]struct{})
	n.collectIdents(set)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
