package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/molsim/rebop/rate"
)

// Format renders an AST back to rate-expression source text such that
// Parse(Format(n)) produces a tree equal to n (spec §8 property 5). Output
// is fully parenthesized; it favors unambiguous round-tripping over
// minimal or pretty output.
func Format(n rate.Node) string {
	var sb strings.Builder
	formatNode(&sb, n)
	return sb.String()
}

func formatNode(sb *strings.Builder, n rate.Node) {
	switch v := n.(type) {
	case *rate.Number:
		sb.WriteString(formatNumber(v.Value))
	case *rate.Ident:
		if v.Quoted || needsQuoting(v.Name) {
			sb.WriteByte('`')
			sb.WriteString(v.Name)
			sb.WriteByte('`')
		} else {
			sb.WriteString(v.Name)
		}
	case *rate.Unary:
		sb.WriteString("(-")
		formatNode(sb, v.X)
		sb.WriteByte(')')
	case *rate.Binary:
		sb.WriteByte('(')
		formatNode(sb, v.X)
		sb.WriteByte(' ')
		sb.WriteByte(byte(v.Op))
		sb.WriteByte(' ')
		formatNode(sb, v.Y)
		sb.WriteByte(')')
	case *rate.Call:
		sb.WriteString(v.Func)
		sb.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			formatNode(sb, a)
		}
		sb.WriteByte(')')
	default:
		panic("parser: Format: unknown node type")
	}
}

func needsQuoting(name string) bool {
	lower := strings.ToLower(name)
	return lower == "inf" || lower == "nan"
}

func formatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "(-inf)"
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}
