package tool

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/agentlab-dev/agentlab/core"
)

// CalculatorTool evaluates arithmetic expressions produced by a model when
// solving word problems. Only a safe expression subset is accepted: numbers,
// + - * /, ** or ^ for exponentiation, parentheses and unary minus. Anything else
// is rejected before evaluation.
type CalculatorTool struct{}

// NewCalculatorTool constructs the calculator tool instance.
func NewCalculatorTool() *CalculatorTool { return &CalculatorTool{} }

// Name returns the tool identifier.
func (t *CalculatorTool) Name() string { return "calculate" }

// Description returns the tool description shown to models.
func (t *CalculatorTool) Description() string {
	return "Evaluate an arithmetic expression. Supports +, -, *, /, ** or ^ (power), parentheses and unary minus. " +
		"Translate the word problem into a single expression first, then call this tool."
}

// Parameters returns the JSON schema for tool parameters.
func (t *CalculatorTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"expression": map[string]any{
				"type":        "string",
				"description": "Arithmetic expression to evaluate, e.g. (12 + 7) * 3",
			},
		},
		"required": []string{"expression"},
	}
}

// Call evaluates the expression and returns the numeric result alongside the
// expression that was evaluated.
func (t *CalculatorTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	raw, ok := args["expression"].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, NewToolError(t.Name(), "field 'expression' must be a non-empty string", "VALIDATION_ERROR")
	}

	result, err := EvalExpression(raw)
	if err != nil {
		return nil, &ToolError{Tool: t.Name(), Message: err.Error(), Code: "EXECUTION_ERROR"}
	}

	tc.Logger().Debug("tool.calculate.evaluated", "expression", raw, "result", result)

	return map[string]any{
		"result":     result,
		"expression": raw,
	}, nil
}

// EvalExpression evaluates an arithmetic expression using a small recursive
// descent parser. Grammar (highest binding last):
//
//	expr   := term (("+" | "-") term)*
//	term   := unary (("*" | "/") unary)*
//	unary  := "-" unary | power
//	power  := primary ("**" unary)?      right associative
//	primary:= number | "(" expr ")"
//
// Exponentiation binds tighter than unary minus, so -2**2 is -(2**2) = -4,
// while the exponent itself may carry a sign: 2**-3 = 0.125.
func EvalExpression(input string) (float64, error) {
	p := &exprParser{input: input}
	p.skipSpace()
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("expression result is not a finite number")
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		switch {
		case p.peek() == '*' && !p.hasPrefix("**"):
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			left *= right
		case p.peek() == '/':
			p.pos++
			right, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	p.skipSpace()
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parsePower()
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.hasPrefix("**") || p.peek() == '^' {
		if p.peek() == '^' {
			p.pos++
		} else {
			p.pos += 2
		}
		// right associative: 2**3**2 == 2**(3**2). The exponent goes
		// through parseUnary so it may carry its own sign.
		exp, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parsePrimary() (float64, error) {
	p.skipSpace()
	if p.peek() == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis at position %d", p.pos)
		}
		p.pos++
		return v, nil
	}

	start := p.pos
	for p.pos < len(p.input) && (unicode.IsDigit(rune(p.input[p.pos])) || p.input[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		if p.pos >= len(p.input) {
			return 0, fmt.Errorf("unexpected end of expression")
		}
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}

	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return v, nil
}

func (p *exprParser) hasPrefix(s string) bool {
	return strings.HasPrefix(p.input[p.pos:], s)
}
