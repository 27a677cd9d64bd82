package compiler

import (
	"strconv"

	"sentra/internal/lexer"
	"sentra/internal/value"
)

// parseFn is a Pratt prefix or infix handler; canAssign tells it whether an
// assignment target is syntactically valid here, so `a + b = c` can be
// rejected as an invalid assignment target.
type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix parseFn
	infix  parseFn
	prec   precedence
}

var rules map[lexer.TokenType]parseRule

func init() {
	rules = map[lexer.TokenType]parseRule{
		lexer.TokenLeftParen:    {(*Compiler).grouping, (*Compiler).call, precCall},
		lexer.TokenDot:          {nil, (*Compiler).dot, precCall},
		lexer.TokenMinus:        {(*Compiler).unary, (*Compiler).binary, precTerm},
		lexer.TokenPlus:         {nil, (*Compiler).binary, precTerm},
		lexer.TokenSlash:        {nil, (*Compiler).binary, precFactor},
		lexer.TokenStar:         {nil, (*Compiler).binary, precFactor},
		lexer.TokenBang:         {(*Compiler).unary, nil, precNone},
		lexer.TokenBangEqual:    {nil, (*Compiler).binary, precEquality},
		lexer.TokenEqualEqual:   {nil, (*Compiler).binary, precEquality},
		lexer.TokenGreater:      {nil, (*Compiler).binary, precComparison},
		lexer.TokenGreaterEqual: {nil, (*Compiler).binary, precComparison},
		lexer.TokenLess:         {nil, (*Compiler).binary, precComparison},
		lexer.TokenLessEqual:    {nil, (*Compiler).binary, precComparison},
		lexer.TokenIdentifier:   {(*Compiler).variable, nil, precNone},
		lexer.TokenString:       {(*Compiler).stringLit, nil, precNone},
		lexer.TokenNumber:       {(*Compiler).number, nil, precNone},
		lexer.TokenAnd:          {nil, (*Compiler).and_, precAnd},
		lexer.TokenOr:           {nil, (*Compiler).or_, precOr},
		lexer.TokenFalse:        {(*Compiler).literal, nil, precNone},
		lexer.TokenNil:          {(*Compiler).literal, nil, precNone},
		lexer.TokenTrue:         {(*Compiler).literal, nil, precNone},
		lexer.TokenThis:         {(*Compiler).this_, nil, precNone},
		lexer.TokenSuper:        {(*Compiler).super_, nil, precNone},
	}
}

func getRule(t lexer.TokenType) parseRule {
	if r, ok := rules[t]; ok {
		return r
	}
	return parseRule{nil, nil, precNone}
}

func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefixRule := getRule(c.p.previous.Type).prefix
	if prefixRule == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	prefixRule(c, canAssign)

	for prec <= getRule(c.p.current.Type).prec {
		c.advance()
		infixRule := getRule(c.p.previous.Type).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.match(lexer.TokenEqual) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) number(_ bool) {
	n, _ := strconv.ParseFloat(c.p.previous.Lexeme(), 64)
	c.emitConstant(value.Number(n))
}

// stringLit strips the surrounding quotes the lexer's raw lexeme still
// carries; the language has no escape sequences.
func (c *Compiler) stringLit(_ bool) {
	lex := c.p.previous.Lexeme()
	chars := lex[1 : len(lex)-1]
	c.emitConstant(value.FromObj(c.heap.InternString(chars)))
}

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.consume(lexer.TokenRightParen, "Expect ')' after expression.")
}

func (c *Compiler) unary(_ bool) {
	opType := c.p.previous.Type
	c.parsePrecedence(precUnary)
	switch opType {
	case lexer.TokenBang:
		c.emitOp(value.OpNot)
	case lexer.TokenMinus:
		c.emitOp(value.OpNegate)
	}
}

func (c *Compiler) binary(_ bool) {
	opType := c.p.previous.Type
	rule := getRule(opType)
	c.parsePrecedence(rule.prec + 1)

	switch opType {
	case lexer.TokenBangEqual:
		c.emitOp(value.OpEqual)
		c.emitOp(value.OpNot)
	case lexer.TokenEqualEqual:
		c.emitOp(value.OpEqual)
	case lexer.TokenGreater:
		c.emitOp(value.OpGreater)
	case lexer.TokenGreaterEqual:
		c.emitOp(value.OpLess)
		c.emitOp(value.OpNot)
	case lexer.TokenLess:
		c.emitOp(value.OpLess)
	case lexer.TokenLessEqual:
		c.emitOp(value.OpGreater)
		c.emitOp(value.OpNot)
	case lexer.TokenPlus:
		c.emitOp(value.OpAdd)
	case lexer.TokenMinus:
		c.emitOp(value.OpSubtract)
	case lexer.TokenStar:
		c.emitOp(value.OpMultiply)
	case lexer.TokenSlash:
		c.emitOp(value.OpDivide)
	}
}

func (c *Compiler) literal(_ bool) {
	switch c.p.previous.Type {
	case lexer.TokenFalse:
		c.emitOp(value.OpFalse)
	case lexer.TokenNil:
		c.emitOp(value.OpNil)
	case lexer.TokenTrue:
		c.emitOp(value.OpTrue)
	}
}

func (c *Compiler) and_(_ bool) {
	endJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or_(_ bool) {
	elseJump := c.emitJump(value.OpJumpIfFalse)
	endJump := c.emitJump(value.OpJump)
	c.patchJump(elseJump)
	c.emitOp(value.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) call(_ bool) {
	argCount := c.argumentList()
	c.emitOpByte(value.OpCall, argCount)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(lexer.TokenIdentifier, "Expect property name after '.'.")
	name := c.identifierConstant(c.p.previous.Lexeme())

	switch {
	case canAssign && c.match(lexer.TokenEqual):
		c.expression()
		c.emitOpByte(value.OpSetProperty, name)
	case c.match(lexer.TokenLeftParen):
		argCount := c.argumentList()
		c.emitOpByte(value.OpInvoke, name)
		c.emitByte(argCount)
	default:
		c.emitOpByte(value.OpGetProperty, name)
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.p.previous.Lexeme(), canAssign)
}

func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp value.OpCode
	arg := c.resolveLocal(c.fn, name)
	switch {
	case arg != -1:
		getOp, setOp = value.OpGetLocal, value.OpSetLocal
	default:
		if uv := c.resolveUpvalue(c.fn, name); uv != -1 {
			arg = uv
			getOp, setOp = value.OpGetUpvalue, value.OpSetUpvalue
		} else {
			arg = int(c.identifierConstant(name))
			getOp, setOp = value.OpGetGlobal, value.OpSetGlobal
		}
	}

	if canAssign && c.match(lexer.TokenEqual) {
		c.expression()
		c.emitOpByte(setOp, byte(arg))
	} else {
		c.emitOpByte(getOp, byte(arg))
	}
}

func (c *Compiler) this_(_ bool) {
	if c.class == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.namedVariable("this", false)
}

func (c *Compiler) super_(_ bool) {
	if c.class == nil {
		c.error("Can't use 'super' outside of a class.")
	} else if !c.class.hasSuperclass {
		c.error("Can't use 'super' in a class with no superclass.")
	}

	c.consume(lexer.TokenDot, "Expect '.' after 'super'.")
	c.consume(lexer.TokenIdentifier, "Expect superclass method name.")
	name := c.identifierConstant(c.p.previous.Lexeme())

	c.namedVariable("this", false)
	if c.match(lexer.TokenLeftParen) {
		argCount := c.argumentList()
		c.namedVariable("super", false)
		c.emitOpByte(value.OpSuperInvoke, name)
		c.emitByte(argCount)
	} else {
		c.namedVariable("super", false)
		c.emitOpByte(value.OpGetSuper, name)
	}
}
