// Package compiler implements a single-pass Pratt parser/compiler: it
// consumes tokens from a lexer.Lexer and emits bytecode directly into a
// value.Chunk, with no intervening AST. Lexical scope,
// local/upvalue resolution, and class context are tracked in a chain of
// funcState records mirroring the source's nesting of function and method
// bodies.
package compiler

import (
	"sentra/internal/langerr"
	"sentra/internal/lexer"
	"sentra/internal/value"
)

type precedence int

const (
	precNone precedence = iota
	precAssignment
	precOr
	precAnd
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precPrimary
)

type funcType int

const (
	typeFunction funcType = iota
	typeInitializer
	typeMethod
	typeScript
)

type local struct {
	name     string
	depth    int // -1 = declared but not yet initialized
	captured bool
}

type upvalueDesc struct {
	index   byte
	isLocal bool
}

// funcState is the compiler-time record for one function/method/script
// body. Nested functions push a new funcState linked by enclosing; the
// chain is also the garbage collector's compiler-in-progress root (see
// markRoots).
type funcState struct {
	enclosing  *funcState
	function   *value.ObjFunction
	typ        funcType
	locals     [256]local
	localCount int
	upvalues   [256]upvalueDesc
	scopeDepth int
}

type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

type parserState struct {
	current   lexer.Token
	previous  lexer.Token
	hadError  bool
	panicMode bool
}

// Compiler holds everything that would otherwise be process-wide globals
// as explicit context: the lexer cursor, the parser state, the current
// funcState/classState chains, and the heap used to allocate constants
// during compilation.
type Compiler struct {
	lex   *lexer.Lexer
	heap  *value.Heap
	p     parserState
	fn    *funcState
	class *classState
	errs  []*langerr.CompileError
}

// Compile compiles source into a top-level script function, or returns the
// compile errors encountered. Scanning always runs to completion; panic
// mode only suppresses cascading error reports, not the rest of the pass.
// On any error, fn is nil.
func Compile(source string, heap *value.Heap) (fn *value.ObjFunction, errs []*langerr.CompileError) {
	c := &Compiler{lex: lexer.New(source), heap: heap}
	c.fn = &funcState{typ: typeScript, function: heap.NewFunctionObj()}
	c.fn.locals[0] = local{name: "", depth: 0}
	c.fn.localCount = 1

	heap.MarkCompilerRoots = c.markRoots
	defer func() { heap.MarkCompilerRoots = nil }()

	c.advance()
	for !c.match(lexer.TokenEOF) {
		c.declaration()
	}
	f := c.endCompiler()
	if c.p.hadError {
		return nil, c.errs
	}
	return f, nil
}

// markRoots walks the enclosing chain of compiler-in-progress functions so
// the collector can trace them even though they aren't reachable from any
// VM value yet.
func (c *Compiler) markRoots(h *value.Heap) {
	for fs := c.fn; fs != nil; fs = fs.enclosing {
		h.MarkObject(fs.function)
	}
}

// ---- token stream -------------------------------------------------------

func (c *Compiler) advance() {
	c.p.previous = c.p.current
	for {
		c.p.current = c.lex.Next()
		if c.p.current.Type != lexer.TokenError {
			break
		}
		c.errorAtCurrent(c.p.current.Message)
	}
}

func (c *Compiler) consume(t lexer.TokenType, msg string) {
	if c.p.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) check(t lexer.TokenType) bool { return c.p.current.Type == t }

func (c *Compiler) match(t lexer.TokenType) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) errorAt(tok lexer.Token, msg string) {
	if c.p.panicMode {
		return
	}
	c.p.panicMode = true
	c.p.hadError = true
	ce := &langerr.CompileError{Line: tok.Line, Message: msg, AtEnd: tok.Type == lexer.TokenEOF}
	if tok.Type != lexer.TokenError && tok.Type != lexer.TokenEOF {
		ce.Lexeme = tok.Lexeme()
	}
	c.errs = append(c.errs, ce)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.p.current, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.p.previous, msg) }

// synchronize clears panic mode at the next statement boundary, skipping
// tokens until one looks like it starts a new declaration or statement.
func (c *Compiler) synchronize() {
	c.p.panicMode = false
	for c.p.current.Type != lexer.TokenEOF {
		if c.p.previous.Type == lexer.TokenSemicolon {
			return
		}
		switch c.p.current.Type {
		case lexer.TokenClass, lexer.TokenFun, lexer.TokenVar, lexer.TokenFor,
			lexer.TokenIf, lexer.TokenWhile, lexer.TokenPrint, lexer.TokenReturn:
			return
		}
		c.advance()
	}
}

// ---- bytecode emission --------------------------------------------------

func (c *Compiler) chunk() *value.Chunk { return c.fn.function.Chunk }

func (c *Compiler) emitByte(b byte)        { c.chunk().Write(b, c.p.previous.Line) }
func (c *Compiler) emitOp(op value.OpCode) { c.emitByte(byte(op)) }

func (c *Compiler) emitOpByte(op value.OpCode, b byte) {
	c.emitOp(op)
	c.emitByte(b)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(value.OpLoop)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > 65535 {
		c.error("Loop body too large.")
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}

func (c *Compiler) emitJump(op value.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > 65535 {
		c.error("Too much code to jump over.")
	}
	c.chunk().Code[offset] = byte((jump >> 8) & 0xff)
	c.chunk().Code[offset+1] = byte(jump & 0xff)
}

func (c *Compiler) emitReturn() {
	if c.fn.typ == typeInitializer {
		c.emitOpByte(value.OpGetLocal, 0)
	} else {
		c.emitOp(value.OpNil)
	}
	c.emitOp(value.OpReturn)
}

func (c *Compiler) makeConstant(v value.Value) byte {
	idx, ok := c.chunk().AddConstant(v)
	if !ok {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emitOpByte(value.OpConstant, c.makeConstant(v))
}

func (c *Compiler) endCompiler() *value.ObjFunction {
	c.emitReturn()
	fn := c.fn.function
	c.fn = c.fn.enclosing
	return fn
}

// ---- scopes, locals, upvalues ------------------------------------------

func (c *Compiler) beginScope() { c.fn.scopeDepth++ }

func (c *Compiler) endScope() {
	c.fn.scopeDepth--
	for c.fn.localCount > 0 && c.fn.locals[c.fn.localCount-1].depth > c.fn.scopeDepth {
		if c.fn.locals[c.fn.localCount-1].captured {
			c.emitOp(value.OpCloseUpvalue)
		} else {
			c.emitOp(value.OpPop)
		}
		c.fn.localCount--
	}
}

func (c *Compiler) identifierConstant(name string) byte {
	return c.makeConstant(value.FromObj(c.heap.InternString(name)))
}

func (c *Compiler) resolveLocal(fs *funcState, name string) int {
	for i := fs.localCount - 1; i >= 0; i-- {
		l := &fs.locals[i]
		if l.name == name {
			if l.depth == -1 {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

func (c *Compiler) addUpvalue(fs *funcState, index byte, isLocal bool) int {
	count := fs.function.UpvalueCount
	for i := 0; i < count; i++ {
		uv := fs.upvalues[i]
		if int(uv.index) == int(index) && uv.isLocal == isLocal {
			return i
		}
	}
	if count == 256 {
		c.error("Too many closure variables in function.")
		return 0
	}
	fs.upvalues[count] = upvalueDesc{index: index, isLocal: isLocal}
	fs.function.UpvalueCount++
	return count
}

func (c *Compiler) resolveUpvalue(fs *funcState, name string) int {
	if fs.enclosing == nil {
		return -1
	}
	if l := c.resolveLocal(fs.enclosing, name); l != -1 {
		fs.enclosing.locals[l].captured = true
		return c.addUpvalue(fs, byte(l), true)
	}
	if uv := c.resolveUpvalue(fs.enclosing, name); uv != -1 {
		return c.addUpvalue(fs, byte(uv), false)
	}
	return -1
}

func (c *Compiler) addLocal(name string) {
	if c.fn.localCount == 256 {
		c.error("Too many local variables in function.")
		return
	}
	c.fn.locals[c.fn.localCount] = local{name: name, depth: -1}
	c.fn.localCount++
}

func (c *Compiler) declareVariable() {
	if c.fn.scopeDepth == 0 {
		return
	}
	name := c.p.previous.Lexeme()
	for i := c.fn.localCount - 1; i >= 0; i-- {
		l := &c.fn.locals[i]
		if l.depth != -1 && l.depth < c.fn.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) parseVariable(errMsg string) byte {
	c.consume(lexer.TokenIdentifier, errMsg)
	c.declareVariable()
	if c.fn.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.p.previous.Lexeme())
}

func (c *Compiler) markInitialized() {
	if c.fn.scopeDepth == 0 {
		return
	}
	c.fn.locals[c.fn.localCount-1].depth = c.fn.scopeDepth
}

func (c *Compiler) defineVariable(global byte) {
	if c.fn.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(value.OpDefineGlobal, global)
}

func (c *Compiler) argumentList() byte {
	var argCount int
	if !c.check(lexer.TokenRightParen) {
		for {
			c.expression()
			if argCount == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !c.match(lexer.TokenComma) {
				break
			}
		}
	}
	c.consume(lexer.TokenRightParen, "Expect ')' after arguments.")
	return byte(argCount)
}
