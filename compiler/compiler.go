package compiler

import (
	"encoding/binary"
	"math"

	"reel/lexer"
	"reel/token"
	"reel/value"
)

// Local is a compile-time record of a declared binding's stack slot. Slot 0
// is a phantom entry reserved for the VM's sentinel value (top level) or the
// callee (function bodies); it is never looked up by name.
type Local struct {
	name string
	slot int
}

// Compiler consumes a token stream one lookahead token at a time and emits
// bytecode directly as it recognizes each grammatical form — there is no
// intermediate AST. A single Compiler instance handles one compilation unit
// (a whole file, or one REPL line); function literals reuse the same
// instance's token stream but swap in a fresh bytecode/locals state for the
// body, restoring the enclosing state once the body is compiled.
type Compiler struct {
	lex  *lexer.Lexer
	cur  token.Token
	next token.Token

	bytecode   *Bytecode
	locals     []Local
	scopeMarks []int
}

// Compile compiles one program or REPL fragment into a Bytecode chunk. Any
// compiler.Error encountered while parsing is recovered here and returned;
// every other panic propagates (a programming error, not a source error).
func Compile(source string) (bc *Bytecode, err error) {
	defer func() {
		if r := recover(); r != nil {
			if cerr, ok := r.(*Error); ok {
				err = cerr
				return
			}
			panic(r)
		}
	}()

	c := newCompiler(source)
	for !c.atEnd() {
		isLet := c.compileDeclaration()
		if !c.atEnd() && !isLet {
			c.emit(OpPop)
		}
	}
	return c.bytecode, nil
}

func newCompiler(source string) *Compiler {
	c := &Compiler{
		lex:      lexer.New(source),
		bytecode: &Bytecode{},
		locals:   []Local{{name: "", slot: 0}},
	}
	c.primeTokens()
	return c
}

func (c *Compiler) primeTokens() {
	c.cur = c.nextFromStream()
	c.next = c.nextFromStream()
}

func (c *Compiler) nextFromStream() token.Token {
	tok, err := c.lex.NextToken()
	if err != nil {
		loc := token.Location{}
		if lexErr, ok := err.(*lexer.Error); ok {
			loc = lexErr.Loc
		}
		panic(&Error{Kind: Scan, Wrapped: err, Loc: loc})
	}
	return tok
}

func (c *Compiler) advance() {
	c.cur = c.next
	c.next = c.nextFromStream()
}

func (c *Compiler) check(tt token.Type) bool {
	return c.cur.Type == tt
}

func (c *Compiler) match(tt token.Type) bool {
	if !c.check(tt) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(tt token.Type, context string) token.Token {
	if !c.check(tt) {
		if c.cur.Type == token.EOF {
			panic(&Error{Kind: EndOfInput, Loc: c.cur.Loc})
		}
		panic(&Error{Kind: Mismatch, Expected: context, Found: string(c.cur.Type), Loc: c.cur.Loc})
	}
	t := c.cur
	c.advance()
	return t
}

func (c *Compiler) atEnd() bool {
	return c.cur.Type == token.EOF
}

// --- scope / locals ---

func (c *Compiler) declareLocal(name string) int {
	slot := len(c.locals)
	c.locals = append(c.locals, Local{name: name, slot: slot})
	return slot
}

// resolveLocal returns the slot of the most recently declared local with
// the given name (enabling shadowing), or -1 if none is in scope.
func (c *Compiler) resolveLocal(name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			return c.locals[i].slot
		}
	}
	return -1
}

func (c *Compiler) beginScope() {
	c.scopeMarks = append(c.scopeMarks, len(c.locals))
}

// endScope truncates the locals table back to the scope's entry length and
// returns how many locals it is discarding, for the caller to reclaim with
// emitCloseScope.
func (c *Compiler) endScope() int {
	mark := c.scopeMarks[len(c.scopeMarks)-1]
	c.scopeMarks = c.scopeMarks[:len(c.scopeMarks)-1]
	popped := len(c.locals) - mark
	c.locals = c.locals[:mark]
	return popped
}

// emitCloseScope discards n locals from the evaluation stack while
// preserving the value already on top: SaveReturn moves it to the return
// register, the locals are popped, RestoreReturn pushes it back. Skipped
// entirely when n is zero — there's nothing to reclaim. Callers must ensure
// the top of stack is a result entry distinct from the n locals being
// reclaimed (see compileBlockBody's handling of a trailing `let`).
func (c *Compiler) emitCloseScope(n int) {
	if n == 0 {
		return
	}
	c.emit(OpSaveReturn)
	for i := 0; i < n; i++ {
		c.emit(OpPop)
	}
	c.emit(OpRestoreReturn)
}

// --- emission ---

func (c *Compiler) emit(op Opcode, operands ...int) {
	instr, err := AssembleInstruction(op, operands...)
	if err != nil {
		panic(&Error{Kind: Conversion, Message: err.Error(), Loc: c.cur.Loc})
	}
	c.bytecode.Instructions = append(c.bytecode.Instructions, instr...)
}

func (c *Compiler) addConstant(v value.Value) int {
	c.bytecode.ConstantsPool = append(c.bytecode.ConstantsPool, v)
	return len(c.bytecode.ConstantsPool) - 1
}

func (c *Compiler) addNameConstant(name string) int {
	for i, n := range c.bytecode.NameConstants {
		if n == name {
			return i
		}
	}
	c.bytecode.NameConstants = append(c.bytecode.NameConstants, name)
	return len(c.bytecode.NameConstants) - 1
}

// emitPlaceholderJump emits a jump with a zero operand and returns the
// position of its opcode byte, to be fixed up by patchJump once the target
// is known.
func (c *Compiler) emitPlaceholderJump(op Opcode) int {
	pos := len(c.bytecode.Instructions)
	c.emit(op, 0)
	return pos
}

// patchJump overwrites a placeholder jump's operand with the signed 16-bit
// delta from the instruction following the jump to the current position.
func (c *Compiler) patchJump(jumpPos int) {
	c.patchJumpTo(jumpPos, len(c.bytecode.Instructions))
}

func (c *Compiler) patchJumpTo(jumpPos int, target int) {
	afterJump := jumpPos + 3 // opcode byte + 2-byte operand
	delta := target - afterJump
	c.checkInt16Range(delta)
	binary.BigEndian.PutUint16(c.bytecode.Instructions[jumpPos+1:], uint16(delta))
}

// emitJumpTo emits a jump whose target is already known, used for the
// backward edge of a while loop.
func (c *Compiler) emitJumpTo(op Opcode, target int) {
	pos := len(c.bytecode.Instructions)
	afterJump := pos + 3
	delta := target - afterJump
	c.checkInt16Range(delta)
	c.emit(op, delta)
}

func (c *Compiler) checkInt16Range(delta int) {
	if delta < math.MinInt16 || delta > math.MaxInt16 {
		panic(&Error{Kind: Conversion, Message: "jump offset exceeds 16 bits", Loc: c.cur.Loc})
	}
}

// --- grammar ---

// compileDeclaration compiles one `let`, `global`, or bare-expression
// declaration and reports whether it was a `let`. A `let`-declared local's
// value must remain on the stack (it IS the local's storage slot) so the
// caller must never Pop it mid-sequence, unlike a `global` or plain
// expression's value, which is disposable once sequenced past.
func (c *Compiler) compileDeclaration() bool {
	switch {
	case c.match(token.LET):
		nameTok := c.consume(token.IDENTIFIER, "identifier")
		c.consume(token.ASSIGN, "=")
		c.compileExpression()
		c.declareLocal(nameTok.Lexeme)
		return true
	case c.match(token.GLOBAL):
		nameTok := c.consume(token.IDENTIFIER, "identifier")
		c.consume(token.ASSIGN, "=")
		c.compileExpression()
		idx := c.addNameConstant(nameTok.Lexeme)
		c.emit(OpSetGlobal, idx)
		return false
	default:
		c.compileExpression()
		return false
	}
}

// compileBlockBody compiles a (possibly empty) sequence of declarations up
// to the next `}`, applying the same Pop-between-non-let-forms sequencing
// as the top-level program. An empty body pushes Null so the block still
// produces exactly one value.
//
// A `let`'s value IS its local's storage slot, not a separate stack entry —
// so when the last form in the body is a `let`, the close-scope protocol
// that follows would have nothing above the locals to SaveReturn but one of
// the locals themselves, over-popping the scope by one. GetLocal-ing a copy
// of that last binding gives close-scope a genuine result entry sitting
// above every live local of this scope.
func (c *Compiler) compileBlockBody() {
	count := 0
	lastWasLet := false
	for !c.check(token.RBRACE) && !c.atEnd() {
		isLet := c.compileDeclaration()
		count++
		lastWasLet = isLet
		if !c.check(token.RBRACE) && !isLet {
			c.emit(OpPop)
		}
	}
	switch {
	case count == 0:
		idx := c.addConstant(value.Null)
		c.emit(OpPush, idx)
	case lastWasLet:
		c.emit(OpGetLocal, c.locals[len(c.locals)-1].slot)
	}
}

// compileBlockExpr compiles a standalone `{ ... }` block as an expression:
// a fresh lexical scope whose locals are reclaimed on exit via the
// close-scope protocol, leaving exactly one value.
func (c *Compiler) compileBlockExpr() {
	c.consume(token.LBRACE, "{")
	c.beginScope()
	c.compileBlockBody()
	popped := c.endScope()
	c.emitCloseScope(popped)
	c.consume(token.RBRACE, "}")
}

func (c *Compiler) compileExpression() {
	c.compileOr()
}

func (c *Compiler) compileOr() {
	c.compileAnd()
	for c.match(token.OR) {
		jumpIfTrue := c.emitPlaceholderJump(OpJumpIfTrue)
		c.emit(OpPop)
		c.compileAnd()
		c.patchJump(jumpIfTrue)
	}
}

func (c *Compiler) compileAnd() {
	c.compileEquality()
	for c.match(token.AND) {
		jumpIfFalse := c.emitPlaceholderJump(OpJumpIfFalse)
		c.emit(OpPop)
		c.compileEquality()
		c.patchJump(jumpIfFalse)
	}
}

func (c *Compiler) compileEquality() {
	c.compileComparison()
	for {
		switch {
		case c.match(token.EQUAL_EQUAL):
			c.compileComparison()
			c.emit(OpEqual)
		case c.match(token.NOT_EQUAL):
			c.compileComparison()
			c.emit(OpNotEqual)
		default:
			return
		}
	}
}

func (c *Compiler) compileComparison() {
	c.compileAddition()
	for {
		switch {
		case c.match(token.LESS):
			c.compileAddition()
			c.emit(OpLess)
		case c.match(token.LESS_EQUAL):
			c.compileAddition()
			c.emit(OpLessEqual)
		case c.match(token.GREATER):
			c.compileAddition()
			c.emit(OpGreater)
		case c.match(token.GREATER_EQUAL):
			c.compileAddition()
			c.emit(OpGreaterEqual)
		default:
			return
		}
	}
}

func (c *Compiler) compileAddition() {
	c.compileMultiplication()
	for {
		switch {
		case c.match(token.PLUS):
			c.compileMultiplication()
			c.emit(OpAdd)
		case c.match(token.MINUS):
			c.compileMultiplication()
			c.emit(OpSub)
		default:
			return
		}
	}
}

func (c *Compiler) compileMultiplication() {
	c.compileUnary()
	for {
		switch {
		case c.match(token.STAR):
			c.compileUnary()
			c.emit(OpMul)
		case c.match(token.SLASH):
			c.compileUnary()
			c.emit(OpDiv)
		default:
			return
		}
	}
}

func (c *Compiler) compileUnary() {
	if c.match(token.MINUS) {
		c.compileUnary()
		c.emit(OpNeg)
		return
	}
	if c.match(token.BANG) || c.match(token.NOT) {
		c.compileUnary()
		c.emit(OpNot)
		return
	}
	c.compileCall()
}

func (c *Compiler) compileCall() {
	c.compilePrimary()
	for c.match(token.LPAREN) {
		argc := 0
		if !c.check(token.RPAREN) {
			for {
				c.compileExpression()
				argc++
				if !c.match(token.COMMA) {
					break
				}
			}
		}
		c.consume(token.RPAREN, ")")
		c.emit(OpCall, argc)
	}
}

func (c *Compiler) compilePrimary() {
	switch {
	case c.match(token.LPAREN):
		c.compileExpression()
		c.consume(token.RPAREN, ")")
	case c.check(token.LBRACE):
		c.compileBlockExpr()
	case c.match(token.IF):
		c.compileIf()
	case c.match(token.WHILE):
		c.compileWhile()
	case c.match(token.FN):
		c.compileFunctionLiteral()
	case c.check(token.IDENTIFIER):
		c.compileIdentifier()
	case c.check(token.NUMBER):
		idx := c.addConstant(value.Num(c.cur.Literal.(float64)))
		c.emit(OpPush, idx)
		c.advance()
	case c.check(token.STRING):
		idx := c.addConstant(value.Str(c.cur.Literal.(string)))
		c.emit(OpPush, idx)
		c.advance()
	case c.match(token.TRUE):
		idx := c.addConstant(value.Bool(true))
		c.emit(OpPush, idx)
	case c.match(token.FALSE):
		idx := c.addConstant(value.Bool(false))
		c.emit(OpPush, idx)
	case c.match(token.NULL):
		idx := c.addConstant(value.Null)
		c.emit(OpPush, idx)
	default:
		if c.cur.Type == token.EOF {
			panic(&Error{Kind: EndOfInput, Loc: c.cur.Loc})
		}
		panic(&Error{Kind: Mismatch, Expected: "expression", Found: string(c.cur.Type), Loc: c.cur.Loc})
	}
}

// compileIdentifier compiles a bare identifier, resolving it as a local
// first and falling back to a global — lookup and assignment alike. A
// global's existence is never checked at compile time; GetGlobal/SetGlobal
// carry the name by way of a chunk-local NameConstants index and are
// resolved dynamically by the VM at run time.
func (c *Compiler) compileIdentifier() {
	name := c.cur.Lexeme
	c.advance()

	if c.match(token.ASSIGN) {
		c.compileExpression()
		if slot := c.resolveLocal(name); slot != -1 {
			c.emit(OpSetLocal, slot)
		} else {
			idx := c.addNameConstant(name)
			c.emit(OpSetGlobal, idx)
		}
		return
	}

	if slot := c.resolveLocal(name); slot != -1 {
		c.emit(OpGetLocal, slot)
		return
	}
	idx := c.addNameConstant(name)
	c.emit(OpGetGlobal, idx)
}

// compileIf implements the if/then/else emission recipe: both branches
// leave exactly one value, and the condition is dropped with an explicit
// Pop on whichever branch executes (JumpIfFalse itself never pops).
func (c *Compiler) compileIf() {
	c.compileExpression()

	jumpToElse := c.emitPlaceholderJump(OpJumpIfFalse)
	c.emit(OpPop)

	if c.match(token.THEN) {
		c.compileExpression()
	} else {
		c.compileBlockExpr()
	}

	jumpToEnd := c.emitPlaceholderJump(OpJump)
	c.patchJump(jumpToElse)
	c.emit(OpPop)

	switch {
	case c.match(token.ELSE):
		if c.check(token.LBRACE) {
			c.compileBlockExpr()
		} else {
			c.compileExpression()
		}
	default:
		idx := c.addConstant(value.Null)
		c.emit(OpPush, idx)
	}

	c.patchJump(jumpToEnd)
}

// compileWhile implements the while-loop emission recipe: an initial Null
// stands in for "no iterations ran yet", each pass discards the previous
// iteration's value before compiling the body, and the exit path discards
// the one thing the loop-body path doesn't: the falsy condition.
func (c *Compiler) compileWhile() {
	idx := c.addConstant(value.Null)
	c.emit(OpPush, idx)

	loopStart := len(c.bytecode.Instructions)
	c.compileExpression()

	jumpExit := c.emitPlaceholderJump(OpJumpIfFalse)
	c.emit(OpPop) // condition
	c.emit(OpPop) // previous iteration's value

	c.compileBlockExpr()

	c.emitJumpTo(OpJump, loopStart)
	c.patchJump(jumpExit)
	c.emit(OpPop) // condition
}

// compileFunctionLiteral compiles `fn NAME? (params) (-> expr | block)`.
// The body is compiled with a fresh bytecode/locals state (a "fresh
// compiler instance" in spirit) sharing this Compiler's token stream, since
// emission is single-pass and the source is scanned only once.
func (c *Compiler) compileFunctionLiteral() {
	savedBytecode := c.bytecode
	savedLocals := c.locals
	savedScopeMarks := c.scopeMarks

	c.bytecode = &Bytecode{}
	c.locals = []Local{{name: "", slot: 0}}
	c.scopeMarks = nil

	var name string
	if c.check(token.IDENTIFIER) {
		name = c.cur.Lexeme
		c.advance()
	}

	c.consume(token.LPAREN, "(")
	arity := 0
	if !c.check(token.RPAREN) {
		for {
			param := c.consume(token.IDENTIFIER, "parameter name")
			c.declareLocal(param.Lexeme)
			arity++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, ")")

	c.beginScope()
	if c.match(token.ARROW) {
		c.compileExpression()
	} else {
		c.consume(token.LBRACE, "{")
		c.compileBlockBody()
		c.consume(token.RBRACE, "}")
	}
	popped := c.endScope()
	c.emitCloseScope(popped)
	c.emit(OpRet)

	funcChunk := c.bytecode
	funcValue := value.Function(funcChunk, arity, name)

	c.bytecode = savedBytecode
	c.locals = savedLocals
	c.scopeMarks = savedScopeMarks

	idx := c.addConstant(funcValue)
	c.emit(OpPush, idx)

	if name != "" {
		nameIdx := c.addNameConstant(name)
		c.emit(OpSetGlobal, nameIdx)
	}
}
