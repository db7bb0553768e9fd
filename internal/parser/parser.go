// Package parser turns a token stream into the tagged AST defined by
// internal/ast. It is a hand-written Pratt parser
// with a fixed operator-precedence table and panic-mode error
// recovery: a syntax error is recorded as a diagnostic and parsing
// resumes at the next likely statement boundary, so one bad statement
// never hides errors in the rest of the file.
package parser

import (
	"math/big"

	"github.com/nova-lang/nova/internal/ast"
	"github.com/nova-lang/nova/internal/source"
	"github.com/nova-lang/nova/internal/token"
	"github.com/nova-lang/nova/internal/types"
)

// MaxRecursionDepth bounds expression-parsing recursion so a
// pathological or adversarial input fails with a diagnostic instead of
// overflowing the Go stack, mirroring the lexer's bounded recovery
// philosophy.
const MaxRecursionDepth = 256

// Precedence levels, lowest to highest. POWER is right-associative;
// everything else left-associative.
const (
	LOWEST int = iota
	ASSIGNMENT
	PIPELINE // |>
	LOGIC_OR
	LOGIC_AND
	EQUALITY
	COMPARISON
	ADDITIVE
	MULTIPLICATIVE
	POWER
	PREFIX
	POSTFIX // call, index, member
)

var precedences = map[token.Type]int{
	token.ASSIGN:  ASSIGNMENT,
	token.OR:      LOGIC_OR,
	token.AND:     LOGIC_AND,
	token.EQ:      EQUALITY,
	token.NOT_EQ:  EQUALITY,
	token.LT:      COMPARISON,
	token.LTE:     COMPARISON,
	token.GT:      COMPARISON,
	token.GTE:     COMPARISON,
	token.PLUS:    ADDITIVE,
	token.MINUS:   ADDITIVE,
	token.ASTERISK: MULTIPLICATIVE,
	token.SLASH:    MULTIPLICATIVE,
	token.PERCENT:  MULTIPLICATIVE,
	token.POWER:    POWER,
	token.LPAREN:   POSTFIX,
	token.LBRACKET: POSTFIX,
	token.DOT:      POSTFIX,
}

// Parser consumes a pre-lexed token slice for one source.Unit and
// produces a *ast.Program. Construct one per file.
type Parser struct {
	unit   *source.Unit
	tokens []token.Token
	pos    int
	idgen  ast.IDGen
	diags  source.Bag
	depth  int
}

// New creates a Parser over unit's already-tokenized source.
func New(unit *source.Unit, tokens []token.Token) *Parser {
	return &Parser{unit: unit, tokens: tokens}
}

// Diagnostics returns every syntax error/warning recorded while
// parsing. Always non-nil.
func (p *Parser) Diagnostics() *source.Bag { return &p.diags }

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	idx := p.pos + n
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *Parser) peek() token.Token { return p.peekAt(1) }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) curIs(t token.Type) bool  { return p.cur().Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peek().Type == t }

func (p *Parser) skipNewlines() {
	for p.curIs(token.NEWLINE) {
		p.advance()
	}
}

// expect consumes the current token if it matches t, else records a
// diagnostic and leaves the cursor in place for recovery.
func (p *Parser) expect(t token.Type) (token.Token, bool) {
	if p.curIs(t) {
		return p.advance(), true
	}
	p.errorf("P001", "expected %s, found %s", t, p.cur().Type)
	return p.cur(), false
}

func (p *Parser) errorf(code, format string, args ...any) {
	p.diags.Add(source.Errorf(code, p.cur().Span, format, args...))
}

// syncTo advances until cur is one of the given boundary kinds (or
// EOF), the panic-mode recovery strategy for statement-level errors.
func (p *Parser) syncTo(kinds ...token.Type) {
	for !p.curIs(token.EOF) {
		for _, k := range kinds {
			if p.curIs(k) {
				return
			}
		}
		p.advance()
	}
}

func (p *Parser) span(start token.Token) source.Span {
	return source.Join(start.Span, p.cur().Span)
}

// ParseProgram parses the whole token stream into a *ast.Program.
func (p *Parser) ParseProgram() *ast.Program {
	start := p.cur()
	prog := ast.NewProgram(&p.idgen, start.Span, p.unit.Name, "")
	p.skipNewlines()

	for !p.curIs(token.EOF) {
		switch {
		case p.curIs(token.IMPORT):
			if imp := p.parseImportItem(); imp != nil {
				prog.Imports = append(prog.Imports, imp)
			}
		case p.curIs(token.EXPORT):
			if exp := p.parseExportItem(); exp != nil {
				prog.Exports = append(prog.Exports, exp)
			}
		default:
			if item := p.parseItem(); item != nil {
				prog.Items = append(prog.Items, item)
			}
		}
		p.skipNewlines()
	}

	return prog
}

func (p *Parser) parseImportItem() *ast.ImportItem {
	start := p.advance() // 'import'

	if p.curIs(token.LBRACE) {
		p.advance()
		var members []string
		for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
			if tk, ok := p.expect(token.IDENT); ok {
				members = append(members, tk.Lexeme)
			}
			if p.curIs(token.COMMA) {
				p.advance()
				p.skipNewlines()
				continue
			}
			break
		}
		p.expect(token.RBRACE)
		// 'from'
		if p.curIs(token.IDENT) && p.cur().Lexeme == "from" {
			p.advance()
		}
		pathTok, _ := p.expect(token.STRING)
		path, _ := pathTok.Literal.(string)
		return ast.NewImportItem(&p.idgen, p.span(start), path, "", members)
	}

	pathTok, ok := p.expect(token.STRING)
	if !ok {
		p.syncTo(token.NEWLINE, token.EOF)
		return nil
	}
	path, _ := pathTok.Literal.(string)
	alias := ""
	if p.curIs(token.IDENT) && p.cur().Lexeme == "as" {
		p.advance()
		if tk, ok := p.expect(token.IDENT); ok {
			alias = tk.Lexeme
		}
	}
	return ast.NewImportItem(&p.idgen, p.span(start), path, alias, nil)
}

func (p *Parser) parseExportItem() *ast.ExportItem {
	start := p.advance() // 'export'
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		p.syncTo(token.NEWLINE, token.EOF)
		return nil
	}
	alias := ""
	if p.curIs(token.IDENT) && p.cur().Lexeme == "as" {
		p.advance()
		if tk, ok := p.expect(token.IDENT); ok {
			alias = tk.Lexeme
		}
	}
	return ast.NewExportItem(&p.idgen, p.span(start), nameTok.Lexeme, alias)
}

func (p *Parser) parseItem() ast.Item {
	switch p.cur().Type {
	case token.ASYNC, token.FN:
		return p.parseFuncItem()
	case token.CONST:
		return p.parseConstItem()
	case token.TYPE:
		return p.parseTypeAliasItem()
	case token.STRUCT:
		return p.parseStructItem()
	case token.ENUM:
		return p.parseEnumItem()
	default:
		p.errorf("P002", "expected an item (fn/const/type/struct/enum), found %s", p.cur().Type)
		p.syncTo(token.NEWLINE, token.EOF)
		return nil
	}
}

func (p *Parser) parseTypeParams() []ast.TypeParam {
	if !p.curIs(token.LT) {
		return nil
	}
	p.advance()
	var params []ast.TypeParam
	for !p.curIs(token.GT) && !p.curIs(token.EOF) {
		nameTok, ok := p.expect(token.IDENT_UPPER)
		if !ok {
			break
		}
		tp := ast.TypeParam{Name: nameTok.Lexeme}
		if p.curIs(token.COLON) {
			p.advance()
			for {
				boundTok, ok := p.expect(token.IDENT_UPPER)
				if !ok {
					break
				}
				tp.Bounds = append(tp.Bounds, boundTok.Lexeme)
				if p.curIs(token.PLUS) {
					p.advance()
					continue
				}
				break
			}
		}
		params = append(params, tp)
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.GT)
	return params
}

func (p *Parser) parseFuncItem() *ast.FuncItem {
	start := p.cur()
	isAsync := false
	if p.curIs(token.ASYNC) {
		isAsync = true
		p.advance()
	}
	p.expect(token.FN)
	nameTok, _ := p.expect(token.IDENT)
	item := ast.NewFuncItem(&p.idgen, start.Span, nameTok.Lexeme)
	item.IsAsync = isAsync
	item.TypeParams = p.parseTypeParams()

	p.expect(token.LPAREN)
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		pat := p.parsePattern()
		var ann types.Type
		if p.curIs(token.COLON) {
			p.advance()
			ann = p.parseTypeExpr()
		}
		item.Params = append(item.Params, ast.Param{Pattern: pat, Annotation: ann})
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RPAREN)

	if p.curIs(token.ARROW) {
		p.advance()
		item.Return = p.parseTypeExpr()
	} else {
		item.Return = types.Unit
	}
	p.parseWhereClause()
	item.Body = p.parseBlockExpr()
	return item
}

// parseWhereClause consumes an optional `where T: Bound, ...` clause.
// Bounds are already captured inline on TypeParam in most call sites;
// a trailing where-clause is accepted syntactically and discarded,
// since the bound model only needs the per-parameter form.
func (p *Parser) parseWhereClause() {
	if !p.curIs(token.WHERE) {
		return
	}
	p.advance()
	for !p.curIs(token.LBRACE) && !p.curIs(token.EOF) && !p.curIs(token.NEWLINE) {
		p.advance()
	}
}

func (p *Parser) parseConstItem() *ast.ConstItem {
	start := p.advance() // 'const'
	nameTok, _ := p.expect(token.IDENT_UPPER)
	if nameTok.Lexeme == "" {
		nameTok, _ = p.expect(token.IDENT)
	}
	item := ast.NewConstItem(&p.idgen, start.Span, nameTok.Lexeme)
	if p.curIs(token.COLON) {
		p.advance()
		item.Annotation = p.parseTypeExpr()
	}
	p.expect(token.ASSIGN)
	item.Value = p.parseExpression(LOWEST)
	return item
}

func (p *Parser) parseTypeAliasItem() *ast.TypeAliasItem {
	start := p.advance() // 'type'
	nameTok, _ := p.expect(token.IDENT_UPPER)
	item := ast.NewTypeAliasItem(&p.idgen, start.Span, nameTok.Lexeme)
	item.TypeParams = p.parseTypeParams()
	p.expect(token.ASSIGN)
	item.Aliased = p.parseTypeExpr()
	return item
}

func (p *Parser) parseStructItem() *ast.StructItem {
	start := p.advance() // 'struct'
	nameTok, _ := p.expect(token.IDENT_UPPER)
	item := ast.NewStructItem(&p.idgen, start.Span, nameTok.Lexeme)
	item.TypeParams = p.parseTypeParams()
	p.expect(token.LBRACE)
	p.skipNewlines()
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		fieldTok, ok := p.expect(token.IDENT)
		if !ok {
			break
		}
		p.expect(token.COLON)
		ty := p.parseTypeExpr()
		item.Fields = append(item.Fields, ast.StructField{Name: fieldTok.Lexeme, Annotation: ty})
		if p.curIs(token.COMMA) {
			p.advance()
		}
		p.skipNewlines()
	}
	p.expect(token.RBRACE)
	return item
}

func (p *Parser) parseEnumItem() *ast.EnumItem {
	start := p.advance() // 'enum'
	nameTok, _ := p.expect(token.IDENT_UPPER)
	item := ast.NewEnumItem(&p.idgen, start.Span, nameTok.Lexeme)
	item.TypeParams = p.parseTypeParams()
	p.expect(token.LBRACE)
	p.skipNewlines()
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		variantTok, ok := p.expect(token.IDENT_UPPER)
		if !ok {
			break
		}
		variant := ast.EnumVariant{Name: variantTok.Lexeme}
		if p.curIs(token.LPAREN) {
			p.advance()
			for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
				variant.Payload = append(variant.Payload, p.parseTypeExpr())
				if p.curIs(token.COMMA) {
					p.advance()
					continue
				}
				break
			}
			p.expect(token.RPAREN)
		}
		item.Variants = append(item.Variants, variant)
		if p.curIs(token.COMMA) {
			p.advance()
		}
		p.skipNewlines()
	}
	p.expect(token.RBRACE)
	return item
}

// parseTypeExpr parses a type annotation: a
// primitive name, `?` for Unknown, `[T]` for an array, `(T, T) -> T`
// for a function type, or `Name<Args>` for a nominal type, possibly
// itself a type parameter reference.
func (p *Parser) parseTypeExpr() types.Type {
	switch p.cur().Type {
	case token.QUESTION:
		p.advance()
		return types.Unknown{}
	case token.BANG:
		p.advance()
		return types.Never{}
	case token.LBRACKET:
		p.advance()
		elem := p.parseTypeExpr()
		p.expect(token.RBRACKET)
		return types.Array{Elem: elem}
	case token.LPAREN:
		p.advance()
		var params []types.Type
		for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
			params = append(params, p.parseTypeExpr())
			if p.curIs(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
		p.expect(token.RPAREN)
		p.expect(token.ARROW)
		ret := p.parseTypeExpr()
		return types.Func{Params: params, Return: ret}
	case token.LBRACE:
		p.advance()
		fields := make(map[string]types.Type)
		for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
			nameTok, ok := p.expect(token.IDENT)
			if !ok {
				break
			}
			p.expect(token.COLON)
			fields[nameTok.Lexeme] = p.parseTypeExpr()
			if p.curIs(token.COMMA) {
				p.advance()
			}
		}
		p.expect(token.RBRACE)
		return types.Record{Fields: fields}
	case token.IDENT_UPPER:
		nameTok := p.advance()
		switch nameTok.Lexeme {
		case "Int":
			return types.Int
		case "Float":
			return types.Float
		case "Bool":
			return types.Bool
		case "String":
			return types.String
		case "Unit":
			return types.Unit
		}
		if !p.curIs(token.LT) {
			return types.TParam{Name: nameTok.Lexeme}
		}
		p.advance()
		var args []types.Type
		for !p.curIs(token.GT) && !p.curIs(token.EOF) {
			args = append(args, p.parseTypeExpr())
			if p.curIs(token.COMMA) {
				p.advance()
				continue
			}
			break
		}
		p.expect(token.GT)
		return types.Named{Name: nameTok.Lexeme, Args: args}
	default:
		p.errorf("P003", "expected a type, found %s", p.cur().Type)
		return types.Unknown{}
	}
}

// ---- Expressions ----

type prefixParseFn func() ast.Expr
type infixParseFn func(ast.Expr) ast.Expr

func (p *Parser) parseExpression(precedence int) ast.Expr {
	p.depth++
	defer func() { p.depth-- }()
	if p.depth > MaxRecursionDepth {
		p.errorf("P004", "expression too deeply nested")
		p.syncTo(token.NEWLINE, token.RBRACE, token.EOF)
		return nil
	}

	left := p.parsePrefix()
	if left == nil {
		return nil
	}

	for !p.curIs(token.NEWLINE) && precedence < p.curPrecedence() {
		infix := p.infixFor(p.cur().Type)
		if infix == nil {
			break
		}
		left = infix(left)
		if left == nil {
			return nil
		}
	}
	return left
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.cur().Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) infixFor(t token.Type) infixParseFn {
	switch t {
	case token.PLUS:
		return p.parseBinaryLeft(ast.BinAdd)
	case token.MINUS:
		return p.parseBinaryLeft(ast.BinSub)
	case token.ASTERISK:
		return p.parseBinaryLeft(ast.BinMul)
	case token.SLASH:
		return p.parseBinaryLeft(ast.BinDiv)
	case token.PERCENT:
		return p.parseBinaryLeft(ast.BinMod)
	case token.POWER:
		return p.parseBinaryRight(ast.BinPow)
	case token.EQ:
		return p.parseBinaryLeft(ast.BinEq)
	case token.NOT_EQ:
		return p.parseBinaryLeft(ast.BinNotEq)
	case token.LT:
		return p.parseBinaryLeft(ast.BinLt)
	case token.LTE:
		return p.parseBinaryLeft(ast.BinLte)
	case token.GT:
		return p.parseBinaryLeft(ast.BinGt)
	case token.GTE:
		return p.parseBinaryLeft(ast.BinGte)
	case token.AND:
		return p.parseBinaryLeft(ast.BinAnd)
	case token.OR:
		return p.parseBinaryLeft(ast.BinOr)
	case token.LPAREN:
		return p.parseCall
	case token.LBRACKET:
		return p.parseIndex
	case token.DOT:
		return p.parseMember
	case token.ASSIGN:
		return p.parseAssign
	}
	return nil
}

func (p *Parser) parseBinaryLeft(op ast.BinaryOp) infixParseFn {
	return func(left ast.Expr) ast.Expr {
		opTok := p.advance()
		prec := precedences[opTok.Type]
		right := p.parseExpression(prec)
		return ast.NewBinaryExpr(&p.idgen, p.span(opTok), op, left, right)
	}
}

func (p *Parser) parseBinaryRight(op ast.BinaryOp) infixParseFn {
	return func(left ast.Expr) ast.Expr {
		opTok := p.advance()
		right := p.parseExpression(POWER - 1)
		return ast.NewBinaryExpr(&p.idgen, p.span(opTok), op, left, right)
	}
}

func (p *Parser) parseAssign(target ast.Expr) ast.Expr {
	opTok := p.advance() // '='
	value := p.parseExpression(ASSIGNMENT - 1)
	return ast.NewAssignExpr(&p.idgen, p.span(opTok), target, value)
}

func (p *Parser) parseCall(callee ast.Expr) ast.Expr {
	start := p.advance() // '('
	var args []ast.Expr
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		args = append(args, p.parseExpression(LOWEST))
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.RPAREN)
	return ast.NewCallExpr(&p.idgen, p.span(start), callee, args)
}

func (p *Parser) parseIndex(target ast.Expr) ast.Expr {
	start := p.advance() // '['
	idx := p.parseExpression(LOWEST)
	p.expect(token.RBRACKET)
	return ast.NewIndexExpr(&p.idgen, p.span(start), target, idx)
}

func (p *Parser) parseMember(target ast.Expr) ast.Expr {
	start := p.advance() // '.'
	nameTok, _ := p.expect(token.IDENT)
	return ast.NewMemberExpr(&p.idgen, p.span(start), target, nameTok.Lexeme)
}

func (p *Parser) parsePrefix() ast.Expr {
	switch p.cur().Type {
	case token.INT:
		t := p.advance()
		v, _ := t.Literal.(int64)
		return ast.NewIntLiteral(&p.idgen, t.Span, v)
	case token.BIG_INT:
		t := p.advance()
		digits := t.Lexeme
		if bi, ok := t.Literal.(*big.Int); ok {
			digits = bi.String()
		}
		return ast.NewBigIntLiteral(&p.idgen, t.Span, digits)
	case token.FLOAT:
		t := p.advance()
		v, _ := t.Literal.(float64)
		return ast.NewFloatLiteral(&p.idgen, t.Span, v)
	case token.TRUE:
		t := p.advance()
		return ast.NewBoolLiteral(&p.idgen, t.Span, true)
	case token.FALSE:
		t := p.advance()
		return ast.NewBoolLiteral(&p.idgen, t.Span, false)
	case token.STRING, token.INTERP_STRING, token.FORMAT_STRING:
		t := p.advance()
		v, _ := t.Literal.(string)
		return ast.NewStringLiteral(&p.idgen, t.Span, v)
	case token.CHAR:
		t := p.advance()
		v, _ := t.Literal.(rune)
		return ast.NewCharLiteral(&p.idgen, t.Span, v)
	case token.IDENT, token.IDENT_UPPER:
		t := p.advance()
		return ast.NewIdentifier(&p.idgen, t.Span, t.Lexeme)
	case token.MINUS:
		t := p.advance()
		operand := p.parseExpression(PREFIX)
		return ast.NewUnaryExpr(&p.idgen, p.span(t), ast.UnaryNeg, operand)
	case token.BANG:
		t := p.advance()
		operand := p.parseExpression(PREFIX)
		return ast.NewUnaryExpr(&p.idgen, p.span(t), ast.UnaryNot, operand)
	case token.LPAREN:
		return p.parseGrouped()
	case token.LBRACKET:
		return p.parseArray()
	case token.LBRACE:
		return p.parseBlockExpr()
	case token.IF:
		return p.parseIf()
	case token.MATCH:
		return p.parseMatch()
	case token.AWAIT:
		t := p.advance()
		operand := p.parseExpression(PREFIX)
		return ast.NewAwaitExpr(&p.idgen, p.span(t), operand)
	case token.PIPE:
		return p.parseClosure(false)
	case token.ASYNC:
		t := p.advance()
		if p.curIs(token.PIPE) {
			return p.parseClosureFrom(t, true)
		}
		p.errorf("P005", "expected closure parameters after 'async'")
		return nil
	default:
		p.errorf("P006", "unexpected token %s", p.cur().Type)
		p.syncTo(token.NEWLINE, token.RBRACE, token.EOF)
		return nil
	}
}

func (p *Parser) parseGrouped() ast.Expr {
	start := p.advance() // '('
	if p.curIs(token.RPAREN) {
		p.advance()
		return ast.NewUnitLiteral(&p.idgen, p.span(start))
	}
	exp := p.parseExpression(LOWEST)
	p.expect(token.RPAREN)
	return exp
}

func (p *Parser) parseArray() ast.Expr {
	start := p.advance() // '['
	var elems []ast.Expr
	p.skipNewlines()
	for !p.curIs(token.RBRACKET) && !p.curIs(token.EOF) {
		elems = append(elems, p.parseExpression(LOWEST))
		p.skipNewlines()
		if p.curIs(token.COMMA) {
			p.advance()
			p.skipNewlines()
			continue
		}
		break
	}
	p.expect(token.RBRACKET)
	return ast.NewArrayExpr(&p.idgen, p.span(start), elems)
}

func (p *Parser) parseIf() ast.Expr {
	start := p.advance() // 'if'
	cond := p.parseExpression(LOWEST)
	then := p.parseBlockExpr()
	var els ast.Expr
	if p.curIs(token.ELSE) {
		p.advance()
		if p.curIs(token.IF) {
			els = p.parseIf()
		} else {
			els = p.parseBlockExpr()
		}
	}
	return ast.NewIfExpr(&p.idgen, p.span(start), cond, then, els)
}

func (p *Parser) parseMatch() ast.Expr {
	start := p.advance() // 'match'
	scrutinee := p.parseExpression(LOWEST)
	p.expect(token.LBRACE)
	p.skipNewlines()
	var arms []ast.MatchArm
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		pat := p.parsePatternWithOr()
		var guard ast.Expr
		if p.curIs(token.IF) {
			p.advance()
			guard = p.parseExpression(LOWEST)
		}
		p.expect(token.ARROW)
		body := p.parseExpression(LOWEST)
		arms = append(arms, ast.MatchArm{Pattern: pat, Guard: guard, Body: body})
		p.skipNewlines()
		if p.curIs(token.COMMA) {
			p.advance()
			p.skipNewlines()
		}
	}
	p.expect(token.RBRACE)
	return ast.NewMatchExpr(&p.idgen, p.span(start), scrutinee, arms)
}

func (p *Parser) parseClosure(isAsync bool) ast.Expr {
	start := p.cur()
	return p.parseClosureFrom(start, isAsync)
}

func (p *Parser) parseClosureFrom(start token.Token, isAsync bool) ast.Expr {
	p.expect(token.PIPE)
	var params []ast.Param
	for !p.curIs(token.PIPE) && !p.curIs(token.EOF) {
		pat := p.parsePattern()
		var ann types.Type
		if p.curIs(token.COLON) {
			p.advance()
			ann = p.parseTypeExpr()
		}
		params = append(params, ast.Param{Pattern: pat, Annotation: ann})
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	p.expect(token.PIPE)
	body := p.parseExpression(LOWEST)
	return ast.NewClosureExpr(&p.idgen, p.span(start), params, body, isAsync)
}

// parseBlockExpr parses `{ stmt* tail? }`. A trailing expression not
// terminated by a statement boundary becomes the block's tail and
// therefore its type; everything else is a Stmt.
func (p *Parser) parseBlockExpr() *ast.BlockExpr {
	start, _ := p.expect(token.LBRACE)
	p.skipNewlines()
	var stmts []ast.Stmt
	var tail ast.Expr

	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		switch p.cur().Type {
		case token.LET:
			stmts = append(stmts, p.parseLetStmt())
		case token.RETURN:
			stmts = append(stmts, p.parseReturnStmt())
		case token.WHILE:
			stmts = append(stmts, p.parseWhileStmt())
		case token.FOR:
			stmts = append(stmts, p.parseForStmt())
		case token.BREAK:
			t := p.advance()
			stmts = append(stmts, ast.NewBreakStmt(&p.idgen, t.Span))
		case token.CONTINUE:
			t := p.advance()
			stmts = append(stmts, ast.NewContinueStmt(&p.idgen, t.Span))
		default:
			exprStart := p.cur()
			expr := p.parseExpression(LOWEST)
			if expr == nil {
				p.syncTo(token.NEWLINE, token.RBRACE, token.EOF)
				p.skipNewlines()
				continue
			}
			p.skipNewlines()
			if p.curIs(token.RBRACE) {
				tail = expr
			} else {
				stmts = append(stmts, ast.NewExprStmt(&p.idgen, p.span(exprStart), expr))
			}
		}
		p.skipNewlines()
	}
	end, _ := p.expect(token.RBRACE)
	return ast.NewBlockExpr(&p.idgen, source.Join(start.Span, end.Span), stmts, tail)
}

func (p *Parser) parseLetStmt() *ast.LetStmt {
	start := p.advance() // 'let'
	mutable := false
	if p.curIs(token.MUT) {
		mutable = true
		p.advance()
	}
	pat := p.parsePattern()
	var ann types.Type
	if p.curIs(token.COLON) {
		p.advance()
		ann = p.parseTypeExpr()
	}
	p.expect(token.ASSIGN)
	value := p.parseExpression(LOWEST)
	stmt := ast.NewLetStmt(&p.idgen, p.span(start), pat, value, mutable)
	stmt.Annotation = ann
	return stmt
}

func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.advance() // 'return'
	if p.curIs(token.NEWLINE) || p.curIs(token.RBRACE) || p.curIs(token.EOF) {
		return ast.NewReturnStmt(&p.idgen, start.Span, nil)
	}
	value := p.parseExpression(LOWEST)
	return ast.NewReturnStmt(&p.idgen, p.span(start), value)
}

func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	start := p.advance() // 'while'
	cond := p.parseExpression(LOWEST)
	body := p.parseBlockExpr()
	return ast.NewWhileStmt(&p.idgen, p.span(start), cond, body)
}

func (p *Parser) parseForStmt() *ast.ForStmt {
	start := p.advance() // 'for'
	pat := p.parsePattern()
	p.expect(token.IN)
	iter := p.parseExpression(LOWEST)
	body := p.parseBlockExpr()
	return ast.NewForStmt(&p.idgen, p.span(start), pat, iter, body)
}

// ---- Patterns ----

// parsePatternWithOr parses a full match-arm pattern, including
// top-level `|` alternation. Guard handling is done by the
// caller (parseMatch), since a guard applies to the whole arm, not to
// one alternative.
func (p *Parser) parsePatternWithOr() ast.Pattern {
	first := p.parsePattern()
	if !p.curIs(token.PIPE) {
		return first
	}
	start := first.Span()
	alts := []ast.Pattern{first}
	for p.curIs(token.PIPE) {
		p.advance()
		alts = append(alts, p.parsePattern())
	}
	return ast.NewOrPattern(&p.idgen, start, alts)
}

func (p *Parser) parsePattern() ast.Pattern {
	switch p.cur().Type {
	case token.IDENT:
		if p.cur().Lexeme == "_" {
			t := p.advance()
			return ast.NewWildcardPattern(&p.idgen, t.Span)
		}
		t := p.advance()
		return ast.NewIdentifierPattern(&p.idgen, t.Span, t.Lexeme)
	case token.IDENT_UPPER:
		return p.parseConstructorPattern()
	case token.INT, token.FLOAT, token.STRING, token.CHAR, token.TRUE, token.FALSE, token.MINUS:
		return p.parseLiteralOrRangePattern()
	case token.LBRACKET:
		return p.parseArrayPattern()
	case token.LBRACE:
		return p.parseObjectPattern()
	default:
		p.errorf("P007", "expected a pattern, found %s", p.cur().Type)
		t := p.advance()
		return ast.NewWildcardPattern(&p.idgen, t.Span)
	}
}

func (p *Parser) parseLiteralExpr() ast.Expr {
	// Literal patterns reuse the literal-expression parser; MINUS here
	// is a unary negative-literal prefix, never a binary subtraction.
	if p.curIs(token.MINUS) {
		t := p.advance()
		operand := p.parsePrefix()
		return ast.NewUnaryExpr(&p.idgen, p.span(t), ast.UnaryNeg, operand)
	}
	return p.parsePrefix()
}

func (p *Parser) parseLiteralOrRangePattern() ast.Pattern {
	start := p.cur()
	lit := p.parseLiteralExpr()
	if p.curIs(token.DOT_DOT) {
		p.advance()
		inclusive := false
		if p.curIs(token.ASSIGN) {
			inclusive = true
			p.advance()
		}
		high := p.parseLiteralExpr()
		return ast.NewRangePattern(&p.idgen, p.span(start), lit, high, inclusive)
	}
	return ast.NewLiteralPattern(&p.idgen, lit.Span(), lit)
}

func (p *Parser) parseConstructorPattern() ast.Pattern {
	t := p.advance()
	if !p.curIs(token.LPAREN) {
		return ast.NewConstructorPattern(&p.idgen, t.Span, t.Lexeme, nil)
	}
	p.advance() // '('
	var payload []ast.Pattern
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		payload = append(payload, p.parsePattern())
		if p.curIs(token.COMMA) {
			p.advance()
			continue
		}
		break
	}
	end, _ := p.expect(token.RPAREN)
	return ast.NewConstructorPattern(&p.idgen, source.Join(t.Span, end.Span), t.Lexeme, payload)
}

func (p *Parser) parseArrayPattern() ast.Pattern {
	start := p.advance() // '['
	var elems []ast.Pattern
	rest := ""
	hasRest := false
	p.skipNewlines()
	for !p.curIs(token.RBRACKET) && !p.curIs(token.EOF) {
		if p.curIs(token.ELLIPSIS) {
			p.advance()
			if p.curIs(token.IDENT) {
				rest = p.advance().Lexeme
			}
			hasRest = true
			break
		}
		elems = append(elems, p.parsePattern())
		p.skipNewlines()
		if p.curIs(token.COMMA) {
			p.advance()
			p.skipNewlines()
			continue
		}
		break
	}
	end, _ := p.expect(token.RBRACKET)
	return ast.NewArrayPattern(&p.idgen, source.Join(start.Span, end.Span), elems, rest, hasRest)
}

func (p *Parser) parseObjectPattern() ast.Pattern {
	start := p.advance() // '{'
	var fields []ast.ObjectPatternField
	rest := ""
	hasRest := false
	p.skipNewlines()
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		if p.curIs(token.ELLIPSIS) {
			p.advance()
			if p.curIs(token.IDENT) {
				rest = p.advance().Lexeme
			}
			hasRest = true
			break
		}
		nameTok, ok := p.expect(token.IDENT)
		if !ok {
			break
		}
		var fieldPat ast.Pattern
		if p.curIs(token.COLON) {
			p.advance()
			fieldPat = p.parsePattern()
		} else {
			fieldPat = ast.NewIdentifierPattern(&p.idgen, nameTok.Span, nameTok.Lexeme)
		}
		fields = append(fields, ast.ObjectPatternField{Name: nameTok.Lexeme, Pattern: fieldPat})
		p.skipNewlines()
		if p.curIs(token.COMMA) {
			p.advance()
			p.skipNewlines()
			continue
		}
		break
	}
	end, _ := p.expect(token.RBRACE)
	return ast.NewObjectPattern(&p.idgen, source.Join(start.Span, end.Span), fields, rest, hasRest)
}
