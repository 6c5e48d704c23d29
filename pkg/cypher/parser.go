package cypher

import "strconv"

// Parser is a recursive-descent parser over the lexer's token stream, with
// one token of lookahead beyond the current token.
type Parser struct {
	lex      *lexer
	cur      token
	buffered *token
	params   map[string]any
}

// Parse parses src into a Query, binding params for later $name resolution
// by the executor.
func Parse(src string, params map[string]any) (*Query, error) {
	p := &Parser{lex: newLexer(src), params: params}
	if err := p.advance(); err != nil {
		return nil, err
	}

	q := &Query{Params: params}
	if q.Params == nil {
		q.Params = map[string]any{}
	}

	for p.cur.kind != tokEOF {
		clause, err := p.parseClause()
		if err != nil {
			return nil, err
		}
		q.Clauses = append(q.Clauses, clause)
	}
	return q, nil
}

func (p *Parser) advance() error {
	if p.buffered != nil {
		p.cur = *p.buffered
		p.buffered = nil
		return nil
	}
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *Parser) peek() (token, error) {
	if p.buffered != nil {
		return *p.buffered, nil
	}
	t, err := p.lex.next()
	if err != nil {
		return token{}, err
	}
	p.buffered = &t
	return t, nil
}

func (p *Parser) atKeyword(kw string) bool {
	return p.cur.kind == tokKeyword && p.cur.text == kw
}

func (p *Parser) atSymbol(sym string) bool {
	return p.cur.kind == tokSymbol && p.cur.text == sym
}

func (p *Parser) expectKeyword(kw string) error {
	if !p.atKeyword(kw) {
		return newSyntaxError(p.cur.line, p.cur.column, "expected keyword %q, found %q", kw, p.cur.text)
	}
	return p.advance()
}

func (p *Parser) expectSymbol(sym string) error {
	if !p.atSymbol(sym) {
		return newSyntaxError(p.cur.line, p.cur.column, "expected %q, found %q", sym, p.cur.text)
	}
	return p.advance()
}

func (p *Parser) expectIdent() (string, error) {
	if p.cur.kind != tokIdent {
		return "", newSyntaxError(p.cur.line, p.cur.column, "expected identifier, found %q", p.cur.text)
	}
	name := p.cur.text
	return name, p.advance()
}

// --- clauses ---

func (p *Parser) parseClause() (Clause, error) {
	switch {
	case p.atKeyword("match"):
		return p.parseMatch()
	case p.atKeyword("where"):
		return p.parseWhere()
	case p.atKeyword("return"):
		return p.parseReturn()
	case p.atKeyword("order"):
		return p.parseOrderBy()
	case p.atKeyword("skip"):
		return p.parseSkip()
	case p.atKeyword("limit"):
		return p.parseLimit()
	default:
		return nil, newSyntaxError(p.cur.line, p.cur.column, "unexpected token %q, expected a clause keyword", p.cur.text)
	}
}

func (p *Parser) parseMatch() (Clause, error) {
	if err := p.expectKeyword("match"); err != nil {
		return nil, err
	}
	pattern, err := p.parsePattern()
	if err != nil {
		return nil, err
	}

	m := MatchClause{Pattern: pattern}
	if p.atKeyword("where") {
		w, err := p.parseWhere()
		if err != nil {
			return nil, err
		}
		wc := w.(WhereClause)
		m.Where = &wc
	}
	return m, nil
}

func (p *Parser) parseWhere() (Clause, error) {
	if err := p.expectKeyword("where"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return WhereClause{Expression: expr}, nil
}

func (p *Parser) parseReturn() (Clause, error) {
	if err := p.expectKeyword("return"); err != nil {
		return nil, err
	}
	ret := ReturnClause{}
	if p.atKeyword("distinct") {
		ret.Distinct = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	for {
		startLine, startCol := p.cur.line, p.cur.column
		_ = startLine
		_ = startCol
		expr, text, err := p.parseExpressionWithText()
		if err != nil {
			return nil, err
		}
		item := ReturnItem{Expression: expr, Text: text}
		if p.atKeyword("as") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			alias, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			item.Alias = alias
		}
		ret.Items = append(ret.Items, item)

		if p.atSymbol(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return ret, nil
}

func (p *Parser) parseOrderBy() (Clause, error) {
	if err := p.expectKeyword("order"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("by"); err != nil {
		return nil, err
	}
	ob := OrderByClause{}
	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		item := SortItem{Expression: expr}
		switch {
		case p.atKeyword("desc") || p.atKeyword("descending"):
			item.Descending = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		case p.atKeyword("asc") || p.atKeyword("ascending"):
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		ob.Items = append(ob.Items, item)
		if p.atSymbol(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return ob, nil
}

func (p *Parser) parseSkip() (Clause, error) {
	if err := p.expectKeyword("skip"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return SkipClause{Count: expr}, nil
}

func (p *Parser) parseLimit() (Clause, error) {
	if err := p.expectKeyword("limit"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return LimitClause{Count: expr}, nil
}

// --- patterns ---

func (p *Parser) parsePattern() (Pattern, error) {
	var pattern Pattern
	node, err := p.parseNodePattern()
	if err != nil {
		return pattern, err
	}
	pattern.Elements = append(pattern.Elements, node)

	for p.atSymbol("-") || p.atSymbol("<") {
		rel, err := p.parseRelationshipPattern()
		if err != nil {
			return pattern, err
		}
		pattern.Elements = append(pattern.Elements, rel)

		next, err := p.parseNodePattern()
		if err != nil {
			return pattern, err
		}
		pattern.Elements = append(pattern.Elements, next)
	}
	return pattern, nil
}

func (p *Parser) parseNodePattern() (NodePattern, error) {
	var n NodePattern
	if err := p.expectSymbol("("); err != nil {
		return n, err
	}
	if p.cur.kind == tokIdent {
		n.Variable = p.cur.text
		if err := p.advance(); err != nil {
			return n, err
		}
	}
	for p.atSymbol(":") {
		if err := p.advance(); err != nil {
			return n, err
		}
		label, err := p.expectIdent()
		if err != nil {
			return n, err
		}
		n.Labels = append(n.Labels, label)
	}
	if p.atSymbol("{") {
		props, err := p.parsePropertyMap()
		if err != nil {
			return n, err
		}
		n.Properties = &props
	}
	if err := p.expectSymbol(")"); err != nil {
		return n, err
	}
	return n, nil
}

func (p *Parser) parseRelationshipPattern() (RelationshipPattern, error) {
	var r RelationshipPattern
	leadingIncoming := false

	if p.atSymbol("<") {
		leadingIncoming = true
		if err := p.advance(); err != nil {
			return r, err
		}
	}
	if err := p.expectSymbol("-"); err != nil {
		return r, err
	}

	if p.atSymbol("[") {
		if err := p.advance(); err != nil {
			return r, err
		}
		if p.cur.kind == tokIdent {
			r.Variable = p.cur.text
			if err := p.advance(); err != nil {
				return r, err
			}
		}
		if p.atSymbol(":") {
			for p.atSymbol(":") || p.atSymbol("|") {
				if err := p.advance(); err != nil {
					return r, err
				}
				typ, err := p.expectIdent()
				if err != nil {
					return r, err
				}
				r.Types = append(r.Types, typ)
			}
		}

		quant, err := p.tryParseQuantifier()
		if err != nil {
			return r, err
		}
		r.Quantifier = quant

		if p.atSymbol("{") {
			props, err := p.parsePropertyMap()
			if err != nil {
				return r, err
			}
			r.Properties = &props
		}
		if err := p.expectSymbol("]"); err != nil {
			return r, err
		}
	}

	trailingOutgoing := false
	if err := p.expectSymbol("-"); err != nil {
		return r, err
	}
	if p.atSymbol(">") {
		trailingOutgoing = true
		if err := p.advance(); err != nil {
			return r, err
		}
	}

	switch {
	case leadingIncoming && !trailingOutgoing:
		r.Direction = DirIncoming
	case !leadingIncoming && trailingOutgoing:
		r.Direction = DirOutgoing
	default:
		r.Direction = DirBoth
	}
	return r, nil
}

// tryParseQuantifier consumes *, +, ?, {n} or {n,m} if present; returns nil
// if the current token starts no quantifier (including the case where "{"
// begins a property map instead, disambiguated by one token of lookahead).
func (p *Parser) tryParseQuantifier() (*RelationshipQuantifier, error) {
	switch {
	case p.atSymbol("*"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &RelationshipQuantifier{Min: 0, Max: -1}, nil
	case p.atSymbol("+"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &RelationshipQuantifier{Min: 1, Max: -1}, nil
	case p.atSymbol("?"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &RelationshipQuantifier{Min: 0, Max: 1}, nil
	case p.atSymbol("{"):
		next, err := p.peek()
		if err != nil {
			return nil, err
		}
		if next.kind != tokInteger {
			return nil, nil // property map, not a quantifier
		}
		if err := p.advance(); err != nil { // consume "{"
			return nil, err
		}
		min, err := strconv.Atoi(p.cur.text)
		if err != nil {
			return nil, newSyntaxError(p.cur.line, p.cur.column, "invalid quantifier bound %q", p.cur.text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		max := min
		if p.atSymbol(",") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.kind == tokInteger {
				max, err = strconv.Atoi(p.cur.text)
				if err != nil {
					return nil, newSyntaxError(p.cur.line, p.cur.column, "invalid quantifier bound %q", p.cur.text)
				}
				if err := p.advance(); err != nil {
					return nil, err
				}
			} else {
				max = -1
			}
		}
		if err := p.expectSymbol("}"); err != nil {
			return nil, err
		}
		return &RelationshipQuantifier{Min: min, Max: max}, nil
	default:
		return nil, nil
	}
}

func (p *Parser) parsePropertyMap() (PropertyMap, error) {
	pm := PropertyMap{Properties: map[string]Expression{}}
	if err := p.expectSymbol("{"); err != nil {
		return pm, err
	}
	if p.atSymbol("}") {
		return pm, p.advance()
	}
	for {
		key, err := p.expectIdent()
		if err != nil {
			return pm, err
		}
		if err := p.expectSymbol(":"); err != nil {
			return pm, err
		}
		val, err := p.parseExpression()
		if err != nil {
			return pm, err
		}
		pm.Properties[key] = val
		if p.atSymbol(",") {
			if err := p.advance(); err != nil {
				return pm, err
			}
			continue
		}
		break
	}
	return pm, p.expectSymbol("}")
}

// --- expressions: precedence climbing ---
//
// or > and > not > comparison > additive > multiplicative > power > unary > primary

func (p *Parser) parseExpression() (Expression, error) {
	return p.parseOr()
}

// parseExpressionWithText also returns a re-rendered source form of the
// expression, used as a RETURN item's implicit column name when no alias
// is given.
func (p *Parser) parseExpressionWithText() (Expression, string, error) {
	expr, err := p.parseOr()
	if err != nil {
		return nil, "", err
	}
	return expr, RenderExpression(expr), nil
}

func (p *Parser) parseOr() (Expression, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("or") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = BinaryOpExpr{Left: left, Op: OpOr, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (Expression, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.atKeyword("and") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = BinaryOpExpr{Left: left, Op: OpAnd, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (Expression, error) {
	if p.atKeyword("not") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return UnaryOpExpr{Op: OpNot, Operand: operand}, nil
	}
	return p.parseComparison()
}

var comparisonOps = map[string]BinaryOperator{
	"=": OpEqual, "<>": OpNotEqual, "<": OpLessThan, "<=": OpLessThanOrEqual,
	">": OpGreaterThan, ">=": OpGreaterThanOrEqual,
}

func (p *Parser) parseComparison() (Expression, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for {
		if p.cur.kind == tokSymbol {
			if op, ok := comparisonOps[p.cur.text]; ok {
				if err := p.advance(); err != nil {
					return nil, err
				}
				right, err := p.parseAdditive()
				if err != nil {
					return nil, err
				}
				left = BinaryOpExpr{Left: left, Op: op, Right: right}
				continue
			}
		}
		if p.atKeyword("in") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = BinaryOpExpr{Left: left, Op: OpIn, Right: right}
			continue
		}
		if p.atKeyword("starts") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectKeyword("with"); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = BinaryOpExpr{Left: left, Op: OpStartsWith, Right: right}
			continue
		}
		if p.atKeyword("ends") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if err := p.expectKeyword("with"); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = BinaryOpExpr{Left: left, Op: OpEndsWith, Right: right}
			continue
		}
		if p.atKeyword("contains") {
			if err := p.advance(); err != nil {
				return nil, err
			}
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			left = BinaryOpExpr{Left: left, Op: OpContains, Right: right}
			continue
		}
		break
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Expression, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.atSymbol("+") || p.atSymbol("-") {
		op := OpAdd
		if p.cur.text == "-" {
			op = OpSubtract
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = BinaryOpExpr{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (Expression, error) {
	left, err := p.parsePower()
	if err != nil {
		return nil, err
	}
	for p.atSymbol("*") || p.atSymbol("/") || p.atSymbol("%") {
		var op BinaryOperator
		switch p.cur.text {
		case "*":
			op = OpMultiply
		case "/":
			op = OpDivide
		case "%":
			op = OpModulo
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePower()
		if err != nil {
			return nil, err
		}
		left = BinaryOpExpr{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *Parser) parsePower() (Expression, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.atSymbol("^") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePower() // right-associative
		if err != nil {
			return nil, err
		}
		return BinaryOpExpr{Left: left, Op: OpPower, Right: right}, nil
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expression, error) {
	if p.atSymbol("-") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryOpExpr{Op: OpNegate, Operand: operand}, nil
	}
	if p.atSymbol("+") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return UnaryOpExpr{Op: OpUnaryPlus, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Expression, error) {
	switch {
	case p.cur.kind == tokString:
		v := p.cur.text
		return p.literalAndAdvance(Literal{Kind: LitString, Str: v})

	case p.cur.kind == tokInteger:
		v, err := strconv.ParseInt(p.cur.text, 10, 64)
		if err != nil {
			return nil, newSyntaxError(p.cur.line, p.cur.column, "invalid integer literal %q", p.cur.text)
		}
		return p.literalAndAdvance(Literal{Kind: LitInteger, Int: v})

	case p.cur.kind == tokFloat:
		v, err := strconv.ParseFloat(p.cur.text, 64)
		if err != nil {
			return nil, newSyntaxError(p.cur.line, p.cur.column, "invalid float literal %q", p.cur.text)
		}
		return p.literalAndAdvance(Literal{Kind: LitFloat, Flt: v})

	case p.atKeyword("true"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return LiteralExpr{Value: Literal{Kind: LitBoolean, Bool: true}}, nil

	case p.atKeyword("false"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return LiteralExpr{Value: Literal{Kind: LitBoolean, Bool: false}}, nil

	case p.atKeyword("null"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return LiteralExpr{Value: Literal{Kind: LitNull}}, nil

	case p.atKeyword("case"):
		return p.parseCase()

	case p.cur.kind == tokParam:
		name := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ParameterExpr{Name: name}, nil

	case p.atSymbol("("):
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return expr, p.expectSymbol(")")

	case p.atSymbol("["):
		return p.parseList()

	case p.atSymbol("{"):
		props, err := p.parsePropertyMap()
		if err != nil {
			return nil, err
		}
		return MapExpr{Entries: props.Properties}, nil

	case p.cur.kind == tokIdent:
		return p.parseIdentExpr()

	default:
		return nil, newSyntaxError(p.cur.line, p.cur.column, "unexpected token %q in expression", p.cur.text)
	}
}

func (p *Parser) literalAndAdvance(lit Literal) (Expression, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	return LiteralExpr{Value: lit}, nil
}

func (p *Parser) parseList() (Expression, error) {
	if err := p.expectSymbol("["); err != nil {
		return nil, err
	}
	var items []Expression
	if !p.atSymbol("]") {
		for {
			item, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			items = append(items, item)
			if p.atSymbol(",") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	return ListExpr{Items: items}, p.expectSymbol("]")
}

func (p *Parser) parseIdentExpr() (Expression, error) {
	name := p.cur.text
	if err := p.advance(); err != nil {
		return nil, err
	}

	if p.atSymbol("(") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		var args []Expression
		if !p.atSymbol(")") {
			for {
				arg, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.atSymbol(",") {
					if err := p.advance(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		return FunctionCallExpr{Name: name, Args: args}, nil
	}

	if p.atSymbol(".") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		prop, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return PropertyAccessExpr{Variable: name, Property: prop}, nil
	}

	return VariableExpr{Name: name}, nil
}

func (p *Parser) parseCase() (Expression, error) {
	if err := p.expectKeyword("case"); err != nil {
		return nil, err
	}
	ce := CaseExpr{}
	if !p.atKeyword("when") {
		input, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		ce.Input = input
	}
	for p.atKeyword("when") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("then"); err != nil {
			return nil, err
		}
		result, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		ce.WhenClauses = append(ce.WhenClauses, WhenClause{Condition: cond, Result: result})
	}
	if p.atKeyword("else") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		elseExpr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		ce.Else = elseExpr
	}
	return ce, p.expectKeyword("end")
}
