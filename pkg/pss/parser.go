package pss

// parser builds the session's Document one statement at a time. Each
// production ends with a call to its constructor, so declarations are
// visible to the tokens that follow them.
type parser struct {
	s   *Session
	lex *lexer

	peeked  Tok
	hasPeek bool

	debug bool
}

// resolve classifies an identifier against the current scope. Tokens are
// resolved every time they are looked at, since a peeked token may be
// consumed after the scope changed.
func (p *parser) resolve(tok Tok) Tok {
	if tok.kind != Identifier {
		return tok
	}

	sc := p.s.scope()
	if v, ok := sc.FindVariable(tok.str); ok {
		tok.kind = VariableIdentifier
		tok.slot = v
	} else if d, ok := sc.FindStatement(tok.str); ok {
		tok.kind = StatementIdentifier
		tok.def = d
	}
	return tok
}

func (p *parser) peek() (Tok, error) {
	if !p.hasPeek {
		tok, err := p.lex.next()
		if err != nil {
			return Tok{}, err
		}
		p.peeked, p.hasPeek = tok, true
	}
	return p.resolve(p.peeked), nil
}

func (p *parser) next() (Tok, error) {
	tok, err := p.peek()
	p.hasPeek = false
	return tok, err
}

func (p *parser) expect(kind Kind) (Tok, error) {
	tok, err := p.next()
	if err != nil {
		return Tok{}, err
	}
	if tok.kind != kind {
		return Tok{}, errAt(tok.position, ErrSyntax, "expected %s, found %s", kind, tok.kind)
	}
	return tok, nil
}

func (p *parser) node(id NodeID) *Node {
	return p.s.doc.Node(id)
}

// add stores n in the document and runs the constructor of its rule.
func (p *parser) add(n *Node) (NodeID, error) {
	id := p.s.doc.add(n)
	if build, ok := constructors[n.rule]; ok {
		if err := build(p.s, n); err != nil {
			return id, err
		}
	}
	if p.debug {
		LogDebug("parse ->", n.String())
	}
	return id, nil
}

func alreadyDefined(tok Tok) error {
	return errAt(tok.position, ErrAlreadyDefined, "'%s' is already defined", tok.str)
}

func (p *parser) parseDocument() error {
	for {
		tok, err := p.peek()
		if err != nil {
			return err
		}
		if tok.kind == EOF {
			return nil
		}

		if _, err := p.parseStatement(); err != nil {
			return err
		}
	}
}

func (p *parser) parseStatement() (NodeID, error) {
	tok, err := p.peek()
	if err != nil {
		return 0, err
	}

	switch tok.kind {
	case Keyword:
		if !tok.prod.statement {
			return 0, errAt(tok.position, ErrSyntax, "%s is an expression, not a statement", tok.prod.name)
		}
		p.next()
		return p.parseBuiltin(tok)
	case KeywordStatement:
		return p.parseStatementDef()
	case Identifier:
		return p.parseDeclaration()
	case VariableIdentifier, StatementIdentifier:
		return 0, alreadyDefined(tok)
	default:
		return 0, errAt(tok.position, ErrSyntax, "unexpected %s", tok.kind)
	}
}

func (p *parser) parseDeclaration() (NodeID, error) {
	name, err := p.next()
	if err != nil {
		return 0, err
	}
	if _, err := p.expect(Equal); err != nil {
		return 0, err
	}

	expr, err := p.parseExpression()
	if err != nil {
		return 0, err
	}

	return p.add(&Node{
		rule:  RuleDeclaration,
		args:  []NodeID{expr},
		text:  name.str,
		start: name.position,
		end:   p.node(expr).end,
	})
}

func (p *parser) parseStatementDef() (NodeID, error) {
	kw, err := p.next()
	if err != nil {
		return 0, err
	}

	name, err := p.next()
	if err != nil {
		return 0, err
	}
	switch name.kind {
	case Identifier:
	case VariableIdentifier, StatementIdentifier:
		return 0, alreadyDefined(name)
	default:
		return 0, errAt(name.position, ErrSyntax, "expected statement name, found %s", name.kind)
	}

	header := &Node{
		rule:  RuleStatementHeader,
		text:  name.str,
		start: kw.position,
		end:   name.end,
	}

	var params []Tok
	tok, err := p.peek()
	if err != nil {
		return 0, err
	}
	if tok.kind == LeftParen {
		p.next()
		if tok, err = p.peek(); err != nil {
			return 0, err
		}
		if tok.kind == RightParen {
			p.next()
			header.end = tok.end
		}
		for tok.kind != RightParen {
			param, err := p.next()
			if err != nil {
				return 0, err
			}
			switch param.kind {
			case Identifier:
				params = append(params, param)
			case VariableIdentifier, StatementIdentifier:
				return 0, alreadyDefined(param)
			default:
				return 0, errAt(param.position, ErrSyntax, "expected parameter name, found %s", param.kind)
			}

			if tok, err = p.next(); err != nil {
				return 0, err
			}
			switch tok.kind {
			case Comma:
			case RightParen:
				header.end = tok.end
			default:
				return 0, errAt(tok.position, ErrSyntax, "expected ',' or ')', found %s", tok.kind)
			}
		}
	}

	headerID, err := p.add(header)
	if err != nil {
		return 0, err
	}

	outer := p.s.parseScope
	def := &StatementDefinition{
		name:  name.str,
		scope: newScope(outer),
		first: headerID + 1,
	}
	header.def = def
	for _, param := range params {
		if _, ok := def.scope.AddParameter(param.str); !ok {
			return 0, alreadyDefined(param)
		}
	}

	p.s.parseScope = def.scope
	defer func() {
		p.s.parseScope = outer
	}()

	args := []NodeID{headerID}
	for {
		tok, err := p.peek()
		if err != nil {
			return 0, err
		}
		if tok.kind == KeywordReturn {
			p.next()
			break
		}

		switch tok.kind {
		case Identifier:
			decl, err := p.parseDeclaration()
			if err != nil {
				return 0, err
			}
			args = append(args, decl)
		case VariableIdentifier, StatementIdentifier:
			return 0, alreadyDefined(tok)
		default:
			return 0, errAt(tok.position, ErrSyntax, "expected declaration or RETURN in %s, found %s", name.str, tok.kind)
		}
	}

	ret, err := p.parseExpression()
	if err != nil {
		return 0, err
	}
	end, err := p.expect(KeywordEnd)
	if err != nil {
		return 0, err
	}

	def.ret = ret
	p.s.parseScope = outer
	return p.add(&Node{
		rule:  RuleStatementDef,
		args:  append(args, ret),
		def:   def,
		text:  name.str,
		start: kw.position,
		end:   end.end,
	})
}

func (p *parser) parseExpression() (NodeID, error) {
	tok, err := p.next()
	if err != nil {
		return 0, err
	}

	switch tok.kind {
	case Plus, Minus:
		num, err := p.expect(NumberLiteral)
		if err != nil {
			return 0, err
		}
		n := num.num
		if tok.kind == Minus {
			n = -n
		}
		return p.add(&Node{rule: RuleNumber, num: n, start: tok.position, end: num.end})
	case NumberLiteral:
		return p.add(&Node{rule: RuleNumber, num: tok.num, start: tok.position, end: tok.end})
	case StringLiteral:
		return p.add(&Node{rule: RuleString, text: tok.str, start: tok.position, end: tok.end})
	case VariableIdentifier:
		return p.add(&Node{rule: RuleVariable, slot: tok.slot, text: tok.str, start: tok.position, end: tok.end})
	case StatementIdentifier:
		return p.parseCall(tok)
	case Keyword:
		if tok.prod.statement {
			return 0, errAt(tok.position, ErrSyntax, "%s is a statement, not an expression", tok.prod.name)
		}
		return p.parseBuiltin(tok)
	case Identifier:
		return 0, errAt(tok.position, ErrSyntax, "unknown name '%s'", tok.str)
	default:
		return 0, errAt(tok.position, ErrSyntax, "unexpected %s in expression", tok.kind)
	}
}

func (p *parser) parseCall(name Tok) (NodeID, error) {
	n := &Node{
		rule:  RuleCall,
		def:   name.def,
		text:  name.str,
		start: name.position,
		end:   name.end,
	}

	tok, err := p.peek()
	if err != nil {
		return 0, err
	}
	if tok.kind == LeftParen {
		p.next()
		if n.args, _, n.end, err = p.parseArgs(nil); err != nil {
			return 0, err
		}
	}
	return p.add(n)
}

func (p *parser) parseBuiltin(kw Tok) (NodeID, error) {
	if _, err := p.expect(LeftParen); err != nil {
		return 0, err
	}

	args, using, end, err := p.parseArgs(kw.prod)
	if err != nil {
		return 0, err
	}
	argPos := func(i int) position {
		return p.node(args[i]).start
	}
	if err := kw.prod.checkArity(kw.position, args, argPos); err != nil {
		return 0, err
	}

	return p.add(&Node{
		rule:  kw.prod.rule,
		args:  args,
		using: using,
		start: kw.position,
		end:   end,
	})
}

// parseArgs parses an argument list after its opening parenthesis, up to
// and including the closing one.
func (p *parser) parseArgs(prod *production) (args []NodeID, using NodeID, end position, err error) {
	tok, err := p.peek()
	if err != nil {
		return
	}
	if tok.kind == RightParen {
		p.next()
		return nil, 0, tok.end, nil
	}

	for {
		if tok, err = p.peek(); err != nil {
			return
		}
		if tok.kind == KeywordUsing {
			if prod == nil || !prod.using {
				err = errAt(tok.position, ErrSyntax, "USING is not allowed here")
				return
			}
			p.next()
			if using, err = p.parseExpression(); err != nil {
				return
			}
			if tok, err = p.expect(RightParen); err != nil {
				return
			}
			return args, using, tok.end, nil
		}

		var arg NodeID
		if arg, err = p.parseExpression(); err != nil {
			return
		}
		if prod != nil && prod.ranges {
			if tok, err = p.peek(); err != nil {
				return
			}
			if tok.kind == Colon {
				p.next()
				var hi NodeID
				if hi, err = p.parseExpression(); err != nil {
					return
				}
				if arg, err = p.add(&Node{
					rule:  RuleRange,
					args:  []NodeID{arg, hi},
					start: p.node(arg).start,
					end:   p.node(hi).end,
				}); err != nil {
					return
				}
			}
		}
		args = append(args, arg)

		if tok, err = p.next(); err != nil {
			return
		}
		switch tok.kind {
		case Comma:
		case RightParen:
			return args, using, tok.end, nil
		default:
			err = errAt(tok.position, ErrSyntax, "expected ',' or ')', found %s", tok.kind)
			return
		}
	}
}
