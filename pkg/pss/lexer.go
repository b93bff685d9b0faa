package pss

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the kind of a lexical token.
type Kind int

const (
	Identifier Kind = iota
	VariableIdentifier
	StatementIdentifier
	NumberLiteral
	StringLiteral

	Keyword
	KeywordStatement
	KeywordReturn
	KeywordEnd
	KeywordInclude
	KeywordUsing

	LeftParen
	RightParen
	Comma
	Colon
	Equal
	Plus
	Minus

	EOF
)

func (k Kind) String() string {
	switch k {
	case Identifier:
		return "identifier"
	case VariableIdentifier:
		return "variable"
	case StatementIdentifier:
		return "statement"
	case NumberLiteral:
		return "number literal"
	case StringLiteral:
		return "string literal"
	case Keyword:
		return "keyword"
	case KeywordStatement:
		return "STATEMENT"
	case KeywordReturn:
		return "RETURN"
	case KeywordEnd:
		return "END"
	case KeywordInclude:
		return "INCLUDE"
	case KeywordUsing:
		return "USING"
	case LeftParen:
		return "'('"
	case RightParen:
		return "')'"
	case Comma:
		return "','"
	case Colon:
		return "':'"
	case Equal:
		return "'='"
	case Plus:
		return "'+'"
	case Minus:
		return "'-'"
	case EOF:
		return "end of input"
	default:
		return "unknown token"
	}
}

// Tok is a single lexical token. Identifiers are classified against the
// scope that is current when the parser consumes them.
type Tok struct {
	kind Kind
	str  string
	num  float64
	prod *production

	slot *VariableSlot
	def  *StatementDefinition

	position
	// end is the position just past the token
	end position
}

func (tok Tok) String() string {
	switch tok.kind {
	case Identifier, VariableIdentifier, StatementIdentifier:
		return fmt.Sprintf("%s '%s' [%s]", tok.kind, tok.str, tok.position)
	case Keyword:
		return fmt.Sprintf("%s %s [%s]", tok.kind, tok.prod.name, tok.position)
	case StringLiteral:
		return fmt.Sprintf("%s %q [%s]", tok.kind, tok.str, tok.position)
	case NumberLiteral:
		return fmt.Sprintf("%s %s [%s]", tok.kind, nToS(tok.num), tok.position)
	default:
		return fmt.Sprintf("%s [%s]", tok.kind, tok.position)
	}
}

// reader walks one source. Includes stack readers on top of each other.
type reader struct {
	src  *source
	line int
	col  int
}

// lexer produces tokens on demand, so that INCLUDE directives naming a
// variable see the scope as it is at that point of the parse.
type lexer struct {
	// INCLUDE directives are skipped without a session
	session *Session
	stack   []*reader
	last    position
	debug   bool
}

func newLexer(s *Session, src *source) *lexer {
	return &lexer{
		session: s,
		stack:   []*reader{{src: src}},
		last:    position{src.url, 1, 1},
		debug:   s.interp.Debug.Lex,
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

var punctuation = map[byte]Kind{
	'(': LeftParen,
	')': RightParen,
	',': Comma,
	':': Colon,
	'=': Equal,
	'+': Plus,
	'-': Minus,
}

func (l *lexer) next() (Tok, error) {
	tok, err := l.scan()
	if err != nil {
		return tok, err
	}
	if l.debug {
		LogDebug("lex ->", tok.String())
	}
	return tok, nil
}

func (l *lexer) scan() (Tok, error) {
	for {
		if len(l.stack) == 0 {
			return Tok{kind: EOF, position: l.last, end: l.last}, nil
		}

		r := l.stack[len(l.stack)-1]
		if r.line >= len(r.src.lines) {
			l.stack = l.stack[:len(l.stack)-1]
			continue
		}

		line := r.src.lines[r.line]
		if r.col >= len(line) {
			r.line++
			r.col = 0
			continue
		}

		start := r.col
		pos := position{r.src.url, r.line + 1, start + 1}
		c := line[start]

		var tok Tok
		switch {
		case c == ' ' || c == '\t' || c == '\f' || c == '\v':
			r.col++
			continue
		case c == ';':
			r.col = len(line)
			continue
		case c == '"':
			closing := strings.IndexByte(line[start+1:], '"')
			if closing < 0 {
				return Tok{}, errAt(pos, ErrSyntax, "unterminated string literal")
			}
			r.col = start + 1 + closing + 1
			tok = Tok{kind: StringLiteral, str: line[start+1 : start+1+closing]}
		case isDigit(c) || (c == '.' && start+1 < len(line) && isDigit(line[start+1])):
			r.col = scanNumber(line, start)
			n, err := strconv.ParseFloat(line[start:r.col], 64)
			if err != nil {
				return Tok{}, errAt(pos, ErrSyntax, "invalid number %s", line[start:r.col])
			}
			tok = Tok{kind: NumberLiteral, num: n}
		case isIdentStart(c):
			end := start + 1
			for end < len(line) && isIdentChar(line[end]) {
				end++
			}
			r.col = end
			word := line[start:end]
			upper := strings.ToUpper(word)
			if kind, ok := structural[upper]; ok {
				tok = Tok{kind: kind, str: upper}
			} else if prod, ok := keywords[upper]; ok {
				tok = Tok{kind: Keyword, str: upper, prod: prod}
			} else {
				tok = Tok{kind: Identifier, str: word}
			}
		default:
			kind, ok := punctuation[c]
			if !ok {
				return Tok{}, errAt(pos, ErrSyntax, "unexpected character '%c'", c)
			}
			r.col++
			tok = Tok{kind: kind}
		}

		tok.position = pos
		tok.end = position{r.src.url, r.line + 1, r.col + 1}
		l.last = tok.end

		if tok.kind == KeywordInclude && l.session == nil {
			if _, err := l.scan(); err != nil {
				return Tok{}, err
			}
			continue
		}
		if tok.kind == KeywordInclude {
			if err := l.include(tok); err != nil {
				return Tok{}, err
			}
			continue
		}
		return tok, nil
	}
}

func scanNumber(line string, i int) int {
	for i < len(line) && isDigit(line[i]) {
		i++
	}
	if i < len(line) && line[i] == '.' {
		i++
		for i < len(line) && isDigit(line[i]) {
			i++
		}
	}
	if i+1 < len(line) && (line[i] == 'e' || line[i] == 'E') {
		j := i + 1
		if line[j] == '+' || line[j] == '-' {
			j++
		}
		if j < len(line) && isDigit(line[j]) {
			for j < len(line) && isDigit(line[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

// include reads the file name following an INCLUDE keyword and pushes the
// named source. The name is either a string literal or a variable that
// evaluates to text, right away.
func (l *lexer) include(kw Tok) error {
	nameTok, err := l.scan()
	if err != nil {
		return err
	}

	var name string
	switch nameTok.kind {
	case StringLiteral:
		name = nameTok.str
	case Identifier:
		slot, ok := l.session.scope().FindVariable(nameTok.str)
		if !ok {
			return errAt(nameTok.position, ErrSyntax, "unknown variable '%s' in INCLUDE", nameTok.str)
		}
		v, err := l.session.calculateSlot(slot)
		if err != nil {
			return err
		}
		if v.kind != TextValue {
			return typeMismatch(nameTok.position, "text")
		}
		name = v.text
	default:
		return errAt(nameTok.position, ErrSyntax, "INCLUDE expects a file name, found %s", nameTok.kind)
	}

	including := l.stack[len(l.stack)-1].src.url
	url, ok := resolveURL(including, name)
	if !ok {
		return errAt(nameTok.position, ErrInvalidURL, "invalid include path")
	}
	for _, r := range l.stack {
		if r.src.url == url {
			return errAt(kw.position, ErrRecursiveInclusion, "recursive inclusion of %s", url)
		}
	}

	src, err := l.session.sources.load(url)
	if err != nil {
		return errAt(nameTok.position, ErrIncludeNotFound, "cannot include %s: %s", url, err.Error())
	}
	l.stack = append(l.stack, &reader{src: src})
	return nil
}

// Incomplete reports whether code stops inside a statement definition or
// a parenthesis, so that more lines are needed before it can be parsed.
func Incomplete(code string) bool {
	src := newSource("", code)
	l := &lexer{stack: []*reader{{src: src}}}

	parens, statements := 0, 0
	for {
		tok, err := l.scan()
		if err != nil {
			return false
		}
		switch tok.kind {
		case LeftParen:
			parens++
		case RightParen:
			parens--
		case KeywordStatement:
			statements++
		case KeywordEnd:
			statements--
		case EOF:
			return parens > 0 || statements > 0
		}
	}
}
