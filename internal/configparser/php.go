package configparser

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// PHPArrayParser handles the two shapes of PHP configuration file the
// analyzer ever needs to read: a file whose top-level statement is
// `return [...]` / `return array(...)` (modern ext_conf_template.php,
// Services.php-style config), and the legacy ext_emconf.php assignment
// form `$EM_CONF[$_EXTKEY] = [...]`.
//
// It never executes PHP. The returned literal is statically extracted
// with a minimal recursive-descent parser over the subset of PHP
// array-literal syntax those two forms use (spec.md §9 design note).
type PHPArrayParser struct{}

func NewPHPArrayParser() PHPArrayParser { return PHPArrayParser{} }

func (PHPArrayParser) Supports(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".php")
}

var (
	returnStmtPattern = regexp.MustCompile(`(?s)\breturn\s*(\[|array\s*\()`)
	emConfPattern     = regexp.MustCompile(`(?s)\$EM_CONF\s*\[\s*['"]?\$?_?EXTKEY['"]?\s*\]\s*=\s*(\[|array\s*\()`)
)

func (PHPArrayParser) ParseFile(path string) ParseResult {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Failure(path, "php", []string{err.Error()})
	}
	src := string(raw)

	literal, ok := extractArrayLiteral(src, returnStmtPattern)
	if !ok {
		literal, ok = extractArrayLiteral(src, emConfPattern)
	}
	if !ok {
		return Failure(path, "php", []string{
			"no `return [...]` or `$EM_CONF[$_EXTKEY] = [...]` array literal found",
		})
	}

	toks := phpLex(literal)
	p := &phpParser{toks: toks}
	value, err := p.parseValue()
	if err != nil {
		return Failure(path, "php", []string{err.Error()})
	}
	if !p.atEOF() {
		return Failure(path, "php", []string{"trailing content after array literal"})
	}

	data, ok := value.(map[string]any)
	if !ok {
		return Failure(path, "php", []string{"top-level PHP value is not a string-keyed array"})
	}
	return Success(path, "php", data, nil)
}

// extractArrayLiteral locates the first match of marker (which ends in
// an opening "[" or "array(") and returns the substring spanning from
// that opening bracket to its matching close, by brace-counting over
// both [...] and (...) forms (a legacy `array(...)` can itself contain
// `[...]` sub-arrays and vice versa).
func extractArrayLiteral(src string, marker *regexp.Regexp) (string, bool) {
	loc := marker.FindStringSubmatchIndex(src)
	if loc == nil {
		return "", false
	}
	// loc[2]/loc[3] bound the captured opening token ("[" or "array(").
	openTokenStart, openTokenEnd := loc[2], loc[3]

	// A single depth counter spans both bracket families: valid PHP
	// array literals always nest [...] and (...) in balanced pairs, so
	// counting all opens together and all closes together correctly
	// finds the matching close for whichever family was opened here.
	depth := 0
	i := openTokenEnd - 1
	for i < len(src) {
		switch src[i] {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
			if depth == 0 {
				return src[openTokenStart : i+1], true
			}
		case '\'', '"':
			_, next := lexPHPString(src, i)
			i = next
			continue
		}
		i++
	}
	return "", false
}

// phpParser is a minimal recursive-descent parser over the token
// stream produced by phpLex, covering array literals, scalars, and
// the `array(...)` / `[...]` syntactic alternatives.
type phpParser struct {
	toks []phpToken
	pos  int
}

func (p *phpParser) peek() phpToken { return p.toks[p.pos] }
func (p *phpParser) atEOF() bool    { return p.peek().kind == tokEOF }

func (p *phpParser) advance() phpToken {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *phpParser) parseValue() (any, error) {
	t := p.peek()
	switch t.kind {
	case tokLBracket:
		return p.parseArray(tokLBracket, tokRBracket)
	case tokIdent:
		switch strings.ToLower(t.text) {
		case "array":
			p.advance()
			if p.peek().kind != tokLParen {
				return nil, fmt.Errorf("expected '(' after 'array'")
			}
			return p.parseArray(tokLParen, tokRParen)
		case "true":
			p.advance()
			return true, nil
		case "false":
			p.advance()
			return false, nil
		case "null":
			p.advance()
			return nil, nil
		default:
			// Bareword constant (e.g. PHP_INT_MAX, a class constant).
			// Preserved as its literal source text since it cannot be
			// resolved without executing PHP.
			p.advance()
			return t.text, nil
		}
	case tokString:
		p.advance()
		return t.text, nil
	case tokNumber:
		p.advance()
		return parsePHPNumber(t.text)
	default:
		return nil, fmt.Errorf("unexpected token %q while parsing value", t.text)
	}
}

// parseArray parses an array literal delimited by open/close (either
// "[" … "]" or "(" … ")", the latter following a consumed "array"
// keyword). PHP arrays mix positional and associative entries in the
// same literal; entries without an explicit "key =>" get sequential
// integer keys matching PHP's own semantics. The result is reported as
// a string-keyed map (numeric keys stringified) to satisfy
// ParseResult.Data's uniform shape — callers needing a list can detect
// an all-numeric, densely-indexed key set themselves.
func (p *phpParser) parseArray(open, close phpTokenKind) (map[string]any, error) {
	if p.advance().kind != open {
		return nil, fmt.Errorf("expected opening bracket")
	}

	out := map[string]any{}
	nextIndex := 0

	for {
		if p.peek().kind == close {
			p.advance()
			return out, nil
		}
		if p.atEOF() {
			return nil, fmt.Errorf("unexpected end of input inside array literal")
		}

		first, err := p.parseValue()
		if err != nil {
			return nil, err
		}

		var key string
		var val any
		if p.peek().kind == tokArrow {
			p.advance()
			val, err = p.parseValue()
			if err != nil {
				return nil, err
			}
			key = fmt.Sprintf("%v", first)
		} else {
			key = fmt.Sprintf("%d", nextIndex)
			nextIndex++
			val = first
		}
		out[key] = val

		switch p.peek().kind {
		case tokComma:
			p.advance()
		case close:
			// handled at loop top
		default:
			if p.peek().kind != close {
				return nil, fmt.Errorf("expected ',' or closing bracket, got %q", p.peek().text)
			}
		}
	}
}
