package templates

import (
	"fmt"
	"strings"
)

const (
	markerOpen  = "${"
	markerClose = '}'
)

type exprKind int

const (
	exprVariable exprKind = iota
	exprCall
	exprString
	exprNumber
)

// expr is a parsed marker body
type expr struct {
	kind  exprKind
	name  string  // variable or function name
	value string  // literal value
	args  []*expr // call arguments
}

// segment is either literal text or a marker
type segment struct {
	literal string
	raw     string // original marker text including ${ and }
	expr    *expr
}

// HasTemplate reports whether s contains a template marker
func HasTemplate(s string) bool {
	return strings.Contains(s, markerOpen)
}

// parseTemplate splits s into literal and marker segments
func parseTemplate(s string) ([]segment, error) {
	var segments []segment
	rest := s
	offset := 0

	for {
		start := strings.Index(rest, markerOpen)
		if start < 0 {
			if rest != "" {
				segments = append(segments, segment{literal: rest})
			}
			return segments, nil
		}
		if start > 0 {
			segments = append(segments, segment{literal: rest[:start]})
		}

		bodyStart := start + len(markerOpen)
		end, err := findMarkerEnd(rest, bodyStart)
		if err != nil {
			return nil, fmt.Errorf("%w at offset %d", err, offset+start)
		}

		body := rest[bodyStart:end]
		e, err := parseExpr(body)
		if err != nil {
			return nil, fmt.Errorf("%w in %q", err, rest[start:end+1])
		}
		segments = append(segments, segment{raw: rest[start : end+1], expr: e})

		offset += end + 1
		rest = rest[end+1:]
	}
}

// findMarkerEnd returns the index of the } closing the marker whose body
// starts at from. Braces inside quoted strings are ignored.
func findMarkerEnd(s string, from int) (int, error) {
	var quote byte
	for i := from; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == markerClose:
			return i, nil
		}
	}
	return 0, ErrUnterminatedMarker
}

// parser is a recursive descent parser for marker bodies
type parser struct {
	input string
	pos   int
}

func parseExpr(body string) (*expr, error) {
	p := &parser{input: body}
	p.skipSpace()
	if p.eof() {
		return nil, ErrEmptyMarker
	}
	e, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, p.input[p.pos:])
	}
	return e, nil
}

func (p *parser) eof() bool { return p.pos >= len(p.input) }

func (p *parser) peek() byte { return p.input[p.pos] }

func (p *parser) skipSpace() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t') {
		p.pos++
	}
}

func (p *parser) parseValue() (*expr, error) {
	c := p.peek()
	switch {
	case c == '\'' || c == '"':
		return p.parseString()
	case c == '-' || isDigit(c):
		return p.parseNumber()
	case isIdentStart(c):
		return p.parseIdentOrCall()
	default:
		return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, string(c))
	}
}

func (p *parser) parseString() (*expr, error) {
	quote := p.peek()
	p.pos++
	var sb strings.Builder
	for !p.eof() {
		c := p.peek()
		p.pos++
		if c == '\\' && !p.eof() {
			sb.WriteByte(p.peek())
			p.pos++
			continue
		}
		if c == quote {
			return &expr{kind: exprString, value: sb.String()}, nil
		}
		sb.WriteByte(c)
	}
	return nil, fmt.Errorf("%w: unterminated string", ErrSyntax)
}

func (p *parser) parseNumber() (*expr, error) {
	start := p.pos
	if p.peek() == '-' {
		p.pos++
	}
	digits := 0
	for !p.eof() && (isDigit(p.peek()) || p.peek() == '.') {
		p.pos++
		digits++
	}
	if digits == 0 {
		return nil, fmt.Errorf("%w: malformed number", ErrSyntax)
	}
	return &expr{kind: exprNumber, value: p.input[start:p.pos]}, nil
}

func (p *parser) parseIdentOrCall() (*expr, error) {
	start := p.pos
	for !p.eof() && isIdentPart(p.peek()) {
		p.pos++
	}
	name := p.input[start:p.pos]

	p.skipSpace()
	if p.eof() || p.peek() != '(' {
		return &expr{kind: exprVariable, name: name}, nil
	}

	p.pos++ // (
	call := &expr{kind: exprCall, name: name}
	p.skipSpace()
	if !p.eof() && p.peek() == ')' {
		p.pos++
		return call, nil
	}

	for {
		p.skipSpace()
		if p.eof() {
			return nil, fmt.Errorf("%w: unclosed call to %s", ErrSyntax, name)
		}
		arg, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)

		p.skipSpace()
		if p.eof() {
			return nil, fmt.Errorf("%w: unclosed call to %s", ErrSyntax, name)
		}
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return call, nil
		default:
			return nil, fmt.Errorf("%w: expected , or ) in call to %s", ErrSyntax, name)
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '.' || c == '-'
}
