package sfv

import "fmt"

// ParseError describes where and why parsing failed. No partial result
// accompanies a ParseError.
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sfv: parse error at offset %d: %s", e.Offset, e.Message)
}

// Parser is a byte scanner over a single structured field value. It keeps
// the input immutable and advances an offset, which makes sub-parsers
// zero-copy and errors positionable.
type Parser struct {
	data   string
	pos    int
	limits Limits
}

// NewParser returns a parser over data with the given limits.
func NewParser(data string, limits Limits) *Parser {
	return &Parser{data: data, limits: limits}
}

// ParseItem parses a complete item field value using DefaultLimits.
func ParseItem(data string) (Item, error) {
	return NewParser(data, DefaultLimits()).ParseItem()
}

// ParseList parses a complete list field value using DefaultLimits.
func ParseList(data string) (*List, error) {
	return NewParser(data, DefaultLimits()).ParseList()
}

// ParseDictionary parses a complete dictionary field value using
// DefaultLimits.
func ParseDictionary(data string) (*Dictionary, error) {
	return NewParser(data, DefaultLimits()).ParseDictionary()
}

// ParseItem parses the input as a single item with optional parameters.
// Trailing input after the item is an error.
func (p *Parser) ParseItem() (Item, error) {
	if err := p.checkInputLength(); err != nil {
		return Item{}, err
	}

	p.skipSP()

	item, err := p.parseItem()
	if err != nil {
		return Item{}, err
	}

	if err := p.expectEnd(); err != nil {
		return Item{}, err
	}

	return item, nil
}

// ParseList parses the input as a comma-separated list of items and inner
// lists. An empty input is a valid empty list.
func (p *Parser) ParseList() (*List, error) {
	if err := p.checkInputLength(); err != nil {
		return nil, err
	}

	list := &List{}

	p.skipSP()

	for !p.eof() {
		if p.limits.MaxMembers > 0 && len(list.Members) >= p.limits.MaxMembers {
			return nil, p.errorf("list exceeds %d members", p.limits.MaxMembers)
		}

		member, err := p.parseMember()
		if err != nil {
			return nil, err
		}

		list.Members = append(list.Members, member)

		p.skipOWS()
		if p.eof() {
			break
		}

		if !p.consume(',') {
			return nil, p.errorf("expected ',' between list members")
		}

		p.skipOWS()
		if p.eof() {
			return nil, p.errorf("trailing comma in list")
		}
	}

	return list, nil
}

// ParseDictionary parses the input as a comma-separated dictionary. A bare
// key is a boolean true item; duplicate keys keep their first position with
// the last value winning. An empty input is a valid empty dictionary.
func (p *Parser) ParseDictionary() (*Dictionary, error) {
	if err := p.checkInputLength(); err != nil {
		return nil, err
	}

	dict := NewDictionary()

	p.skipSP()

	for !p.eof() {
		if p.limits.MaxMembers > 0 && dict.Len() >= p.limits.MaxMembers {
			return nil, p.errorf("dictionary exceeds %d members", p.limits.MaxMembers)
		}

		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}

		var member any
		if p.consume('=') {
			member, err = p.parseMember()
			if err != nil {
				return nil, err
			}
		} else {
			// Bare key: boolean true, possibly with parameters.
			params, err := p.parseParameters()
			if err != nil {
				return nil, err
			}

			member = Item{Value: true, Params: params}
		}

		dict.Set(key, member)

		p.skipOWS()
		if p.eof() {
			break
		}

		if !p.consume(',') {
			return nil, p.errorf("expected ',' between dictionary members")
		}

		p.skipOWS()
		if p.eof() {
			return nil, p.errorf("trailing comma in dictionary")
		}
	}

	return dict, nil
}

// parseMember parses a list or dictionary member: an inner list when the
// next byte is '(', otherwise an item.
func (p *Parser) parseMember() (any, error) {
	if p.peek() == '(' {
		return p.parseInnerList()
	}

	return p.parseItem()
}

// parseItem parses a bare item followed by its parameters.
func (p *Parser) parseItem() (Item, error) {
	value, err := p.parseBareItem()
	if err != nil {
		return Item{}, err
	}

	params, err := p.parseParameters()
	if err != nil {
		return Item{}, err
	}

	return Item{Value: value, Params: params}, nil
}

// parseInnerList parses a parenthesized, space-separated sequence of items
// with trailing parameters.
func (p *Parser) parseInnerList() (InnerList, error) {
	if !p.consume('(') {
		return InnerList{}, p.errorf("expected '(' at start of inner list")
	}

	var inner InnerList

	for {
		p.skipSP()

		if p.consume(')') {
			break
		}

		if p.eof() {
			return InnerList{}, p.errorf("unterminated inner list")
		}

		if p.limits.MaxInnerListItems > 0 && len(inner.Items) >= p.limits.MaxInnerListItems {
			return InnerList{}, p.errorf("inner list exceeds %d items", p.limits.MaxInnerListItems)
		}

		item, err := p.parseItem()
		if err != nil {
			return InnerList{}, err
		}

		inner.Items = append(inner.Items, item)

		if c := p.peek(); c != ' ' && c != ')' {
			return InnerList{}, p.errorf("expected space or ')' after inner list item")
		}
	}

	params, err := p.parseParameters()
	if err != nil {
		return InnerList{}, err
	}

	inner.Params = params

	return inner, nil
}

// parseParameters parses zero or more ";key[=value]" parameters. A key
// without a value carries boolean true. Duplicate keys keep their first
// position with the last value winning.
func (p *Parser) parseParameters() ([]Parameter, error) {
	var params []Parameter

	for p.consume(';') {
		p.skipSP()

		if p.limits.MaxParameters > 0 && len(params) >= p.limits.MaxParameters {
			return nil, p.errorf("more than %d parameters", p.limits.MaxParameters)
		}

		key, err := p.parseKey()
		if err != nil {
			return nil, err
		}

		value := any(true)
		if p.consume('=') {
			value, err = p.parseBareItem()
			if err != nil {
				return nil, err
			}
		}

		replaced := false
		for i := range params {
			if params[i].Key == key {
				params[i].Value = value
				replaced = true

				break
			}
		}

		if !replaced {
			params = append(params, Parameter{Key: key, Value: value})
		}
	}

	return params, nil
}

// parseKey parses a dictionary or parameter key: lowercase letter or '*'
// first, then lowercase letters, digits, '_', '-', '.' or '*'.
func (p *Parser) parseKey() (string, error) {
	start := p.pos

	c := p.peek()
	if !isLowerAlpha(c) && c != '*' {
		return "", p.errorf("key must start with lowercase letter or '*'")
	}
	p.pos++

	for !p.eof() && isKeyChar(p.data[p.pos]) {
		p.pos++
	}

	return p.data[start:p.pos], nil
}

// scanner primitives

func (p *Parser) peek() byte {
	if p.pos >= len(p.data) {
		return 0
	}

	return p.data[p.pos]
}

func (p *Parser) consume(expected byte) bool {
	if p.peek() == expected {
		p.pos++
		return true
	}

	return false
}

func (p *Parser) eof() bool {
	return p.pos >= len(p.data)
}

// skipSP skips space characters only, per the inner-list and field-prefix
// rules of RFC 8941 Section 4.2.
func (p *Parser) skipSP() {
	for p.pos < len(p.data) && p.data[p.pos] == ' ' {
		p.pos++
	}
}

// skipOWS skips optional whitespace (space or horizontal tab) between
// top-level members.
func (p *Parser) skipOWS() {
	for p.pos < len(p.data) {
		if c := p.data[p.pos]; c != ' ' && c != '\t' {
			break
		}

		p.pos++
	}
}

// expectEnd skips trailing spaces and fails if input remains.
func (p *Parser) expectEnd() error {
	p.skipSP()

	if !p.eof() {
		return p.errorf("unexpected trailing input")
	}

	return nil
}

func (p *Parser) checkInputLength() error {
	if p.limits.MaxInputLength > 0 && len(p.data) > p.limits.MaxInputLength {
		return p.errorf("input length %d exceeds limit %d", len(p.data), p.limits.MaxInputLength)
	}

	return nil
}

func (p *Parser) errorf(format string, args ...any) *ParseError {
	return &ParseError{Offset: p.pos, Message: fmt.Sprintf(format, args...)}
}

// character classes

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isLowerAlpha(c byte) bool {
	return c >= 'a' && c <= 'z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isKeyChar(c byte) bool {
	return isLowerAlpha(c) || isDigit(c) || c == '_' || c == '-' || c == '.' || c == '*'
}

// isTokenChar reports whether c may appear after the first character of a
// token: tchar plus ':' and '/' per RFC 8941 Section 3.3.4.
func isTokenChar(c byte) bool {
	if isAlpha(c) || isDigit(c) {
		return true
	}

	switch c {
	case ':', '/', '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}

	return false
}

func isBase64Char(c byte) bool {
	return isAlpha(c) || isDigit(c) || c == '+' || c == '/' || c == '='
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f')
}
