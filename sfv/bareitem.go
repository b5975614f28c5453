package sfv

import (
	"encoding/base64"
	"strconv"
	"unicode/utf8"
)

// Grammar bounds from RFC 8941 Section 3.3.1 and 3.3.2.
const (
	maxIntegerDigits     = 15
	maxDecimalIntDigits  = 12
	maxDecimalFracDigits = 3
)

// parseBareItem dispatches on the first byte to the bare item type per
// RFC 8941 Section 4.2.3.1 and the RFC 9651 extensions.
func (p *Parser) parseBareItem() (any, error) {
	if p.eof() {
		return nil, p.errorf("expected bare item, got end of input")
	}

	switch c := p.peek(); {
	case c == '?':
		return p.parseBoolean()

	case c == '-' || isDigit(c):
		return p.parseNumber()

	case c == '"':
		return p.parseString()

	case c == ':':
		return p.parseByteSequence()

	case c == '@':
		return p.parseDate()

	case c == '%':
		return p.parseDisplayString()

	case c == '*' || isAlpha(c):
		return p.parseToken()

	default:
		return nil, p.errorf("invalid bare item start character %q", c)
	}
}

// parseBoolean parses "?0" or "?1".
func (p *Parser) parseBoolean() (bool, error) {
	if !p.consume('?') {
		return false, p.errorf("expected '?' at start of boolean")
	}

	switch {
	case p.consume('1'):
		return true, nil
	case p.consume('0'):
		return false, nil
	default:
		return false, p.errorf("expected '0' or '1' after '?'")
	}
}

// parseNumber parses an integer or, when a '.' appears, a decimal. The
// digit budgets differ: 15 for integers, 12+3 for decimals.
func (p *Parser) parseNumber() (any, error) {
	start := p.pos
	negative := p.consume('-')

	intStart := p.pos
	for !p.eof() && isDigit(p.data[p.pos]) {
		p.pos++
	}

	intDigits := p.pos - intStart
	if intDigits == 0 {
		return nil, p.errorf("expected digit in number")
	}

	if p.peek() != '.' {
		if intDigits > maxIntegerDigits {
			return nil, p.errorf("integer exceeds %d digits", maxIntegerDigits)
		}

		value, err := strconv.ParseInt(p.data[start:p.pos], 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer: %v", err)
		}

		return value, nil
	}

	if intDigits > maxDecimalIntDigits {
		return nil, p.errorf("decimal integer part exceeds %d digits", maxDecimalIntDigits)
	}
	p.pos++ // consume '.'

	fracStart := p.pos
	for !p.eof() && isDigit(p.data[p.pos]) {
		p.pos++
	}

	fracDigits := p.pos - fracStart
	if fracDigits == 0 {
		return nil, p.errorf("decimal has no fractional digits")
	}

	if fracDigits > maxDecimalFracDigits {
		return nil, p.errorf("decimal fractional part exceeds %d digits", maxDecimalFracDigits)
	}

	intPart, err := strconv.ParseInt(p.data[intStart:intStart+intDigits], 10, 64)
	if err != nil {
		return nil, p.errorf("invalid decimal: %v", err)
	}

	frac := p.data[fracStart:p.pos]
	for len(frac) < maxDecimalFracDigits {
		frac += "0"
	}

	fracPart, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return nil, p.errorf("invalid decimal: %v", err)
	}

	thousandths := intPart*1000 + fracPart
	if negative {
		thousandths = -thousandths
	}

	return Decimal(thousandths), nil
}

// parseString parses a double-quoted string. Only printable ASCII is
// allowed and only '\"' and '\\' escapes exist.
func (p *Parser) parseString() (string, error) {
	if !p.consume('"') {
		return "", p.errorf("expected '\"' at start of string")
	}

	var buf []byte
	for {
		if p.eof() {
			return "", p.errorf("unterminated string")
		}

		c := p.data[p.pos]
		p.pos++

		switch {
		case c == '"':
			return string(buf), nil

		case c == '\\':
			if p.eof() {
				return "", p.errorf("unterminated escape in string")
			}

			escaped := p.data[p.pos]
			p.pos++

			if escaped != '"' && escaped != '\\' {
				return "", p.errorf("invalid escape '\\%c' in string", escaped)
			}

			buf = append(buf, escaped)

		case c < 0x20 || c > 0x7e:
			return "", p.errorf("non-printable byte 0x%02x in string", c)

		default:
			buf = append(buf, c)
		}

		if p.limits.MaxStringLength > 0 && len(buf) > p.limits.MaxStringLength {
			return "", p.errorf("string exceeds %d bytes", p.limits.MaxStringLength)
		}
	}
}

// parseToken parses an unquoted token.
func (p *Parser) parseToken() (Token, error) {
	start := p.pos

	c := p.peek()
	if !isAlpha(c) && c != '*' {
		return "", p.errorf("token must start with letter or '*'")
	}
	p.pos++

	for !p.eof() && isTokenChar(p.data[p.pos]) {
		p.pos++
	}

	return Token(p.data[start:p.pos]), nil
}

// parseByteSequence parses ":base64:". Missing padding is forgiven, per
// the RFC 8941 Section 4.2.7 recommendation.
func (p *Parser) parseByteSequence() ([]byte, error) {
	if !p.consume(':') {
		return nil, p.errorf("expected ':' at start of byte sequence")
	}

	start := p.pos
	for !p.eof() && p.data[p.pos] != ':' {
		if !isBase64Char(p.data[p.pos]) {
			return nil, p.errorf("invalid byte sequence character %q", p.data[p.pos])
		}

		p.pos++
	}

	if !p.consume(':') {
		return nil, p.errorf("unterminated byte sequence")
	}

	encoded := p.data[start : p.pos-1]

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, p.errorf("invalid base64 in byte sequence: %v", err)
		}
	}

	if p.limits.MaxByteSequenceLength > 0 && len(decoded) > p.limits.MaxByteSequenceLength {
		return nil, p.errorf("byte sequence exceeds %d bytes", p.limits.MaxByteSequenceLength)
	}

	return decoded, nil
}

// parseDate parses "@<integer>" as Unix seconds. Dates share the integer
// digit budget and never carry a fractional part.
func (p *Parser) parseDate() (Date, error) {
	if !p.consume('@') {
		return 0, p.errorf("expected '@' at start of date")
	}

	value, err := p.parseNumber()
	if err != nil {
		return 0, err
	}

	seconds, ok := value.(int64)
	if !ok {
		return 0, p.errorf("date must be an integer number of seconds")
	}

	return Date(seconds), nil
}

// parseDisplayString parses %"..." with byte-wise lowercase percent
// encoding. The decoded bytes must form valid UTF-8.
func (p *Parser) parseDisplayString() (DisplayString, error) {
	if !p.consume('%') {
		return "", p.errorf("expected '%%' at start of display string")
	}

	if !p.consume('"') {
		return "", p.errorf("expected '\"' after '%%' in display string")
	}

	var buf []byte
	for {
		if p.eof() {
			return "", p.errorf("unterminated display string")
		}

		c := p.data[p.pos]
		p.pos++

		switch {
		case c == '"':
			if !utf8.Valid(buf) {
				return "", p.errorf("display string is not valid UTF-8")
			}

			return DisplayString(buf), nil

		case c == '%':
			if p.pos+1 >= len(p.data) {
				return "", p.errorf("truncated percent escape in display string")
			}

			hi, lo := p.data[p.pos], p.data[p.pos+1]
			if !isHexDigit(hi) || !isHexDigit(lo) {
				return "", p.errorf("percent escape requires two lowercase hex digits")
			}

			p.pos += 2
			buf = append(buf, hexValue(hi)<<4|hexValue(lo))

		case c < 0x20 || c > 0x7e:
			return "", p.errorf("non-printable byte 0x%02x in display string", c)

		default:
			buf = append(buf, c)
		}

		if p.limits.MaxStringLength > 0 && len(buf) > p.limits.MaxStringLength {
			return "", p.errorf("display string exceeds %d bytes", p.limits.MaxStringLength)
		}
	}
}

func hexValue(c byte) byte {
	if c >= 'a' {
		return c - 'a' + 10
	}

	return c - '0'
}
