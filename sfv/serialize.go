package sfv

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// SerializeItem writes an item in canonical form: the bare value followed
// by its parameters.
func SerializeItem(item Item) (string, error) {
	var sb strings.Builder

	if err := writeItem(&sb, item); err != nil {
		return "", err
	}

	return sb.String(), nil
}

// SerializeInnerList writes an inner list in canonical form:
// "(item item ...)" followed by its parameters.
func SerializeInnerList(inner InnerList) (string, error) {
	var sb strings.Builder

	if err := writeInnerList(&sb, inner); err != nil {
		return "", err
	}

	return sb.String(), nil
}

// SerializeList writes a list in canonical form, members joined by ", ".
// An empty list serializes to the empty string.
func SerializeList(list *List) (string, error) {
	var sb strings.Builder

	for i, member := range list.Members {
		if i > 0 {
			sb.WriteString(", ")
		}

		if err := writeMember(&sb, member); err != nil {
			return "", err
		}
	}

	return sb.String(), nil
}

// SerializeDictionary writes a dictionary in canonical form. Boolean true
// members serialize as bare keys (with their parameters, if any). An empty
// dictionary serializes to the empty string.
func SerializeDictionary(dict *Dictionary) (string, error) {
	var sb strings.Builder

	for i, key := range dict.Keys {
		if i > 0 {
			sb.WriteString(", ")
		}

		if err := writeKey(&sb, key); err != nil {
			return "", err
		}

		member := dict.Values[key]

		// Boolean true items serialize as the bare key plus parameters.
		if item, ok := member.(Item); ok {
			if b, isBool := item.Value.(bool); isBool && b {
				if err := writeParameters(&sb, item.Params); err != nil {
					return "", err
				}

				continue
			}
		}

		sb.WriteByte('=')

		if err := writeMember(&sb, member); err != nil {
			return "", err
		}
	}

	return sb.String(), nil
}

func writeMember(sb *strings.Builder, member any) error {
	switch v := member.(type) {
	case Item:
		return writeItem(sb, v)
	case InnerList:
		return writeInnerList(sb, v)
	default:
		return fmt.Errorf("sfv: member must be Item or InnerList, got %T", member)
	}
}

func writeItem(sb *strings.Builder, item Item) error {
	if err := writeBareItem(sb, item.Value); err != nil {
		return err
	}

	return writeParameters(sb, item.Params)
}

func writeInnerList(sb *strings.Builder, inner InnerList) error {
	sb.WriteByte('(')

	for i, item := range inner.Items {
		if i > 0 {
			sb.WriteByte(' ')
		}

		if err := writeItem(sb, item); err != nil {
			return err
		}
	}

	sb.WriteByte(')')

	return writeParameters(sb, inner.Params)
}

func writeParameters(sb *strings.Builder, params []Parameter) error {
	for _, param := range params {
		sb.WriteByte(';')

		if err := writeKey(sb, param.Key); err != nil {
			return err
		}

		// Boolean true parameters serialize as the bare key.
		if b, ok := param.Value.(bool); ok && b {
			continue
		}

		sb.WriteByte('=')

		if err := writeBareItem(sb, param.Value); err != nil {
			return err
		}
	}

	return nil
}

// writeBareItem dispatches over the supported bare value types. The type
// switch is exhaustive over the grammar; an unknown Go type is an error,
// not a silent coercion.
func writeBareItem(sb *strings.Builder, value any) error {
	switch v := value.(type) {
	case bool:
		if v {
			sb.WriteString("?1")
		} else {
			sb.WriteString("?0")
		}

		return nil

	case int64:
		return writeInteger(sb, v)

	case int:
		return writeInteger(sb, int64(v))

	case Decimal:
		return writeDecimal(sb, v)

	case string:
		return writeString(sb, v)

	case Token:
		return writeToken(sb, v)

	case []byte:
		sb.WriteByte(':')
		sb.WriteString(base64.StdEncoding.EncodeToString(v))
		sb.WriteByte(':')

		return nil

	case Date:
		sb.WriteByte('@')

		return writeInteger(sb, int64(v))

	case DisplayString:
		return writeDisplayString(sb, v)

	default:
		return fmt.Errorf("sfv: unsupported bare item type %T", value)
	}
}

func writeInteger(sb *strings.Builder, v int64) error {
	if v > 999_999_999_999_999 || v < -999_999_999_999_999 {
		return fmt.Errorf("sfv: integer %d exceeds 15 digits", v)
	}

	sb.WriteString(strconv.FormatInt(v, 10))

	return nil
}

// writeDecimal serializes a Decimal, trimming trailing fractional zeros but
// always keeping at least one fractional digit. A zero value serializes as
// "0.0" with no sign, so -0 cannot appear on the wire.
func writeDecimal(sb *strings.Builder, d Decimal) error {
	thousandths := int64(d)

	if thousandths < 0 {
		sb.WriteByte('-')
		thousandths = -thousandths
	}

	intPart := thousandths / 1000
	if intPart > 999_999_999_999 {
		return fmt.Errorf("sfv: decimal integer part of %v exceeds 12 digits", d)
	}

	frac := fmt.Sprintf("%03d", thousandths%1000)
	for len(frac) > 1 && frac[len(frac)-1] == '0' {
		frac = frac[:len(frac)-1]
	}

	sb.WriteString(strconv.FormatInt(intPart, 10))
	sb.WriteByte('.')
	sb.WriteString(frac)

	return nil
}

func writeString(sb *strings.Builder, s string) error {
	sb.WriteByte('"')

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c > 0x7e {
			return fmt.Errorf("sfv: string contains non-printable byte 0x%02x", c)
		}

		if c == '"' || c == '\\' {
			sb.WriteByte('\\')
		}

		sb.WriteByte(c)
	}

	sb.WriteByte('"')

	return nil
}

func writeToken(sb *strings.Builder, t Token) error {
	if !IsValidToken(string(t)) {
		return fmt.Errorf("sfv: invalid token %q", string(t))
	}

	sb.WriteString(string(t))

	return nil
}

func writeDisplayString(sb *strings.Builder, ds DisplayString) error {
	if !utf8.ValidString(string(ds)) {
		return fmt.Errorf("sfv: display string is not valid UTF-8")
	}

	sb.WriteString(`%"`)

	for i := 0; i < len(ds); i++ {
		c := ds[i]
		if c == '%' || c == '"' || c < 0x20 || c > 0x7e {
			fmt.Fprintf(sb, "%%%02x", c)
		} else {
			sb.WriteByte(c)
		}
	}

	sb.WriteByte('"')

	return nil
}

func writeKey(sb *strings.Builder, key string) error {
	if !isValidKey(key) {
		return fmt.Errorf("sfv: invalid key %q", key)
	}

	sb.WriteString(key)

	return nil
}

// IsValidToken reports whether s satisfies the token grammar: a letter or
// '*' first, then token characters.
func IsValidToken(s string) bool {
	if s == "" {
		return false
	}

	if !isAlpha(s[0]) && s[0] != '*' {
		return false
	}

	for i := 1; i < len(s); i++ {
		if !isTokenChar(s[i]) {
			return false
		}
	}

	return true
}

func isValidKey(s string) bool {
	if s == "" {
		return false
	}

	if !isLowerAlpha(s[0]) && s[0] != '*' {
		return false
	}

	for i := 1; i < len(s); i++ {
		if !isKeyChar(s[i]) {
			return false
		}
	}

	return true
}
