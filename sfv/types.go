package sfv

import "time"

// Token is an RFC 8941 token: an unquoted identifier starting with a letter
// or "*". Tokens are distinct from strings and serialize without quotes.
type Token string

// Decimal is an RFC 8941 decimal carried as a count of thousandths, so the
// grammar's three-fractional-digit precision is exact and round-trips are
// byte stable. Decimal(1500) is "1.5" on the wire.
type Decimal int64

// DecimalFromFloat converts f to a Decimal, rounding half to even at the
// third fractional digit per RFC 8941 Section 4.1.5.
func DecimalFromFloat(f float64) Decimal {
	scaled := f * 1000
	rounded := int64(scaled)

	frac := scaled - float64(rounded)
	switch {
	case frac > 0.5 || (frac == 0.5 && rounded%2 != 0):
		rounded++
	case frac < -0.5 || (frac == -0.5 && rounded%2 != 0):
		rounded--
	}

	return Decimal(rounded)
}

// Float returns the decimal as a float64.
func (d Decimal) Float() float64 {
	return float64(d) / 1000
}

// Date is an RFC 9651 date: a whole number of seconds since the Unix epoch,
// written as "@<seconds>" on the wire.
type Date int64

// DateOf truncates t to seconds and returns it as a Date.
func DateOf(t time.Time) Date {
	return Date(t.Unix())
}

// Time returns the date as a time.Time in UTC.
func (d Date) Time() time.Time {
	return time.Unix(int64(d), 0).UTC()
}

// DisplayString is an RFC 9651 display string: arbitrary UTF-8 text,
// percent-encoded byte-wise on the wire as %"...".
type DisplayString string

// Parameter is a single key=value parameter attached to an Item or
// InnerList. The value is a bare item; parameters never nest.
type Parameter struct {
	Key   string
	Value any
}

// Item is a bare value plus ordered parameters.
type Item struct {
	Value  any
	Params []Parameter
}

// Param returns the value of the named parameter, or nil if absent.
func (i Item) Param(key string) any {
	for _, p := range i.Params {
		if p.Key == key {
			return p.Value
		}
	}

	return nil
}

// InnerList is a parenthesized sequence of Items with its own parameters.
type InnerList struct {
	Items  []Item
	Params []Parameter
}

// Param returns the value of the named parameter, or nil if absent.
func (l InnerList) Param(key string) any {
	for _, p := range l.Params {
		if p.Key == key {
			return p.Value
		}
	}

	return nil
}

// List is an RFC 8941 list. Each member is an Item or an InnerList.
type List struct {
	Members []any
}

// Dictionary is an RFC 8941 dictionary: an ordered map from key to Item or
// InnerList. Keys preserves insertion order; duplicate keys keep their
// first position with the last value winning, per RFC 8941 Section 4.2.2.
type Dictionary struct {
	Keys   []string
	Values map[string]any
}

// NewDictionary returns an empty dictionary ready for Set calls.
func NewDictionary() *Dictionary {
	return &Dictionary{Values: make(map[string]any)}
}

// Get returns the member for key and whether it exists.
func (d *Dictionary) Get(key string) (any, bool) {
	v, ok := d.Values[key]
	return v, ok
}

// Set adds or replaces the member for key, preserving first-insertion order.
func (d *Dictionary) Set(key string, value any) {
	if d.Values == nil {
		d.Values = make(map[string]any)
	}

	if _, exists := d.Values[key]; !exists {
		d.Keys = append(d.Keys, key)
	}

	d.Values[key] = value
}

// Len returns the number of dictionary members.
func (d *Dictionary) Len() int {
	return len(d.Keys)
}
