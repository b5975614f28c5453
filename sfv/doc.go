// Package sfv implements the Structured Field Values grammar of RFC 8941,
// extended with the Date and Display String types of RFC 9651. It is the
// codec behind the Signature, Signature-Input and Content-Digest headers
// used by the httpsig package.
//
// # Value Model
//
// A bare value is one of the Go types bool, int64, Decimal, string, Token,
// []byte, Date or DisplayString. An Item pairs a bare value with ordered
// parameters; an InnerList pairs an ordered sequence of Items with
// parameters of its own. Lists and Dictionaries contain Items and
// InnerLists; Dictionaries preserve insertion order for serialization.
//
// # Parsing
//
// Three top-level entry points mirror the three field types:
//
//	item, err := sfv.ParseItem(`"hello";charset=utf8`)
//	list, err := sfv.ParseList(`sugar, tea, rum`)
//	dict, err := sfv.ParseDictionary(`sig1=:aGk=:, sig2=:eW8=:`)
//
// Parsing is strict: any leftover input, malformed escape or out-of-range
// number fails with a *ParseError and no partial result. The Parse*
// functions apply DefaultLimits; use a Parser directly to customize them.
//
// # Serializing
//
// SerializeItem, SerializeList and SerializeDictionary are the algorithmic
// inverse of the parse functions. For any input already in canonical form,
// Serialize(Parse(x)) == x byte for byte.
package sfv
