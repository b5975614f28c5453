package sfv

// Limits caps the size of parsed structures so that a hostile header cannot
// exhaust memory. A zero value disables the corresponding cap.
type Limits struct {
	// MaxInputLength is the maximum total input length in bytes.
	MaxInputLength int

	// MaxStringLength is the maximum decoded length of a string or
	// display string value.
	MaxStringLength int

	// MaxByteSequenceLength is the maximum decoded length of a byte
	// sequence.
	MaxByteSequenceLength int

	// MaxMembers is the maximum number of dictionary or list members.
	MaxMembers int

	// MaxInnerListItems is the maximum number of items in an inner list.
	MaxInnerListItems int

	// MaxParameters is the maximum number of parameters per item or
	// inner list.
	MaxParameters int
}

// DefaultLimits returns caps generous enough for any signature header while
// keeping malicious input bounded.
func DefaultLimits() Limits {
	return Limits{
		MaxInputLength:        65536,
		MaxStringLength:       8192,
		MaxByteSequenceLength: 16384,
		MaxMembers:            128,
		MaxInnerListItems:     128,
		MaxParameters:         64,
	}
}

// NoLimits disables all caps. Only for trusted input.
func NoLimits() Limits {
	return Limits{}
}
