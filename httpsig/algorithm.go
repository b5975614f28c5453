package httpsig

// Algorithm identifies an HTTP message signature algorithm as registered
// in the HTTP Signature Algorithms Registry.
type Algorithm string

const (
	// AlgorithmECDSAP256SHA256 is ECDSA over curve P-256 with SHA-256.
	// Signatures are the fixed-length IEEE P1363 concatenation r||s
	// (64 bytes), not ASN.1 DER.
	AlgorithmECDSAP256SHA256 Algorithm = "ecdsa-p256-sha256"

	// AlgorithmHMACSHA256 is HMAC using SHA-256.
	AlgorithmHMACSHA256 Algorithm = "hmac-sha256"
)

// String returns the registered identifier for the algorithm.
func (a Algorithm) String() string {
	return string(a)
}

// Signer creates signatures over canonical message bytes.
type Signer interface {
	// Sign produces a signature over the given message bytes.
	Sign(message []byte) ([]byte, error)

	// Algorithm returns the algorithm identifier for this signer.
	Algorithm() Algorithm

	// KeyID returns the key identifier included in signature parameters.
	KeyID() string
}

// Verifier validates signatures over canonical message bytes.
type Verifier interface {
	// Verify checks that signature is valid for the given message bytes.
	// Returns nil on success, non-nil on failure.
	Verify(message, signature []byte) error

	// Algorithm returns the algorithm identifier for this verifier.
	Algorithm() Algorithm

	// KeyID returns the key identifier for this verifier.
	KeyID() string
}
