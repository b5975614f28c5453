package httpsig

import "errors"

// Verification failure taxonomy. Every failure VerifyRequest returns wraps
// exactly one of these sentinels, so callers can branch with errors.Is.
var (
	// ErrMalformedHeader is returned when the Signature, Signature-Input
	// or Content-Digest header is missing, fails structured-field
	// parsing, or the two signature headers disagree about labels.
	ErrMalformedHeader = errors.New("httpsig: malformed signature header")

	// ErrUnsupportedAlgorithm is returned when the declared alg parameter
	// is absent or names an algorithm other than the one the resolved
	// key supports.
	ErrUnsupportedAlgorithm = errors.New("httpsig: unsupported signature algorithm")

	// ErrMissingMetadata is returned when a parameter or component the
	// verification policy requires is absent from the signature input.
	ErrMissingMetadata = errors.New("httpsig: required signature metadata missing")

	// ErrStaleSignature is returned when the created/expires timestamps
	// violate the freshness policy: too old, not yet valid, expired, or
	// expires before created.
	ErrStaleSignature = errors.New("httpsig: signature timestamp outside policy")

	// ErrUnresolvableComponent is returned when a covered component
	// references a header or query parameter absent from the request, or
	// an unsupported component type.
	ErrUnresolvableComponent = errors.New("httpsig: component cannot be resolved against request")

	// ErrDigestMismatch is returned when the recomputed body digest
	// disagrees with the Content-Digest header, or the header names an
	// unsupported digest algorithm.
	ErrDigestMismatch = errors.New("httpsig: content digest mismatch")

	// ErrSignatureMismatch is returned when cryptographic verification
	// fails: bad signature bytes, corrupt key material, or a tampered
	// payload.
	ErrSignatureMismatch = errors.New("httpsig: signature verification failed")
)

// Configuration and key material errors.
var (
	// ErrNoSigner is returned when SignConfig has no Signer.
	ErrNoSigner = errors.New("httpsig: signer must not be nil")

	// ErrNoResolver is returned when VerifyConfig has no Resolver.
	ErrNoResolver = errors.New("httpsig: key resolver must not be nil")

	// ErrInvalidKey is returned when key material is invalid (nil, wrong
	// curve, undersized, or undecodable).
	ErrInvalidKey = errors.New("httpsig: invalid key material")
)

// IsResolutionFailure reports whether err is a 400-class failure: the
// request could not be canonicalized or its signature headers read, as
// opposed to a signature that was checked and found wrong. Callers use
// this to choose between 400 and 401 responses.
func IsResolutionFailure(err error) bool {
	return errors.Is(err, ErrMalformedHeader) || errors.Is(err, ErrUnresolvableComponent)
}
