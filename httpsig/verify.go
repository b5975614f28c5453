package httpsig

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"
)

// KeyResolver returns a Verifier for the given key ID and declared
// algorithm. It is called once per verification after metadata has been
// validated. The request is provided for context (e.g. to select keys per
// host or from request-scoped claims).
type KeyResolver func(r *http.Request, keyID string, alg Algorithm) (Verifier, error)

// VerifyConfig is the verification policy. It is read-only during a
// verification call and safe for unsynchronized concurrent use.
type VerifyConfig struct {
	// Resolver looks up a Verifier for a key ID and algorithm. Required.
	Resolver KeyResolver

	// Label identifies which signature to verify. When empty, the first
	// entry of the Signature-Input header is used.
	Label string

	// RequiredComponents lists component identifiers that must appear in
	// the signature's covered components.
	RequiredComponents []string

	// RequireCreated rejects signatures without a created parameter.
	RequireCreated bool

	// RequireExpires rejects signatures without an expires parameter.
	RequireExpires bool

	// RequireNonce rejects signatures without a nonce parameter.
	RequireNonce bool

	// MaxAge is the maximum accepted age of the created timestamp. Zero
	// disables the age check.
	MaxAge time.Duration

	// ClockSkew widens every timestamp comparison in the caller's favor.
	// Default zero.
	ClockSkew time.Duration

	// RequireDigest rejects requests without a Content-Digest header.
	// Declared digests are verified regardless of this flag.
	RequireDigest bool
}

// Result reports a completed verification. It is created fresh per call
// and never mutated afterwards.
type Result struct {
	// Label is the signature label that was verified.
	Label string

	// CanonicalMessage is the exact text the signature covered, retained
	// for diagnostics and tests. Treat as sensitive: it contains header
	// values.
	CanonicalMessage string
}

// VerifyRequest verifies an HTTP message signature on r.
//
// The pipeline is: parse headers, validate metadata freshness, build the
// canonical message, verify the content digest, verify the signature
// bytes. The first failure wins and is final for the request; every
// failure wraps one sentinel from the error taxonomy and no step panics
// on malformed input. On success the returned Result carries the
// canonical message; on failure the Result is nil.
func VerifyRequest(r *http.Request, cfg VerifyConfig) (*Result, error) {
	if cfg.Resolver == nil {
		return nil, ErrNoResolver
	}

	meta, err := parseSignatureHeaders(r, cfg.Label)
	if err != nil {
		return nil, err
	}

	for _, required := range cfg.RequiredComponents {
		if !slices.ContainsFunc(meta.components, func(c component) bool { return c.name == required }) {
			return nil, fmt.Errorf("%w: component %q not covered", ErrMissingMetadata, required)
		}
	}

	if err := meta.validateFreshness(cfg, time.Now()); err != nil {
		return nil, err
	}

	canonical, err := buildCanonicalMessage(r, meta)
	if err != nil {
		return nil, err
	}

	if cfg.RequireDigest && r.Header.Get("Content-Digest") == "" {
		return nil, fmt.Errorf("%w: Content-Digest header required", ErrMalformedHeader)
	}

	if err := VerifyContentDigest(r); err != nil {
		return nil, err
	}

	if meta.alg == "" {
		return nil, fmt.Errorf("%w: alg parameter missing", ErrUnsupportedAlgorithm)
	}

	verifier, err := cfg.Resolver(r, meta.keyID, Algorithm(meta.alg))
	if err != nil {
		return nil, fmt.Errorf("%w: resolving key: %w", ErrSignatureMismatch, err)
	}

	if verifier.Algorithm() != Algorithm(meta.alg) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, meta.alg)
	}

	if err := verifier.Verify([]byte(canonical), meta.signature); err != nil {
		if errors.Is(err, ErrSignatureMismatch) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}

	return &Result{Label: meta.label, CanonicalMessage: canonical}, nil
}
