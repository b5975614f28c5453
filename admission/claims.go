package admission

import (
	"context"
	"time"
)

// Claims carries the attestation-token fields the admission layer needs.
// They are produced by an upstream token-validation stage that has already
// checked the token's own signature and expiry.
type Claims struct {
	// InstallationPublicKey is the device's EC public key as base64-encoded
	// DER SubjectPublicKeyInfo. When present, install mode is used.
	InstallationPublicKey string

	// DeviceID identifies the device for account-mode secret derivation.
	DeviceID string

	// TokenExpiry is the attestation token's expiry, mixed into the
	// account-mode secret so it rotates with the token.
	TokenExpiry time.Time

	// BindingHash is the base64-encoded SHA-256 of the bound header value,
	// when the token carries a binding claim.
	BindingHash string
}

type claimsKey struct{}

// WithClaims returns a context carrying the given claims.
func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims. The second
// return value reports whether claims were present.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(Claims)
	return claims, ok
}
