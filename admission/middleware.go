package admission

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/attestlab/edgegate/httpsig"
)

// ErrNoClaims is returned through OnError when a request reaches the
// middleware without claims in its context.
var ErrNoClaims = errors.New("no attestation claims in request context")

// ErrNoVerificationMode is returned through OnError when the claims carry
// neither an installation public key nor the material for account mode.
var ErrNoVerificationMode = errors.New("claims support no verification mode")

// rejectionBody is the only text ever written to a rejected client.
// Internal reasons go to OnError, never to the wire.
const rejectionBody = "Invalid Token"

// Config configures the admission middleware.
type Config struct {
	// SignatureLabel selects which signature to verify. Empty selects the
	// first entry of the Signature-Input header.
	SignatureLabel string

	// RequiredComponents lists component identifiers every signature must
	// cover, e.g. "@method" or "approov-token".
	RequiredComponents []string

	// RequireCreated, RequireExpires and RequireNonce reject signatures
	// missing the corresponding parameter.
	RequireCreated bool
	RequireExpires bool
	RequireNonce   bool

	// MaxAge bounds the age of the created timestamp. Zero disables.
	MaxAge time.Duration

	// ClockSkew widens timestamp comparisons in the client's favor.
	ClockSkew time.Duration

	// RequireDigest rejects requests without a Content-Digest header.
	RequireDigest bool

	// AccountBaseSecret enables account mode for claims that carry a
	// device id but no installation public key.
	AccountBaseSecret []byte

	// BindingHeader names the header checked against the token's binding
	// claim. Defaults to "Authorization".
	BindingHeader string

	// CorrelationHeader names the response header carrying the per-decision
	// correlation id. Defaults to "X-Correlation-ID".
	CorrelationHeader string

	// OnError is called with the internal failure reason for every
	// rejected request. Optional.
	OnError func(r *http.Request, correlationID string, err error)

	// OnAdmit is called after a successful verification, outside the
	// rejection path. Optional.
	OnAdmit func(r *http.Request, correlationID string, result *httpsig.Result)
}

// Middleware returns a middleware that admits requests only when their
// message signature verifies against the attestation claims in the request
// context. Failures that mean the request could not be canonicalized map
// to 400, everything else to 401, always with the same generic body.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	bindingHeader := cfg.BindingHeader
	if bindingHeader == "" {
		bindingHeader = "Authorization"
	}

	correlationHeader := cfg.CorrelationHeader
	if correlationHeader == "" {
		correlationHeader = "X-Correlation-ID"
	}

	verifyCfg := httpsig.VerifyConfig{
		Resolver:           resolverForClaims(cfg.AccountBaseSecret),
		Label:              cfg.SignatureLabel,
		RequiredComponents: cfg.RequiredComponents,
		RequireCreated:     cfg.RequireCreated,
		RequireExpires:     cfg.RequireExpires,
		RequireNonce:       cfg.RequireNonce,
		MaxAge:             cfg.MaxAge,
		ClockSkew:          cfg.ClockSkew,
		RequireDigest:      cfg.RequireDigest,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			correlationID := uuid.NewString()
			w.Header().Set(correlationHeader, correlationID)

			reject := func(status int, err error) {
				if cfg.OnError != nil {
					cfg.OnError(r, correlationID, err)
				}

				w.WriteHeader(status)
				w.Write([]byte(rejectionBody))
			}

			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				reject(http.StatusUnauthorized, ErrNoClaims)
				return
			}

			result, err := httpsig.VerifyRequest(r, verifyCfg)
			if err != nil {
				status := http.StatusUnauthorized
				if httpsig.IsResolutionFailure(err) {
					status = http.StatusBadRequest
				}

				reject(status, err)
				return
			}

			if err := verifyTokenBinding(r, bindingHeader, claims); err != nil {
				reject(http.StatusUnauthorized, err)
				return
			}

			if cfg.OnAdmit != nil {
				cfg.OnAdmit(r, correlationID, result)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// resolverForClaims builds the key resolver the verifier calls: install
// mode when the claims carry an installation public key, account mode when
// a base secret is configured and the claims carry a device id.
func resolverForClaims(baseSecret []byte) httpsig.KeyResolver {
	return func(r *http.Request, keyID string, alg httpsig.Algorithm) (httpsig.Verifier, error) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			return nil, ErrNoClaims
		}

		if claims.InstallationPublicKey != "" {
			key, err := httpsig.ParseECDSAP256PublicKey(claims.InstallationPublicKey)
			if err != nil {
				return nil, fmt.Errorf("installation public key: %w", err)
			}

			return httpsig.NewECDSAP256Verifier(keyID, key)
		}

		if len(baseSecret) > 0 && claims.DeviceID != "" {
			secret := DeriveAccountSecret(baseSecret, claims.DeviceID, claims.TokenExpiry)
			return httpsig.NewHMACSHA256Verifier(keyID, secret)
		}

		return nil, ErrNoVerificationMode
	}
}
