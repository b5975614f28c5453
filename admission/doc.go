// Package admission gates HTTP requests on attestation claims and message
// signatures.
//
// An upstream token-validation stage decodes and checks the attestation
// token, then attaches the extracted Claims to the request context with
// WithClaims. Middleware picks the verification mode from those claims:
// install mode verifies an ECDSA P-256 signature against the installation
// public key carried in the token, account mode derives a per-session HMAC
// secret from the configured base secret, the device id and the token
// expiry. Rejected requests get a generic "Invalid Token" body; the real
// reason is only surfaced through the OnError hook.
//
//	middleware := admission.Middleware(admission.Config{
//	    AccountBaseSecret: secret,
//	    MaxAge:            5 * time.Minute,
//	})
//
//	handler := tokenCheck(middleware(apiHandler))
package admission
