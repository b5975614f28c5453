// Package httpsig implements HTTP message signature verification and
// signing in the style of RFC 9421, with Content-Digest support per
// RFC 9530, on top of the structured-field codec in package sfv.
//
// # Verifying Requests
//
// VerifyRequest reconstructs the canonical message a client declared via
// the Signature-Input header, resolves every covered component against
// the live request, enforces the freshness policy and checks the
// signature bytes:
//
//	resolver := func(r *http.Request, keyID string, alg httpsig.Algorithm) (httpsig.Verifier, error) {
//	    return verifier, nil
//	}
//
//	result, err := httpsig.VerifyRequest(r, httpsig.VerifyConfig{
//	    Resolver:       resolver,
//	    RequireCreated: true,
//	    MaxAge:         5 * time.Minute,
//	})
//
// Two algorithms are supported: ecdsa-p256-sha256 (P1363 fixed-length
// signatures over P-256/SHA-256) and hmac-sha256.
//
// # Failure Classes
//
// Every verification failure wraps one sentinel error. Failures that mean
// the request could not be canonicalized (ErrMalformedHeader,
// ErrUnresolvableComponent) are distinguished from failures of a checked
// signature; IsResolutionFailure reports the difference so HTTP callers
// can answer 400 versus 401. No failure reason should be echoed to an
// untrusted client.
//
// # Signing Requests
//
// SignRequest adds Signature and Signature-Input headers using the same
// canonicalization as the verifier:
//
//	signer, err := httpsig.NewECDSAP256Signer("install", privateKey)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	err = httpsig.SignRequest(req, httpsig.SignConfig{
//	    Signer:            signer,
//	    CoveredComponents: []string{httpsig.ComponentMethod, "approov-token"},
//	})
//
// NewTransport wraps an http.RoundTripper so every outgoing request is
// signed automatically.
//
// # Concurrency
//
// Verification is request-scoped, stateless computation plus one buffered
// body read; configs are immutable and safe for concurrent use. The
// request body is buffered and restored so downstream handlers can read
// it again.
package httpsig
