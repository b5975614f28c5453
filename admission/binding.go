package admission

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
)

// ErrBindingMismatch is returned when the bound header's hash does not
// match the token's binding claim.
var ErrBindingMismatch = errors.New("token binding mismatch")

// verifyTokenBinding hashes the named request header and compares it in
// constant time against the binding claim. A token without a binding claim
// passes; a token with one requires the header to be present and matching.
func verifyTokenBinding(r *http.Request, header string, claims Claims) error {
	if claims.BindingHash == "" {
		return nil
	}

	declared, err := base64.StdEncoding.DecodeString(claims.BindingHash)
	if err != nil {
		return fmt.Errorf("%w: binding claim is not valid base64", ErrBindingMismatch)
	}

	value := r.Header.Get(header)
	if value == "" {
		return fmt.Errorf("%w: header %q missing", ErrBindingMismatch, header)
	}

	sum := sha256.Sum256([]byte(value))
	if !hmac.Equal(sum[:], declared) {
		return fmt.Errorf("%w: header %q", ErrBindingMismatch, header)
	}

	return nil
}
