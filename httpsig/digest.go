package httpsig

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/attestlab/edgegate/sfv"
)

// DigestAlgorithm identifies the hash behind a Content-Digest entry per
// RFC 9530.
type DigestAlgorithm string

const (
	// DigestSHA256 uses SHA-256 for the content digest.
	DigestSHA256 DigestAlgorithm = "sha-256"

	// DigestSHA512 uses SHA-512 for the content digest.
	DigestSHA512 DigestAlgorithm = "sha-512"
)

// SetContentDigest reads the request body, computes its digest, sets the
// Content-Digest header and restores the body for later readers.
func SetContentDigest(r *http.Request, alg DigestAlgorithm) error {
	body, err := readAndRestoreBody(r)
	if err != nil {
		return err
	}

	digest, err := computeDigest(body, alg)
	if err != nil {
		return err
	}

	encoded := base64.StdEncoding.EncodeToString(digest)
	r.Header.Set("Content-Digest", fmt.Sprintf("%s=:%s:", alg, encoded))

	return nil
}

// VerifyContentDigest recomputes the body digest for every algorithm the
// Content-Digest header declares and compares in constant time. Digest
// checking is opt-in per request: an absent header is a no-op success.
// An unsupported algorithm name is fatal.
func VerifyContentDigest(r *http.Request) error {
	header := r.Header.Get("Content-Digest")
	if header == "" {
		return nil
	}

	dict, err := sfv.ParseDictionary(header)
	if err != nil {
		return fmt.Errorf("%w: Content-Digest: %v", ErrMalformedHeader, err)
	}

	if dict.Len() == 0 {
		return fmt.Errorf("%w: Content-Digest has no entries", ErrMalformedHeader)
	}

	body, err := readAndRestoreBody(r)
	if err != nil {
		return err
	}

	for _, key := range dict.Keys {
		declared, err := digestValue(dict.Values[key])
		if err != nil {
			return err
		}

		expected, err := computeDigest(body, DigestAlgorithm(key))
		if err != nil {
			return err
		}

		if !hmac.Equal(expected, declared) {
			return fmt.Errorf("%w: %s digest does not match body", ErrDigestMismatch, key)
		}
	}

	return nil
}

// digestValue extracts the declared digest bytes. Both byte-sequence and
// string forms of ":base64:" are accepted, per the wire contract.
func digestValue(member any) ([]byte, error) {
	item, ok := member.(sfv.Item)
	if !ok {
		return nil, fmt.Errorf("%w: Content-Digest entry is not an item", ErrMalformedHeader)
	}

	switch v := item.Value.(type) {
	case []byte:
		return v, nil

	case string:
		if len(v) < 2 || v[0] != ':' || v[len(v)-1] != ':' {
			return nil, fmt.Errorf("%w: Content-Digest string is not :base64: wrapped", ErrMalformedHeader)
		}

		decoded, err := base64.StdEncoding.DecodeString(v[1 : len(v)-1])
		if err != nil {
			return nil, fmt.Errorf("%w: Content-Digest string is not valid base64", ErrMalformedHeader)
		}

		return decoded, nil

	default:
		return nil, fmt.Errorf("%w: Content-Digest value must be a byte sequence or string", ErrMalformedHeader)
	}
}

func computeDigest(data []byte, alg DigestAlgorithm) ([]byte, error) {
	switch alg {
	case DigestSHA256:
		sum := sha256.Sum256(data)
		return sum[:], nil

	case DigestSHA512:
		sum := sha512.Sum512(data)
		return sum[:], nil

	default:
		return nil, fmt.Errorf("%w: unsupported digest algorithm %q", ErrDigestMismatch, alg)
	}
}

// readAndRestoreBody buffers the entire request body and replaces it so
// downstream handlers can read it again.
func readAndRestoreBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}
