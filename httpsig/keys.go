package httpsig

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"math/big"
)

// p1363SignatureSize is the length of an ECDSA P-256 signature in IEEE
// P1363 form: two 32-byte big-endian scalars concatenated as r||s.
const p1363SignatureSize = 64

// ParseECDSAP256PublicKey decodes a base64-encoded SubjectPublicKeyInfo
// DER structure into a P-256 public key. This is the encoding attestation
// tokens carry the installation public key in.
func ParseECDSAP256PublicKey(encoded string) (*ecdsa.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: public key is not valid base64", ErrInvalidKey)
	}

	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: public key is not valid SubjectPublicKeyInfo DER", ErrInvalidKey)
	}

	key, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: public key is not an EC key", ErrInvalidKey)
	}

	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: key curve must be P-256", ErrInvalidKey)
	}

	return key, nil
}

// --- ECDSA P-256, IEEE P1363 signatures ---

type ecdsaP256Signer struct {
	key   *ecdsa.PrivateKey
	keyID string
}

// NewECDSAP256Signer creates a Signer using ECDSA P-256 with SHA-256,
// producing fixed-length P1363 r||s signatures.
func NewECDSAP256Signer(keyID string, key *ecdsa.PrivateKey) (Signer, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: ecdsa private key must not be nil", ErrInvalidKey)
	}

	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: key curve must be P-256", ErrInvalidKey)
	}

	return &ecdsaP256Signer{key: key, keyID: keyID}, nil
}

func (s *ecdsaP256Signer) Sign(message []byte) ([]byte, error) {
	digest := sha256.Sum256(message)

	r, ss, err := ecdsa.Sign(rand.Reader, s.key, digest[:])
	if err != nil {
		return nil, err
	}

	sig := make([]byte, p1363SignatureSize)
	r.FillBytes(sig[:32])
	ss.FillBytes(sig[32:])

	return sig, nil
}

func (s *ecdsaP256Signer) Algorithm() Algorithm { return AlgorithmECDSAP256SHA256 }
func (s *ecdsaP256Signer) KeyID() string        { return s.keyID }

type ecdsaP256Verifier struct {
	key   *ecdsa.PublicKey
	keyID string
}

// NewECDSAP256Verifier creates a Verifier using ECDSA P-256 with SHA-256,
// expecting fixed-length P1363 r||s signatures.
func NewECDSAP256Verifier(keyID string, key *ecdsa.PublicKey) (Verifier, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: ecdsa public key must not be nil", ErrInvalidKey)
	}

	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: key curve must be P-256", ErrInvalidKey)
	}

	return &ecdsaP256Verifier{key: key, keyID: keyID}, nil
}

func (v *ecdsaP256Verifier) Verify(message, signature []byte) error {
	if len(signature) != p1363SignatureSize {
		return ErrSignatureMismatch
	}

	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])

	digest := sha256.Sum256(message)
	if !ecdsa.Verify(v.key, digest[:], r, s) {
		return ErrSignatureMismatch
	}

	return nil
}

func (v *ecdsaP256Verifier) Algorithm() Algorithm { return AlgorithmECDSAP256SHA256 }
func (v *ecdsaP256Verifier) KeyID() string        { return v.keyID }

// --- HMAC SHA-256 ---

const minHMACKeyBytes = 32

type hmacSHA256Signer struct {
	key   []byte
	keyID string
}

// NewHMACSHA256Signer creates a Signer using HMAC-SHA256. The key must be
// at least 32 bytes.
func NewHMACSHA256Signer(keyID string, key []byte) (Signer, error) {
	if len(key) < minHMACKeyBytes {
		return nil, fmt.Errorf("%w: hmac key must be at least %d bytes", ErrInvalidKey, minHMACKeyBytes)
	}

	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)

	return &hmacSHA256Signer{key: keyCopy, keyID: keyID}, nil
}

func (s *hmacSHA256Signer) Sign(message []byte) ([]byte, error) {
	return computeHMAC(s.key, message), nil
}

func (s *hmacSHA256Signer) Algorithm() Algorithm { return AlgorithmHMACSHA256 }
func (s *hmacSHA256Signer) KeyID() string        { return s.keyID }

type hmacSHA256Verifier struct {
	key   []byte
	keyID string
}

// NewHMACSHA256Verifier creates a Verifier using HMAC-SHA256. The key must
// be at least 32 bytes. Comparison is constant time.
func NewHMACSHA256Verifier(keyID string, key []byte) (Verifier, error) {
	if len(key) < minHMACKeyBytes {
		return nil, fmt.Errorf("%w: hmac key must be at least %d bytes", ErrInvalidKey, minHMACKeyBytes)
	}

	keyCopy := make([]byte, len(key))
	copy(keyCopy, key)

	return &hmacSHA256Verifier{key: keyCopy, keyID: keyID}, nil
}

func (v *hmacSHA256Verifier) Verify(message, signature []byte) error {
	expected := computeHMAC(v.key, message)
	if !hmac.Equal(expected, signature) {
		return ErrSignatureMismatch
	}

	return nil
}

func (v *hmacSHA256Verifier) Algorithm() Algorithm { return AlgorithmHMACSHA256 }
func (v *hmacSHA256Verifier) KeyID() string        { return v.keyID }

func computeHMAC(key, message []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(message)

	return h.Sum(nil)
}
