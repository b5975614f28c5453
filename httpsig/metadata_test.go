package httpsig

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignatureHeaders(t *testing.T) {
	t.Run("complete entry", func(t *testing.T) {
		req := httptest.NewRequest("GET", "https://example.com/", nil)
		req.Header.Set("Signature-Input", `install=("@method" "approov-token");alg="ecdsa-p256-sha256";created=1700000000;expires=1700000300;keyid="ipk";nonce="n1";tag="t1"`)
		req.Header.Set("Signature", "install=:aGVsbG8=:")

		meta, err := parseSignatureHeaders(req, "install")
		require.NoError(t, err)

		assert.Equal(t, "install", meta.label)
		require.Len(t, meta.components, 2)
		assert.Equal(t, "@method", meta.components[0].name)
		assert.Equal(t, "approov-token", meta.components[1].name)
		assert.Equal(t, "ecdsa-p256-sha256", meta.alg)
		assert.Equal(t, "ipk", meta.keyID)
		assert.Equal(t, "n1", meta.nonce)
		assert.Equal(t, "t1", meta.tag)
		require.NotNil(t, meta.created)
		assert.Equal(t, int64(1700000000), *meta.created)
		require.NotNil(t, meta.expires)
		assert.Equal(t, int64(1700000300), *meta.expires)
		assert.Equal(t, []byte("hello"), meta.signature)
	})

	t.Run("empty label selects first entry", func(t *testing.T) {
		req := httptest.NewRequest("GET", "https://example.com/", nil)
		req.Header.Set("Signature-Input", `a=("@method");alg="hmac-sha256", b=("@path");alg="hmac-sha256"`)
		req.Header.Set("Signature", "a=:YQ==:, b=:Yg==:")

		meta, err := parseSignatureHeaders(req, "")
		require.NoError(t, err)
		assert.Equal(t, "a", meta.label)
	})

	t.Run("missing headers are malformed", func(t *testing.T) {
		req := httptest.NewRequest("GET", "https://example.com/", nil)

		_, err := parseSignatureHeaders(req, "")
		assert.ErrorIs(t, err, ErrMalformedHeader)

		req.Header.Set("Signature-Input", `a=("@method")`)
		_, err = parseSignatureHeaders(req, "")
		assert.ErrorIs(t, err, ErrMalformedHeader)
	})

	t.Run("label mismatch checked both directions", func(t *testing.T) {
		req := httptest.NewRequest("GET", "https://example.com/", nil)
		req.Header.Set("Signature-Input", `a=("@method")`)
		req.Header.Set("Signature", "b=:YQ==:")

		_, err := parseSignatureHeaders(req, "")
		assert.ErrorIs(t, err, ErrMalformedHeader)

		req.Header.Set("Signature-Input", `a=("@method")`)
		req.Header.Set("Signature", "a=:YQ==:, b=:Yg==:")

		_, err = parseSignatureHeaders(req, "")
		assert.ErrorIs(t, err, ErrMalformedHeader)
	})

	t.Run("unknown parameter rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "https://example.com/", nil)
		req.Header.Set("Signature-Input", `a=("@method");alg="hmac-sha256";smuggled="x"`)
		req.Header.Set("Signature", "a=:YQ==:")

		_, err := parseSignatureHeaders(req, "")
		assert.ErrorIs(t, err, ErrMalformedHeader)
	})

	t.Run("wrong parameter types rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "https://example.com/", nil)
		req.Header.Set("Signature-Input", `a=("@method");created="soon"`)
		req.Header.Set("Signature", "a=:YQ==:")

		_, err := parseSignatureHeaders(req, "")
		assert.ErrorIs(t, err, ErrMalformedHeader)
	})

	t.Run("signature must be byte sequence", func(t *testing.T) {
		req := httptest.NewRequest("GET", "https://example.com/", nil)
		req.Header.Set("Signature-Input", `a=("@method")`)
		req.Header.Set("Signature", `a="text"`)

		_, err := parseSignatureHeaders(req, "")
		assert.ErrorIs(t, err, ErrMalformedHeader)
	})

	t.Run("signature-params cannot be covered", func(t *testing.T) {
		req := httptest.NewRequest("GET", "https://example.com/", nil)
		req.Header.Set("Signature-Input", `a=("@signature-params")`)
		req.Header.Set("Signature", "a=:YQ==:")

		_, err := parseSignatureHeaders(req, "")
		assert.ErrorIs(t, err, ErrMalformedHeader)
	})
}

func TestValidateFreshness(t *testing.T) {
	now := time.Unix(1700000000, 0)

	metaWith := func(created, expires *int64) *signatureMetadata {
		return &signatureMetadata{created: created, expires: expires}
	}

	ts := func(v int64) *int64 { return &v }

	t.Run("created equal to now passes", func(t *testing.T) {
		err := metaWith(ts(1700000000), nil).validateFreshness(VerifyConfig{MaxAge: time.Minute}, now)
		assert.NoError(t, err)
	})

	t.Run("created at age boundary passes, one second past fails", func(t *testing.T) {
		cfg := VerifyConfig{MaxAge: time.Minute}

		assert.NoError(t, metaWith(ts(1700000000-60), nil).validateFreshness(cfg, now))
		assert.ErrorIs(t, metaWith(ts(1700000000-61), nil).validateFreshness(cfg, now), ErrStaleSignature)
	})

	t.Run("future created fails, skew forgives", func(t *testing.T) {
		assert.ErrorIs(t, metaWith(ts(1700000001), nil).validateFreshness(VerifyConfig{}, now), ErrStaleSignature)
		assert.NoError(t, metaWith(ts(1700000001), nil).validateFreshness(VerifyConfig{ClockSkew: 2 * time.Second}, now))
	})

	t.Run("expires equal to now passes, one second earlier fails", func(t *testing.T) {
		assert.NoError(t, metaWith(nil, ts(1700000000)).validateFreshness(VerifyConfig{}, now))
		assert.ErrorIs(t, metaWith(nil, ts(1699999999)).validateFreshness(VerifyConfig{}, now), ErrStaleSignature)
	})

	t.Run("expired forgiven within skew", func(t *testing.T) {
		err := metaWith(nil, ts(1699999999)).validateFreshness(VerifyConfig{ClockSkew: time.Second}, now)
		assert.NoError(t, err)
	})

	t.Run("expires before created fails", func(t *testing.T) {
		err := metaWith(ts(1699999000), ts(1699999999)).validateFreshness(VerifyConfig{ClockSkew: time.Hour}, now)
		assert.ErrorIs(t, err, ErrStaleSignature)
	})

	t.Run("required parameters", func(t *testing.T) {
		cfg := VerifyConfig{RequireCreated: true}
		assert.ErrorIs(t, metaWith(nil, nil).validateFreshness(cfg, now), ErrMissingMetadata)

		cfg = VerifyConfig{RequireExpires: true}
		assert.ErrorIs(t, metaWith(ts(1700000000), nil).validateFreshness(cfg, now), ErrMissingMetadata)

		cfg = VerifyConfig{RequireNonce: true}
		assert.ErrorIs(t, metaWith(nil, nil).validateFreshness(cfg, now), ErrMissingMetadata)

		nonced := &signatureMetadata{nonce: "n"}
		assert.NoError(t, nonced.validateFreshness(cfg, now))
	})
}
