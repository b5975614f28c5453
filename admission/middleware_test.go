package admission

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attestlab/edgegate/httpsig"
)

// withClaims injects claims the way the upstream token-validation stage
// would, so the middleware under test sees a realistic request.
func withClaims(claims Claims, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func okHandler() (http.Handler, *bool) {
	reached := new(bool)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*reached = true
		w.WriteHeader(http.StatusOK)
	}), reached
}

func newInstallIdentity(t *testing.T) (httpsig.Signer, Claims) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)

	signer, err := httpsig.NewECDSAP256Signer("", key)
	require.NoError(t, err)

	return signer, Claims{InstallationPublicKey: base64.StdEncoding.EncodeToString(der)}
}

func TestMiddleware(t *testing.T) {
	t.Run("install mode admits a signed request", func(t *testing.T) {
		signer, claims := newInstallIdentity(t)
		handler, reached := okHandler()

		req := httptest.NewRequest("GET", "https://example.com/token", nil)
		req.Header.Set("Approov-Token", "tok")
		require.NoError(t, httpsig.SignRequest(req, httpsig.SignConfig{
			Signer:            signer,
			CoveredComponents: []string{"@method", "approov-token"},
		}))

		rec := httptest.NewRecorder()
		withClaims(claims, Middleware(Config{})(handler)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, *reached)
		assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	})

	t.Run("account mode admits with derived secret", func(t *testing.T) {
		baseSecret, err := base64.StdEncoding.DecodeString("AAECAwQFBgcICQoLDA0ODw==")
		require.NoError(t, err)

		claims := Claims{
			DeviceID:    "AQIDBAUGBwgJCgsMDQ4P",
			TokenExpiry: time.Unix(1700000600, 0),
		}

		derived := DeriveAccountSecret(baseSecret, claims.DeviceID, claims.TokenExpiry)
		signer, err := httpsig.NewHMACSHA256Signer("", derived)
		require.NoError(t, err)

		handler, reached := okHandler()

		req := httptest.NewRequest("GET", "https://example.com/pay", nil)
		require.NoError(t, httpsig.SignRequest(req, httpsig.SignConfig{Signer: signer}))

		rec := httptest.NewRecorder()
		withClaims(claims, Middleware(Config{AccountBaseSecret: baseSecret})(handler)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, *reached)
	})

	t.Run("account mode rejects a different device's secret", func(t *testing.T) {
		baseSecret, err := base64.StdEncoding.DecodeString("AAECAwQFBgcICQoLDA0ODw==")
		require.NoError(t, err)

		claims := Claims{
			DeviceID:    "AQIDBAUGBwgJCgsMDQ4P",
			TokenExpiry: time.Unix(1700000600, 0),
		}

		// Secret derived for a different device id.
		wrong := DeriveAccountSecret(baseSecret, "b3RoZXItZGV2aWNl", claims.TokenExpiry)
		signer, err := httpsig.NewHMACSHA256Signer("", wrong)
		require.NoError(t, err)

		handler, reached := okHandler()

		req := httptest.NewRequest("GET", "https://example.com/pay", nil)
		require.NoError(t, httpsig.SignRequest(req, httpsig.SignConfig{Signer: signer}))

		rec := httptest.NewRecorder()
		withClaims(claims, Middleware(Config{AccountBaseSecret: baseSecret})(handler)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, *reached)
	})

	t.Run("missing signature headers map to 400", func(t *testing.T) {
		_, claims := newInstallIdentity(t)
		handler, reached := okHandler()

		req := httptest.NewRequest("GET", "https://example.com/token", nil)

		rec := httptest.NewRecorder()
		withClaims(claims, Middleware(Config{})(handler)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid Token", rec.Body.String())
		assert.False(t, *reached)
	})

	t.Run("bad signature maps to 401 with generic body", func(t *testing.T) {
		signer, claims := newInstallIdentity(t)
		handler, reached := okHandler()

		req := httptest.NewRequest("GET", "https://example.com/token", nil)
		req.Header.Set("Approov-Token", "tok")
		require.NoError(t, httpsig.SignRequest(req, httpsig.SignConfig{
			Signer:            signer,
			CoveredComponents: []string{"@method", "approov-token"},
		}))

		// Tamper with a covered header after signing.
		req.Header.Set("Approov-Token", "forged")

		var hookErr error
		cfg := Config{OnError: func(r *http.Request, id string, err error) { hookErr = err }}

		rec := httptest.NewRecorder()
		withClaims(claims, Middleware(cfg)(handler)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Invalid Token", rec.Body.String())
		assert.False(t, *reached)

		// The internal reason reaches the hook, never the body.
		assert.ErrorIs(t, hookErr, httpsig.ErrSignatureMismatch)
		assert.NotContains(t, rec.Body.String(), "signature")
	})

	t.Run("no claims rejects with 401", func(t *testing.T) {
		handler, reached := okHandler()

		req := httptest.NewRequest("GET", "https://example.com/token", nil)

		var hookErr error
		cfg := Config{OnError: func(r *http.Request, id string, err error) { hookErr = err }}

		rec := httptest.NewRecorder()
		Middleware(cfg)(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.ErrorIs(t, hookErr, ErrNoClaims)
		assert.False(t, *reached)
	})

	t.Run("claims with no usable mode reject", func(t *testing.T) {
		signer, _ := newInstallIdentity(t)
		handler, reached := okHandler()

		req := httptest.NewRequest("GET", "https://example.com/token", nil)
		require.NoError(t, httpsig.SignRequest(req, httpsig.SignConfig{Signer: signer}))

		var hookErr error
		cfg := Config{OnError: func(r *http.Request, id string, err error) { hookErr = err }}

		rec := httptest.NewRecorder()
		withClaims(Claims{}, Middleware(cfg)(handler)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.ErrorIs(t, hookErr, ErrNoVerificationMode)
		assert.False(t, *reached)
	})

	t.Run("token binding enforced after signature", func(t *testing.T) {
		signer, claims := newInstallIdentity(t)
		claims.BindingHash = bindingHashOf("Bearer expected")
		handler, reached := okHandler()

		req := httptest.NewRequest("GET", "https://example.com/token", nil)
		req.Header.Set("Authorization", "Bearer other")
		require.NoError(t, httpsig.SignRequest(req, httpsig.SignConfig{Signer: signer}))

		rec := httptest.NewRecorder()
		withClaims(claims, Middleware(Config{})(handler)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, *reached)
	})

	t.Run("stale signature rejected by policy", func(t *testing.T) {
		signer, claims := newInstallIdentity(t)
		handler, reached := okHandler()

		req := httptest.NewRequest("GET", "https://example.com/token", nil)
		require.NoError(t, httpsig.SignRequest(req, httpsig.SignConfig{
			Signer:  signer,
			Created: time.Now().Add(-10 * time.Minute),
		}))

		var hookErr error
		cfg := Config{
			MaxAge:  time.Minute,
			OnError: func(r *http.Request, id string, err error) { hookErr = err },
		}

		rec := httptest.NewRecorder()
		withClaims(claims, Middleware(cfg)(handler)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.ErrorIs(t, hookErr, httpsig.ErrStaleSignature)
		assert.False(t, *reached)
	})

	t.Run("admit hook sees the verification result", func(t *testing.T) {
		signer, claims := newInstallIdentity(t)
		handler, _ := okHandler()

		req := httptest.NewRequest("GET", "https://example.com/token", nil)
		require.NoError(t, httpsig.SignRequest(req, httpsig.SignConfig{Signer: signer}))

		var admitted *httpsig.Result
		cfg := Config{OnAdmit: func(r *http.Request, id string, result *httpsig.Result) { admitted = result }}

		rec := httptest.NewRecorder()
		withClaims(claims, Middleware(cfg)(handler)).ServeHTTP(rec, req)

		require.NotNil(t, admitted)
		assert.Equal(t, "sig1", admitted.Label)
		assert.NotEmpty(t, admitted.CanonicalMessage)
	})
}

func TestClaimsContext(t *testing.T) {
	req := httptest.NewRequest("GET", "https://example.com/", nil)

	_, ok := ClaimsFromContext(req.Context())
	assert.False(t, ok)

	claims := Claims{DeviceID: "dev"}
	ctx := WithClaims(req.Context(), claims)

	got, ok := ClaimsFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims, got)
}
