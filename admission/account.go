package admission

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"time"
)

// DeriveAccountSecret derives the per-session HMAC secret for account mode:
// HMAC-SHA256 keyed with the base secret over the device id bytes followed
// by the big-endian token expiry in unix seconds. Mixing the expiry in
// bounds the secret's lifetime to the token's.
func DeriveAccountSecret(baseSecret []byte, deviceID string, tokenExpiry time.Time) []byte {
	mac := hmac.New(sha256.New, baseSecret)
	mac.Write(deviceIDBytes(deviceID))

	var expiry [8]byte
	binary.BigEndian.PutUint64(expiry[:], uint64(tokenExpiry.Unix()))
	mac.Write(expiry[:])

	return mac.Sum(nil)
}

// deviceIDBytes decodes a standard-base64 device id, falling back to the
// raw UTF-8 bytes when the id is not valid base64. The wire contract is
// base64; the fallback keeps tokens from older issuers admissible.
func deviceIDBytes(deviceID string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(deviceID); err == nil {
		return decoded
	}

	return []byte(deviceID)
}
