package httpsig

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/attestlab/edgegate/sfv"
)

// signatureMetadata is one parsed entry from the Signature-Input header
// together with its signature bytes from the Signature header.
type signatureMetadata struct {
	label      string
	components []component

	alg     string
	keyID   string
	nonce   string
	tag     string
	created *int64
	expires *int64

	// sigParams is the parsed inner list, kept so the
	// "@signature-params" line reserializes to canonical form.
	sigParams sfv.InnerList

	signature []byte
}

// metadataParams is the closed set of accepted signature parameters. Any
// other key fails verification: stricter than the RFC surface, so no
// unvalidated metadata can ride along inside a signed parameter set.
var metadataParams = map[string]bool{
	"alg":     true,
	"created": true,
	"expires": true,
	"keyid":   true,
	"nonce":   true,
	"tag":     true,
}

// parseSignatureHeaders parses the Signature and Signature-Input headers,
// cross-checks their labels in both directions, and returns the metadata
// for the requested label. An empty label selects the first entry of
// Signature-Input.
func parseSignatureHeaders(r *http.Request, label string) (*signatureMetadata, error) {
	inputHeader := strings.Join(r.Header.Values("Signature-Input"), ", ")
	sigHeader := strings.Join(r.Header.Values("Signature"), ", ")

	if inputHeader == "" {
		return nil, fmt.Errorf("%w: Signature-Input header missing", ErrMalformedHeader)
	}

	if sigHeader == "" {
		return nil, fmt.Errorf("%w: Signature header missing", ErrMalformedHeader)
	}

	inputDict, err := sfv.ParseDictionary(inputHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: Signature-Input: %v", ErrMalformedHeader, err)
	}

	sigDict, err := sfv.ParseDictionary(sigHeader)
	if err != nil {
		return nil, fmt.Errorf("%w: Signature: %v", ErrMalformedHeader, err)
	}

	// Labels must match exactly in both directions.
	for _, key := range inputDict.Keys {
		if _, ok := sigDict.Get(key); !ok {
			return nil, fmt.Errorf("%w: label %q has no Signature entry", ErrMalformedHeader, key)
		}
	}

	for _, key := range sigDict.Keys {
		if _, ok := inputDict.Get(key); !ok {
			return nil, fmt.Errorf("%w: label %q has no Signature-Input entry", ErrMalformedHeader, key)
		}
	}

	if label == "" {
		if inputDict.Len() == 0 {
			return nil, fmt.Errorf("%w: Signature-Input has no entries", ErrMalformedHeader)
		}

		label = inputDict.Keys[0]
	}

	inputMember, ok := inputDict.Get(label)
	if !ok {
		return nil, fmt.Errorf("%w: signature %q not present", ErrMalformedHeader, label)
	}

	meta, err := parseSignatureInput(label, inputMember)
	if err != nil {
		return nil, err
	}

	sigMember, _ := sigDict.Get(label)

	sigItem, ok := sigMember.(sfv.Item)
	if !ok {
		return nil, fmt.Errorf("%w: signature %q is not an item", ErrMalformedHeader, label)
	}

	sigBytes, ok := sigItem.Value.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: signature %q is not a byte sequence", ErrMalformedHeader, label)
	}

	meta.signature = sigBytes

	return meta, nil
}

// parseSignatureInput interprets one Signature-Input dictionary member: an
// inner list of component identifier strings with the signature parameters
// attached to the list.
func parseSignatureInput(label string, member any) (*signatureMetadata, error) {
	inner, ok := member.(sfv.InnerList)
	if !ok {
		return nil, fmt.Errorf("%w: signature input %q is not an inner list", ErrMalformedHeader, label)
	}

	meta := &signatureMetadata{
		label:     label,
		sigParams: inner,
	}

	for i, item := range inner.Items {
		name, ok := item.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: component %d is not a string", ErrMalformedHeader, i)
		}

		if name == "@signature-params" {
			return nil, fmt.Errorf("%w: @signature-params cannot be a covered component", ErrMalformedHeader)
		}

		meta.components = append(meta.components, component{name: name, params: item.Params})
	}

	for _, param := range inner.Params {
		if !metadataParams[param.Key] {
			return nil, fmt.Errorf("%w: unknown signature parameter %q", ErrMalformedHeader, param.Key)
		}

		switch param.Key {
		case "created", "expires":
			ts, ok := param.Value.(int64)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be an integer", ErrMalformedHeader, param.Key)
			}

			if param.Key == "created" {
				meta.created = &ts
			} else {
				meta.expires = &ts
			}

		default:
			s, ok := param.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a string", ErrMalformedHeader, param.Key)
			}

			switch param.Key {
			case "alg":
				meta.alg = s
			case "keyid":
				meta.keyID = s
			case "nonce":
				meta.nonce = s
			case "tag":
				meta.tag = s
			}
		}
	}

	return meta, nil
}

// validateFreshness enforces the timestamp policy at the given instant.
// All bounds are inclusive: created == now and expires == now both pass.
func (m *signatureMetadata) validateFreshness(cfg VerifyConfig, now time.Time) error {
	skew := cfg.ClockSkew

	if cfg.RequireCreated && m.created == nil {
		return fmt.Errorf("%w: created parameter required", ErrMissingMetadata)
	}

	if cfg.RequireExpires && m.expires == nil {
		return fmt.Errorf("%w: expires parameter required", ErrMissingMetadata)
	}

	if cfg.RequireNonce && m.nonce == "" {
		return fmt.Errorf("%w: nonce parameter required", ErrMissingMetadata)
	}

	if m.created != nil {
		created := time.Unix(*m.created, 0)

		if created.After(now.Add(skew)) {
			return fmt.Errorf("%w: created timestamp is in the future", ErrStaleSignature)
		}

		if cfg.MaxAge > 0 && created.Before(now.Add(-cfg.MaxAge).Add(-skew)) {
			return fmt.Errorf("%w: signature older than maximum age", ErrStaleSignature)
		}
	}

	if m.expires != nil {
		expires := time.Unix(*m.expires, 0)

		if expires.Add(skew).Before(now) {
			return fmt.Errorf("%w: signature expired", ErrStaleSignature)
		}
	}

	if m.created != nil && m.expires != nil && *m.expires < *m.created {
		return fmt.Errorf("%w: expires before created", ErrStaleSignature)
	}

	return nil
}
