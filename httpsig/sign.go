package httpsig

import (
	"encoding/base64"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/attestlab/edgegate/sfv"
)

// defaultCoveredComponents are signed when SignConfig.CoveredComponents is
// empty.
var defaultCoveredComponents = []string{ComponentMethod, ComponentAuthority, ComponentPath}

// GenerateNonce returns a random nonce suitable for SignConfig.Nonce.
func GenerateNonce() string {
	return uuid.NewString()
}

// SignConfig configures request signing.
type SignConfig struct {
	// Signer produces signatures. Required.
	Signer Signer

	// Label identifies the signature in the Signature and
	// Signature-Input headers. Defaults to "sig1".
	Label string

	// CoveredComponents lists the component identifiers to sign.
	// Defaults to @method, @authority and @path.
	CoveredComponents []string

	// Nonce is an optional nonce included in the signature parameters.
	Nonce string

	// Tag is an optional application tag for the signature.
	Tag string

	// Created sets the signature creation time. Zero means time.Now().
	Created time.Time

	// Expires sets the signature expiry. Zero sets no expiry.
	Expires time.Time

	// DigestAlgorithm, when set, computes a Content-Digest header before
	// signing and adds "content-digest" to the covered components.
	DigestAlgorithm DigestAlgorithm
}

// SignRequest signs r in place, adding Signature and Signature-Input
// headers. The canonical message is built by the same routine the
// verifier uses, so a signed request verifies against an unchanged
// policy.
func SignRequest(r *http.Request, cfg SignConfig) error {
	if cfg.Signer == nil {
		return ErrNoSigner
	}

	label := cfg.Label
	if label == "" {
		label = "sig1"
	}

	components := cfg.CoveredComponents
	if len(components) == 0 {
		components = defaultCoveredComponents
	}

	if cfg.DigestAlgorithm != "" {
		if err := SetContentDigest(r, cfg.DigestAlgorithm); err != nil {
			return err
		}

		if !slices.Contains(components, "content-digest") {
			components = slices.Clone(components)
			components = append(components, "content-digest")
		}
	}

	created := cfg.Created
	if created.IsZero() {
		created = time.Now()
	}

	meta := &signatureMetadata{
		label:     label,
		sigParams: signatureParams(components, cfg, created),
	}

	for _, name := range components {
		meta.components = append(meta.components, component{name: name})
	}

	canonical, err := buildCanonicalMessage(r, meta)
	if err != nil {
		return err
	}

	sig, err := cfg.Signer.Sign([]byte(canonical))
	if err != nil {
		return err
	}

	serialized, err := sfv.SerializeInnerList(meta.sigParams)
	if err != nil {
		return err
	}

	appendDictMember(r, "Signature-Input", label, serialized)
	appendDictMember(r, "Signature", label, ":"+base64.StdEncoding.EncodeToString(sig)+":")

	return nil
}

// signatureParams assembles the @signature-params inner list: covered
// component identifiers plus alg, created, expires, nonce, keyid and tag
// in that order.
func signatureParams(components []string, cfg SignConfig, created time.Time) sfv.InnerList {
	inner := sfv.InnerList{}

	for _, name := range components {
		inner.Items = append(inner.Items, sfv.Item{Value: name})
	}

	inner.Params = append(inner.Params, sfv.Parameter{Key: "alg", Value: string(cfg.Signer.Algorithm())})
	inner.Params = append(inner.Params, sfv.Parameter{Key: "created", Value: created.Unix()})

	if !cfg.Expires.IsZero() {
		inner.Params = append(inner.Params, sfv.Parameter{Key: "expires", Value: cfg.Expires.Unix()})
	}

	if cfg.Nonce != "" {
		inner.Params = append(inner.Params, sfv.Parameter{Key: "nonce", Value: cfg.Nonce})
	}

	if keyID := cfg.Signer.KeyID(); keyID != "" {
		inner.Params = append(inner.Params, sfv.Parameter{Key: "keyid", Value: keyID})
	}

	if cfg.Tag != "" {
		inner.Params = append(inner.Params, sfv.Parameter{Key: "tag", Value: cfg.Tag})
	}

	return inner
}

// appendDictMember appends a key=value member to a structured dictionary
// header, keeping any members already present.
func appendDictMember(r *http.Request, header, key, value string) {
	entry := key + "=" + value

	if existing := r.Header.Get(header); existing != "" {
		r.Header.Set(header, existing+", "+entry)
	} else {
		r.Header.Set(header, entry)
	}
}
