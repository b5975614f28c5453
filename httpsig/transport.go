package httpsig

import "net/http"

// Transport is an http.RoundTripper that signs outgoing requests. It is
// the client half of the admission layer: device SDKs wrap their HTTP
// client with it so every request carries a message signature.
type Transport struct {
	base   http.RoundTripper
	config SignConfig
}

// NewTransport creates a signing Transport that delegates to base after
// signing each request. When base is nil, a clone of
// http.DefaultTransport is used, giving an independent connection pool
// with default proxy, TLS and timeout settings.
func NewTransport(base *http.Transport, cfg SignConfig) *Transport {
	var rt http.RoundTripper
	if base != nil {
		rt = base
	} else {
		rt = http.DefaultTransport.(*http.Transport).Clone()
	}

	return &Transport{base: rt, config: cfg}
}

// RoundTrip signs the request and delegates to the base transport. The
// request is cloned before signing to avoid mutating the caller's copy;
// when GetBody is available the clone gets its own body so digest
// computation does not consume the original.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if clone.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}

		clone.Body = body
	}

	if err := SignRequest(clone, t.config); err != nil {
		return nil, err
	}

	return t.base.RoundTrip(clone)
}
