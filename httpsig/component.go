package httpsig

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/attestlab/edgegate/sfv"
)

// Derived component identifiers per RFC 9421 Section 2.2.
const (
	ComponentMethod        = "@method"
	ComponentTargetURI     = "@target-uri"
	ComponentAuthority     = "@authority"
	ComponentScheme        = "@scheme"
	ComponentPath          = "@path"
	ComponentQuery         = "@query"
	ComponentQueryParam    = "@query-param"
	ComponentRequestTarget = "@request-target"
)

// component is one covered component: its identifier name plus the
// resolution parameters (sf, key, name) it was declared with.
type component struct {
	name   string
	params []sfv.Parameter
}

// identifier returns the serialized component identifier exactly as it
// appears on the left of a canonical message line, quotes included.
func (c component) identifier() (string, error) {
	return sfv.SerializeItem(sfv.Item{Value: c.name, Params: c.params})
}

// param returns the named resolution parameter value, or nil.
func (c component) param(key string) any {
	for _, p := range c.params {
		if p.Key == key {
			return p.Value
		}
	}

	return nil
}

// resolve extracts the component's value(s) from the request. Derived
// components resolve to exactly one value; @query-param and header fields
// may resolve to several, one canonical line each.
func (c component) resolve(r *http.Request) ([]string, error) {
	if strings.HasPrefix(c.name, "@") {
		return c.resolveDerived(r)
	}

	return c.resolveField(r)
}

func (c component) resolveDerived(r *http.Request) ([]string, error) {
	switch c.name {
	case ComponentMethod:
		return []string{strings.ToUpper(r.Method)}, nil

	case ComponentTargetURI:
		return []string{targetURI(r)}, nil

	case ComponentAuthority:
		return []string{authority(r)}, nil

	case ComponentScheme:
		return []string{scheme(r)}, nil

	case ComponentPath:
		return []string{requestPath(r)}, nil

	case ComponentQuery:
		return []string{"?" + r.URL.RawQuery}, nil

	case ComponentRequestTarget:
		return []string{requestTarget(r)}, nil

	case ComponentQueryParam:
		return c.resolveQueryParam(r)

	default:
		return nil, fmt.Errorf("%w: unknown derived component %q", ErrUnresolvableComponent, c.name)
	}
}

// resolveQueryParam resolves @query-param;name="x". The name parameter is
// mandatory and the query string must carry at least one value for it.
// Repeated parameters resolve to one line per value, in request order.
func (c component) resolveQueryParam(r *http.Request) ([]string, error) {
	name, ok := c.param("name").(string)
	if !ok {
		return nil, fmt.Errorf("%w: @query-param requires a name parameter", ErrUnresolvableComponent)
	}

	values, ok := r.URL.Query()[name]
	if !ok {
		return nil, fmt.Errorf("%w: query parameter %q not present", ErrUnresolvableComponent, name)
	}

	return values, nil
}

// resolveField resolves a header field component. The sf parameter forces
// structured-field reserialization; the key parameter selects a single
// dictionary member; otherwise instances are trimmed and joined with ", ".
func (c component) resolveField(r *http.Request) ([]string, error) {
	if !httpguts.ValidHeaderFieldName(c.name) {
		return nil, fmt.Errorf("%w: invalid header field name %q", ErrUnresolvableComponent, c.name)
	}

	values := r.Header.Values(c.name)

	if len(values) == 0 && strings.EqualFold(c.name, "host") && r.Host != "" {
		values = []string{r.Host}
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("%w: header %q not present", ErrUnresolvableComponent, c.name)
	}

	combined := combineFieldValues(values)

	if key, ok := c.param("key").(string); ok {
		value, err := dictionaryMember(combined, key)
		if err != nil {
			return nil, err
		}

		return []string{value}, nil
	}

	if sf, ok := c.param("sf").(bool); ok && sf {
		value, err := reserializeStructured(combined)
		if err != nil {
			return nil, err
		}

		return []string{value}, nil
	}

	return []string{combined}, nil
}

// combineFieldValues trims each instance and joins them with ", ",
// the canonical multi-instance form of RFC 9421 Section 2.1.
func combineFieldValues(values []string) string {
	trimmed := make([]string, len(values))
	for i, v := range values {
		trimmed[i] = strings.TrimSpace(v)
	}

	return strings.Join(trimmed, ", ")
}

// dictionaryMember parses raw as a structured dictionary and returns the
// canonical serialization of the named member.
func dictionaryMember(raw, key string) (string, error) {
	dict, err := sfv.ParseDictionary(raw)
	if err != nil {
		return "", fmt.Errorf("%w: field is not a structured dictionary: %v", ErrUnresolvableComponent, err)
	}

	member, ok := dict.Get(key)
	if !ok {
		return "", fmt.Errorf("%w: dictionary key %q not present", ErrUnresolvableComponent, key)
	}

	switch v := member.(type) {
	case sfv.Item:
		s, err := sfv.SerializeItem(v)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnresolvableComponent, err)
		}

		return s, nil

	case sfv.InnerList:
		s, err := sfv.SerializeInnerList(v)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnresolvableComponent, err)
		}

		return s, nil

	default:
		return "", fmt.Errorf("%w: unexpected dictionary member type", ErrUnresolvableComponent)
	}
}

// reserializeStructured parses raw as structured data and returns its
// canonical serialization, trying dictionary, then list, then item.
func reserializeStructured(raw string) (string, error) {
	if dict, err := sfv.ParseDictionary(raw); err == nil {
		if s, err := sfv.SerializeDictionary(dict); err == nil {
			return s, nil
		}
	}

	if list, err := sfv.ParseList(raw); err == nil {
		if s, err := sfv.SerializeList(list); err == nil {
			return s, nil
		}
	}

	if item, err := sfv.ParseItem(raw); err == nil {
		if s, err := sfv.SerializeItem(item); err == nil {
			return s, nil
		}
	}

	return "", fmt.Errorf("%w: field is not valid structured data", ErrUnresolvableComponent)
}

// authority returns the lowercased host[:port] for the request.
func authority(r *http.Request) string {
	if r.Host != "" {
		return strings.ToLower(r.Host)
	}

	if r.URL != nil && r.URL.Host != "" {
		return strings.ToLower(r.URL.Host)
	}

	return ""
}

// scheme returns "https" for TLS requests, otherwise the URL scheme or
// "http".
func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}

	if r.URL != nil && r.URL.Scheme != "" {
		return strings.ToLower(r.URL.Scheme)
	}

	return "http"
}

func requestPath(r *http.Request) string {
	if r.URL.Path == "" {
		return "/"
	}

	return r.URL.Path
}

// targetURI reconstructs the full target URI from the request's own
// fields, never from a client-supplied header.
func targetURI(r *http.Request) string {
	uri := scheme(r) + "://" + authority(r) + requestPath(r)
	if r.URL.RawQuery != "" {
		uri += "?" + r.URL.RawQuery
	}

	return uri
}

// requestTarget returns the origin-form target: path plus optional query.
func requestTarget(r *http.Request) string {
	target := requestPath(r)
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	return target
}
