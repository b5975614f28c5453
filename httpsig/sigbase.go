package httpsig

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/attestlab/edgegate/sfv"
)

// buildCanonicalMessage produces the exact text the signature covers: one
// `"<component-id>": <value>` line per resolved component value, then the
// `"@signature-params"` line carrying the canonical serialization of the
// signature input. Lines are joined with LF and there is no trailing
// newline. The output is deterministic for an unchanged request.
func buildCanonicalMessage(r *http.Request, meta *signatureMetadata) (string, error) {
	var lines []string

	for _, comp := range meta.components {
		id, err := comp.identifier()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrMalformedHeader, err)
		}

		values, err := comp.resolve(r)
		if err != nil {
			return "", err
		}

		for _, value := range values {
			lines = append(lines, id+": "+value)
		}
	}

	sigParams, err := sfv.SerializeInnerList(meta.sigParams)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}

	lines = append(lines, `"@signature-params": `+sigParams)

	return strings.Join(lines, "\n"), nil
}
