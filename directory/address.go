package directory

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/sgnl-ai/ldapquery/ldaperr"
)

// allowedAddressSchemes are the only URL schemes a ConnectionFactory will dial.
var allowedAddressSchemes = []string{"ldap", "ldaps"}

// parseAndValidateAddress trims whitespace, parses address as a URL, and
// rejects anything outside allowedAddressSchemes, so a misconfigured or
// malicious factory address fails before a connection is ever attempted.
func parseAndValidateAddress(address string) (string, *url.URL, error) {
	trimmed := strings.TrimSpace(address)

	hasScheme := strings.Contains(trimmed, "://")

	var (
		parsed *url.URL
		err    error
	)

	if hasScheme {
		parsed, err = url.Parse(trimmed)
	} else {
		parsed, err = url.Parse("//" + trimmed)
	}

	if err != nil {
		return "", nil, ldaperr.InvalidArgument("invalid directory address %q", address)
	}

	if hasScheme && !slices.Contains(allowedAddressSchemes, parsed.Scheme) {
		return "", nil, ldaperr.InvalidArgument(fmt.Sprintf("scheme %q is not a supported directory address scheme", parsed.Scheme))
	}

	return trimmed, parsed, nil
}
