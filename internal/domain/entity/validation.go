package entity

import (
	"fmt"
	"net/url"
)

// MaxURLLength bounds stored feed URLs.
const MaxURLLength = 2048

// ValidateFeedURL accepts absolute http(s) URLs with a host. The ledger only
// records URLs that were already fetched, so nothing is resolved here.
func ValidateFeedURL(raw string) error {
	invalid := func(format string, args ...any) error {
		return &ValidationError{Field: "url", Message: fmt.Sprintf(format, args...)}
	}

	switch {
	case raw == "":
		return invalid("is required")
	case len(raw) > MaxURLLength:
		return invalid("is longer than %d bytes", MaxURLLength)
	}

	u, err := url.Parse(raw)
	switch {
	case err != nil:
		return invalid("cannot be parsed: %v", err)
	case u.Scheme != "http" && u.Scheme != "https":
		return invalid("scheme %q is not http or https", u.Scheme)
	case u.Host == "":
		return invalid("has no host")
	}
	return nil
}
