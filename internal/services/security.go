package services

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/shared"
)

// CheckURL parses raw and enforces the policy's scheme and domain rules.
//
// Domains match case-insensitively and include subdomains. Blocked domains are
// checked before the allow list, and an empty allow list admits every host.
func CheckURL(p models.SecurityPolicy, raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid url %q: %v", shared.ErrSecurityPolicy, raw, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "https":
	case "http":
		if !p.AllowHTTP {
			return nil, fmt.Errorf("%w: insecure url %s (http not allowed)", shared.ErrSecurityPolicy, u.Redacted())
		}
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", shared.ErrSecurityPolicy, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("%w: url %q has no host", shared.ErrSecurityPolicy, raw)
	}

	for _, d := range p.BlockedDomains {
		if matchesDomain(host, d) {
			return nil, fmt.Errorf("%w: domain %s is blocked", shared.ErrSecurityPolicy, host)
		}
	}

	if len(p.AllowedDomains) == 0 {
		return u, nil
	}
	for _, d := range p.AllowedDomains {
		if matchesDomain(host, d) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: domain %s is not in the allow list", shared.ErrSecurityPolicy, host)
}

// matchesDomain reports whether host equals domain or is one of its subdomains.
func matchesDomain(host, domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
