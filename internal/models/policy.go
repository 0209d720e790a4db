package models

// SecurityPolicy holds the static limits and allow/deny rules consulted before any fetch.
//
// An empty AllowedDomains list allows every host; BlockedDomains is always enforced.
type SecurityPolicy struct {
	AllowHTTP         bool     `json:"allow_http"`
	MaxRepositorySize int64    `json:"max_repository_size"`
	MaxFileSize       int64    `json:"max_file_size"`
	AllowedDomains    []string `json:"allowed_domains"`
	BlockedDomains    []string `json:"blocked_domains"`
	RequireChecksums  bool     `json:"require_checksums"`
}

const (
	DefaultMaxRepositorySize int64 = 500 << 20
	DefaultMaxFileSize       int64 = 50 << 20
)

// DefaultSecurityPolicy returns an HTTPS-only policy with 500 MiB package and 50 MiB file ceilings.
func DefaultSecurityPolicy() SecurityPolicy {
	return SecurityPolicy{
		MaxRepositorySize: DefaultMaxRepositorySize,
		MaxFileSize:       DefaultMaxFileSize,
	}
}

// WithDefaults fills zero size ceilings with the defaults.
func (p SecurityPolicy) WithDefaults() SecurityPolicy {
	if p.MaxRepositorySize <= 0 {
		p.MaxRepositorySize = DefaultMaxRepositorySize
	}
	if p.MaxFileSize <= 0 {
		p.MaxFileSize = DefaultMaxFileSize
	}
	return p
}
