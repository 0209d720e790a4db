package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/desertthunder/versehub/internal/models"
	"github.com/desertthunder/versehub/internal/shared"
)

// Fetcher reads documents from http(s) URLs, file:// URLs and filesystem paths under a [models.SecurityPolicy].
//
// Network reads are rate limited and capped at the policy's MaxFileSize.
type Fetcher struct {
	httpClient *http.Client
	policy     models.SecurityPolicy
	limiter    *rate.Limiter
	logger     *log.Logger
}

// FetcherOption configures a [Fetcher].
type FetcherOption func(*Fetcher)

// WithHTTPClient sets the client used for network fetches.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithRateLimit caps network requests per second. Zero or less disables limiting.
func WithRateLimit(rps float64) FetcherOption {
	return func(f *Fetcher) {
		if rps <= 0 {
			f.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithFetchLogger sets the logger for request tracing.
func WithFetchLogger(l *log.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher creates a Fetcher enforcing policy.
func NewFetcher(policy models.SecurityPolicy, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		httpClient: http.DefaultClient,
		policy:     policy.WithDefaults(),
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     shared.NewLogger(io.Discard),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.httpClient = f.guardRedirects(f.httpClient)
	return f
}

// guardRedirects returns a copy of c that applies the policy to every redirect target.
func (f *Fetcher) guardRedirects(c *http.Client) *http.Client {
	guarded := *c
	next := c.CheckRedirect
	guarded.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if _, err := CheckURL(f.policy, req.URL.String()); err != nil {
			return fmt.Errorf("redirect rejected: %w", err)
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		return nil
	}
	return &guarded
}

// Policy returns the enforced security policy.
func (f *Fetcher) Policy() models.SecurityPolicy {
	return f.policy
}

// Fetch returns the bytes at location.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	return f.FetchWithToken(ctx, location, "")
}

// FetchWithToken fetches location, sending token as a bearer credential on network requests.
func (f *Fetcher) FetchWithToken(ctx context.Context, location, token string) ([]byte, error) {
	if IsRemote(location) {
		return f.fetchRemote(ctx, location, token)
	}

	p, err := LocalPath(location)
	if err != nil {
		return nil, err
	}
	return f.fetchLocal(p)
}

func (f *Fetcher) fetchRemote(ctx context.Context, location, token string) ([]byte, error) {
	u, err := CheckURL(f.policy, location)
	if err != nil {
		return nil, err
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", shared.ErrNetwork, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")

	client := f.httpClient
	if token != "" {
		client = f.tokenClient(ctx, token)
	}

	resp, err := client.Do(req)
	if errors.Is(err, shared.ErrSecurityPolicy) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %w: %s", shared.ErrNetwork, shared.ErrNotFound, u.Redacted())
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %s returned status %d", shared.ErrNetwork, u.Redacted(), resp.StatusCode)
	}

	if resp.ContentLength > f.policy.MaxFileSize {
		return nil, fmt.Errorf("%w: %s declares %d bytes (max %d)", shared.ErrSizeLimit, u.Redacted(), resp.ContentLength, f.policy.MaxFileSize)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.policy.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %w", shared.ErrNetwork, err)
	}
	if int64(len(body)) > f.policy.MaxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", shared.ErrSizeLimit, u.Redacted(), f.policy.MaxFileSize)
	}

	f.logger.Debug("fetched", "url", u.Redacted(), "bytes", len(body))
	return body, nil
}

// tokenClient wraps the configured client with a static bearer token source.
//
// oauth2 keeps only the transport, so the timeout and redirect guard are copied over.
func (f *Fetcher) tokenClient(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}))
	client.Timeout = f.httpClient.Timeout
	client.CheckRedirect = f.httpClient.CheckRedirect
	return client
}

func (f *Fetcher) fetchLocal(p string) ([]byte, error) {
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", shared.ErrInvalidArgument, p)
	}
	if info.Size() > f.policy.MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", shared.ErrSizeLimit, p, info.Size(), f.policy.MaxFileSize)
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p, err)
	}
	f.logger.Debug("read", "path", p, "bytes", len(data))
	return data, nil
}

// IsRemote reports whether location is an http or https URL.
func IsRemote(location string) bool {
	l := strings.ToLower(strings.TrimSpace(location))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// LocalPath converts a file:// URL or plain path to a filesystem path.
//
// Other URL schemes are rejected as a security policy violation.
func LocalPath(location string) (string, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", fmt.Errorf("%w: empty location", shared.ErrInvalidArgument)
	}

	if strings.HasPrefix(strings.ToLower(location), "file://") {
		u, err := url.Parse(location)
		if err != nil {
			return "", fmt.Errorf("%w: invalid file url %q: %v", shared.ErrInvalidArgument, location, err)
		}
		return filepath.FromSlash(u.Path), nil
	}

	if i := strings.Index(location, "://"); i > 0 {
		return "", fmt.Errorf("%w: unsupported scheme %q", shared.ErrSecurityPolicy, location[:i])
	}
	return location, nil
}

// JoinLocation appends path elements to a URL or filesystem location.
func JoinLocation(base string, elem ...string) string {
	if IsRemote(base) {
		u, err := url.Parse(base)
		if err != nil {
			return strings.TrimSuffix(base, "/") + "/" + path.Join(elem...)
		}
		return u.JoinPath(elem...).String()
	}

	p, err := LocalPath(base)
	if err != nil {
		p = base
	}
	parts := append([]string{p}, elem...)
	return filepath.Join(parts...)
}

// ParentLocation returns the location of the directory containing location.
func ParentLocation(location string) string {
	if IsRemote(location) {
		u, err := url.Parse(location)
		if err != nil {
			return location
		}
		u.Path = strings.TrimSuffix(path.Dir(u.Path), "/")
		u.RawPath = ""
		u.RawQuery = ""
		return u.String()
	}

	p, err := LocalPath(location)
	if err != nil {
		p = location
	}
	return filepath.Dir(p)
}

// baseName returns the final element of a URL path or filesystem path.
func baseName(location string) string {
	if IsRemote(location) {
		if u, err := url.Parse(location); err == nil {
			return path.Base(u.Path)
		}
	}
	p, err := LocalPath(location)
	if err != nil {
		p = location
	}
	return filepath.Base(p)
}
