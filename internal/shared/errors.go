package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Service lifecycle errors
	ErrNotInitialized     = fmt.Errorf("service not initialized")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Pipeline errors, matching the import error taxonomy
	ErrValidation     = fmt.Errorf("validation failed")
	ErrNetwork        = fmt.Errorf("network request failed")
	ErrIntegrity      = fmt.Errorf("integrity check failed")
	ErrStorage        = fmt.Errorf("storage operation failed")
	ErrConflict       = fmt.Errorf("repository already exists")
	ErrSecurityPolicy = fmt.Errorf("rejected by security policy")
	ErrSizeLimit      = fmt.Errorf("size limit exceeded")
	ErrCancelled      = fmt.Errorf("operation cancelled")

	// Lookup errors
	ErrNotFound           = fmt.Errorf("not found")
	ErrRepositoryNotFound = fmt.Errorf("repository not found")
	ErrSourceNotFound     = fmt.Errorf("source not found")
	ErrManifestNotFound   = fmt.Errorf("manifest not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
