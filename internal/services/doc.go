// Package services locates and fetches content packages.
//
// # Discovery
//
// [Discovery] merges the indexes published by each enabled [RepositorySource]. Official sources mark
// their entries as verified, third-party sources never do, and local sources read an index.json from
// disk or fall back to scanning the directory for manifests. Sources are fetched concurrently and a
// failing source only fails discovery when every other source fails too.
//
// Manifests are resolved from http(s) URLs, file:// URLs or paths. A location naming a directory is
// probed for manifest.json, manifest.yaml and manifest.yml in that order. Decoded manifests are cached
// by location until [Discovery.ClearCache].
//
// # Fetching
//
// [Fetcher] enforces the [models.SecurityPolicy] before any network request:
//   - only https unless AllowHTTP is set
//   - blocked domains and their subdomains are rejected
//   - a non-empty allow list admits only its domains and their subdomains
//   - responses and local files larger than MaxFileSize are rejected
//
// Requests are rate limited with [rate.Limiter]. Sources carrying a token are fetched through an
// [oauth2] static token client so the bearer header is attached on every request.
//
// # Error Handling
//
// Failures wrap shared sentinels:
//   - [shared.ErrSecurityPolicy] : URL rejected by policy
//   - [shared.ErrNetwork] : transport error or non-2xx status
//   - [shared.ErrNotFound] : missing file or 404
//   - [shared.ErrSizeLimit] : document larger than allowed
//   - [shared.ErrValidation] : document could not be decoded
package services
