// Package validator performs structural and semantic checks over package manifests and book documents.
//
// Checks never return a Go error. Every finding is reported through a [models.VerificationResult]
// as an [models.Issue] with a machine-readable code, and repeated calls over the same input produce identical results.
//
// Key functions:
//   - [ValidateManifest] : required fields, format version, testament counts, translations, checksums
//   - [ValidateBook] : canonical order, testament, chapter and verse counts, numbering
//   - [ParseChecksum] : sha256 digest parsing with placeholder rejection
//
// Only error-severity issues make a result invalid. Missing optional metadata is reported as a warning.
package validator
