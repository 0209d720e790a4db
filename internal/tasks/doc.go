// Package tasks imports content packages into the local store with real-time progress reporting.
//
// # Pipeline
//
// [ImportEngine.Import] moves one package through four stages:
//
//  1. discovering : resolve the root manifest and, for a parent package, every translation manifest
//  2. validating  : run the validator over each manifest, enforce size limits, and reject id conflicts
//  3. downloading : fetch book documents concurrently and verify per-book and package checksums
//  4. processing  : decode and validate books, then write every row in a single transaction
//
// Any failure leaves the store unchanged. Errors are reported in [ImportResult.Errors],
// each prefixed with its class (ValidationError, NetworkError, IntegrityError, ...).
//
// # Progress Reporting
//
// The [ProgressUpdate] struct carries the stage, a 0..100 progress value, a message and book counters.
// Sends block until received or until the import context is done, so a slow reader throttles the import
// instead of dropping updates. The engine never closes the channel.
//
// # Concurrency
//
// Downloads from separate imports may overlap. Commits go through a single writer lock,
// so a second import waits for the first to finish writing.
package tasks
