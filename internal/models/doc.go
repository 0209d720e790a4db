// Package models defines domain entities and interchange documents for versehub.
//
// The package contains three categories of types:
//
// 1. Interchange documents: structs decoded from package files
//   - [Manifest] : package identity, content summary and technical metadata
//   - [BookDocument] : one book with its chapters and verses
//   - [RepositoryIndex] : a source's listing of available packages
//
// 2. Persistent entities: rows owned by the storage layer
//   - [Repository] : an imported package, of kind parent or translation
//   - [TranslationLink] : join record from a parent to one of its translations
//   - [Book] : one canonical book of a repository
//   - [Verse] : one verse of text
//   - [UserSetting] : opaque key/value pair
//
// 3. Value objects consulted by the pipeline
//   - [SecurityPolicy] : transport, domain and size limits
//   - [VerificationResult] : non-throwing validator output
//   - [Canon] : the canonical 66-book ordering
//
// Entities implement Validate so the repositories package can reject malformed rows before they reach SQLite.
package models
