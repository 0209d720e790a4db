// Package repositories implements SQLite persistence for imported content.
//
// Every store is bound to a [DBTX], so the same code runs against the shared connection or inside a transaction.
// The importer stages all writes for a package through [InTx], which either commits every row or none.
//
// Key Implementations:
//   - [RepositoryStore] : package rows, cascade deletes and aggregated counts
//   - [TranslationStore] : parent-to-translation links with revocation
//   - [BookStore] : books in canonical order, resolvable by id, abbreviation or name
//   - [VerseStore] : verse text, unique per (repository, book, chapter, verse)
//   - [SettingStore] : opaque key/value user settings
//
// Constraint failures from the driver are mapped onto shared sentinel errors:
// UNIQUE violations become [shared.ErrConflict] and dangling references [shared.ErrRepositoryNotFound].
package repositories
