// Package library is the single entry point used by the CLI, the TUI and the HTTP API.
//
// A [Service] owns the database connection, the discovery service with its manifest cache,
// and the import engine. Create one with [New], call [Service.Init] before use and
// [Service.Shutdown] when done. Calls outside that window fail with [shared.ErrNotInitialized].
//
// The source list is stored as JSON in the "discovery.sources" user setting so that
// changes made through [Service.AddSource], [Service.RemoveSource] and [Service.EnableSource]
// survive restarts. Configured sources are used until the first change is saved.
package library
