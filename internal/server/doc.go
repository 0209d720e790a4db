// Package server exposes the library over a local JSON HTTP API.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
// [Middleware] wraps handlers in reverse order (last added executes first).
// The [BasicRouter] implementation uses [http.ServeMux] method patterns, so a path
// may be registered once per method and other methods get 405 responses.
//
// # Endpoints
//
//	GET    /api/discover                 repositories advertised by enabled sources
//	GET    /api/manifest?url=            fetch a manifest
//	GET    /api/validate?url=            validate a manifest
//	GET    /api/scan?path=               find packages below a local directory
//	POST   /api/import                   run an import, streaming NDJSON events
//	GET    /api/sources                  list sources (tokens redacted)
//	POST   /api/sources                  add a source
//	DELETE /api/sources?name=            remove a source
//	POST   /api/sources/enable           enable or disable a source
//	POST   /api/cache/clear              drop cached manifests
//	GET    /api/repositories             list stored repositories
//	GET    /api/chapter?repository=&book=&chapter=
//
// # Import Streaming
//
// POST /api/import answers with application/x-ndjson. Each line is a [StreamEvent]:
// zero or more "progress" events followed by exactly one "result" event.
// Closing the connection cancels the import.
//
// Errors are JSON objects of the form {"error": "..."} with a status derived from the error class.
package server
