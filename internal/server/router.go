package server

import (
	"net/http"
	"slices"
	"strings"
)

// BasicRouter implements [Router] on top of [http.ServeMux] method patterns,
// so a path registered for GET answers other methods with 405.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	routes      []string
}

func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. Only routes registered after the call are wrapped.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers "METHOD path" wrapped in the current middleware stack.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	pattern := strings.ToUpper(method) + " " + path
	r.mux.Handle(pattern, r.Apply(handler))
	r.routes = append(r.routes, pattern)
}

func (r *BasicRouter) Handler(handler Handler) {
	handler.Register(r)
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Routes returns the registered patterns, sorted.
func (r *BasicRouter) Routes() []string {
	routes := slices.Clone(r.routes)
	slices.Sort(routes)
	return routes
}

// Apply wraps handler so the first middleware added is the outermost.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	for _, mw := range slices.Backward(r.middlewares) {
		handler = mw(handler)
	}
	return handler
}
