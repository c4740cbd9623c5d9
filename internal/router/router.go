// Package router is a static registry mapping (method, path) to a
// handler, exact match only, immutable after construction. Grounded on
// bolt/core/router.go's static half ("Static routes: O(1) hash map
// lookup" keyed "METHOD:PATH") — the radix-tree / :param / *wildcard
// half of that file is not carried over, since wildcards and prefix
// matching are out of scope here.
package router

import "github.com/tyx3211/edgeserve/internal/httpcore"

// Handler processes a request that matched a registered route. It reads
// from conn.Request and writes the response through conn.Queue — it
// must never touch the socket directly.
type Handler func(conn *httpcore.Connection)

// Builder accumulates routes before Build freezes them. Router
// mutability is resolved by making the frozen *Router type have no
// Register method at all: there is no runtime path to mutate it after
// startup, only a compile-time one (construct a new Builder).
type Builder struct {
	routes map[string]Handler
}

// NewBuilder starts an empty route registry.
func NewBuilder() *Builder {
	return &Builder{routes: make(map[string]Handler)}
}

// Register adds an exact-match (method, path) route. Registering the
// same (method, path) twice replaces the earlier handler — this only
// happens at startup, before Build, so there is no concurrent-mutation
// hazard to guard against: the router is read-only after startup.
func (b *Builder) Register(method, path string, h Handler) *Builder {
	b.routes[key(method, path)] = h
	return b
}

// Build freezes the registry into an immutable Router.
func (b *Builder) Build() *Router {
	frozen := make(map[string]Handler, len(b.routes))
	for k, v := range b.routes {
		frozen[k] = v
	}
	return &Router{routes: frozen}
}

// Router is the immutable, exact-match (method, path) -> Handler
// registry produced by Builder.Build.
type Router struct {
	routes map[string]Handler
}

// Find performs an exact-match lookup: strcmp on method and strcmp on
// decoded path. No wildcards, no prefix matching.
func (r *Router) Find(method, decodedPath string) (Handler, bool) {
	h, ok := r.routes[key(method, decodedPath)]
	return h, ok
}

func key(method, path string) string {
	return method + " " + path
}
