package server

import (
	"net/http"
	"path"
	"strings"

	"github.com/relaykit/relay/chain"
)

// Group is prefix + middleware composition sugar over App.Handle, mirroring
// goflash's app/group.go. Unlike App.UsePrefix (which affects every route
// whose pattern happens to match a prefix string), a Group's middleware is
// inherited structurally: every route registered through the group, and
// through any group nested under it, carries the group's middleware.
type Group struct {
	app        *App
	prefix     string
	middleware []chain.Handler
}

// Group creates a route group rooted at prefix on a, with optional
// group-level middleware applied to every route registered on it.
func (a *App) Group(prefix string, middleware ...chain.Handler) *Group {
	return &Group{app: a, prefix: cleanPath(prefix), middleware: middleware}
}

// Use appends middleware to the group, applied in registration order before
// any route-specific middleware passed to a method call. It reaches routes
// registered on g afterwards; groups already nested under g copied g's
// middleware when they were created and do not receive it.
func (g *Group) Use(middleware ...chain.Handler) {
	g.middleware = append(g.middleware, middleware...)
}

// Group creates a nested group under g, inheriting g's middleware followed
// by any middleware passed here.
func (g *Group) Group(prefix string, middleware ...chain.Handler) *Group {
	child := &Group{app: g.app, prefix: joinPath(g.prefix, prefix)}
	child.middleware = append(child.middleware, g.middleware...)
	child.middleware = append(child.middleware, middleware...)
	return child
}

func (g *Group) handle(method, p string, handlers ...chain.Handler) {
	all := make([]chain.Handler, 0, len(g.middleware)+len(handlers))
	all = append(all, g.middleware...)
	all = append(all, handlers...)
	g.app.Handle(method, joinPath(g.prefix, p), all...)
}

// GET registers handlers for HTTP GET at the group's prefix + p.
func (g *Group) GET(p string, handlers ...chain.Handler) { g.handle(http.MethodGet, p, handlers...) }

// POST registers handlers for HTTP POST at the group's prefix + p.
func (g *Group) POST(p string, handlers ...chain.Handler) { g.handle(http.MethodPost, p, handlers...) }

// PUT registers handlers for HTTP PUT at the group's prefix + p.
func (g *Group) PUT(p string, handlers ...chain.Handler) { g.handle(http.MethodPut, p, handlers...) }

// PATCH registers handlers for HTTP PATCH at the group's prefix + p.
func (g *Group) PATCH(p string, handlers ...chain.Handler) { g.handle(http.MethodPatch, p, handlers...) }

// DELETE registers handlers for HTTP DELETE at the group's prefix + p.
func (g *Group) DELETE(p string, handlers ...chain.Handler) { g.handle(http.MethodDelete, p, handlers...) }

// OPTIONS registers handlers for HTTP OPTIONS at the group's prefix + p.
func (g *Group) OPTIONS(p string, handlers ...chain.Handler) {
	g.handle(http.MethodOptions, p, handlers...)
}

// HEAD registers handlers for HTTP HEAD at the group's prefix + p.
func (g *Group) HEAD(p string, handlers ...chain.Handler) { g.handle(http.MethodHead, p, handlers...) }

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func joinPath(prefix, p string) string {
	if prefix == "" || prefix == "/" {
		return cleanPath(p)
	}
	if p == "" || p == "/" {
		return cleanPath(prefix)
	}
	return cleanPath(strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(p, "/"))
}
