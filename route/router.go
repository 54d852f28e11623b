package route

import (
	"errors"
	"strings"

	"github.com/relaykit/relay/chain"
	"github.com/relaykit/relay/httperr"
)

// ErrMountConflict is returned by Mount when a sub-router's subtree cannot
// be attached because the parent already has a node at that key. relay
// does not deep-merge: on any collision Mount attaches nothing and reports
// the conflict instead of silently dropping the sub-route.
var ErrMountConflict = errors.New("route: mount target already has a child at this path")

// globalEntry is one (prefix, middleware list) registration from Use. A
// slice, not a map, because matching prefixes must be scanned in
// registration order — Go map iteration order would not preserve that.
type globalEntry struct {
	prefix     string
	middleware []chain.Handler
}

// Router owns one route tree and the global-middleware registrations that
// apply to routes registered after them.
type Router struct {
	root    *node
	globals []globalEntry
}

// New returns an empty Router.
func New() *Router {
	return &Router{root: newNode()}
}

// Use registers global middleware under prefix "/", equivalent to
// Use("/", handlers...).
func (r *Router) Use(handlers ...chain.Handler) {
	r.UsePrefix("/", handlers...)
}

// UsePrefix registers global middleware scoped to prefix. This affects only
// routes registered *after* this call, and among them every route when
// prefix is "/", otherwise those whose pattern begins with prefix —
// registration order is the single source of truth, and there is no
// retroactive application to already-registered routes.
func (r *Router) UsePrefix(prefix string, handlers ...chain.Handler) {
	if len(handlers) == 0 {
		return
	}
	r.globals = append(r.globals, globalEntry{prefix: prefix, middleware: handlers})
}

// Handle registers handlers for method M at pattern, composing the
// effective middleware list from every matching global prefix's middleware
// (in registration order) followed by handlers. Returns ErrParamConflict
// if the pattern conflicts with an existing parameter shape in the tree.
func (r *Router) Handle(method, pattern string, handlers ...chain.Handler) error {
	segs := split(pattern)

	cur := r.root
	params := make([]paramSlot, 0)
	for i, seg := range segs {
		if name, ok := isParam(seg); ok {
			params = append(params, paramSlot{index: i, name: name})
		}
		next, err := cur.descend(seg)
		if err != nil {
			return err
		}
		cur = next
	}

	effective := r.composeGlobals(pattern)
	effective = append(effective, handlers...)
	cur.setMethod(method, effective, params)
	return nil
}

// composeGlobals scans registered global-middleware entries in insertion
// order and appends the middleware of every entry whose prefix is "/" or a
// prefix of pattern.
func (r *Router) composeGlobals(pattern string) []chain.Handler {
	var out []chain.Handler
	for _, g := range r.globals {
		if g.prefix == "/" || strings.HasPrefix(pattern, g.prefix) {
			out = append(out, g.middleware...)
		}
	}
	return out
}

// Mount attaches sub's route tree beneath prefix on r, and rebases sub's
// global-middleware registrations into r's global list under prefix. This does not
// retroactively recompose the middleware chains of routes sub already
// registered (they keep what they were composed with at their own
// registration time); it only affects r's own future registrations under
// the rebased prefixes. The attach is atomic: every child, the parameter
// child, and the root endpoint are checked for conflicts against target
// before anything is mutated, so a conflict leaves target untouched.
func (r *Router) Mount(prefix string, sub *Router) error {
	segs := split(prefix)
	target := r.root
	for _, seg := range segs {
		next, err := target.descend(seg)
		if err != nil {
			return err
		}
		target = next
	}

	for key := range sub.root.children {
		if _, exists := target.children[key]; exists {
			return ErrMountConflict
		}
	}
	if sub.root.paramChild != nil && target.paramChild != nil {
		return ErrMountConflict
	}
	// The sub-router's own root may itself be an endpoint (routes
	// registered at "/" on sub), which becomes the endpoint at prefix.
	if sub.root.endpoint && target.endpoint {
		return ErrMountConflict
	}

	for key, child := range sub.root.children {
		if target.children == nil {
			target.children = make(map[string]*node)
		}
		target.children[key] = child
	}
	if sub.root.paramChild != nil {
		target.paramChild = sub.root.paramChild
		target.paramName = sub.root.paramName
	}
	if sub.root.endpoint {
		target.methods = sub.root.methods
		target.endpoint = true
	}

	cleanPrefix := "/" + strings.Join(segs, "/")
	if len(segs) == 0 {
		cleanPrefix = "/"
	}
	for _, g := range sub.globals {
		rebased := rebasePrefix(cleanPrefix, g.prefix)
		r.globals = append(r.globals, globalEntry{prefix: rebased, middleware: g.middleware})
	}
	return nil
}

func rebasePrefix(mountPrefix, subPrefix string) string {
	if subPrefix == "/" {
		return mountPrefix
	}
	if mountPrefix == "/" {
		return subPrefix
	}
	return strings.TrimRight(mountPrefix, "/") + subPrefix
}

// Lookup resolves (path, method) to the composed handler list and the
// extracted path parameters. It returns httperr.NotFound when no endpoint
// node matches, and httperr.MethodNotAllowed when an endpoint node matches
// but has no handler for method.
func (r *Router) Lookup(path, method string) ([]chain.Handler, map[string]string, error) {
	segs := split(path)

	cur := r.root
	for _, seg := range segs {
		child, _, ok := cur.matchChild(seg)
		if !ok {
			return nil, nil, httperr.NotFoundf(method, path)
		}
		cur = child
	}

	if !cur.endpoint {
		return nil, nil, httperr.NotFoundf(method, path)
	}
	entry, ok := cur.methods[method]
	if !ok {
		return nil, nil, httperr.MethodNotAllowedf(method, path)
	}

	params := make(map[string]string, len(entry.params))
	for _, slot := range entry.params {
		params[slot.name] = segs[slot.index]
	}
	return entry.handlers, params, nil
}
