package route

import (
	"errors"

	"github.com/relaykit/relay/chain"
)

// ErrParamConflict is returned when a literal segment is registered where a
// parameter child already exists at that depth, or vice versa. relay
// surfaces this as a registration-time error so mis-registration is caught
// during configuration, not silently swallowed.
var ErrParamConflict = errors.New("route: literal and parameter children cannot coexist at the same depth")

// paramSlot records where in a route pattern a parameter was captured, so
// lookup can rebuild the params map by joining this list against the
// tokenized request path.
type paramSlot struct {
	index int
	name  string
}

// methodEntry is what a node stores per registered HTTP method: the
// composed middleware list and the parameter slots captured along the path
// to this node for that method's pattern.
type methodEntry struct {
	handlers []chain.Handler
	params   []paramSlot
}

// node is one route-tree node, keyed by path segment. children holds
// literal-keyed child nodes; paramChild is the at-most-one parameter child,
// kept as a dedicated field rather than a key-prefix scan so lookup's
// literal-vs-parameter precedence is structural rather than a search.
type node struct {
	children   map[string]*node
	paramChild *node
	paramName  string
	methods    map[string]*methodEntry
	endpoint   bool
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// descend returns the child reached by literal segment seg, creating it if
// needed. If seg is a parameter segment, the at-most-one-parameter-child
// invariant is enforced: a second, differently-named parameter child is
// rejected with ErrParamConflict. A parameter segment at a depth that
// already has any literal child, and a literal segment at a depth that
// already has a parameter child, are rejected with the same error.
func (n *node) descend(seg string) (*node, error) {
	name, isParamSeg := isParam(seg)
	if isParamSeg {
		if len(n.children) > 0 {
			// A literal child already occupies this depth.
			return nil, ErrParamConflict
		}
		if n.paramChild != nil {
			if n.paramName != name {
				return nil, ErrParamConflict
			}
			return n.paramChild, nil
		}
		n.paramChild = newNode()
		n.paramName = name
		return n.paramChild, nil
	}

	if n.paramChild != nil {
		return nil, ErrParamConflict
	}
	if child, ok := n.children[seg]; ok {
		return child, nil
	}
	child := newNode()
	n.children[seg] = child
	return child, nil
}

// matchChild resolves the next node during lookup: literal match wins
// (invariant 2), falling back to the parameter child when present. Returns
// the matched child, the captured parameter value (empty if the match was
// literal), and whether a child matched at all.
func (n *node) matchChild(seg string) (child *node, captured string, ok bool) {
	if c, found := n.children[seg]; found {
		return c, "", true
	}
	if n.paramChild != nil {
		return n.paramChild, seg, true
	}
	return nil, "", false
}

// setMethod stores the composed handler list and parameter slots for
// method M at this node and marks it as an endpoint. Re-registering the
// same method at an already-registered node is a no-op — the first
// handler list wins.
func (n *node) setMethod(method string, handlers []chain.Handler, params []paramSlot) {
	if n.methods == nil {
		n.methods = make(map[string]*methodEntry)
	}
	if _, exists := n.methods[method]; exists {
		return
	}
	n.methods[method] = &methodEntry{handlers: handlers, params: params}
	n.endpoint = true
}
