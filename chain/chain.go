// Package chain implements relay's middleware execution engine: an ordered
// handler list driven by a cooperative "next" continuation, with a single
// catching error handler.
package chain

import (
	"fmt"

	"github.com/relaykit/relay/httperr"
	"github.com/relaykit/relay/message"
)

// Next is the continuation a Handler calls to advance the chain. Calling
// next(nil) runs the next handler in sequence (or ends the chain silently
// if this was the last one). Calling next(err) with a non-nil err jumps
// straight to the configured error handler.
type Next func(err error)

// Handler is the function signature for route handlers and middleware. It
// receives the request, the response, and the chain's continuation.
// A Handler must either produce a terminal write on res and not call next,
// or call next at most once; the engine does not defend against a handler
// that violates this, but Response itself refuses a second terminal write.
type Handler func(req *message.Request, res *message.Response, next Next)

// Middleware transforms a Handler into another Handler, for use with
// Compose. Route registration and global/prefix middleware take plain
// Handlers, not Middleware.
type Middleware func(Handler) Handler

// ErrorHandler is invoked with the error, the request, and the response
// when a handler raises a failure and an error handler is configured.
type ErrorHandler func(err error, req *message.Request, res *message.Response)

// Compose wraps h with mws in the order they are given: mws[0] runs first
// and calls next to reach mws[1], and so on, with h running last. This
// mirrors the teacher's right-to-left wrapping in app/router.go's handle.
func Compose(h Handler, mws ...Middleware) Handler {
	final := h
	for i := len(mws) - 1; i >= 0; i-- {
		final = mws[i](final)
	}
	return final
}

// Chain drives a fixed, ordered handler list for one request. It is not
// safe for concurrent use; one Chain belongs to one worker handling one
// request.
type Chain struct {
	handlers []Handler
	index    int
	onError  ErrorHandler
	errored  bool
	req      *message.Request
	res      *message.Response
}

// New builds a Chain over handlers for the given request/response pair,
// with onError as the optional single catching error handler (nil is
// valid: an unhandled error then propagates back to Run's caller).
func New(handlers []Handler, req *message.Request, res *message.Response, onError ErrorHandler) *Chain {
	return &Chain{handlers: handlers, req: req, res: res, onError: onError}
}

// Run starts the chain by invoking Next(nil). It returns any error that
// escaped the chain unhandled (no error handler configured, or the error
// handler itself panicked/raised).
func (c *Chain) Run() (escaped error) {
	defer func() {
		if r := recover(); r != nil {
			escaped = errorFromRecover(r)
		}
	}()
	c.Next(nil)
	return nil
}

// Next advances the chain. A non-nil err routes to the configured error
// handler; a nil err invokes the next handler in sequence, wrapped so a
// panicking handler is caught and treated as a raised error rather than
// crashing the worker.
func (c *Chain) Next(err error) {
	if err != nil {
		c.dispatchError(err)
		return
	}
	if c.index >= len(c.handlers) {
		return
	}
	h := c.handlers[c.index]
	c.index++
	c.invoke(h)
}

func (c *Chain) invoke(h Handler) {
	defer func() {
		if r := recover(); r != nil {
			c.dispatchError(errorFromRecover(r))
		}
	}()
	h(c.req, c.res, c.Next)
}

// dispatchError enforces at most one error-handler invocation per request.
// A second error arriving after the handler has already run — whether from
// a handler double-calling next(err) or from a panic inside the error
// handler itself — re-panics so it surfaces to the acceptor rather than
// silently vanishing.
func (c *Chain) dispatchError(err error) {
	if c.errored {
		panic(err)
	}
	c.errored = true
	if c.onError == nil {
		panic(err)
	}
	c.onError(err, c.req, c.res)
}

func errorFromRecover(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return httperr.Internal(fmt.Sprintf("%v", r))
}
