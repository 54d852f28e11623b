// Package relay re-exports the small set of types and the constructor
// applications need from relay/server, so that day-to-day usage only
// imports the root package.
package relay

import (
	"github.com/relaykit/relay/chain"
	"github.com/relaykit/relay/message"
	"github.com/relaykit/relay/server"
)

// App is the main application/router. Re-exported from server.App.
type App = server.App

// Group is a route group for organizing routes under a shared prefix and
// middleware stack. Re-exported from server.Group.
type Group = server.Group

// Handler is the function signature for routes and middleware after
// composition. Re-exported from chain.Handler.
type Handler = chain.Handler

// Middleware transforms a Handler, enabling composition. Re-exported from
// chain.Middleware.
type Middleware = chain.Middleware

// ErrorHandler handles errors surfaced from a chain. Re-exported from
// chain.ErrorHandler.
type ErrorHandler = chain.ErrorHandler

// Next is the continuation a handler calls to pass control (and optionally
// an error) to the next link in the chain. Re-exported from chain.Next.
type Next = chain.Next

// Request is the per-request value handlers and middleware read from.
// Re-exported from message.Request.
type Request = message.Request

// Response is the single-use value handlers and middleware write to.
// Re-exported from message.Response.
type Response = message.Response

// Option configures an App at construction time. Re-exported from
// server.Option.
type Option = server.Option

// New creates a new App with sensible defaults. Re-exported from
// server.New.
func New(opts ...Option) *App { return server.New(opts...) }
