// Package middleware ships relay's reference middleware: the same
// cross-cutting building blocks the teacher repo provides (recovery,
// request ids, structured logging, tracing, JWT auth), adapted from
// goflash's wrap-a-Handler middleware shape to relay's flat handler-list
// chain, where each middleware is itself a chain.Handler that calls next
// to continue.
package middleware

import (
	"net/http"

	"github.com/relaykit/relay/chain"
	"github.com/relaykit/relay/message"
)

// Recover returns a handler that converts a panic propagating out of its
// next(nil) call (the chain engine re-raises a failure from a later handler
// when no error handler takes it) into a 500 response, if nothing has been
// written yet.
// Grounded on goflash's middleware/recover.go.
func Recover() chain.Handler {
	return func(req *message.Request, res *message.Response, next chain.Next) {
		defer func() {
			if r := recover(); r != nil && !res.Finished() {
				res.Status(http.StatusInternalServerError)
				_ = res.Send(http.StatusText(http.StatusInternalServerError))
			}
		}()
		next(nil)
	}
}
