// Package server wires route.Router and chain.Chain to a raw TCP listener:
// the acceptor loop, a fixed worker pool, and the App registration surface
// applications use to build a route tree, grounded on the teacher's
// app/app.go and app/router.go re-pointed at relay's own router and chain
// engine instead of httprouter and net/http.
package server

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/relaykit/relay/chain"
	"github.com/relaykit/relay/httperr"
	"github.com/relaykit/relay/message"
	"github.com/relaykit/relay/route"
)

// HealthCheckFunc reports liveness for the optional health-check endpoint.
// A non-nil error marks the service unhealthy.
type HealthCheckFunc func() error

// Options configures an App's connection-handling behavior. The zero value
// is not meant to be used directly; construct with defaultOptions and
// override only what differs, in the style of pilot's Application field
// struct but expressed as functional options — relay has no
// environment/config-file loader, so this in-process struct is the whole
// configuration surface.
type Options struct {
	// WorkerCount sets the number of goroutines draining accepted
	// connections. Defaults to 100.
	WorkerCount int
	// ReadTimeout bounds how long the acceptor waits for a request to
	// finish arriving on one connection. Defaults to 30s.
	ReadTimeout time.Duration
	// MaxHeaderBytes bounds header-section size read per request.
	MaxHeaderBytes int
	// MaxBodyBytes bounds the request body: a larger Content-Length is
	// rejected, and when Content-Length is absent the read until
	// EOF/deadline stops at this many bytes.
	MaxBodyBytes int
	// Logger is the base logger attached to every request's context.
	// Defaults to a JSON slog.Logger writing to os.Stdout.
	Logger *slog.Logger
}

// Option mutates an Options value during App construction.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		WorkerCount:    100,
		ReadTimeout:    30 * time.Second,
		MaxHeaderBytes: 1 << 20,
		MaxBodyBytes:   10 << 20,
		Logger:         slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})),
	}
}

// WithWorkerCount overrides the worker pool size.
func WithWorkerCount(n int) Option { return func(o *Options) { o.WorkerCount = n } }

// WithReadTimeout overrides the per-connection read deadline.
func WithReadTimeout(d time.Duration) Option { return func(o *Options) { o.ReadTimeout = d } }

// WithMaxHeaderBytes overrides the header-section size bound.
func WithMaxHeaderBytes(n int) Option { return func(o *Options) { o.MaxHeaderBytes = n } }

// WithMaxBodyBytes overrides the body size bound.
func WithMaxBodyBytes(n int) Option { return func(o *Options) { o.MaxBodyBytes = n } }

// WithLogger overrides the base request logger.
func WithLogger(l *slog.Logger) Option { return func(o *Options) { o.Logger = l } }

// App is relay's application entry point: a route.Router plus connection
// handling configuration. Handlers registered through its GET/POST/...
// methods are composed and dispatched by an acceptor started with Listen.
type App struct {
	router     *route.Router
	onError    chain.ErrorHandler
	opts       Options
	healthPath string
	healthFunc HealthCheckFunc
	mounted    []httpMount
}

type httpMount struct {
	prefix  string
	handler http.Handler
}

// New constructs an App with sensible defaults: a default error handler
// that writes 500 if nothing was written yet, and the options produced by
// defaultOptions, overridden by any Option arguments.
func New(opts ...Option) *App {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	a := &App{router: route.New(), opts: o}
	a.onError = a.defaultErrorHandler
	return a
}

// SetErrorHandler overrides the single catching error handler passed to
// every request's chain.Chain.
func (a *App) SetErrorHandler(h chain.ErrorHandler) { a.onError = h }

// Logger returns the App's configured base logger.
func (a *App) Logger() *slog.Logger { return a.opts.Logger }

// defaultErrorHandler writes a generic 500 (or the status carried by an
// *httperr.Error) if the response has not already finished, mirroring
// goflash's app/errors.go posture: do nothing once headers have gone out.
func (a *App) defaultErrorHandler(err error, _ *message.Request, res *message.Response) {
	if res == nil || res.Finished() {
		return
	}
	status := http.StatusInternalServerError
	msg := http.StatusText(status)
	if he, ok := err.(*httperr.Error); ok {
		status = he.Status
		msg = he.Message
	}
	res.Status(status)
	_ = res.JSON(map[string]string{"error": msg})
}

// Use registers global middleware applied to every route registered after
// this call, per route.Router.Use.
func (a *App) Use(handlers ...chain.Handler) { a.router.Use(handlers...) }

// UsePrefix registers middleware scoped to routes whose pattern begins with
// prefix, per route.Router.UsePrefix.
func (a *App) UsePrefix(prefix string, handlers ...chain.Handler) {
	a.router.UsePrefix(prefix, handlers...)
}

// Handle registers handlers for method at pattern. A registration conflict
// (route.ErrParamConflict) panics: mis-registration is a configuration-time
// programmer error, not a runtime request failure, mirroring the teacher's
// posture of failing fast on route conflicts at startup.
func (a *App) Handle(method, pattern string, handlers ...chain.Handler) {
	if err := a.router.Handle(method, pattern, handlers...); err != nil {
		panic(err)
	}
}

// GET registers handlers for HTTP GET at pattern.
func (a *App) GET(pattern string, handlers ...chain.Handler) { a.Handle(http.MethodGet, pattern, handlers...) }

// POST registers handlers for HTTP POST at pattern.
func (a *App) POST(pattern string, handlers ...chain.Handler) {
	a.Handle(http.MethodPost, pattern, handlers...)
}

// PUT registers handlers for HTTP PUT at pattern.
func (a *App) PUT(pattern string, handlers ...chain.Handler) { a.Handle(http.MethodPut, pattern, handlers...) }

// PATCH registers handlers for HTTP PATCH at pattern.
func (a *App) PATCH(pattern string, handlers ...chain.Handler) {
	a.Handle(http.MethodPatch, pattern, handlers...)
}

// DELETE registers handlers for HTTP DELETE at pattern.
func (a *App) DELETE(pattern string, handlers ...chain.Handler) {
	a.Handle(http.MethodDelete, pattern, handlers...)
}

// OPTIONS registers handlers for HTTP OPTIONS at pattern.
func (a *App) OPTIONS(pattern string, handlers ...chain.Handler) {
	a.Handle(http.MethodOptions, pattern, handlers...)
}

// HEAD registers handlers for HTTP HEAD at pattern.
func (a *App) HEAD(pattern string, handlers ...chain.Handler) {
	a.Handle(http.MethodHead, pattern, handlers...)
}

// ANY registers handlers for every common HTTP method at pattern.
func (a *App) ANY(pattern string, handlers ...chain.Handler) {
	for _, m := range []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodOptions, http.MethodHead,
	} {
		a.Handle(m, pattern, handlers...)
	}
}

// Mount attaches sub's route tree beneath prefix, per route.Router.Mount. A
// conflict (route.ErrMountConflict) panics for the same reason Handle does.
func (a *App) Mount(prefix string, sub *App) {
	if err := a.router.Mount(prefix, sub.router); err != nil {
		panic(err)
	}
}

// MountHTTP registers an existing net/http.Handler to serve requests under
// prefix that the route tree does not resolve (a route registered in the
// tree under the same prefix still wins), bypassing the chain engine
// entirely. This is for embedding
// a sub-system (a generated OpenAPI handler, a vendored admin UI) that
// already speaks http.Handler, mirroring goflash's mount_static.go Mount.
func (a *App) MountHTTP(prefix string, h http.Handler) {
	a.mounted = append(a.mounted, httpMount{prefix: prefix, handler: h})
}

// EnableHealthCheck registers a GET handler at path that reports "healthy"
// unless a custom liveness function set via SetHealthCheck returns an
// error, in which case it reports 503 "unhealthy". Mirrors goflash's
// app/app.go health check.
func (a *App) EnableHealthCheck(path string) {
	a.healthPath = path
	a.GET(path, a.healthCheckHandler)
}

// SetHealthCheck sets the liveness function consulted by the health-check
// endpoint registered via EnableHealthCheck.
func (a *App) SetHealthCheck(fn HealthCheckFunc) { a.healthFunc = fn }

// HealthCheckPath returns the path passed to EnableHealthCheck, or "" if it
// was never called.
func (a *App) HealthCheckPath() string { return a.healthPath }

func (a *App) healthCheckHandler(_ *message.Request, res *message.Response, _ chain.Next) {
	status := "healthy"
	httpStatus := http.StatusOK
	if a.healthFunc != nil {
		if err := a.healthFunc(); err != nil {
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			a.Logger().Error("health check failed", "error", err)
		}
	}
	res.Status(httpStatus)
	_ = res.JSON(map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "relay",
	})
}
