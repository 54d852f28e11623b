package message

import (
	"context"
	"html"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Request is relay's immutable-after-parse value object. It
// is constructed by the acceptor with method and path, then enriched with
// query, headers, raw body, and client address before route lookup
// populates Params. Handlers and middleware may read it freely; besides the
// acceptor and the pre-dispatch lookup step, middleware replaces its
// context through WithContext.
type Request struct {
	Method      string
	Path        string
	Query       map[string]string
	Headers     Header
	Params      map[string]string
	RawBody     []byte
	DecodedBody map[string]any
	ClientAddr  string

	ctx context.Context
}

// New constructs a Request with the given method and path. Query, headers,
// raw body and client address are attached by the acceptor after parsing;
// Params is populated by route lookup.
func New(method, path string) *Request {
	return &Request{
		Method:  method,
		Path:    path,
		Query:   map[string]string{},
		Headers: NewHeader(),
		Params:  map[string]string{},
		ctx:     context.Background(),
	}
}

// Context returns the request-scoped context.Context. Middleware that needs
// to attach values (a logger, a request id, decoded auth claims) should call
// WithContext and keep using the returned Request.
func (r *Request) Context() context.Context { return r.ctx }

// WithContext returns r with its context replaced by ctx. r is mutated in
// place and returned for chaining, since Request is confined to a single
// worker for the lifetime of one connection.
func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// Param returns a path parameter by name, or "" if it was not captured for
// the matched route.
func (r *Request) Param(name string) string { return r.Params[name] }

// GetQuery returns a query-string parameter by key, or "" if absent.
func (r *Request) GetQuery(key string) string { return r.Query[key] }

// GetQueryAll returns the full query mapping.
func (r *Request) GetQueryAll() map[string]string { return r.Query }

// GetHeader returns a header value, case-insensitively.
func (r *Request) GetHeader(name string) string { return r.Headers.Get(name) }

// GetBody returns the body decoded by an upstream decoding middleware, or
// nil if none has run. Core code must never assume this is populated.
func (r *Request) GetBody() map[string]any { return r.DecodedBody }

// GetRawBody returns the raw request body bytes read by the acceptor.
func (r *Request) GetRawBody() []byte { return r.RawBody }

// RemoteIP returns the client's IP address without the port, falling back
// to the raw ClientAddr if it cannot be split.
func (r *Request) RemoteIP() string {
	host, _, err := net.SplitHostPort(r.ClientAddr)
	if err != nil {
		return r.ClientAddr
	}
	return host
}

// ParamInt returns the named path parameter parsed as int, or def (0 if
// omitted) on missing value or parse error.
func (r *Request) ParamInt(name string, def ...int) int {
	return parseIntDefault(r.Param(name), def...)
}

// ParamInt64 returns the named path parameter parsed as int64.
func (r *Request) ParamInt64(name string, def ...int64) int64 {
	return parseInt64Default(r.Param(name), def...)
}

// ParamBool returns the named path parameter parsed as bool.
func (r *Request) ParamBool(name string, def ...bool) bool {
	return parseBoolDefault(r.Param(name), def...)
}

// QueryInt returns the named query parameter parsed as int.
func (r *Request) QueryInt(key string, def ...int) int {
	return parseIntDefault(r.GetQuery(key), def...)
}

// QueryInt64 returns the named query parameter parsed as int64.
func (r *Request) QueryInt64(key string, def ...int64) int64 {
	return parseInt64Default(r.GetQuery(key), def...)
}

// QueryBool returns the named query parameter parsed as bool.
func (r *Request) QueryBool(key string, def ...bool) bool {
	return parseBoolDefault(r.GetQuery(key), def...)
}

func parseIntDefault(s string, def ...int) int {
	fallback := 0
	if len(def) > 0 {
		fallback = def[0]
	}
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func parseInt64Default(s string, def ...int64) int64 {
	var fallback int64
	if len(def) > 0 {
		fallback = def[0]
	}
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBoolDefault(s string, def ...bool) bool {
	fallback := false
	if len(def) > 0 {
		fallback = def[0]
	}
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}

// Security-focused accessors, adapted from the teacher's ctx security
// helpers: sanitize path/query values before they are echoed into a
// response body or used to build a filesystem path.

var (
	alphaNumRegex = regexp.MustCompile(`^[a-zA-Z0-9]*$`)
)

// ParamSafe returns a path parameter with HTML special characters escaped.
func (r *Request) ParamSafe(name string) string { return html.EscapeString(r.Param(name)) }

// QuerySafe returns a query parameter with HTML special characters escaped.
func (r *Request) QuerySafe(key string) string { return html.EscapeString(r.GetQuery(key)) }

// ParamAlphaNum returns a path parameter with every non-alphanumeric
// character stripped.
func (r *Request) ParamAlphaNum(name string) string { return stripNonAlphaNum(r.Param(name)) }

// QueryAlphaNum returns a query parameter with every non-alphanumeric
// character stripped.
func (r *Request) QueryAlphaNum(key string) string { return stripNonAlphaNum(r.GetQuery(key)) }

func stripNonAlphaNum(s string) string {
	if s == "" || alphaNumRegex.MatchString(s) {
		return s
	}
	var b strings.Builder
	for _, ru := range s {
		if (ru >= 'a' && ru <= 'z') || (ru >= 'A' && ru <= 'Z') || (ru >= '0' && ru <= '9') {
			b.WriteRune(ru)
		}
	}
	return b.String()
}

// ParamFilename returns a path parameter reduced to safe filename
// characters (alphanumeric, dot, dash, underscore), URL-decoded first and
// with any leading dot stripped to block traversal and hidden-file tricks.
func (r *Request) ParamFilename(name string) string { return safeFilename(r.Param(name)) }

// QueryFilename returns a query parameter reduced to safe filename
// characters, following the same rules as ParamFilename.
func (r *Request) QueryFilename(key string) string { return safeFilename(r.GetQuery(key)) }

func safeFilename(s string) string {
	if s == "" {
		return ""
	}
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		decoded = s
	}
	var b strings.Builder
	for _, ru := range decoded {
		if (ru >= 'a' && ru <= 'z') || (ru >= 'A' && ru <= 'Z') || (ru >= '0' && ru <= '9') ||
			ru == '.' || ru == '-' || ru == '_' {
			b.WriteRune(ru)
		}
	}
	return strings.TrimLeft(b.String(), ".")
}
