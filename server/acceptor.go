package server

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/relaykit/relay/chain"
	"github.com/relaykit/relay/httperr"
	"github.com/relaykit/relay/logctx"
	"github.com/relaykit/relay/message"
	"github.com/relaykit/relay/route"
)

// Listen opens a TCP listener on addr (host:port) and calls Serve on it,
// closing the listener when Serve returns.
func (a *App) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()
	return a.Serve(ln)
}

// Serve runs the accept loop over an already-open listener and blocks until
// it is closed or returns an unrecoverable error. It creates exactly one
// worker pool of size Options.WorkerCount before entering the accept
// loop — unlike a design that spins up workers per accepted connection, the
// pool here is created once and reused for the lifetime of Serve. The conns
// channel is closed when the accept loop exits so every worker's range
// loop drains and returns instead of blocking forever on a listener that
// will never produce another connection.
// Taking a net.Listener rather than an address lets tests bind an ephemeral
// port and learn it via ln.Addr() before Serve blocks.
func (a *App) Serve(ln net.Listener) error {
	conns := make(chan net.Conn, a.opts.WorkerCount*4)
	defer close(conns)
	for i := 0; i < a.opts.WorkerCount; i++ {
		go a.worker(conns)
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errIsClosed(err) {
				return nil
			}
			return err
		}
		conns <- conn
	}
}

func errIsClosed(err error) bool {
	return strings.Contains(err.Error(), "use of closed network connection")
}

// worker drains conns, handling exactly one request per connection (the
// module's Non-goals exclude keep-alive across requests) before closing it.
func (a *App) worker(conns <-chan net.Conn) {
	for conn := range conns {
		a.handleConnection(conn)
		// A terminal write has usually closed conn already; this covers the
		// paths that end without one (a chain that writes nothing, an error
		// handler that panics before writing).
		_ = conn.Close()
	}
}

func (a *App) handleConnection(conn net.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(a.opts.ReadTimeout))

	req, rawPath, err := a.parseRequest(conn)
	if err != nil {
		writeParseError(conn, err)
		return
	}

	res := message.NewResponse(conn)
	clean := route.SanitizePath(rawPath)
	if clean == "" {
		res.Status(http.StatusBadRequest)
		_ = res.JSON(map[string]string{"error": "invalid request path"})
		return
	}
	req.Path = clean

	handlers, params, lookupErr := a.router.Lookup(clean, req.Method)
	if lookupErr != nil {
		if mounted, ok := a.matchMount(clean); ok {
			a.serveMounted(mounted, req, res)
			return
		}
		a.dispatchLookupError(lookupErr, req, res)
		return
	}
	req.Params = params
	req.WithContext(logctx.WithLogger(req.Context(), a.Logger()))

	c := chain.New(handlers, req, res, a.onError)
	if escaped := c.Run(); escaped != nil {
		// escaped means the configured error handler itself panicked or
		// raised — the single-error-handler contract has been exhausted,
		// so this falls back to a bare write instead of invoking it again.
		a.Logger().Error("unhandled error escaped chain", "error", escaped)
		if !res.Finished() {
			res.Status(http.StatusInternalServerError)
			_ = res.Send(http.StatusText(http.StatusInternalServerError))
		}
	}
}

// dispatchLookupError routes a route.Router.Lookup failure (404/405)
// through the same single error-handler contract a handler-raised error
// gets, recovering a panicking error handler the way chain.Chain.Run does
// for the in-chain case.
func (a *App) dispatchLookupError(err error, req *message.Request, res *message.Response) {
	defer func() {
		if r := recover(); r != nil {
			a.Logger().Error("error handler panicked handling lookup failure", "panic", r)
		}
	}()
	c := chain.New(nil, req, res, a.onError)
	c.Next(err)
}

func (a *App) matchMount(path string) (httpMount, bool) {
	for _, m := range a.mounted {
		if path == strings.TrimSuffix(m.prefix, "/") || strings.HasPrefix(path, m.prefix) {
			return m, true
		}
	}
	return httpMount{}, false
}

// serveMounted bridges a request the tree router couldn't resolve to a
// mounted net/http.Handler: build an *http.Request from the already-parsed
// message.Request, run it through httptest.NewRecorder (no live socket
// needed since the handler is in-process), then copy the recorded
// status/headers/body onto the raw-socket Response.
func (a *App) serveMounted(m httpMount, req *message.Request, res *message.Response) {
	httpReq, err := http.NewRequestWithContext(req.Context(), req.Method, req.Path+queryString(req.Query), bytes.NewReader(req.RawBody))
	if err != nil {
		res.Status(http.StatusInternalServerError)
		_ = res.JSON(map[string]string{"error": "failed to bridge mounted handler request"})
		return
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	m.handler.ServeHTTP(rec, httpReq)

	for k, values := range rec.Header() {
		for _, v := range values {
			res.SetHeader(k, v)
		}
	}
	res.Status(rec.Code)
	_ = res.Send(rec.Body.String())
}

func queryString(q map[string]string) string {
	if len(q) == 0 {
		return ""
	}
	v := url.Values{}
	for k, val := range q {
		v.Set(k, val)
	}
	return "?" + v.Encode()
}

func writeParseError(conn net.Conn, err error) {
	res := message.NewResponse(conn)
	res.Status(http.StatusBadRequest)
	_ = res.JSON(map[string]string{"error": "malformed request: " + err.Error()})
}

// parseRequest reads one HTTP/1.1 request off conn: request line, headers,
// and body. Grounded on pilot's ParseRequest (bufio.Reader, ReadBytes(' ')
// for the request line, header-line loop terminated by a bare "\r\n"), but
// reworked to honor Content-Length when present (io.ReadFull) and fall
// back to reading until EOF or the read deadline otherwise.
func (a *App) parseRequest(conn net.Conn) (*message.Request, string, error) {
	br := bufio.NewReaderSize(conn, a.opts.MaxHeaderBytes)

	methodBytes, err := br.ReadBytes(' ')
	if err != nil {
		return nil, "", err
	}
	method := strings.TrimSpace(string(methodBytes))

	targetBytes, err := br.ReadBytes(' ')
	if err != nil {
		return nil, "", err
	}
	target := strings.TrimSpace(string(targetBytes))

	if _, err := br.ReadBytes('\n'); err != nil {
		return nil, "", err
	}

	rawPath, rawQuery := splitTarget(target)

	headers := message.NewHeader()
	headerBytes := 0
	for {
		line, err := br.ReadBytes('\n')
		if err != nil {
			return nil, "", err
		}
		headerBytes += len(line)
		if headerBytes > a.opts.MaxHeaderBytes {
			return nil, "", httperr.BadRequest("request header too large")
		}
		trimmed := strings.TrimRight(string(line), "\r\n")
		if trimmed == "" {
			break
		}
		name, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		headers.Set(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	body, err := readBody(br, headers, a.opts.MaxBodyBytes)
	if err != nil {
		return nil, "", err
	}

	req := message.New(method, rawPath)
	req.Headers = headers
	req.RawBody = body
	req.ClientAddr = conn.RemoteAddr().String()
	req.Query = parseQuery(rawQuery)

	return req, rawPath, nil
}

func splitTarget(target string) (path, query string) {
	if idx := strings.IndexByte(target, '?'); idx >= 0 {
		return target[:idx], target[idx+1:]
	}
	return target, ""
}

// parseQuery splits raw on "&" and then each term on "=". A term with no
// "=" or more than one "=" is malformed and dropped rather than kept with
// an empty or truncated value.
func parseQuery(raw string) map[string]string {
	out := map[string]string{}
	if raw == "" {
		return out
	}
	for _, term := range strings.Split(raw, "&") {
		if term == "" {
			continue
		}
		parts := strings.Split(term, "=")
		if len(parts) != 2 {
			continue
		}
		key, err := url.QueryUnescape(parts[0])
		if err != nil {
			continue
		}
		value, err := url.QueryUnescape(parts[1])
		if err != nil {
			continue
		}
		out[key] = value
	}
	return out
}

// readBody honors Content-Length when present by reading exactly that many
// bytes. Otherwise it reads until EOF or the connection's read deadline
// fires, whichever happens first, capped at maxBytes.
func readBody(br *bufio.Reader, headers message.Header, maxBytes int) ([]byte, error) {
	if cl := headers.Get("Content-Length"); cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return nil, httperr.BadRequest("invalid Content-Length")
		}
		if n > maxBytes {
			return nil, httperr.BadRequest("request body too large")
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}

	buf := make([]byte, 0, 512)
	chunk := make([]byte, 512)
	for len(buf) < maxBytes {
		n, err := br.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}
	return buf, nil
}
