package server

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/relaykit/relay/chain"
	"github.com/relaykit/relay/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestApp(t *testing.T, a *App) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go a.Serve(ln)
	return ln.Addr().String()
}

func sendRequest(t *testing.T, addr, raw string) string {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(data)
}

func TestAcceptorServesRegisteredRoute(t *testing.T) {
	a := New(WithReadTimeout(200 * time.Millisecond))
	a.GET("/hello/:name", func(req *message.Request, res *message.Response, _ chain.Next) {
		res.Status(http.StatusOK)
		_ = res.Send("hi " + req.Param("name"))
	})

	addr := startTestApp(t, a)
	raw := "GET /hello/ada HTTP/1.1\r\nHost: test\r\nContent-Length: 0\r\n\r\n"
	resp := sendRequest(t, addr, raw)

	assert.Contains(t, resp, "HTTP/1.1 200 OK")
	assert.Contains(t, resp, "hi ada")
}

func TestAcceptorReturns404ForUnknownRoute(t *testing.T) {
	a := New(WithReadTimeout(200 * time.Millisecond))
	addr := startTestApp(t, a)

	raw := "GET /missing HTTP/1.1\r\nHost: test\r\nContent-Length: 0\r\n\r\n"
	resp := sendRequest(t, addr, raw)
	assert.Contains(t, resp, "404")
}

func TestAcceptorReturns405ForWrongMethod(t *testing.T) {
	a := New(WithReadTimeout(200 * time.Millisecond))
	a.GET("/only-get", noop)
	addr := startTestApp(t, a)

	raw := "POST /only-get HTTP/1.1\r\nHost: test\r\nContent-Length: 0\r\n\r\n"
	resp := sendRequest(t, addr, raw)
	assert.Contains(t, resp, "405")
}

func TestAcceptorHonorsContentLength(t *testing.T) {
	a := New(WithReadTimeout(200 * time.Millisecond))
	a.POST("/echo", func(req *message.Request, res *message.Response, _ chain.Next) {
		_ = res.Send(string(req.RawBody))
	})
	addr := startTestApp(t, a)

	body := "hello body"
	raw := fmt.Sprintf("POST /echo HTTP/1.1\r\nHost: test\r\nContent-Length: %d\r\n\r\n%s", len(body), body)
	resp := sendRequest(t, addr, raw)
	assert.Contains(t, resp, body)
}

func TestAcceptorFallsBackToEOFWithoutContentLength(t *testing.T) {
	a := New(WithReadTimeout(500 * time.Millisecond))
	a.POST("/no-length", func(req *message.Request, res *message.Response, _ chain.Next) {
		_ = res.Send("received:" + string(req.RawBody))
	})
	addr := startTestApp(t, a)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("POST /no-length HTTP/1.1\r\nHost: test\r\n\r\nthe body"))
	require.NoError(t, err)
	require.NoError(t, conn.(*net.TCPConn).CloseWrite())

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, err := io.ReadAll(conn)
	require.NoError(t, err)
	assert.Contains(t, string(data), "received:the body")
}

func TestAcceptorParsesQueryString(t *testing.T) {
	a := New(WithReadTimeout(200 * time.Millisecond))
	a.GET("/search", func(req *message.Request, res *message.Response, _ chain.Next) {
		_ = res.Send("q=" + req.GetQuery("q"))
	})
	addr := startTestApp(t, a)

	raw := "GET /search?q=widgets HTTP/1.1\r\nHost: test\r\nContent-Length: 0\r\n\r\n"
	resp := sendRequest(t, addr, raw)
	assert.Contains(t, resp, "q=widgets")
}

func TestAcceptorRejectsControlBytePath(t *testing.T) {
	a := New(WithReadTimeout(200 * time.Millisecond))
	a.GET("/files", noop)
	addr := startTestApp(t, a)

	raw := "GET /%00bad HTTP/1.1\r\nHost: test\r\nContent-Length: 0\r\n\r\n"
	resp := sendRequest(t, addr, raw)
	assert.Contains(t, resp, "400")
}

func TestAcceptorRunsMiddlewareChain(t *testing.T) {
	a := New(WithReadTimeout(200 * time.Millisecond))
	var order []string
	a.Use(func(_ *message.Request, _ *message.Response, next chain.Next) {
		order = append(order, "global")
		next(nil)
	})
	a.GET("/x", func(_ *message.Request, res *message.Response, _ chain.Next) {
		order = append(order, "handler")
		_ = res.Send("ok")
	})
	addr := startTestApp(t, a)

	raw := "GET /x HTTP/1.1\r\nHost: test\r\nContent-Length: 0\r\n\r\n"
	resp := sendRequest(t, addr, raw)
	assert.Contains(t, resp, "ok")
	assert.Equal(t, []string{"global", "handler"}, order)
}

func TestAcceptorMountedHTTPHandler(t *testing.T) {
	a := New(WithReadTimeout(200 * time.Millisecond))
	a.MountHTTP("/legacy", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("legacy response"))
	}))
	addr := startTestApp(t, a)

	raw := "GET /legacy/anything HTTP/1.1\r\nHost: test\r\nContent-Length: 0\r\n\r\n"
	resp := sendRequest(t, addr, raw)
	assert.Contains(t, resp, "418")
	assert.Contains(t, resp, "legacy response")
}

func TestParseRequestReadsHeadersAndBody(t *testing.T) {
	a := New()
	client, srv := net.Pipe()
	defer client.Close()

	go func() {
		_, _ = client.Write([]byte("POST /submit HTTP/1.1\r\nHost: test\r\nX-Token: abc\r\nContent-Length: 4\r\n\r\nbody"))
	}()

	req, rawPath, err := a.parseRequest(srv)
	require.NoError(t, err)
	assert.Equal(t, "/submit", rawPath)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "abc", req.GetHeader("X-Token"))
	assert.Equal(t, "body", string(req.RawBody))
}

func TestSplitTarget(t *testing.T) {
	path, query := splitTarget("/a/b?x=1&y=2")
	assert.Equal(t, "/a/b", path)
	assert.Equal(t, "x=1&y=2", query)

	path, query = splitTarget("/no-query")
	assert.Equal(t, "/no-query", path)
	assert.Equal(t, "", query)
}

func TestParseQuery(t *testing.T) {
	q := parseQuery("a=1&b=two")
	assert.Equal(t, "1", q["a"])
	assert.Equal(t, "two", q["b"])
	assert.Equal(t, map[string]string{}, parseQuery(""))
}
