package message

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net"
	"strconv"
)

// reasonPhrases is the static status-code -> reason-phrase table used to
// build the status line. Codes not listed here report "Unknown".
var reasonPhrases = map[int]string{
	200: "OK",
	201: "Created",
	202: "Accepted",
	204: "No Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	409: "Conflict",
	415: "Unsupported Media Type",
	500: "Internal Server Error",
	501: "Not Implemented",
	502: "Bad Gateway",
	503: "Service Unavailable",
	504: "Gateway Timeout",
}

// ReasonPhrase returns the conventional reason phrase for an HTTP status
// code, or "Unknown" for a code outside the core's table.
func ReasonPhrase(code int) string {
	if p, ok := reasonPhrases[code]; ok {
		return p
	}
	return "Unknown"
}

// Response is relay's single-use value object. It is created
// when a connection is accepted and transitions once from "open" to "sent"
// when Send or JSON runs. Every subsequent terminal call after that is a
// no-op, and the underlying connection is closed as part of the terminal
// write, matching the teacher-grounded raw-socket shape (pilot's
// HttpResponse.Write) rather than net/http's ResponseWriter model.
type Response struct {
	conn     net.Conn
	w        *bufio.Writer
	status   int
	headers  Header
	finished bool
	bodyLen  int
	onFinish func()
}

// NewResponse creates a Response bound to conn. status defaults to 200 once
// a terminal write runs without an explicit Status call.
func NewResponse(conn net.Conn) *Response {
	return &Response{
		conn:    conn,
		w:       bufio.NewWriter(conn),
		headers: NewHeader(),
	}
}

// Status stages the response status code and returns the Response for
// chaining. Has no effect once the response has finished.
func (res *Response) Status(code int) *Response {
	if res.finished {
		return res
	}
	res.status = code
	return res
}

// SetHeader stages a response header. Has no effect once the response has
// finished.
func (res *Response) SetHeader(key, value string) {
	if res.finished {
		return
	}
	res.headers.Set(key, value)
}

// GetStatus returns the status that will be (or was) written; 200 if never
// explicitly staged.
func (res *Response) GetStatus() int {
	if res.status == 0 {
		return 200
	}
	return res.status
}

// GetBodyLength returns the number of body bytes written by the terminal
// call, or 0 before one has run.
func (res *Response) GetBodyLength() int { return res.bodyLen }

// Finished reports whether a terminal write has already run.
func (res *Response) Finished() bool { return res.finished }

// OnFinish registers a callback invoked exactly once, after the terminal
// write has flushed and before the connection is closed.
func (res *Response) OnFinish(cb func()) { res.onFinish = cb }

// Send writes a plain-text terminal response. Subsequent terminal calls on
// an already-finished Response are no-ops that return nil.
func (res *Response) Send(body string) error {
	return res.writeTerminal("text/plain", []byte(body))
}

// JSON serializes v and writes an application/json terminal response.
func (res *Response) JSON(v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		return err
	}
	b := buf.Bytes()
	if n := len(b); n > 0 && b[n-1] == '\n' {
		b = b[:n-1]
	}
	return res.writeTerminal("application/json", b)
}

// writeTerminal builds the status line, headers, and body, flushes them to
// the connection, runs the finish hook, and closes the connection. It is
// the single choke point every terminal response method funnels through,
// so the single-use rule only has to be enforced here.
func (res *Response) writeTerminal(defaultContentType string, body []byte) error {
	if res.finished {
		return nil
	}
	res.finished = true
	if res.status == 0 {
		res.status = 200
	}
	if res.headers.Get("Content-Type") == "" {
		res.headers.Set("Content-Type", defaultContentType)
	}
	res.headers.Set("Content-Length", strconv.Itoa(len(body)))

	if _, err := res.w.WriteString("HTTP/1.1 " + strconv.Itoa(res.status) + " " + ReasonPhrase(res.status) + "\r\n"); err != nil {
		res.conn.Close()
		return err
	}
	for k, v := range res.headers {
		if _, err := res.w.WriteString(k + ": " + v + "\r\n"); err != nil {
			res.conn.Close()
			return err
		}
	}
	if _, err := res.w.WriteString("\r\n"); err != nil {
		res.conn.Close()
		return err
	}
	n, err := res.w.Write(body)
	res.bodyLen = n
	if err != nil {
		res.conn.Close()
		return err
	}
	if err := res.w.Flush(); err != nil {
		res.conn.Close()
		return err
	}
	if res.onFinish != nil {
		res.onFinish()
	}
	return res.conn.Close()
}
