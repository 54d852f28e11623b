package message

import "net/textproto"

// Header is a case-insensitive string-to-string header map. Keys are stored
// under their canonical MIME form (as net/textproto normalizes them) so
// that Get/Set/Del agree regardless of how a header line was cased on the
// wire.
type Header map[string]string

// NewHeader returns an empty Header map.
func NewHeader() Header { return make(Header) }

// Set stores value under key's canonical form, overwriting any prior value.
// The acceptor uses Set while parsing so that a duplicate header line
// retains the last write.
func (h Header) Set(key, value string) {
	h[textproto.CanonicalMIMEHeaderKey(key)] = value
}

// Get returns the value stored under key, case-insensitively. Returns ""
// if absent.
func (h Header) Get(key string) string {
	return h[textproto.CanonicalMIMEHeaderKey(key)]
}

// Del removes key, case-insensitively.
func (h Header) Del(key string) {
	delete(h, textproto.CanonicalMIMEHeaderKey(key))
}
