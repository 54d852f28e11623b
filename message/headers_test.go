package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaderIsCaseInsensitive(t *testing.T) {
	h := NewHeader()
	h.Set("content-type", "application/json")
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, "application/json", h.Get("CONTENT-TYPE"))
}

func TestHeaderSetOverwrites(t *testing.T) {
	h := NewHeader()
	h.Set("X-Request-Id", "first")
	h.Set("x-request-id", "second")
	assert.Equal(t, "second", h.Get("X-Request-Id"))
}

func TestHeaderDel(t *testing.T) {
	h := NewHeader()
	h.Set("Authorization", "token")
	h.Del("authorization")
	assert.Equal(t, "", h.Get("Authorization"))
}

func TestHeaderGetMissing(t *testing.T) {
	h := NewHeader()
	assert.Equal(t, "", h.Get("Missing"))
}
