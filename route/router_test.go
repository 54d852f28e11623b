package route

import (
	"net/http"
	"testing"

	"github.com/relaykit/relay/chain"
	"github.com/relaykit/relay/httperr"
	"github.com/relaykit/relay/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(_ *message.Request, _ *message.Response, _ chain.Next) {}

func TestLookup_LiteralPrecedenceAndParamCapture(t *testing.T) {
	r := New()
	require.NoError(t, r.Handle(http.MethodGet, "/products", noopHandler))
	require.NoError(t, r.Handle(http.MethodGet, "/products/:id", noopHandler))

	_, params, err := r.Lookup("/products/123", http.MethodGet)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "123"}, params)

	_, _, err = r.Lookup("/products", http.MethodPost)
	var he *httperr.Error
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusMethodNotAllowed, he.Status)
	assert.Equal(t, "Cannot POST /products", he.Message)

	_, _, err = r.Lookup("/unknown", http.MethodGet)
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusNotFound, he.Status)
	assert.Equal(t, "Cannot GET /unknown", he.Message)
}

func TestLookup_MultipleParams(t *testing.T) {
	r := New()
	require.NoError(t, r.Handle(http.MethodGet, "/users/:id/posts/:postId", noopHandler))

	_, params, err := r.Lookup("/users/7/posts/42", http.MethodGet)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"id": "7", "postId": "42"}, params)
}

func TestLiteralBeatsParameter(t *testing.T) {
	r := New()
	require.NoError(t, r.Handle(http.MethodGet, "/a/:x", noopHandler))
	require.NoError(t, r.Handle(http.MethodGet, "/a/b", noopHandler))

	_, params, err := r.Lookup("/a/z", http.MethodGet)
	require.NoError(t, err)
	assert.Equal(t, "z", params["x"])

	_, params, err = r.Lookup("/a/b", http.MethodGet)
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestDuplicateParamNameIsIdempotent(t *testing.T) {
	r := New()
	require.NoError(t, r.Handle(http.MethodGet, "/a/:x", noopHandler))
	require.NoError(t, r.Handle(http.MethodPost, "/a/:x", noopHandler))
}

func TestConflictingParamChild(t *testing.T) {
	r := New()
	require.NoError(t, r.Handle(http.MethodGet, "/a/:x", noopHandler))
	err := r.Handle(http.MethodGet, "/a/:y", noopHandler)
	assert.ErrorIs(t, err, ErrParamConflict)
}

func TestParamChildBesideLiteralIsAllowed(t *testing.T) {
	r := New()
	require.NoError(t, r.Handle(http.MethodGet, "/a/b", noopHandler))
	err := r.Handle(http.MethodGet, "/a/:x", noopHandler)
	assert.NoError(t, err)
}

func TestReRegistrationIsNoOp(t *testing.T) {
	r := New()
	first := 0
	second := 0
	require.NoError(t, r.Handle(http.MethodGet, "/a", func(_ *message.Request, _ *message.Response, _ chain.Next) {
		first++
	}))
	require.NoError(t, r.Handle(http.MethodGet, "/a", func(_ *message.Request, _ *message.Response, _ chain.Next) {
		second++
	}))

	handlers, _, err := r.Lookup("/a", http.MethodGet)
	require.NoError(t, err)
	require.Len(t, handlers, 1)
	handlers[0](nil, nil, func(error) {})
	assert.Equal(t, 1, first)
	assert.Equal(t, 0, second)
}

func TestMiddlewareOrder(t *testing.T) {
	r := New()
	var order []string
	mk := func(name string) chain.Handler {
		return func(_ *message.Request, _ *message.Response, next chain.Next) {
			order = append(order, name)
			next(nil)
		}
	}
	r.Use(mk("g"))
	r.UsePrefix("/x", mk("m"))
	require.NoError(t, r.Handle(http.MethodGet, "/x", mk("a"), mk("b")))

	handlers, _, err := r.Lookup("/x", http.MethodGet)
	require.NoError(t, err)
	require.Len(t, handlers, 4)

	c := chain.New(handlers, nil, nil, nil)
	require.NoError(t, c.Run())
	assert.Equal(t, []string{"g", "m", "a", "b"}, order)
}

func TestGlobalMiddlewareIsNotRetroactive(t *testing.T) {
	r := New()
	require.NoError(t, r.Handle(http.MethodGet, "/early", noopHandler))
	r.Use(func(_ *message.Request, _ *message.Response, next chain.Next) { next(nil) })

	handlers, _, err := r.Lookup("/early", http.MethodGet)
	require.NoError(t, err)
	assert.Len(t, handlers, 1)
}

func TestMountComposition(t *testing.T) {
	sub := New()
	require.NoError(t, sub.Handle(http.MethodGet, "/blogs", noopHandler))

	parent := New()
	require.NoError(t, parent.Mount("/v1", sub))

	_, _, err := parent.Lookup("/v1/blogs", http.MethodGet)
	require.NoError(t, err)
}

func TestMountConflict(t *testing.T) {
	sub := New()
	require.NoError(t, sub.Handle(http.MethodGet, "/blogs", noopHandler))

	parent := New()
	require.NoError(t, parent.Handle(http.MethodGet, "/v1/blogs", noopHandler))

	err := parent.Mount("/v1", sub)
	assert.ErrorIs(t, err, ErrMountConflict)
}
