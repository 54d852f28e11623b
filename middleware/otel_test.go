package middleware

import (
	"errors"
	"net/http"
	"testing"

	"github.com/relaykit/relay/chain"
	"github.com/relaykit/relay/message"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestOTelMiddlewareDoesNotBlock(t *testing.T) {
	req := message.New(http.MethodGet, "/")
	res, client := pipedResponse(t)

	handlers := []chain.Handler{
		OTel("test-svc"),
		func(_ *message.Request, res *message.Response, _ chain.Next) {
			res.Status(http.StatusOK)
			_ = res.Send("ok")
		},
	}
	done := runChain(t, handlers, req, res)
	_ = readResponse(t, client)
	<-done

	assert.Equal(t, http.StatusOK, res.GetStatus())
}

func TestOTelFilterSkipsSpanButRunsHandler(t *testing.T) {
	req := message.New(http.MethodGet, "/healthz")
	res, client := pipedResponse(t)

	called := false
	handlers := []chain.Handler{
		OTelWithConfig(OTelConfig{
			ServiceName: "svc",
			Filter: func(r *message.Request) bool {
				return r.Path == "/healthz"
			},
		}),
		func(_ *message.Request, res *message.Response, _ chain.Next) {
			called = true
			_ = res.Send("ok")
		},
	}
	done := runChain(t, handlers, req, res)
	_ = readResponse(t, client)
	<-done

	assert.True(t, called)
}

func TestOTelCustomStatusMapping(t *testing.T) {
	req := message.New(http.MethodGet, "/bad")
	res, client := pipedResponse(t)

	var gotCode codes.Code
	handlers := []chain.Handler{
		OTelWithConfig(OTelConfig{
			ServiceName: "svc",
			Status: func(code int, err error) (codes.Code, string) {
				gotCode = codes.Error
				return codes.Error, "client error"
			},
		}),
		func(_ *message.Request, _ *message.Response, next chain.Next) {
			next(errors.New("bad input"))
		},
	}
	c := chain.New(handlers, req, res, func(_ error, _ *message.Request, res *message.Response) {
		res.Status(http.StatusBadRequest)
		_ = res.Send("bad")
	})
	done := make(chan struct{})
	go func() { defer close(done); _ = c.Run() }()
	_ = readResponse(t, client)
	<-done

	assert.Equal(t, codes.Error, gotCode)
}

func TestOTelWithConfigCustomizations(t *testing.T) {
	noopTracer := trace.NewNoopTracerProvider().Tracer("test")
	noopProp := propagation.NewCompositeTextMapPropagator()

	req := message.New(http.MethodGet, "/x")
	res, client := pipedResponse(t)

	handlers := []chain.Handler{
		OTelWithConfig(OTelConfig{
			ServiceName: "svc2",
			Tracer:      noopTracer,
			Propagator:  noopProp,
			SpanName:    func(_ *message.Request) string { return "" },
			Attributes: func(_ *message.Request) []attribute.KeyValue {
				return []attribute.KeyValue{attribute.String("custom.attr", "v")}
			},
			ExtraAttributes: []attribute.KeyValue{attribute.String("extra.attr", "x")},
		}),
		func(_ *message.Request, res *message.Response, _ chain.Next) {
			res.Status(http.StatusOK)
			_ = res.Send("ok")
		},
	}
	done := runChain(t, handlers, req, res)
	_ = readResponse(t, client)
	<-done

	assert.Equal(t, http.StatusOK, res.GetStatus())
}

func TestOTelSpanNameOverrideDefaultsStatus(t *testing.T) {
	req := message.New(http.MethodGet, "/empty")
	res, client := pipedResponse(t)

	handlers := []chain.Handler{
		OTelWithConfig(OTelConfig{
			ServiceName: "svc3",
			SpanName:    func(_ *message.Request) string { return "CUSTOM NAME" },
		}),
		func(_ *message.Request, res *message.Response, _ chain.Next) { _ = res.Send("ok") },
	}
	done := runChain(t, handlers, req, res)
	_ = readResponse(t, client)
	<-done

	assert.Equal(t, http.StatusOK, res.GetStatus())
}
