package middleware

import (
	"time"

	"github.com/relaykit/relay/chain"
	"github.com/relaykit/relay/logctx"
	"github.com/relaykit/relay/message"
)

// LoggerConfig configures the Logger middleware.
type LoggerConfig struct {
	// ExcludeFields skips named standard fields from the log line. Valid
	// values: "method", "path", "status", "duration_ms", "remote",
	// "user_agent", "request_id".
	ExcludeFields []string

	// Message is the log message. Defaults to "request".
	Message string
}

// LoggerOption configures a LoggerConfig.
type LoggerOption func(*LoggerConfig)

// WithExcludeFields excludes the named standard fields from the log line.
func WithExcludeFields(fields ...string) LoggerOption {
	return func(cfg *LoggerConfig) {
		cfg.ExcludeFields = append(cfg.ExcludeFields, fields...)
	}
}

// WithMessage sets the log message, overriding the "request" default.
func WithMessage(message string) LoggerOption {
	return func(cfg *LoggerConfig) {
		cfg.Message = message
	}
}

// Logger returns a handler that emits one structured log line per request,
// after the rest of the chain has run, via the logger attached to the
// request context (logctx.FromContext). It records method, path, status,
// duration, remote address, user agent and request id (when RequestID ran
// earlier in the chain).
//
// Grounded on goflash's middleware/logger.go, adapted from flash.Ctx
// accessors to relay's message.Request/message.Response and from
// ctx.LoggerFromContext to relay's logctx.FromContext.
func Logger(options ...LoggerOption) chain.Handler {
	cfg := &LoggerConfig{Message: "request"}
	for _, opt := range options {
		opt(cfg)
	}

	exclude := make(map[string]bool, len(cfg.ExcludeFields))
	for _, f := range cfg.ExcludeFields {
		exclude[f] = true
	}

	return func(req *message.Request, res *message.Response, next chain.Next) {
		start := time.Now()
		next(nil)
		dur := time.Since(start)

		attrs := make([]any, 0, 16)
		if !exclude["method"] {
			attrs = append(attrs, "method", req.Method)
		}
		if !exclude["path"] {
			attrs = append(attrs, "path", req.Path)
		}
		if !exclude["status"] {
			attrs = append(attrs, "status", res.GetStatus())
		}
		if !exclude["duration_ms"] {
			attrs = append(attrs, "duration_ms", float64(dur.Microseconds())/1000.0)
		}
		if !exclude["remote"] {
			attrs = append(attrs, "remote", req.ClientAddr)
		}
		if !exclude["user_agent"] {
			attrs = append(attrs, "user_agent", req.GetHeader("User-Agent"))
		}
		if !exclude["request_id"] {
			if rid, ok := RequestIDFromContext(req.Context()); ok {
				attrs = append(attrs, "request_id", rid)
			}
		}

		logctx.FromContext(req.Context()).Info(cfg.Message, attrs...)
	}
}
