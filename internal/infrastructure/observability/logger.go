package observability

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Log field names shared by handlers, services and adapters
const (
	FieldRequestID = "request_id"
	FieldRole      = "role"
	FieldUserID    = "user_id"
	FieldQuoteID   = "quote_id"
	FieldPaymentID = "payment_id"
)

// InitLogger initializes the global zerolog logger. Development gets a
// console writer; everything else writes JSON with caller info.
func InitLogger(serviceName, env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().
			Str("service", serviceName).
			Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Caller().
			Str("service", serviceName).
			Str("env", env).
			Logger()
	}

	// log.Ctx falls back to the global logger for contexts without one
	zerolog.DefaultContextLogger = &log.Logger
}

// LoggerFromContext returns the context logger with the active span's ids
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	logger := log.Ctx(ctx).With().Logger()

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		logger = logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return &logger
}

// WithFields returns ctx with its logger extended by key/value pairs.
// Empty values and a trailing key without a value are dropped.
func WithFields(ctx context.Context, kv ...string) context.Context {
	lc := log.Ctx(ctx).With()
	added := false
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		lc = lc.Str(kv[i], kv[i+1])
		added = true
	}
	if !added {
		return ctx
	}
	logger := lc.Logger()
	return logger.WithContext(ctx)
}

// WithRequestID tags every later log line on ctx with the request id
func WithRequestID(ctx context.Context, id string) context.Context {
	return WithFields(ctx, FieldRequestID, id)
}

// WithActor tags log lines with the caller's role and user id
func WithActor(ctx context.Context, role, userID string) context.Context {
	return WithFields(ctx, FieldRole, role, FieldUserID, userID)
}

// WithQuote tags log lines with the quote being worked on
func WithQuote(ctx context.Context, quoteID string) context.Context {
	return WithFields(ctx, FieldQuoteID, quoteID)
}
