package telemetry

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry that carries a span context.
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// NewLogger builds the process logger and installs it as the global zerolog logger.
// Unknown levels fall back to info.
func NewLogger(service, level string, console bool) zerolog.Logger {
	return newLogger(os.Stderr, service, level, console)
}

func newLogger(out io.Writer, service, level string, console bool) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if console {
		out = zerolog.ConsoleWriter{Out: out}
	}

	logger := zerolog.New(out).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	log.Logger = logger
	return logger
}
