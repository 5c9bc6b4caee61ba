package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/olumydee/healthcare-readmission-risk-dashboard"

// InitLogger initializes the global zerolog logger. Logs go to stderr so
// that reports written to stdout stay machine readable.
func InitLogger(serviceName, env, level string) error {
	return initLogger(os.Stderr, serviceName, env, level)
}

func initLogger(w io.Writer, serviceName, env, level string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return err
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if env == "development" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).With().
			Timestamp().
			Str("service", serviceName).
			Logger()
	} else {
		log.Logger = zerolog.New(w).
			With().
			Timestamp().
			Caller().
			Str("service", serviceName).
			Logger()
	}
	return nil
}

// EnableLogExport mirrors every global log event to the OpenTelemetry log
// pipeline installed by Setup.
func EnableLogExport() {
	log.Logger = log.Logger.Hook(NewOTelHook(global.GetLoggerProvider()))
}

// OTelHook forwards zerolog events to an OpenTelemetry logger. Only the
// level, message and timestamp are forwarded; zerolog does not expose the
// event fields to hooks.
type OTelHook struct {
	logger otellog.Logger
}

func NewOTelHook(provider otellog.LoggerProvider) OTelHook {
	return OTelHook{logger: provider.Logger(instrumentationName)}
}

// Run implements zerolog.Hook.
func (h OTelHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	if level == zerolog.NoLevel || level == zerolog.Disabled {
		return
	}

	var r otellog.Record
	now := time.Now()
	r.SetTimestamp(now)
	r.SetObservedTimestamp(now)
	r.SetSeverity(severity(level))
	r.SetSeverityText(level.String())
	r.SetBody(otellog.StringValue(msg))

	h.logger.Emit(e.GetCtx(), r)
}

func severity(level zerolog.Level) otellog.Severity {
	switch level {
	case zerolog.TraceLevel:
		return otellog.SeverityTrace
	case zerolog.DebugLevel:
		return otellog.SeverityDebug
	case zerolog.InfoLevel:
		return otellog.SeverityInfo
	case zerolog.WarnLevel:
		return otellog.SeverityWarn
	case zerolog.ErrorLevel:
		return otellog.SeverityError
	case zerolog.FatalLevel:
		return otellog.SeverityFatal
	case zerolog.PanicLevel:
		return otellog.SeverityFatal4
	}
	return otellog.SeverityUndefined
}

// LoggerFromContext returns the logger attached to ctx, or the global
// logger, with trace context
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	logger := log.Logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = *l
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		// Hooks read the span from the logger context.
		logger = logger.With().
			Ctx(ctx).
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return &logger
}
