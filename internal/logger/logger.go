// Package logger wraps zerolog with process-wide defaults and request-scoped
// child loggers.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

type Options struct {
	Level   string
	Format  string
	Service string
	NodeID  string
	Writer  io.Writer
}

var (
	once   sync.Once
	root   atomic.Pointer[zerolog.Logger]
	inited atomic.Bool
)

type Logger = zerolog.Logger

// Get returns the root logger, initializing it with defaults if needed.
func Get() *Logger {
	if !inited.Load() {
		Init(Options{Level: "info", Format: "console"})
	}
	return root.Load()
}

// Init builds the root logger. Only the first call has any effect.
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		var w io.Writer = os.Stdout
		if opt.Writer != nil {
			w = opt.Writer
		}
		if strings.EqualFold(opt.Format, "console") {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		}

		ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
		if opt.Service != "" {
			ctx = ctx.Str("service", opt.Service)
		}
		if opt.NodeID != "" {
			ctx = ctx.Str("nid", opt.NodeID)
		}
		log := ctx.Logger()

		root.Store(&log)
		inited.Store(true)
	})
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// C returns a child logger carrying the request id set by chi's RequestID
// middleware, when present.
func C(ctx context.Context) *Logger {
	l := Get()
	reqID := chimw.GetReqID(ctx)
	if reqID == "" {
		return l
	}
	ll := l.With().Str("request_id", reqID).Logger()
	return &ll
}

// Named returns a child logger with a component field.
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	ll := Get().With().Str("component", component).Logger()
	return &ll
}
