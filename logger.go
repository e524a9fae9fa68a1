package gfx

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"
)

// nopHandler drops every record. Enabled is false at all levels, so
// arguments to disabled log calls are never formatted.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var silent = slog.New(nopHandler{})

// logger is read on every frame and swapped by SetLogger from any goroutine.
var logger atomic.Pointer[slog.Logger]

func init() { logger.Store(silent) }

// SetLogger routes gfx and wgpu HAL diagnostics to l. nil silences both,
// which is also the initial state.
//
// gfx logs device creation and Close at Info, fallbacks such as an
// unsupported present mode or a deferred destroy at Warn, and per-frame
// events (skipped frames, surface reconfigures, resource creation) at Debug.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	logger.Store(l)
	hal.SetLogger(l)
}

// Logger returns the logger installed by SetLogger.
func Logger() *slog.Logger { return logger.Load() }
