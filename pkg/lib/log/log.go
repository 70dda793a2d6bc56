// Package log exposes the logging interface the smokerig SDK logs through.
//
// Any [Logger] implementation works. When [lib.Config] carries no logger the
// SDK falls back to [Noop] and stays silent.
//
// Bridging to an application logger only takes the four format methods doing
// something useful:
//
//	type myLogger struct{}
//
//	func (l myLogger) Infof(format string, args ...any)    { slog.Info(fmt.Sprintf(format, args...)) }
//	func (l myLogger) Warningf(format string, args ...any) { slog.Warn(fmt.Sprintf(format, args...)) }
//	func (l myLogger) Errorf(format string, args ...any)   { slog.Error(fmt.Sprintf(format, args...)) }
//	func (l myLogger) Debugf(format string, args ...any)   { slog.Debug(fmt.Sprintf(format, args...)) }
//	// ... remaining methods
package log

import "github.com/rustedworkshop/smokerig/internal/log"

// Logger is what the SDK logs through. Structured values travel as [Kv] maps
// and can ride a context. Implementations that ignore everything but the
// format methods are fine.
type Logger = log.Logger

// Kv is a helper type for structured logging key-value pairs.
type Kv = log.Kv

// Noop discards all log output. It is the default when [lib.Config] carries
// no logger.
var Noop = log.Noop
