// Package log exposes the logging contract used across the scriba SDK.
//
// Everything the engine logs flows through a single [Logger]. The default
// is [Noop], which drops all output; wire an implementation through
// lib.Config to see scheduler, workflow, and storage activity.
//
// A minimal adapter over the standard library slog looks like:
//
//	type slogAdapter struct{ l *slog.Logger }
//
//	func (a slogAdapter) Debugf(format string, args ...any) { a.l.Debug(fmt.Sprintf(format, args...)) }
//	func (a slogAdapter) Infof(format string, args ...any)  { a.l.Info(fmt.Sprintf(format, args...)) }
//	// ... Warningf, Errorf, and the WithValues/context plumbing.
package log

import "github.com/scribahq/scriba/internal/log"

// Logger is the interface loggers must implement for the SDK.
//
// [Kv] fields attached with WithValues end up on every line the returned
// logger writes, which is how the engine tags messages per subsystem.
// For most integrations only the format methods (Debugf, Infof, Warningf,
// Errorf) need meaningful implementations.
type Logger = log.Logger

// Kv is the key-value field set for structured logging.
type Kv = log.Kv

// Noop discards all log output. It is the default when lib.Config has
// no logger set.
var Noop = log.Noop
