// Package zaplog provides a sqlsession.Logger writing to a zap logger.
package zaplog

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/blugnu/sqlsession"
)

// Logger writes the entries of a sqlsession Database to a zap logger.
// Entries for each component are written to a child logger named for
// the component.
type Logger struct {
	base       *zap.Logger
	components sync.Map // component name -> *zap.SugaredLogger
}

// New returns a Logger writing to l.  A nil l results in a Logger that
// writes nothing.
func New(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{base: l}
}

func level(l sqlsession.LogLevel) (zapcore.Level, bool) {
	switch l {
	case sqlsession.LevelDebug:
		return zapcore.DebugLevel, true
	case sqlsession.LevelInfo:
		return zapcore.InfoLevel, true
	case sqlsession.LevelWarn:
		return zapcore.WarnLevel, true
	case sqlsession.LevelError:
		return zapcore.ErrorLevel, true
	}
	return zapcore.InvalidLevel, false
}

func (l *Logger) component(name string) *zap.SugaredLogger {
	if c, ok := l.components.Load(name); ok {
		return c.(*zap.SugaredLogger)
	}
	c, _ := l.components.LoadOrStore(name, l.base.Named(name).Sugar())
	return c.(*zap.SugaredLogger)
}

// IsEnabled implements sqlsession.Logger.
func (l *Logger) IsEnabled(component string, lvl sqlsession.LogLevel) bool {
	zl, ok := level(lvl)
	if !ok {
		return false
	}
	return l.base.Core().Enabled(zl)
}

// Log implements sqlsession.Logger.  Entries with an undefined level are
// discarded.
func (l *Logger) Log(component string, lvl sqlsession.LogLevel, err error, msg string, keyvals ...any) {
	zl, ok := level(lvl)
	if !ok || !l.base.Core().Enabled(zl) {
		return
	}

	if err != nil {
		keyvals = append([]any{zap.Error(err)}, keyvals...)
	}
	l.component(component).Logw(zl, msg, keyvals...)
}
