package sqlsession

// LogLevel identifies the severity of a log entry.
type LogLevel int

const (
	LevelUndefined LogLevel = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

// String implements the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "undefined"
	}
}

// components identifying the source of a log entry
const (
	componentDatabase    = "database"
	componentSession     = "session"
	componentTransaction = "transaction"
)

// Logger is the sink for log entries written by a Database and the
// sessions and transactions it creates.
//
// The component identifies the type writing the entry.  Messages are
// constant strings; any variable data is supplied as alternating key/value
// pairs which an implementation must not evaluate unless the level is
// enabled for the component.
type Logger interface {
	Log(component string, level LogLevel, err error, msg string, keyvals ...any)
	IsEnabled(component string, level LogLevel) bool
}

// NullLogger is a Logger for which every level is disabled.
var NullLogger Logger = nullLogger{}

type nullLogger struct{}

func (nullLogger) Log(string, LogLevel, error, string, ...any) {}
func (nullLogger) IsEnabled(string, LogLevel) bool             { return false }

// componentLogger binds a Logger to a component and gates every entry on
// the level being enabled.
type componentLogger struct {
	Logger
	component string
}

func (l componentLogger) log(level LogLevel, err error, msg string, keyvals ...any) {
	if !l.IsEnabled(l.component, level) {
		return
	}
	l.Log(l.component, level, err, msg, keyvals...)
}

func (l componentLogger) enabled(level LogLevel) bool {
	return l.IsEnabled(l.component, level)
}

func (l componentLogger) debug(msg string, keyvals ...any) {
	l.log(LevelDebug, nil, msg, keyvals...)
}

func (l componentLogger) info(msg string, keyvals ...any) {
	l.log(LevelInfo, nil, msg, keyvals...)
}

func (l componentLogger) warn(err error, msg string, keyvals ...any) {
	l.log(LevelWarn, err, msg, keyvals...)
}

func (l componentLogger) error(err error, msg string, keyvals ...any) {
	l.log(LevelError, err, msg, keyvals...)
}
