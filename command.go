package sqlsession

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// CommandType determines how the text of a command is interpreted.
type CommandType int

const (
	// CommandText is a sql statement (or batch of statements).
	CommandText CommandType = iota

	// CommandStoredProcedure is the name of a stored procedure, called with
	// any positional arguments.
	CommandStoredProcedure

	// CommandTableDirect is the name of a table, all rows of which are
	// selected.
	CommandTableDirect
)

// String implements the fmt.Stringer interface.
func (t CommandType) String() string {
	switch t {
	case CommandText:
		return "text"
	case CommandStoredProcedure:
		return "stored procedure"
	case CommandTableDirect:
		return "table direct"
	default:
		return fmt.Sprintf("CommandType(%d)", int(t))
	}
}

// Args holds positional arguments for a command using '?' placeholders.
type Args []any

// CommandOptions holds the per-command settings.  The zero value means
// no parameters, the default timeout and CommandText.
type CommandOptions struct {
	// Parameters may be a struct or map[string]any, binding ':name'
	// placeholders, or Args ([]any) binding positional '?' placeholders.
	// Slice values are expanded for use in IN (?) clauses.
	Parameters any

	// Timeout overrides the default timeout of the database when non-zero.
	Timeout time.Duration

	// Type determines how the command text is interpreted.
	Type CommandType
}

// CommandOption modifies the CommandOptions of a single command.
type CommandOption func(*CommandOptions)

// Params sets named parameters for a command, supplied as a struct
// (fields mapped using `db` tags) or a map[string]any.
func Params(p any) CommandOption {
	return func(o *CommandOptions) { o.Parameters = p }
}

// WithArgs sets positional arguments for a command.  A command with no
// arguments has no parameters.
func WithArgs(args ...any) CommandOption {
	return func(o *CommandOptions) {
		if len(args) == 0 {
			o.Parameters = nil
			return
		}
		o.Parameters = Args(args)
	}
}

// Timeout sets the timeout for a command.
func Timeout(d time.Duration) CommandOption {
	return func(o *CommandOptions) { o.Timeout = d }
}

// Type sets the command type.
func Type(t CommandType) CommandOption {
	return func(o *CommandOptions) { o.Type = t }
}

// With replaces all options for a command.
func With(opts CommandOptions) CommandOption {
	return func(o *CommandOptions) { *o = opts }
}

// executor is satisfied by both the connection and the transaction of a
// session.
type executor interface {
	sqlx.ExecerContext
	sqlx.QueryerContext
	Rebind(string) string
}

var (
	_ executor = (*sqlx.Conn)(nil)
	_ executor = (*sqlx.Tx)(nil)
)

// command is the resolved description of a command: the text and
// arguments to be executed, the timeout and whether it runs in a
// transaction.
type command struct {
	text          string
	args          []any
	hasParameters bool
	timeout       time.Duration
	commandType   CommandType
	transactional bool
}

// newCommand resolves the text and options of a command.  The bound text
// uses '?' placeholders; it is rebound for the driver when the command
// is run.
func newCommand(text string, defaultTimeout time.Duration, opts []CommandOption) (*command, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrCommandTextRequired
	}

	o := CommandOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	cmd := &command{
		text:          text,
		hasParameters: o.Parameters != nil,
		timeout:       o.Timeout,
		commandType:   o.Type,
	}
	if cmd.timeout == 0 {
		cmd.timeout = defaultTimeout
	}

	if err := cmd.bind(o.Parameters); err != nil {
		return nil, err
	}
	return cmd, nil
}

func (cmd *command) bind(params any) (err error) {
	var args []any

	switch p := params.(type) {
	case nil:
	case Args:
		args = p
	case []any:
		args = p
	default:
		if cmd.commandType == CommandStoredProcedure {
			return fmt.Errorf("%w: named parameters with %s", ErrUnsupportedCommandType, cmd.commandType)
		}
		if cmd.text, args, err = sqlx.Named(cmd.text, p); err != nil {
			return err
		}
	}

	switch cmd.commandType {
	case CommandText:
	case CommandStoredProcedure:
		cmd.text = "CALL " + cmd.text + "(" + placeholders(len(args)) + ")"
	case CommandTableDirect:
		cmd.text = "SELECT * FROM " + cmd.text
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedCommandType, cmd.commandType)
	}

	if len(args) > 0 {
		if cmd.text, args, err = sqlx.In(cmd.text, args...); err != nil {
			return err
		}
	}
	cmd.args = args

	return nil
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// context returns a context for running the command, applying any timeout.
// The returned cancel func must be called once the command (including
// any rows it returns) is finished with.
func (cmd *command) context(ctx context.Context) (context.Context, context.CancelFunc) {
	if cmd.timeout > 0 {
		return context.WithTimeout(ctx, cmd.timeout)
	}
	return context.WithCancel(ctx)
}

func (cmd *command) log(log componentLogger) {
	if !log.enabled(LevelDebug) {
		return
	}
	log.debug("executing sql command",
		"has_parameters", cmd.hasParameters,
		"is_transactional", cmd.transactional,
		"timeout", cmd.timeout,
		"command_type", cmd.commandType,
		"command_text", cmd.text,
	)
}
