package sqlsession

import (
	"fmt"
)

type Error string

func (e Error) Error() string { return string(e) }

// configuration errors
const ErrWithDbAndWithConnectorsIsInvalid = Error("cannot use WithConnector(s) when using WithDb")
const ErrWithDbAndWithConfigurationIsInvalid = Error("cannot use WithDbConfiguration when using WithDb")
const ErrConnectionFactoryIsExclusive = Error("cannot use WithConnectionFactory with WithDb or WithConnector(s)")
const ErrNoConnectorsConfigured = Error("no connectors, database or connection factory configured")
const ErrPingTimeoutIsInvalid = Error("ping timeout must be greater than or equal to zero")
const ErrDefaultTimeoutIsInvalid = Error("default timeout must be greater than or equal to zero")

// argument errors
const ErrCommandTextRequired = Error("sql command text is required")
const ErrConnectionFactoryRequired = Error("a connection factory is required")
const ErrLoggerRequired = Error("a logger is required")
const ErrDatabaseRequired = Error("a database is required")

// invalid operation errors
const ErrTransactionInProgress = Error("a transaction is already in progress")
const ErrMoreThanOneRow = Error("query returned more than one row")
const ErrNoMoreResultSets = Error("no more result sets")
const ErrUnsupportedCommandType = Error("unsupported command type")

// registry errors
const ErrDatabaseAlreadyRegistered = Error("database already registered")
const ErrDatabaseNotRegistered = Error("database not registered")
const ErrNoDefaultDatabase = Error("no default database registered")

// ObjectDisposedError is returned by any operation on a Session,
// Transaction or GridReader after it has been closed.
type ObjectDisposedError struct {
	Object string
}

// Error implements the error interface.
func (e ObjectDisposedError) Error() string {
	return fmt.Sprintf("%s: object is closed", e.Object)
}

// Is returns a boolean indicating whether the target error is an
// ObjectDisposedError.
func (e ObjectDisposedError) Is(target error) bool {
	_, ok := target.(ObjectDisposedError)
	return ok
}

// ConfigurationError wraps any error returned during configuration of
// a new database.
type ConfigurationError struct {
	error
}

// Error implements the error interface.
func (e ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.error)
}

// Is returns a boolean indicating whether the target error is a
// ConfigurationError.
func (e ConfigurationError) Is(target error) bool {
	_, ok := target.(ConfigurationError)
	return ok
}

// Unwrap returns the wrapped error.
func (e ConfigurationError) Unwrap() error {
	return e.error
}

// ConnectionFailedError wraps errors that occur when attempting to establish
// a connection and all configured connectors have failed.
type ConnectionFailedError struct {
	error
}

// Error implements the error interface.
func (e ConnectionFailedError) Error() string {
	return fmt.Sprintf("connection failed: %s", e.error)
}

// Is returns a boolean indicating whether the target error is a
// ConnectionFailedError.
func (e ConnectionFailedError) Is(target error) bool {
	_, ok := target.(ConnectionFailedError)
	return ok
}

// Unwrap returns the wrapped error.
func (e ConnectionFailedError) Unwrap() error {
	return e.error
}

// ConnectionError wraps an error from a connection attempt using
// a specific connector, identifying the operation that failed.
type ConnectionError struct {
	Connector
	op string
	error
}

// Error implements the error interface.
func (e ConnectionError) Error() string {
	return fmt.Sprintf("unable to connect: %s: %s: %s", e.Connector, e.op, e.error)
}

// Is returns a boolean indicating whether the target error is a
// ConnectionError.
func (e ConnectionError) Is(target error) bool {
	_, ok := target.(ConnectionError)
	return ok
}

// Unwrap returns the wrapped error.
func (e ConnectionError) Unwrap() error { return e.error }

// TransactionError wraps an error from a Database.Transact operation,
// identifying the name of the transaction and the operation that failed.
type TransactionError struct {
	txn string
	op  string
	error
}

// Error implements the error interface.
func (e TransactionError) Error() string {
	if e.op == "" {
		return fmt.Sprintf("transaction: %s: %s", e.txn, e.error)
	}
	return fmt.Sprintf("transaction: %s: %s: %s", e.txn, e.op, e.error)
}

// Is returns a boolean indicating whether the target error is a
// TransactionError.
//
// A target TransactionError is considered equal if it has the same
// transaction name and operation name as the receiver.
func (e TransactionError) Is(target error) bool {
	if other, ok := target.(TransactionError); ok {
		return e.txn == other.txn && e.op == other.op
	}
	return false
}

// Unwrap returns the wrapped error.
func (e TransactionError) Unwrap() error { return e.error }
