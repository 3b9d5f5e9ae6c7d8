package sqlsession

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Reader provides forward-only access to the rows returned by
// Session.ExecuteReader.
type Reader struct {
	*sqlx.Rows
	cancel context.CancelFunc
}

// Close closes the rows and releases the context of the command.
func (r *Reader) Close() error {
	err := r.Rows.Close()
	r.cancel()
	return err
}

// GridReader reads the result sets returned by a single command in
// sequence.  Each Read function consumes one result set.
//
// A GridReader must be closed when no longer required, whether or not all
// result sets have been read.
type GridReader struct {
	rows    *sqlx.Rows
	cancel  context.CancelFunc
	started bool
	closed  bool
}

// next advances to the next unread result set, returning rows positioned
// before its first row.
func (g *GridReader) next() (*sqlx.Rows, error) {
	if g.closed {
		return nil, ObjectDisposedError{"grid reader"}
	}

	if g.started {
		if !g.rows.NextResultSet() {
			if err := g.rows.Err(); err != nil {
				return nil, err
			}
			return nil, ErrNoMoreResultSets
		}
	}
	g.started = true

	// a new sqlx.Rows is used for each result set since sqlx caches the
	// column mapping of the first struct scanned
	return &sqlx.Rows{Rows: g.rows.Rows, Mapper: g.rows.Mapper}, nil
}

// Close releases the rows and the context of the command.  Close is
// idempotent.
func (g *GridReader) Close() error {
	if g.closed {
		return nil
	}
	g.closed = true

	err := g.rows.Close()
	g.cancel()
	return err
}

// Read reads all rows of the next result set.
func Read[T any](g *GridReader) ([]T, error) {
	rows, err := g.next()
	if err != nil {
		return nil, err
	}
	return newScanner[T](rows).all()
}

// ReadFirst reads the first row of the next result set.  sql.ErrNoRows is
// returned if the result set is empty.
func ReadFirst[T any](g *GridReader) (T, error) {
	return readOne[T](g, firstRow)
}

// ReadFirstOrDefault reads the first row of the next result set, returning
// nil if the result set is empty.
func ReadFirstOrDefault[T any](g *GridReader) (*T, error) {
	return readOneOrDefault[T](g, firstRowOrDefault)
}

// ReadSingle reads the only row of the next result set.  sql.ErrNoRows is
// returned if the result set is empty and ErrMoreThanOneRow if it has more
// than one row.
func ReadSingle[T any](g *GridReader) (T, error) {
	return readOne[T](g, singleRow)
}

// ReadSingleOrDefault reads the only row of the next result set, returning
// nil if the result set is empty.  ErrMoreThanOneRow is returned if it has
// more than one row.
func ReadSingleOrDefault[T any](g *GridReader) (*T, error) {
	return readOneOrDefault[T](g, singleRowOrDefault)
}

func readOne[T any](g *GridReader, policy rowPolicy) (T, error) {
	var zero T
	v, err := readOneOrDefault[T](g, policy)
	if err != nil {
		return zero, err
	}
	return *v, nil
}

func readOneOrDefault[T any](g *GridReader, policy rowPolicy) (*T, error) {
	rows, err := g.next()
	if err != nil {
		return nil, err
	}
	return newScanner[T](rows).one(policy)
}
