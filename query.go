package sqlsession

import (
	"context"
	"iter"
)

// Query runs a query on the session and returns all rows, mapped to T.
//
// A struct T is mapped column-by-column to fields (by `db` tag or
// lower-cased field name); any other T is scanned from a single column.
func Query[T any](ctx context.Context, s *Session, text string, opts ...CommandOption) ([]T, error) {
	rows, cancel, err := s.query(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	return newScanner[T](rows).all()
}

// QuerySingle runs a query that must return exactly one row.  sql.ErrNoRows
// is returned if there are no rows and ErrMoreThanOneRow if there is more
// than one.
func QuerySingle[T any](ctx context.Context, s *Session, text string, opts ...CommandOption) (T, error) {
	return queryOne[T](ctx, s, text, opts, singleRow)
}

// QuerySingleOrDefault runs a query that must return at most one row,
// returning nil if there are no rows.  ErrMoreThanOneRow is returned if
// there is more than one.
func QuerySingleOrDefault[T any](ctx context.Context, s *Session, text string, opts ...CommandOption) (*T, error) {
	return queryOneOrDefault[T](ctx, s, text, opts, singleRowOrDefault)
}

// QueryFirst runs a query and returns the first row; any other rows are
// ignored.  sql.ErrNoRows is returned if there are no rows.
func QueryFirst[T any](ctx context.Context, s *Session, text string, opts ...CommandOption) (T, error) {
	return queryOne[T](ctx, s, text, opts, firstRow)
}

// QueryFirstOrDefault runs a query and returns the first row, or nil if
// there are no rows; any other rows are ignored.
func QueryFirstOrDefault[T any](ctx context.Context, s *Session, text string, opts ...CommandOption) (*T, error) {
	return queryOneOrDefault[T](ctx, s, text, opts, firstRowOrDefault)
}

func queryOne[T any](ctx context.Context, s *Session, text string, opts []CommandOption, policy rowPolicy) (T, error) {
	var zero T
	v, err := queryOneOrDefault[T](ctx, s, text, opts, policy)
	if err != nil {
		return zero, err
	}
	return *v, nil
}

func queryOneOrDefault[T any](ctx context.Context, s *Session, text string, opts []CommandOption, policy rowPolicy) (*T, error) {
	rows, cancel, err := s.query(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer rows.Close()

	return newScanner[T](rows).one(policy)
}

// ExecuteScalar runs a command and returns the first column of the first
// row.  The zero value of T is returned if there are no rows or the value
// is NULL.
func ExecuteScalar[T any](ctx context.Context, s *Session, text string, opts ...CommandOption) (T, error) {
	var zero T

	rows, cancel, err := s.query(ctx, text, opts)
	if err != nil {
		return zero, err
	}
	defer cancel()
	defer rows.Close()

	if !rows.Next() {
		return zero, rows.Err()
	}

	cols, err := rows.Columns()
	if err != nil {
		return zero, err
	}

	var v *T
	dest := make([]any, len(cols))
	dest[0] = &v
	for i := 1; i < len(dest); i++ {
		dest[i] = new(any)
	}
	if err := rows.Scan(dest...); err != nil {
		return zero, err
	}

	if v == nil {
		return zero, nil
	}
	return *v, nil
}

// QueryStreamed returns a sequence over the rows of a query, mapped to T.
// The query is run when the sequence is iterated and its rows are read
// one at a time; the rows are released when iteration completes or is
// abandoned.  Each iteration of the sequence runs the query again.
//
// Any error (including cancellation of ctx) is yielded with the zero
// value of T and ends the sequence.
func QueryStreamed[T any](ctx context.Context, s *Session, text string, opts ...CommandOption) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T

		rows, cancel, err := s.query(ctx, text, opts)
		if err != nil {
			yield(zero, err)
			return
		}
		defer cancel()
		defer rows.Close()

		sc := newScanner[T](rows)
		for rows.Next() {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}
			v, err := sc.scan()
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(zero, err)
		}
	}
}
