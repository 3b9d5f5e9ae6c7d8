package sqlsession

import (
	"database/sql"
	"reflect"

	"github.com/jmoiron/sqlx"
)

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

// isStruct returns true if values of type t are scanned field-by-field
// from the columns of a row, i.e. t is a struct with at least one exported
// field which does not itself implement sql.Scanner.
func isStruct(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	if reflect.PointerTo(t).Implements(scannerType) {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		if t.Field(i).IsExported() {
			return true
		}
	}
	return false
}

// scanner scans the rows of a single result set into values of type T.
//
// A T which is a pointer to a struct is scanned field-by-field into a
// newly allocated struct.
type scanner[T any] struct {
	rows     *sqlx.Rows
	isStruct bool
	elem     reflect.Type // the struct type, when T is a pointer to it
}

func newScanner[T any](rows *sqlx.Rows) *scanner[T] {
	s := &scanner[T]{rows: rows}

	t := reflect.TypeFor[T]()
	switch {
	case isStruct(t):
		s.isStruct = true
	case t.Kind() == reflect.Pointer && isStruct(t.Elem()):
		s.isStruct = true
		s.elem = t.Elem()
	}
	return s
}

func (s *scanner[T]) scan() (T, error) {
	var v T
	switch {
	case s.elem != nil:
		p := reflect.New(s.elem)
		if err := s.rows.StructScan(p.Interface()); err != nil {
			return v, err
		}
		return p.Interface().(T), nil
	case s.isStruct:
		return v, s.rows.StructScan(&v)
	}
	return v, s.rows.Scan(&v)
}

// all scans every remaining row of the current result set.
func (s *scanner[T]) all() ([]T, error) {
	result := []T{}
	for s.rows.Next() {
		v, err := s.scan()
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, s.rows.Err()
}

// rowPolicy determines the behaviour of a single row read when the result
// set is empty or has more than one row.
type rowPolicy int

const (
	firstRow rowPolicy = iota
	firstRowOrDefault
	singleRow
	singleRowOrDefault
)

func (p rowPolicy) orDefault() bool { return p == firstRowOrDefault || p == singleRowOrDefault }
func (p rowPolicy) single() bool    { return p == singleRow || p == singleRowOrDefault }

// one reads a single row from the current result set according to the
// policy.  The result is nil only when the result set is empty and the
// policy permits a default.
//
// For a single row policy the remainder of the result set is read to
// establish that there is no second row; for a first row policy any
// remaining rows are left unread.
func (s *scanner[T]) one(policy rowPolicy) (*T, error) {
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, err
		}
		if policy.orDefault() {
			return nil, nil
		}
		return nil, sql.ErrNoRows
	}

	v, err := s.scan()
	if err != nil {
		return nil, err
	}

	if policy.single() {
		if s.rows.Next() {
			return nil, ErrMoreThanOneRow
		}
		if err := s.rows.Err(); err != nil {
			return nil, err
		}
	}

	return &v, nil
}
