package sqlsession

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/exp/slices"
)

type foo struct {
	ID   int    `db:"id"`
	Name string `db:"name"`
}

func fooRows(ids ...int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name"})
	for _, id := range ids {
		rows.AddRow(id, "foo "+string(rune('a'+id-1)))
	}
	return rows
}

func TestQuery(t *testing.T) {
	t.Run("maps rows to structs", func(t *testing.T) {
		// ARRANGE
		ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("select id, name from foo where id in (?, ?)").
				WithArgs(1, 2).
				WillReturnRows(fooRows(1, 2))
		})
		defer assertExpectationsMet(t, dbmock)

		// ACT
		result, err := Query[foo](ctx, s, "select id, name from foo where id in (:ids)", Params(map[string]any{"ids": []int{1, 2}}))

		// ASSERT
		assertErrorIsNil(t, err)

		t.Run("returns expected rows", func(t *testing.T) {
			wanted := []foo{{1, "foo a"}, {2, "foo b"}}
			got := result
			if !slices.Equal(wanted, got) {
				t.Errorf("\nwanted %#v\ngot    %#v", wanted, got)
			}
		})
	})

	t.Run("maps rows to struct pointers", func(t *testing.T) {
		// ARRANGE
		ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("select id, name from foo").WillReturnRows(fooRows(1, 2))
		})
		defer assertExpectationsMet(t, dbmock)

		// ACT
		result, err := Query[*foo](ctx, s, "select id, name from foo")

		// ASSERT
		assertErrorIsNil(t, err)

		t.Run("returns expected rows", func(t *testing.T) {
			wanted := []foo{{1, "foo a"}, {2, "foo b"}}
			if len(result) != len(wanted) {
				t.Fatalf("\nwanted %#v\ngot    %#v", wanted, result)
			}
			for i, got := range result {
				if got == nil || *got != wanted[i] {
					t.Errorf("\nwanted %#v\ngot    %#v", wanted[i], got)
				}
			}
		})

		t.Run("allocates each row", func(t *testing.T) {
			if len(result) == 2 && result[0] == result[1] {
				t.Error("rows share a struct")
			}
		})
	})

	t.Run("maps single column to scalars", func(t *testing.T) {
		// ARRANGE
		ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("select id from foo").
				WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3).AddRow(1))
		})
		defer assertExpectationsMet(t, dbmock)

		// ACT
		result, err := Query[int](ctx, s, "select id from foo")

		// ASSERT
		assertErrorIsNil(t, err)

		t.Run("returns expected values", func(t *testing.T) {
			wanted := []int{3, 1}
			got := result
			if !slices.Equal(wanted, got) {
				t.Errorf("\nwanted %#v\ngot    %#v", wanted, got)
			}
		})
	})

	t.Run("with no rows", func(t *testing.T) {
		// ARRANGE
		ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("select id, name from foo").WillReturnRows(fooRows())
		})
		defer assertExpectationsMet(t, dbmock)

		// ACT
		result, err := Query[foo](ctx, s, "select id, name from foo")

		// ASSERT
		assertErrorIsNil(t, err)

		t.Run("returns empty slice", func(t *testing.T) {
			if result == nil || len(result) != 0 {
				t.Errorf("\nwanted %#v\ngot    %#v", []foo{}, result)
			}
		})
	})

	t.Run("when query fails", func(t *testing.T) {
		// ARRANGE
		qryerr := errors.New("query error")
		ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("select id, name from foo").WillReturnError(qryerr)
		})
		defer assertExpectationsMet(t, dbmock)

		// ACT
		_, err := Query[foo](ctx, s, "select id, name from foo")

		// ASSERT
		assertExpectedError(t, qryerr, err)
	})

	t.Run("as table direct", func(t *testing.T) {
		// ARRANGE
		ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("SELECT * FROM foo").WillReturnRows(fooRows(1))
		})
		defer assertExpectationsMet(t, dbmock)

		// ACT
		result, err := Query[foo](ctx, s, "foo", Type(CommandTableDirect))

		// ASSERT
		assertErrorIsNil(t, err)

		t.Run("returns expected rows", func(t *testing.T) {
			wanted := []foo{{1, "foo a"}}
			got := result
			if !slices.Equal(wanted, got) {
				t.Errorf("\nwanted %#v\ngot    %#v", wanted, got)
			}
		})
	})
}

func TestQuery_rowPolicies(t *testing.T) {
	// ARRANGE
	type result struct {
		value *foo
		error
	}

	query := func(t *testing.T, ids []int, fn func(context.Context, *Session) (*foo, error)) result {
		ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("select id, name from foo").WillReturnRows(fooRows(ids...))
		})
		defer assertExpectationsMet(t, dbmock)

		v, err := fn(ctx, s)
		return result{v, err}
	}

	single := func(ctx context.Context, s *Session) (*foo, error) {
		v, err := QuerySingle[foo](ctx, s, "select id, name from foo")
		if err != nil {
			return nil, err
		}
		return &v, nil
	}
	singleOrDefault := func(ctx context.Context, s *Session) (*foo, error) {
		return QuerySingleOrDefault[foo](ctx, s, "select id, name from foo")
	}
	first := func(ctx context.Context, s *Session) (*foo, error) {
		v, err := QueryFirst[foo](ctx, s, "select id, name from foo")
		if err != nil {
			return nil, err
		}
		return &v, nil
	}
	firstOrDefault := func(ctx context.Context, s *Session) (*foo, error) {
		return QueryFirstOrDefault[foo](ctx, s, "select id, name from foo")
	}

	testcases := []struct {
		name  string
		ids   []int
		fn    func(context.Context, *Session) (*foo, error)
		value *foo
		error
	}{
		{name: "single/no rows", fn: single, error: sql.ErrNoRows},
		{name: "single/one row", ids: []int{1}, fn: single, value: &foo{1, "foo a"}},
		{name: "single/two rows", ids: []int{1, 2}, fn: single, error: ErrMoreThanOneRow},
		{name: "single or default/no rows", fn: singleOrDefault},
		{name: "single or default/one row", ids: []int{2}, fn: singleOrDefault, value: &foo{2, "foo b"}},
		{name: "single or default/two rows", ids: []int{1, 2}, fn: singleOrDefault, error: ErrMoreThanOneRow},
		{name: "first/no rows", fn: first, error: sql.ErrNoRows},
		{name: "first/one row", ids: []int{1}, fn: first, value: &foo{1, "foo a"}},
		{name: "first/two rows", ids: []int{2, 1}, fn: first, value: &foo{2, "foo b"}},
		{name: "first or default/no rows", fn: firstOrDefault},
		{name: "first or default/two rows", ids: []int{1, 2}, fn: firstOrDefault, value: &foo{1, "foo a"}},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			// ACT
			result := query(t, tc.ids, tc.fn)

			// ASSERT
			t.Run("returns expected error", func(t *testing.T) {
				wanted := tc.error
				got := result.error
				if !errors.Is(got, wanted) {
					t.Errorf("\nwanted %#v\ngot    %#v", wanted, got)
				}
			})

			t.Run("returns expected value", func(t *testing.T) {
				wanted := tc.value
				got := result.value
				if (wanted == nil) != (got == nil) || (wanted != nil && *wanted != *got) {
					t.Errorf("\nwanted %#v\ngot    %#v", wanted, got)
				}
			})
		})
	}
}

func TestExecuteScalar(t *testing.T) {
	t.Run("returns first column of first row", func(t *testing.T) {
		// ARRANGE
		ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("select count(*), max(id) from foo").
				WillReturnRows(sqlmock.NewRows([]string{"count", "max"}).AddRow(42, 7).AddRow(1, 1))
		})
		defer assertExpectationsMet(t, dbmock)

		// ACT
		result, err := ExecuteScalar[int64](ctx, s, "select count(*), max(id) from foo")

		// ASSERT
		assertErrorIsNil(t, err)

		t.Run("returns expected value", func(t *testing.T) {
			wanted := int64(42)
			got := result
			if wanted != got {
				t.Errorf("\nwanted %#v\ngot    %#v", wanted, got)
			}
		})
	})

	t.Run("with NULL value", func(t *testing.T) {
		// ARRANGE
		ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("select max(name) from foo").
				WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))
		})
		defer assertExpectationsMet(t, dbmock)

		// ACT
		result, err := ExecuteScalar[string](ctx, s, "select max(name) from foo")

		// ASSERT
		assertErrorIsNil(t, err)

		t.Run("returns zero value", func(t *testing.T) {
			wanted := ""
			got := result
			if wanted != got {
				t.Errorf("\nwanted %#v\ngot    %#v", wanted, got)
			}
		})
	})

	t.Run("with no rows", func(t *testing.T) {
		// ARRANGE
		ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("select id from foo").
				WillReturnRows(sqlmock.NewRows([]string{"id"}))
		})
		defer assertExpectationsMet(t, dbmock)

		// ACT
		result, err := ExecuteScalar[int](ctx, s, "select id from foo")

		// ASSERT
		assertErrorIsNil(t, err)

		t.Run("returns zero value", func(t *testing.T) {
			wanted := 0
			got := result
			if wanted != got {
				t.Errorf("\nwanted %#v\ngot    %#v", wanted, got)
			}
		})
	})
}

func TestQueryStreamed(t *testing.T) {
	t.Run("yields each row", func(t *testing.T) {
		// ARRANGE
		ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("select id, name from foo").WillReturnRows(fooRows(1, 2, 3))
		})
		defer assertExpectationsMet(t, dbmock)

		// ACT
		result := []foo{}
		var err error
		for v, e := range QueryStreamed[foo](ctx, s, "select id, name from foo") {
			if e != nil {
				err = e
				break
			}
			result = append(result, v)
		}

		// ASSERT
		assertErrorIsNil(t, err)

		t.Run("returns expected rows", func(t *testing.T) {
			wanted := []foo{{1, "foo a"}, {2, "foo b"}, {3, "foo c"}}
			got := result
			if !slices.Equal(wanted, got) {
				t.Errorf("\nwanted %#v\ngot    %#v", wanted, got)
			}
		})
	})

	t.Run("when abandoned", func(t *testing.T) {
		// ARRANGE
		ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("select id, name from foo").
				WillReturnRows(fooRows(1, 2, 3))
			m.ExpectExec("delete from foo").WillReturnResult(sqlmock.NewResult(0, 3))
		})
		defer assertExpectationsMet(t, dbmock)

		// ACT
		n := 0
		for range QueryStreamed[foo](ctx, s, "select id, name from foo") {
			n++
			break
		}
		_, err := s.Execute(ctx, "delete from foo")

		// ASSERT
		t.Run("releases the rows", func(t *testing.T) {
			if err != nil || n != 1 {
				t.Errorf("\nwanted 1 row and no error\ngot    %d row(s), %v", n, err)
			}
		})
	})

	t.Run("when a row fails", func(t *testing.T) {
		// ARRANGE
		rowerr := errors.New("row error")
		ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("select id, name from foo").
				WillReturnRows(fooRows(1, 2).RowError(1, rowerr))
		})
		defer assertExpectationsMet(t, dbmock)

		// ACT
		var err error
		n := 0
		for _, e := range QueryStreamed[foo](ctx, s, "select id, name from foo") {
			if e != nil {
				err = e
				continue
			}
			n++
		}

		// ASSERT
		assertExpectedError(t, rowerr, err)

		t.Run("yields rows before the error", func(t *testing.T) {
			wanted := 1
			got := n
			if wanted != got {
				t.Errorf("\nwanted %#v\ngot    %#v", wanted, got)
			}
		})
	})

	t.Run("when context is cancelled", func(t *testing.T) {
		// ARRANGE
		_, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
			m.ExpectQuery("select id, name from foo").WillReturnRows(fooRows(1, 2, 3))
		})
		defer assertExpectationsMet(t, dbmock)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// ACT
		var err error
		n := 0
		for _, e := range QueryStreamed[foo](ctx, s, "select id, name from foo") {
			if e != nil {
				err = e
				continue
			}
			n++
			cancel()
		}

		// ASSERT
		assertExpectedError(t, context.Canceled, err)

		t.Run("stops after cancellation", func(t *testing.T) {
			wanted := 1
			got := n
			if wanted != got {
				t.Errorf("\nwanted %#v\ngot    %#v", wanted, got)
			}
		})
	})

	t.Run("is lazy", func(t *testing.T) {
		// ARRANGE
		ctx, s, dbmock := arrangeSessionTest(t, nil)
		defer assertExpectationsMet(t, dbmock)

		// ACT
		_ = QueryStreamed[foo](ctx, s, "select id, name from foo")

		// ASSERT
		t.Run("does not connect", func(t *testing.T) {
			wanted := false
			got := s.conn != nil
			if wanted != got {
				t.Errorf("\nwanted %#v\ngot    %#v", wanted, got)
			}
		})
	})
}

func TestQuery_timeout(t *testing.T) {
	// ARRANGE
	ctx, s, dbmock := arrangeSessionTest(t, func(m sqlmock.Sqlmock) {
		m.ExpectQuery("select id, name from foo").
			WillDelayFor(200 * time.Millisecond).
			WillReturnRows(fooRows(1))
	})
	defer assertExpectationsMet(t, dbmock)

	// ACT
	_, err := Query[foo](ctx, s, "select id, name from foo", Timeout(20*time.Millisecond))

	// ASSERT
	t.Run("returns an error", func(t *testing.T) {
		if err == nil {
			t.Error("wanted error, got nil")
		}
	})
}
