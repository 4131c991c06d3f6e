// Package sqlxrepos implements the core repositories with squirrel query builders and sqlx struct scanning.
// The same repositories serve Postgres and SQLite: only the placeholder format and the scope locks differ.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core"
)

var mapper = reflectx.NewMapperFunc("db", strings.ToLower)

// repository holds what every repository shares: the default executor and the statement builder of its engine.
type repository struct {
	exec core.DBExecutor
	sb   sq.StatementBuilderType
}

func newRepository(exec core.DBExecutor, engine string) repository {
	var ph sq.PlaceholderFormat = sq.Question
	if engine == "postgres" {
		ph = sq.Dollar
	}
	return repository{exec: exec, sb: sq.StatementBuilder.PlaceholderFormat(ph)}
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// selectRows runs query and scans every row into dest, a pointer to a slice of structs.
func selectRows(ctx context.Context, exec core.DBExecutor, dest interface{}, query sq.Sqlizer) error {
	q, args, err := query.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()
	return sqlx.StructScan(rows, dest)
}

// getRow runs query and scans the first row into dest, a pointer to a struct.
// It returns sql.ErrNoRows when nothing matched.
func getRow(ctx context.Context, exec core.DBExecutor, dest interface{}, query sq.Sqlizer) error {
	q, args, err := query.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	rows, err := exec.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	r := &sqlx.Rows{Rows: rows, Mapper: mapper}
	defer func() { _ = r.Close() }()

	if !r.Next() {
		if err := r.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	return r.StructScan(dest)
}

// execute runs a statement and returns the number of affected rows.
func execute(ctx context.Context, exec core.DBExecutor, stmt sq.Sqlizer) (int, error) {
	q, args, err := stmt.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building statement")
	}
	res, err := exec.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting affected rows")
	}
	return int(n), nil
}

// orderBy turns orderings into ORDER BY clauses, keeping only the fields allowed for the table.
func orderBy(ordering []core.DBOrdering, allowed map[string]bool) []string {
	clauses := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			clauses = append(clauses, ord.String())
		}
	}
	return clauses
}
