package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/campus"
)

const campusTable = "campus"

var campusColumns = []string{"code", "name", "floor_count", "created_at"}

type campusRow struct {
	Code       string    `db:"code"`
	Name       string    `db:"name"`
	FloorCount int       `db:"floor_count"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r campusRow) toCampus() campus.Campus {
	return campus.Campus{Code: r.Code, Name: r.Name, FloorCount: r.FloorCount, CreatedAt: r.CreatedAt.UTC()}
}

type campusRepository struct {
	repository
}

var _ campus.Repository = (*campusRepository)(nil) // interface compliance check

func NewCampusRepository(exec core.DBExecutor, engine string) *campusRepository {
	return &campusRepository{repository: newRepository(exec, engine)}
}

func (repo campusRepository) CreateCampus(ctx context.Context, c campus.Campus, exec ...core.DBExecutor) (campus.Campus, error) {
	exe := repo.getExec(exec)

	var found []campusRow
	query := repo.sb.Select(campusColumns...).From(campusTable).Where(sq.Eq{"code": c.Code}).Limit(1)
	if err := selectRows(ctx, exe, &found, query); err != nil {
		return campus.Campus{}, errors.Wrap(err, "checking campus code")
	}
	if len(found) > 0 {
		return campus.Campus{}, campus.ErrExists
	}

	stmt := repo.sb.Insert(campusTable).Columns(campusColumns...).Values(c.Code, c.Name, c.FloorCount, c.CreatedAt.UTC())
	if _, err := execute(ctx, exe, stmt); err != nil {
		return campus.Campus{}, errors.Wrap(err, "inserting campus")
	}
	return c, nil
}

func (repo campusRepository) QueryCampuses(ctx context.Context, exec ...core.DBExecutor) ([]campus.Campus, error) {
	var rows []campusRow
	query := repo.sb.Select(campusColumns...).From(campusTable).OrderBy("code ASC")
	if err := selectRows(ctx, repo.getExec(exec), &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying campuses")
	}
	campuses := make([]campus.Campus, 0, len(rows))
	for _, r := range rows {
		campuses = append(campuses, r.toCampus())
	}
	return campuses, nil
}

func (repo campusRepository) GetCampus(ctx context.Context, code string, exec ...core.DBExecutor) (campus.Campus, error) {
	var row campusRow
	query := repo.sb.Select(campusColumns...).From(campusTable).Where(sq.Eq{"code": code}).Limit(1)
	if err := getRow(ctx, repo.getExec(exec), &row, query); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return campus.Campus{}, campus.ErrNotFound
		}
		return campus.Campus{}, errors.Wrap(err, "finding campus")
	}
	return row.toCampus(), nil
}
