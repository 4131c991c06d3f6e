package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/member"
	"github.com/trezcool/cohort/core/mentorship"
)

const assignmentTable = "mentor_assignment"

var assignmentColumns = []string{"student_id", "mentor_id", "campus", "floor", "assigned_at"}

type assignmentRow struct {
	StudentID  string    `db:"student_id"`
	MentorID   string    `db:"mentor_id"`
	Campus     string    `db:"campus"`
	Floor      int       `db:"floor"`
	AssignedAt time.Time `db:"assigned_at"`
}

func (r assignmentRow) toAssignment() mentorship.Assignment {
	return mentorship.Assignment{
		StudentID:  r.StudentID,
		MentorID:   r.MentorID,
		Campus:     r.Campus,
		Floor:      r.Floor,
		AssignedAt: r.AssignedAt.UTC(),
	}
}

type assignmentRepository struct {
	repository
}

var _ mentorship.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(exec core.DBExecutor, engine string) *assignmentRepository {
	return &assignmentRepository{repository: newRepository(exec, engine)}
}

func (repo assignmentRepository) QueryScopeMembers(
	ctx context.Context,
	filter mentorship.ScopeFilter,
	exec ...core.DBExecutor,
) ([]member.Member, error) {
	query := repo.sb.Select(memberColumns...).From(memberTable).
		Where(sq.Eq{
			"role":      filter.Role.String(),
			"campus":    filter.Campus,
			"floor":     filter.Floor,
			"is_active": true,
		}).
		OrderBy("id ASC")
	if filter.UnassignedOnly {
		query = query.Where("NOT EXISTS (SELECT 1 FROM " + assignmentTable + " a WHERE a.student_id = " + memberTable + ".id)")
	}

	var rows []memberRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying scope members")
	}
	return toMembers(rows), nil
}

// UpsertAssignments writes every assignment with a single multi-row statement.
func (repo assignmentRepository) UpsertAssignments(ctx context.Context, assignments []mentorship.Assignment, exec ...core.DBExecutor) error {
	if len(assignments) == 0 {
		return nil
	}
	stmt := repo.sb.Insert(assignmentTable).Columns(assignmentColumns...)
	for _, a := range assignments {
		stmt = stmt.Values(a.StudentID, a.MentorID, a.Campus, a.Floor, a.AssignedAt.UTC())
	}
	stmt = stmt.Suffix(
		"ON CONFLICT (student_id) DO UPDATE SET " +
			"mentor_id = excluded.mentor_id, campus = excluded.campus, " +
			"floor = excluded.floor, assigned_at = excluded.assigned_at",
	)
	if _, err := execute(ctx, repo.getExec(exec), stmt); err != nil {
		return errors.Wrap(err, "upserting assignments")
	}
	return nil
}

func (repo assignmentRepository) QueryAssignments(
	ctx context.Context,
	filter mentorship.QueryFilter,
	exec ...core.DBExecutor,
) ([]mentorship.Assignment, error) {
	query := repo.sb.Select(assignmentColumns...).From(assignmentTable).OrderBy("campus ASC", "floor ASC", "student_id ASC")
	if filter.Campus != "" {
		query = query.Where(sq.Eq{"campus": filter.Campus})
	}
	if filter.Floor != 0 {
		query = query.Where(sq.Eq{"floor": filter.Floor})
	}
	if filter.MentorID != "" {
		query = query.Where(sq.Eq{"mentor_id": filter.MentorID})
	}

	var rows []assignmentRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	assignments := make([]mentorship.Assignment, 0, len(rows))
	for _, r := range rows {
		assignments = append(assignments, r.toAssignment())
	}
	return assignments, nil
}

func (repo assignmentRepository) GetAssignment(ctx context.Context, studentID string, exec ...core.DBExecutor) (mentorship.Assignment, error) {
	var row assignmentRow
	query := repo.sb.Select(assignmentColumns...).From(assignmentTable).Where(sq.Eq{"student_id": studentID}).Limit(1)
	if err := getRow(ctx, repo.getExec(exec), &row, query); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return mentorship.Assignment{}, mentorship.ErrNotFound
		}
		return mentorship.Assignment{}, errors.Wrap(err, "finding assignment")
	}
	return row.toAssignment(), nil
}

func (repo assignmentRepository) DeleteAssignments(ctx context.Context, filter mentorship.DeleteFilter, exec ...core.DBExecutor) (int, error) {
	stmt := repo.sb.Delete(assignmentTable)
	switch {
	case filter.StudentID != "":
		stmt = stmt.Where(sq.Eq{"student_id": filter.StudentID})
	case filter.MemberID != "":
		stmt = stmt.Where(sq.Or{sq.Eq{"student_id": filter.MemberID}, sq.Eq{"mentor_id": filter.MemberID}})
	default:
		return 0, nil
	}

	n, err := execute(ctx, repo.getExec(exec), stmt)
	if err != nil {
		return 0, errors.Wrap(err, "deleting assignments")
	}
	return n, nil
}
