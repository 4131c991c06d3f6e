package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/member"
)

const memberTable = "member"

var (
	memberColumns = []string{
		"id", "name", "username", "email", "is_active", "role", "campus", "floor",
		"password_hash", "created_at", "updated_at", "last_login",
	}
	memberOrderings = map[string]bool{
		"id": true, "name": true, "username": true, "email": true, "role": true, "campus": true,
		"floor": true, "is_active": true, "created_at": true, "updated_at": true, "last_login": true,
	}
)

// memberRow is the database representation of a member.Member.
type memberRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	IsActive     bool        `db:"is_active"`
	Role         string      `db:"role"`
	Campus       null.String `db:"campus"`
	Floor        null.Int    `db:"floor"`
	PasswordHash string      `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

func toMemberRow(m member.Member) memberRow {
	return memberRow{
		ID:           m.ID,
		Name:         m.Name,
		Username:     null.NewString(m.Username, m.Username != ""),
		Email:        null.NewString(m.Email, m.Email != ""),
		IsActive:     m.IsActive,
		Role:         m.Role.String(),
		Campus:       null.NewString(m.Campus, m.Campus != ""),
		Floor:        null.NewInt(m.Floor, m.Floor != 0),
		PasswordHash: string(m.PasswordHash),
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(m.LastLogin.UTC(), !m.LastLogin.IsZero()),
	}
}

func (r memberRow) toMember() member.Member {
	role, _ := member.ParseRole(r.Role)
	m := member.Member{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		IsActive:     r.IsActive,
		Role:         role,
		Campus:       r.Campus.String,
		Floor:        r.Floor.Int,
		PasswordHash: []byte(r.PasswordHash),
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		m.LastLogin = r.LastLogin.Time.UTC()
	}
	return m
}

func toMembers(rows []memberRow) []member.Member {
	members := make([]member.Member, 0, len(rows))
	for _, r := range rows {
		members = append(members, r.toMember())
	}
	return members
}

func (r memberRow) values() []interface{} {
	return []interface{}{
		r.ID, r.Name, r.Username, r.Email, r.IsActive, r.Role, r.Campus, r.Floor,
		r.PasswordHash, r.CreatedAt, r.UpdatedAt, r.LastLogin,
	}
}

type memberRepository struct {
	repository
}

var _ member.Repository = (*memberRepository)(nil) // interface compliance check

func NewMemberRepository(exec core.DBExecutor, engine string) *memberRepository {
	return &memberRepository{repository: newRepository(exec, engine)}
}

// trapNoRowsErr maps "no rows" err to member.ErrNotFound
func (repo memberRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return member.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo memberRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedMembers ...member.Member) error {
	if username == "" && email == "" {
		return nil
	}
	or := sq.Or{}
	if username != "" {
		or = append(or, sq.Eq{"username": username})
	}
	if email != "" {
		or = append(or, sq.Eq{"email": email})
	}
	query := repo.sb.Select("username", "email").From(memberTable).Where(or)
	if len(excludedMembers) > 0 {
		ids := make([]string, 0, len(excludedMembers))
		for _, m := range excludedMembers {
			ids = append(ids, m.ID)
		}
		query = query.Where(sq.NotEq{"id": ids})
	}

	var found []struct {
		Username null.String `db:"username"`
		Email    null.String `db:"email"`
	}
	if err := selectRows(ctx, repo.getExec(nil), &found, query.Limit(1)); err != nil {
		return errors.Wrap(err, "checking member uniqueness")
	}
	if len(found) == 0 {
		return nil
	}
	if username != "" && found[0].Username.String == username {
		return member.ErrUsernameExists
	}
	return member.ErrEmailExists
}

func (repo memberRepository) CreateMember(ctx context.Context, m member.Member, exec ...core.DBExecutor) (member.Member, error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	row := toMemberRow(m)
	stmt := repo.sb.Insert(memberTable).Columns(memberColumns...).Values(row.values()...)
	if _, err := execute(ctx, repo.getExec(exec), stmt); err != nil {
		return member.Member{}, errors.Wrap(err, "inserting member")
	}
	return row.toMember(), nil
}

func (repo memberRepository) QueryMembers(
	ctx context.Context,
	filter *member.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]member.Member, error) {
	query := repo.sb.Select(memberColumns...).From(memberTable)

	if filter != nil {
		// members with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + strings.ToLower(filter.Search) + "%"
			query = query.Where(sq.Or{
				sq.Like{"LOWER(name)": val},
				sq.Like{"LOWER(username)": val},
				sq.Like{"LOWER(email)": val},
			})
		}
		if len(filter.Roles) > 0 {
			roles := make([]string, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roles = append(roles, role.String())
			}
			query = query.Where(sq.Eq{"role": roles})
		}
		if filter.Campus != "" {
			query = query.Where(sq.Eq{"campus": filter.Campus})
		}
		if filter.Floor != 0 {
			query = query.Where(sq.Eq{"floor": filter.Floor})
		}
		if filter.IsActive != nil {
			query = query.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if !filter.CreatedFrom.IsZero() {
			query = query.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			query = query.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
	}

	if clauses := orderBy(ordering, memberOrderings); len(clauses) > 0 {
		query = query.OrderBy(clauses...)
	} else {
		query = query.OrderBy("created_at ASC", "id ASC")
	}

	var rows []memberRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying members")
	}
	return toMembers(rows), nil
}

func (repo memberRepository) GetMember(ctx context.Context, filter member.GetFilter, exec ...core.DBExecutor) (member.Member, error) {
	query := repo.sb.Select(memberColumns...).From(memberTable)

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return member.Member{}, member.ErrNotFound
		}
		query = query.Where(sq.Eq{"id": filter.ID})
	case filter.Username != "":
		query = query.Where(sq.Eq{"username": filter.Username})
	case filter.Email != "":
		query = query.Where(sq.Eq{"email": filter.Email})
	case filter.UsernameOrEmail != "":
		query = query.Where(sq.Or{
			sq.Eq{"username": filter.UsernameOrEmail},
			sq.Eq{"email": filter.UsernameOrEmail},
		})
	default:
		return member.Member{}, member.ErrNotFound
	}

	var row memberRow
	if err := getRow(ctx, repo.getExec(exec), &row, query.Limit(1)); err != nil {
		return member.Member{}, repo.trapNoRowsErr(err, "finding member")
	}
	return row.toMember(), nil
}

func (repo memberRepository) UpdateMember(ctx context.Context, m member.Member, exec ...core.DBExecutor) (member.Member, error) {
	row := toMemberRow(m)
	stmt := repo.sb.Update(memberTable).
		SetMap(map[string]interface{}{
			"name":          row.Name,
			"username":      row.Username,
			"email":         row.Email,
			"is_active":     row.IsActive,
			"role":          row.Role,
			"campus":        row.Campus,
			"floor":         row.Floor,
			"password_hash": row.PasswordHash,
			"updated_at":    row.UpdatedAt,
			"last_login":    row.LastLogin,
		}).
		Where(sq.Eq{"id": row.ID})

	n, err := execute(ctx, repo.getExec(exec), stmt)
	if err != nil {
		return member.Member{}, errors.Wrap(err, "updating member")
	}
	if n == 0 {
		return member.Member{}, member.ErrNotFound
	}
	return row.toMember(), nil
}

func (repo memberRepository) DeleteMembersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := execute(ctx, repo.getExec(exec), repo.sb.Delete(memberTable).Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting members")
	}
	return n, nil
}
