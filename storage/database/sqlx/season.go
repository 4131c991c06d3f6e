package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/member"
	"github.com/trezcool/cohort/core/season"
)

const (
	seasonScoreTable = "season_score"
	legacyScoreTable = "legacy_score"
)

var (
	seasonScoreColumns = []string{
		"student_id", "season_number", "total_score", "completed", "breakdown",
		"created_at", "updated_at", "completed_at",
	}
	legacyScoreColumns = []string{
		"student_id", "total_legacy_points", "seasons_completed", "ascension_bonus_total",
		"highest_season_score", "last_season_score", "updated_at",
	}
)

type seasonScoreRow struct {
	StudentID    string    `db:"student_id"`
	SeasonNumber int       `db:"season_number"`
	TotalScore   int       `db:"total_score"`
	Completed    bool      `db:"completed"`
	Breakdown    string    `db:"breakdown"` // JSON object
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	CompletedAt  null.Time `db:"completed_at"`
}

func toSeasonScoreRow(s season.SeasonScore) (seasonScoreRow, error) {
	breakdown := s.Breakdown
	if breakdown == nil {
		breakdown = map[string]int{}
	}
	data, err := json.Marshal(breakdown)
	if err != nil {
		return seasonScoreRow{}, errors.Wrap(err, "encoding breakdown")
	}
	return seasonScoreRow{
		StudentID:    s.StudentID,
		SeasonNumber: s.SeasonNumber,
		TotalScore:   s.TotalScore,
		Completed:    s.Completed,
		Breakdown:    string(data),
		CreatedAt:    s.CreatedAt.UTC(),
		UpdatedAt:    s.UpdatedAt.UTC(),
		CompletedAt:  null.NewTime(s.CompletedAt.UTC(), !s.CompletedAt.IsZero()),
	}, nil
}

func (r seasonScoreRow) toSeasonScore() (season.SeasonScore, error) {
	s := season.SeasonScore{
		StudentID:    r.StudentID,
		SeasonNumber: r.SeasonNumber,
		TotalScore:   r.TotalScore,
		Completed:    r.Completed,
		Breakdown:    map[string]int{},
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.CompletedAt.Valid {
		s.CompletedAt = r.CompletedAt.Time.UTC()
	}
	if r.Breakdown != "" {
		if err := json.Unmarshal([]byte(r.Breakdown), &s.Breakdown); err != nil {
			return season.SeasonScore{}, errors.Wrap(err, "decoding breakdown")
		}
	}
	return s, nil
}

type legacyScoreRow struct {
	StudentID           string    `db:"student_id"`
	TotalLegacyPoints   int       `db:"total_legacy_points"`
	SeasonsCompleted    int       `db:"seasons_completed"`
	AscensionBonusTotal int       `db:"ascension_bonus_total"`
	HighestSeasonScore  int       `db:"highest_season_score"`
	LastSeasonScore     int       `db:"last_season_score"`
	UpdatedAt           null.Time `db:"updated_at"`
}

func (r legacyScoreRow) toLegacyScore() season.LegacyScore {
	ls := season.LegacyScore{
		StudentID:           r.StudentID,
		TotalLegacyPoints:   r.TotalLegacyPoints,
		SeasonsCompleted:    r.SeasonsCompleted,
		AscensionBonusTotal: r.AscensionBonusTotal,
		HighestSeasonScore:  r.HighestSeasonScore,
		LastSeasonScore:     r.LastSeasonScore,
	}
	if r.UpdatedAt.Valid {
		ls.UpdatedAt = r.UpdatedAt.Time.UTC()
	}
	return ls
}

type seasonRepository struct {
	repository
}

var _ season.Repository = (*seasonRepository)(nil) // interface compliance check

func NewSeasonRepository(exec core.DBExecutor, engine string) *seasonRepository {
	return &seasonRepository{repository: newRepository(exec, engine)}
}

type idRow struct {
	ID string `db:"id"`
}

type countRow struct {
	Count int `db:"count"`
}

func (repo seasonRepository) StudentExists(ctx context.Context, studentID string, exec ...core.DBExecutor) (bool, error) {
	var row countRow
	query := repo.sb.Select("COUNT(1) AS count").From(memberTable).
		Where(sq.Eq{"id": studentID, "role": member.RoleStudent.String()})
	if err := getRow(ctx, repo.getExec(exec), &row, query); err != nil {
		return false, errors.Wrap(err, "checking student")
	}
	return row.Count > 0, nil
}

func (repo seasonRepository) QueryStudentIDs(ctx context.Context, exec ...core.DBExecutor) ([]string, error) {
	var rows []idRow
	query := repo.sb.Select("id").From(memberTable).Where(sq.Eq{"role": member.RoleStudent.String()}).OrderBy("id ASC")
	if err := selectRows(ctx, repo.getExec(exec), &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids, nil
}

func (repo seasonRepository) GetSeasonScore(ctx context.Context, studentID string, seasonNumber int, exec ...core.DBExecutor) (season.SeasonScore, error) {
	var row seasonScoreRow
	query := repo.sb.Select(seasonScoreColumns...).From(seasonScoreTable).
		Where(sq.Eq{"student_id": studentID, "season_number": seasonNumber}).
		Limit(1)
	if err := getRow(ctx, repo.getExec(exec), &row, query); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return season.SeasonScore{}, season.ErrNotFound
		}
		return season.SeasonScore{}, errors.Wrap(err, "finding season score")
	}
	return row.toSeasonScore()
}

func (repo seasonRepository) QuerySeasonScores(ctx context.Context, filter season.SeasonFilter, exec ...core.DBExecutor) ([]season.SeasonScore, error) {
	query := repo.sb.Select(seasonScoreColumns...).From(seasonScoreTable).OrderBy("student_id ASC", "season_number ASC")
	if filter.StudentID != "" {
		query = query.Where(sq.Eq{"student_id": filter.StudentID})
	}
	if filter.CompletedOnly {
		query = query.Where(sq.Eq{"completed": true})
	}

	var rows []seasonScoreRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying season scores")
	}
	scores := make([]season.SeasonScore, 0, len(rows))
	for _, r := range rows {
		s, err := r.toSeasonScore()
		if err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, nil
}

func (repo seasonRepository) UpsertSeasonScore(ctx context.Context, s season.SeasonScore, exec ...core.DBExecutor) (season.SeasonScore, error) {
	row, err := toSeasonScoreRow(s)
	if err != nil {
		return season.SeasonScore{}, err
	}
	stmt := repo.sb.Insert(seasonScoreTable).Columns(seasonScoreColumns...).
		Values(
			row.StudentID, row.SeasonNumber, row.TotalScore, row.Completed, row.Breakdown,
			row.CreatedAt, row.UpdatedAt, row.CompletedAt,
		).
		Suffix(
			"ON CONFLICT (student_id, season_number) DO UPDATE SET " +
				"total_score = excluded.total_score, completed = excluded.completed, " +
				"breakdown = excluded.breakdown, updated_at = excluded.updated_at, " +
				"completed_at = excluded.completed_at",
		)
	if _, err := execute(ctx, repo.getExec(exec), stmt); err != nil {
		return season.SeasonScore{}, errors.Wrap(err, "upserting season score")
	}
	return row.toSeasonScore()
}

func (repo seasonRepository) GetLegacyScore(ctx context.Context, studentID string, exec ...core.DBExecutor) (season.LegacyScore, error) {
	var row legacyScoreRow
	query := repo.sb.Select(legacyScoreColumns...).From(legacyScoreTable).Where(sq.Eq{"student_id": studentID}).Limit(1)
	if err := getRow(ctx, repo.getExec(exec), &row, query); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return season.LegacyScore{}, season.ErrNotFound
		}
		return season.LegacyScore{}, errors.Wrap(err, "finding legacy score")
	}
	return row.toLegacyScore(), nil
}

// QueryLegacyScores lists every active student in scope, students without a legacy score count as all-zero.
func (repo seasonRepository) QueryLegacyScores(ctx context.Context, filter season.StandingsFilter, exec ...core.DBExecutor) ([]season.LegacyScore, error) {
	query := repo.sb.
		Select(
			"m.id AS student_id",
			"COALESCE(l.total_legacy_points, 0) AS total_legacy_points",
			"COALESCE(l.seasons_completed, 0) AS seasons_completed",
			"COALESCE(l.ascension_bonus_total, 0) AS ascension_bonus_total",
			"COALESCE(l.highest_season_score, 0) AS highest_season_score",
			"COALESCE(l.last_season_score, 0) AS last_season_score",
			"l.updated_at AS updated_at",
		).
		From(memberTable + " m").
		LeftJoin(legacyScoreTable + " l ON l.student_id = m.id").
		Where(sq.Eq{"m.role": member.RoleStudent.String(), "m.is_active": true})
	if filter.Campus != "" {
		query = query.Where(sq.Eq{"m.campus": filter.Campus})
	}
	if filter.Floor != 0 {
		query = query.Where(sq.Eq{"m.floor": filter.Floor})
	}

	var rows []legacyScoreRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, query); err != nil {
		return nil, errors.Wrap(err, "querying legacy scores")
	}
	scores := make([]season.LegacyScore, 0, len(rows))
	for _, r := range rows {
		scores = append(scores, r.toLegacyScore())
	}
	return scores, nil
}

func (repo seasonRepository) UpsertLegacyScore(ctx context.Context, ls season.LegacyScore, exec ...core.DBExecutor) (season.LegacyScore, error) {
	stmt := repo.sb.Insert(legacyScoreTable).Columns(legacyScoreColumns...).
		Values(
			ls.StudentID, ls.TotalLegacyPoints, ls.SeasonsCompleted, ls.AscensionBonusTotal,
			ls.HighestSeasonScore, ls.LastSeasonScore, ls.UpdatedAt.UTC(),
		).
		Suffix(
			"ON CONFLICT (student_id) DO UPDATE SET " +
				"total_legacy_points = excluded.total_legacy_points, " +
				"seasons_completed = excluded.seasons_completed, " +
				"ascension_bonus_total = excluded.ascension_bonus_total, " +
				"highest_season_score = excluded.highest_season_score, " +
				"last_season_score = excluded.last_season_score, " +
				"updated_at = excluded.updated_at",
		)
	if _, err := execute(ctx, repo.getExec(exec), stmt); err != nil {
		return season.LegacyScore{}, errors.Wrap(err, "upserting legacy score")
	}
	ls.UpdatedAt = ls.UpdatedAt.UTC()
	return ls, nil
}
