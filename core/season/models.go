// Package season records the per-season scores of students and derives their legacy score.
package season

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core"
)

var (
	// errors
	ErrNotFound        = errors.New("season score not found")
	ErrSeasonCompleted = errors.New("season is completed")

	NowFunc = time.Now // mockable
)

// SeasonScore is the score of a student over one season. It is frozen once Completed.
type SeasonScore struct {
	StudentID    string         `json:"student_id"`
	SeasonNumber int            `json:"season_number"`
	TotalScore   int            `json:"total_score"`
	Completed    bool           `json:"completed"`
	Breakdown    map[string]int `json:"breakdown"` // {pillar: score}
	CreatedAt    time.Time      `json:"created_at"`             // UTC
	UpdatedAt    time.Time      `json:"updated_at"`             // UTC
	CompletedAt  time.Time      `json:"completed_at,omitempty"` // UTC
}

// LegacyScore is derived from the completed season scores of a student; see Aggregate.
type LegacyScore struct {
	StudentID           string    `json:"student_id"`
	TotalLegacyPoints   int       `json:"total_legacy_points"`
	SeasonsCompleted    int       `json:"seasons_completed"`
	AscensionBonusTotal int       `json:"ascension_bonus_total"`
	HighestSeasonScore  int       `json:"highest_season_score"`
	LastSeasonScore     int       `json:"last_season_score"`
	UpdatedAt           time.Time `json:"updated_at,omitempty"` // UTC
}

// NewSeasonScore creates or updates the in-progress score of a student for a season.
// Nil fields keep their current value. Without TotalScore, a provided Breakdown sets the total to its sum.
type NewSeasonScore struct {
	StudentID    string         `json:"-" validate:"required"`
	SeasonNumber int            `json:"-" validate:"required,min=1"`
	TotalScore   *int           `json:"total_score" validate:"omitempty,min=0"`
	Breakdown    map[string]int `json:"breakdown" validate:"omitempty,dive,keys,required,max=64,alphanum_,endkeys,min=0"`
}

func (ns *NewSeasonScore) Validate(validate *validator.Validate) error {
	if ns.Breakdown != nil {
		clean := make(map[string]int, len(ns.Breakdown))
		for pillar, score := range ns.Breakdown {
			clean[core.CleanString(pillar, true /* lower */)] += score
		}
		ns.Breakdown = clean
	}
	return validate.Struct(ns)
}

// SumBreakdown returns the sum of the pillar scores.
func SumBreakdown(breakdown map[string]int) int {
	total := 0
	for _, score := range breakdown {
		total += score
	}
	return total
}

type SeasonFilter struct {
	StudentID     string
	CompletedOnly bool
}

// StandingsFilter restricts standings to a campus, optionally a floor.
type StandingsFilter struct {
	Campus string
	Floor  int
	Limit  int
}

type (
	Repository interface {
		// StudentExists reports whether studentID is a member with the student role.
		StudentExists(ctx context.Context, studentID string, exec ...core.DBExecutor) (bool, error)
		// QueryStudentIDs returns the IDs of every student, ordered ascending.
		QueryStudentIDs(ctx context.Context, exec ...core.DBExecutor) ([]string, error)

		GetSeasonScore(ctx context.Context, studentID string, season int, exec ...core.DBExecutor) (SeasonScore, error)
		// QuerySeasonScores returns the matching season scores ordered by season number ascending.
		QuerySeasonScores(ctx context.Context, filter SeasonFilter, exec ...core.DBExecutor) ([]SeasonScore, error)
		UpsertSeasonScore(ctx context.Context, s SeasonScore, exec ...core.DBExecutor) (SeasonScore, error)

		GetLegacyScore(ctx context.Context, studentID string, exec ...core.DBExecutor) (LegacyScore, error)
		// QueryLegacyScores returns the legacy scores of the students matching filter, in no particular order.
		QueryLegacyScores(ctx context.Context, filter StandingsFilter, exec ...core.DBExecutor) ([]LegacyScore, error)
		UpsertLegacyScore(ctx context.Context, ls LegacyScore, exec ...core.DBExecutor) (LegacyScore, error)
	}

	// Recorder records legacy score recalculation metrics.
	Recorder interface {
		Recalculation(took time.Duration, err error)
	}
)

// ScopeKey is the lock key of a student's season and legacy scores.
func ScopeKey(studentID string) string {
	return fmt.Sprintf("legacy:%s", studentID)
}
