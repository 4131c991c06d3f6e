package season

import (
	"context"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core"
)

// Bracket groups students by how high they rank among their peers.
type Bracket string

const (
	BracketTop1   Bracket = "top_1"
	BracketTop5   Bracket = "top_5"
	BracketTop10  Bracket = "top_10"
	BracketTop25  Bracket = "top_25"
	BracketOthers Bracket = "others"
)

// Standing is the position of a student on the leaderboard.
// Percentile is the share of ranked students (in percent) placed at or above this student.
type Standing struct {
	LegacyScore
	Rank       int     `json:"rank"`
	Percentile float64 `json:"percentile"`
	Bracket    Bracket `json:"bracket"`
}

// BracketFor returns the bracket of a percentile.
func BracketFor(percentile float64) Bracket {
	switch {
	case percentile <= 1:
		return BracketTop1
	case percentile <= 5:
		return BracketTop5
	case percentile <= 10:
		return BracketTop10
	case percentile <= 25:
		return BracketTop25
	default:
		return BracketOthers
	}
}

// Rank orders legacy scores by total legacy points then ascension bonus, both descending.
// Students with equal points and bonus share the same rank.
func Rank(scores []LegacyScore) []Standing {
	sorted := make([]LegacyScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.TotalLegacyPoints != b.TotalLegacyPoints {
			return a.TotalLegacyPoints > b.TotalLegacyPoints
		}
		if a.AscensionBonusTotal != b.AscensionBonusTotal {
			return a.AscensionBonusTotal > b.AscensionBonusTotal
		}
		return a.StudentID < b.StudentID
	})

	n := float64(len(sorted))
	standings := make([]Standing, len(sorted))
	for i, ls := range sorted {
		rank := i + 1
		if i > 0 {
			prev := standings[i-1]
			if prev.TotalLegacyPoints == ls.TotalLegacyPoints && prev.AscensionBonusTotal == ls.AscensionBonusTotal {
				rank = prev.Rank
			}
		}
		pct := math.Round(float64(rank)/n*100*100) / 100
		standings[i] = Standing{LegacyScore: ls, Rank: rank, Percentile: pct, Bracket: BracketFor(pct)}
	}
	return standings
}

// Standings returns the leaderboard of the students matching filter.
func (svc *Service) Standings(ctx context.Context, filter StandingsFilter) ([]Standing, error) {
	filter.Campus = core.CleanString(filter.Campus, true /* lower */)
	scores, err := svc.repo.QueryLegacyScores(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying legacy scores")
	}
	standings := Rank(scores)
	if filter.Limit > 0 && len(standings) > filter.Limit {
		standings = standings[:filter.Limit]
	}
	return standings, nil
}
