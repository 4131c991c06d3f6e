package season

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/cohort/core"
)

func completed(season, total int) SeasonScore {
	return SeasonScore{StudentID: "s1", SeasonNumber: season, TotalScore: total, Completed: true}
}

func TestAggregate(t *testing.T) {
	p := DefaultAscensionPolicy
	bonus := p.BonusPerSeason
	high := p.Threshold + 1

	tests := []struct {
		name   string
		scores []SeasonScore
		want   LegacyScore
	}{
		{
			name: "no seasons",
			want: LegacyScore{StudentID: "s1"},
		},
		{
			name:   "only in-progress seasons",
			scores: []SeasonScore{{StudentID: "s1", SeasonNumber: 1, TotalScore: 5000}},
			want:   LegacyScore{StudentID: "s1"},
		},
		{
			name:   "single season",
			scores: []SeasonScore{completed(1, 400)},
			want:   LegacyScore{StudentID: "s1", TotalLegacyPoints: 400, SeasonsCompleted: 1, HighestSeasonScore: 400, LastSeasonScore: 400},
		},
		{
			name:   "three consecutive high seasons",
			scores: []SeasonScore{completed(1, high), completed(2, high), completed(3, high)},
			want: LegacyScore{
				StudentID: "s1", TotalLegacyPoints: 3 * high, SeasonsCompleted: 3,
				AscensionBonusTotal: bonus, HighestSeasonScore: high, LastSeasonScore: high,
			},
		},
		{
			name:   "gap breaks the run",
			scores: []SeasonScore{completed(1, high), completed(2, high), completed(4, high)},
			want: LegacyScore{
				StudentID: "s1", TotalLegacyPoints: 3 * high, SeasonsCompleted: 3,
				HighestSeasonScore: high, LastSeasonScore: high,
			},
		},
		{
			name:   "threshold is exclusive",
			scores: []SeasonScore{completed(1, p.Threshold), completed(2, high), completed(3, high)},
			want: LegacyScore{
				StudentID: "s1", TotalLegacyPoints: p.Threshold + 2*high, SeasonsCompleted: 3,
				HighestSeasonScore: high, LastSeasonScore: high,
			},
		},
		{
			name: "run of four and run of three",
			scores: []SeasonScore{
				completed(1, high), completed(2, high), completed(3, high), completed(4, high),
				completed(5, 10),
				completed(6, high), completed(7, high), completed(8, high),
			},
			want: LegacyScore{
				StudentID: "s1", TotalLegacyPoints: 7*high + 10, SeasonsCompleted: 8,
				AscensionBonusTotal: 3 * bonus, HighestSeasonScore: high, LastSeasonScore: high,
			},
		},
		{
			name:   "unordered input, last is highest season number",
			scores: []SeasonScore{completed(3, 300), completed(1, 900), completed(2, 200)},
			want: LegacyScore{
				StudentID: "s1", TotalLegacyPoints: 1400, SeasonsCompleted: 3,
				HighestSeasonScore: 900, LastSeasonScore: 300,
			},
		},
		{
			name: "in-progress season between completed ones",
			scores: []SeasonScore{
				completed(1, high), completed(2, high),
				{StudentID: "s1", SeasonNumber: 3, TotalScore: high},
				completed(4, high),
			},
			want: LegacyScore{
				StudentID: "s1", TotalLegacyPoints: 3 * high, SeasonsCompleted: 3,
				HighestSeasonScore: high, LastSeasonScore: high,
			},
		},
		{
			name:   "zero scores",
			scores: []SeasonScore{completed(1, 0), completed(2, 0)},
			want:   LegacyScore{StudentID: "s1", SeasonsCompleted: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("s1", tt.scores, p)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	scores := []SeasonScore{completed(1, 1200), completed(2, 1300), completed(3, 1100), completed(5, 50)}
	first := Aggregate("s1", scores, DefaultAscensionPolicy)
	second := Aggregate("s1", scores, DefaultAscensionPolicy)
	assert.Equal(t, first, second)
	assert.Equal(t, 1200, scores[0].TotalScore, "input must not be modified")
}

func TestAggregate_CustomPolicy(t *testing.T) {
	p := AscensionPolicy{Threshold: 10, BonusPerSeason: 5, MinRun: 2}
	scores := []SeasonScore{completed(1, 11), completed(2, 11), completed(3, 11)}
	assert.Equal(t, 10, Aggregate("s1", scores, p).AscensionBonusTotal)
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(core.ScoringConfig{AscensionThreshold: 500, AscensionBonusPerSeason: 100})
	assert.Equal(t, AscensionPolicy{Threshold: 500, BonusPerSeason: 100, MinRun: DefaultAscensionMinRun}, p)
}
