package season

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBracketFor(t *testing.T) {
	tests := []struct {
		pct  float64
		want Bracket
	}{
		{0.5, BracketTop1},
		{1, BracketTop1},
		{1.01, BracketTop5},
		{5, BracketTop5},
		{9.99, BracketTop10},
		{25, BracketTop25},
		{25.01, BracketOthers},
		{100, BracketOthers},
	}
	for _, tt := range tests {
		if got := BracketFor(tt.pct); got != tt.want {
			t.Errorf("BracketFor(%v) = %v, want %v", tt.pct, got, tt.want)
		}
	}
}

func TestRank(t *testing.T) {
	scores := []LegacyScore{
		{StudentID: "d", TotalLegacyPoints: 100},
		{StudentID: "a", TotalLegacyPoints: 500, AscensionBonusTotal: 0},
		{StudentID: "b", TotalLegacyPoints: 500, AscensionBonusTotal: 250},
		{StudentID: "c", TotalLegacyPoints: 500, AscensionBonusTotal: 0},
	}
	got := Rank(scores)

	ids := make([]string, len(got))
	ranks := make([]int, len(got))
	for i, s := range got {
		ids[i] = s.StudentID
		ranks[i] = s.Rank
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids)
	assert.Equal(t, []int{1, 2, 2, 4}, ranks)
	assert.Equal(t, 25.0, got[0].Percentile)
	assert.Equal(t, BracketTop25, got[0].Bracket)
	assert.Equal(t, 100.0, got[3].Percentile)
	assert.Equal(t, BracketOthers, got[3].Bracket)

	assert.Equal(t, "d", scores[0].StudentID, "input must not be reordered")
	assert.Empty(t, Rank(nil))
}
