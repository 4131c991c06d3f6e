package season

import (
	"sort"

	"github.com/trezcool/cohort/core"
)

// AscensionPolicy rewards sustained high performance.
// A season is high performing when its total score is strictly above Threshold. Every maximal run of
// consecutive season numbers that are high performing, of length L >= MinRun, earns
// (L - MinRun + 1) * BonusPerSeason.
type AscensionPolicy struct {
	Threshold      int
	BonusPerSeason int
	MinRun         int
}

// Default ascension policy values.
const (
	DefaultAscensionThreshold      = 1000
	DefaultAscensionBonusPerSeason = 250
	DefaultAscensionMinRun         = 3
)

var DefaultAscensionPolicy = AscensionPolicy{
	Threshold:      DefaultAscensionThreshold,
	BonusPerSeason: DefaultAscensionBonusPerSeason,
	MinRun:         DefaultAscensionMinRun,
}

// PolicyFromConfig builds the policy from the scoring configuration, a MinRun below 1 falls back to the default.
func PolicyFromConfig(conf core.ScoringConfig) AscensionPolicy {
	p := AscensionPolicy{
		Threshold:      conf.AscensionThreshold,
		BonusPerSeason: conf.AscensionBonusPerSeason,
		MinRun:         conf.AscensionMinRun,
	}
	if p.MinRun < 1 {
		p.MinRun = DefaultAscensionMinRun
	}
	return p
}

func (p AscensionPolicy) runBonus(length int) int {
	if length < p.MinRun {
		return 0
	}
	return (length - p.MinRun + 1) * p.BonusPerSeason
}

// Aggregate computes the legacy score of a student from their season scores.
// In-progress seasons are ignored. It is a pure function of its input.
func Aggregate(studentID string, scores []SeasonScore, p AscensionPolicy) LegacyScore {
	completed := make([]SeasonScore, 0, len(scores))
	for _, s := range scores {
		if s.Completed {
			completed = append(completed, s)
		}
	}
	sort.SliceStable(completed, func(i, j int) bool { return completed[i].SeasonNumber < completed[j].SeasonNumber })

	ls := LegacyScore{StudentID: studentID, SeasonsCompleted: len(completed)}
	run, prevSeason := 0, 0
	for i, s := range completed {
		ls.TotalLegacyPoints += s.TotalScore
		if i == 0 || s.TotalScore > ls.HighestSeasonScore {
			ls.HighestSeasonScore = s.TotalScore
		}

		switch {
		case s.TotalScore <= p.Threshold:
			ls.AscensionBonusTotal += p.runBonus(run)
			run = 0
		case run > 0 && s.SeasonNumber == prevSeason+1:
			run++
		default:
			ls.AscensionBonusTotal += p.runBonus(run)
			run = 1
		}
		prevSeason = s.SeasonNumber
	}
	ls.AscensionBonusTotal += p.runBonus(run)

	if n := len(completed); n > 0 {
		ls.LastSeasonScore = completed[n-1].TotalScore
	}
	return ls
}
