package main

import (
	"context"

	"github.com/trezcool/cohort/core/member"
)

// recalculate recalculates the legacy score of studentID, or of every student when it is empty.
func (cli *commandLine) recalculate(studentID string) error {
	ctx := context.Background()
	if studentID == "" {
		n, err := cli.seasonSvc.RecalculateAll(ctx)
		cli.printf("%d legacy scores recalculated\n", n)
		return err
	}

	m, err := cli.memberSvc.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	if !m.IsStudent() {
		return member.ErrNotFound
	}
	ls, err := cli.seasonSvc.Recalculate(ctx, m.ID)
	if err != nil {
		return err
	}
	cli.printf("%s: %d points, %d bonus over %d seasons\n", m.Name, ls.TotalLegacyPoints, ls.AscensionBonusTotal, ls.SeasonsCompleted)
	return nil
}
