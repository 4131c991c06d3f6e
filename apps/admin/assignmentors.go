package main

import (
	"context"
	"sort"

	"github.com/trezcool/cohort/core/mentorship"
)

func (cli *commandLine) assignMentors(campus string, floor int, force, notify bool) error {
	var opts []mentorship.AssignOption
	if force {
		opts = append(opts, mentorship.WithForce())
	}
	if !notify {
		opts = append(opts, mentorship.WithoutNotification())
	}

	res, err := cli.router.Assign(context.Background(), campus, floor, opts...)
	if err != nil {
		return err
	}
	if res.Status == mentorship.StatusNoMentors {
		return mentorship.ErrNoMentors
	}

	cli.printf("%s floor %d: %s, %d students assigned\n", res.Campus, res.Floor, res.Status, res.AssignedCount)
	mentorIDs := make([]string, 0, len(res.PerMentorCounts))
	for id := range res.PerMentorCounts {
		mentorIDs = append(mentorIDs, id)
	}
	sort.Strings(mentorIDs)
	for _, id := range mentorIDs {
		cli.printf("  %s: %d\n", id, res.PerMentorCounts[id])
	}
	return nil
}
