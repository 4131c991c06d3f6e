package main

import (
	"context"

	"github.com/trezcool/cohort/core/member"
)

// addMember validates and creates a member, admins included.
func (cli *commandLine) addMember(nm member.NewMember) error {
	ctx := context.Background()
	if err := nm.Validate(ctx, cli.validate, cli.memberSvc); err != nil {
		return err
	}
	m, err := cli.memberSvc.Create(ctx, nm)
	if err != nil {
		return err
	}
	cli.printf("created %s %s (%s)\n", m.Role, m.ID, m.Name)
	return nil
}
