package main

import (
	"context"

	"github.com/trezcool/cohort/core/member"
)

func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	m, err := cli.memberSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	_, err = cli.memberSvc.Update(ctx, m, member.UpdateMember{
		Name:            m.Name,
		Username:        m.Username,
		Email:           m.Email,
		Password:        pwd,
		PasswordConfirm: pwd,
	})
	return err
}
