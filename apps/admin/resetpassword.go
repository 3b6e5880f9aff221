package main

import (
	"context"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
)

// resetPassword sets the password of user `uname`; the password policy applies.
func (cli *commandLine) resetPassword(uname, pwd string) error {
	ctx := context.Background()
	if _, err := cli.school(ctx); err != nil {
		return err
	}
	_, err := cli.usrSvc.ResetPassword(ctx, user.ResetUserPassword{Username: uname, Password: pwd, PasswordConfirm: pwd})
	return err
}
