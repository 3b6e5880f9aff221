package main

import (
	"context"
	"fmt"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
)

// addUser creates a user.User with no assignment nor work schedule.
func (cli *commandLine) addUser(uname, name, role, pwd string) error {
	ctx := context.Background()
	if _, err := cli.school(ctx); err != nil {
		return err
	}

	usr, err := cli.usrSvc.Create(ctx, user.NewUser{
		Name:            name,
		Username:        uname,
		Password:        pwd,
		PasswordConfirm: pwd,
		Role:            role,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created user %s (%s)\n", usr.Username, usr.ID)
	return nil
}
