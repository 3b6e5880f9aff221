package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
	"github.com/raulpleon95-ctrl/SECUNDARIA/storage/remote"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	openRemoteFunc   = remote.Open       // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sqlx.DB // nil with the memory engine
	local    core.KeyValueStore
	logger   core.Logger
	validate *validator.Validate
	out      io.Writer

	svc    *school.Service
	usrSvc *user.Service
	remote school.RemoteStore
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                             - run a goose migration command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME                   - reset a user's password")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -name NAME -role ROLE   - create a user")
	fmt.Fprintln(cli.out, "  connect -file FILE                                 - save the remote store configuration")
	fmt.Fprintln(cli.out, "  disconnect                                         - switch back to local-only mode")
	fmt.Fprintln(cli.out, "  export                                             - print the school data document")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	defer cli.close()

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username. The password will be prompted next.")

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The new user's username. The password will be prompted next.")
	addUserName := addUserCmd.String("name", "", "The new user's full name.")
	addUserRole := addUserCmd.String("role", user.RoleTeacher, "The new user's role.")

	connectCmd := flag.NewFlagSet("connect", flag.ContinueOnError)
	connectFile := connectCmd.String("file", "", "A file holding the remote configuration (JSON or Firebase snippet).")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.readPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserName, *addUserRole, pwd)

	case "connect":
		if err := connectCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *connectFile == "" {
			connectCmd.Usage()
			return errHelp
		}
		return cli.connect(*connectFile)

	case "disconnect":
		return cli.disconnect()

	case "export":
		return cli.export()

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) readPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	return string(pwd), err
}

// school loads the school data the way the API does: from the remote store when one
// is configured and reachable, else from the local store.
func (cli *commandLine) school(ctx context.Context) (*school.Service, error) {
	if cli.svc != nil {
		return cli.svc, nil
	}

	rc, ok, err := school.LoadRemoteConfig(ctx, cli.local)
	if err != nil {
		return nil, err
	}
	if ok {
		if rs, err := openRemoteFunc(ctx, rc); err != nil {
			cli.logger.Error("opening remote store, using local copy", err)
		} else {
			cli.remote = rs
		}
	}

	svc := school.NewService(cli.local, cli.remote, cli.logger)
	if err := svc.Load(ctx); err != nil {
		return nil, err
	}
	cli.svc = svc
	cli.usrSvc = user.NewService(school.UserRepository(svc), cli.validate)
	return svc, nil
}

// close waits for the pending remote writes.
func (cli *commandLine) close() {
	if cli.svc != nil {
		cli.svc.Flush()
	}
	if cli.remote != nil {
		if err := cli.remote.Close(); err != nil {
			cli.logger.Error("closing remote store", err)
		}
		cli.remote = nil
	}
	cli.svc = nil
	cli.usrSvc = nil
}
