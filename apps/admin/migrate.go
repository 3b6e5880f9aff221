package main

import (
	"github.com/pkg/errors"

	"github.com/raulpleon95-ctrl/SECUNDARIA/storage/database"
)

var migrateFunc = database.Migrate // mockable

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errors.New("the memory storage engine has no migrations")
	}
	return migrateFunc(cli.db, args[0], args[1:]...)
}
