package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
	logsvc "github.com/raulpleon95-ctrl/SECUNDARIA/services/logger"
	"github.com/raulpleon95-ctrl/SECUNDARIA/storage/database"
	"github.com/raulpleon95-ctrl/SECUNDARIA/storage/kv/memkv"
	"github.com/raulpleon95-ctrl/SECUNDARIA/storage/kv/sqlkv"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(false)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	cli := commandLine{logger: logger, validate: validate, out: os.Stdout}

	// set up DB
	if conf.Storage.Engine == database.EngineMemory {
		cli.local = memkv.New()
	} else {
		errAndDie(logger, database.CreateIfNotExist(conf))
		db, err := database.Open(conf)
		errAndDie(logger, err)
		defer db.Close()
		if len(os.Args) < 2 || os.Args[1] != "migrate" {
			errAndDie(logger, database.Migrate(db, "up"))
		}
		cli.db = db
		cli.local = sqlkv.New(db)
	}

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("\nerror: " + err.Error())
		}
		os.Exit(1)
	}
}

func errAndDie(logger core.Logger, err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
