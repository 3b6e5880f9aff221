package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"sync"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	echoapi "github.com/raulpleon95-ctrl/SECUNDARIA/apps/api/echo"
	"github.com/raulpleon95-ctrl/SECUNDARIA/assets"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/period"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
	emailsvc "github.com/raulpleon95-ctrl/SECUNDARIA/services/email"
	logsvc "github.com/raulpleon95-ctrl/SECUNDARIA/services/logger"
	"github.com/raulpleon95-ctrl/SECUNDARIA/storage/database"
	"github.com/raulpleon95-ctrl/SECUNDARIA/storage/kv/memkv"
	"github.com/raulpleon95-ctrl/SECUNDARIA/storage/kv/sqlkv"
	"github.com/raulpleon95-ctrl/SECUNDARIA/storage/remote"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	if err := run(conf, logger); err != nil {
		logger.Fatal(fmt.Sprintf("%v", err), err)
	}
}

// deps are the long-lived dependencies, shared by every reload of the app.
type deps struct {
	conf       *core.Config
	logger     core.Logger
	local      core.KeyValueStore
	mailSvc    core.EmailService
	validate   *validator.Validate
	translator ut.Translator
	reload     chan struct{}
	shutdown   chan os.Signal
}

func run(conf *core.Config, logger core.Logger) error {
	// =========================================================================
	// Set up Dependencies

	local, closeLocal, err := openLocalStore(conf)
	if err != nil {
		return errors.Wrap(err, "setting up local store")
	}
	defer func() {
		if err := closeLocal(); err != nil {
			logger.Error("closing local store", err)
		}
	}()

	templates, err := core.NewEmailTemplates(assets.Templates, assets.EmailTemplatesDir, conf.FrontendBaseURL, conf.Debug)
	if err != nil {
		return errors.Wrap(err, "parsing email templates")
	}
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, templates, log.New(os.Stdout, "EMAIL : ", log.LstdFlags), logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, templates, logger)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start App, restarting it whenever the remote configuration changes

	d := &deps{
		conf:       conf,
		logger:     logger,
		local:      local,
		mailSvc:    mailSvc,
		validate:   validate,
		translator: translator,
		reload:     make(chan struct{}, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(d.shutdown, os.Interrupt, syscall.SIGTERM)

	for {
		a, err := startApp(d)
		if err != nil {
			return err
		}

		select {
		case err := <-a.errors:
			a.stop()
			return errors.Wrap(err, "server error")

		case <-d.reload:
			logger.Info("remote configuration changed, reloading")
			a.stop()

		case sig := <-d.shutdown:
			logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
			a.stop()
			return nil
		}
	}
}

func openLocalStore(conf *core.Config) (core.KeyValueStore, func() error, error) {
	if conf.Storage.Engine == database.EngineMemory {
		return memkv.New(), func() error { return nil }, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return sqlkv.New(db), db.Close, nil
}

// app is one run of the API, bound to the remote configuration found at startup.
type app struct {
	conf   *core.Config
	logger core.Logger
	server echoapi.Server
	svc    *school.Service
	remote school.RemoteStore
	cancel context.CancelFunc
	wg     sync.WaitGroup
	errors chan error
}

func startApp(d *deps) (*app, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &app{conf: d.conf, logger: d.logger, cancel: cancel, errors: make(chan error, 1)}

	// connected or local-only mode is decided once, here
	rc, ok, err := school.LoadRemoteConfig(ctx, d.local)
	if err != nil {
		cancel()
		return nil, err
	}
	if ok {
		rs, err := remote.Open(ctx, rc)
		if err != nil {
			d.logger.Error("opening remote store, running local only", err)
		} else {
			a.remote = rs
		}
	}

	a.svc = school.NewService(d.local, a.remote, d.logger)
	if err := a.svc.Load(ctx); err != nil {
		a.stop()
		return nil, errors.Wrap(err, "loading school data")
	}
	usrSvc := user.NewService(school.UserRepository(a.svc), d.validate)

	if a.svc.Connected() {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.svc.Subscribe(ctx); err != nil {
				d.logger.Error("remote subscription ended", err)
			}
		}()
	}

	ctl, err := period.NewController(a.svc, d.conf.Period, d.logger)
	if err != nil {
		a.stop()
		return nil, err
	}
	ctl.OnClose = emailsvc.PeriodsClosedNotifier(d.mailSvc, d.conf.NotifyEmails)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := ctl.Run(ctx); err != nil {
			d.logger.Error("period controller stopped", err)
		}
	}()

	a.server = echoapi.NewServer(
		&echoapi.Options{
			Address:    d.conf.Server.Host,
			Conf:       d.conf,
			Logger:     d.logger,
			Validate:   d.validate,
			Translator: d.translator,
			Reload: func() {
				select {
				case d.reload <- struct{}{}:
				default:
				}
			},
			Shutdown: func() {
				select {
				case d.shutdown <- syscall.SIGTERM:
				default:
				}
			},
		},
		&echoapi.Deps{SchoolSvc: a.svc, UserSvc: usrSvc, Local: d.local},
	)
	go func() {
		if err := a.server.Start(); err != nil && err != http.ErrServerClosed {
			a.errors <- err
		}
	}()
	return a, nil
}

// stop shuts the server down, then the background workers, waiting for pending remote writes.
func (a *app) stop() {
	if a.server != nil {
		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), a.conf.Server.ShutdownTimeout)
		if err := a.server.Stop(ctx); err != nil {
			a.logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
		cancel()
	}

	a.cancel()
	a.wg.Wait()
	if a.svc != nil {
		a.svc.Flush()
	}
	if a.remote != nil {
		if err := a.remote.Close(); err != nil {
			a.logger.Error("closing remote store", err)
		}
	}
}
