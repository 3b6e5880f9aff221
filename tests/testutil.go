package testutil

import (
	"io"
	"log"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
	logsvc "github.com/raulpleon95-ctrl/SECUNDARIA/services/logger"
)

// NewConfig returns the configuration used by tests.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Debug = false
	conf.RollbarToken = ""
	conf.Storage.Engine = "memory"
	return conf
}

// NewLogger returns a logger that reports nowhere.
func NewLogger() *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), NewConfig())
	logger.Enable(false)
	return logger
}

// NewValidator returns a validator with every custom validation registered.
func NewValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

// SetPassword sets the password of user `uname` through `svc`, failing the test on error.
func SetPassword(t *testing.T, svc *user.Service, uname, pwd string) user.User {
	t.Helper()
	usr, err := svc.ResetPassword(ctx(), user.ResetUserPassword{Username: uname, Password: pwd, PasswordConfirm: pwd})
	if err != nil {
		t.Fatalf("SetPassword(%s) failed: %v", uname, err)
	}
	return usr
}
