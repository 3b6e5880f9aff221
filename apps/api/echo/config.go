package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
)

type configApi struct {
	svc      *school.Service
	local    core.KeyValueStore
	validate *validator.Validate
	reload   func()
}

// registerConfigAPI serves the remote store configuration. Saving or clearing it
// reloads the application so that the new mode takes effect.
func registerConfigAPI(
	g *echo.Group,
	svc *school.Service,
	local core.KeyValueStore,
	validate *validator.Validate,
	reload func(),
) {
	api := configApi{svc: svc, local: local, validate: validate, reload: reload}

	g.GET("/remote", api.retrieve)
	g.POST("/remote", api.connect)
	g.DELETE("/remote", api.disconnect)
}

func (api *configApi) triggerReload() {
	if api.reload != nil {
		api.reload()
	}
}

func (api *configApi) retrieve(ctx echo.Context) error {
	rc, ok, err := school.LoadRemoteConfig(ctx.Request().Context(), api.local)
	if err != nil {
		return err
	}
	resp := RemoteConfigResponse{Connected: api.svc.Connected()}
	if ok {
		resp.Config = &rc
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *configApi) connect(ctx echo.Context) error {
	var data RemoteConfigRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	rc, err := school.ParseRemoteConfig(data.Config)
	if err != nil {
		return err
	}
	if err := school.SaveRemoteConfig(ctx.Request().Context(), api.local, rc); err != nil {
		return errors.Wrap(err, "connecting remote store")
	}

	api.triggerReload()
	return ctx.JSON(http.StatusOK, RemoteConfigResponse{Connected: api.svc.Connected(), Config: &rc})
}

func (api *configApi) disconnect(ctx echo.Context) error {
	if err := school.ClearRemoteConfig(ctx.Request().Context(), api.local); err != nil {
		return err
	}
	api.triggerReload()
	return ctx.NoContent(http.StatusNoContent)
}
