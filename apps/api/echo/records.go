package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
)

// recordApi serves the citations, visit logs and minutas.
type recordApi struct {
	auth     *authenticator
	svc      *school.Service
	validate *validator.Validate
}

func registerRecordAPI(g *echo.Group, auth *authenticator, svc *school.Service, validate *validator.Validate) {
	api := recordApi{auth: auth, svc: svc, validate: validate}

	cg := g.Group("/citations")
	cg.GET("", api.queryCitations)
	cg.POST("", api.createCitation)
	cg.PUT("/:id", api.updateCitation)
	cg.DELETE("/:id", api.destroyCitation)

	vg := g.Group("/visit-logs", auth.nonTeachers())
	vg.GET("", api.queryVisitLogs)
	vg.POST("", api.createVisitLog)
	vg.PUT("/:id", api.updateVisitLog)
	vg.DELETE("/:id", api.destroyVisitLog)

	mg := g.Group("/minutas", auth.nonTeachers())
	mg.GET("", api.queryMinutas)
	mg.POST("", api.createMinuta)
	mg.PUT("/:id", api.updateMinuta)
	mg.DELETE("/:id", api.destroyMinuta)
}

func (api *recordApi) dispatch(ctx echo.Context, patch school.Patch) (school.SchoolData, error) {
	data, err := api.svc.Dispatch(ctx.Request().Context(), patch)
	return data, errors.Wrap(err, "updating records")
}

// Citations

func findCitation(d school.SchoolData, id string) (school.Citation, bool) {
	for _, c := range d.Citations {
		if c.ID == id {
			return c, true
		}
	}
	return school.Citation{}, false
}

// ownCitation loads citation `id`; teachers may only touch the citations they issued.
func (api *recordApi) ownCitation(ctx echo.Context, usr user.User) (school.Citation, error) {
	c, ok := findCitation(api.svc.Current(), ctx.Param("id"))
	if !ok {
		return c, school.ErrRecordNotFound
	}
	if usr.IsTeacher() && c.TeacherID != usr.ID {
		return c, errHttpForbidden
	}
	return c, nil
}

func (api *recordApi) queryCitations(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	citations := make([]school.Citation, 0)
	for _, c := range api.svc.Current().Citations {
		if !usr.IsTeacher() || c.TeacherID == usr.ID {
			citations = append(citations, c)
		}
	}
	return ctx.JSON(http.StatusOK, citations)
}

func (api *recordApi) createCitation(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	var data school.Citation
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	data.TeacherID = usr.ID
	data.TeacherName = usr.Name

	updated, err := api.dispatch(ctx, school.AddCitation(data))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, updated.Citations[len(updated.Citations)-1])
}

func (api *recordApi) updateCitation(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	orig, err := api.ownCitation(ctx, usr)
	if err != nil {
		return err
	}
	var data school.Citation
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	data.ID = orig.ID
	data.TeacherID = orig.TeacherID
	data.TeacherName = orig.TeacherName

	updated, err := api.dispatch(ctx, school.ReplaceCitation(data))
	if err != nil {
		return err
	}
	c, _ := findCitation(updated, data.ID)
	return ctx.JSON(http.StatusOK, c)
}

func (api *recordApi) destroyCitation(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	c, err := api.ownCitation(ctx, usr)
	if err != nil {
		return err
	}
	if _, err := api.dispatch(ctx, school.DeleteCitation(c.ID)); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Visit logs

func (api *recordApi) queryVisitLogs(ctx echo.Context) error {
	logs := api.svc.Current().VisitLogs
	if logType := ctx.QueryParam("type"); logType != "" {
		filtered := make([]school.VisitLog, 0, len(logs))
		for _, v := range logs {
			if v.LogType == logType {
				filtered = append(filtered, v)
			}
		}
		logs = filtered
	}
	if logs == nil {
		logs = []school.VisitLog{}
	}
	return ctx.JSON(http.StatusOK, logs)
}

func (api *recordApi) createVisitLog(ctx echo.Context) error {
	var data school.VisitLog
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	updated, err := api.dispatch(ctx, school.AddVisitLog(data))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, updated.VisitLogs[len(updated.VisitLogs)-1])
}

func (api *recordApi) updateVisitLog(ctx echo.Context) error {
	var data school.VisitLog
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	data.ID = ctx.Param("id")

	if _, err := api.dispatch(ctx, school.ReplaceVisitLog(data)); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, data)
}

func (api *recordApi) destroyVisitLog(ctx echo.Context) error {
	if _, err := api.dispatch(ctx, school.DeleteVisitLog(ctx.Param("id"))); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Minutas

func (api *recordApi) queryMinutas(ctx echo.Context) error {
	minutas := api.svc.Current().Minutas
	if minutas == nil {
		minutas = []school.Minuta{}
	}
	return ctx.JSON(http.StatusOK, minutas)
}

func (api *recordApi) createMinuta(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	var data school.Minuta
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	if data.AttendedBy == "" {
		data.AttendedBy = usr.Name
	}

	updated, err := api.dispatch(ctx, school.AddMinuta(data))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, updated.Minutas[len(updated.Minutas)-1])
}

func (api *recordApi) updateMinuta(ctx echo.Context) error {
	var data school.Minuta
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	data.ID = ctx.Param("id")

	if _, err := api.dispatch(ctx, school.ReplaceMinuta(data)); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, data)
}

func (api *recordApi) destroyMinuta(ctx echo.Context) error {
	if _, err := api.dispatch(ctx, school.DeleteMinuta(ctx.Param("id"))); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
