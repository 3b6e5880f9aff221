package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
)

type schoolApi struct {
	auth     *authenticator
	svc      *school.Service
	validate *validator.Validate
}

func registerSchoolAPI(g *echo.Group, auth *authenticator, svc *school.Service, validate *validator.Validate) {
	api := schoolApi{auth: auth, svc: svc, validate: validate}

	sg := g.Group("/school")
	sg.GET("", api.retrieve)
	sg.PUT("", api.replace, auth.admins())
	sg.PUT("/settings", api.updateSettings, auth.managers())
	sg.PUT("/structure", api.updateStructure, auth.managers())
	sg.PUT("/sabana", api.updateSabana, auth.managers())

	pg := g.Group("/periods")
	pg.GET("", api.queryPeriods)
	pg.POST("/:key/open", api.openPeriod, auth.managers())
	pg.POST("/:key/close", api.closePeriod, auth.managers())
	pg.PUT("/:key/deadline", api.setDeadline, auth.managers())
	pg.DELETE("/:key/deadline", api.clearDeadline, auth.managers())

	schg := g.Group("/schedules")
	schg.GET("", api.querySchedules)
	schg.POST("", api.createSchedule, auth.managers())
	schg.DELETE("/:id", api.destroySchedule, auth.managers())

	rg := g.Group("/reports")
	rg.GET("/students/:id", api.studentReport)
	rg.GET("/groups/:grade/:group", api.groupReport)
}

func (api *schoolApi) dispatch(ctx echo.Context, patches ...school.Patch) (school.SchoolData, error) {
	data, err := api.svc.Dispatch(ctx.Request().Context(), patches...)
	return data, errors.Wrap(err, "updating school data")
}

// School

func (api *schoolApi) retrieve(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.svc.Current().Public())
}

// replace commits a whole document. Credentials are redacted on read, so users sent
// without a password hash keep the one currently stored.
func (api *schoolApi) replace(ctx echo.Context) error {
	var data school.SchoolData
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SchoolData")
	}

	for i := range data.Users {
		if _, err := data.Users[i].UpgradeLegacyPassword(); err != nil {
			return errors.Wrap(err, "hashing password")
		}
	}
	keepCredentials := func(current school.SchoolData) (school.SchoolData, error) {
		for i, u := range data.Users {
			if orig, ok := current.User(u.ID); ok && u.PasswordHash == "" {
				data.Users[i].PasswordHash = orig.PasswordHash
			}
		}
		return school.Replace(data)(current)
	}

	updated, err := api.dispatch(ctx, keepCredentials)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, updated.Public())
}

func (api *schoolApi) updateSettings(ctx echo.Context) error {
	var data school.Settings
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	data.Name = core.CleanString(data.Name)

	updated, err := api.dispatch(ctx, school.UpdateSettings(data))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, updated.Public())
}

func (api *schoolApi) updateStructure(ctx echo.Context) error {
	var data StructureRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	updated, err := api.dispatch(ctx, school.SetStructure(data.GradesStructure, data.Technologies))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, updated.Public())
}

func (api *schoolApi) updateSabana(ctx echo.Context) error {
	var data school.SabanaLayout
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SabanaLayout")
	}

	updated, err := api.dispatch(ctx, school.SetSabanaLayout(data))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, updated.SabanaLayout)
}

// Periods

func periodStatuses(d school.SchoolData) []PeriodStatus {
	statuses := make([]PeriodStatus, 0, len(school.Periods))
	for _, p := range school.Periods {
		statuses = append(statuses, PeriodStatus{
			Key:      p,
			Label:    p.Label(),
			Open:     d.IsOpen(p),
			Deadline: d.PeriodDeadlines[p],
		})
	}
	return statuses
}

func (api *schoolApi) queryPeriods(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, periodStatuses(api.svc.Current()))
}

func (api *schoolApi) changePeriods(ctx echo.Context, patch school.Patch) error {
	updated, err := api.dispatch(ctx, patch)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, periodStatuses(updated))
}

func (api *schoolApi) openPeriod(ctx echo.Context) error {
	return api.changePeriods(ctx, school.OpenPeriods(school.Period(ctx.Param("key"))))
}

func (api *schoolApi) closePeriod(ctx echo.Context) error {
	return api.changePeriods(ctx, school.ClosePeriods(school.Period(ctx.Param("key"))))
}

func (api *schoolApi) setDeadline(ctx echo.Context) error {
	var data DeadlineRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}
	return api.changePeriods(ctx, school.SetDeadline(school.Period(ctx.Param("key")), core.CleanString(data.Deadline)))
}

func (api *schoolApi) clearDeadline(ctx echo.Context) error {
	return api.changePeriods(ctx, school.ClearDeadline(school.Period(ctx.Param("key"))))
}

// Schedules

func (api *schoolApi) querySchedules(ctx echo.Context) error {
	entries := api.svc.Current().Schedules
	if teacherID := ctx.QueryParam("teacher"); teacherID != "" {
		filtered := make([]school.ScheduleEntry, 0, len(entries))
		for _, e := range entries {
			if e.TeacherID == teacherID {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	if entries == nil {
		entries = []school.ScheduleEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *schoolApi) createSchedule(ctx echo.Context) error {
	var data school.ScheduleEntry
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	updated, err := api.dispatch(ctx, school.AddSchedule(data))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, updated.Schedules[len(updated.Schedules)-1])
}

func (api *schoolApi) destroySchedule(ctx echo.Context) error {
	if _, err := api.dispatch(ctx, school.DeleteSchedule(ctx.Param("id"))); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Reports

// teachesGroup reports whether a teacher has any assignment in grade/group.
func teachesGroup(usr user.User, grade, group string) bool {
	for _, a := range usr.Assignments {
		if a.Grade == grade && a.Group == group {
			return true
		}
	}
	return false
}

func (api *schoolApi) studentReport(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	id, err := school.ParseStudentID(ctx.Param("id"))
	if err != nil {
		return err
	}

	rep, err := school.BuildStudentReport(api.svc.Current(), id)
	if err != nil {
		return err
	}
	if usr.IsTeacher() && !teachesGroup(usr, rep.Student.Grade, rep.Student.Group) {
		return errHttpForbidden
	}
	return ctx.JSON(http.StatusOK, rep)
}

func (api *schoolApi) groupReport(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	grade, group := pathParam(ctx, "grade"), pathParam(ctx, "group")
	if usr.IsTeacher() && !teachesGroup(usr, grade, group) {
		return errHttpForbidden
	}

	trimester := 1
	if q := ctx.QueryParam("trimester"); q != "" {
		if trimester, err = strconv.Atoi(q); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "trimester", Error: "must be 1, 2 or 3"})
		}
	}

	rep, err := school.BuildGroupReport(api.svc.Current(), grade, group, trimester)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rep)
}
