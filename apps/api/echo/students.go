package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
)

type studentApi struct {
	auth     *authenticator
	svc      *school.Service
	validate *validator.Validate
}

func registerStudentAPI(g *echo.Group, auth *authenticator, svc *school.Service, validate *validator.Validate) {
	api := studentApi{auth: auth, svc: svc, validate: validate}

	g.GET("", api.query)
	g.POST("", api.create, auth.office())
	g.POST("/promote", api.promote, auth.managers())
	g.PUT("/:id", api.update, auth.office())
	g.DELETE("/:id", api.destroy, auth.managers())
	g.PUT("/:id/scores", api.setScore)
}

func (api *studentApi) query(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	q := new(StudentQuery)
	q.Bind(ctx)

	students := make([]school.Student, 0)
	for _, s := range school.SortedStudents(api.svc.Current().StudentsData) {
		if usr.IsTeacher() && !teachesGroup(usr, s.Grade, s.Group) {
			continue
		}
		if q.match(s) {
			students = append(students, s)
		}
	}
	return ctx.JSON(http.StatusOK, students)
}

func cleanStudent(s *school.Student) error {
	s.Name = core.CleanString(s.Name)
	s.Grade = core.CleanString(s.Grade)
	s.Group = core.CleanString(s.Group)
	if s.Name == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
	}
	return nil
}

func (api *studentApi) create(ctx echo.Context) error {
	var data school.Student
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Student")
	}
	if err := cleanStudent(&data); err != nil {
		return err
	}
	data.ID = 0

	updated, err := api.svc.Dispatch(ctx.Request().Context(), school.AddStudent(data))
	if err != nil {
		return errors.Wrap(err, "adding student")
	}
	return ctx.JSON(http.StatusCreated, updated.StudentsData[len(updated.StudentsData)-1])
}

func (api *studentApi) update(ctx echo.Context) error {
	id, err := school.ParseStudentID(ctx.Param("id"))
	if err != nil {
		return err
	}
	var data school.Student
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Student")
	}
	if err := cleanStudent(&data); err != nil {
		return err
	}
	data.ID = id

	updated, err := api.svc.Dispatch(ctx.Request().Context(), school.UpdateStudent(data))
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	s, _ := updated.Student(id)
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) destroy(ctx echo.Context) error {
	id, err := school.ParseStudentID(ctx.Param("id"))
	if err != nil {
		return err
	}
	if _, ok := api.svc.Current().Student(id); !ok {
		return school.ErrStudentNotFound
	}
	if _, err := api.svc.Dispatch(ctx.Request().Context(), school.DeleteStudents(id)); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// setScore records one score. Managers may grade any student; teachers only the
// grade/group/subject they are assigned.
func (api *studentApi) setScore(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return err
	}
	id, err := school.ParseStudentID(ctx.Param("id"))
	if err != nil {
		return err
	}
	var data ScoreRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	s, ok := api.svc.Current().Student(id)
	if !ok {
		return school.ErrStudentNotFound
	}
	switch {
	case usr.IsManager():
	case usr.IsTeacher() && usr.Teaches(s.Grade, s.Group, data.Subject):
	default:
		return errHttpForbidden
	}

	updated, err := api.svc.Dispatch(ctx.Request().Context(), school.SetScore(id, data.Subject, data.Period, data.Value))
	if err != nil {
		return errors.Wrap(err, "setting score")
	}
	s, _ = updated.Student(id)
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) promote(ctx echo.Context) error {
	var data PromoteRequest
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	updated, err := api.svc.Dispatch(ctx.Request().Context(), school.PromoteStudents(data.FromGrade, data.ToGrade))
	if err != nil {
		return errors.Wrap(err, "promoting students")
	}
	return ctx.JSON(http.StatusOK, school.SortedStudents(updated.StudentsData))
}
