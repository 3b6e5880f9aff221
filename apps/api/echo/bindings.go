package echoapi

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
)

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	DeadlineRequest struct {
		Deadline string `json:"deadline" validate:"required"`
	}

	ScoreRequest struct {
		Subject string        `json:"subject" validate:"required"`
		Period  school.Period `json:"period" validate:"required"`
		Value   string        `json:"value"`
	}

	PromoteRequest struct {
		FromGrade string `json:"fromGrade" validate:"required"`
		ToGrade   string `json:"toGrade"` // empty graduates the students
	}

	StructureRequest struct {
		GradesStructure []school.GradeStructure `json:"gradesStructure" validate:"required,min=1,dive"`
		Technologies    []string                `json:"technologies"`
	}

	RemoteConfigRequest struct {
		// Config is the pasted configuration: JSON or the Firebase console snippet.
		Config string `json:"config" validate:"required"`
	}

	RemoteConfigResponse struct {
		Connected bool                 `json:"connected"`
		Config    *school.RemoteConfig `json:"config,omitempty"`
	}

	PeriodStatus struct {
		Key      school.Period `json:"key"`
		Label    string        `json:"label"`
		Open     bool          `json:"open"`
		Deadline string        `json:"deadline,omitempty"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	return validate.Struct(lr)
}

// StudentQuery filters the student list. Teachers only ever see their own groups.
type StudentQuery struct {
	Grade  string
	Group  string
	Status string
	Search string
}

func (q *StudentQuery) Bind(ctx echo.Context) {
	q.Grade = core.CleanString(ctx.QueryParam("grade"))
	q.Group = core.CleanString(ctx.QueryParam("group"))
	q.Status = core.CleanString(ctx.QueryParam("status"), true /* lower */)
	q.Search = core.CleanString(ctx.QueryParam("search"), true /* lower */)
}

func (q StudentQuery) match(s school.Student) bool {
	switch {
	case q.Grade != "" && s.Grade != q.Grade,
		q.Group != "" && s.Group != q.Group,
		q.Status != "" && s.Status != q.Status,
		q.Search != "" && !strings.Contains(strings.ToLower(s.Name), q.Search):
		return false
	}
	return true
}

func bindAndValidate(ctx echo.Context, validate *validator.Validate, dest interface{}) error {
	if err := ctx.Bind(dest); err != nil {
		return errors.Wrap(err, "binding request")
	}
	return validate.Struct(dest)
}

// pathParam returns the unescaped path parameter `name` ("1%C2%B0" is "1°").
func pathParam(ctx echo.Context, name string) string {
	raw := ctx.Param(name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
