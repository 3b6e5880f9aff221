package echoapi_test

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/raulpleon95-ctrl/SECUNDARIA/apps/api/echo"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/school"
	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
	testutil "github.com/raulpleon95-ctrl/SECUNDARIA/tests"
)

func Test_schoolApi(t *testing.T) {
	fx := setup(t)
	testutil.SetPassword(t, fx.users, "director", strongPwd)
	adminToken := fx.token(t, "admin")
	teacherToken := fx.token(t, "t1")

	fx.run(t, []httpTest{
		{name: "auth required", path: "/v1/school", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "credentials are redacted", path: "/v1/school", token: teacherToken, wantData: marshalObj(t, fx.school.Current().Public())},
		{
			name: "admins only replace", method: http.MethodPut, path: "/v1/school",
			token: teacherToken, body: marshalObj(t, fx.school.Current().Public()), wantCode: http.StatusForbidden,
		},
		{
			name: "settings require a name", method: http.MethodPut, path: "/v1/school/settings",
			token: adminToken, body: []byte(`{"name": "  "}`), wantCode: http.StatusBadRequest,
		},
	})

	t.Run("replace keeps stored password hashes", func(t *testing.T) {
		doc := fx.school.Current().Public()
		doc.Name = "Secundaria Renombrada"
		doc.AllowedPeriods = []school.Period{school.Trim1, "bogus"}

		rec := fx.do(http.MethodPut, "/v1/school", adminToken, marshalObj(t, doc))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		got := fx.school.Current()
		assert.Equal(t, "Secundaria Renombrada", got.Name)
		assert.Equal(t, []school.Period{school.Trim1}, got.AllowedPeriods)
		usr, err := fx.users.Authenticate(ctx(), "director", strongPwd)
		assert.NoError(t, err)
		assert.Equal(t, "admin", usr.ID)
	})

	t.Run("settings and sabana", func(t *testing.T) {
		rec := fx.do(http.MethodPut, "/v1/school/settings", adminToken, marshalObj(t, school.Settings{Name: "Nueva", Teachers: 30, Turno: "MATUTINO"}))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "MATUTINO", fx.school.Current().Turno)

		layout := school.SabanaLayout{Academic: []string{"t1"}, Technology: []string{}, Support: []string{"sub1"}}
		rec = fx.do(http.MethodPut, "/v1/school/sabana", fx.token(t, "sub1"), marshalObj(t, layout))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, layout, fx.school.Current().SabanaLayout)
	})
}

func Test_periodApi(t *testing.T) {
	fx := setup(t)
	adminToken := fx.token(t, "admin")
	teacherToken := fx.token(t, "t1")

	statuses := func(open map[school.Period]bool, deadlines map[school.Period]string) []byte {
		var out []echoapi.PeriodStatus
		for _, p := range school.Periods {
			out = append(out, echoapi.PeriodStatus{Key: p, Label: p.Label(), Open: open[p], Deadline: deadlines[p]})
		}
		return marshalObj(t, out)
	}

	fx.run(t, []httpTest{
		{name: "list", path: "/v1/periods", token: teacherToken, wantData: statuses(map[school.Period]bool{school.Inter1: true}, nil)},
		{name: "managers only", method: http.MethodPost, path: "/v1/periods/trim_1/open", token: teacherToken, wantCode: http.StatusForbidden},
		{name: "unknown period", method: http.MethodPost, path: "/v1/periods/trim_9/open", token: adminToken, wantCode: http.StatusBadRequest},
		{
			name: "open", method: http.MethodPost, path: "/v1/periods/trim_1/open", token: adminToken,
			wantData: statuses(map[school.Period]bool{school.Inter1: true, school.Trim1: true}, nil),
		},
		{
			name: "close", method: http.MethodPost, path: "/v1/periods/inter_1/close", token: adminToken,
			wantData: statuses(map[school.Period]bool{school.Trim1: true}, nil),
		},
		{
			name: "invalid deadline", method: http.MethodPut, path: "/v1/periods/trim_1/deadline", token: adminToken,
			body: []byte(`{"deadline": "mañana"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "set deadline", method: http.MethodPut, path: "/v1/periods/trim_1/deadline", token: adminToken,
			body: []byte(`{"deadline": "2024-03-15T10:00"}`),
			wantData: statuses(
				map[school.Period]bool{school.Trim1: true},
				map[school.Period]string{school.Trim1: "2024-03-15T10:00"},
			),
		},
		{
			name: "clear deadline", method: http.MethodDelete, path: "/v1/periods/trim_1/deadline", token: adminToken,
			wantData: statuses(map[school.Period]bool{school.Trim1: true}, nil),
		},
	})
}

func Test_studentApi(t *testing.T) {
	fx := setup(t)
	fx.putUser(t, user.User{ID: "adm1", Name: "Ana Oficina", Username: "oficina", Role: user.RoleAdministrative})
	adminToken := fx.token(t, "admin")
	officeToken := fx.token(t, "adm1")
	teacherToken := fx.token(t, "t1")

	create := func(name, grade, group string) school.Student {
		t.Helper()
		rec := fx.do(http.MethodPost, "/v1/students", officeToken, marshalObj(t, school.Student{Name: name, Grade: grade, Group: group}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var s school.Student
		unmarshal(t, rec, &s)
		return s
	}
	ana := create("Ana López", "1°", "A")
	beto := create("Beto Ruiz", "3°", "C")
	assert.NotEqual(t, ana.ID, beto.ID)
	assert.Equal(t, school.StatusActive, ana.Status)
	assert.Contains(t, ana.Grades, "Matemáticas")

	scorePath := func(s school.Student) string { return "/v1/students/" + strconv.Itoa(s.ID) + "/scores" }
	score := func(subject string, p school.Period, value string) []byte {
		return marshalObj(t, echoapi.ScoreRequest{Subject: subject, Period: p, Value: value})
	}

	fx.run(t, []httpTest{
		{
			name: "teachers cannot add students", method: http.MethodPost, path: "/v1/students", token: teacherToken,
			body: marshalObj(t, school.Student{Name: "X", Grade: "1°", Group: "A"}), wantCode: http.StatusForbidden,
		},
		{
			name: "unknown group", method: http.MethodPost, path: "/v1/students", token: adminToken,
			body: marshalObj(t, school.Student{Name: "X", Grade: "1°", Group: "Z"}), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: "unknown group"}),
		},
		{name: "teachers see their groups only", path: "/v1/students", token: teacherToken, wantData: marshalObj(t, []school.Student{ana})},
		{name: "filter by grade", path: "/v1/students?grade=3%C2%B0", token: adminToken, wantData: marshalObj(t, []school.Student{beto})},
		{name: "search", path: "/v1/students?search=ANA", token: adminToken, wantData: marshalObj(t, []school.Student{ana})},
		{
			name: "signal on open period", method: http.MethodPut, path: scorePath(ana), token: teacherToken,
			body: score("Matemáticas", school.Inter1, "GREEN"),
		},
		{
			name: "invalid signal", method: http.MethodPut, path: scorePath(ana), token: teacherToken,
			body: score("Matemáticas", school.Inter1, "BLUE"), wantCode: http.StatusBadRequest,
		},
		{
			name: "closed period", method: http.MethodPut, path: scorePath(ana), token: adminToken,
			body: score("Matemáticas", school.Trim3, "9"), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, httpErr{Error: "period is closed for data entry"}),
		},
		{
			name: "teacher not assigned to subject", method: http.MethodPut, path: scorePath(ana), token: teacherToken,
			body: score("Español", school.Inter1, "RED"), wantCode: http.StatusForbidden,
		},
		{
			name: "teacher not assigned to group", method: http.MethodPut, path: scorePath(beto), token: teacherToken,
			body: score("Matemáticas", school.Inter1, "RED"), wantCode: http.StatusForbidden,
		},
		{
			name: "staff cannot grade", method: http.MethodPut, path: scorePath(ana), token: officeToken,
			body: score("Matemáticas", school.Inter1, "RED"), wantCode: http.StatusForbidden,
		},
		{
			name: "unknown student", method: http.MethodPut, path: "/v1/students/42/scores", token: adminToken,
			body: score("Matemáticas", school.Inter1, "RED"), wantCode: http.StatusNotFound,
		},
		{name: "managers only delete", method: http.MethodDelete, path: "/v1/students/" + strconv.Itoa(beto.ID), token: officeToken, wantCode: http.StatusForbidden},
	})

	s, _ := fx.school.Current().Student(ana.ID)
	assert.Equal(t, school.SignalGreen, s.Grades["Matemáticas"].Inter1)

	t.Run("update keeps scores", func(t *testing.T) {
		rec := fx.do(http.MethodPut, "/v1/students/"+strconv.Itoa(ana.ID), officeToken,
			marshalObj(t, school.Student{Name: "Ana López Díaz", Grade: "1°", Group: "B"}))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got school.Student
		unmarshal(t, rec, &got)
		assert.Equal(t, "B", got.Group)
		assert.Equal(t, school.SignalGreen, got.Grades["Matemáticas"].Inter1)
	})

	t.Run("promote and delete", func(t *testing.T) {
		rec := fx.do(http.MethodPost, "/v1/students/promote", adminToken, marshalObj(t, echoapi.PromoteRequest{FromGrade: "3°"}))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		s, _ := fx.school.Current().Student(beto.ID)
		assert.Equal(t, school.StatusGraduated, s.Status)

		rec = fx.do(http.MethodDelete, "/v1/students/"+strconv.Itoa(beto.ID), adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		rec = fx.do(http.MethodDelete, "/v1/students/"+strconv.Itoa(beto.ID), adminToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, 1, fx.school.Current().StudentsCount)
	})

	t.Run("reports", func(t *testing.T) {
		rec := fx.do(http.MethodGet, "/v1/reports/students/"+strconv.Itoa(ana.ID), teacherToken)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var rep school.StudentReport
		unmarshal(t, rec, &rep)
		assert.Equal(t, ana.ID, rep.Student.ID)

		rec = fx.do(http.MethodGet, "/v1/reports/groups/1%C2%B0/B?trimester=2", adminToken)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var group school.GroupReport
		unmarshal(t, rec, &group)
		assert.Equal(t, 2, group.Trimester)
		assert.Len(t, group.Rows, 1)

		rec = fx.do(http.MethodGet, "/v1/reports/groups/3%C2%B0/C", teacherToken)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		rec = fx.do(http.MethodGet, "/v1/reports/groups/1%C2%B0/B?trimester=x", adminToken)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_recordApi(t *testing.T) {
	fx := setup(t)
	fx.putUser(t, user.User{ID: "t2", Name: "Prof. Otra", Username: "otra", Role: user.RoleTeacher})
	adminToken := fx.token(t, "admin")
	teacherToken := fx.token(t, "t1")
	otherToken := fx.token(t, "t2")

	citation := school.Citation{StudentName: "Ana López", Group: "1° A", Date: "2024-03-01", Reason: "Tareas"}
	rec := fx.do(http.MethodPost, "/v1/citations", teacherToken, marshalObj(t, citation))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created school.Citation
	unmarshal(t, rec, &created)
	assert.Equal(t, "t1", created.TeacherID)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.CreatedAt)

	fx.run(t, []httpTest{
		{name: "author sees own citation", path: "/v1/citations", token: teacherToken, wantData: marshalObj(t, []school.Citation{created})},
		{name: "other teacher sees nothing", path: "/v1/citations", token: otherToken, wantData: []byte(`[]`)},
		{name: "managers see all", path: "/v1/citations", token: adminToken, wantData: marshalObj(t, []school.Citation{created})},
		{name: "other teacher cannot delete", method: http.MethodDelete, path: "/v1/citations/" + created.ID, token: otherToken, wantCode: http.StatusForbidden},
		{name: "missing reason", method: http.MethodPost, path: "/v1/citations", token: teacherToken, body: []byte(`{"studentName": "X"}`), wantCode: http.StatusBadRequest},
		{name: "teachers cannot read visit logs", path: "/v1/visit-logs", token: teacherToken, wantCode: http.StatusForbidden},
		{name: "teachers cannot read minutas", path: "/v1/minutas", token: teacherToken, wantCode: http.StatusForbidden},
		{name: "unknown minuta", method: http.MethodDelete, path: "/v1/minutas/nope", token: adminToken, wantCode: http.StatusNotFound},
	})

	t.Run("visit log lifecycle", func(t *testing.T) {
		v := school.VisitLog{LogType: school.LogConduct, StudentName: "Ana López", Date: "2024-03-02", Narrative: "Pelea"}
		rec := fx.do(http.MethodPost, "/v1/visit-logs", adminToken, marshalObj(t, v))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got school.VisitLog
		unmarshal(t, rec, &got)

		got.Narrative = "Pelea en el patio"
		rec = fx.do(http.MethodPut, "/v1/visit-logs/"+got.ID, adminToken, marshalObj(t, got))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "Pelea en el patio", fx.school.Current().VisitLogs[0].Narrative)

		rec = fx.do(http.MethodGet, "/v1/visit-logs?type=accidente", adminToken)
		assert.JSONEq(t, `[]`, rec.Body.String())

		rec = fx.do(http.MethodDelete, "/v1/visit-logs/"+got.ID, adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, fx.school.Current().VisitLogs)
	})

	t.Run("minuta is attended by the author", func(t *testing.T) {
		m := school.Minuta{StudentName: "Beto", Date: "2024-03-03", Subject: "Conducta"}
		rec := fx.do(http.MethodPost, "/v1/minutas", adminToken, marshalObj(t, m))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var got school.Minuta
		unmarshal(t, rec, &got)
		assert.Equal(t, fx.user(t, "admin").Name, got.AttendedBy)
	})
}

func Test_scheduleApi(t *testing.T) {
	fx := setup(t)
	adminToken := fx.token(t, "admin")

	entry := school.ScheduleEntry{TeacherID: "t1", Day: "Lunes", Period: 1, GradeGroup: "1A"}
	rec := fx.do(http.MethodPost, "/v1/schedules", adminToken, marshalObj(t, entry))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created school.ScheduleEntry
	unmarshal(t, rec, &created)
	assert.Equal(t, school.ScheduleAcademic, created.Type)

	fx.run(t, []httpTest{
		{name: "by teacher", path: "/v1/schedules?teacher=t1", token: fx.token(t, "t1"), wantData: marshalObj(t, []school.ScheduleEntry{created})},
		{name: "other teacher", path: "/v1/schedules?teacher=sub1", token: adminToken, wantData: []byte(`[]`)},
		{
			name: "unknown teacher", method: http.MethodPost, path: "/v1/schedules", token: adminToken,
			body: marshalObj(t, school.ScheduleEntry{TeacherID: "nope", Day: "Lunes", Period: 1, GradeGroup: "1A"}),
			wantCode: http.StatusNotFound,
		},
		{
			name: "invalid day", method: http.MethodPost, path: "/v1/schedules", token: adminToken,
			body: marshalObj(t, school.ScheduleEntry{TeacherID: "t1", Day: "Domingo", Period: 1, GradeGroup: "1A"}),
			wantCode: http.StatusBadRequest,
		},
		{name: "delete", method: http.MethodDelete, path: "/v1/schedules/" + created.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "delete again", method: http.MethodDelete, path: "/v1/schedules/" + created.ID, token: adminToken, wantCode: http.StatusNotFound},
	})
}

func Test_configApi(t *testing.T) {
	fx := setup(t)
	adminToken := fx.token(t, "admin")

	fx.run(t, []httpTest{
		{name: "admins only", path: "/v1/config/remote", token: fx.token(t, "sub1"), wantCode: http.StatusForbidden},
		{name: "local only", path: "/v1/config/remote", token: adminToken, wantData: []byte(`{"connected": false}`)},
		{
			name: "invalid json", method: http.MethodPost, path: "/v1/config/remote", token: adminToken,
			body: marshalObj(t, echoapi.RemoteConfigRequest{Config: "{oops"}), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"config": "invalid JSON configuration"}`),
		},
	})
	assert.Zero(t, atomic.LoadInt32(&fx.reloads))

	t.Run("connect and disconnect reload", func(t *testing.T) {
		snippet := `const firebaseConfig = {"apiKey": "k", "projectId": "secundaria-27"};`
		rec := fx.do(http.MethodPost, "/v1/config/remote", adminToken, marshalObj(t, echoapi.RemoteConfigRequest{Config: snippet}))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.EqualValues(t, 1, atomic.LoadInt32(&fx.reloads))

		rc, ok, err := school.LoadRemoteConfig(ctx(), fx.local)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, school.ProviderFirestore, rc.Provider)
		assert.Equal(t, "secundaria-27", rc.ProjectID)

		rec = fx.do(http.MethodDelete, "/v1/config/remote", adminToken)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.EqualValues(t, 2, atomic.LoadInt32(&fx.reloads))
		_, ok, err = school.LoadRemoteConfig(ctx(), fx.local)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
