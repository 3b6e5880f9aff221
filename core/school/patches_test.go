package school

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
)

func fixedClock(t *testing.T) {
	t.Helper()
	ids := 0
	NowFunc = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	NewID = func() string { ids++; return "id-" + string(rune('0'+ids)) }
	t.Cleanup(func() {
		NowFunc = time.Now
		NewID = defaultNewID
	})
}

var defaultNewID = NewID

func withStudent(t *testing.T) SchoolData {
	t.Helper()
	d, err := Apply(DefaultData(), AddStudent(Student{ID: 1, Name: "Ana", Grade: "1°", Group: "A"}))
	require.NoError(t, err)
	return d
}

func TestApply_DoesNotModifyCurrent(t *testing.T) {
	current := withStudent(t)
	before := Clone(current)

	_, err := Apply(current,
		SetScore(1, "Matemáticas", Inter1, "GREEN"),
		ClosePeriods(Inter1),
		DeleteUsers("t1"),
	)
	require.NoError(t, err)
	assert.Equal(t, before, current)
}

func TestApply_AbortsOnError(t *testing.T) {
	current := withStudent(t)
	got, err := Apply(current, ClosePeriods(Inter1), SetScore(1, "Matemáticas", Inter1, "GREEN"))
	assert.Equal(t, ErrPeriodClosed, err)
	assert.Equal(t, current, got)
}

func TestPeriodPatches(t *testing.T) {
	d := DefaultData()

	d, err := Apply(d, OpenPeriods(Trim1, Inter1, Trim1))
	require.NoError(t, err)
	assert.Equal(t, []Period{Inter1, Trim1}, d.AllowedPeriods)

	d, err = Apply(d, ClosePeriods(Inter1, Trim1))
	require.NoError(t, err)
	assert.Empty(t, d.AllowedPeriods)

	_, err = Apply(d, OpenPeriods("month_1"))
	assert.Equal(t, ErrInvalidPeriod, err)

	d, err = Apply(d, SetDeadline(Trim2, "2025-03-15T14:30"))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-15T14:30", d.PeriodDeadlines[Trim2])

	_, err = Apply(d, SetDeadline(Trim2, "15/03/2025"))
	assert.Equal(t, ErrInvalidDeadline, err)

	d, err = Apply(d, ClearDeadline(Trim2))
	require.NoError(t, err)
	assert.NotContains(t, d.PeriodDeadlines, Trim2)
}

func TestStudentPatches(t *testing.T) {
	fixedClock(t)
	d := withStudent(t)

	s, ok := d.Student(1)
	require.True(t, ok)
	assert.Len(t, s.Grades, 8)
	assert.Equal(t, StatusActive, s.Status)
	assert.Equal(t, 1, d.StudentsCount)

	_, err := Apply(d, AddStudent(Student{ID: 1, Name: "Otra", Grade: "1°", Group: "A"}))
	assert.Equal(t, ErrStudentExists, err)
	_, err = Apply(d, AddStudent(Student{Name: "Otra", Grade: "4°", Group: "A"}))
	assert.Equal(t, ErrUnknownGrade, err)
	_, err = Apply(d, AddStudent(Student{Name: "Otra", Grade: "1°", Group: "Z"}))
	assert.Equal(t, ErrUnknownGroup, err)

	d, err = Apply(d, AddStudent(Student{Name: "Beto", Grade: "2°", Group: "B"}))
	require.NoError(t, err)
	require.Len(t, d.StudentsData, 2)
	assert.Equal(t, int(NowFunc().UnixMilli()), d.StudentsData[1].ID)

	d, err = Apply(d, SetScore(1, "Matemáticas", Inter1, "RED"))
	require.NoError(t, err)
	d, err = Apply(d, UpdateStudent(Student{ID: 1, Name: "Ana María", Grade: "2°", Group: "A"}))
	require.NoError(t, err)
	s, _ = d.Student(1)
	assert.Equal(t, "Ana María", s.Name)
	assert.Equal(t, SignalRed, s.Grades["Matemáticas"].Inter1)
	assert.Contains(t, s.Grades, "Física")
	assert.Contains(t, s.Grades, "Biología")

	_, err = Apply(d, UpdateStudent(Student{ID: 99, Name: "x", Grade: "1°", Group: "A"}))
	assert.Equal(t, ErrStudentNotFound, err)

	d, err = Apply(d, DeleteStudents(1))
	require.NoError(t, err)
	assert.Len(t, d.StudentsData, 1)
	assert.Equal(t, 1, d.StudentsCount)
}

func TestSetScore(t *testing.T) {
	d := withStudent(t)
	d.AllowedPeriods = []Period{Inter1, Trim1}

	tests := []struct {
		name    string
		patch   Patch
		wantErr error
	}{
		{name: "signal", patch: SetScore(1, "Español", Inter1, "GREEN")},
		{name: "clear signal", patch: SetScore(1, "Español", Inter1, "")},
		{name: "score", patch: SetScore(1, "Español", Trim1, " 9.5 ")},
		{name: "invalid signal", patch: SetScore(1, "Español", Inter1, "YELLOW"), wantErr: ErrInvalidSignal},
		{name: "invalid score", patch: SetScore(1, "Español", Trim1, "diez"), wantErr: ErrInvalidScore},
		{name: "closed period", patch: SetScore(1, "Español", Trim2, "8"), wantErr: ErrPeriodClosed},
		{name: "unknown period", patch: SetScore(1, "Español", "trim_9", "8"), wantErr: ErrInvalidPeriod},
		{name: "unknown subject", patch: SetScore(1, "Latín", Trim1, "8"), wantErr: ErrUnknownSubject},
		{name: "unknown student", patch: SetScore(2, "Español", Trim1, "8"), wantErr: ErrStudentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(d, tt.patch)
			assert.Equal(t, tt.wantErr, err)
		})
	}

	got, err := Apply(d, SetScore(1, "Español", Trim1, " 9.5 "))
	require.NoError(t, err)
	s, _ := got.Student(1)
	assert.Equal(t, "9.5", s.Grades["Español"].Trim1)

	// closing keeps recorded scores
	got, err = Apply(got, ClosePeriods(Trim1))
	require.NoError(t, err)
	s, _ = got.Student(1)
	assert.Equal(t, "9.5", s.Grades["Español"].Trim1)
}

func TestPromoteStudents(t *testing.T) {
	d := withStudent(t)
	d, err := Apply(d,
		SetScore(1, "Biología", Inter1, "GREEN"),
		AddStudent(Student{ID: 2, Name: "Carla", Grade: "3°", Group: "C"}),
	)
	require.NoError(t, err)

	d, err = Apply(d, PromoteStudents("3°", ""), PromoteStudents("1°", "2°"))
	require.NoError(t, err)

	ana, _ := d.Student(1)
	assert.Equal(t, "2°", ana.Grade)
	assert.Contains(t, ana.Grades, "Física")
	assert.NotContains(t, ana.Grades, "Biología")

	carla, _ := d.Student(2)
	assert.Equal(t, StatusGraduated, carla.Status)
	assert.Equal(t, "3°", carla.Grade)

	_, err = Apply(d, PromoteStudents("1°", "7°"))
	assert.Equal(t, ErrUnknownGrade, err)
}

func TestLogPatches(t *testing.T) {
	fixedClock(t)
	d := DefaultData()

	d, err := Apply(d,
		AddCitation(Citation{StudentName: "Ana", Group: "1° A", Date: "2025-03-02", Reason: "Tareas"}),
		AddVisitLog(VisitLog{LogType: LogConduct, StudentName: "Ana", Date: "2025-03-02"}),
		AddMinuta(Minuta{StudentName: "Ana", Date: "2025-03-02", Subject: "Queja"}),
	)
	require.NoError(t, err)
	require.Len(t, d.Citations, 1)
	c := d.Citations[0]
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "2025-03-01T12:00:00Z", c.CreatedAt)
	require.Len(t, d.VisitLogs, 1)
	require.Len(t, d.Minutas, 1)

	c.Reason = "Conducta"
	c.CreatedAt = "tampered"
	d, err = Apply(d, ReplaceCitation(c))
	require.NoError(t, err)
	assert.Equal(t, "Conducta", d.Citations[0].Reason)
	assert.Equal(t, "2025-03-01T12:00:00Z", d.Citations[0].CreatedAt)

	v := d.VisitLogs[0]
	v.Narrative = "Se cayó en el patio"
	d, err = Apply(d, ReplaceVisitLog(v))
	require.NoError(t, err)
	assert.Equal(t, "Se cayó en el patio", d.VisitLogs[0].Narrative)

	_, err = Apply(d, ReplaceMinuta(Minuta{ID: "nope"}))
	assert.Equal(t, ErrRecordNotFound, err)
	_, err = Apply(d, DeleteCitation("nope"))
	assert.Equal(t, ErrRecordNotFound, err)

	d, err = Apply(d, DeleteCitation(c.ID), DeleteVisitLog(v.ID), DeleteMinuta(d.Minutas[0].ID))
	require.NoError(t, err)
	assert.Empty(t, d.Citations)
	assert.Empty(t, d.VisitLogs)
	assert.Empty(t, d.Minutas)
}

func TestUserPatches(t *testing.T) {
	fixedClock(t)
	d := DefaultData()

	d, err := Apply(d, PutUser(user.User{ID: "sub2", Name: "Mtra. Rosa", Username: "rosa", Role: user.RoleSubdirector}))
	require.NoError(t, err)
	assert.Equal(t, "Mtra. Rosa", d.Subdirector)
	assert.Len(t, d.Users, 4)

	d, err = Apply(d, PutUser(user.User{ID: "t1", Name: "Prof. Juan", Username: "profe", Role: user.RoleTeacher}))
	require.NoError(t, err)
	assert.Len(t, d.Users, 4)
	u, _ := d.User("t1")
	assert.Equal(t, "Prof. Juan", u.Name)

	d, err = Apply(d, AddSchedule(ScheduleEntry{TeacherID: "t1", Day: "Lunes", Period: 1, GradeGroup: "1A"}))
	require.NoError(t, err)
	assert.Equal(t, ScheduleAcademic, d.Schedules[0].Type)
	_, err = Apply(d, AddSchedule(ScheduleEntry{TeacherID: "ghost", Day: "Lunes", Period: 1, GradeGroup: "1A"}))
	assert.Equal(t, user.ErrNotFound, err)

	d, err = Apply(d, DeleteUsers("t1"))
	require.NoError(t, err)
	assert.Len(t, d.Users, 3)
	assert.Empty(t, d.Schedules)
	assert.Empty(t, d.SabanaLayout.Academic)
}

func TestSettingsPatches(t *testing.T) {
	d := withStudent(t)

	d, err := Apply(d, UpdateSettings(Settings{Name: "Secundaria 27", Director: "G. Durán", Teachers: 30, Turno: "MATUTINO"}))
	require.NoError(t, err)
	assert.Equal(t, "Secundaria 27", d.Name)
	assert.Equal(t, 30, d.Teachers)

	structure := DefaultGradesStructure()
	structure[0].Subjects = append(structure[0].Subjects, "Tutoría")
	structure[0].HiddenSubjects = []string{"Tutoría"}
	d, err = Apply(d, SetStructure(structure, []string{"Cocina"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"Cocina"}, d.Technologies)
	s, _ := d.Student(1)
	assert.Contains(t, s.Grades, "Tutoría")

	d, err = Apply(d, SetSabanaLayout(SabanaLayout{Academic: []string{"t1"}, Support: []string{"sub1"}}))
	require.NoError(t, err)
	assert.Equal(t, SabanaLayout{Academic: []string{"t1"}, Technology: []string{}, Support: []string{"sub1"}}, d.SabanaLayout)
}

func TestReplace(t *testing.T) {
	incoming := DefaultData()
	incoming.Name = "Nueva"
	incoming.Users = nil

	got, err := Apply(withStudent(t), Replace(incoming))
	require.NoError(t, err)
	assert.Equal(t, "Nueva", got.Name)
	assert.Empty(t, got.StudentsData)
	assert.Equal(t, DefaultUsers(), got.Users)
}
