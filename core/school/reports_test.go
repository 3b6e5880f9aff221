package school

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalAverage(t *testing.T) {
	tests := []struct {
		t1, t2, t3 string
		want       string
	}{
		{"8", "9", "10", "9.0"},
		{"7", "8", "8", "7.7"},
		{"10", "10", "9.5", "9.8"},
		{"8", "", "10", ""},
		{"8", "nueve", "10", ""},
		{"", "", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FinalAverage(tt.t1, tt.t2, tt.t3), "FinalAverage(%q, %q, %q)", tt.t1, tt.t2, tt.t3)
	}
}

func TestGeneralAverage(t *testing.T) {
	gs := GradeStructure{Grade: "1°", Subjects: []string{"Español", "Matemáticas", "Artes"}, HiddenSubjects: []string{"Artes"}}
	s := Student{Grades: map[string]GradeScores{
		"Español":     {Trim1: "8", Trim2: "8", Trim3: "8"},
		"Matemáticas": {Trim1: "9", Trim2: "10", Trim3: "10"},
		"Artes":       {Trim1: "5", Trim2: "5", Trim3: "5"},
	}}
	assert.Equal(t, "8.8", GeneralAverage(s, gs)) // (8.0 + 9.7) / 2

	s.Grades["Matemáticas"] = GradeScores{Trim1: "9"}
	assert.Equal(t, "8.0", GeneralAverage(s, gs))

	assert.Equal(t, "-", GeneralAverage(Student{}, gs))
}

func TestTrimesterAverages(t *testing.T) {
	students := []Student{
		{Grades: map[string]GradeScores{"Español": {Trim2: "8"}, "Matemáticas": {Trim2: "6"}}},
		{Grades: map[string]GradeScores{"Español": {Trim2: "10"}, "Matemáticas": {}}},
	}
	subjects := []string{"Español", "Matemáticas"}

	assert.Equal(t, "7.0", TrimesterRowAverage(students[0], subjects, 2))
	assert.Equal(t, "10.0", TrimesterRowAverage(students[1], subjects, 2))
	assert.Equal(t, "-", TrimesterRowAverage(students[0], subjects, 1))
	assert.Equal(t, "-", TrimesterRowAverage(students[0], subjects, 4))

	assert.Equal(t, "9.0", TrimesterColumnAverage(students, "Español", 2))
	assert.Equal(t, "6.0", TrimesterColumnAverage(students, "Matemáticas", 2))
	assert.Equal(t, "-", TrimesterColumnAverage(students, "Artes", 2))
}

func TestSignalText(t *testing.T) {
	assert.Equal(t, "REGULAR", SignalText(SignalGreen))
	assert.Equal(t, "REQ. APOYO", SignalText(SignalRed))
	assert.Equal(t, "-", SignalText(SignalNone))
}

func TestBuildReports(t *testing.T) {
	d := DefaultData()
	d.AllowedPeriods = Periods
	d.GradesStructure[0].HiddenSubjects = []string{"Tecnología"}
	d, err := Apply(d,
		AddStudent(Student{ID: 1, Name: "Zoe", Grade: "1°", Group: "A"}),
		AddStudent(Student{ID: 2, Name: "Ana", Grade: "1°", Group: "A"}),
		AddStudent(Student{ID: 3, Name: "Beto", Grade: "1°", Group: "B"}),
		AddStudent(Student{ID: 4, Name: "Eva", Grade: "1°", Group: "A", Status: StatusGraduated}),
		SetScore(1, "Español", Inter1, "RED"),
		SetScore(1, "Español", Trim1, "8"),
		SetScore(1, "Español", Trim2, "9"),
		SetScore(1, "Español", Trim3, "10"),
		SetScore(2, "Español", Trim1, "6"),
	)
	require.NoError(t, err)

	rep, err := BuildStudentReport(d, 1)
	require.NoError(t, err)
	assert.Len(t, rep.Subjects, 7)
	assert.Equal(t, "Español", rep.Subjects[0].Subject)
	assert.Equal(t, [3]string{"REQ. APOYO", "-", "-"}, rep.Subjects[0].Signals)
	assert.Equal(t, "9.0", rep.Subjects[0].FinalAverage)
	assert.Equal(t, "9.0", rep.GeneralAverage)

	_, err = BuildStudentReport(d, 99)
	assert.Equal(t, ErrStudentNotFound, err)

	grp, err := BuildGroupReport(d, "1°", "A", 1)
	require.NoError(t, err)
	require.Len(t, grp.Rows, 2)
	assert.Equal(t, "Ana", grp.Rows[0].Name)
	assert.Equal(t, "6", grp.Rows[0].Scores["Español"])
	assert.Equal(t, "7.0", grp.ColumnAverages["Español"])
	assert.Equal(t, "-", grp.ColumnAverages["Artes"])
	assert.NotContains(t, grp.Subjects, "Tecnología")

	_, err = BuildGroupReport(d, "1°", "A", 0)
	assert.Equal(t, ErrInvalidPeriod, err)
	_, err = BuildGroupReport(d, "1°", "Z", 1)
	assert.Equal(t, ErrUnknownGroup, err)
	_, err = BuildGroupReport(d, "9°", "A", 1)
	assert.Equal(t, ErrUnknownGrade, err)
}

func TestParseDeadline(t *testing.T) {
	want := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2025-01-01T10:00", want: want},
		{in: " 2025-01-01T10:00:00 ", want: want},
		{in: "2025-01-01 10:00", want: want},
		{in: "2025-01-01", want: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{in: "", wantErr: true},
		{in: "mañana", wantErr: true},
		{in: "2025-13-01T10:00", wantErr: true},
		{in: "2025-01-01T10:00:00Z", wantErr: true},
		{in: "2025-01-01T10:00:00-06:00", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDeadline(tt.in)
			if tt.wantErr {
				assert.Equal(t, ErrInvalidDeadline, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestWallClock(t *testing.T) {
	loc, err := time.LoadLocation("America/Mexico_City")
	require.NoError(t, err)

	// 16:00 UTC is 10:00 in Mexico City (UTC-6, no DST since 2022)
	instant := time.Date(2025, 1, 1, 16, 0, 0, 0, time.UTC)
	got := WallClock(instant, loc)
	assert.Equal(t, time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), got)
}
