package school

import "github.com/raulpleon95-ctrl/SECUNDARIA/core/user"

// CurrentSchemaVersion is stamped on every decoded aggregate.
const CurrentSchemaVersion = 2

var defaultGroups = []string{"A", "B", "C", "D"}

func gradeSubjects(science string) []string {
	return []string{"Español", "Matemáticas", science, "Inglés", "Formación Cívica y Ética", "Artes", "Educación Física", "Tecnología"}
}

// DefaultGradesStructure returns the official three-grade structure.
func DefaultGradesStructure() []GradeStructure {
	return []GradeStructure{
		{Grade: "1°", Groups: append([]string(nil), defaultGroups...), Subjects: gradeSubjects("Biología"), HiddenSubjects: []string{}},
		{Grade: "2°", Groups: append([]string(nil), defaultGroups...), Subjects: gradeSubjects("Física"), HiddenSubjects: []string{}},
		{Grade: "3°", Groups: append([]string(nil), defaultGroups...), Subjects: gradeSubjects("Química"), HiddenSubjects: []string{}},
	}
}

// DefaultTechnologies lists the technology workshops offered on first run.
func DefaultTechnologies() []string {
	return []string{"Cocina", "Circuitos eléctricos", "Electrónica", "Diseño arquitectónico", "Industria del vestido"}
}

// DefaultUsers returns the seed accounts. They carry no credentials:
// an operator sets them with `admin resetpassword`.
func DefaultUsers() []user.User {
	return []user.User{
		{ID: "admin", Name: "Director Gerardo Durán", Username: "director", Role: user.RoleAdmin},
		{ID: "sub1", Name: "Subdirector General", Username: "subdirector", Role: user.RoleSubdirector},
		{
			ID:       "t1",
			Name:     "Prof. Juan Pérez (Matemáticas)",
			Username: "profe",
			Role:     user.RoleTeacher,
			Assignments: []user.Assignment{
				{Grade: "1°", Group: "A", Subject: "Matemáticas"},
				{Grade: "1°", Group: "B", Subject: "Matemáticas"},
				{Grade: "2°", Group: "A", Subject: "Matemáticas"},
			},
		},
	}
}

// DefaultData builds the first-run aggregate. Every call returns a fresh value.
func DefaultData() SchoolData {
	return SchoolData{
		SchemaVersion:   CurrentSchemaVersion,
		Name:            "Escuela Secundaria Diurna No. 27 TV. “Alfredo E Uruchurtu”",
		Director:        "Gerardo Durán Diaz",
		Subdirector:     "Nombre del Subdirector(a)",
		Teachers:        25,
		StudentsCount:   0,
		GradesStructure: DefaultGradesStructure(),
		Technologies:    DefaultTechnologies(),
		StudentsData:    []Student{},
		Users:           DefaultUsers(),
		AllowedPeriods:  []Period{Inter1},
		PeriodDeadlines: map[Period]string{},
		Citations:       []Citation{},
		VisitLogs:       []VisitLog{},
		Minutas:         []Minuta{},
		Schedules:       []ScheduleEntry{},
		SabanaLayout: SabanaLayout{
			Academic:   []string{"t1"},
			Technology: []string{},
			Support:    []string{},
		},
		Alcaldia:    "LA MAGDALENA CONTRERAS",
		ZonaEscolar: "069",
		Turno:       "VESPERTINO",
	}
}

// EmptyGrades returns an ungraded entry for every subject of `grade`.
func EmptyGrades(structure []GradeStructure, grade string) map[string]GradeScores {
	grades := make(map[string]GradeScores)
	for _, gs := range structure {
		if gs.Grade == grade {
			for _, subj := range gs.Subjects {
				grades[subj] = GradeScores{}
			}
		}
	}
	return grades
}
