package school

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
)

// PartialSchoolData is a persisted document of any past schema version.
// A nil field was absent (or null) in the document.
type PartialSchoolData struct {
	SchemaVersion   *int              `json:"schemaVersion"`
	Name            *string           `json:"name"`
	Director        *string           `json:"director"`
	Subdirector     *string           `json:"subdirector"`
	SubdirectorName *string           `json:"subdirectorName"`
	Teachers        *int              `json:"teachers"`
	StudentsCount   *int              `json:"studentsCount"`
	GradesStructure []GradeStructure  `json:"gradesStructure"`
	Technologies    []string          `json:"technologies"`
	StudentsData    []Student         `json:"studentsData"`
	Users           []user.User       `json:"users"`
	AllowedPeriods  []Period          `json:"allowedPeriods"`
	PeriodDeadlines map[Period]string `json:"periodDeadlines"`
	Citations       []Citation        `json:"citations"`
	VisitLogs       []VisitLog        `json:"visitLogs"`
	Minutas         []Minuta          `json:"minutas"`
	Schedules       []ScheduleEntry   `json:"schedules"`
	SabanaLayout    *SabanaLayout     `json:"sabanaLayout"`
	Alcaldia        *string           `json:"alcaldia"`
	ZonaEscolar     *string           `json:"zonaEscolar"`
	Turno           *string           `json:"turno"`
}

// Decode reads a persisted document and reconciles it against `defaults`.
// Empty input yields `defaults`; malformed input yields `defaults` and the parse error.
func Decode(raw []byte, defaults SchoolData) (SchoolData, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Reconcile(PartialSchoolData{}, defaults), nil
	}
	var partial PartialSchoolData
	if err := json.Unmarshal(raw, &partial); err != nil {
		return Reconcile(PartialSchoolData{}, defaults), errors.Wrap(err, "decoding school data")
	}
	return Reconcile(partial, defaults), nil
}

// Encode serializes the aggregate as persisted locally and remotely.
func Encode(data SchoolData) ([]byte, error) {
	raw, err := json.Marshal(data)
	return raw, errors.Wrap(err, "encoding school data")
}

// Partial returns `data` as a document with every field present.
func Partial(data SchoolData) PartialSchoolData {
	layout := data.SabanaLayout
	return PartialSchoolData{
		SchemaVersion:   &data.SchemaVersion,
		Name:            &data.Name,
		Director:        &data.Director,
		Subdirector:     &data.Subdirector,
		SubdirectorName: &data.SubdirectorName,
		Teachers:        &data.Teachers,
		StudentsCount:   &data.StudentsCount,
		GradesStructure: data.GradesStructure,
		Technologies:    data.Technologies,
		StudentsData:    data.StudentsData,
		Users:           data.Users,
		AllowedPeriods:  data.AllowedPeriods,
		PeriodDeadlines: data.PeriodDeadlines,
		Citations:       data.Citations,
		VisitLogs:       data.VisitLogs,
		Minutas:         data.Minutas,
		Schedules:       data.Schedules,
		SabanaLayout:    &layout,
		Alcaldia:        &data.Alcaldia,
		ZonaEscolar:     &data.ZonaEscolar,
		Turno:           &data.Turno,
	}
}

// Reconcile fills every field missing from `incoming` with its value in `defaults`.
//
// Scalars and the grade structure are taken from `incoming` when present.
// Seeded and log collections (students, users, sabana layout, citations, visit logs, minutas,
// schedules) are taken from `incoming` only when non-empty.
// The period gate (allowed periods, deadlines) is taken from `incoming` whenever present,
// so a document whose periods were all closed stays closed.
// Students get an ungraded entry for every subject of their grade.
//
// Reconcile does not modify its inputs and Reconcile(Partial(Reconcile(x, d)), d) == Reconcile(x, d).
func Reconcile(incoming PartialSchoolData, defaults SchoolData) SchoolData {
	out := SchoolData{
		SchemaVersion:   CurrentSchemaVersion,
		Name:            stringOr(incoming.Name, defaults.Name),
		Director:        stringOr(incoming.Director, defaults.Director),
		Subdirector:     stringOr(incoming.Subdirector, defaults.Subdirector),
		SubdirectorName: stringOr(incoming.SubdirectorName, defaults.SubdirectorName),
		Teachers:        intOr(incoming.Teachers, defaults.Teachers),
		StudentsCount:   intOr(incoming.StudentsCount, defaults.StudentsCount),
		Alcaldia:        stringOr(incoming.Alcaldia, defaults.Alcaldia),
		ZonaEscolar:     stringOr(incoming.ZonaEscolar, defaults.ZonaEscolar),
		Turno:           stringOr(incoming.Turno, defaults.Turno),
	}

	out.GradesStructure = defaults.GradesStructure
	if incoming.GradesStructure != nil {
		out.GradesStructure = incoming.GradesStructure
	}
	out.GradesStructure = normalizeStructure(out.GradesStructure)

	out.Technologies = defaults.Technologies
	if incoming.Technologies != nil {
		out.Technologies = incoming.Technologies
	}
	out.Technologies = append(make([]string, 0, len(out.Technologies)), out.Technologies...)

	out.StudentsData = normalizeStudents(nonEmpty(incoming.StudentsData, defaults.StudentsData), out.GradesStructure)
	out.Users = copySlice(nonEmpty(incoming.Users, defaults.Users))
	out.Citations = copySlice(nonEmpty(incoming.Citations, defaults.Citations))
	out.VisitLogs = copySlice(nonEmpty(incoming.VisitLogs, defaults.VisitLogs))
	out.Minutas = copySlice(nonEmpty(incoming.Minutas, defaults.Minutas))
	out.Schedules = copySlice(nonEmpty(incoming.Schedules, defaults.Schedules))

	out.SabanaLayout = defaults.SabanaLayout
	if incoming.SabanaLayout != nil && !incoming.SabanaLayout.IsEmpty() {
		out.SabanaLayout = *incoming.SabanaLayout
	}
	out.SabanaLayout = SabanaLayout{
		Academic:   copySlice(out.SabanaLayout.Academic),
		Technology: copySlice(out.SabanaLayout.Technology),
		Support:    copySlice(out.SabanaLayout.Support),
	}

	allowed := defaults.AllowedPeriods
	if incoming.AllowedPeriods != nil {
		allowed = incoming.AllowedPeriods
	}
	out.AllowedPeriods = normalizePeriods(allowed)

	deadlines := defaults.PeriodDeadlines
	if incoming.PeriodDeadlines != nil {
		deadlines = incoming.PeriodDeadlines
	}
	out.PeriodDeadlines = make(map[Period]string, len(deadlines))
	for k, v := range deadlines {
		if k.IsValid() {
			out.PeriodDeadlines[k] = v
		}
	}

	return out
}

func stringOr(v *string, def string) string {
	if v != nil {
		return *v
	}
	return def
}

func intOr(v *int, def int) int {
	if v != nil {
		return *v
	}
	return def
}

func nonEmpty[T any](v, def []T) []T {
	if len(v) > 0 {
		return v
	}
	return def
}

// copySlice returns a non-nil copy of s.
func copySlice[T any](s []T) []T {
	return append(make([]T, 0, len(s)), s...)
}

// normalizePeriods drops unknown and duplicate keys, keeping order.
func normalizePeriods(periods []Period) []Period {
	out := make([]Period, 0, len(periods))
	seen := make(map[Period]bool, len(periods))
	for _, p := range periods {
		if p.IsValid() && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

func normalizeStructure(structure []GradeStructure) []GradeStructure {
	out := make([]GradeStructure, 0, len(structure))
	for _, gs := range structure {
		out = append(out, GradeStructure{
			Grade:          gs.Grade,
			Groups:         copySlice(gs.Groups),
			Subjects:       copySlice(gs.Subjects),
			HiddenSubjects: copySlice(gs.HiddenSubjects),
		})
	}
	return out
}

// normalizeStudents completes each student's grades with the subjects of their grade level.
func normalizeStudents(students []Student, structure []GradeStructure) []Student {
	out := make([]Student, 0, len(students))
	for _, s := range students {
		grades := EmptyGrades(structure, s.Grade)
		for subj, scores := range s.Grades {
			grades[subj] = scores
		}
		s.Grades = grades
		if s.Status == "" {
			s.Status = StatusActive
		}
		out = append(out, s)
	}
	return out
}
