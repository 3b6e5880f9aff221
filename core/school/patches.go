package school

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
)

// Patch is one state transition of the aggregate. A Patch receives its own deep copy
// of the aggregate and may mutate it freely.
type Patch func(data SchoolData) (SchoolData, error)

// mockable
var (
	NowFunc = time.Now
	NewID   = func() string { return uuid.NewString() }
)

// Clone returns a deep copy of `data`.
func Clone(data SchoolData) SchoolData {
	raw, err := json.Marshal(data)
	if err != nil {
		panic(errors.Wrap(err, "cloning school data"))
	}
	var out SchoolData
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(errors.Wrap(err, "cloning school data"))
	}
	return out
}

// Apply runs `patches` in order on a copy of `current`. `current` is never modified.
// The first failing patch aborts the whole application.
func Apply(current SchoolData, patches ...Patch) (SchoolData, error) {
	next := Clone(current)
	for _, patch := range patches {
		var err error
		if next, err = patch(next); err != nil {
			return current, err
		}
	}
	return next, nil
}

// Replace swaps the whole aggregate, repaired through the merge layer.
func Replace(data SchoolData) Patch {
	return func(SchoolData) (SchoolData, error) {
		return Reconcile(Partial(Clone(data)), DefaultData()), nil
	}
}

// Periods

// ClosePeriods removes `keys` from the allowed periods in one step.
func ClosePeriods(keys ...Period) Patch {
	return func(d SchoolData) (SchoolData, error) {
		closing := make(map[Period]bool, len(keys))
		for _, k := range keys {
			if !k.IsValid() {
				return d, ErrInvalidPeriod
			}
			closing[k] = true
		}
		allowed := make([]Period, 0, len(d.AllowedPeriods))
		for _, k := range d.AllowedPeriods {
			if !closing[k] {
				allowed = append(allowed, k)
			}
		}
		d.AllowedPeriods = allowed
		return d, nil
	}
}

// OpenPeriods adds `keys` to the allowed periods.
func OpenPeriods(keys ...Period) Patch {
	return func(d SchoolData) (SchoolData, error) {
		for _, k := range keys {
			if !k.IsValid() {
				return d, ErrInvalidPeriod
			}
			if !d.IsOpen(k) {
				d.AllowedPeriods = append(d.AllowedPeriods, k)
			}
		}
		return d, nil
	}
}

// SetDeadline sets the naive wall-clock deadline of period `key`.
func SetDeadline(key Period, deadline string) Patch {
	return func(d SchoolData) (SchoolData, error) {
		if !key.IsValid() {
			return d, ErrInvalidPeriod
		}
		if _, err := ParseDeadline(deadline); err != nil {
			return d, err
		}
		if d.PeriodDeadlines == nil {
			d.PeriodDeadlines = make(map[Period]string)
		}
		d.PeriodDeadlines[key] = deadline
		return d, nil
	}
}

func ClearDeadline(key Period) Patch {
	return func(d SchoolData) (SchoolData, error) {
		if !key.IsValid() {
			return d, ErrInvalidPeriod
		}
		delete(d.PeriodDeadlines, key)
		return d, nil
	}
}

// Students

func nextStudentID(d SchoolData) int {
	id := int(NowFunc().UnixMilli())
	for _, s := range d.StudentsData {
		if s.ID >= id {
			id = s.ID + 1
		}
	}
	return id
}

func checkPlacement(d SchoolData, grade, group string) error {
	gs, ok := d.Structure(grade)
	if !ok {
		return ErrUnknownGrade
	}
	if !gs.HasGroup(group) {
		return ErrUnknownGroup
	}
	return nil
}

// AddStudent appends a student with ungraded entries for every subject of their grade.
// A zero ID is assigned automatically.
func AddStudent(s Student) Patch {
	return func(d SchoolData) (SchoolData, error) {
		if err := checkPlacement(d, s.Grade, s.Group); err != nil {
			return d, err
		}
		if s.ID == 0 {
			s.ID = nextStudentID(d)
		} else if _, exists := d.Student(s.ID); exists {
			return d, ErrStudentExists
		}
		grades := EmptyGrades(d.GradesStructure, s.Grade)
		for subj, scores := range s.Grades {
			grades[subj] = scores
		}
		s.Grades = grades
		if s.Status == "" {
			s.Status = StatusActive
		}
		d.StudentsData = append(d.StudentsData, s)
		d.StudentsCount = len(d.StudentsData)
		return d, nil
	}
}

// UpdateStudent replaces the identity fields of a student, keeping their scores.
// Subjects of a new grade are added ungraded.
func UpdateStudent(s Student) Patch {
	return func(d SchoolData) (SchoolData, error) {
		for i, orig := range d.StudentsData {
			if orig.ID != s.ID {
				continue
			}
			if s.Status != StatusGraduated {
				if err := checkPlacement(d, s.Grade, s.Group); err != nil {
					return d, err
				}
			}
			grades := EmptyGrades(d.GradesStructure, s.Grade)
			for subj, scores := range orig.Grades {
				grades[subj] = scores
			}
			orig.Name = s.Name
			orig.Grade = s.Grade
			orig.Group = s.Group
			orig.Technology = s.Technology
			orig.Grades = grades
			if s.Status != "" {
				orig.Status = s.Status
			}
			d.StudentsData[i] = orig
			return d, nil
		}
		return d, ErrStudentNotFound
	}
}

func DeleteStudents(ids ...int) Patch {
	return func(d SchoolData) (SchoolData, error) {
		del := make(map[int]bool, len(ids))
		for _, id := range ids {
			del[id] = true
		}
		kept := make([]Student, 0, len(d.StudentsData))
		for _, s := range d.StudentsData {
			if !del[s.ID] {
				kept = append(kept, s)
			}
		}
		d.StudentsData = kept
		d.StudentsCount = len(kept)
		return d, nil
	}
}

// SetScore records a student's score for `subject` in `period`.
// The period must be open; closing a period never erases recorded scores.
func SetScore(studentID int, subject string, period Period, value string) Patch {
	return func(d SchoolData) (SchoolData, error) {
		if !period.IsValid() {
			return d, ErrInvalidPeriod
		}
		if !d.IsOpen(period) {
			return d, ErrPeriodClosed
		}
		for i, s := range d.StudentsData {
			if s.ID != studentID {
				continue
			}
			scores, ok := s.Grades[subject]
			if !ok {
				return d, ErrUnknownSubject
			}
			if err := scores.Set(period, value); err != nil {
				return d, err
			}
			s.Grades[subject] = scores
			d.StudentsData[i] = s
			return d, nil
		}
		return d, ErrStudentNotFound
	}
}

// PromoteStudents moves active students of `fromGrade` to `toGrade`, keeping their group.
// An empty `toGrade` marks them graduated.
func PromoteStudents(fromGrade, toGrade string) Patch {
	return func(d SchoolData) (SchoolData, error) {
		if toGrade != "" {
			if _, ok := d.Structure(toGrade); !ok {
				return d, ErrUnknownGrade
			}
		}
		for i, s := range d.StudentsData {
			if s.Grade != fromGrade || !s.IsActive() {
				continue
			}
			if toGrade == "" {
				s.Status = StatusGraduated
			} else {
				s.Grade = toGrade
				s.Grades = EmptyGrades(d.GradesStructure, toGrade)
			}
			d.StudentsData[i] = s
		}
		return d, nil
	}
}

// Logs

func stamp() string { return NowFunc().UTC().Format(time.RFC3339) }

func AddCitation(c Citation) Patch {
	return func(d SchoolData) (SchoolData, error) {
		c.ID = NewID()
		c.CreatedAt = stamp()
		d.Citations = append(d.Citations, c)
		return d, nil
	}
}

// ReplaceCitation fully replaces an existing citation, keeping its creation timestamp.
func ReplaceCitation(c Citation) Patch {
	return func(d SchoolData) (SchoolData, error) {
		for i, orig := range d.Citations {
			if orig.ID == c.ID {
				c.CreatedAt = orig.CreatedAt
				d.Citations[i] = c
				return d, nil
			}
		}
		return d, ErrRecordNotFound
	}
}

func DeleteCitation(id string) Patch {
	return func(d SchoolData) (SchoolData, error) {
		var found bool
		d.Citations, found = removeByID(d.Citations, id, func(c Citation) string { return c.ID })
		if !found {
			return d, ErrRecordNotFound
		}
		return d, nil
	}
}

func AddVisitLog(v VisitLog) Patch {
	return func(d SchoolData) (SchoolData, error) {
		v.ID = NewID()
		d.VisitLogs = append(d.VisitLogs, v)
		return d, nil
	}
}

func ReplaceVisitLog(v VisitLog) Patch {
	return func(d SchoolData) (SchoolData, error) {
		for i, orig := range d.VisitLogs {
			if orig.ID == v.ID {
				d.VisitLogs[i] = v
				return d, nil
			}
		}
		return d, ErrRecordNotFound
	}
}

func DeleteVisitLog(id string) Patch {
	return func(d SchoolData) (SchoolData, error) {
		var found bool
		d.VisitLogs, found = removeByID(d.VisitLogs, id, func(v VisitLog) string { return v.ID })
		if !found {
			return d, ErrRecordNotFound
		}
		return d, nil
	}
}

func AddMinuta(m Minuta) Patch {
	return func(d SchoolData) (SchoolData, error) {
		m.ID = NewID()
		d.Minutas = append(d.Minutas, m)
		return d, nil
	}
}

func ReplaceMinuta(m Minuta) Patch {
	return func(d SchoolData) (SchoolData, error) {
		for i, orig := range d.Minutas {
			if orig.ID == m.ID {
				d.Minutas[i] = m
				return d, nil
			}
		}
		return d, ErrRecordNotFound
	}
}

func DeleteMinuta(id string) Patch {
	return func(d SchoolData) (SchoolData, error) {
		var found bool
		d.Minutas, found = removeByID(d.Minutas, id, func(m Minuta) string { return m.ID })
		if !found {
			return d, ErrRecordNotFound
		}
		return d, nil
	}
}

// Schedules

func AddSchedule(e ScheduleEntry) Patch {
	return func(d SchoolData) (SchoolData, error) {
		if _, ok := d.User(e.TeacherID); !ok {
			return d, user.ErrNotFound
		}
		e.ID = NewID()
		if e.Type == "" {
			e.Type = ScheduleAcademic
		}
		d.Schedules = append(d.Schedules, e)
		return d, nil
	}
}

func DeleteSchedule(id string) Patch {
	return func(d SchoolData) (SchoolData, error) {
		var found bool
		d.Schedules, found = removeByID(d.Schedules, id, func(e ScheduleEntry) string { return e.ID })
		if !found {
			return d, ErrRecordNotFound
		}
		return d, nil
	}
}

// Users

// PutUser inserts or replaces a user. A subdirector's name is mirrored on the school header.
func PutUser(u user.User) Patch {
	return func(d SchoolData) (SchoolData, error) {
		replaced := false
		for i, orig := range d.Users {
			if orig.ID == u.ID {
				d.Users[i] = u
				replaced = true
				break
			}
		}
		if !replaced {
			d.Users = append(d.Users, u)
		}
		if u.Role == user.RoleSubdirector {
			d.Subdirector = u.Name
		}
		return d, nil
	}
}

// DeleteUsers removes users along with their schedule entries and sabana rows.
func DeleteUsers(ids ...string) Patch {
	return func(d SchoolData) (SchoolData, error) {
		del := make(map[string]bool, len(ids))
		for _, id := range ids {
			del[id] = true
		}
		users := make([]user.User, 0, len(d.Users))
		for _, u := range d.Users {
			if !del[u.ID] {
				users = append(users, u)
			}
		}
		d.Users = users

		schedules := make([]ScheduleEntry, 0, len(d.Schedules))
		for _, e := range d.Schedules {
			if !del[e.TeacherID] {
				schedules = append(schedules, e)
			}
		}
		d.Schedules = schedules

		keep := func(ids []string) []string {
			out := make([]string, 0, len(ids))
			for _, id := range ids {
				if !del[id] {
					out = append(out, id)
				}
			}
			return out
		}
		d.SabanaLayout = SabanaLayout{
			Academic:   keep(d.SabanaLayout.Academic),
			Technology: keep(d.SabanaLayout.Technology),
			Support:    keep(d.SabanaLayout.Support),
		}
		return d, nil
	}
}

// Settings

// Settings holds the editable header fields of the school.
type Settings struct {
	Name            string `json:"name" validate:"required,notblank"`
	Director        string `json:"director"`
	Subdirector     string `json:"subdirector"`
	SubdirectorName string `json:"subdirectorName"`
	Teachers        int    `json:"teachers" validate:"min=0"`
	Alcaldia        string `json:"alcaldia"`
	ZonaEscolar     string `json:"zonaEscolar"`
	Turno           string `json:"turno"`
}

func UpdateSettings(s Settings) Patch {
	return func(d SchoolData) (SchoolData, error) {
		d.Name = s.Name
		d.Director = s.Director
		d.Subdirector = s.Subdirector
		d.SubdirectorName = s.SubdirectorName
		d.Teachers = s.Teachers
		d.Alcaldia = s.Alcaldia
		d.ZonaEscolar = s.ZonaEscolar
		d.Turno = s.Turno
		return d, nil
	}
}

// SetStructure replaces the grade structure and technologies; students are completed
// with ungraded entries for subjects that were added.
func SetStructure(structure []GradeStructure, technologies []string) Patch {
	return func(d SchoolData) (SchoolData, error) {
		d.GradesStructure = normalizeStructure(structure)
		if technologies != nil {
			d.Technologies = copySlice(technologies)
		}
		d.StudentsData = normalizeStudents(d.StudentsData, d.GradesStructure)
		return d, nil
	}
}

func SetSabanaLayout(layout SabanaLayout) Patch {
	return func(d SchoolData) (SchoolData, error) {
		d.SabanaLayout = SabanaLayout{
			Academic:   copySlice(layout.Academic),
			Technology: copySlice(layout.Technology),
			Support:    copySlice(layout.Support),
		}
		return d, nil
	}
}

func removeByID[T any](items []T, id string, idOf func(T) string) ([]T, bool) {
	out := make([]T, 0, len(items))
	found := false
	for _, it := range items {
		if idOf(it) == id {
			found = true
			continue
		}
		out = append(out, it)
	}
	return out, found
}

// SortedStudents returns students ordered by grade, group, then name.
func SortedStudents(students []Student) []Student {
	out := copySlice(students)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Grade != out[j].Grade {
			return out[i].Grade < out[j].Grade
		}
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ParseStudentID parses a student id path parameter.
func ParseStudentID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, ErrStudentNotFound
	}
	return id, nil
}
