package school

import (
	"strconv"
	"strings"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
)

// Period is one of the six grading checkpoints of a school cycle.
type Period string

const (
	Inter1 Period = "inter_1"
	Inter2 Period = "inter_2"
	Inter3 Period = "inter_3"
	Trim1  Period = "trim_1"
	Trim2  Period = "trim_2"
	Trim3  Period = "trim_3"
)

// Periods lists every period key, in cycle order.
var Periods = []Period{Inter1, Trim1, Inter2, Trim2, Inter3, Trim3}

func (p Period) IsValid() bool {
	for _, k := range Periods {
		if k == p {
			return true
		}
	}
	return false
}

// IsInter reports whether p is an advance (traffic-light) checkpoint.
func (p Period) IsInter() bool { return strings.HasPrefix(string(p), "inter_") }

func (p Period) Label() string {
	n := string(p)[strings.LastIndex(string(p), "_")+1:]
	if p.IsInter() {
		return "Intermedio " + n
	}
	return "Trimestre " + n
}

// Signal is the traffic-light status of an advance checkpoint; empty means no signal yet.
type Signal string

const (
	SignalNone  Signal = ""
	SignalGreen Signal = "GREEN"
	SignalRed   Signal = "RED"
)

func (s Signal) IsValid() bool {
	return s == SignalNone || s == SignalGreen || s == SignalRed
}

// GradeScores holds a subject's scores for the three periods.
// Trimester scores are numeric text, empty when not recorded yet.
type GradeScores struct {
	Inter1 Signal `json:"inter_1"`
	Trim1  string `json:"trim_1"`
	Inter2 Signal `json:"inter_2"`
	Trim2  string `json:"trim_2"`
	Inter3 Signal `json:"inter_3"`
	Trim3  string `json:"trim_3"`
}

// Get returns the raw value recorded for period p.
func (gs GradeScores) Get(p Period) string {
	switch p {
	case Inter1:
		return string(gs.Inter1)
	case Inter2:
		return string(gs.Inter2)
	case Inter3:
		return string(gs.Inter3)
	case Trim1:
		return gs.Trim1
	case Trim2:
		return gs.Trim2
	case Trim3:
		return gs.Trim3
	}
	return ""
}

// Set records value for period p.
func (gs *GradeScores) Set(p Period, value string) error {
	value = strings.TrimSpace(value)
	if p.IsInter() {
		if !Signal(value).IsValid() {
			return ErrInvalidSignal
		}
	} else if value != "" {
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return ErrInvalidScore
		}
	}

	switch p {
	case Inter1:
		gs.Inter1 = Signal(value)
	case Inter2:
		gs.Inter2 = Signal(value)
	case Inter3:
		gs.Inter3 = Signal(value)
	case Trim1:
		gs.Trim1 = value
	case Trim2:
		gs.Trim2 = value
	case Trim3:
		gs.Trim3 = value
	default:
		return ErrInvalidPeriod
	}
	return nil
}

const (
	StatusActive    = "active"
	StatusGraduated = "graduated"
)

type Student struct {
	ID         int                    `json:"id"`
	Name       string                 `json:"name"`
	Grade      string                 `json:"grade"`
	Group      string                 `json:"group"`
	Technology string                 `json:"technology,omitempty"`
	Grades     map[string]GradeScores `json:"grades"` // {subject: scores}
	Status     string                 `json:"status,omitempty"`
}

func (s Student) IsActive() bool { return s.Status != StatusGraduated }

type GradeStructure struct {
	Grade          string   `json:"grade"`
	Groups         []string `json:"groups"`
	Subjects       []string `json:"subjects"`
	HiddenSubjects []string `json:"hiddenSubjects"`
}

func (gs GradeStructure) IsHidden(subject string) bool {
	for _, s := range gs.HiddenSubjects {
		if s == subject {
			return true
		}
	}
	return false
}

func (gs GradeStructure) HasGroup(group string) bool {
	for _, g := range gs.Groups {
		if g == group {
			return true
		}
	}
	return false
}

func (gs GradeStructure) HasSubject(subject string) bool {
	for _, s := range gs.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}

type Citation struct {
	ID          string `json:"id"`
	StudentID   *int   `json:"studentId"`
	StudentName string `json:"studentName" validate:"required,notblank"`
	Group       string `json:"group" validate:"required"` // e.g. "1° A"
	Date        string `json:"date" validate:"required"`
	Time        string `json:"time"`
	Reason      string `json:"reason" validate:"required"`
	CreatedAt   string `json:"createdAt"`
	TeacherID   string `json:"teacherId,omitempty"`
	TeacherName string `json:"teacherName,omitempty"`
}

// VisitLog types
const (
	LogAbsence  = "inasistencia"
	LogConduct  = "conducta"
	LogAccident = "accidente"
)

type VisitLog struct {
	ID          string `json:"id"`
	LogType     string `json:"logType" validate:"required,oneof=inasistencia conducta accidente"`
	StudentID   *int   `json:"studentId"`
	StudentName string `json:"studentName" validate:"required,notblank"`
	Grade       string `json:"grade"`
	Group       string `json:"group"`
	ParentName  string `json:"parentName"`
	Date        string `json:"date" validate:"required"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`

	Location         string `json:"location"`
	WhoReported      string `json:"whoReported"`
	InvolvedStudents string `json:"involvedStudents"`
	Narrative        string `json:"narrative"`

	InformedDirector    bool `json:"informedDirector"`
	InformedSubdirector bool `json:"informedSubdirector"`
	InformedParent      bool `json:"informedParent"`
	InformedUdeei       bool `json:"informedUdeei"`

	// inasistencia
	TeacherActions    string `json:"teacherActions"`
	FormativeAction   string `json:"formativeAction"`
	GeneratedCitation bool   `json:"generatedCitation"`
	UdeeiActions      string `json:"udeeiActions"`
	TechnicalMeasure  string `json:"technicalMeasure"`

	// conducta & accidente
	PedagogicalMeasure      string `json:"pedagogicalMeasure"`
	Conciliation            bool   `json:"conciliation"`
	Canalization            bool   `json:"canalization"`
	CanalizationInstitution string `json:"canalizationInstitution"`
	BullyingProtocol        bool   `json:"bullyingProtocol"`
	BullyingProtocolReason  string `json:"bullyingProtocolReason"`
	VaSeguro                bool   `json:"vaSeguro"`
	VaSeguroObservation     string `json:"vaSeguroObservation"`

	AgreementsParent  string `json:"agreementsParent"`
	AgreementsStudent string `json:"agreementsStudent"`
	AttentionToParent string `json:"attentionToParent"`

	ConformityStaffID string `json:"conformityStaffId,omitempty"`
}

type Minuta struct {
	ID              string `json:"id"`
	StudentID       *int   `json:"studentId"`
	StudentName     string `json:"studentName" validate:"required,notblank"`
	Grade           string `json:"grade"`
	Group           string `json:"group"`
	ParentName      string `json:"parentName"`
	Date            string `json:"date" validate:"required"`
	StartTime       string `json:"startTime"`
	Subject         string `json:"subject" validate:"required"`
	Description     string `json:"description"`
	PreviousActions string `json:"previousActions"`
	Agreements      string `json:"agreements"`
	AttendedBy      string `json:"attendedBy,omitempty"`
}

// Schedule entry types
const (
	ScheduleAcademic   = "academic"
	ScheduleTechnology = "technology"
	ScheduleSupport    = "support"
)

var (
	WeekDays     = []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes"}
	ClassPeriods = []int{1, 2, 3, 4, 5, 6, 7}
)

type ScheduleEntry struct {
	ID         string `json:"id"`
	TeacherID  string `json:"teacherId" validate:"required"`
	Day        string `json:"day" validate:"required,oneof=Lunes Martes Miércoles Jueves Viernes"`
	Period     int    `json:"period" validate:"min=1,max=7"`
	GradeGroup string `json:"gradeGroup" validate:"required"` // "1A" academic, "11" technology
	Type       string `json:"type,omitempty" validate:"omitempty,oneof=academic technology support"`
}

// SabanaLayout is the persisted row order of the staff sheet, as user ids.
type SabanaLayout struct {
	Academic   []string `json:"academic"`
	Technology []string `json:"technology"`
	Support    []string `json:"support"`
}

func (l SabanaLayout) IsEmpty() bool {
	return len(l.Academic) == 0 && len(l.Technology) == 0 && len(l.Support) == 0
}

// SchoolData is the aggregate holding all the persisted school state.
type SchoolData struct {
	SchemaVersion   int               `json:"schemaVersion"`
	Name            string            `json:"name"`
	Director        string            `json:"director"`
	Subdirector     string            `json:"subdirector"`
	SubdirectorName string            `json:"subdirectorName,omitempty"`
	Teachers        int               `json:"teachers"`
	StudentsCount   int               `json:"studentsCount"`
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
	SabanaLayout    SabanaLayout      `json:"sabanaLayout"`
	Alcaldia        string            `json:"alcaldia"`
	ZonaEscolar     string            `json:"zonaEscolar"`
	Turno           string            `json:"turno"`
}

// IsOpen reports whether period p is open for data entry.
func (d SchoolData) IsOpen(p Period) bool {
	for _, k := range d.AllowedPeriods {
		if k == p {
			return true
		}
	}
	return false
}

// Structure returns the configuration of `grade`.
func (d SchoolData) Structure(grade string) (GradeStructure, bool) {
	for _, gs := range d.GradesStructure {
		if gs.Grade == grade {
			return gs, true
		}
	}
	return GradeStructure{}, false
}

func (d SchoolData) Student(id int) (Student, bool) {
	for _, s := range d.StudentsData {
		if s.ID == id {
			return s, true
		}
	}
	return Student{}, false
}

func (d SchoolData) User(id string) (user.User, bool) {
	for _, u := range d.Users {
		if u.ID == id {
			return u, true
		}
	}
	return user.User{}, false
}

// Public returns a copy of the aggregate without user credentials.
func (d SchoolData) Public() SchoolData {
	users := make([]user.User, 0, len(d.Users))
	for _, u := range d.Users {
		users = append(users, u.Public())
	}
	d.Users = users
	return d
}
