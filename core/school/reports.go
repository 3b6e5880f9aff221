package school

import (
	"sort"
	"strconv"
	"strings"
)

const noAverage = "-"

func parseScore(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v, err == nil
}

func formatAverage(sum float64, count int) string {
	if count == 0 {
		return noAverage
	}
	return strconv.FormatFloat(sum/float64(count), 'f', 1, 64)
}

// FinalAverage is the mean of the three trimester scores, to one decimal.
// It is empty unless all three are recorded.
func FinalAverage(t1, t2, t3 string) string {
	v1, ok1 := parseScore(t1)
	v2, ok2 := parseScore(t2)
	v3, ok3 := parseScore(t3)
	if !(ok1 && ok2 && ok3) {
		return ""
	}
	return strconv.FormatFloat((v1+v2+v3)/3, 'f', 1, 64)
}

// GeneralAverage is the mean of the student's final averages, skipping hidden
// subjects and subjects without a final average. "-" when there is none.
func GeneralAverage(s Student, gs GradeStructure) string {
	var (
		sum   float64
		count int
	)
	for subj, scores := range s.Grades {
		if gs.IsHidden(subj) {
			continue
		}
		if v, ok := parseScore(FinalAverage(scores.Trim1, scores.Trim2, scores.Trim3)); ok {
			sum += v
			count++
		}
	}
	return formatAverage(sum, count)
}

func trimesterPeriod(trimester int) (Period, error) {
	switch trimester {
	case 1:
		return Trim1, nil
	case 2:
		return Trim2, nil
	case 3:
		return Trim3, nil
	}
	return "", ErrInvalidPeriod
}

// TrimesterRowAverage is a student's mean score over `subjects` for one trimester.
func TrimesterRowAverage(s Student, subjects []string, trimester int) string {
	p, err := trimesterPeriod(trimester)
	if err != nil {
		return noAverage
	}
	var (
		sum   float64
		count int
	)
	for _, subj := range subjects {
		if v, ok := parseScore(s.Grades[subj].Get(p)); ok {
			sum += v
			count++
		}
	}
	return formatAverage(sum, count)
}

// TrimesterColumnAverage is the mean score of `subject` over `students` for one trimester.
func TrimesterColumnAverage(students []Student, subject string, trimester int) string {
	p, err := trimesterPeriod(trimester)
	if err != nil {
		return noAverage
	}
	var (
		sum   float64
		count int
	)
	for _, s := range students {
		if v, ok := parseScore(s.Grades[subject].Get(p)); ok {
			sum += v
			count++
		}
	}
	return formatAverage(sum, count)
}

// SignalText is the printed label of a traffic-light status.
func SignalText(s Signal) string {
	switch s {
	case SignalGreen:
		return "REGULAR"
	case SignalRed:
		return "REQ. APOYO"
	}
	return noAverage
}

// visibleSubjects returns the subjects of `gs` that appear on reports.
func visibleSubjects(gs GradeStructure) []string {
	out := make([]string, 0, len(gs.Subjects))
	for _, s := range gs.Subjects {
		if !gs.IsHidden(s) {
			out = append(out, s)
		}
	}
	return out
}

type (
	SubjectReport struct {
		Subject      string      `json:"subject"`
		Scores       GradeScores `json:"scores"`
		Signals      [3]string   `json:"signals"`
		FinalAverage string      `json:"finalAverage"`
	}

	// StudentReport is the data of a student's report card.
	StudentReport struct {
		School         string          `json:"school"`
		Student        Student         `json:"student"`
		Subjects       []SubjectReport `json:"subjects"`
		GeneralAverage string          `json:"generalAverage"`
	}

	GroupRow struct {
		StudentID int               `json:"studentId"`
		Name      string            `json:"name"`
		Scores    map[string]string `json:"scores"`
		Average   string            `json:"average"`
	}

	// GroupReport is the per-trimester summary sheet of a group.
	GroupReport struct {
		Grade          string            `json:"grade"`
		Group          string            `json:"group"`
		Trimester      int               `json:"trimester"`
		Subjects       []string          `json:"subjects"`
		Rows           []GroupRow        `json:"rows"`
		ColumnAverages map[string]string `json:"columnAverages"`
	}
)

// BuildStudentReport builds the report card of student `id`.
func BuildStudentReport(d SchoolData, id int) (StudentReport, error) {
	s, ok := d.Student(id)
	if !ok {
		return StudentReport{}, ErrStudentNotFound
	}
	gs, _ := d.Structure(s.Grade)
	rep := StudentReport{School: d.Name, Student: s, GeneralAverage: GeneralAverage(s, gs)}
	for _, subj := range visibleSubjects(gs) {
		scores := s.Grades[subj]
		rep.Subjects = append(rep.Subjects, SubjectReport{
			Subject:      subj,
			Scores:       scores,
			Signals:      [3]string{SignalText(scores.Inter1), SignalText(scores.Inter2), SignalText(scores.Inter3)},
			FinalAverage: FinalAverage(scores.Trim1, scores.Trim2, scores.Trim3),
		})
	}
	return rep, nil
}

// BuildGroupReport builds the trimester summary of the active students of grade/group.
func BuildGroupReport(d SchoolData, grade, group string, trimester int) (GroupReport, error) {
	p, err := trimesterPeriod(trimester)
	if err != nil {
		return GroupReport{}, err
	}
	gs, ok := d.Structure(grade)
	if !ok {
		return GroupReport{}, ErrUnknownGrade
	}
	if !gs.HasGroup(group) {
		return GroupReport{}, ErrUnknownGroup
	}

	students := make([]Student, 0)
	for _, s := range d.StudentsData {
		if s.Grade == grade && s.Group == group && s.IsActive() {
			students = append(students, s)
		}
	}
	sort.SliceStable(students, func(i, j int) bool { return students[i].Name < students[j].Name })

	subjects := visibleSubjects(gs)
	rep := GroupReport{
		Grade:          grade,
		Group:          group,
		Trimester:      trimester,
		Subjects:       subjects,
		Rows:           make([]GroupRow, 0, len(students)),
		ColumnAverages: make(map[string]string, len(subjects)),
	}
	for _, s := range students {
		row := GroupRow{StudentID: s.ID, Name: s.Name, Scores: make(map[string]string, len(subjects))}
		for _, subj := range subjects {
			row.Scores[subj] = s.Grades[subj].Get(p)
		}
		row.Average = TrimesterRowAverage(s, subjects, trimester)
		rep.Rows = append(rep.Rows, row)
	}
	for _, subj := range subjects {
		rep.ColumnAverages[subj] = TrimesterColumnAverage(students, subj, trimester)
	}
	return rep, nil
}
