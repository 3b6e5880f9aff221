package school

import "github.com/pkg/errors"

var (
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrInvalidSignal   = errors.New("signal must be one of GREEN, RED or empty")
	ErrInvalidScore    = errors.New("score must be numeric")
	ErrInvalidDeadline = errors.New("invalid deadline")
	ErrPeriodClosed    = errors.New("period is closed for data entry")
	ErrUnknownGrade    = errors.New("unknown grade")
	ErrUnknownGroup    = errors.New("unknown group")
	ErrUnknownSubject  = errors.New("unknown subject")
	ErrStudentNotFound = errors.New("student not found")
	ErrRecordNotFound  = errors.New("record not found")
	ErrStudentExists   = errors.New("a student with this id already exists")
	ErrNoRemoteConfig  = errors.New("remote store is not configured")
)
