package user

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
)

// Roles
const (
	RoleAdmin          = "admin"
	RoleSubdirector    = "subdirector"
	RoleAdministrative = "administrative"
	RoleRedEscolar     = "red_escolar"
	RoleLaboratorista  = "laboratorista"
	RoleApoyo          = "apoyo"
	RoleTeacher        = "teacher"
)

var (
	// ManagerRoles may manage users, periods and the school settings.
	ManagerRoles = []string{RoleAdmin, RoleSubdirector}
	// StaffRoles carry a weekly work schedule instead of subject assignments.
	StaffRoles = []string{RoleAdministrative, RoleRedEscolar, RoleLaboratorista, RoleApoyo}
	AllRoles   = getAllRoles()

	rolePriorities = map[string]int{
		RoleAdmin:          30,
		RoleSubdirector:    29,
		RoleAdministrative: 20,
		RoleRedEscolar:     15,
		RoleLaboratorista:  14,
		RoleApoyo:          13,
		RoleTeacher:        10,
	}

	Roles = []Role{
		{Name: "Administrador", Value: RoleAdmin},
		{Name: "Subdirector de Gestión", Value: RoleSubdirector},
		{Name: "Personal Administrativo", Value: RoleAdministrative},
		{Name: "Red Escolar", Value: RoleRedEscolar},
		{Name: "Ayudante de Laboratorio", Value: RoleLaboratorista},
		{Name: "Apoyo Educativo", Value: RoleApoyo},
		{Name: "Docente", Value: RoleTeacher},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 7)
	all = append(all, ManagerRoles...)
	all = append(all, StaffRoles...)
	all = append(all, RoleTeacher)
	sort.Strings(all)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func IsValidRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

func isOneOf(role string, roles []string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Assignment is a subject a teacher teaches to a grade/group.
type Assignment struct {
	Grade      string `json:"grade" validate:"required"`
	Group      string `json:"group" validate:"required"`
	Subject    string `json:"subject" validate:"required"`
	Technology string `json:"technology,omitempty"`
}

type User struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Username     string            `json:"username"`
	PasswordHash string            `json:"passwordHash,omitempty"`
	Role         string            `json:"role"`
	Assignments  []Assignment      `json:"assignments,omitempty"`
	WorkSchedule map[string]string `json:"workSchedule,omitempty"` // {day: "14:00-19:00"}

	// LegacyPassword holds a cleartext password found in documents written before hashing.
	// It is hashed into PasswordHash on load and never written back.
	LegacyPassword string `json:"password,omitempty"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.LegacyPassword = ""
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	if u.PasswordHash == "" {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(pwd))
}

// UpgradeLegacyPassword hashes a cleartext legacy password, if any.
// It reports whether the user was modified.
func (u *User) UpgradeLegacyPassword() (bool, error) {
	if u.LegacyPassword == "" {
		return false, nil
	}
	if err := u.SetPassword(u.LegacyPassword); err != nil {
		return false, err
	}
	return true, nil
}

func (u User) IsManager() bool { return isOneOf(u.Role, ManagerRoles) }
func (u User) IsStaff() bool   { return isOneOf(u.Role, StaffRoles) }
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }

// Teaches reports whether the user is assigned `subject` in grade/group.
func (u User) Teaches(grade, group, subject string) bool {
	for _, a := range u.Assignments {
		if a.Grade == grade && a.Group == group && a.Subject == subject {
			return true
		}
	}
	return false
}

// Public returns a copy of the user without credentials.
func (u User) Public() User {
	u.PasswordHash = ""
	u.LegacyPassword = ""
	return u
}

// normalize keeps assignments for teachers and work schedules for staff only.
func (u *User) normalize() {
	if !u.IsTeacher() {
		u.Assignments = nil
	}
	if !u.IsStaff() {
		u.WorkSchedule = nil
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string            `json:"name" validate:"required,notblank"`
	Username        string            `json:"username" validate:"required,min=3,alphanum_"`
	Password        string            `json:"password" validate:"required"`
	PasswordConfirm string            `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Role            string            `json:"role" validate:"required,validrole"`
	Assignments     []Assignment      `json:"assignments" validate:"omitempty,dive"`
	WorkSchedule    map[string]string `json:"workSchedule"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string            `json:"name"`
	Username        string            `json:"username" validate:"omitempty,min=3,alphanum_"`
	Role            string            `json:"role" validate:"omitempty,validrole"`
	Assignments     []Assignment      `json:"assignments" validate:"omitempty,dive"`
	WorkSchedule    map[string]string `json:"workSchedule"`
	Password        string            `json:"password" validate:"omitempty"`
	PasswordConfirm string            `json:"passwordConfirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(validate *validator.Validate, origUsr User) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}
	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}
	if uu.Role == "" {
		uu.Role = origUsr.Role
	}
	return validate.Struct(uu)
}

type ResetUserPassword struct {
	Username        string `json:"username" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search string   `query:"search"`
	Roles  []string `query:"role"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && len(qf.Roles) == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
}

func (qf QueryFilter) match(u User) bool {
	if len(qf.Roles) > 0 && !isOneOf(u.Role, qf.Roles) {
		return false
	}
	if qf.Search != "" &&
		!strings.Contains(strings.ToLower(u.Name), qf.Search) &&
		!strings.Contains(strings.ToLower(u.Username), qf.Search) {
		return false
	}
	return true
}
