package user

import (
	"context"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrUsernameExists     = errors.New("a user with this username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username string, excludedUsers ...User) error
		CreateUser(ctx context.Context, user User) (User, error)
		QueryAllUsers(ctx context.Context) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		UpdateUser(ctx context.Context, user User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var NewID = func() string { return uuid.NewString() } // mockable

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, exclUsers...); err != nil {
		if err == ErrUsernameExists {
			return core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, nu.Username); err != nil {
		return User{}, err
	}
	usr := User{
		ID:           NewID(),
		Name:         nu.Name,
		Username:     nu.Username,
		Role:         nu.Role,
		Assignments:  nu.Assignments,
		WorkSchedule: nu.WorkSchedule,
	}
	usr.normalize()
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *Service) QueryAll(ctx context.Context) ([]User, error) {
	return svc.repo.QueryAllUsers(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsername(ctx, core.CleanString(uname, true /* lower */))
}

// Filter applies AND on the QueryFilter fields; Search is a case-insensitive match on Name or Username.
// Users are sorted by role priority then name.
func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]User, error) {
	filter.Clean()
	all, err := svc.repo.QueryAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(all))
	for _, u := range all {
		if filter.match(u) {
			users = append(users, u)
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		pi, pj := RolePriority(users[i].Role), RolePriority(users[j].Role)
		if pi != pj {
			return pi > pj
		}
		return users[i].Name < users[j].Name
	})
	return users, nil
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if err := uu.Validate(svc.validate, usr); err != nil {
		return User{}, err
	}
	if err := svc.checkUniqueness(ctx, uu.Username, usr); err != nil {
		return User{}, err
	}

	usr.Name = uu.Name
	usr.Username = uu.Username
	usr.Role = uu.Role
	usr.Assignments = uu.Assignments
	usr.WorkSchedule = uu.WorkSchedule
	usr.normalize()
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "hashing password")
		}
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// ResetPassword sets a new password on an existing user, enforcing the password policy.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetUserPassword) (User, error) {
	rp.Username = core.CleanString(rp.Username, true /* lower */)
	if err := rp.Validate(svc.validate); err != nil {
		return User{}, err
	}
	usr, err := svc.repo.GetUserByUsername(ctx, rp.Username)
	if err != nil {
		return User{}, err
	}
	if err := usr.SetPassword(rp.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdateUser(ctx, usr)
}

// Authenticate returns the user matching the credentials, or ErrInvalidCredentials.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsername(ctx, uname)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}
