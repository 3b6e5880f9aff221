package school

import (
	"context"
	"strings"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
)

// userRepository stores users inside the aggregate.
type userRepository struct {
	svc *Service
}

var _ user.Repository = (*userRepository)(nil)

// UserRepository returns a user.Repository backed by the aggregate of `svc`.
func UserRepository(svc *Service) user.Repository {
	return &userRepository{svc: svc}
}

func (r *userRepository) CheckUsernameUniqueness(_ context.Context, username string, excludedUsers ...user.User) error {
	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}
	for _, u := range r.svc.Current().Users {
		if !excluded[u.ID] && strings.EqualFold(u.Username, username) {
			return user.ErrUsernameExists
		}
	}
	return nil
}

func (r *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if _, err := r.svc.Dispatch(ctx, PutUser(usr)); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (r *userRepository) QueryAllUsers(_ context.Context) ([]user.User, error) {
	return r.svc.Current().Users, nil
}

func (r *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	if usr, ok := r.svc.Current().User(id); ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (r *userRepository) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	for _, u := range r.svc.Current().Users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if _, ok := r.svc.Current().User(usr.ID); !ok {
		return user.User{}, user.ErrNotFound
	}
	if _, err := r.svc.Dispatch(ctx, PutUser(usr)); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (r *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	_, err := r.svc.Dispatch(ctx, DeleteUsers(ids...))
	return err
}
