package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core/user"
)

// rolesMiddleware lets through the users holding one of `roles`.
func (a *authenticator) rolesMiddleware(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := a.contextUser(ctx)
			if err != nil {
				return err
			}
			if allowed[usr.Role] {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func (a *authenticator) managers() echo.MiddlewareFunc {
	return a.rolesMiddleware(user.ManagerRoles...)
}

func (a *authenticator) admins() echo.MiddlewareFunc {
	return a.rolesMiddleware(user.RoleAdmin)
}

// office lets through managers and the administrative staff.
func (a *authenticator) office() echo.MiddlewareFunc {
	return a.rolesMiddleware(append([]string{user.RoleAdministrative}, user.ManagerRoles...)...)
}

// nonTeachers lets through managers and every staff role.
func (a *authenticator) nonTeachers() echo.MiddlewareFunc {
	return a.rolesMiddleware(append(append([]string(nil), user.ManagerRoles...), user.StaffRoles...)...)
}
