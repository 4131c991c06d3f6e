package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core/member"
	"github.com/trezcool/cohort/core/mentorship"
)

const contextObjectKey = "object"

// roleMiddleware lets through the members holding any of roles.
func roleMiddleware(svc *member.Service, roles ...member.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			m, err := getContextMember(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context member")
			}
			for _, role := range roles {
				if m.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware(svc *member.Service) echo.MiddlewareFunc {
	return roleMiddleware(svc, member.RoleAdmin)
}

// floorMiddleware guards the /:campus/:floor routes: admins and the floor staff of the floor are let through.
// With membersRead, every member of the floor is let through as well.
func floorMiddleware(svc *member.Service, membersRead bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			m, err := getContextMember(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context member")
			}
			campus, floor, err := scopeParams(ctx)
			if err != nil {
				return err
			}

			switch {
			case m.IsAdmin():
				return next(ctx)
			case !m.InScope(campus, floor):
				return errHttpForbidden
			case m.IsFloorStaff() || membersRead:
				return next(ctx)
			default:
				return errHttpForbidden
			}
		}
	}
}

type studentAccess struct {
	self   bool // the student themselves
	mentor bool // the mentor assigned to the student
}

// studentMiddleware loads the student of the :id route param into the context.
// Admins and the floor staff of the student's floor always get through; see studentAccess for the others.
// Students hidden from the context member are reported as not found.
func studentMiddleware(svc *member.Service, router *mentorship.Router, access studentAccess) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxMbr, err := getContextMember(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context member")
			}

			student, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == member.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding student by ID")
			}
			if !student.IsStudent() {
				return errHttpNotFound
			}

			allowed := false
			switch {
			case ctxMbr.IsAdmin():
				allowed = true
			case ctxMbr.IsFloorStaff():
				allowed = ctxMbr.InScope(student.Campus, student.Floor)
			case ctxMbr.ID == student.ID:
				allowed = access.self
			case ctxMbr.IsMentor() && access.mentor:
				a, err := router.GetAssignment(ctx.Request().Context(), student.ID)
				if err != nil && errors.Cause(err) != mentorship.ErrNotFound {
					return errors.Wrap(err, "getting assignment")
				}
				allowed = err == nil && a.MentorID == ctxMbr.ID
			}
			if !allowed {
				return errHttpNotFound
			}

			ctx.Set(contextObjectKey, student)
			return next(ctx)
		}
	}
}

// selfOrAdminMiddleware loads the member of the :id route param into the context.
func selfOrAdminMiddleware(svc *member.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxMbr, err := getContextMember(ctx, svc)
			if err != nil {
				return errors.Wrap(err, "getting context member")
			}

			if ctx.Param("id") == ctxMbr.ID || ctxMbr.IsAdmin() {
				if m, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err == nil {
					ctx.Set(contextObjectKey, m)
					return next(ctx)
				} else if errors.Cause(err) != member.ErrNotFound {
					return errors.Wrap(err, "finding member by ID")
				}
			}
			return errHttpNotFound
		}
	}
}

func contextObject(ctx echo.Context) (member.Member, error) {
	m, ok := ctx.Get(contextObjectKey).(member.Member)
	if !ok {
		return member.Member{}, errMbrNotFoundInCtx
	}
	return m, nil
}
