package member

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/cohort/core"
)

type Member struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	Role         Role      `json:"role"`
	Campus       string    `json:"campus,omitempty"`
	Floor        int       `json:"floor,omitempty"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (m *Member) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	m.PasswordHash = hash
	return nil
}

func (m *Member) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(m.PasswordHash, []byte(pwd))
}

func (m *Member) IsAdmin() bool      { return m.Role == RoleAdmin }
func (m *Member) IsFloorStaff() bool { return m.Role == RoleFloorStaff }
func (m *Member) IsMentor() bool     { return m.Role == RoleMentor }
func (m *Member) IsStudent() bool    { return m.Role == RoleStudent }

// InScope reports whether the member belongs to the given campus floor.
func (m *Member) InScope(campus string, floor int) bool {
	return m.Role.RequiresScope() && m.Campus == campus && m.Floor == floor
}

// NewMember contains information needed to create a new Member.
type NewMember struct {
	Name            string `json:"name" validate:"required,notblank"`
	Username        string `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	Role            string `json:"role" validate:"required,role"`
	Campus          string `json:"campus"`
	Floor           int    `json:"floor" validate:"gte=0"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nm *NewMember) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nm.Name = core.CleanString(nm.Name)
	nm.Username = core.CleanString(nm.Username, true /* lower */)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Role = core.CleanString(nm.Role, true /* lower */)
	nm.Campus = core.CleanString(nm.Campus, true /* lower */)

	if err := validate.Struct(nm); err != nil {
		return err
	}
	role, _ := ParseRole(nm.Role)
	if err := svc.CheckScope(ctx, role, nm.Campus, nm.Floor); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nm.Username, nm.Email)
}

// UpdateMember defines what information may be provided to modify an existing Member.
// Zero values leave the original fields untouched.
type UpdateMember struct {
	Name            string `json:"name"`
	Username        string `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string `json:"email" validate:"omitempty,email"`
	IsActive        *bool  `json:"is_active"`
	Role            string `json:"role" validate:"omitempty,role"`
	Campus          string `json:"campus"`
	Floor           int    `json:"floor" validate:"gte=0"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// ChangesScope reports whether applying the update moves the member to another role, campus or floor.
func (um UpdateMember) ChangesScope(orig Member) bool {
	return (um.Role != "" && um.Role != orig.Role.String()) ||
		(um.Campus != "" && um.Campus != orig.Campus) ||
		(um.Floor != 0 && um.Floor != orig.Floor)
}

func (um *UpdateMember) Validate(ctx context.Context, orig Member, validate *validator.Validate, svc *Service) error {
	name := core.CleanString(um.Name)
	if name != "" {
		um.Name = name
	} else {
		um.Name = orig.Name
	}

	uname := core.CleanString(um.Username, true /* lower */)
	if uname != "" {
		um.Username = uname
	} else {
		um.Username = orig.Username
	}

	email := core.CleanString(um.Email, true /* lower */)
	if email != "" {
		um.Email = email
	} else {
		um.Email = orig.Email
	}

	um.Role = core.CleanString(um.Role, true /* lower */)
	um.Campus = core.CleanString(um.Campus, true /* lower */)

	if err := validate.Struct(um); err != nil {
		return err
	}

	role, campus, floor := um.effectiveScope(orig)
	if err := svc.CheckScope(ctx, role, campus, floor); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, um.Username, um.Email, orig)
}

// effectiveScope merges the update into the original role and scope.
// Moving a member to the admin role drops their campus floor.
func (um UpdateMember) effectiveScope(orig Member) (Role, string, int) {
	role := orig.Role
	if r, err := ParseRole(um.Role); err == nil {
		role = r
	}
	if !role.RequiresScope() {
		if orig.Role.RequiresScope() && role != orig.Role {
			return role, um.Campus, um.Floor
		}
	}
	campus, floor := orig.Campus, orig.Floor
	if um.Campus != "" {
		campus = um.Campus
	}
	if um.Floor != 0 {
		floor = um.Floor
	}
	return role, campus, floor
}

type ResetMemberPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetMemberPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

type QueryFilter struct {
	Search      string
	Roles       []Role
	Campus      string
	Floor       int
	IsActive    *bool
	CreatedFrom time.Time
	CreatedTo   time.Time
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.Campus == "" && qf.Floor == 0 &&
		qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Campus = core.CleanString(qf.Campus, true /* lower */)
}

// GetFilter selects a single Member; the first non-empty field is used.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
}
