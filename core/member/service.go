package member

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core"
)

var (
	// errors
	ErrNotFound       = errors.New("member not found")
	ErrEmailExists    = errors.New("a member with this email already exists")
	ErrUsernameExists = errors.New("a member with this username already exists")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedMembers ...Member) error
		CreateMember(ctx context.Context, m Member, exec ...core.DBExecutor) (Member, error)
		// QueryMembers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Member.Name, Member.Username or Member.Email.
		QueryMembers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Member, error)
		GetMember(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Member, error)
		UpdateMember(ctx context.Context, m Member, exec ...core.DBExecutor) (Member, error)
		DeleteMembersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	// ScopeChecker verifies that a campus floor exists.
	ScopeChecker interface {
		CheckFloor(ctx context.Context, campus string, floor int) error
	}

	// AssignmentReleaser drops the mentor assignments of a member leaving their campus floor.
	// ReleaseInTx runs on tx and holds the scope lock of the member's floor until tx ends.
	AssignmentReleaser interface {
		ReleaseInTx(ctx context.Context, tx core.DBExecutor, m Member) (int, error)
	}

	ServiceDeps struct {
		DB       core.DB
		Repo     Repository
		Scopes   ScopeChecker       // optional
		Releaser AssignmentReleaser // optional
		MailSvc  core.EmailService
		Conf     *core.Config
	}

	Service struct {
		db       core.DB
		repo     Repository
		scopes   ScopeChecker
		releaser AssignmentReleaser
		mailSvc  core.EmailService
		tokens   *tokenGenerator
		conf     *core.Config
	}
)

func NewService(deps ServiceDeps) *Service {
	return &Service{
		db:       deps.DB,
		repo:     deps.Repo,
		scopes:   deps.Scopes,
		releaser: deps.Releaser,
		mailSvc:  deps.MailSvc,
		tokens:   newTokenGenerator(deps.Conf.SecretKey, deps.Conf.PasswordResetTimeoutDelta),
		conf:     deps.Conf,
	}
}

func (svc *Service) CheckUniqueness(ctx context.Context, uname, email string, exclMembers ...Member) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclMembers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: errors.Cause(err).Error()})
	}
	return nil
}

// CheckScope enforces the campus floor rules of a role:
// scoped roles need an existing campus floor, admins must have none.
func (svc *Service) CheckScope(ctx context.Context, role Role, campus string, floor int) error {
	switch role {
	case RoleStudent, RoleMentor, RoleFloorStaff:
		var flds []core.FieldError
		if campus == "" {
			flds = append(flds, core.FieldError{Field: "campus", Error: "this field is required"})
		}
		if floor < 1 {
			flds = append(flds, core.FieldError{Field: "floor", Error: "this field is required"})
		}
		if flds != nil {
			return core.NewValidationError(errors.Errorf("%s must belong to a campus floor", role), flds...)
		}
		if svc.scopes == nil {
			return nil
		}
		return svc.scopes.CheckFloor(ctx, campus, floor)
	case RoleAdmin:
		if campus != "" || floor != 0 {
			return core.NewValidationError(
				errors.New("admins do not belong to a campus floor"),
				core.FieldError{Field: "campus", Error: "admins do not belong to a campus floor"},
			)
		}
		return nil
	default:
		return core.NewValidationError(ErrInvalidRole, core.FieldError{Field: "role", Error: ErrInvalidRole.Error()})
	}
}

// Create builds and persists a fully populated Member. NewMember must have been validated beforehand.
func (svc *Service) Create(ctx context.Context, nm NewMember, exec ...core.DBExecutor) (Member, error) {
	role, err := ParseRole(nm.Role)
	if err != nil {
		return Member{}, core.NewValidationError(err, core.FieldError{Field: "role", Error: ErrInvalidRole.Error()})
	}

	now := NowFunc().UTC()
	m := Member{
		ID:        uuid.New().String(),
		Name:      nm.Name,
		Username:  nm.Username,
		Email:     nm.Email,
		IsActive:  true,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if role.RequiresScope() {
		m.Campus = nm.Campus
		m.Floor = nm.Floor
	}
	if err := m.SetPassword(nm.Password); err != nil {
		return Member{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateMember(ctx, m, exec...)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Member, error) {
	return svc.repo.QueryMembers(ctx, filter, ordering)
}

// ScopeMembers returns the active members of a campus floor holding the given role, ordered by ID.
func (svc *Service) ScopeMembers(ctx context.Context, role Role, campus string, floor int) ([]Member, error) {
	active := true
	filter := &QueryFilter{Roles: []Role{role}, Campus: campus, Floor: floor, IsActive: &active}
	return svc.repo.QueryMembers(ctx, filter, []core.DBOrdering{{Field: "id", Ascending: true}})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Member, error) {
	return svc.repo.GetMember(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (Member, error) {
	return svc.repo.GetMember(ctx, GetFilter{Username: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Member, error) {
	return svc.repo.GetMember(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (Member, error) {
	return svc.repo.GetMember(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

// Update applies a validated UpdateMember on orig.
// A member leaving their role or campus floor, or getting deactivated, loses their mentor assignments in the
// same transaction, under the scope lock of the floor they leave.
func (svc *Service) Update(ctx context.Context, orig Member, um UpdateMember) (Member, error) {
	m := orig
	m.Name = um.Name
	m.Username = um.Username
	m.Email = um.Email
	m.Role, m.Campus, m.Floor = um.effectiveScope(orig)
	if !m.Role.RequiresScope() {
		m.Campus, m.Floor = "", 0
	}
	if um.IsActive != nil {
		m.IsActive = *um.IsActive
	}
	if um.Password != "" {
		if err := m.SetPassword(um.Password); err != nil {
			return Member{}, errors.Wrap(err, "setting password")
		}
	}
	m.UpdatedAt = NowFunc().UTC()

	if svc.releaser == nil || !LeavesAssignments(orig, m) {
		return svc.repo.UpdateMember(ctx, m)
	}

	var updated Member
	err := core.RunInTx(ctx, svc.db, func(tx core.DBTransactor) error {
		if _, err := svc.releaser.ReleaseInTx(ctx, tx, orig); err != nil {
			return errors.Wrap(err, "releasing assignments")
		}
		var err error
		updated, err = svc.repo.UpdateMember(ctx, m, tx)
		return err
	})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Member{}, ErrNotFound
		}
		return Member{}, core.NewRetryableError(errors.Wrapf(err, "updating member %q", orig.ID))
	}
	return updated, nil
}

// LeavesAssignments reports whether going from orig to updated ends the mentor assignments orig takes part in.
func LeavesAssignments(orig, updated Member) bool {
	if !orig.Role.RequiresScope() {
		return false
	}
	return updated.Role != orig.Role || updated.Campus != orig.Campus || updated.Floor != orig.Floor ||
		(orig.IsActive && !updated.IsActive)
}

func (svc *Service) SetLastLogin(ctx context.Context, m Member) (Member, error) {
	m.LastLogin = NowFunc().UTC()
	return svc.repo.UpdateMember(ctx, m)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	return svc.repo.DeleteMembersByID(ctx, ids)
}

// RequestPasswordReset emails a password reset link to the active member owning email.
func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	m, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !m.IsActive {
		return ErrNotFound
	}
	token, err := svc.tokens.makeToken(m)
	if err != nil {
		return errors.Wrap(err, "making token")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: m.Name, Address: m.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  m.Name,
			"UID":   EncodeUID(m),
			"Token": token,
		},
	})
	return nil
}

// ResetPassword verifies the reset token of rp and sets the member's new password.
func (svc *Service) ResetPassword(ctx context.Context, rp ResetMemberPassword) (Member, error) {
	invalidErr := core.NewValidationError(errInvalidToken, core.FieldError{Field: "token", Error: errInvalidToken.Error()})

	id, err := decodeUID(rp.UID)
	if err != nil {
		return Member{}, invalidErr
	}
	m, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Member{}, invalidErr
		}
		return Member{}, err
	}

	if err := svc.tokens.verifyToken(m, rp.Token); err != nil {
		return Member{}, core.NewValidationError(err, core.FieldError{Field: "token", Error: err.Error()})
	}
	if err := m.SetPassword(rp.Password); err != nil {
		return Member{}, errors.Wrap(err, "setting password")
	}
	m.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateMember(ctx, m)
}
