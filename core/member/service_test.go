package member_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/member"
	"github.com/trezcool/cohort/core/mentorship"
	emailsvc "github.com/trezcool/cohort/services/email"
	"github.com/trezcool/cohort/tests"
)

const strongPwd = "Th!s1sV3ryStr0ng"

func setup(t *testing.T) (*testutil.Env, *validator.Validate) {
	env := testutil.NewEnv(t)
	testutil.CreateCampus(t, env.CampusRepo, "kgl", "Kigali", 3)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	member.RegisterValidators(validate, translator)
	member.LoadCommonPasswords(env.Logger)
	return env, validate
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	env, validate := setup(t)
	testutil.CreateMember(t, env.MemberRepo, "Taken", "taken", "taken@test.rw", "", member.RoleStudent, "kgl", 1, true)

	tests := []struct {
		name      string
		nm        member.NewMember
		wantField string
	}{
		{
			name: "student",
			nm:   member.NewMember{Name: "Ada", Username: "Ada_L", Role: "student", Campus: "KGL", Floor: 2},
		},
		{
			name: "admin",
			nm:   member.NewMember{Name: "Root", Email: "root@test.rw", Role: "admin"},
		},
		{
			name:      "student without floor",
			nm:        member.NewMember{Name: "Bob", Username: "bobby", Role: "student", Campus: "kgl"},
			wantField: "floor",
		},
		{
			name:      "unknown campus",
			nm:        member.NewMember{Name: "Bob", Username: "bobby", Role: "mentor", Campus: "lol", Floor: 1},
			wantField: "campus",
		},
		{
			name:      "floor out of range",
			nm:        member.NewMember{Name: "Bob", Username: "bobby", Role: "floor_staff", Campus: "kgl", Floor: 9},
			wantField: "floor",
		},
		{
			name:      "admin with a floor",
			nm:        member.NewMember{Name: "Bob", Username: "bobby", Role: "admin", Campus: "kgl", Floor: 1},
			wantField: "campus",
		},
		{
			name:      "username taken",
			nm:        member.NewMember{Name: "Bob", Username: "TAKEN", Role: "student", Campus: "kgl", Floor: 1},
			wantField: "username",
		},
		{
			name:      "email taken",
			nm:        member.NewMember{Name: "Bob", Email: "taken@test.rw", Role: "student", Campus: "kgl", Floor: 1},
			wantField: "email",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nm := tt.nm
			nm.Password, nm.PasswordConfirm = strongPwd, strongPwd

			err := nm.Validate(ctx, validate, env.MemberSvc)
			if tt.wantField != "" {
				var verr *core.ValidationError
				require.True(t, errors.As(err, &verr), "Validate() error = %v, want ValidationError", err)
				require.NotEmpty(t, verr.Fields)
				assert.Equal(t, tt.wantField, verr.Fields[0].Field)
				return
			}
			require.NoError(t, err)

			m, err := env.MemberSvc.Create(ctx, nm)
			require.NoError(t, err)
			assert.NotEmpty(t, m.ID)
			assert.True(t, m.IsActive)
			assert.NoError(t, m.CheckPassword(strongPwd))

			got, err := env.MemberSvc.GetByID(ctx, m.ID)
			require.NoError(t, err)
			assert.Equal(t, m.Role, got.Role)
			assert.Equal(t, m.Campus, got.Campus)
			assert.Equal(t, m.Floor, got.Floor)
		})
	}
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	env, validate := setup(t)
	m := testutil.CreateMember(t, env.MemberRepo, "Ada", "ada", "ada@test.rw", strongPwd, member.RoleMentor, "kgl", 1, true)

	// moving floors
	um := member.UpdateMember{Floor: 2}
	require.NoError(t, um.Validate(ctx, m, validate, env.MemberSvc))
	assert.True(t, um.ChangesScope(m))
	updated, err := env.MemberSvc.Update(ctx, m, um)
	require.NoError(t, err)
	assert.Equal(t, "kgl", updated.Campus)
	assert.Equal(t, 2, updated.Floor)
	assert.Equal(t, "ada", updated.Username)

	// renaming only
	um = member.UpdateMember{Name: "Ada L."}
	require.NoError(t, um.Validate(ctx, updated, validate, env.MemberSvc))
	assert.False(t, um.ChangesScope(updated))

	// promoting to admin drops the floor
	um = member.UpdateMember{Role: "admin"}
	require.NoError(t, um.Validate(ctx, updated, validate, env.MemberSvc))
	admin, err := env.MemberSvc.Update(ctx, updated, um)
	require.NoError(t, err)
	assert.Equal(t, member.RoleAdmin, admin.Role)
	assert.Empty(t, admin.Campus)
	assert.Zero(t, admin.Floor)

	// deactivation
	inactive := false
	um = member.UpdateMember{IsActive: &inactive}
	require.NoError(t, um.Validate(ctx, admin, validate, env.MemberSvc))
	admin, err = env.MemberSvc.Update(ctx, admin, um)
	require.NoError(t, err)
	assert.False(t, admin.IsActive)
}

func TestService_Update_releasesAssignments(t *testing.T) {
	ctx := context.Background()
	env, validate := setup(t)
	mentor := testutil.CreateMember(t, env.MemberRepo, "Mentor", "mentor", "", "", member.RoleMentor, "kgl", 1, true)
	mover := testutil.CreateMember(t, env.MemberRepo, "Mover", "mover", "", "", member.RoleStudent, "kgl", 1, true)
	stayer := testutil.CreateMember(t, env.MemberRepo, "Stayer", "stayer", "", "", member.RoleStudent, "kgl", 1, true)

	res, err := env.Router.Assign(ctx, "kgl", 1)
	require.NoError(t, err)
	require.Equal(t, 2, res.AssignedCount)

	// renaming keeps the assignment
	um := member.UpdateMember{Name: "Stayer S."}
	require.NoError(t, um.Validate(ctx, stayer, validate, env.MemberSvc))
	_, err = env.MemberSvc.Update(ctx, stayer, um)
	require.NoError(t, err)
	_, err = env.Router.GetAssignment(ctx, stayer.ID)
	assert.NoError(t, err)

	// moving floors drops it
	um = member.UpdateMember{Floor: 2}
	require.NoError(t, um.Validate(ctx, mover, validate, env.MemberSvc))
	moved, err := env.MemberSvc.Update(ctx, mover, um)
	require.NoError(t, err)
	_, err = env.Router.GetAssignment(ctx, mover.ID)
	assert.Equal(t, mentorship.ErrNotFound, errors.Cause(err))

	// and the next pass upstairs picks the student up
	upstairs := testutil.CreateMember(t, env.MemberRepo, "Upstairs", "upstairs", "", "", member.RoleMentor, "kgl", 2, true)
	res, err = env.Router.Assign(ctx, "kgl", 2)
	require.NoError(t, err)
	assert.Equal(t, mentorship.StatusAssigned, res.Status)
	require.Len(t, res.Assignments, 1)
	assert.Equal(t, moved.ID, res.Assignments[0].StudentID)
	assert.Equal(t, upstairs.ID, res.Assignments[0].MentorID)

	stored, err := env.Router.GetAssignment(ctx, moved.ID)
	require.NoError(t, err)
	assert.Equal(t, "kgl", stored.Campus)
	assert.Equal(t, 2, stored.Floor)

	// deactivating a mentor frees their students
	inactive := false
	um = member.UpdateMember{IsActive: &inactive}
	require.NoError(t, um.Validate(ctx, mentor, validate, env.MemberSvc))
	_, err = env.MemberSvc.Update(ctx, mentor, um)
	require.NoError(t, err)
	left, err := env.Router.QueryAssignments(ctx, mentorship.QueryFilter{MentorID: mentor.ID})
	require.NoError(t, err)
	assert.Empty(t, left)
}

// brokenReleaser releases through the router, then fails.
type brokenReleaser struct {
	router *mentorship.Router
}

func (r brokenReleaser) ReleaseInTx(ctx context.Context, tx core.DBExecutor, m member.Member) (int, error) {
	if _, err := r.router.ReleaseInTx(ctx, tx, m); err != nil {
		return 0, err
	}
	return 0, errors.New("connection reset")
}

func TestService_Update_rollsBack(t *testing.T) {
	ctx := context.Background()
	env, validate := setup(t)
	testutil.CreateMember(t, env.MemberRepo, "Mentor", "mentor", "", "", member.RoleMentor, "kgl", 1, true)
	student := testutil.CreateMember(t, env.MemberRepo, "Student", "student", "", "", member.RoleStudent, "kgl", 1, true)
	_, err := env.Router.Assign(ctx, "kgl", 1)
	require.NoError(t, err)

	svc := member.NewService(member.ServiceDeps{
		DB:       env.DB,
		Repo:     env.MemberRepo,
		Scopes:   env.CampusSvc,
		Releaser: brokenReleaser{router: env.Router},
		MailSvc:  env.MailSvc,
		Conf:     env.Conf,
	})
	um := member.UpdateMember{Floor: 2}
	require.NoError(t, um.Validate(ctx, student, validate, svc))
	_, err = svc.Update(ctx, student, um)
	require.Error(t, err)
	assert.True(t, core.IsRetryable(err))

	// neither the move nor the release were stored
	got, err := env.MemberSvc.GetByID(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Floor)
	_, err = env.Router.GetAssignment(ctx, student.ID)
	assert.NoError(t, err)
}

func TestService_PasswordReset(t *testing.T) {
	ctx := context.Background()
	env, validate := setup(t)
	m := testutil.CreateMember(t, env.MemberRepo, "Ada", "ada", "ada@test.rw", "0ldP@ssword", member.RoleStudent, "kgl", 1, true)
	testutil.CreateMember(t, env.MemberRepo, "Off", "off", "off@test.rw", "", member.RoleStudent, "kgl", 1, false)

	assert.Equal(t, member.ErrNotFound, errors.Cause(env.MemberSvc.RequestPasswordReset(ctx, "nobody@test.rw")))
	assert.Equal(t, member.ErrNotFound, errors.Cause(env.MemberSvc.RequestPasswordReset(ctx, "off@test.rw")))
	require.NoError(t, env.MemberSvc.RequestPasswordReset(ctx, " ADA@test.rw "))

	msgs := emailsvc.SentMessagesCopy()
	require.Len(t, msgs, 1)
	data, ok := msgs[0].TemplateData.(map[string]interface{})
	require.True(t, ok)
	uid, token := data["UID"].(string), data["Token"].(string)

	tests := []struct {
		name    string
		rp      member.ResetMemberPassword
		wantErr bool
	}{
		{name: "bad uid", rp: member.ResetMemberPassword{UID: "lol", Token: token}, wantErr: true},
		{name: "bad token", rp: member.ResetMemberPassword{UID: uid, Token: "1-lol"}, wantErr: true},
		{name: "valid", rp: member.ResetMemberPassword{UID: uid, Token: token}},
		{name: "token used", rp: member.ResetMemberPassword{UID: uid, Token: token}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rp := tt.rp
			rp.Password, rp.PasswordConfirm = strongPwd, strongPwd
			require.NoError(t, rp.Validate(validate))

			got, err := env.MemberSvc.ResetPassword(ctx, rp)
			if tt.wantErr {
				if !core.IsValidationError(err) {
					t.Errorf("ResetPassword() error = %v, wantErr ValidationError", err)
				}
				return
			}
			require.NoError(t, err)
			assert.NoError(t, got.CheckPassword(strongPwd))
			assert.Equal(t, m.ID, got.ID)
		})
	}
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	env, _ := setup(t)
	mentor := testutil.CreateMember(t, env.MemberRepo, "Mentor", "mentor", "", "", member.RoleMentor, "kgl", 1, true)
	student := testutil.CreateMember(t, env.MemberRepo, "Student", "student", "", "", member.RoleStudent, "kgl", 1, true)
	testutil.CreateMember(t, env.MemberRepo, "Away", "away", "", "", member.RoleStudent, "kgl", 1, false)
	testutil.CreateMember(t, env.MemberRepo, "Upstairs", "upstairs", "", "", member.RoleStudent, "kgl", 2, true)
	testutil.CreateMember(t, env.MemberRepo, "Root", "root", "", "", member.RoleAdmin, "", 0, true)

	students, err := env.MemberSvc.ScopeMembers(ctx, member.RoleStudent, "kgl", 1)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, student.ID, students[0].ID)

	found, err := env.MemberSvc.Query(ctx, &member.QueryFilter{Search: "MENT"}, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, mentor.ID, found[0].ID)

	found, err = env.MemberSvc.Query(ctx, &member.QueryFilter{Roles: []member.Role{member.RoleAdmin, member.RoleMentor}}, nil)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	n, err := env.MemberSvc.Delete(ctx, mentor.ID, student.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = env.MemberSvc.GetByID(ctx, mentor.ID)
	assert.Equal(t, member.ErrNotFound, err)
}
