package member

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/cohort/core"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	RegisterValidators(validate, translator)
	LoadCommonPasswords(nopLogger{})
	return validate
}

// failedTags returns the validation tags reported on the given field.
func failedTags(err error, field string) []string {
	var tags []string
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			if fe.Field() == field {
				tags = append(tags, fe.Tag())
			}
		}
	}
	return tags
}

func TestNewMember_Validation(t *testing.T) {
	validate := newTestValidator()
	valid := func() NewMember {
		return NewMember{
			Name:            "Ada Lovelace",
			Username:        "ada",
			Email:           "ada@test.test",
			Role:            "student",
			Campus:          "lagos",
			Floor:           1,
			Password:        "Th!s1sV3ryStr0ng",
			PasswordConfirm: "Th!s1sV3ryStr0ng",
		}
	}

	tests := []struct {
		name    string
		modify  func(nm *NewMember)
		field   string
		wantTag string
	}{
		{name: "valid", modify: func(nm *NewMember) {}},
		{name: "bad role", modify: func(nm *NewMember) { nm.Role = "teacher" }, field: "role", wantTag: roleTag},
		{name: "missing role", modify: func(nm *NewMember) { nm.Role = "" }, field: "role", wantTag: "required"},
		{
			name:    "no username nor email",
			modify:  func(nm *NewMember) { nm.Username, nm.Email = "", "" },
			field:   "email",
			wantTag: usernameOrEmailTag,
		},
		{
			name:    "too short",
			modify:  func(nm *NewMember) { nm.Password, nm.PasswordConfirm = "Sh0rt!", "Sh0rt!" },
			field:   "password",
			wantTag: pwdMinLenTag,
		},
		{
			name:    "whitespace",
			modify:  func(nm *NewMember) { nm.Password, nm.PasswordConfirm = "Has Sp4ce!", "Has Sp4ce!" },
			field:   "password",
			wantTag: pwdNoSpaceTag,
		},
		{
			name:    "all numeric",
			modify:  func(nm *NewMember) { nm.Password, nm.PasswordConfirm = "1234567890", "1234567890" },
			field:   "password",
			wantTag: pwdNotAllNumTag,
		},
		{
			name:    "not complex",
			modify:  func(nm *NewMember) { nm.Password, nm.PasswordConfirm = "abcdefghij", "abcdefghij" },
			field:   "password",
			wantTag: pwdComplexityTag,
		},
		{
			name: "similar to username",
			modify: func(nm *NewMember) {
				nm.Username = "jonathan"
				nm.Password, nm.PasswordConfirm = "Jonathan1!", "Jonathan1!"
			},
			field:   "password",
			wantTag: pwdAttrSimTag,
		},
		{
			name:    "common",
			modify:  func(nm *NewMember) { nm.Password, nm.PasswordConfirm = "P@$$w0rd", "P@$$w0rd" },
			field:   "password",
			wantTag: pwdNoCommonTag,
		},
		{
			name:    "confirmation mismatch",
			modify:  func(nm *NewMember) { nm.PasswordConfirm = "Th!s1sV3ryStr0ng?" },
			field:   "password_confirm",
			wantTag: "eqfield",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nm := valid()
			tt.modify(&nm)
			err := validate.Struct(nm)
			if tt.wantTag == "" {
				if err != nil {
					t.Errorf("validate.Struct() error = %v, want nil", err)
				}
				return
			}
			tags := failedTags(err, tt.field)
			found := false
			for _, tag := range tags {
				if tag == tt.wantTag {
					found = true
				}
			}
			if !found {
				t.Errorf("validate.Struct() %s tags = %v, want %v", tt.field, tags, tt.wantTag)
			}
		})
	}
}

func TestUpdateMember_Validation(t *testing.T) {
	validate := newTestValidator()

	if err := validate.Struct(UpdateMember{Name: "Ada"}); err != nil {
		t.Errorf("empty update error = %v, want nil", err)
	}
	err := validate.Struct(UpdateMember{Name: "Ada", Password: "abcdefghij", PasswordConfirm: "abcdefghij"})
	if tags := failedTags(err, "password"); len(tags) != 1 || tags[0] != pwdComplexityTag {
		t.Errorf("weak password tags = %v, want [%s]", tags, pwdComplexityTag)
	}
	err = validate.Struct(UpdateMember{Role: "root"})
	if tags := failedTags(err, "role"); len(tags) != 1 || tags[0] != roleTag {
		t.Errorf("bad role tags = %v, want [%s]", tags, roleTag)
	}
}

func TestUpdateMember_ChangesScope(t *testing.T) {
	orig := Member{Role: RoleStudent, Campus: "lagos", Floor: 1}
	tests := []struct {
		name string
		um   UpdateMember
		want bool
	}{
		{name: "nothing", um: UpdateMember{Name: "x"}, want: false},
		{name: "same values", um: UpdateMember{Role: "student", Campus: "lagos", Floor: 1}, want: false},
		{name: "role", um: UpdateMember{Role: "mentor"}, want: true},
		{name: "campus", um: UpdateMember{Campus: "nairobi"}, want: true},
		{name: "floor", um: UpdateMember{Floor: 2}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.um.ChangesScope(orig); got != tt.want {
				t.Errorf("ChangesScope() = %v, want %v", got, tt.want)
			}
		})
	}
}
