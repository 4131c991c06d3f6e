package sqlxrepos_test

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cohort/core/member"
	"github.com/trezcool/cohort/tests"
)

func Test_seasonRepository_students(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	testutil.CreateCampus(t, env.CampusRepo, "kgl", "Kigali", 2)

	ids, err := env.SeasonRepo.QueryStudentIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	s1 := testutil.CreateMember(t, env.MemberRepo, "Student 1", "student1", "", "", member.RoleStudent, "kgl", 1, true)
	s2 := testutil.CreateMember(t, env.MemberRepo, "Student 2", "student2", "", "", member.RoleStudent, "kgl", 2, false)
	mentor := testutil.CreateMember(t, env.MemberRepo, "Mentor", "mentor", "", "", member.RoleMentor, "kgl", 1, true)

	tests := []struct {
		name string
		id   string
		want bool
	}{
		{name: "student", id: s1.ID, want: true},
		{name: "inactive student", id: s2.ID, want: true},
		{name: "mentor", id: mentor.ID},
		{name: "unknown", id: uuid.New().String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.SeasonRepo.StudentExists(ctx, tt.id)
			if err != nil {
				t.Fatalf("StudentExists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("StudentExists() = %v, want %v", got, tt.want)
			}
		})
	}

	want := []string{s1.ID, s2.ID}
	sort.Strings(want)
	ids, err = env.SeasonRepo.QueryStudentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, ids)
}
