package announcement_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cohort/core/announcement"
	"github.com/trezcool/cohort/core/member"
	emailsvc "github.com/trezcool/cohort/services/email"
	"github.com/trezcool/cohort/tests"
)

func TestCanPost(t *testing.T) {
	staff := member.Member{Role: member.RoleFloorStaff, Campus: "kgl", Floor: 1}

	tests := []struct {
		name   string
		author member.Member
		campus string
		floor  int
		want   bool
	}{
		{name: "admin", author: member.Member{Role: member.RoleAdmin}, campus: "kgl", floor: 2, want: true},
		{name: "staff on own floor", author: staff, campus: "kgl", floor: 1, want: true},
		{name: "staff on other floor", author: staff, campus: "kgl", floor: 2},
		{name: "staff on other campus", author: staff, campus: "nbo", floor: 1},
		{name: "mentor", author: member.Member{Role: member.RoleMentor, Campus: "kgl", Floor: 1}, campus: "kgl", floor: 1},
		{name: "student", author: member.Member{Role: member.RoleStudent, Campus: "kgl", Floor: 1}, campus: "kgl", floor: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := announcement.CanPost(tt.author, tt.campus, tt.floor); got != tt.want {
				t.Errorf("CanPost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestService_Post(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)
	testutil.CreateCampus(t, env.CampusRepo, "kgl", "Kigali", 2)
	staff := testutil.CreateMember(t, env.MemberRepo, "Staff", "staff", "staff@test.rw", "", member.RoleFloorStaff, "kgl", 1, true)
	student := testutil.CreateMember(t, env.MemberRepo, "Student", "student", "student@test.rw", "", member.RoleStudent, "kgl", 1, true)
	testutil.CreateMember(t, env.MemberRepo, "Away", "away", "away@test.rw", "", member.RoleStudent, "kgl", 1, false)
	testutil.CreateMember(t, env.MemberRepo, "Upstairs", "upstairs", "up@test.rw", "", member.RoleStudent, "kgl", 2, true)

	_, err := env.AnnouncementSvc.Post(ctx, student, announcement.NewAnnouncement{Campus: "kgl", Floor: 1, Title: "Hi", Body: "there"})
	assert.Equal(t, announcement.ErrForbidden, err)
	_, err = env.AnnouncementSvc.Post(ctx, staff, announcement.NewAnnouncement{Campus: "kgl", Floor: 2, Title: "Hi", Body: "there"})
	assert.Equal(t, announcement.ErrForbidden, err)

	a, err := env.AnnouncementSvc.Post(ctx, staff, announcement.NewAnnouncement{
		Campus: "kgl", Floor: 1, Title: "Demo day", Body: "Friday at 4pm.",
	})
	require.NoError(t, err)
	assert.Equal(t, staff.ID, a.AuthorID)

	msgs := emailsvc.SentMessagesCopy()
	require.Len(t, msgs, 1)
	assert.Equal(t, student.Email, msgs[0].To[0].Address)
	assert.Equal(t, "[kgl 1] Demo day", msgs[0].Subject)
	assert.Contains(t, msgs[0].TextContent, "Friday at 4pm.")

	list, err := env.AnnouncementSvc.Query(ctx, announcement.QueryFilter{Campus: "KGL", Floor: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)

	list, err = env.AnnouncementSvc.Query(ctx, announcement.QueryFilter{Campus: "kgl", Floor: 2})
	require.NoError(t, err)
	assert.Empty(t, list)
}
