package tests

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/cohort/apps/api/echo"
	"github.com/trezcool/cohort/core/member"
	"github.com/trezcool/cohort/core/season"
	"github.com/trezcool/cohort/tests"
)

type floorMembers struct {
	admin, staff, upstairsStaff, mentor, other member.Member
	student, peer                              member.Member
}

func setupFloor(t *testing.T, a app) floorMembers {
	f := floorMembers{
		admin:         testutil.CreateMember(t, a.MemberRepo, "Root", "root", "", "", member.RoleAdmin, "", 0, true),
		staff:         testutil.CreateMember(t, a.MemberRepo, "Staff", "staff", "", "", member.RoleFloorStaff, "kgl", 1, true),
		upstairsStaff: testutil.CreateMember(t, a.MemberRepo, "Upstairs", "upstairs", "", "", member.RoleFloorStaff, "kgl", 2, true),
		mentor:        testutil.CreateMember(t, a.MemberRepo, "Mentor", "mentor", "", "", member.RoleMentor, "kgl", 1, true),
		student:       testutil.CreateMember(t, a.MemberRepo, "Student", "student", "", "", member.RoleStudent, "kgl", 1, true),
		peer:          testutil.CreateMember(t, a.MemberRepo, "Peer", "peer", "", "", member.RoleStudent, "kgl", 1, true),
	}
	_, err := a.Router.Assign(context.Background(), "kgl", 1)
	require.NoError(t, err)
	// joins after the pass: no students
	f.other = testutil.CreateMember(t, a.MemberRepo, "Other", "other", "", "", member.RoleMentor, "kgl", 1, true)
	return f
}

func Test_studentApi_mentor(t *testing.T) {
	a := setup(t)
	f := setupFloor(t, a)
	path := "/v1/students/" + f.student.ID + "/mentor"

	runHTTPTests(t, a, []httpTest{
		{name: "auth required", method: http.MethodGet, path: path, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "peers cannot see", method: http.MethodGet, path: path, token: a.getToken(t, f.peer), wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFound)},
		{name: "other mentors cannot see", method: http.MethodGet, path: path, token: a.getToken(t, f.other), wantCode: http.StatusNotFound},
		{name: "other floor staff cannot see", method: http.MethodGet, path: path, token: a.getToken(t, f.upstairsStaff), wantCode: http.StatusNotFound},
		{name: "not a student", method: http.MethodGet, path: "/v1/students/" + f.mentor.ID + "/mentor", token: a.getToken(t, f.admin), wantCode: http.StatusNotFound},
		{name: "self", method: http.MethodGet, path: path, token: a.getToken(t, f.student)},
		{name: "mentor", method: http.MethodGet, path: path, token: a.getToken(t, f.mentor)},
		{name: "staff", method: http.MethodGet, path: path, token: a.getToken(t, f.staff)},
		{name: "students cannot unassign", method: http.MethodDelete, path: path, token: a.getToken(t, f.student), wantCode: http.StatusNotFound},
		{name: "mentors cannot unassign", method: http.MethodDelete, path: path, token: a.getToken(t, f.mentor), wantCode: http.StatusNotFound},
	})

	tt := httpTest{method: http.MethodGet, path: path, token: a.getToken(t, f.student)}
	rec := a.serve(tt)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.MentorResponse
	unmarshal(t, rec, &resp)
	assert.Equal(t, f.student.ID, resp.StudentID)
	assert.Equal(t, f.mentor.ID, resp.MentorID)
	assert.Equal(t, "Mentor", resp.Mentor.Name)

	runHTTPTests(t, a, []httpTest{
		{name: "unassigned", method: http.MethodDelete, path: path, token: a.getToken(t, f.staff), wantCode: http.StatusNoContent},
		{name: "already unassigned", method: http.MethodDelete, path: path, token: a.getToken(t, f.staff), wantCode: http.StatusNotFound},
		{name: "no mentor", method: http.MethodGet, path: path, token: a.getToken(t, f.student), wantCode: http.StatusNotFound},
	})
}

func Test_studentApi_seasons(t *testing.T) {
	a := setup(t)
	f := setupFloor(t, a)
	base := "/v1/students/" + f.student.ID
	staffToken := a.getToken(t, f.staff)

	runHTTPTests(t, a, []httpTest{
		{name: "students cannot score", method: http.MethodPut, path: base + "/seasons/1", token: a.getToken(t, f.student), body: []byte(`{"total_score": 9000}`), wantCode: http.StatusNotFound},
		{name: "bad season", method: http.MethodPut, path: base + "/seasons/0", token: staffToken, body: []byte(`{"total_score": 10}`), wantCode: http.StatusNotFound},
		{name: "negative score", method: http.MethodPut, path: base + "/seasons/1", token: staffToken, body: []byte(`{"total_score": -1}`), wantCode: http.StatusBadRequest},
		{name: "not scored yet", method: http.MethodPost, path: base + "/seasons/1/complete", token: staffToken, wantCode: http.StatusNotFound},
		{name: "empty history", method: http.MethodGet, path: base + "/seasons", token: a.getToken(t, f.mentor), wantData: marshalList(t)},
		{
			name: "zero legacy score", method: http.MethodGet, path: base + "/legacy-score", token: a.getToken(t, f.student),
			wantData: marshalObj(t, season.LegacyScore{StudentID: f.student.ID}),
		},
	})

	high := season.DefaultAscensionThreshold + 100
	for n := 1; n <= season.DefaultAscensionMinRun; n++ {
		tt := httpTest{method: http.MethodPut, path: base + "/seasons/" + strconv.Itoa(n), token: staffToken, body: marshalObj(t, map[string]int{"total_score": high})}
		rec := a.serve(tt)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		tt = httpTest{method: http.MethodPost, path: base + "/seasons/" + strconv.Itoa(n) + "/complete", token: staffToken}
		rec = a.serve(tt)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	tt := httpTest{method: http.MethodGet, path: base + "/legacy-score", token: a.getToken(t, f.student)}
	rec := a.serve(tt)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ls season.LegacyScore
	unmarshal(t, rec, &ls)
	assert.Equal(t, season.DefaultAscensionMinRun, ls.SeasonsCompleted)
	assert.Equal(t, season.DefaultAscensionBonusPerSeason, ls.AscensionBonusTotal)
	assert.Equal(t, season.DefaultAscensionMinRun*high, ls.TotalLegacyPoints)

	runHTTPTests(t, a, []httpTest{
		{
			name: "completed seasons are frozen", method: http.MethodPut, path: base + "/seasons/1", token: staffToken,
			body: []byte(`{"total_score": 1}`), wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: season.ErrSeasonCompleted.Error()}),
		},
		{name: "completed twice", method: http.MethodPost, path: base + "/seasons/1/complete", token: staffToken, wantCode: http.StatusConflict},
		{name: "staff cannot recalculate", method: http.MethodPost, path: base + "/legacy-score/recalculate", token: staffToken, wantCode: http.StatusForbidden},
		{name: "admin recalculates", method: http.MethodPost, path: base + "/legacy-score/recalculate", token: a.getToken(t, f.admin)},
	})

	// breakdown
	tt = httpTest{method: http.MethodPut, path: base + "/seasons/4", token: staffToken, body: []byte(`{"breakdown": {"Code": 300, "talks": 200}}`)}
	rec = a.serve(tt)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var s season.SeasonScore
	unmarshal(t, rec, &s)
	assert.Equal(t, 500, s.TotalScore)
	assert.Equal(t, map[string]int{"code": 300, "talks": 200}, s.Breakdown)
	assert.False(t, s.Completed)

	tt = httpTest{method: http.MethodGet, path: base + "/seasons", token: a.getToken(t, f.student)}
	rec = a.serve(tt)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var scores []season.SeasonScore
	unmarshal(t, rec, &scores)
	require.Len(t, scores, 4)
	assert.Equal(t, 1, scores[0].SeasonNumber)
	assert.Equal(t, 4, scores[3].SeasonNumber)
}

func Test_scoreApi(t *testing.T) {
	a := setup(t)
	f := setupFloor(t, a)
	testutil.CreateSeasonScore(t, a.SeasonRepo, f.student.ID, 1, 300, true)
	testutil.CreateSeasonScore(t, a.SeasonRepo, f.peer.ID, 1, 100, true)

	runHTTPTests(t, a, []httpTest{
		{name: "auth required", method: http.MethodGet, path: "/v1/leaderboard", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "admin required", method: http.MethodPost, path: "/v1/legacy-scores/recalculate", token: a.getToken(t, f.staff), wantCode: http.StatusForbidden},
		{
			name: "recalculated", method: http.MethodPost, path: "/v1/legacy-scores/recalculate", token: a.getToken(t, f.admin),
			wantData: marshalObj(t, echoapi.RecalculateAllResponse{Recalculated: 2}),
		},
		{name: "bad limit", method: http.MethodGet, path: "/v1/leaderboard?limit=lol", token: a.getToken(t, f.student), wantCode: http.StatusBadRequest},
	})

	tt := httpTest{method: http.MethodGet, path: "/v1/leaderboard?campus=kgl&floor=1", token: a.getToken(t, f.peer)}
	rec := a.serve(tt)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var standings []season.Standing
	unmarshal(t, rec, &standings)
	require.Len(t, standings, 2)
	assert.Equal(t, f.student.ID, standings[0].StudentID)
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, 300, standings[0].TotalLegacyPoints)
	assert.Equal(t, f.peer.ID, standings[1].StudentID)

	tt.path = "/v1/leaderboard?campus=kgl&limit=1"
	rec = a.serve(tt)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	standings = nil
	unmarshal(t, rec, &standings)
	require.Len(t, standings, 1)
	assert.Equal(t, f.student.ID, standings[0].StudentID)
}
