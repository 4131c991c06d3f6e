package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core/member"
	"github.com/trezcool/cohort/core/mentorship"
	"github.com/trezcool/cohort/core/season"
)

type studentApi struct {
	memberSvc *member.Service
	router    *mentorship.Router
	seasonSvc *season.Service
	validate  *validator.Validate
}

// MentorResponse is the mentor assignment of a student.
type MentorResponse struct {
	mentorship.Assignment
	Mentor member.Member `json:"mentor"`
}

func registerStudentAPI(g *echo.Group, deps ServerDeps) {
	api := studentApi{
		memberSvc: deps.MemberSvc,
		router:    deps.Router,
		seasonSvc: deps.SeasonSvc,
		validate:  deps.Validate,
	}
	readers := studentMiddleware(api.memberSvc, api.router, studentAccess{self: true, mentor: true})
	staff := studentMiddleware(api.memberSvc, api.router, studentAccess{})

	sg := g.Group("/:id")
	sg.GET("/mentor", api.retrieveMentor, readers)
	sg.DELETE("/mentor", api.unassignMentor, staff)

	sg.GET("/seasons", api.querySeasons, readers)
	sg.PUT("/seasons/:season", api.recordSeason, staff)
	sg.POST("/seasons/:season/complete", api.completeSeason, staff)

	sg.GET("/legacy-score", api.retrieveLegacyScore, readers)
	sg.POST("/legacy-score/recalculate", api.recalculate, adminMiddleware(api.memberSvc), staff)
}

// Handlers

func (api *studentApi) retrieveMentor(ctx echo.Context) error {
	student, err := contextObject(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	reqCtx := ctx.Request().Context()
	a, err := api.router.GetAssignment(reqCtx, student.ID)
	if err != nil {
		return errors.Wrap(err, "getting assignment")
	}
	mentor, err := api.memberSvc.GetByID(reqCtx, a.MentorID)
	if err != nil {
		return errors.Wrap(err, "getting mentor")
	}
	return ctx.JSON(http.StatusOK, MentorResponse{Assignment: a, Mentor: mentor})
}

func (api *studentApi) unassignMentor(ctx echo.Context) error {
	student, err := contextObject(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	if err := api.router.Unassign(ctx.Request().Context(), student.ID); err != nil {
		return errors.Wrap(err, "unassigning mentor")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *studentApi) querySeasons(ctx echo.Context) error {
	student, err := contextObject(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	scores, err := api.seasonSvc.QuerySeasonScores(ctx.Request().Context(), student.ID)
	if err != nil {
		return errors.Wrap(err, "querying season scores")
	}
	if scores == nil {
		scores = []season.SeasonScore{}
	}
	return ctx.JSON(http.StatusOK, scores)
}

func (api *studentApi) recordSeason(ctx echo.Context) error {
	student, err := contextObject(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	n, err := positiveParam(ctx, "season")
	if err != nil {
		return err
	}

	var data season.NewSeasonScore
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSeasonScore")
	}
	data.StudentID, data.SeasonNumber = student.ID, n
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	s, err := api.seasonSvc.RecordSeasonScore(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording season score")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *studentApi) completeSeason(ctx echo.Context) error {
	student, err := contextObject(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}
	n, err := positiveParam(ctx, "season")
	if err != nil {
		return err
	}

	ls, err := api.seasonSvc.CompleteSeason(ctx.Request().Context(), student.ID, n)
	if err != nil {
		return errors.Wrap(err, "completing season")
	}
	return ctx.JSON(http.StatusOK, ls)
}

// retrieveLegacyScore returns a zero legacy score for students never aggregated.
func (api *studentApi) retrieveLegacyScore(ctx echo.Context) error {
	student, err := contextObject(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	ls, err := api.seasonSvc.GetLegacyScore(ctx.Request().Context(), student.ID)
	if err != nil {
		if errors.Cause(err) != season.ErrNotFound {
			return errors.Wrap(err, "getting legacy score")
		}
		ls = season.LegacyScore{StudentID: student.ID}
	}
	return ctx.JSON(http.StatusOK, ls)
}

func (api *studentApi) recalculate(ctx echo.Context) error {
	student, err := contextObject(ctx)
	if err != nil {
		return errors.Wrap(err, "retrieving object from context")
	}

	ls, err := api.seasonSvc.Recalculate(ctx.Request().Context(), student.ID)
	if err != nil {
		return errors.Wrap(err, "recalculating legacy score")
	}
	return ctx.JSON(http.StatusOK, ls)
}

type scoreApi struct {
	seasonSvc *season.Service
}

// RecalculateAllResponse reports a recalculation over every student.
type RecalculateAllResponse struct {
	Recalculated int `json:"recalculated"`
}

func registerScoreAPI(g *echo.Group, jwt, authed echo.MiddlewareFunc, deps ServerDeps) {
	api := scoreApi{seasonSvc: deps.SeasonSvc}

	g.POST("/legacy-scores/recalculate", api.recalculateAll, jwt, authed, adminMiddleware(deps.MemberSvc))
	g.GET("/leaderboard", api.leaderboard, jwt, authed)
}

func (api *scoreApi) recalculateAll(ctx echo.Context) error {
	n, err := api.seasonSvc.RecalculateAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "recalculating legacy scores")
	}
	return ctx.JSON(http.StatusOK, RecalculateAllResponse{Recalculated: n})
}

func (api *scoreApi) leaderboard(ctx echo.Context) error {
	floor, err := intQueryParam(ctx, "floor")
	if err != nil {
		return err
	}
	limit, err := intQueryParam(ctx, "limit")
	if err != nil {
		return err
	}

	standings, err := api.seasonSvc.Standings(ctx.Request().Context(), season.StandingsFilter{
		Campus: ctx.QueryParam("campus"),
		Floor:  floor,
		Limit:  limit,
	})
	if err != nil {
		return errors.Wrap(err, "ranking students")
	}
	if standings == nil {
		standings = []season.Standing{}
	}
	return ctx.JSON(http.StatusOK, standings)
}
