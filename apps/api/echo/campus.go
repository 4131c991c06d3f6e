package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core/announcement"
	"github.com/trezcool/cohort/core/campus"
	"github.com/trezcool/cohort/core/member"
	"github.com/trezcool/cohort/core/mentorship"
)

type campusApi struct {
	svc             *campus.Service
	memberSvc       *member.Service
	router          *mentorship.Router
	announcementSvc *announcement.Service
	validate        *validator.Validate
}

func registerCampusAPI(g *echo.Group, jwt, authed echo.MiddlewareFunc, deps ServerDeps) {
	api := campusApi{
		svc:             deps.CampusSvc,
		memberSvc:       deps.MemberSvc,
		router:          deps.Router,
		announcementSvc: deps.AnnouncementSvc,
		validate:        deps.Validate,
	}

	ag := g.Group("", jwt, authed)
	ag.GET("", api.query)
	ag.POST("", api.create, adminMiddleware(api.memberSvc))
	ag.GET("/:campus", api.retrieve)

	// floor endpoints
	staff := floorMiddleware(api.memberSvc, false)
	fg := ag.Group("/:campus/floors/:floor")
	fg.POST("/assign-mentors", api.assignMentors, staff)
	fg.GET("/assignments", api.queryAssignments, staff)
	fg.GET("/announcements", api.queryAnnouncements, floorMiddleware(api.memberSvc, true))
	fg.POST("/announcements", api.postAnnouncement, staff)
}

// Handlers

func (api *campusApi) create(ctx echo.Context) error {
	var data campus.NewCampus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCampus")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating campus")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *campusApi) query(ctx echo.Context) error {
	campuses, err := api.svc.Query(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying campuses")
	}
	if campuses == nil {
		campuses = []campus.Campus{}
	}
	return ctx.JSON(http.StatusOK, campuses)
}

func (api *campusApi) retrieve(ctx echo.Context) error {
	c, err := api.svc.Get(ctx.Request().Context(), ctx.Param("campus"))
	if err != nil {
		return errors.Wrap(err, "getting campus")
	}
	return ctx.JSON(http.StatusOK, c)
}

// assignMentors runs an assignment pass over the floor. A pass finding no mentors is reported with a 409.
func (api *campusApi) assignMentors(ctx echo.Context) error {
	campusCode, floor, err := scopeParams(ctx)
	if err != nil {
		return err
	}

	var opts []mentorship.AssignOption
	if val := ctx.QueryParam("force"); val != "" {
		force, err := strconv.ParseBool(val)
		if err != nil {
			return queryParamError("force", "must be a boolean")
		}
		if force {
			opts = append(opts, mentorship.WithForce())
		}
	}

	res, err := api.router.Assign(ctx.Request().Context(), campusCode, floor, opts...)
	if err != nil {
		return errors.Wrap(err, "assigning mentors")
	}
	if res.Status == mentorship.StatusNoMentors {
		return ctx.JSON(http.StatusConflict, res)
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *campusApi) queryAssignments(ctx echo.Context) error {
	campusCode, floor, err := scopeParams(ctx)
	if err != nil {
		return err
	}
	if err := api.svc.CheckFloor(ctx.Request().Context(), campusCode, floor); err != nil {
		return errHttpNotFound
	}

	assignments, err := api.router.QueryAssignments(ctx.Request().Context(), mentorship.QueryFilter{
		Campus:   campusCode,
		Floor:    floor,
		MentorID: ctx.QueryParam("mentor"),
	})
	if err != nil {
		return errors.Wrap(err, "querying assignments")
	}
	if assignments == nil {
		assignments = []mentorship.Assignment{}
	}
	return ctx.JSON(http.StatusOK, assignments)
}

func (api *campusApi) queryAnnouncements(ctx echo.Context) error {
	campusCode, floor, err := scopeParams(ctx)
	if err != nil {
		return err
	}
	limit, err := intQueryParam(ctx, "limit")
	if err != nil {
		return err
	}

	announcements, err := api.announcementSvc.Query(ctx.Request().Context(), announcement.QueryFilter{
		Campus: campusCode,
		Floor:  floor,
		Limit:  limit,
	})
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	if announcements == nil {
		announcements = []announcement.Announcement{}
	}
	return ctx.JSON(http.StatusOK, announcements)
}

func (api *campusApi) postAnnouncement(ctx echo.Context) error {
	campusCode, floor, err := scopeParams(ctx)
	if err != nil {
		return err
	}
	author, err := getContextMember(ctx, api.memberSvc)
	if err != nil {
		return errors.Wrap(err, "getting context member")
	}

	var data announcement.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	data.Campus, data.Floor = campusCode, floor
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.announcementSvc.Post(ctx.Request().Context(), author, data)
	if err != nil {
		return errors.Wrap(err, "posting announcement")
	}
	return ctx.JSON(http.StatusCreated, a)
}
