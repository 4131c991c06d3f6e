package echoapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/member"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// positiveParam parses a route param holding a number >= 1; anything else is a not found.
func positiveParam(ctx echo.Context, name string) (int, error) {
	n, err := strconv.Atoi(ctx.Param(name))
	if err != nil || n < 1 {
		return 0, errHttpNotFound
	}
	return n, nil
}

// scopeParams returns the :campus and :floor route params.
func scopeParams(ctx echo.Context) (string, int, error) {
	floor, err := positiveParam(ctx, "floor")
	if err != nil {
		return "", 0, err
	}
	return core.CleanString(ctx.Param("campus"), true /* lower */), floor, nil
}

func queryParamError(name, msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, echo.Map{name: msg})
}

// intQueryParam parses an optional non negative number.
func intQueryParam(ctx echo.Context, name string) (int, error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, queryParamError(name, "must be a positive number")
	}
	return n, nil
}

// bindMemberFilter reads the member query filter; the second return is false when the filter can match nothing.
func bindMemberFilter(ctx echo.Context) (*member.QueryFilter, bool, error) {
	filter := &member.QueryFilter{
		Search: ctx.QueryParam("search"),
		Campus: ctx.QueryParam("campus"),
	}

	for _, r := range ctx.QueryParams()["role"] {
		role, err := member.ParseRole(core.CleanString(r, true /* lower */))
		if err != nil {
			return filter, false, nil
		}
		filter.Roles = append(filter.Roles, role)
	}

	floor, err := intQueryParam(ctx, "floor")
	if err != nil {
		return nil, false, err
	}
	filter.Floor = floor

	if val := ctx.QueryParam("is_active"); val != "" {
		isActive, err := strconv.ParseBool(val)
		if err != nil {
			return nil, false, queryParamError("is_active", "must be a boolean")
		}
		filter.IsActive = &isActive
	}

	for name, dst := range map[string]*time.Time{"created_from": &filter.CreatedFrom, "created_to": &filter.CreatedTo} {
		if val := ctx.QueryParam(name); val != "" {
			t, err := time.Parse(time.RFC3339, val)
			if err != nil {
				return nil, false, queryParamError(name, "must be an RFC 3339 date")
			}
			*dst = t
		}
	}

	filter.Clean()
	return filter, true, nil
}
