// Package campus manages the campus and floor structure members are scoped to.
package campus

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core"
)

var (
	// errors
	ErrNotFound = errors.New("campus not found")
	ErrExists   = errors.New("a campus with this code already exists")

	NowFunc = time.Now // mockable
)

type Campus struct {
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	FloorCount int       `json:"floor_count"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// HasFloor reports whether floor is one of the campus floors (1..FloorCount).
func (c Campus) HasFloor(floor int) bool {
	return floor >= 1 && floor <= c.FloorCount
}

type NewCampus struct {
	Code       string `json:"code" validate:"required,max=32,alphanum_"`
	Name       string `json:"name" validate:"required,notblank"`
	FloorCount int    `json:"floor_count" validate:"required,min=1,max=200"`
}

func (nc *NewCampus) Validate(validate *validator.Validate) error {
	nc.Code = core.CleanString(nc.Code, true /* lower */)
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

type (
	Repository interface {
		CreateCampus(ctx context.Context, c Campus, exec ...core.DBExecutor) (Campus, error)
		QueryCampuses(ctx context.Context, exec ...core.DBExecutor) ([]Campus, error)
		GetCampus(ctx context.Context, code string, exec ...core.DBExecutor) (Campus, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create persists a validated NewCampus.
func (svc *Service) Create(ctx context.Context, nc NewCampus) (Campus, error) {
	c, err := svc.repo.CreateCampus(ctx, Campus{
		Code:       nc.Code,
		Name:       nc.Name,
		FloorCount: nc.FloorCount,
		CreatedAt:  NowFunc().UTC(),
	})
	if errors.Cause(err) == ErrExists {
		return Campus{}, core.NewValidationError(err, core.FieldError{Field: "code", Error: ErrExists.Error()})
	}
	return c, err
}

func (svc *Service) Query(ctx context.Context) ([]Campus, error) {
	return svc.repo.QueryCampuses(ctx)
}

func (svc *Service) Get(ctx context.Context, code string) (Campus, error) {
	return svc.repo.GetCampus(ctx, core.CleanString(code, true /* lower */))
}

// CheckFloor returns a core.ValidationError when the campus does not exist or has no such floor.
func (svc *Service) CheckFloor(ctx context.Context, code string, floor int) error {
	c, err := svc.Get(ctx, code)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "campus", Error: ErrNotFound.Error()})
		}
		return errors.Wrap(err, "getting campus")
	}
	if !c.HasFloor(floor) {
		msg := fmt.Sprintf("floor must be between 1 and %d", c.FloorCount)
		return core.NewValidationError(errors.New(msg), core.FieldError{Field: "floor", Error: msg})
	}
	return nil
}
