package campus_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/campus"
	"github.com/trezcool/cohort/tests"
)

func TestNewCampus_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	tests := []struct {
		name    string
		nc      campus.NewCampus
		want    string
		wantErr bool
	}{
		{name: "valid", nc: campus.NewCampus{Code: " KGL_1 ", Name: " Kigali ", FloorCount: 4}, want: "kgl_1"},
		{name: "no code", nc: campus.NewCampus{Name: "Kigali", FloorCount: 4}, wantErr: true},
		{name: "bad code", nc: campus.NewCampus{Code: "kg-l", Name: "Kigali", FloorCount: 4}, wantErr: true},
		{name: "blank name", nc: campus.NewCampus{Code: "kgl", Name: "   ", FloorCount: 4}, wantErr: true},
		{name: "no floors", nc: campus.NewCampus{Code: "kgl", Name: "Kigali"}, wantErr: true},
		{name: "too many floors", nc: campus.NewCampus{Code: "kgl", Name: "Kigali", FloorCount: 201}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nc := tt.nc
			err := nc.Validate(validate)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				assert.Equal(t, tt.want, nc.Code)
			}
		})
	}
}

func TestService(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t)

	c, err := env.CampusSvc.Create(ctx, campus.NewCampus{Code: "kgl", Name: "Kigali", FloorCount: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, c.FloorCount)

	_, err = env.CampusSvc.Create(ctx, campus.NewCampus{Code: "kgl", Name: "Kigali bis", FloorCount: 1})
	if !core.IsValidationError(err) {
		t.Errorf("Create() error = %v, wantErr ValidationError", err)
	}

	got, err := env.CampusSvc.Get(ctx, "KGL")
	require.NoError(t, err)
	assert.Equal(t, "Kigali", got.Name)
	_, err = env.CampusSvc.Get(ctx, "lol")
	assert.Equal(t, campus.ErrNotFound, errors.Cause(err))

	all, err := env.CampusSvc.Query(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	tests := []struct {
		name    string
		code    string
		floor   int
		wantErr bool
	}{
		{name: "first floor", code: "kgl", floor: 1},
		{name: "last floor", code: "kgl", floor: 3},
		{name: "floor 0", code: "kgl", floor: 0, wantErr: true},
		{name: "above last floor", code: "kgl", floor: 4, wantErr: true},
		{name: "unknown campus", code: "lol", floor: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.CampusSvc.CheckFloor(ctx, tt.code, tt.floor)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckFloor() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !core.IsValidationError(err) {
				t.Errorf("CheckFloor() error = %v, want ValidationError", err)
			}
		})
	}
}
