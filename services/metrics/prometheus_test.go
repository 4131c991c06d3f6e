package metricsvc

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.AssignmentPass("assigned", 3, time.Millisecond)
	r.AssignmentPass("assigned", 2, time.Millisecond)
	r.AssignmentPass("no_mentors", 0, time.Millisecond)
	r.Recalculation(time.Millisecond, nil)
	r.Recalculation(time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.assignmentPasses.WithLabelValues("assigned")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.assignmentPasses.WithLabelValues("no_mentors")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.assignmentsMade))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.recalculations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.recalculations.WithLabelValues("error")))

	assert.Panics(t, func() { NewRecorder(reg) }, "registering twice must fail")
}
