// Package mentorship routes the students of a campus floor to the mentors of the same floor.
package mentorship

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/member"
)

var (
	// errors
	ErrNoMentors = errors.New("no mentors available")
	ErrNotFound  = errors.New("assignment not found")

	NowFunc = time.Now // mockable
)

// Status tells how an assignment pass ended.
type Status string

const (
	StatusAssigned    Status = "assigned"
	StatusNothingToDo Status = "nothing_to_do"
	StatusNoMentors   Status = "no_mentors"
)

// Assignment links a student to their mentor. A student has at most one mentor.
type Assignment struct {
	StudentID  string    `json:"student_id"`
	MentorID   string    `json:"mentor_id"`
	Campus     string    `json:"campus"`
	Floor      int       `json:"floor"`
	AssignedAt time.Time `json:"assigned_at"` // UTC
}

// AssignmentResult reports an assignment pass over one campus floor.
// PerMentorCounts holds the number of students given to each mentor of the floor during this pass,
// zero loads included.
type AssignmentResult struct {
	Campus          string         `json:"campus"`
	Floor           int            `json:"floor"`
	Status          Status         `json:"status"`
	AssignedCount   int            `json:"assigned_count"`
	PerMentorCounts map[string]int `json:"per_mentor_counts"`
	Assignments     []Assignment   `json:"assignments"`
	Error           string         `json:"error,omitempty"`
}

// ScopeFilter selects the active members of a campus floor holding Role.
type ScopeFilter struct {
	Role   member.Role
	Campus string
	Floor  int
	// UnassignedOnly keeps the members without an assignment as student.
	UnassignedOnly bool
}

// QueryFilter applies AND operation on its non-zero fields.
type QueryFilter struct {
	Campus   string
	Floor    int
	MentorID string
}

// DeleteFilter deletes the assignment of StudentID, or every assignment MemberID takes part in.
type DeleteFilter struct {
	StudentID string
	MemberID  string
}

type (
	Repository interface {
		// QueryScopeMembers returns the matching members ordered by ID ascending.
		QueryScopeMembers(ctx context.Context, filter ScopeFilter, exec ...core.DBExecutor) ([]member.Member, error)
		// UpsertAssignments creates the assignments, overwriting the mentor of already assigned students.
		UpsertAssignments(ctx context.Context, assignments []Assignment, exec ...core.DBExecutor) error
		QueryAssignments(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Assignment, error)
		GetAssignment(ctx context.Context, studentID string, exec ...core.DBExecutor) (Assignment, error)
		DeleteAssignments(ctx context.Context, filter DeleteFilter, exec ...core.DBExecutor) (int, error)
	}

	// ScopeChecker verifies that a campus floor exists.
	ScopeChecker interface {
		CheckFloor(ctx context.Context, campus string, floor int) error
	}

	// Recorder records assignment pass metrics.
	Recorder interface {
		AssignmentPass(status string, assigned int, took time.Duration)
	}
)

// ScopeKey is the lock key of an assignment pass.
func ScopeKey(campus string, floor int) string {
	return fmt.Sprintf("mentorship:%s:%d", campus, floor)
}

type assignOptions struct {
	force  bool
	notify bool
}

type AssignOption func(*assignOptions)

// WithForce reassigns every student of the floor, overwriting existing assignments.
func WithForce() AssignOption {
	return func(o *assignOptions) { o.force = true }
}

// WithoutNotification skips the emails sent to newly assigned students.
func WithoutNotification() AssignOption {
	return func(o *assignOptions) { o.notify = false }
}
