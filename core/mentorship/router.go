package mentorship

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/member"
)

type (
	RouterDeps struct {
		DB      core.DB
		Repo    Repository
		Locker  core.ScopeLocker
		Scopes  ScopeChecker      // optional
		MailSvc core.EmailService // optional
		Metrics Recorder          // optional
		Logger  core.Logger
	}

	// Router distributes the students of a campus floor over its mentors, round-robin.
	Router struct {
		db      core.DB
		repo    Repository
		locker  core.ScopeLocker
		scopes  ScopeChecker
		mailSvc core.EmailService
		metrics Recorder
		logger  core.Logger
	}
)

var _ member.AssignmentReleaser = (*Router)(nil) // interface compliance check

func NewRouter(deps RouterDeps) *Router {
	return &Router{
		db:      deps.DB,
		repo:    deps.Repo,
		locker:  deps.Locker,
		scopes:  deps.Scopes,
		mailSvc: deps.MailSvc,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
}

// Distribute gives students[i] to mentors[i mod len(mentors)]. Both slices must be in their stable order.
func Distribute(studentIDs, mentorIDs []string) []Assignment {
	if len(mentorIDs) == 0 {
		return nil
	}
	assignments := make([]Assignment, len(studentIDs))
	for i, sID := range studentIDs {
		assignments[i] = Assignment{StudentID: sID, MentorID: mentorIDs[i%len(mentorIDs)]}
	}
	return assignments
}

func (r *Router) checkScope(ctx context.Context, campus string, floor int) error {
	var flds []core.FieldError
	if campus == "" {
		flds = append(flds, core.FieldError{Field: "campus", Error: "this field is required"})
	}
	if floor < 1 {
		flds = append(flds, core.FieldError{Field: "floor", Error: "floor must be greater than 0"})
	}
	if flds != nil {
		return core.NewValidationError(errors.New("invalid campus floor"), flds...)
	}
	if r.scopes == nil {
		return nil
	}
	return r.scopes.CheckFloor(ctx, campus, floor)
}

// Assign gives a mentor to every unassigned active student of the campus floor.
// The pass runs in one transaction holding the floor's scope lock: it either assigns every student or none.
// A floor without mentors is reported through the result's Status and Error, not as a Go error.
// Persistence failures are returned as core.RetryableError.
func (r *Router) Assign(ctx context.Context, campus string, floor int, opts ...AssignOption) (AssignmentResult, error) {
	o := assignOptions{notify: true}
	for _, opt := range opts {
		opt(&o)
	}

	campus = core.CleanString(campus, true /* lower */)
	if err := r.checkScope(ctx, campus, floor); err != nil {
		return AssignmentResult{}, err
	}

	start := NowFunc()
	res := AssignmentResult{Campus: campus, Floor: floor, PerMentorCounts: map[string]int{}, Assignments: []Assignment{}}
	members := make(map[string]member.Member)

	err := core.RunInTx(ctx, r.db, func(tx core.DBTransactor) error {
		if err := r.locker.LockScope(ctx, tx, ScopeKey(campus, floor)); err != nil {
			return errors.Wrap(err, "locking scope")
		}

		mentors, err := r.repo.QueryScopeMembers(ctx, ScopeFilter{Role: member.RoleMentor, Campus: campus, Floor: floor}, tx)
		if err != nil {
			return errors.Wrap(err, "querying mentors")
		}
		if len(mentors) == 0 {
			res.Status = StatusNoMentors
			res.Error = ErrNoMentors.Error()
			return nil
		}
		mentorIDs := make([]string, len(mentors))
		for i, m := range mentors {
			mentorIDs[i] = m.ID
			res.PerMentorCounts[m.ID] = 0
			members[m.ID] = m
		}

		students, err := r.repo.QueryScopeMembers(ctx, ScopeFilter{
			Role:           member.RoleStudent,
			Campus:         campus,
			Floor:          floor,
			UnassignedOnly: !o.force,
		}, tx)
		if err != nil {
			return errors.Wrap(err, "querying students")
		}
		if len(students) == 0 {
			res.Status = StatusNothingToDo
			return nil
		}
		studentIDs := make([]string, len(students))
		for i, s := range students {
			studentIDs[i] = s.ID
			members[s.ID] = s
		}

		now := NowFunc().UTC()
		assignments := Distribute(studentIDs, mentorIDs)
		for i := range assignments {
			assignments[i].Campus = campus
			assignments[i].Floor = floor
			assignments[i].AssignedAt = now
			res.PerMentorCounts[assignments[i].MentorID]++
		}
		if err := r.repo.UpsertAssignments(ctx, assignments, tx); err != nil {
			return errors.Wrap(err, "upserting assignments")
		}

		res.Status = StatusAssigned
		res.AssignedCount = len(assignments)
		res.Assignments = assignments
		return nil
	})
	if err != nil {
		if r.metrics != nil {
			r.metrics.AssignmentPass("failed", 0, NowFunc().Sub(start))
		}
		return AssignmentResult{}, core.NewRetryableError(errors.Wrapf(err, "assigning mentors of %s", ScopeKey(campus, floor)))
	}

	if r.metrics != nil {
		r.metrics.AssignmentPass(string(res.Status), res.AssignedCount, NowFunc().Sub(start))
	}
	if o.notify && res.Status == StatusAssigned {
		r.notify(res, members)
	}
	return res, nil
}

// notify emails every newly assigned student the name of their mentor.
func (r *Router) notify(res AssignmentResult, members map[string]member.Member) {
	if r.mailSvc == nil {
		return
	}
	msgs := make([]*core.EmailMessage, 0, len(res.Assignments))
	for _, a := range res.Assignments {
		student, mentor := members[a.StudentID], members[a.MentorID]
		if student.Email == "" {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: student.Name, Address: student.Email}},
			Subject:      "Your mentor",
			TemplateName: "mentor_assigned",
			TemplateData: map[string]interface{}{
				"StudentName": student.Name,
				"MentorName":  mentor.Name,
				"MentorEmail": mentor.Email,
				"Campus":      a.Campus,
				"Floor":       a.Floor,
			},
		})
	}
	if len(msgs) > 0 {
		r.mailSvc.SendMessages(msgs...)
		if r.logger != nil {
			r.logger.Info(fmt.Sprintf("mentor assignment: %d notification(s) sent for %s", len(msgs), ScopeKey(res.Campus, res.Floor)))
		}
	}
}

func (r *Router) QueryAssignments(ctx context.Context, filter QueryFilter) ([]Assignment, error) {
	filter.Campus = core.CleanString(filter.Campus, true /* lower */)
	return r.repo.QueryAssignments(ctx, filter)
}

func (r *Router) GetAssignment(ctx context.Context, studentID string) (Assignment, error) {
	return r.repo.GetAssignment(ctx, studentID)
}

// Unassign removes the mentor of a student.
func (r *Router) Unassign(ctx context.Context, studentID string) error {
	n, err := r.repo.DeleteAssignments(ctx, DeleteFilter{StudentID: studentID})
	if err != nil {
		return core.NewRetryableError(errors.Wrap(err, "deleting assignment"))
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Release removes every assignment m takes part in, as student or as mentor, under the scope lock of m's floor.
// It is called before a member gets deleted.
func (r *Router) Release(ctx context.Context, m member.Member) (int, error) {
	var n int
	err := core.RunInTx(ctx, r.db, func(tx core.DBTransactor) error {
		var err error
		n, err = r.ReleaseInTx(ctx, tx, m)
		return err
	})
	if err != nil {
		return 0, core.NewRetryableError(errors.Wrapf(err, "releasing assignments of %q", m.ID))
	}
	return n, nil
}

// ReleaseInTx removes every assignment m takes part in on tx, after locking the scope of m's floor.
// An assignment pass on that floor waits for tx to end, so it never sees m with stale assignments.
func (r *Router) ReleaseInTx(ctx context.Context, tx core.DBExecutor, m member.Member) (int, error) {
	if m.Role.RequiresScope() && m.Campus != "" && m.Floor > 0 {
		if err := r.locker.LockScope(ctx, tx, ScopeKey(m.Campus, m.Floor)); err != nil {
			return 0, errors.Wrap(err, "locking scope")
		}
	}
	n, err := r.repo.DeleteAssignments(ctx, DeleteFilter{MemberID: m.ID}, tx)
	if err != nil {
		return 0, errors.Wrap(err, "deleting assignments")
	}
	return n, nil
}
