package season

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/cohort/core"
)

type (
	ServiceDeps struct {
		DB      core.DB
		Repo    Repository
		Locker  core.ScopeLocker
		Policy  AscensionPolicy
		Metrics Recorder // optional
		Logger  core.Logger
	}

	Service struct {
		db      core.DB
		repo    Repository
		locker  core.ScopeLocker
		policy  AscensionPolicy
		metrics Recorder
		logger  core.Logger
	}
)

func NewService(deps ServiceDeps) *Service {
	return &Service{
		db:      deps.DB,
		repo:    deps.Repo,
		locker:  deps.Locker,
		policy:  deps.Policy,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
}

func (svc *Service) Policy() AscensionPolicy { return svc.policy }

// retryable marks persistence failures as retryable, leaving domain errors untouched.
func retryable(err error) error {
	if err == nil {
		return nil
	}
	switch errors.Cause(err) {
	case ErrNotFound, ErrSeasonCompleted:
		return err
	}
	if core.IsValidationError(err) || core.IsRetryable(err) {
		return err
	}
	return core.NewRetryableError(err)
}

func notAStudentError(studentID string) error {
	return core.NewValidationError(
		errors.Errorf("member %q is not a student", studentID),
		core.FieldError{Field: "student_id", Error: "student not found"},
	)
}

// RecordSeasonScore creates or updates the in-progress score of a student. It fails with ErrSeasonCompleted
// once the season is completed. NewSeasonScore must have been validated beforehand.
func (svc *Service) RecordSeasonScore(ctx context.Context, ns NewSeasonScore) (SeasonScore, error) {
	var saved SeasonScore
	err := core.RunInTx(ctx, svc.db, func(tx core.DBTransactor) error {
		if err := svc.locker.LockScope(ctx, tx, ScopeKey(ns.StudentID)); err != nil {
			return errors.Wrap(err, "locking scope")
		}
		exists, err := svc.repo.StudentExists(ctx, ns.StudentID, tx)
		if err != nil {
			return errors.Wrap(err, "checking student")
		}
		if !exists {
			return notAStudentError(ns.StudentID)
		}

		now := NowFunc().UTC()
		s, err := svc.repo.GetSeasonScore(ctx, ns.StudentID, ns.SeasonNumber, tx)
		switch errors.Cause(err) {
		case nil:
			if s.Completed {
				return errors.Wrapf(ErrSeasonCompleted, "season %d", s.SeasonNumber)
			}
		case ErrNotFound:
			s = SeasonScore{
				StudentID:    ns.StudentID,
				SeasonNumber: ns.SeasonNumber,
				Breakdown:    map[string]int{},
				CreatedAt:    now,
			}
		default:
			return errors.Wrap(err, "getting season score")
		}

		if ns.Breakdown != nil {
			s.Breakdown = ns.Breakdown
		}
		switch {
		case ns.TotalScore != nil:
			s.TotalScore = *ns.TotalScore
		case ns.Breakdown != nil:
			s.TotalScore = SumBreakdown(ns.Breakdown)
		}
		s.UpdatedAt = now

		saved, err = svc.repo.UpsertSeasonScore(ctx, s, tx)
		return errors.Wrap(err, "upserting season score")
	})
	if err != nil {
		return SeasonScore{}, retryable(err)
	}
	return saved, nil
}

// CompleteSeason freezes a season score and recalculates the student's legacy score in the same transaction.
func (svc *Service) CompleteSeason(ctx context.Context, studentID string, season int) (LegacyScore, error) {
	var ls LegacyScore
	err := svc.observe(func() error {
		return core.RunInTx(ctx, svc.db, func(tx core.DBTransactor) error {
			if err := svc.locker.LockScope(ctx, tx, ScopeKey(studentID)); err != nil {
				return errors.Wrap(err, "locking scope")
			}
			s, err := svc.repo.GetSeasonScore(ctx, studentID, season, tx)
			if err != nil {
				return errors.Wrap(err, "getting season score")
			}
			if s.Completed {
				return errors.Wrapf(ErrSeasonCompleted, "season %d", s.SeasonNumber)
			}

			now := NowFunc().UTC()
			s.Completed = true
			s.CompletedAt = now
			s.UpdatedAt = now
			if _, err := svc.repo.UpsertSeasonScore(ctx, s, tx); err != nil {
				return errors.Wrap(err, "upserting season score")
			}

			ls, err = svc.recalculate(ctx, tx, studentID)
			return err
		})
	})
	if err != nil {
		return LegacyScore{}, retryable(err)
	}
	return ls, nil
}

// Recalculate recomputes the legacy score of a student from their completed seasons and stores it.
// It overwrites any previous value and is safe to re-run. A student without completed seasons gets an all-zero
// score; an unknown student gets an all-zero score that is not stored.
func (svc *Service) Recalculate(ctx context.Context, studentID string) (LegacyScore, error) {
	var ls LegacyScore
	err := svc.observe(func() error {
		return core.RunInTx(ctx, svc.db, func(tx core.DBTransactor) error {
			if err := svc.locker.LockScope(ctx, tx, ScopeKey(studentID)); err != nil {
				return errors.Wrap(err, "locking scope")
			}
			var err error
			ls, err = svc.recalculate(ctx, tx, studentID)
			return err
		})
	})
	if err != nil {
		return LegacyScore{}, retryable(errors.Wrapf(err, "recalculating legacy score of %q", studentID))
	}
	return ls, nil
}

// recalculate must run inside a transaction holding the student's scope lock.
func (svc *Service) recalculate(ctx context.Context, tx core.DBExecutor, studentID string) (LegacyScore, error) {
	scores, err := svc.repo.QuerySeasonScores(ctx, SeasonFilter{StudentID: studentID, CompletedOnly: true}, tx)
	if err != nil {
		return LegacyScore{}, errors.Wrap(err, "querying season scores")
	}
	ls := Aggregate(studentID, scores, svc.policy)

	exists, err := svc.repo.StudentExists(ctx, studentID, tx)
	if err != nil {
		return LegacyScore{}, errors.Wrap(err, "checking student")
	}
	if !exists {
		return ls, nil
	}

	ls.UpdatedAt = NowFunc().UTC()
	ls, err = svc.repo.UpsertLegacyScore(ctx, ls, tx)
	return ls, errors.Wrap(err, "upserting legacy score")
}

func (svc *Service) observe(fn func() error) error {
	start := NowFunc()
	err := fn()
	if svc.metrics != nil {
		svc.metrics.Recalculation(NowFunc().Sub(start), err)
	}
	return err
}

// RecalculateAll recalculates the legacy score of every student, each in its own transaction.
// It keeps going after a failure and returns the number of students recalculated and the first error.
func (svc *Service) RecalculateAll(ctx context.Context) (int, error) {
	ids, err := svc.repo.QueryStudentIDs(ctx)
	if err != nil {
		return 0, retryable(errors.Wrap(err, "querying students"))
	}

	var (
		count    int
		firstErr error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			break
		}
		if _, err := svc.Recalculate(ctx, id); err != nil {
			if svc.logger != nil {
				svc.logger.Error(err.Error(), err)
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		count++
	}
	return count, firstErr
}

func (svc *Service) QuerySeasonScores(ctx context.Context, studentID string) ([]SeasonScore, error) {
	return svc.repo.QuerySeasonScores(ctx, SeasonFilter{StudentID: studentID})
}

func (svc *Service) GetSeasonScore(ctx context.Context, studentID string, season int) (SeasonScore, error) {
	return svc.repo.GetSeasonScore(ctx, studentID, season)
}

// GetLegacyScore returns the stored legacy score of a student, or an all-zero one when none was computed yet.
func (svc *Service) GetLegacyScore(ctx context.Context, studentID string) (LegacyScore, error) {
	ls, err := svc.repo.GetLegacyScore(ctx, studentID)
	if errors.Cause(err) == ErrNotFound {
		return LegacyScore{StudentID: studentID}, nil
	}
	return ls, err
}
