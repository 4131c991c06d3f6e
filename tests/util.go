// Package testutil sets up in-memory databases, services and fixtures for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/announcement"
	"github.com/trezcool/cohort/core/campus"
	"github.com/trezcool/cohort/core/member"
	"github.com/trezcool/cohort/core/mentorship"
	"github.com/trezcool/cohort/core/season"
	emailsvc "github.com/trezcool/cohort/services/email"
	"github.com/trezcool/cohort/storage/database"
	sqlxrepos "github.com/trezcool/cohort/storage/database/sqlx"
)

// PrepareDB opens a migrated in-memory SQLite database, closed when the test ends.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conf := core.NewTestConfig()
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db.DB, conf.Database.Engine); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

type testLogger struct {
	t *testing.T
}

var _ core.Logger = (*testLogger)(nil)

// NewLogger returns a core.Logger printing through t.Logf.
func NewLogger(t *testing.T) core.Logger { return testLogger{t: t} }

func (l testLogger) log(level, msg string, args []interface{}) {
	l.t.Helper()
	if len(args) > 0 {
		l.t.Logf("%s: %s %+v", level, msg, args)
		return
	}
	l.t.Logf("%s: %s", level, msg)
}

func (l testLogger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l testLogger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l testLogger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.t.Fatalf("FATAL: %s %+v", msg, args) }

// Env bundles the repositories and services of a test database.
type Env struct {
	DB     *sqlx.DB
	Conf   *core.Config
	Logger core.Logger

	CampusRepo       campus.Repository
	MemberRepo       member.Repository
	AssignmentRepo   mentorship.Repository
	SeasonRepo       season.Repository
	AnnouncementRepo announcement.Repository

	MailSvc         core.EmailService
	CampusSvc       *campus.Service
	MemberSvc       *member.Service
	Router          *mentorship.Router
	SeasonSvc       *season.Service
	AnnouncementSvc *announcement.Service
}

// NewEnv wires every service on a fresh database. Emails are recorded in emailsvc.SentMessages, not printed.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	db := PrepareDB(t)
	conf := core.NewTestConfig()
	engine := conf.Database.Engine
	logger := NewLogger(t)
	locker := sqlxrepos.NewLocker(engine)

	env := &Env{
		DB:               db,
		Conf:             conf,
		Logger:           logger,
		CampusRepo:       sqlxrepos.NewCampusRepository(db, engine),
		MemberRepo:       sqlxrepos.NewMemberRepository(db, engine),
		AssignmentRepo:   sqlxrepos.NewAssignmentRepository(db, engine),
		SeasonRepo:       sqlxrepos.NewSeasonRepository(db, engine),
		AnnouncementRepo: sqlxrepos.NewAnnouncementRepository(db, engine),
		MailSvc:          emailsvc.NewConsoleServiceMock(conf, logger),
	}
	env.CampusSvc = campus.NewService(env.CampusRepo)
	env.Router = mentorship.NewRouter(mentorship.RouterDeps{
		DB:      db,
		Repo:    env.AssignmentRepo,
		Locker:  locker,
		Scopes:  env.CampusSvc,
		MailSvc: env.MailSvc,
		Logger:  logger,
	})
	env.MemberSvc = member.NewService(member.ServiceDeps{
		DB:       db,
		Repo:     env.MemberRepo,
		Scopes:   env.CampusSvc,
		Releaser: env.Router,
		MailSvc:  env.MailSvc,
		Conf:     conf,
	})
	env.SeasonSvc = season.NewService(season.ServiceDeps{
		DB:     db,
		Repo:   env.SeasonRepo,
		Locker: locker,
		Policy: season.PolicyFromConfig(conf.Scoring),
		Logger: logger,
	})
	env.AnnouncementSvc = announcement.NewService(env.AnnouncementRepo, env.MemberSvc, env.CampusSvc, env.MailSvc)

	core.ParseEmailTemplates(logger, true /* strict */)
	emailsvc.ResetSentMessages()
	t.Cleanup(emailsvc.ResetSentMessages)
	return env
}

func CreateCampus(t *testing.T, repo campus.Repository, code, name string, floorCount int) campus.Campus {
	t.Helper()

	c, err := repo.CreateCampus(context.Background(), campus.Campus{
		Code:       code,
		Name:       name,
		FloorCount: floorCount,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateCampus() failed: %v", err)
	}
	return c
}

// CreateMember stores a member without validation. Scope fields are ignored for admins.
func CreateMember(
	t *testing.T,
	repo member.Repository,
	name, uname, email, pwd string,
	role member.Role,
	campusCode string,
	floor int,
	isActive bool,
	createdAt ...time.Time,
) member.Member {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	m := member.Member{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if role.RequiresScope() {
		m.Campus = campusCode
		m.Floor = floor
	}
	if pwd != "" {
		if err := m.SetPassword(pwd); err != nil {
			t.Fatalf("CreateMember() failed: %v", err)
		}
	}
	m, err := repo.CreateMember(context.Background(), m)
	if err != nil {
		t.Fatalf("CreateMember() failed: %v", err)
	}
	return m
}

// CreateSeasonScore stores a season score as is.
func CreateSeasonScore(t *testing.T, repo season.Repository, studentID string, seasonNumber, total int, completed bool) season.SeasonScore {
	t.Helper()

	now := time.Now().UTC()
	s := season.SeasonScore{
		StudentID:    studentID,
		SeasonNumber: seasonNumber,
		TotalScore:   total,
		Completed:    completed,
		Breakdown:    map[string]int{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if completed {
		s.CompletedAt = now
	}
	s, err := repo.UpsertSeasonScore(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateSeasonScore() failed: %v", err)
	}
	return s
}
