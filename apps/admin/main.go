package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/campus"
	"github.com/trezcool/cohort/core/member"
	"github.com/trezcool/cohort/core/mentorship"
	"github.com/trezcool/cohort/core/season"
	emailsvc "github.com/trezcool/cohort/services/email"
	logsvc "github.com/trezcool/cohort/services/logger"
	"github.com/trezcool/cohort/storage/database"
	sqlxrepos "github.com/trezcool/cohort/storage/database/sqlx"
)

var logger *logsvc.RollbarLogger

func main() {
	conf := core.NewConfig()

	logger = logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	errAndDie(db.Ping())

	// set up services
	engine := conf.Database.Engine
	locker := sqlxrepos.NewLocker(engine)
	mailSvc := emailsvc.NewService(conf, logger)
	core.ParseEmailTemplates(logger, false /* strict */)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	member.RegisterValidators(validate, translator)

	campusSvc := campus.NewService(sqlxrepos.NewCampusRepository(db, engine))
	router := mentorship.NewRouter(mentorship.RouterDeps{
		DB:      db,
		Repo:    sqlxrepos.NewAssignmentRepository(db, engine),
		Locker:  locker,
		Scopes:  campusSvc,
		MailSvc: mailSvc,
		Logger:  logger,
	})
	cli := commandLine{
		conf:     conf,
		db:       db,
		validate: validate,
		memberSvc: member.NewService(member.ServiceDeps{
			DB:       db,
			Repo:     sqlxrepos.NewMemberRepository(db, engine),
			Scopes:   campusSvc,
			Releaser: router,
			MailSvc:  mailSvc,
			Conf:     conf,
		}),
		router: router,
		seasonSvc: season.NewService(season.ServiceDeps{
			DB:     db,
			Repo:   sqlxrepos.NewSeasonRepository(db, engine),
			Locker: locker,
			Policy: season.PolicyFromConfig(conf.Scoring),
			Logger: logger,
		}),
	}

	// start CLI
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			fmt.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
