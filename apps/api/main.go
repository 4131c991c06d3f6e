package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on http.DefaultServeMux
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	echoapi "github.com/trezcool/cohort/apps/api/echo"
	"github.com/trezcool/cohort/core"
	"github.com/trezcool/cohort/core/announcement"
	"github.com/trezcool/cohort/core/campus"
	"github.com/trezcool/cohort/core/member"
	"github.com/trezcool/cohort/core/mentorship"
	"github.com/trezcool/cohort/core/season"
	emailsvc "github.com/trezcool/cohort/services/email"
	logsvc "github.com/trezcool/cohort/services/logger"
	metricsvc "github.com/trezcool/cohort/services/metrics"
	"github.com/trezcool/cohort/storage/database"
	sqlxrepos "github.com/trezcool/cohort/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metricsvc.NewRecorder(registry)

	// set up repos & services
	engine := conf.Database.Engine
	locker := sqlxrepos.NewLocker(engine)
	mailSvc := emailsvc.NewService(conf, logger)

	campusSvc := campus.NewService(sqlxrepos.NewCampusRepository(db, engine))
	router := mentorship.NewRouter(mentorship.RouterDeps{
		DB:      db,
		Repo:    sqlxrepos.NewAssignmentRepository(db, engine),
		Locker:  locker,
		Scopes:  campusSvc,
		MailSvc: mailSvc,
		Metrics: recorder,
		Logger:  logger,
	})
	memberSvc := member.NewService(member.ServiceDeps{
		DB:       db,
		Repo:     sqlxrepos.NewMemberRepository(db, engine),
		Scopes:   campusSvc,
		Releaser: router,
		MailSvc:  mailSvc,
		Conf:     conf,
	})
	seasonSvc := season.NewService(season.ServiceDeps{
		DB:      db,
		Repo:    sqlxrepos.NewSeasonRepository(db, engine),
		Locker:  locker,
		Policy:  season.PolicyFromConfig(conf.Scoring),
		Metrics: recorder,
		Logger:  logger,
	})
	announcementSvc := announcement.NewService(sqlxrepos.NewAnnouncementRepository(db, engine), memberSvc, campusSvc, mailSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : %s", conf))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	member.RegisterValidators(validate, translator)

	core.ParseEmailTemplates(logger, false /* strict */)

	member.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:            conf,
			Logger:          logger,
			Validate:        validate,
			Translator:      translator,
			MemberSvc:       memberSvc,
			CampusSvc:       campusSvc,
			Router:          router,
			SeasonSvc:       seasonSvc,
			AnnouncementSvc: announcementSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB, conf.Database.Engine); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
