package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/edutrack/attendance/api"
	"github.com/edutrack/attendance/core"
	"github.com/edutrack/attendance/core/attendance"
	emailsvc "github.com/edutrack/attendance/services/email"
	logsvc "github.com/edutrack/attendance/services/logger"
	"github.com/edutrack/attendance/storage/database"
	inmemdb "github.com/edutrack/attendance/storage/database/inmem"
	sqlxrepos "github.com/edutrack/attendance/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	var logger core.Logger
	if conf.RollbarToken != "" && !conf.Debug {
		rollbar := logsvc.NewRollbarLogger(std, conf)
		rollbar.Enable(true)
		logger = rollbar
	} else {
		logger = logsvc.NewStdLogger(std)
	}

	// set up storage; without a database host we fall back to the in-memory store
	var repo attendance.Repository
	if conf.Database.Host != "" {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				logger.Error(fmt.Sprintf("closing database: %v", err), err)
			}
		}()
		repo = sqlxrepos.NewAttendanceRepository(db)
	} else {
		logger.Warn("no database configured; using the in-memory store")
		repo = inmemdb.NewAttendanceRepository(inmemdb.Open())
	}

	// set up services
	var mailSvc core.EmailService
	switch {
	case conf.SendgridApiKey != "":
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	case conf.Email.User != "" && conf.Email.Password != "":
		mailSvc = emailsvc.NewSMTPService(conf, logger)
	default:
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	}

	attSvc := attendance.NewService(repo, logger)
	dispatcher := attendance.NewDispatcher(mailSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := api.NewServer(
		&api.Options{
			Address:       conf.ServerAddress(),
			Conf:          conf,
			Logger:        logger,
			AttendanceSvc: attSvc,
			Dispatcher:    dispatcher,
			Validate:      validate,
			Translator:    translator,
		},
	)

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
