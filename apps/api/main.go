package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/fortytworoma/monitor/apps/api/echo"
	"github.com/fortytworoma/monitor/core"
	"github.com/fortytworoma/monitor/core/announce"
	"github.com/fortytworoma/monitor/core/banner"
	"github.com/fortytworoma/monitor/core/cluster"
	"github.com/fortytworoma/monitor/core/event"
	"github.com/fortytworoma/monitor/core/identity"
	"github.com/fortytworoma/monitor/metrics"
	"github.com/fortytworoma/monitor/services/clusterfeed"
	emailsvc "github.com/fortytworoma/monitor/services/email"
	intrasvc "github.com/fortytworoma/monitor/services/intra"
	logsvc "github.com/fortytworoma/monitor/services/logger"
	"github.com/fortytworoma/monitor/storage/auditlog"
	"github.com/fortytworoma/monitor/storage/jsonfile"
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

	feedLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "FEED : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	feedLogger.Enable(!conf.Debug)

	// set up stores
	announceRepo := jsonfile.NewAnnouncementRepository(conf.DataDir)
	bannerRepo := jsonfile.NewBannerRepository(conf.DataDir)
	maintRepo := jsonfile.NewMaintenanceRepository(conf.DataDir)
	eventRepo := jsonfile.NewEventRepository(conf.DataDir)
	audit := auditlog.NewFileLog(conf.DataDir, logger)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	intra := intrasvc.NewClient(conf)
	feed := metrics.InstrumentSource(clusterfeed.NewClient(conf))

	announceSvc := announce.NewService(announceRepo)
	bannerSvc := banner.NewService(bannerRepo)
	clusterSvc := cluster.NewService(feed, maintRepo, mailSvc, conf, feedLogger)
	eventSvc := event.NewService(intra, eventRepo, feedLogger)
	identitySvc := identity.NewService(intra, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	metrics.Register(clusterSvc, announceSvc)

	pollCtx, stopPolling := context.WithCancel(context.Background())
	defer stopPolling()
	clusterSvc.StartPolling(pollCtx, conf.Statusd.RefreshInterval)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddr, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			AnnounceSvc: announceSvc,
			BannerSvc:   bannerSvc,
			ClusterSvc:  clusterSvc,
			EventSvc:    eventSvc,
			IdentitySvc: identitySvc,
			AuditLog:    audit,
			Validate:    validate,
			Translator:  translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		stopPolling()

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
