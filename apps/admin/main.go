package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/fortytworoma/monitor/core"
	"github.com/fortytworoma/monitor/core/announce"
	"github.com/fortytworoma/monitor/core/banner"
	logsvc "github.com/fortytworoma/monitor/services/logger"
	"github.com/fortytworoma/monitor/storage/auditlog"
	"github.com/fortytworoma/monitor/storage/jsonfile"
)

var std *log.Logger

func main() {
	defer os.Exit(0)

	std = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	core.InitValidators(validate, newTranslator())

	// start CLI on the same stores the API serves from
	cli := commandLine{
		annSvc:    announce.NewService(jsonfile.NewAnnouncementRepository(conf.DataDir)),
		bnrSvc:    banner.NewService(jsonfile.NewBannerRepository(conf.DataDir)),
		maintRepo: jsonfile.NewMaintenanceRepository(conf.DataDir),
		audit:     auditlog.NewFileLog(conf.DataDir, logger),
		validate:  validate,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			std.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
