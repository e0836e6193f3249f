package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/fortytworoma/monitor/core"
	"github.com/fortytworoma/monitor/core/announce"
	"github.com/fortytworoma/monitor/core/banner"
	"github.com/fortytworoma/monitor/core/cluster"
)

// auditActor names shell sessions in the action log so they stay
// distinguishable from staff console entries.
const auditActor = "admin-cli"

var errHelp = errors.New("help provided")

type commandLine struct {
	annSvc    announce.ServiceInterface
	bnrSvc    banner.ServiceInterface
	maintRepo cluster.MaintenanceRepository
	audit     core.ActionLog
	validate  *validator.Validate
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  banner -message MESSAGE [-expiry TIME] - raise the dashboard banner (RFC 3339 expiry)")
	fmt.Println("  banner -off - take the banner down")
	fmt.Println("  maintenance [-machine ID [-remove]] - flag or unflag a machine; no flags lists flagged machines")
	fmt.Println("  announcements - list stored announcements")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	bannerCmd := flag.NewFlagSet("banner", flag.ExitOnError)
	bannerMsg := bannerCmd.String("message", "", "The banner message. Markdown is rendered on the dashboard.")
	bannerExpiry := bannerCmd.String("expiry", "", "When the banner takes itself down, in RFC 3339 form. Empty keeps it up until cleared.")
	bannerOff := bannerCmd.Bool("off", false, "Take the banner down instead of raising one.")

	maintenanceCmd := flag.NewFlagSet("maintenance", flag.ExitOnError)
	maintenanceMachine := maintenanceCmd.String("machine", "", "The machine to flag, eg. e3r2p5. Omit to list flagged machines.")
	maintenanceRemove := maintenanceCmd.Bool("remove", false, "Unflag the machine instead of flagging it.")

	announcementsCmd := flag.NewFlagSet("announcements", flag.ExitOnError)

	switch args[1] {
	case "banner":
		if err := bannerCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *bannerMsg == "" && !*bannerOff {
			bannerCmd.Usage()
			return errHelp
		}
		return cli.setBanner(*bannerMsg, *bannerExpiry, *bannerOff)
	case "maintenance":
		if err := maintenanceCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *maintenanceMachine == "" {
			return cli.listMaintenance()
		}
		return cli.setMaintenance(*maintenanceMachine, *maintenanceRemove)
	case "announcements":
		if err := announcementsCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.listAnnouncements()
	default:
		cli.printUsage()
		return errHelp
	}
}
