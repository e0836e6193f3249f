package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fortytworoma/monitor/core/banner"
)

func (cli *commandLine) setBanner(message, expiry string, off bool) error {
	ctx := context.Background()

	if off {
		if _, err := cli.bnrSvc.Set(ctx, banner.UpdateBanner{}); err != nil {
			return err
		}
		cli.audit.Record(auditActor, "disabled the banner")
		fmt.Println("banner cleared")
		return nil
	}

	data := banner.UpdateBanner{Enabled: true, Message: message}
	if expiry != "" {
		ts, err := time.Parse(time.RFC3339, expiry)
		if err != nil {
			return fmt.Errorf("expiry must be RFC 3339, eg. 2026-09-01T08:00:00Z (got %q)", expiry)
		}
		data.Expiry = &ts
	}
	if err := data.Validate(cli.validate); err != nil {
		return err
	}

	conf, err := cli.bnrSvc.Set(ctx, data)
	if err != nil {
		return err
	}
	cli.audit.Record(auditActor, fmt.Sprintf("enabled the banner %q", conf.Message))
	if conf.Expiry != nil {
		fmt.Printf("banner raised until %s\n", conf.Expiry.Local().Format("Mon 02 Jan 15:04"))
	} else {
		fmt.Println("banner raised")
	}
	return nil
}
