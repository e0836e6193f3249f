package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) listAnnouncements() error {
	anns, err := cli.annSvc.QueryAll(context.Background())
	if err != nil {
		return err
	}
	if len(anns) == 0 {
		fmt.Println("no announcements stored")
		return nil
	}
	for _, ann := range anns {
		state := "draft"
		if ann.Published {
			state = "published"
		}
		fmt.Printf("%2d. [%-9s] %s %q by %s (updated %s)\n",
			ann.Order, state, ann.ID, ann.Title, ann.Author, ann.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
