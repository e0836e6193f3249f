package main

import (
	"context"
	"fmt"

	"github.com/fortytworoma/monitor/core/cluster"
)

// setMaintenance writes the flag store directly; the running API folds it
// into the snapshot on its next refresh.
func (cli *commandLine) setMaintenance(machineID string, remove bool) error {
	data := cluster.MaintenanceRequest{MachineID: machineID}
	if remove {
		data.Action = "remove"
	}
	if err := data.Validate(cli.validate); err != nil {
		return err
	}

	ctx := context.Background()
	if data.Flagged() {
		if err := cli.maintRepo.AddMaintenance(ctx, data.MachineID); err != nil {
			return err
		}
		cli.audit.Record(auditActor, fmt.Sprintf("flagged %s for maintenance", data.MachineID))
		fmt.Printf("%s flagged, the dashboard picks it up on the next refresh\n", data.MachineID)
		return nil
	}

	if err := cli.maintRepo.RemoveMaintenance(ctx, data.MachineID); err != nil {
		return err
	}
	cli.audit.Record(auditActor, fmt.Sprintf("cleared the maintenance flag on %s", data.MachineID))
	fmt.Printf("%s unflagged, the dashboard picks it up on the next refresh\n", data.MachineID)
	return nil
}

func (cli *commandLine) listMaintenance() error {
	ids, err := cli.maintRepo.ListMaintenance(context.Background())
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("no machines flagged for maintenance")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}
