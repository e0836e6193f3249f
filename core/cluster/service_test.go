package cluster

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/fortytworoma/monitor/core"
	"github.com/fortytworoma/monitor/services/email"
)

func newTestService(t *testing.T, src Source, maint MaintenanceRepository, mailSvc core.EmailService) *Service {
	layouts, err := core.ParseClusterLayouts("e1:2x3,e2:1x4")
	if err != nil {
		t.Fatalf("ParseClusterLayouts() error = %v", err)
	}
	conf := &core.Config{OpsEmail: "ops@test.campus", Clusters: layouts}
	conf.Statusd.StaleAfter = 5 * time.Minute
	return NewService(src, maint, mailSvc, conf, core.NopLogger{})
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()
	src := NewFeedSourceMock(Feed{
		Offline: []string{"e1r1p1", "e1r1p2", "z9r9p9"},
		Used:    []string{"e1r1p2", "e1r2p3", "e2r1p1"},
	})
	maint := &MaintenanceRepositoryMock{}
	if err := maint.AddMaintenance(ctx, "e1r1p1"); err != nil {
		t.Fatalf("AddMaintenance() error = %v", err)
	}
	if err := maint.AddMaintenance(ctx, "e2r1p4"); err != nil {
		t.Fatalf("AddMaintenance() error = %v", err)
	}

	svc := newTestService(t, src, maint, nil)

	snap, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if snap.UpdatedAt.IsZero() || snap.Stale {
		t.Errorf("Refresh() returned a stale snapshot: %+v", snap)
	}
	if len(snap.Clusters) != 2 || snap.Clusters[0].Name != "e1" || snap.Clusters[1].Name != "e2" {
		t.Fatalf("Refresh() clusters = %+v; want e1 and e2", snap.Clusters)
	}

	// offline beats maintenance beats available
	statuses := map[string]string{
		"e1r1p1": StatusOffline,
		"e1r1p2": StatusOffline,
		"e1r1p3": StatusAvailable,
		"e1r2p3": StatusAvailable,
		"e2r1p4": StatusMaintenance,
	}
	for id, want := range statuses {
		m, ok := findMachine(snap, id)
		if !ok {
			t.Fatalf("machine %s missing from the snapshot", id)
		}
		if m.Status != want {
			t.Errorf("%s status = %q, want %q", id, m.Status, want)
		}
	}

	// occupancy only applies to available machines
	occupied := map[string]bool{"e1r1p2": false, "e1r2p3": true, "e2r1p1": true, "e2r1p2": false}
	for id, want := range occupied {
		if m, _ := findMachine(snap, id); m.Occupied != want {
			t.Errorf("%s occupied = %v, want %v", id, m.Occupied, want)
		}
	}

	wantCounts := []StatusCounts{
		{Available: 4, Occupied: 1, Offline: 2, Total: 6},
		{Available: 3, Occupied: 1, Maintenance: 1, Total: 4},
	}
	for i, want := range wantCounts {
		if got := snap.Clusters[i].Counts; got != want {
			t.Errorf("%s counts = %+v, want %+v", snap.Clusters[i].Name, got, want)
		}
	}

	if got := svc.Current(); !reflect.DeepEqual(got, snap) {
		t.Errorf("Current() = %+v, want the refreshed snapshot", got)
	}
}

func TestService_Current_staleness(t *testing.T) {
	src := NewFeedSourceMock(Feed{})
	svc := newTestService(t, src, &MaintenanceRepositoryMock{}, nil)

	snap := svc.Current()
	if !snap.Stale || !snap.UpdatedAt.IsZero() || snap.Clusters != nil {
		t.Errorf("virgin Current() = %+v; want a zero, stale snapshot", snap)
	}

	if _, err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if snap = svc.Current(); snap.Stale {
		t.Errorf("Current() stale right after a refresh")
	}

	svc.staleAfter = time.Nanosecond
	time.Sleep(time.Millisecond)
	if snap = svc.Current(); !snap.Stale {
		t.Errorf("Current() still fresh after staleAfter elapsed")
	}
}

func TestService_Refresh_failure(t *testing.T) {
	ctx := context.Background()
	src := NewFeedSourceMock(Feed{Used: []string{"e1r1p1"}})
	maint := &MaintenanceRepositoryMock{}
	svc := newTestService(t, src, maint, nil)

	before, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	src.SetErr(errors.New("connection refused"))
	if _, err = svc.Refresh(ctx); errors.Cause(err) != ErrUpstreamUnavailable {
		t.Errorf("Refresh() error = %v, wantErr %v", err, ErrUpstreamUnavailable)
	}

	// the previous snapshot keeps serving
	snap := svc.Current()
	if !snap.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("Current().UpdatedAt = %v, want %v", snap.UpdatedAt, before.UpdatedAt)
	}
	if m, ok := findMachine(snap, "e1r1p1"); !ok || !m.Occupied {
		t.Errorf("Current() lost the cached feed: %+v", m)
	}

	src.SetErr(nil)
	maint.Err = errors.New("disk gone")
	if _, err = svc.Refresh(ctx); err == nil {
		t.Errorf("Refresh() error = nil with a failing maintenance store")
	}
}

func TestService_feedAlerts(t *testing.T) {
	emailsvc.SentMessages = nil
	mailSvc := emailsvc.NewConsoleServiceMock(&core.Config{AppName: "Campus Monitor"})

	ctx := context.Background()
	src := NewFeedSourceMock(Feed{})
	svc := newTestService(t, src, &MaintenanceRepositoryMock{}, mailSvc)

	// only the first failure of a streak alerts
	src.SetErr(errors.New("connection refused"))
	if _, err := svc.Refresh(ctx); err == nil {
		t.Fatalf("Refresh() error = nil, want a feed failure")
	}
	if _, err := svc.Refresh(ctx); err == nil {
		t.Fatalf("Refresh() error = nil, want a feed failure")
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("sent alerts = %d, want 1", len(emailsvc.SentMessages))
	}
	msg := emailsvc.SentMessages[0]
	if msg.Subject != "Status feed unreachable" {
		t.Errorf("alert subject = %q, want %q", msg.Subject, "Status feed unreachable")
	}
	if len(msg.To) != 1 || msg.To[0].Address != "ops@test.campus" {
		t.Errorf("alert recipients = %v, want ops@test.campus", msg.To)
	}

	// recovery alerts once, then stays quiet
	src.SetErr(nil)
	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if len(emailsvc.SentMessages) != 2 {
		t.Fatalf("sent alerts = %d, want 2", len(emailsvc.SentMessages))
	}
	if got := emailsvc.SentMessages[1].Subject; got != "Status feed recovered" {
		t.Errorf("alert subject = %q, want %q", got, "Status feed recovered")
	}
}

func TestService_Refresh_coalesced(t *testing.T) {
	src := NewFeedSourceMock(Feed{Used: []string{"e1r1p1"}})
	src.Gate = make(chan struct{})
	svc := newTestService(t, src, &MaintenanceRepositoryMock{}, nil)

	const callers = 5
	var wg sync.WaitGroup
	snaps := make([]Snapshot, callers)
	errs := make([]error, callers)

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			snaps[i], errs[i] = svc.Refresh(context.Background())
		}(i)
	}

	// let every caller join the in-flight refresh, then release it
	time.Sleep(50 * time.Millisecond)
	close(src.Gate)
	wg.Wait()

	if calls := src.Calls(); calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("Refresh() error = %v", errs[i])
		}
		if !snaps[i].UpdatedAt.Equal(snaps[0].UpdatedAt) {
			t.Errorf("caller %d got a different snapshot", i)
		}
	}
}

func TestService_Rebuild(t *testing.T) {
	ctx := context.Background()
	src := NewFeedSourceMock(Feed{Used: []string{"e1r1p1"}})
	maint := &MaintenanceRepositoryMock{}
	svc := newTestService(t, src, maint, nil)

	// nothing fetched yet, nothing to recompose
	snap, err := svc.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if !snap.Stale || snap.Clusters != nil {
		t.Errorf("virgin Rebuild() = %+v; want a zero, stale snapshot", snap)
	}

	before, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if err = maint.AddMaintenance(ctx, "e1r2p3"); err != nil {
		t.Fatalf("AddMaintenance() error = %v", err)
	}

	snap, err = svc.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if m, _ := findMachine(snap, "e1r2p3"); m.Status != StatusMaintenance {
		t.Errorf("e1r2p3 status = %q, want %q", m.Status, StatusMaintenance)
	}
	if m, _ := findMachine(snap, "e1r1p1"); !m.Occupied {
		t.Errorf("e1r1p1 lost its occupied state")
	}
	if !snap.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("Rebuild() touched UpdatedAt: %v, want %v", snap.UpdatedAt, before.UpdatedAt)
	}
}

func TestService_SetMaintenance(t *testing.T) {
	ctx := context.Background()
	src := NewFeedSourceMock(Feed{})
	svc := newTestService(t, src, &MaintenanceRepositoryMock{}, nil)

	if _, err := svc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	snap, err := svc.SetMaintenance(ctx, "e2r1p2", true)
	if err != nil {
		t.Fatalf("SetMaintenance() error = %v", err)
	}
	if m, _ := findMachine(snap, "e2r1p2"); m.Status != StatusMaintenance {
		t.Errorf("e2r1p2 status = %q, want %q", m.Status, StatusMaintenance)
	}
	if got, want := snap.Clusters[1].Counts, (StatusCounts{Available: 3, Maintenance: 1, Total: 4}); got != want {
		t.Errorf("e2 counts = %+v, want %+v", got, want)
	}

	snap, err = svc.SetMaintenance(ctx, "e2r1p2", false)
	if err != nil {
		t.Fatalf("SetMaintenance() error = %v", err)
	}
	if m, _ := findMachine(snap, "e2r1p2"); m.Status != StatusAvailable {
		t.Errorf("e2r1p2 status = %q, want %q", m.Status, StatusAvailable)
	}
}

func findMachine(snap Snapshot, id string) (Machine, bool) {
	for _, cs := range snap.Clusters {
		for _, m := range cs.Machines {
			if m.ID == id {
				return m, true
			}
		}
	}
	return Machine{}, false
}
