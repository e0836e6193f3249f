package cluster

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/fortytworoma/monitor/core"
)

var (
	// errors
	ErrUpstreamUnavailable = errors.New("cluster status feed unavailable")
)

type (
	// Source fetches the raw machine state from the upstream status feed.
	Source interface {
		FetchFeed(ctx context.Context) (Feed, error)
	}

	// MaintenanceRepository stores the maintenance set staff manage by hand.
	MaintenanceRepository interface {
		ListMaintenance(ctx context.Context) ([]string, error)
		AddMaintenance(ctx context.Context, id string) error
		RemoveMaintenance(ctx context.Context, id string) error
	}

	ServiceInterface interface {
		Refresh(ctx context.Context) (Snapshot, error)
		Rebuild(ctx context.Context) (Snapshot, error)
		Current() Snapshot
		SetMaintenance(ctx context.Context, id string, flagged bool) (Snapshot, error)
	}

	Service struct {
		src        Source
		maint      MaintenanceRepository
		mailSvc    core.EmailService
		layouts    []core.ClusterLayout
		staleAfter time.Duration
		opsEmail   string
		logger     core.Logger

		sf singleflight.Group

		mu      sync.RWMutex
		snap    Snapshot
		feed    Feed
		fetched bool // at least one successful upstream fetch
		failing bool // last upstream fetch failed
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(src Source, maint MaintenanceRepository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		src:        src,
		maint:      maint,
		mailSvc:    mailSvc,
		layouts:    conf.Clusters,
		staleAfter: conf.Statusd.StaleAfter,
		opsEmail:   conf.OpsEmail,
		logger:     logger,
	}
}

// Refresh fetches the upstream feed and replaces the snapshot wholesale.
// Concurrent callers are coalesced onto a single upstream call. On failure
// the previous snapshot is kept and ErrUpstreamUnavailable is returned.
func (svc *Service) Refresh(ctx context.Context) (Snapshot, error) {
	v, err, _ := svc.sf.Do("refresh", func() (interface{}, error) {
		return svc.refresh(ctx)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

func (svc *Service) refresh(ctx context.Context) (Snapshot, error) {
	feed, err := svc.src.FetchFeed(ctx)
	if err != nil {
		svc.noteFeedDown(err)
		return Snapshot{}, errors.Wrapf(ErrUpstreamUnavailable, "fetching feed: %v", err)
	}
	svc.noteFeedUp()

	maintIDs, err := svc.maint.ListMaintenance(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "listing maintenance")
	}

	snap := svc.compose(feed, maintIDs)
	snap.UpdatedAt = time.Now().UTC()

	svc.mu.Lock()
	svc.feed = feed
	svc.fetched = true
	svc.snap = snap
	svc.mu.Unlock()

	return snap, nil
}

// Rebuild recomposes the snapshot from the cached feed and the current
// maintenance set, without calling upstream. Staff use it right after
// toggling maintenance. The last-updated timestamp is left as is.
func (svc *Service) Rebuild(ctx context.Context) (Snapshot, error) {
	svc.mu.RLock()
	feed, fetched := svc.feed, svc.fetched
	updatedAt := svc.snap.UpdatedAt
	svc.mu.RUnlock()

	if !fetched {
		return svc.Current(), nil
	}

	maintIDs, err := svc.maint.ListMaintenance(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "listing maintenance")
	}

	snap := svc.compose(feed, maintIDs)
	snap.UpdatedAt = updatedAt

	svc.mu.Lock()
	svc.snap = snap
	svc.mu.Unlock()

	return svc.Current(), nil
}

// SetMaintenance flags or unflags a machine and recomposes the snapshot
// so the change shows up without waiting for the next poll.
func (svc *Service) SetMaintenance(ctx context.Context, id string, flagged bool) (Snapshot, error) {
	var err error
	if flagged {
		err = svc.maint.AddMaintenance(ctx, id)
	} else {
		err = svc.maint.RemoveMaintenance(ctx, id)
	}
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "updating maintenance set")
	}
	return svc.Rebuild(ctx)
}

// Current returns the latest snapshot without touching upstream. Staleness
// is computed at read time; callers must surface it instead of failing.
func (svc *Service) Current() Snapshot {
	svc.mu.RLock()
	snap := svc.snap
	svc.mu.RUnlock()

	snap.Stale = snap.UpdatedAt.IsZero() || time.Since(snap.UpdatedAt) > svc.staleAfter
	return snap
}

// StartPolling refreshes the snapshot on the given interval until ctx is
// cancelled. Failures are logged and retried on the next tick.
func (svc *Service) StartPolling(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			if _, err := svc.Refresh(ctx); err != nil {
				svc.logger.Warn(fmt.Sprintf("cluster refresh: %v", err), err)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (svc *Service) compose(feed Feed, maintIDs []string) Snapshot {
	offline := toSet(feed.Offline)
	used := toSet(feed.Used)
	maint := toSet(maintIDs)

	clusters := make([]ClusterStatus, 0, len(svc.layouts))
	for _, layout := range svc.layouts {
		cs := ClusterStatus{
			Name:      layout.Name,
			Rows:      layout.Rows,
			Positions: layout.Positions,
			Machines:  make([]Machine, 0, layout.Rows*layout.Positions),
		}
		for r := 1; r <= layout.Rows; r++ {
			for p := 1; p <= layout.Positions; p++ {
				m := Machine{
					ID:       layout.MachineID(r, p),
					Cluster:  layout.Name,
					Row:      r,
					Position: p,
				}
				switch {
				case offline[m.ID]:
					m.Status = StatusOffline
					cs.Counts.Offline++
				case maint[m.ID]:
					m.Status = StatusMaintenance
					cs.Counts.Maintenance++
				default:
					m.Status = StatusAvailable
					m.Occupied = used[m.ID]
					cs.Counts.Available++
					if m.Occupied {
						cs.Counts.Occupied++
					}
				}
				cs.Counts.Total++
				cs.Machines = append(cs.Machines, m)
			}
		}
		clusters = append(clusters, cs)
	}
	return Snapshot{Clusters: clusters}
}

// noteFeedDown sends a single alert when the feed transitions to failing.
func (svc *Service) noteFeedDown(err error) {
	svc.mu.Lock()
	alreadyFailing := svc.failing
	svc.failing = true
	svc.mu.Unlock()

	if alreadyFailing {
		return
	}
	svc.logger.Error(fmt.Sprintf("status feed unreachable: %v", err), err)
	svc.alertOps(
		"Status feed unreachable",
		fmt.Sprintf("The cluster status feed stopped responding: %v\nStale data is being served until it recovers.", err),
	)
}

func (svc *Service) noteFeedUp() {
	svc.mu.Lock()
	wasFailing := svc.failing
	svc.failing = false
	svc.mu.Unlock()

	if !wasFailing {
		return
	}
	svc.logger.Info("status feed recovered")
	svc.alertOps("Status feed recovered", "The cluster status feed is responding again.")
}

func (svc *Service) alertOps(subject, body string) {
	if svc.mailSvc == nil || svc.opsEmail == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: svc.opsEmail}},
		Subject: subject,
		BodyStr: body,
	})
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
