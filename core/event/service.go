package event

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/fortytworoma/monitor/core"
)

type (
	// Source fetches upcoming events from the intra API.
	Source interface {
		FetchUpcomingEvents(ctx context.Context) ([]Event, error)
	}

	// Repository caches the last good fetch so the dashboard keeps showing
	// events when the intra API is down.
	Repository interface {
		LoadEvents(ctx context.Context) ([]Event, error)
		SaveEvents(ctx context.Context, events []Event) error
	}

	ServiceInterface interface {
		Upcoming(ctx context.Context) ([]Event, error)
	}

	Service struct {
		src    Source
		repo   Repository
		logger core.Logger
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(src Source, repo Repository, logger core.Logger) *Service {
	return &Service{src: src, repo: repo, logger: logger}
}

// Upcoming returns future events sorted by start time. A fetch failure
// falls back to the cached copy; both failing returns the fetch error.
func (svc *Service) Upcoming(ctx context.Context) ([]Event, error) {
	events, err := svc.src.FetchUpcomingEvents(ctx)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("fetching events, falling back to cache: %v", err), err)
		cached, cerr := svc.repo.LoadEvents(ctx)
		if cerr != nil {
			return nil, errors.Wrap(err, "fetching events")
		}
		return onlyFuture(cached, time.Now().UTC()), nil
	}

	events = onlyFuture(events, time.Now().UTC())
	if err := svc.repo.SaveEvents(ctx, events); err != nil {
		svc.logger.Warn(fmt.Sprintf("caching events: %v", err), err)
	}
	return events, nil
}

func onlyFuture(events []Event, now time.Time) []Event {
	future := make([]Event, 0, len(events))
	for _, e := range events {
		if e.BeginAt.After(now) {
			future = append(future, e)
		}
	}
	sort.Slice(future, func(i, j int) bool { return future[i].BeginAt.Before(future[j].BeginAt) })
	return future
}
