package event

import (
	"context"
)

// SourceMock serves canned events in place of the intra API.
type SourceMock struct {
	Events []Event
	Err    error
}

func (src *SourceMock) FetchUpcomingEvents(ctx context.Context) ([]Event, error) {
	if src.Err != nil {
		return nil, src.Err
	}
	return src.Events, nil
}

// RepositoryMock is an in-memory stand-in for the events cache.
type RepositoryMock struct {
	Cached  []Event
	LoadErr error
}

func (repo *RepositoryMock) LoadEvents(ctx context.Context) ([]Event, error) {
	if repo.LoadErr != nil {
		return nil, repo.LoadErr
	}
	return repo.Cached, nil
}

func (repo *RepositoryMock) SaveEvents(ctx context.Context, events []Event) error {
	repo.Cached = events
	return nil
}
