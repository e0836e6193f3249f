package cluster

import (
	"context"
	"sync"
)

// FeedSourceMock serves a canned feed and counts upstream calls.
type FeedSourceMock struct {
	mu    sync.Mutex
	feed  Feed
	err   error
	calls int

	// Gate, when set, blocks FetchFeed until it is closed.
	Gate chan struct{}
}

func NewFeedSourceMock(feed Feed) *FeedSourceMock {
	return &FeedSourceMock{feed: feed}
}

func (src *FeedSourceMock) FetchFeed(ctx context.Context) (Feed, error) {
	if src.Gate != nil {
		<-src.Gate
	}

	src.mu.Lock()
	defer src.mu.Unlock()

	src.calls++
	if src.err != nil {
		return Feed{}, src.err
	}
	return src.feed, nil
}

func (src *FeedSourceMock) SetFeed(feed Feed) {
	src.mu.Lock()
	defer src.mu.Unlock()
	src.feed = feed
}

func (src *FeedSourceMock) SetErr(err error) {
	src.mu.Lock()
	defer src.mu.Unlock()
	src.err = err
}

func (src *FeedSourceMock) Calls() int {
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.calls
}

// MaintenanceRepositoryMock keeps the maintenance set in memory.
type MaintenanceRepositoryMock struct {
	mu  sync.Mutex
	ids []string

	Err error
}

func (repo *MaintenanceRepositoryMock) ListMaintenance(ctx context.Context) ([]string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.Err != nil {
		return nil, repo.Err
	}
	return append([]string(nil), repo.ids...), nil
}

func (repo *MaintenanceRepositoryMock) AddMaintenance(ctx context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.Err != nil {
		return repo.Err
	}
	for _, existing := range repo.ids {
		if existing == id {
			return nil
		}
	}
	repo.ids = append(repo.ids, id)
	return nil
}

func (repo *MaintenanceRepositoryMock) RemoveMaintenance(ctx context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if repo.Err != nil {
		return repo.Err
	}
	kept := repo.ids[:0]
	for _, existing := range repo.ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	repo.ids = kept
	return nil
}
