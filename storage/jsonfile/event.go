package jsonfile

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/fortytworoma/monitor/core/event"
)

const eventsFile = "events.json"

type eventRepository struct {
	mu   sync.Mutex
	path string
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(dataDir string) *eventRepository {
	return &eventRepository{path: filepath.Join(dataDir, eventsFile)}
}

// LoadEvents returns an error when no cache exists yet; the caller treats
// any error as "no cache".
func (repo *eventRepository) LoadEvents(ctx context.Context) ([]event.Event, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var events []event.Event
	if err := loadJSON(repo.path, &events); err != nil {
		return nil, errors.Wrap(err, "loading cached events")
	}
	return events, nil
}

func (repo *eventRepository) SaveEvents(ctx context.Context, events []event.Event) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return errors.Wrap(saveJSON(repo.path, events), "caching events")
}
