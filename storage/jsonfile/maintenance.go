package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/fortytworoma/monitor/core/cluster"
)

const maintenanceFile = "maintenance.json"

type maintenanceRepository struct {
	mu   sync.Mutex
	path string
}

var _ cluster.MaintenanceRepository = (*maintenanceRepository)(nil) // interface compliance check

func NewMaintenanceRepository(dataDir string) *maintenanceRepository {
	return &maintenanceRepository{path: filepath.Join(dataDir, maintenanceFile)}
}

func (repo *maintenanceRepository) load() ([]string, error) {
	var ids []string
	if err := loadJSON(repo.path, &ids); err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, errors.Wrap(err, "loading maintenance set")
	}
	return ids, nil
}

func (repo *maintenanceRepository) ListMaintenance(ctx context.Context) ([]string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.load()
}

func (repo *maintenanceRepository) AddMaintenance(ctx context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	ids, err := repo.load()
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil // already flagged
		}
	}
	return errors.Wrap(saveJSON(repo.path, append(ids, id)), "saving maintenance set")
}

func (repo *maintenanceRepository) RemoveMaintenance(ctx context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	ids, err := repo.load()
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if len(kept) == len(ids) {
		return nil // not flagged
	}
	return errors.Wrap(saveJSON(repo.path, kept), "saving maintenance set")
}
