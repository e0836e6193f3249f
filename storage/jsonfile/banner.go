package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/fortytworoma/monitor/core/banner"
)

const bannerFile = "banner.json"

type bannerRepository struct {
	mu   sync.Mutex
	path string
}

var _ banner.Repository = (*bannerRepository)(nil) // interface compliance check

func NewBannerRepository(dataDir string) *bannerRepository {
	return &bannerRepository{path: filepath.Join(dataDir, bannerFile)}
}

func (repo *bannerRepository) GetBanner(ctx context.Context) (banner.Config, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var conf banner.Config
	if err := loadJSON(repo.path, &conf); err != nil {
		if os.IsNotExist(err) {
			return banner.Config{}, nil // disabled, empty
		}
		return banner.Config{}, errors.Wrap(err, "loading banner")
	}
	return conf, nil
}

func (repo *bannerRepository) SetBanner(ctx context.Context, conf banner.Config) (banner.Config, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if err := saveJSON(repo.path, conf); err != nil {
		return banner.Config{}, errors.Wrap(err, "saving banner")
	}
	return conf, nil
}
