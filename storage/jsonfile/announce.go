package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/fortytworoma/monitor/core"
	"github.com/fortytworoma/monitor/core/announce"
)

const announcementsFile = "announcements.json"

var errReorderIDMismatch = errors.New("ids must match the stored announcements exactly")

type announcementRepository struct {
	mu   sync.Mutex
	path string
}

var _ announce.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(dataDir string) *announcementRepository {
	return &announcementRepository{path: filepath.Join(dataDir, announcementsFile)}
}

// load returns the stored announcements sorted by display order.
// An absent file is an empty store.
func (repo *announcementRepository) load() ([]announce.Announcement, error) {
	var anns []announce.Announcement
	if err := loadJSON(repo.path, &anns); err != nil {
		if os.IsNotExist(err) {
			return []announce.Announcement{}, nil
		}
		return nil, errors.Wrap(err, "loading announcements")
	}
	sort.SliceStable(anns, func(i, j int) bool { return anns[i].Order < anns[j].Order })
	return anns, nil
}

func (repo *announcementRepository) save(anns []announce.Announcement) error {
	return errors.Wrap(saveJSON(repo.path, anns), "saving announcements")
}

func (repo *announcementRepository) QueryAllAnnouncements(ctx context.Context) ([]announce.Announcement, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	return repo.load()
}

func (repo *announcementRepository) GetAnnouncementByID(ctx context.Context, id string) (announce.Announcement, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	anns, err := repo.load()
	if err != nil {
		return announce.Announcement{}, err
	}
	for _, ann := range anns {
		if ann.ID == id {
			return ann, nil
		}
	}
	return announce.Announcement{}, announce.ErrNotFound
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, ann announce.Announcement) (announce.Announcement, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	anns, err := repo.load()
	if err != nil {
		return announce.Announcement{}, err
	}

	ann.ID = uuid.New().String()
	ann.Order = nextOrder(anns)
	anns = append(anns, ann)

	if err = repo.save(anns); err != nil {
		return announce.Announcement{}, err
	}
	return ann, nil
}

func (repo *announcementRepository) UpdateAnnouncement(ctx context.Context, ann announce.Announcement, published *bool) (announce.Announcement, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	anns, err := repo.load()
	if err != nil {
		return announce.Announcement{}, err
	}

	for i := range anns {
		if anns[i].ID != ann.ID {
			continue
		}
		// only save set fields; Author and Order are not updatable
		anns[i].Title = ann.Title
		anns[i].Body = ann.Body
		anns[i].Color = ann.Color
		anns[i].Link = ann.Link
		if published != nil {
			anns[i].Published = *published
		}
		anns[i].UpdatedAt = ann.UpdatedAt

		if err = repo.save(anns); err != nil {
			return announce.Announcement{}, err
		}
		return anns[i], nil
	}
	return announce.Announcement{}, announce.ErrNotFound
}

func (repo *announcementRepository) DeleteAnnouncementByID(ctx context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	anns, err := repo.load()
	if err != nil {
		return err
	}

	kept := anns[:0]
	for _, ann := range anns {
		if ann.ID != id {
			kept = append(kept, ann)
		}
	}
	if len(kept) == len(anns) {
		return announce.ErrNotFound
	}

	// compact display orders
	for i := range kept {
		kept[i].Order = i
	}
	return repo.save(kept)
}

func (repo *announcementRepository) ReorderAnnouncements(ctx context.Context, ids []string) ([]announce.Announcement, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	anns, err := repo.load()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]announce.Announcement, len(anns))
	for _, ann := range anns {
		byID[ann.ID] = ann
	}
	if len(ids) != len(anns) {
		return nil, reorderValidationErr()
	}

	reordered := make([]announce.Announcement, 0, len(anns))
	for i, id := range ids {
		ann, ok := byID[id]
		if !ok {
			return nil, reorderValidationErr()
		}
		delete(byID, id) // trap duplicate ids
		ann.Order = i
		reordered = append(reordered, ann)
	}

	if err = repo.save(reordered); err != nil {
		return nil, err
	}
	return reordered, nil
}

func reorderValidationErr() error {
	return core.NewValidationError(
		errReorderIDMismatch,
		core.FieldError{Field: "ids", Error: errReorderIDMismatch.Error()},
	)
}

func nextOrder(anns []announce.Announcement) int {
	next := 0
	for _, ann := range anns {
		if ann.Order >= next {
			next = ann.Order + 1
		}
	}
	return next
}
