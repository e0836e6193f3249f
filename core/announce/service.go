package announce

import (
	"context"
	"errors"
	"time"
)

var (
	// errors
	ErrNotFound = errors.New("announcement not found")
)

type (
	Repository interface {
		QueryAllAnnouncements(ctx context.Context) ([]Announcement, error)
		GetAnnouncementByID(ctx context.Context, id string) (Announcement, error)
		CreateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		UpdateAnnouncement(ctx context.Context, ann Announcement, published *bool) (Announcement, error)
		DeleteAnnouncementByID(ctx context.Context, id string) error
		// ReorderAnnouncements fails with a ValidationError unless ids is an
		// exact permutation of the stored id set.
		ReorderAnnouncements(ctx context.Context, ids []string) ([]Announcement, error)
	}

	ServiceInterface interface {
		QueryAll(ctx context.Context) ([]Announcement, error)
		QueryPublished(ctx context.Context) ([]Announcement, error)
		GetByID(ctx context.Context, id string) (Announcement, error)
		Create(ctx context.Context, na NewAnnouncement) (Announcement, error)
		Update(ctx context.Context, id string, ua UpdateAnnouncement) (Announcement, error)
		Delete(ctx context.Context, id string) error
		Reorder(ctx context.Context, ids []string) ([]Announcement, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) QueryAll(ctx context.Context) ([]Announcement, error) {
	return svc.repo.QueryAllAnnouncements(ctx)
}

// QueryPublished returns published announcements only, in display order.
func (svc *Service) QueryPublished(ctx context.Context) ([]Announcement, error) {
	all, err := svc.repo.QueryAllAnnouncements(ctx)
	if err != nil {
		return nil, err
	}
	published := make([]Announcement, 0, len(all))
	for _, ann := range all {
		if ann.Published {
			published = append(published, ann)
		}
	}
	return published, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Announcement, error) {
	return svc.repo.GetAnnouncementByID(ctx, id)
}

func (svc *Service) Create(ctx context.Context, na NewAnnouncement) (Announcement, error) {
	now := time.Now().UTC()
	ann := Announcement{
		Title:     na.Title,
		Body:      na.Body,
		Author:    na.Author,
		Color:     na.Color,
		Link:      na.Link,
		Published: na.Published,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateAnnouncement(ctx, ann)
}

func (svc *Service) Update(ctx context.Context, id string, ua UpdateAnnouncement) (Announcement, error) {
	ann := Announcement{
		ID:        id,
		Title:     ua.Title,
		Body:      ua.Body,
		Color:     ua.Color,
		Link:      ua.Link,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateAnnouncement(ctx, ann, ua.Published)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteAnnouncementByID(ctx, id)
}

func (svc *Service) Reorder(ctx context.Context, ids []string) ([]Announcement, error) {
	return svc.repo.ReorderAnnouncements(ctx, ids)
}
