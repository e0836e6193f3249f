package banner

import (
	"context"
)

type (
	Repository interface {
		// GetBanner returns the zero Config when nothing has been stored yet.
		GetBanner(ctx context.Context) (Config, error)
		SetBanner(ctx context.Context, conf Config) (Config, error)
	}

	ServiceInterface interface {
		Get(ctx context.Context) (Config, error)
		Set(ctx context.Context, ub UpdateBanner) (Config, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Get(ctx context.Context) (Config, error) {
	return svc.repo.GetBanner(ctx)
}

func (svc *Service) Set(ctx context.Context, ub UpdateBanner) (Config, error) {
	conf := Config{
		Enabled: ub.Enabled,
		Message: ub.Message,
	}
	if ub.Expiry != nil {
		utc := ub.Expiry.UTC()
		conf.Expiry = &utc
	}
	return svc.repo.SetBanner(ctx, conf)
}
