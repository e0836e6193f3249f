package identity

import (
	"context"

	"github.com/pkg/errors"

	"github.com/fortytworoma/monitor/core"
)

var (
	// errors
	ErrAuthFailed = errors.New("authentication failed")
)

type (
	// Provider wraps the OAuth handshake with the identity provider.
	// Access tokens are exchanged and consumed here; they never reach
	// the rest of the application.
	Provider interface {
		AuthCodeURL(state string) string
		ExchangeCode(ctx context.Context, code string) (accessToken string, err error)
		FetchProfile(ctx context.Context, accessToken string) (Profile, error)
	}

	ServiceInterface interface {
		AuthCodeURL(state string) string
		Login(ctx context.Context, code string) (Session, error)
	}

	Service struct {
		provider    Provider
		staffLogins map[string]bool
	}
)

var _ ServiceInterface = (*Service)(nil) // interface compliance check

func NewService(provider Provider, conf *core.Config) *Service {
	staff := make(map[string]bool, len(conf.StaffLogins))
	for _, login := range conf.StaffLogins {
		staff[core.CleanString(login, true /* lower */)] = true
	}
	return &Service{provider: provider, staffLogins: staff}
}

func (svc *Service) AuthCodeURL(state string) string {
	return svc.provider.AuthCodeURL(state)
}

// Login exchanges the authorization code for a profile and decides the
// staff capability. The provider token is dropped before returning.
func (svc *Service) Login(ctx context.Context, code string) (Session, error) {
	token, err := svc.provider.ExchangeCode(ctx, code)
	if err != nil {
		return Session{}, errors.Wrapf(ErrAuthFailed, "exchanging code: %v", err)
	}
	profile, err := svc.provider.FetchProfile(ctx, token)
	if err != nil {
		return Session{}, errors.Wrapf(ErrAuthFailed, "fetching profile: %v", err)
	}
	return svc.sessionFor(profile), nil
}

func (svc *Service) sessionFor(p Profile) Session {
	name := p.DisplayName
	if name == "" {
		name = p.Login
	}
	return Session{
		Login: p.Login,
		Name:  name,
		Staff: p.Kind == KindStaff || svc.staffLogins[core.CleanString(p.Login, true /* lower */)],
	}
}
