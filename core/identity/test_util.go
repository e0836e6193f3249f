package identity

import (
	"context"
)

// ProviderMock short-circuits the OAuth handshake.
type ProviderMock struct {
	Profile Profile
	Err     error
}

func (p *ProviderMock) AuthCodeURL(state string) string {
	return "https://intra.test/oauth/authorize?state=" + state
}

func (p *ProviderMock) ExchangeCode(ctx context.Context, code string) (string, error) {
	if p.Err != nil {
		return "", p.Err
	}
	return "token-" + code, nil
}

func (p *ProviderMock) FetchProfile(ctx context.Context, accessToken string) (Profile, error) {
	if p.Err != nil {
		return Profile{}, p.Err
	}
	return p.Profile, nil
}
