// Package intrasvc talks to the campus intra API: the OAuth handshake
// backing the identity gate and the campus events feed.
package intrasvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/fortytworoma/monitor/core"
	"github.com/fortytworoma/monitor/core/event"
	"github.com/fortytworoma/monitor/core/identity"
)

// intraTime is the timestamp layout the intra API expects in filters.
const intraTime = "2006-01-02T15:04:05.000Z"

type Client struct {
	conf core.IntraConfig
	http *http.Client

	// client-credentials token for the events feed, cached until expiry
	mu          sync.Mutex
	appToken    string
	appTokenExp time.Time
}

var (
	_ identity.Provider = (*Client)(nil) // interface compliance check
	_ event.Source      = (*Client)(nil)
)

func NewClient(conf *core.Config) *Client {
	return &Client{
		conf: conf.Intra,
		http: &http.Client{Timeout: conf.Intra.Timeout},
	}
}

// Identity Provider

func (c *Client) AuthCodeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.conf.ClientID)
	q.Set("redirect_uri", c.conf.RedirectURI)
	q.Set("response_type", "code")
	q.Set("state", state)
	return c.conf.AuthorizeURL + "?" + q.Encode()
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {c.conf.ClientID},
		"client_secret": {c.conf.ClientSecret},
		"code":          {code},
		"redirect_uri":  {c.conf.RedirectURI},
	}
	token, _, err := c.requestToken(ctx, form)
	return token, err
}

func (c *Client) FetchProfile(ctx context.Context, accessToken string) (identity.Profile, error) {
	var me struct {
		Login       string `json:"login"`
		DisplayName string `json:"displayname"`
		Email       string `json:"email"`
		Kind        string `json:"kind"`
	}
	if err := c.getJSON(ctx, c.conf.APIBaseURL+"/v2/me", accessToken, &me); err != nil {
		return identity.Profile{}, errors.Wrap(err, "fetching profile")
	}
	return identity.Profile{
		Login:       me.Login,
		DisplayName: me.DisplayName,
		Email:       me.Email,
		Kind:        me.Kind,
	}, nil
}

// Events Feed

func (c *Client) FetchUpcomingEvents(ctx context.Context) ([]event.Event, error) {
	token, err := c.applicationToken(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting application token")
	}

	now := time.Now().UTC()
	q := url.Values{}
	q.Set("filter[begin_at]", now.Format(intraTime)+","+now.Add(c.conf.EventLookahead).Format(intraTime))

	endpoint := fmt.Sprintf(
		"%s/v2/campus/%d/cursus/%d/events?%s",
		c.conf.APIBaseURL, c.conf.CampusID, c.conf.CursusID, q.Encode(),
	)

	var raw []struct {
		ID          int       `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		Kind        string    `json:"kind"`
		Location    string    `json:"location"`
		BeginAt     time.Time `json:"begin_at"`
		EndAt       time.Time `json:"end_at"`
	}
	if err = c.getJSON(ctx, endpoint, token, &raw); err != nil {
		return nil, errors.Wrap(err, "fetching events")
	}

	events := make([]event.Event, 0, len(raw))
	for _, e := range raw {
		events = append(events, event.Event{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Kind:        e.Kind,
			Location:    e.Location,
			BeginAt:     e.BeginAt.UTC(),
			EndAt:       e.EndAt.UTC(),
		})
	}
	return events, nil
}

// applicationToken returns a valid client-credentials token, requesting a
// fresh one when the cached token is near expiry.
func (c *Client) applicationToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.appToken != "" && time.Now().Before(c.appTokenExp) {
		return c.appToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.conf.ClientID},
		"client_secret": {c.conf.ClientSecret},
	}
	token, expiresIn, err := c.requestToken(ctx, form)
	if err != nil {
		return "", err
	}

	c.appToken = token
	c.appTokenExp = time.Now().Add(expiresIn - time.Minute) // renew early
	return token, nil
}

func (c *Client) requestToken(ctx context.Context, form url.Values) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.conf.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, errors.Wrap(err, "building token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, errors.Wrap(err, "requesting token")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", 0, errors.Errorf("token endpoint: http %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, errors.Wrap(err, "decoding token response")
	}
	if body.AccessToken == "" {
		return "", 0, errors.New("token endpoint: empty access token")
	}
	return body.AccessToken, time.Duration(body.ExpiresIn) * time.Second, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.Errorf("http %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
