// Package clusterfeed reads the machine status daemon's YAML feed.
// The daemon serves two endpoints off one base URL: /offline (machines
// that stopped reporting) and /online (machines with an active login).
package clusterfeed

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fortytworoma/monitor/core"
	"github.com/fortytworoma/monitor/core/cluster"
)

type Client struct {
	baseURL string
	http    *http.Client
}

var _ cluster.Source = (*Client)(nil) // interface compliance check

func NewClient(conf *core.Config) *Client {
	transport := http.DefaultTransport
	if conf.Statusd.InsecureSkipVerify {
		// the daemon serves a self-signed cert on the campus LAN
		transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}
	return &Client{
		baseURL: conf.Statusd.BaseURL,
		http:    &http.Client{Timeout: conf.Statusd.Timeout, Transport: transport},
	}
}

func (c *Client) FetchFeed(ctx context.Context) (cluster.Feed, error) {
	offline, err := c.fetchList(ctx, "/offline", "offline")
	if err != nil {
		return cluster.Feed{}, errors.Wrap(err, "fetching offline list")
	}
	used, err := c.fetchList(ctx, "/online", "used")
	if err != nil {
		return cluster.Feed{}, errors.Wrap(err, "fetching online list")
	}
	return cluster.Feed{Offline: offline, Used: used}, nil
}

func (c *Client) fetchList(ctx context.Context, path, key string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed map[string][]string
	if err = yaml.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "parsing feed")
	}
	return parsed[key], nil
}
