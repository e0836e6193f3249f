package testutil

import (
	"context"
	"net/mail"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/fortytworoma/monitor/core"
	"github.com/fortytworoma/monitor/core/announce"
)

// NewConfig returns a config rooted at dataDir, with small cluster layouts
// and no real upstreams. WorkDir points at the repository root so the HTML
// templates resolve from any test package.
func NewConfig(dataDir string) *core.Config {
	layouts, err := core.ParseClusterLayouts("e1:2x3,e2:1x4")
	if err != nil {
		panic(err)
	}
	return &core.Config{
		TestMode:         true,
		Env:              "TEST",
		Build:            "test",
		AppName:          "Campus Monitor",
		SecretKey:        "test-fdc9d62eb7abbd7b1337beefc0ffee42",
		WorkDir:          repoRoot(),
		DataDir:          dataDir,
		DefaultFromEmail: mail.Address{Name: "Campus Monitor", Address: "monitor@localhost"},
		OpsEmail:         "ops@test.campus",
		Server: core.ServerConfig{
			Addr:            ":0",
			BaseURL:         "http://localhost:8000",
			SessionLifetime: time.Hour,
			ShutdownTimeout: time.Second,
			DisableReqLogs:  true,
		},
		Statusd: core.StatusFeedConfig{
			RefreshInterval: time.Minute,
			StaleAfter:      5 * time.Minute,
		},
		Clusters:    layouts,
		StaffLogins: []string{"wheel"},
	}
}

// Config is NewConfig over a per-test temp dir.
func Config(t *testing.T) *core.Config {
	return NewConfig(t.TempDir())
}

func repoRoot() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Dir(filepath.Dir(file))
}

func CreateAnnouncement(
	t *testing.T,
	repo announce.Repository,
	title, body, author string,
	published bool,
	createdAt ...time.Time,
) announce.Announcement {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	ann, err := repo.CreateAnnouncement(context.Background(), announce.Announcement{
		Title:     title,
		Body:      body,
		Author:    author,
		Color:     announce.DefaultColor,
		Published: published,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateAnnouncement() failed: %v", err)
	}
	return ann
}
