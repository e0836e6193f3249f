package tests

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/fortytworoma/monitor/core/banner"
	"github.com/fortytworoma/monitor/core/cluster"
	"github.com/fortytworoma/monitor/core/event"
	"github.com/fortytworoma/monitor/core/identity"
	"github.com/fortytworoma/monitor/tests"
)

func Test_dashboardApi_dashboard(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	testutil.CreateAnnouncement(t, annRepo, "Piscine kickoff", "Starts **Monday**", "thor", true)
	testutil.CreateAnnouncement(t, annRepo, "Draft notes", "not ready yet", "thor", false)
	evtSrc.Err = errors.New("intra api down")

	// anonymous visit, before any successful feed or event fetch
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard code = %v; want %v", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	checkBodyContains(t, body,
		"Campus Monitor",
		`<a href="/login">Sign in</a>`,
		"Piscine kickoff",
		"<strong>Monday</strong>",
		"Machine availability may be out of date",
		"The event feed is unavailable right now.",
	)
	for _, unwanted := range []string{"Draft notes", "(last update"} {
		if strings.Contains(body, unwanted) {
			t.Errorf("dashboard body contains %q; want it hidden", unwanted)
		}
	}

	// staff signs in, the feed and the banner come up
	if _, err := bnrSvc.Set(ctx, banner.UpdateBanner{Enabled: true, Message: "Network down tonight"}); err != nil {
		t.Fatalf("setting banner: %v", err)
	}
	feedSrc.SetFeed(cluster.Feed{Offline: []string{"e2r1p4"}, Used: []string{"e1r2p3"}})
	if _, err := clusterSvc.Refresh(ctx); err != nil {
		t.Fatalf("refreshing clusters: %v", err)
	}
	evtSrc.Err = nil

	req, rec = newAuthRequest(http.MethodGet, "/", getToken(t, staffSess))
	app.ServeHTTP(rec, req)
	body = rec.Body.String()
	checkBodyContains(t, body,
		`<span class="muted">Thor</span>`,
		`<a href="/staff">Staff</a>`,
		"Sign out",
		`<div class="banner">Network down tonight</div>`,
		"(6/6 free)", // an occupied seat still counts as free
		"(3/4 free)",
		`title="e1r2p3"`,
		"seat available occupied",
		"seat offline",
		"Nothing scheduled.",
	)
	for _, unwanted := range []string{"Machine availability may be out of date", `href="/login"`} {
		if strings.Contains(body, unwanted) {
			t.Errorf("dashboard body contains %q; want it hidden", unwanted)
		}
	}

	// events show up once the intra api responds
	begin := time.Now().Add(2 * time.Hour)
	evtSrc.Events = []event.Event{{
		ID:       1,
		Name:     "AI workshop",
		Kind:     "workshop",
		Location: "Amphitheater",
		BeginAt:  begin,
		EndAt:    begin.Add(90 * time.Minute),
	}}
	req, rec = newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	checkBodyContains(t, rec.Body.String(), "AI workshop", "Amphitheater", "1h 30min")

	// a later outage serves the cached agenda instead of the outage note
	evtSrc.Err = errors.New("intra api down again")
	req, rec = newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	body = rec.Body.String()
	checkBodyContains(t, body, "AI workshop")
	if strings.Contains(body, "The event feed is unavailable right now.") {
		t.Errorf("dashboard body reports the event feed down; want the cached agenda")
	}
}

func Test_dashboardApi_status(t *testing.T) {
	app := setup(t)

	// before the first successful poll the snapshot is empty and stale
	tt := httpTest{
		name:     "virgin snapshot",
		method:   http.MethodGet,
		path:     "/status",
		wantCode: http.StatusOK,
		wantData: marchallObj(t, cluster.Snapshot{Stale: true}),
	}
	req, rec := newRequest(tt.method, tt.path)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)

	feedSrc.SetFeed(cluster.Feed{Offline: []string{"e1r1p1"}, Used: []string{"e2r1p2"}})
	snap, err := clusterSvc.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refreshing clusters: %v", err)
	}

	tt = httpTest{
		name:     "refreshed snapshot",
		method:   http.MethodGet,
		path:     "/status",
		wantCode: http.StatusOK,
		wantData: marchallObj(t, snap),
	}
	req, rec = newRequest(tt.method, tt.path)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_dashboardApi_healthz(t *testing.T) {
	app := setup(t)

	tt := httpTest{
		name:     "healthz",
		method:   http.MethodGet,
		path:     "/healthz",
		wantCode: http.StatusOK,
		wantData: marchallObj(t, map[string]string{"status": "ok", "build": "test"}),
	}
	req, rec := newRequest(tt.method, tt.path)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_dashboardApi_login(t *testing.T) {
	app := setup(t)

	// anonymous visit renders the provider hand-off
	req, rec := newRequest(http.MethodGet, "/login")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login code = %v; want %v", rec.Code, http.StatusOK)
	}
	state := getCookie(rec, stateCookie)
	if state == nil || state.Value == "" {
		t.Fatalf("login did not set the %s cookie", stateCookie)
	}
	checkBodyContains(t, rec.Body.String(),
		"Staff sign-in",
		"Sign in with intra",
		"https://intra.test/oauth/authorize?state="+state.Value,
	)

	// error codes from the callback render a message
	messages := map[string]string{
		"denied": "Sign-in was cancelled.",
		"state":  "The sign-in attempt expired, please try again.",
		"nope":   "Sign-in failed, please try again.",
	}
	for code, want := range messages {
		req, rec := newRequest(http.MethodGet, "/login?error="+code)
		app.ServeHTTP(rec, req)
		checkBodyContains(t, rec.Body.String(), want)
	}

	// a signed-in visitor is sent back to their place
	req, rec = newAuthRequest(http.MethodGet, "/login", getToken(t, staffSess))
	app.ServeHTTP(rec, req)
	checkRedirect(t, rec, "/staff")

	req, rec = newAuthRequest(http.MethodGet, "/login", getToken(t, studentSess))
	app.ServeHTTP(rec, req)
	checkRedirect(t, rec, "/")
}

func Test_dashboardApi_oauthCallback(t *testing.T) {
	app := setup(t)

	staffProfile := identity.Profile{Login: "thor", DisplayName: "Thor", Kind: "admin"}
	studentProfile := identity.Profile{Login: "loki", DisplayName: "Loki", Kind: "student"}
	wheelProfile := identity.Profile{Login: "Wheel", Kind: "student"} // in conf.StaffLogins

	tests := []struct {
		name         string
		path         string
		state        string // request cookie; empty leaves it unset
		profile      identity.Profile
		providerErr  error
		wantLocation string
		wantSession  bool
	}{
		{name: "state required", path: "/oauth/callback?code=abc", wantLocation: "/login?error=state"},
		{name: "state mismatch", path: "/oauth/callback?state=evil&code=abc", state: "good", wantLocation: "/login?error=state"},
		{name: "code required", path: "/oauth/callback?state=good", state: "good", wantLocation: "/login?error=denied"},
		{name: "provider rejects the code", path: "/oauth/callback?state=good&code=abc", state: "good",
			providerErr: errors.New("intra says no"), wantLocation: "/login?error=auth"},
		{name: "student signs in", path: "/oauth/callback?state=good&code=abc", state: "good",
			profile: studentProfile, wantLocation: "/", wantSession: true},
		{name: "staff kind signs in", path: "/oauth/callback?state=good&code=abc", state: "good",
			profile: staffProfile, wantLocation: "/staff", wantSession: true},
		{name: "allowlisted login becomes staff", path: "/oauth/callback?state=good&code=abc", state: "good",
			profile: wheelProfile, wantLocation: "/staff", wantSession: true},
	}

	var wheelToken string
	for _, tt := range tests {
		provider.Profile = tt.profile
		provider.Err = tt.providerErr

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			if tt.state != "" {
				req.AddCookie(&http.Cookie{Name: stateCookie, Value: tt.state})
			}
			app.ServeHTTP(rec, req)

			checkRedirect(t, rec, tt.wantLocation)

			sess := getCookie(rec, sessionCookie)
			if tt.wantSession && (sess == nil || sess.Value == "") {
				t.Errorf("no session cookie set")
			}
			if !tt.wantSession && sess != nil && sess.Value != "" {
				t.Errorf("session cookie set; want none")
			}
			if tt.name == "allowlisted login becomes staff" && sess != nil {
				wheelToken = sess.Value
			}
		})
	}

	// the allowlisted session opens the staff console
	req, rec := newAuthRequest(http.MethodGet, "/staff", wheelToken)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("staff console with allowlisted session code = %v; want %v", rec.Code, http.StatusOK)
	}

	audit := readAuditLog(t)
	for _, want := range []string{"loki signed in", "thor signed in", "Wheel signed in"} {
		if !strings.Contains(audit, want) {
			t.Errorf("audit log missing %q", want)
		}
	}
}

func Test_dashboardApi_logout(t *testing.T) {
	app := setup(t)

	// anonymous logout still lands home, without an audit entry
	req, rec := newRequest(http.MethodPost, "/logout")
	app.ServeHTTP(rec, req)
	checkRedirect(t, rec, "/")
	if audit := readAuditLog(t); strings.Contains(audit, "signed out") {
		t.Errorf("audit log records an anonymous sign-out: %q", audit)
	}

	req, rec = newAuthRequest(http.MethodPost, "/logout", getToken(t, staffSess))
	app.ServeHTTP(rec, req)
	checkRedirect(t, rec, "/")

	cleared := getCookie(rec, sessionCookie)
	if cleared == nil {
		t.Fatalf("logout did not touch the %s cookie", sessionCookie)
	}
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Errorf("logout cookie = %q (max-age %d); want it cleared", cleared.Value, cleared.MaxAge)
	}
	if audit := readAuditLog(t); !strings.Contains(audit, "thor signed out") {
		t.Errorf("audit log missing the sign-out: %q", audit)
	}
}

func checkBodyContains(t *testing.T, body string, wants ...string) {
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}
