package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/fortytworoma/monitor/core"
	"github.com/fortytworoma/monitor/core/announce"
	"github.com/fortytworoma/monitor/core/banner"
	"github.com/fortytworoma/monitor/core/cluster"
	"github.com/fortytworoma/monitor/core/event"
	"github.com/fortytworoma/monitor/core/identity"
)

type dashboardApi struct {
	conf        *core.Config
	logger      core.Logger
	announceSvc announce.ServiceInterface
	bannerSvc   banner.ServiceInterface
	clusterSvc  cluster.ServiceInterface
	eventSvc    event.ServiceInterface
	identitySvc identity.ServiceInterface
	audit       core.ActionLog
}

func registerDashboardAPI(e *echo.Echo, deps ServerDeps) {
	api := dashboardApi{
		conf:        deps.Conf,
		logger:      deps.Logger,
		announceSvc: deps.AnnounceSvc,
		bannerSvc:   deps.BannerSvc,
		clusterSvc:  deps.ClusterSvc,
		eventSvc:    deps.EventSvc,
		identitySvc: deps.IdentitySvc,
		audit:       deps.AuditLog,
	}

	e.GET("/", api.dashboard)
	e.GET("/status", api.status)
	e.GET("/healthz", api.healthz)
	e.GET("/login", api.login)
	e.GET("/oauth/callback", api.oauthCallback)
	e.POST("/logout", api.logout)
}

// Handlers

func (api *dashboardApi) dashboard(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	anns, err := api.announceSvc.QueryPublished(reqCtx)
	if err != nil {
		return errors.Wrap(err, "querying published announcements")
	}

	view := dashboardView{
		AppName:       api.conf.AppName,
		Session:       peekSession(ctx),
		Announcements: anns,
		Snapshot:      api.clusterSvc.Current(),
	}

	if bn, err := api.bannerSvc.Get(reqCtx); err != nil {
		api.logger.Warn("loading banner", err)
	} else if bn.Active(time.Now()) {
		view.Banner = &bn
	}

	// the page still renders when the agenda is unavailable
	events, err := api.eventSvc.Upcoming(reqCtx)
	if err != nil {
		api.logger.Warn("loading upcoming events", err)
		view.EventsDown = true
	}
	view.Events = events

	return ctx.Render(http.StatusOK, "dashboard.gohtml", view)
}

func (api *dashboardApi) status(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, api.clusterSvc.Current())
}

func (api *dashboardApi) healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"status": "ok", "build": api.conf.Build})
}

func (api *dashboardApi) login(ctx echo.Context) error {
	if sess := peekSession(ctx); sess != nil {
		return ctx.Redirect(http.StatusFound, loginTarget(*sess))
	}

	state, err := newStateToken()
	if err != nil {
		return errors.Wrap(err, "minting state token")
	}
	setStateCookie(ctx, state)

	return ctx.Render(http.StatusOK, "login.gohtml", loginView{
		AppName: api.conf.AppName,
		AuthURL: api.identitySvc.AuthCodeURL(state),
		Error:   loginErrorMessage(ctx.QueryParam("error")),
	})
}

func (api *dashboardApi) oauthCallback(ctx echo.Context) error {
	state := ctx.QueryParam("state")
	if state == "" || state != popStateCookie(ctx) {
		return ctx.Redirect(http.StatusFound, "/login?error=state")
	}
	code := ctx.QueryParam("code")
	if code == "" {
		return ctx.Redirect(http.StatusFound, "/login?error=denied")
	}

	sess, err := api.identitySvc.Login(ctx.Request().Context(), code)
	if err != nil {
		if errors.Cause(err) == identity.ErrAuthFailed {
			api.logger.Warn("sign-in rejected", err)
			return ctx.Redirect(http.StatusFound, "/login?error=auth")
		}
		return errors.Wrap(err, "signing in")
	}

	token, err := GenerateToken(GetSessionClaims(sess))
	if err != nil {
		return errors.Wrap(err, "generating session token")
	}
	setSessionCookie(ctx, token)
	api.audit.Record(sess.Login, "signed in")

	return ctx.Redirect(http.StatusFound, loginTarget(sess))
}

func (api *dashboardApi) logout(ctx echo.Context) error {
	if sess := peekSession(ctx); sess != nil {
		api.audit.Record(sess.Login, "signed out")
	}
	clearSessionCookie(ctx)
	return ctx.Redirect(http.StatusFound, "/")
}

func loginTarget(sess identity.Session) string {
	if sess.Staff {
		return "/staff"
	}
	return "/"
}

func loginErrorMessage(code string) string {
	switch code {
	case "":
		return ""
	case "denied":
		return "Sign-in was cancelled."
	case "state":
		return "The sign-in attempt expired, please try again."
	default:
		return "Sign-in failed, please try again."
	}
}

// View models

type (
	dashboardView struct {
		AppName       string
		Session       *identity.Session
		Banner        *banner.Config
		Announcements []announce.Announcement
		Snapshot      cluster.Snapshot
		Events        []event.Event
		EventsDown    bool
	}

	loginView struct {
		AppName string
		AuthURL string
		Error   string
	}
)
