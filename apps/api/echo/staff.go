package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/fortytworoma/monitor/core"
	"github.com/fortytworoma/monitor/core/announce"
	"github.com/fortytworoma/monitor/core/banner"
	"github.com/fortytworoma/monitor/core/cluster"
	"github.com/fortytworoma/monitor/core/identity"
)

type staffApi struct {
	conf        *core.Config
	announceSvc announce.ServiceInterface
	bannerSvc   banner.ServiceInterface
	clusterSvc  cluster.ServiceInterface
	audit       core.ActionLog
	validate    *validator.Validate
}

func registerStaffAPI(e *echo.Echo, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := staffApi{
		conf:        deps.Conf,
		announceSvc: deps.AnnounceSvc,
		bannerSvc:   deps.BannerSvc,
		clusterSvc:  deps.ClusterSvc,
		audit:       deps.AuditLog,
		validate:    deps.Validate,
	}

	sg := e.Group("/staff", jwt, staffMiddleware(deps.AuditLog))
	sg.GET("", api.console)

	ag := sg.Group("/announcements")
	ag.GET("", api.queryAnnouncements)
	ag.POST("", api.createAnnouncement)
	ag.PUT("/:id", api.updateAnnouncement)
	ag.DELETE("/:id", api.deleteAnnouncement)
	ag.POST("/reorder", api.reorderAnnouncements)

	sg.POST("/banner", api.setBanner)
	sg.POST("/maintenance", api.setMaintenance)
	sg.POST("/refresh", api.refreshStatus)
}

// Handlers

func (api *staffApi) console(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	reqCtx := ctx.Request().Context()

	anns, err := api.announceSvc.QueryAll(reqCtx)
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	bn, err := api.bannerSvc.Get(reqCtx)
	if err != nil {
		return errors.Wrap(err, "loading banner")
	}

	return ctx.Render(http.StatusOK, "staff.gohtml", consoleView{
		AppName:       api.conf.AppName,
		Session:       claims.session(),
		Announcements: anns,
		Banner:        bn,
		Snapshot:      api.clusterSvc.Current(),
	})
}

func (api *staffApi) queryAnnouncements(ctx echo.Context) error {
	anns, err := api.announceSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	if anns == nil {
		anns = []announce.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *staffApi) createAnnouncement(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data announce.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	data.Author = claims.Login
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	ann, err := api.announceSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}

	api.audit.Record(claims.Login, fmt.Sprintf("created announcement %q", ann.Title))
	return ctx.JSON(http.StatusCreated, ann)
}

func (api *staffApi) updateAnnouncement(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	orig, err := api.announceSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == announce.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding announcement by ID")
	}

	var data announce.UpdateAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAnnouncement")
	}
	if err := data.Validate(orig, api.validate); err != nil {
		return err
	}

	ann, err := api.announceSvc.Update(ctx.Request().Context(), orig.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating announcement")
	}

	api.audit.Record(claims.Login, fmt.Sprintf("edited announcement %q", ann.Title))
	return ctx.JSON(http.StatusOK, ann)
}

func (api *staffApi) deleteAnnouncement(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	id := ctx.Param("id")
	if err := api.announceSvc.Delete(ctx.Request().Context(), id); err != nil {
		if errors.Cause(err) == announce.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting announcement")
	}

	api.audit.Record(claims.Login, fmt.Sprintf("deleted announcement %s", id))
	return ctx.NoContent(http.StatusNoContent)
}

func (api *staffApi) reorderAnnouncements(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data announce.ReorderRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReorderRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	anns, err := api.announceSvc.Reorder(ctx.Request().Context(), data.IDs)
	if err != nil {
		return errors.Wrap(err, "reordering announcements")
	}

	api.audit.Record(claims.Login, "reordered the announcements")
	return ctx.JSON(http.StatusOK, anns)
}

func (api *staffApi) setBanner(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data banner.UpdateBanner
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateBanner")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	conf, err := api.bannerSvc.Set(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "updating banner")
	}

	if conf.Enabled {
		api.audit.Record(claims.Login, fmt.Sprintf("enabled the banner %q", conf.Message))
	} else {
		api.audit.Record(claims.Login, "disabled the banner")
	}
	return ctx.JSON(http.StatusOK, conf)
}

func (api *staffApi) setMaintenance(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data cluster.MaintenanceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MaintenanceRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	snap, err := api.clusterSvc.SetMaintenance(ctx.Request().Context(), data.MachineID, data.Flagged())
	if err != nil {
		return errors.Wrap(err, "updating maintenance")
	}

	if data.Flagged() {
		api.audit.Record(claims.Login, fmt.Sprintf("flagged %s for maintenance", data.MachineID))
	} else {
		api.audit.Record(claims.Login, fmt.Sprintf("cleared the maintenance flag on %s", data.MachineID))
	}
	return ctx.JSON(http.StatusOK, snap)
}

func (api *staffApi) refreshStatus(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	snap, err := api.clusterSvc.Refresh(ctx.Request().Context())
	if err != nil {
		if errors.Cause(err) == cluster.ErrUpstreamUnavailable {
			return errHttpUpstreamDown
		}
		return errors.Wrap(err, "refreshing cluster status")
	}

	api.audit.Record(claims.Login, "forced a status refresh")
	return ctx.JSON(http.StatusOK, snap)
}

// View models

type consoleView struct {
	AppName       string
	Session       identity.Session
	Announcements []announce.Announcement
	Banner        banner.Config
	Snapshot      cluster.Snapshot
}
