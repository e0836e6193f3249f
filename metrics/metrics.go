package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fortytworoma/monitor/core/announce"
	"github.com/fortytworoma/monitor/core/cluster"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_http_requests_total",
			Help: "Total number of HTTP requests by method, route, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "monitor_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monitor_http_requests_in_flight",
		Help: "Current number of HTTP requests being processed.",
	})

	feedFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_feed_fetches_total",
			Help: "Total number of status feed fetches by outcome.",
		},
		[]string{"outcome"},
	)

	feedFetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "monitor_feed_fetch_duration_seconds",
		Help:    "Status feed fetch latency in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	feedLastFetch = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monitor_feed_last_fetch_timestamp_seconds",
		Help: "Unix time of the last successful status feed fetch.",
	})
)

// ClusterSnapshotter is the subset of the cluster service needed to
// collect machine metrics.
type ClusterSnapshotter interface {
	Current() cluster.Snapshot
}

// AnnouncementLister is the subset of the announcement service needed to
// collect announcement metrics.
type AnnouncementLister interface {
	QueryAll(ctx context.Context) ([]announce.Announcement, error)
}

// dashboardCollector reports machine and announcement counts on each
// scrape, straight from the services.
type dashboardCollector struct {
	clusters      ClusterSnapshotter
	announcements AnnouncementLister

	machinesDesc      *prometheus.Desc
	staleDesc         *prometheus.Desc
	announcementsDesc *prometheus.Desc
}

func (c *dashboardCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.machinesDesc
	ch <- c.staleDesc
	ch <- c.announcementsDesc
}

func (c *dashboardCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.clusters.Current()
	for _, cs := range snap.Clusters {
		counts := map[string]int{
			cluster.StatusAvailable:   cs.Counts.Available - cs.Counts.Occupied,
			"occupied":                cs.Counts.Occupied,
			cluster.StatusMaintenance: cs.Counts.Maintenance,
			cluster.StatusOffline:     cs.Counts.Offline,
		}
		for status, n := range counts {
			ch <- prometheus.MustNewConstMetric(
				c.machinesDesc,
				prometheus.GaugeValue,
				float64(n),
				cs.Name, status,
			)
		}
	}

	var stale float64
	if snap.Stale {
		stale = 1
	}
	ch <- prometheus.MustNewConstMetric(c.staleDesc, prometheus.GaugeValue, stale)

	anns, err := c.announcements.QueryAll(context.Background())
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.announcementsDesc, err)
		return
	}
	var published, draft int
	for _, ann := range anns {
		if ann.Published {
			published++
		} else {
			draft++
		}
	}
	ch <- prometheus.MustNewConstMetric(c.announcementsDesc, prometheus.GaugeValue, float64(published), "true")
	ch <- prometheus.MustNewConstMetric(c.announcementsDesc, prometheus.GaugeValue, float64(draft), "false")
}

// Register registers all metrics with the default Prometheus registry.
// Call once at startup after the services are initialised.
func Register(clusters ClusterSnapshotter, announcements AnnouncementLister) {
	prometheus.MustRegister(
		// Standard Go runtime and process metrics
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),

		// HTTP service metrics
		httpRequestsTotal,
		httpRequestDuration,
		httpRequestsInFlight,

		// Feed metrics
		feedFetchesTotal,
		feedFetchDuration,
		feedLastFetch,

		// Application metrics
		&dashboardCollector{
			clusters:      clusters,
			announcements: announcements,
			machinesDesc: prometheus.NewDesc(
				"monitor_machines",
				"Number of machines on the floor plan, partitioned by cluster and status.",
				[]string{"cluster", "status"},
				nil,
			),
			staleDesc: prometheus.NewDesc(
				"monitor_cluster_snapshot_stale",
				"Whether the served cluster snapshot is stale (1) or fresh (0).",
				nil,
				nil,
			),
			announcementsDesc: prometheus.NewDesc(
				"monitor_announcements",
				"Number of stored announcements, partitioned by published state.",
				[]string{"published"},
				nil,
			),
		},
	)
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// EchoMiddleware records request metrics. statusOf maps a handler error to
// the status the error handler will eventually write, so errored requests
// are labeled accurately.
func EchoMiddleware(statusOf func(error) int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			httpRequestsInFlight.Inc()

			err := next(ctx)

			httpRequestsInFlight.Dec()
			status := ctx.Response().Status
			if err != nil && statusOf != nil {
				status = statusOf(err)
			}
			path := ctx.Path()
			if path == "" {
				path = "unmatched"
			}
			method := ctx.Request().Method
			httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

type instrumentedSource struct {
	src cluster.Source
}

// InstrumentSource wraps a cluster source so every upstream fetch is
// counted and timed.
func InstrumentSource(src cluster.Source) cluster.Source {
	return &instrumentedSource{src: src}
}

func (s *instrumentedSource) FetchFeed(ctx context.Context) (cluster.Feed, error) {
	start := time.Now()
	feed, err := s.src.FetchFeed(ctx)
	feedFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		feedFetchesTotal.WithLabelValues("error").Inc()
		return feed, err
	}
	feedFetchesTotal.WithLabelValues("ok").Inc()
	feedLastFetch.SetToCurrentTime()
	return feed, nil
}
