package alert

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	alertsRaised = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netweave_alerts_raised_total",
		Help: "Total alerts created, by alert type.",
	}, []string{"type"})

	alertsRefreshed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netweave_alerts_refreshed_total",
		Help: "Total deduplicated signal refreshes of open alerts, by alert type.",
	}, []string{"type"})

	alertsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netweave_alerts_resolved_total",
		Help: "Total alerts resolved, by alert type.",
	}, []string{"type"})
)
