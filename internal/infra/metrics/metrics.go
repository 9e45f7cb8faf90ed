package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_estimate_conversions_total",
		Help: "Estimate-to-job conversion attempts by outcome.",
	}, []string{"outcome"})

	PriceAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_price_alerts_total",
		Help: "Material price-change alerts by level.",
	}, []string{"level"})

	PriceUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backoffice_price_updates_total",
		Help: "Material price updates recorded.",
	})
)
