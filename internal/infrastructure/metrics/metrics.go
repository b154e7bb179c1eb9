package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InstallsTotal counts completed OAuth installations.
	InstallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "garagem_installs_total",
		Help: "Completed OAuth installations.",
	})

	// TogglesTotal counts favorite toggles by resulting action.
	TogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "garagem_toggles_total",
		Help: "Favorite toggles by resulting action.",
	}, []string{"action"})

	// MetafieldReadsTotal counts favorites reads by the state of the stored
	// value. The malformed series is the visibility the defensive empty-set
	// fallback would otherwise hide.
	MetafieldReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "garagem_metafield_reads_total",
		Help: "Favorites metafield reads by value state.",
	}, []string{"state"})

	// SignatureFailuresTotal counts rejected inbound signatures by mode.
	SignatureFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "garagem_signature_failures_total",
		Help: "Rejected inbound request signatures by verification mode.",
	}, []string{"mode"})
)
