package metrics

import "github.com/prometheus/client_golang/prometheus"

// LedgerMetrics counts stock reservations and releases by SKU kind and
// outcome so operators can watch contention on hot items.
type LedgerMetrics struct {
	reservations *prometheus.CounterVec
	releases     *prometheus.CounterVec
	units        *prometheus.CounterVec
}

// Reservation outcomes used as metric label values.
const (
	OutcomeReserved     = "reserved"
	OutcomeInsufficient = "insufficient_stock"
	OutcomeUnknownSKU   = "unknown_sku"
	OutcomeError        = "error"
)

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_reservations_total",
		Help: "Stock reservation attempts by kind and outcome.",
	}, []string{"kind", "outcome"})
	releases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_releases_total",
		Help: "Stock releases by kind.",
	}, []string{"kind"})
	units := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_units_reserved_total",
		Help: "Units successfully reserved by kind.",
	}, []string{"kind"})
	reg.MustRegister(reservations, releases, units)
	return &LedgerMetrics{
		reservations: reservations,
		releases:     releases,
		units:        units,
	}
}

// IncReservation records one reservation attempt with its outcome.
func (l *LedgerMetrics) IncReservation(kind, outcome string) {
	if l == nil || l.reservations == nil {
		return
	}
	l.reservations.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

// IncRelease records one release for the given kind.
func (l *LedgerMetrics) IncRelease(kind string) {
	if l == nil || l.releases == nil {
		return
	}
	l.releases.WithLabelValues(normalizeLabel(kind)).Inc()
}

// AddUnitsReserved adds the number of units taken off the shelf.
func (l *LedgerMetrics) AddUnitsReserved(kind string, qty int) {
	if l == nil || l.units == nil || qty <= 0 {
		return
	}
	l.units.WithLabelValues(normalizeLabel(kind)).Add(float64(qty))
}
