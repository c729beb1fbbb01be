package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics records bidding engine activity.
type EngineMetrics struct {
	bidsCommitted  *prometheus.CounterVec
	bidsRejected   *prometheus.CounterVec
	cascadeDepth   prometheus.Histogram
	lockContention prometheus.Counter
	extensions     prometheus.Counter
	settlements    *prometheus.CounterVec
}

// NewEngineMetrics registers the bidding engine metrics on the provided registerer.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	if reg == nil {
		return &EngineMetrics{}
	}
	bidsCommitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bids_committed_total",
		Help: "Committed bid records by kind.",
	}, []string{"kind"})
	bidsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bids_rejected_total",
		Help: "Rejected bid attempts by reason.",
	}, []string{"reason"})
	cascadeDepth := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bid_cascade_depth",
		Help:    "Number of counter-bid rounds triggered by a single incoming bid.",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})
	lockContention := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auction_lock_contention_total",
		Help: "Bid attempts rejected because the auction lock was held.",
	})
	extensions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auction_extensions_total",
		Help: "Soft-close extensions applied to auctions.",
	})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auction_settlements_total",
		Help: "Auction settlement outcomes.",
	}, []string{"outcome"})
	reg.MustRegister(bidsCommitted, bidsRejected, cascadeDepth, lockContention, extensions, settlements)
	return &EngineMetrics{
		bidsCommitted:  bidsCommitted,
		bidsRejected:   bidsRejected,
		cascadeDepth:   cascadeDepth,
		lockContention: lockContention,
		extensions:     extensions,
		settlements:    settlements,
	}
}

// IncBidCommitted increments the committed bid counter for a kind ("direct" or "counter").
func (e *EngineMetrics) IncBidCommitted(kind string) {
	if e == nil || e.bidsCommitted == nil {
		return
	}
	e.bidsCommitted.WithLabelValues(normalizeLabel(kind)).Inc()
}

// IncBidRejected increments the rejected bid counter for a reason.
func (e *EngineMetrics) IncBidRejected(reason string) {
	if e == nil || e.bidsRejected == nil {
		return
	}
	e.bidsRejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveCascadeDepth records how many counter-bid rounds a bid triggered.
func (e *EngineMetrics) ObserveCascadeDepth(rounds int) {
	if e == nil || e.cascadeDepth == nil {
		return
	}
	e.cascadeDepth.Observe(float64(rounds))
}

// IncLockContention increments the lock contention counter.
func (e *EngineMetrics) IncLockContention() {
	if e == nil || e.lockContention == nil {
		return
	}
	e.lockContention.Inc()
}

// IncExtension increments the soft-close extension counter.
func (e *EngineMetrics) IncExtension() {
	if e == nil || e.extensions == nil {
		return
	}
	e.extensions.Inc()
}

// IncSettlement increments the settlement counter for an outcome ("won", "no_bids", "skipped").
func (e *EngineMetrics) IncSettlement(outcome string) {
	if e == nil || e.settlements == nil {
		return
	}
	e.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
}
