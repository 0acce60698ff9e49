package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for slot search and booking flows.
type BookingMetrics struct {
	searchTotal  *prometheus.CounterVec
	bookingTotal *prometheus.CounterVec
	lockWait     prometheus.Histogram
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		searchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "booking",
			Name:      "search_total",
			Help:      "Total slot searches by outcome",
		}, []string{"result"}),
		bookingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "booking",
			Name:      "transactions_total",
			Help:      "Total schedule transactions by operation and outcome",
		}, []string{"op", "result"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scheduler",
			Subsystem: "booking",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for a doctor's schedule lock",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.searchTotal, m.bookingTotal, m.lockWait)
	return m
}

// ObserveSearch records a search outcome: "found", "empty" or an error class.
func (m *BookingMetrics) ObserveSearch(result string) {
	if m == nil {
		return
	}
	m.searchTotal.WithLabelValues(result).Inc()
}

// ObserveTransaction records the outcome of book, release or block.
func (m *BookingMetrics) ObserveTransaction(op, result string) {
	if m == nil {
		return
	}
	m.bookingTotal.WithLabelValues(op, result).Inc()
}

func (m *BookingMetrics) ObserveLockWait(seconds float64) {
	if m == nil {
		return
	}
	m.lockWait.Observe(seconds)
}
