package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// NegotiationMetrics records counters for the purchase negotiation core.
// All methods are nil-safe so wiring stays optional in tests.
type NegotiationMetrics struct {
	claims      *prometheus.CounterVec
	expired     prometheus.Counter
	transitions *prometheus.CounterVec
	ratings     prometheus.Counter
}

// NewNegotiationMetrics registers the negotiation metrics on the provided registerer.
func NewNegotiationMetrics(reg prometheus.Registerer) *NegotiationMetrics {
	if reg == nil {
		return &NegotiationMetrics{}
	}
	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_claims_total",
		Help: "Reservation claim attempts by outcome.",
	}, []string{"result"})
	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservations_expired_total",
		Help: "Reservations released after their TTL elapsed.",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transaction_transitions_total",
		Help: "Transaction state machine transitions by target state.",
	}, []string{"to"})
	ratings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ratings_submitted_total",
		Help: "Accepted counterparty ratings.",
	})
	reg.MustRegister(claims, expired, transitions, ratings)
	return &NegotiationMetrics{
		claims:      claims,
		expired:     expired,
		transitions: transitions,
		ratings:     ratings,
	}
}

// ObserveClaim increments the claim counter for the given outcome label.
func (m *NegotiationMetrics) ObserveClaim(result string) {
	if m == nil || m.claims == nil {
		return
	}
	m.claims.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveExpiry counts a reservation released by the expiry sweep.
func (m *NegotiationMetrics) ObserveExpiry() {
	if m == nil || m.expired == nil {
		return
	}
	m.expired.Inc()
}

// ObserveTransition counts a state machine edge into the named state.
func (m *NegotiationMetrics) ObserveTransition(to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(to)).Inc()
}

// ObserveRating counts an accepted rating submission.
func (m *NegotiationMetrics) ObserveRating() {
	if m == nil || m.ratings == nil {
		return
	}
	m.ratings.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
