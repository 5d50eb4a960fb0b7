package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricOffersReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ubna",
			Name:      "offers_received_total",
			Help:      "Offers received from the counterpart",
		},
	)

	metricOffersMade = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ubna",
			Name:      "offers_made_total",
			Help:      "Offers proposed by the agent",
		},
	)

	metricAccepts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ubna",
			Name:      "accepts_total",
			Help:      "Accept decisions by triggering condition",
		},
		[]string{"condition"},
	)

	metricReceivedOwnUtility = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ubna",
			Name:      "received_own_utility",
			Help:      "Own utility of the last received offer [0,1]",
		},
	)

	metricReceivedOpponentUtility = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ubna",
			Name:      "received_predicted_opponent_utility",
			Help:      "Predicted opponent utility of the last received offer [0,1]",
		},
	)

	metricCandidateSetSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ubna",
			Name:      "candidate_set_size",
			Help:      "Current candidate working-set size",
		},
	)

	metricRecognizedStrategy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ubna",
			Name:      "recognized_strategy",
			Help:      "Recognized opponent archetype (1 for the concluded label)",
		},
		[]string{"strategy"},
	)
)

// recordOfferReceived records metrics for one received offer.
func recordOfferReceived(ownUtility, opponentUtility float64) {
	metricOffersReceived.Inc()
	metricReceivedOwnUtility.Set(ownUtility)
	metricReceivedOpponentUtility.Set(opponentUtility)
}

// recordAccept records which acceptance condition fired.
func recordAccept(condition string) {
	metricAccepts.WithLabelValues(condition).Inc()
}

// recordOfferMade records one outgoing offer.
func recordOfferMade() {
	metricOffersMade.Inc()
}

// recordCandidateSetSize records the working-set size after a refresh.
func recordCandidateSetSize(n int) {
	metricCandidateSetSize.Set(float64(n))
}

// recordRecognizedStrategy marks the concluded archetype.
func recordRecognizedStrategy(strategy string) {
	metricRecognizedStrategy.WithLabelValues(strategy).Set(1)
}
