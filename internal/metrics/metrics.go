package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quizroom"

var (
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rooms_active",
		Help:      "Rooms currently registered in memory.",
	})

	PlayersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "players_connected",
		Help:      "Players currently seated in a room.",
	})

	RoundsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rounds_started_total",
		Help:      "Rounds started across all rooms.",
	})

	// Answers is labelled by kind: answered, skipped or timed_out.
	Answers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answers_total",
		Help:      "Answers recorded, by kind.",
	}, []string{"kind"})

	// RoomsPersisted is labelled by result: ok, error or skipped.
	RoomsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rooms_persisted_total",
		Help:      "Teardown writes of ended rooms, by result.",
	}, []string{"result"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
