package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "assistant"

var (
	Intents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "intents_total",
		Help:      "Decisions made by the intent engine, by action.",
	}, []string{"action"})

	WizardTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wizard_transitions_total",
		Help:      "Wizard steps by flow and outcome (started, prompted, committed, cancelled, rejected).",
	}, []string{"flow", "outcome"})

	Extractions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_total",
		Help:      "Structured extraction calls by result status.",
	}, []string{"status"})

	QueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "worker_queue_depth",
		Help:      "Messages waiting in per-user queues.",
	})
)

// Register adds the collectors to reg, tolerating a second registration.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	collectors := []prometheus.Collector{Intents, WizardTransitions, Extractions, QueueDepth}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return fmt.Errorf("ошибка при регистрации метрики: %w", err)
		}
	}
	return nil
}

func Handler() http.Handler {
	return promhttp.Handler()
}
