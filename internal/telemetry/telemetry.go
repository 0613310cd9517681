package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the message pipeline, exposed on /metrics.
var (
	MessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "larkbot_messages_total",
		Help: "Inbound message events received from the transport.",
	})

	DuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "larkbot_duplicate_messages_total",
		Help: "Inbound messages dropped by the deduplication cache.",
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "larkbot_runs_total",
		Help: "Orchestration runs by outcome.",
	}, []string{"status"})

	RoutesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "larkbot_routes_total",
		Help: "Supervisor routing decisions by skill.",
	}, []string{"skill"})

	InferenceCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "larkbot_inference_calls_total",
		Help: "Structured inference invocations by workflow node.",
	}, []string{"node"})

	SearchAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "larkbot_search_attempts_total",
		Help: "News search API calls issued by the research loop.",
	})

	SearchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "larkbot_search_failures_total",
		Help: "News search API calls that failed and were treated as empty.",
	})

	FetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "larkbot_fetch_failures_total",
		Help: "Article body fetches that failed and were dropped.",
	})
)
