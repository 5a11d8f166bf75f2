package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	SearchesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_searches_total",
			Help: "Total number of searches by executed search type.",
		},
		[]string{"search_type"},
	)
	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matcher_search_duration_seconds",
			Help:    "Duration of each orchestrated search in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
	SearchStepDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "matcher_search_step_duration_seconds",
			Help:       "Duration of each step in the search pipeline.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step"},
	)
	FilteredJobsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matcher_jobs_filtered_total",
			Help: "Total number of jobs rejected by strict post-filters.",
		},
	)
	CacheRequestsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_cache_requests_total",
			Help: "Cache lookups by cache name and outcome.",
		},
		[]string{"cache", "outcome"},
	)
	EmbeddingTasksCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_embedding_tasks_total",
			Help: "Background embedding tasks by final status.",
		},
		[]string{"status"},
	)
)

func StartMetricsServer(port int) {

	prometheus.MustRegister(ErrorsCounter)
	prometheus.MustRegister(SearchesCounter)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchStepDuration)
	prometheus.MustRegister(FilteredJobsCounter)
	prometheus.MustRegister(CacheRequestsCounter)
	prometheus.MustRegister(EmbeddingTasksCounter)

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", port), nil))
	}()
}
