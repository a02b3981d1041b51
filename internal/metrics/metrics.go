// Package metrics exposes Prometheus instrumentation for the game engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PuzzlesGenerated counts fresh daily puzzle generations by reuse flag.
	PuzzlesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daily_quiz_puzzles_generated_total",
		Help: "Daily puzzles generated, labelled by whether the catalog had to be recycled",
	}, []string{"reused"})

	RoundsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "daily_quiz_rounds_started_total",
		Help: "Round tokens issued",
	})

	AnswersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daily_quiz_answers_total",
		Help: "Answers accepted, labelled by correctness",
	}, []string{"result"})

	AnswerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daily_quiz_answer_rejections_total",
		Help: "Answers rejected before scoring, labelled by reason",
	}, []string{"reason"})

	AnswerLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "daily_quiz_answer_latency_seconds",
		Help:    "Time between round issue and answer receipt",
		Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13, 21, 34, 55},
	})

	RunsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daily_quiz_runs_completed_total",
		Help: "Completed runs by classification",
	}, []string{"classification"})
)

// ResultLabel maps answer correctness to a label value
func ResultLabel(correct bool) string {
	if correct {
		return "correct"
	}
	return "incorrect"
}
