package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(chatAnswersTotal, answerLatency, promptTokensTotal) }

var chatAnswersTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_answers_total",
		Help: "Q&A answers produced, labeled by provider and success.",
	},
	[]string{"provider", "success"},
)

var answerLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "chat_answer_latency_ms",
		Help:    "Answer generation latency distribution in milliseconds.",
		Buckets: []float64{25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
	},
	[]string{"provider"},
)

var promptTokensTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chat_prompt_tokens_total",
		Help: "Sum of prompt tokens sent to the answer provider.",
	},
	[]string{"provider"},
)

func ObserveAnswer(provider string, latencyMs int64, success bool) {
	chatAnswersTotal.WithLabelValues(norm(provider), strconv.FormatBool(success)).Inc()
	answerLatency.WithLabelValues(norm(provider)).Observe(float64(latencyMs))
}

func AddPromptTokens(provider string, n int) {
	promptTokensTotal.WithLabelValues(norm(provider)).Add(float64(n))
}
