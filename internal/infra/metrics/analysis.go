package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		analysisJobsTotal,
		imagesSkippedTotal,
		facesDetectedTotal,
		inferenceLatency,
	)
}

var analysisJobsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analysis_jobs_total",
		Help: "Total number of analysis jobs finished, labeled by status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var imagesSkippedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "analysis_images_skipped_total",
		Help: "Per-image skips during pipeline execution, labeled by reason.",
	},
	[]string{"reason"}, // 'missing', 'inference_error'
)

var facesDetectedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "analysis_faces_detected_total",
		Help: "Total face records folded into aggregates.",
	},
)

var inferenceLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "vision_inference_latency_ms",
		Help:    "Per-image vision inference latency in milliseconds.",
		Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
	},
)

func IncAnalysisJob(status string) {
	analysisJobsTotal.WithLabelValues(norm(status)).Inc()
}

func IncImageSkip(reason string) {
	imagesSkippedTotal.WithLabelValues(norm(reason)).Inc()
}

func AddFacesDetected(n int) {
	facesDetectedTotal.Add(float64(n))
}

func ObserveInferenceLatency(ms int64) {
	inferenceLatency.Observe(float64(ms))
}
