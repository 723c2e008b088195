// Package metrics exposes Prometheus collectors for document processing and retrieval.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	// EmbeddingRequests counts embedding calls.
	// Labels: provider, status (success|error)
	EmbeddingRequests *prometheus.CounterVec

	// EmbeddingDuration measures a single embedding call in seconds.
	// Labels: provider
	EmbeddingDuration *prometheus.HistogramVec

	// DocumentsProcessed counts processDocument runs.
	// Labels: outcome (complete|partial|failed)
	DocumentsProcessed *prometheus.CounterVec

	// ChunksStored counts persisted chunks.
	// Labels: embedded (true|false)
	ChunksStored *prometheus.CounterVec

	// SearchRequests counts similarity searches.
	// Labels: scope (owner|global), status (success|error)
	SearchRequests *prometheus.CounterVec

	// SearchResults is the number of chunks returned per successful search.
	SearchResults prometheus.Histogram
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EmbeddingRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edurag_embedding_requests_total",
			Help: "Embedding backend calls by provider and status.",
		}, []string{"provider", "status"}),
		EmbeddingDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edurag_embedding_request_duration_seconds",
			Help:    "Latency of a single embedding call.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"provider"}),
		DocumentsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edurag_documents_processed_total",
			Help: "Document processing runs by outcome.",
		}, []string{"outcome"}),
		ChunksStored: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edurag_chunks_stored_total",
			Help: "Persisted chunks, split by whether they carry an embedding.",
		}, []string{"embedded"}),
		SearchRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edurag_search_requests_total",
			Help: "Similarity searches by scope and status.",
		}, []string{"scope", "status"}),
		SearchResults: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "edurag_search_results",
			Help:    "Chunks returned per search.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
		}),
	}
}

func (m *Metrics) ObserveEmbedding(provider string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.EmbeddingRequests.WithLabelValues(provider, status(err)).Inc()
	m.EmbeddingDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func (m *Metrics) DocumentProcessed(outcome string, embedded, missing int) {
	if m == nil {
		return
	}
	m.DocumentsProcessed.WithLabelValues(outcome).Inc()
	m.ChunksStored.WithLabelValues("true").Add(float64(embedded))
	m.ChunksStored.WithLabelValues("false").Add(float64(missing))
}

func (m *Metrics) SearchCompleted(scope string, results int, err error) {
	if m == nil {
		return
	}
	m.SearchRequests.WithLabelValues(scope, status(err)).Inc()
	if err == nil {
		m.SearchResults.Observe(float64(results))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
