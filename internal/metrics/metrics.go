// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_http_requests_total",
			Help: "Total HTTP requests by method, route pattern and status.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexus_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Candidate pipeline
var (
	CandidatesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexus_candidates_created_total",
		Help: "Candidates created.",
	})

	StageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_stage_transitions_total",
			Help: "Pipeline stage changes by source and target stage.",
		},
		[]string{"from", "to"},
	)

	ApplicationsLinked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_job_applications_total",
			Help: "Job application link operations by result.",
		},
		[]string{"result"},
	)
)

// Documents
var (
	DocumentUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_document_uploads_total",
			Help: "Document uploads by result.",
		},
		[]string{"result"},
	)

	DocumentUploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexus_document_upload_bytes_total",
		Help: "Bytes of successfully uploaded documents.",
	})

	TextExtractions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nexus_document_text_extractions_total",
			Help: "Document text extraction attempts by result.",
		},
		[]string{"result"},
	)
)

// Search
var (
	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nexus_search_duration_seconds",
			Help:    "Search query duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

// Result label values.
const (
	ResultSuccess     = "success"
	ResultFailure     = "failure"
	ResultRejected    = "rejected"
	ResultCompensated = "compensated"
)
