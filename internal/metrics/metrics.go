// Package metrics registers the ingestion pipeline's Prometheus counters.
// cmd/server exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatflow_messages_ingested_total",
		Help: "Messages inserted by ingestion or the send API.",
	})
	StatusesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatflow_statuses_applied_total",
		Help: "Status transitions applied to stored messages.",
	})
	OrphanStatuses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatflow_orphan_statuses_total",
		Help: "Status entries referencing no stored message.",
	})
	DocumentsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatflow_documents_skipped_total",
		Help: "Payload documents skipped as malformed or unclassifiable.",
	})
)
