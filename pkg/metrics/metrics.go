package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Conversion modes reported by BlockConverted.
const (
	ModeFields       = "fields"
	ModeVerbatim     = "verbatim"
	ModePointerArray = "pointer_array"
	ModeCopy         = "copy"
)

// Metrics holds the Prometheus collectors for archive sessions. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	// Session metrics
	sessionsTotal   *prometheus.CounterVec
	sessionDuration prometheus.Histogram

	// Chunk metrics
	chunksRead      prometheus.Counter
	chunkBytesRead  prometheus.Counter
	duplicateChunks prometheus.Counter

	// Relinker metrics
	blocksConverted    *prometheus.CounterVec
	fieldLinks         *prometheus.CounterVec
	unresolvedPointers prometheus.Counter

	// Catalog metrics
	catalogOperationsTotal *prometheus.CounterVec
}

// NewMetrics creates all collectors and registers them with reg. A nil reg
// uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		sessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fbt_sessions_total",
				Help: "Total number of archive sessions opened",
			},
			[]string{"status"},
		),

		sessionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fbt_session_duration_seconds",
				Help:    "Time spent parsing and relinking one archive",
				Buckets: prometheus.DefBuckets,
			},
		),

		chunksRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fbt_chunks_read_total",
				Help: "Total number of chunks read",
			},
		),

		chunkBytesRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fbt_chunk_bytes_read_total",
				Help: "Total number of chunk payload bytes read",
			},
		),

		duplicateChunks: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fbt_duplicate_chunks_total",
				Help: "Chunks dropped because an identical header was already stored",
			},
		),

		blocksConverted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fbt_blocks_converted_total",
				Help: "Total number of blocks converted to the host layout",
			},
			[]string{"mode"},
		),

		fieldLinks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fbt_field_links_total",
				Help: "Host fields by link outcome",
			},
			[]string{"outcome"},
		),

		unresolvedPointers: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fbt_unresolved_pointers_total",
				Help: "Non-null pointers with no block at the referenced address",
			},
		),

		catalogOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fbt_catalog_operations_total",
				Help: "Total number of catalog operations",
			},
			[]string{"operation", "status"},
		),
	}

	return m
}

// RecordSession records the outcome of opening one archive.
func (m *Metrics) RecordSession(success bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.sessionsTotal.WithLabelValues(status).Inc()
	m.sessionDuration.Observe(duration.Seconds())
}

// RecordChunk records one chunk and its payload size.
func (m *Metrics) RecordChunk(payload int) {
	if m == nil {
		return
	}
	m.chunksRead.Inc()
	m.chunkBytesRead.Add(float64(payload))
}

// RecordDuplicate records a dropped duplicate chunk.
func (m *Metrics) RecordDuplicate() {
	if m == nil {
		return
	}
	m.duplicateChunks.Inc()
}

// BlockConverted records one converted block.
func (m *Metrics) BlockConverted(mode string) {
	if m == nil {
		return
	}
	m.blocksConverted.WithLabelValues(mode).Inc()
}

// RecordLinks records link outcome counts for a compiled schema link.
func (m *Metrics) RecordLinks(linked, missing, cast int) {
	if m == nil {
		return
	}
	m.fieldLinks.WithLabelValues("linked").Add(float64(linked))
	m.fieldLinks.WithLabelValues("missing").Add(float64(missing))
	m.fieldLinks.WithLabelValues("cast").Add(float64(cast))
}

// UnresolvedPointer records a pointer that referenced no block.
func (m *Metrics) UnresolvedPointer() {
	if m == nil {
		return
	}
	m.unresolvedPointers.Inc()
}

// RecordCatalogOperation records a catalog operation.
func (m *Metrics) RecordCatalogOperation(operation string, success bool) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.catalogOperationsTotal.WithLabelValues(operation, status).Inc()
}
