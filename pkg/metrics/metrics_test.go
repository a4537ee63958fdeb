package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	require.NotNil(t, m)

	m.RecordSession(true, 10*time.Millisecond)
	m.RecordChunk(64)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["fbt_sessions_total"])
	assert.True(t, names["fbt_session_duration_seconds"])
	assert.True(t, names["fbt_chunks_read_total"])
	assert.True(t, names["fbt_chunk_bytes_read_total"])
}

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordSession(true, time.Millisecond)
	m.RecordSession(false, time.Millisecond)
	m.RecordSession(false, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsTotal.WithLabelValues(statusSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsTotal.WithLabelValues(statusError)))

	m.RecordChunk(100)
	m.RecordChunk(28)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.chunksRead))
	assert.Equal(t, 128.0, testutil.ToFloat64(m.chunkBytesRead))

	m.RecordDuplicate()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.duplicateChunks))

	m.BlockConverted(ModeFields)
	m.BlockConverted(ModeFields)
	m.BlockConverted(ModePointerArray)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.blocksConverted.WithLabelValues(ModeFields)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.blocksConverted.WithLabelValues(ModePointerArray)))

	m.RecordLinks(5, 2, 1)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.fieldLinks.WithLabelValues("linked")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fieldLinks.WithLabelValues("missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fieldLinks.WithLabelValues("cast")))

	m.UnresolvedPointer()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unresolvedPointers))

	m.RecordCatalogOperation("put", true)
	m.RecordCatalogOperation("put", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.catalogOperationsTotal.WithLabelValues("put", statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.catalogOperationsTotal.WithLabelValues("put", statusError)))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordSession(true, time.Second)
		m.RecordChunk(1)
		m.RecordDuplicate()
		m.BlockConverted(ModeCopy)
		m.RecordLinks(1, 1, 1)
		m.UnresolvedPointer()
		m.RecordCatalogOperation("get", true)
	})
}
