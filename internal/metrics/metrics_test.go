package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New()
	m.UploadFinished(OutcomeSuccess, 1.5)
	m.UploadFinished(OutcomeError, 0)
	m.UploadFinished(OutcomeError, 0)
	m.ChatFinished(OutcomeSuccess)
	m.IndexPublished(42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploadsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.uploadsTotal.WithLabelValues(OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.indexChunks))
	assert.Equal(t, 1, testutil.CollectAndCount(m.indexingDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.UploadFinished(OutcomeSuccess, 1)
		m.ChatFinished(OutcomeError)
		m.IndexPublished(1)
	})
}
