package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveMessage(t *testing.T) {
	m := New()
	m.ObserveMessage("PING", "ok")
	m.ObserveMessage("PING", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.messages.WithLabelValues("PING", "ok")))
}

func TestSetCounts(t *testing.T) {
	m := New()
	m.SetCounts(2, 3, 4)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.items.WithLabelValues("savedNotes")))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.badge))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveMessage("PING", "ok")
		m.SetCounts(1, 1, 1)
	})
}
