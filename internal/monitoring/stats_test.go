package monitoring

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCollector() *Collector {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return NewCollector(logger)
}

func TestCollector_RecordsForecastOutcomes(t *testing.T) {
	collector := newTestCollector()

	collector.RecordForecast(20*time.Millisecond, true)
	collector.RecordForecast(5*time.Millisecond, true)
	collector.RecordForecast(300*time.Millisecond, false)

	stats := collector.Snapshot()
	assert.Equal(t, int64(3), stats.ForecastRequests.Value)
	assert.Equal(t, int64(1), stats.ForecastErrors.Value)
	assert.Equal(t, int64(3), stats.ForecastLatency.Count)
	assert.InDelta(t, 0.325, stats.ForecastLatency.Sum, 1e-9)

	// 5ms and 20ms land at or below the 25ms bucket; 300ms does not.
	assert.Equal(t, int64(2), stats.ForecastLatency.Buckets[0.025])
	assert.Equal(t, int64(3), stats.ForecastLatency.Buckets[10.0])
}

func TestCollector_RecordsOptimizationInfeasibility(t *testing.T) {
	collector := newTestCollector()

	collector.RecordOptimization(true, 0)
	collector.RecordOptimization(true, 2)
	collector.RecordOptimization(false, 0)

	stats := collector.Snapshot()
	assert.Equal(t, int64(3), stats.OptimizationRuns.Value)
	assert.Equal(t, int64(1), stats.OptimizationErrors.Value)
	assert.Equal(t, int64(2), stats.InfeasiblePlans.Value)
}

func TestCollector_RecordsIntegrationDegradation(t *testing.T) {
	collector := newTestCollector()

	collector.RecordIntegration(true, false)
	collector.RecordIntegration(true, true)
	collector.RecordIntegration(false, false)

	stats := collector.Snapshot()
	assert.Equal(t, int64(3), stats.IntegrationRequests.Value)
	assert.Equal(t, int64(1), stats.IntegrationErrors.Value)
	assert.Equal(t, int64(1), stats.DegradedResponses.Value)
}

func TestCollector_TracksActiveRequests(t *testing.T) {
	collector := newTestCollector()

	collector.RequestStarted()
	collector.RequestStarted()
	collector.RequestFinished()

	stats := collector.Snapshot()
	assert.Equal(t, 1.0, stats.ActiveRequests.Value)
}

func TestCollector_SnapshotIsIndependent(t *testing.T) {
	collector := newTestCollector()
	collector.RecordDataServiceCall(10*time.Millisecond, true)

	before := collector.Snapshot()
	collector.RecordDataServiceCall(10*time.Millisecond, false)
	after := collector.Snapshot()

	assert.Equal(t, int64(1), before.DataServiceCalls.Value)
	assert.Equal(t, int64(2), after.DataServiceCalls.Value)
	assert.Equal(t, int64(0), before.DataServiceErrors.Value)
	assert.Equal(t, int64(1), after.DataServiceErrors.Value)
	assert.Equal(t, int64(1), before.DataServiceLatency.Buckets[0.01])
	assert.Equal(t, int64(2), after.DataServiceLatency.Buckets[0.01])
}

func TestCollector_SnapshotRefreshesSystemGauges(t *testing.T) {
	collector := newTestCollector()

	stats := collector.Snapshot()
	require.NotNil(t, stats.MemoryUsage)
	assert.Greater(t, stats.MemoryUsage.Value, 0.0)
	assert.Greater(t, stats.GoroutineCount.Value, 0.0)
	assert.Greater(t, collector.Uptime(), time.Duration(0))
}
