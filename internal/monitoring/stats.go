// Package monitoring tracks in-process service statistics for the health and
// stats endpoints.
package monitoring

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// CounterMetric represents a monotonically increasing counter
type CounterMetric struct {
	Name        string    `json:"name"`
	Value       int64     `json:"value"`
	LastUpdated time.Time `json:"last_updated"`
}

// GaugeMetric represents a gauge that can go up and down
type GaugeMetric struct {
	Name        string    `json:"name"`
	Value       float64   `json:"value"`
	LastUpdated time.Time `json:"last_updated"`
}

// HistogramMetric represents a histogram of request latencies in seconds
type HistogramMetric struct {
	Name        string            `json:"name"`
	Count       int64             `json:"count"`
	Sum         float64           `json:"sum"`
	Buckets     map[float64]int64 `json:"buckets"`
	LastUpdated time.Time         `json:"last_updated"`
}

// ServiceStats contains all collected service statistics
type ServiceStats struct {
	// Forecasting metrics
	ForecastRequests *CounterMetric   `json:"forecast_requests"`
	ForecastErrors   *CounterMetric   `json:"forecast_errors"`
	ForecastLatency  *HistogramMetric `json:"forecast_latency"`

	// Clinical analysis metrics
	ClinicalAnalyses *CounterMetric `json:"clinical_analyses"`
	ClinicalErrors   *CounterMetric `json:"clinical_errors"`

	// Integration metrics
	IntegrationRequests *CounterMetric `json:"integration_requests"`
	IntegrationErrors   *CounterMetric `json:"integration_errors"`
	DegradedResponses   *CounterMetric `json:"degraded_responses"`

	// Optimization metrics
	OptimizationRuns   *CounterMetric `json:"optimization_runs"`
	OptimizationErrors *CounterMetric `json:"optimization_errors"`
	InfeasiblePlans    *CounterMetric `json:"infeasible_plans"`

	// Data Service metrics
	DataServiceCalls   *CounterMetric   `json:"data_service_calls"`
	DataServiceErrors  *CounterMetric   `json:"data_service_errors"`
	DataServiceLatency *HistogramMetric `json:"data_service_latency"`

	// Model registry metrics
	ModelReloads *CounterMetric `json:"model_reloads"`

	// System metrics
	ActiveRequests *GaugeMetric `json:"active_requests"`
	MemoryUsage    *GaugeMetric `json:"memory_usage"`
	GoroutineCount *GaugeMetric `json:"goroutine_count"`

	mutex sync.RWMutex
}

// Collector aggregates service statistics. All methods are safe for
// concurrent use.
type Collector struct {
	logger    *logrus.Logger
	stats     *ServiceStats
	startTime time.Time
}

// NewCollector creates a new statistics collector
func NewCollector(logger *logrus.Logger) *Collector {
	stats := &ServiceStats{
		ForecastRequests: &CounterMetric{Name: "forecast_requests"},
		ForecastErrors:   &CounterMetric{Name: "forecast_errors"},
		ForecastLatency:  &HistogramMetric{Name: "forecast_latency", Buckets: createLatencyBuckets()},

		ClinicalAnalyses: &CounterMetric{Name: "clinical_analyses"},
		ClinicalErrors:   &CounterMetric{Name: "clinical_errors"},

		IntegrationRequests: &CounterMetric{Name: "integration_requests"},
		IntegrationErrors:   &CounterMetric{Name: "integration_errors"},
		DegradedResponses:   &CounterMetric{Name: "degraded_responses"},

		OptimizationRuns:   &CounterMetric{Name: "optimization_runs"},
		OptimizationErrors: &CounterMetric{Name: "optimization_errors"},
		InfeasiblePlans:    &CounterMetric{Name: "infeasible_plans"},

		DataServiceCalls:   &CounterMetric{Name: "data_service_calls"},
		DataServiceErrors:  &CounterMetric{Name: "data_service_errors"},
		DataServiceLatency: &HistogramMetric{Name: "data_service_latency", Buckets: createLatencyBuckets()},

		ModelReloads: &CounterMetric{Name: "model_reloads"},

		ActiveRequests: &GaugeMetric{Name: "active_requests"},
		MemoryUsage:    &GaugeMetric{Name: "memory_usage"},
		GoroutineCount: &GaugeMetric{Name: "goroutine_count"},
	}

	return &Collector{
		logger:    logger,
		stats:     stats,
		startTime: time.Now(),
	}
}

// RecordForecast records a forecast request
func (c *Collector) RecordForecast(duration time.Duration, success bool) {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()

	c.increment(c.stats.ForecastRequests)
	c.recordHistogram(c.stats.ForecastLatency, duration.Seconds())
	if !success {
		c.increment(c.stats.ForecastErrors)
	}
}

// RecordClinicalAnalysis records a clinical supply analysis
func (c *Collector) RecordClinicalAnalysis(success bool) {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()

	c.increment(c.stats.ClinicalAnalyses)
	if !success {
		c.increment(c.stats.ClinicalErrors)
	}
}

// RecordIntegration records an integrated forecast request
func (c *Collector) RecordIntegration(success bool, degraded bool) {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()

	c.increment(c.stats.IntegrationRequests)
	if !success {
		c.increment(c.stats.IntegrationErrors)
	}
	if degraded {
		c.increment(c.stats.DegradedResponses)
	}
}

// RecordOptimization records an optimization run
func (c *Collector) RecordOptimization(success bool, infeasibleCount int) {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()

	c.increment(c.stats.OptimizationRuns)
	if !success {
		c.increment(c.stats.OptimizationErrors)
	}
	for i := 0; i < infeasibleCount; i++ {
		c.increment(c.stats.InfeasiblePlans)
	}
}

// RecordDataServiceCall records an upstream Data Service call
func (c *Collector) RecordDataServiceCall(duration time.Duration, success bool) {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()

	c.increment(c.stats.DataServiceCalls)
	c.recordHistogram(c.stats.DataServiceLatency, duration.Seconds())
	if !success {
		c.increment(c.stats.DataServiceErrors)
	}
}

// RecordModelReload records a model registry reload
func (c *Collector) RecordModelReload() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()

	c.increment(c.stats.ModelReloads)
}

// RequestStarted increments the in-flight request gauge
func (c *Collector) RequestStarted() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()

	c.stats.ActiveRequests.Value++
	c.stats.ActiveRequests.LastUpdated = time.Now()
}

// RequestFinished decrements the in-flight request gauge
func (c *Collector) RequestFinished() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()

	c.stats.ActiveRequests.Value--
	c.stats.ActiveRequests.LastUpdated = time.Now()
}

// Uptime returns how long the collector has been running
func (c *Collector) Uptime() time.Duration {
	return time.Since(c.startTime)
}

// Snapshot returns a copy of the current statistics with refreshed system
// gauges. The copy is safe to serialize without holding the collector lock.
func (c *Collector) Snapshot() *ServiceStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	c.stats.mutex.Lock()
	c.stats.MemoryUsage.Value = float64(memStats.Alloc)
	c.stats.MemoryUsage.LastUpdated = time.Now()
	c.stats.GoroutineCount.Value = float64(runtime.NumGoroutine())
	c.stats.GoroutineCount.LastUpdated = time.Now()
	c.stats.mutex.Unlock()

	c.stats.mutex.RLock()
	defer c.stats.mutex.RUnlock()

	snapshot := &ServiceStats{
		ForecastRequests: copyCounter(c.stats.ForecastRequests),
		ForecastErrors:   copyCounter(c.stats.ForecastErrors),
		ForecastLatency:  copyHistogram(c.stats.ForecastLatency),

		ClinicalAnalyses: copyCounter(c.stats.ClinicalAnalyses),
		ClinicalErrors:   copyCounter(c.stats.ClinicalErrors),

		IntegrationRequests: copyCounter(c.stats.IntegrationRequests),
		IntegrationErrors:   copyCounter(c.stats.IntegrationErrors),
		DegradedResponses:   copyCounter(c.stats.DegradedResponses),

		OptimizationRuns:   copyCounter(c.stats.OptimizationRuns),
		OptimizationErrors: copyCounter(c.stats.OptimizationErrors),
		InfeasiblePlans:    copyCounter(c.stats.InfeasiblePlans),

		DataServiceCalls:   copyCounter(c.stats.DataServiceCalls),
		DataServiceErrors:  copyCounter(c.stats.DataServiceErrors),
		DataServiceLatency: copyHistogram(c.stats.DataServiceLatency),

		ModelReloads: copyCounter(c.stats.ModelReloads),

		ActiveRequests: copyGauge(c.stats.ActiveRequests),
		MemoryUsage:    copyGauge(c.stats.MemoryUsage),
		GoroutineCount: copyGauge(c.stats.GoroutineCount),
	}
	return snapshot
}

// increment bumps a counter. Callers must hold the stats lock.
func (c *Collector) increment(counter *CounterMetric) {
	atomic.AddInt64(&counter.Value, 1)
	counter.LastUpdated = time.Now()
}

// recordHistogram records a value in a histogram. Callers must hold the
// stats lock.
func (c *Collector) recordHistogram(histogram *HistogramMetric, value float64) {
	histogram.Count++
	histogram.Sum += value
	histogram.LastUpdated = time.Now()

	for bucketLE := range histogram.Buckets {
		if value <= bucketLE {
			histogram.Buckets[bucketLE]++
		}
	}
}

func copyCounter(counter *CounterMetric) *CounterMetric {
	counterCopy := *counter
	return &counterCopy
}

func copyGauge(gauge *GaugeMetric) *GaugeMetric {
	gaugeCopy := *gauge
	return &gaugeCopy
}

func copyHistogram(histogram *HistogramMetric) *HistogramMetric {
	histogramCopy := *histogram
	histogramCopy.Buckets = make(map[float64]int64, len(histogram.Buckets))
	for k, v := range histogram.Buckets {
		histogramCopy.Buckets[k] = v
	}
	return &histogramCopy
}

// createLatencyBuckets creates histogram buckets for latency metrics
func createLatencyBuckets() map[float64]int64 {
	buckets := make(map[float64]int64)

	// Latency buckets in seconds: 1ms, 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s, 10s
	latencyBuckets := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0}

	for _, bucket := range latencyBuckets {
		buckets[bucket] = 0
	}

	return buckets
}
