package thermcore

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the per-frame acquisition latency histogram buckets
// in nanoseconds, from 100us to 1s.
var LatencyBuckets = []uint64{
	100_000,
	1_000_000,
	5_000_000,
	10_000_000,
	50_000_000,
	100_000_000,
	500_000_000,
	1_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks acquisition and processing statistics for a Session.
type Metrics struct {
	FramesReceived   atomic.Uint64
	ResyncMisses     atomic.Uint64
	BadLengthFrames  atomic.Uint64
	QueueDrops       atomic.Uint64
	CalibrationBlends atomic.Uint64

	TotalLatencyNs atomic.Uint64
	FrameCount     atomic.Uint64

	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordFrame records a successfully parsed and processed frame.
func (m *Metrics) RecordFrame(latencyNs uint64) {
	m.FramesReceived.Add(1)
	m.recordLatency(latencyNs)
}

// RecordResyncMiss records a resynchronizer pass that produced no frame
// because no start sentinel was found or the candidate frame lacked its
// end sentinel.
func (m *Metrics) RecordResyncMiss() {
	m.ResyncMisses.Add(1)
}

// RecordBadLengthFrame records a frame discarded because its byte length did
// not match FrameLength.
func (m *Metrics) RecordBadLengthFrame() {
	m.BadLengthFrames.Add(1)
}

// RecordQueueDrop records a byte chunk dropped because the byte queue (C2)
// was full.
func (m *Metrics) RecordQueueDrop() {
	m.QueueDrops.Add(1)
}

// RecordCalibrationBlend records a rolling recalibration blend (C6).
func (m *Metrics) RecordCalibrationBlend() {
	m.CalibrationBlends.Add(1)
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.FrameCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the session as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time snapshot of Metrics.
type MetricsSnapshot struct {
	FramesReceived    uint64
	ResyncMisses      uint64
	BadLengthFrames   uint64
	QueueDrops        uint64
	CalibrationBlends uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns uint64
	LatencyP99Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	FramesPerSecond float64
}

// Snapshot creates a point-in-time snapshot of the metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		FramesReceived:    m.FramesReceived.Load(),
		ResyncMisses:      m.ResyncMisses.Load(),
		BadLengthFrames:   m.BadLengthFrames.Load(),
		QueueDrops:        m.QueueDrops.Load(),
		CalibrationBlends: m.CalibrationBlends.Load(),
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	frameCount := m.FrameCount.Load()
	if frameCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / frameCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		snap.FramesPerSecond = float64(snap.FramesReceived) / (float64(snap.UptimeNs) / 1e9)
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if frameCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	total := m.FrameCount.Load()
	if total == 0 {
		return 0
	}

	target := uint64(float64(total) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= target {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(target-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes all counters (useful for testing).
func (m *Metrics) Reset() {
	m.FramesReceived.Store(0)
	m.ResyncMisses.Store(0)
	m.BadLengthFrames.Store(0)
	m.QueueDrops.Store(0)
	m.CalibrationBlends.Store(0)
	m.TotalLatencyNs.Store(0)
	m.FrameCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection. Implementations must be
// thread-safe: methods are called from both the transfer engine's event
// pump (queue drops) and the frame pipeline goroutine.
type Observer interface {
	ObserveFrame(latencyNs uint64)
	ObserveResyncMiss()
	ObserveQueueDrop()
	ObserveCalibration()
}

// NoOpObserver is a no-op Observer, the default when none is configured.
type NoOpObserver struct{}

func (NoOpObserver) ObserveFrame(uint64)  {}
func (NoOpObserver) ObserveResyncMiss()   {}
func (NoOpObserver) ObserveQueueDrop()    {}
func (NoOpObserver) ObserveCalibration()  {}

// MetricsObserver implements Observer by recording into a Metrics instance.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveFrame(latencyNs uint64) { o.metrics.RecordFrame(latencyNs) }
func (o *MetricsObserver) ObserveResyncMiss()            { o.metrics.RecordResyncMiss() }
func (o *MetricsObserver) ObserveQueueDrop()              { o.metrics.RecordQueueDrop() }
func (o *MetricsObserver) ObserveCalibration()            { o.metrics.RecordCalibrationBlend() }

var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = (*NoOpObserver)(nil)
)
