package thermcore

import (
	"testing"
	"time"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.FramesReceived != 0 {
		t.Errorf("Expected 0 initial frames, got %d", snap.FramesReceived)
	}

	m.RecordFrame(1_000_000)
	m.RecordFrame(2_000_000)
	m.RecordResyncMiss()
	m.RecordBadLengthFrame()
	m.RecordQueueDrop()
	m.RecordCalibrationBlend()

	snap = m.Snapshot()
	if snap.FramesReceived != 2 {
		t.Errorf("Expected 2 frames, got %d", snap.FramesReceived)
	}
	if snap.ResyncMisses != 1 {
		t.Errorf("Expected 1 resync miss, got %d", snap.ResyncMisses)
	}
	if snap.BadLengthFrames != 1 {
		t.Errorf("Expected 1 bad-length frame, got %d", snap.BadLengthFrames)
	}
	if snap.QueueDrops != 1 {
		t.Errorf("Expected 1 queue drop, got %d", snap.QueueDrops)
	}
	if snap.CalibrationBlends != 1 {
		t.Errorf("Expected 1 calibration blend, got %d", snap.CalibrationBlends)
	}
}

func TestMetricsLatency(t *testing.T) {
	m := NewMetrics()

	m.RecordFrame(1_000_000) // 1ms
	m.RecordFrame(2_000_000) // 2ms

	snap := m.Snapshot()

	expectedAvgNs := uint64(1_500_000)
	if snap.AvgLatencyNs != expectedAvgNs {
		t.Errorf("Expected avg latency %d ns, got %d ns", expectedAvgNs, snap.AvgLatencyNs)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)

	snap := m.Snapshot()
	if snap.UptimeNs < 10*1_000_000 {
		t.Errorf("Expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+2*1_000_000 {
		t.Errorf("Uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.RecordFrame(1_000_000)
	m.RecordQueueDrop()

	snap := m.Snapshot()
	if snap.FramesReceived == 0 {
		t.Error("Expected some frames before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.FramesReceived != 0 {
		t.Errorf("Expected 0 frames after reset, got %d", snap.FramesReceived)
	}
	if snap.QueueDrops != 0 {
		t.Errorf("Expected 0 queue drops after reset, got %d", snap.QueueDrops)
	}
}

func TestObserver(t *testing.T) {
	observer := &NoOpObserver{}
	observer.ObserveFrame(1_000_000)
	observer.ObserveResyncMiss()
	observer.ObserveQueueDrop()
	observer.ObserveCalibration()

	m := NewMetrics()
	metricsObserver := NewMetricsObserver(m)

	metricsObserver.ObserveFrame(1_000_000)
	metricsObserver.ObserveCalibration()

	snap := m.Snapshot()
	if snap.FramesReceived != 1 {
		t.Errorf("Expected 1 frame from observer, got %d", snap.FramesReceived)
	}
	if snap.CalibrationBlends != 1 {
		t.Errorf("Expected 1 calibration blend from observer, got %d", snap.CalibrationBlends)
	}
}

func TestMetricsFramesPerSecond(t *testing.T) {
	m := NewMetrics()

	startTime := time.Now()
	m.StartTime.Store(startTime.UnixNano())

	m.RecordFrame(1_000_000)
	m.RecordFrame(2_000_000)

	stopTime := startTime.Add(1 * time.Second)
	m.StopTime.Store(stopTime.UnixNano())

	snap := m.Snapshot()
	if snap.FramesPerSecond < 1.9 || snap.FramesPerSecond > 2.1 {
		t.Errorf("Expected FramesPerSecond ~2.0, got %.2f", snap.FramesPerSecond)
	}
}

func TestMetricsHistogram(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 50; i++ {
		m.RecordFrame(50_000) // 50us
	}
	for i := 0; i < 49; i++ {
		m.RecordFrame(5_000_000) // 5ms
	}
	m.RecordFrame(500_000_000) // 500ms (near P99)

	snap := m.Snapshot()

	if snap.FramesReceived != 100 {
		t.Errorf("Expected 100 total frames, got %d", snap.FramesReceived)
	}

	if snap.LatencyP50Ns > 5_000_000 {
		t.Errorf("Expected P50 <= 5ms, got %d ns", snap.LatencyP50Ns)
	}

	totalInBuckets := uint64(0)
	for i := 0; i < len(snap.LatencyHistogram); i++ {
		totalInBuckets += snap.LatencyHistogram[i]
	}
	if totalInBuckets == 0 {
		t.Error("Expected histogram buckets to be populated")
	}
}
