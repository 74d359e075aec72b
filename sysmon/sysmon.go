package sysmon

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rhoulihan/BSON-JSON-bakeoff/report"
	"github.com/rhoulihan/BSON-JSON-bakeoff/target"
)

// ResourceMonitor samples /proc counters on the target at a fixed interval and
// turns consecutive snapshots into rates. It runs alongside the benchmarks and
// is stopped once the suite is done.
type ResourceMonitor struct {
	target     target.Target
	interval   time.Duration
	outputPath string
	stop       *atomic.Bool
	wg         *sync.WaitGroup

	mu       sync.Mutex
	samples  []*report.ResourceSnapshot
	activity []*report.ActivityWindow

	prevCPU  *cpuTimeStat
	prevDisk map[string]*diskCounters
	prevNet  map[string]*netCounters
}

func NewResourceMonitor(t target.Target, interval time.Duration, outputPath string) *ResourceMonitor {
	return &ResourceMonitor{
		target:     t,
		interval:   interval,
		outputPath: outputPath,
		stop:       &atomic.Bool{},
		wg:         &sync.WaitGroup{},
	}
}

func (m *ResourceMonitor) StartMonitoring() {
	m.wg.Add(1)
	go m.runMonitor()
}

func (m *ResourceMonitor) StopMonitoring() {
	m.stop.Store(true)
}

func (m *ResourceMonitor) WaitUntilStopped() {
	m.wg.Wait()
}

// MarkActivity records a benchmark's execution window so the report can
// annotate the resource timeline.
func (m *ResourceMonitor) MarkActivity(name string, start, end time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append(m.activity, &report.ActivityWindow{Name: name, Start: start, End: end})
}

func (m *ResourceMonitor) Snapshots() []*report.ResourceSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*report.ResourceSnapshot, len(m.samples))
	copy(out, m.samples)
	return out
}

var maxJitter = 1 * time.Second

func (m *ResourceMonitor) runMonitor() {
	defer m.wg.Done()
	slog.Info("resource monitoring started", slog.Duration("interval", m.interval), slog.String("output", m.outputPath))
	lastWakeTime := time.Now()
	for {
		if m.stop.Load() {
			break
		}

		jitterMs := time.Since(lastWakeTime).Milliseconds() - m.interval.Milliseconds()
		if jitterMs > maxJitter.Milliseconds() {
			slog.Warn("ResourceMonitor: jitter exceeded maximum", slog.Int64("jitterMs", jitterMs))
		}
		lastWakeTime = time.Now()

		m.collect(time.Now())
		time.Sleep(m.interval)
	}
	slog.Debug("ResourceMonitor: stopped")
}

// collect takes one snapshot of every /proc source and appends a sample once a
// previous snapshot exists to diff against. The first tick only seeds state.
func (m *ResourceMonitor) collect(now time.Time) {
	interval := m.interval.Seconds()

	currCPU := parseCPUTimeStat(m.runCommand("cat /proc/stat"))
	currDisk := parseDiskCounters(m.runCommand("cat /proc/diskstats"))
	currNet := parseNetCounters(m.runCommand("cat /proc/net/dev"))

	cpu := computeCPUUsage(m.prevCPU, currCPU)
	disk := computeDiskRates(m.prevDisk, currDisk, interval)
	net := computeNetworkRates(m.prevNet, currNet, interval)

	m.prevCPU = currCPU
	m.prevDisk = currDisk
	m.prevNet = currNet

	if cpu == nil {
		return
	}

	snapshot := &report.ResourceSnapshot{
		Timestamp: now.Format(time.RFC3339),
		CPU:       cpu,
		Disk:      disk,
		Network:   net,
	}

	m.mu.Lock()
	m.samples = append(m.samples, snapshot)
	m.mu.Unlock()
}

func (m *ResourceMonitor) runCommand(cmd string) []byte {
	buf, err := m.target.RunCommand(cmd)
	if err != nil {
		slog.Warn("ResourceMonitor: failed to run command", slog.String("command", cmd), slog.String("error", err.Error()))
		return nil
	}
	return buf
}

// WriteResults assembles the resource_metrics.json document from the collected
// samples and writes it next to the benchmark results.
func (m *ResourceMonitor) WriteResults() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	metrics := &report.ResourceMetrics{
		MonitoringConfig: report.MonitoringConfig{
			IntervalSeconds:  int(m.interval.Seconds()),
			SamplesCollected: len(m.samples),
		},
		Metrics:  m.samples,
		Summary:  Summarize(m.samples),
		Activity: m.activity,
	}
	if len(m.samples) > 0 {
		metrics.MonitoringConfig.StartTime = m.samples[0].Timestamp
		metrics.MonitoringConfig.EndTime = m.samples[len(m.samples)-1].Timestamp
	}

	buf, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}
	err = os.WriteFile(m.outputPath, buf, os.ModePerm)
	if err != nil {
		return err
	}
	slog.Info("resource monitoring results saved", slog.String("output", m.outputPath), slog.Int("samples", len(m.samples)))
	return nil
}
