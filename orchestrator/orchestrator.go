package orchestrator

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/rhoulihan/BSON-JSON-bakeoff/benchmark"
	"github.com/rhoulihan/BSON-JSON-bakeoff/dbservice"
	"github.com/rhoulihan/BSON-JSON-bakeoff/profile"
	"github.com/rhoulihan/BSON-JSON-bakeoff/report"
	"github.com/rhoulihan/BSON-JSON-bakeoff/sysmon"
	"github.com/rhoulihan/BSON-JSON-bakeoff/target"
	"github.com/schollz/progressbar/v3"
)

// SuiteOrchestrator runs the benchmark matrix sequentially: databases share
// the host's memory and disks, so only one service is up at a time and only
// one jar invocation runs at a time.
type SuiteOrchestrator struct {
	input      *SuiteOrchestratorInput
	benchmarks []benchmark.Benchmark
	dbs        *dbservice.Controller
	mon        *sysmon.ResourceMonitor
	current    *dbservice.Service
	graphs     []*FlamegraphRun
}

type SuiteOrchestratorInput struct {
	Target         target.Target
	JarPath        string
	ResultDir      string
	Timeout        time.Duration // per jar invocation
	ProfilerKind   profile.ProfilerKind
	ProfileSaveDir string
	BenchmarkRuns  int // repetitions of each jar invocation. 1 by default (the jar repeats internally).

	MonitorInterval time.Duration

	// Label for this host in reports ("local" or "remote").
	SystemName string
}

// FlamegraphRun pairs a benchmark with the flame graph its run produced.
type FlamegraphRun struct {
	Benchmark benchmark.Benchmark
	Outcome   *benchmark.RunOutcome
}

// ClassifiedBenchmark places a benchmark's record in the results document.
type ClassifiedBenchmark interface {
	benchmark.DatabaseBenchmark

	// "single_attribute" or "multi_attribute".
	TestType() string

	Description() string
}

func NewSuiteOrchestrator(input *SuiteOrchestratorInput) *SuiteOrchestrator {
	if input.Timeout == 0 {
		input.Timeout = 300 * time.Second
	}
	if input.MonitorInterval == 0 {
		input.MonitorInterval = 5 * time.Second
	}
	return &SuiteOrchestrator{
		input: input,
		dbs:   dbservice.NewController(input.Target),
	}
}

func (o *SuiteOrchestrator) AddBenchmark(b benchmark.Benchmark) error {
	if _, ok := b.(ClassifiedBenchmark); !ok {
		return fmt.Errorf("benchmark %s cannot be placed in the results document", b.GetName())
	}
	o.benchmarks = append(o.benchmarks, b)
	return nil
}

// SetUp creates the result directory, stops every database for a clean slate,
// and starts the resource monitor. The monitor samples for the whole suite so
// the timeline spans service starts, inserts, and teardowns.
func (o *SuiteOrchestrator) SetUp() error {
	err := os.MkdirAll(o.input.ResultDir, fs.ModePerm)
	if err != nil {
		return err
	}

	o.dbs.StopAll()

	o.mon = sysmon.NewResourceMonitor(
		o.input.Target,
		o.input.MonitorInterval,
		path.Join(o.input.ResultDir, "resource_metrics.json"),
	)
	o.mon.StartMonitoring()
	return nil
}

func (o *SuiteOrchestrator) RunBenchmarks(cfg report.SuiteConfiguration) (*report.BenchmarkResults, error) {
	results := report.NewBenchmarkResults(cfg)

	p := progressbar.Default(int64(len(o.benchmarks)), "Running benchmarks:")
	for _, b := range o.benchmarks {
		o.runOne(results, b)
		p.Add(1)
	}
	p.Finish()

	if o.current != nil {
		o.dbs.Stop(*o.current)
		o.current = nil
	}
	return results, nil
}

func (o *SuiteOrchestrator) runOne(results *report.BenchmarkResults, b benchmark.Benchmark) {
	cb := b.(ClassifiedBenchmark)

	err := o.switchService(cb)
	if err != nil {
		slog.Error("database failed to start, skipping test", slog.String("name", b.GetName()), slog.String("error", err.Error()))
		o.record(results, cb, &report.BenchmarkRecord{Success: false, Error: "Database failed to start"})
		return
	}

	br := benchmark.NewBenchmarkRunner(b, o.mon, o.input.ProfilerKind, o.input.ProfileSaveDir, o.input.BenchmarkRuns)
	err = br.SetUp(&benchmark.BenchmarkContext{
		Target:  o.input.Target,
		JarPath: o.input.JarPath,
		Timeout: o.input.Timeout,
	})
	if err != nil {
		slog.Error("benchmark setup failed", slog.String("name", b.GetName()), slog.String("error", err.Error()))
		o.record(results, cb, &report.BenchmarkRecord{Success: false, Error: err.Error()})
		return
	}

	outcome := br.Run()
	o.record(results, cb, outcome.Record)
	if outcome.FlamegraphFile != "" {
		o.graphs = append(o.graphs, &FlamegraphRun{Benchmark: b, Outcome: outcome})
	}
}

// switchService stops the current unit and starts the one this benchmark
// needs. Consecutive benchmarks against the same unit keep it running.
func (o *SuiteOrchestrator) switchService(cb ClassifiedBenchmark) error {
	svc, err := dbservice.ServiceFor(cb.DatabaseType())
	if err != nil {
		return err
	}
	if o.current != nil && o.current.Unit == svc.Unit {
		return nil
	}
	if o.current != nil {
		o.dbs.Stop(*o.current)
		o.current = nil
	}
	err = o.dbs.Start(svc)
	if err != nil {
		return err
	}
	o.current = &svc
	return nil
}

func (o *SuiteOrchestrator) record(results *report.BenchmarkResults, cb ClassifiedBenchmark, rec *report.BenchmarkRecord) {
	section := results.SingleAttribute
	if cb.TestType() == "multi_attribute" {
		section = results.MultiAttribute
	}
	section[cb.DatabaseKey()] = append(section[cb.DatabaseKey()], rec)
}

// Flamegraphs returns the runs that produced a flame graph, for the summary
// builder.
func (o *SuiteOrchestrator) Flamegraphs() []*FlamegraphRun {
	return o.graphs
}

// TearDown stops the monitor and writes resource_metrics.json. Databases are
// already stopped by RunBenchmarks; StopAll covers aborted suites.
func (o *SuiteOrchestrator) TearDown() error {
	if o.current != nil {
		o.dbs.Stop(*o.current)
		o.current = nil
	}
	if o.mon != nil {
		o.mon.StopMonitoring()
		o.mon.WaitUntilStopped()
		return o.mon.WriteResults()
	}
	return nil
}
