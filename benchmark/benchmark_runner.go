package benchmark

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rhoulihan/BSON-JSON-bakeoff/profile"
	"github.com/rhoulihan/BSON-JSON-bakeoff/report"
	"github.com/rhoulihan/BSON-JSON-bakeoff/sysmon"
)

type benchmarkRunner struct {
	b              Benchmark
	mon            *sysmon.ResourceMonitor
	prof           profile.Profiler
	ctx            *BenchmarkContext
	profilerKind   profile.ProfilerKind
	profileSaveDir string
	runs           int
}

// Helps implement the suite orchestrator. Handles the profiler and reports the
// benchmark's activity window to the resource monitor.
// Wrap each benchmark in this interface via NewBenchmarkRunner.
type BenchmarkRunner interface {
	// Set up the benchmark and supporting machinery (e.g. profiler).
	SetUp(ctx *BenchmarkContext) error

	// Run the benchmark and supporting machinery.
	Run() *RunOutcome
}

type RunOutcome struct {
	Record         *report.BenchmarkRecord
	FlamegraphFile string
}

func NewBenchmarkRunner(b Benchmark, mon *sysmon.ResourceMonitor, profilerKind profile.ProfilerKind, profileSaveDir string, runs int) BenchmarkRunner {
	return &benchmarkRunner{b: b, mon: mon, profilerKind: profilerKind, profileSaveDir: profileSaveDir, runs: max(runs, 1)}
}

func (br *benchmarkRunner) SetUp(ctx *BenchmarkContext) error {
	slog.Info("starting benchmark setup", slog.String("name", br.b.GetName()))
	br.ctx = ctx

	err := br.b.SetUp(ctx)
	if err != nil {
		return fmt.Errorf("setting up benchmark failed: %w", err)
	}

	if br.profilerKind != profile.None {
		db, ok := br.b.(DatabaseBenchmark)
		if !ok {
			return fmt.Errorf("benchmark %s does not expose a database to profile", br.b.GetName())
		}

		br.prof, err = profile.NewProfiler(br.profilerKind, ctx.Target, &profile.Options{
			Database:  db.DatabaseType(),
			OutputDir: br.profileSaveDir,
		})
		if err != nil {
			return fmt.Errorf("creating profiler failed: %w", err)
		}

		err = br.prof.SetUp()
		if err != nil {
			return fmt.Errorf("setting up Profiler failed: %w", err)
		}
	}

	slog.Info("finished benchmark setup", slog.String("name", br.b.GetName()))
	return nil
}

func (br *benchmarkRunner) Run() *RunOutcome {
	slog.Info("starting benchmark", slog.String("name", br.b.GetName()))
	outcome := &RunOutcome{}

	cmd, err := br.b.GetCommand()
	if err != nil {
		outcome.Record = failureRecord(fmt.Errorf("getting benchmark command failed: %w", err))
		return outcome
	}
	slog.Debug("benchmark command", slog.String("name", br.b.GetName()), slog.String("command", cmd))

	var best *report.BenchmarkRecord
	for i := 0; i < br.runs; i++ {
		runCmd := cmd
		if br.prof != nil {
			err = br.prof.Start()
			if err != nil {
				outcome.Record = failureRecord(fmt.Errorf("starting profiler failed: %w", err))
				return outcome
			}
			runCmd, err = br.prof.WrapCommand(cmd)
			if err != nil {
				br.stopProfiler()
				outcome.Record = failureRecord(fmt.Errorf("instrumenting benchmark command failed: %w", err))
				return outcome
			}
		}

		start := time.Now()
		out, err := br.ctx.Target.RunCommandTimeout(runCmd, br.ctx.Timeout)
		end := time.Now()
		if br.mon != nil {
			br.mon.MarkActivity(br.b.GetName(), start, end)
		}

		if err != nil {
			slog.Error("running benchmark command failed", slog.String("name", br.b.GetName()), slog.String("error", err.Error()), slog.String("output", string(out)))
			br.stopProfiler()
			if strings.Contains(err.Error(), "timed out") {
				outcome.Record = failureRecord(fmt.Errorf("Timeout"))
			} else {
				outcome.Record = failureRecord(fmt.Errorf("running benchmark failed: %w", err))
			}
			return outcome
		}
		slog.Debug("running benchmark command finished", slog.String("name", br.b.GetName()))

		if br.prof != nil {
			svg, err := br.prof.Stop()
			if err != nil {
				slog.Warn("profiling failed, result has no flame graph", slog.String("name", br.b.GetName()), slog.String("error", err.Error()))
			} else {
				outcome.FlamegraphFile = svg
			}
		}

		rec, err := br.b.ParseCommandOutput(out)
		if err != nil {
			slog.Warn("could not parse benchmark output", slog.String("name", br.b.GetName()), slog.String("error", err.Error()))
			outcome.Record = failureRecord(fmt.Errorf("Could not parse output"))
			return outcome
		}

		if best == nil || rec.TimeMs < best.TimeMs {
			best = rec
		}
	}

	outcome.Record = best
	slog.Info("finished benchmark", slog.String("name", br.b.GetName()), slog.Int("timeMs", best.TimeMs))
	return outcome
}

// stopProfiler detaches an active profiler after a failed run, discarding any
// artifact. Without this a server-attached recorder would keep profiling the
// database through every later benchmark on the same unit.
func (br *benchmarkRunner) stopProfiler() {
	if br.prof == nil {
		return
	}
	_, err := br.prof.Stop()
	if err != nil {
		slog.Warn("stopping profiler after failed run", slog.String("name", br.b.GetName()), slog.String("error", err.Error()))
	}
}

func failureRecord(err error) *report.BenchmarkRecord {
	return &report.BenchmarkRecord{Success: false, Error: err.Error()}
}
