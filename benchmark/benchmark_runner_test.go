package benchmark

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rhoulihan/BSON-JSON-bakeoff/profile"
	"github.com/rhoulihan/BSON-JSON-bakeoff/report"
	"github.com/rhoulihan/BSON-JSON-bakeoff/target"
)

type fakeTarget struct {
	outputs []string
	errs    []error
	calls   int
}

func (t *fakeTarget) RunCommand(cmd string) ([]byte, error) {
	return t.RunCommandTimeout(cmd, 0)
}

func (t *fakeTarget) RunCommandTimeout(cmd string, timeout time.Duration) ([]byte, error) {
	i := t.calls
	t.calls++
	if i >= len(t.outputs) {
		return nil, fmt.Errorf("unexpected call %d", i)
	}
	return []byte(t.outputs[i]), t.errs[i]
}

func (t *fakeTarget) CopyFileTo(localFile io.Reader, remotePath string) error {
	return nil
}

func (t *fakeTarget) CopyFileFrom(remotePath string, localFile io.Writer) error {
	return nil
}

// fakeBenchmark parses its output as a bare millisecond count.
type fakeBenchmark struct{}

func (b *fakeBenchmark) SetUp(ctx *BenchmarkContext) error { return nil }

func (b *fakeBenchmark) GetCommand() (string, error) { return "run-it", nil }

func (b *fakeBenchmark) ParseCommandOutput(out []byte) (*report.BenchmarkRecord, error) {
	ms, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return nil, fmt.Errorf("no time in output")
	}
	return &report.BenchmarkRecord{Success: true, TimeMs: ms}, nil
}

func (b *fakeBenchmark) GetName() string { return "fake" }

func (b *fakeBenchmark) GetInput() map[string]any { return nil }

// dbFakeBenchmark additionally exposes a database so a profiler can be used.
type dbFakeBenchmark struct {
	fakeBenchmark
}

func (b *dbFakeBenchmark) DatabaseType() string { return "mongodb" }

func (b *dbFakeBenchmark) DatabaseKey() string { return "mongodb" }

type countingProfiler struct {
	starts int
	stops  int
}

func (p *countingProfiler) SetUp() error { return nil }

func (p *countingProfiler) Start() error {
	p.starts++
	return nil
}

func (p *countingProfiler) WrapCommand(cmd string) (string, error) { return cmd, nil }

func (p *countingProfiler) Stop() (string, error) {
	p.stops++
	return "out.svg", nil
}

func registerCountingProfiler(prof *countingProfiler) {
	profile.RegisterProfiler("counting", func(t target.Target, o *profile.Options) profile.Profiler {
		return prof
	})
}

func newRunnerContext(ft *fakeTarget) *BenchmarkContext {
	return &BenchmarkContext{Target: ft, JarPath: "fake.jar", Timeout: time.Second}
}

func TestRunnerKeepsBestOfRepeatedRuns(t *testing.T) {
	ft := &fakeTarget{outputs: []string{"300", "150", "200"}, errs: []error{nil, nil, nil}}
	br := NewBenchmarkRunner(&fakeBenchmark{}, nil, profile.None, "", 3)
	err := br.SetUp(newRunnerContext(ft))
	if err != nil {
		t.Fatal(err)
	}

	outcome := br.Run()
	if !outcome.Record.Success {
		t.Fatalf("expected success, got %+v", outcome.Record)
	}
	if outcome.Record.TimeMs != 150 {
		t.Errorf("time = %d, want the best of 3 runs (150)", outcome.Record.TimeMs)
	}
	if outcome.FlamegraphFile != "" {
		t.Errorf("unexpected flame graph: %s", outcome.FlamegraphFile)
	}
}

func TestRunnerTimeout(t *testing.T) {
	ft := &fakeTarget{outputs: []string{""}, errs: []error{fmt.Errorf("command timed out after 1s")}}
	br := NewBenchmarkRunner(&fakeBenchmark{}, nil, profile.None, "", 1)
	err := br.SetUp(newRunnerContext(ft))
	if err != nil {
		t.Fatal(err)
	}

	outcome := br.Run()
	if outcome.Record.Success {
		t.Fatal("expected failure")
	}
	if outcome.Record.Error != "Timeout" {
		t.Errorf("error = %q, want Timeout", outcome.Record.Error)
	}
}

func TestRunnerUnparsableOutput(t *testing.T) {
	ft := &fakeTarget{outputs: []string{"garbage"}, errs: []error{nil}}
	br := NewBenchmarkRunner(&fakeBenchmark{}, nil, profile.None, "", 1)
	err := br.SetUp(newRunnerContext(ft))
	if err != nil {
		t.Fatal(err)
	}

	outcome := br.Run()
	if outcome.Record.Success {
		t.Fatal("expected failure")
	}
	if outcome.Record.Error != "Could not parse output" {
		t.Errorf("error = %q, want Could not parse output", outcome.Record.Error)
	}
}

func TestRunnerCommandFailure(t *testing.T) {
	ft := &fakeTarget{outputs: []string{"exit 1"}, errs: []error{fmt.Errorf("exit status 1")}}
	br := NewBenchmarkRunner(&fakeBenchmark{}, nil, profile.None, "", 1)
	err := br.SetUp(newRunnerContext(ft))
	if err != nil {
		t.Fatal(err)
	}

	outcome := br.Run()
	if outcome.Record.Success {
		t.Fatal("expected failure")
	}
	if !strings.Contains(outcome.Record.Error, "running benchmark failed") {
		t.Errorf("error = %q", outcome.Record.Error)
	}
}

func TestRunnerStopsProfilerWhenCommandFails(t *testing.T) {
	prof := &countingProfiler{}
	registerCountingProfiler(prof)

	ft := &fakeTarget{outputs: []string{""}, errs: []error{fmt.Errorf("command timed out after 1s")}}
	br := NewBenchmarkRunner(&dbFakeBenchmark{}, nil, "counting", "", 1)
	err := br.SetUp(newRunnerContext(ft))
	if err != nil {
		t.Fatal(err)
	}

	outcome := br.Run()
	if outcome.Record.Error != "Timeout" {
		t.Errorf("error = %q, want Timeout", outcome.Record.Error)
	}
	if prof.starts != 1 {
		t.Errorf("profiler started %d time(s), want 1", prof.starts)
	}
	if prof.stops != 1 {
		t.Errorf("profiler stopped %d time(s), want 1: a recorder left attached skews every later benchmark", prof.stops)
	}
	if outcome.FlamegraphFile != "" {
		t.Errorf("failed run must not report a flame graph, got %s", outcome.FlamegraphFile)
	}
}

func TestRunnerStopsProfilerOnSuccess(t *testing.T) {
	prof := &countingProfiler{}
	registerCountingProfiler(prof)

	ft := &fakeTarget{outputs: []string{"120"}, errs: []error{nil}}
	br := NewBenchmarkRunner(&dbFakeBenchmark{}, nil, "counting", "", 1)
	err := br.SetUp(newRunnerContext(ft))
	if err != nil {
		t.Fatal(err)
	}

	outcome := br.Run()
	if !outcome.Record.Success || outcome.Record.TimeMs != 120 {
		t.Fatalf("wrong record: %+v", outcome.Record)
	}
	if prof.starts != 1 || prof.stops != 1 {
		t.Errorf("starts = %d, stops = %d, want 1 and 1", prof.starts, prof.stops)
	}
	if outcome.FlamegraphFile != "out.svg" {
		t.Errorf("flame graph = %q, want out.svg", outcome.FlamegraphFile)
	}
}

func TestDeserializeUnknownType(t *testing.T) {
	_, err := DeserializeBenchmark(&SerializedBenchmark{Type: "nope"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "unknown benchmark type") {
		t.Errorf("unexpected error: %v", err)
	}
}
