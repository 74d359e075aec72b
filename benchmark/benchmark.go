package benchmark

import (
	"fmt"
	"time"

	"github.com/rhoulihan/BSON-JSON-bakeoff/report"
	"github.com/rhoulihan/BSON-JSON-bakeoff/target"
)

type BenchmarkContext struct {
	Target  target.Target
	JarPath string
	// Per-invocation timeout. An expiry fails the one test, not the suite.
	Timeout time.Duration
}

type Benchmark interface {
	// Set up the benchmark. May involve locating tooling or checking versions.
	SetUp(*BenchmarkContext) error

	// Return the command to run the benchmark.
	GetCommand() (string, error)

	// Parse the entire output from running the benchmark into a result record.
	ParseCommandOutput(out []byte) (*report.BenchmarkRecord, error)

	// A human-friendly name the user can set for this benchmark. Only used for debugging/printing.
	GetName() string

	// Any input given to this benchmark by the user. Included in the benchmark's report. Not used for anything else.
	GetInput() map[string]any
}

// DatabaseBenchmark is implemented by benchmarks that exercise a database
// server. The orchestrator uses it to manage services and the profiler uses it
// to find the server process.
type DatabaseBenchmark interface {
	// One of "mongodb", "postgresql", "oracle".
	DatabaseType() string

	// The results-file key, e.g. "postgresql_jsonb" or "oracle_with_index".
	DatabaseKey() string
}

type benchmarkType string

type benchmarkFactory func(map[string]any) (Benchmark, error)

var benchmarks map[benchmarkType]benchmarkFactory

// All benchmarks must register themselves at module load time so that deserialization can create a benchmark of that type.
func RegisterBenchmark(btype string, f benchmarkFactory) {
	if benchmarks == nil {
		benchmarks = map[benchmarkType]benchmarkFactory{}
	}
	benchmarks[benchmarkType(btype)] = f
}

type SerializedBenchmark struct {
	Type  benchmarkType
	Input map[string]any
}

type BenchmarkFile []SerializedBenchmark

func DeserializeBenchmark(sb *SerializedBenchmark) (Benchmark, error) {
	factory, ok := benchmarks[sb.Type]
	if !ok {
		return nil, fmt.Errorf("unknown benchmark type: %s", sb.Type)
	}
	return factory(sb.Input)
}
