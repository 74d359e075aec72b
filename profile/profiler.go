package profile

import (
	"fmt"
	"strings"

	"github.com/rhoulihan/BSON-JSON-bakeoff/target"
)

// A profiler captures a CPU flame graph of one benchmark execution. Server
// profilers (perf) attach to the database process around the run; in-process
// profilers (async-profiler) instrument the benchmark command itself.
type Profiler interface {
	SetUp() error

	// Start begins profiling before the benchmark command runs. May be a no-op
	// for profilers that instrument the command instead.
	Start() error

	// WrapCommand returns the command to actually run, possibly instrumented.
	WrapCommand(cmd string) (string, error)

	// Stop ends profiling and returns the path to the flame graph artifact.
	Stop() (string, error)
}

type ProfilerKind string

const (
	None          ProfilerKind = "none"
	Perf          ProfilerKind = "perf"
	AsyncProfiler ProfilerKind = "async-profiler"
)

type Options struct {
	// Which database server is being exercised ("mongodb", "postgresql", "oracle").
	Database string

	// Flame graphs and intermediate files are written here.
	OutputDir string
}

type ProfilerFactory func(target.Target, *Options) Profiler

var allProfilers map[ProfilerKind]ProfilerFactory

func RegisterProfiler(kind ProfilerKind, factory ProfilerFactory) {
	if allProfilers == nil {
		allProfilers = map[ProfilerKind]ProfilerFactory{
			None: func(t target.Target, o *Options) Profiler { panic("Profiler kind none is reserved and can't be created") },
		}
	}
	allProfilers[kind] = factory
}

func NewProfiler(kind ProfilerKind, target target.Target, opts *Options) (Profiler, error) {
	if kind == None {
		return nil, fmt.Errorf("Profiler kind none is reserved and can't be created")
	}

	factory, ok := allProfilers[kind]
	if !ok {
		return nil, fmt.Errorf("unknown profiler kind: %s", kind)
	}
	return factory(target, opts), nil
}

func ExplainProfilers() string {
	i := 0
	var sb strings.Builder
	for kind := range allProfilers {
		sb.WriteString("\"")
		sb.WriteString(string(kind))
		sb.WriteString("\"")
		if i < len(allProfilers)-1 {
			sb.WriteString(", ")
		}
		i++
	}
	return sb.String()
}
