package profile

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/rhoulihan/BSON-JSON-bakeoff/target"
	"github.com/rhoulihan/BSON-JSON-bakeoff/util"
)

// asyncProfiler instruments the JVM benchmark process itself via the
// async-profiler agent. The agent writes the flame graph when the JVM exits,
// so Start is a no-op and the work happens in WrapCommand.
type asyncProfiler struct {
	target  target.Target
	opts    *Options
	libPath string
	outSVG  string
}

var asyncProfilerSearchDirs = []string{"./async-profiler", "/opt/async-profiler", "$HOME/async-profiler"}

func init() {
	RegisterProfiler(AsyncProfiler, NewAsyncProfiler)
}

func NewAsyncProfiler(target target.Target, opts *Options) Profiler {
	return &asyncProfiler{target: target, opts: opts}
}

func (p *asyncProfiler) SetUp() error {
	for _, dir := range asyncProfilerSearchDirs {
		lib := fmt.Sprintf("%s/lib/libasyncProfiler.so", dir)
		_, err := p.target.RunCommand(fmt.Sprintf("test -f %s", lib))
		if err == nil {
			p.libPath = lib
			break
		}
	}
	if p.libPath == "" {
		return fmt.Errorf("async-profiler not found, install it from https://github.com/async-profiler/async-profiler")
	}

	out, err := p.target.RunCommand(fmt.Sprintf("mkdir -p %s", p.opts.OutputDir))
	if err != nil {
		return fmt.Errorf("creating output dir failed: %s: %w", string(out), err)
	}
	return nil
}

func (p *asyncProfiler) Start() error {
	// The random suffix keeps runs within the same second from colliding.
	timestamp := time.Now().Format("20060102_150405")
	p.outSVG = path.Join(p.opts.OutputDir, fmt.Sprintf("%s_client_%s_%s.svg", p.opts.Database, timestamp, util.Randstring(6)))
	return nil
}

func (p *asyncProfiler) WrapCommand(cmd string) (string, error) {
	if p.outSVG == "" {
		return "", fmt.Errorf("no profiling session active")
	}
	if !strings.HasPrefix(cmd, "java ") {
		return "", fmt.Errorf("async-profiler can only instrument java commands")
	}
	agent := fmt.Sprintf("-agentpath:%s=start,event=cpu,flamegraph,file=%s", p.libPath, p.outSVG)
	return "java " + agent + " " + strings.TrimPrefix(cmd, "java "), nil
}

func (p *asyncProfiler) Stop() (string, error) {
	if p.outSVG == "" {
		return "", fmt.Errorf("no profiling session active")
	}
	// The agent writes the file at JVM exit; just confirm it exists.
	_, err := p.target.RunCommand(fmt.Sprintf("test -s %s", p.outSVG))
	if err != nil {
		return "", fmt.Errorf("async-profiler did not produce %s", p.outSVG)
	}
	svg := p.outSVG
	p.outSVG = ""
	slog.Info("async-profiler: flame graph generated", slog.String("file", svg))
	return svg, nil
}
