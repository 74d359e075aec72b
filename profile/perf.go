package profile

import (
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rhoulihan/BSON-JSON-bakeoff/target"
	"github.com/rhoulihan/BSON-JSON-bakeoff/util"
)

// perfProfiler attaches perf to the database server process for the duration
// of a benchmark and renders the samples through the FlameGraph toolchain
// (perf script | stackcollapse-perf.pl | flamegraph.pl).
type perfProfiler struct {
	target        target.Target
	opts          *Options
	flamegraphDir string
	perfPID       int
	perfDataFile  string
}

var flamegraphSearchDirs = []string{"./FlameGraph", "/opt/FlameGraph", "$HOME/FlameGraph"}

func init() {
	RegisterProfiler(Perf, NewPerf)
}

func NewPerf(target target.Target, opts *Options) Profiler {
	return &perfProfiler{target: target, opts: opts}
}

func (p *perfProfiler) SetUp() error {
	out, err := p.target.RunCommand("command -v perf")
	if err != nil {
		slog.Error("perf: perf binary not found", slog.String("command output", string(out)))
		return fmt.Errorf("perf is not installed: %w", err)
	}

	for _, dir := range flamegraphSearchDirs {
		_, err := p.target.RunCommand(fmt.Sprintf("test -x %s/flamegraph.pl", dir))
		if err == nil {
			p.flamegraphDir = dir
			break
		}
	}
	if p.flamegraphDir == "" {
		return fmt.Errorf("FlameGraph tools not found, run: git clone https://github.com/brendangregg/FlameGraph")
	}

	out, err = p.target.RunCommand(fmt.Sprintf("mkdir -p %s", p.opts.OutputDir))
	if err != nil {
		return fmt.Errorf("creating output dir failed: %s: %w", string(out), err)
	}
	return nil
}

// findServerPID locates the database server process to attach to.
func (p *perfProfiler) findServerPID() (int, error) {
	var cmd string
	switch p.opts.Database {
	case "mongodb":
		cmd = "pgrep -x mongod | head -1"
	case "postgresql":
		cmd = "pgrep -x postgres | head -1"
	case "oracle":
		// The pmon background process indicates the running instance.
		cmd = "pgrep -f ora_pmon | head -1"
	default:
		return 0, fmt.Errorf("unknown database: %s", p.opts.Database)
	}

	out, err := p.target.RunCommand(cmd)
	if err != nil {
		return 0, fmt.Errorf("no %s server process found: %w", p.opts.Database, err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s server PID: %w", p.opts.Database, err)
	}
	return pid, nil
}

func (p *perfProfiler) Start() error {
	pid, err := p.findServerPID()
	if err != nil {
		return err
	}
	slog.Debug("perf: found server process", slog.String("database", p.opts.Database), slog.Int("pid", pid))

	// The random suffix keeps runs within the same second from colliding.
	timestamp := time.Now().Format("20060102_150405")
	p.perfDataFile = path.Join(p.opts.OutputDir, fmt.Sprintf("%s_server_%s_%s.perf.data", p.opts.Database, timestamp, util.Randstring(6)))

	// -F 99: sample at 99 Hz, -g: capture call graphs, -p: attach to the server
	cmd := fmt.Sprintf("sudo perf record -F 99 -g -p %d -o %s >/dev/null 2>&1 & echo $!", pid, p.perfDataFile)
	out, err := p.target.RunCommand(cmd)
	if err != nil {
		return fmt.Errorf("starting perf failed: %s: %w", string(out), err)
	}
	p.perfPID, err = strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return fmt.Errorf("failed to parse perf PID: %w", err)
	}

	// Give perf a moment to attach, then make sure it didn't exit immediately
	time.Sleep(2 * time.Second)
	_, err = p.target.RunCommand(fmt.Sprintf("kill -0 %d", p.perfPID))
	if err != nil {
		return fmt.Errorf("perf process exited immediately")
	}

	slog.Debug("perf: recording started", slog.Int("perfPID", p.perfPID), slog.String("dataFile", p.perfDataFile))
	return nil
}

func (p *perfProfiler) WrapCommand(cmd string) (string, error) {
	return cmd, nil
}

func (p *perfProfiler) Stop() (string, error) {
	if p.perfPID == 0 {
		return "", fmt.Errorf("no profiling session active")
	}

	// perf flushes its data file on SIGINT
	p.target.RunCommand(fmt.Sprintf("sudo kill -INT %d", p.perfPID))

	stopped := false
	for i := 0; i < 10; i++ {
		_, err := p.target.RunCommand(fmt.Sprintf("kill -0 %d", p.perfPID))
		if err != nil {
			stopped = true
			break
		}
		time.Sleep(1 * time.Second)
	}
	if !stopped {
		slog.Warn("perf: timed out waiting for perf to stop, forcing")
		p.target.RunCommand(fmt.Sprintf("sudo kill -KILL %d", p.perfPID))
	}
	p.perfPID = 0

	return p.generateFlamegraph()
}

func (p *perfProfiler) generateFlamegraph() (string, error) {
	base := strings.TrimSuffix(p.perfDataFile, ".perf.data")
	outPerf := base + ".out.perf"
	outFolded := base + ".out.folded"
	outSVG := base + ".svg"

	out, err := p.target.RunCommand(fmt.Sprintf("sudo perf script -i %s > %s", p.perfDataFile, outPerf))
	if err != nil {
		return "", fmt.Errorf("perf script failed: %s: %w", string(out), err)
	}

	out, err = p.target.RunCommand(fmt.Sprintf("%s/stackcollapse-perf.pl %s > %s", p.flamegraphDir, outPerf, outFolded))
	if err != nil {
		return "", fmt.Errorf("collapsing stacks failed: %s: %w", string(out), err)
	}

	out, err = p.target.RunCommand(fmt.Sprintf("%s/flamegraph.pl %s > %s", p.flamegraphDir, outFolded, outSVG))
	if err != nil {
		return "", fmt.Errorf("generating flame graph failed: %s: %w", string(out), err)
	}

	p.target.RunCommand(fmt.Sprintf("rm -f %s %s", outPerf, outFolded))

	slog.Info("perf: flame graph generated", slog.String("file", outSVG))
	return outSVG, nil
}
