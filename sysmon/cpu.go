package sysmon

import (
	"strconv"
	"strings"

	"github.com/rhoulihan/BSON-JSON-bakeoff/report"
	"github.com/rhoulihan/BSON-JSON-bakeoff/util"
)

type cpuTimeStat struct {
	user    int
	nice    int
	system  int
	idle    int
	iowait  int
	irq     int
	softIrq int
	steal   int
}

func (ts *cpuTimeStat) totalCPUTime() int {
	return ts.user + ts.nice + ts.system + ts.idle + ts.iowait + ts.irq + ts.softIrq + ts.steal
}

func parseCPUTimeStat(buf []byte) *cpuTimeStat {
	for _, line := range strings.Split(string(buf), "\n") {
		// We only want the total CPU line, ignore per-core metrics and other metrics
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 8 {
			return nil
		}
		user, _ := strconv.Atoi(parts[1])
		nice, _ := strconv.Atoi(parts[2])
		system, _ := strconv.Atoi(parts[3])
		idle, _ := strconv.Atoi(parts[4])
		iowait, _ := strconv.Atoi(parts[5])
		irq, _ := strconv.Atoi(parts[6])
		softIrq, _ := strconv.Atoi(parts[7])
		steal := 0
		if len(parts) > 8 {
			steal, _ = strconv.Atoi(parts[8])
		}
		return &cpuTimeStat{
			user:    user,
			nice:    nice,
			system:  system,
			idle:    idle,
			iowait:  iowait,
			irq:     irq,
			softIrq: softIrq,
			steal:   steal,
		}
	}
	return nil
}

// computeCPUUsage turns two consecutive /proc/stat snapshots into usage
// percentages. Total counts everything that is not idle or iowait. Returns nil
// when there is no previous snapshot or the counters did not advance.
func computeCPUUsage(prev, curr *cpuTimeStat) *report.CPUUsage {
	if prev == nil || curr == nil {
		return nil
	}

	totalDelta := curr.totalCPUTime() - prev.totalCPUTime()
	if totalDelta <= 0 {
		return nil
	}

	idleDelta := (curr.idle + curr.iowait) - (prev.idle + prev.iowait)

	pct := func(delta int) float64 {
		if delta < 0 {
			delta = 0
		}
		return util.Round(100*float64(delta)/float64(totalDelta), 2)
	}

	return &report.CPUUsage{
		Total:  pct(totalDelta - idleDelta),
		User:   pct(curr.user - prev.user),
		System: pct(curr.system - prev.system),
		Iowait: pct(curr.iowait - prev.iowait),
	}
}
