package sysmon

import "testing"

const procStat = `cpu  10132153 290696 3084719 46828483 16683 0 25195 175628 0 0
cpu0 1393280 32966 572056 13343292 6130 0 17875 100843 0 0
intr 1462898 1 2 3
ctxt 115315133
btime 1566995639
`

func TestParseCPUTimeStat(t *testing.T) {
	ts := parseCPUTimeStat([]byte(procStat))
	if ts == nil {
		t.Fatal("expected a parsed stat")
	}
	if ts.user != 10132153 || ts.idle != 46828483 || ts.iowait != 16683 || ts.steal != 175628 {
		t.Errorf("wrong fields: %+v", ts)
	}
}

func TestParseCPUTimeStatBadInput(t *testing.T) {
	for _, in := range []string{"", "cpu0 1 2 3 4 5 6 7 8", "cpu 1 2 3", "intr 1 2 3"} {
		if ts := parseCPUTimeStat([]byte(in)); ts != nil {
			t.Errorf("expected nil for %q, got %+v", in, ts)
		}
	}
}

func TestComputeCPUUsage(t *testing.T) {
	prev := &cpuTimeStat{user: 100, system: 50, idle: 800, iowait: 50}
	curr := &cpuTimeStat{user: 160, system: 70, idle: 850, iowait: 70}
	// Deltas: user 60, system 20, idle 50, iowait 20, total 150.

	u := computeCPUUsage(prev, curr)
	if u == nil {
		t.Fatal("expected usage")
	}
	if u.Total != 53.33 {
		t.Errorf("total = %v, want 53.33", u.Total)
	}
	if u.User != 40.0 {
		t.Errorf("user = %v, want 40.0", u.User)
	}
	if u.System != 13.33 {
		t.Errorf("system = %v, want 13.33", u.System)
	}
	if u.Iowait != 13.33 {
		t.Errorf("iowait = %v, want 13.33", u.Iowait)
	}
	if u.Total < 0 || u.Total > 100 {
		t.Errorf("total out of range: %v", u.Total)
	}
	if u.User+u.System > u.Total+u.Iowait+0.02 {
		t.Errorf("component sum exceeds total: %+v", u)
	}
}

func TestComputeCPUUsageNoPrevious(t *testing.T) {
	curr := &cpuTimeStat{user: 1, idle: 1}
	if u := computeCPUUsage(nil, curr); u != nil {
		t.Errorf("expected nil without a previous snapshot, got %+v", u)
	}
}

func TestComputeCPUUsageNoAdvance(t *testing.T) {
	ts := &cpuTimeStat{user: 100, idle: 900}
	if u := computeCPUUsage(ts, ts); u != nil {
		t.Errorf("expected nil when counters did not advance, got %+v", u)
	}
}

func TestComputeCPUUsageCounterRegress(t *testing.T) {
	prev := &cpuTimeStat{user: 200, idle: 800}
	curr := &cpuTimeStat{user: 150, idle: 950}
	// user went backwards; it must clamp to zero, not go negative.

	u := computeCPUUsage(prev, curr)
	if u == nil {
		t.Fatal("expected usage")
	}
	if u.User != 0 {
		t.Errorf("user = %v, want 0", u.User)
	}
}
