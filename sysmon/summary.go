package sysmon

import (
	"github.com/rhoulihan/BSON-JSON-bakeoff/report"
	"github.com/rhoulihan/BSON-JSON-bakeoff/util"
)

// Summarize computes the avg/max/min block of resource_metrics.json. Disk IOPS
// are aggregated across all devices per sample before summarizing.
func Summarize(samples []*report.ResourceSnapshot) *report.ResourceSummary {
	if len(samples) == 0 {
		return &report.ResourceSummary{}
	}

	cpuTotals := make([]float64, 0, len(samples))
	cpuIowaits := make([]float64, 0, len(samples))
	diskIOPS := make([]float64, 0, len(samples))
	for _, s := range samples {
		cpuTotals = append(cpuTotals, s.CPU.Total)
		cpuIowaits = append(cpuIowaits, s.CPU.Iowait)

		total := 0.0
		for _, d := range s.Disk {
			total += d.TotalIOPS
		}
		diskIOPS = append(diskIOPS, total)
	}

	return &report.ResourceSummary{
		CPU: &report.CPUSummary{
			Avg:       util.Round(avg(cpuTotals), 2),
			Max:       util.Round(max(cpuTotals), 2),
			Min:       util.Round(min(cpuTotals), 2),
			AvgIowait: util.Round(avg(cpuIowaits), 2),
			MaxIowait: util.Round(max(cpuIowaits), 2),
		},
		Disk: &report.DiskSummary{
			AvgIOPS: util.Round(avg(diskIOPS), 2),
			MaxIOPS: util.Round(max(diskIOPS), 2),
			MinIOPS: util.Round(min(diskIOPS), 2),
		},
	}
}

func avg(vs []float64) float64 {
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func max(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func min(vs []float64) float64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
