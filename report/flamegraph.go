package report

import "fmt"

// ConfigKey names one profiled configuration in flamegraph_summaries.json,
// e.g. "local_mongodb_insert".
func ConfigKey(system, database, testType string) string {
	return fmt.Sprintf("%s_%s_%s", system, database, testType)
}

func (s FlamegraphSummaries) Add(key string, e *FlamegraphEntry) {
	s[key] = append(s[key], e)
}

// DescribePerf builds the one-line analysis shown next to a flame graph.
func DescribePerf(description string, perf *FlamegraphPerf) string {
	if perf == nil {
		return fmt.Sprintf("Captured during %s.", description)
	}
	analysis := fmt.Sprintf("Captured during %s: %dms insert (%d docs/sec)", description, perf.TimeMs, perf.DocsPerSec)
	if perf.QueryTimeMs != nil && perf.QueriesPerSec != nil {
		analysis += fmt.Sprintf(", %dms query (%d queries/sec)", *perf.QueryTimeMs, *perf.QueriesPerSec)
	}
	return analysis + "."
}
