package report

import "time"

// One benchmark configuration's outcome. Failed tests keep their record in the
// results array with Success false and Error set; the suite never drops rows.
type BenchmarkRecord struct {
	Success         bool     `json:"success"`
	TimeMs          int      `json:"time_ms,omitempty"`
	Throughput      float64  `json:"throughput,omitempty"`
	Size            int      `json:"size,omitempty"`
	Attrs           int      `json:"attrs,omitempty"`
	NumDocs         int      `json:"num_docs,omitempty"`
	QueryTimeMs     *int     `json:"query_time_ms,omitempty"`
	QueryThroughput *float64 `json:"query_throughput,omitempty"`
	Error           string   `json:"error,omitempty"`
}

type SuiteConfiguration struct {
	Documents int `json:"documents"`
	Runs      int `json:"runs"`
	BatchSize int `json:"batch_size"`
}

// The article_benchmark_results.json document. Records are keyed by database
// key (mongodb, postgresql_json, postgresql_jsonb, oracle_no_index,
// oracle_with_index) and ordered the same way the tests ran.
type BenchmarkResults struct {
	Timestamp       string                        `json:"timestamp"`
	Configuration   SuiteConfiguration            `json:"configuration"`
	SingleAttribute map[string][]*BenchmarkRecord `json:"single_attribute"`
	MultiAttribute  map[string][]*BenchmarkRecord `json:"multi_attribute"`
}

func NewBenchmarkResults(cfg SuiteConfiguration) *BenchmarkResults {
	return &BenchmarkResults{
		Timestamp:       time.Now().Format(time.RFC3339),
		Configuration:   cfg,
		SingleAttribute: map[string][]*BenchmarkRecord{},
		MultiAttribute:  map[string][]*BenchmarkRecord{},
	}
}

// An activity window is one benchmark's execution interval. The HTML report
// lists these next to the resource timeline to show what ran when.
type ActivityWindow struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// One flame graph paired with the benchmark result it was captured under.
type FlamegraphEntry struct {
	System         string                `json:"system"`
	Database       string                `json:"database"`
	TestType       string                `json:"test_type"`
	Description    string                `json:"description"`
	FlamegraphFile string                `json:"flamegraph_file"`
	Performance    *FlamegraphPerf       `json:"performance,omitempty"`
	Analysis       string                `json:"analysis,omitempty"`
}

type FlamegraphPerf struct {
	TimeMs        int  `json:"time_ms"`
	DocsPerSec    int  `json:"docs_per_sec"`
	QueryTimeMs   *int `json:"query_time_ms,omitempty"`
	QueriesPerSec *int `json:"queries_per_sec,omitempty"`
}

// The flamegraph_summaries.json document, keyed by configuration
// (e.g. "local_mongodb_insert").
type FlamegraphSummaries map[string][]*FlamegraphEntry
