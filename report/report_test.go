package report

import (
	"os"
	"path"
	"testing"
)

func TestLoadersTolerateMissingFiles(t *testing.T) {
	dir := t.TempDir()

	results, err := LoadBenchmarkResults(path.Join(dir, "missing.json"))
	if err != nil || results != nil {
		t.Errorf("expected nil, nil for a missing results file, got %v, %v", results, err)
	}
	metrics, err := LoadResourceMetrics(path.Join(dir, "missing.json"))
	if err != nil || metrics != nil {
		t.Errorf("expected nil, nil for a missing metrics file, got %v, %v", metrics, err)
	}
	summaries, err := LoadFlamegraphSummaries(path.Join(dir, "missing.json"))
	if err != nil || summaries != nil {
		t.Errorf("expected nil, nil for a missing summaries file, got %v, %v", summaries, err)
	}
}

func TestSaveAndLoadBenchmarkResults(t *testing.T) {
	dir := t.TempDir()
	p := path.Join(dir, "article_benchmark_results.json")

	results := NewBenchmarkResults(SuiteConfiguration{Documents: 10000, Runs: 3, BatchSize: 500})
	qt := 250
	qtp := 4000.0
	results.SingleAttribute["mongodb"] = []*BenchmarkRecord{
		{Success: true, TimeMs: 123, Throughput: 81300.81, Size: 200, Attrs: 1, NumDocs: 10000, QueryTimeMs: &qt, QueryThroughput: &qtp},
	}
	results.MultiAttribute["oracle_with_index"] = []*BenchmarkRecord{
		{Success: false, Error: "Timeout"},
	}

	err := SaveJSON(p, results)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadBenchmarkResults(p)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Configuration.Documents != 10000 {
		t.Errorf("documents = %d", loaded.Configuration.Documents)
	}
	rec := loaded.SingleAttribute["mongodb"][0]
	if rec.TimeMs != 123 || rec.QueryTimeMs == nil || *rec.QueryTimeMs != 250 {
		t.Errorf("wrong record: %+v", rec)
	}
	failed := loaded.MultiAttribute["oracle_with_index"][0]
	if failed.Success || failed.Error != "Timeout" {
		t.Errorf("wrong failed record: %+v", failed)
	}
}

func TestLoadBenchmarkResultsBadJSON(t *testing.T) {
	p := path.Join(t.TempDir(), "bad.json")
	err := os.WriteFile(p, []byte("{not json"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, err = LoadBenchmarkResults(p)
	if err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestConfigKey(t *testing.T) {
	if key := ConfigKey("local", "mongodb", "insert"); key != "local_mongodb_insert" {
		t.Errorf("got %s", key)
	}
}

func TestDescribePerf(t *testing.T) {
	qt := 250
	qps := 4000
	analysis := DescribePerf("200B single attribute", &FlamegraphPerf{
		TimeMs:        123,
		DocsPerSec:    81300,
		QueryTimeMs:   &qt,
		QueriesPerSec: &qps,
	})
	want := "Captured during 200B single attribute: 123ms insert (81300 docs/sec), 250ms query (4000 queries/sec)."
	if analysis != want {
		t.Errorf("got  %s\nwant %s", analysis, want)
	}

	noPerf := DescribePerf("200B single attribute", nil)
	if noPerf != "Captured during 200B single attribute." {
		t.Errorf("got %s", noPerf)
	}
}
