package report

import (
	"encoding/json"
	"log/slog"
	"os"
)

// Loaders tolerate missing files: report generation degrades to placeholder
// sections instead of failing when a run did not produce every artifact.

func LoadBenchmarkResults(path string) (*BenchmarkResults, error) {
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Warn("benchmark results not found, report will have no data", slog.String("path", path))
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	results := &BenchmarkResults{}
	err = json.Unmarshal(buf, results)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func LoadResourceMetrics(path string) (*ResourceMetrics, error) {
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Warn("resource metrics not found, report will have no resource section", slog.String("path", path))
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	metrics := &ResourceMetrics{}
	err = json.Unmarshal(buf, metrics)
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

func LoadFlamegraphSummaries(path string) (FlamegraphSummaries, error) {
	buf, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Warn("flame graph summaries not found, report will have no profiling section", slog.String("path", path))
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	summaries := FlamegraphSummaries{}
	err = json.Unmarshal(buf, &summaries)
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func SaveJSON(path string, v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, os.ModePerm)
}
