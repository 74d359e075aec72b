package report

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"sort"
	"time"
)

//go:embed report.html.tmpl
var reportTemplate string

// Database keys in the order they appear in every table and chart.
var dbOrder = []string{"mongodb", "postgresql_json", "postgresql_jsonb", "oracle_no_index", "oracle_with_index"}

var dbLabels = map[string]string{
	"mongodb":           "MongoDB (BSON)",
	"postgresql_json":   "PostgreSQL (JSON)",
	"postgresql_jsonb":  "PostgreSQL (JSONB)",
	"oracle_no_index":   "Oracle JCT (no index)",
	"oracle_with_index": "Oracle JCT (with index)",
}

type HTMLReportInput struct {
	Results     *BenchmarkResults
	Metrics     *ResourceMetrics
	Flamegraphs FlamegraphSummaries
	SystemName  string
}

type chartDataset struct {
	Label string     `json:"label"`
	Data  []*float64 `json:"data"`
}

type chartData struct {
	Labels   []string       `json:"labels"`
	Datasets []chartDataset `json:"datasets"`
}

type resultsTable struct {
	Title   string
	Headers []string
	Rows    [][]string
}

type flamegraphSection struct {
	Key     string
	Entries []*FlamegraphEntry
}

type resourceSummaryRow struct {
	Metric string
	Value  string
}

type activityRow struct {
	Name  string
	Start string
	End   string
}

type reportPage struct {
	GeneratedAt   string
	SystemName    string
	Configuration *SuiteConfiguration

	SingleTable *resultsTable
	MultiTable  *resultsTable

	// JSON blobs handed to Chart.js.
	SingleChart   template.JS
	MultiChart    template.JS
	ResourceChart template.JS

	ResourceSummary []resourceSummaryRow
	Activity        []activityRow
	Flamegraphs     []flamegraphSection
}

// GenerateHTMLReport renders a self-contained report page. Sections whose
// input artifacts are missing render a "No data available" placeholder.
func GenerateHTMLReport(in *HTMLReportInput, outputPath string) error {
	page := &reportPage{
		GeneratedAt:   time.Now().Format("2006-01-02 15:04:05"),
		SystemName:    in.SystemName,
		SingleChart:   "null",
		MultiChart:    "null",
		ResourceChart: "null",
	}

	if in.Results != nil {
		page.Configuration = &in.Results.Configuration
		page.SingleTable = buildResultsTable("Single-Attribute Results", in.Results.SingleAttribute, false)
		page.MultiTable = buildResultsTable("Multi-Attribute Results", in.Results.MultiAttribute, true)
		page.SingleChart = marshalChart(buildThroughputChart(in.Results.SingleAttribute, false))
		page.MultiChart = marshalChart(buildThroughputChart(in.Results.MultiAttribute, true))
	}

	if in.Metrics != nil {
		page.ResourceChart = marshalChart(buildResourceChart(in.Metrics))
		page.ResourceSummary = buildResourceSummary(in.Metrics.Summary)
		for _, w := range in.Metrics.Activity {
			page.Activity = append(page.Activity, activityRow{
				Name:  w.Name,
				Start: w.Start.Format("15:04:05"),
				End:   w.End.Format("15:04:05"),
			})
		}
	}

	keys := make([]string, 0, len(in.Flamegraphs))
	for key := range in.Flamegraphs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		page.Flamegraphs = append(page.Flamegraphs, flamegraphSection{Key: key, Entries: in.Flamegraphs[key]})
	}

	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("parsing report template failed: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()
	return tmpl.Execute(f, page)
}

// payloadLabels derives the row labels from the longest record list in the
// section, e.g. "200B" or "50x20B".
func payloadLabels(section map[string][]*BenchmarkRecord, multi bool) []string {
	var longest []*BenchmarkRecord
	for _, recs := range section {
		if len(recs) > len(longest) {
			longest = recs
		}
	}

	labels := make([]string, len(longest))
	for i, rec := range longest {
		switch {
		case rec.Size == 0:
			labels[i] = fmt.Sprintf("test %d", i+1)
		case multi && rec.Attrs > 0:
			labels[i] = fmt.Sprintf("%dx%dB", rec.Attrs, rec.Size/rec.Attrs)
		default:
			labels[i] = fmt.Sprintf("%dB", rec.Size)
		}
	}
	return labels
}

func buildResultsTable(title string, section map[string][]*BenchmarkRecord, multi bool) *resultsTable {
	labels := payloadLabels(section, multi)
	if len(labels) == 0 {
		return nil
	}

	table := &resultsTable{Title: title, Headers: []string{"Payload"}}
	for _, key := range dbOrder {
		if _, ok := section[key]; ok {
			table.Headers = append(table.Headers, dbLabels[key])
		}
	}

	for i, label := range labels {
		row := []string{label}
		for _, key := range dbOrder {
			recs, ok := section[key]
			if !ok {
				continue
			}
			if i >= len(recs) {
				row = append(row, "N/A")
				continue
			}
			row = append(row, formatRecord(recs[i]))
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func formatRecord(rec *BenchmarkRecord) string {
	if !rec.Success {
		return "FAIL"
	}
	cell := fmt.Sprintf("%dms (%.0f docs/sec)", rec.TimeMs, rec.Throughput)
	if rec.QueryTimeMs != nil && rec.QueryThroughput != nil {
		cell += fmt.Sprintf(" | Query: %dms (%.0f queries/sec)", *rec.QueryTimeMs, *rec.QueryThroughput)
	}
	return cell
}

func buildThroughputChart(section map[string][]*BenchmarkRecord, multi bool) *chartData {
	labels := payloadLabels(section, multi)
	if len(labels) == 0 {
		return nil
	}

	chart := &chartData{Labels: labels}
	for _, key := range dbOrder {
		recs, ok := section[key]
		if !ok {
			continue
		}
		ds := chartDataset{Label: dbLabels[key], Data: make([]*float64, len(labels))}
		for i := range labels {
			if i < len(recs) && recs[i].Success {
				v := recs[i].Throughput
				ds.Data[i] = &v
			}
		}
		chart.Datasets = append(chart.Datasets, ds)
	}
	return chart
}

func buildResourceChart(metrics *ResourceMetrics) *chartData {
	if len(metrics.Metrics) == 0 {
		return nil
	}

	chart := &chartData{}
	total := chartDataset{Label: "CPU total %", Data: make([]*float64, 0, len(metrics.Metrics))}
	iowait := chartDataset{Label: "CPU iowait %", Data: make([]*float64, 0, len(metrics.Metrics))}
	for _, s := range metrics.Metrics {
		chart.Labels = append(chart.Labels, s.Timestamp)
		t, w := s.CPU.Total, s.CPU.Iowait
		total.Data = append(total.Data, &t)
		iowait.Data = append(iowait.Data, &w)
	}
	chart.Datasets = append(chart.Datasets, total, iowait)
	return chart
}

func buildResourceSummary(summary *ResourceSummary) []resourceSummaryRow {
	if summary == nil || summary.CPU == nil {
		return nil
	}
	rows := []resourceSummaryRow{
		{"CPU avg / max / min", fmt.Sprintf("%.2f%% / %.2f%% / %.2f%%", summary.CPU.Avg, summary.CPU.Max, summary.CPU.Min)},
		{"CPU iowait avg / max", fmt.Sprintf("%.2f%% / %.2f%%", summary.CPU.AvgIowait, summary.CPU.MaxIowait)},
	}
	if summary.Disk != nil {
		rows = append(rows, resourceSummaryRow{
			"Disk IOPS avg / max / min",
			fmt.Sprintf("%.0f / %.0f / %.0f", summary.Disk.AvgIOPS, summary.Disk.MaxIOPS, summary.Disk.MinIOPS),
		})
	}
	return rows
}

func marshalChart(chart *chartData) template.JS {
	if chart == nil {
		return "null"
	}
	buf, err := json.Marshal(chart)
	if err != nil {
		return "null"
	}
	return template.JS(buf)
}
