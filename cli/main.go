package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/rhoulihan/BSON-JSON-bakeoff/benchmark"
	_ "github.com/rhoulihan/BSON-JSON-bakeoff/benchmark/insertjar"
	"github.com/rhoulihan/BSON-JSON-bakeoff/orchestrator"
	"github.com/rhoulihan/BSON-JSON-bakeoff/profile"
	"github.com/rhoulihan/BSON-JSON-bakeoff/publish"
	"github.com/rhoulihan/BSON-JSON-bakeoff/report"
	"github.com/rhoulihan/BSON-JSON-bakeoff/target"
	"golang.org/x/crypto/ssh"
)

type benchmarkFiles []string

func (bfs *benchmarkFiles) String() string {
	return "string rep"
}

func (bfs *benchmarkFiles) Set(value string) error {
	*bfs = append(*bfs, value)
	return nil
}

func main() {
	jarPath := flag.String("jar-path", "target/insertTest-*.jar", "Path or glob of the insert benchmark jar on the target.")
	resultDir := flag.String("result-dir", "results", "Directory for result artifacts and the HTML report.")
	bfiles := benchmarkFiles{}
	flag.Var(&bfiles, "benchmark-file", "A benchmark configuration file containing benchmark specifications. Can be used multiple times; all benchmarks will be loaded. The built-in article suite is used when none is given.")
	numDocs := flag.Int("num-docs", 10000, "Documents inserted per test in the built-in suite.")
	runs := flag.Int("runs", 3, "Runs per test in the built-in suite. The jar repeats internally and reports the best time.")
	batchSize := flag.Int("batch-size", 500, "Insert batch size in the built-in suite.")
	timeoutSecs := flag.Int("timeout", 300, "Per-test timeout in seconds. An expiry fails the one test, not the suite.")
	monitorIntervalSecs := flag.Int("monitor-interval", 5, "Resource monitor sampling interval in seconds.")
	profiler := flag.String("profiler", "none", fmt.Sprintf("The type of profiler to use. No profiler is used by default. Must be one of: %s.", profile.ExplainProfilers()))
	profileSaveDir := flag.String("profile-dir", "results", "Save flame graphs into this directory.")
	benchmarkRuns := flag.Int("benchmark-runs", 1, "Repetitions of each jar invocation; the best result is kept.")
	systemName := flag.String("system-name", "local", "Label for this host in reports.")
	reportOnly := flag.Bool("report-only", false, "Only regenerate the HTML report from existing result artifacts. Runs nothing.")
	bundle := flag.Bool("bundle", false, "Zip the result directory after the run.")
	s3Bucket := flag.String("s3-bucket", "", "Upload the result bundle to this S3 bucket. Implies -bundle. Creates the bucket if it does not exist.")
	s3Prefix := flag.String("s3-prefix", "", "Key prefix for uploaded results. Defaults to the run date.")
	uploadConcurrency := flag.Int("upload-concurrency", 8, "The number of goroutines used to upload results.")
	sshHost := flag.String("ssh-host", "", "Run the suite against this remote host over SSH instead of locally.")
	sshUser := flag.String("ssh-user", "root", "SSH user for -ssh-host.")
	sshPort := flag.Int("ssh-port", 22, "SSH port for -ssh-host.")
	sshKey := flag.String("ssh-key", "", "Path to the SSH private key for -ssh-host.")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	tgt, err := buildTarget(*sshHost, *sshUser, *sshPort, *sshKey)
	if err != nil {
		panic(err)
	}

	if !*reportOnly {
		orch := orchestrator.NewSuiteOrchestrator(&orchestrator.SuiteOrchestratorInput{
			Target:          tgt,
			JarPath:         *jarPath,
			ResultDir:       *resultDir,
			Timeout:         time.Duration(*timeoutSecs) * time.Second,
			ProfilerKind:    profile.ProfilerKind(*profiler),
			ProfileSaveDir:  *profileSaveDir,
			BenchmarkRuns:   *benchmarkRuns,
			MonitorInterval: time.Duration(*monitorIntervalSecs) * time.Second,
			SystemName:      *systemName,
		})

		suite, err := loadSuite(bfiles, *numDocs, *runs, *batchSize)
		if err != nil {
			panic(err)
		}
		for _, sb := range suite {
			b, err := benchmark.DeserializeBenchmark(&sb)
			if err != nil {
				panic(err)
			}
			err = orch.AddBenchmark(b)
			if err != nil {
				panic(err)
			}
		}

		err = orch.SetUp()
		if err != nil {
			panic(err)
		}

		results, err := orch.RunBenchmarks(report.SuiteConfiguration{
			Documents: *numDocs,
			Runs:      *runs,
			BatchSize: *batchSize,
		})
		if err != nil {
			panic(err)
		}

		err = orch.TearDown()
		if err != nil {
			slog.Error("failed to write resource metrics", slog.String("error", err.Error()))
		}

		err = report.SaveJSON(path.Join(*resultDir, "article_benchmark_results.json"), results)
		if err != nil {
			panic(err)
		}

		summaries := buildFlamegraphSummaries(*systemName, orch.Flamegraphs())
		if len(summaries) > 0 {
			err = report.SaveJSON(path.Join(*resultDir, "flamegraph_summaries.json"), summaries)
			if err != nil {
				panic(err)
			}
		}
	}

	err = generateReport(*resultDir, *systemName)
	if err != nil {
		panic(err)
	}

	if *bundle || *s3Bucket != "" {
		bundlePath := path.Join(*resultDir, "benchmark_results.zip")
		_, err = publish.CreateBundle(&publish.BundleInput{
			ResultDir:  *resultDir,
			OutputPath: bundlePath,
			SystemName: *systemName,
		})
		if err != nil {
			panic(err)
		}
		slog.Info("bundled results", slog.String("path", bundlePath))

		if *s3Bucket != "" {
			err = uploadResults(bundlePath, *s3Bucket, *s3Prefix, *uploadConcurrency)
			if err != nil {
				panic(err)
			}
		}
	}
}

func buildTarget(host, user string, port int, keyPath string) (target.Target, error) {
	if host == "" {
		return &target.LocalTarget{}, nil
	}
	if keyPath == "" {
		return nil, fmt.Errorf("ssh-key is required with ssh-host")
	}
	buf, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(buf)
	if err != nil {
		return nil, fmt.Errorf("can't parse SSH private key: %w", err)
	}
	return &target.SSHTarget{
		User:    user,
		Host:    host,
		SSHPort: port,
		Auths:   []ssh.AuthMethod{ssh.PublicKeys(signer)},
	}, nil
}

// loadSuite reads the user's benchmark files, or falls back to the built-in
// article suite with the CLI's document/run/batch settings applied.
func loadSuite(bfiles benchmarkFiles, numDocs, runs, batchSize int) (benchmark.BenchmarkFile, error) {
	if len(bfiles) == 0 {
		suite := orchestrator.ArticleSuite()
		for _, sb := range suite {
			sb.Input["NumDocs"] = numDocs
			sb.Input["Runs"] = runs
			sb.Input["BatchSize"] = batchSize
		}
		return suite, nil
	}

	var suite benchmark.BenchmarkFile
	for _, bf := range bfiles {
		buf, err := os.ReadFile(bf)
		if err != nil {
			return nil, err
		}
		benchmarks := benchmark.BenchmarkFile{}
		err = json.Unmarshal(buf, &benchmarks)
		if err != nil {
			return nil, fmt.Errorf("can't parse benchmark file %s: %w", bf, err)
		}
		suite = append(suite, benchmarks...)
	}
	return suite, nil
}

func buildFlamegraphSummaries(systemName string, graphs []*orchestrator.FlamegraphRun) report.FlamegraphSummaries {
	summaries := report.FlamegraphSummaries{}
	for _, run := range graphs {
		cb := run.Benchmark.(orchestrator.ClassifiedBenchmark)
		rec := run.Outcome.Record

		var perf *report.FlamegraphPerf
		if rec != nil && rec.Success {
			perf = &report.FlamegraphPerf{
				TimeMs:      rec.TimeMs,
				DocsPerSec:  int(rec.Throughput),
				QueryTimeMs: rec.QueryTimeMs,
			}
			if rec.QueryThroughput != nil {
				qps := int(*rec.QueryThroughput)
				perf.QueriesPerSec = &qps
			}
		}

		entry := &report.FlamegraphEntry{
			System:         systemName,
			Database:       cb.DatabaseKey(),
			TestType:       cb.TestType(),
			Description:    cb.Description(),
			FlamegraphFile: run.Outcome.FlamegraphFile,
			Performance:    perf,
			Analysis:       report.DescribePerf(cb.Description(), perf),
		}
		summaries.Add(report.ConfigKey(systemName, cb.DatabaseKey(), "insert"), entry)
	}
	return summaries
}

func generateReport(resultDir, systemName string) error {
	results, err := report.LoadBenchmarkResults(path.Join(resultDir, "article_benchmark_results.json"))
	if err != nil {
		return err
	}
	metrics, err := report.LoadResourceMetrics(path.Join(resultDir, "resource_metrics.json"))
	if err != nil {
		return err
	}
	summaries, err := report.LoadFlamegraphSummaries(path.Join(resultDir, "flamegraph_summaries.json"))
	if err != nil {
		return err
	}

	outPath := path.Join(resultDir, "benchmark_report.html")
	err = report.GenerateHTMLReport(&report.HTMLReportInput{
		Results:     results,
		Metrics:     metrics,
		Flamegraphs: summaries,
		SystemName:  systemName,
	}, outPath)
	if err != nil {
		return err
	}
	slog.Info("wrote report", slog.String("path", outPath))
	return nil
}

func uploadResults(bundlePath, bucket, prefix string, concurrency int) error {
	if prefix == "" {
		prefix = time.Now().Format("2006-01-02")
	}
	cfg, err := config.LoadDefaultConfig(context.Background())
	if err != nil {
		return err
	}
	pub := publish.NewS3Publisher(&publish.S3PublisherInput{
		AwsConfig:         cfg,
		Bucket:            bucket,
		Prefix:            prefix,
		UploadConcurrency: concurrency,
	})
	err = pub.SetUp()
	if err != nil {
		return err
	}
	return pub.Upload([]string{bundlePath})
}
