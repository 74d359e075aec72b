package insertjar

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/mitchellh/mapstructure"
	"github.com/rhoulihan/BSON-JSON-bakeoff/benchmark"
	"github.com/rhoulihan/BSON-JSON-bakeoff/report"
	"github.com/rhoulihan/BSON-JSON-bakeoff/util"
)

// The JVM insert benchmark generates its own documents, inserts them in
// batches, repeats the run and prints the best time; this adapter only builds
// the command line and parses that output.
type bmark struct {
	input   *InsertJarInput
	ctx     *benchmark.BenchmarkContext
	jarPath string
}

type InsertJarInput struct {
	Name string

	// One of "mongodb", "postgresql", "oracle".
	Database string

	// "json" or "jsonb"; PostgreSQL only.
	JSONType string

	// Adds the index test (-i).
	Indexed bool

	// Oracle materialized view (-mv) and relational duality view (-rd) variants.
	MaterializedView  bool
	RelationalDuality bool

	// Skip statistics gathering (-nostats).
	NoStats bool

	Size      int
	Attrs     int
	NumDocs   int
	Runs      int
	BatchSize int

	// Number of linked documents per query (-q); 0 disables the query test.
	QueryLinks int
}

const minJavaMajor = 11

func init() {
	benchmark.RegisterBenchmark("insert_jar", func(a map[string]any) (benchmark.Benchmark, error) {
		input := &InsertJarInput{}
		err := mapstructure.Decode(a, input)
		if err != nil {
			return nil, fmt.Errorf("can't convert input to InsertJarInput: %w", err)
		}
		return NewInsertJarBenchmark(input)
	})
}

func NewInsertJarBenchmark(input *InsertJarInput) (benchmark.Benchmark, error) {
	switch input.Database {
	case "mongodb", "postgresql", "oracle":
	default:
		return nil, fmt.Errorf("unknown database: %q", input.Database)
	}
	if input.JSONType != "" && input.JSONType != "json" && input.JSONType != "jsonb" {
		return nil, fmt.Errorf("unknown JSON type: %q", input.JSONType)
	}
	if input.Size <= 0 || input.Attrs <= 0 {
		return nil, fmt.Errorf("size and attrs must be positive")
	}
	if input.NumDocs == 0 {
		input.NumDocs = 10000
	}
	if input.Runs == 0 {
		input.Runs = 3
	}
	if input.BatchSize == 0 {
		input.BatchSize = 500
	}
	return &bmark{input: input}, nil
}

func (b *bmark) SetUp(ctx *benchmark.BenchmarkContext) error {
	b.ctx = ctx

	err := b.checkJavaVersion()
	if err != nil {
		return err
	}

	// The jar path may be a glob like target/insertTest-*.jar
	out, err := b.ctx.Target.RunCommand(fmt.Sprintf("ls -1 %s | head -1", ctx.JarPath))
	if err != nil || strings.TrimSpace(string(out)) == "" {
		return fmt.Errorf("benchmark jar not found at %s", ctx.JarPath)
	}
	b.jarPath = strings.TrimSpace(string(out))
	return nil
}

var javaVersionRe = regexp.MustCompile(`version "([0-9][0-9._]*)"`)

func (b *bmark) checkJavaVersion() error {
	out, err := b.ctx.Target.RunCommand("java -version 2>&1")
	if err != nil {
		return fmt.Errorf("java is not installed: %w", err)
	}
	m := javaVersionRe.FindSubmatch(out)
	if m == nil {
		return fmt.Errorf("could not determine java version from: %s", util.LastNonEmptyLine(out))
	}

	v, err := version.NewVersion(strings.ReplaceAll(string(m[1]), "_", "."))
	if err != nil {
		return fmt.Errorf("can't parse java version: %w", err)
	}
	major := v.Segments()[0]
	if major == 1 && len(v.Segments()) > 1 {
		// Legacy 1.x version strings, e.g. 1.8.0
		major = v.Segments()[1]
	}
	if major < minJavaMajor {
		return fmt.Errorf("java %d or newer is required, found %s", minJavaMajor, v)
	}
	return nil
}

func (b *bmark) GetCommand() (string, error) {
	var flags []string
	switch b.input.Database {
	case "oracle":
		flags = append(flags, "-oj")
	case "postgresql":
		flags = append(flags, "-p")
		if b.input.JSONType == "jsonb" {
			flags = append(flags, "-j")
		}
	}
	if b.input.Indexed {
		flags = append(flags, "-i")
	}
	if b.input.MaterializedView {
		flags = append(flags, "-mv")
	}
	if b.input.RelationalDuality {
		flags = append(flags, "-rd")
	}
	if b.input.NoStats {
		flags = append(flags, "-nostats")
	}
	flags = append(flags,
		"-s", strconv.Itoa(b.input.Size),
		"-n", strconv.Itoa(b.input.Attrs),
		"-r", strconv.Itoa(b.input.Runs),
		"-b", strconv.Itoa(b.input.BatchSize),
	)
	if b.input.QueryLinks > 0 {
		flags = append(flags, "-q", strconv.Itoa(b.input.QueryLinks))
	}

	jar := b.jarPath
	if jar == "" {
		jar = b.ctx.JarPath
	}
	return fmt.Sprintf("java -jar %s %s %d", jar, strings.Join(flags, " "), b.input.NumDocs), nil
}

var queryTimeRe = regexp.MustCompile(`Total time taken to query (\d+) ID's from \w+: (\d+)ms`)

func (b *bmark) ParseCommandOutput(out []byte) (*report.BenchmarkRecord, error) {
	pattern := fmt.Sprintf(
		`Best time to insert %d documents with %dB payload in %d attributes? into indexed: (\d+)ms`,
		b.input.NumDocs, b.input.Size, b.input.Attrs,
	)
	m := regexp.MustCompile(pattern).FindSubmatch(out)
	if m == nil {
		// The jar reports "1 attribute" for the single-attribute layout even
		// when -n differs, so fall back to matching any attribute count.
		alt := fmt.Sprintf(
			`Best time to insert %d documents with %dB payload in \d+ attributes? into indexed: (\d+)ms`,
			b.input.NumDocs, b.input.Size,
		)
		m = regexp.MustCompile(alt).FindSubmatch(out)
	}
	if m == nil {
		return nil, fmt.Errorf("no insert time in command output")
	}

	timeMs, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse insert time: %w", err)
	}

	rec := &report.BenchmarkRecord{
		Success:    true,
		TimeMs:     timeMs,
		Throughput: util.Round(float64(b.input.NumDocs)/(float64(timeMs)/1000), 2),
		Size:       b.input.Size,
		Attrs:      b.input.Attrs,
		NumDocs:    b.input.NumDocs,
	}

	if b.input.QueryLinks > 0 {
		b.parseQueryTime(out, rec)
	}
	return rec, nil
}

// parseQueryTime fills in the optional query fields. The jar prints one query
// line per run; the best (lowest) one is kept. A missing line leaves the
// fields unset without failing the insert result.
func (b *bmark) parseQueryTime(out []byte, rec *report.BenchmarkRecord) {
	best := -1
	bestIDs := 0
	for _, m := range queryTimeRe.FindAllSubmatch(out, -1) {
		ids, err1 := strconv.Atoi(string(m[1]))
		ms, err2 := strconv.Atoi(string(m[2]))
		if err1 != nil || err2 != nil || ms <= 0 {
			continue
		}
		if best < 0 || ms < best {
			best = ms
			bestIDs = ids
		}
	}
	if best < 0 {
		slog.Debug("no query time in command output", slog.String("name", b.GetName()))
		return
	}
	throughput := util.Round(float64(bestIDs)/(float64(best)/1000), 2)
	rec.QueryTimeMs = &best
	rec.QueryThroughput = &throughput
}

func (b *bmark) GetName() string {
	if b.input.Name != "" {
		return b.input.Name
	}
	return fmt.Sprintf("%s %dB x%d", b.DatabaseKey(), b.input.Size, b.input.Attrs)
}

func (b *bmark) GetInput() map[string]any {
	return util.StructMap(b.input)
}

func (b *bmark) DatabaseType() string {
	return b.input.Database
}

// DatabaseKey is the key this benchmark's records are filed under in
// article_benchmark_results.json.
func (b *bmark) DatabaseKey() string {
	switch b.input.Database {
	case "postgresql":
		if b.input.JSONType == "jsonb" {
			return "postgresql_jsonb"
		}
		return "postgresql_json"
	case "oracle":
		if b.input.Indexed {
			return "oracle_with_index"
		}
		return "oracle_no_index"
	default:
		return "mongodb"
	}
}

// TestType groups a benchmark into the single_attribute or multi_attribute
// section of the results.
func (b *bmark) TestType() string {
	if b.input.Attrs > 1 {
		return "multi_attribute"
	}
	return "single_attribute"
}

// Description mirrors the labels used in the reports, e.g. "200B single
// attribute" or "50 attributes x 20B = 1000B".
func (b *bmark) Description() string {
	if b.input.Attrs == 1 {
		return fmt.Sprintf("%dB single attribute", b.input.Size)
	}
	return fmt.Sprintf("%d attributes x %dB = %dB", b.input.Attrs, b.input.Size/b.input.Attrs, b.input.Size)
}
