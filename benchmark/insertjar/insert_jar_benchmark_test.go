package insertjar

import (
	"strings"
	"testing"

	"github.com/rhoulihan/BSON-JSON-bakeoff/benchmark"
)

func mustBenchmark(t *testing.T, input *InsertJarInput) benchmark.Benchmark {
	t.Helper()
	b, err := NewInsertJarBenchmark(input)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestGetCommand(t *testing.T) {
	tests := []struct {
		name  string
		input *InsertJarInput
		want  string
	}{
		{
			name:  "mongodb",
			input: &InsertJarInput{Database: "mongodb", Size: 200, Attrs: 1},
			want:  "java -jar target/insertTest-1.0.jar -s 200 -n 1 -r 3 -b 500 10000",
		},
		{
			name:  "postgresql json",
			input: &InsertJarInput{Database: "postgresql", JSONType: "json", Size: 1000, Attrs: 50},
			want:  "java -jar target/insertTest-1.0.jar -p -s 1000 -n 50 -r 3 -b 500 10000",
		},
		{
			name:  "postgresql jsonb",
			input: &InsertJarInput{Database: "postgresql", JSONType: "jsonb", Size: 1000, Attrs: 50},
			want:  "java -jar target/insertTest-1.0.jar -p -j -s 1000 -n 50 -r 3 -b 500 10000",
		},
		{
			name:  "oracle",
			input: &InsertJarInput{Database: "oracle", Size: 4000, Attrs: 200},
			want:  "java -jar target/insertTest-1.0.jar -oj -s 4000 -n 200 -r 3 -b 500 10000",
		},
		{
			name:  "oracle indexed",
			input: &InsertJarInput{Database: "oracle", Indexed: true, Size: 10, Attrs: 1},
			want:  "java -jar target/insertTest-1.0.jar -oj -i -s 10 -n 1 -r 3 -b 500 10000",
		},
		{
			name:  "oracle materialized view without stats",
			input: &InsertJarInput{Database: "oracle", MaterializedView: true, NoStats: true, Size: 10, Attrs: 1},
			want:  "java -jar target/insertTest-1.0.jar -oj -mv -nostats -s 10 -n 1 -r 3 -b 500 10000",
		},
		{
			name:  "oracle relational duality",
			input: &InsertJarInput{Database: "oracle", RelationalDuality: true, Size: 10, Attrs: 1},
			want:  "java -jar target/insertTest-1.0.jar -oj -rd -s 10 -n 1 -r 3 -b 500 10000",
		},
		{
			name:  "query links",
			input: &InsertJarInput{Database: "mongodb", Size: 200, Attrs: 1, QueryLinks: 4, NumDocs: 5000, Runs: 1, BatchSize: 100},
			want:  "java -jar target/insertTest-1.0.jar -s 200 -n 1 -r 1 -b 100 -q 4 5000",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := mustBenchmark(t, test.input).(*bmark)
			b.jarPath = "target/insertTest-1.0.jar"
			cmd, err := b.GetCommand()
			if err != nil {
				t.Fatal(err)
			}
			if cmd != test.want {
				t.Errorf("got  %s\nwant %s", cmd, test.want)
			}
		})
	}
}

func TestNewInsertJarBenchmarkValidation(t *testing.T) {
	tests := []struct {
		name  string
		input *InsertJarInput
	}{
		{"unknown database", &InsertJarInput{Database: "mysql", Size: 10, Attrs: 1}},
		{"unknown json type", &InsertJarInput{Database: "postgresql", JSONType: "bson", Size: 10, Attrs: 1}},
		{"zero size", &InsertJarInput{Database: "mongodb", Attrs: 1}},
		{"zero attrs", &InsertJarInput{Database: "mongodb", Size: 10}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewInsertJarBenchmark(test.input)
			if err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseCommandOutput(t *testing.T) {
	b := mustBenchmark(t, &InsertJarInput{Database: "mongodb", Size: 200, Attrs: 1}).(*bmark)

	out := []byte(`Connected to MongoDB
Run 1: 150ms
Run 2: 130ms
Run 3: 123ms
Best time to insert 10000 documents with 200B payload in 1 attribute into indexed: 123ms
`)
	rec, err := b.ParseCommandOutput(out)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Success {
		t.Error("expected success")
	}
	if rec.TimeMs != 123 {
		t.Errorf("time = %d, want 123", rec.TimeMs)
	}
	if rec.Throughput != 81300.81 {
		t.Errorf("throughput = %v, want 81300.81", rec.Throughput)
	}
	if rec.Size != 200 || rec.Attrs != 1 || rec.NumDocs != 10000 {
		t.Errorf("wrong dimensions: %+v", rec)
	}
	if rec.QueryTimeMs != nil {
		t.Error("query fields must stay unset without -q")
	}
}

func TestParseCommandOutputAttributeCountFallback(t *testing.T) {
	b := mustBenchmark(t, &InsertJarInput{Database: "postgresql", Size: 1000, Attrs: 50}).(*bmark)

	// The jar reports a different attribute count than requested.
	out := []byte("Best time to insert 10000 documents with 1000B payload in 1 attribute into indexed: 250ms\n")
	rec, err := b.ParseCommandOutput(out)
	if err != nil {
		t.Fatal(err)
	}
	if rec.TimeMs != 250 {
		t.Errorf("time = %d, want 250", rec.TimeMs)
	}
	if rec.Attrs != 50 {
		t.Errorf("attrs = %d, want the requested 50", rec.Attrs)
	}
}

func TestParseCommandOutputNoInsertTime(t *testing.T) {
	b := mustBenchmark(t, &InsertJarInput{Database: "mongodb", Size: 200, Attrs: 1}).(*bmark)

	_, err := b.ParseCommandOutput([]byte("Exception in thread \"main\" java.net.ConnectException\n"))
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "no insert time") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseCommandOutputQueryTime(t *testing.T) {
	b := mustBenchmark(t, &InsertJarInput{Database: "mongodb", Size: 200, Attrs: 1, QueryLinks: 4}).(*bmark)

	out := []byte(`Best time to insert 10000 documents with 200B payload in 1 attribute into indexed: 123ms
Total time taken to query 1000 ID's from MongoDB: 400ms
Total time taken to query 1000 ID's from MongoDB: 250ms
Total time taken to query 1000 ID's from MongoDB: 300ms
`)
	rec, err := b.ParseCommandOutput(out)
	if err != nil {
		t.Fatal(err)
	}
	if rec.QueryTimeMs == nil || *rec.QueryTimeMs != 250 {
		t.Fatalf("query time = %v, want 250", rec.QueryTimeMs)
	}
	if rec.QueryThroughput == nil || *rec.QueryThroughput != 4000.0 {
		t.Errorf("query throughput = %v, want 4000.0", rec.QueryThroughput)
	}
}

func TestParseCommandOutputQueryTimeMissing(t *testing.T) {
	b := mustBenchmark(t, &InsertJarInput{Database: "mongodb", Size: 200, Attrs: 1, QueryLinks: 4}).(*bmark)

	out := []byte("Best time to insert 10000 documents with 200B payload in 1 attribute into indexed: 123ms\n")
	rec, err := b.ParseCommandOutput(out)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Success {
		t.Error("a missing query line must not fail the insert result")
	}
	if rec.QueryTimeMs != nil {
		t.Error("query fields must stay unset")
	}
}

func TestDatabaseKey(t *testing.T) {
	tests := []struct {
		input *InsertJarInput
		want  string
	}{
		{&InsertJarInput{Database: "mongodb", Size: 10, Attrs: 1}, "mongodb"},
		{&InsertJarInput{Database: "postgresql", Size: 10, Attrs: 1}, "postgresql_json"},
		{&InsertJarInput{Database: "postgresql", JSONType: "jsonb", Size: 10, Attrs: 1}, "postgresql_jsonb"},
		{&InsertJarInput{Database: "oracle", Size: 10, Attrs: 1}, "oracle_no_index"},
		{&InsertJarInput{Database: "oracle", Indexed: true, Size: 10, Attrs: 1}, "oracle_with_index"},
	}
	for _, test := range tests {
		b := mustBenchmark(t, test.input).(*bmark)
		if got := b.DatabaseKey(); got != test.want {
			t.Errorf("key for %+v = %s, want %s", test.input, got, test.want)
		}
	}
}

func TestTestType(t *testing.T) {
	single := mustBenchmark(t, &InsertJarInput{Database: "mongodb", Size: 200, Attrs: 1}).(*bmark)
	if single.TestType() != "single_attribute" {
		t.Errorf("got %s", single.TestType())
	}
	multi := mustBenchmark(t, &InsertJarInput{Database: "mongodb", Size: 1000, Attrs: 50}).(*bmark)
	if multi.TestType() != "multi_attribute" {
		t.Errorf("got %s", multi.TestType())
	}
}

func TestDeserializeThroughRegistry(t *testing.T) {
	b, err := benchmark.DeserializeBenchmark(&benchmark.SerializedBenchmark{
		Type: "insert_jar",
		Input: map[string]any{
			"Database": "postgresql",
			"JSONType": "jsonb",
			"Size":     2000,
			"Attrs":    100,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	jb := b.(*bmark)
	if jb.DatabaseKey() != "postgresql_jsonb" {
		t.Errorf("key = %s", jb.DatabaseKey())
	}
	if jb.input.NumDocs != 10000 || jb.input.Runs != 3 || jb.input.BatchSize != 500 {
		t.Errorf("defaults not applied: %+v", jb.input)
	}
}
