package orchestrator

import (
	"github.com/rhoulihan/BSON-JSON-bakeoff/benchmark"
)

// The payload matrix from the article: single-attribute payloads of
// 10/200/1000/2000/4000 bytes and the same totals split across many
// attributes. 10,000 documents per test, 3 runs, best time reported.
var articleSingleAttrTests = []struct{ Size, Attrs int }{
	{10, 1},
	{200, 1},
	{1000, 1},
	{2000, 1},
	{4000, 1},
}

var articleMultiAttrTests = []struct{ Size, Attrs int }{
	{10, 10},
	{200, 10},
	{1000, 50},
	{2000, 100},
	{4000, 200},
}

var articleDatabases = []map[string]any{
	{"Database": "mongodb"},
	{"Database": "postgresql", "JSONType": "json"},
	{"Database": "postgresql", "JSONType": "jsonb"},
	{"Database": "oracle"},
	{"Database": "oracle", "Indexed": true},
}

// ArticleSuite is the built-in benchmark set used when no suite file is
// given. It goes through the same deserialization path as user suites.
func ArticleSuite() benchmark.BenchmarkFile {
	var suite benchmark.BenchmarkFile
	tests := append(append([]struct{ Size, Attrs int }{}, articleSingleAttrTests...), articleMultiAttrTests...)
	for _, db := range articleDatabases {
		for _, test := range tests {
			input := map[string]any{"Size": test.Size, "Attrs": test.Attrs}
			for k, v := range db {
				input[k] = v
			}
			suite = append(suite, benchmark.SerializedBenchmark{Type: "insert_jar", Input: input})
		}
	}
	return suite
}
