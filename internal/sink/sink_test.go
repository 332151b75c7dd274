package sink

import (
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/back1ply/pagefetch/pkg/config"
	"github.com/back1ply/pagefetch/pkg/paginate"
)

func sampleResult() *paginate.Result {
	return &paginate.Result{
		Fields: []string{"id", "name", "email"},
		Rows: []paginate.Row{
			{"id": 1, "name": "a", "email": "a@example.com"},
			{"id": 2, "name": nil, "email": paginate.Missing},
		},
		Pages: 1,
	}
}

func writeTo(t *testing.T, cfg config.OutputConfig, result *paginate.Result) []byte {
	t.Helper()
	w, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, w.Write(result))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(cfg.Path)
	require.NoError(t, err)
	return data
}

func TestNDJSONOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndjson")
	data := writeTo(t, config.OutputConfig{Path: path, Format: config.OutputNDJSON}, sampleResult())

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"id":1,"name":"a","email":"a@example.com"}`, lines[0])
	assert.JSONEq(t, `{"id":2,"name":null,"email":null}`, lines[1],
		"missing values serialize as null")
}

func TestCSVOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	data := writeTo(t, config.OutputConfig{Path: path, Format: config.OutputCSV}, sampleResult())

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "name", "email"}, records[0])
	assert.Equal(t, []string{"1", "a", "a@example.com"}, records[1])
	assert.Equal(t, []string{"2", "", ""}, records[2], "null and missing both become empty cells")
}

func TestCSVSkipsSchemalessResult(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	data := writeTo(t, config.OutputConfig{Path: path, Format: config.OutputCSV}, &paginate.Result{})

	assert.Empty(t, data, "no schema means nothing to write, not even a header")
}

func TestGzipOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndjson.gz")
	data := writeTo(t, config.OutputConfig{
		Path:        path,
		Format:      config.OutputNDJSON,
		Compression: "gzip",
	}, sampleResult())

	r, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	plain, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(plain)), "\n"), 2)
}

func TestZstdOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ndjson.zst")
	data := writeTo(t, config.OutputConfig{
		Path:        path,
		Format:      config.OutputNDJSON,
		Compression: "zstd",
	}, sampleResult())

	r, err := zstd.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()
	plain, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(plain)), "\n"), 2)
}

func TestUnknownFormatRejected(t *testing.T) {
	_, err := New(config.OutputConfig{Path: filepath.Join(t.TempDir(), "x"), Format: "parquet"})
	assert.Error(t, err)
}

func TestUnknownCompressionRejected(t *testing.T) {
	_, err := New(config.OutputConfig{Path: filepath.Join(t.TempDir(), "x"), Compression: "brotli"})
	assert.Error(t, err)
}
