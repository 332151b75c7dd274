// Package sink writes fetched rows to a destination file or stdout in
// NDJSON or CSV form, with optional gzip or zstd compression.
package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/back1ply/pagefetch/pkg/config"
	"github.com/back1ply/pagefetch/pkg/fetcherrors"
	"github.com/back1ply/pagefetch/pkg/json"
	"github.com/back1ply/pagefetch/pkg/paginate"
)

// Writer persists a fetch result.
type Writer interface {
	// Write emits every row of the result.
	Write(result *paginate.Result) error
	// Close flushes and releases the destination.
	Close() error
}

// New builds a writer from the output section of a job config.
func New(cfg config.OutputConfig) (Writer, error) {
	var out io.WriteCloser
	if cfg.Path == "" || cfg.Path == "-" {
		out = nopCloser{os.Stdout}
	} else {
		f, err := os.Create(cfg.Path) //nolint:gosec // G304: path comes from the CLI flag
		if err != nil {
			return nil, fetcherrors.Wrap(err, fetcherrors.KindConfig, "failed to create output file")
		}
		out = f
	}

	compressed, err := wrapCompression(out, cfg.Compression)
	if err != nil {
		_ = out.Close()
		return nil, err
	}

	switch cfg.Format {
	case "", config.OutputNDJSON:
		return &ndjsonWriter{out: compressed, raw: out}, nil
	case config.OutputCSV:
		return &csvWriter{out: compressed, raw: out, csv: csv.NewWriter(compressed)}, nil
	default:
		_ = compressed.Close()
		return nil, fetcherrors.Newf(fetcherrors.KindConfig, "unknown output format %q", cfg.Format)
	}
}

func wrapCompression(out io.Writer, name string) (io.WriteCloser, error) {
	switch name {
	case "", "none":
		return nopCloser{out}, nil
	case "gzip":
		return gzip.NewWriter(out), nil
	case "zstd":
		w, err := zstd.NewWriter(out)
		if err != nil {
			return nil, fetcherrors.Wrap(err, fetcherrors.KindConfig, "failed to create zstd writer")
		}
		return w, nil
	default:
		return nil, fetcherrors.Newf(fetcherrors.KindConfig, "unknown compression %q", name)
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// ndjsonWriter emits one JSON object per line. Missing values serialize
// as null through the paginate.Missing marshaler.
type ndjsonWriter struct {
	out io.WriteCloser
	raw io.Closer
}

func (w *ndjsonWriter) Write(result *paginate.Result) error {
	enc := json.NewEncoder(w.out)
	for _, row := range result.Rows {
		if err := enc.Encode(row); err != nil {
			return fetcherrors.Wrap(err, fetcherrors.KindMalformedPage, "failed to encode row")
		}
	}
	return nil
}

func (w *ndjsonWriter) Close() error {
	if err := w.out.Close(); err != nil {
		_ = w.raw.Close()
		return err
	}
	return w.raw.Close()
}

// csvWriter emits a header row of the canonical fields followed by one
// record per row, in field order. Missing values become empty cells.
type csvWriter struct {
	out io.WriteCloser
	raw io.Closer
	csv *csv.Writer
}

func (w *csvWriter) Write(result *paginate.Result) error {
	if !result.HasSchema() {
		return nil
	}
	if err := w.csv.Write(result.Fields); err != nil {
		return err
	}

	record := make([]string, len(result.Fields))
	for _, row := range result.Rows {
		for i, field := range result.Fields {
			record[i] = cell(row[field])
		}
		if err := w.csv.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func (w *csvWriter) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		_ = w.out.Close()
		_ = w.raw.Close()
		return err
	}
	if err := w.out.Close(); err != nil {
		_ = w.raw.Close()
		return err
	}
	return w.raw.Close()
}

func cell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		if paginate.IsMissing(val) {
			return ""
		}
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(data)
	}
}
