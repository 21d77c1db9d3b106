package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"auditview/internal/record"
)

var ErrUnsupportedFormat = errors.New("unsupported dataset format")

// Format is a record encoding.
type Format string

const (
	FormatJSON    Format = "json"    // a JSON array of records
	FormatJSONL   Format = "jsonl"   // one JSON record per line
	FormatMsgpack Format = "msgpack" // a msgpack array of records
)

// Compression wraps a format.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionGzip Compression = "gzip"
	CompressionZstd Compression = "zstd"
)

// DetectFormat infers the format and compression from a file name, for
// example "changes.msgpack.zst".
func DetectFormat(name string) (Format, Compression, error) {
	base := strings.ToLower(filepath.Base(name))

	comp := CompressionNone
	switch {
	case strings.HasSuffix(base, ".gz"):
		comp, base = CompressionGzip, strings.TrimSuffix(base, ".gz")
	case strings.HasSuffix(base, ".zst"):
		comp, base = CompressionZstd, strings.TrimSuffix(base, ".zst")
	}

	switch filepath.Ext(base) {
	case ".json":
		return FormatJSON, comp, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, comp, nil
	case ".msgpack", ".mpk":
		return FormatMsgpack, comp, nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// Decode reads every record from r.
func Decode(r io.Reader, format Format, comp Compression) ([]record.Record, error) {
	switch comp {
	case CompressionGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	case CompressionZstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		defer zr.Close()
		r = zr
	case CompressionNone:
	default:
		return nil, fmt.Errorf("%w: compression %q", ErrUnsupportedFormat, comp)
	}

	var records []record.Record
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatJSONL:
		dec := json.NewDecoder(r)
		for line := 1; ; line++ {
			var rec record.Record
			err := dec.Decode(&rec)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("decode jsonl record %d: %w", line, err)
			}
			records = append(records, rec)
		}
	case FormatMsgpack:
		if err := msgpack.NewDecoder(r).Decode(&records); err != nil {
			return nil, fmt.Errorf("decode msgpack: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return records, nil
}
