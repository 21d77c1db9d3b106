package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"auditview/internal/record"
	"auditview/internal/recordtest"
)

// writeDataset encodes records into path using the format implied by its
// name.
func writeDataset(t *testing.T, path string, records []record.Record) {
	t.Helper()
	format, comp, err := DetectFormat(path)
	if err != nil {
		t.Fatal(err)
	}

	var raw bytes.Buffer
	switch format {
	case FormatJSON:
		err = json.NewEncoder(&raw).Encode(records)
	case FormatJSONL:
		enc := json.NewEncoder(&raw)
		for _, r := range records {
			if err = enc.Encode(r); err != nil {
				break
			}
		}
	case FormatMsgpack:
		err = msgpack.NewEncoder(&raw).Encode(records)
	}
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	switch comp {
	case CompressionGzip:
		zw := gzip.NewWriter(&out)
		_, _ = zw.Write(raw.Bytes())
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
	case CompressionZstd:
		zw, err := zstd.NewWriter(&out)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = zw.Write(raw.Bytes())
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
	default:
		out.Write(raw.Bytes())
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		comp   Compression
	}{
		{"a.json", FormatJSON, CompressionNone},
		{"A.JSON", FormatJSON, CompressionNone},
		{"a.jsonl", FormatJSONL, CompressionNone},
		{"a.ndjson.gz", FormatJSONL, CompressionGzip},
		{"a.msgpack", FormatMsgpack, CompressionNone},
		{"a.mpk.zst", FormatMsgpack, CompressionZstd},
		{"dir/a.json.gz", FormatJSON, CompressionGzip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, c, err := DetectFormat(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if f != tt.format || c != tt.comp {
				t.Errorf("got %s/%q, want %s/%q", f, c, tt.format, tt.comp)
			}
		})
	}

	for _, bad := range []string{"a.csv", "a.gz", "noext"} {
		if _, _, err := DetectFormat(bad); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("DetectFormat(%q) = %v, want ErrUnsupportedFormat", bad, err)
		}
	}
}

func TestReadFileEveryFormat(t *testing.T) {
	want := recordtest.Sample()
	names := []string{
		"r.json", "r.json.gz", "r.json.zst",
		"r.jsonl", "r.ndjson.gz",
		"r.msgpack", "r.mpk.gz", "r.msgpack.zst",
	}
	dir := t.TempDir()
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			writeDataset(t, path, want)
			got, err := ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if !slices.Equal(got, want) {
				t.Errorf("decoded records differ:\n got %+v\nwant %+v", got, want)
			}
		})
	}
}

func TestReadFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte(`[{"id": "one"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"a.json", "sub/b.json", "sub/deep/c.json", "sub/deep/skip.txt"} {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Discover([]string{
		filepath.Join(dir, "**", "*.json"),
		filepath.Join(dir, "a.json"),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "a.json"),
		filepath.Join(dir, "sub", "b.json"),
		filepath.Join(dir, "sub", "deep", "c.json"),
	}
	if !slices.Equal(got, want) {
		t.Errorf("Discover = %v, want %v", got, want)
	}
}

func TestStaticPrefix(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{"/data/logs/*.json", "/data/logs"},
		{"/data/**/x.json", "/data"},
		{"/data/file.json", "/data"},
		{"/data/{a,b}/x.json", "/data"},
	}
	for _, tt := range tests {
		if got := staticPrefix(tt.pattern); got != tt.want {
			t.Errorf("staticPrefix(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestLoadConcatenatesInPathOrder(t *testing.T) {
	dir := t.TempDir()
	all := recordtest.Sample()
	writeDataset(t, filepath.Join(dir, "b.msgpack.zst"), all[3:])
	writeDataset(t, filepath.Join(dir, "a.json.gz"), all[:3])

	got, err := Load(context.Background(), []string{filepath.Join(dir, "*")}, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	recordtest.AssertIDs(t, got, 1, 2, 3, 4, 5, 6)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(context.Background(), nil, nil); !errors.Is(err, ErrNoPatterns) {
		t.Errorf("no patterns: %v", err)
	}
	if _, err := Load(context.Background(), []string{filepath.Join(dir, "*.json")}, nil); !errors.Is(err, ErrNoFiles) {
		t.Errorf("no files: %v", err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(context.Background(), []string{bad}, nil)
	var fe *FileError
	if !errors.As(err, &fe) || fe.Path != bad {
		t.Errorf("expected FileError for %s, got %v", bad, err)
	}
}

type sink struct {
	mu    sync.Mutex
	loads [][]record.Record
	ch    chan struct{}
}

func newSink() *sink { return &sink{ch: make(chan struct{}, 16)} }

func (s *sink) onLoad(recs []record.Record) {
	s.mu.Lock()
	s.loads = append(s.loads, recs)
	s.mu.Unlock()
	s.ch <- struct{}{}
}

func (s *sink) last() []record.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads[len(s.loads)-1]
}

func (s *sink) wait(t *testing.T) {
	t.Helper()
	select {
	case <-s.ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestReloaderKeepsPreviousOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.json")
	writeDataset(t, path, recordtest.Sample()[:2])

	s := newSink()
	r := NewReloader([]string{path}, s.onLoad, nil)
	defer r.Close()

	if err := r.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.wait(t)

	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(context.Background()); err == nil {
		t.Fatal("expected reload error")
	}
	s.mu.Lock()
	n := len(s.loads)
	s.mu.Unlock()
	if n != 1 {
		t.Errorf("failed reload published: %d loads", n)
	}
	recordtest.AssertIDs(t, s.last(), 1, 2)
}

func TestReloaderWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.jsonl")
	writeDataset(t, path, recordtest.Sample()[:1])

	s := newSink()
	r := NewReloader([]string{filepath.Join(dir, "*.jsonl")}, s.onLoad, nil)
	defer r.Close()

	if err := r.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	writeDataset(t, path, recordtest.Sample()[:4])
	s.wait(t)
	recordtest.AssertIDs(t, s.last(), 1, 2, 3, 4)
}

func TestReloaderSchedule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.json")
	writeDataset(t, path, recordtest.Sample())

	s := newSink()
	r := NewReloader([]string{path}, s.onLoad, nil)
	defer r.Close()

	if err := r.Schedule("* * * * * *"); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	s.wait(t)
	recordtest.AssertIDs(t, s.last(), 1, 2, 3, 4, 5, 6)

	if err := r.Schedule("not a cron"); err == nil {
		t.Error("expected error for bad cron")
	}
}
