package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"auditview/internal/recordtest"
	"auditview/internal/server"
)

type env struct {
	home    string
	dataset string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	data, err := json.Marshal(recordtest.Sample())
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "changes.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return env{home: filepath.Join(dir, "home"), dataset: path}
}

// run executes the CLI with the env's home and dataset prepended.
func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cmd := newRootCmd(logger, nil, &out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--home", e.home, "-d", e.dataset}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e env) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func recordIDs(resp server.RecordsResponse) []int64 {
	ids := make([]int64, len(resp.Records))
	for i, r := range resp.Records {
		ids[i] = r.ID
	}
	return ids
}

func TestQuery(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name string
		args []string
		want []int64
	}{
		{"name filter sorted", []string{"--name", "reza", "--sort-key", "id", "--sort-type", "dsc"}, []int64{6, 2}},
		{"and of filters", []string{"--name", "ali", "--field", "price"}, []int64{1}},
		{"date", []string{"--date", "2023-01-01", "--sort-key", "id"}, []int64{1, 3}},
		{"url", []string{"--url", "?title=blue&sort_key=id&sort_type=asc"}, []int64{1, 4}},
		{"limit", []string{"--field", "price", "--sort-key", "id", "--limit", "2"}, []int64{1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--prefs", "memory", "query", "-o", "json"}, tt.args...)
			out := e.mustRun(t, args...)
			var resp server.RecordsResponse
			if err := json.Unmarshal([]byte(out), &resp); err != nil {
				t.Fatalf("decode %q: %v", out, err)
			}
			if got := recordIDs(resp); !slices.Equal(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryTable(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun(t, "--prefs", "memory", "query")
	if !strings.Contains(out, "No filters set.") {
		t.Errorf("idle output = %q", out)
	}

	out = e.mustRun(t, "--prefs", "memory", "query", "--name", "nobody")
	if !strings.Contains(out, "No matching records.") {
		t.Errorf("empty output = %q", out)
	}

	out = e.mustRun(t, "--prefs", "memory", "query", "--name", "mina")
	if !strings.Contains(out, "Garden chair") || !strings.Contains(out, "Showing 1 of 1 matching records.") {
		t.Errorf("table output = %q", out)
	}
}

func TestQueryErrors(t *testing.T) {
	e := newEnv(t)
	cases := [][]string{
		{"query", "-o", "yaml", "--name", "a"},
		{"query", "--sort-key", "colour"},
		{"query", "--sort-key", "id", "--sort-type", "sideways"},
		{"query", "--url", "%zz"},
	}
	for _, args := range cases {
		if _, err := e.run(t, append([]string{"--prefs", "memory"}, args...)...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestSettingsPageSizePersists(t *testing.T) {
	for _, store := range []string{"json", "sqlite"} {
		t.Run(store, func(t *testing.T) {
			e := newEnv(t)
			if out := e.mustRun(t, "--prefs", store, "settings", "page-size"); strings.TrimSpace(out) != "40" {
				t.Errorf("default page size = %q", out)
			}
			e.mustRun(t, "--prefs", store, "settings", "page-size", "2")
			if out := e.mustRun(t, "--prefs", store, "settings", "page-size"); strings.TrimSpace(out) != "2" {
				t.Errorf("stored page size = %q", out)
			}

			out := e.mustRun(t, "--prefs", store, "query", "-o", "json", "--field", "price")
			var resp server.RecordsResponse
			if err := json.Unmarshal([]byte(out), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Total != 3 || len(resp.Records) != 2 || resp.Limit != 2 {
				t.Errorf("total=%d records=%d limit=%d", resp.Total, len(resp.Records), resp.Limit)
			}

			if _, err := e.run(t, "--prefs", store, "settings", "page-size", "0"); err == nil {
				t.Error("expected error for page size 0")
			}
		})
	}
}

func TestFeatured(t *testing.T) {
	e := newEnv(t)

	if out := e.mustRun(t, "featured", "add", "3"); !strings.Contains(out, "3: featured") {
		t.Errorf("add output = %q", out)
	}
	e.mustRun(t, "featured", "add", "99")
	if out := e.mustRun(t, "featured", "toggle", "5"); !strings.Contains(out, "5: featured") {
		t.Errorf("toggle output = %q", out)
	}
	if out := e.mustRun(t, "featured", "toggle", "5"); !strings.Contains(out, "5: not featured") {
		t.Errorf("second toggle output = %q", out)
	}
	e.mustRun(t, "featured", "remove", "42")

	out := e.mustRun(t, "featured", "list", "-o", "json")
	var list struct {
		IDs     []int64 `json:"ids"`
		Records []struct {
			ID int64 `json:"id"`
		} `json:"records"`
	}
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(list.IDs, []int64{3, 99}) {
		t.Errorf("ids = %v", list.IDs)
	}
	if len(list.Records) != 1 || list.Records[0].ID != 3 {
		t.Errorf("records = %+v", list.Records)
	}

	out = e.mustRun(t, "featured", "list")
	if !strings.Contains(out, "Old phone") || !strings.Contains(out, "1 featured ids are not in the dataset.") {
		t.Errorf("list output = %q", out)
	}

	out = e.mustRun(t, "query", "-o", "json", "--field", "price", "--sort-key", "id")
	var resp server.RecordsResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatal(err)
	}
	for _, r := range resp.Records {
		if r.Featured != (r.ID == 3) {
			t.Errorf("record %d featured = %v", r.ID, r.Featured)
		}
	}

	if _, err := e.run(t, "featured", "add", "three"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}

func TestStats(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun(t, "stats", "-o", "json")
	var st struct {
		Records int `json:"records"`
		Indexed int `json:"indexed"`
		Skipped int `json:"skipped"`
	}
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatal(err)
	}
	if st.Records != 6 || st.Indexed != 5 || st.Skipped != 1 {
		t.Errorf("stats = %+v", st)
	}

	if out := e.mustRun(t, "stats"); !strings.Contains(out, "index height:") {
		t.Errorf("table stats = %q", out)
	}
}

func TestShellScript(t *testing.T) {
	e := newEnv(t)
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cmd := newRootCmd(logger, nil, &out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader("name sara\nshow\nexit\n"))
	cmd.SetArgs([]string{"--home", e.home, "-d", e.dataset, "--prefs", "memory", "shell", "--debounce", "1h"})
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Old phone") {
		t.Errorf("shell output = %q", out.String())
	}
}

func TestMissingDataset(t *testing.T) {
	e := newEnv(t)
	e.dataset = filepath.Join(t.TempDir(), "nothing-*.json")
	if _, err := e.run(t, "--prefs", "memory", "query", "--name", "a"); err == nil {
		t.Error("expected error when no dataset files match")
	}
}

func TestVersion(t *testing.T) {
	e := newEnv(t)
	if out := e.mustRun(t, "version"); strings.TrimSpace(out) != version {
		t.Errorf("version = %q", out)
	}
}
