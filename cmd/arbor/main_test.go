package main

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/arbor/pkg/config"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/widget"
)

func testItems() []model.Item {
	return []model.Item{
		{ID: "fruit", Title: "Fruit", State: model.StateOpened, Children: []model.Item{
			{ID: "apple", Title: "Apple"},
			{ID: "pear", Title: "Pear"},
		}},
		{ID: "veg", Title: "Vegetables"},
	}
}

func TestResolveDataPath(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	if _, err := resolveDataPath("", config.Default()); !errors.Is(err, errNoData) {
		t.Errorf("expected errNoData in an empty directory, got %v", err)
	}

	if err := os.WriteFile("menu.tree.json", []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := resolveDataPath("", config.Default())
	if err != nil || filepath.Base(got) != "menu.tree.json" {
		t.Errorf("expected the only data file, got %q (%v)", got, err)
	}

	if err := os.WriteFile("other.tree.yaml", []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := resolveDataPath("", config.Default()); !errors.Is(err, errNoData) {
		t.Errorf("expected an ambiguity error, got %v", err)
	}

	cfg := config.Default()
	cfg.Dir = "/project"
	cfg.Data = "data/menu.tree.json"
	if got, _ := resolveDataPath("", cfg); got != filepath.Join("/project", "data", "menu.tree.json") {
		t.Errorf("expected the configured file, got %q", got)
	}
	if got, _ := resolveDataPath("x.tree.json", cfg); got != "x.tree.json" {
		t.Errorf("expected the flag to win, got %q", got)
	}
}

func TestTitleOf(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"menu.tree.json", "menu"},
		{"/a/b/outline.tree.yaml", "outline"},
		{"plain.json", "plain"},
	}
	for _, tt := range tests {
		if got := titleOf(tt.path); got != tt.want {
			t.Errorf("titleOf(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestBuildTreeDefaultsRootElement(t *testing.T) {
	w, err := buildTree(testItems(), widget.Options{})
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}
	if w.Model().Len() != 4 {
		t.Errorf("expected 4 nodes, got %d", w.Model().Len())
	}
	if !strings.Contains(w.HTML(), "Apple") {
		t.Errorf("expected rendered markup, got %q", w.HTML())
	}
}

func TestWriteJSON(t *testing.T) {
	w, err := buildTree(testItems(), widget.Options{})
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}
	var buf bytes.Buffer
	if err := writeJSON(&buf, w); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	var items []model.Item
	if err := json.Unmarshal(buf.Bytes(), &items); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(items) != 2 || len(items[0].Children) != 2 || items[0].Children[1].Title != "Pear" {
		t.Errorf("unexpected snapshot %+v", items)
	}
}

func TestWriteExports(t *testing.T) {
	w, err := buildTree(testItems(), widget.Options{})
	if err != nil {
		t.Fatalf("buildTree: %v", err)
	}
	dir := t.TempDir()
	targets := exportTargets{
		HTML:     filepath.Join(dir, "page"),
		SVG:      filepath.Join(dir, "out", "tree.svg"),
		PNG:      filepath.Join(dir, "tree.png"),
		Markdown: filepath.Join(dir, "tree.md"),
	}
	written, err := writeExports(w, "menu", targets)
	if err != nil {
		t.Fatalf("writeExports: %v", err)
	}
	if len(written) != 4 {
		t.Fatalf("expected 4 files, got %v", written)
	}
	if written[0] != targets.HTML+".html" {
		t.Errorf("expected the html extension to be added, got %s", written[0])
	}
	for _, p := range written {
		info, err := os.Stat(p)
		if err != nil {
			t.Errorf("missing %s: %v", p, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", p)
		}
	}

	svg, _ := os.ReadFile(targets.SVG)
	if !strings.Contains(string(svg), "Apple") {
		t.Error("expected the open subtree in the SVG")
	}
	md, _ := os.ReadFile(targets.Markdown)
	if !strings.HasPrefix(string(md), "# menu") {
		t.Errorf("unexpected markdown %q", md)
	}
}

func TestExportTargetsEmpty(t *testing.T) {
	if !(exportTargets{}).empty() {
		t.Error("expected zero targets to be empty")
	}
	if (exportTargets{PNG: "x.png"}).empty() {
		t.Error("expected a PNG target to count")
	}
}

func TestDisplayAddr(t *testing.T) {
	if got := displayAddr(":8080"); got != "localhost:8080" {
		t.Errorf("got %q", got)
	}
	if got := displayAddr("127.0.0.1:9000"); got != "127.0.0.1:9000" {
		t.Errorf("got %q", got)
	}
}

func TestOpenDebugLog(t *testing.T) {
	dir := t.TempDir()
	f, err := openDebugLog(dir)
	if err != nil {
		t.Fatalf("openDebugLog: %v", err)
	}
	defer f.Close()
	defer log.SetOutput(os.Stderr)

	if _, err := os.Stat(filepath.Join(dir, config.DirName, "debug.log")); err != nil {
		t.Errorf("expected the log file: %v", err)
	}
	gi, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil || !strings.Contains(string(gi), ".arbor/*.log") {
		t.Errorf("expected .gitignore to cover the logs, got %q (%v)", gi, err)
	}
}

func TestRunDebugRestoresLogger(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	defer log.SetOutput(os.Stderr)

	data := `[{"id":"fruit","title":"Fruit","children":[{"title":"Apple"}]}]`
	if err := os.WriteFile("menu.tree.json", []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-debug", "-dump-json"}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(config.DirName, "debug.log")); err != nil {
		t.Errorf("expected the debug log: %v", err)
	}
	if log.Writer() != os.Stderr {
		t.Error("expected the standard logger back on stderr once run returns")
	}
	var items []model.Item
	if err := json.Unmarshal(stdout.Bytes(), &items); err != nil || len(items) != 1 {
		t.Errorf("expected the dumped tree, got %q (%v)", stdout.String(), err)
	}
}

func TestRunExitCodes(t *testing.T) {
	chdir(t, t.TempDir())

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"version", []string{"-version"}, 0},
		{"unknown flag", []string{"-nope"}, 2},
		{"no data", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(tt.args, &stdout, &stderr); got != tt.want {
				t.Errorf("expected exit %d, got %d (stderr %q)", tt.want, got, stderr.String())
			}
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
