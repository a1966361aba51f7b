package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/databrowser/pkg/catalog"
	"github.com/vanderheijden86/databrowser/pkg/testutil"
	"github.com/vanderheijden86/databrowser/pkg/tree"
)

var reportTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestGenerateMarkdown(t *testing.T) {
	root := tree.Build(testutil.Response(testutil.Shape{Datasets: 2, Blocks: 2, Files: 2}))

	got, err := GenerateMarkdown(root, "dataset=/Primary*/*/RAW", reportTime)
	if err != nil {
		t.Fatalf("GenerateMarkdown error: %v", err)
	}

	for _, want := range []string{
		"# dataset=/Primary*/*/RAW",
		"*Generated: Sat, 01 Mar 2025 12:00:00 UTC*",
		"| **Datasets** | 2 |",
		"| Blocks | 4 |",
		"| Files | 8 |",
		"| Bytes | 8.00 MiB |",
		"## Table of Contents",
		"(#primary0-processed-v1-raw)",
		"```mermaid\ngraph TD\n",
		"## " + testutil.DatasetName(1),
		"### 🟢 " + testutil.BlockName(1, 1),
		"2 files, 2.00 MiB, created ",
		"| `" + testutil.FileName(0, 1, 1) + "` | 1.00 MiB | T1_CH_CERN_Buffer |",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestGenerateMarkdown_EmptyAndPlaceholder(t *testing.T) {
	if _, err := GenerateMarkdown(nil, "x", reportTime); !errors.Is(err, ErrEmptyTree) {
		t.Errorf("nil root: err = %v, want ErrEmptyTree", err)
	}

	got, err := GenerateMarkdown(tree.Build(testutil.Empty()), "x", reportTime)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, tree.NothingFound) {
		t.Errorf("placeholder report:\n%s", got)
	}
	if strings.Contains(got, "## Summary") {
		t.Errorf("placeholder report has a summary:\n%s", got)
	}
}

func TestGenerateMarkdown_ListsNotRequested(t *testing.T) {
	root := tree.Build(testutil.Response(testutil.Shape{Datasets: 1, OmitBlocks: true}))
	got, err := GenerateMarkdown(root, "x", reportTime)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "_Block list not requested._") {
		t.Errorf("missing not-requested note:\n%s", got)
	}

	root = tree.Build(testutil.Response(testutil.Shape{Datasets: 1, Blocks: 1, Files: 4, OmitFiles: true}))
	got, err = GenerateMarkdown(root, "x", reportTime)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "| File | Size |") {
		t.Errorf("file table rendered without files:\n%s", got)
	}
}

func TestGenerateMermaidGraph(t *testing.T) {
	root := tree.Build(testutil.Response(testutil.Shape{Datasets: 1, Blocks: maxGraphBlocks + 3}))
	got := GenerateMermaidGraph(root)

	if !strings.HasPrefix(got, "graph TD\n") {
		t.Errorf("graph header missing:\n%s", got)
	}
	if n := strings.Count(got, " --> "); n != maxGraphBlocks+1 {
		t.Errorf("edges = %d, want %d", n, maxGraphBlocks+1)
	}
	if !strings.Contains(got, `["3 more blocks"]`) {
		t.Errorf("overflow node missing:\n%s", got)
	}
	if !strings.Contains(got, `["#00000001"]:::`) {
		t.Errorf("block labels should keep only the suffix:\n%s", got)
	}
}

func TestGenerateMermaidGraph_DuplicateIDs(t *testing.T) {
	// Two names that sanitize to the same ID.
	resp := &catalog.Response{DBS: []catalog.DBS{{Dataset: []catalog.Dataset{
		{Name: "/A/B/C"},
		{Name: "/AB/C"},
	}}}}
	got := GenerateMermaidGraph(tree.Build(resp))
	if !strings.Contains(got, "    ABC[") || !strings.Contains(got, "    ABC-1[") {
		t.Errorf("colliding IDs not disambiguated:\n%s", got)
	}
}

func TestSanitizeMermaidText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`a "quoted" [name]`, `a 'quoted' (name)`},
		{"x|y\nz", "x/y z"},
		{strings.Repeat("a", 30) + strings.Repeat("b", 20), "..." + strings.Repeat("a", 17) + strings.Repeat("b", 20)},
	}
	for _, tt := range tests {
		if got := sanitizeMermaidText(tt.in); got != tt.want {
			t.Errorf("sanitizeMermaidText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSaveSnapshot_Markdown(t *testing.T) {
	root := tree.Build(testutil.OneBlockTwoFiles())
	out := filepath.Join(t.TempDir(), "report", "tree.md")
	if err := SaveSnapshot(SnapshotOptions{Path: out, Root: root, Title: "block=" + testutil.BlockName(0, 0)}); err != nil {
		t.Fatalf("SaveSnapshot error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# block=") {
		t.Errorf("report starts with %.40q", data)
	}
}
