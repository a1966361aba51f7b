package tree

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/databrowser/pkg/catalog"
	"github.com/vanderheijden86/databrowser/pkg/testutil"
)

func mustDecode(t *testing.T, body string) *catalog.Response {
	t.Helper()
	resp, err := catalog.DecodeBytes([]byte(body))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp
}

func TestBuildOneBlockTwoFiles(t *testing.T) {
	resp := mustDecode(t, `{"phedex":{"dbs":[{"dataset":[{"name":"/A/B/C","block":[
		{"name":"/A/B/C#1","files":2,"bytes":300,"file":[
			{"lfn":"/store/1","size":100},{"lfn":"/store/2","size":200}]}]}]}]}}`)

	root := Build(resp)
	if len(root.Nodes) != 1 {
		t.Fatalf("expected 1 dataset, got %d", len(root.Nodes))
	}
	ds := root.Nodes[0]
	if ds.Kind != KindDataset || ds.Title != "1 block, 2 files" {
		t.Errorf("dataset node = %v %q, want dataset %q", ds.Kind, ds.Title, "1 block, 2 files")
	}
	blk := ds.Children[0]
	if blk.Title != "2 files" {
		t.Errorf("block title = %q, want %q", blk.Title, "2 files")
	}
	if blk.Parent != ds || blk.Depth != 1 {
		t.Errorf("block links wrong: parent=%v depth=%d", blk.Parent, blk.Depth)
	}
	for _, f := range blk.Children {
		if f.Kind != KindFile || !f.Terminal() || f.Depth != 2 || f.Parent != blk {
			t.Errorf("unexpected file node %+v", f)
		}
	}
}

func TestBuildTitles(t *testing.T) {
	resp := mustDecode(t, `{"dbs":[{"dataset":[
		{"name":"d1","block":[{"name":"b1","file":[{"lfn":"f1"}]}]},
		{"name":"d2","block":[{"name":"b2","file":[]},{"name":"b3","file":[{"lfn":"f2"},{"lfn":"f3"},{"lfn":"f4"}]}]},
		{"name":"d3","block":[]},
		{"name":"d4"},
		{"name":"d5","block":[{"name":"b4"}]}
	]}]}`)
	root := Build(resp)

	want := []struct {
		title    string
		terminal bool
	}{
		{"1 block, 1 file", false},
		{"2 blocks, 4 files", false},
		{"0 blocks, 0 files", true},
		{"", true},
		{"1 block, 0 files", false},
	}
	if len(root.Nodes) != len(want) {
		t.Fatalf("expected %d datasets, got %d", len(want), len(root.Nodes))
	}
	for i, w := range want {
		n := root.Nodes[i]
		if n.Title != w.title || n.Terminal() != w.terminal {
			t.Errorf("%s: got title %q terminal %v, want %q %v", n.Label, n.Title, n.Terminal(), w.title, w.terminal)
		}
	}

	if got := root.Nodes[0].Children[0].Title; got != "1 file" {
		t.Errorf("singular block title = %q", got)
	}
	emptyBlock := root.Nodes[1].Children[0]
	if emptyBlock.Title != "0 files" || !emptyBlock.Terminal() {
		t.Errorf("empty file list: title %q terminal %v", emptyBlock.Title, emptyBlock.Terminal())
	}
	noList := root.Nodes[4].Children[0]
	if noList.Title != "" || !noList.Terminal() {
		t.Errorf("absent file list: title %q terminal %v", noList.Title, noList.Terminal())
	}
}

func TestBuildEmptyPlaceholder(t *testing.T) {
	for _, body := range []string{
		`{"phedex":{"dbs":[]}}`,
		`{"phedex":{"dbs":[{"name":"x","dataset":[]}],"instance":"prod"}}`,
		`{"dbs":[{"name":"x"}]}`,
	} {
		root := Build(mustDecode(t, body))
		if !root.Empty() || len(root.Nodes) != 1 {
			t.Fatalf("%s: expected placeholder tree, got %+v", body, root.Nodes)
		}
		n := root.Nodes[0]
		if n.Kind != KindPlaceholder || n.Label != NothingFound || !n.Terminal() {
			t.Errorf("%s: unexpected placeholder %+v", body, n)
		}
	}
	if !Build(nil).Empty() {
		t.Error("nil response should build the placeholder tree")
	}
}

func TestBuildConcatenatesDBSEntries(t *testing.T) {
	root := Build(mustDecode(t, `{"dbs":[{"dataset":[{"name":"a"}]},{"dataset":[{"name":"b"},{"name":"c"}]}]}`))
	var labels []string
	for _, n := range root.Nodes {
		labels = append(labels, n.Label)
	}
	if strings.Join(labels, ",") != "a,b,c" {
		t.Errorf("unexpected dataset order %v", labels)
	}
}

func TestCountAndWalk(t *testing.T) {
	root := Build(testutil.Response(testutil.Shape{Datasets: 2, Blocks: 3, Files: 4}))
	c := root.Count()
	if c.Datasets != 2 || c.Blocks != 6 || c.Files != 24 || c.Total() != 32 {
		t.Errorf("unexpected counts %+v", c)
	}

	visited := 0
	root.Walk(func(n *Node) bool {
		visited++
		return n.Kind != KindDataset
	})
	if visited != 2 {
		t.Errorf("expected walk to stop at datasets, visited %d", visited)
	}
}

func TestSizes(t *testing.T) {
	blk := &Node{Kind: KindBlock}
	for _, s := range []int64{100, 300, 200} {
		blk.Children = append(blk.Children, &Node{Kind: KindFile, File: &FileAttrs{Size: s}})
	}
	s, ok := Sizes(blk)
	if !ok {
		t.Fatal("expected sizes")
	}
	if s.Count != 3 || s.Total != 600 || s.Min != 100 || s.Max != 300 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.Mean != 200 || s.Median != 200 || math.Abs(s.StdDev-100) > 1e-9 {
		t.Errorf("unexpected mean/median/stddev %+v", s)
	}

	if _, ok := Sizes(&Node{Kind: KindDataset}); ok {
		t.Error("node without children should have no sizes")
	}
	one := &Node{Children: []*Node{{File: &FileAttrs{Size: 5}}}}
	if s, _ := Sizes(one); s.StdDev != 0 {
		t.Errorf("single sample stddev should be 0, got %v", s.StdDev)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:               "0 B",
		1023:            "1023 B",
		1024:            "1.00 KiB",
		1536:            "1.50 KiB",
		5 * 1024 * 1024: "5.00 MiB",
		3 << 40:         "3.00 TiB",
		1<<30 + 1<<29:   "1.50 GiB",
	}
	for in, want := range tests {
		if got := FormatBytes(in); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestRender(t *testing.T) {
	resp := mustDecode(t, `{"dbs":[{"dataset":[
		{"name":"/A","block":[{"name":"/A#1","file":[{"lfn":"/f1","size":10},{"lfn":"/f2","size":20}]},{"name":"/A#2","file":[]}]}]}]}`)
	var buf bytes.Buffer
	if err := Render(&buf, Build(resp), 0); err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"/A (2 blocks, 2 files)",
		"├── /A#1 (2 files)",
		"│   ├── /f1  10 B",
		"│   └── /f2  20 B",
		"└── /A#2 (0 files)",
		"",
	}, "\n")
	if buf.String() != want {
		t.Errorf("unexpected render:\n%s\nwant:\n%s", buf.String(), want)
	}

	buf.Reset()
	_ = Render(&buf, Build(resp), 1)
	if buf.String() != "/A (2 blocks, 2 files)\n" {
		t.Errorf("depth-limited render = %q", buf.String())
	}
}

func shapeGen() *rapid.Generator[testutil.Shape] {
	return rapid.Custom(func(t *rapid.T) testutil.Shape {
		return testutil.Shape{
			Datasets:     rapid.IntRange(0, 4).Draw(t, "datasets"),
			Blocks:       rapid.IntRange(0, 4).Draw(t, "blocks"),
			Files:        rapid.IntRange(0, 4).Draw(t, "files"),
			OmitBlocks:   rapid.Bool().Draw(t, "omitBlocks"),
			OmitFiles:    rapid.Bool().Draw(t, "omitFiles"),
			StartEpoch:   rapid.Float64Range(0, 2e9).Draw(t, "epoch"),
			SizeVariance: rapid.Int64Range(0, 1<<20).Draw(t, "variance"),
		}
	})
}

func shape(r *Root) []string {
	var out []string
	r.Walk(func(n *Node) bool {
		out = append(out, n.Kind.String()+"|"+n.Label+"|"+n.Title)
		return true
	})
	return out
}

// Building the same payload twice yields identical trees, and every
// childless node is terminal.
func TestBuildIsomorphismProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sh := shapeGen().Draw(t, "shape")
		resp := testutil.Response(sh)

		a, b := Build(resp), Build(resp)
		sa, sb := shape(a), shape(b)
		if strings.Join(sa, "\n") != strings.Join(sb, "\n") {
			t.Fatalf("builds differ:\n%v\n%v", sa, sb)
		}
		if a.Count() != b.Count() {
			t.Fatalf("counts differ: %+v vs %+v", a.Count(), b.Count())
		}
		if sh.Datasets == 0 && !a.Empty() {
			t.Fatalf("empty dataset list must build the placeholder")
		}
		a.Walk(func(n *Node) bool {
			if (len(n.Children) == 0) != n.Terminal() {
				t.Fatalf("terminal mismatch on %s", n.Label)
			}
			return true
		})
	})
}
