// Package tree builds the in-memory catalog tree from a data service reply.
//
// The tree has three real levels (dataset, block, file) plus a synthetic
// placeholder leaf used when a reply contains no datasets. Titles are
// derived from child counts at build time; a node without children is
// terminal whatever its kind.
package tree

import (
	"fmt"
	"time"

	"github.com/vanderheijden86/databrowser/pkg/catalog"
	"github.com/vanderheijden86/databrowser/pkg/debug"
	"github.com/vanderheijden86/databrowser/pkg/metrics"
)

// NothingFound is the label of the placeholder leaf for an empty result.
const NothingFound = "Nothing found, try another dataset or block..."

// Kind identifies which level of the catalog a node represents.
type Kind int

const (
	KindPlaceholder Kind = iota
	KindDataset
	KindBlock
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindDataset:
		return "dataset"
	case KindBlock:
		return "block"
	case KindFile:
		return "file"
	default:
		return "placeholder"
	}
}

// DatasetAttrs are the attributes carried by a dataset node.
type DatasetAttrs struct {
	IsOpen      bool      `json:"is_open"`
	IsTransient bool      `json:"is_transient"`
	Created     time.Time `json:"time_create"`
	Updated     time.Time `json:"time_update"`
}

// BlockAttrs are the attributes carried by a block node. Files and Bytes
// are the service's own totals, not counts of the file children.
type BlockAttrs struct {
	Files   int64     `json:"files"`
	Bytes   int64     `json:"bytes"`
	IsOpen  bool      `json:"is_open"`
	Created time.Time `json:"time_create"`
	Updated time.Time `json:"time_update"`
}

// FileAttrs are the attributes carried by a file node.
type FileAttrs struct {
	Node     string    `json:"node"`
	Size     int64     `json:"size"`
	Created  time.Time `json:"time_create"`
	Checksum string    `json:"checksum"`
}

// Node is one entry in the catalog tree. Exactly one of Dataset, Block and
// File is set, matching Kind; the placeholder has none.
type Node struct {
	Kind  Kind   `json:"kind"`
	Label string `json:"label"`
	// Title is the derived summary ("2 blocks, 7 files"); empty when the
	// payload carried no child list for this node.
	Title string `json:"title,omitempty"`

	Dataset *DatasetAttrs `json:"dataset,omitempty"`
	Block   *BlockAttrs   `json:"block,omitempty"`
	File    *FileAttrs    `json:"file,omitempty"`

	Children []*Node `json:"children,omitempty"`
	Parent   *Node   `json:"-"`
	Depth    int     `json:"-"`
}

// Terminal reports whether the node has no children.
func (n *Node) Terminal() bool {
	return len(n.Children) == 0
}

// Root is a built tree. Nodes holds the top level: datasets, or the single
// placeholder leaf.
type Root struct {
	Nodes []*Node `json:"nodes"`
}

// Empty reports whether the tree is the "nothing found" placeholder.
func (r *Root) Empty() bool {
	return r == nil || len(r.Nodes) == 0 || (len(r.Nodes) == 1 && r.Nodes[0].Kind == KindPlaceholder)
}

// Walk visits every node depth-first in display order. Returning false from
// fn skips the node's children.
func (r *Root) Walk(fn func(*Node) bool) {
	if r == nil {
		return
	}
	var visit func(n *Node)
	visit = func(n *Node) {
		if !fn(n) {
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, n := range r.Nodes {
		visit(n)
	}
}

// Counts is the number of nodes per kind.
type Counts struct {
	Datasets int `json:"datasets"`
	Blocks   int `json:"blocks"`
	Files    int `json:"files"`
}

// Total returns the number of real (non-placeholder) nodes.
func (c Counts) Total() int {
	return c.Datasets + c.Blocks + c.Files
}

// Count tallies nodes by kind.
func (r *Root) Count() Counts {
	var c Counts
	r.Walk(func(n *Node) bool {
		switch n.Kind {
		case KindDataset:
			c.Datasets++
		case KindBlock:
			c.Blocks++
		case KindFile:
			c.Files++
		}
		return true
	})
	return c
}

// Build converts a reply into a tree. It is pure: the same reply always
// yields a structurally identical tree. A nil reply or one with no datasets
// yields the placeholder tree.
func Build(resp *catalog.Response) *Root {
	defer metrics.Timer(metrics.TreeBuild)()

	datasets := resp.Datasets()
	if len(datasets) == 0 {
		return &Root{Nodes: []*Node{{Kind: KindPlaceholder, Label: NothingFound}}}
	}

	root := &Root{Nodes: make([]*Node, 0, len(datasets))}
	for i := range datasets {
		root.Nodes = append(root.Nodes, buildDataset(&datasets[i]))
	}
	debug.Log("tree: built %d datasets", len(root.Nodes))
	return root
}

func buildDataset(d *catalog.Dataset) *Node {
	n := &Node{
		Kind:  KindDataset,
		Label: d.Name,
		Dataset: &DatasetAttrs{
			IsOpen:      bool(d.IsOpen),
			IsTransient: bool(d.IsTransient),
			Created:     d.TimeCreate.Time(),
			Updated:     d.TimeUpdate.Time(),
		},
	}
	if d.Block == nil {
		return n
	}

	totalFiles := 0
	n.Children = make([]*Node, 0, len(d.Block))
	for i := range d.Block {
		b := &d.Block[i]
		child := buildBlock(b)
		child.Parent = n
		child.Depth = 1
		for _, f := range child.Children {
			f.Depth = 2
		}
		totalFiles += len(b.File)
		n.Children = append(n.Children, child)
	}
	n.Title = plural(len(d.Block), "block") + ", " + plural(totalFiles, "file")
	return n
}

func buildBlock(b *catalog.Block) *Node {
	n := &Node{
		Kind:  KindBlock,
		Label: b.Name,
		Block: &BlockAttrs{
			Files:   int64(b.Files),
			Bytes:   int64(b.Bytes),
			IsOpen:  bool(b.IsOpen),
			Created: b.TimeCreate.Time(),
			Updated: b.TimeUpdate.Time(),
		},
	}
	if b.File == nil {
		return n
	}

	n.Children = make([]*Node, 0, len(b.File))
	for _, f := range b.File {
		n.Children = append(n.Children, &Node{
			Kind:   KindFile,
			Label:  f.LFN,
			Parent: n,
			File: &FileAttrs{
				Node:     f.Node,
				Size:     int64(f.Size),
				Created:  f.TimeCreate.Time(),
				Checksum: f.Checksum,
			},
		})
	}
	n.Title = plural(len(b.File), "file")
	return n
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
