// Package export writes static pictures and reports of a catalog tree.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/databrowser/pkg/tree"
)

// DefaultMaxRows caps the number of node rows drawn in one snapshot.
const DefaultMaxRows = 500

// ErrEmptyTree is returned when there is no tree to draw.
var ErrEmptyTree = errors.New("no tree to export")

// SnapshotOptions controls snapshot export.
type SnapshotOptions struct {
	Path     string     // Output path; format inferred from extension when Format empty
	Format   string     // "svg", "png" or "md" (case-insensitive)
	Title    string     // Heading, usually the view state
	Root     *tree.Root // Tree to draw
	MaxDepth int        // 0 draws every level; 1 only datasets
	MaxRows  int        // 0 means DefaultMaxRows
}

// SaveSnapshot renders the tree as an SVG or PNG file, or as a Markdown
// report.
func SaveSnapshot(opts SnapshotOptions) error {
	if opts.Root == nil || len(opts.Root.Nodes) == 0 {
		return ErrEmptyTree
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		case ".md", ".markdown":
			format = "md"
		default:
			format = "svg"
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path += ".svg"
			}
		}
	}
	if format == "markdown" {
		format = "md"
	}
	if format != "svg" && format != "png" && format != "md" {
		return fmt.Errorf("unsupported format %q (want svg, png or md)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if format == "md" {
		return SaveMarkdownToFile(opts.Root, opts.Title, opts.Path)
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildLayout(opts)
	if format == "png" {
		return renderPNG(opts.Path, layout)
	}

	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	if err := renderSVG(file, layout); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// --- layout ----------------------------------------------------------------

const (
	padding      = 24.0
	headerHeight = 84.0
	rowHeight    = 22.0
	indent       = 28.0
	charWidth    = 7.0
	labelMax     = 96
)

type row struct {
	Kind   tree.Kind
	Text   string
	Size   string
	Depth  int
	X, Y   float64
	W      float64
	Parent int // index of the parent row, -1 at top level
}

type layoutResult struct {
	Rows    []row
	Omitted int
	Width   int
	Height  int
	Title   string
	Summary string
}

func buildLayout(opts SnapshotOptions) layoutResult {
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	var (
		rows    []row
		omitted int
		index   = map[*tree.Node]int{}
		widest  float64
	)
	opts.Root.Walk(func(n *tree.Node) bool {
		descend := opts.MaxDepth == 0 || n.Depth+1 < opts.MaxDepth
		if len(rows) >= maxRows {
			omitted++
			return descend
		}
		parent := -1
		if p, ok := index[n.Parent]; ok {
			parent = p
		}
		r := row{
			Kind:   n.Kind,
			Text:   truncate(tree.Line(n), labelMax),
			Depth:  n.Depth,
			X:      padding + float64(n.Depth)*indent,
			Y:      padding + headerHeight + float64(len(rows))*rowHeight,
			Parent: parent,
		}
		if n.File != nil {
			r.Size = tree.FormatBytes(n.File.Size)
		}
		r.W = float64(len([]rune(r.Text))+len(r.Size)+4)*charWidth + 16
		if right := r.X + r.W; right > widest {
			widest = right
		}
		index[n] = len(rows)
		rows = append(rows, r)
		return descend
	})

	width := int(widest + padding)
	if width < 640 {
		width = 640
	}
	height := int(padding*2 + headerHeight + float64(len(rows)+1)*rowHeight)
	if height < 240 {
		height = 240
	}

	title := opts.Title
	if strings.TrimSpace(title) == "" {
		title = "Catalog snapshot"
	}
	c := opts.Root.Count()
	summary := fmt.Sprintf("datasets: %d  blocks: %d  files: %d", c.Datasets, c.Blocks, c.Files)

	return layoutResult{
		Rows:    rows,
		Omitted: omitted,
		Width:   width,
		Height:  height,
		Title:   title,
		Summary: summary,
	}
}

// --- rendering -------------------------------------------------------------

var (
	colorDataset     = color.RGBA{0xc8, 0xe6, 0xc9, 0xff}
	colorBlock       = color.RGBA{0xe3, 0xf2, 0xfd, 0xff}
	colorFile        = color.RGBA{0xf5, 0xf5, 0xf5, 0xff}
	colorPlaceholder = color.RGBA{0xff, 0xf3, 0xe0, 0xff}
	colorStroke      = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorEdge        = color.RGBA{0x6b, 0x80, 0xbf, 0xff}
	colorText        = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle      = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorBackdrop    = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorHeaderBG    = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
)

func kindColor(k tree.Kind) color.RGBA {
	switch k {
	case tree.KindDataset:
		return colorDataset
	case tree.KindBlock:
		return colorBlock
	case tree.KindFile:
		return colorFile
	default:
		return colorPlaceholder
	}
}

// elbow returns the connector from a parent row down and across to r.
func elbow(rows []row, r row) (x1, y1, x2, y2, x3 float64) {
	p := rows[r.Parent]
	x1 = p.X + indent/2
	y1 = p.Y + rowHeight - 4
	y2 = r.Y + (rowHeight-4)/2
	x3 = r.X
	return x1, y1, x1, y2, x3
}

func renderPNG(path string, layout layoutResult) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()

	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(12, 12, float64(layout.Width)-24, headerHeight-8, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(colorText)
	dc.DrawStringAnchored(layout.Title, padding+8, 36, 0, 0.5)
	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(layout.Summary, padding+8, 58, 0, 0.5)

	dc.SetColor(colorEdge)
	dc.SetLineWidth(1)
	for _, r := range layout.Rows {
		if r.Parent < 0 {
			continue
		}
		x1, y1, x2, y2, x3 := elbow(layout.Rows, r)
		dc.DrawLine(x1, y1, x2, y2)
		dc.DrawLine(x2, y2, x3, y2)
		dc.Stroke()
	}

	for _, r := range layout.Rows {
		dc.SetColor(kindColor(r.Kind))
		dc.DrawRoundedRectangle(r.X, r.Y, r.W, rowHeight-4, 4)
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(0.8)
		dc.DrawRoundedRectangle(r.X, r.Y, r.W, rowHeight-4, 4)
		dc.Stroke()

		dc.SetColor(colorText)
		dc.DrawStringAnchored(r.Text, r.X+8, r.Y+(rowHeight-4)/2, 0, 0.5)
		if r.Size != "" {
			dc.SetColor(colorSubtle)
			dc.DrawStringAnchored(r.Size, r.X+r.W-8, r.Y+(rowHeight-4)/2, 1, 0.5)
		}
	}

	if layout.Omitted > 0 {
		dc.SetColor(colorSubtle)
		y := padding + headerHeight + float64(len(layout.Rows))*rowHeight + rowHeight/2
		dc.DrawStringAnchored(omittedText(layout.Omitted), padding, y, 0, 0.5)
	}

	return dc.SavePNG(path)
}

func renderSVG(w io.Writer, layout layoutResult) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(colorBackdrop)))
	canvas.Roundrect(12, 12, layout.Width-24, int(headerHeight-8), 10, 10, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
	canvas.Text(int(padding+8), 40, layout.Title, fmt.Sprintf("fill:%s;font-size:15px;font-family:monospace;font-weight:bold", css(colorText)))
	canvas.Text(int(padding+8), 62, layout.Summary, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))

	edgeStyle := fmt.Sprintf("fill:none;stroke:%s;stroke-width:1", css(colorEdge))
	for _, r := range layout.Rows {
		if r.Parent < 0 {
			continue
		}
		x1, y1, x2, y2, x3 := elbow(layout.Rows, r)
		canvas.Polyline([]int{int(x1), int(x2), int(x3)}, []int{int(y1), int(y2), int(y2)}, edgeStyle)
	}

	for _, r := range layout.Rows {
		x, y := int(r.X), int(r.Y)
		canvas.Roundrect(x, y, int(r.W), int(rowHeight-4), 4, 4,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:0.8", css(kindColor(r.Kind)), css(colorStroke)))
		canvas.Text(x+8, y+13, r.Text, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorText)))
		if r.Size != "" {
			canvas.Text(x+int(r.W)-8, y+13, r.Size,
				fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;text-anchor:end", css(colorSubtle)))
		}
	}

	if layout.Omitted > 0 {
		y := int(padding + headerHeight + float64(len(layout.Rows))*rowHeight + rowHeight/2)
		canvas.Text(int(padding), y, omittedText(layout.Omitted),
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(colorSubtle)))
	}

	canvas.End()
	return nil
}

func omittedText(n int) string {
	return fmt.Sprintf("... %d more not shown", n)
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
