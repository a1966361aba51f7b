// Package testutil provides catalog payload fixtures for tests.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/databrowser/pkg/catalog"
)

// Shape describes a uniform payload: Datasets datasets, each with Blocks
// blocks, each with Files files. OmitBlocks and OmitFiles drop the child
// lists entirely (as the service does when only a dataset or only block
// metadata is requested).
type Shape struct {
	Datasets   int
	Blocks     int
	Files      int
	OmitBlocks bool
	OmitFiles  bool

	// StartEpoch is the creation time of the first dataset (default:
	// 2025-01-01 12:00 UTC); later entries are one minute apart.
	StartEpoch float64
	// SizeVariance adds a seeded pseudo-random 0..SizeVariance bytes to each
	// file size. Zero gives every file 1 MiB exactly.
	SizeVariance int64
	// Seed drives SizeVariance (default 42).
	Seed int64
}

const defaultEpoch = 1735732800

// DatasetName returns the fixture name of dataset d.
func DatasetName(d int) string {
	return fmt.Sprintf("/Primary%d/Processed-v1/RAW", d)
}

// BlockName returns the fixture name of block b in dataset d.
func BlockName(d, b int) string {
	return fmt.Sprintf("%s#%08x", DatasetName(d), b+1)
}

// FileName returns the fixture logical file name of file f.
func FileName(d, b, f int) string {
	return fmt.Sprintf("/store/data/Primary%d/RAW/%03d/%04d.root", d, b, f)
}

// Response builds a decoded reply with the given shape.
func Response(s Shape) *catalog.Response {
	epoch := s.StartEpoch
	if epoch == 0 {
		epoch = defaultEpoch
	}
	seed := s.Seed
	if seed == 0 {
		seed = 42
	}
	rng := rand.New(rand.NewSource(seed))
	tick := func() catalog.Epoch {
		epoch += 60
		return catalog.Epoch(epoch)
	}

	datasets := make([]catalog.Dataset, 0, s.Datasets)
	for d := 0; d < s.Datasets; d++ {
		ds := catalog.Dataset{
			Name:        DatasetName(d),
			IsOpen:      d%2 == 0,
			IsTransient: false,
			TimeCreate:  tick(),
		}
		ds.TimeUpdate = ds.TimeCreate
		if !s.OmitBlocks {
			ds.Block = make([]catalog.Block, 0, s.Blocks)
			for b := 0; b < s.Blocks; b++ {
				blk := catalog.Block{
					Name:       BlockName(d, b),
					Files:      catalog.Count(s.Files),
					IsOpen:     b == s.Blocks-1,
					TimeCreate: tick(),
				}
				blk.TimeUpdate = blk.TimeCreate
				var total int64
				if !s.OmitFiles {
					blk.File = make([]catalog.File, 0, s.Files)
				}
				for f := 0; f < s.Files; f++ {
					size := int64(1 << 20)
					if s.SizeVariance > 0 {
						size += rng.Int63n(s.SizeVariance + 1)
					}
					total += size
					if s.OmitFiles {
						continue
					}
					blk.File = append(blk.File, catalog.File{
						LFN:        FileName(d, b, f),
						Node:       "T1_CH_CERN_Buffer",
						Size:       catalog.Count(size),
						TimeCreate: tick(),
						Checksum:   fmt.Sprintf("adler32:%08x", rng.Uint32()),
					})
				}
				blk.Bytes = catalog.Count(total)
				ds.Block = append(ds.Block, blk)
			}
		}
		datasets = append(datasets, ds)
	}

	return &catalog.Response{
		DBS:              []catalog.DBS{{Name: "https://cmsweb.cern.ch/dbs/prod/global/DBSReader", Dataset: datasets}},
		RequestTimestamp: catalog.Epoch(epoch),
		Instance:         "prod",
	}
}

// JSON renders the shape as a service reply body, inside the
// {"phedex": ...} envelope.
func JSON(s Shape) []byte {
	data, err := json.Marshal(map[string]any{"phedex": Response(s)})
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal fixture: %v", err))
	}
	return data
}

// Empty returns a well-formed reply with no datasets.
func Empty() *catalog.Response {
	return &catalog.Response{DBS: []catalog.DBS{}}
}

// OneBlockTwoFiles returns the smallest interesting reply: one dataset
// holding one block holding two files.
func OneBlockTwoFiles() *catalog.Response {
	return Response(Shape{Datasets: 1, Blocks: 1, Files: 2})
}
