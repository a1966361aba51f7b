package catalog

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// envelope is the outer wrapper the data service puts around every reply.
type envelope struct {
	Phedex json.RawMessage `json:"phedex"`
}

// Decode parses a reply body. Bodies wrapped in the {"phedex": {...}}
// envelope are unwrapped; bare objects are decoded as-is. Decode does not
// call Validate: a body without "dbs" decodes to a Response with nil DBS.
func Decode(r io.Reader) (*Response, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode for an in-memory body.
func DecodeBytes(data []byte) (*Response, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	body := data
	if len(env.Phedex) > 0 && string(env.Phedex) != "null" {
		body = env.Phedex
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if resp.DBS == nil && hasKey(body, "dbs") {
		resp.DBS = []DBS{}
	}
	return &resp, nil
}

// UnmarshalJSON keeps a present-but-empty block list distinguishable from an
// absent one.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	type plain Dataset
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Block == nil && hasKey(data, "block") {
		p.Block = []Block{}
	}
	*d = Dataset(p)
	return nil
}

// UnmarshalJSON keeps a present-but-empty file list distinguishable from an
// absent one.
func (b *Block) UnmarshalJSON(data []byte) error {
	type plain Block
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.File == nil && hasKey(data, "file") {
		p.File = []File{}
	}
	*b = Block(p)
	return nil
}

// hasKey reports whether the JSON object in data has a non-null member key.
func hasKey(data []byte, key string) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	raw, ok := probe[key]
	return ok && string(raw) != "null"
}
