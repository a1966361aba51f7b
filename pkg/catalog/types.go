// Package catalog models the payload of the data service "data" API and
// provides an HTTP client for it.
//
// The payload is hierarchical and variably shaped: a dataset may or may not
// carry a block list, and a block may or may not carry a file list, depending
// on whether a dataset or a block was requested. Absent lists decode to nil
// slices; present-but-empty lists decode to empty, non-nil slices.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMissingCatalog is returned by Validate when the top-level "dbs" field is
// absent from a response.
var ErrMissingCatalog = errors.New(`response has no "dbs" field`)

// Response is the body of a "data" API reply, with the "phedex" envelope
// already removed.
type Response struct {
	DBS              []DBS  `json:"dbs"`
	RequestTimestamp Epoch  `json:"request_timestamp,omitempty"`
	RequestURL       string `json:"request_url,omitempty"`
	Instance         string `json:"instance,omitempty"`
	CallTime         Epoch  `json:"call_time,omitempty"`
}

// Validate checks the response honours the catalog contract: the top-level
// "dbs" list must be present (it may be empty).
func (r *Response) Validate() error {
	if r == nil || r.DBS == nil {
		return ErrMissingCatalog
	}
	return nil
}

// Datasets returns the datasets of every DBS entry, in payload order.
func (r *Response) Datasets() []Dataset {
	if r == nil {
		return nil
	}
	var out []Dataset
	for _, d := range r.DBS {
		out = append(out, d.Dataset...)
	}
	return out
}

// DBS is one catalog database section of the reply.
type DBS struct {
	Name       string    `json:"name"`
	TimeCreate Epoch     `json:"time_create,omitempty"`
	Dataset    []Dataset `json:"dataset"`
}

// Dataset is a dataset entry. Block is nil when the service did not send a
// block list.
type Dataset struct {
	Name        string  `json:"name"`
	IsOpen      Flag    `json:"is_open"`
	IsTransient Flag    `json:"is_transient"`
	TimeCreate  Epoch   `json:"time_create"`
	TimeUpdate  Epoch   `json:"time_update"`
	Block       []Block `json:"block"`
}

// Block is a block entry. File is nil when the service did not send a file
// list.
type Block struct {
	Name       string `json:"name"`
	Files      Count  `json:"files"`
	Bytes      Count  `json:"bytes"`
	IsOpen     Flag   `json:"is_open"`
	TimeCreate Epoch  `json:"time_create"`
	TimeUpdate Epoch  `json:"time_update"`
	File       []File `json:"file"`
}

// File is a file replica entry.
type File struct {
	LFN        string `json:"lfn"`
	Node       string `json:"node"`
	Size       Count  `json:"size"`
	TimeCreate Epoch  `json:"time_create"`
	Checksum   string `json:"checksum"`
}

// Flag is a yes/no attribute. The service sends "y"/"n"; booleans and 0/1
// are accepted too.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.ToLower(string(bytes.Trim(data, `"`)))
	switch s {
	case "y", "yes", "true", "1":
		*f = true
	case "n", "no", "false", "0", "", "null":
		*f = false
	default:
		return fmt.Errorf("invalid flag %s", data)
	}
	return nil
}

// MarshalJSON implements json.Marshaler using the service's "y"/"n" form.
func (f Flag) MarshalJSON() ([]byte, error) {
	if f {
		return []byte(`"y"`), nil
	}
	return []byte(`"n"`), nil
}

func (f Flag) String() string {
	if f {
		return "y"
	}
	return "n"
}

// Epoch is a Unix timestamp in (possibly fractional) seconds. Numbers and
// numeric strings are accepted.
type Epoch float64

// UnmarshalJSON implements json.Unmarshaler.
func (e *Epoch) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		*e = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid epoch %s: %w", data, err)
	}
	*e = Epoch(v)
	return nil
}

// Time converts e to a time.Time. The zero epoch maps to the zero Time.
func (e Epoch) Time() time.Time {
	if e == 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(float64(e))
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// Count is a non-negative integer quantity (files, bytes). Numbers and
// numeric strings are accepted.
type Count int64

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*c = Count(v)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid count %s: %w", data, err)
	}
	*c = Count(v)
	return nil
}
