package catalog

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vanderheijden86/databrowser/pkg/retry"
)

const sampleReply = `{"phedex":{
  "request_timestamp": 1700000000.5,
  "instance": "prod",
  "dbs": [{
    "name": "https://cmsweb.cern.ch/dbs/prod/global/DBSReader",
    "dataset": [{
      "name": "/A/B/C",
      "is_open": "y",
      "is_transient": "n",
      "time_create": 1600000000,
      "time_update": "1600003600.25",
      "block": [{
        "name": "/A/B/C#1",
        "files": "2",
        "bytes": 2048,
        "is_open": "n",
        "time_create": 1600000100,
        "time_update": null,
        "file": [
          {"lfn": "/store/a.root", "node": "T1_CH_CERN", "size": 1024, "time_create": 1600000200, "checksum": "adler32:1"},
          {"lfn": "/store/b.root", "node": "T1_CH_CERN", "size": "1024", "time_create": 1600000300, "checksum": "adler32:2"}
        ]
      }, {
        "name": "/A/B/C#2",
        "files": 0,
        "bytes": 0,
        "is_open": "y",
        "time_create": 1600000400,
        "time_update": 1600000400,
        "file": []
      }]
    }, {
      "name": "/X/Y/Z",
      "is_open": "n",
      "is_transient": "y",
      "time_create": 1600000000,
      "time_update": 1600000000
    }]
  }]
}}`

func TestDecodeEnvelope(t *testing.T) {
	resp, err := DecodeBytes([]byte(sampleReply))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := resp.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if resp.Instance != "prod" {
		t.Errorf("expected instance prod, got %q", resp.Instance)
	}

	ds := resp.Datasets()
	if len(ds) != 2 {
		t.Fatalf("expected 2 datasets, got %d", len(ds))
	}
	d := ds[0]
	if !bool(d.IsOpen) || bool(d.IsTransient) {
		t.Errorf("unexpected flags: open=%v transient=%v", d.IsOpen, d.IsTransient)
	}
	if got := d.TimeUpdate.Time(); !got.Equal(time.Unix(1600003600, 250000000).UTC()) {
		t.Errorf("unexpected time_update %v", got)
	}
	if len(d.Block) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(d.Block))
	}
	b := d.Block[0]
	if b.Files != 2 || b.Bytes != 2048 {
		t.Errorf("unexpected block counts files=%d bytes=%d", b.Files, b.Bytes)
	}
	if !b.TimeUpdate.Time().IsZero() {
		t.Errorf("null time_update should be zero time")
	}
	if len(b.File) != 2 || b.File[1].Size != 1024 {
		t.Errorf("unexpected files: %+v", b.File)
	}

	if d.Block[1].File == nil {
		t.Error("present-but-empty file list should decode to a non-nil slice")
	}
	if ds[1].Block != nil {
		t.Error("absent block list should decode to nil")
	}
}

func TestDecodeBareObject(t *testing.T) {
	resp, err := DecodeBytes([]byte(`{"dbs": []}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := resp.Validate(); err != nil {
		t.Errorf("empty dbs list should validate, got %v", err)
	}
	if len(resp.Datasets()) != 0 {
		t.Errorf("expected no datasets")
	}
}

func TestValidateMissingDBS(t *testing.T) {
	for _, body := range []string{`{"phedex":{"instance":"prod"}}`, `{}`, `{"dbs": null}`} {
		resp, err := DecodeBytes([]byte(body))
		if err != nil {
			t.Fatalf("decode %s: %v", body, err)
		}
		if err := resp.Validate(); !errors.Is(err, ErrMissingCatalog) {
			t.Errorf("%s: expected ErrMissingCatalog, got %v", body, err)
		}
	}

	var nilResp *Response
	if err := nilResp.Validate(); !errors.Is(err, ErrMissingCatalog) {
		t.Errorf("nil response: expected ErrMissingCatalog, got %v", err)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	if _, err := DecodeBytes([]byte(`{"phedex":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
	if _, err := DecodeBytes([]byte(`{"dbs":[{"dataset":[{"is_open":"maybe"}]}]}`)); err == nil {
		t.Error("expected error for invalid flag")
	}
}

func TestFlagMarshal(t *testing.T) {
	b, _ := Flag(true).MarshalJSON()
	if string(b) != `"y"` {
		t.Errorf("unexpected marshal %s", b)
	}
	if Flag(false).String() != "n" {
		t.Errorf("unexpected String()")
	}
}

func testConfig(base string) Config {
	return Config{
		BaseURL:  base,
		Instance: "prod",
		Retry:    retry.Config{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1},
	}
}

func TestClientURL(t *testing.T) {
	c := New(Config{BaseURL: "https://example.org/phedex/datasvc/", Instance: "dev"})
	params := url.Values{}
	params.Set("block", "/A/B/C#1")
	got := c.URL("data", params)
	want := "https://example.org/phedex/datasvc/json/dev/data?block=%2FA%2FB%2FC%231"
	if got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestClientFetch(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/json/prod/data" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleReply))
	}))
	defer srv.Close()

	c := New(testConfig(srv.URL))
	params := url.Values{}
	params.Set("dataset", "/A/B/C")
	params.Set("block_create_since", "913600")

	resp, err := c.Fetch(context.Background(), "data", params)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(resp.Datasets()) != 2 {
		t.Errorf("expected 2 datasets, got %d", len(resp.Datasets()))
	}
	if gotQuery.Get("dataset") != "/A/B/C" || gotQuery.Get("block_create_since") != "913600" {
		t.Errorf("unexpected query sent: %v", gotQuery)
	}
}

func TestClientFetchGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(sampleReply))
		_ = gz.Close()
	}))
	defer srv.Close()

	resp, err := New(testConfig(srv.URL)).Fetch(context.Background(), "data", nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(resp.Datasets()) != 2 {
		t.Errorf("expected 2 datasets, got %d", len(resp.Datasets()))
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"phedex":{"dbs":[]}}`))
	}))
	defer srv.Close()

	resp, err := New(testConfig(srv.URL)).Fetch(context.Background(), "data", nil)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
	if err := resp.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown argument", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL)).Fetch(context.Background(), "data", nil)
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected *FetchError, got %T %v", err, err)
	}
	if ferr.Status != http.StatusBadRequest || ferr.Phase != "status" {
		t.Errorf("unexpected fetch error: %+v", ferr)
	}
	if !strings.Contains(ferr.Error(), "unknown argument") {
		t.Errorf("expected body snippet in error, got %q", ferr.Error())
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestClientDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := New(testConfig(srv.URL)).Fetch(context.Background(), "data", nil)
	var ferr *FetchError
	if !errors.As(err, &ferr) || ferr.Phase != "decode" {
		t.Errorf("expected decode FetchError, got %v", err)
	}
}
