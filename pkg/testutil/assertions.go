package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

// AssertJSONEqual compares two values after JSON round-tripping.
// Useful for comparing structs that may have different Go representations
// but equivalent JSON forms.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// Service is a fake data service. Each request is answered with the body
// registered for its "dataset" or "block" query value, or Default.
type Service struct {
	*httptest.Server

	mu       sync.Mutex
	bodies   map[string][]byte
	requests []string
	Default  []byte
}

// NewService starts a fake data service and registers its shutdown with t.
func NewService(t *testing.T) *Service {
	t.Helper()
	s := &Service{bodies: make(map[string][]byte), Default: JSON(Shape{})}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Handle registers body as the reply for requests scoped to name.
func (s *Service) Handle(name string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[name] = body
}

// Requests returns the raw query strings received so far.
func (s *Service) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Service) serve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	name := q.Get("dataset")
	if name == "" {
		name = q.Get("block")
	}

	s.mu.Lock()
	s.requests = append(s.requests, r.URL.RawQuery)
	body, ok := s.bodies[name]
	if !ok {
		body = s.Default
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
