package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// StateFile is a one-line view-state file shared with other processes.
// Writes made through Write are not echoed back on Updates; any other change
// to the file's content is.
type StateFile struct {
	w       *Watcher
	mu      sync.Mutex
	last    string
	updates chan string
	errs    chan error
}

// NewStateFile prepares a state file at path. Watching starts with Start.
func NewStateFile(path string, opts ...Option) (*StateFile, error) {
	s := &StateFile{
		updates: make(chan string, 1),
		errs:    make(chan error, 1),
	}
	opts = append(opts, WithOnChange(s.reload), WithOnError(s.fail))
	w, err := NewWatcher(path, opts...)
	if err != nil {
		return nil, err
	}
	s.w = w
	return s, nil
}

// Path returns the absolute path of the file.
func (s *StateFile) Path() string {
	return s.w.Path()
}

// Start reads the current content, which becomes the baseline, and begins
// watching.
func (s *StateFile) Start() (string, error) {
	content, err := s.Read()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.last = content
	s.mu.Unlock()
	if err := s.w.Start(); err != nil {
		return "", err
	}
	return content, nil
}

// Stop stops watching.
func (s *StateFile) Stop() {
	s.w.Stop()
}

// Updates delivers new content written by someone else. Only the latest
// pending value is kept.
func (s *StateFile) Updates() <-chan string {
	return s.updates
}

// Errors delivers watch errors such as ErrFileRemoved.
func (s *StateFile) Errors() <-chan error {
	return s.errs
}

// Read returns the trimmed content, or "" if the file does not exist.
func (s *StateFile) Read() (string, error) {
	data, err := os.ReadFile(s.w.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading state file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Write replaces the content atomically.
func (s *StateFile) Write(state string) error {
	state = strings.TrimSpace(state)
	s.mu.Lock()
	defer s.mu.Unlock()
	if state == s.last {
		return nil
	}

	path := s.w.Path()
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	_, werr := tmp.WriteString(state + "\n")
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmp.Name(), path)
	}
	if werr != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing state file: %w", werr)
	}
	s.last = state
	return nil
}

// reload holds mu across the read so a concurrent Write cannot land between
// reading the file and comparing it with last.
func (s *StateFile) reload() {
	s.mu.Lock()
	content, err := s.Read()
	if err != nil {
		s.mu.Unlock()
		s.fail(err)
		return
	}
	if content == s.last {
		s.mu.Unlock()
		return
	}
	s.last = content
	s.mu.Unlock()

	// Replace any undelivered value with the newer one.
	select {
	case <-s.updates:
	default:
	}
	select {
	case s.updates <- content:
	default:
	}
}

func (s *StateFile) fail(err error) {
	select {
	case s.errs <- err:
	default:
	}
}
