package watcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var callCount atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() {
			callCount.Add(1)
		})
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	if count := callCount.Load(); count != 1 {
		t.Errorf("expected 1 callback invocation, got %d", count)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() {
		called.Store(true)
	})
	d.Cancel()

	time.Sleep(100 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not have been invoked after cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	d := NewDebouncer(0)
	if d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	for _, poll := range []bool{false, true} {
		name := "fsnotify"
		if poll {
			name = "polling"
		}
		t.Run(name, func(t *testing.T) {
			tmpFile := filepath.Join(t.TempDir(), "view.state")
			if err := os.WriteFile(tmpFile, []byte("initial"), 0o644); err != nil {
				t.Fatal(err)
			}

			var changed atomic.Bool
			w, err := NewWatcher(tmpFile,
				WithDebounceDuration(30*time.Millisecond),
				WithPollInterval(50*time.Millisecond),
				WithForcePoll(poll),
				WithOnChange(func() { changed.Store(true) }),
			)
			if err != nil {
				t.Fatal(err)
			}
			if err := w.Start(); err != nil {
				t.Fatal(err)
			}
			defer w.Stop()

			if poll && !w.IsPolling() {
				t.Fatal("expected polling mode")
			}

			time.Sleep(60 * time.Millisecond)
			if err := os.WriteFile(tmpFile, []byte("modified content"), 0o644); err != nil {
				t.Fatal(err)
			}

			if !waitFor(t, 2*time.Second, changed.Load) {
				t.Error("expected change to be detected")
			}
			select {
			case <-w.Changed():
			case <-time.After(time.Second):
				t.Error("expected a signal on Changed()")
			}
		})
	}
}

func TestWatcher_RemoteFilesystem_UsesPolling(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "view.state")

	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(string) FilesystemType { return FSTypeNFS }
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	w, err := NewWatcher(tmpFile, WithPollInterval(25*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Fatal("expected watcher to use polling on remote filesystem")
	}
	if got := w.FilesystemType(); got != FSTypeNFS {
		t.Fatalf("expected filesystem type %v, got %v", FSTypeNFS, got)
	}
}

func TestWatcher_EnvForcePoll(t *testing.T) {
	t.Setenv("DBW_FORCE_POLL", "yes")
	w, err := NewWatcher(filepath.Join(t.TempDir(), "view.state"))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if !w.IsPolling() {
		t.Error("DBW_FORCE_POLL should force polling")
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "view.state")
	if err := os.WriteFile(tmpFile, []byte("initial"), 0o644); err != nil {
		t.Fatal(err)
	}

	var (
		errMu    sync.Mutex
		gotError error
	)
	w, err := NewWatcher(tmpFile,
		WithPollInterval(50*time.Millisecond),
		WithForcePoll(true),
		WithOnError(func(err error) {
			errMu.Lock()
			gotError = err
			errMu.Unlock()
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(tmpFile); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 2*time.Second, func() bool {
		errMu.Lock()
		defer errMu.Unlock()
		return errors.Is(gotError, ErrFileRemoved)
	})
	if !ok {
		t.Errorf("expected ErrFileRemoved, got %v", gotError)
	}
}

func TestWatcher_StartStop(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "view.state"))
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("should not be started before Start")
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	w.Stop()
	w.Stop()
	if w.IsStarted() {
		t.Error("should be stopped")
	}
	if err := w.Start(); err != nil {
		t.Errorf("restart failed: %v", err)
	}
	w.Stop()
}

func TestFilesystemType_String(t *testing.T) {
	tests := map[FilesystemType]string{
		FSTypeUnknown: "unknown",
		FSTypeLocal:   "local",
		FSTypeNFS:     "nfs",
		FSTypeSMB:     "smb",
		FSTypeFUSE:    "fuse",
	}
	for typ, want := range tests {
		if typ.String() != want {
			t.Errorf("%d.String() = %q, want %q", typ, typ.String(), want)
		}
	}
	if DetectFilesystemType("") != FSTypeUnknown {
		t.Error("empty path should be unknown")
	}
}

func TestEnvBool(t *testing.T) {
	for in, want := range map[string]bool{"1": true, "TRUE": true, " on ": true, "0": false, "nope": false, "": false} {
		t.Setenv("DBW_TEST_BOOL", in)
		if got := envBool("DBW_TEST_BOOL"); got != want {
			t.Errorf("envBool(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestStateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.state")
	if err := os.WriteFile(path, []byte("dataset=/A block_create_since=24\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sf, err := NewStateFile(path, WithForcePoll(true), WithPollInterval(30*time.Millisecond), WithDebounceDuration(20*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	initial, err := sf.Start()
	if err != nil {
		t.Fatal(err)
	}
	defer sf.Stop()
	if initial != "dataset=/A block_create_since=24" {
		t.Errorf("initial = %q", initial)
	}

	// Our own write is not echoed.
	if err := sf.Write("dataset=/A block_create_since=48"); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-sf.Updates():
		t.Errorf("own write echoed as %q", got)
	case <-time.After(200 * time.Millisecond):
	}

	// Someone else's write is delivered.
	time.Sleep(20 * time.Millisecond)
	if err := os.WriteFile(path, []byte("block=/B#1 dataset_create_since=9999"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-sf.Updates():
		if got != "block=/B#1 dataset_create_since=9999" {
			t.Errorf("update = %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected an update")
	}

	if got, _ := sf.Read(); got != "block=/B#1 dataset_create_since=9999" {
		t.Errorf("Read = %q", got)
	}
}

func TestStateFileReloadDuringWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "view.state")
	sf, err := NewStateFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sf.Read(); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if err := sf.Write(fmt.Sprintf("block_create_since=%d", i+1)); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		sf.reload()
		select {
		case got := <-sf.Updates():
			t.Errorf("own write reported as external update %q", got)
		default:
		}
	}
}

func TestStateFileMissing(t *testing.T) {
	sf, err := NewStateFile(filepath.Join(t.TempDir(), "absent.state"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := sf.Read()
	if err != nil || got != "" {
		t.Errorf("Read of missing file = %q, %v", got, err)
	}
	if err := sf.Write("dataset=/A"); err != nil {
		t.Fatal(err)
	}
	if got, _ := sf.Read(); got != "dataset=/A" {
		t.Errorf("Read after Write = %q", got)
	}
}
