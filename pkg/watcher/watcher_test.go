package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func writeInput(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption) *Watcher {
	t.Helper()
	opts = append([]WatcherOption{
		WithDebounceDuration(10 * time.Millisecond),
		WithPollInterval(20 * time.Millisecond),
	}, opts...)
	w, err := NewWatcher(path, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func waitChange(t *testing.T, w *Watcher) Change {
	t.Helper()
	select {
	case c := <-w.Changed():
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
	return Change{}
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	d := NewDebouncer(40 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(120 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}

	d.Trigger(func() { calls.Add(1) })
	d.Cancel()
	time.Sleep(80 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("cancelled trigger ran, calls = %d", n)
	}
	if NewDebouncer(0).Duration() != DefaultDebounceDuration {
		t.Error("zero duration should use the default")
	}
}

func TestWatcherReportsChange(t *testing.T) {
	for _, poll := range []bool{false, true} {
		name := "fsnotify"
		if poll {
			name = "polling"
		}
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rows.json")
			writeInput(t, path, `[["a","A"]]`)

			var seen atomic.Int32
			w := startWatcher(t, path, WithForcePoll(poll), WithOnChange(func(Change) { seen.Add(1) }))
			if w.IsPolling() != poll {
				t.Fatalf("IsPolling = %v, want %v", w.IsPolling(), poll)
			}
			time.Sleep(50 * time.Millisecond)

			content := `[["a","A"],["b","B"]]`
			writeInput(t, path, content)
			c := waitChange(t, w)
			if c.Path != path || c.Size != int64(len(content)) || c.ModTime.IsZero() {
				t.Errorf("change = %+v", c)
			}
			if seen.Load() == 0 {
				t.Error("OnChange was not called")
			}
		})
	}
}

func TestWatcherIgnoresIdenticalRewrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	content := `[["a","A"]]`
	writeInput(t, path, content)

	var changes atomic.Int32
	startWatcher(t, path, WithForcePoll(true), WithOnChange(func(Change) { changes.Add(1) }))

	// same bytes, new mtime
	writeInput(t, path, content)
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}
	time.Sleep(200 * time.Millisecond)
	if n := changes.Load(); n != 0 {
		t.Fatalf("identical rewrite reported %d changes", n)
	}

	writeInput(t, path, `[["b","B"]]`)
	time.Sleep(200 * time.Millisecond)
	if n := changes.Load(); n != 1 {
		t.Errorf("changes after new content = %d, want 1", n)
	}
}

func TestWatcherChangedKeepsNewest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	writeInput(t, path, "v0")
	w := startWatcher(t, path, WithForcePoll(true))

	for _, content := range []string{"v1", "v22", "v333"} {
		writeInput(t, path, content)
		time.Sleep(120 * time.Millisecond)
	}
	if c := waitChange(t, w); c.Size != 4 {
		t.Errorf("expected the newest change (size 4), got %+v", c)
	}
	select {
	case c := <-w.Changed():
		t.Errorf("older change should have been dropped, got %+v", c)
	default:
	}
}

func TestWatcherForcePollEnv(t *testing.T) {
	tests := []struct {
		env, value string
		want       bool
	}{
		{"SF_FORCE_POLLING", "1", true},
		{"SF_FORCE_POLL", "yes", true},
		{"SF_FORCE_POLL", "off", false},
	}
	for _, tt := range tests {
		t.Run(tt.env+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)
			path := filepath.Join(t.TempDir(), "rows.json")
			writeInput(t, path, "[]")
			if got := startWatcher(t, path).IsPolling(); got != tt.want {
				t.Errorf("IsPolling = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatcherPollsRemoteFilesystem(t *testing.T) {
	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(string) FilesystemType { return FSTypeNFS }
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	path := filepath.Join(t.TempDir(), "rows.json")
	writeInput(t, path, "[]")
	w := startWatcher(t, path)
	if !w.IsPolling() || w.FilesystemType() != FSTypeNFS {
		t.Errorf("polling = %v on %s, want polling on nfs", w.IsPolling(), w.FilesystemType())
	}
}

func TestWatcherReportsRemoval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	writeInput(t, path, "[]")
	removed := make(chan struct{}, 1)
	startWatcher(t, path, WithForcePoll(true), WithOnError(func(err error) {
		if errors.Is(err, ErrFileRemoved) {
			select {
			case removed <- struct{}{}:
			default:
			}
		}
	}))

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	select {
	case <-removed:
	case <-time.After(2 * time.Second):
		t.Fatal("removal not reported")
	}
}

func TestEnvBool(t *testing.T) {
	for value, want := range map[string]bool{"1": true, " TRUE ": true, "on": true, "0": false, "": false, "nope": false} {
		t.Setenv("SF_TEST_BOOL", value)
		if got := envBool("SF_TEST_BOOL"); got != want {
			t.Errorf("envBool(%q) = %v, want %v", value, got, want)
		}
	}
}
