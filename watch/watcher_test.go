package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/dossier/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeReloader struct {
	mu      sync.Mutex
	ready   map[string]bool
	reloads map[string]int
}

func newFakeReloader(ready ...string) *fakeReloader {
	r := &fakeReloader{ready: make(map[string]bool), reloads: make(map[string]int)}
	for _, id := range ready {
		r.ready[id] = true
	}
	return r
}

func (r *fakeReloader) IsReady(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready[id]
}

func (r *fakeReloader) Reload(ctx context.Context, id string) (dataset.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloads[id]++
	return dataset.Stats{ChunkCount: 1}, nil
}

func (r *fakeReloader) count(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads[id]
}

func writeSource(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
}

func startWatcher(t *testing.T, w *SourceWatcher) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func TestNewSourceWatcher_Validation(t *testing.T) {
	_, err := NewSourceWatcher(nil, []dataset.Config{{ID: "a", SourcePath: "a.txt"}})
	assert.Equal(t, ErrReloaderRequired, err)

	_, err = NewSourceWatcher(newFakeReloader(), nil)
	assert.Equal(t, ErrNoSources, err)

	_, err = NewSourceWatcher(newFakeReloader(), []dataset.Config{{ID: "a", SourcePath: "a.txt"}}, WithDebounce(0))
	assert.Error(t, err)

	_, err = NewSourceWatcher(newFakeReloader(), []dataset.Config{{ID: "a", SourcePath: "/does/not/exist/a.txt"}})
	assert.Error(t, err)
}

func TestSourceWatcher_DebouncesReload(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "story.txt")
	writeSource(t, source, "v1")

	reloader := newFakeReloader("story")
	w, err := NewSourceWatcher(reloader, []dataset.Config{{ID: "story", SourcePath: source}}, WithDebounce(100*time.Millisecond))
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	for i := range 5 {
		writeSource(t, source, "v"+string(rune('2'+i)))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return reloader.count("story") == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, reloader.count("story"))
}

func TestSourceWatcher_IgnoresOtherFilesAndUnreadyDatasets(t *testing.T) {
	dir := t.TempDir()
	ready := filepath.Join(dir, "ready.txt")
	cold := filepath.Join(dir, "cold.txt")
	writeSource(t, ready, "ready")
	writeSource(t, cold, "cold")

	reloader := newFakeReloader("ready")
	w, err := NewSourceWatcher(reloader, []dataset.Config{
		{ID: "ready", SourcePath: ready},
		{ID: "cold", SourcePath: cold},
	}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)
	stop := startWatcher(t, w)
	defer stop()

	writeSource(t, filepath.Join(dir, "unrelated.txt"), "noise")
	writeSource(t, cold, "cold v2")
	writeSource(t, ready, "ready v2")

	require.Eventually(t, func() bool { return reloader.count("ready") == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, reloader.count("cold"))
}
