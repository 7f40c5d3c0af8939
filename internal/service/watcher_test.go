package service_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"pagecraft/internal/service"
)

func TestWatcher_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	var runs atomic.Int32
	w := service.NewWatcher(path, func(context.Context) error {
		runs.Add(1)
		return nil
	}, zaptest.NewLogger(t))
	w.SetDebounce(30 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The watch is registered asynchronously; keep writing until a run lands.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(`{"version":1}`), 0o644)
		return runs.Load() > 0
	}, 3*time.Second, 100*time.Millisecond)
	time.Sleep(150 * time.Millisecond)

	// Unrelated files in the same directory are ignored.
	before := runs.Load()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, before, runs.Load())

	// A burst of writes collapses into one run.
	for range 5 {
		require.NoError(t, os.WriteFile(path, []byte(`{"version":1}`), 0o644))
	}
	require.Eventually(t, func() bool { return runs.Load() == before+1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before+1, runs.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w := service.NewWatcher(filepath.Join(t.TempDir(), "nope", "site.json"), func(context.Context) error { return nil }, nil)
	assert.Error(t, w.Run(context.Background()))
}
