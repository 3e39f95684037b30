package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"primerpal/internal/volume"
)

func writeSheet(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("slot,volume\n"+body), 0644))
}

func startWatcher(t *testing.T, sw *SheetWatcher) (cancel func() error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx) }()
	return func() error {
		stop()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("watcher did not stop")
			return nil
		}
	}
}

func waitReady(t *testing.T, sw *SheetWatcher) {
	t.Helper()
	select {
	case <-sw.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never became ready")
	}
}

func waitMap(t *testing.T, got <-chan volume.Map) volume.Map {
	t.Helper()
	select {
	case vm := <-got:
		return vm
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for regeneration")
		return nil
	}
}

func TestSheetWatcher_RegeneratesOnChange(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "volumes.csv")
	writeSheet(t, path, "A1,10\n")

	got := make(chan volume.Map, 8)
	sw, err := NewSheetWatcher(path, func(_ context.Context, vm volume.Map) error {
		got <- vm
		return nil
	}, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	stop := startWatcher(t, sw)

	assert.Equal(t, volume.NewMap(10), waitMap(t, got), "initial generation")
	waitReady(t, sw)

	writeSheet(t, path, "A1,10\nA2,20\n")
	assert.Equal(t, volume.NewMap(10, 20), waitMap(t, got))

	require.NoError(t, stop())
	stats := sw.Stats()
	assert.GreaterOrEqual(t, stats.Generations, 2)
	assert.GreaterOrEqual(t, stats.Events, 1)
}

func TestSheetWatcher_IgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "volumes.csv")
	writeSheet(t, path, "A1,1\n")

	got := make(chan volume.Map, 8)
	sw, err := NewSheetWatcher(path, func(_ context.Context, vm volume.Map) error {
		got <- vm
		return nil
	}, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	stop := startWatcher(t, sw)
	waitMap(t, got)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.csv"), []byte("x"), 0644))
	select {
	case vm := <-got:
		t.Fatalf("unexpected regeneration: %v", vm)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, stop())
	assert.Equal(t, 0, sw.Stats().Events)
}

func TestSheetWatcher_ErrorsAreNotFatal(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "volumes.csv")
	writeSheet(t, path, "A2,1\n") // out of order

	got := make(chan volume.Map, 8)
	calls := 0
	sw, err := NewSheetWatcher(path, func(_ context.Context, vm volume.Map) error {
		calls++
		got <- vm
		if calls == 1 {
			return errors.New("handler failed")
		}
		return nil
	}, Options{Debounce: 20 * time.Millisecond})
	require.NoError(t, err)

	stop := startWatcher(t, sw)
	waitReady(t, sw)

	initial := sw.Stats()
	assert.Equal(t, 1, initial.Errors, "out of order sheet is rejected")
	assert.Equal(t, 0, initial.Generations)
	assert.Empty(t, got)

	writeSheet(t, path, "A1,5\n")
	assert.Equal(t, volume.NewMap(5), waitMap(t, got))

	writeSheet(t, path, "A1,6\n")
	assert.Equal(t, volume.NewMap(6), waitMap(t, got))

	require.NoError(t, stop())
	stats := sw.Stats()
	assert.GreaterOrEqual(t, stats.Errors, 2)
	assert.NotEmpty(t, stats.LastError)
}

func TestSheetWatcher_MissingDirectory(t *testing.T) {
	defer goleak.VerifyNone(t)

	sw, err := NewSheetWatcher(filepath.Join(t.TempDir(), "gone", "v.csv"),
		func(context.Context, volume.Map) error { return nil }, Options{})
	require.NoError(t, err)
	assert.Error(t, sw.Run(context.Background()))
}

func TestNewSheetWatcher_RequiresHandler(t *testing.T) {
	_, err := NewSheetWatcher("v.csv", nil, Options{})
	assert.Error(t, err)
}

func TestNewSheetWatcher_DefaultDebounce(t *testing.T) {
	sw, err := NewSheetWatcher("v.csv", func(context.Context, volume.Map) error { return nil }, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, sw.debounce)
	assert.True(t, filepath.IsAbs(sw.Path()))
}
