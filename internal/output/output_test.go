package output

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"primerpal/internal/opentrons"
	"primerpal/internal/protocol"
	"primerpal/internal/store"
	"primerpal/internal/volume"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		dir, name, want string
	}{
		{"/out", "", "/out/oligo_dilution.py"},
		{"/out", "   ", "/out/oligo_dilution.py"},
		{"/out", "plate3", "/out/plate3.py"},
		{"/out", "plate3.txt", "/out/plate3.txt"},
		{"/out", "/abs/run.py", "/abs/run.py"},
		{"", "run", "run.py"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolvePath(tt.dir, tt.name), "ResolvePath(%q, %q)", tt.dir, tt.name)
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.py")

	require.NoError(t, WriteAtomic(path, []byte("one")))
	require.NoError(t, WriteAtomic(path, []byte("two")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files left behind")
}

func TestWriteAtomic_MissingDir(t *testing.T) {
	err := WriteAtomic(filepath.Join(t.TempDir(), "nope", "a.py"), []byte("x"))
	assert.Error(t, err)
}

type fakeRecorder struct {
	runs []store.Run
	err  error
}

func (f *fakeRecorder) Record(_ context.Context, run store.Run) (store.Run, error) {
	if f.err != nil {
		return run, f.err
	}
	run.ID = "run-1"
	f.runs = append(f.runs, run)
	return run, nil
}

func TestGenerator_Generate(t *testing.T) {
	rec := &fakeRecorder{}
	g := &Generator{Recorder: rec}
	path := filepath.Join(t.TempDir(), DefaultFilename)

	res, err := g.Generate(context.Background(), volume.NewMap(10, 20), path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	p, err := protocol.Build(volume.NewMap(10, 20))
	require.NoError(t, err)
	want, err := opentrons.RenderString(p, opentrons.StyleCompact)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))

	assert.Equal(t, path, res.Path)
	assert.Equal(t, len(data), res.Bytes)
	assert.Len(t, res.Checksum, 64)
	assert.Equal(t, 120.0, res.TotalWater)
	assert.Equal(t, protocol.TipUsage{protocol.LargePipette: 2, protocol.SmallPipette: 2}, res.Tips)
	assert.Equal(t, "run-1", res.RecordID)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, "compact", rec.runs[0].Style)
	assert.Equal(t, 2, rec.runs[0].SampleCount)
	assert.Equal(t, res.Checksum, rec.runs[0].Checksum)
}

func TestGenerator_HistoryFailureIsNotFatal(t *testing.T) {
	g := &Generator{Recorder: &fakeRecorder{err: errors.New("disk full")}}
	path := filepath.Join(t.TempDir(), "x.py")

	res, err := g.Generate(context.Background(), volume.NewMap(1), path)
	require.NoError(t, err)
	assert.Empty(t, res.RecordID)
	assert.FileExists(t, path)
}

func TestGenerator_InvalidMapWritesNothing(t *testing.T) {
	g := &Generator{}
	path := filepath.Join(t.TempDir(), "x.py")

	_, err := g.Generate(context.Background(), nil, path)
	assert.ErrorIs(t, err, volume.ErrInvalidMap)
	assert.NoFileExists(t, path)
}

func TestGenerator_WithHistoryStore(t *testing.T) {
	hs, err := store.NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer hs.Close()

	g := &Generator{Style: opentrons.StyleExpanded, Recorder: hs}
	res, err := g.Generate(context.Background(), volume.NewMap(50), filepath.Join(t.TempDir(), "y.py"))
	require.NoError(t, err)

	run, err := hs.Get(context.Background(), res.RecordID)
	require.NoError(t, err)
	assert.Equal(t, "expanded", run.Style)
	assert.Equal(t, 95.0, run.TotalWater)
}

func TestGenerator_Preview(t *testing.T) {
	g := &Generator{Options: []protocol.Option{protocol.WithAPILevel("2.20")}}
	p, script, err := g.Preview(volume.NewMap(5))
	require.NoError(t, err)
	assert.Equal(t, "2.20", p.APILevel)
	assert.Contains(t, script, `"apiLevel": "2.20"`)
}
