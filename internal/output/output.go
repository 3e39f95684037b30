// Package output writes generated protocol scripts to disk.
package output

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"primerpal/internal/logging"
	"primerpal/internal/opentrons"
	"primerpal/internal/protocol"
	"primerpal/internal/store"
	"primerpal/internal/volume"
)

const (
	DefaultFilename  = "oligo_dilution.py"
	DefaultExtension = ".py"

	// SlowGenerate is the duration above which Generate logs a warning.
	SlowGenerate = 2 * time.Second
)

// ResolvePath turns a user supplied file name into the artifact path.
// A blank name selects DefaultFilename, a name without an extension gets
// DefaultExtension, and relative names are placed under dir.
func ResolvePath(dir, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultFilename
	}
	if filepath.Ext(name) == "" {
		name += DefaultExtension
	}
	if filepath.IsAbs(name) || dir == "" {
		return filepath.Clean(name)
	}
	return filepath.Join(dir, name)
}

// WriteAtomic writes data to path via a temp file in the same directory.
// An existing file is replaced; a failed write leaves no partial artifact.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Recorder stores a history entry for each written script.
type Recorder interface {
	Record(ctx context.Context, run store.Run) (store.Run, error)
}

// Generator builds, renders and writes protocol scripts.
type Generator struct {
	Style    opentrons.Style
	Options  []protocol.Option
	Recorder Recorder // optional
}

// Result describes one written script.
type Result struct {
	Path       string
	Checksum   string // sha256 of the script
	Bytes      int
	TotalWater float64 // µL
	Tips       protocol.TipUsage
	RecordID   string // empty when no history was recorded
}

// Preview builds and renders vm without writing anything.
func (g *Generator) Preview(vm volume.Map) (*protocol.Protocol, string, error) {
	p, err := protocol.Build(vm, g.Options...)
	if err != nil {
		return nil, "", err
	}
	script, err := opentrons.RenderString(p, g.Style)
	if err != nil {
		return nil, "", err
	}
	return p, script, nil
}

// Generate writes the script for vm to path. A history failure is logged
// and does not fail the write.
func (g *Generator) Generate(ctx context.Context, vm volume.Map, path string) (Result, error) {
	timer := logging.StartTimer(logging.CategoryOutput, "generate")
	defer timer.StopWithThreshold(SlowGenerate)

	p, script, err := g.Preview(vm)
	if err != nil {
		return Result{}, err
	}

	data := []byte(script)
	if err := WriteAtomic(path, data); err != nil {
		return Result{}, err
	}

	sum := sha256.Sum256(data)
	res := Result{
		Path:       path,
		Checksum:   hex.EncodeToString(sum[:]),
		Bytes:      len(data),
		TotalWater: p.Volumes.Total(),
		Tips:       p.Tips,
	}
	log := logging.Get(logging.CategoryOutput).With("path", path)
	log.Info("wrote %d bytes, %d samples", res.Bytes, p.Volumes.Len())

	if g.Recorder != nil {
		style := g.Style
		if style == "" {
			style = opentrons.StyleCompact
		}
		run, err := g.Recorder.Record(ctx, store.Run{
			Path:        path,
			Style:       string(style),
			APILevel:    p.APILevel,
			SampleCount: p.Volumes.Len(),
			TotalWater:  res.TotalWater,
			Volumes:     p.Volumes,
			Checksum:    res.Checksum,
			Bytes:       res.Bytes,
		})
		if err != nil {
			log.Warn("failed to record history: %v", err)
		} else {
			res.RecordID = run.ID
		}
	}
	return res, nil
}
