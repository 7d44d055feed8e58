package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/bakinscan/internal/model"
)

// ArtifactWriter persists dataset artifacts under a target directory.
//
// Design decision: Every artifact is written as a complete temp file in
// the target directory, synced, then renamed into place because:
// 1. A crash mid-write can never leave a truncated artifact behind
// 2. Rename within one directory is atomic on POSIX filesystems
// 3. Readers watching the directory only ever observe complete files
type ArtifactWriter struct {
	// dir is the target directory. It is created on first write.
	dir string
}

// NewArtifactWriter creates an ArtifactWriter targeting dir.
func NewArtifactWriter(dir string) *ArtifactWriter {
	return &ArtifactWriter{dir: dir}
}

// Dir returns the target directory.
func (w *ArtifactWriter) Dir() string {
	return w.dir
}

// WriteDataset writes the primary dataset artifact and returns its path.
// The file name carries the run start timestamp, so re-finalizing the
// same run rewrites the same path with identical bytes.
func (w *ArtifactWriter) WriteDataset(ds *model.Dataset, startedAt time.Time) (string, error) {
	data, err := encodeArtifact(ds)
	if err != nil {
		return "", fmt.Errorf("failed to encode dataset: %w", err)
	}

	path := filepath.Join(w.dir, model.DatasetFileName(startedAt))
	if err := writeFileAtomic(w.dir, path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteClassList writes the class list artifact and returns its path.
func (w *ArtifactWriter) WriteClassList(cl *model.ClassList) (string, error) {
	data, err := encodeArtifact(cl)
	if err != nil {
		return "", fmt.Errorf("failed to encode class list: %w", err)
	}

	path := filepath.Join(w.dir, model.ClassListFileName)
	if err := writeFileAtomic(w.dir, path, data); err != nil {
		return "", err
	}
	return path, nil
}

// ReadDataset loads a dataset artifact from disk.
// It rejects files without the dataset metadata block so the render
// command fails early on arbitrary JSON.
func ReadDataset(path string) (*model.Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var ds model.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset %s: %w", path, err)
	}
	if ds.Metadata.Version == "" {
		return nil, fmt.Errorf("file %s is not a dataset artifact (missing metadata.version)", path)
	}
	return &ds, nil
}

// writeFileAtomic writes data to path via a temp file in dir.
// path must point inside dir so the final rename never crosses a
// filesystem boundary.
func writeFileAtomic(dir, path string, data []byte) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Remove the temp file on any failure before the rename.
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close artifact: %w", err)
	}

	// CreateTemp opens files 0600; artifacts are meant to be shared.
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("failed to set artifact permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	tmpPath = ""

	return nil
}

// encodeArtifact marshals v as 2-space indented JSON with HTML escaping
// disabled, so C# generics like List<T> stay readable in the output.
func encodeArtifact(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
