package embedding

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// Errors returned when loading a saved table.
var (
	ErrEmbeddingNotFound  = errors.New("embedding file not found")
	ErrUnsupportedVersion = errors.New("unsupported embedding file version")
)

const (
	// FileName is the name of the saved embedding inside a cache directory.
	FileName = "embedding.gob"

	// CurrentFileVersion is the format version for compatibility checking.
	// Increment this when making breaking changes to the file format.
	CurrentFileVersion = 1
)

// savedTable is the on-disk form of a Table.
type savedTable struct {
	Version int
	Meta    Metadata
	NodeIDs []string
	Rows    int
	Cols    int
	Data    []float64
}

// Save persists the table to path using GOB encoding.
func (t *Table) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	r, c := t.Vectors.Dims()
	saved := savedTable{
		Version: CurrentFileVersion,
		Meta:    t.Meta,
		NodeIDs: t.NodeIDs,
		Rows:    r,
		Cols:    c,
		Data:    mat.DenseCopyOf(t.Vectors).RawMatrix().Data,
	}

	// Write to a temp file first, then rename for atomicity
	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if err := gob.NewEncoder(f).Encode(saved); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("encoding embedding: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Load reads a table saved with Save.
// Returns ErrUnsupportedVersion if the file was written with an incompatible format.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrEmbeddingNotFound
		}
		return nil, fmt.Errorf("opening embedding file: %w", err)
	}
	defer f.Close()

	var saved savedTable
	if err := gob.NewDecoder(f).Decode(&saved); err != nil {
		return nil, fmt.Errorf("decoding embedding: %w", err)
	}

	if saved.Version != CurrentFileVersion {
		return nil, fmt.Errorf("%w: got %d, want %d (refit with 'tigerlily fit')",
			ErrUnsupportedVersion, saved.Version, CurrentFileVersion)
	}
	if saved.Rows*saved.Cols != len(saved.Data) || saved.Rows == 0 || saved.Cols == 0 {
		return nil, fmt.Errorf("%w: %d×%d with %d values", ErrTableShape, saved.Rows, saved.Cols, len(saved.Data))
	}

	t, err := NewTable(saved.NodeIDs, mat.NewDense(saved.Rows, saved.Cols, saved.Data))
	if err != nil {
		return nil, err
	}
	t.Meta = saved.Meta
	return t, nil
}

// Exists reports whether a saved table exists at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
