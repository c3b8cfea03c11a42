// Package export writes embeddings and edge features as CSV, JSONL or Parquet.
package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/tigerlily/tigerlily/internal/embedding"
)

// ErrUnsupportedFormat is returned for an unknown output extension.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Format is an output file format.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSONL   Format = "jsonl"
	FormatParquet Format = "parquet"
)

// FeatureColumnPrefix names feature columns f_0, f_1, ....
const FeatureColumnPrefix = "f_"

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("%w: %q (use .csv, .jsonl or .parquet)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// WriteEmbeddingFile writes t to path in the format implied by its extension.
func WriteEmbeddingFile(path string, t *embedding.Table) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if format == FormatParquet {
		return WriteEmbeddingParquet(path, t)
	}

	return writeFile(path, func(f *os.File) error {
		if format == FormatJSONL {
			return WriteEmbeddingJSONL(f, t)
		}
		return WriteEmbeddingCSV(f, t)
	})
}

// WriteFeaturesFile writes features to path in the format implied by its
// extension.
func WriteFeaturesFile(path string, features mat.Matrix) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if format == FormatParquet {
		return WriteFeaturesParquet(path, features)
	}

	return writeFile(path, func(f *os.File) error {
		if format == FormatJSONL {
			return WriteFeaturesJSONL(f, features)
		}
		return WriteFeaturesCSV(f, features)
	})
}

func writeFile(path string, fn func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
