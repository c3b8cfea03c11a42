package export

import (
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
	"gonum.org/v1/gonum/mat"

	"github.com/tigerlily/tigerlily/internal/embedding"
)

// parquetParallelism is the number of goroutines used by the writer.
const parquetParallelism = 4

// EmbeddingRow is the Parquet schema of an embedding file.
type EmbeddingRow struct {
	NodeID    string    `parquet:"name=node_id, type=UTF8"`
	Embedding []float64 `parquet:"name=embedding, type=LIST, valuetype=DOUBLE"`
}

// FeatureRow is the Parquet schema of a feature file.
type FeatureRow struct {
	Row      int64     `parquet:"name=row, type=INT64"`
	Features []float64 `parquet:"name=features, type=LIST, valuetype=DOUBLE"`
}

// WriteEmbeddingParquet writes t to path with one row per node.
func WriteEmbeddingParquet(path string, t *embedding.Table) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(EmbeddingRow), parquetParallelism)
	if err != nil {
		return fmt.Errorf("creating parquet writer: %w", err)
	}
	for i, id := range t.NodeIDs {
		row := EmbeddingRow{NodeID: id, Embedding: mat.Row(nil, i, t.Vectors)}
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("writing %s: %w", id, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finishing parquet file: %w", err)
	}
	return nil
}

// WriteFeaturesParquet writes features to path with one row per target pair.
func WriteFeaturesParquet(path string, features mat.Matrix) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(FeatureRow), parquetParallelism)
	if err != nil {
		return fmt.Errorf("creating parquet writer: %w", err)
	}
	r, _ := features.Dims()
	for i := 0; i < r; i++ {
		row := FeatureRow{Row: int64(i), Features: mat.Row(nil, i, features)}
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finishing parquet file: %w", err)
	}
	return nil
}

// ReadEmbeddingParquet reads a file written by WriteEmbeddingParquet.
func ReadEmbeddingParquet(path string) (*embedding.Table, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(EmbeddingRow), parquetParallelism)
	if err != nil {
		return nil, fmt.Errorf("creating parquet reader: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]EmbeddingRow, int(pr.GetNumRows()))
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, embedding.ErrEmptyTable
	}

	d := len(rows[0].Embedding)
	ids := make([]string, len(rows))
	vectors := mat.NewDense(len(rows), d, nil)
	for i, row := range rows {
		if len(row.Embedding) != d {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", embedding.ErrTableShape, i, len(row.Embedding), d)
		}
		ids[i] = row.NodeID
		vectors.SetRow(i, row.Embedding)
	}
	return embedding.NewTable(ids, vectors)
}

// ReadFeaturesParquet reads a file written by WriteFeaturesParquet.
func ReadFeaturesParquet(path string) (*mat.Dense, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(FeatureRow), parquetParallelism)
	if err != nil {
		return nil, fmt.Errorf("creating parquet reader: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]FeatureRow, int(pr.GetNumRows()))
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 || len(rows[0].Features) == 0 {
		return nil, fmt.Errorf("%s has no features", path)
	}

	c := len(rows[0].Features)
	out := mat.NewDense(len(rows), c, nil)
	for i, row := range rows {
		if len(row.Features) != c || row.Row < 0 || int(row.Row) >= len(rows) {
			return nil, fmt.Errorf("%s: malformed row %d", path, i)
		}
		out.SetRow(int(row.Row), row.Features)
	}
	return out, nil
}
