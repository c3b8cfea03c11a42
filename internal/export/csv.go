package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/tigerlily/tigerlily/internal/embedding"
)

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteEmbeddingCSV writes node_id, emb_0, ... with one row per node.
// NaN is written as "NaN".
func WriteEmbeddingCSV(w io.Writer, t *embedding.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns()); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	record := make([]string, t.Dimensions()+1)
	for i, id := range t.NodeIDs {
		record[0] = id
		for j, v := range t.Vectors.RawRowView(i) {
			record[j+1] = formatFloat(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing %s: %w", id, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFeaturesCSV writes f_0, ... with one row per target pair.
func WriteFeaturesCSV(w io.Writer, features mat.Matrix) error {
	r, c := features.Dims()
	cw := csv.NewWriter(w)
	if err := cw.Write(embedding.ColumnNames(FeatureColumnPrefix, c)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	record := make([]string, c)
	for i := 0; i < r; i++ {
		for j := range record {
			record[j] = formatFloat(features.At(i, j))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
