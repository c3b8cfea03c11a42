package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/tigerlily/tigerlily/internal/embedding"
)

// nullableFloats marshals NaN and ±Inf as null, which JSON cannot represent.
type nullableFloats []float64

func (v nullableFloats) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(v))
	for i := range v {
		if !math.IsNaN(v[i]) && !math.IsInf(v[i], 0) {
			out[i] = &v[i]
		}
	}
	return json.Marshal(out)
}

type embeddingLine struct {
	NodeID    string         `json:"node_id"`
	Embedding nullableFloats `json:"embedding"`
}

type featureLine struct {
	Row      int            `json:"row"`
	Features nullableFloats `json:"features"`
}

// WriteEmbeddingJSONL writes one {"node_id", "embedding"} object per line.
func WriteEmbeddingJSONL(w io.Writer, t *embedding.Table) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i, id := range t.NodeIDs {
		if err := enc.Encode(embeddingLine{NodeID: id, Embedding: t.Vectors.RawRowView(i)}); err != nil {
			return fmt.Errorf("encoding %s: %w", id, err)
		}
	}
	return bw.Flush()
}

// WriteFeaturesJSONL writes one {"row", "features"} object per line.
func WriteFeaturesJSONL(w io.Writer, features mat.Matrix) error {
	r, c := features.Dims()
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i := 0; i < r; i++ {
		if err := enc.Encode(featureLine{Row: i, Features: mat.Row(make([]float64, c), i, features)}); err != nil {
			return fmt.Errorf("encoding row %d: %w", i, err)
		}
	}
	return bw.Flush()
}
