package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// rowReader walks a header-led CSV stream and hands each row to fn with the
// resolved column positions.
func rowReader(r io.Reader, schema Schema, fn func(line int, row []string, cols map[string]int) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &SchemaError{Table: schema.Name, Missing: schema.Required}
		}
		return fmt.Errorf("reading %s header: %w", schema.Name, err)
	}
	cols, err := schema.Resolve(header)
	if err != nil {
		return err
	}

	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("reading %s line %d: %w", schema.Name, line, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue // Skip blank lines
		}
		if len(row) != len(header) {
			return &SchemaError{Table: schema.Name, Line: line, Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(row))}
		}
		if err := fn(line, row, cols); err != nil {
			return err
		}
	}
}

// ReadScores parses a PageRank score table (node_1, node_2, score).
func ReadScores(r io.Reader) ([]ScoreRecord, error) {
	var scores []ScoreRecord
	err := rowReader(r, ScoresSchema, func(line int, row []string, cols map[string]int) error {
		raw := strings.TrimSpace(row[cols[ColScore]])
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return &SchemaError{Table: ScoresSchema.Name, Line: line, Reason: fmt.Sprintf("score %q is not numeric", raw)}
		}
		scores = append(scores, ScoreRecord{
			Node1: strings.TrimSpace(row[cols[ColNode1]]),
			Node2: strings.TrimSpace(row[cols[ColNode2]]),
			Score: score,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// ReadEdges parses a typed edge table (node_1, node_2, type_1, type_2).
func ReadEdges(r io.Reader) ([]EdgeRecord, error) {
	var edges []EdgeRecord
	err := rowReader(r, EdgesSchema, func(_ int, row []string, cols map[string]int) error {
		edges = append(edges, EdgeRecord{
			Node1: strings.TrimSpace(row[cols[ColNode1]]),
			Node2: strings.TrimSpace(row[cols[ColNode2]]),
			Type1: strings.TrimSpace(row[cols[ColType1]]),
			Type2: strings.TrimSpace(row[cols[ColType2]]),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edges, nil
}

// ReadTarget parses a drug pair table. Columns other than drug_1 and drug_2
// (labels, folds) are ignored.
func ReadTarget(r io.Reader) ([]TargetRecord, error) {
	var target []TargetRecord
	err := rowReader(r, TargetSchema, func(_ int, row []string, cols map[string]int) error {
		target = append(target, TargetRecord{
			Drug1: strings.TrimSpace(row[cols[ColDrug1]]),
			Drug2: strings.TrimSpace(row[cols[ColDrug2]]),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return target, nil
}

// ReadScoresFile opens path and parses it with ReadScores.
func ReadScoresFile(path string) ([]ScoreRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scores file: %w", err)
	}
	defer f.Close()
	return ReadScores(f)
}

// ReadEdgesFile opens path and parses it with ReadEdges.
func ReadEdgesFile(path string) ([]EdgeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening edges file: %w", err)
	}
	defer f.Close()
	return ReadEdges(f)
}

// ReadTargetFile opens path and parses it with ReadTarget.
func ReadTargetFile(path string) ([]TargetRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening target file: %w", err)
	}
	defer f.Close()
	return ReadTarget(f)
}

// WriteScores writes scores as CSV with a header row.
func WriteScores(w io.Writer, scores []ScoreRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ScoresSchema.Required); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, s := range scores {
		row := []string{s.Node1, s.Node2, strconv.FormatFloat(s.Score, 'g', -1, 64)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing score row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
