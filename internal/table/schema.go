// Package table defines the typed tables exchanged between the loaders and
// the embedding pipeline, and validates their columns at ingestion.
package table

import (
	"errors"
	"fmt"
	"strings"
)

// Column names used by the tabular contracts.
const (
	ColNode1 = "node_1"
	ColNode2 = "node_2"
	ColScore = "score"
	ColType1 = "type_1"
	ColType2 = "type_2"
	ColDrug1 = "drug_1"
	ColDrug2 = "drug_2"
)

// ErrSchema is the sentinel for every schema violation: a required column is
// missing, or a row holds a value the column cannot carry.
var ErrSchema = errors.New("schema error")

// SchemaError describes which table failed validation and why.
type SchemaError struct {
	Table   string
	Missing []string // Required columns absent from the header
	Line    int      // 1-based input line for row-level problems (0 if not applicable)
	Reason  string
}

func (e *SchemaError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s table: missing required columns: %s", e.Table, strings.Join(e.Missing, ", "))
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s table: line %d: %s", e.Table, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s table: %s", e.Table, e.Reason)
}

// Unwrap lets callers test with errors.Is(err, ErrSchema).
func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// IsSchemaError returns true if err is (or wraps) a schema violation.
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

// Schema names a table and the columns it must carry. Extra columns are
// allowed and ignored.
type Schema struct {
	Name     string
	Required []string
}

// Tabular contracts consumed by the pipeline.
var (
	ScoresSchema = Schema{Name: "pagerank_scores", Required: []string{ColNode1, ColNode2, ColScore}}
	EdgesSchema  = Schema{Name: "edges", Required: []string{ColNode1, ColNode2, ColType1, ColType2}}
	TargetSchema = Schema{Name: "target", Required: []string{ColDrug1, ColDrug2}}
)

// Resolve maps every required column to its position in header.
// It returns a *SchemaError listing all missing columns at once.
func (s Schema) Resolve(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := positions[name]; !seen {
			positions[name] = i
		}
	}

	var missing []string
	resolved := make(map[string]int, len(s.Required))
	for _, col := range s.Required {
		idx, ok := positions[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		resolved[col] = idx
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Table: s.Name, Missing: missing}
	}
	return resolved, nil
}
