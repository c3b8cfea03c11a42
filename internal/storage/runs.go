package storage

import (
	"time"

	"github.com/google/uuid"
)

// FitRun records one embedding fit.
type FitRun struct {
	ID                string    `json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	Dimensions        int       `json:"dimensions"`
	MaxIter           int       `json:"max_iter"`
	Seed              uint64    `json:"seed"`
	Init              string    `json:"init"`
	ScoresFingerprint string    `json:"scores_fingerprint"`
	Nodes             int       `json:"nodes"`
	Iterations        int       `json:"iterations"`
	Converged         bool      `json:"converged"`
	Loss              float64   `json:"loss"`
	DurationMs        int64     `json:"duration_ms"`
}

// RunParams are the fit inputs that decide whether an embedding is current.
type RunParams struct {
	Dimensions int
	MaxIter    int
	Seed       uint64
	Init       string
}

// Params returns the parameters r was fitted with.
func (r FitRun) Params() RunParams {
	return RunParams{Dimensions: r.Dimensions, MaxIter: r.MaxIter, Seed: r.Seed, Init: r.Init}
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Staleness explains whether the latest fit matches the current inputs.
type Staleness struct {
	Stale  bool    `json:"stale"`
	Reason string  `json:"reason,omitempty"`
	Latest *FitRun `json:"latest,omitempty"`
}
