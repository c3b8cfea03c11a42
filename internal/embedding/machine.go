package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/tigerlily/tigerlily/internal/nmf"
	"github.com/tigerlily/tigerlily/internal/operator"
	"github.com/tigerlily/tigerlily/internal/sparse"
	"github.com/tigerlily/tigerlily/internal/table"
)

// Errors returned by Machine.
var (
	ErrNotFitted   = errors.New("machine has no embedding; call Fit first")
	ErrEmptyTarget = errors.New("target table has no rows")
)

const (
	// DefaultDimensions is the default embedding width.
	DefaultDimensions = 128

	// DefaultMaxIter is the default number of NMF sweeps.
	DefaultMaxIter = 20

	// DefaultSeed seeds every randomized draw of a fit.
	DefaultSeed uint64 = 42
)

// Machine fits an embedding from a score table and builds edge features
// from it. Fit replaces the current embedding only on success; CreateFeatures
// is safe to call concurrently.
type Machine struct {
	dimensions int
	maxIter    int
	seed       uint64
	init       nmf.Init
	tol        float64
	logger     *slog.Logger
	progress   nmf.ProgressReporter

	mu        sync.RWMutex
	embedding *Table
}

// Option configures a Machine.
type Option func(*Machine)

// WithDimensions sets the embedding width.
func WithDimensions(d int) Option {
	return func(m *Machine) {
		m.dimensions = d
	}
}

// WithMaxIter sets the maximum number of NMF sweeps.
func WithMaxIter(n int) Option {
	return func(m *Machine) {
		m.maxIter = n
	}
}

// WithSeed sets the random seed.
func WithSeed(seed uint64) Option {
	return func(m *Machine) {
		m.seed = seed
	}
}

// WithInit sets the NMF initialization scheme.
func WithInit(init nmf.Init) Option {
	return func(m *Machine) {
		m.init = init
	}
}

// WithTolerance sets the NMF stopping tolerance.
func WithTolerance(tol float64) Option {
	return func(m *Machine) {
		m.tol = tol
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithProgressReporter receives one update per NMF sweep.
func WithProgressReporter(p nmf.ProgressReporter) Option {
	return func(m *Machine) {
		m.progress = p
	}
}

// NewMachine creates a Machine with the default parameters.
func NewMachine(opts ...Option) *Machine {
	m := &Machine{
		dimensions: DefaultDimensions,
		maxIter:    DefaultMaxIter,
		seed:       DefaultSeed,
		init:       nmf.InitNNDSVD,
		tol:        nmf.DefaultTol,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dimensions returns the configured embedding width.
func (m *Machine) Dimensions() int {
	return m.dimensions
}

// Fit learns a standardized embedding for every distinct node_1 in scores
// and makes it the current embedding.
func (m *Machine) Fit(ctx context.Context, scores []table.ScoreRecord) (*Table, error) {
	start := time.Now()

	built, err := sparse.Build(scores)
	if err != nil {
		return nil, err
	}
	rows, cols := built.Matrix.Dims()
	m.logger.Info("fitting embedding",
		"sources", rows, "targets", cols, "nonzeros", built.Matrix.NNZ(),
		"dimensions", m.dimensions, "max_iter", m.maxIter, "init", string(m.init))

	res, err := nmf.Factorize(ctx, built.Matrix, nmf.Options{
		Components: m.dimensions,
		MaxIter:    m.maxIter,
		Tol:        m.tol,
		Init:       m.init,
		Seed:       m.seed,
		Progress:   m.progress,
	})
	if err != nil {
		return nil, fmt.Errorf("factorizing score matrix: %w", err)
	}
	if !res.Converged {
		m.logger.Warn("maximum number of iterations reached; increase it to improve convergence",
			"max_iter", m.maxIter, "violation", res.Violation)
	}

	vectors := Standardize(res.W)
	t, err := NewTable(slices.Clone(built.Source.IDs()), vectors)
	if err != nil {
		return nil, err
	}
	t.Meta = Metadata{
		Dimensions:        m.dimensions,
		MaxIter:           m.maxIter,
		Seed:              m.seed,
		Init:              string(m.init),
		Iterations:        res.Iterations,
		Converged:         res.Converged,
		Loss:              res.Loss,
		ScoresFingerprint: table.Fingerprint(scores),
		CreatedAt:         start.UTC(),
		FitDurationMs:     time.Since(start).Milliseconds(),
	}

	m.logger.Info("embedding fitted",
		"iterations", res.Iterations, "converged", res.Converged, "loss", res.Loss,
		"duration", time.Since(start))

	m.SetEmbedding(t)
	return t, nil
}

// Standardize returns a copy of w with every column shifted to mean 0 and
// scaled to unit population standard deviation. A constant column divides
// by zero and yields NaN.
func Standardize(w mat.Matrix) *mat.Dense {
	r, c := w.Dims()
	out := mat.NewDense(r, c, nil)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, w)
		mean, std := stat.PopMeanStdDev(col, nil)
		for i, v := range col {
			out.Set(i, j, (v-mean)/std)
		}
	}
	return out
}

// SetEmbedding replaces the current embedding, e.g. with a table loaded
// from disk.
func (m *Machine) SetEmbedding(t *Table) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedding = t
}

// Embedding returns the current embedding.
func (m *Machine) Embedding() (*Table, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.embedding == nil {
		return nil, ErrNotFitted
	}
	return m.embedding, nil
}

// CreateFeatures looks up the embeddings of drug_1 and drug_2 for every
// target pair and combines them with op. Row i of the result belongs to
// target[i]; an id without an embedding contributes a row of NaN.
func (m *Machine) CreateFeatures(target []table.TargetRecord, op operator.Operator) (*mat.Dense, error) {
	emb, err := m.Embedding()
	if err != nil {
		return nil, err
	}
	return Features(emb, target, op)
}

// Features combines the embeddings in emb for every pair of target.
func Features(emb *Table, target []table.TargetRecord, op operator.Operator) (*mat.Dense, error) {
	if len(target) == 0 {
		return nil, ErrEmptyTarget
	}

	d := emb.Dimensions()
	left := mat.NewDense(len(target), d, nil)
	right := mat.NewDense(len(target), d, nil)
	for i, pair := range target {
		lookup(emb, pair.Drug1, left.RawRowView(i))
		lookup(emb, pair.Drug2, right.RawRowView(i))
	}

	features, err := op.Apply(left, right)
	if err != nil {
		return nil, fmt.Errorf("applying %s: %w", op, err)
	}
	return features, nil
}

func lookup(emb *Table, id string, dst []float64) {
	i, ok := emb.Row(id)
	if !ok {
		for j := range dst {
			dst[j] = math.NaN()
		}
		return
	}
	copy(dst, emb.Vectors.RawRowView(i))
}
