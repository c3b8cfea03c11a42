// Package config handles workspace and global configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/tigerlily/tigerlily/internal/dataset"
	"github.com/tigerlily/tigerlily/internal/embedding"
	"github.com/tigerlily/tigerlily/internal/nmf"
	"github.com/tigerlily/tigerlily/internal/operator"
)

// Config represents workspace configuration stored in .tigerlily/config.json.
type Config struct {
	Dimensions int     `json:"dimensions"`          // Embedding width
	MaxIter    int     `json:"max_iter"`            // NMF sweeps
	Seed       uint64  `json:"seed"`                // Seed for randomized initialization
	Init       string  `json:"init"`                // nndsvd, nndsvda, nndsvdar or random
	Tolerance  float64 `json:"tolerance"`           // NMF stopping tolerance
	Operator   string  `json:"operator"`            // Default feature operator
	DatasetURL string  `json:"dataset_url"`         // Base URL of the example tables
	QueryURL   string  `json:"query_url,omitempty"` // GSQL script installed by "pagerank install"
}

const (
	WorkspaceDir  = ".tigerlily"
	ConfigFile    = "config.json"
	RunsFile      = "runs.jsonl"
	CacheDir      = "cache"
	DataDir       = "data"
	DBFile        = "tigerlily.db"
	EmbeddingFile = embedding.FileName
)

// ErrNoWorkspace is returned when no workspace is found.
var ErrNoWorkspace = errors.New("not in a tigerlily workspace (no .tigerlily directory found)")

// Default returns the configuration written by "tigerlily init".
func Default() *Config {
	return &Config{
		Dimensions: embedding.DefaultDimensions,
		MaxIter:    embedding.DefaultMaxIter,
		Seed:       embedding.DefaultSeed,
		Init:       string(nmf.InitNNDSVD),
		Tolerance:  nmf.DefaultTol,
		Operator:   operator.Hadamard.String(),
		DatasetURL: dataset.DefaultBaseURL,
	}
}

// WorkspacePath returns the path to the .tigerlily directory from a root path.
func WorkspacePath(root string) string {
	return filepath.Join(root, WorkspaceDir)
}

// ConfigPath returns the path to config.json from a root path.
func ConfigPath(root string) string {
	return filepath.Join(root, WorkspaceDir, ConfigFile)
}

// RunsPath returns the path to the fit run log from a root path.
func RunsPath(root string) string {
	return filepath.Join(root, WorkspaceDir, RunsFile)
}

// CachePath returns the path to the cache directory from a root path.
func CachePath(root string) string {
	return filepath.Join(root, WorkspaceDir, CacheDir)
}

// DataPath returns the path to the downloaded tables from a root path.
func DataPath(root string) string {
	return filepath.Join(root, WorkspaceDir, DataDir)
}

// DBPath returns the path to tigerlily.db from a root path.
func DBPath(root string) string {
	return filepath.Join(root, WorkspaceDir, CacheDir, DBFile)
}

// EmbeddingPath returns the path to the saved embedding from a root path.
func EmbeddingPath(root string) string {
	return filepath.Join(root, WorkspaceDir, CacheDir, EmbeddingFile)
}

// IsWorkspace checks if the given path contains a tigerlily workspace.
func IsWorkspace(root string) bool {
	info, err := os.Stat(WorkspacePath(root))
	return err == nil && info.IsDir()
}

// FindWorkspace walks up from the given path to find a workspace.
// Returns the workspace root path or ErrNoWorkspace.
func FindWorkspace(start string) (string, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	for {
		if IsWorkspace(abs) {
			return abs, nil
		}

		parent := filepath.Dir(abs)
		if parent == abs {
			return "", ErrNoWorkspace
		}
		abs = parent
	}
}

// Load reads configuration from the workspace at the given root. Fields
// missing from the file keep their defaults.
func Load(root string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(root))
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to the workspace at the given root.
func (c *Config) Save(root string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(ConfigPath(root), data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if c.Dimensions < 1 {
		return fmt.Errorf("invalid dimensions: %d (must be positive)", c.Dimensions)
	}
	if c.MaxIter < 1 {
		return fmt.Errorf("invalid max_iter: %d (must be positive)", c.MaxIter)
	}
	if c.Tolerance < 0 {
		return fmt.Errorf("invalid tolerance: %v (must be non-negative)", c.Tolerance)
	}
	if _, err := nmf.ParseInit(c.Init); err != nil {
		return err
	}
	if _, err := operator.ParseOperator(c.Operator); err != nil {
		return err
	}
	return nil
}

// setters maps config keys to functions parsing and storing a value.
var setters = map[string]func(c *Config, v string) error{
	"dimensions": func(c *Config, v string) (err error) {
		c.Dimensions, err = strconv.Atoi(v)
		return err
	},
	"max_iter": func(c *Config, v string) (err error) {
		c.MaxIter, err = strconv.Atoi(v)
		return err
	},
	"seed": func(c *Config, v string) (err error) {
		c.Seed, err = strconv.ParseUint(v, 10, 64)
		return err
	},
	"init": func(c *Config, v string) error {
		c.Init = v
		return nil
	},
	"tolerance": func(c *Config, v string) (err error) {
		c.Tolerance, err = strconv.ParseFloat(v, 64)
		return err
	},
	"operator": func(c *Config, v string) error {
		c.Operator = v
		return nil
	},
	"dataset_url": func(c *Config, v string) error {
		c.DatasetURL = v
		return nil
	},
	"query_url": func(c *Config, v string) error {
		c.QueryURL = v
		return nil
	},
}

// Keys lists the configuration keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value of key as a string.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "dimensions":
		return strconv.Itoa(c.Dimensions), nil
	case "max_iter":
		return strconv.Itoa(c.MaxIter), nil
	case "seed":
		return strconv.FormatUint(c.Seed, 10), nil
	case "init":
		return c.Init, nil
	case "tolerance":
		return strconv.FormatFloat(c.Tolerance, 'g', -1, 64), nil
	case "operator":
		return c.Operator, nil
	case "dataset_url":
		return c.DatasetURL, nil
	case "query_url":
		return c.QueryURL, nil
	default:
		return "", fmt.Errorf("unknown config key: %s (valid: %v)", key, Keys())
	}
}

// Set parses value into key and validates the result. On error c is unchanged.
func (c *Config) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key: %s (valid: %v)", key, Keys())
	}

	next := *c
	if err := set(&next, value); err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
