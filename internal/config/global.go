package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// GlobalConfig represents configuration stored in ~/.config/tigerlily/config.yml.
type GlobalConfig struct {
	WorkspacePath string           `yaml:"workspace_path,omitempty"`
	TigerGraph    TigerGraphConfig `yaml:"tigergraph,omitempty"`
}

// TigerGraphConfig holds the connection settings of the graph server.
type TigerGraphConfig struct {
	Host     string `yaml:"host,omitempty"`
	Graph    string `yaml:"graph,omitempty"`
	Username string `yaml:"username,omitempty"`
	Secret   string `yaml:"secret,omitempty"`
	Password string `yaml:"password,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "tigerlily"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"
)

// Environment variables that override the global config.
const (
	EnvTigerGraphHost     = "TIGERGRAPH_HOST"
	EnvTigerGraphGraph    = "TIGERGRAPH_GRAPH"
	EnvTigerGraphUsername = "TIGERGRAPH_USERNAME"
	EnvTigerGraphSecret   = "TIGERGRAPH_SECRET"
	EnvTigerGraphPassword = "TIGERGRAPH_PASSWORD"
)

// ErrTigerGraphNotConfigured is returned when host or graph is missing.
var ErrTigerGraphNotConfigured = errors.New("tigergraph host and graph not configured")

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/tigerlily/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}

	if cfg.WorkspacePath != "" {
		cfg.WorkspacePath = ExpandPath(cfg.WorkspacePath)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// GetConfigValue returns the environment variable envKey if set, otherwise
// configValue.
func GetConfigValue(envKey, configValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return configValue
}

// GetWorkspacePath returns the configured default workspace.
func GetWorkspacePath() string {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return ""
	}
	return cfg.WorkspacePath
}

// TigerGraphSettings merges the global config with TIGERGRAPH_* environment
// variables, which take priority.
func TigerGraphSettings() (TigerGraphConfig, error) {
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return TigerGraphConfig{}, err
	}

	tg := TigerGraphConfig{
		Host:     GetConfigValue(EnvTigerGraphHost, cfg.TigerGraph.Host),
		Graph:    GetConfigValue(EnvTigerGraphGraph, cfg.TigerGraph.Graph),
		Username: GetConfigValue(EnvTigerGraphUsername, cfg.TigerGraph.Username),
		Secret:   GetConfigValue(EnvTigerGraphSecret, cfg.TigerGraph.Secret),
		Password: GetConfigValue(EnvTigerGraphPassword, cfg.TigerGraph.Password),
	}
	if tg.Host == "" || tg.Graph == "" {
		return tg, ErrTigerGraphNotConfigured
	}
	return tg, nil
}

// HelpfulConfigMessage returns a helpful message when no workspace is found.
func HelpfulConfigMessage() string {
	configPath := GlobalConfigPath()
	return fmt.Sprintf(`No tigerlily workspace found.

Run 'tigerlily init' in a project directory, or create %s to set a default:
  mkdir -p %s
  echo 'workspace_path: /path/to/your/project' > %s`,
		configPath,
		filepath.Dir(configPath),
		configPath)
}

// TigerGraphHelpMessage explains how to configure the graph server.
func TigerGraphHelpMessage() string {
	return fmt.Sprintf(`TigerGraph is not configured.

Add a tigergraph block to %s:
  tigergraph:
    host: https://your-instance.i.tgcloud.io
    graph: DrugGeneGraph
    username: tigergraph

and export %s and %s (a .env file in the working directory is read too).`,
		GlobalConfigPath(), EnvTigerGraphSecret, EnvTigerGraphPassword)
}
