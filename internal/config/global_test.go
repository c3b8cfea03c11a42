package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// withConfigHome points XDG_CONFIG_HOME at a temp dir for the test.
func withConfigHome(t *testing.T) string {
	t.Helper()
	ResetGlobalConfigCache()
	t.Cleanup(ResetGlobalConfigCache)

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	return tmpDir
}

func writeGlobalConfig(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, GlobalConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, GlobalConfigFile), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestGlobalConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := GlobalConfigPath(), "/custom/config/tigerlily/config.yml"; got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	if got, want := GlobalConfigPath(), filepath.Join(home, ".config", "tigerlily", "config.yml"); got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadGlobalConfig_NotFound(t *testing.T) {
	withConfigHome(t)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg.WorkspacePath != "" || cfg.TigerGraph.Host != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestLoadGlobalConfig_Valid(t *testing.T) {
	home := withConfigHome(t)
	writeGlobalConfig(t, home, `
workspace_path: ~/projects/ddi
tigergraph:
  host: https://example.i.tgcloud.io
  graph: DrugGeneGraph
  username: analyst
  secret: from-file
`)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}

	userHome, _ := os.UserHomeDir()
	if want := filepath.Join(userHome, "projects/ddi"); cfg.WorkspacePath != want {
		t.Errorf("WorkspacePath = %q, want %q", cfg.WorkspacePath, want)
	}
	if cfg.TigerGraph.Graph != "DrugGeneGraph" {
		t.Errorf("Graph = %q, want DrugGeneGraph", cfg.TigerGraph.Graph)
	}
	if cfg.TigerGraph.Username != "analyst" {
		t.Errorf("Username = %q, want analyst", cfg.TigerGraph.Username)
	}
}

func TestLoadGlobalConfig_InvalidYAML(t *testing.T) {
	home := withConfigHome(t)
	writeGlobalConfig(t, home, "tigergraph: [unclosed")

	if _, err := LoadGlobalConfig(); err == nil {
		t.Error("LoadGlobalConfig() should return error for invalid YAML")
	}
}

func TestGetConfigValue(t *testing.T) {
	t.Setenv("TEST_CONFIG_KEY", "from-env")
	if got := GetConfigValue("TEST_CONFIG_KEY", "from-config"); got != "from-env" {
		t.Errorf("GetConfigValue() = %q, want from-env", got)
	}

	t.Setenv("TEST_CONFIG_KEY", "")
	if got := GetConfigValue("TEST_CONFIG_KEY", "from-config"); got != "from-config" {
		t.Errorf("GetConfigValue() = %q, want from-config", got)
	}
}

func TestTigerGraphSettings(t *testing.T) {
	home := withConfigHome(t)
	for _, key := range []string{EnvTigerGraphHost, EnvTigerGraphGraph, EnvTigerGraphUsername, EnvTigerGraphSecret, EnvTigerGraphPassword} {
		t.Setenv(key, "")
	}

	if _, err := TigerGraphSettings(); !errors.Is(err, ErrTigerGraphNotConfigured) {
		t.Errorf("TigerGraphSettings() error = %v, want ErrTigerGraphNotConfigured", err)
	}

	ResetGlobalConfigCache()
	writeGlobalConfig(t, home, `
tigergraph:
  host: https://example.i.tgcloud.io
  graph: DrugGeneGraph
  secret: from-file
`)
	t.Setenv(EnvTigerGraphSecret, "from-env")
	t.Setenv(EnvTigerGraphPassword, "pw")

	tg, err := TigerGraphSettings()
	if err != nil {
		t.Fatalf("TigerGraphSettings() error = %v", err)
	}
	if tg.Secret != "from-env" {
		t.Errorf("Secret = %q, want from-env (env wins)", tg.Secret)
	}
	if tg.Password != "pw" || tg.Host != "https://example.i.tgcloud.io" {
		t.Errorf("unexpected settings %+v", tg)
	}
}
