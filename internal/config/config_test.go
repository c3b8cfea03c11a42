package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestPathFunctions(t *testing.T) {
	root := "/test/project"

	tests := []struct {
		name string
		fn   func(string) string
		want string
	}{
		{"WorkspacePath", WorkspacePath, "/test/project/.tigerlily"},
		{"ConfigPath", ConfigPath, "/test/project/.tigerlily/config.json"},
		{"RunsPath", RunsPath, "/test/project/.tigerlily/runs.jsonl"},
		{"CachePath", CachePath, "/test/project/.tigerlily/cache"},
		{"DataPath", DataPath, "/test/project/.tigerlily/data"},
		{"DBPath", DBPath, "/test/project/.tigerlily/cache/tigerlily.db"},
		{"EmbeddingPath", EmbeddingPath, "/test/project/.tigerlily/cache/embedding.gob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn(root)
			if got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.name, root, got, tt.want)
			}
		})
	}
}

func TestIsWorkspace(t *testing.T) {
	tmpDir := t.TempDir()

	if IsWorkspace(tmpDir) {
		t.Error("IsWorkspace() = true for plain directory")
	}

	if err := os.Mkdir(filepath.Join(tmpDir, WorkspaceDir), 0755); err != nil {
		t.Fatalf("Failed to create .tigerlily: %v", err)
	}

	if !IsWorkspace(tmpDir) {
		t.Error("IsWorkspace() = false for workspace directory")
	}
}

func TestIsWorkspace_FileNotDir(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, WorkspaceDir), []byte("not a dir"), 0644); err != nil {
		t.Fatalf("Failed to create .tigerlily file: %v", err)
	}

	if IsWorkspace(tmpDir) {
		t.Error("IsWorkspace() = true when .tigerlily is a file")
	}
}

func TestFindWorkspace(t *testing.T) {
	tmpDir := t.TempDir()
	rootDir := filepath.Join(tmpDir, "project")
	nestedDir := filepath.Join(rootDir, "notebooks", "drafts")

	if err := os.MkdirAll(nestedDir, 0755); err != nil {
		t.Fatalf("Failed to create nested dirs: %v", err)
	}
	if err := os.Mkdir(filepath.Join(rootDir, WorkspaceDir), 0755); err != nil {
		t.Fatalf("Failed to create .tigerlily: %v", err)
	}

	got, err := FindWorkspace(nestedDir)
	if err != nil {
		t.Fatalf("FindWorkspace() error = %v", err)
	}
	if got != rootDir {
		t.Errorf("FindWorkspace() = %q, want %q", got, rootDir)
	}

	if _, err := FindWorkspace(tmpDir); !errors.Is(err, ErrNoWorkspace) {
		t.Errorf("FindWorkspace() outside workspace error = %v, want ErrNoWorkspace", err)
	}
}

func TestSaveLoad(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(WorkspacePath(root), 0755); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	cfg.Dimensions = 16
	cfg.Operator = "l1_norm"
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("Load() = %+v, want %+v", *loaded, *cfg)
	}
}

func TestLoad_FillsDefaults(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(WorkspacePath(root), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ConfigPath(root), []byte(`{"dimensions": 8}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Dimensions != 8 {
		t.Errorf("Dimensions = %d, want 8", cfg.Dimensions)
	}
	if cfg.MaxIter != 20 || cfg.Seed != 42 || cfg.Init != "nndsvd" || cfg.Operator != "hadamard" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	root := t.TempDir()
	if _, err := Load(root); err == nil {
		t.Error("Load() should fail without config.json")
	}

	os.Mkdir(WorkspacePath(root), 0755)
	os.WriteFile(ConfigPath(root), []byte("not json"), 0644)
	if _, err := Load(root); err == nil {
		t.Error("Load() should fail on invalid JSON")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"default", func(c *Config) {}, false},
		{"zero dimensions", func(c *Config) { c.Dimensions = 0 }, true},
		{"zero max_iter", func(c *Config) { c.MaxIter = 0 }, true},
		{"negative tolerance", func(c *Config) { c.Tolerance = -1 }, true},
		{"bad init", func(c *Config) { c.Init = "pca" }, true},
		{"bad operator", func(c *Config) { c.Operator = "cosine" }, true},
		{"random init", func(c *Config) { c.Init = "random" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	for _, key := range Keys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%s) error = %v", key, err)
		}
	}

	tests := []struct {
		key     string
		value   string
		wantErr bool
	}{
		{"dimensions", "64", false},
		{"dimensions", "sixty", true},
		{"dimensions", "0", true},
		{"seed", "7", false},
		{"init", "nndsvdar", false},
		{"init", "svd", true},
		{"operator", "concatenation", false},
		{"tolerance", "0.001", false},
		{"colour", "blue", true},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			before := *cfg
			err := cfg.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if *cfg != before {
					t.Error("failed Set() must not modify the config")
				}
				return
			}
			got, _ := cfg.Get(tt.key)
			if got != tt.value {
				t.Errorf("Get(%s) = %q, want %q", tt.key, got, tt.value)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	if got := ExpandPath("~/data"); got != filepath.Join(home, "data") {
		t.Errorf("ExpandPath(~/data) = %q", got)
	}
	if got := ExpandPath("/abs"); got != "/abs" {
		t.Errorf("ExpandPath(/abs) = %q", got)
	}
}
