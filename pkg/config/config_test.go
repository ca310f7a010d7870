package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "passages.yaml")

	tests := []struct {
		name          string
		setup         func()
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func() {}, // No file
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Palette.Order != "shuffle" {
					t.Errorf("expected default palette order 'shuffle', got '%s'", cfg.Palette.Order)
				}
				if cfg.Index.Threshold != 0.3 {
					t.Errorf("expected threshold 0.3, got %v", cfg.Index.Threshold)
				}
				if time.Duration(cfg.Animation.ActivateDelay) != 500*time.Millisecond {
					t.Errorf("expected activate delay 500ms, got %v", time.Duration(cfg.Animation.ActivateDelay))
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "routes_table: table_34_reordered_data") {
					t.Error("config file missing default values")
				}
				if !strings.Contains(string(content), "# Options: shuffle") {
					t.Error("config file missing injected enum comment")
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func() {
				err := os.WriteFile(configPath, []byte("palette:\n  order: sorted\n  seed: 42\nanimation:\n  reveal_step: 250ms\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Palette.Order != "sorted" || cfg.Palette.Seed != 42 {
					t.Errorf("expected sorted/42, got %s/%d", cfg.Palette.Order, cfg.Palette.Seed)
				}
				if time.Duration(cfg.Animation.RevealStep) != 250*time.Millisecond {
					t.Errorf("expected reveal step 250ms, got %v", time.Duration(cfg.Animation.RevealStep))
				}
				// Untouched sections keep defaults
				if cfg.Animation.FlyZoom != 9 {
					t.Errorf("expected fly zoom 9, got %d", cfg.Animation.FlyZoom)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if strings.Contains(string(content), "routes_table") {
					t.Error("existing config file must not be rewritten")
				}
			},
		},
		{
			name: "Env_Fallback",
			setup: func() {
				t.Setenv("CARTO_ACCOUNT", "env-account")
				t.Setenv("REDIS_ADDR", "127.0.0.1:6390")
				err := os.WriteFile(configPath, []byte("source:\n  kind: carto\n  account: \"\"\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Source.Account != "env-account" {
					t.Errorf("expected account from env, got '%s'", cfg.Source.Account)
				}
				if cfg.Cache.RedisAddr != "127.0.0.1:6390" {
					t.Errorf("expected redis addr from env, got '%s'", cfg.Cache.RedisAddr)
				}
			},
			checkFile: func(t *testing.T) {},
		},
		{
			name: "Invalid_Order",
			setup: func() {
				err := os.WriteFile(configPath, []byte("palette:\n  order: random\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "Invalid_YAML",
			setup: func() {
				err := os.WriteFile(configPath, []byte("palette: [unclosed\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(configPath)
			tt.setup()

			cfg, err := Load(configPath)
			if tt.expectedError {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			tt.validate(t, cfg)
			tt.checkFile(t)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Defaults", func(c *Config) {}, false},
		{"FileSourceWithoutPath", func(c *Config) { c.Source.Kind = "file" }, true},
		{"FileSource", func(c *Config) { c.Source.Kind = "file"; c.Source.RoutesFile = "routes.geojson" }, false},
		{"UnknownSource", func(c *Config) { c.Source.Kind = "ftp" }, true},
		{"UnknownBackend", func(c *Config) { c.Cache.Backend = "memcached" }, true},
		{"UnknownUnit", func(c *Config) { c.Distance.Unit = "furlongs" }, true},
		{"ThresholdRange", func(c *Config) { c.Index.Threshold = 1.5 }, true},
		{"NegativeJitter", func(c *Config) { c.Index.Jitter = -0.1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGenerateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "passages.yaml")
	if err := GenerateDefault(path); err != nil {
		t.Fatalf("GenerateDefault failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}

	// Second call leaves the file alone.
	if err := os.WriteFile(path, []byte("# custom\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := GenerateDefault(path); err != nil {
		t.Fatalf("GenerateDefault failed: %v", err)
	}
	content, _ := os.ReadFile(path)
	if string(content) != "# custom\n" {
		t.Errorf("existing file overwritten (was %d bytes)", info.Size())
	}
}
