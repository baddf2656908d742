package config

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Export.Debug {
		t.Error("expected debug to be false by default")
	}
	if cfg.Export.LinearColors {
		t.Error("expected linear_colors to be false by default")
	}
	if !cfg.Export.FixSuffix {
		t.Error("expected fix_suffix to be true by default")
	}
	if cfg.GLTF.FPS != 24 {
		t.Errorf("expected fps 24, got %v", cfg.GLTF.FPS)
	}
	if cfg.GLTF.Scene != "" {
		t.Errorf("expected empty scene filter, got %s", cfg.GLTF.Scene)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "" {
		t.Errorf("expected empty log file, got %s", cfg.Logging.LogFile)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), FileName)

	yamlContent := `
export:
  debug: true
  linear_colors: true
  fix_suffix: false

gltf:
  fps: 30
  scene: "Level1"

logging:
  level: "debug"
  log_file: "export.log"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !cfg.Export.Debug {
		t.Error("expected debug to be true")
	}
	if !cfg.Export.LinearColors {
		t.Error("expected linear_colors to be true")
	}
	if cfg.Export.FixSuffix {
		t.Error("expected fix_suffix to be false")
	}
	if cfg.GLTF.FPS != 30 {
		t.Errorf("expected fps 30, got %v", cfg.GLTF.FPS)
	}
	if cfg.GLTF.Scene != "Level1" {
		t.Errorf("expected scene Level1, got %s", cfg.GLTF.Scene)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "export.log" {
		t.Errorf("expected log file 'export.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFilePartial(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(configPath, []byte("gltf:\n  fps: 60\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.GLTF.FPS != 60 {
		t.Errorf("expected fps 60, got %v", cfg.GLTF.FPS)
	}
	// Untouched keys keep their defaults
	if !cfg.Export.FixSuffix {
		t.Error("expected fix_suffix default to survive a partial file")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level default, got %s", cfg.Logging.Level)
	}
}

func TestLoadFromFileEmpty(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(configPath, nil, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("empty file should keep defaults, got %v", err)
	}
	if cfg.GLTF.FPS != 24 {
		t.Errorf("expected default fps, got %v", cfg.GLTF.FPS)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "bad syntax",
			content: "export:\n  debug: [true\n",
		},
		{
			name:    "wrong type",
			content: "gltf:\n  fps: fast\n",
		},
		{
			name:    "unknown key",
			content: "export:\n  debgu: true\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "invalid.yaml")
			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			cfg := Default()
			if err := loadFromFile(cfg, configPath); err == nil {
				t.Error("expected error loading invalid YAML, got nil")
			}
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/toyexport.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"zero fps", func(c *Config) { c.GLTF.FPS = 0 }, "gltf.fps"},
		{"negative fps", func(c *Config) { c.GLTF.FPS = -1 }, "gltf.fps"},
		{"huge fps", func(c *Config) { c.GLTF.FPS = MaxFPS + 1 }, "gltf.fps"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"empty level", func(c *Config) { c.Logging.Level = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %s", err, tt.wantErr)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, FileName)
	if err := os.WriteFile(configPath, []byte("gltf:\n  fps: 12\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Errorf("expected to find %s in current directory", FileName)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name   string
		flags  *Flags
		verify func(*testing.T, *Config)
	}{
		{
			name:  "nil flags",
			flags: nil,
			verify: func(t *testing.T, cfg *Config) {
				if cfg.GLTF.FPS != 24 {
					t.Errorf("expected fps 24, got %v", cfg.GLTF.FPS)
				}
			},
		},
		{
			name:  "debug flag",
			flags: &Flags{Debug: true},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Export.Debug {
					t.Error("expected debug export with debug flag")
				}
				if cfg.Logging.Level != "info" {
					t.Errorf("debug flag should not change log level, got %s", cfg.Logging.Level)
				}
			},
		},
		{
			name:  "linear flag",
			flags: &Flags{Linear: true},
			verify: func(t *testing.T, cfg *Config) {
				if !cfg.Export.LinearColors {
					t.Error("expected linear colors with linear flag")
				}
			},
		},
		{
			name:  "gltf flags",
			flags: &Flags{FPS: 60, Scene: "Intro"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.GLTF.FPS != 60 {
					t.Errorf("expected fps 60, got %v", cfg.GLTF.FPS)
				}
				if cfg.GLTF.Scene != "Intro" {
					t.Errorf("expected scene Intro, got %s", cfg.GLTF.Scene)
				}
			},
		},
		{
			name:  "logging flags",
			flags: &Flags{LogLevel: "warn", LogFile: "out.log"},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "warn" {
					t.Errorf("expected level warn, got %s", cfg.Logging.Level)
				}
				if cfg.Logging.LogFile != "out.log" {
					t.Errorf("expected log file out.log, got %s", cfg.Logging.LogFile)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			applyFlags(cfg, tt.flags)
			tt.verify(t, cfg)
		})
	}
}

func TestRegisterFlags(t *testing.T) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	f := RegisterFlags(fs)

	args := []string{"-debug", "-fps", "12.5", "-scene", "Main", "-config", "my.yaml", "in.glb"}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !f.Debug || f.Linear {
		t.Errorf("debug/linear = %v/%v, want true/false", f.Debug, f.Linear)
	}
	if f.FPS != 12.5 {
		t.Errorf("fps = %v, want 12.5", f.FPS)
	}
	if f.Scene != "Main" || f.Config != "my.yaml" {
		t.Errorf("scene/config = %q/%q", f.Scene, f.Config)
	}
	if fs.NArg() != 1 || fs.Arg(0) != "in.glb" {
		t.Errorf("positional args = %v", fs.Args())
	}
}

func TestLoadPriority(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), FileName)

	yamlContent := `
gltf:
  fps: 30
  scene: "FromFile"
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(&Flags{Config: configPath, FPS: 60})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// FPS from flag (60), not file (30)
	if cfg.GLTF.FPS != 60 {
		t.Errorf("expected fps 60 from flag, got %v", cfg.GLTF.FPS)
	}
	// Scene from file since no flag override
	if cfg.GLTF.Scene != "FromFile" {
		t.Errorf("expected scene from file, got %s", cfg.GLTF.Scene)
	}
}

func TestLoadRejectsInvalidResult(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(configPath, []byte("gltf:\n  fps: -5\n"), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	if _, err := Load(&Flags{Config: configPath}); err == nil {
		t.Error("expected validation error for negative fps")
	}
}

func TestSaveToRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)

	cfg := Default()
	cfg.Export.LinearColors = true
	cfg.GLTF.FPS = 50
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := Load(&Flags{Config: path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("loaded %+v, want %+v", *loaded, *cfg)
	}
}
