// Package config handles toyexport configuration loading and management.
package config

import "fmt"

// Config holds all exporter settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	GLTF    GLTFConfig    `yaml:"gltf"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig holds TOY output settings.
type ExportConfig struct {
	Debug        bool `yaml:"debug"`         // Write an indented text dump instead of binary
	LinearColors bool `yaml:"linear_colors"` // Convert color layers from sRGB to linear
	FixSuffix    bool `yaml:"fix_suffix"`    // Append .toy or .toy.txt to the output path
}

// GLTFConfig holds settings for glTF and GLB input.
type GLTFConfig struct {
	FPS   float32 `yaml:"fps"`   // Animation sampling rate
	Scene string  `yaml:"scene"` // Export only this scene when set
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// MaxFPS bounds the glTF sampling rate.
const MaxFPS = 1000

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			Debug:        false,
			LinearColors: false,
			FixSuffix:    true,
		},
		GLTF: GLTFConfig{
			FPS: 24,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks values a config file or flag may have set out of range.
func (c *Config) Validate() error {
	if c.GLTF.FPS <= 0 || c.GLTF.FPS > MaxFPS {
		return fmt.Errorf("gltf.fps must be in (0, %d], got %v", MaxFPS, c.GLTF.FPS)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	return nil
}
