package config

import "flag"

// Flags holds command-line overrides. Zero values leave the config alone.
type Flags struct {
	Config   string
	Debug    bool
	Linear   bool
	FPS      float64
	Scene    string
	LogLevel string
	LogFile  string
}

// RegisterFlags defines the config override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Write an indented text dump instead of binary")
	fs.BoolVar(&f.Linear, "linear", false, "Convert color layers from sRGB to linear (format version 4)")
	fs.Float64Var(&f.FPS, "fps", 0, "Sampling rate for glTF animations")
	fs.StringVar(&f.Scene, "scene", "", "Export only the named glTF scene")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Also log to this file, rotated")
	return f
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config, f *Flags) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Export.Debug = true
	}
	if f.Linear {
		cfg.Export.LinearColors = true
	}
	if f.FPS > 0 {
		cfg.GLTF.FPS = float32(f.FPS)
	}
	if f.Scene != "" {
		cfg.GLTF.Scene = f.Scene
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
}
