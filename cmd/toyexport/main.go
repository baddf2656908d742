// toyexport converts scene files to the TOY binary scene format.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/toyexport/internal/config"
	"github.com/Faultbox/toyexport/internal/logger"
	"github.com/Faultbox/toyexport/pkg/toy"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "export", "x":
		cmdExport(args)
	case "stats", "info":
		cmdStats(args)
	case "config":
		cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`toyexport - TOY scene exporter

Usage:
  toyexport <command> [options]

Commands:
  export [flags] <input> <output>    Export a scene file to TOY
  stats [flags] <input>              Show scenes, meshes and welded sizes
  config init [path]                 Write the default config file

Inputs:
  .yaml, .yml                        Scene dump
  .gltf, .glb                        glTF 2.0

Export flags:
  -config <file>                     Config file (default: search toyexport.yaml)
  -debug                             Write an indented text dump
  -linear                            Convert colors to linear (format version 4)
  -fps <n>                           glTF animation sampling rate
  -scene <name>                      Export only this glTF scene
  -log-level <level>                 debug, info, warn or error
  -log-file <file>                   Also log to a rotated file

Examples:
  toyexport export level.glb level
  toyexport export -debug rig.yaml out/rig.toy
  toyexport stats -scene Arena level.gltf
  toyexport config init`)
}

func fatal(err error) {
	logger.Error("command failed", zap.Error(err))
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	logger.Sync()
	os.Exit(1)
}

// setup parses the shared flags and returns the loaded config with the
// logger initialized.
func setup(name string, args []string, minArgs int, usage string) (*config.Config, *flag.FlagSet) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	if fs.NArg() < minArgs {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fatal(err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fatal(err)
	}
	logger.Debug("config loaded",
		zap.String("command", name),
		zap.Bool("debug", cfg.Export.Debug),
		zap.Bool("linear_colors", cfg.Export.LinearColors),
		zap.Float32("fps", cfg.GLTF.FPS),
		zap.String("scene", cfg.GLTF.Scene))
	return cfg, fs
}

func cmdExport(args []string) {
	cfg, fs := setup("export", args, 2, "Usage: toyexport export [flags] <input> <output>")
	defer logger.Sync()

	path, stats, err := exportFile(fs.Arg(0), fs.Arg(1), cfg, logger.Named("export"))
	if err != nil {
		fatal(err)
	}
	if path != fs.Arg(1) {
		logger.Warn("output path changed to match the format",
			zap.String("requested", fs.Arg(1)),
			zap.String("written", path))
	}

	logger.Info("export complete",
		zap.String("input", fs.Arg(0)),
		zap.String("output", path),
		zap.Int("scenes", stats.Scenes),
		zap.Int("meshes", stats.Meshes),
		zap.Int("entities", stats.Entities))

	fmt.Printf("Wrote %s\n", path)
	fmt.Printf("  Scenes:     %d\n", stats.Scenes)
	fmt.Printf("  Meshes:     %d (%d vertices, %d triangles)\n", stats.Meshes, stats.Vertices, stats.Triangles)
	fmt.Printf("  Entities:   %d\n", stats.Entities)
	fmt.Printf("  Animations: %d\n", stats.Animations)
}

func cmdStats(args []string) {
	cfg, fs := setup("stats", args, 1, "Usage: toyexport stats [flags] <input>")
	defer logger.Sync()

	log := logger.Named("stats")
	p, err := loadProject(fs.Arg(0), cfg, log)
	if err != nil {
		fatal(err)
	}
	report, err := projectStats(p, cfg.Export.LinearColors, log)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("Input: %s\n", fs.Arg(0))
	fmt.Printf("Up:    %s\n", p.Up)
	fmt.Println()
	for _, s := range report.scenes {
		fmt.Printf("Scene %q: %d objects, %d meshes, %d faces\n", s.name, s.objects, s.meshes, s.faces)
	}
	if len(report.meshes) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Meshes:")
	for _, m := range report.meshes {
		fmt.Printf("  %-24s %6d corners -> %6d vertices, %6d triangles", m.name, m.corners, m.vertices, m.triangles)
		if m.bones > 0 {
			fmt.Printf(", %d bones, %d animations", m.bones, m.animations)
		}
		fmt.Println()
	}
}

func cmdConfig(args []string) {
	if len(args) < 1 || args[0] != "init" {
		fmt.Fprintln(os.Stderr, "Usage: toyexport config init [path]")
		os.Exit(1)
	}

	cfg := config.Default()
	if len(args) > 1 {
		if err := cfg.SaveTo(args[1]); err != nil {
			fatal(err)
		}
		fmt.Printf("Wrote %s\n", args[1])
		return
	}

	path, err := cfg.Save()
	if err != nil {
		fatal(err)
	}
	fmt.Printf("Wrote %s\n", path)
}

// exportOptions maps the export config onto writer options.
func exportOptions(cfg *config.Config, log *zap.Logger) toy.Options {
	return toy.Options{
		Debug:        cfg.Export.Debug,
		LinearColors: cfg.Export.LinearColors,
		Logger:       log.Named("toy"),
	}
}
