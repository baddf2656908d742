package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/toyexport/internal/config"
	"github.com/Faultbox/toyexport/internal/source/gltfscene"
	"github.com/Faultbox/toyexport/internal/source/yamlscene"
	"github.com/Faultbox/toyexport/pkg/toy"
)

var errUnsupportedInput = errors.New("unsupported input format")

// loadProject reads a scene file, choosing the source by extension.
func loadProject(path string, cfg *config.Config, log *zap.Logger) (*toy.Project, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yamlscene.Load(path, log.Named("yaml"))
	case ".gltf", ".glb":
		return gltfscene.Load(path, gltfscene.Options{
			FPS:    cfg.GLTF.FPS,
			Scene:  cfg.GLTF.Scene,
			Logger: log.Named("gltf"),
		})
	default:
		return nil, fmt.Errorf("%w: %q (want .yaml, .yml, .gltf or .glb)", errUnsupportedInput, ext)
	}
}

// exportFile converts input and writes it to output, returning the path
// actually written. The file only appears once the export succeeded.
func exportFile(input, output string, cfg *config.Config, log *zap.Logger) (string, toy.Stats, error) {
	p, err := loadProject(input, cfg, log)
	if err != nil {
		return "", toy.Stats{}, err
	}

	path := output
	if cfg.Export.FixSuffix {
		path = toy.OutputPath(output, cfg.Export.Debug)
	}

	var stats toy.Stats
	err = writeAtomic(path, func(f *os.File) error {
		var err error
		stats, err = toy.Export(f, p, exportOptions(cfg, log))
		return err
	})
	if err != nil {
		return "", toy.Stats{}, err
	}
	return path, stats, nil
}

// writeAtomic writes through a temp file in the target directory and renames
// it over path on success.
func writeAtomic(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

type sceneReport struct {
	name    string
	objects int
	meshes  int
	faces   int
}

type meshReport struct {
	name       string
	corners    int
	vertices   int
	triangles  int
	bones      int
	animations int
}

type report struct {
	scenes []sceneReport
	meshes []meshReport
}

// projectStats welds every distinct mesh without writing anything.
func projectStats(p *toy.Project, linear bool, log *zap.Logger) (*report, error) {
	r := &report{}
	seen := make(map[*toy.MeshSource]bool)

	for _, s := range p.Scenes {
		sr := sceneReport{name: s.Name, objects: len(s.Objects)}
		sceneMeshes := make(map[*toy.MeshSource]bool)
		for _, obj := range s.Objects {
			if obj.Kind != toy.ObjectMesh || obj.Mesh == nil {
				continue
			}
			if !sceneMeshes[obj.Mesh] {
				sceneMeshes[obj.Mesh] = true
				sr.meshes++
				sr.faces += obj.Mesh.FaceCount()
			}
			if seen[obj.Mesh] {
				continue
			}
			seen[obj.Mesh] = true

			m, err := toy.CollectMesh(obj.Mesh, toy.CollectOptions{
				Basis:        p.Up,
				LinearColors: linear,
				Logger:       log.Named("toy"),
			})
			if err != nil {
				return nil, fmt.Errorf("mesh %q: %w", obj.Mesh.Name, err)
			}
			mr := meshReport{
				name:      m.Name,
				corners:   obj.Mesh.CornerCount(),
				vertices:  len(m.Positions),
				triangles: m.TriangleCount(),
			}
			if m.Skin != nil {
				mr.bones = len(m.Skin.Bones)
				mr.animations = len(m.Skin.Animations)
			}
			r.meshes = append(r.meshes, mr)
		}
		r.scenes = append(r.scenes, sr)
	}
	return r, nil
}
