package toy

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/Faultbox/toyexport/pkg/encoding"
)

// Options configures an export.
type Options struct {
	Debug        bool        // Write a text dump instead of binary
	LinearColors bool        // Convert color layers to linear; writes VersionLinearColors
	Logger       *zap.Logger // Defaults to a no-op logger
}

// Stats summarizes what an export wrote.
type Stats struct {
	Scenes     int
	Meshes     int
	Entities   int
	Vertices   int
	Triangles  int
	Animations int
}

// Exporter writes one TOY file. It owns the mesh and entity id tables for
// the whole file, so a mesh or object shared by several scenes is written
// once and referenced by id everywhere else. Use a new Exporter per file.
type Exporter struct {
	w         *Writer
	opts      Options
	log       *zap.Logger
	meshIDs   map[*MeshSource]int
	entityIDs map[*Object]int
	stats     Stats
}

// NewExporter creates an exporter writing to sink.
func NewExporter(sink io.Writer, opts Options) *Exporter {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Exporter{
		w:         NewWriter(sink, opts.Debug),
		opts:      opts,
		log:       log,
		meshIDs:   make(map[*MeshSource]int),
		entityIDs: make(map[*Object]int),
	}
}

// Export writes a complete project to sink.
func Export(sink io.Writer, p *Project, opts Options) (Stats, error) {
	return NewExporter(sink, opts).Export(p)
}

// Version returns the format version this exporter writes.
func (e *Exporter) Version() uint8 {
	if e.opts.LinearColors {
		return VersionLinearColors
	}
	return Version
}

// Export writes the header and every scene in order, then flushes the file.
// On error nothing reaches the sink.
func (e *Exporter) Export(p *Project) (Stats, error) {
	e.w.WriteMagic(e.Version())

	for _, s := range p.Scenes {
		if err := e.writeScene(p, s); err != nil {
			return e.stats, fmt.Errorf("scene %q: %w", s.Name, err)
		}
	}

	if err := e.w.Close(); err != nil {
		return e.stats, err
	}

	e.log.Info("export finished",
		zap.Uint8("version", e.Version()),
		zap.Int("scenes", e.stats.Scenes),
		zap.Int("meshes", e.stats.Meshes),
		zap.Int("entities", e.stats.Entities))
	return e.stats, nil
}

// writeScene writes the meshes first seen in this scene, the entities first
// seen in this scene, and the SCNE section listing all of the scene's
// entities.
func (e *Exporter) writeScene(p *Project, s *SceneSource) error {
	for _, obj := range s.Objects {
		if obj.Kind != ObjectMesh || obj.Mesh == nil {
			continue
		}
		if _, seen := e.meshIDs[obj.Mesh]; seen {
			continue
		}

		id := len(e.meshIDs) + 1
		if id > MaxMeshes {
			return fmt.Errorf("%w: object %q", ErrTooManyMeshes, obj.Name)
		}
		e.meshIDs[obj.Mesh] = id

		mesh, err := CollectMesh(obj.Mesh, CollectOptions{
			Basis:        p.Up,
			LinearColors: e.opts.LinearColors,
			Logger:       e.log.With(zap.Int("mesh_id", id)),
		})
		if err != nil {
			return fmt.Errorf("object %q: %w", obj.Name, err)
		}
		if err := WriteMesh(e.w, mesh); err != nil {
			return fmt.Errorf("object %q: %w", obj.Name, err)
		}

		e.stats.Meshes++
		e.stats.Vertices += len(mesh.Positions)
		e.stats.Triangles += mesh.TriangleCount()
		if mesh.Skin != nil {
			e.stats.Animations += len(mesh.Skin.Animations)
		}
	}

	scene := Scene{Name: encoding.NormalizeName(s.Name)}
	for _, obj := range s.Objects {
		if obj.Kind == ObjectArmature {
			continue
		}
		if id, seen := e.entityIDs[obj]; seen {
			scene.EntityIDs = append(scene.EntityIDs, id)
			continue
		}

		id := len(e.entityIDs) + 1
		e.entityIDs[obj] = id
		scene.EntityIDs = append(scene.EntityIDs, id)

		ent := Entity{
			Name:     encoding.NormalizeName(obj.Name),
			ID:       id,
			Position: p.Up.Point(obj.Location),
			Rotation: p.Up.Rotation(obj.Rotation),
			Scale:    p.Up.Scale(obj.Scale),
		}
		if obj.Kind == ObjectMesh && obj.Mesh != nil {
			ent.MeshID = e.meshIDs[obj.Mesh]
		}
		if err := WriteEntity(e.w, ent); err != nil {
			return err
		}
		e.stats.Entities++
	}

	if err := WriteScene(e.w, scene); err != nil {
		return err
	}
	e.stats.Scenes++

	e.log.Debug("wrote scene",
		zap.String("scene", scene.Name),
		zap.Int("entities", len(scene.EntityIDs)))
	return nil
}

// WriteEntity writes an ENTY section.
func WriteEntity(w *Writer, ent Entity) error {
	w.StartSection(TagEntity)
	w.WriteString(ent.Name)
	w.WriteV3(ent.Position)
	w.WriteQuat(ent.Rotation)
	w.WriteV3(ent.Scale)
	w.WriteU16(ent.MeshID)
	w.EndSection()

	if err := w.Err(); err != nil {
		return fmt.Errorf("entity %q: %w", ent.Name, err)
	}
	return nil
}

// WriteScene writes a SCNE section.
func WriteScene(w *Writer, s Scene) error {
	w.StartSection(TagScene)
	w.WriteString(s.Name)
	w.WriteU32(len(s.EntityIDs))
	for _, id := range s.EntityIDs {
		w.WriteU32(id)
	}
	w.EndSection()

	if err := w.Err(); err != nil {
		return fmt.Errorf("scene %q: %w", s.Name, err)
	}
	return nil
}
