package scene

import (
	"errors"
	"fmt"
	"sort"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/geometry"
	"github.com/df07/go-pathtracer/pkg/integrator"
	"github.com/df07/go-pathtracer/pkg/material"
	"github.com/df07/go-pathtracer/pkg/renderer"
)

// ErrUnknownScene is returned when a scene name has no builder
var ErrUnknownScene = errors.New("unknown scene")

// Scene contains all the elements needed for rendering
type Scene struct {
	Name           string
	World          *geometry.HittableList // Objects in the scene, searched linearly
	CameraConfig   renderer.CameraConfig
	SamplingConfig core.SamplingConfig
	Background     integrator.Background
}

// MeshTriangle is a flat triangle as delivered by a model loader:
// three positions, one normal and a base color
type MeshTriangle struct {
	V0, V1, V2 core.Vec3
	Normal     core.Vec3 // Zero means derive from the winding
	BaseColor  core.Color
}

// New creates an empty scene with the default camera, sampling and sky
func New(name string) *Scene {
	return &Scene{
		Name:           name,
		World:          geometry.NewHittableList(),
		CameraConfig:   renderer.DefaultCameraConfig(),
		SamplingConfig: core.DefaultSamplingConfig(),
		Background:     integrator.NewSkyBackground(),
	}
}

// Add appends shapes to the world
func (s *Scene) Add(shapes ...geometry.Shape) {
	s.World.Add(shapes...)
}

// AddMesh converts loader triangles into one Lambertian triangle mesh. Every vertex
// becomes p*scale + offset (scale 0 means 1). Triangles with no area are skipped.
// It returns the number of triangles added.
func (s *Scene) AddMesh(tris []MeshTriangle, scale float64, offset core.Vec3) int {
	vertices := make([]core.Vec3, 0, len(tris)*3)
	faces := make([]int, 0, len(tris)*3)
	normals := make([]core.Vec3, 0, len(tris))
	materials := make([]material.Material, 0, len(tris))

	// Triangles sharing a base color share one material
	byColor := make(map[core.Color]material.Material)

	for _, tri := range tris {
		winding := tri.V1.Subtract(tri.V0).Cross(tri.V2.Subtract(tri.V0))
		if winding.NearZero() {
			continue
		}
		normal := tri.Normal
		if normal.NearZero() {
			normal = winding
		}

		mat, ok := byColor[tri.BaseColor]
		if !ok {
			mat = material.NewLambertian(tri.BaseColor)
			byColor[tri.BaseColor] = mat
		}

		base := len(vertices)
		vertices = append(vertices, tri.V0, tri.V1, tri.V2)
		faces = append(faces, base, base+1, base+2)
		normals = append(normals, normal)
		materials = append(materials, mat)
	}

	if len(normals) == 0 {
		return 0
	}

	mesh := geometry.NewTriangleMesh(vertices, faces, nil, &geometry.TriangleMeshOptions{
		Normals:   normals,
		Materials: materials,
		Scale:     scale,
		Offset:    offset,
	})
	s.Add(mesh)
	return mesh.GetTriangleCount()
}

// GetPrimitiveCount returns the total number of primitive objects in the scene
func (s *Scene) GetPrimitiveCount() int {
	count := 0
	for _, shape := range s.World.Shapes {
		count += countPrimitivesInShape(shape)
	}
	return count
}

// countPrimitivesInShape counts primitives in a single shape, handling composite objects
func countPrimitivesInShape(shape geometry.Shape) int {
	switch obj := shape.(type) {
	case *geometry.TriangleMesh:
		return obj.GetTriangleCount()
	case *geometry.HittableList:
		count := 0
		for _, child := range obj.Shapes {
			count += countPrimitivesInShape(child)
		}
		return count
	default:
		return 1
	}
}

// NewRaytracer wires the scene's camera, world and background into a raytracer.
// Non-zero fields of the overrides replace the scene's own configuration.
func (s *Scene) NewRaytracer(camera renderer.CameraConfig, sampling core.SamplingOverride, config renderer.RenderConfig) (*renderer.Raytracer, error) {
	cameraConfig := s.CameraConfig.Merge(camera)
	if err := cameraConfig.Validate(); err != nil {
		return nil, fmt.Errorf("scene %q: %w", s.Name, err)
	}
	samplingConfig := s.SamplingConfig.Apply(sampling)
	if samplingConfig.SamplesPerPixel <= 0 {
		return nil, fmt.Errorf("scene %q: samples per pixel must be positive, got %d", s.Name, samplingConfig.SamplesPerPixel)
	}
	if samplingConfig.MaxDepth < 0 {
		return nil, fmt.Errorf("scene %q: max depth must not be negative, got %d", s.Name, samplingConfig.MaxDepth)
	}

	integ := integrator.NewPathTracingIntegrator(samplingConfig)
	if s.Background != nil {
		integ = integ.WithBackground(s.Background)
	}
	return renderer.NewRaytracer(renderer.NewCamera(cameraConfig), s.World, integ, samplingConfig, config), nil
}

// builders maps built-in scene names to their constructors
var builders = map[string]func() *Scene{
	"default":   NewDefaultScene,
	"spheres":   NewSpheresScene,
	"empty":     NewEmptyScene,
	"triangles": NewTrianglesScene,
	"normals":   NewNormalsScene,
}

// NewScene builds the named built-in scene
func NewScene(name string) (*Scene, error) {
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownScene, name, Names())
	}
	return build(), nil
}

// Names lists the built-in scenes in alphabetical order
func Names() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
