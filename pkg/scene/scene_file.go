package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/geometry"
	"github.com/df07/go-pathtracer/pkg/integrator"
	"github.com/df07/go-pathtracer/pkg/material"
	"github.com/df07/go-pathtracer/pkg/renderer"
)

// MeshLoader reads a model file into flat triangles
type MeshLoader func(path string) ([]MeshTriangle, error)

// ColorValue is a color in a scene file: either [r, g, b] in linear space or a
// CSS color name such as "skyblue", converted from sRGB with gamma 2
type ColorValue core.Color

// UnmarshalJSON implements json.Unmarshaler
func (c *ColorValue) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		rgba, ok := colornames.Map[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return fmt.Errorf("unknown color name %q", name)
		}
		*c = ColorValue(core.NewColor(
			core.GammaToLinear(float64(rgba.R)/255),
			core.GammaToLinear(float64(rgba.G)/255),
			core.GammaToLinear(float64(rgba.B)/255),
		))
		return nil
	}

	var rgb [3]float64
	if err := json.Unmarshal(data, &rgb); err != nil {
		return fmt.Errorf("color must be a name or [r, g, b]: %w", err)
	}
	*c = ColorValue(core.NewColor(rgb[0], rgb[1], rgb[2]))
	return nil
}

// File is the JSON layout of a scene file
type File struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description,omitempty"`
	Camera      *CameraSpec             `json:"camera,omitempty"`
	Sampling    *SamplingSpec           `json:"sampling,omitempty"`
	Background  *BackgroundSpec         `json:"background,omitempty"`
	Materials   map[string]MaterialSpec `json:"materials,omitempty"`
	Spheres     []SphereSpec            `json:"spheres,omitempty"`
	Triangles   []TriangleSpec          `json:"triangles,omitempty"`
	Meshes      []MeshSpec              `json:"meshes,omitempty"`
}

// CameraSpec overrides the default camera
type CameraSpec struct {
	Width       int        `json:"width,omitempty"`
	AspectRatio float64    `json:"aspectRatio,omitempty"`
	Center      [3]float64 `json:"center"`
	FocalLength float64    `json:"focalLength,omitempty"`
}

// SamplingSpec overrides the default sampling configuration
type SamplingSpec struct {
	SamplesPerPixel int  `json:"samplesPerPixel,omitempty"`
	MaxDepth        *int `json:"maxDepth,omitempty"` // 0 is a valid depth
}

// BackgroundSpec is the vertical sky gradient; a missing end keeps the default sky
type BackgroundSpec struct {
	Top    *ColorValue `json:"top,omitempty"`
	Bottom *ColorValue `json:"bottom,omitempty"`
}

// MaterialSpec describes one named material
type MaterialSpec struct {
	Type   string     `json:"type"` // lambertian, metal, dielectric
	Albedo ColorValue `json:"albedo"`
	Fuzz   float64    `json:"fuzz,omitempty"`
	IOR    float64    `json:"ior,omitempty"`
}

// SphereSpec places a sphere. An empty material renders surface normals.
type SphereSpec struct {
	Center   [3]float64 `json:"center"`
	Radius   float64    `json:"radius"`
	Material string     `json:"material,omitempty"`
}

// TriangleSpec places a triangle, optionally scaled and then moved
type TriangleSpec struct {
	Vertices [3][3]float64 `json:"vertices"`
	Normal   *[3]float64   `json:"normal,omitempty"`
	Material string        `json:"material,omitempty"`
	Scale    float64       `json:"scale,omitempty"`
	Moves    []MoveSpec    `json:"moves,omitempty"`
}

// MoveSpec shifts a triangle along a named direction
type MoveSpec struct {
	Direction string  `json:"direction"` // left, right, up, down, forward, backward
	Amount    float64 `json:"amount"`
}

// MeshSpec imports a model file; relative paths resolve against the scene file
type MeshSpec struct {
	Path   string     `json:"path"`
	Scale  float64    `json:"scale,omitempty"`
	Offset [3]float64 `json:"offset"`
}

// LoadFile reads a JSON scene file. meshLoader may be nil when the file has no meshes.
func LoadFile(path string, meshLoader MeshLoader) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene file: %w", err)
	}

	s, err := Parse(bytes.NewReader(data), filepath.Dir(path), meshLoader)
	if err != nil {
		return nil, fmt.Errorf("scene file %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes a scene from r. Mesh paths are resolved against baseDir.
func Parse(r io.Reader, baseDir string, meshLoader MeshLoader) (*Scene, error) {
	var file File
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("invalid scene JSON: %w", err)
	}
	return file.Build(baseDir, meshLoader)
}

// Build turns the decoded file into a scene
func (f *File) Build(baseDir string, meshLoader MeshLoader) (*Scene, error) {
	s := New(f.Name)

	if f.Camera != nil {
		s.CameraConfig = s.CameraConfig.Merge(f.Camera.config())
		if err := s.CameraConfig.Validate(); err != nil {
			return nil, err
		}
	}
	if f.Sampling != nil {
		if f.Sampling.MaxDepth != nil && *f.Sampling.MaxDepth < 0 {
			return nil, fmt.Errorf("maxDepth must not be negative, got %d", *f.Sampling.MaxDepth)
		}
		s.SamplingConfig = s.SamplingConfig.Apply(core.SamplingOverride{
			SamplesPerPixel: f.Sampling.SamplesPerPixel,
			MaxDepth:        f.Sampling.MaxDepth,
		})
	}
	if f.Background != nil {
		sky := integrator.NewSkyBackground()
		if f.Background.Top != nil {
			sky.Top = core.Color(*f.Background.Top)
		}
		if f.Background.Bottom != nil {
			sky.Bottom = core.Color(*f.Background.Bottom)
		}
		s.Background = sky
	}

	materials := make(map[string]material.Material, len(f.Materials))
	for name, spec := range f.Materials {
		mat, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("material %q: %w", name, err)
		}
		materials[name] = mat
	}
	lookup := func(name string) (material.Material, error) {
		if name == "" {
			return nil, nil
		}
		mat, ok := materials[name]
		if !ok {
			return nil, fmt.Errorf("undefined material %q", name)
		}
		return mat, nil
	}

	for i, spec := range f.Spheres {
		if spec.Radius <= 0 {
			return nil, fmt.Errorf("sphere %d: radius must be positive, got %v", i, spec.Radius)
		}
		mat, err := lookup(spec.Material)
		if err != nil {
			return nil, fmt.Errorf("sphere %d: %w", i, err)
		}
		s.Add(geometry.NewSphere(vec(spec.Center), spec.Radius, mat))
	}

	for i, spec := range f.Triangles {
		tri, err := spec.build(lookup)
		if err != nil {
			return nil, fmt.Errorf("triangle %d: %w", i, err)
		}
		s.Add(tri)
	}

	for i, spec := range f.Meshes {
		if meshLoader == nil {
			return nil, fmt.Errorf("mesh %d: no mesh loader configured", i)
		}
		path := spec.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		tris, err := meshLoader(path)
		if err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
		s.AddMesh(tris, spec.Scale, vec(spec.Offset))
	}

	return s, nil
}

func (c *CameraSpec) config() (cfg renderer.CameraConfig) {
	cfg.Width = c.Width
	cfg.AspectRatio = c.AspectRatio
	cfg.Center = vec(c.Center)
	cfg.FocalLength = c.FocalLength
	return cfg
}

func (m MaterialSpec) build() (material.Material, error) {
	switch strings.ToLower(m.Type) {
	case "lambertian":
		return material.NewLambertian(core.Color(m.Albedo)), nil
	case "metal":
		return material.NewMetal(core.Color(m.Albedo), m.Fuzz), nil
	case "dielectric":
		if m.IOR <= 0 {
			return nil, fmt.Errorf("dielectric needs a positive ior, got %v", m.IOR)
		}
		return material.NewDielectric(m.IOR), nil
	default:
		return nil, fmt.Errorf("unknown material type %q", m.Type)
	}
}

func (t TriangleSpec) build(lookup func(string) (material.Material, error)) (*geometry.Triangle, error) {
	v0, v1, v2 := vec(t.Vertices[0]), vec(t.Vertices[1]), vec(t.Vertices[2])
	if v1.Subtract(v0).Cross(v2.Subtract(v0)).NearZero() {
		return nil, fmt.Errorf("vertices are collinear")
	}
	mat, err := lookup(t.Material)
	if err != nil {
		return nil, err
	}

	var tri *geometry.Triangle
	if t.Normal != nil {
		normal := vec(*t.Normal)
		if normal.NearZero() {
			return nil, fmt.Errorf("normal must be non-zero")
		}
		tri = geometry.NewTriangleWithNormal(v0, v1, v2, normal, mat)
	} else {
		tri = geometry.NewTriangle(v0, v1, v2, mat)
	}

	if t.Scale != 0 {
		tri = tri.Scale(t.Scale)
	}
	for _, move := range t.Moves {
		direction, err := ParseDirection(move.Direction)
		if err != nil {
			return nil, err
		}
		tri = tri.Move(direction, move.Amount)
	}
	return tri, nil
}

// ParseDirection maps a direction name to a geometry.Direction
func ParseDirection(name string) (geometry.Direction, error) {
	switch strings.ToLower(name) {
	case "left":
		return geometry.Left, nil
	case "right":
		return geometry.Right, nil
	case "up":
		return geometry.Up, nil
	case "down":
		return geometry.Down, nil
	case "forward":
		return geometry.Forward, nil
	case "backward":
		return geometry.Backward, nil
	}
	return 0, fmt.Errorf("unknown direction %q", name)
}

func vec(v [3]float64) core.Vec3 {
	return core.NewVec3(v[0], v[1], v[2])
}
