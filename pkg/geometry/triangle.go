package geometry

import (
	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/material"
)

// areaSlack is the relative tolerance of the point-in-triangle area test
const areaSlack = 1e-9

// Triangle represents a single triangle defined by three vertices.
// The triangle is single sided: hits always report FrontFace.
type Triangle struct {
	V0, V1, V2 core.Vec3         // The three vertices
	Material   material.Material // Material of the triangle

	edge1, edge2 core.Vec3 // V1-V0 and V2-V0
	normal       core.Vec3 // Cached unit plane normal
	d            float64   // Plane offset: dot(normal, V0)
	doubleArea   float64   // |edge1 x edge2|
}

// NewTriangle creates a new triangle from three vertices.
// The vertices must not be collinear.
func NewTriangle(v0, v1, v2 core.Vec3, material material.Material) *Triangle {
	t := &Triangle{
		V0:       v0,
		V1:       v1,
		V2:       v2,
		Material: material,
	}
	t.computeEdges()
	t.normal = t.edge1.Cross(t.edge2).Normalize()
	t.d = t.normal.Dot(t.V0)
	return t
}

// NewTriangleWithNormal creates a new triangle from three vertices with a custom normal
func NewTriangleWithNormal(v0, v1, v2 core.Vec3, normal core.Vec3, material material.Material) *Triangle {
	t := &Triangle{
		V0:       v0,
		V1:       v1,
		V2:       v2,
		Material: material,
		normal:   normal.Normalize(),
	}
	t.computeEdges()
	t.d = t.normal.Dot(t.V0)
	return t
}

// computeEdges caches the edge vectors and the doubled area
func (t *Triangle) computeEdges() {
	t.edge1 = t.V1.Subtract(t.V0)
	t.edge2 = t.V2.Subtract(t.V0)
	t.doubleArea = t.edge1.Cross(t.edge2).Length()
}

// Hit tests if a ray intersects with the triangle's plane inside its edges
func (t *Triangle) Hit(ray core.Ray, tMin, tMax float64) (*material.HitRecord, bool) {
	normal, d := t.normal, t.d

	// Orient the plane against the ray
	if normal.Dot(ray.Direction) > 0 {
		normal = normal.Negate()
		d = -d
	}

	denom := normal.Dot(ray.Direction)
	if denom >= 0 {
		// Parallel to the plane
		return nil, false
	}

	root := (d - normal.Dot(ray.Origin)) / denom
	if root < tMin || root > tMax {
		return nil, false
	}

	point := ray.At(root)
	if !t.contains(point) {
		return nil, false
	}

	return &material.HitRecord{
		Point:     point,
		Normal:    normal,
		T:         root,
		FrontFace: true,
		Material:  t.Material,
	}, true
}

// contains reports whether a point on the triangle's plane lies inside it.
// The three sub-triangles formed with each edge cover exactly the triangle
// only when the point is inside, so their doubled areas sum to doubleArea.
func (t *Triangle) contains(p core.Vec3) bool {
	a0 := t.V1.Subtract(t.V0).Cross(p.Subtract(t.V0)).Length()
	a1 := t.V2.Subtract(t.V1).Cross(p.Subtract(t.V1)).Length()
	a2 := t.V0.Subtract(t.V2).Cross(p.Subtract(t.V2)).Length()
	return a0+a1+a2 <= t.doubleArea*(1+areaSlack)
}

// GetNormal returns the triangle's normal vector
func (t *Triangle) GetNormal() core.Vec3 {
	return t.normal
}

// Direction names an axis-aligned move relative to the default camera,
// which looks down -Z with +Y up.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
	Forward  // toward the viewer (+Z)
	Backward // away from the viewer (-Z)
)

// Vector returns the unit vector for the direction
func (d Direction) Vector() core.Vec3 {
	switch d {
	case Left:
		return core.NewVec3(-1, 0, 0)
	case Right:
		return core.NewVec3(1, 0, 0)
	case Up:
		return core.NewVec3(0, 1, 0)
	case Down:
		return core.NewVec3(0, -1, 0)
	case Forward:
		return core.NewVec3(0, 0, 1)
	case Backward:
		return core.NewVec3(0, 0, -1)
	}
	return core.Vec3{}
}

// Translate returns a copy of the triangle shifted by offset
func (t *Triangle) Translate(offset core.Vec3) *Triangle {
	return t.transform(func(v core.Vec3) core.Vec3 { return v.Add(offset) })
}

// Move returns a copy of the triangle shifted amount units in the given direction
func (t *Triangle) Move(direction Direction, amount float64) *Triangle {
	return t.Translate(direction.Vector().Multiply(amount))
}

// Scale returns a copy of the triangle with every vertex scaled about the origin
func (t *Triangle) Scale(factor float64) *Triangle {
	return t.transform(func(v core.Vec3) core.Vec3 { return v.Multiply(factor) })
}

// transform applies a uniform scale or translation to every vertex.
// Both keep the plane direction, so the cached normal carries over.
func (t *Triangle) transform(fn func(core.Vec3) core.Vec3) *Triangle {
	moved := &Triangle{
		V0:       fn(t.V0),
		V1:       fn(t.V1),
		V2:       fn(t.V2),
		Material: t.Material,
		normal:   t.normal,
	}
	moved.computeEdges()
	moved.d = moved.normal.Dot(moved.V0)
	return moved
}
