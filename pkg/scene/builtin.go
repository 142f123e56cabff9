package scene

import (
	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/geometry"
	"github.com/df07/go-pathtracer/pkg/material"
)

// NewDefaultScene creates the demo scene: a matte ground sphere, five spheres in
// matte, metal, fuzzy metal and glass, and a green metal triangle on the left
func NewDefaultScene() *Scene {
	s := New("default")

	matteGrey := material.NewLambertian(core.NewColor(0.3, 0.3, 0.35))
	mattePink := material.NewLambertian(core.NewColor(0.7, 0.3, 0.3))
	metallicPink := material.NewMetal(core.NewColor(0.7, 0.3, 0.3), 0.0)
	metallicGreen := material.NewMetal(core.NewColor(0.8, 0.8, 0.0), 0.0)
	fuzzyGrey := material.NewMetal(core.NewColor(0.5, 0.5, 0.5), 0.3)
	fuzzyYellow := material.NewMetal(core.NewColor(0.8, 0.6, 0.2), 1.0)
	glass := material.NewDielectric(1.5)

	s.Add(
		geometry.NewSphere(core.NewVec3(0, -100.5, -2), 100, matteGrey),
		geometry.NewSphere(core.NewVec3(0, 0, -2), 0.5, mattePink),
		geometry.NewSphere(core.NewVec3(0, 1, -2), 0.5, metallicPink),
		geometry.NewSphere(core.NewVec3(-1, 0, -2), 0.5, fuzzyGrey),
		geometry.NewSphere(core.NewVec3(1, 0, -2), 0.5, fuzzyYellow),
		geometry.NewSphere(core.NewVec3(-0.5, -0.35, -1), 0.15, glass),
	)

	triangle := geometry.NewTriangle(
		core.NewVec3(-1.5, 0.25, -1.5),
		core.NewVec3(-0.8, 0.25, -3.5),
		core.NewVec3(-1.15, 2.0, -2.5),
		metallicGreen,
	).Move(geometry.Left, 0.75)
	s.Add(triangle)

	return s
}

// NewSpheresScene creates the classic three spheres on a yellow-green ground:
// matte blue in the middle, glass on the left, polished gold on the right
func NewSpheresScene() *Scene {
	s := New("spheres")

	ground := material.NewLambertian(core.NewColor(0.8, 0.8, 0.0))
	center := material.NewLambertian(core.NewColor(0.1, 0.2, 0.5))
	left := material.NewDielectric(1.5)
	right := material.NewMetal(core.NewColor(0.8, 0.6, 0.2), 0.0)

	s.Add(
		geometry.NewSphere(core.NewVec3(0, -100.5, -1), 100, ground),
		geometry.NewSphere(core.NewVec3(0, 0, -1.2), 0.5, center),
		geometry.NewSphere(core.NewVec3(-1, 0, -1), 0.5, left),
		geometry.NewSphere(core.NewVec3(1, 0, -1), 0.5, right),
	)
	return s
}

// NewEmptyScene creates a scene with nothing but sky
func NewEmptyScene() *Scene {
	return New("empty")
}

// NewTrianglesScene creates an indexed tetrahedron mesh and a pair of moved
// triangles standing on a matte ground sphere
func NewTrianglesScene() *Scene {
	s := New("triangles")

	ground := material.NewLambertian(core.NewColor(0.5, 0.5, 0.5))
	s.Add(geometry.NewSphere(core.NewVec3(0, -100.5, -2), 100, ground))

	// Tetrahedron sitting on the ground, centered at x=0
	vertices := []core.Vec3{
		core.NewVec3(0, -0.5, -1.5),
		core.NewVec3(0.5, -0.5, -2.3),
		core.NewVec3(-0.5, -0.5, -2.3),
		core.NewVec3(0, 0.5, -2),
	}
	faces := []int{
		0, 1, 3,
		1, 2, 3,
		2, 0, 3,
		0, 2, 1,
	}
	s.Add(geometry.NewTriangleMesh(vertices, faces,
		material.NewLambertian(core.NewColor(0.7, 0.3, 0.3)), nil))

	panel := geometry.NewTriangle(
		core.NewVec3(-0.5, -0.5, -2),
		core.NewVec3(0.5, -0.5, -2),
		core.NewVec3(0, 0.5, -2),
		material.NewMetal(core.NewColor(0.8, 0.8, 0.8), 0.05),
	)
	s.Add(
		panel.Move(geometry.Left, 1.2).Move(geometry.Backward, 0.5),
		panel.Scale(0.8).Move(geometry.Right, 1.2).Move(geometry.Down, 0.1),
	)

	return s
}

// NewNormalsScene creates a single sphere with no material, shaded by its surface normal
func NewNormalsScene() *Scene {
	s := New("normals")
	s.Add(geometry.NewSphere(core.NewVec3(0, 0, -1), 0.5, nil))
	s.SamplingConfig.MaxDepth = 1
	return s
}
