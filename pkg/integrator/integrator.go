package integrator

import (
	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/geometry"
)

// Integrator defines the interface for light transport algorithms
type Integrator interface {
	// RayColor computes the linear color carried back along ray
	RayColor(ray core.Ray, world geometry.Shape, sampler core.Sampler) core.Color
}

// Background supplies the radiance of rays that escape the scene
type Background interface {
	Color(ray core.Ray) core.Color
}

// GradientBackground blends vertically from Bottom (looking down) to Top (looking up)
type GradientBackground struct {
	Bottom core.Color
	Top    core.Color
}

// NewSkyBackground returns the white to sky-blue gradient
func NewSkyBackground() GradientBackground {
	return GradientBackground{
		Bottom: core.NewColor(1.0, 1.0, 1.0),
		Top:    core.NewColor(0.5, 0.7, 1.0),
	}
}

// Color implements Background
func (g GradientBackground) Color(ray core.Ray) core.Color {
	unitDirection := ray.Direction.Normalize()
	a := 0.5 * (unitDirection.Y + 1.0)
	return g.Bottom.Lerp(g.Top, a)
}
