package integrator

import (
	"math"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/geometry"
	"github.com/df07/go-pathtracer/pkg/material"
)

// ShadowEpsilon is the minimum hit distance for secondary rays; it keeps a
// scattered ray from re-hitting the surface it starts on.
const ShadowEpsilon = 0.001

// PathTracingIntegrator implements unidirectional path tracing with uniform scattering
type PathTracingIntegrator struct {
	config     core.SamplingConfig
	background Background
}

// NewPathTracingIntegrator creates a new path tracing integrator with the sky background
func NewPathTracingIntegrator(config core.SamplingConfig) *PathTracingIntegrator {
	return &PathTracingIntegrator{
		config:     config,
		background: NewSkyBackground(),
	}
}

// WithBackground returns a copy of the integrator using a different background
func (pt *PathTracingIntegrator) WithBackground(background Background) *PathTracingIntegrator {
	return &PathTracingIntegrator{config: pt.config, background: background}
}

// MaxDepth returns the bounce limit
func (pt *PathTracingIntegrator) MaxDepth() int {
	return pt.config.MaxDepth
}

// RayColor computes the color for a single ray, bounded by the configured max depth
func (pt *PathTracingIntegrator) RayColor(ray core.Ray, world geometry.Shape, sampler core.Sampler) core.Color {
	return pt.rayColor(ray, world, sampler, pt.config.MaxDepth)
}

func (pt *PathTracingIntegrator) rayColor(ray core.Ray, world geometry.Shape, sampler core.Sampler, depth int) core.Color {
	// If we've exceeded the ray bounce limit, no more light is gathered
	if depth <= 0 {
		return core.Color{}
	}

	hit, isHit := world.Hit(ray, ShadowEpsilon, math.Inf(1))
	if !isHit {
		return pt.background.Color(ray)
	}

	if hit.Material == nil {
		return NormalColor(hit)
	}

	scatter, didScatter := hit.Material.Scatter(ray, *hit, sampler)
	if !didScatter {
		return core.Color{}
	}

	return scatter.Attenuation.MultiplyVec(pt.rayColor(scatter.Scattered, world, sampler, depth-1))
}

// NormalColor maps a unit surface normal to an RGB color in [0,1]
func NormalColor(hit *material.HitRecord) core.Color {
	return hit.Normal.Add(core.NewVec3(1, 1, 1)).Multiply(0.5)
}
