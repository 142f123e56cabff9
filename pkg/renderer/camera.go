package renderer

import (
	"fmt"
	"math"

	"github.com/df07/go-pathtracer/pkg/core"
)

// CameraConfig contains all camera configuration parameters
type CameraConfig struct {
	Center      core.Vec3 // Camera position
	Width       int       // Image width in pixels
	AspectRatio float64   // Width / height ratio
	FocalLength float64   // Distance from center to the viewport, 0 means 1.0
}

// DefaultCameraConfig returns the 400px wide 16:9 camera looking down -Z
func DefaultCameraConfig() CameraConfig {
	return CameraConfig{
		Center:      core.NewVec3(0, 0, 0),
		Width:       400,
		AspectRatio: 16.0 / 9.0,
		FocalLength: 1.0,
	}
}

// Merge returns a copy of c with every non-zero field of override applied
func (c CameraConfig) Merge(override CameraConfig) CameraConfig {
	if override.Center != (core.Vec3{}) {
		c.Center = override.Center
	}
	if override.Width != 0 {
		c.Width = override.Width
	}
	if override.AspectRatio != 0 {
		c.AspectRatio = override.AspectRatio
	}
	if override.FocalLength != 0 {
		c.FocalLength = override.FocalLength
	}
	return c
}

// Validate reports configurations NewCamera cannot build a viewport from
func (c CameraConfig) Validate() error {
	if c.Width <= 0 {
		return fmt.Errorf("camera width must be positive, got %d", c.Width)
	}
	if c.AspectRatio <= 0 || math.IsNaN(c.AspectRatio) || math.IsInf(c.AspectRatio, 0) {
		return fmt.Errorf("camera aspect ratio must be positive and finite, got %v", c.AspectRatio)
	}
	if c.FocalLength < 0 {
		return fmt.Errorf("camera focal length must not be negative, got %v", c.FocalLength)
	}
	return nil
}

// ImageHeight derives the image height from width and aspect ratio, never less than one row
func (c CameraConfig) ImageHeight() int {
	return max(1, int(math.Round(float64(c.Width)/c.AspectRatio)))
}

// Camera generates primary rays through a pixel grid. It is immutable after construction.
type Camera struct {
	center      core.Vec3
	pixel00Loc  core.Vec3 // Center of pixel (0, 0), the upper left corner of the image
	pixelDeltaU core.Vec3 // Offset to the pixel to the right
	pixelDeltaV core.Vec3 // Offset to the pixel below
	width       int
	height      int
}

// NewCamera creates a camera from the given configuration
func NewCamera(config CameraConfig) *Camera {
	width := max(1, config.Width)
	if config.AspectRatio <= 0 {
		config.AspectRatio = 1
	}
	focalLength := config.FocalLength
	if focalLength == 0 {
		focalLength = 1.0
	}
	config.Width = width
	height := config.ImageHeight()

	// Viewport width follows the integer image size, not the requested ratio
	viewportHeight := 2.0
	viewportWidth := viewportHeight * float64(width) / float64(height)

	// Image rows go down the screen, so V points along -Y
	viewportU := core.NewVec3(viewportWidth, 0, 0)
	viewportV := core.NewVec3(0, -viewportHeight, 0)

	pixelDeltaU := viewportU.Divide(float64(width))
	pixelDeltaV := viewportV.Divide(float64(height))

	viewportUpperLeft := config.Center.
		Subtract(core.NewVec3(0, 0, focalLength)).
		Subtract(viewportU.Multiply(0.5)).
		Subtract(viewportV.Multiply(0.5))
	pixel00Loc := viewportUpperLeft.Add(pixelDeltaU.Add(pixelDeltaV).Multiply(0.5))

	return &Camera{
		center:      config.Center,
		pixel00Loc:  pixel00Loc,
		pixelDeltaU: pixelDeltaU,
		pixelDeltaV: pixelDeltaV,
		width:       width,
		height:      height,
	}
}

// Width returns the image width in pixels
func (c *Camera) Width() int { return c.width }

// Height returns the image height in pixels
func (c *Camera) Height() int { return c.height }

// Center returns the camera position
func (c *Camera) Center() core.Vec3 { return c.center }

// GetRay returns a ray through a random point inside pixel (i, j)
func (c *Camera) GetRay(i, j int, sampler core.Sampler) core.Ray {
	u, v := sampler.Get2D()
	return c.rayThrough(float64(i)+u-0.5, float64(j)+v-0.5)
}

// GetRayCenter returns the ray through the exact center of pixel (i, j)
func (c *Camera) GetRayCenter(i, j int) core.Ray {
	return c.rayThrough(float64(i), float64(j))
}

func (c *Camera) rayThrough(x, y float64) core.Ray {
	pixelSample := c.pixel00Loc.
		Add(c.pixelDeltaU.Multiply(x)).
		Add(c.pixelDeltaV.Multiply(y))
	return core.NewRay(c.center, pixelSample.Subtract(c.center))
}
