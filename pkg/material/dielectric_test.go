package material

import (
	"math"
	"math/rand"
	"testing"

	"github.com/df07/go-pathtracer/pkg/core"
)

func TestDielectric_RefractsEnteringRay(t *testing.T) {
	glass := NewDielectric(1.5)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

	rayDirection := core.NewVec3(1, -1, 0).Normalize() // 45-degree angle
	ray := core.NewRay(core.NewVec3(-1, 1, 0), rayDirection)
	hit := HitRecord{
		Point:     core.NewVec3(0, 0, 0),
		Normal:    core.NewVec3(0, 1, 0),
		T:         1.0,
		FrontFace: true,
		Material:  glass,
	}

	result, scattered := glass.Scatter(ray, hit, sampler)
	if !scattered {
		t.Fatal("Dielectric should always scatter")
	}

	expectedAttenuation := core.NewColor(1.0, 1.0, 1.0)
	if result.Attenuation != expectedAttenuation {
		t.Errorf("Expected attenuation %v, got %v", expectedAttenuation, result.Attenuation)
	}

	dir := result.Scattered.Direction.Normalize()
	if dir.Y >= 0 {
		t.Fatalf("Refracted ray should continue into the glass, got %v", dir)
	}

	// Entering glass bends the ray toward the normal
	sinIn := math.Sqrt(0.5)
	sinOut := math.Sqrt(1 - dir.Y*dir.Y)
	if math.Abs(sinOut-sinIn/1.5) > 1e-9 {
		t.Errorf("Expected sin(theta_t) %f, got %f", sinIn/1.5, sinOut)
	}
}

func TestDielectric_TotalInternalReflection(t *testing.T) {
	glass := NewDielectric(1.5)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(42)))

	// Grazing ray leaving the glass; the hit normal faces the ray
	rayDirection := core.NewVec3(1, -0.1, 0).Normalize()
	ray := core.NewRay(core.NewVec3(0, 0.1, 0), rayDirection)
	hit := HitRecord{
		Point:     core.NewVec3(1, 0, 0),
		Normal:    core.NewVec3(0, 1, 0),
		T:         1.0,
		FrontFace: false,
		Material:  glass,
	}

	cosTheta := -rayDirection.Dot(hit.Normal)
	sinTheta := math.Sqrt(1.0 - cosTheta*cosTheta)
	if !CannotRefract(sinTheta, 1.5) {
		t.Fatal("Test setup should trigger total internal reflection")
	}

	for i := 0; i < 10; i++ {
		result, scattered := glass.Scatter(ray, hit, sampler)
		if !scattered {
			t.Fatal("Dielectric should always scatter")
		}
		expected := rayDirection.Reflect(hit.Normal)
		if !result.Scattered.Direction.ApproxEquals(expected, 1e-12) {
			t.Errorf("Expected reflection %v, got %v", expected, result.Scattered.Direction)
		}
	}
}

func TestDielectric_RefractionRatioFollowsFace(t *testing.T) {
	glass := NewDielectric(1.5)
	sampler := core.NewRandomSampler(rand.New(rand.NewSource(1)))
	rayDirection := core.NewVec3(0.3, -1, 0).Normalize()
	ray := core.NewRay(core.NewVec3(0, 1, 0), rayDirection)

	front := HitRecord{Normal: core.NewVec3(0, 1, 0), FrontFace: true}
	back := HitRecord{Normal: core.NewVec3(0, 1, 0), FrontFace: false}

	entering, _ := glass.Scatter(ray, front, sampler)
	exiting, _ := glass.Scatter(ray, back, sampler)

	// Entering bends toward the normal, exiting bends away from it
	inX := math.Abs(entering.Scattered.Direction.Normalize().X)
	outX := math.Abs(exiting.Scattered.Direction.Normalize().X)
	if !(inX < rayDirection.X && outX > rayDirection.X) {
		t.Errorf("Unexpected bending: incident %f, entering %f, exiting %f", rayDirection.X, inX, outX)
	}
}
