package core

import "math"

// LinearToGamma converts a linear light component to display space (gamma 2)
func LinearToGamma(linear float64) float64 {
	if linear <= 0 {
		return 0
	}
	return math.Sqrt(linear)
}

// GammaToLinear is the inverse of LinearToGamma
func GammaToLinear(gamma float64) float64 {
	return gamma * gamma
}

// GammaCorrect applies LinearToGamma to every channel
func (v Vec3) GammaCorrect() Vec3 {
	return Vec3{
		X: LinearToGamma(v.X),
		Y: LinearToGamma(v.Y),
		Z: LinearToGamma(v.Z),
	}
}
