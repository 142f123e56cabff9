package core

// SamplingConfig contains rendering configuration
type SamplingConfig struct {
	SamplesPerPixel int // Number of rays per pixel, must be > 0
	MaxDepth        int // Maximum ray bounce depth, >= 0
}

// DefaultSamplingConfig returns sensible default values
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		SamplesPerPixel: 100,
		MaxDepth:        50,
	}
}

// SamplingOverride holds optional replacements for a SamplingConfig.
// MaxDepth is a pointer because a depth of 0 is a valid request (every ray returns black).
type SamplingOverride struct {
	SamplesPerPixel int  // 0 keeps the base value
	MaxDepth        *int // nil keeps the base value
}

// Apply returns a copy of c with the set fields of override applied
func (c SamplingConfig) Apply(override SamplingOverride) SamplingConfig {
	if override.SamplesPerPixel != 0 {
		c.SamplesPerPixel = override.SamplesPerPixel
	}
	if override.MaxDepth != nil {
		c.MaxDepth = *override.MaxDepth
	}
	return c
}
