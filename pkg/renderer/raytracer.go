package renderer

import (
	"image"
	"image/color"
	"math"
	"math/rand"
	"time"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/geometry"
	"github.com/df07/go-pathtracer/pkg/integrator"
)

// RowProgress is reported once for every finished row
type RowProgress struct {
	Row       int // Index of the row that just finished
	Completed int // Rows finished so far, including this one
	Total     int // Rows in the image
}

// RenderConfig controls how a render is scheduled
type RenderConfig struct {
	NumWorkers int               // Number of parallel workers (0 = use CPU count)
	Seed       int64             // Base seed for per-row generators (0 = seed from the clock)
	Progress   func(RowProgress) // Optional, never called concurrently with itself
	Logger     core.Logger       // Optional, defaults to discarding output
}

// Raytracer renders a world through a camera, one row per task
type Raytracer struct {
	camera     *Camera
	world      geometry.Shape
	integrator integrator.Integrator
	sampling   core.SamplingConfig
	config     RenderConfig
	logger     core.Logger
}

// NewRaytracer creates a new raytracer
func NewRaytracer(camera *Camera, world geometry.Shape, integ integrator.Integrator, sampling core.SamplingConfig, config RenderConfig) *Raytracer {
	logger := config.Logger
	if logger == nil {
		logger = core.NopLogger{}
	}
	if sampling.SamplesPerPixel <= 0 {
		sampling.SamplesPerPixel = 1
	}
	return &Raytracer{
		camera:     camera,
		world:      world,
		integrator: integ,
		sampling:   sampling,
		config:     config,
		logger:     logger,
	}
}

// Camera returns the camera the raytracer renders through
func (rt *Raytracer) Camera() *Camera {
	return rt.camera
}

// Render renders every pixel and returns the quantized image
func (rt *Raytracer) Render() (*image.RGBA, RenderStats) {
	pixels, stats := rt.RenderPixels()

	img := image.NewRGBA(image.Rect(0, 0, rt.camera.Width(), rt.camera.Height()))
	for j, row := range pixels {
		for i := range row {
			img.SetRGBA(i, j, ToRGBA(row[i].GetColor()))
		}
	}
	return img, stats
}

// RenderPixels renders every pixel and returns the linear per-pixel accumulators, indexed [row][column]
func (rt *Raytracer) RenderPixels() ([][]PixelStats, RenderStats) {
	start := time.Now()
	width, height := rt.camera.Width(), rt.camera.Height()

	pixelStats := make([][]PixelStats, height)
	for y := range pixelStats {
		pixelStats[y] = make([]PixelStats, width)
	}

	pool := NewWorkerPool(rt, height, rt.config.NumWorkers)
	rt.logger.Printf("Rendering %dx%d at %d samples per pixel, max depth %d (using %d workers)...\n",
		width, height, rt.sampling.SamplesPerPixel, rt.integratorDepth(), pool.GetNumWorkers())

	pool.Start()
	for j := 0; j < height; j++ {
		pool.SubmitTask(RowTask{
			Row:    j,
			Pixels: pixelStats[j],
			Random: rand.New(rand.NewSource(rt.rowSeed(j))),
		})
	}

	stats := RenderStats{Workers: pool.GetNumWorkers()}
	for completed := 1; completed <= height; completed++ {
		result, ok := pool.GetResult()
		if !ok {
			break
		}
		stats.merge(result.Stats)
		if rt.config.Progress != nil {
			rt.config.Progress(RowProgress{Row: result.Row, Completed: completed, Total: height})
		}
	}
	pool.Stop()

	stats.finalize()
	stats.Duration = time.Since(start)
	rt.logger.Printf("Done: %d pixels, %d samples in %v\n", stats.TotalPixels, stats.TotalSamples, stats.Duration)
	return pixelStats, stats
}

// RenderRow samples every pixel of row j into pixels using random as the only randomness source
func (rt *Raytracer) RenderRow(j int, pixels []PixelStats, random *rand.Rand) RenderStats {
	sampler := core.NewRandomSampler(random)
	stats := RenderStats{Rows: 1}

	for i := range pixels {
		ps := &pixels[i]
		for s := 0; s < rt.sampling.SamplesPerPixel; s++ {
			ray := rt.camera.GetRay(i, j, sampler)
			ps.AddSample(rt.integrator.RayColor(ray, rt.world, sampler))
		}
		stats.TotalPixels++
		stats.TotalSamples += rt.sampling.SamplesPerPixel
	}

	return stats
}

// rowSeed derives the generator seed for row j. A zero base seed means unseeded.
func (rt *Raytracer) rowSeed(j int) int64 {
	if rt.config.Seed == 0 {
		return time.Now().UnixNano() + int64(j)
	}
	return rt.config.Seed + int64(j)
}

func (rt *Raytracer) integratorDepth() int {
	if d, ok := rt.integrator.(interface{ MaxDepth() int }); ok {
		return d.MaxDepth()
	}
	return rt.sampling.MaxDepth
}

// ToRGBA converts a linear color to 8-bit RGBA: gamma 2, clamp to [0, 0.999], scale by 256
func ToRGBA(c core.Color) color.RGBA {
	return color.RGBA{
		R: quantize(c.X),
		G: quantize(c.Y),
		B: quantize(c.Z),
		A: 255,
	}
}

func quantize(linear float64) uint8 {
	if math.IsNaN(linear) {
		return 0
	}
	g := core.LinearToGamma(linear)
	return uint8(256 * math.Max(0, math.Min(g, 0.999)))
}
