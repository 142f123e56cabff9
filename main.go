package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/loaders"
	"github.com/df07/go-pathtracer/pkg/output"
	"github.com/df07/go-pathtracer/pkg/renderer"
	"github.com/df07/go-pathtracer/pkg/scene"
)

// options holds the parsed command line
type options struct {
	sceneName  string
	sceneFile  string
	meshPath   string
	meshScale  float64
	meshOffset core.Vec3
	width      int
	aspect     float64
	samples    int
	depth      *int // nil keeps the scene default
	workers    int
	seed       int64
	output     string
	outputDir  string
	watch      bool
	list       bool
	scenesDir  string
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger := core.NewDefaultLogger()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	var meshOffset string
	var depth int

	fs := flag.NewFlagSet("pathtracer", flag.ContinueOnError)
	fs.StringVar(&opts.sceneName, "scene", "default", "Built-in scene: "+strings.Join(scene.Names(), ", "))
	fs.StringVar(&opts.sceneFile, "scene-file", "", "JSON scene file (overrides -scene)")
	fs.StringVar(&opts.meshPath, "mesh", "", "PLY model to add to the scene")
	fs.Float64Var(&opts.meshScale, "mesh-scale", 1, "Uniform scale applied to the model")
	fs.StringVar(&meshOffset, "mesh-offset", "0,0,0", "Translation applied to the model after scaling, as x,y,z")
	fs.IntVar(&opts.width, "width", 0, "Image width in pixels (0 = scene default)")
	fs.Float64Var(&opts.aspect, "aspect", 0, "Aspect ratio width/height (0 = scene default)")
	fs.IntVar(&opts.samples, "samples", 0, "Samples per pixel (0 = scene default)")
	fs.IntVar(&depth, "depth", -1, "Maximum ray bounce depth, 0 renders black (-1 = scene default)")
	fs.IntVar(&opts.workers, "workers", 0, "Number of parallel workers (0 = CPU count)")
	fs.Int64Var(&opts.seed, "seed", 0, "Random seed for a reproducible image (0 = time based)")
	fs.StringVar(&opts.output, "o", "", "Output file, .ppm or .png (default output/<scene>/render_<timestamp>.png)")
	fs.StringVar(&opts.outputDir, "output-dir", "output", "Directory for timestamped renders when -o is not set")
	fs.BoolVar(&opts.watch, "watch", false, "Re-render whenever the scene file or mesh changes")
	fs.BoolVar(&opts.list, "list", false, "List built-in scenes and scene files, then exit")
	fs.StringVar(&opts.scenesDir, "scenes-dir", "scenes", "Directory searched for JSON scene files by -list")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	switch {
	case depth >= 0:
		opts.depth = &depth
	case depth != -1:
		return options{}, fmt.Errorf("invalid -depth %d: must be -1 or at least 0", depth)
	}

	offset, err := parseVec3(meshOffset)
	if err != nil {
		return options{}, fmt.Errorf("invalid -mesh-offset: %w", err)
	}
	opts.meshOffset = offset

	if opts.watch && opts.sceneFile == "" && opts.meshPath == "" {
		return options{}, fmt.Errorf("-watch needs -scene-file or -mesh")
	}
	return opts, nil
}

// parseVec3 parses "x,y,z"
func parseVec3(s string) (core.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return core.Vec3{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var v [3]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return core.Vec3{}, fmt.Errorf("component %d of %q: %w", i, s, err)
		}
		v[i] = f
	}
	return core.NewVec3(v[0], v[1], v[2]), nil
}

func run(ctx context.Context, opts options, logger core.Logger) error {
	if opts.list {
		return listScenes(opts.scenesDir, logger)
	}
	if opts.watch {
		return watch(ctx, opts, logger)
	}
	_, err := renderOnce(opts, logger)
	return err
}

func listScenes(dir string, logger core.Logger) error {
	logger.Printf("Built-in scenes:\n")
	for _, info := range scene.ListBuiltinScenes() {
		logger.Printf("  %-10s %s\n", info.ID, info.Description)
	}

	files, err := scene.ListSceneFiles(dir, logger)
	if err != nil {
		return err
	}
	if len(files) > 0 {
		logger.Printf("Scene files in %s:\n", dir)
		for _, info := range files {
			logger.Printf("  %-30s %s\n", info.FilePath, info.Description)
		}
	}
	return nil
}

// createScene builds the scene selected by the options, including any mesh
func createScene(opts options, logger core.Logger) (*scene.Scene, error) {
	var s *scene.Scene
	var err error

	if opts.sceneFile != "" {
		logger.Printf("Loading scene file %s...\n", opts.sceneFile)
		s, err = scene.LoadFile(opts.sceneFile, loaders.LoadPLY)
	} else {
		logger.Printf("Using %s scene...\n", opts.sceneName)
		s, err = scene.NewScene(opts.sceneName)
	}
	if err != nil {
		return nil, err
	}

	if opts.meshPath != "" {
		tris, err := loaders.LoadPLY(opts.meshPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load mesh: %w", err)
		}
		added := s.AddMesh(tris, opts.meshScale, opts.meshOffset)
		logger.Printf("Loaded %s: %d of %d triangles\n", opts.meshPath, added, len(tris))
	}

	return s, nil
}

// renderOnce renders and saves one image, returning the output path
func renderOnce(opts options, logger core.Logger) (string, error) {
	s, err := createScene(opts, logger)
	if err != nil {
		return "", err
	}

	rt, err := s.NewRaytracer(
		renderer.CameraConfig{Width: opts.width, AspectRatio: opts.aspect},
		core.SamplingOverride{SamplesPerPixel: opts.samples, MaxDepth: opts.depth},
		renderer.RenderConfig{
			NumWorkers: opts.workers,
			Seed:       opts.seed,
			Logger:     logger,
			Progress: func(p renderer.RowProgress) {
				logger.Printf("\rScanlines remaining: %d ", p.Total-p.Completed)
				if p.Completed == p.Total {
					logger.Printf("\n")
				}
			},
		},
	)
	if err != nil {
		return "", err
	}

	logger.Printf("Scene %s: %d primitives\n", s.Name, s.GetPrimitiveCount())
	img, stats := rt.Render()
	logger.Printf("Render time: %v (%.1f samples per pixel, %d workers)\n", stats.Duration, stats.AverageSamples, stats.Workers)
	logger.Printf("Average luminance: %.4f\n", renderer.CalculateAverageLuminance(img))

	path := opts.output
	if path == "" {
		path = output.TimestampedPath(opts.outputDir, s.Name, "png", time.Now())
	}
	if err := output.Save(path, img); err != nil {
		return "", err
	}
	logger.Printf("Render saved as %s\n", path)
	return path, nil
}

// watch renders once, then again after every change to the watched inputs until ctx ends
func watch(ctx context.Context, opts options, logger core.Logger) error {
	targets := make(map[string]bool)
	for _, path := range []string{opts.sceneFile, opts.meshPath} {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		targets[abs] = true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace files, so watch the parent directories
	dirs := make(map[string]bool)
	for target := range targets {
		dirs[filepath.Dir(target)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	render := func() error {
		_, err := renderOnce(opts, logger)
		return err
	}
	if err := render(); err != nil {
		logger.Printf("Render failed: %v\n", err)
	}
	logger.Printf("Watching %d file(s) for changes, interrupt to stop\n", len(targets))

	return watchLoop(ctx, watcher.Events, watcher.Errors, targets, render, logger)
}

// watchLoop re-renders after events on targets. Render failures are logged and
// watching continues; watcher errors end the loop.
func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, targets map[string]bool, render func() error, logger core.Logger) error {
	g, ctx := errgroup.WithContext(ctx)
	changes := make(chan struct{}, 1)

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if !targets[filepath.Clean(event.Name)] || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				// Coalesce bursts of events into one pending render
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-errs:
				if !ok {
					return nil
				}
				return fmt.Errorf("watcher: %w", err)
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
				logger.Printf("Change detected, re-rendering...\n")
				if err := render(); err != nil {
					logger.Printf("Render failed: %v\n", err)
				}
			}
		}
	})

	return g.Wait()
}
