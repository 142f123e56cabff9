package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/loaders"
	"github.com/df07/go-pathtracer/pkg/output"
	"github.com/df07/go-pathtracer/pkg/renderer"
	"github.com/df07/go-pathtracer/pkg/scene"
)

// Server handles web requests for the path tracer
type Server struct {
	port      int
	scenesDir string
	staticDir string
	logger    core.Logger
}

// NewServer creates a new web server. Scene files are discovered in scenesDir.
func NewServer(port int, scenesDir, staticDir string, logger core.Logger) *Server {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Server{port: port, scenesDir: scenesDir, staticDir: staticDir, logger: logger}
}

// RenderRequest represents a render request from the client.
// Zero values keep the scene defaults.
type RenderRequest struct {
	Scene       string  `json:"scene"`       // Built-in name or "file:<name>"
	Width       int     `json:"width"`       // Image width
	AspectRatio float64 `json:"aspectRatio"` // Width / height
	Samples     int     `json:"samples"`     // Samples per pixel
	MaxDepth    *int    `json:"maxDepth"`    // Maximum bounce depth, nil keeps the scene default
	Seed        int64   `json:"seed"`        // 0 = time based
}

// ProgressUpdate is sent via SSE each time a row finishes
type ProgressUpdate struct {
	Row       int   `json:"row"`
	Completed int   `json:"completed"`
	Total     int   `json:"total"`
	ElapsedMs int64 `json:"elapsedMs"`
}

// CompleteUpdate carries the finished image
type CompleteUpdate struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	ImageData string `json:"imageData"` // Base64 encoded PNG
	Stats     Stats  `json:"stats"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Stats represents render statistics
type Stats struct {
	TotalPixels    int     `json:"totalPixels"`
	TotalSamples   int     `json:"totalSamples"`
	AverageSamples float64 `json:"averageSamples"`
	Workers        int     `json:"workers"`
}

// Handler returns the routes served by the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/scene-config", s.handleSceneConfig)
	mux.HandleFunc("/api/render", s.handleRender)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Printf("Starting web server on http://localhost%s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists built-in scenes followed by discovered scene files
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	scenes := scene.ListBuiltinScenes()
	files, err := scene.ListSceneFiles(s.scenesDir, s.logger)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, append(scenes, files...))
}

// handleRender renders a scene and streams progress with SSE
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	req, err := s.parseRenderRequest(r)
	if err != nil {
		s.sendSSEError(w, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	ctx := r.Context()
	consoleChan := make(chan ConsoleMessage, 100)
	progressChan := make(chan renderer.RowProgress)
	logger := NewWebLogger(s.logger, consoleChan)

	sceneObj, err := s.createScene(req.Scene, logger)
	if err != nil {
		s.sendSSEError(w, err.Error())
		return
	}

	raytracer, err := sceneObj.NewRaytracer(
		renderer.CameraConfig{Width: req.Width, AspectRatio: req.AspectRatio},
		core.SamplingOverride{SamplesPerPixel: req.Samples, MaxDepth: req.MaxDepth},
		renderer.RenderConfig{
			Seed:   req.Seed,
			Logger: logger,
			Progress: func(p renderer.RowProgress) {
				// Once the client is gone progress is dropped and the render runs out
				select {
				case progressChan <- p:
				case <-ctx.Done():
				}
			},
		},
	)
	if err != nil {
		s.sendSSEError(w, err.Error())
		return
	}

	type renderResult struct {
		img   *image.RGBA
		stats renderer.RenderStats
	}
	done := make(chan renderResult, 1)
	startTime := time.Now()
	go func() {
		img, stats := raytracer.Render()
		done <- renderResult{img, stats}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-consoleChan:
			s.sendSSEConsole(w, msg)

		case p := <-progressChan:
			s.sendSSEJSON(w, "progress", ProgressUpdate{
				Row:       p.Row,
				Completed: p.Completed,
				Total:     p.Total,
				ElapsedMs: time.Since(startTime).Milliseconds(),
			})

		case result := <-done:
			s.drainConsole(w, consoleChan)

			imageData, err := imageToBase64PNG(result.img)
			if err != nil {
				s.sendSSEError(w, fmt.Sprintf("Failed to encode image: %v", err))
				return
			}
			bounds := result.img.Bounds()
			s.sendSSEJSON(w, "complete", CompleteUpdate{
				Width:     bounds.Dx(),
				Height:    bounds.Dy(),
				ImageData: imageData,
				Stats: Stats{
					TotalPixels:    result.stats.TotalPixels,
					TotalSamples:   result.stats.TotalSamples,
					AverageSamples: result.stats.AverageSamples,
					Workers:        result.stats.Workers,
				},
				ElapsedMs: time.Since(startTime).Milliseconds(),
			})
			return
		}
	}
}

func (s *Server) drainConsole(w http.ResponseWriter, consoleChan <-chan ConsoleMessage) {
	for {
		select {
		case msg := <-consoleChan:
			s.sendSSEConsole(w, msg)
		default:
			return
		}
	}
}

// parseRenderRequest parses request parameters
func (s *Server) parseRenderRequest(r *http.Request) (*RenderRequest, error) {
	query := r.URL.Query()
	req := &RenderRequest{Scene: query.Get("scene")}
	if req.Scene == "" {
		req.Scene = "default"
	}

	var err error
	if req.Width, err = parseIntParam(query, "width", 0, 1, 2000); err != nil {
		return nil, err
	}
	if req.AspectRatio, err = parseFloatParam(query, "aspectRatio", 0, 0.1, 10); err != nil {
		return nil, err
	}
	if req.Samples, err = parseIntParam(query, "samples", 0, 1, 10000); err != nil {
		return nil, err
	}
	if query.Get("maxDepth") != "" {
		depth, err := parseIntParam(query, "maxDepth", 0, 0, 1000)
		if err != nil {
			return nil, err
		}
		req.MaxDepth = &depth
	}
	seed, err := parseIntParam(query, "seed", 0, 0, 1<<31-1)
	if err != nil {
		return nil, err
	}
	req.Seed = int64(seed)

	if req.Width > 800 && req.Samples > 100 {
		s.logger.Printf("Render warning: large image with high samples may render slowly\n")
	}

	return req, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %g and %g, got: %g", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// createScene resolves a built-in scene name or a "file:<name>" scene from the scenes directory
func (s *Server) createScene(id string, logger core.Logger) (*scene.Scene, error) {
	if !strings.HasPrefix(id, "file:") {
		return scene.NewScene(id)
	}

	files, err := scene.ListSceneFiles(s.scenesDir, logger)
	if err != nil {
		return nil, err
	}
	for _, info := range files {
		if info.ID == id {
			logger.Printf("Loading scene file %s...\n", info.FilePath)
			return scene.LoadFile(info.FilePath, loaders.LoadPLY)
		}
	}
	return nil, fmt.Errorf("%w: %q", scene.ErrUnknownScene, id)
}

// imageToBase64PNG converts an image to base64-encoded PNG
func imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := output.WritePNG(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (s *Server) sendSSEJSON(w http.ResponseWriter, event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.sendSSEEvent(w, event, string(data))
}

func (s *Server) sendSSEConsole(w http.ResponseWriter, msg ConsoleMessage) error {
	return s.sendSSEJSON(w, "console", msg)
}

// sendSSEError sends an error via SSE
func (s *Server) sendSSEError(w http.ResponseWriter, message string) error {
	return s.sendSSEEvent(w, "error", message)
}

// sendSSEEvent sends a generic SSE event
func (s *Server) sendSSEEvent(w http.ResponseWriter, event, data string) error {
	if flusher, ok := w.(http.Flusher); ok {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
		return nil
	}
	return fmt.Errorf("streaming not supported")
}

// handleSceneConfig returns the default configuration for a scene
func (s *Server) handleSceneConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")

	sceneName := r.URL.Query().Get("scene")
	if sceneName == "" {
		sceneName = "default"
	}

	sceneObj, err := s.createScene(sceneName, s.logger)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	camera := sceneObj.CameraConfig
	sampling := sceneObj.SamplingConfig
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scene": sceneName,
		"defaults": map[string]interface{}{
			"width":           camera.Width,
			"height":          camera.ImageHeight(),
			"aspectRatio":     camera.AspectRatio,
			"samplesPerPixel": sampling.SamplesPerPixel,
			"maxDepth":        sampling.MaxDepth,
			"primitives":      sceneObj.GetPrimitiveCount(),
		},
		"limits": map[string]interface{}{
			"width":       map[string]int{"min": 1, "max": 2000},
			"aspectRatio": map[string]float64{"min": 0.1, "max": 10},
			"samples":     map[string]int{"min": 1, "max": 10000},
			"maxDepth":    map[string]int{"min": 0, "max": 1000},
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
