package output

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnsupportedFormat is returned by Save for file extensions it cannot encode
var ErrUnsupportedFormat = errors.New("unsupported image format")

// WritePPM encodes img as plain-text PPM (P3): a header, then one "R G B" line per
// pixel in row-major order starting at the top left
func WritePPM(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "P3\n%d %d\n255\n", bounds.Dx(), bounds.Dy()); err != nil {
		return err
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			if _, err := fmt.Fprintf(bw, "%d %d %d\n", c.R, c.G, c.B); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WritePNG encodes img as PNG
func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// Save writes img to path, choosing the encoder from the extension (.ppm or .png)
// and creating parent directories as needed
func Save(path string, img image.Image) error {
	var encode func(io.Writer, image.Image) error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ppm":
		encode = WritePPM
	case ".png":
		encode = WritePNG
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}

	if err := encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("error encoding %s: %w", path, err)
	}
	return file.Close()
}

// TimestampedPath returns dir/<scene>/render_<timestamp>.<ext>, with the scene
// name reduced to a single lowercase path element
func TimestampedPath(dir, sceneName, ext string, now time.Time) string {
	ext = strings.TrimPrefix(ext, ".")
	return filepath.Join(dir, Slug(sceneName), fmt.Sprintf("render_%s.%s", now.Format("20060102_150405"), ext))
}

// Slug lowercases name and joins its runs of letters, digits and underscores with
// single dashes. A name with none of those becomes "scene".
func Slug(name string) string {
	var sb strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			if pendingDash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(r)
			pendingDash = false
			continue
		}
		pendingDash = true
	}
	if sb.Len() == 0 {
		return "scene"
	}
	return sb.String()
}
