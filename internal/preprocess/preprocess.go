// Package preprocess normalizes input images for inference requests: resize
// to a bounded dimension, re-encode as JPEG under a size budget, and extract
// EXIF metadata before the re-encode strips it.
package preprocess

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rwcarlsen/goexif/exif"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/blueprintkit/bioblueprint/internal/model"
)

// Options controls image normalization.
type Options struct {
	// MaxDimension bounds both width and height. Images already within the
	// bound are not enlarged.
	MaxDimension int
	// MaxBytes is the encoded size budget. Quality is stepped down until
	// the encoded image fits or MinQuality is reached.
	MaxBytes int
	// Quality is the initial JPEG quality.
	Quality int
	// MinQuality is the floor for the quality step-down loop.
	MinQuality int
	// Concurrency bounds parallel per-file work in Directory.
	Concurrency int
}

// DefaultOptions returns the standard normalization limits.
func DefaultOptions() Options {
	return Options{
		MaxDimension: 1024,
		MaxBytes:     200 * 1024,
		Quality:      80,
		MinQuality:   30,
		Concurrency:  4,
	}
}

// qualityStep is how much JPEG quality drops per re-encode attempt.
const qualityStep = 10

// Error wraps a per-file preprocessing failure.
type Error struct {
	Filename string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("preprocess: %s: %v", e.Filename, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// imageExtensions are the file suffixes Directory picks up.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
}

// File normalizes a single image. EXIF is extracted from the original bytes
// first, since re-encoding discards it.
func File(path string, opts Options) (*model.EvidenceImage, error) {
	filename := filepath.Base(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Filename: filename, Err: eris.Wrap(err, "read file")}
	}

	exifData := extractExif(data)

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &Error{Filename: filename, Err: eris.Wrap(err, "decode image")}
	}

	scaled := scaleDown(src, opts.MaxDimension)

	encoded, err := encodeUnderBudget(scaled, opts)
	if err != nil {
		return nil, &Error{Filename: filename, Err: err}
	}

	return &model.EvidenceImage{
		Filename:       filename,
		Base64:         base64.StdEncoding.EncodeToString(encoded),
		SizeKB:         float64(len(encoded)) / 1024,
		OriginalSizeKB: float64(len(data)) / 1024,
		Exif:           exifData,
	}, nil
}

// Directory normalizes every image file in dir, in filename order. Files
// that fail to decode are logged and skipped rather than failing the batch.
func Directory(ctx context.Context, dir string, opts Options) ([]model.EvidenceImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "preprocess: read dir %s", dir)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	results := make([]*model.EvidenceImage, len(names))

	g, _ := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, name := range names {
		g.Go(func() error {
			img, fileErr := File(filepath.Join(dir, name), opts)
			if fileErr != nil {
				zap.L().Warn("preprocess: skipping file",
					zap.String("file", name),
					zap.Error(fileErr),
				)
				return nil
			}
			zap.L().Info("preprocess: image ready",
				zap.String("file", name),
				zap.Float64("original_kb", img.OriginalSizeKB),
				zap.Float64("size_kb", img.SizeKB),
				zap.Bool("has_exif", img.Exif != nil),
			)
			results[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.EvidenceImage, 0, len(results))
	for _, img := range results {
		if img != nil {
			out = append(out, *img)
		}
	}
	return out, nil
}

// scaleDown fits src inside max x max, preserving aspect ratio. Images
// already within the bound are returned unchanged.
func scaleDown(src image.Image, max int) image.Image {
	if max <= 0 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return src
	}

	var nw, nh int
	if w >= h {
		nw = max
		nh = h * max / w
	} else {
		nh = max
		nw = w * max / h
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// encodeUnderBudget encodes img as JPEG, stepping quality down until the
// output fits the size budget or quality hits the floor. The floor encoding
// is returned even when it exceeds the budget.
func encodeUnderBudget(img image.Image, opts Options) ([]byte, error) {
	quality := opts.Quality
	if quality <= 0 {
		quality = DefaultOptions().Quality
	}
	minQuality := opts.MinQuality
	if minQuality <= 0 {
		minQuality = DefaultOptions().MinQuality
	}

	for {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, eris.Wrap(err, "encode jpeg")
		}
		if opts.MaxBytes <= 0 || buf.Len() <= opts.MaxBytes || quality <= minQuality {
			return buf.Bytes(), nil
		}
		quality -= qualityStep
		if quality < minQuality {
			quality = minQuality
		}
	}
}

// extractExif pulls capture time, GPS, camera and orientation from the raw
// image bytes. Returns nil when nothing useful is present; EXIF parse
// failures are treated as absence, not errors.
func extractExif(data []byte) *model.ExifData {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	out := &model.ExifData{}

	if tm, err := x.DateTime(); err == nil {
		out.CaptureTime = tm.UTC().Format(time.RFC3339)
	}

	if lat, long, err := x.LatLong(); err == nil {
		out.GPS = &model.GPSCoordinate{Latitude: lat, Longitude: long}
	}

	var cameraParts []string
	if tag, err := x.Get(exif.Make); err == nil {
		if s, err := tag.StringVal(); err == nil && s != "" {
			cameraParts = append(cameraParts, strings.TrimSpace(s))
		}
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if s, err := tag.StringVal(); err == nil && s != "" {
			cameraParts = append(cameraParts, strings.TrimSpace(s))
		}
	}
	out.Camera = strings.Join(cameraParts, " ")

	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			out.Orientation = v
		}
	}

	if out.CaptureTime == "" && out.GPS == nil && out.Camera == "" && out.Orientation == 0 {
		return nil
	}
	return out
}
