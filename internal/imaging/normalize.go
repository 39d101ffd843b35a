// Package imaging turns uploaded pictures into bounded inline JPEG data URLs.
package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"time"

	"github.com/robwestplumbing/sitecms/internal/content"
	"github.com/robwestplumbing/sitecms/internal/metrics"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"
)

const (
	maxInputBytes  = 25 << 20
	maxInputPixels = 50_000_000

	qualityStep  = 15
	qualityFloor = 30
)

// ErrTooLarge is returned when the image cannot be brought under MaxBytes
// even at the lowest quality.
var ErrTooLarge = errors.New("image too large after compression")

// DecodeError means the input was not a readable image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return "could not process image: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Options bound the output. MaxBytes applies to the full data URL and is
// ignored when zero.
type Options struct {
	MaxDimension int
	Quality      int
	MaxBytes     int
}

// Normalizer limits how many images are decoded at once.
type Normalizer struct {
	sem *semaphore.Weighted
}

func NewNormalizer(workers int) *Normalizer {
	if workers < 1 {
		workers = 1
	}
	return &Normalizer{sem: semaphore.NewWeighted(int64(workers))}
}

// Normalize decodes r, scales it so that its longer side is at most
// opts.MaxDimension, flattens transparency onto white and re-encodes it as
// JPEG. The result is deterministic for the same input and options.
func (n *Normalizer) Normalize(ctx context.Context, r io.Reader, opts Options) (content.ImageRef, error) {
	if err := n.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer n.sem.Release(1)

	start := time.Now()
	defer func() { metrics.ImageNormalizeSeconds.Observe(time.Since(start).Seconds()) }()

	raw, err := io.ReadAll(io.LimitReader(r, maxInputBytes+1))
	if err != nil {
		return "", &DecodeError{Err: err}
	}
	if len(raw) > maxInputBytes {
		return "", &DecodeError{Err: errors.New("input exceeds 25 MB")}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", &DecodeError{Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width*cfg.Height > maxInputPixels {
		return "", &DecodeError{Err: fmt.Errorf("unsupported dimensions %dx%d", cfg.Width, cfg.Height)}
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", &DecodeError{Err: err}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := scale(src, opts.MaxDimension)

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	for {
		ref, err := encode(dst, quality)
		if err != nil {
			return "", err
		}
		if opts.MaxBytes <= 0 || len(ref) <= opts.MaxBytes {
			return ref, nil
		}
		if quality <= qualityFloor {
			return "", ErrTooLarge
		}
		quality -= qualityStep
		if quality < qualityFloor {
			quality = qualityFloor
		}
	}
}

// TargetSize returns the dimensions src is scaled to for a given bound.
func TargetSize(width, height, maxDimension int) (int, int) {
	if maxDimension <= 0 || (width <= maxDimension && height <= maxDimension) {
		return width, height
	}
	if width >= height {
		h := height * maxDimension / width
		if h < 1 {
			h = 1
		}
		return maxDimension, h
	}
	w := width * maxDimension / height
	if w < 1 {
		w = 1
	}
	return w, maxDimension
}

func scale(src image.Image, maxDimension int) *image.RGBA {
	b := src.Bounds()
	w, h := TargetSize(b.Dx(), b.Dy(), maxDimension)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func encode(img image.Image, quality int) (content.ImageRef, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return content.InlineJPEG(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}
