package imaging

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRef(t *testing.T, ref string) image.Image {
	t.Helper()
	require.True(t, strings.HasPrefix(ref, "data:image/jpeg;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(ref, "data:image/jpeg;base64,"))
	require.NoError(t, err)
	img, err := jpeg.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func jpegFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 7 {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x % 255)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}))
	return buf.Bytes()
}

func TestNormalizeScalesLongerSide(t *testing.T) {
	n := NewNormalizer(1)
	ref, err := n.Normalize(context.Background(), bytes.NewReader(jpegFixture(t, 4000, 3000)),
		Options{MaxDimension: 1000, Quality: 70})
	require.NoError(t, err)

	b := decodeRef(t, string(ref)).Bounds()
	assert.Equal(t, 1000, b.Dx())
	assert.Equal(t, 750, b.Dy())
}

func TestNormalizeKeepsSmallImages(t *testing.T) {
	n := NewNormalizer(1)
	ref, err := n.Normalize(context.Background(), bytes.NewReader(jpegFixture(t, 300, 500)),
		Options{MaxDimension: 1000, Quality: 70})
	require.NoError(t, err)

	b := decodeRef(t, string(ref)).Bounds()
	assert.Equal(t, 300, b.Dx())
	assert.Equal(t, 500, b.Dy())
}

func TestNormalizeFlattensTransparency(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 20, 20))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	ref, err := NewNormalizer(1).Normalize(context.Background(), &buf, Options{MaxDimension: 600, Quality: 90})
	require.NoError(t, err)

	r, g, bl, _ := decodeRef(t, string(ref)).At(10, 10).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, bl>>8, uint32(240))
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	_, err := NewNormalizer(1).Normalize(context.Background(), strings.NewReader("definitely not an image"), Options{MaxDimension: 1000})

	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Contains(t, err.Error(), "could not process image")
}

func TestNormalizeTooLarge(t *testing.T) {
	_, err := NewNormalizer(1).Normalize(context.Background(), bytes.NewReader(jpegFixture(t, 800, 800)),
		Options{MaxDimension: 800, Quality: 70, MaxBytes: 64})
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestNormalizeDeterministic(t *testing.T) {
	n := NewNormalizer(2)
	in := jpegFixture(t, 1200, 900)
	opts := Options{MaxDimension: 600, Quality: 70}

	a, err := n.Normalize(context.Background(), bytes.NewReader(in), opts)
	require.NoError(t, err)
	b, err := n.Normalize(context.Background(), bytes.NewReader(in), opts)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeHonoursContext(t *testing.T) {
	n := NewNormalizer(1)
	require.True(t, n.sem.TryAcquire(1))
	defer n.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := n.Normalize(ctx, bytes.NewReader(jpegFixture(t, 10, 10)), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTargetSize(t *testing.T) {
	w, h := TargetSize(4000, 3000, 1000)
	assert.Equal(t, []int{1000, 750}, []int{w, h})
	w, h = TargetSize(600, 2400, 600)
	assert.Equal(t, []int{150, 600}, []int{w, h})
	w, h = TargetSize(10, 10, 0)
	assert.Equal(t, []int{10, 10}, []int{w, h})
}
