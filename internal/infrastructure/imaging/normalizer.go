package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"math"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/aushadhi/client/internal/domain"
)

const (
	// DefaultMaxDimension bounds the longer side of an upload
	DefaultMaxDimension = 1280

	// Quality is the fixed JPEG quality of every normalized upload
	Quality = 90

	ContentTypeJPEG = "image/jpeg"

	// MaxPixels bounds width*height as declared by the image header. Larger
	// images are rejected before any pixel buffer is allocated.
	MaxPixels = 100_000_000
)

// encodeJPEG is swapped in tests to exercise the encode failure path
var encodeJPEG = func(w io.Writer, m image.Image, o *jpeg.Options) error {
	return jpeg.Encode(w, m, o)
}

// Normalizer decodes a captured image, shrinks it to a bounded size and
// re-encodes it as JPEG
type Normalizer struct {
	scaler draw.Scaler
	logger *zap.Logger
}

// NewNormalizer creates a Normalizer using Catmull-Rom resampling
func NewNormalizer(logger *zap.Logger) *Normalizer {
	return &Normalizer{
		scaler: draw.CatmullRom,
		logger: logger.Named("normalizer"),
	}
}

// TargetSize returns the output dimensions for a width x height image bounded
// by maxDimension. Images are only ever shrunk, never upscaled.
func TargetSize(width, height, maxDimension int) (int, int) {
	longer := width
	if height > longer {
		longer = height
	}
	scale := math.Min(1, float64(maxDimension)/float64(longer))
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// Normalize implements domain.ImageNormalizer. The raw reader is closed on
// every exit path.
func (n *Normalizer) Normalize(ctx context.Context, img domain.ImageHandle, maxDimension int) (*domain.EncodedImage, error) {
	if maxDimension <= 0 {
		return nil, fmt.Errorf("%w: max dimension must be positive, got %d", domain.ErrInvalidParams, maxDimension)
	}

	rc, err := img.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrDecode)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds the %d pixel limit", domain.ErrDecode, cfg.Width, cfg.Height, MaxPixels)
	}

	orientation := readOrientation(raw)

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: empty image", domain.ErrDecode)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// the bound applies to the image as displayed
	displayW, displayH := width, height
	if orientation.swapsAxes() {
		displayW, displayH = height, width
	}
	tw, th := TargetSize(displayW, displayH, maxDimension)
	sw, sh := tw, th
	if orientation.swapsAxes() {
		sw, sh = th, tw
	}

	// JPEG has no alpha; flatten onto white first
	scaled := image.NewRGBA(image.Rect(0, 0, sw, sh))
	draw.Draw(scaled, scaled.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	if sw == width && sh == height {
		draw.Draw(scaled, scaled.Bounds(), src, bounds.Min, draw.Over)
	} else {
		n.scaler.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
	}
	dst := orientation.apply(scaled)

	var buf bytes.Buffer
	if err := encodeJPEG(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEncode, err)
	}

	n.logger.Debug("image normalized",
		zap.String("file", img.Name()),
		zap.String("format", format),
		zap.Int("src_width", width),
		zap.Int("src_height", height),
		zap.Int("orientation", int(orientation)),
		zap.Int("width", tw),
		zap.Int("height", th),
		zap.Int("bytes", buf.Len()),
	)

	return &domain.EncodedImage{
		Data:        buf.Bytes(),
		ContentType: ContentTypeJPEG,
		Width:       tw,
		Height:      th,
	}, nil
}
