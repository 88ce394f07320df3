package assets

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/image/draw"

	_ "image/gif"
)

// Normalizer downscales oversized stored images in place. All of its work is
// best-effort cosmetic post-processing: a product save must never fail
// because an image could not be decoded or resized, so every failure here is
// logged and swallowed.
type Normalizer struct {
	store    Store
	maxWidth int
	logger   *zap.Logger
}

// NewNormalizer creates a Normalizer writing back through store.
func NewNormalizer(store Store, maxWidth int, logger *zap.Logger) *Normalizer {
	return &Normalizer{store: store, maxWidth: maxWidth, logger: logger}
}

// Normalize reads the asset under key and, when its width exceeds the
// maximum, overwrites it with a proportionally downscaled copy.
func (n *Normalizer) Normalize(ctx context.Context, key string) {
	data, err := n.store.Get(ctx, key)
	if err != nil {
		n.logger.Warn("Image normalize: read failed", zap.String("key", key), zap.Error(err))
		return
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// Undecodable assets stay stored as-is.
		n.logger.Warn("Image normalize: decode failed", zap.String("key", key), zap.Error(err))
		return
	}

	bounds := img.Bounds()
	if bounds.Dx() <= n.maxWidth {
		return
	}

	resized := Downscale(img, n.maxWidth)

	var buf bytes.Buffer
	switch {
	case format == "jpeg" || strings.HasSuffix(key, ".jpg") || strings.HasSuffix(key, ".jpeg"):
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(&buf, resized)
	}
	if err != nil {
		n.logger.Warn("Image normalize: encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	if err := n.store.Put(ctx, key, buf.Bytes()); err != nil {
		n.logger.Warn("Image normalize: write failed", zap.String("key", key), zap.Error(err))
		return
	}

	n.logger.Info("Image downscaled",
		zap.String("key", key),
		zap.Int("from_width", bounds.Dx()),
		zap.Int("to_width", n.maxWidth),
	)
}

// Downscale resizes img to maxWidth preserving aspect ratio, using the
// Catmull-Rom kernel for quality.
func Downscale(img image.Image, maxWidth int) image.Image {
	bounds := img.Bounds()
	ratio := float64(maxWidth) / float64(bounds.Dx())
	height := int(float64(bounds.Dy()) * ratio)
	if height < 1 {
		// Extreme aspect ratios would otherwise truncate to a zero-height
		// image the encoders reject.
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
