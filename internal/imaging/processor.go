// Package imaging turns an uploaded photo into the stored product image:
// a centered square, flattened to RGB and re-encoded as JPEG.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder

	apperrors "github.com/ikkim/inventory-backend/internal/errors"
	"golang.org/x/image/draw"
)

// DefaultQuality matches the quality used for product photos since the first release.
const DefaultQuality = 50

// Processor crops, optionally downsizes, and compresses product photos.
type Processor struct {
	quality      int
	maxDimension int // 0 keeps the cropped size
}

// NewProcessor returns a Processor. quality is clamped to 1..100; jpeg
// treats anything below 1 as 1 anyway.
func NewProcessor(quality, maxDimension int) *Processor {
	if quality < 1 {
		quality = 1
	}
	if quality > 100 {
		quality = 100
	}
	if maxDimension < 0 {
		maxDimension = 0
	}
	return &Processor{quality: quality, maxDimension: maxDimension}
}

// Process decodes data, crops it to a centered square and returns JPEG bytes.
// Decoding failures are reported as apperrors.ErrDecode.
func (p *Processor) Process(data []byte) ([]byte, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}

	img = CropToSquare(img)
	if p.maxDimension > 0 && img.Bounds().Dx() > p.maxDimension {
		img = scale(img, p.maxDimension)
	}
	return Compress(img, p.quality)
}

// Decode reads a PNG, JPEG or GIF image.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, apperrors.Decode(fmt.Errorf("empty image"))
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Decode(err)
	}
	return img, nil
}

// CropToSquare returns the centered min(w,h) square of img. Odd leftovers go
// to the right/bottom edge. Square inputs are returned as-is.
func CropToSquare(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == h {
		return img
	}

	m := min(w, h)
	left := (w - m) / 2
	top := (h - m) / 2
	rect := image.Rect(b.Min.X+left, b.Min.Y+top, b.Min.X+left+m, b.Min.Y+top+m)

	if sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(rect)
	}

	dst := image.NewRGBA(image.Rect(0, 0, m, m))
	draw.Copy(dst, image.Point{}, img, rect, draw.Src, nil)
	return dst
}

// Compress flattens img onto an opaque white canvas (three color channels,
// no alpha) and encodes it as JPEG at the given quality. img is not modified.
func Compress(img image.Image, quality int) ([]byte, error) {
	b := img.Bounds()
	rgb := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgb, rgb.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(rgb, rgb.Bounds(), img, b.Min, draw.Over)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, rgb, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func scale(img image.Image, size int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
