// Package imaging handles image batches flowing out of the training loop:
// per-batch normalization, grid composition and PNG output.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
)

// normEpsilon guards the divisor when a batch is constant.
const normEpsilon = 1e-5

// DefaultPerRow is the number of images per grid row when the caller passes 0.
const DefaultPerRow = 8

// gridPadding is the pixel gap between grid cells.
const gridPadding = 2

// Batch is a batch of images in NCHW layout, float32 per channel value.
type Batch struct {
	Data []float32
	N    int
	C    int
	H    int
	W    int
}

// NewBatch wraps raw NCHW data in a Batch, validating the dimensions.
func NewBatch(data []float32, n, c, h, w int) (*Batch, error) {
	if n <= 0 || c <= 0 || h <= 0 || w <= 0 {
		return nil, fmt.Errorf("invalid batch dimensions: %dx%dx%dx%d", n, c, h, w)
	}
	if len(data) != n*c*h*w {
		return nil, fmt.Errorf("data length mismatch: expected %d values for %dx%dx%dx%d, got %d",
			n*c*h*w, n, c, h, w, len(data))
	}

	return &Batch{Data: data, N: n, C: c, H: h, W: w}, nil
}

// Normalize returns a new batch scaled to [0, 1] by the batch-wide minimum
// and maximum. A constant batch maps to approximately zero everywhere via
// the epsilon guard. The receiver is left untouched.
func (b *Batch) Normalize() *Batch {
	min := b.Data[0]
	max := b.Data[0]
	for _, v := range b.Data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	scale := max - min + normEpsilon
	normalized := make([]float32, len(b.Data))
	for i, v := range b.Data {
		normalized[i] = (v - min) / scale
	}

	return &Batch{Data: normalized, N: b.N, C: b.C, H: b.H, W: b.W}
}

// at returns the channel value of image n at (x, y), clamped to [0, 1].
func (b *Batch) at(n, c, x, y int) float32 {
	v := b.Data[((n*b.C+c)*b.H+y)*b.W+x]
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Grid tiles the batch into a single image, perRow images per row with a
// small padding gap, in batch order. Channel counts 1 (grayscale) and 3
// (RGB) are supported. Values are expected in [0, 1]; callers normalize
// first when the batch is raw.
func (b *Batch) Grid(perRow int) (image.Image, error) {
	if b.C != 1 && b.C != 3 {
		return nil, fmt.Errorf("unsupported channel count %d: want 1 or 3", b.C)
	}
	if perRow <= 0 {
		perRow = DefaultPerRow
	}
	if perRow > b.N {
		perRow = b.N
	}

	rows := (b.N + perRow - 1) / perRow
	width := perRow*b.W + (perRow+1)*gridPadding
	height := rows*b.H + (rows+1)*gridPadding

	grid := image.NewRGBA(image.Rect(0, 0, width, height))

	for n := 0; n < b.N; n++ {
		originX := (n%perRow)*b.W + (n%perRow+1)*gridPadding
		originY := (n/perRow)*b.H + (n/perRow+1)*gridPadding

		for y := 0; y < b.H; y++ {
			for x := 0; x < b.W; x++ {
				var r, g, bl float32
				if b.C == 1 {
					v := b.at(n, 0, x, y)
					r, g, bl = v, v, v
				} else {
					r = b.at(n, 0, x, y)
					g = b.at(n, 1, x, y)
					bl = b.at(n, 2, x, y)
				}

				grid.SetRGBA(originX+x, originY+y, color.RGBA{
					R: uint8(r*255 + 0.5),
					G: uint8(g*255 + 0.5),
					B: uint8(bl*255 + 0.5),
					A: 0xff,
				})
			}
		}
	}

	return grid, nil
}

// EncodePNG tiles the batch into a grid and returns the encoded PNG bytes.
// The batch is used as-is; normalize first when the pixel range is raw.
func (b *Batch) EncodePNG(perRow int) ([]byte, error) {
	grid, err := b.Grid(perRow)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, grid); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// SavePNG normalizes the batch, tiles it into a grid and writes a PNG file.
func (b *Batch) SavePNG(path string, perRow int) error {
	encoded, err := b.Normalize().EncodePNG(perRow)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return nil
}
