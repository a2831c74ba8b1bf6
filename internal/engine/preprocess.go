package engine

import (
	"bytes"
	"fmt"
	"image"

	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Per-channel normalization constants matching the training pipeline
// (ImageNet statistics).
var (
	channelMean = [3]float32{0.485, 0.456, 0.406}
	channelStd  = [3]float32{0.229, 0.224, 0.225}
)

// Preprocess converts raw image bytes into the flat CHW float32 tensor the
// classifier expects: decode, resize to a size×size square, scale pixels to
// [0,1], then normalize per channel. Returns ErrInvalidImage when the bytes
// cannot be decoded; no partial state is produced.
func Preprocess(data []byte, size int) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	plane := size * size
	tensor := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		row := y * dst.Stride
		for x := 0; x < size; x++ {
			off := row + x*4
			for c := 0; c < 3; c++ {
				v := float32(dst.Pix[off+c]) / 255.0
				tensor[c*plane+y*size+x] = (v - channelMean[c]) / channelStd[c]
			}
		}
	}
	return tensor, nil
}

// InputShape returns the [batch, channels, height, width] tensor shape for a
// single image at the given square side length.
func InputShape(size int) []int64 {
	return []int64{1, 3, int64(size), int64(size)}
}
