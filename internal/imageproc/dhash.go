// Package imageproc computes perceptual fingerprints of stored scene images.
package imageproc

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// ErrUnsupportedFormat is returned for data that is not a decodable image.
var ErrUnsupportedFormat = errors.New("unsupported or unrecognized image format")

// Difference hash grid: hashWidth-1 comparisons per row, hashHeight rows.
const (
	hashWidth  = 9
	hashHeight = 8
)

// Fingerprint is the perceptual hash of one image.
type Fingerprint struct {
	Hash   string `json:"perceptual_hash"`
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// HashReader decodes the image in r and returns its difference hash.
// EXIF orientation is applied before hashing so a rotated export of the
// same scan hashes the same way.
func HashReader(r io.Reader) (*Fingerprint, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(12)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("reading image header: %w", err)
	}

	format := DetectFormat(head)
	if format == "" || format == "webp" {
		return nil, ErrUnsupportedFormat
	}

	img, err := imaging.Decode(br, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrUnsupportedFormat, format, err)
	}

	b := img.Bounds()
	return &Fingerprint{
		Hash:   DifferenceHash(img),
		Format: format,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

// DifferenceHash returns the 64-bit difference hash of img as 16 lowercase
// hex characters. Bit i is set when a pixel of the downscaled grayscale
// image is darker than its right-hand neighbour.
func DifferenceHash(img image.Image) string {
	small := imaging.Resize(imaging.Grayscale(img), hashWidth, hashHeight, imaging.Box)

	var bits uint64
	for y := 0; y < hashHeight; y++ {
		row := small.Pix[y*small.Stride:]
		for x := 0; x < hashWidth-1; x++ {
			bits <<= 1
			if row[x*4] < row[(x+1)*4] {
				bits |= 1
			}
		}
	}
	return fmt.Sprintf("%016x", bits)
}
