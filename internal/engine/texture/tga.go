// Package texture decodes level bitmaps from disk.
package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color
)

const tgaHeaderSize = 18

// TGA errors.
var (
	ErrTGATruncated   = errors.New("TGA data truncated")
	ErrTGAUnsupported = errors.New("unsupported TGA")
)

// tgaReader walks TGA pixel data and places pixels in image order.
type tgaReader struct {
	img           *image.RGBA
	data          []byte
	width, height int
	bpp           int
	topToBottom   bool
	pos           int
	written       int
}

// DecodeTGA decodes a TGA image.
// Supports uncompressed (type 2) and RLE (type 10) true-color files at 24 or
// 32 bits per pixel. 24-bit files decode as fully opaque.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < tgaHeaderSize {
		return nil, ErrTGATruncated
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("%w: color-mapped image", ErrTGAUnsupported)
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("%w: image type %d", ErrTGAUnsupported, imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrTGAUnsupported, bpp)
	}

	offset := tgaHeaderSize + idLength
	if offset > len(data) {
		return nil, ErrTGATruncated
	}

	r := &tgaReader{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		data:   data[offset:],
		width:  width,
		height: height,
		bpp:    bpp / 8,
		// Bit 5 of the descriptor: origin at the top.
		topToBottom: descriptor&0x20 != 0,
	}

	if imageType == TGATypeUncompressed {
		if len(r.data) < width*height*r.bpp {
			return nil, ErrTGATruncated
		}
		for r.written < width*height {
			r.put(r.next())
		}
		return r.img, nil
	}

	if err := r.decodeRLE(); err != nil {
		return nil, err
	}
	return r.img, nil
}

// next reads one BGR(A) pixel. Callers check bounds first.
func (r *tgaReader) next() color.RGBA {
	d := r.data[r.pos:]
	c := color.RGBA{R: d[2], G: d[1], B: d[0], A: 255}
	if r.bpp == 4 {
		c.A = d[3]
	}
	r.pos += r.bpp
	return c
}

func (r *tgaReader) hasPixel() bool {
	return r.pos+r.bpp <= len(r.data)
}

func (r *tgaReader) put(c color.RGBA) {
	x := r.written % r.width
	y := r.written / r.width
	if !r.topToBottom {
		y = r.height - 1 - y
	}
	r.img.SetRGBA(x, y, c)
	r.written++
}

// decodeRLE reads run-length packets until the image is full. A stream that
// ends early leaves the remaining pixels transparent.
func (r *tgaReader) decodeRLE() error {
	total := r.width * r.height
	for r.written < total && r.pos < len(r.data) {
		packet := r.data[r.pos]
		r.pos++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			if !r.hasPixel() {
				return ErrTGATruncated
			}
			c := r.next()
			for i := 0; i < count && r.written < total; i++ {
				r.put(c)
			}
			continue
		}

		for i := 0; i < count && r.written < total; i++ {
			if !r.hasPixel() {
				return ErrTGATruncated
			}
			r.put(r.next())
		}
	}
	return nil
}
