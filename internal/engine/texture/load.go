package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
)

// ErrUnknownFormat is returned for files whose extension is not a supported
// bitmap format.
var ErrUnknownFormat = errors.New("unknown image format")

// Extensions lists the bitmap formats LoadImage accepts.
var Extensions = []string{".png", ".bmp", ".tga"}

// LoadImage decodes a PNG, BMP or TGA file chosen by extension.
func LoadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	img, err := Decode(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Decode decodes image bytes in the format named by ext (".png", ".bmp", ".tga").
func Decode(ext string, data []byte) (image.Image, error) {
	switch strings.ToLower(ext) {
	case ".png":
		return png.Decode(bytes.NewReader(data))
	case ".bmp":
		return bmp.Decode(bytes.NewReader(data))
	case ".tga":
		return DecodeTGA(data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
}

// IsColorKey reports whether an RGB color matches the magenta transparency
// key used by bitmaps without an alpha channel. A small tolerance absorbs
// palette rounding in BMP files.
func IsColorKey(r, g, b uint8) bool {
	return r >= 250 && g <= 10 && b >= 250
}

// ApplyColorKey turns every magenta pixel into transparent black in place.
func ApplyColorKey(img *image.RGBA) int {
	keyed := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			if IsColorKey(img.Pix[i], img.Pix[i+1], img.Pix[i+2]) {
				img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 0, 0, 0, 0
				keyed++
			}
		}
	}
	return keyed
}

// ToRGBA converts any image to a zero-origin *image.RGBA. The result never
// aliases img. If colorKey is set, magenta pixels become transparent.
func ToRGBA(img image.Image, colorKey bool) *image.RGBA {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, b.Min, xdraw.Src)
	if colorKey {
		ApplyColorKey(rgba)
	}
	return rgba
}

// LoadRGBA loads a bitmap and converts it with ToRGBA.
func LoadRGBA(path string, colorKey bool) (*image.RGBA, error) {
	img, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return ToRGBA(img, colorKey), nil
}

// Opaque reports whether every pixel of img is fully opaque. Preprocessing a
// fully opaque bitmap yields a raster with no blank pixels, which is almost
// always a missing color key.
func Opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}
