package formats

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Faultbox/craterfield/pkg/collision"
)

// CRM format errors.
var (
	ErrInvalidCRMMagic       = errors.New("invalid CRM magic: expected 'CRMP'")
	ErrUnsupportedCRMVersion = errors.New("unsupported CRM version")
	ErrTruncatedCRMData      = errors.New("truncated CRM data")
)

const (
	crmMagic      = "CRMP"
	crmHeaderSize = 4 + 2 + 4 + 4 + 4

	// MaxCRMDimension bounds width and height of a collision map.
	MaxCRMDimension = 1 << 15

	// MaxCRMPixels bounds width*height of a collision map (256 MiB of pixels).
	MaxCRMPixels = 1 << 26
)

// CRMVersion is the collision map file version.
type CRMVersion struct {
	Major uint8
	Minor uint8
}

// String returns the version as "Major.Minor".
func (v CRMVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// CurrentCRMVersion is written by EncodeCRM.
var CurrentCRMVersion = CRMVersion{Major: 1, Minor: 0}

// CRM is a parsed collision map: one encoded 32-bit pixel per cell,
// row-major, row 0 at the top.
//
// Layout (little-endian):
//
//	magic   [4]byte "CRMP"
//	minor   uint8
//	major   uint8
//	width   uint32
//	height  uint32
//	size    uint32  compressed payload length
//	payload zlib(width*height uint32 pixels)
type CRM struct {
	Version CRMVersion
	Width   uint32
	Height  uint32
	Pixels  []collision.Pixel
}

// Raster wraps the parsed pixels in a collision raster. The CRM should not be
// used afterwards since the raster takes ownership of its pixel slice.
func (c *CRM) Raster() (*collision.Raster, error) {
	return collision.FromPixels(int(c.Width), int(c.Height), c.Pixels)
}

// ParseCRM parses a collision map from raw bytes.
func ParseCRM(data []byte) (*CRM, error) {
	if len(data) < crmHeaderSize {
		return nil, ErrTruncatedCRMData
	}

	if string(data[0:4]) != crmMagic {
		return nil, ErrInvalidCRMMagic
	}

	// Version is stored as [minor, major]
	version := CRMVersion{
		Major: data[5],
		Minor: data[4],
	}
	if version.Major != CurrentCRMVersion.Major {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCRMVersion, version)
	}

	width := binary.LittleEndian.Uint32(data[6:])
	height := binary.LittleEndian.Uint32(data[10:])
	size := binary.LittleEndian.Uint32(data[14:])

	if width == 0 || height == 0 || width > MaxCRMDimension || height > MaxCRMDimension {
		return nil, fmt.Errorf("invalid CRM dimensions: %dx%d", width, height)
	}
	if uint64(width)*uint64(height) > MaxCRMPixels {
		return nil, fmt.Errorf("invalid CRM dimensions: %dx%d exceeds %d pixels", width, height, MaxCRMPixels)
	}

	payload := data[crmHeaderSize:]
	if uint64(len(payload)) < uint64(size) {
		return nil, fmt.Errorf("%w: payload has %d bytes, header says %d", ErrTruncatedCRMData, len(payload), size)
	}

	zr, err := zlib.NewReader(bytes.NewReader(payload[:size]))
	if err != nil {
		return nil, fmt.Errorf("opening CRM payload: %w", err)
	}
	defer zr.Close()

	// The buffer grows with the inflated stream, so a forged header cannot
	// force an allocation larger than what the payload actually holds.
	count := int(width) * int(height)
	raw, err := io.ReadAll(io.LimitReader(zr, int64(count)*4))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %d pixels: %v", ErrTruncatedCRMData, count, err)
	}
	if len(raw) != count*4 {
		return nil, fmt.Errorf("%w: payload inflates to %d bytes, want %d", ErrTruncatedCRMData, len(raw), count*4)
	}

	pixels := make([]collision.Pixel, count)
	for i := range pixels {
		pixels[i] = collision.Pixel(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	return &CRM{
		Version: version,
		Width:   width,
		Height:  height,
		Pixels:  pixels,
	}, nil
}

// ParseCRMFile parses a collision map from disk.
func ParseCRMFile(path string) (*CRM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading CRM file: %w", err)
	}
	return ParseCRM(data)
}

// LoadRaster reads a collision map file straight into a raster.
func LoadRaster(path string) (*collision.Raster, error) {
	crm, err := ParseCRMFile(path)
	if err != nil {
		return nil, err
	}
	return crm.Raster()
}

// EncodeCRM serializes a raster in the current CRM version.
func EncodeCRM(r *collision.Raster) ([]byte, error) {
	pixels := r.Pixels()
	raw := make([]byte, len(pixels)*4)
	for i, p := range pixels {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(p))
	}

	var payload bytes.Buffer
	zw := zlib.NewWriter(&payload)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compressing pixels: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compressing pixels: %w", err)
	}

	buf := new(bytes.Buffer)
	buf.Grow(crmHeaderSize + payload.Len())
	buf.WriteString(crmMagic)
	buf.WriteByte(CurrentCRMVersion.Minor)
	buf.WriteByte(CurrentCRMVersion.Major)
	binary.Write(buf, binary.LittleEndian, uint32(r.Width()))
	binary.Write(buf, binary.LittleEndian, uint32(r.Height()))
	binary.Write(buf, binary.LittleEndian, uint32(payload.Len()))
	buf.Write(payload.Bytes())

	return buf.Bytes(), nil
}

// WriteCRMFile writes a raster to disk, creating parent directories.
func WriteCRMFile(path string, r *collision.Raster) error {
	data, err := EncodeCRM(r)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// CountSolid returns the number of solid, edge (nonzero normal) and interior
// pixels in the map.
func (c *CRM) CountSolid() (solid, edge, interior int) {
	for _, p := range c.Pixels {
		if !p.Solid() {
			continue
		}
		solid++
		if p.IsInterior() {
			interior++
		} else {
			edge++
		}
	}
	return solid, edge, interior
}
