package formats

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Faultbox/craterfield/pkg/collision"
)

// createTestCRM builds a CRM file by hand so the parser is checked against the
// documented layout rather than against EncodeCRM.
func createTestCRM(width, height uint32, pixels []uint32) []byte {
	raw := new(bytes.Buffer)
	for i := 0; i < int(width*height); i++ {
		var p uint32
		if i < len(pixels) {
			p = pixels[i]
		}
		binary.Write(raw, binary.LittleEndian, p)
	}

	var payload bytes.Buffer
	zw := zlib.NewWriter(&payload)
	zw.Write(raw.Bytes())
	zw.Close()

	buf := new(bytes.Buffer)
	buf.WriteString("CRMP")
	buf.WriteByte(0) // minor
	buf.WriteByte(1) // major
	binary.Write(buf, binary.LittleEndian, width)
	binary.Write(buf, binary.LittleEndian, height)
	binary.Write(buf, binary.LittleEndian, uint32(payload.Len()))
	buf.Write(payload.Bytes())
	return buf.Bytes()
}

func TestParseCRM_ValidFile(t *testing.T) {
	pixels := []uint32{
		uint32(collision.EncodeSolid(0, 0)),
		uint32(collision.Blank),
		uint32(collision.EncodeSolid(-3, 9)),
	}
	data := createTestCRM(3, 2, pixels)

	crm, err := ParseCRM(data)
	if err != nil {
		t.Fatalf("ParseCRM failed: %v", err)
	}

	if crm.Version.Major != 1 || crm.Version.Minor != 0 {
		t.Errorf("expected version 1.0, got %s", crm.Version)
	}
	if crm.Width != 3 || crm.Height != 2 {
		t.Errorf("expected 3x2, got %dx%d", crm.Width, crm.Height)
	}
	if len(crm.Pixels) != 6 {
		t.Fatalf("expected 6 pixels, got %d", len(crm.Pixels))
	}
	for i, want := range pixels {
		if uint32(crm.Pixels[i]) != want {
			t.Errorf("pixel %d: got %#x, want %#x", i, uint32(crm.Pixels[i]), want)
		}
	}

	solid, edge, interior := crm.CountSolid()
	if solid != 2 || edge != 1 || interior != 1 {
		t.Errorf("CountSolid = (%d, %d, %d), want (2, 1, 1)", solid, edge, interior)
	}
}

func TestParseCRM_InvalidMagic(t *testing.T) {
	data := createTestCRM(1, 1, nil)
	copy(data, "XXXX")

	if _, err := ParseCRM(data); !errors.Is(err, ErrInvalidCRMMagic) {
		t.Errorf("error = %v, want ErrInvalidCRMMagic", err)
	}
}

func TestParseCRM_UnsupportedVersion(t *testing.T) {
	data := createTestCRM(1, 1, nil)
	data[5] = 9

	if _, err := ParseCRM(data); !errors.Is(err, ErrUnsupportedCRMVersion) {
		t.Errorf("error = %v, want ErrUnsupportedCRMVersion", err)
	}
}

func TestParseCRM_TruncatedData(t *testing.T) {
	if _, err := ParseCRM([]byte("CRMP")); !errors.Is(err, ErrTruncatedCRMData) {
		t.Errorf("error = %v, want ErrTruncatedCRMData", err)
	}

	data := createTestCRM(4, 4, nil)
	if _, err := ParseCRM(data[:len(data)-3]); !errors.Is(err, ErrTruncatedCRMData) {
		t.Errorf("short payload error = %v, want ErrTruncatedCRMData", err)
	}
}

func TestParseCRM_InvalidDimensions(t *testing.T) {
	data := createTestCRM(1, 1, nil)
	binary.LittleEndian.PutUint32(data[6:], 0)

	if _, err := ParseCRM(data); err == nil {
		t.Error("expected error for zero width")
	}
}

// forgedCRM writes a header claiming width x height over a tiny payload.
func forgedCRM(width, height uint32) []byte {
	var payload bytes.Buffer
	zw := zlib.NewWriter(&payload)
	zw.Write([]byte{1, 0, 0, 0})
	zw.Close()

	buf := new(bytes.Buffer)
	buf.WriteString("CRMP")
	buf.WriteByte(0)
	buf.WriteByte(1)
	binary.Write(buf, binary.LittleEndian, width)
	binary.Write(buf, binary.LittleEndian, height)
	binary.Write(buf, binary.LittleEndian, uint32(payload.Len()))
	buf.Write(payload.Bytes())
	return buf.Bytes()
}

func TestParseCRM_ForgedHeader(t *testing.T) {
	tests := []struct {
		name          string
		width, height uint32
		truncated     bool
	}{
		{"over pixel limit", MaxCRMDimension, MaxCRMDimension, false},
		{"within limit, tiny payload", 4096, 4096, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := forgedCRM(tt.width, tt.height)

			var before, after runtime.MemStats
			runtime.GC()
			runtime.ReadMemStats(&before)
			_, err := ParseCRM(data)
			runtime.ReadMemStats(&after)

			if err == nil {
				t.Fatal("expected error for forged header")
			}
			if tt.truncated && !errors.Is(err, ErrTruncatedCRMData) {
				t.Errorf("error = %v, want ErrTruncatedCRMData", err)
			}
			if allocated := after.TotalAlloc - before.TotalAlloc; allocated > 16<<20 {
				t.Errorf("allocated %d MiB for a %d byte file", allocated>>20, len(data))
			}
		})
	}
}

func TestEncodeCRM_RoundTrip(t *testing.T) {
	r, err := collision.New(5, 4)
	if err != nil {
		t.Fatal(err)
	}
	r.Set(0, 0, collision.EncodeSolid(12, -40))
	r.Set(4, 3, collision.EncodeSolid(0, 0))
	r.Set(2, 1, collision.EncodeSolid(-1023, 1023))

	data, err := EncodeCRM(r)
	if err != nil {
		t.Fatalf("EncodeCRM: %v", err)
	}

	crm, err := ParseCRM(data)
	if err != nil {
		t.Fatalf("ParseCRM: %v", err)
	}
	got, err := crm.Raster()
	if err != nil {
		t.Fatalf("Raster: %v", err)
	}

	if got.Width() != 5 || got.Height() != 4 {
		t.Fatalf("dimensions %dx%d, want 5x4", got.Width(), got.Height())
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 5; x++ {
			if got.At(x, y) != r.At(x, y) {
				t.Errorf("pixel (%d, %d): got %#x, want %#x", x, y, uint32(got.At(x, y)), uint32(r.At(x, y)))
			}
		}
	}
}

func TestWriteCRMFile(t *testing.T) {
	r, _ := collision.New(2, 2)
	r.Set(1, 1, collision.EncodeSolid(1, 1))

	path := filepath.Join(t.TempDir(), "levels", "test.crm")
	if err := WriteCRMFile(path, r); err != nil {
		t.Fatalf("WriteCRMFile: %v", err)
	}

	loaded, err := LoadRaster(path)
	if err != nil {
		t.Fatalf("LoadRaster: %v", err)
	}
	if loaded.At(1, 1) != collision.EncodeSolid(1, 1) {
		t.Errorf("pixel (1, 1) = %#x after reload", uint32(loaded.At(1, 1)))
	}
}

func TestParseCRMFileMissing(t *testing.T) {
	if _, err := ParseCRMFile("/nonexistent/map.crm"); err == nil {
		t.Error("expected error for missing file")
	}
}
