package preprocess

import (
	"image"
	"image/color"
	"testing"

	"github.com/Faultbox/craterfield/pkg/collision"
)

// bitmap builds an NRGBA image from rows of '#' (solid) and '.' (blank).
func bitmap(rows ...string) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, len(rows[0]), len(rows)))
	for y, row := range rows {
		for x, c := range row {
			if c == '#' {
				img.SetNRGBA(x, y, color.NRGBA{R: 90, G: 60, B: 30, A: 255})
			}
		}
	}
	return img
}

func groundBitmap(w, h, surface int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := surface; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{A: 255})
		}
	}
	return img
}

func decodeAt(t *testing.T, r *collision.Raster, x, y int) (bool, int, int) {
	t.Helper()
	return collision.Decode(r.At(x, y))
}

func TestBuildCornerNotchSolidBorder(t *testing.T) {
	src := bitmap(
		".##",
		"###",
		"###",
	)
	opts := DefaultOptions()
	opts.Border = BorderSolid

	r, stats := Build(src, opts)

	if solid, _, _ := decodeAt(t, r, 0, 0); solid {
		t.Error("top-left pixel should be blank")
	}

	// Right of and below the notch: normals point at the notch, away from the mass.
	tests := []struct {
		name    string
		x, y    int
		towardX int // level-space direction of the notch from this pixel
		towardY int
		wantNX  int
		wantNY  int
	}{
		{"right of notch", 1, 0, -1, 0, -1, 0},
		{"below notch", 0, 1, 0, 1, 0, 1},
		{"diagonal to notch", 1, 1, -1, 1, -1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			solid, nx, ny := decodeAt(t, r, tt.x, tt.y)
			if !solid {
				t.Fatal("expected solid pixel")
			}
			if nx == 0 && ny == 0 {
				t.Fatal("expected nonzero normal")
			}
			if nx*tt.towardX+ny*tt.towardY <= 0 {
				t.Errorf("normal (%d, %d) does not point toward the blank pixel", nx, ny)
			}
			if nx != tt.wantNX || ny != tt.wantNY {
				t.Errorf("normal = (%d, %d), want (%d, %d)", nx, ny, tt.wantNX, tt.wantNY)
			}
		})
	}

	if r.At(2, 2) != collision.EncodeSolid(0, 0) {
		t.Errorf("bottom-right pixel = %#x, want interior", uint32(r.At(2, 2)))
	}

	if stats.Solid != 8 || stats.Edge+stats.Interior != 8 {
		t.Errorf("stats = %+v, want 8 solid pixels", stats)
	}
	if stats.Degenerate != 0 {
		t.Errorf("unexpected degenerate count %d", stats.Degenerate)
	}
}

func TestBuildCornerNotchBlankBorder(t *testing.T) {
	src := bitmap(
		".##",
		"###",
		"###",
	)

	r, _ := Build(src, DefaultOptions())

	// Everything below and right of (1, 0) is solid: sum dx = 1, sum dy = 9.
	solid, nx, ny := decodeAt(t, r, 1, 0)
	if !solid || nx != -1 || ny != 9 {
		t.Errorf("(1, 0) = solid %v normal (%d, %d), want (-1, 9)", solid, nx, ny)
	}

	// The outside of the bitmap is empty, so the corner is a surface too.
	if r.At(2, 2).IsInterior() {
		t.Error("bottom-right pixel should be an edge with blank border")
	}
}

func TestBuildGroundSurface(t *testing.T) {
	const w, h, surface = 20, 20, 10
	r, stats := Build(groundBitmap(w, h, surface), DefaultOptions())

	if r.Width() != w || r.Height() != h {
		t.Fatalf("raster %dx%d, want %dx%d", r.Width(), r.Height(), w, h)
	}

	// 13 columns of rows 0..6 below the surface pixel: 13 * 21.
	solid, nx, ny := decodeAt(t, r, 10, surface)
	if !solid || nx != 0 || ny != 273 {
		t.Errorf("surface pixel = solid %v normal (%d, %d), want (0, 273)", solid, nx, ny)
	}

	if !r.At(10, 15).IsInterior() {
		t.Error("buried pixel should be interior")
	}
	if solid, _, _ := decodeAt(t, r, 10, 5); solid {
		t.Error("sky pixel should be blank")
	}

	// Level space: the surface row sits at y = h - surface.
	n, ok := r.SurfaceNormal(10.5, float32(h-surface))
	if !ok || n.X != 0 || n.Y != 1 {
		t.Errorf("SurfaceNormal = %v %v, want (0, 1)", n, ok)
	}

	if stats.Solid != w*(h-surface) {
		t.Errorf("Solid = %d, want %d", stats.Solid, w*(h-surface))
	}
	if stats.Edge+stats.Interior != stats.Solid {
		t.Errorf("edge %d + interior %d != solid %d", stats.Edge, stats.Interior, stats.Solid)
	}
}

func TestBuildDegeneratePolicy(t *testing.T) {
	tests := []struct {
		name           string
		src            *image.NRGBA
		x, y           int
		wantNX, wantNY int
		wantDegenerate int
	}{
		{
			name:   "isolated pixel",
			src:    bitmap("#"),
			x:      0,
			y:      0,
			wantNX: 0, wantNY: 1,
		},
		{
			name:   "horizontal run only",
			src:    bitmap("#####"),
			x:      2,
			y:      0,
			wantNX: 0, wantNY: 1,
		},
		{
			name:   "vertical run only",
			src:    bitmap("#", "#", "#", "#", "#"),
			x:      0,
			y:      2,
			wantNX: 1, wantNY: 0,
		},
		{
			name: "balanced cross",
			src: bitmap(
				".#.",
				"###",
				".#.",
			),
			x:              1,
			y:              1,
			wantNX:         0,
			wantNY:         1,
			wantDegenerate: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, stats := Build(tt.src, DefaultOptions())
			solid, nx, ny := decodeAt(t, r, tt.x, tt.y)
			if !solid {
				t.Fatal("expected solid pixel")
			}
			if nx != tt.wantNX || ny != tt.wantNY {
				t.Errorf("normal = (%d, %d), want (%d, %d)", nx, ny, tt.wantNX, tt.wantNY)
			}
			if stats.Degenerate != tt.wantDegenerate {
				t.Errorf("Degenerate = %d, want %d", stats.Degenerate, tt.wantDegenerate)
			}
		})
	}
}

func TestBuildAllBlank(t *testing.T) {
	r, stats := Build(image.NewNRGBA(image.Rect(0, 0, 8, 4)), DefaultOptions())
	if r.CountSolid() != 0 {
		t.Errorf("CountSolid = %d, want 0", r.CountSolid())
	}
	if stats.Solid != 0 || stats.Edge != 0 || stats.Interior != 0 {
		t.Errorf("stats = %+v", stats)
	}
	for _, p := range r.Pixels() {
		if p != collision.Blank {
			t.Fatalf("pixel %#x, want blank", uint32(p))
		}
	}
}

func TestBuildEmptyBitmap(t *testing.T) {
	r, stats := Build(image.NewNRGBA(image.Rect(0, 0, 0, 0)), DefaultOptions())
	if r != nil {
		t.Error("expected nil raster for empty bitmap")
	}
	if stats.Width != 0 || stats.Height != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBuildGenericImageMatchesNRGBA(t *testing.T) {
	nrgba := groundBitmap(16, 12, 5)

	alpha := image.NewAlpha(nrgba.Bounds())
	for y := 0; y < 12; y++ {
		for x := 0; x < 16; x++ {
			alpha.SetAlpha(x, y, color.Alpha{A: nrgba.NRGBAAt(x, y).A})
		}
	}

	want, _ := Build(nrgba, DefaultOptions())
	got, _ := Build(alpha, DefaultOptions())

	for y := 0; y < 12; y++ {
		for x := 0; x < 16; x++ {
			if got.At(x, y) != want.At(x, y) {
				t.Fatalf("pixel (%d, %d): %#x, want %#x", x, y, uint32(got.At(x, y)), uint32(want.At(x, y)))
			}
		}
	}
}

func TestBuildZeroRadiusUsesDefault(t *testing.T) {
	src := groundBitmap(20, 20, 10)
	want, _ := Build(src, DefaultOptions())
	got, _ := Build(src, Options{})

	if got.At(10, 10) != want.At(10, 10) {
		t.Errorf("zero options = %#x, default = %#x", uint32(got.At(10, 10)), uint32(want.At(10, 10)))
	}
}

func TestSmoothRadiusChangesWindow(t *testing.T) {
	src := groundBitmap(20, 20, 10)
	r, _ := Build(src, Options{SmoothRadius: 1})

	// 3 columns of rows 0..1: 3 * 1.
	_, nx, ny := decodeAt(t, r, 10, 10)
	if nx != 0 || ny != 3 {
		t.Errorf("normal = (%d, %d), want (0, 3)", nx, ny)
	}
}

func TestIsSolidAlpha(t *testing.T) {
	tests := []struct {
		c    color.Color
		want bool
	}{
		{color.NRGBA{}, false},
		{color.NRGBA{R: 255, G: 255, B: 255}, false},
		{color.NRGBA{A: 1}, true},
		{color.RGBA{R: 10, A: 255}, true},
		{color.Gray{Y: 0}, true},
	}
	for _, tt := range tests {
		if got := IsSolidAlpha(tt.c); got != tt.want {
			t.Errorf("IsSolidAlpha(%v) = %v, want %v", tt.c, got, tt.want)
		}
	}
}

func TestParseBorderMode(t *testing.T) {
	tests := []struct {
		in   string
		want BorderMode
		ok   bool
	}{
		{"", BorderBlank, true},
		{"blank", BorderBlank, true},
		{"solid", BorderSolid, true},
		{"wrap", BorderBlank, false},
	}
	for _, tt := range tests {
		got, ok := ParseBorderMode(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseBorderMode(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
		if ok && tt.in != "" && got.String() != tt.in {
			t.Errorf("String() = %q, want %q", got.String(), tt.in)
		}
	}
}
