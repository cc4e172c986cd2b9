package level

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/craterfield/internal/config"
	"github.com/Faultbox/craterfield/internal/engine/tiles"
	"github.com/Faultbox/craterfield/internal/preprocess"
	"github.com/Faultbox/craterfield/pkg/collision"
	"github.com/Faultbox/craterfield/pkg/formats"
	"github.com/Faultbox/craterfield/pkg/math"
)

type fakeUploader struct {
	next      tiles.TextureID
	reuploads int
	released  int
	failRe    bool
}

func (f *fakeUploader) Upload(img *image.RGBA) (tiles.TextureID, error) {
	f.next++
	return f.next, nil
}

func (f *fakeUploader) Reupload(id tiles.TextureID, img *image.RGBA) error {
	f.reuploads++
	if f.failRe {
		return errors.New("reupload failed")
	}
	return nil
}

func (f *fakeUploader) Release(id tiles.TextureID) {
	f.released++
}

// groundImage is w×h with the rows from surface down solid.
func groundImage(w, h, surface int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := surface; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 120, G: 80, B: 40, A: 255})
		}
	}
	return img
}

// groundLevel is a 20×20 level whose surface is at level y = 11.
func groundLevel(t *testing.T, up tiles.Uploader) *Level {
	t.Helper()
	src := groundImage(20, 20, 10)
	r, _ := preprocess.Build(src, preprocess.DefaultOptions())

	opts := DefaultOptions()
	opts.Gravity = 0
	opts.CraterRadius = 3
	var visual image.Image
	if up != nil {
		visual = src
	}
	l, err := New(r, visual, up, 8, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func emptyLevel(t *testing.T, w, h int) *Level {
	t.Helper()
	r, err := collision.New(w, h)
	if err != nil {
		t.Fatal(err)
	}
	l, err := New(r, nil, nil, 8, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestNewWithoutRaster(t *testing.T) {
	if _, err := New(nil, nil, nil, 8, DefaultOptions()); !errors.Is(err, ErrNoRaster) {
		t.Errorf("err = %v, want ErrNoRaster", err)
	}
}

func TestNewBuildsTiles(t *testing.T) {
	up := &fakeUploader{}
	l := groundLevel(t, up)

	if l.Tiles() == nil {
		t.Fatal("expected a tile cache")
	}
	if l.Tiles().Cols() != 3 || l.Tiles().Rows() != 3 {
		t.Errorf("grid = %dx%d, want 3x3", l.Tiles().Cols(), l.Tiles().Rows())
	}
	if b := l.Bounds(); b.W != 20 || b.H != 20 {
		t.Errorf("bounds = %+v", b)
	}

	l.Close()
	l.Close()
	if up.released != 9 {
		t.Errorf("released %d textures, want 9", up.released)
	}
}

func TestAddHoleAfterClose(t *testing.T) {
	up := &fakeUploader{}
	l := groundLevel(t, up)
	l.Close()

	if err := l.AddHole(10.5, 10, 3); err != nil {
		t.Fatalf("AddHole after Close: %v", err)
	}
	if up.reuploads != 0 {
		t.Errorf("reuploads after Close = %d, want 0", up.reuploads)
	}
	if l.Raster().At(10, 10).Solid() {
		t.Error("raster should still take the hole")
	}
	if n := l.Render(nil, l.Bounds()); n != 0 {
		t.Errorf("Render after Close drew %d tiles", n)
	}
}

func TestNewSizeMismatchStillLoads(t *testing.T) {
	r, _ := collision.New(10, 10)
	if _, err := New(r, groundImage(12, 10, 5), &fakeUploader{}, 8, DefaultOptions()); err != nil {
		t.Errorf("size mismatch should only warn, got %v", err)
	}
}

func TestAddHoleForwardsToRasterAndTiles(t *testing.T) {
	up := &fakeUploader{}
	l := groundLevel(t, up)

	var gotX, gotY float32
	var gotR int
	calls := 0
	l.OnHole = func(x, y float32, radius int) {
		gotX, gotY, gotR = x, y, radius
		calls++
	}

	if err := l.AddHole(10, 10, 2); err != nil {
		t.Fatalf("AddHole: %v", err)
	}

	if l.Raster().At(10, 10).Solid() {
		t.Error("raster pixel at the hole centre is still solid")
	}
	if up.reuploads == 0 {
		t.Error("no tile was re-uploaded")
	}
	// Level (10, 10) is tile (1, 1), local pixel (2, 6).
	if a := l.Tiles().Tile(1, 1).Image.RGBAAt(2, 6).A; a != 0 {
		t.Errorf("tile pixel alpha = %d, want 0", a)
	}
	if calls != 1 || gotX != 10 || gotY != 10 || gotR != 2 {
		t.Errorf("OnHole called %d times with (%v, %v, %d)", calls, gotX, gotY, gotR)
	}
}

func TestAddHoleReportsTileErrors(t *testing.T) {
	up := &fakeUploader{failRe: true}
	l := groundLevel(t, up)

	if err := l.AddHole(10, 10, 2); err == nil {
		t.Error("expected re-upload error")
	}
	if l.Raster().At(10, 10).Solid() {
		t.Error("raster should be updated even when tiles fail")
	}
}

func TestStepBouncesOffGround(t *testing.T) {
	l := groundLevel(t, nil)
	nb := l.NewBody(math.Vec2{X: 10.5, Y: 12}, 1)
	nb.Velocity = math.Vec2{Y: -20}
	b := l.Spawn(nb)

	if err := l.Step(0.1); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if l.Raster().Colliding(b.Position.X, b.Position.Y) {
		t.Errorf("body still inside terrain at %+v", b.Position)
	}
	if b.Position.Y < 11 || b.Position.Y > 11.2 {
		t.Errorf("body y = %v, want just above the surface", b.Position.Y)
	}
	// Restitution 0.5 of the 20 px/s impact speed.
	if d := b.Velocity.Y - 10; d < -0.01 || d > 0.01 {
		t.Errorf("velocity = %+v, want (0, 10)", b.Velocity)
	}
}

func TestStepExplosiveMakesCrater(t *testing.T) {
	up := &fakeUploader{}
	l := groundLevel(t, up)
	holes := 0
	l.OnHole = func(x, y float32, radius int) { holes++ }

	l.Spawn(Body{Position: math.Vec2{X: 10.5, Y: 12}, Velocity: math.Vec2{Y: -20}, Explosive: true})
	if err := l.Step(0.1); err != nil {
		t.Fatalf("Step: %v", err)
	}

	if len(l.Bodies()) != 0 {
		t.Errorf("%d bodies left, want 0", len(l.Bodies()))
	}
	if holes != 1 {
		t.Errorf("OnHole called %d times, want 1", holes)
	}
	if l.Raster().At(10, 10).Solid() {
		t.Error("impact pixel should be blank")
	}
}

func TestStepGravityAndKill(t *testing.T) {
	l := emptyLevel(t, 50, 50)
	falling := l.Spawn(Body{Position: math.Vec2{X: 25, Y: 40}})
	l.Spawn(Body{Position: math.Vec2{X: 5, Y: 1}, Velocity: math.Vec2{Y: -200}})

	if err := l.Step(0.5); err != nil {
		t.Fatal(err)
	}

	if len(l.Bodies()) != 1 || l.Bodies()[0] != falling {
		t.Fatalf("bodies = %d, want only the slow one", len(l.Bodies()))
	}
	if falling.Velocity.Y >= 0 || falling.Position.Y >= 40 {
		t.Errorf("gravity not applied: %+v", *falling)
	}
}

func TestSetOptionsRetunesStep(t *testing.T) {
	l := emptyLevel(t, 50, 50)
	b := l.Spawn(l.NewBody(math.Vec2{X: 25, Y: 40}, 1))

	opts := l.Options()
	opts.Gravity = 0
	l.SetOptions(opts)
	if err := l.Step(0.5); err != nil {
		t.Fatal(err)
	}
	if b.Position != (math.Vec2{X: 25, Y: 40}) {
		t.Errorf("body moved to %+v with gravity off", b.Position)
	}
}

func TestNewBodyUsesLevelDefaults(t *testing.T) {
	l := emptyLevel(t, 10, 10)
	b := l.NewBody(math.Vec2{X: 3, Y: 4}, 2)
	want := Body{Position: math.Vec2{X: 3, Y: 4}, Radius: 2, Friction: DefaultOptions().Friction, Bounce: DefaultOptions().Bounce}
	if b != want {
		t.Errorf("NewBody = %+v, want %+v", b, want)
	}
}

func TestSpawnKeepsZeroFrictionAndBounce(t *testing.T) {
	l := groundLevel(t, nil)
	b := l.Spawn(Body{Position: math.Vec2{X: 10.5, Y: 12}, Velocity: math.Vec2{Y: -20}, Radius: 1})
	if b.Friction != 0 || b.Bounce != 0 {
		t.Fatalf("spawned friction %v bounce %v, want 0 0", b.Friction, b.Bounce)
	}

	if err := l.Step(0.1); err != nil {
		t.Fatalf("Step: %v", err)
	}
	// No restitution and no friction: the impact absorbs all motion.
	if b.Velocity.Length() > 0.01 {
		t.Errorf("velocity = %+v, want zero", b.Velocity)
	}
}

func TestStepStuckBodyStays(t *testing.T) {
	pix := make([]collision.Pixel, 10*10)
	for i := range pix {
		pix[i] = collision.EncodeSolid(0, 0)
	}
	r, err := collision.FromPixels(10, 10, pix)
	if err != nil {
		t.Fatal(err)
	}
	opts := DefaultOptions()
	opts.Gravity = 0
	opts.Project.MaxSteps = 5
	l, _ := New(r, nil, nil, 8, opts)

	b := l.Spawn(Body{Position: math.Vec2{X: 5, Y: 5}})
	if err := l.Step(0.1); err != nil {
		t.Errorf("stuck projection should be logged, not returned: %v", err)
	}
	if len(l.Bodies()) != 1 || b.Position != (math.Vec2{X: 5, Y: 5}) {
		t.Errorf("stuck body moved or vanished: %+v", *b)
	}
}

func TestBlastPushesNearbyBodies(t *testing.T) {
	l := emptyLevel(t, 50, 50)
	near := l.Spawn(Body{Position: math.Vec2{X: 30, Y: 20}, Radius: 1})
	far := l.Spawn(Body{Position: math.Vec2{X: 45, Y: 45}, Radius: 1})

	if err := l.AddHole(20, 20, 5); err != nil {
		t.Fatal(err)
	}

	if near.Velocity.X <= 0 || near.Velocity.Y != 0 {
		t.Errorf("near body velocity = %+v, want pushed along +x", near.Velocity)
	}
	if !far.Velocity.IsZero() {
		t.Errorf("far body velocity = %+v, want untouched", far.Velocity)
	}
}

func TestStateRoundTrip(t *testing.T) {
	l := emptyLevel(t, 10, 10)
	l.Spawn(Body{
		Position: math.Vec2{X: 1.5, Y: 2},
		Velocity: math.Vec2{X: -3, Y: 4},
		Radius:   2,
		Friction: 0.25,
		Bounce:   0.75,
	})

	var buf bytes.Buffer
	if err := l.SaveState(&buf); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	other := emptyLevel(t, 10, 10)
	other.Spawn(Body{})
	if err := other.LoadState(&buf); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(other.Bodies()) != 1 {
		t.Fatalf("loaded %d bodies, want 1", len(other.Bodies()))
	}
	if got, want := *other.Bodies()[0], *l.Bodies()[0]; got != want {
		t.Errorf("loaded %+v, want %+v", got, want)
	}
}

func TestStateFileErrors(t *testing.T) {
	l := emptyLevel(t, 4, 4)
	if err := l.LoadStateFile("/nonexistent/state.yaml"); err == nil {
		t.Error("expected error for missing state file")
	}

	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := os.WriteFile(path, []byte("bodies: [oops"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := l.LoadStateFile(path); err == nil {
		t.Error("expected error for malformed state")
	}
}

func TestLoadFromConfig(t *testing.T) {
	dir := t.TempDir()
	src := groundImage(16, 16, 8)
	r, _ := preprocess.Build(src, preprocess.DefaultOptions())

	crm := filepath.Join(dir, "level.crm")
	if err := formats.WriteCRMFile(crm, r); err != nil {
		t.Fatal(err)
	}
	visual := filepath.Join(dir, "level.png")
	f, err := os.Create(visual)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, src); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg := config.Default()
	cfg.Level.CollisionMap = crm
	cfg.Level.VisualMap = visual
	cfg.Level.TileSize = 8
	cfg.Physics.CraterRadius = 5

	up := &fakeUploader{}
	l, err := Load(cfg, up)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer l.Close()

	if l.Tiles().Cols() != 2 || l.Tiles().Rows() != 2 {
		t.Errorf("grid = %dx%d, want 2x2", l.Tiles().Cols(), l.Tiles().Rows())
	}
	if l.Options().CraterRadius != 5 {
		t.Errorf("crater radius = %d, want 5", l.Options().CraterRadius)
	}
	if l.Raster().CountSolid() != r.CountSolid() {
		t.Error("loaded raster differs from the saved one")
	}

	// Saving the cratered raster round-trips through the codec.
	if err := l.AddHole(8, 8, 2); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "cratered.crm")
	if err := l.SaveRaster(out); err != nil {
		t.Fatal(err)
	}
	back, err := formats.LoadRaster(out)
	if err != nil {
		t.Fatal(err)
	}
	if back.CountSolid() != l.Raster().CountSolid() {
		t.Error("saved raster lost the crater")
	}

	cfg.Level.CollisionMap = filepath.Join(dir, "missing.crm")
	if _, err := Load(cfg, up); err == nil {
		t.Error("expected error for missing collision map")
	}
}
