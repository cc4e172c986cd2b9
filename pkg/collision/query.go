package collision

import (
	"errors"

	"github.com/Faultbox/craterfield/pkg/math"
)

// Projection tuning.
const (
	// MaxAlignedCos is the largest cosine between a stored normal and the
	// velocity that is accepted as-is. Anything above (roughly 20 degrees
	// from parallel) is treated as an estimation error and flipped.
	MaxAlignedCos = 0.35

	// DefaultProjectStep is the distance moved per projection iteration.
	DefaultProjectStep = 0.1

	// DefaultMaxProjectSteps bounds a single ProjectOut call.
	DefaultMaxProjectSteps = 10000
)

// ErrProjectionStuck is returned when ProjectOut cannot leave solid terrain
// within its iteration cap.
var ErrProjectionStuck = errors.New("projection did not escape solid terrain")

// ProjectOptions tunes ProjectOut.
type ProjectOptions struct {
	Step     float32
	MaxSteps int
}

// DefaultProjectOptions returns the standard step size and iteration cap.
func DefaultProjectOptions() ProjectOptions {
	return ProjectOptions{
		Step:     DefaultProjectStep,
		MaxSteps: DefaultMaxProjectSteps,
	}
}

// SurfaceNormal returns the unit surface normal at level-space (x, y), or
// false if the pixel there is blank. Interior pixels yield the zero vector.
// Coordinates outside the raster read as blank.
func (r *Raster) SurfaceNormal(x, y float32) (math.Vec2, bool) {
	solid, nx, ny := Decode(r.At(r.ToPixel(x, y)))
	if !solid {
		return math.Vec2{}, false
	}
	return math.Vec2{X: float32(nx), Y: float32(ny)}.Normalize(), true
}

// SurfaceNormalAgainst is SurfaceNormal corrected so the normal does not point
// along vel. Normals whose cosine with vel exceeds MaxAlignedCos are negated.
func (r *Raster) SurfaceNormalAgainst(x, y float32, vel math.Vec2) (math.Vec2, bool) {
	n, ok := r.SurfaceNormal(x, y)
	if !ok {
		return n, false
	}
	if n.Cos(vel) > MaxAlignedCos {
		n = n.Neg()
	}
	return n, true
}

// Colliding reports whether level-space (x, y) is inside solid terrain.
func (r *Raster) Colliding(x, y float32) bool {
	px, py := r.ToPixel(x, y)
	return r.At(px, py).Solid()
}

// ProjectOut moves *pos out of solid terrain with the default options.
// See ProjectOutWith.
func (r *Raster) ProjectOut(pos *math.Vec2, vel math.Vec2) (math.Vec2, bool, error) {
	return r.ProjectOutWith(pos, vel, DefaultProjectOptions())
}

// ProjectOutWith moves *pos out of solid terrain in small fixed steps.
//
// Each step follows the velocity-corrected surface normal at the current point,
// or the reverse of vel where the normal is the interior marker. It returns the
// last nonzero normal used (zero if every step was an interior fallback) and
// true when pos started inside terrain. ErrProjectionStuck is returned, with
// pos left where the cap stopped it, when no escape was found.
func (r *Raster) ProjectOutWith(pos *math.Vec2, vel math.Vec2, opts ProjectOptions) (math.Vec2, bool, error) {
	n, ok := r.SurfaceNormalAgainst(pos.X, pos.Y, vel)
	if !ok {
		return math.Vec2{}, false, nil
	}
	if opts.Step <= 0 {
		opts.Step = DefaultProjectStep
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxProjectSteps
	}

	back := vel.Normalize().Neg().Scale(opts.Step)
	var last math.Vec2

	for steps := 0; ok; steps++ {
		if steps >= opts.MaxSteps {
			return last, true, ErrProjectionStuck
		}
		if n.IsZero() {
			*pos = pos.Add(back)
		} else {
			*pos = pos.Add(n.Scale(opts.Step))
			last = n
		}
		n, ok = r.SurfaceNormalAgainst(pos.X, pos.Y, vel)
	}
	return last, true, nil
}

// Bounce rewrites *vel as a reflection off a surface with unit normal n.
// b scales the kept normal (restitution) component and f the kept tangential
// (friction) component; both are expected in [0, 1].
func Bounce(vel *math.Vec2, n math.Vec2, f, b float32) {
	v := *vel

	vert := n.Scale(-b * v.Dot(n))
	if vert.Dot(n) < 0 {
		vert = vert.Neg()
	}

	perp := n.Perp()
	horz := perp.Scale(f * v.Dot(perp))

	*vel = vert.Add(horz)
}

// Bounce is the method form of the package-level Bounce.
func (r *Raster) Bounce(vel *math.Vec2, n math.Vec2, f, b float32) {
	Bounce(vel, n, f, b)
}
