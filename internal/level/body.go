package level

import (
	"errors"

	"go.uber.org/zap"

	"github.com/Faultbox/craterfield/internal/logger"
	"github.com/Faultbox/craterfield/internal/shapes"
	"github.com/Faultbox/craterfield/pkg/collision"
	"github.com/Faultbox/craterfield/pkg/math"
)

// Body is a round object moving through the level.
type Body struct {
	Position math.Vec2 `yaml:"position"`
	Velocity math.Vec2 `yaml:"velocity"`
	Radius   float32   `yaml:"radius"`
	Friction float32   `yaml:"friction"`
	Bounce   float32   `yaml:"bounce"`
	// Explosive bodies punch a crater on first contact and are removed.
	Explosive bool `yaml:"explosive,omitempty"`
}

// Shape returns the body's hit-test circle.
func (b *Body) Shape() shapes.Shape {
	return shapes.Circle(b.Position.X, b.Position.Y, b.Radius)
}

// NewBody returns a resting body at pos with the level's friction and bounce.
func (l *Level) NewBody(pos math.Vec2, radius float32) Body {
	return Body{
		Position: pos,
		Radius:   radius,
		Friction: l.opts.Friction,
		Bounce:   l.opts.Bounce,
	}
}

// Spawn adds a copy of b to the level as given and returns it.
func (l *Level) Spawn(b Body) *Body {
	nb := &b
	l.bodies = append(l.bodies, nb)
	return nb
}

// Bodies returns the live bodies. The slice is only valid until the next Step.
func (l *Level) Bodies() []*Body { return l.bodies }

// Step advances every body by dt seconds.
//
// Bodies fall under gravity and move by their velocity. A body that ends
// inside terrain is projected out and bounced off the surface normal;
// explosive bodies instead punch a crater where they hit and are removed.
// Bodies past the kill margin are removed. Errors from crater tile uploads
// are joined and returned.
func (l *Level) Step(dt float32) error {
	var craters []math.Vec2

	alive := l.bodies[:0]
	for _, b := range l.bodies {
		b.Velocity.Y -= l.opts.Gravity * dt
		b.Position = b.Position.Add(b.Velocity.Scale(dt))

		if l.outside(b.Position) {
			logger.Debug("body left level",
				zap.Float32("x", b.Position.X),
				zap.Float32("y", b.Position.Y))
			continue
		}

		if !l.raster.Colliding(b.Position.X, b.Position.Y) {
			alive = append(alive, b)
			continue
		}

		if b.Explosive {
			craters = append(craters, b.Position)
			continue
		}

		n, _, err := l.raster.ProjectOutWith(&b.Position, b.Velocity, l.opts.Project)
		if errors.Is(err, collision.ErrProjectionStuck) {
			logger.Warn("body stuck in terrain",
				zap.Float32("x", b.Position.X),
				zap.Float32("y", b.Position.Y),
				zap.Int("maxSteps", l.opts.Project.MaxSteps))
		}
		if !n.IsZero() {
			collision.Bounce(&b.Velocity, n, b.Friction, b.Bounce)
		}
		alive = append(alive, b)
	}
	for i := len(alive); i < len(l.bodies); i++ {
		l.bodies[i] = nil
	}
	l.bodies = alive

	var errs []error
	for _, c := range craters {
		if err := l.AddHole(c.X, c.Y, l.opts.CraterRadius); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (l *Level) outside(p math.Vec2) bool {
	m := l.opts.KillMargin
	return p.Y < -m || p.X < -m || p.X > float32(l.raster.Width())+m
}
