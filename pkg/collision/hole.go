package collision

// repairMargin is how far past the hole radius normals are repaired.
const repairMargin = 2

// AddHole blanks every pixel within radius of level-space (x, y), then gives
// a normal to every interior pixel near the rim that has become an edge.
//
// The repair margin is the disc of radius+2 around the centre. Repaired
// normals point from the pixel toward the hole centre, i.e. out of the
// terrain. Pixels that already carry a nonzero normal are left alone.
// Everything is clamped to the raster bounds.
func (r *Raster) AddHole(x, y float32, radius int) {
	if radius < 0 {
		return
	}
	cx, cy := r.ToPixel(x, y)
	r.fillCircle(cx, cy, radius, Blank)

	m := radius + repairMargin
	mm := m * m
	for dx := -m; dx <= m; dx++ {
		for dy := -m; dy <= m; dy++ {
			px, py := cx+dx, cy+dy
			if dx*dx+dy*dy > mm || !r.InBounds(px, py) {
				continue
			}
			if !r.At(px, py).IsInterior() || !r.IsEdge(px, py) {
				continue
			}
			r.Set(px, py, EncodeSolid(-dx, dy))
		}
	}
}

// fillCircle writes p to every in-bounds pixel with dx*dx + dy*dy <= radius*radius.
func (r *Raster) fillCircle(cx, cy, radius int, p Pixel) {
	rr := radius * radius
	y0 := max(cy-radius, 0)
	y1 := min(cy+radius, r.height-1)
	x0 := max(cx-radius, 0)
	x1 := min(cx+radius, r.width-1)

	for py := y0; py <= y1; py++ {
		dy := py - cy
		row := py * r.width
		for px := x0; px <= x1; px++ {
			dx := px - cx
			if dx*dx+dy*dy <= rr {
				r.pix[row+px] = p
			}
		}
	}
}
