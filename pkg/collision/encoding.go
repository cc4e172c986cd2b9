// Package collision implements the destructible terrain raster: a grid of
// bit-packed pixels recording solidity and surface normals, with the physics
// queries used to keep bodies out of solid terrain and to punch holes in it.
package collision

// Pixel is an encoded terrain pixel.
//
// Bit layout (least significant first):
//
//	bit 0       solidity
//	bits 1-11   normal y + Offset
//	bits 12-22  normal x + Offset
//	bits 23-31  reserved, always zero
type Pixel uint32

const (
	solidBits  = 1
	normalBits = 11

	solidMask  = 1<<solidBits - 1
	normalMask = 1<<normalBits - 1

	shiftY = solidBits
	shiftX = solidBits + normalBits

	// Offset is added to each signed normal component before packing.
	Offset = 1 << (normalBits - 1)

	// MaxComponent is the largest normal component magnitude that survives
	// a round trip. Larger values are clamped by EncodeSolid.
	MaxComponent = Offset - 1
)

// Blank is the canonical non-solid pixel.
const Blank Pixel = 0

// EncodeSolid packs a solid pixel with surface normal (nx, ny).
// Components are clamped to [-MaxComponent, MaxComponent] so they can never
// spill into a neighbouring field.
func EncodeSolid(nx, ny int) Pixel {
	nx = clampComponent(nx) + Offset
	ny = clampComponent(ny) + Offset
	return Pixel(solidMask | (uint32(nx)&normalMask)<<shiftX | (uint32(ny)&normalMask)<<shiftY)
}

// EncodeBlank returns the blank pixel.
func EncodeBlank() Pixel {
	return Blank
}

// Decode unpacks a pixel. For blank pixels nx and ny are zero.
func Decode(p Pixel) (solid bool, nx, ny int) {
	if !p.Solid() {
		return false, 0, 0
	}
	nx, ny = p.Normal()
	return true, nx, ny
}

// Solid reports whether the solidity bit is set.
func (p Pixel) Solid() bool {
	return p&solidMask != 0
}

// Normal returns the raw, unnormalized normal components.
// Meaningless for blank pixels.
func (p Pixel) Normal() (nx, ny int) {
	nx = int((uint32(p)>>shiftX)&normalMask) - Offset
	ny = int((uint32(p)>>shiftY)&normalMask) - Offset
	return nx, ny
}

// IsInterior reports whether p is solid with the (0, 0) interior marker.
func (p Pixel) IsInterior() bool {
	if !p.Solid() {
		return false
	}
	nx, ny := p.Normal()
	return nx == 0 && ny == 0
}

func clampComponent(v int) int {
	if v > MaxComponent {
		return MaxComponent
	}
	if v < -MaxComponent {
		return -MaxComponent
	}
	return v
}
