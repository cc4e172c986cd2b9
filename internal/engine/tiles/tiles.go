// Package tiles splits a level bitmap into fixed-size textures and keeps them
// in step with the collision raster when craters are punched.
package tiles

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	stdmath "math"

	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"github.com/Faultbox/craterfield/internal/logger"
	"github.com/Faultbox/craterfield/pkg/math"
)

// DefaultTileSize is the edge length of a tile in pixels.
const DefaultTileSize = 512

// Cache errors.
var (
	ErrInvalidTileSize = errors.New("tile size must be positive")
	ErrEmptySource     = errors.New("source image is empty")
)

// TextureID identifies an uploaded tile texture.
type TextureID uint32

// Uploader owns GPU textures for tiles.
type Uploader interface {
	Upload(img *image.RGBA) (TextureID, error)
	Reupload(id TextureID, img *image.RGBA) error
	Release(id TextureID)
}

// Drawer draws a tile texture at a level-space rectangle.
type Drawer interface {
	DrawTile(id TextureID, x, y, w, h float32)
}

// Tile is one cell of the grid.
type Tile struct {
	Row, Col int

	// Image is the local pixel buffer in image space (row 0 = top of the tile).
	Image   *image.RGBA
	Texture TextureID
}

// Cache is the tiled visual copy of a level.
//
// Tiles are row-major in level space: row 0 is the bottom of the level.
// Partial tiles on the top and right edges keep their content anchored to the
// level's bottom-left; the padding sits outside the level and is transparent.
type Cache struct {
	tileSize int
	cols     int
	rows     int
	width    int
	height   int
	tiles    []*Tile
	up       Uploader
}

// New copies src into tiles of tileSize and uploads each one.
func New(src image.Image, tileSize int, up Uploader) (*Cache, error) {
	if tileSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTileSize, tileSize)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, ErrEmptySource
	}

	c := &Cache{
		tileSize: tileSize,
		cols:     (w + tileSize - 1) / tileSize,
		rows:     (h + tileSize - 1) / tileSize,
		width:    w,
		height:   h,
		up:       up,
	}
	c.tiles = make([]*Tile, c.cols*c.rows)

	for r := 0; r < c.rows; r++ {
		// Source row of the tile's top edge, and where copying starts in the
		// tile when the tile pokes above the level.
		srcY := h - r*tileSize - tileSize
		yOffset := 0
		copyH := tileSize
		if srcY < 0 {
			yOffset = -srcY
			copyH += srcY
			srcY = 0
		}

		for col := 0; col < c.cols; col++ {
			srcX := col * tileSize
			img := image.NewRGBA(image.Rect(0, 0, tileSize, tileSize))
			dst := image.Rect(0, yOffset, tileSize, yOffset+copyH)
			xdraw.Draw(img, dst, src, image.Pt(b.Min.X+srcX, b.Min.Y+srcY), xdraw.Src)

			id, err := up.Upload(img)
			if err != nil {
				c.Close()
				return nil, fmt.Errorf("uploading tile (%d, %d): %w", r, col, err)
			}
			c.tiles[c.index(r, col)] = &Tile{Row: r, Col: col, Image: img, Texture: id}
		}
	}

	logger.Debug("tile cache built",
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Int("cols", c.cols),
		zap.Int("rows", c.rows),
		zap.Int("tileSize", tileSize))

	return c, nil
}

func (c *Cache) index(r, col int) int {
	return r*c.cols + col
}

// Cols returns the number of tile columns.
func (c *Cache) Cols() int { return c.cols }

// Rows returns the number of tile rows.
func (c *Cache) Rows() int { return c.rows }

// TileSize returns the tile edge length in pixels.
func (c *Cache) TileSize() int { return c.tileSize }

// Bounds returns the level size in pixels.
func (c *Cache) Bounds() (width, height int) { return c.width, c.height }

// Tile returns the tile at level-space row r and column col, or nil.
func (c *Cache) Tile(r, col int) *Tile {
	if c.tiles == nil || r < 0 || col < 0 || r >= c.rows || col >= c.cols {
		return nil
	}
	return c.tiles[c.index(r, col)]
}

// tileRange maps a level-space span onto an inclusive, clamped tile range.
// A closed cache has no tiles in range.
func (c *Cache) tileRange(x0, y0, x1, y1 int) (r0, c0, r1, c1 int, ok bool) {
	if c.tiles == nil {
		return 0, 0, 0, 0, false
	}
	r0, r1 = math.FloorDiv(y0, c.tileSize), math.FloorDiv(y1, c.tileSize)
	c0, c1 = math.FloorDiv(x0, c.tileSize), math.FloorDiv(x1, c.tileSize)
	if r1 < 0 || c1 < 0 || r0 >= c.rows || c0 >= c.cols || r0 > r1 || c0 > c1 {
		return 0, 0, 0, 0, false
	}
	r0 = math.ClampInt(r0, 0, c.rows-1)
	c0 = math.ClampInt(c0, 0, c.cols-1)
	r1 = math.ClampInt(r1, 0, c.rows-1)
	c1 = math.ClampInt(c1, 0, c.cols-1)
	return r0, c0, r1, c1, true
}

// VisibleRange returns the inclusive tile range overlapping view.
// ok is false when the view lies entirely outside the level.
func (c *Cache) VisibleRange(view math.Rect) (r0, c0, r1, c1 int, ok bool) {
	x0 := int(stdmath.Floor(float64(view.X)))
	y0 := int(stdmath.Floor(float64(view.Y)))
	x1 := int(stdmath.Floor(float64(view.MaxX())))
	y1 := int(stdmath.Floor(float64(view.MaxY())))
	return c.tileRange(x0, y0, x1, y1)
}

// Render draws every tile overlapping view and returns how many were drawn.
func (c *Cache) Render(d Drawer, view math.Rect) int {
	r0, c0, r1, c1, ok := c.VisibleRange(view)
	if !ok {
		return 0
	}
	size := float32(c.tileSize)
	n := 0
	for r := r0; r <= r1; r++ {
		for col := c0; col <= c1; col++ {
			t := c.tiles[c.index(r, col)]
			d.DrawTile(t.Texture, float32(col)*size, float32(r)*size, size, size)
			n++
		}
	}
	return n
}

// AddHole clears a disc of radius pixels centred at level-space (x, y) in
// every tile it touches and re-uploads those tiles. It mirrors
// collision.Raster.AddHole so the picture matches the terrain.
func (c *Cache) AddHole(x, y float32, radius int) error {
	if radius < 0 {
		return nil
	}
	lx, ly := int(x), int(y)

	// Level row L lands in image row height-L, which belongs to tile
	// row (L-1)/tileSize; hence the -1 on the vertical span.
	r0, c0, r1, c1, ok := c.tileRange(lx-radius, ly-radius-1, lx+radius, ly+radius-1)
	if !ok {
		return nil
	}

	var errs []error
	for r := r0; r <= r1; r++ {
		for col := c0; col <= c1; col++ {
			t := c.tiles[c.index(r, col)]
			px := lx - col*c.tileSize
			py := c.tileSize - (ly - r*c.tileSize)
			clearDisc(t.Image, px, py, radius)
			if err := c.up.Reupload(t.Texture, t.Image); err != nil {
				errs = append(errs, fmt.Errorf("reuploading tile (%d, %d): %w", r, col, err))
			}
		}
	}
	return errors.Join(errs...)
}

// clearDisc sets every pixel within radius of (cx, cy) to transparent,
// clipped to the image.
func clearDisc(img *image.RGBA, cx, cy, radius int) {
	b := img.Bounds()
	rr := radius * radius
	for dy := -radius; dy <= radius; dy++ {
		py := cy + dy
		if py < b.Min.Y || py >= b.Max.Y {
			continue
		}
		for dx := -radius; dx <= radius; dx++ {
			px := cx + dx
			if px < b.Min.X || px >= b.Max.X || dx*dx+dy*dy > rr {
				continue
			}
			img.SetRGBA(px, py, color.RGBA{})
		}
	}
}

// Close releases every uploaded texture. Afterwards Render draws nothing,
// AddHole does nothing and Close is a no-op.
func (c *Cache) Close() {
	for _, t := range c.tiles {
		if t != nil {
			c.up.Release(t.Texture)
		}
	}
	c.tiles = nil
}
