package renderer

import (
	"errors"
	"image"

	"go.uber.org/zap"

	"github.com/Faultbox/craterfield/internal/engine/tiles"
	"github.com/Faultbox/craterfield/internal/logger"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// ErrUnknownTexture is returned when re-uploading a texture this renderer
// did not create or already released.
var ErrUnknownTexture = errors.New("unknown texture")

// Upload creates a texture from img.
func (r *Renderer) Upload(img *image.RGBA) (tiles.TextureID, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w == 0 || h == 0 {
		return 0, errors.New("empty texture image")
	}

	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)

	// Pixel-art terrain: no filtering blur across crater rims.
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)

	pix := packed(img)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0,
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	gl.BindTexture(gl.TEXTURE_2D, 0)

	id := tiles.TextureID(tex)
	r.textures[id] = struct{}{}
	return id, nil
}

// Reupload replaces the contents of an existing texture. img must have the
// size the texture was created with.
func (r *Renderer) Reupload(id tiles.TextureID, img *image.RGBA) error {
	if _, ok := r.textures[id]; !ok {
		return ErrUnknownTexture
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()

	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(w), int32(h),
		gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(packed(img)))
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

// Release deletes a texture. Unknown ids are ignored.
func (r *Renderer) Release(id tiles.TextureID) {
	if _, ok := r.textures[id]; !ok {
		logger.Debug("release of unknown texture", zap.Uint32("id", uint32(id)))
		return
	}
	tex := uint32(id)
	gl.DeleteTextures(1, &tex)
	delete(r.textures, id)
}

// packed returns img's pixels without row padding.
func packed(img *image.RGBA) []uint8 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Stride == w*4 && len(img.Pix) == w*h*4 {
		return img.Pix
	}
	out := make([]uint8, w*h*4)
	for y := 0; y < h; y++ {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		copy(out[y*w*4:(y+1)*w*4], img.Pix[off:off+w*4])
	}
	return out
}
