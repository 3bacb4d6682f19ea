package metadata

import "strings"

// GLFilter names a texture filter with the GL enum value of the same name.
type GLFilter uint32

const (
	GL_NEAREST                GLFilter = 0x2600
	GL_LINEAR                 GLFilter = 0x2601
	GL_NEAREST_MIPMAP_NEAREST GLFilter = 0x2700
	GL_LINEAR_MIPMAP_NEAREST  GLFilter = 0x2701
	GL_NEAREST_MIPMAP_LINEAR  GLFilter = 0x2702
	GL_LINEAR_MIPMAP_LINEAR   GLFilter = 0x2703
)

/** @brief Value type key of a sampler object. */
type SamplerDef struct {
	Repeat    bool
	MagFilter GLFilter
	MinFilter GLFilter
}

type textureMode struct {
	name     string
	minimize GLFilter
	maximize GLFilter
}

var textureModes = []textureMode{
	{"GL_NEAREST", GL_NEAREST, GL_NEAREST},
	{"GL_LINEAR", GL_LINEAR, GL_LINEAR},
	{"GL_NEAREST_MIPMAP_NEAREST", GL_NEAREST_MIPMAP_NEAREST, GL_NEAREST},
	{"GL_LINEAR_MIPMAP_NEAREST", GL_LINEAR_MIPMAP_NEAREST, GL_LINEAR},
	{"GL_NEAREST_MIPMAP_LINEAR", GL_NEAREST_MIPMAP_LINEAR, GL_NEAREST},
	{"GL_LINEAR_MIPMAP_LINEAR", GL_LINEAR_MIPMAP_LINEAR, GL_LINEAR},
}

// TextureModeFilters resolves a texture mode name to the minification and
// magnification filters used for mipmapped images.
func TextureModeFilters(name string) (min GLFilter, mag GLFilter, ok bool) {
	for _, m := range textureModes {
		if strings.EqualFold(m.name, name) {
			return m.minimize, m.maximize, true
		}
	}
	return 0, 0, false
}
