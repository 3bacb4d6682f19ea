package metadata

type ResourceType int

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeShader
	ResourceTypeImage
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeImage:
		return "image"
	}
	return "none"
}

/**
 * @brief A file loaded from the asset directory. Data holds the decoded
 * content: []uint32 words for shaders, *ImageResourceData for images.
 */
type Resource struct {
	Name     string
	FullPath string
	DataSize uint64
	Data     interface{}
}

// ImageResourceData are tightly packed pixels, top row first.
type ImageResourceData struct {
	ChannelCount uint8
	Width        uint32
	Height       uint32
	Pixels       []uint8
}
