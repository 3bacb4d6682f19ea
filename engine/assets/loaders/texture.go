package loaders

import (
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"

	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

// TextureLoader decodes PNG, JPEG and BMP files into RGBA pixels.
type TextureLoader struct{}

func (tl *TextureLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	// Open and decode the texture image file
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	data := toRGBA(img)
	return &metadata.Resource{
		Name:     path,
		FullPath: path,
		DataSize: uint64(len(data.Pixels)),
		Data:     data,
	}, nil
}

func (tl *TextureLoader) Unload(*metadata.Resource) error {
	return nil
}

func toRGBA(img image.Image) *metadata.ImageResourceData {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	return &metadata.ImageResourceData{
		ChannelCount: 4,
		Width:        uint32(bounds.Dx()),
		Height:       uint32(bounds.Dy()),
		Pixels:       rgba.Pix,
	}
}
