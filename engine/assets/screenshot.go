package assets

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spaghettifunk/tremor/engine/core"
	"golang.org/x/image/bmp"
)

// ScreenshotWriter stores read back frames as BMP files.
type ScreenshotWriter struct {
	Dir string

	now func() time.Time
}

func NewScreenshotWriter(dir string) *ScreenshotWriter {
	return &ScreenshotWriter{Dir: dir, now: time.Now}
}

/**
 * @brief Writes bottom-up RGBA rows as a BMP file under Dir.
 * @return The path of the written file.
 */
func (sw *ScreenshotWriter) Write(pixels []byte, width, height uint32) (string, error) {
	if uint64(len(pixels)) != uint64(width)*uint64(height)*4 {
		return "", fmt.Errorf("screenshot: %d bytes for %dx%d pixels", len(pixels), width, height)
	}
	if err := os.MkdirAll(sw.Dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("shot-%s-%s.bmp", sw.now().Format("20060102-150405"), uuid.NewString()[:8])
	path := filepath.Join(sw.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := bmp.Encode(f, bottomUpToImage(pixels, int(width), int(height))); err != nil {
		return "", err
	}
	core.LogInfo("wrote screenshot %s", path)
	return path, nil
}

// bottomUpToImage turns bottom-up rows into a top-down image.
func bottomUpToImage(pixels []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowBytes := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * rowBytes
		copy(img.Pix[y*img.Stride:y*img.Stride+rowBytes], pixels[src:src+rowBytes])
	}
	return img
}
