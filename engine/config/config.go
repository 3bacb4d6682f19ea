package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

type Window struct {
	Name   string `toml:"name"`
	X      int32  `toml:"x"`
	Y      int32  `toml:"y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type Log struct {
	Level string `toml:"level"`
}

type Renderer struct {
	VSync          bool     `toml:"vsync"`
	GPU            int      `toml:"gpu"`
	StencilBits    int      `toml:"stencil_bits"`
	ZNear          float32  `toml:"znear"`
	OffsetFactor   float32  `toml:"offset_factor"`
	OffsetUnits    float32  `toml:"offset_units"`
	Shadows        int      `toml:"shadows"`
	Gamma          float32  `toml:"gamma"`
	ShaderGamma    bool     `toml:"shader_gamma"`
	IgnoreHWGamma  bool     `toml:"ignore_hw_gamma"`
	TextureMode    string   `toml:"texture_mode"`
	Debug          bool     `toml:"debug"`
	AssetDir       string   `toml:"asset_dir"`
	ScreenshotDir  string   `toml:"screenshot_dir"`
	SwizzleFormats []string `toml:"swizzle_formats"`
}

type Config struct {
	Window   Window   `toml:"window"`
	Log      Log      `toml:"log"`
	Renderer Renderer `toml:"renderer"`
}

func Default() *Config {
	return &Config{
		Window: Window{
			Name:   "Tremor",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Log: Log{Level: "info"},
		Renderer: Renderer{
			VSync:         true,
			GPU:           0,
			StencilBits:   8,
			ZNear:         4,
			OffsetFactor:  -1,
			OffsetUnits:   -2,
			Shadows:       0,
			Gamma:         1,
			ShaderGamma:   true,
			IgnoreHWGamma: false,
			TextureMode:   "GL_LINEAR_MIPMAP_NEAREST",
			AssetDir:      "assets",
			ScreenshotDir: "screenshots",
			SwizzleFormats: []string{
				"B8G8R8A8_SRGB",
				"B8G8R8A8_UNORM",
				"B8G8R8A8_SNORM",
			},
		},
	}
}

// Load reads the TOML file at path on top of the defaults. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data into cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return err
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("window size %dx%d is invalid", c.Window.Width, c.Window.Height)
	}
	r := c.Renderer
	if r.ZNear <= 0 {
		return fmt.Errorf("znear must be positive, got %v", r.ZNear)
	}
	if r.Shadows < 0 || r.Shadows > 2 {
		return fmt.Errorf("shadows must be 0, 1 or 2, got %d", r.Shadows)
	}
	if r.StencilBits < 0 {
		return fmt.Errorf("stencil_bits must not be negative, got %d", r.StencilBits)
	}
	if r.Gamma <= 0 {
		return fmt.Errorf("gamma must be positive, got %v", r.Gamma)
	}
	if _, _, ok := metadata.TextureModeFilters(r.TextureMode); !ok {
		return fmt.Errorf("unknown texture_mode %q", r.TextureMode)
	}
	return nil
}

// Encode writes the configuration back as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}
