package stack

import (
	"fmt"
	"image/color"
)

// 柔和的薄荷、蓝、紫色系
var palette = []string{
	"#48cfae", // mint
	"#37bc9b", // teal
	"#4fc1e9", // sky
	"#3bafda", // ocean
	"#967adc", // purple
	"#ac92ec", // lavender
	"#a0d468", // grass
}

// PaletteSize is the length of the block color cycle.
func PaletteSize() int {
	return len(palette)
}

// ColorForTier 返回某一层的调色板下标和颜色
func ColorForTier(tier int) (int, string) {
	i := tier % len(palette)
	if i < 0 {
		i += len(palette)
	}
	return i, palette[i]
}

// PaletteRGBA 把调色板颜色解析成 color.RGBA，供绘图使用
func PaletteRGBA(index int) color.RGBA {
	_, hex := ColorForTier(index)
	return ParseHexColor(hex)
}

// ParseHexColor parses "#rrggbb". Malformed input yields opaque black.
func ParseHexColor(hex string) color.RGBA {
	c := color.RGBA{A: 0xff}
	if len(hex) != 7 || hex[0] != '#' {
		return c
	}
	if _, err := fmt.Sscanf(hex[1:], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return color.RGBA{A: 0xff}
	}
	return c
}
