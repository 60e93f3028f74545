package render

import (
	"image/color"
	"strconv"
	"strings"
)

var (
	chartBlue = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	textGray  = color.Gray{Y: 100}
	ruleGray  = color.Gray{Y: 180}
)

// parseColor reads the CSS forms used by chart views: #rgb, #rrggbb and
// rgb(r, g, b). Anything else is chartBlue.
func parseColor(s string) color.RGBA {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "#") && len(s) == 4:
		s = "#" + strings.Repeat(s[1:2], 2) + strings.Repeat(s[2:3], 2) + strings.Repeat(s[3:4], 2)
		fallthrough
	case strings.HasPrefix(s, "#") && len(s) == 7:
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return chartBlue
		}
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			return chartBlue
		}
		var c [3]uint8
		for i, p := range parts {
			n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
			if err != nil {
				return chartBlue
			}
			c[i] = uint8(n)
		}
		return color.RGBA{R: c[0], G: c[1], B: c[2], A: 255}
	}
	return chartBlue
}

// fill returns the color s at the given opacity.
func fill(s string, opacity float64) color.Color {
	c := parseColor(s)
	if opacity <= 0 || opacity >= 1 {
		return c
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(opacity * 255)}
}
