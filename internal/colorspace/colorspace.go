// Package colorspace holds the pure color-math primitives shared by every
// effect: RGB<->HSV conversion, linear and hue-correct interpolation, and
// RGBCCT blending. Nothing here touches global state or panel/effect types.
package colorspace

import "math"

// RGBCCT is a five-channel color: red, green, blue, cool-white, warm-white,
// each in [0,255]. Alpha is an optional [0,1] blend weight not sent on the
// wire.
type RGBCCT struct {
	R     int     `json:"r"`
	G     int     `json:"g"`
	B     int     `json:"b"`
	Cool  int     `json:"cool"`
	Warm  int     `json:"warm"`
	Alpha float64 `json:"alpha,omitempty"`
}

// HSV is hue in [0,360), saturation and value in [0,1].
type HSV struct {
	H, S, V float64
}

// Black is the zeroed RGBCCT color.
var Black = RGBCCT{}

// ClampByte clamps an integer channel to [0,255].
func ClampByte(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// ClampUnit clamps a float to [0,1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamp clamps every channel of c to its valid range. Alpha, if set, is
// clamped to [0,1].
func Clamp(c RGBCCT) RGBCCT {
	return RGBCCT{
		R:     ClampByte(c.R),
		G:     ClampByte(c.G),
		B:     ClampByte(c.B),
		Cool:  ClampByte(c.Cool),
		Warm:  ClampByte(c.Warm),
		Alpha: ClampUnit(c.Alpha),
	}
}

// RGBToHSV converts the r/g/b channels of c (ignoring cool/warm) to HSV.
func RGBToHSV(c RGBCCT) HSV {
	r := float64(ClampByte(c.R)) / 255
	g := float64(ClampByte(c.G)) / 255
	b := float64(ClampByte(c.B)) / 255

	max := math.Max(r, math.Max(g, b))
	min := math.Min(r, math.Min(g, b))
	delta := max - min

	v := max
	var s float64
	if max > 0 {
		s = delta / max
	}

	var h float64
	switch {
	case delta == 0:
		h = 0
	case max == r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case max == g:
		h = 60 * ((b-r)/delta + 2)
	default: // max == b
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}

	return HSV{H: h, S: s, V: v}
}

// HSVToRGB converts h/s/v back to RGB channels; cool/warm and alpha are left
// zero since HSV carries no such information.
func HSVToRGB(hsv HSV) RGBCCT {
	h := math.Mod(hsv.H, 360)
	if h < 0 {
		h += 360
	}
	s := ClampUnit(hsv.S)
	v := ClampUnit(hsv.V)

	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r1, g1, b1 float64
	switch {
	case h < 60:
		r1, g1, b1 = c, x, 0
	case h < 120:
		r1, g1, b1 = x, c, 0
	case h < 180:
		r1, g1, b1 = 0, c, x
	case h < 240:
		r1, g1, b1 = 0, x, c
	case h < 300:
		r1, g1, b1 = x, 0, c
	default:
		r1, g1, b1 = c, 0, x
	}

	return RGBCCT{
		R: ClampByte(int(math.Round((r1 + m) * 255))),
		G: ClampByte(int(math.Round((g1 + m) * 255))),
		B: ClampByte(int(math.Round((b1 + m) * 255))),
	}
}

// lerp is the plain linear interpolation of two floats at t in [0,1].
func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// LerpRGBCCT linearly interpolates every channel independently, rounding and
// clamping the result. Alpha is interpolated too.
func LerpRGBCCT(a, b RGBCCT, t float64) RGBCCT {
	t = ClampUnit(t)
	return Clamp(RGBCCT{
		R:     int(math.Round(lerp(float64(a.R), float64(b.R), t))),
		G:     int(math.Round(lerp(float64(a.G), float64(b.G), t))),
		B:     int(math.Round(lerp(float64(a.B), float64(b.B), t))),
		Cool:  int(math.Round(lerp(float64(a.Cool), float64(b.Cool), t))),
		Warm:  int(math.Round(lerp(float64(a.Warm), float64(b.Warm), t))),
		Alpha: lerp(a.Alpha, b.Alpha, t),
	})
}

// LerpHSVRGB interpolates the RGB portion of a and b in HSV space, taking
// the shortest hue arc, while cool/warm/alpha are interpolated linearly as
// in LerpRGBCCT. This is the "hue-correct" interpolation spec.md §4.1 calls
// for.
func LerpHSVRGB(a, b RGBCCT, t float64) RGBCCT {
	t = ClampUnit(t)
	ha := RGBToHSV(a)
	hb := RGBToHSV(b)

	dh := hb.H - ha.H
	if dh > 180 {
		hb.H -= 360
	} else if dh < -180 {
		hb.H += 360
	}

	h := lerp(ha.H, hb.H, t)
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	s := lerp(ha.S, hb.S, t)
	v := lerp(ha.V, hb.V, t)

	rgb := HSVToRGB(HSV{H: h, S: s, V: v})
	rgb.Cool = int(math.Round(lerp(float64(a.Cool), float64(b.Cool), t)))
	rgb.Warm = int(math.Round(lerp(float64(a.Warm), float64(b.Warm), t)))
	rgb.Alpha = lerp(a.Alpha, b.Alpha, t)
	return Clamp(rgb)
}

// EaseOutQuad is the quadratic ease-out used by Solid/SequentialFade:
// t(2-t).
func EaseOutQuad(t float64) float64 {
	t = ClampUnit(t)
	return t * (2 - t)
}

// EaseOutCubic is 1-(1-t)^3, used by Static's color transitions.
func EaseOutCubic(t float64) float64 {
	t = ClampUnit(t)
	inv := 1 - t
	return 1 - inv*inv*inv
}

// EaseInOutQuad is the quadratic ease-in-out used by Blackout.
func EaseInOutQuad(t float64) float64 {
	t = ClampUnit(t)
	if t < 0.5 {
		return 2 * t * t
	}
	return 1 - math.Pow(-2*t+2, 2)/2
}
