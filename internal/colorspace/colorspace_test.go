package colorspace

import "testing"

func TestRGBToHSVRoundTrip(t *testing.T) {
	cases := []RGBCCT{
		{R: 255, G: 0, B: 0},
		{R: 0, G: 255, B: 0},
		{R: 0, G: 0, B: 255},
		{R: 255, G: 255, B: 255},
		{R: 0, G: 0, B: 0},
		{R: 128, G: 64, B: 200},
	}
	for _, c := range cases {
		hsv := RGBToHSV(c)
		back := HSVToRGB(hsv)
		if abs(back.R-c.R) > 1 || abs(back.G-c.G) > 1 || abs(back.B-c.B) > 1 {
			t.Errorf("round trip %v -> %v -> %v drifted too far", c, hsv, back)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func TestLerpRGBCCTClampsAndRounds(t *testing.T) {
	a := RGBCCT{R: 0, G: 0, B: 0, Cool: 0, Warm: 0}
	b := RGBCCT{R: 255, G: 255, B: 255, Cool: 255, Warm: 255}

	got := LerpRGBCCT(a, b, 0.5)
	want := RGBCCT{R: 128, G: 128, B: 128, Cool: 128, Warm: 128}
	if got.R != want.R || got.G != want.G || got.B != want.B || got.Cool != want.Cool || got.Warm != want.Warm {
		t.Fatalf("LerpRGBCCT(0.5) = %+v, want %+v", got, want)
	}

	if got := LerpRGBCCT(a, b, -1); got.R != 0 {
		t.Fatalf("LerpRGBCCT should clamp t below 0")
	}
	if got := LerpRGBCCT(a, b, 2); got.R != 255 {
		t.Fatalf("LerpRGBCCT should clamp t above 1")
	}
}

// LerpHSVRGB must choose the shortest hue arc: red (0deg) to blue (240deg)
// at t=0.5 passes through magenta (300deg), not cyan (120deg), per
// spec.md's canonical test.
func TestLerpHSVRGBShortestArc(t *testing.T) {
	red := RGBCCT{R: 255, G: 0, B: 0}
	blue := RGBCCT{R: 0, G: 0, B: 255}

	mid := LerpHSVRGB(red, blue, 0.5)
	hsv := RGBToHSV(mid)

	// Shortest arc from 0 to 240 goes through negative/360 side, landing
	// near 300 degrees (magenta), not 120 (green/cyan side).
	if hsv.H < 270 || hsv.H > 330 {
		t.Fatalf("expected hue near magenta (~300deg), got %.1f (color %+v)", hsv.H, mid)
	}
}

func TestLerpHSVRGBEndpointsIdempotent(t *testing.T) {
	a := RGBCCT{R: 10, G: 20, B: 30}
	b := RGBCCT{R: 200, G: 150, B: 90}

	got0 := LerpHSVRGB(a, b, 0)
	if abs(got0.R-a.R) > 1 || abs(got0.G-a.G) > 1 || abs(got0.B-a.B) > 1 {
		t.Fatalf("t=0 should reproduce a, got %+v want %+v", got0, a)
	}
	got1 := LerpHSVRGB(a, b, 1)
	if abs(got1.R-b.R) > 1 || abs(got1.G-b.G) > 1 || abs(got1.B-b.B) > 1 {
		t.Fatalf("t=1 should reproduce b, got %+v want %+v", got1, b)
	}
}

func TestEasingFunctionsBounded(t *testing.T) {
	for _, fn := range []func(float64) float64{EaseOutQuad, EaseOutCubic, EaseInOutQuad} {
		if v := fn(0); v != 0 {
			t.Errorf("ease(0) = %v, want 0", v)
		}
		if v := fn(1); v < 0.999 || v > 1.001 {
			t.Errorf("ease(1) = %v, want ~1", v)
		}
	}
}
