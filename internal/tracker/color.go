package tracker

import "image/color"

// Color returns the display color for a track id. It is a pure function of
// the id so a track keeps its color for its whole life.
func Color(id int) color.RGBA {
	seed := id * 50
	return color.RGBA{
		R: uint8(mod256(seed * 211)),
		G: uint8(mod256(seed * 137)),
		B: uint8(mod256(seed * 67)),
		A: 255,
	}
}

func mod256(v int) int {
	v %= 256
	if v < 0 {
		v += 256
	}
	return v
}
