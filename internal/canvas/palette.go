package canvas

import (
	"fmt"
)

// Palette is the set of color tokens a placement may use. Colors outside the
// palette are rejected as invalid input, never stored.
var Palette = []string{
	"#FFFFFF", "#E4E4E4", "#888888", "#222222",
	"#FFA7D1", "#E50000", "#E59500", "#A06A42",
	"#E5D900", "#94E044", "#02BE01", "#00D3DD",
	"#0083C7", "#0000EA", "#CF6EE4", "#820080",
}

var paletteSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Palette))
	for _, c := range Palette {
		set[c] = struct{}{}
	}
	return set
}()

func ValidColor(color string) bool {
	_, ok := paletteSet[color]
	return ok
}

// ValidatePlacement checks coordinates against the canvas bounds and the color
// against the palette.
func ValidatePlacement(x, y int, color string, width, height int) error {
	if x < 0 || x >= width || y < 0 || y >= height {
		return fmt.Errorf("coordinates (%d, %d) outside canvas bounds %dx%d", x, y, width, height)
	}

	if !ValidColor(color) {
		return fmt.Errorf("unrecognized color %q", color)
	}

	return nil
}
