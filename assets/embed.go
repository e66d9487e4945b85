package assets

import (
	_ "embed"
)

// ProfilesYAML holds the default HSV palette for the faction colors, the
// countdown text and the pause banner. HSV values use the 8-bit OpenCV scale
// (H 0..179, S and V 0..255).
//
//go:embed profiles.yaml
var ProfilesYAML []byte
