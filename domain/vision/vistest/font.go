// Package vistest draws a small 5x7 block font so tests can build glyph
// templates and synthetic HUD frames from the same bitmaps.
package vistest

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/soocke/coop-overlay-go/domain/vision"
)

const (
	GlyphW = 5
	GlyphH = 7
)

var font = map[rune][GlyphH]string{
	'0': {".###.", "#...#", "#..##", "#.#.#", "##..#", "#...#", ".###."},
	'1': {"..#..", ".##..", "..#..", "..#..", "..#..", "..#..", ".###."},
	'2': {".###.", "#...#", "....#", "...#.", "..#..", ".#...", "#####"},
	'3': {"####.", "....#", "....#", ".###.", "....#", "....#", "####."},
	'4': {"...#.", "..##.", ".#.#.", "#..#.", "#####", "...#.", "...#."},
	'5': {"#####", "#....", "####.", "....#", "....#", "#...#", ".###."},
	'6': {"..##.", ".#...", "#....", "####.", "#...#", "#...#", ".###."},
	'7': {"#####", "....#", "...#.", "..#..", ".#...", ".#...", ".#..."},
	'8': {".###.", "#...#", "#...#", ".###.", "#...#", "#...#", ".###."},
	'9': {".###.", "#...#", "#...#", ".####", "....#", "...#.", ".##.."},
	'/': {"....#", "....#", "...#.", "..#..", ".#...", "#....", "#...."},
	':': {".....", "..#..", "..#..", ".....", "..#..", "..#..", "....."},
	'P': {"####.", "#...#", "#...#", "####.", "#....", "#....", "#...."},
	'A': {".###.", "#...#", "#...#", "#####", "#...#", "#...#", "#...#"},
	'U': {"#...#", "#...#", "#...#", "#...#", "#...#", "#...#", ".###."},
	'S': {".####", "#....", "#....", ".###.", "....#", "....#", "####."},
	'E': {"#####", "#....", "#....", "####.", "#....", "#....", "#####"},
	'D': {"####.", "#...#", "#...#", "#...#", "#...#", "#...#", "####."},
	'X': {"#...#", "#...#", ".#.#.", "..#..", ".#.#.", "#...#", "#...#"},
}

// Glyph returns the binary plane for r with every font pixel drawn as a
// scale x scale block. Unknown runes yield an empty plane.
func Glyph(r rune, scale int) *vision.Plane {
	rows, ok := font[r]
	if !ok || scale < 1 {
		return vision.NewPlane(0, 0)
	}
	p := vision.NewPlane(GlyphW*scale, GlyphH*scale)
	for gy, row := range rows {
		for gx, c := range row {
			if c != '#' {
				continue
			}
			for dy := 0; dy < scale; dy++ {
				for dx := 0; dx < scale; dx++ {
					p.Set(gx*scale+dx, gy*scale+dy, 255)
				}
			}
		}
	}
	return p
}

// Advance is the horizontal distance between consecutive glyph origins.
func Advance(scale int) int { return (GlyphW + 1) * scale }

// TextWidth returns the rendered width of text.
func TextWidth(text string, scale int) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return n*Advance(scale) - scale
}

// Frame returns an opaque w x h image filled with bg.
func Frame(w, h int, bg color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = bg.R, bg.G, bg.B, 255
	}
	return img
}

// DrawText paints text with its top-left corner at (x, y).
func DrawText(img *image.RGBA, x, y int, text string, scale int, c color.RGBA) {
	for i, r := range []rune(text) {
		g := Glyph(r, scale)
		ox := x + i*Advance(scale)
		for gy := 0; gy < g.H; gy++ {
			for gx := 0; gx < g.W; gx++ {
				if g.At(gx, gy) == 0 {
					continue
				}
				img.SetRGBA(ox+gx, y+gy, c)
			}
		}
	}
}

// TextImage renders text as opaque white glyphs on a transparent
// background, the way alpha-channel templates are authored.
func TextImage(text string, scale int) *image.NRGBA {
	w := TextWidth(text, scale)
	img := image.NewNRGBA(image.Rect(0, 0, w, GlyphH*scale))
	for i, r := range []rune(text) {
		g := Glyph(r, scale)
		ox := i * Advance(scale)
		for y := 0; y < g.H; y++ {
			for x := 0; x < g.W; x++ {
				if g.At(x, y) != 0 {
					img.SetNRGBA(ox+x, y, color.NRGBA{255, 255, 255, 255})
				}
			}
		}
	}
	return img
}

// TextPNG encodes text as a PNG. With alpha it matches TextImage; without
// it the glyphs are black on an opaque white background.
func TextPNG(text string, scale int, alpha bool) []byte {
	img := TextImage(text, scale)
	if !alpha {
		for i := 0; i < len(img.Pix); i += 4 {
			on := img.Pix[i+3] != 0
			v := uint8(255)
			if on {
				v = 0
			}
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// GlyphPNG is TextPNG for a single rune.
func GlyphPNG(r rune, scale int, alpha bool) []byte {
	return TextPNG(string(r), scale, alpha)
}

// Common HUD colors that fall inside the default palette.
var (
	Background = color.RGBA{20, 20, 20, 255}
	Terran     = color.RGBA{40, 90, 255, 255}
	Protoss    = color.RGBA{30, 200, 230, 255}
	Zerg       = color.RGBA{230, 30, 30, 255}
	Yellow     = color.RGBA{255, 210, 40, 255}
	White      = color.RGBA{240, 240, 240, 255}
)
