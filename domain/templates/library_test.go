package templates

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/soocke/coop-overlay-go/domain/vision/vistest"
)

var discardLogger = slog.New(slog.NewTextHandler(&discardWriter{}, nil))

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func iconPNG(c color.NRGBA) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 2; y < 6; y++ {
		for x := 2; x < 6; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"manifest.yaml":          {Data: []byte("aliases:\n  void-rifts: Void Rifts\n")},
		"count.terran/3.png":     {Data: vistest.GlyphPNG('3', 1, true)},
		"count/slash.png":        {Data: vistest.GlyphPNG('/', 1, false)},
		"count/broken.png":       {Data: []byte("not a png")},
		"time/colon_alt.png":     {Data: vistest.GlyphPNG(':', 1, true)},
		"pause/p.png":            {Data: vistest.GlyphPNG('P', 1, true)},
		"race/terran.png":        {Data: iconPNG(color.NRGBA{40, 90, 255, 255})},
		"mutator/void-rifts.png": {Data: iconPNG(color.NRGBA{200, 40, 200, 255})},
		"README.txt":             {Data: []byte("ignored")},
		"count/deep/4.png":       {Data: vistest.GlyphPNG('4', 1, true)},
	}
}

func TestLoadFS_IndexesByKeyVariantAndPool(t *testing.T) {
	lib, err := LoadFS(testFS(), discardLogger)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if lib.Len() != 6 {
		t.Fatalf("expected 6 templates, got %d (keys %v)", lib.Len(), lib.Keys())
	}
	if got := lib.Lookup("3", "terran"); len(got) != 1 || got[0].Category != CategoryCount {
		t.Fatalf("lookup 3/terran: %+v", got)
	}
	if got := lib.Lookup("3", ""); len(got) != 0 {
		t.Fatalf("3 should only exist in the terran variant")
	}
	if p := lib.Pool(CategoryCount, "terran"); len(p) != 1 || p[0].Key != "3" {
		t.Fatalf("terran count pool: %+v", p)
	}
	if p := lib.Pool(CategoryCount, "zerg"); len(p) != 1 || p[0].Text != "/" {
		t.Fatalf("zerg count pool should fall back to color-agnostic pool: %+v", p)
	}
	if c := lib.Lookup("colon", ""); len(c) != 1 || c[0].Text != ":" {
		t.Fatalf("colon alias: %+v", c)
	}
	if p := lib.Lookup("p", ""); len(p) != 1 || p[0].Text != "P" {
		t.Fatalf("pause letters render upper case: %+v", p)
	}
	if m := lib.Lookup("void-rifts", ""); len(m) != 1 || m[0].Text != "Void Rifts" || m[0].Gray == nil {
		t.Fatalf("manifest alias or gray plane missing: %+v", m)
	}
}

func TestBinarize_AlphaAndInvertedGrayAgree(t *testing.T) {
	lib, err := LoadFS(testFS(), discardLogger)
	if err != nil {
		t.Fatal(err)
	}
	want := vistest.Glyph('/', 1)
	slash := lib.Lookup("slash", "")[0].Binary
	if slash.W != want.W || slash.H != want.H {
		t.Fatalf("size mismatch %dx%d", slash.W, slash.H)
	}
	for i := range want.Pix {
		if slash.Pix[i] != want.Pix[i] {
			t.Fatalf("inverted gray binarization differs at %d", i)
		}
	}
	want = vistest.Glyph('3', 1)
	three := lib.Lookup("3", "terran")[0].Binary
	for i := range want.Pix {
		if three.Pix[i] != want.Pix[i] {
			t.Fatalf("alpha binarization differs at %d", i)
		}
	}
}

func TestKernel_CachedPerScale(t *testing.T) {
	lib, _ := LoadFS(testFS(), discardLogger)
	tpl := lib.Lookup("3", "terran")[0]
	a := tpl.Kernel(2)
	b := tpl.Kernel(2.0001)
	if a == nil || a != b {
		t.Fatalf("expected cached kernel for equivalent scale")
	}
	if c := tpl.Kernel(1); c == a || c.W != 5 {
		t.Fatalf("scale 1 kernel should be distinct and unscaled")
	}
	if tpl.GrayKernel(1) != nil {
		t.Fatalf("glyph templates carry no gray plane")
	}
	icon := lib.Lookup("terran", "")[0]
	if icon.GrayKernel(1) == nil {
		t.Fatalf("icon gray kernel missing")
	}
}

func TestLoad_MissingDirectoryIsNotFatal(t *testing.T) {
	lib, err := Load(filepath.Join(t.TempDir(), "nope"), "enUS", discardLogger)
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if lib.Len() != 0 || len(lib.Pool(CategoryCount, "")) != 0 {
		t.Fatalf("expected empty library")
	}
}
