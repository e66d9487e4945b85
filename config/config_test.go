package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(cfg.Factions) != 3 {
		t.Fatalf("expected 3 embedded factions, got %d", len(cfg.Factions))
	}
	zerg, ok := cfg.Faction("zerg")
	if !ok || len(zerg.Ranges) != 2 {
		t.Fatalf("expected zerg with two hue bands, got %+v", zerg)
	}
}

func TestValidate_ClampsBadValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MatchThreshold = 3
	cfg.OCRScale = -1
	cfg.WorkerPoolSize = 0
	cfg.CountROI = Rect{}
	cfg.PausedMinLetters = 9
	cfg.Backend = "bogus"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	d := DefaultConfig()
	if cfg.MatchThreshold != d.MatchThreshold || cfg.OCRScale != d.OCRScale || cfg.WorkerPoolSize != d.WorkerPoolSize {
		t.Fatalf("values not clamped: %+v", cfg)
	}
	if cfg.CountROI != d.CountROI {
		t.Fatalf("empty ROI not restored: %+v", cfg.CountROI)
	}
	if cfg.PausedMinLetters != 4 || cfg.Backend != BackendTemplate {
		t.Fatalf("unexpected paused letters=%d backend=%s", cfg.PausedMinLetters, cfg.Backend)
	}
}

func TestValidate_RejectsBadPalette(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Factions = nil
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty factions")
	}
	cfg = DefaultConfig()
	cfg.Factions[0].Ranges[0].HMax = 400
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for hue out of range")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.WindowTitle != "StarCraft II" || cfg.IterationMillis != 100 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if len(cfg.Factions) != 3 || len(cfg.LayoutOffsets) != 3 {
		t.Fatalf("nested defaults lost: factions=%d offsets=%v", len(cfg.Factions), cfg.LayoutOffsets)
	}
}

func TestLoad_FileEnvAndFlagsOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.yaml")
	body := []byte("match_threshold: 0.9\nmax_minutes: 5\ncount_roi:\n  x0: 10\n  y0: 20\n  x1: 30\n  y1: 40\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MALWARFARE_WINDOW_TITLE", "Other Game")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("template_root", "templates", "")
	if err := fs.Parse([]string{"--template_root=/opt/tpl"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MatchThreshold != 0.9 || cfg.MaxMinutes != 5 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.CountROI != (Rect{X0: 10, Y0: 20, X1: 30, Y1: 40}) {
		t.Fatalf("nested ROI not applied: %+v", cfg.CountROI)
	}
	if cfg.WindowTitle != "Other Game" {
		t.Fatalf("env override not applied: %q", cfg.WindowTitle)
	}
	if cfg.TemplateRoot != "/opt/tpl" {
		t.Fatalf("flag override not applied: %q", cfg.TemplateRoot)
	}
	if cfg.LatencyCompensationSeconds != 1 {
		t.Fatalf("untouched default changed: %d", cfg.LatencyCompensationSeconds)
	}
}

func TestSaveThenLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.json")
	cfg := DefaultConfig()
	cfg.HoldOverSeconds = 7
	cfg.LayoutOffsets = []int{0, 40}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.HoldOverSeconds != 7 || len(got.LayoutOffsets) != 2 || got.LayoutOffsets[1] != 40 {
		t.Fatalf("round trip mismatch: hold=%d offsets=%v", got.HoldOverSeconds, got.LayoutOffsets)
	}
}

func TestRect_ShiftAndScale(t *testing.T) {
	r := Rect{X0: 100, Y0: 50, X1: 200, Y1: 80}.Shift(64)
	if r.Y0 != 114 || r.Y1 != 144 {
		t.Fatalf("shift: %+v", r)
	}
	s := r.Scale(0.5, 0.5)
	if s.Min.X != 50 || s.Min.Y != 57 || s.Max.X != 100 || s.Max.Y != 72 {
		t.Fatalf("scale: %v", s)
	}
}

func TestColorProfile_ContainsWrapsHue(t *testing.T) {
	cfg := DefaultConfig()
	zerg, _ := cfg.Faction("zerg")
	if !zerg.Contains(2, 200, 200) || !zerg.Contains(175, 200, 200) {
		t.Fatalf("zerg should match both red bands")
	}
	if zerg.Contains(60, 200, 200) {
		t.Fatalf("zerg should not match green")
	}
}

func TestValidate_TesseractLanguageIsSeparateFromTemplates(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TesseractLanguage != "eng" || cfg.Language != "enUS" {
		t.Fatalf("unexpected language defaults: tesseract=%q templates=%q", cfg.TesseractLanguage, cfg.Language)
	}
	cfg.TesseractLanguage = ""
	cfg.Language = "deDE"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.TesseractLanguage != "eng" || cfg.Language != "deDE" {
		t.Fatalf("validate mixed up languages: tesseract=%q templates=%q", cfg.TesseractLanguage, cfg.Language)
	}
}
