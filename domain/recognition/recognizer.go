package recognition

import (
	"image"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/soocke/coop-overlay-go/config"
	"github.com/soocke/coop-overlay-go/domain/templates"
	"github.com/soocke/coop-overlay-go/domain/vision"
)

// Request describes one ROI read.
type Request struct {
	Frame     image.Image
	ROI       image.Rectangle
	Color     config.ColorProfile
	Category  string  // template pool, e.g. templates.CategoryTime
	Variant   string  // color variant of the pool
	Scale     float64 // window height / baseline height
	OCRScale  float64 // artificial upscale applied to the crop
	Threshold float64
}

// Recognizer turns an ROI into text. Implementations return "" when nothing
// is legible and never panic to the caller.
type Recognizer interface {
	Recognize(req Request) string
}

// GlyphMatcher reads text by matching every template of a pool against the
// color-isolated ROI and joining the surviving matches left to right.
type GlyphMatcher struct {
	lib       *templates.Library
	minPixels int
	overlap   float64
	logger    *slog.Logger
}

// NewGlyphMatcher constructs a template-matching recognizer.
func NewGlyphMatcher(lib *templates.Library, cfg *config.Config, logger *slog.Logger) *GlyphMatcher {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if lib == nil {
		lib = templates.NewLibrary()
	}
	return &GlyphMatcher{lib: lib, minPixels: cfg.MaskMinPixels, overlap: cfg.OverlapThreshold, logger: logger}
}

func (m *GlyphMatcher) Recognize(req Request) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			if m.logger != nil {
				m.logger.Error("glyph matcher panic", "error", r, "category", req.Category, "stack", string(debug.Stack()))
			}
		}
	}()
	roi, err := vision.ExtractROI(req.Frame, req.ROI, req.OCRScale)
	if err != nil {
		return ""
	}
	mask := vision.MaskHSV(roi, req.Color)
	if mask.CountNonZero() < m.minPixels {
		return ""
	}
	pool := m.lib.Pool(req.Category, req.Variant)
	if len(pool) == 0 {
		return ""
	}
	s := vision.NewSearcher(mask)
	var cands []vision.Candidate
	for _, t := range pool {
		k := t.Kernel(req.Scale)
		if k == nil {
			continue
		}
		for _, hit := range s.All(k, req.Threshold) {
			cands = append(cands, vision.Candidate{Box: hit.Box, Score: hit.Score, Label: t.Text})
		}
	}
	var sb strings.Builder
	for _, c := range vision.Suppress(cands, m.overlap) {
		sb.WriteString(c.Label)
	}
	return sb.String()
}

var _ Recognizer = (*GlyphMatcher)(nil)
