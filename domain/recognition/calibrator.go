package recognition

import (
	"image"
	"log/slog"

	"github.com/soocke/coop-overlay-go/config"
	"github.com/soocke/coop-overlay-go/domain/templates"
	"github.com/soocke/coop-overlay-go/domain/vision"
)

// ColorCalibrator decides which faction color renders the count by scoring
// phrase templates against each faction's mask.
type ColorCalibrator struct {
	factions  []config.ColorProfile
	lib       *templates.Library
	ocrScale  float64
	threshold float64
	logger    *slog.Logger
}

// NewColorCalibrator constructs a calibrator over the configured factions.
func NewColorCalibrator(cfg *config.Config, lib *templates.Library, logger *slog.Logger) *ColorCalibrator {
	if lib == nil {
		lib = templates.NewLibrary()
	}
	return &ColorCalibrator{
		factions:  cfg.Factions,
		lib:       lib,
		ocrScale:  cfg.OCRScale,
		threshold: cfg.CalibrationThreshold,
		logger:    logger,
	}
}

// Calibrate returns the faction whose mask yields the best single template
// score, provided that score reaches the acceptance threshold.
func (c *ColorCalibrator) Calibrate(frame image.Image, countROI image.Rectangle, scale float64) (config.ColorProfile, bool) {
	roi, err := vision.ExtractROI(frame, countROI, c.ocrScale)
	if err != nil {
		return config.ColorProfile{}, false
	}
	bestIdx, bestScore := -1, -1.0
	for i, f := range c.factions {
		mask := vision.MaskHSV(roi, f)
		if mask.CountNonZero() == 0 {
			continue
		}
		pool := c.lib.Pool(templates.CategoryPhrase, f.Name)
		if len(pool) == 0 {
			pool = c.lib.Pool(templates.CategoryCount, f.Name)
		}
		s := vision.NewSearcher(mask)
		for _, t := range pool {
			m, ok := s.Best(t.Kernel(scale))
			if ok && m.Score > bestScore {
				bestIdx, bestScore = i, m.Score
			}
		}
	}
	if bestIdx < 0 || bestScore < c.threshold {
		if c.logger != nil && bestIdx >= 0 {
			c.logger.Debug("color calibration below threshold", "best", c.factions[bestIdx].Name, "score", bestScore)
		}
		return config.ColorProfile{}, false
	}
	if c.logger != nil {
		c.logger.Info("color calibrated", "faction", c.factions[bestIdx].Name, "score", bestScore)
	}
	return c.factions[bestIdx], true
}
