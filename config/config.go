package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. MALWARFARE_TEMPLATE_ROOT.
const EnvPrefix = "MALWARFARE"

// Recognition backends.
const (
	BackendTemplate  = "template"
	BackendTesseract = "tesseract"
)

// Config holds runtime configuration for the recognition engine.
// Fields may be loaded from a YAML or JSON file and overridden by environment
// variables and command-line flags.
type Config struct {
	Debug     bool   `json:"debug" yaml:"debug" mapstructure:"debug"`
	LogLevel  string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" mapstructure:"log_format"`

	// Game window
	WindowTitle       string `json:"window_title" yaml:"window_title" mapstructure:"window_title"`
	ForegroundOnly    bool   `json:"foreground_only" yaml:"foreground_only" mapstructure:"foreground_only"`
	WindowRetryMillis int    `json:"window_retry_millis" yaml:"window_retry_millis" mapstructure:"window_retry_millis"`

	// Templates and backend
	TemplateRoot      string `json:"template_root" yaml:"template_root" mapstructure:"template_root"`
	Language          string `json:"language" yaml:"language" mapstructure:"language"` // template folder, e.g. enUS
	Backend           string `json:"backend" yaml:"backend" mapstructure:"backend"`
	TesseractLanguage string `json:"tesseract_language" yaml:"tesseract_language" mapstructure:"tesseract_language"` // traineddata name, e.g. eng

	// HUD geometry, in baseline-resolution pixels
	BaselineWidth  int   `json:"baseline_width" yaml:"baseline_width" mapstructure:"baseline_width"`
	BaselineHeight int   `json:"baseline_height" yaml:"baseline_height" mapstructure:"baseline_height"`
	CountROI       Rect  `json:"count_roi" yaml:"count_roi" mapstructure:"count_roi"`
	TimeROI        Rect  `json:"time_roi" yaml:"time_roi" mapstructure:"time_roi"`
	PauseROI       Rect  `json:"pause_roi" yaml:"pause_roi" mapstructure:"pause_roi"`
	RaceROI        Rect  `json:"race_roi" yaml:"race_roi" mapstructure:"race_roi"`
	MutatorROI     Rect  `json:"mutator_roi" yaml:"mutator_roi" mapstructure:"mutator_roi"`
	LayoutOffsets  []int `json:"layout_offsets" yaml:"layout_offsets" mapstructure:"layout_offsets"`

	// Matching
	LocatorMinPixels     int     `json:"locator_min_pixels" yaml:"locator_min_pixels" mapstructure:"locator_min_pixels"`
	MaskMinPixels        int     `json:"mask_min_pixels" yaml:"mask_min_pixels" mapstructure:"mask_min_pixels"`
	OCRScale             float64 `json:"ocr_scale" yaml:"ocr_scale" mapstructure:"ocr_scale"`
	MatchThreshold       float64 `json:"match_threshold" yaml:"match_threshold" mapstructure:"match_threshold"`
	CalibrationThreshold float64 `json:"calibration_threshold" yaml:"calibration_threshold" mapstructure:"calibration_threshold"`
	OverlapThreshold     float64 `json:"overlap_threshold" yaml:"overlap_threshold" mapstructure:"overlap_threshold"`

	// Colors (HSV, OpenCV scale)
	Factions   []ColorProfile `json:"factions" yaml:"factions" mapstructure:"factions"`
	TimeColor  ColorProfile   `json:"time_color" yaml:"time_color" mapstructure:"time_color"`
	PauseColor ColorProfile   `json:"pause_color" yaml:"pause_color" mapstructure:"pause_color"`

	// Result filtering
	MaxMinutes                 int  `json:"max_minutes" yaml:"max_minutes" mapstructure:"max_minutes"`
	HoldOverSeconds            int  `json:"hold_over_seconds" yaml:"hold_over_seconds" mapstructure:"hold_over_seconds"`
	HoldOverMaxMillis          int  `json:"hold_over_max_millis" yaml:"hold_over_max_millis" mapstructure:"hold_over_max_millis"`
	LatencyCompensationSeconds int  `json:"latency_compensation_seconds" yaml:"latency_compensation_seconds" mapstructure:"latency_compensation_seconds"`
	PausedMinLetters           int  `json:"paused_min_letters" yaml:"paused_min_letters" mapstructure:"paused_min_letters"`
	ConfusableCorrection       bool `json:"confusable_correction" yaml:"confusable_correction" mapstructure:"confusable_correction"`

	// Scheduling
	IterationMillis     int `json:"iteration_millis" yaml:"iteration_millis" mapstructure:"iteration_millis"`
	CountIntervalMillis int `json:"count_interval_millis" yaml:"count_interval_millis" mapstructure:"count_interval_millis"`
	TimeIntervalMillis  int `json:"time_interval_millis" yaml:"time_interval_millis" mapstructure:"time_interval_millis"`
	WorkerPoolSize      int `json:"worker_pool_size" yaml:"worker_pool_size" mapstructure:"worker_pool_size"`

	// Icons
	IconThreshold             float64 `json:"icon_threshold" yaml:"icon_threshold" mapstructure:"icon_threshold"`
	IconConfirmHits           int     `json:"icon_confirm_hits" yaml:"icon_confirm_hits" mapstructure:"icon_confirm_hits"`
	IconSearchIntervalMillis  int     `json:"icon_search_interval_millis" yaml:"icon_search_interval_millis" mapstructure:"icon_search_interval_millis"`
	IconConfirmIntervalMillis int     `json:"icon_confirm_interval_millis" yaml:"icon_confirm_interval_millis" mapstructure:"icon_confirm_interval_millis"`
	MutatorTimeoutSeconds     int     `json:"mutator_timeout_seconds" yaml:"mutator_timeout_seconds" mapstructure:"mutator_timeout_seconds"`
	MaxMutators               int     `json:"max_mutators" yaml:"max_mutators" mapstructure:"max_mutators"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	cfg := &Config{
		Debug:             false,
		LogLevel:          "info",
		LogFormat:         "json",
		WindowTitle:       "StarCraft II",
		ForegroundOnly:    true,
		WindowRetryMillis: 1000,

		TemplateRoot:      "templates",
		Language:          "enUS",
		Backend:           BackendTemplate,
		TesseractLanguage: "eng",

		BaselineWidth:  1920,
		BaselineHeight: 1080,
		CountROI:       Rect{X0: 1490, Y0: 92, X1: 1610, Y1: 124},
		TimeROI:        Rect{X0: 1490, Y0: 124, X1: 1610, Y1: 156},
		PauseROI:       Rect{X0: 1450, Y0: 124, X1: 1650, Y1: 156},
		RaceROI:        Rect{X0: 24, Y0: 24, X1: 120, Y1: 120},
		MutatorROI:     Rect{X0: 1700, Y0: 250, X1: 1910, Y1: 330},
		LayoutOffsets:  []int{0, 64, 128},

		LocatorMinPixels:     30,
		MaskMinPixels:        20,
		OCRScale:             2.0,
		MatchThreshold:       0.80,
		CalibrationThreshold: 0.75,
		OverlapThreshold:     0.30,

		MaxMinutes:                 3,
		HoldOverSeconds:            5,
		HoldOverMaxMillis:          3000,
		LatencyCompensationSeconds: 1,
		PausedMinLetters:           4,
		ConfusableCorrection:       true,

		IterationMillis:     100,
		CountIntervalMillis: 1000,
		TimeIntervalMillis:  200,
		WorkerPoolSize:      3,

		IconThreshold:             0.80,
		IconConfirmHits:           10,
		IconSearchIntervalMillis:  1000,
		IconConfirmIntervalMillis: 100,
		MutatorTimeoutSeconds:     30,
		MaxMutators:               3,
	}
	if p, err := DefaultPalette(); err == nil {
		cfg.Factions = p.Factions
		cfg.TimeColor = p.Time
		cfg.PauseColor = p.Pause
	}
	return cfg
}

// Validate clamps/normalizes values to safe ranges. It returns an error only
// when the color palette cannot be used for masking.
func (c *Config) Validate() error {
	d := DefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		c.LogFormat = d.LogFormat
	}
	if c.WindowRetryMillis <= 0 {
		c.WindowRetryMillis = d.WindowRetryMillis
	}
	if c.Language == "" {
		c.Language = d.Language
	}
	if c.TesseractLanguage == "" {
		c.TesseractLanguage = d.TesseractLanguage
	}
	if c.Backend != BackendTemplate && c.Backend != BackendTesseract {
		c.Backend = BackendTemplate
	}
	if c.BaselineWidth <= 0 {
		c.BaselineWidth = d.BaselineWidth
	}
	if c.BaselineHeight <= 0 {
		c.BaselineHeight = d.BaselineHeight
	}
	for _, roi := range []struct{ dst, def *Rect }{
		{&c.CountROI, &d.CountROI},
		{&c.TimeROI, &d.TimeROI},
		{&c.PauseROI, &d.PauseROI},
		{&c.RaceROI, &d.RaceROI},
		{&c.MutatorROI, &d.MutatorROI},
	} {
		if roi.dst.Empty() {
			*roi.dst = *roi.def
		}
	}
	if len(c.LayoutOffsets) == 0 {
		c.LayoutOffsets = []int{0}
	}
	if c.LocatorMinPixels <= 0 {
		c.LocatorMinPixels = d.LocatorMinPixels
	}
	if c.MaskMinPixels < 0 {
		c.MaskMinPixels = d.MaskMinPixels
	}
	if c.OCRScale <= 0 || c.OCRScale > 8 {
		c.OCRScale = d.OCRScale
	}
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		c.MatchThreshold = d.MatchThreshold
	}
	if c.CalibrationThreshold <= 0 || c.CalibrationThreshold > 1 {
		c.CalibrationThreshold = d.CalibrationThreshold
	}
	if c.OverlapThreshold <= 0 || c.OverlapThreshold >= 1 {
		c.OverlapThreshold = d.OverlapThreshold
	}
	if c.MaxMinutes <= 0 {
		c.MaxMinutes = d.MaxMinutes
	}
	if c.HoldOverSeconds < 0 {
		c.HoldOverSeconds = d.HoldOverSeconds
	}
	if c.HoldOverMaxMillis < 0 {
		c.HoldOverMaxMillis = 0
	}
	if c.LatencyCompensationSeconds < 0 {
		c.LatencyCompensationSeconds = 0
	}
	if c.PausedMinLetters <= 0 || c.PausedMinLetters > 6 {
		c.PausedMinLetters = d.PausedMinLetters
	}
	if c.IterationMillis <= 0 {
		c.IterationMillis = d.IterationMillis
	}
	if c.CountIntervalMillis <= 0 {
		c.CountIntervalMillis = d.CountIntervalMillis
	}
	if c.TimeIntervalMillis <= 0 {
		c.TimeIntervalMillis = d.TimeIntervalMillis
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = d.WorkerPoolSize
	}
	if c.IconThreshold <= 0 || c.IconThreshold > 1 {
		c.IconThreshold = d.IconThreshold
	}
	if c.IconConfirmHits <= 0 {
		c.IconConfirmHits = d.IconConfirmHits
	}
	if c.IconSearchIntervalMillis <= 0 {
		c.IconSearchIntervalMillis = d.IconSearchIntervalMillis
	}
	if c.IconConfirmIntervalMillis <= 0 {
		c.IconConfirmIntervalMillis = d.IconConfirmIntervalMillis
	}
	if c.MutatorTimeoutSeconds <= 0 {
		c.MutatorTimeoutSeconds = d.MutatorTimeoutSeconds
	}
	if c.MaxMutators <= 0 {
		c.MaxMutators = d.MaxMutators
	}

	if len(c.Factions) == 0 {
		return errors.New("config: no faction color profiles")
	}
	for _, f := range c.Factions {
		if err := f.validate(); err != nil {
			return err
		}
	}
	if err := c.TimeColor.validate(); err != nil {
		return fmt.Errorf("time color: %w", err)
	}
	if err := c.PauseColor.validate(); err != nil {
		return fmt.Errorf("pause color: %w", err)
	}
	return nil
}

// Faction returns the faction profile with the given name.
func (c *Config) Faction(name string) (ColorProfile, bool) {
	for _, f := range c.Factions {
		if f.Name == name {
			return f, true
		}
	}
	return ColorProfile{}, false
}

// AnyFaction returns every faction range, for "is any known color present" masks.
func (c *Config) AnyFaction() ColorProfile {
	all := ColorProfile{Name: "any"}
	for _, f := range c.Factions {
		all.Ranges = append(all.Ranges, f.Ranges...)
	}
	return all
}

func millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (c *Config) Iteration() time.Duration     { return millis(c.IterationMillis) }
func (c *Config) CountInterval() time.Duration { return millis(c.CountIntervalMillis) }
func (c *Config) TimeInterval() time.Duration  { return millis(c.TimeIntervalMillis) }
func (c *Config) WindowRetry() time.Duration   { return millis(c.WindowRetryMillis) }
func (c *Config) HoldOverMax() time.Duration   { return millis(c.HoldOverMaxMillis) }
func (c *Config) IconSearchInterval() time.Duration {
	return millis(c.IconSearchIntervalMillis)
}
func (c *Config) IconConfirmInterval() time.Duration {
	return millis(c.IconConfirmIntervalMillis)
}
func (c *Config) MutatorTimeout() time.Duration {
	return time.Duration(c.MutatorTimeoutSeconds) * time.Second
}

// Load builds the configuration from defaults, the optional file at path,
// MALWARFARE_* environment variables and the bound flags, in increasing
// precedence. A missing file is not an error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	defaults, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return DefaultConfig(), fmt.Errorf("config: encode defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return DefaultConfig(), fmt.Errorf("config: read defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
				v.SetConfigType(ext)
			}
			v.SetConfigFile(path)
			if err := v.MergeInConfig(); err != nil {
				return DefaultConfig(), fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return DefaultConfig(), err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return DefaultConfig(), fmt.Errorf("config: bind flags: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
