//go:build !tesseract

package recognition

import "log/slog"

// TesseractAvailable reports whether the binary was built with the
// tesseract tag.
const TesseractAvailable = false

// NewTesseract reports that the backend is unavailable in this build.
func NewTesseract(lang string, logger *slog.Logger) (Recognizer, error) {
	return nil, ErrBackendUnavailable
}
