//go:build tesseract

package recognition

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/soocke/coop-overlay-go/domain/templates"
	"github.com/soocke/coop-overlay-go/domain/vision"
)

// TesseractAvailable reports whether the binary was built with the
// tesseract tag.
const TesseractAvailable = true

var whitelists = map[string]string{
	templates.CategoryCount: "0123456789/",
	templates.CategoryTime:  "0123456789:",
	templates.CategoryPause: "PAUSED",
}

// TesseractRecognizer reads ROIs with a Tesseract client. The client is not
// safe for concurrent use, so reads are serialized.
type TesseractRecognizer struct {
	mu     sync.Mutex
	client *gosseract.Client
	logger *slog.Logger
}

// NewTesseract creates a Tesseract-backed recognizer for lang (e.g. "eng").
func NewTesseract(lang string, logger *slog.Logger) (Recognizer, error) {
	client := gosseract.NewClient()
	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, fmt.Errorf("tesseract language %q: %w", lang, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("tesseract page mode: %w", err)
	}
	if err := warmUp(client); err != nil {
		client.Close()
		return nil, fmt.Errorf("tesseract language %q: %w", lang, err)
	}
	return &TesseractRecognizer{client: client, logger: logger}, nil
}

// warmUp runs one read on a blank image. The client loads its language data
// lazily on the first read, so a missing traineddata file only shows up here.
func warmUp(client *gosseract.Client) error {
	var buf bytes.Buffer
	blank := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range blank.Pix {
		blank.Pix[i] = 255
	}
	if err := png.Encode(&buf, blank); err != nil {
		return err
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return err
	}
	_, err := client.Text()
	return err
}

func (t *TesseractRecognizer) Recognize(req Request) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			if t.logger != nil {
				t.logger.Error("tesseract panic", "error", r, "stack", string(debug.Stack()))
			}
		}
	}()
	roi, err := vision.ExtractROI(req.Frame, req.ROI, req.OCRScale)
	if err != nil {
		return ""
	}
	mask := vision.MaskHSV(roi, req.Color)
	if mask.CountNonZero() == 0 {
		return ""
	}
	// Tesseract expects dark text on a light page.
	var buf bytes.Buffer
	if err := png.Encode(&buf, mask.Invert().Image()); err != nil {
		return ""
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if wl, ok := whitelists[req.Category]; ok {
		_ = t.client.SetWhitelist(wl)
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		if t.logger != nil {
			t.logger.Warn("tesseract set image", "error", err)
		}
		return ""
	}
	out, err := t.client.Text()
	if err != nil {
		if t.logger != nil {
			t.logger.Warn("tesseract text", "error", err)
		}
		return ""
	}
	return strings.Join(strings.Fields(out), "")
}

// Close releases the Tesseract client.
func (t *TesseractRecognizer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Close()
}
