// Package scanner turns a photographed bill into a structured guess of what
// was spent. Two backends exist: a remote Gemini model and local Tesseract
// OCR. Neither result is trusted; callers only use it to prefill a form.
package scanner

import (
	"context"
	"fmt"
	"strings"

	apperrors "pocketledger/internal/errors"
)

// Categories a scan may report.
var Categories = []string{"Food", "Travel", "Shopping", "Utilities", "Entertainment", "Other"}

// ScanResult is the extracted guess. Amount is in minor units.
type ScanResult struct {
	Amount   int64  `json:"amount"`
	Merchant string `json:"merchant"`
	Category string `json:"category"`
}

// BillScanner extracts a ScanResult from an image.
type BillScanner interface {
	Extract(ctx context.Context, image []byte, mimeType string) (*ScanResult, error)
}

// Disabled rejects every scan. It stands in when no backend is configured.
type Disabled struct{}

func (Disabled) Extract(context.Context, []byte, string) (*ScanResult, error) {
	return nil, apperrors.ErrScannerDisabled
}

// New builds the scanner named by backend: "gemini", "tesseract", or "" for
// Disabled.
func New(ctx context.Context, backend, geminiKey, geminiModel string) (BillScanner, error) {
	switch strings.ToLower(backend) {
	case "":
		return Disabled{}, nil
	case "gemini":
		return NewGemini(ctx, geminiKey, geminiModel)
	case "tesseract":
		return NewTesseract(), nil
	default:
		return nil, fmt.Errorf("unknown bill scanner %q", backend)
	}
}

// AllowedMimeTypes lists the image types accepted for upload.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// NormalizeCategory maps free text onto one of Categories, falling back to
// "Other".
func NormalizeCategory(s string) string {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(c, s) {
			return c
		}
	}
	return "Other"
}

func scanFailed(err error) error {
	return apperrors.Wrap(apperrors.ErrScanFailed, err)
}
